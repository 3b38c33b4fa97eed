package router

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	tg "github.com/ileafrica/ilebot/core/telegram"
	"github.com/ileafrica/ilebot/core/telegram/commands"
)

type fakeContext struct {
	tele.Context
	upd       tele.Update
	store     map[string]any
	responded int
}

func newContext(upd tele.Update) *fakeContext {
	return &fakeContext{upd: upd, store: map[string]any{}}
}

func (f *fakeContext) Update() tele.Update      { return f.upd }
func (f *fakeContext) Callback() *tele.Callback { return f.upd.Callback }
func (f *fakeContext) Get(key string) any       { return f.store[key] }
func (f *fakeContext) Set(key string, v any)    { f.store[key] = v }

func (f *fakeContext) Respond(...*tele.CallbackResponse) error {
	f.responded++
	return nil
}

func (f *fakeContext) Sender() *tele.User {
	if f.upd.Message != nil {
		return f.upd.Message.Sender
	}
	if f.upd.Callback != nil {
		return f.upd.Callback.Sender
	}
	return nil
}

func (f *fakeContext) Chat() *tele.Chat {
	if f.upd.Message != nil {
		return f.upd.Message.Chat
	}
	return nil
}

func (f *fakeContext) Text() string {
	if f.upd.Message != nil {
		return f.upd.Message.Text
	}
	return ""
}

func text(body string) tele.Update {
	return tele.Update{ID: 2, Message: &tele.Message{
		Text:   body,
		Sender: &tele.User{ID: 5},
		Chat:   &tele.Chat{ID: 5},
	}}
}

func routeFor(routes []tg.Route, endpoint any) tele.HandlerFunc {
	for _, r := range routes {
		if r.Endpoint == endpoint {
			return r.Handler
		}
	}
	return nil
}

func TestTextRouteResolvesAliases(t *testing.T) {
	reg := tg.NewRegistry()
	var got []string
	require.NoError(t, reg.RegisterCommand("/done", commands.Command{
		Handler:     func(tele.Context) error { got = append(got, "done"); return nil },
		Description: "Finish uploading images",
		Aliases:     []string{"done"},
	}))

	routes := TextRoutes(reg, TextOptions{
		OnText: func(c tele.Context) error { got = append(got, "text:"+c.Text()); return nil },
	})
	h := routeFor(routes, tele.OnText)
	require.NotNil(t, h)

	require.NoError(t, h(newContext(text("DONE"))))
	require.NoError(t, h(newContext(text("Sunny villa"))))
	assert.Equal(t, []string{"done", "text:Sunny villa"}, got)

	// Unset handlers skip the update without failing it.
	photo := routeFor(routes, tele.OnPhoto)
	require.NotNil(t, photo)
	assert.NoError(t, photo(newContext(text(""))))
}

func TestCallbackRouteDispatchesByKey(t *testing.T) {
	reg := tg.NewRegistry()
	var got []string
	require.NoError(t, reg.RegisterCallback("approve", func(tele.Context) error {
		got = append(got, "approve")
		return nil
	}))
	reg.SetCallbackNotFound(func(tele.Context) error {
		got = append(got, "fallback")
		return nil
	})
	route := CallbackRoute(reg, CallbackOptions{})
	assert.Equal(t, tele.OnCallback, route.Endpoint)

	press := func(data string) *fakeContext {
		return newContext(tele.Update{ID: 3, Callback: &tele.Callback{Data: data, Sender: &tele.User{ID: 5}}})
	}
	known, unknown := press("\fapprove|p1"), press("\fshrug|x")
	require.NoError(t, route.Handler(known))
	require.NoError(t, route.Handler(unknown))

	assert.Equal(t, []string{"approve", "fallback"}, got)
	assert.Equal(t, 1, known.responded)
	assert.Equal(t, 1, unknown.responded)
}

func TestCommandRoutesSorted(t *testing.T) {
	reg := tg.NewRegistry()
	for _, name := range []string{"/start", "/cancel", "/help"} {
		require.NoError(t, reg.RegisterCommand(name, commands.Command{
			Handler:     func(tele.Context) error { return nil },
			Description: name,
		}))
	}
	routes := CommandRoutes(reg)
	require.Len(t, routes, 3)
	assert.Equal(t, []any{"/cancel", "/help", "/start"}, []any{routes[0].Endpoint, routes[1].Endpoint, routes[2].Endpoint})
}

type codedErr struct{ code string }

func (e codedErr) Error() string { return "rejected" }
func (e codedErr) Code() string  { return e.code }

type plainErr struct{}

func (*plainErr) Error() string { return "plain" }

func TestDeriveErrorCode(t *testing.T) {
	assert.Equal(t, "INVALID_PRICE", deriveErrorCode(fmt.Errorf("wrap: %w", codedErr{code: "invalid price"})))
	assert.Equal(t, "PLAINERR", deriveErrorCode(&plainErr{}))
	assert.Equal(t, "ERRORSTRING", deriveErrorCode(errors.New("x")))
	assert.Equal(t, "", deriveErrorCode(nil))
	assert.Equal(t, "add_property", normalizeHandlerName(" /Add_Property "))
	assert.Equal(t, "unknown", normalizeHandlerName(""))
}
