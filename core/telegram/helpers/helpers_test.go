package helpers

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/ileafrica/ilebot/core/logger"
	"github.com/ileafrica/ilebot/core/telegram/sender"
)

type fakeContext struct {
	tele.Context
	store map[string]any
	sent  []string
}

func (f *fakeContext) Update() tele.Update   { return tele.Update{ID: 3} }
func (f *fakeContext) Sender() *tele.User    { return &tele.User{ID: 8} }
func (f *fakeContext) Chat() *tele.Chat      { return &tele.Chat{ID: 9} }
func (f *fakeContext) Get(key string) any    { return f.store[key] }
func (f *fakeContext) Set(key string, v any) { f.store[key] = v }
func (f *fakeContext) Send(what any, _ ...any) error {
	s, ok := what.(string)
	if !ok {
		return errors.New("unexpected payload")
	}
	f.sent = append(f.sent, s)
	return nil
}

func TestBuildContextCachesMetadata(t *testing.T) {
	fc := &fakeContext{store: map[string]any{}}
	ctx := BuildContext(fc)
	assert.Equal(t, "3:9:8", logger.RIDFrom(ctx))
	assert.Equal(t, int64(9), logger.ChatIDFrom(ctx))
	assert.Equal(t, int64(8), logger.UserIDFrom(ctx))

	again := BuildContext(fc)
	assert.Equal(t, ctx, again)

	tagged := WithHandler(fc, "add_property")
	assert.Equal(t, "add_property", logger.HandlerFrom(tagged))
	cached, ok := ContextFrom(fc)
	require.True(t, ok)
	assert.Equal(t, "add_property", logger.HandlerFrom(cached))
}

func TestSendTextWithoutDispatcherIsSynchronous(t *testing.T) {
	SetDispatcher(nil)
	fc := &fakeContext{store: map[string]any{}}
	require.NoError(t, SendText(fc, "hello"))
	assert.Equal(t, []string{"hello"}, fc.sent)
}

func TestDeliverToQueuesPerChat(t *testing.T) {
	d := sender.NewDispatcher(sender.Options{Workers: 3})
	SetDispatcher(d)
	t.Cleanup(func() { SetDispatcher(nil) })

	fc := &fakeContext{store: map[string]any{}}
	var got []int
	for i := 0; i < 5; i++ {
		i := i
		require.NoError(t, DeliverTo(fc, 42, "send.to", "sendMessage", func() error {
			got = append(got, i)
			return nil
		}))
	}
	d.Close()
	assert.Equal(t, []int{0, 1, 2, 3, 4}, got)
}

func TestContextFromMissing(t *testing.T) {
	_, ok := ContextFrom(&fakeContext{store: map[string]any{"logger_ctx": "nope"}})
	assert.False(t, ok)
	_, ok = ContextFrom(nil)
	assert.False(t, ok)
}
