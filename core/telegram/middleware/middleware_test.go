package middleware

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

// fakeContext implements the parts of tele.Context the middleware touches.
type fakeContext struct {
	tele.Context
	upd   tele.Update
	store map[string]any
	sent  []any
}

func newFakeContext(upd tele.Update) *fakeContext {
	return &fakeContext{upd: upd, store: map[string]any{}}
}

func (f *fakeContext) Update() tele.Update { return f.upd }

func (f *fakeContext) Sender() *tele.User {
	switch {
	case f.upd.Message != nil:
		return f.upd.Message.Sender
	case f.upd.Callback != nil:
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

func (f *fakeContext) Get(key string) any    { return f.store[key] }
func (f *fakeContext) Set(key string, v any) { f.store[key] = v }
func (f *fakeContext) Send(what any, _ ...any) error {
	f.sent = append(f.sent, what)
	return nil
}

func message(userID int64, text string) tele.Update {
	return tele.Update{ID: 1, Message: &tele.Message{
		Sender: &tele.User{ID: userID},
		Chat:   &tele.Chat{ID: userID, Type: tele.ChatPrivate},
		Text:   text,
	}}
}

func callback(userID int64) tele.Update {
	return tele.Update{ID: 2, Callback: &tele.Callback{Sender: &tele.User{ID: userID}}}
}

func TestRateLimitBurstThenDrop(t *testing.T) {
	limited := 0
	mw := RateLimitMiddleware(RateLimitOptions{
		Interval:  time.Hour,
		Burst:     2,
		OnLimited: func(tele.Context) error { limited++; return nil },
	})
	calls := 0
	h := mw(func(tele.Context) error { calls++; return nil })

	for i := 0; i < 3; i++ {
		require.NoError(t, h(newFakeContext(message(10, "hi"))))
	}
	assert.Equal(t, 2, calls)
	assert.Equal(t, 1, limited)

	require.NoError(t, h(newFakeContext(message(11, "hi"))))
	assert.Equal(t, 3, calls, "buckets are per user")
}

func TestRateLimitExclusions(t *testing.T) {
	mw := RateLimitMiddleware(RateLimitOptions{
		Interval: time.Hour,
		Exclude:  map[string]struct{}{KindCallback: {}},
	})
	calls := 0
	h := mw(func(tele.Context) error { calls++; return nil })
	for i := 0; i < 5; i++ {
		require.NoError(t, h(newFakeContext(callback(10))))
	}
	assert.Equal(t, 5, calls)
}

func TestUserLimitersSweepIdle(t *testing.T) {
	l := newUserLimiters(RateLimitOptions{Interval: time.Second, IdleTTL: time.Minute})
	now := time.Now()
	assert.True(t, l.allow(1, now))
	assert.True(t, l.allow(2, now))
	assert.Equal(t, 2, l.size())

	assert.True(t, l.allow(3, now.Add(2*time.Minute)))
	assert.Equal(t, 1, l.size())
}

func TestRecoverMiddlewareReturnsError(t *testing.T) {
	h := RecoverMiddleware(func(tele.Context) error { panic("kaboom") })
	err := h(newFakeContext(message(1, "x")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kaboom")

	sentinel := errors.New("plain")
	h = RecoverMiddleware(func(tele.Context) error { return sentinel })
	assert.ErrorIs(t, h(newFakeContext(message(1, "x"))), sentinel)
}

func TestMessageMetricsCountsSends(t *testing.T) {
	fc := newFakeContext(message(5, "/start"))
	h := MessageMetricsMiddleware(func(c tele.Context) error {
		if err := c.Send("one"); err != nil {
			return err
		}
		return c.Send("two", &tele.ReplyMarkup{RemoveKeyboard: true})
	})
	require.NoError(t, h(fc))
	msgs, kb := GetCounters(fc)
	assert.Equal(t, 2, msgs)
	assert.True(t, kb)
	assert.Len(t, fc.sent, 2)
}

func TestLoggerMiddlewareStoresRID(t *testing.T) {
	fc := newFakeContext(message(42, "hello"))
	h := LoggerMiddleware(func(tele.Context) error { return nil })
	require.NoError(t, h(fc))
	assert.Equal(t, "1:42:42", fc.Get("rid"))
}

func TestUpdateKind(t *testing.T) {
	assert.Equal(t, KindMessage, UpdateKind(message(1, "x")))
	assert.Equal(t, KindCallback, UpdateKind(callback(1)))
	assert.Equal(t, KindInlineQuery, UpdateKind(tele.Update{Query: &tele.Query{}}))
	assert.Equal(t, KindOther, UpdateKind(tele.Update{}))
}
