package middleware

import (
	tele "gopkg.in/telebot.v4"

	"github.com/ileafrica/ilebot/core/metrics"
)

const (
	keyMessages = "messages"
	keyKeyboard = "kb"
)

// countingContext counts successful outgoing messages of one update.
type countingContext struct{ tele.Context }

func (m countingContext) count(opts []any) {
	CountMessage(m.Context, carriesMarkup(opts))
}

// CountMessage records a message sent or queued outside the update context,
// for example through the bot client.
func CountMessage(c tele.Context, withMarkup bool) {
	n, _ := c.Get(keyMessages).(int)
	c.Set(keyMessages, n+1)
	if withMarkup {
		c.Set(keyKeyboard, true)
	}
}

func carriesMarkup(opts []any) bool {
	for _, o := range opts {
		switch v := o.(type) {
		case *tele.SendOptions:
			if v != nil && v.ReplyMarkup != nil {
				return true
			}
		case *tele.ReplyMarkup:
			if v != nil {
				return true
			}
		}
	}
	return false
}

func (m countingContext) Send(what any, opts ...any) error {
	err := m.Context.Send(what, opts...)
	if err == nil {
		m.count(opts)
	}
	return err
}

func (m countingContext) Reply(what any, opts ...any) error {
	err := m.Context.Reply(what, opts...)
	if err == nil {
		m.count(opts)
	}
	return err
}

func (m countingContext) Edit(what any, opts ...any) error {
	err := m.Context.Edit(what, opts...)
	if err == nil {
		m.count(opts)
	}
	return err
}

func (m countingContext) EditOrSend(what any, opts ...any) error {
	err := m.Context.EditOrSend(what, opts...)
	if err == nil {
		m.count(opts)
	}
	return err
}

// MessageMetricsMiddleware counts the update in Prometheus and wraps the
// context so handler summaries can report how many messages were sent.
func MessageMetricsMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		metrics.RecordUpdate(UpdateKind(c.Update()))
		c.Set(keyMessages, 0)
		c.Set(keyKeyboard, false)
		return next(countingContext{Context: c})
	}
}

// GetCounters reports the messages sent or queued so far and whether any
// carried a keyboard.
func GetCounters(c tele.Context) (int, bool) {
	msgs, _ := c.Get(keyMessages).(int)
	kb, _ := c.Get(keyKeyboard).(bool)
	return msgs, kb
}
