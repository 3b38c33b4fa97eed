package helpers

import (
	"errors"
	"log/slog"
	"sync/atomic"

	tele "gopkg.in/telebot.v4"

	"github.com/ileafrica/ilebot/core/logger"
	"github.com/ileafrica/ilebot/core/telegram/sender"
)

var globalDispatcher atomic.Pointer[sender.Dispatcher]

// SetDispatcher installs the asynchronous sender used by the helpers below.
// Passing nil makes every send synchronous.
func SetDispatcher(d *sender.Dispatcher) {
	globalDispatcher.Store(d)
}

// Deliver runs send through the dispatcher queue, or inline when no
// dispatcher is installed or the queue cannot take the job. Sends for the
// same chat keep their order.
func Deliver(c tele.Context, action, endpoint string, send func() error) error {
	var chatID int64
	if chat := c.Chat(); chat != nil {
		chatID = chat.ID
	}
	return DeliverTo(c, chatID, action, endpoint, send)
}

// DeliverTo is Deliver ordered by chatID instead of the chat of the update.
func DeliverTo(c tele.Context, chatID int64, action, endpoint string, send func() error) error {
	disp := globalDispatcher.Load()
	if disp == nil {
		return send()
	}
	ctx := BuildContext(c)
	err := disp.EnqueueKeyed(ctx, chatID, action, endpoint, send)
	if errors.Is(err, sender.ErrQueueFull) || errors.Is(err, sender.ErrQueueClosed) {
		logger.Warn(ctx, "tg.sender", "queue.fallback",
			slog.String("action", action),
			slog.String("endpoint", endpoint),
			slog.String("err", err.Error()),
		)
		return send()
	}
	return err
}

// SendText sends plain text to the chat of the current update.
func SendText(c tele.Context, text string, opts ...*tele.SendOptions) error {
	return Deliver(c, "send.text", "sendMessage", func() error {
		if len(opts) > 0 && opts[0] != nil {
			return c.Send(text, opts[0])
		}
		return c.Send(text)
	})
}
