package router

import (
	"time"

	tele "gopkg.in/telebot.v4"

	tg "github.com/ileafrica/ilebot/core/telegram"
)

// TextOptions holds the handlers for non-command messages. Nil handlers
// leave the update unhandled (logged as skipped).
type TextOptions struct {
	OnText     tele.HandlerFunc
	OnPhoto    tele.HandlerFunc
	OnDocument tele.HandlerFunc
}

// TextRoutes builds the text, photo and document routes. Plain text that
// matches a command alias (for example "done") is routed to that command.
func TextRoutes(reg *tg.Registry, opts TextOptions) []tg.Route {
	text := func(c tele.Context) error {
		start := time.Now()
		if reg != nil {
			if key, cmd, ok := reg.LookupCommand(c.Text()); ok && cmd.Handler != nil {
				return handleWithSummary(c, normalizeHandlerName(key), start, func() error {
					return cmd.Handler(c)
				})
			}
		}
		return run(c, "text", start, opts.OnText)
	}
	photo := func(c tele.Context) error {
		return run(c, "photo", time.Now(), opts.OnPhoto)
	}
	document := func(c tele.Context) error {
		return run(c, "document", time.Now(), opts.OnDocument)
	}

	return []tg.Route{
		{Endpoint: tele.OnText, Handler: wrap(text)},
		{Endpoint: tele.OnPhoto, Handler: wrap(photo)},
		{Endpoint: tele.OnDocument, Handler: wrap(document)},
	}
}

func run(c tele.Context, name string, start time.Time, h tele.HandlerFunc) error {
	if h == nil {
		logHandlerSummary(c, name, start, "skip", nil)
		return nil
	}
	return handleWithSummary(c, name, start, func() error { return h(c) })
}
