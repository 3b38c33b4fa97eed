// Package tgbot connects telebot updates to the dispatcher: it turns each
// update into a dispatch event and delivers the resulting messages.
package tgbot

import (
	"context"
	"log/slog"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/ileafrica/ilebot/core/logger"
	tg "github.com/ileafrica/ilebot/core/telegram"
	"github.com/ileafrica/ilebot/core/telegram/callbacks"
	"github.com/ileafrica/ilebot/core/telegram/commands"
	tghelpers "github.com/ileafrica/ilebot/core/telegram/helpers"
	"github.com/ileafrica/ilebot/core/telegram/keyboard"
	"github.com/ileafrica/ilebot/core/telegram/middleware"
	"github.com/ileafrica/ilebot/core/telegram/router"
	"github.com/ileafrica/ilebot/internal/dispatch"
	"github.com/ileafrica/ilebot/internal/moderation"
	"github.com/ileafrica/ilebot/internal/outbound"
)

// TextNotAnImage answers documents that are not pictures.
const TextNotAnImage = "Please send the picture as a photo or an image file."

// optionsPerRow is the width of reply keyboards.
const optionsPerRow = 2

// Handler processes one event and returns the replies, in order.
type Handler interface {
	Handle(ctx context.Context, ev dispatch.Event) []outbound.Message
}

type command struct {
	name        string
	description string
	adminOnly   bool
	aliases     []string
}

var commandSet = []command{
	{name: dispatch.CmdStart, description: "Welcome and overview"},
	{name: dispatch.CmdHelp, description: "List available commands"},
	{name: dispatch.CmdAddProperty, description: "Submit a property for review"},
	{name: dispatch.CmdDone, description: "Finish uploading images", aliases: []string{"done"}},
	{name: dispatch.CmdCancel, description: "Cancel the current submission"},
	{name: dispatch.CmdMyProperties, description: "Show your submissions"},
	{name: dispatch.CmdPending, description: "List properties awaiting review", adminOnly: true},
	{name: dispatch.CmdAllProperties, description: "List every property", adminOnly: true},
	{name: dispatch.CmdBan, description: "Ban a user: /ban <chat id>", adminOnly: true},
	{name: dispatch.CmdUnban, description: "Unban a user: /unban <chat id>", adminOnly: true},
}

// API is the part of *tele.Bot used to send replies.
type API interface {
	Send(to tele.Recipient, what any, opts ...any) (*tele.Message, error)
}

// Bot adapts Telegram updates to a Handler.
type Bot struct {
	handler Handler
	api     API
}

// New returns a Bot delivering events to h.
func New(h Handler) *Bot {
	return &Bot{handler: h}
}

// Attach sets the client replies are sent with. It must be called before
// updates are served; without it the bot of the update is used.
func (b *Bot) Attach(api API) {
	b.api = api
}

// Registry builds the command and callback registry.
func (b *Bot) Registry() (*tg.Registry, error) {
	reg := tg.NewRegistry()
	for _, cmd := range commandSet {
		err := reg.RegisterCommand("/"+cmd.name, commands.Command{
			Handler:     b.onMessage,
			Description: cmd.description,
			AdminOnly:   cmd.adminOnly,
			Aliases:     cmd.aliases,
		})
		if err != nil {
			return nil, err
		}
	}
	for _, key := range []string{dispatch.ActionCancel, moderation.ActionApprove, moderation.ActionReject} {
		if err := reg.RegisterCallback(key, b.onCallback); err != nil {
			return nil, err
		}
	}
	reg.SetCallbackNotFound(b.onCallback)
	return reg, nil
}

// Routes binds commands, text, photos, documents and callbacks.
func (b *Bot) Routes(reg *tg.Registry) []tg.Route {
	routes := router.CommandRoutes(reg)
	routes = append(routes, router.TextRoutes(reg, router.TextOptions{
		OnText:     b.onMessage,
		OnPhoto:    b.onPhoto,
		OnDocument: b.onDocument,
	})...)
	return append(routes, router.CallbackRoute(reg, router.CallbackOptions{}))
}

// onMessage handles commands and free text alike; the dispatcher tells
// them apart.
func (b *Bot) onMessage(c tele.Context) error {
	return b.dispatch(c, dispatch.Classify(c.Text(), senderOf(c)))
}

func (b *Bot) onPhoto(c tele.Context) error {
	msg := c.Message()
	if msg == nil || msg.Photo == nil {
		return nil
	}
	return b.dispatch(c, dispatch.Image{Ref: msg.Photo.FileID, ContentType: "image/jpeg", From: senderOf(c)})
}

func (b *Bot) onDocument(c tele.Context) error {
	msg := c.Message()
	if msg == nil || msg.Document == nil {
		return nil
	}
	doc := msg.Document
	if !strings.HasPrefix(strings.ToLower(doc.MIME), "image/") {
		return b.deliver(c, []outbound.Message{outbound.Text(senderOf(c).ChatID, TextNotAnImage)})
	}
	return b.dispatch(c, dispatch.Image{Ref: doc.FileID, ContentType: doc.MIME, From: senderOf(c)})
}

func (b *Bot) onCallback(c tele.Context) error {
	return b.dispatch(c, dispatch.CallbackAction{
		ActionID: callbacks.CallbackKey(c),
		Payload:  callbacks.CallbackPayload(c),
		From:     senderOf(c),
	})
}

func (b *Bot) dispatch(c tele.Context, ev dispatch.Event) error {
	if ev.Origin().ChatID == 0 {
		return nil
	}
	return b.deliver(c, b.handler.Handle(tghelpers.BuildContext(c), ev))
}

// deliver queues the batch as one job per recipient so a retry resumes at
// the first unsent message and recipients keep their own order.
func (b *Bot) deliver(c tele.Context, batch []outbound.Message) error {
	api := b.api
	if api == nil {
		api = c.Bot()
	}
	var firstErr error
	for _, group := range groupByChat(batch) {
		for _, m := range group {
			middleware.CountMessage(c, Markup(m) != nil)
		}
		chatID := group[0].ChatID
		sent := 0
		err := tghelpers.DeliverTo(c, chatID, "send.batch", "sendMessage", func() error {
			for sent < len(group) {
				m := group[sent]
				var opts []any
				if markup := Markup(m); markup != nil {
					opts = append(opts, markup)
				}
				if _, err := api.Send(tele.ChatID(m.ChatID), m.Text, opts...); err != nil {
					return err
				}
				sent++
			}
			return nil
		})
		if err != nil {
			logger.TG.LogAttrs(tghelpers.BuildContext(c), slog.LevelWarn, "delivery failed",
				slog.String("event", "send.batch.fail"),
				slog.Int64("to", chatID),
				slog.String("err", err.Error()),
			)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// groupByChat splits a batch per recipient, keeping first-seen order.
func groupByChat(batch []outbound.Message) [][]outbound.Message {
	index := make(map[int64]int)
	var groups [][]outbound.Message
	for _, m := range batch {
		if m.ChatID == 0 || m.Text == "" {
			continue
		}
		i, ok := index[m.ChatID]
		if !ok {
			i = len(groups)
			index[m.ChatID] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], m)
	}
	return groups
}

// Markup renders the keyboard of m, or nil when it has none.
func Markup(m outbound.Message) *tele.ReplyMarkup {
	switch {
	case m.RemoveKeyboard:
		return keyboard.RemoveKeyboard()
	case len(m.Options) > 0:
		return keyboard.ReplyButtons(keyboard.Chunk(m.Options, optionsPerRow)...)
	case len(m.Actions) > 0:
		rows := make([][]keyboard.InlineBtn, 0, len(m.Actions))
		for _, row := range m.Actions {
			btns := make([]keyboard.InlineBtn, 0, len(row))
			for _, a := range row {
				btns = append(btns, keyboard.InlineBtn{Text: a.Label, Unique: a.ID, Data: a.Payload})
			}
			rows = append(rows, btns)
		}
		return keyboard.InlineButtonsRows(rows...)
	}
	return nil
}

func senderOf(c tele.Context) dispatch.Sender {
	var s dispatch.Sender
	if chat := c.Chat(); chat != nil {
		s.ChatID = chat.ID
	}
	if u := c.Sender(); u != nil {
		if s.ChatID == 0 {
			s.ChatID = u.ID
		}
		s.Username = u.Username
		s.FirstName = u.FirstName
	}
	return s
}
