// Package dispatch routes inbound events to the submission flow and the
// moderation service, one event at a time per owner.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/ileafrica/ilebot/core/logger"
	"github.com/ileafrica/ilebot/core/telegram/state"
	"github.com/ileafrica/ilebot/internal/moderation"
	"github.com/ileafrica/ilebot/internal/outbound"
	"github.com/ileafrica/ilebot/internal/submission"
	"github.com/ileafrica/ilebot/internal/users"
)

// Command names.
const (
	CmdStart         = "start"
	CmdHelp          = "help"
	CmdAddProperty   = "add_property"
	CmdDone          = "done"
	CmdCancel        = "cancel"
	CmdMyProperties  = "my_properties"
	CmdPending       = "pending"
	CmdAllProperties = "all_properties"
	CmdBan           = "ban"
	CmdUnban         = "unban"
)

// ActionCancel is the inline cancel button of the submission prompts.
const ActionCancel = "submission.cancel"

// Replies not owned by the flow or the moderation service.
const (
	TextGenericError  = "An error occurred. Please try again."
	TextUnknown       = "Unknown command. Send /help to see what I can do."
	TextUnknownAction = "This button is no longer supported."
)

// resetCommands silently drop an in-flight draft before running.
var resetCommands = map[string]struct{}{
	CmdStart:         {},
	CmdHelp:          {},
	CmdMyProperties:  {},
	CmdPending:       {},
	CmdAllProperties: {},
	CmdBan:           {},
	CmdUnban:         {},
}

// ResetsDraft reports whether the command clears the draft before running.
func ResetsDraft(name string) bool {
	_, ok := resetCommands[name]
	return ok
}

// Options configures a Dispatcher.
type Options struct {
	// Admins are provisioned with the admin flag on first contact.
	Admins []int64
}

// Dispatcher handles events. Events of one owner are processed one at a
// time; different owners run concurrently.
type Dispatcher struct {
	flow   *submission.Flow
	mod    *moderation.Service
	users  users.Repository
	locks  *state.KeyLocks
	admins map[int64]struct{}
}

// New wires a dispatcher.
func New(flow *submission.Flow, mod *moderation.Service, u users.Repository, opts Options) *Dispatcher {
	admins := make(map[int64]struct{}, len(opts.Admins))
	for _, id := range opts.Admins {
		admins[id] = struct{}{}
	}
	return &Dispatcher{flow: flow, mod: mod, users: u, locks: state.NewKeyLocks(), admins: admins}
}

// Handle processes ev and returns the messages to send, in order. Errors
// and panics are logged and answered with a generic message.
func (d *Dispatcher) Handle(ctx context.Context, ev Event) (out []outbound.Message) {
	from := ev.Origin()
	unlock := d.locks.Lock(from.ChatID)
	defer unlock()

	defer func() {
		if r := recover(); r != nil {
			logger.SVCSubmission.LogAttrs(ctx, slog.LevelError, "dispatch panic",
				slog.String("event", "dispatch.panic"),
				slog.String("kind", kindOf(ev)),
				slog.Any("err", r),
				slog.String("stack", string(debug.Stack())),
			)
			out = []outbound.Message{outbound.Text(from.ChatID, TextGenericError)}
		}
	}()

	out, err := d.route(ctx, ev)
	if err != nil {
		logger.SVCSubmission.LogAttrs(ctx, slog.LevelError, "dispatch failed",
			slog.String("event", "dispatch.error"),
			slog.String("kind", kindOf(ev)),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
		return []outbound.Message{outbound.Text(from.ChatID, TextGenericError)}
	}
	return out
}

func (d *Dispatcher) route(ctx context.Context, ev Event) ([]outbound.Message, error) {
	from := ev.Origin()
	_, isAdmin := d.admins[from.ChatID]
	// Loaded per event so ban and admin changes apply immediately.
	u, err := users.Provision(ctx, d.users, from.ChatID, users.Defaults{
		Username:  from.Username,
		FirstName: from.FirstName,
		IsAdmin:   isAdmin,
	})
	if err != nil {
		return nil, err
	}

	switch e := ev.(type) {
	case Command:
		return d.command(ctx, u, e)
	case Text:
		return flowReply(u.ChatID)(d.flow.HandleText(ctx, u.ChatID, e.Body))
	case Image:
		return flowReply(u.ChatID)(d.flow.HandleImage(ctx, u.ChatID, e.Ref, e.ContentType))
	case CallbackAction:
		return d.callback(ctx, u, e)
	default:
		return nil, fmt.Errorf("dispatch: unhandled event %T", ev)
	}
}

func (d *Dispatcher) command(ctx context.Context, u users.User, c Command) ([]outbound.Message, error) {
	if ResetsDraft(c.Name) {
		if _, err := d.flow.Reset(ctx, u.ChatID); err != nil {
			return nil, err
		}
	}

	switch c.Name {
	case CmdStart:
		return []outbound.Message{{ChatID: u.ChatID, Text: welcomeText(u), RemoveKeyboard: true}}, nil
	case CmdHelp:
		return []outbound.Message{{ChatID: u.ChatID, Text: helpText(u), RemoveKeyboard: true}}, nil
	case CmdAddProperty:
		return flowReply(u.ChatID)(d.flow.Begin(ctx, u))
	case CmdDone:
		return d.done(ctx, u)
	case CmdCancel:
		return flowReply(u.ChatID)(d.flow.Cancel(ctx, u.ChatID))
	case CmdMyProperties:
		return d.mod.Owned(ctx, u)
	case CmdPending:
		return d.mod.Pending(ctx, u)
	case CmdAllProperties:
		return d.mod.All(ctx, u)
	case CmdBan:
		return d.mod.SetBanned(ctx, u, c.Args, true)
	case CmdUnban:
		return d.mod.SetBanned(ctx, u, c.Args, false)
	default:
		return []outbound.Message{outbound.Text(u.ChatID, TextUnknown)}, nil
	}
}

func (d *Dispatcher) done(ctx context.Context, u users.User) ([]outbound.Message, error) {
	res, err := d.flow.Done(ctx, u.ChatID)
	if err != nil {
		return nil, err
	}
	out := []outbound.Message{render(u.ChatID, res.Reply)}
	if res.Property != nil {
		out = append(out, d.mod.NotifyAdmins(ctx, *res.Property)...)
	}
	return out, nil
}

func (d *Dispatcher) callback(ctx context.Context, u users.User, a CallbackAction) ([]outbound.Message, error) {
	switch a.ActionID {
	case ActionCancel:
		return flowReply(u.ChatID)(d.flow.Cancel(ctx, u.ChatID))
	case moderation.ActionApprove, moderation.ActionReject:
		return d.mod.Decide(ctx, u, a.ActionID, a.Payload)
	default:
		return []outbound.Message{outbound.Text(u.ChatID, TextUnknownAction)}, nil
	}
}

func flowReply(chatID int64) func(submission.Result, error) ([]outbound.Message, error) {
	return func(res submission.Result, err error) ([]outbound.Message, error) {
		if err != nil {
			return nil, err
		}
		return []outbound.Message{render(chatID, res.Reply)}, nil
	}
}

// render applies the markup precedence of outbound.Message.
func render(chatID int64, r submission.Reply) outbound.Message {
	m := outbound.Message{ChatID: chatID, Text: r.Text}
	switch {
	case r.RemoveKeyboard:
		m.RemoveKeyboard = true
	case len(r.Options) > 0:
		m.Options = r.Options
	case r.Cancel:
		m.Actions = [][]outbound.Action{{{ID: ActionCancel, Label: "Cancel"}}}
	}
	return m
}

func kindOf(ev Event) string {
	switch e := ev.(type) {
	case Command:
		return "command." + e.Name
	case Text:
		return "text"
	case Image:
		return "image"
	case CallbackAction:
		return "callback." + e.ActionID
	default:
		return "unknown"
	}
}
