// Package moderation holds the admin operations on submitted properties
// and users, and the owner listing.
package moderation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ileafrica/ilebot/core/logger"
	"github.com/ileafrica/ilebot/core/metrics"
	"github.com/ileafrica/ilebot/internal/outbound"
	"github.com/ileafrica/ilebot/internal/properties"
	"github.com/ileafrica/ilebot/internal/users"
)

// Callback action IDs of the review buttons.
const (
	ActionApprove = "approve"
	ActionReject  = "reject"
)

// Replies shared with callers and tests.
const (
	TextNotAdmin     = "You are not authorized to use this command."
	TextNoPending    = "No pending properties."
	TextNoProperties = "No properties yet."
	TextNoOwned      = "You have not submitted any properties yet."
	TextAlreadyFinal = "This property was already reviewed."
	TextNotFound     = "Property not found."
	TextBadReference = "Invalid property reference."
	TextBanUsage     = "Usage: /ban <chat id>"
	TextUnbanUsage   = "Usage: /unban <chat id>"
	TextUserNotFound = "User not found."
	TextSelfBan      = "You cannot ban yourself."
	defaultListLimit = 20
)

// Service runs moderation commands. Every call receives the acting user
// as freshly loaded from the directory.
type Service struct {
	users     users.Repository
	props     properties.Repository
	listLimit int
	now       func() time.Time
}

// NewService wires the moderation service. listLimit caps listed properties;
// zero means 20.
func NewService(u users.Repository, p properties.Repository, listLimit int) *Service {
	if listLimit <= 0 {
		listLimit = defaultListLimit
	}
	return &Service{users: u, props: p, listLimit: listLimit, now: time.Now}
}

// Pending sends each pending property to the admin with review buttons.
func (s *Service) Pending(ctx context.Context, actor users.User) ([]outbound.Message, error) {
	if !actor.IsAdmin {
		return deny(actor), nil
	}
	list, err := s.props.ListByStatus(ctx, properties.StatusPending)
	if err != nil {
		return nil, fmt.Errorf("list pending: %w", err)
	}
	if len(list) == 0 {
		return []outbound.Message{outbound.Text(actor.ChatID, TextNoPending)}, nil
	}

	out := make([]outbound.Message, 0, min(len(list), s.listLimit)+1)
	for _, p := range list[:min(len(list), s.listLimit)] {
		out = append(out, reviewMessage(actor.ChatID, p))
	}
	if len(list) > s.listLimit {
		out = append(out, outbound.Text(actor.ChatID,
			fmt.Sprintf("Showing %d of %d pending properties.", s.listLimit, len(list))))
	}
	return out, nil
}

// All lists every property with its status. Long listings are split over
// several messages.
func (s *Service) All(ctx context.Context, actor users.User) ([]outbound.Message, error) {
	if !actor.IsAdmin {
		return deny(actor), nil
	}
	list, err := s.props.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list properties: %w", err)
	}
	return texts(actor.ChatID, s.listing("All properties", list, TextNoProperties)), nil
}

// Owned lists the actor's own submissions. It is open to every user.
func (s *Service) Owned(ctx context.Context, actor users.User) ([]outbound.Message, error) {
	list, err := s.props.ListByOwner(ctx, actor.ChatID)
	if err != nil {
		return nil, fmt.Errorf("list owned: %w", err)
	}
	return texts(actor.ChatID, s.listing("Your properties", list, TextNoOwned)), nil
}

// Decide applies an approve or reject button press and notifies the owner.
func (s *Service) Decide(ctx context.Context, actor users.User, action, payload string) ([]outbound.Message, error) {
	if !actor.IsAdmin {
		return deny(actor), nil
	}
	var status properties.Status
	switch action {
	case ActionApprove:
		status = properties.StatusApproved
	case ActionReject:
		status = properties.StatusRejected
	default:
		return nil, fmt.Errorf("unknown moderation action %q", action)
	}
	id, err := uuid.Parse(strings.TrimSpace(payload))
	if err != nil {
		return []outbound.Message{outbound.Text(actor.ChatID, TextBadReference)}, nil
	}

	p, err := s.props.UpdateStatus(ctx, id, properties.Review{
		Status:     status,
		ReviewedBy: actor.ChatID,
		ReviewedAt: s.now(),
	})
	switch {
	case errors.Is(err, properties.ErrStatusFinal):
		return []outbound.Message{outbound.Text(actor.ChatID, TextAlreadyFinal)}, nil
	case errors.Is(err, properties.ErrNotFound):
		return []outbound.Message{outbound.Text(actor.ChatID, TextNotFound)}, nil
	case err != nil:
		return nil, fmt.Errorf("update status: %w", err)
	}

	metrics.RecordModeration(string(status))
	logger.SVCModeration.LogAttrs(ctx, slog.LevelInfo, "property reviewed",
		slog.String("event", "moderation.decide"),
		slog.String("property_id", p.ID.String()),
		slog.String("decision", string(status)),
		slog.Int64("admin_id", actor.ChatID),
	)
	return []outbound.Message{
		outbound.Text(actor.ChatID, fmt.Sprintf("Property %q %s.", p.Name, status)),
		outbound.Text(p.OwnerID, fmt.Sprintf("Your property %q has been %s.", p.Name, status)),
	}, nil
}

// SetBanned handles /ban and /unban. args must hold the target chat ID.
func (s *Service) SetBanned(ctx context.Context, actor users.User, args string, banned bool) ([]outbound.Message, error) {
	if !actor.IsAdmin {
		return deny(actor), nil
	}
	usage := TextUnbanUsage
	if banned {
		usage = TextBanUsage
	}
	fields := strings.Fields(args)
	if len(fields) != 1 {
		return []outbound.Message{outbound.Text(actor.ChatID, usage)}, nil
	}
	target, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil || target == 0 {
		return []outbound.Message{outbound.Text(actor.ChatID, usage)}, nil
	}
	if banned && target == actor.ChatID {
		return []outbound.Message{outbound.Text(actor.ChatID, TextSelfBan)}, nil
	}

	if err := s.users.SetBanned(ctx, target, banned); err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return []outbound.Message{outbound.Text(actor.ChatID, TextUserNotFound)}, nil
		}
		return nil, fmt.Errorf("set banned: %w", err)
	}

	verb := "unbanned"
	if banned {
		verb = "banned"
	}
	logger.SVCModeration.LogAttrs(ctx, slog.LevelInfo, "user "+verb,
		slog.String("event", "moderation.ban"),
		slog.Int64("target_id", target),
		slog.Bool("banned", banned),
		slog.Int64("admin_id", actor.ChatID),
	)
	return []outbound.Message{outbound.Text(actor.ChatID, fmt.Sprintf("User %d %s.", target, verb))}, nil
}

// NotifyAdmins announces a new submission to every admin. Lookup failures
// are logged and yield no messages.
func (s *Service) NotifyAdmins(ctx context.Context, p properties.Property) []outbound.Message {
	admins, err := s.users.ListAdmins(ctx)
	if err != nil {
		logger.SVCModeration.LogAttrs(ctx, slog.LevelWarn, "admin lookup failed",
			slog.String("event", "moderation.notify"),
			slog.String("property_id", p.ID.String()),
			slog.String("err", err.Error()),
		)
		return nil
	}
	out := make([]outbound.Message, 0, len(admins))
	for _, a := range admins {
		m := reviewMessage(a.ChatID, p)
		m.Text = "New property submitted for review:\n\n" + m.Text
		out = append(out, m)
	}
	return out
}

func texts(chatID int64, bodies []string) []outbound.Message {
	out := make([]outbound.Message, 0, len(bodies))
	for _, body := range bodies {
		out = append(out, outbound.Text(chatID, body))
	}
	return out
}

func deny(actor users.User) []outbound.Message {
	return []outbound.Message{outbound.Text(actor.ChatID, TextNotAdmin)}
}

func reviewMessage(chatID int64, p properties.Property) outbound.Message {
	id := p.ID.String()
	return outbound.Message{
		ChatID: chatID,
		Text:   Summary(p),
		Actions: [][]outbound.Action{{
			{ID: ActionApprove, Payload: id, Label: "Approve"},
			{ID: ActionReject, Payload: id, Label: "Reject"},
		}},
	}
}
