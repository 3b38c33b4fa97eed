package users

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/supabase-community/postgrest-go"
	"github.com/supabase-community/supabase-go"

	"github.com/ileafrica/ilebot/core/logger"
)

const usersTable = "users"

// SupabaseRepository stores users through the Supabase REST API.
type SupabaseRepository struct {
	client *supabase.Client
}

// NewSupabaseRepository uses an already configured client.
func NewSupabaseRepository(client *supabase.Client) *SupabaseRepository {
	return &SupabaseRepository{client: client}
}

// insertRow leaves created_at to the database default.
type insertRow struct {
	ChatID    int64  `json:"chat_id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	IsAdmin   bool   `json:"is_admin"`
}

func (r *SupabaseRepository) FindByChatID(ctx context.Context, chatID int64) (User, error) {
	var rows []User
	_, err := r.client.From(usersTable).
		Select("*", "", false).
		Eq("chat_id", strconv.FormatInt(chatID, 10)).
		Limit(1, "").
		ExecuteTo(&rows)
	if err != nil {
		return User{}, fmt.Errorf("select user: %w", err)
	}
	if len(rows) == 0 {
		return User{}, ErrNotFound
	}
	return rows[0], nil
}

func (r *SupabaseRepository) Create(ctx context.Context, chatID int64, d Defaults) (User, error) {
	var rows []User
	_, err := r.client.From(usersTable).
		Insert(insertRow{ChatID: chatID, Username: d.Username, FirstName: d.FirstName, IsAdmin: d.IsAdmin}, false, "", "representation", "").
		ExecuteTo(&rows)
	if err != nil {
		// A concurrent first contact may have inserted the row already.
		if u, findErr := r.FindByChatID(ctx, chatID); findErr == nil {
			return u, nil
		}
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	if len(rows) == 0 {
		return r.FindByChatID(ctx, chatID)
	}
	logger.SVCUsers.LogAttrs(ctx, slog.LevelInfo, "user created",
		slog.String("event", "users.create"),
		slog.Int64("chat_id", chatID),
		slog.Bool("is_admin", rows[0].IsAdmin),
	)
	return rows[0], nil
}

func (r *SupabaseRepository) UpdateLastSubmission(ctx context.Context, chatID int64, at time.Time) error {
	return r.update(chatID, map[string]any{"last_submission_at": at.UTC().Format(time.RFC3339Nano)})
}

func (r *SupabaseRepository) SetBanned(ctx context.Context, chatID int64, banned bool) error {
	return r.update(chatID, map[string]any{"is_banned": banned})
}

func (r *SupabaseRepository) update(chatID int64, values map[string]any) error {
	var rows []User
	_, err := r.client.From(usersTable).
		Update(values, "representation", "").
		Eq("chat_id", strconv.FormatInt(chatID, 10)).
		ExecuteTo(&rows)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if len(rows) == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SupabaseRepository) EnsureAdmin(ctx context.Context, chatID int64) error {
	row := map[string]any{"chat_id": chatID, "is_admin": true}
	if _, _, err := r.client.From(usersTable).Upsert(row, "chat_id", "minimal", "").Execute(); err != nil {
		return fmt.Errorf("ensure admin: %w", err)
	}
	return nil
}

func (r *SupabaseRepository) ListAdmins(ctx context.Context) ([]User, error) {
	var rows []User
	_, err := r.client.From(usersTable).
		Select("*", "", false).
		Eq("is_admin", "true").
		Order("chat_id", &postgrest.OrderOpts{Ascending: true}).
		ExecuteTo(&rows)
	if err != nil {
		return nil, fmt.Errorf("select admins: %w", err)
	}
	return rows, nil
}
