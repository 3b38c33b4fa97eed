package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ileafrica/ilebot/core/logger"
)

const userColumns = `chat_id, username, first_name, is_banned, is_admin, last_submission_at, created_at`

// PostgresRepository stores users in the users table.
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository wraps an open pool.
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) FindByChatID(ctx context.Context, chatID int64) (User, error) {
	var u User
	err := r.db.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE chat_id = $1`, chatID)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("select user: %w", err)
	}
	return u, nil
}

type createdRow struct {
	User
	Inserted bool `db:"inserted"`
}

func (r *PostgresRepository) Create(ctx context.Context, chatID int64, d Defaults) (User, error) {
	// The no-op update makes RETURNING yield the existing row on conflict;
	// xmax is 0 only for a freshly inserted tuple.
	var row createdRow
	err := r.db.GetContext(ctx, &row, `
		INSERT INTO users (chat_id, username, first_name, is_admin)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (chat_id) DO UPDATE SET chat_id = EXCLUDED.chat_id
		RETURNING `+userColumns+`, (xmax = 0) AS inserted`,
		chatID, d.Username, d.FirstName, d.IsAdmin)
	if err != nil {
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	if row.Inserted {
		logger.SVCUsers.LogAttrs(ctx, slog.LevelInfo, "user created",
			slog.String("event", "users.create"),
			slog.Int64("chat_id", chatID),
			slog.Bool("is_admin", row.IsAdmin),
		)
	}
	return row.User, nil
}

func (r *PostgresRepository) UpdateLastSubmission(ctx context.Context, chatID int64, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET last_submission_at = $2 WHERE chat_id = $1`, chatID, at.UTC())
	if err != nil {
		return fmt.Errorf("update last submission: %w", err)
	}
	return expectRow(res)
}

func (r *PostgresRepository) SetBanned(ctx context.Context, chatID int64, banned bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET is_banned = $2 WHERE chat_id = $1`, chatID, banned)
	if err != nil {
		return fmt.Errorf("update ban flag: %w", err)
	}
	return expectRow(res)
}

func (r *PostgresRepository) EnsureAdmin(ctx context.Context, chatID int64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (chat_id, is_admin) VALUES ($1, TRUE)
		ON CONFLICT (chat_id) DO UPDATE SET is_admin = TRUE`, chatID)
	if err != nil {
		return fmt.Errorf("ensure admin: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListAdmins(ctx context.Context) ([]User, error) {
	var out []User
	if err := r.db.SelectContext(ctx, &out, `SELECT `+userColumns+` FROM users WHERE is_admin ORDER BY chat_id`); err != nil {
		return nil, fmt.Errorf("select admins: %w", err)
	}
	return out, nil
}

func expectRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
