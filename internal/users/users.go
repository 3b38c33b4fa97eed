// Package users is the user directory: chat identities with their ban and
// admin flags and the time of their last property submission.
package users

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when no user exists for a chat ID.
var ErrNotFound = errors.New("users: not found")

// User is one directory entry keyed by Telegram chat ID.
type User struct {
	ChatID           int64      `db:"chat_id" json:"chat_id"`
	Username         string     `db:"username" json:"username"`
	FirstName        string     `db:"first_name" json:"first_name"`
	IsBanned         bool       `db:"is_banned" json:"is_banned"`
	IsAdmin          bool       `db:"is_admin" json:"is_admin"`
	LastSubmissionAt *time.Time `db:"last_submission_at" json:"last_submission_at"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
}

// Defaults are applied when a chat is seen for the first time.
type Defaults struct {
	Username  string
	FirstName string
	IsAdmin   bool
}

// Repository is the user directory contract.
type Repository interface {
	FindByChatID(ctx context.Context, chatID int64) (User, error)
	// Create inserts the user unless it already exists and returns the stored row.
	Create(ctx context.Context, chatID int64, d Defaults) (User, error)
	UpdateLastSubmission(ctx context.Context, chatID int64, at time.Time) error
	// SetBanned returns ErrNotFound for unknown chat IDs.
	SetBanned(ctx context.Context, chatID int64, banned bool) error
	// EnsureAdmin creates or promotes the user to admin.
	EnsureAdmin(ctx context.Context, chatID int64) error
	ListAdmins(ctx context.Context) ([]User, error)
}

// Provision returns the stored user, creating it with d on first contact.
func Provision(ctx context.Context, repo Repository, chatID int64, d Defaults) (User, error) {
	u, err := repo.FindByChatID(ctx, chatID)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return User{}, fmt.Errorf("find user %d: %w", chatID, err)
	}
	u, err = repo.Create(ctx, chatID, d)
	if err != nil {
		return User{}, fmt.Errorf("create user %d: %w", chatID, err)
	}
	return u, nil
}
