package users

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepository keeps users in process memory. It backs the "memory"
// storage driver used for local runs without a database.
type MemoryRepository struct {
	mu    sync.RWMutex
	now   func() time.Time
	users map[int64]User
}

// NewMemoryRepository returns an empty directory.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{now: time.Now, users: make(map[int64]User)}
}

func (r *MemoryRepository) FindByChatID(_ context.Context, chatID int64) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[chatID]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (r *MemoryRepository) Create(_ context.Context, chatID int64, d Defaults) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[chatID]; ok {
		return u, nil
	}
	u := User{
		ChatID:    chatID,
		Username:  d.Username,
		FirstName: d.FirstName,
		IsAdmin:   d.IsAdmin,
		CreatedAt: r.now().UTC(),
	}
	r.users[chatID] = u
	return u, nil
}

func (r *MemoryRepository) UpdateLastSubmission(_ context.Context, chatID int64, at time.Time) error {
	return r.mutate(chatID, func(u *User) {
		t := at.UTC()
		u.LastSubmissionAt = &t
	})
}

func (r *MemoryRepository) SetBanned(_ context.Context, chatID int64, banned bool) error {
	return r.mutate(chatID, func(u *User) { u.IsBanned = banned })
}

func (r *MemoryRepository) EnsureAdmin(_ context.Context, chatID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[chatID]
	if !ok {
		u = User{ChatID: chatID, CreatedAt: r.now().UTC()}
	}
	u.IsAdmin = true
	r.users[chatID] = u
	return nil
}

func (r *MemoryRepository) ListAdmins(_ context.Context) ([]User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []User
	for _, u := range r.users {
		if u.IsAdmin {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChatID < out[j].ChatID })
	return out, nil
}

func (r *MemoryRepository) mutate(chatID int64, fn func(*User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[chatID]
	if !ok {
		return ErrNotFound
	}
	fn(&u)
	r.users[chatID] = u
	return nil
}
