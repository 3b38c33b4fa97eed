package state

import "context"

// Store holds at most one value of type T per chat ID.
type Store[T any] interface {
	// Get returns the stored value and whether one exists.
	Get(ctx context.Context, chatID int64) (T, bool, error)
	// Set overwrites any existing value unconditionally.
	Set(ctx context.Context, chatID int64, value T) error
	// Clear removes the value; it is a no-op when nothing is stored.
	Clear(ctx context.Context, chatID int64) error
}

const (
	// BackendMemory keeps state in process memory; it is lost on restart.
	BackendMemory = "memory"
	// BackendRedis keeps state in Redis as JSON documents.
	BackendRedis = "redis"
)
