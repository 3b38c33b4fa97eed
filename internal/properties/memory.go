package properties

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// MemoryRepository keeps properties in process memory for the "memory"
// storage driver.
type MemoryRepository struct {
	mu    sync.RWMutex
	items map[uuid.UUID]Property
}

// NewMemoryRepository returns an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{items: make(map[uuid.UUID]Property)}
}

func (r *MemoryRepository) Create(_ context.Context, p Property) (Property, error) {
	p = prepare(p)
	p.Images = append([]string(nil), p.Images...)
	r.mu.Lock()
	r.items[p.ID] = p
	r.mu.Unlock()
	return p, nil
}

func (r *MemoryRepository) Get(_ context.Context, id uuid.UUID) (Property, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.items[id]
	if !ok {
		return Property{}, ErrNotFound
	}
	return p, nil
}

func (r *MemoryRepository) ListByStatus(_ context.Context, status Status) ([]Property, error) {
	return r.filter(func(p Property) bool { return p.Status == status }, true), nil
}

func (r *MemoryRepository) ListByOwner(_ context.Context, ownerID int64) ([]Property, error) {
	return r.filter(func(p Property) bool { return p.OwnerID == ownerID }, false), nil
}

func (r *MemoryRepository) ListAll(_ context.Context) ([]Property, error) {
	return r.filter(func(Property) bool { return true }, false), nil
}

func (r *MemoryRepository) UpdateStatus(_ context.Context, id uuid.UUID, rev Review) (Property, error) {
	if err := validReview(rev); err != nil {
		return Property{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.items[id]
	if !ok {
		return Property{}, ErrNotFound
	}
	if p.Status != StatusPending {
		return Property{}, ErrStatusFinal
	}
	by, at := rev.ReviewedBy, rev.ReviewedAt.UTC()
	p.Status = rev.Status
	p.ReviewedBy = &by
	p.ReviewedAt = &at
	r.items[id] = p
	return p, nil
}

func (r *MemoryRepository) filter(keep func(Property) bool, oldestFirst bool) []Property {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Property, 0)
	for _, p := range r.items {
		if keep(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if oldestFirst {
			return out[i].SubmittedAt.Before(out[j].SubmittedAt)
		}
		return out[i].SubmittedAt.After(out[j].SubmittedAt)
	})
	return out
}
