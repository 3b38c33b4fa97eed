// Package properties is the property repository: listings submitted
// through the bot and their moderation status.
package properties

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when no property has the requested ID.
	ErrNotFound = errors.New("properties: not found")
	// ErrStatusFinal is returned when a status change targets a property
	// that was already approved or rejected.
	ErrStatusFinal = errors.New("properties: status already final")
)

// Status is the moderation state. It only moves pending -> approved|rejected.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Final reports whether no further status change is allowed.
func (s Status) Final() bool {
	return s == StatusApproved || s == StatusRejected
}

// ParseStatus accepts the three status literals case-insensitively.
func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusPending, StatusApproved, StatusRejected:
		return st, nil
	}
	return "", fmt.Errorf("unknown property status %q", s)
}

// Type is one of the four property kinds accepted at submission.
type Type string

const (
	TypeHouse      Type = "House"
	TypeApartment  Type = "Apartment"
	TypeLand       Type = "Land"
	TypeCommercial Type = "Commercial"
)

// Types lists the accepted kinds in prompt order.
var Types = []Type{TypeHouse, TypeApartment, TypeLand, TypeCommercial}

// ParseType matches s against Types ignoring case and surrounding space.
func ParseType(s string) (Type, bool) {
	s = strings.TrimSpace(s)
	for _, t := range Types {
		if strings.EqualFold(string(t), s) {
			return t, true
		}
	}
	return "", false
}

// TokenUnit is the price of one token.
const TokenUnit = 1500

// MaxPrice is the largest accepted price.
const MaxPrice = 1e15

// Tokens returns floor(price / TokenUnit). Prices outside (0, MaxPrice] yield 0.
func Tokens(price float64) int64 {
	if !(price > 0) || price > MaxPrice {
		return 0
	}
	return int64(price / TokenUnit)
}

// Property is one persisted listing.
type Property struct {
	ID          uuid.UUID  `json:"id"`
	OwnerID     int64      `json:"owner_id"`
	Name        string     `json:"name"`
	Location    string     `json:"location"`
	Price       float64    `json:"price"`
	Tokens      int64      `json:"tokens"`
	Type        Type       `json:"type"`
	Description string     `json:"description"`
	Images      []string   `json:"images"`
	SubmittedAt time.Time  `json:"submitted_at"`
	Status      Status     `json:"status"`
	ReviewedBy  *int64     `json:"reviewed_by"`
	ReviewedAt  *time.Time `json:"reviewed_at"`
}

// Review records a moderation decision.
type Review struct {
	Status     Status
	ReviewedBy int64
	ReviewedAt time.Time
}

// Repository is the property store contract.
type Repository interface {
	// Create stores p with status pending, assigning an ID when p has none.
	Create(ctx context.Context, p Property) (Property, error)
	Get(ctx context.Context, id uuid.UUID) (Property, error)
	ListByStatus(ctx context.Context, status Status) ([]Property, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]Property, error)
	ListAll(ctx context.Context) ([]Property, error)
	// UpdateStatus applies r to a pending property. It returns ErrNotFound
	// for unknown IDs and ErrStatusFinal when the property left pending.
	UpdateStatus(ctx context.Context, id uuid.UUID, r Review) (Property, error)
}

func prepare(p Property) Property {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.Status = StatusPending
	p.ReviewedBy = nil
	p.ReviewedAt = nil
	p.SubmittedAt = p.SubmittedAt.UTC()
	if p.Images == nil {
		p.Images = []string{}
	}
	return p
}

func validReview(r Review) error {
	if !r.Status.Final() {
		return fmt.Errorf("properties: invalid review status %q", r.Status)
	}
	return nil
}
