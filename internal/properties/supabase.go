package properties

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/google/uuid"
	"github.com/supabase-community/postgrest-go"
	"github.com/supabase-community/supabase-go"

	"github.com/ileafrica/ilebot/core/logger"
)

const propertiesTable = "properties"

// SupabaseRepository stores properties through the Supabase REST API.
type SupabaseRepository struct {
	client *supabase.Client
}

// NewSupabaseRepository uses an already configured client.
func NewSupabaseRepository(client *supabase.Client) *SupabaseRepository {
	return &SupabaseRepository{client: client}
}

func (r *SupabaseRepository) Create(ctx context.Context, p Property) (Property, error) {
	p = prepare(p)
	if _, _, err := r.client.From(propertiesTable).Insert(p, false, "", "minimal", "").Execute(); err != nil {
		return Property{}, fmt.Errorf("insert property: %w", err)
	}
	logger.SVCProperties.LogAttrs(ctx, slog.LevelInfo, "property created",
		slog.String("event", "properties.create"),
		slog.String("property_id", p.ID.String()),
		slog.Int64("owner_id", p.OwnerID),
		slog.Int("images", len(p.Images)),
	)
	return p, nil
}

func (r *SupabaseRepository) Get(ctx context.Context, id uuid.UUID) (Property, error) {
	var rows []Property
	_, err := r.client.From(propertiesTable).
		Select("*", "", false).
		Eq("id", id.String()).
		Limit(1, "").
		ExecuteTo(&rows)
	if err != nil {
		return Property{}, fmt.Errorf("select property: %w", err)
	}
	if len(rows) == 0 {
		return Property{}, ErrNotFound
	}
	return rows[0], nil
}

func (r *SupabaseRepository) ListByStatus(ctx context.Context, status Status) ([]Property, error) {
	var rows []Property
	_, err := r.client.From(propertiesTable).
		Select("*", "", false).
		Eq("status", string(status)).
		Order("submitted_at", &postgrest.OrderOpts{Ascending: true}).
		ExecuteTo(&rows)
	if err != nil {
		return nil, fmt.Errorf("select properties: %w", err)
	}
	return rows, nil
}

func (r *SupabaseRepository) ListByOwner(ctx context.Context, ownerID int64) ([]Property, error) {
	var rows []Property
	_, err := r.client.From(propertiesTable).
		Select("*", "", false).
		Eq("owner_id", strconv.FormatInt(ownerID, 10)).
		Order("submitted_at", &postgrest.OrderOpts{Ascending: false}).
		ExecuteTo(&rows)
	if err != nil {
		return nil, fmt.Errorf("select properties: %w", err)
	}
	return rows, nil
}

func (r *SupabaseRepository) ListAll(ctx context.Context) ([]Property, error) {
	var rows []Property
	_, err := r.client.From(propertiesTable).
		Select("*", "", false).
		Order("submitted_at", &postgrest.OrderOpts{Ascending: false}).
		ExecuteTo(&rows)
	if err != nil {
		return nil, fmt.Errorf("select properties: %w", err)
	}
	return rows, nil
}

func (r *SupabaseRepository) UpdateStatus(ctx context.Context, id uuid.UUID, rev Review) (Property, error) {
	if err := validReview(rev); err != nil {
		return Property{}, err
	}
	values := map[string]any{
		"status":      string(rev.Status),
		"reviewed_by": rev.ReviewedBy,
		"reviewed_at": rev.ReviewedAt.UTC(),
	}
	var rows []Property
	_, err := r.client.From(propertiesTable).
		Update(values, "representation", "").
		Eq("id", id.String()).
		Eq("status", string(StatusPending)).
		ExecuteTo(&rows)
	if err != nil {
		return Property{}, fmt.Errorf("update property status: %w", err)
	}
	if len(rows) == 0 {
		if _, getErr := r.Get(ctx, id); getErr != nil {
			return Property{}, getErr
		}
		return Property{}, ErrStatusFinal
	}
	return rows[0], nil
}
