package properties

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ileafrica/ilebot/core/logger"
)

const propertyColumns = `id, owner_id, name, location, price, tokens, type, description, images, submitted_at, status, reviewed_by, reviewed_at`

// row mirrors the properties table; images is a TEXT[] column.
type row struct {
	ID          uuid.UUID      `db:"id"`
	OwnerID     int64          `db:"owner_id"`
	Name        string         `db:"name"`
	Location    string         `db:"location"`
	Price       float64        `db:"price"`
	Tokens      int64          `db:"tokens"`
	Type        string         `db:"type"`
	Description string         `db:"description"`
	Images      pq.StringArray `db:"images"`
	SubmittedAt time.Time      `db:"submitted_at"`
	Status      string         `db:"status"`
	ReviewedBy  sql.NullInt64  `db:"reviewed_by"`
	ReviewedAt  sql.NullTime   `db:"reviewed_at"`
}

func (r row) property() Property {
	p := Property{
		ID:          r.ID,
		OwnerID:     r.OwnerID,
		Name:        r.Name,
		Location:    r.Location,
		Price:       r.Price,
		Tokens:      r.Tokens,
		Type:        Type(r.Type),
		Description: r.Description,
		Images:      []string(r.Images),
		SubmittedAt: r.SubmittedAt.UTC(),
		Status:      Status(r.Status),
	}
	if r.ReviewedBy.Valid {
		by := r.ReviewedBy.Int64
		p.ReviewedBy = &by
	}
	if r.ReviewedAt.Valid {
		at := r.ReviewedAt.Time.UTC()
		p.ReviewedAt = &at
	}
	return p
}

// PostgresRepository stores properties in the properties table.
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository wraps an open pool.
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, p Property) (Property, error) {
	p = prepare(p)
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO properties (id, owner_id, name, location, price, tokens, type, description, images, submitted_at, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		p.ID, p.OwnerID, p.Name, p.Location, p.Price, p.Tokens, string(p.Type), p.Description,
		pq.StringArray(p.Images), p.SubmittedAt, string(p.Status))
	if err != nil {
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

func (r *PostgresRepository) Get(ctx context.Context, id uuid.UUID) (Property, error) {
	var rw row
	err := r.db.GetContext(ctx, &rw, `SELECT `+propertyColumns+` FROM properties WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Property{}, ErrNotFound
	}
	if err != nil {
		return Property{}, fmt.Errorf("select property: %w", err)
	}
	return rw.property(), nil
}

func (r *PostgresRepository) ListByStatus(ctx context.Context, status Status) ([]Property, error) {
	return r.list(ctx, `WHERE status = $1 ORDER BY submitted_at`, string(status))
}

func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerID int64) ([]Property, error) {
	return r.list(ctx, `WHERE owner_id = $1 ORDER BY submitted_at DESC`, ownerID)
}

func (r *PostgresRepository) ListAll(ctx context.Context) ([]Property, error) {
	return r.list(ctx, `ORDER BY submitted_at DESC`)
}

func (r *PostgresRepository) list(ctx context.Context, where string, args ...any) ([]Property, error) {
	var rows []row
	if err := r.db.SelectContext(ctx, &rows, `SELECT `+propertyColumns+` FROM properties `+where, args...); err != nil {
		return nil, fmt.Errorf("select properties: %w", err)
	}
	out := make([]Property, 0, len(rows))
	for _, rw := range rows {
		out = append(out, rw.property())
	}
	return out, nil
}

func (r *PostgresRepository) UpdateStatus(ctx context.Context, id uuid.UUID, rev Review) (Property, error) {
	if err := validReview(rev); err != nil {
		return Property{}, err
	}
	var rw row
	err := r.db.GetContext(ctx, &rw, `
		UPDATE properties SET status = $2, reviewed_by = $3, reviewed_at = $4
		WHERE id = $1 AND status = 'pending'
		RETURNING `+propertyColumns,
		id, string(rev.Status), rev.ReviewedBy, rev.ReviewedAt.UTC())
	if errors.Is(err, sql.ErrNoRows) {
		// Either the ID is unknown or the property is no longer pending.
		if _, getErr := r.Get(ctx, id); getErr != nil {
			return Property{}, getErr
		}
		return Property{}, ErrStatusFinal
	}
	if err != nil {
		return Property{}, fmt.Errorf("update property status: %w", err)
	}
	return rw.property(), nil
}
