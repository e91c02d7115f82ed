package community

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Repository defines community data access interface
type Repository interface {
	Create(ctx context.Context, c *Community) error
	GetByID(ctx context.Context, id uuid.UUID) (*Community, error)
	GetBySlug(ctx context.Context, slug string) (*Community, error)
	List(ctx context.Context, limit, offset int) ([]*Community, error)
	Count(ctx context.Context) (int, error)
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates new community repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, c *Community) error {
	query := `
		INSERT INTO communities (id, name, slug, description, creator_id, is_private, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		c.ID, c.Name, c.Slug, c.Description, c.CreatorID, c.IsPrivate, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrAlreadyExists
		}
		return fmt.Errorf("community repository create: %w", err)
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Community, error) {
	query := `SELECT * FROM communities WHERE id = $1`
	var c Community
	err := r.db.GetContext(ctx, &c, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

func (r *repository) GetBySlug(ctx context.Context, slug string) (*Community, error) {
	query := `SELECT * FROM communities WHERE slug = $1`
	var c Community
	err := r.db.GetContext(ctx, &c, query, slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

func (r *repository) List(ctx context.Context, limit, offset int) ([]*Community, error) {
	query := `SELECT * FROM communities ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	var communities []*Community
	err := r.db.SelectContext(ctx, &communities, query, limit, offset)
	return communities, err
}

func (r *repository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM communities`)
	return count, err
}
