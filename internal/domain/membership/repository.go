package membership

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Repository defines membership data access interface
type Repository interface {
	Create(ctx context.Context, m *Membership) error
	Get(ctx context.Context, userID, communityID uuid.UUID) (*Membership, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error
	UpdateBan(ctx context.Context, id uuid.UUID, reason sql.NullString, expiration sql.NullTime) error
	Delete(ctx context.Context, userID, communityID uuid.UUID) error
	ListByCommunity(ctx context.Context, communityID uuid.UUID, limit, offset int) ([]*Membership, error)

	// Custom grants attached to a membership
	AddGrant(ctx context.Context, membershipID, permissionID uuid.UUID) error
	RemoveGrant(ctx context.Context, membershipID, permissionID uuid.UUID) (bool, error)
	ListGrants(ctx context.Context, membershipID uuid.UUID) ([]Grant, error)
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates new membership repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, m *Membership) error {
	query := `
		INSERT INTO community_memberships (id, user_id, community_id, status, ban_reason, ban_expiration, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		m.ID, m.UserID, m.CommunityID, m.Status, m.BanReason, m.BanExpiration, m.CreatedAt, m.UpdatedAt,
	)
	return err
}

func (r *repository) Get(ctx context.Context, userID, communityID uuid.UUID) (*Membership, error) {
	query := `SELECT * FROM community_memberships WHERE user_id = $1 AND community_id = $2`
	var m Membership
	err := r.db.GetContext(ctx, &m, query, userID, communityID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error {
	query := `
		UPDATE community_memberships
		SET status = $1, ban_reason = NULL, ban_expiration = NULL, updated_at = NOW()
		WHERE id = $2
	`
	result, err := r.db.ExecContext(ctx, query, status, id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) UpdateBan(ctx context.Context, id uuid.UUID, reason sql.NullString, expiration sql.NullTime) error {
	query := `
		UPDATE community_memberships
		SET status = 'banned', ban_reason = $1, ban_expiration = $2, updated_at = NOW()
		WHERE id = $3
	`
	result, err := r.db.ExecContext(ctx, query, reason, expiration, id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, userID, communityID uuid.UUID) error {
	query := `DELETE FROM community_memberships WHERE user_id = $1 AND community_id = $2`
	result, err := r.db.ExecContext(ctx, query, userID, communityID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) ListByCommunity(ctx context.Context, communityID uuid.UUID, limit, offset int) ([]*Membership, error) {
	query := `
		SELECT * FROM community_memberships
		WHERE community_id = $1
		ORDER BY created_at ASC
		LIMIT $2 OFFSET $3
	`
	var members []*Membership
	err := r.db.SelectContext(ctx, &members, query, communityID, limit, offset)
	return members, err
}

func (r *repository) AddGrant(ctx context.Context, membershipID, permissionID uuid.UUID) error {
	query := `
		INSERT INTO membership_grants (membership_id, permission_id, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (membership_id, permission_id) DO NOTHING
	`
	_, err := r.db.ExecContext(ctx, query, membershipID, permissionID)
	return err
}

func (r *repository) RemoveGrant(ctx context.Context, membershipID, permissionID uuid.UUID) (bool, error) {
	query := `DELETE FROM membership_grants WHERE membership_id = $1 AND permission_id = $2`
	result, err := r.db.ExecContext(ctx, query, membershipID, permissionID)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func (r *repository) ListGrants(ctx context.Context, membershipID uuid.UUID) ([]Grant, error) {
	query := `
		SELECT mg.permission_id, p.resource, p.action, p.is_active
		FROM membership_grants mg
		JOIN permissions p ON p.id = mg.permission_id
		WHERE mg.membership_id = $1
	`
	var grants []Grant
	err := r.db.SelectContext(ctx, &grants, query, membershipID)
	return grants, err
}
