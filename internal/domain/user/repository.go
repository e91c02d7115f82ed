package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Repository defines user data access interface
type Repository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	UpdateRole(ctx context.Context, id uuid.UUID, role Role) error
	SetBanned(ctx context.Context, id uuid.UUID, banned bool) error

	// Site-scope custom grants (permissions attached directly to a user,
	// outside any role)
	AddCustomPermission(ctx context.Context, userID, permissionID uuid.UUID) error
	RemoveCustomPermission(ctx context.Context, userID, permissionID uuid.UUID) (bool, error)
	ListCustomPermissionIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
	HasCustomPermission(ctx context.Context, userID uuid.UUID, resource, action string) (bool, error)
}

// repository implements Repository
type repository struct {
	db *sqlx.DB
}

// NewRepository creates new user repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

// Create creates a new user
func (r *repository) Create(ctx context.Context, user *User) error {
	query := `
		INSERT INTO users (id, username, email, password_hash, role, is_banned, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.Role,
		user.IsBanned,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("user repository create: %w", err)
	}
	return nil
}

// GetByID returns user by ID
func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	query := `SELECT * FROM users WHERE id = $1`
	var user User
	err := r.db.GetContext(ctx, &user, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// GetByEmail returns user by email
func (r *repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	query := `SELECT * FROM users WHERE email = $1`
	var user User
	err := r.db.GetContext(ctx, &user, query, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// GetByUsername returns user by username
func (r *repository) GetByUsername(ctx context.Context, username string) (*User, error) {
	query := `SELECT * FROM users WHERE username = $1`
	var user User
	err := r.db.GetContext(ctx, &user, query, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// UpdateRole changes a user's global role
func (r *repository) UpdateRole(ctx context.Context, id uuid.UUID, role Role) error {
	query := `UPDATE users SET role = $1, updated_at = NOW() WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, role, id)
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

// SetBanned toggles the site-wide ban flag
func (r *repository) SetBanned(ctx context.Context, id uuid.UUID, banned bool) error {
	query := `UPDATE users SET is_banned = $1, updated_at = NOW() WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, banned, id)
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

// AddCustomPermission attaches a site-scope permission directly to the user
func (r *repository) AddCustomPermission(ctx context.Context, userID, permissionID uuid.UUID) error {
	query := `
		INSERT INTO user_custom_permissions (user_id, permission_id, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id, permission_id) DO NOTHING
	`
	_, err := r.db.ExecContext(ctx, query, userID, permissionID)
	return err
}

// RemoveCustomPermission detaches a direct grant; reports whether a row existed
func (r *repository) RemoveCustomPermission(ctx context.Context, userID, permissionID uuid.UUID) (bool, error) {
	query := `DELETE FROM user_custom_permissions WHERE user_id = $1 AND permission_id = $2`
	result, err := r.db.ExecContext(ctx, query, userID, permissionID)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

// ListCustomPermissionIDs returns ids of the user's direct grants
func (r *repository) ListCustomPermissionIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	query := `SELECT permission_id FROM user_custom_permissions WHERE user_id = $1`
	var ids []uuid.UUID
	err := r.db.SelectContext(ctx, &ids, query, userID)
	return ids, err
}

// HasCustomPermission reports whether a direct grant matches an active
// site-scope permission for (resource, action)
func (r *repository) HasCustomPermission(ctx context.Context, userID uuid.UUID, resource, action string) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1
			FROM user_custom_permissions ucp
			JOIN permissions p ON p.id = ucp.permission_id
			WHERE ucp.user_id = $1
			  AND p.resource = $2
			  AND p.action = $3
			  AND p.scope = 'site'
			  AND p.is_active = TRUE
		)
	`
	var exists bool
	err := r.db.GetContext(ctx, &exists, query, userID, resource, action)
	return exists, err
}
