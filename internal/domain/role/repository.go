package role

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Repository defines role registry data access interface
type Repository interface {
	Create(ctx context.Context, role *Role) error
	GetByID(ctx context.Context, id uuid.UUID) (*Role, error)
	GetByName(ctx context.Context, name string) (*Role, error)
	List(ctx context.Context) ([]*Role, error)
	Update(ctx context.Context, role *Role) error

	// DeleteCascade removes the role's links and assignments before the
	// role itself, in one transaction
	DeleteCascade(ctx context.Context, id uuid.UUID) error

	// SetPermissions edits the role's link set in one transaction
	SetPermissions(ctx context.Context, roleID uuid.UUID, ids []uuid.UUID, mode SetMode) error
	ListPermissionIDs(ctx context.Context, roleID uuid.UUID) ([]uuid.UUID, error)

	// User-role assignments
	Assign(ctx context.Context, a *Assignment) error
	Unassign(ctx context.Context, userID, roleID uuid.UUID) error
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates new role repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, role *Role) error {
	query := `
		INSERT INTO roles (id, name, description, is_system, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, query,
		role.ID, role.Name, role.Description, role.IsSystem, role.CreatedAt, role.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrAlreadyExists
		}
		return fmt.Errorf("role repository create: %w", err)
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Role, error) {
	query := `SELECT * FROM roles WHERE id = $1`
	var role Role
	err := r.db.GetContext(ctx, &role, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &role, nil
}

func (r *repository) GetByName(ctx context.Context, name string) (*Role, error) {
	query := `SELECT * FROM roles WHERE name = $1`
	var role Role
	err := r.db.GetContext(ctx, &role, query, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &role, nil
}

func (r *repository) List(ctx context.Context) ([]*Role, error) {
	query := `SELECT * FROM roles ORDER BY name ASC`
	var roles []*Role
	err := r.db.SelectContext(ctx, &roles, query)
	return roles, err
}

func (r *repository) Update(ctx context.Context, role *Role) error {
	query := `
		UPDATE roles SET name = $1, description = $2, updated_at = NOW()
		WHERE id = $3
	`
	result, err := r.db.ExecContext(ctx, query, role.Name, role.Description, role.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrAlreadyExists
		}
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

func (r *repository) DeleteCascade(ctx context.Context, id uuid.UUID) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM user_role_assignments WHERE role_id = $1`, id); err != nil {
		return err
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM roles WHERE id = $1`, id)
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

	return tx.Commit()
}

func (r *repository) SetPermissions(ctx context.Context, roleID uuid.UUID, ids []uuid.UUID, mode SetMode) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	idArray := pq.Array(uuidStrings(ids))

	switch mode {
	case ModeSet:
		if _, err := tx.ExecContext(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, roleID); err != nil {
			return err
		}
		fallthrough
	case ModeAdd:
		if len(ids) > 0 {
			query := `
				INSERT INTO role_permissions (role_id, permission_id, created_at)
				SELECT $1, unnest($2::uuid[]), NOW()
				ON CONFLICT (role_id, permission_id) DO NOTHING
			`
			if _, err := tx.ExecContext(ctx, query, roleID, idArray); err != nil {
				return err
			}
		}
	case ModeRemove:
		query := `DELETE FROM role_permissions WHERE role_id = $1 AND permission_id = ANY($2::uuid[])`
		if _, err := tx.ExecContext(ctx, query, roleID, idArray); err != nil {
			return err
		}
	default:
		return ErrInvalidMode
	}

	return tx.Commit()
}

func (r *repository) ListPermissionIDs(ctx context.Context, roleID uuid.UUID) ([]uuid.UUID, error) {
	query := `SELECT permission_id FROM role_permissions WHERE role_id = $1 ORDER BY created_at ASC`
	var ids []uuid.UUID
	err := r.db.SelectContext(ctx, &ids, query, roleID)
	return ids, err
}

func (r *repository) Assign(ctx context.Context, a *Assignment) error {
	query := `
		INSERT INTO user_role_assignments (id, user_id, role_id, community_id, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, query,
		a.ID, a.UserID, a.RoleID, a.CommunityID, a.ExpiresAt, a.CreatedAt,
	)
	return err
}

func (r *repository) Unassign(ctx context.Context, userID, roleID uuid.UUID) error {
	query := `DELETE FROM user_role_assignments WHERE user_id = $1 AND role_id = $2`
	result, err := r.db.ExecContext(ctx, query, userID, roleID)
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

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
