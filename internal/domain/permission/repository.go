package permission

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Repository defines permission catalog data access interface
type Repository interface {
	Create(ctx context.Context, p *Permission) error
	GetByID(ctx context.Context, id uuid.UUID) (*Permission, error)
	GetByName(ctx context.Context, name string, scope Scope, communityID *uuid.UUID) (*Permission, error)
	List(ctx context.Context, filter *ListFilter) ([]*Permission, int, error)

	// Update rewrites mutable fields and synchronizes role links for
	// changed default-role tags in a single transaction
	Update(ctx context.Context, p *Permission, addedRoles, removedRoles []string) error

	// DeleteCascade unlinks the permission from every role, membership
	// grant and user grant before removing the record. The unlink must
	// happen first so no role ever references a deleted permission.
	DeleteCascade(ctx context.Context, id uuid.UUID) error

	SetActive(ctx context.Context, ids []uuid.UUID, active bool) (int, error)
	ExistAll(ctx context.Context, ids []uuid.UUID) (bool, error)
	AttachToRoles(ctx context.Context, permissionID uuid.UUID, roleNames []string) error

	// Decision-engine matchers
	MatchesDefaultRole(ctx context.Context, resource, action, roleTag string, communityID *uuid.UUID) (bool, error)
	HasAssignedPermission(ctx context.Context, userID uuid.UUID, resource, action string) (bool, error)
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates new permission repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, p *Permission) error {
	query := `
		INSERT INTO permissions (id, name, description, type, scope, resource, action, default_roles, community_id, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := r.db.ExecContext(ctx, query,
		p.ID, p.Name, p.Description, p.Type, p.Scope, p.Resource, p.Action,
		p.DefaultRoles, p.CommunityID, p.IsActive, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrAlreadyExists
		}
		return fmt.Errorf("permission repository create: %w", err)
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Permission, error) {
	query := `SELECT * FROM permissions WHERE id = $1`
	var p Permission
	err := r.db.GetContext(ctx, &p, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *repository) GetByName(ctx context.Context, name string, scope Scope, communityID *uuid.UUID) (*Permission, error) {
	query := `
		SELECT * FROM permissions
		WHERE name = $1 AND scope = $2
		  AND community_id IS NOT DISTINCT FROM $3
	`
	var p Permission
	err := r.db.GetContext(ctx, &p, query, name, scope, communityID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *repository) List(ctx context.Context, filter *ListFilter) ([]*Permission, int, error) {
	where := ` WHERE 1=1`
	args := []interface{}{}
	argPos := 1

	if filter.Scope != "" {
		where += fmt.Sprintf(` AND scope = $%d`, argPos)
		args = append(args, filter.Scope)
		argPos++
	}
	if filter.Resource != "" {
		where += fmt.Sprintf(` AND resource = $%d`, argPos)
		args = append(args, filter.Resource)
		argPos++
	}
	if filter.Action != "" {
		where += fmt.Sprintf(` AND action = $%d`, argPos)
		args = append(args, filter.Action)
		argPos++
	}
	if filter.CommunityID != nil {
		where += fmt.Sprintf(` AND community_id = $%d`, argPos)
		args = append(args, *filter.CommunityID)
		argPos++
	}
	if filter.ActiveOnly {
		where += ` AND is_active = TRUE`
	}
	if filter.Search != "" {
		where += fmt.Sprintf(` AND (name ILIKE $%d OR description ILIKE $%d)`, argPos, argPos)
		args = append(args, "%"+filter.Search+"%")
		argPos++
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM permissions`+where, args...); err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * limit

	query := `SELECT * FROM permissions` + where +
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, argPos, argPos+1)
	args = append(args, limit, offset)

	var perms []*Permission
	if err := r.db.SelectContext(ctx, &perms, query, args...); err != nil {
		return nil, 0, err
	}
	return perms, total, nil
}

func (r *repository) Update(ctx context.Context, p *Permission, addedRoles, removedRoles []string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		UPDATE permissions
		SET name = $1, description = $2, default_roles = $3, is_active = $4, updated_at = NOW()
		WHERE id = $5
	`
	result, err := tx.ExecContext(ctx, query, p.Name, p.Description, p.DefaultRoles, p.IsActive, p.ID)
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

	if err := syncRoleLinks(ctx, tx, p.ID, addedRoles, removedRoles); err != nil {
		return err
	}

	return tx.Commit()
}

// syncRoleLinks pushes the permission into roles named by added tags and
// pulls it from roles named by removed tags. Tags that name no Role row
// (membership tiers like visitor/member) are skipped.
func syncRoleLinks(ctx context.Context, tx *sqlx.Tx, permissionID uuid.UUID, added, removed []string) error {
	if len(added) > 0 {
		query := `
			INSERT INTO role_permissions (role_id, permission_id, created_at)
			SELECT r.id, $1, NOW() FROM roles r WHERE r.name = ANY($2)
			ON CONFLICT (role_id, permission_id) DO NOTHING
		`
		if _, err := tx.ExecContext(ctx, query, permissionID, pq.Array(added)); err != nil {
			return err
		}
	}
	if len(removed) > 0 {
		query := `
			DELETE FROM role_permissions
			WHERE permission_id = $1
			  AND role_id IN (SELECT id FROM roles WHERE name = ANY($2))
		`
		if _, err := tx.ExecContext(ctx, query, permissionID, pq.Array(removed)); err != nil {
			return err
		}
	}
	return nil
}

func (r *repository) DeleteCascade(ctx context.Context, id uuid.UUID) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Unlink first, then delete; the order is mandatory
	unlinks := []string{
		`DELETE FROM role_permissions WHERE permission_id = $1`,
		`DELETE FROM membership_grants WHERE permission_id = $1`,
		`DELETE FROM user_custom_permissions WHERE permission_id = $1`,
	}
	for _, q := range unlinks {
		if _, err := tx.ExecContext(ctx, q, id); err != nil {
			return err
		}
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM permissions WHERE id = $1`, id)
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

func (r *repository) SetActive(ctx context.Context, ids []uuid.UUID, active bool) (int, error) {
	query := `UPDATE permissions SET is_active = $1, updated_at = NOW() WHERE id = ANY($2::uuid[])`
	result, err := r.db.ExecContext(ctx, query, active, pq.Array(uuidStrings(ids)))
	if err != nil {
		return 0, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(rows), nil
}

func (r *repository) ExistAll(ctx context.Context, ids []uuid.UUID) (bool, error) {
	if len(ids) == 0 {
		return true, nil
	}
	query := `SELECT COUNT(DISTINCT id) FROM permissions WHERE id = ANY($1::uuid[])`
	var count int
	if err := r.db.GetContext(ctx, &count, query, pq.Array(uuidStrings(ids))); err != nil {
		return false, err
	}
	return count == len(dedupe(ids)), nil
}

func (r *repository) AttachToRoles(ctx context.Context, permissionID uuid.UUID, roleNames []string) error {
	if len(roleNames) == 0 {
		return nil
	}
	query := `
		INSERT INTO role_permissions (role_id, permission_id, created_at)
		SELECT r.id, $1, NOW() FROM roles r WHERE r.name = ANY($2)
		ON CONFLICT (role_id, permission_id) DO NOTHING
	`
	_, err := r.db.ExecContext(ctx, query, permissionID, pq.Array(roleNames))
	return err
}

func (r *repository) MatchesDefaultRole(ctx context.Context, resource, action, roleTag string, communityID *uuid.UUID) (bool, error) {
	scope := ScopeSite
	if communityID != nil {
		scope = ScopeSubreddit
	}
	query := `
		SELECT EXISTS(
			SELECT 1 FROM permissions
			WHERE resource = $1
			  AND action = $2
			  AND scope = $3
			  AND community_id IS NOT DISTINCT FROM $4
			  AND is_active = TRUE
			  AND $5 = ANY(default_roles)
		)
	`
	var exists bool
	err := r.db.GetContext(ctx, &exists, query, resource, action, scope, communityID, roleTag)
	return exists, err
}

func (r *repository) HasAssignedPermission(ctx context.Context, userID uuid.UUID, resource, action string) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1
			FROM user_role_assignments ura
			JOIN role_permissions rp ON rp.role_id = ura.role_id
			JOIN permissions p ON p.id = rp.permission_id
			WHERE ura.user_id = $1
			  AND (ura.expires_at IS NULL OR ura.expires_at > NOW())
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

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
