package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

const schema = `
CREATE EXTENSION IF NOT EXISTS "pgcrypto";

CREATE TABLE IF NOT EXISTS users (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	username VARCHAR(32) UNIQUE NOT NULL,
	email VARCHAR(255) UNIQUE NOT NULL,
	password_hash VARCHAR(255) NOT NULL,
	role VARCHAR(16) NOT NULL DEFAULT 'user',
	is_banned BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS communities (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	name VARCHAR(64) NOT NULL,
	slug VARCHAR(64) UNIQUE NOT NULL,
	description TEXT,
	creator_id UUID NOT NULL REFERENCES users(id),
	is_private BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS permissions (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	name VARCHAR(120) NOT NULL,
	description TEXT,
	type VARCHAR(16) NOT NULL,
	scope VARCHAR(16) NOT NULL,
	resource VARCHAR(32) NOT NULL,
	action VARCHAR(32) NOT NULL,
	default_roles TEXT[] NOT NULL DEFAULT '{}',
	community_id UUID REFERENCES communities(id),
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS permissions_name_scope_community_idx
	ON permissions (name, scope, COALESCE(community_id, '00000000-0000-0000-0000-000000000000'));
CREATE INDEX IF NOT EXISTS permissions_resource_action_idx
	ON permissions (resource, action) WHERE is_active;

CREATE TABLE IF NOT EXISTS roles (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	name VARCHAR(64) UNIQUE NOT NULL,
	description TEXT,
	is_system BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS role_permissions (
	role_id UUID NOT NULL REFERENCES roles(id),
	permission_id UUID NOT NULL REFERENCES permissions(id),
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (role_id, permission_id)
);

CREATE TABLE IF NOT EXISTS user_role_assignments (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	user_id UUID NOT NULL REFERENCES users(id),
	role_id UUID NOT NULL REFERENCES roles(id),
	community_id UUID REFERENCES communities(id),
	expires_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS user_role_assignments_user_idx
	ON user_role_assignments (user_id);

CREATE TABLE IF NOT EXISTS user_custom_permissions (
	user_id UUID NOT NULL REFERENCES users(id),
	permission_id UUID NOT NULL REFERENCES permissions(id),
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (user_id, permission_id)
);

CREATE TABLE IF NOT EXISTS community_memberships (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	user_id UUID NOT NULL REFERENCES users(id),
	community_id UUID NOT NULL REFERENCES communities(id),
	status VARCHAR(16) NOT NULL,
	ban_reason TEXT,
	ban_expiration TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (user_id, community_id)
);

CREATE TABLE IF NOT EXISTS membership_grants (
	membership_id UUID NOT NULL REFERENCES community_memberships(id),
	permission_id UUID NOT NULL REFERENCES permissions(id),
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (membership_id, permission_id)
);

INSERT INTO roles (name, description, is_system)
VALUES
	('admin', 'Global administrators', TRUE),
	('moderator', 'Global moderators', TRUE),
	('user', 'Registered users', TRUE)
ON CONFLICT (name) DO NOTHING;
`

// EnsureSchema creates missing tables and seeds the system roles.
// Every statement is idempotent so repeated startups are safe.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
