package community

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Community represents a community (subreddit)
type Community struct {
	ID          uuid.UUID      `db:"id" json:"id"`
	Name        string         `db:"name" json:"name"`
	Slug        string         `db:"slug" json:"slug"`
	Description sql.NullString `db:"description" json:"description,omitempty"`
	CreatorID   uuid.UUID      `db:"creator_id" json:"creator_id"`
	IsPrivate   bool           `db:"is_private" json:"is_private"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
}
