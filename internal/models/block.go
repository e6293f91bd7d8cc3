package models

import (
	"encoding/json"
	"time"
)

// ContentBlock is one persisted unit of version content. Type holds the
// variant tag and Data the variant-specific payload. Within one version the
// Order values form the contiguous permutation 0..N-1.
type ContentBlock struct {
	ID        string          `db:"id" json:"id"`
	VersionID string          `db:"version_id" json:"version_id"`
	Order     int             `db:"block_order" json:"order"`
	Type      string          `db:"type" json:"type"`
	Data      json.RawMessage `db:"data" json:"data"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
}
