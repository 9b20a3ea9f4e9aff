package domain

import "time"

// Idempotency records the comment produced by a POST carrying an
// Idempotency-Key, keyed by (ip_hash, slug, key). A retry inside the TTL is
// answered with the stored comment instead of creating a new one.
type Idempotency struct {
	ID        string    `gorm:"type:TEXT NOT NULL;primaryKey"`
	IPHash    string    `gorm:"column:ip_hash;type:TEXT NOT NULL;uniqueIndex:ux_origin_slug_key,priority:1"`
	Slug      string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_origin_slug_key,priority:2"`
	Key       string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_origin_slug_key,priority:3"`
	CommentID string    `gorm:"type:TEXT NOT NULL"`
	Status    int       `gorm:"type:INTEGER NOT NULL"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime"`
	ExpiresAt time.Time `gorm:"not null;index"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }
