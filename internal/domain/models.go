// Package domain defines the persistence models for blog engagement: the
// append-only view log, the per-slug aggregate counter, and reader comments.
// These types are mapped with GORM and shared by the repository and service
// layers.
package domain

import "time"

// View is one accepted page view. Rows are immutable once written; the
// composite index serves the dedup lookup by (slug, ip_hash, created_at).
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - Slug: article identifier the view belongs to.
//   - IPHash: salted fingerprint of the visitor origin (see package identity).
//   - IP: raw origin, only stored when raw retention is enabled.
//   - UserAgent: optional client user agent.
//   - CreatedAt: server clock, UTC.
type View struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	Slug      string    `json:"slug"       gorm:"type:varchar(200);not null;index:idx_views_slug_hash_at,priority:1"`
	IPHash    string    `json:"-"          gorm:"column:ip_hash;type:char(64);not null;index:idx_views_slug_hash_at,priority:2"`
	IP        *string   `json:"-"          gorm:"column:ip;type:varchar(64)"`
	UserAgent *string   `json:"-"          gorm:"type:text"`
	CreatedAt time.Time `json:"created_at" gorm:"not null;index:idx_views_slug_hash_at,priority:3"`
}

// TableName returns the database table name for View.
func (View) TableName() string { return "blog_views" }

// Stat holds the running view total for a slug. A row is created on the first
// accepted view and only ever incremented afterwards.
type Stat struct {
	Slug      string    `json:"slug"       gorm:"type:varchar(200);primaryKey"`
	Views     int64     `json:"views"      gorm:"not null;check:views >= 0"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for Stat.
func (Stat) TableName() string { return "blog_stats" }

// Comment is a reader comment on an article. The raw email is stored for
// moderation but never leaves the service layer unmasked.
//
// ShowEmail and Approved carry no DB default on purpose: GORM would replace
// a false value with the default on insert.
type Comment struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	Slug      string    `json:"slug"       gorm:"type:varchar(200);not null;index:idx_comments_slug_at,priority:1"`
	Name      *string   `json:"name"       gorm:"type:varchar(80)"`
	Email     string    `json:"-"          gorm:"type:varchar(160);not null;index:idx_comments_rate,priority:1"`
	EmailHash string    `json:"-"          gorm:"type:char(64);not null"`
	ShowEmail bool      `json:"-"          gorm:"not null"`
	Content   string    `json:"content"    gorm:"type:text;not null"`
	IPHash    string    `json:"-"          gorm:"column:ip_hash;type:char(64);not null;index:idx_comments_rate,priority:2"`
	UserAgent *string   `json:"-"          gorm:"type:text"`
	Approved  bool      `json:"-"          gorm:"not null;index"`
	CreatedAt time.Time `json:"created_at" gorm:"not null;index:idx_comments_slug_at,priority:2;index:idx_comments_rate,priority:3"`
}

// TableName returns the database table name for Comment.
func (Comment) TableName() string { return "blog_comments" }
