// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for reader
// comments and the per-visitor comment rate window.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-blog-engagement/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound so callers can match either.
var ErrNotFound = gorm.ErrRecordNotFound

// CountRecentComments counts comments by (email, ipHash) newer than cutoff.
func CountRecentComments(ctx context.Context, db *gorm.DB, email, ipHash string, cutoff time.Time) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.Comment{}).
		Where("email = ? AND ip_hash = ? AND created_at > ?", email, ipHash, cutoff.UTC()).
		Count(&n).Error
	return n, err
}

// CreateComment inserts c, filling ID and CreatedAt when empty.
func CreateComment(ctx context.Context, db *gorm.DB, c *domain.Comment) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	c.CreatedAt = c.CreatedAt.UTC()
	return db.WithContext(ctx).Create(c).Error
}

// ListApprovedComments returns approved comments for slug, newest first
// (CreatedAt DESC, ID DESC). A non-positive limit means no limit.
func ListApprovedComments(ctx context.Context, db *gorm.DB, slug string, limit int) ([]domain.Comment, error) {
	var out []domain.Comment
	q := db.WithContext(ctx).
		Where("slug = ? AND approved = ?", slug, true).
		Order("created_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}

// GetComment fetches a comment by ID, or ErrNotFound.
func GetComment(ctx context.Context, db *gorm.DB, id string) (*domain.Comment, error) {
	var c domain.Comment
	if err := db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}
