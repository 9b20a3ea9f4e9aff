// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file holds the view event log and the per-slug
// aggregate counter.
//
// The window is half-open, (now-window, now]: a prior view counts as recent
// only when created_at > cutoff, so a view exactly one window old no longer
// suppresses a new one.
//
// The record and increment helpers do not open transactions themselves;
// callers pair them inside db.Transaction so the log and the counter move
// together.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-blog-engagement/internal/domain"
)

// HasRecentView reports whether (slug, ipHash) has a view newer than cutoff.
func HasRecentView(ctx context.Context, db *gorm.DB, slug, ipHash string, cutoff time.Time) (bool, error) {
	var ids []string
	err := db.WithContext(ctx).
		Model(&domain.View{}).
		Where("slug = ? AND ip_hash = ? AND created_at > ?", slug, ipHash, cutoff.UTC()).
		Order("created_at DESC").
		Limit(1).
		Pluck("id", &ids).Error
	if err != nil {
		return false, err
	}
	return len(ids) > 0, nil
}

// RecordView appends one view row. ID and CreatedAt are filled when empty.
func RecordView(ctx context.Context, db *gorm.DB, v *domain.View) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now()
	}
	v.CreatedAt = v.CreatedAt.UTC()
	return db.WithContext(ctx).Create(v).Error
}

// IncrementViews creates the slug's counter at 1 or adds 1 to it, in a single
// upsert statement.
func IncrementViews(ctx context.Context, db *gorm.DB, slug string, now time.Time) error {
	now = now.UTC()
	st := &domain.Stat{Slug: slug, Views: 1, UpdatedAt: now}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "slug"}},
			DoUpdates: clause.Assignments(map[string]any{
				"views":      gorm.Expr("blog_stats.views + 1"),
				"updated_at": now,
			}),
		}).
		Create(st).Error
}

// GetViews returns the counter for slug, or 0 when the slug was never counted.
func GetViews(ctx context.Context, db *gorm.DB, slug string) (int64, error) {
	var rows []domain.Stat
	if err := db.WithContext(ctx).Where("slug = ?", slug).Limit(1).Find(&rows).Error; err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].Views, nil
}

// GetViewsMany returns a count for every requested slug; unseen slugs map to 0.
func GetViewsMany(ctx context.Context, db *gorm.DB, slugs []string) (map[string]int64, error) {
	out := make(map[string]int64, len(slugs))
	if len(slugs) == 0 {
		return out, nil
	}
	uniq := make([]string, 0, len(slugs))
	for _, s := range slugs {
		if _, seen := out[s]; !seen {
			out[s] = 0
			uniq = append(uniq, s)
		}
	}

	var rows []domain.Stat
	if err := db.WithContext(ctx).Where("slug IN ?", uniq).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.Slug] = r.Views
	}
	return out, nil
}

// CountViewEvents counts logged view rows for slug.
func CountViewEvents(ctx context.Context, db *gorm.DB, slug string) (int64, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.View{}).Where("slug = ?", slug).Count(&n).Error
	return n, err
}
