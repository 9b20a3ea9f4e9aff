// Package services – ViewService
//
// ViewService turns anonymous page hits into deduplicated per-slug totals.
// A hit is fingerprinted from its origin, checked against the view log for a
// recent entry by the same fingerprint, and only then appended to the log and
// added to the counter. The check, the append and the increment share one
// database transaction; no in-process locks are taken, so several instances
// may serve the same database.
//
// Reads go through an optional CountCache. The cache never decides anything:
// the dedup check and the increment always hit the database. A counted visit
// raises the cached total to the value read in its own transaction; since
// cache writes never lower a count, a fill from an older read cannot stick.
package services

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-blog-engagement/internal/domain"
	"github.com/tbourn/go-blog-engagement/internal/identity"
	"github.com/tbourn/go-blog-engagement/internal/observability"
	"github.com/tbourn/go-blog-engagement/internal/repo"
)

// DefaultViewWindow applies when ViewService.Window is unset.
const DefaultViewWindow = 360 * time.Minute

// maxOriginRunes matches the blog_views.ip column width.
const maxOriginRunes = 64

// CountCache is the read-through cache consulted by Count and CountMany.
// *cache.CountCache satisfies it.
type CountCache interface {
	GetMany(ctx context.Context, slugs []string) (map[string]int64, error)
	SetMany(ctx context.Context, counts map[string]int64) error
	Invalidate(ctx context.Context, slug string) error
}

// Visit is one inbound page view.
type Visit struct {
	Slug      string
	Origin    string // client address as resolved by identity.ClientOrigin
	UserAgent string
}

// ViewResult reports whether the visit was counted and the slug's total after it.
type ViewResult struct {
	Counted bool
	Views   int64
}

// ViewService records and reads view counts.
type ViewService struct {
	DB     *gorm.DB
	Hasher identity.Hasher
	Window time.Duration

	// StoreRawOrigin keeps the unhashed origin next to the fingerprint.
	StoreRawOrigin bool

	// Optional
	Cache CountCache
	Now   func() time.Time
}

func (s *ViewService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *ViewService) window() time.Duration {
	if s.Window > 0 {
		return s.Window
	}
	return DefaultViewWindow
}

// Record counts v unless the same fingerprint viewed the same slug within the
// window. Storage errors abort the whole visit: nothing is logged or counted.
func (s *ViewService) Record(ctx context.Context, v Visit) (ViewResult, error) {
	ctx, span := observability.Tracer("services/ViewService").Start(ctx, "Record",
		trace.WithAttributes(attribute.String("view.slug", v.Slug)),
	)
	defer span.End()

	slug := strings.TrimSpace(v.Slug)
	if slug == "" {
		return ViewResult{}, ErrMissingSlug
	}

	fp := s.Hasher.Fingerprint(v.Origin)
	now := s.now()
	cutoff := now.Add(-s.window())

	var (
		counted bool
		views   int64
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		recent, err := repo.HasRecentView(ctx, tx, slug, fp, cutoff)
		if err != nil {
			return err
		}
		if !recent {
			row := &domain.View{
				Slug:      slug,
				IPHash:    fp,
				UserAgent: optional(v.UserAgent),
				CreatedAt: now,
			}
			if s.StoreRawOrigin {
				row.IP = optional(clipRunes(strings.TrimSpace(v.Origin), maxOriginRunes))
			}
			if err := repo.RecordView(ctx, tx, row); err != nil {
				return err
			}
			if err := repo.IncrementViews(ctx, tx, slug, now); err != nil {
				return err
			}
			counted = true
		}
		// Read inside the transaction so a committed visit always has its total.
		views, err = repo.GetViews(ctx, tx, slug)
		return err
	})
	if err != nil {
		span.RecordError(err)
		return ViewResult{}, err
	}
	span.SetAttributes(attribute.Bool("view.counted", counted))

	if !counted {
		observability.ViewsDeduplicated.Inc()
		return ViewResult{Views: views}, nil
	}
	observability.ViewsCounted.Inc()
	s.refreshCache(ctx, slug, views)
	return ViewResult{Counted: true, Views: views}, nil
}

// refreshCache raises the cached total to views. If that write fails the
// entry is dropped instead, so the next read goes to the database.
func (s *ViewService) refreshCache(ctx context.Context, slug string, views int64) {
	if s.Cache == nil {
		return
	}
	err := s.Cache.SetMany(ctx, map[string]int64{slug: views})
	if err == nil {
		return
	}
	log.Warn().Err(err).Str("slug", slug).Msg("count cache refresh failed")
	if err := s.Cache.Invalidate(ctx, slug); err != nil {
		log.Warn().Err(err).Str("slug", slug).Msg("count cache invalidate failed")
	}
}

// Count returns the total for slug; an unseen slug reads as 0.
func (s *ViewService) Count(ctx context.Context, slug string) (int64, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return 0, ErrMissingSlug
	}
	m, err := s.CountMany(ctx, []string{slug})
	if err != nil {
		return 0, err
	}
	return m[slug], nil
}

// CountMany returns a total for every distinct non-blank slug, zero-filled.
// Cache failures are logged and fall through to the database.
func (s *ViewService) CountMany(ctx context.Context, slugs []string) (map[string]int64, error) {
	ctx, span := observability.Tracer("services/ViewService").Start(ctx, "CountMany",
		trace.WithAttributes(attribute.Int("view.slugs", len(slugs))),
	)
	defer span.End()

	want := normalizeSlugs(slugs)
	if len(want) == 0 {
		return nil, ErrMissingSlug
	}

	out := make(map[string]int64, len(want))
	missing := want
	if s.Cache != nil {
		hits, err := s.Cache.GetMany(ctx, want)
		if err != nil {
			observability.CountCacheLookups.WithLabelValues("error").Add(float64(len(want)))
			log.Warn().Err(err).Int("slugs", len(want)).Msg("count cache read failed")
			hits = nil
		}
		missing = missing[:0:0]
		for _, slug := range want {
			if n, ok := hits[slug]; ok {
				out[slug] = n
				observability.CountCacheLookups.WithLabelValues("hit").Inc()
				continue
			}
			if err == nil {
				observability.CountCacheLookups.WithLabelValues("miss").Inc()
			}
			missing = append(missing, slug)
		}
	}
	if len(missing) == 0 {
		return out, nil
	}

	fresh, err := repo.GetViewsMany(ctx, s.DB, missing)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	for slug, n := range fresh {
		out[slug] = n
	}
	if s.Cache != nil {
		if err := s.Cache.SetMany(ctx, fresh); err != nil {
			log.Warn().Err(err).Int("slugs", len(fresh)).Msg("count cache fill failed")
		}
	}
	return out, nil
}

// normalizeSlugs trims, drops blanks, and de-duplicates while keeping order.
func normalizeSlugs(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
