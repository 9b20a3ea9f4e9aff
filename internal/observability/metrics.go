package observability

import "github.com/prometheus/client_golang/prometheus"

// Engagement counters. They are registered on the default registry and served
// by the /metrics route next to the HTTP collectors.
var (
	// ViewsCounted counts views that passed the dedup window and advanced a counter.
	ViewsCounted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "blog_views_counted_total",
		Help: "Views accepted and added to a per-slug counter.",
	})

	// ViewsDeduplicated counts views suppressed by a recent view from the same origin.
	ViewsDeduplicated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "blog_views_deduplicated_total",
		Help: "Views suppressed as repeats inside the dedup window.",
	})

	// CommentsCreated counts stored comments.
	CommentsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "blog_comments_created_total",
		Help: "Comments stored.",
	})

	// CommentsRateLimited counts comment submissions refused by the per-visitor quota.
	CommentsRateLimited = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "blog_comments_rate_limited_total",
		Help: "Comment submissions rejected by the per-visitor quota.",
	})

	// CountCacheLookups counts slug lookups against the count cache by result (hit|miss|error).
	CountCacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "blog_count_cache_lookups_total",
		Help: "Count cache lookups by result.",
	}, []string{"result"})
)

func init() {
	prometheus.MustRegister(ViewsCounted, ViewsDeduplicated, CommentsCreated, CommentsRateLimited, CountCacheLookups)
}
