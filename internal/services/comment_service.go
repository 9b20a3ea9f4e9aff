// Package services – CommentService
//
// CommentService accepts reader comments under a per-visitor quota and serves
// the approved ones back with masked emails. The quota key is the pair
// (email, origin fingerprint); the count and the insert run in one
// transaction so a burst cannot slip past the limit by more than the
// database's own isolation allows.
//
// Submissions carrying an idempotency key are answered from the stored
// comment on retry, without consuming quota.
package services

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"

	"github.com/tbourn/go-blog-engagement/internal/domain"
	"github.com/tbourn/go-blog-engagement/internal/identity"
	"github.com/tbourn/go-blog-engagement/internal/observability"
	"github.com/tbourn/go-blog-engagement/internal/repo"
)

// Field limits, in runes.
const (
	maxNameRunes    = 80
	maxEmailRunes   = 160
	maxContentRunes = 2000
	minCommentRunes = 3
)

// Defaults applied when the corresponding CommentService field is unset.
const (
	DefaultCommentWindow       = time.Hour
	DefaultCommentMaxPerWindow = 5
	DefaultCommentListLimit    = 100
	MaxCommentListLimit        = 500
)

// statusStored is the HTTP status recorded with an idempotency key.
const statusStored = 200

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// CommentInput is a comment submission plus the request metadata needed for
// the quota and replay checks.
type CommentInput struct {
	Slug      string
	Name      string
	Email     string
	Content   string
	HideEmail bool

	Origin         string
	UserAgent      string
	IdempotencyKey string
}

// PublicComment is the externally visible shape of a comment. The raw email
// never appears; PublicEmail is the masked address when the author allowed it.
type PublicComment struct {
	ID          string    `json:"id"`
	Name        *string   `json:"name"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"createdAt"`
	PublicEmail *string   `json:"publicEmail"`

	// Replayed is set when Submit answered from an earlier idempotent request.
	Replayed bool `json:"-"`
}

// CommentService stores and lists reader comments.
type CommentService struct {
	DB     *gorm.DB
	Hasher identity.Hasher

	Window         time.Duration
	MaxPerWindow   int
	IdempotencyTTL time.Duration

	Now func() time.Time
}

func (s *CommentService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Submit validates, rate-limits and stores a comment, returning its public form.
func (s *CommentService) Submit(ctx context.Context, in CommentInput) (*PublicComment, error) {
	ctx, span := observability.Tracer("services/CommentService").Start(ctx, "Submit",
		trace.WithAttributes(attribute.String("comment.slug", in.Slug)),
	)
	defer span.End()

	slug := strings.TrimSpace(in.Slug)
	if slug == "" {
		return nil, ErrMissingSlug
	}
	// Same fingerprint as views, so one visitor has one ip_hash everywhere.
	ipHash := s.Hasher.Fingerprint(in.Origin)
	key := strings.TrimSpace(in.IdempotencyKey)

	if key != "" {
		if prev, err := s.replay(ctx, ipHash, slug, key); err != nil || prev != nil {
			return prev, err
		}
	}

	name := sanitize(in.Name, maxNameRunes)
	email := sanitize(in.Email, maxEmailRunes)
	content := sanitize(in.Content, maxContentRunes)
	if email == "" || !emailRe.MatchString(email) {
		return nil, ErrInvalidEmail
	}
	if utf8.RuneCountInString(content) < minCommentRunes {
		return nil, ErrCommentTooShort
	}

	now := s.now()
	c := &domain.Comment{
		Slug:      slug,
		Name:      optional(name),
		Email:     email,
		EmailHash: s.Hasher.FingerprintEmail(email),
		ShowEmail: !in.HideEmail,
		Content:   content,
		IPHash:    ipHash,
		UserAgent: optional(in.UserAgent),
		Approved:  true,
		CreatedAt: now,
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		recent, err := repo.CountRecentComments(ctx, tx, email, ipHash, now.Add(-s.window()))
		if err != nil {
			return err
		}
		if recent >= int64(s.maxPerWindow()) {
			return ErrRateLimited
		}
		if err := repo.CreateComment(ctx, tx, c); err != nil {
			return err
		}
		if key != "" {
			if _, err := repo.CreateIdempotency(ctx, tx, ipHash, slug, key, c.ID, statusStored, now, s.idempotencyTTL()); err != nil {
				return err
			}
		}
		return nil
	})
	switch {
	case errors.Is(err, ErrRateLimited):
		observability.CommentsRateLimited.Inc()
		return nil, err
	case errors.Is(err, repo.ErrDuplicate):
		// A concurrent request with the same key won; answer with its comment.
		prev, rerr := s.replay(ctx, ipHash, slug, key)
		if rerr != nil {
			return nil, rerr
		}
		if prev == nil {
			return nil, err
		}
		return prev, nil
	case err != nil:
		span.RecordError(err)
		return nil, err
	}

	observability.CommentsCreated.Inc()
	return toPublic(c), nil
}

// replay returns the comment stored for a live idempotency record, or nil.
func (s *CommentService) replay(ctx context.Context, ipHash, slug, key string) (*PublicComment, error) {
	rec, err := repo.GetIdempotency(ctx, s.DB, ipHash, slug, key, s.now())
	if errors.Is(err, repo.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	c, err := repo.GetComment(ctx, s.DB, rec.CommentID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	pc := toPublic(c)
	pc.Replayed = true
	return pc, nil
}

// List returns approved comments for slug, newest first.
func (s *CommentService) List(ctx context.Context, slug string, limit int) ([]PublicComment, error) {
	ctx, span := observability.Tracer("services/CommentService").Start(ctx, "List",
		trace.WithAttributes(
			attribute.String("comment.slug", slug),
			attribute.Int("limit", limit),
		),
	)
	defer span.End()

	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, ErrMissingSlug
	}
	if limit <= 0 {
		limit = DefaultCommentListLimit
	}
	if limit > MaxCommentListLimit {
		limit = MaxCommentListLimit
	}

	rows, err := repo.ListApprovedComments(ctx, s.DB, slug, limit)
	if err != nil {
		return nil, err
	}
	out := make([]PublicComment, 0, len(rows))
	for i := range rows {
		out = append(out, *toPublic(&rows[i]))
	}
	return out, nil
}

// Stats returns the approved-comment count and newest timestamp for slug,
// the inputs of the listing ETag.
func (s *CommentService) Stats(ctx context.Context, slug string) (int64, *time.Time, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return 0, nil, ErrMissingSlug
	}
	return repo.CommentsStats(ctx, s.DB, slug)
}

func (s *CommentService) window() time.Duration {
	if s.Window > 0 {
		return s.Window
	}
	return DefaultCommentWindow
}

func (s *CommentService) maxPerWindow() int {
	if s.MaxPerWindow > 0 {
		return s.MaxPerWindow
	}
	return DefaultCommentMaxPerWindow
}

func (s *CommentService) idempotencyTTL() time.Duration {
	if s.IdempotencyTTL > 0 {
		return s.IdempotencyTTL
	}
	return 24 * time.Hour
}

func toPublic(c *domain.Comment) *PublicComment {
	pc := &PublicComment{
		ID:        c.ID,
		Name:      c.Name,
		Content:   c.Content,
		CreatedAt: c.CreatedAt,
	}
	if c.ShowEmail {
		if m := MaskEmail(c.Email); m != "" {
			pc.PublicEmail = &m
		}
	}
	return pc
}

// MaskEmail hides most of an address: "jane.doe@example.co.uk" becomes
// "j***@e****.uk". It returns "" when email has no local part or domain.
func MaskEmail(email string) string {
	local, domainPart, ok := strings.Cut(email, "@")
	if !ok || local == "" || domainPart == "" {
		return ""
	}
	labels := strings.Split(domainPart, ".")
	tld := ""
	if len(labels) > 1 {
		tld = "." + labels[len(labels)-1]
	}
	return maskHead(local, 3) + "@" + maskHead(labels[0], 4) + tld
}

// maskHead keeps the first rune of s and replaces up to max following runes
// with '*'. Single-rune strings are returned unchanged.
func maskHead(s string, max int) string {
	n := utf8.RuneCountInString(s)
	if n <= 1 {
		return s
	}
	first, _ := utf8.DecodeRuneInString(s)
	stars := n - 1
	if stars > max {
		stars = max
	}
	return string(first) + strings.Repeat("*", stars)
}

// sanitize trims, NFC-normalizes and clips s to max runes.
func sanitize(s string, max int) string {
	return clipRunes(norm.NFC.String(strings.TrimSpace(s)), max)
}

func clipRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
