package handlers

import (
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
)

// maxSlugRunes bounds the subject identifier accepted on the query string.
const maxSlugRunes = 200

var validatorsOnce sync.Once

// registerValidators installs the "slug" tag on gin's validator engine.
// Safe to call more than once.
func registerValidators() {
	validatorsOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		if err := v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
			return validSlug(fl.Field().String())
		}); err != nil {
			log.Error().Err(err).Msg("register slug validator")
		}
	})
}

// validSlug accepts any non-blank identifier of bounded length without
// control characters. Slugs are not checked against a list of known posts.
func validSlug(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" || utf8.RuneCountInString(s) > maxSlugRunes {
		return false
	}
	for _, r := range s {
		if unicode.IsControl(r) {
			return false
		}
	}
	return true
}

// slugQuery binds the single ?slug= parameter shared by most endpoints.
type slugQuery struct {
	Slug string `form:"slug" binding:"required,slug"`
}

// parseSlugs reads ?slugs=a,b or, failing that, ?slug=. Blank entries are
// dropped; ok is false when any remaining entry is invalid.
func parseSlugs(slug, slugs string) (out []string, ok bool) {
	raw := []string{slug}
	if strings.TrimSpace(slugs) != "" {
		raw = strings.Split(slugs, ",")
	}
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if !validSlug(s) {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}
