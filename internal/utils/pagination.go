// Package utils holds small request-parsing helpers shared by handlers.
package utils

import (
	"strconv"
	"strings"
)

// Limit parses a page-size query value. Empty, malformed or non-positive
// input yields def; anything above max is clamped to max. A max <= 0 means
// no upper bound.
func Limit(raw string, def, max int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 0 {
		return def
	}
	if max > 0 && n > max {
		return max
	}
	return n
}
