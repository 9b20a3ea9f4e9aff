// Package identity derives pseudonymous visitor fingerprints from network
// origin metadata. Fingerprints are the deduplication key for view counting
// and the rate-limit key for comments; the raw origin is never needed to
// compare two requests.
//
// A Hasher is built once from configuration and passed to the services that
// need it. The salt is explicit state on the value, so an unsalted deployment
// is visible (Salted() == false) instead of being a hidden fallback.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"net"
	"strings"

	"golang.org/x/text/cases"
)

// UnknownOrigin is hashed in place of an absent origin. All requests without
// origin metadata share one fingerprint bucket.
const UnknownOrigin = "unknown"

// separator joins the normalized input and the salt before hashing.
const separator = "|"

// Hasher computes salted SHA-256 fingerprints. The zero value is usable and
// behaves as an unsalted hasher.
type Hasher struct {
	salt string
}

// NewHasher returns a Hasher bound to salt. An empty salt is accepted.
func NewHasher(salt string) Hasher {
	return Hasher{salt: salt}
}

// Salted reports whether a non-empty salt was configured.
func (h Hasher) Salted() bool { return h.salt != "" }

// Fingerprint returns the 64-char hex digest of origin. Blank origins are
// replaced by UnknownOrigin, so the function is total.
func (h Hasher) Fingerprint(origin string) string {
	origin = strings.TrimSpace(origin)
	if origin == "" {
		origin = UnknownOrigin
	}
	return h.digest(origin)
}

// FingerprintEmail returns the salted digest of a case-folded email address.
func (h Hasher) FingerprintEmail(email string) string {
	return h.digest(cases.Fold().String(strings.TrimSpace(email)))
}

func (h Hasher) digest(s string) string {
	sum := sha256.Sum256([]byte(s + separator + h.salt))
	return hex.EncodeToString(sum[:])
}

// ClientOrigin picks the visitor's declared origin: the first entry of an
// X-Forwarded-For value, else the host part of the transport remote address.
// It returns "" when neither is available.
func ClientOrigin(forwardedFor, remoteAddr string) string {
	if forwardedFor != "" {
		first, _, _ := strings.Cut(forwardedFor, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	remoteAddr = strings.TrimSpace(remoteAddr)
	if remoteAddr == "" {
		return ""
	}
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		return host
	}
	return remoteAddr
}
