package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"testing"
)

var hexRE = regexp.MustCompile(`^[0-9a-f]{64}$`)

func TestFingerprint_Deterministic_FixedLength(t *testing.T) {
	h := NewHasher("pepper")
	a := h.Fingerprint("203.0.113.7")
	b := h.Fingerprint("203.0.113.7")
	if a != b {
		t.Fatalf("fingerprint not deterministic: %q vs %q", a, b)
	}
	if !hexRE.MatchString(a) {
		t.Fatalf("expected 64 lowercase hex chars, got %q", a)
	}
}

func TestFingerprint_MatchesSaltedSHA256(t *testing.T) {
	sum := sha256.Sum256([]byte("198.51.100.1|s3cret"))
	want := hex.EncodeToString(sum[:])
	if got := NewHasher("s3cret").Fingerprint("198.51.100.1"); got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestFingerprint_SaltChangesDigest(t *testing.T) {
	a := NewHasher("salt-1").Fingerprint("203.0.113.7")
	b := NewHasher("salt-2").Fingerprint("203.0.113.7")
	if a == b {
		t.Fatalf("different salts must yield different fingerprints")
	}
}

func TestFingerprint_DifferentOrigins(t *testing.T) {
	h := NewHasher("x")
	if h.Fingerprint("10.0.0.1") == h.Fingerprint("10.0.0.2") {
		t.Fatalf("different origins collided")
	}
}

func TestFingerprint_BlankCollapsesToUnknown(t *testing.T) {
	h := NewHasher("x")
	want := h.Fingerprint(UnknownOrigin)
	for _, in := range []string{"", "   ", "\t"} {
		if got := h.Fingerprint(in); got != want {
			t.Fatalf("Fingerprint(%q) = %q; want unknown bucket %q", in, got, want)
		}
	}
}

func TestHasher_Salted(t *testing.T) {
	if NewHasher("").Salted() {
		t.Fatalf("empty salt reported as salted")
	}
	var zero Hasher
	if zero.Salted() {
		t.Fatalf("zero hasher reported as salted")
	}
	if !NewHasher("k").Salted() {
		t.Fatalf("non-empty salt reported as unsalted")
	}
	// zero value still hashes
	if !hexRE.MatchString(zero.Fingerprint("")) {
		t.Fatalf("zero hasher produced invalid digest")
	}
}

func TestFingerprintEmail_CaseInsensitive(t *testing.T) {
	h := NewHasher("x")
	if h.FingerprintEmail("Alice@Example.COM") != h.FingerprintEmail(" alice@example.com ") {
		t.Fatalf("email fingerprint should ignore case and surrounding space")
	}
	if h.FingerprintEmail("alice@example.com") == h.FingerprintEmail("bob@example.com") {
		t.Fatalf("distinct emails collided")
	}
}

func TestClientOrigin(t *testing.T) {
	cases := []struct {
		name, xff, remote, want string
	}{
		{"xff first entry", "203.0.113.7, 10.0.0.1", "10.0.0.9:5555", "203.0.113.7"},
		{"xff single padded", "  198.51.100.2  ", "", "198.51.100.2"},
		{"xff empty first falls back", " , 10.0.0.1", "192.0.2.4:80", "192.0.2.4"},
		{"remote host:port", "", "192.0.2.4:8080", "192.0.2.4"},
		{"remote ipv6", "", "[2001:db8::1]:443", "2001:db8::1"},
		{"remote without port", "", "192.0.2.9", "192.0.2.9"},
		{"nothing", "", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClientOrigin(tc.xff, tc.remote); got != tc.want {
				t.Fatalf("ClientOrigin(%q, %q) = %q; want %q", tc.xff, tc.remote, got, tc.want)
			}
		})
	}
}
