package logic

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

// Identifier minting. Slugs and profile seeds are deterministic transforms;
// team and referral codes come from a CSPRNG and callers retry on collision.

const (
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength   = 5
	slugMaxLen   = 110

	// mintRetries bounds the collision-retry loop for 5-char codes. The key
	// space is 36^5 per event, so hitting this limit means something else is
	// wrong.
	mintRetries = 10
)

// Slugify turns a title into a URL-safe slug: lowercased, runs of
// non-alphanumerics collapsed to a single dash, trimmed, capped at 110 chars.
func Slugify(title string) string {
	var sb strings.Builder
	sb.Grow(len(title))

	lastDash := true // suppress a leading dash
	for _, r := range strings.ToLower(title) {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			sb.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				sb.WriteByte('-')
				lastDash = true
			}
		}
	}

	slug := strings.TrimRight(sb.String(), "-")
	if len(slug) > slugMaxLen {
		slug = strings.TrimRight(slug[:slugMaxLen], "-")
	}
	return slug
}

// SlugCandidate returns the n-th slug candidate for a base slug: the base
// itself for n=1, then "base-2", "base-3" and so on.
func SlugCandidate(base string, n int) string {
	if n <= 1 {
		return base
	}
	return fmt.Sprintf("%s-%d", base, n)
}

// EventCode formats the monotonic event code for sequence number n.
func EventCode(n int64) string {
	return fmt.Sprintf("EVT%03d", n)
}

// MintCode draws a 5-character uppercase alphanumeric code from crypto/rand.
// Used for both team codes and referral codes.
func MintCode() (string, error) {
	buf := make([]byte, codeLength)
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("mint code: %w", err)
		}
		buf[i] = codeAlphabet[n.Int64()]
	}
	return string(buf), nil
}

// ProfileNameSeed derives the base of a profile name from a display name:
// lowercase, anything outside [a-z0-9_] dropped, underscore runs squashed,
// minimum three characters ("user" when shorter). The caller appends five
// random decimal digits and retries until unique.
func ProfileNameSeed(name string) string {
	var sb strings.Builder
	sb.Grow(len(name))

	lastUnderscore := false
	for _, r := range strings.ToLower(name) {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			sb.WriteRune(r)
			lastUnderscore = false
		case r == '_' || r == ' ':
			if !lastUnderscore && sb.Len() > 0 {
				sb.WriteByte('_')
				lastUnderscore = true
			}
		}
	}

	seed := strings.Trim(sb.String(), "_")
	if len(seed) < 3 {
		return "user"
	}
	return seed
}

// ProfileNameCandidate appends a 5-digit random suffix to a seed.
func ProfileNameCandidate(seed string) (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(100000))
	if err != nil {
		return "", fmt.Errorf("mint profile suffix: %w", err)
	}
	return fmt.Sprintf("%s%05d", seed, n.Int64()), nil
}
