package keystore

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"time"
)

// SecretPrefix starts every generated secret so existing OpenAI-style client
// tooling accepts the keys unchanged.
const SecretPrefix = "sk-"

const (
	secretBytes  = 32
	saltBytes    = 16
	minSecretLen = 16
	maxSecretLen = 128
	maxKeyIDLen  = 64
)

// record is one key entry as held in memory. Salt and Digest are the only
// secret-derived material retained; the plaintext secret is returned exactly
// once at issue time and never stored.
type record struct {
	ID        string
	Salt      []byte
	Digest    []byte // SHA-256(salt || secret)
	RateLimit int    // requests per minute; 0 means the configured default
	Revoked   bool
	ExpiresAt time.Time // zero means never
}

func (r *record) expired(now time.Time) bool {
	return !r.ExpiresAt.IsZero() && !now.Before(r.ExpiresAt)
}

// Usage tracks per-key activity. Counters live in memory only: they survive
// file reloads but not process restarts.
type Usage struct {
	Requests uint64
	LastUsed time.Time
}

// Info is the externally visible view of a key. It never carries secret
// material.
type Info struct {
	ID        string
	RateLimit int
	Revoked   bool
	ExpiresAt time.Time
	Usage     Usage
}

// Expired reports whether the key's expiry has passed.
func (i Info) Expired(now time.Time) bool {
	return !i.ExpiresAt.IsZero() && !now.Before(i.ExpiresAt)
}

// newSecret returns a fresh api key: "sk-" plus 43 url-safe base64
// characters from a CSPRNG, 46 characters total.
func newSecret() (string, error) {
	buf := make([]byte, secretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return SecretPrefix + base64.RawURLEncoding.EncodeToString(buf), nil
}

func newSalt() ([]byte, error) {
	buf := make([]byte, saltBytes)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("read random: %w", err)
	}
	return buf, nil
}

// digestSecret derives the stored digest for a secret under the given salt.
func digestSecret(salt []byte, secret string) []byte {
	h := sha256.New()
	h.Write(salt)
	h.Write([]byte(secret))
	return h.Sum(nil)
}

// digestEqual compares two digests in constant time.
func digestEqual(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}

// ValidSecretFormat reports whether a presented token is shaped like an api
// key: 16-128 characters of [A-Za-z0-9_-]. Anything else is rejected before
// the store is consulted.
func ValidSecretFormat(s string) bool {
	if len(s) < minSecretLen || len(s) > maxSecretLen {
		return false
	}
	return validChars(s)
}

// ValidKeyID reports whether id is usable as a key identifier:
// 1-64 characters of [A-Za-z0-9_-].
func ValidKeyID(id string) bool {
	if len(id) < 1 || len(id) > maxKeyIDLen {
		return false
	}
	return validChars(id)
}

func validChars(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '-' || c == '_':
		default:
			return false
		}
	}
	return true
}
