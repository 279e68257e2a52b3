package keystore

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gatewayd/internal/common/fsutil"
)

// Key file grammar, one entry per line:
//
//	key_id:sha256$<salt-hex>$<digest-hex>[:<rate-limit>][:<status>][:<expires>]
//
// '#' comments and blank lines are kept verbatim across rewrites. Legacy
// plaintext entries (key_id:secret[:rate-limit][:expires]) are accepted on
// read and upgraded to the hashed form on the next write. The expires field
// is RFC 3339 and may contain colons, so splitting is bounded.

const (
	hashPrefix    = "sha256$"
	statusActive  = "active"
	statusRevoked = "revoked"

	fileHeader = "# API keys - format: key_id:sha256$salt$digest[:rate_limit][:status][:expires]"

	// Older files carry bare local timestamps without a zone.
	legacyExpiryLayout = "2006-01-02T15:04:05"
)

// entry is one line of the key file: either a verbatim comment/blank line or
// a parsed key record.
type entry struct {
	raw string
	rec *record
}

// parseFile reads the key file into ordered entries. Unparseable key lines
// are dropped with a warning, matching the tolerant reader this replaces.
func parseFile(path string) ([]entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var entries []entry
	sc := bufio.NewScanner(f)
	lineNum := 0
	for sc.Scan() {
		lineNum++
		raw := sc.Text()
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			entries = append(entries, entry{raw: raw})
			continue
		}
		rec, err := parseLine(trimmed)
		if err != nil {
			log.Printf("keystore event=skip_line file=%s line=%d err=%v", path, lineNum, err)
			continue
		}
		entries = append(entries, entry{rec: rec})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", path, err)
	}
	return entries, nil
}

// parseLine parses one key entry, hashed or legacy plaintext.
func parseLine(s string) (*record, error) {
	head, rest, ok := strings.Cut(s, ":")
	if !ok {
		return nil, fmt.Errorf("missing ':' separator")
	}
	id := strings.TrimSpace(head)
	if !ValidKeyID(id) {
		return nil, fmt.Errorf("invalid key id %q", id)
	}
	rest = strings.TrimSpace(rest)
	if strings.HasPrefix(rest, hashPrefix) {
		return parseHashedEntry(id, rest)
	}
	return parsePlainEntry(id, rest)
}

func parseHashedEntry(id, rest string) (*record, error) {
	fields := strings.SplitN(rest, ":", 4) // hash[:rate][:status][:expires]
	salt, digest, err := parseHash(fields[0])
	if err != nil {
		return nil, err
	}
	rec := &record{ID: id, Salt: salt, Digest: digest}
	if len(fields) > 1 {
		if rec.RateLimit, err = parseRate(fields[1]); err != nil {
			return nil, err
		}
	}
	if len(fields) > 2 {
		switch strings.TrimSpace(fields[2]) {
		case "", statusActive:
		case statusRevoked:
			rec.Revoked = true
		default:
			return nil, fmt.Errorf("unknown status %q", strings.TrimSpace(fields[2]))
		}
	}
	if len(fields) > 3 {
		if rec.ExpiresAt, err = parseExpiry(fields[3]); err != nil {
			return nil, err
		}
	}
	return rec, nil
}

// parsePlainEntry hashes a legacy plaintext secret under a fresh salt.
// Plaintext lines have no status field.
func parsePlainEntry(id, rest string) (*record, error) {
	fields := strings.SplitN(rest, ":", 3) // secret[:rate][:expires]
	secret := strings.TrimSpace(fields[0])
	if !ValidSecretFormat(secret) {
		return nil, fmt.Errorf("invalid secret format for %q", id)
	}
	salt, err := newSalt()
	if err != nil {
		return nil, err
	}
	rec := &record{ID: id, Salt: salt, Digest: digestSecret(salt, secret)}
	if len(fields) > 1 {
		if rec.RateLimit, err = parseRate(fields[1]); err != nil {
			return nil, err
		}
	}
	if len(fields) > 2 {
		if rec.ExpiresAt, err = parseExpiry(fields[2]); err != nil {
			return nil, err
		}
	}
	return rec, nil
}

func parseHash(s string) (salt, digest []byte, err error) {
	parts := strings.Split(strings.TrimSpace(s), "$")
	if len(parts) != 3 || parts[0] != "sha256" {
		return nil, nil, fmt.Errorf("malformed hash field")
	}
	if salt, err = hex.DecodeString(parts[1]); err != nil {
		return nil, nil, fmt.Errorf("decode salt: %w", err)
	}
	if digest, err = hex.DecodeString(parts[2]); err != nil {
		return nil, nil, fmt.Errorf("decode digest: %w", err)
	}
	if len(digest) != sha256.Size {
		return nil, nil, fmt.Errorf("digest length %d, want %d", len(digest), sha256.Size)
	}
	return salt, digest, nil
}

func parseRate(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid rate limit %q", s)
	}
	return n, nil
}

func parseExpiry(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(legacyExpiryLayout, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid expiry %q", s)
	}
	return t, nil
}

// formatLine serializes a record. Trailing empty fields are omitted the way
// the management tooling always wrote them.
func formatLine(r *record) string {
	var b strings.Builder
	b.WriteString(r.ID)
	b.WriteByte(':')
	b.WriteString(hashPrefix)
	b.WriteString(hex.EncodeToString(r.Salt))
	b.WriteByte('$')
	b.WriteString(hex.EncodeToString(r.Digest))

	var rate, status, expires string
	if r.RateLimit > 0 {
		rate = strconv.Itoa(r.RateLimit)
	}
	if r.Revoked {
		status = statusRevoked
	}
	if !r.ExpiresAt.IsZero() {
		expires = r.ExpiresAt.Format(time.RFC3339)
	}
	if rate != "" || status != "" || expires != "" {
		b.WriteByte(':')
		b.WriteString(rate)
	}
	if status != "" || expires != "" {
		b.WriteByte(':')
		b.WriteString(status)
	}
	if expires != "" {
		b.WriteByte(':')
		b.WriteString(expires)
	}
	return b.String()
}

// saveEntries writes the whole file atomically with owner-only permissions.
func saveEntries(path string, entries []entry) error {
	var buf bytes.Buffer
	for _, e := range entries {
		if e.rec != nil {
			buf.WriteString(formatLine(e.rec))
		} else {
			buf.WriteString(e.raw)
		}
		buf.WriteByte('\n')
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create key dir: %w", err)
	}
	return fsutil.WriteFileAtomic(path, buf.Bytes(), 0o600)
}
