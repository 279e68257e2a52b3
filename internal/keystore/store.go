package keystore

import (
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"
)

// Store is the file-backed key set consulted on every authenticated request.
// All methods are safe for concurrent use. Mutating operations persist to the
// backing file before committing the in-memory change, so a failed write
// leaves the store as it was.
type Store struct {
	path string

	mu      sync.RWMutex
	entries []entry
	index   map[string]*record
	usage   map[string]*Usage
}

// Open loads the key store at path. A missing file yields an empty store:
// authentication stays fail-closed until keys are issued.
func Open(path string) (*Store, error) {
	s := &Store{path: path}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload re-reads the backing file. Usage counters carry over by key id;
// counters for ids no longer present are dropped. Duplicate ids keep the
// first occurrence.
func (s *Store) Reload() error {
	parsed, err := parseFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		parsed = nil
	}

	kept := make([]entry, 0, len(parsed))
	index := make(map[string]*record)
	for _, e := range parsed {
		if e.rec == nil {
			kept = append(kept, e)
			continue
		}
		if _, dup := index[e.rec.ID]; dup {
			log.Printf("keystore event=skip_duplicate id=%s file=%s", e.rec.ID, s.path)
			continue
		}
		index[e.rec.ID] = e.rec
		kept = append(kept, e)
	}

	s.mu.Lock()
	usage := make(map[string]*Usage, len(index))
	for id := range index {
		if u, ok := s.usage[id]; ok {
			usage[id] = u
		} else {
			usage[id] = &Usage{}
		}
	}
	s.entries, s.index, s.usage = kept, index, usage
	s.mu.Unlock()

	log.Printf("keystore event=loaded keys=%d file=%s", len(index), s.path)
	return nil
}

// Authenticate resolves a presented secret to its key. The scan visits every
// record and compares salted digests in constant time, so response timing
// does not reveal which secrets exist or where a match sits. An empty store
// rejects everything.
func (s *Store) Authenticate(secret string) (Info, error) {
	if !ValidSecretFormat(secret) {
		return Info{}, ErrMalformedKey()
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.index) == 0 {
		return Info{}, ErrNoKeys()
	}

	var match *record
	for _, e := range s.entries {
		if e.rec == nil {
			continue
		}
		if digestEqual(digestSecret(e.rec.Salt, secret), e.rec.Digest) {
			match = e.rec
			// No early exit: every record is visited regardless of where
			// the match sits.
		}
	}
	if match == nil {
		return Info{}, ErrUnknownKey()
	}
	if match.Revoked {
		return Info{}, ErrKeyRevoked(match.ID)
	}
	if match.expired(time.Now()) {
		return Info{}, ErrKeyExpired(match.ID)
	}
	return s.infoLocked(match), nil
}

// Issue creates a key and persists it. The returned secret is shown exactly
// once; only its salted digest is retained. A rate of 0 defers to the
// configured default, a zero expiry never expires.
func (s *Store) Issue(id string, rate int, expires time.Time) (string, error) {
	if !ValidKeyID(id) {
		return "", ErrInvalidKeyID(id)
	}
	if rate < 0 {
		return "", fmt.Errorf("rate limit must be >= 0, got %d", rate)
	}
	secret, err := newSecret()
	if err != nil {
		return "", err
	}
	salt, err := newSalt()
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.index[id]; ok {
		return "", ErrDuplicateKey(id)
	}
	rec := &record{
		ID:        id,
		Salt:      salt,
		Digest:    digestSecret(salt, secret),
		RateLimit: rate,
		ExpiresAt: expires,
	}
	next := make([]entry, 0, len(s.entries)+2)
	if len(s.entries) == 0 {
		next = append(next, entry{raw: fileHeader})
	}
	next = append(next, s.entries...)
	next = append(next, entry{rec: rec})

	if err := saveEntries(s.path, next); err != nil {
		return "", err
	}
	s.entries = next
	s.index[id] = rec
	s.usage[id] = &Usage{}
	return secret, nil
}

// Revoke disables a key immediately while keeping its entry for audit.
// Requests already admitted under the key run to completion. Revoking an
// already revoked key is a no-op.
func (s *Store) Revoke(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.index[id]
	if !ok {
		return ErrNotFound(id)
	}
	if rec.Revoked {
		return nil
	}
	rec.Revoked = true
	if err := saveEntries(s.path, s.entries); err != nil {
		rec.Revoked = false
		return err
	}
	return nil
}

// Remove deletes a key entry entirely.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.index[id]; !ok {
		return ErrNotFound(id)
	}
	next := make([]entry, 0, len(s.entries))
	for _, e := range s.entries {
		if e.rec != nil && e.rec.ID == id {
			continue
		}
		next = append(next, e)
	}
	if err := saveEntries(s.path, next); err != nil {
		return err
	}
	s.entries = next
	delete(s.index, id)
	delete(s.usage, id)
	return nil
}

// Rotate replaces a key's secret in place, preserving its rate limit and,
// unless expires overrides it (non-nil), its expiry. A rotated key is active
// even if it was revoked.
func (s *Store) Rotate(id string, expires *time.Time) (string, error) {
	secret, err := newSecret()
	if err != nil {
		return "", err
	}
	salt, err := newSalt()
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.index[id]
	if !ok {
		return "", ErrNotFound(id)
	}
	prev := *rec
	rec.Salt = salt
	rec.Digest = digestSecret(salt, secret)
	rec.Revoked = false
	if expires != nil {
		rec.ExpiresAt = *expires
	}
	if err := saveEntries(s.path, s.entries); err != nil {
		*rec = prev
		return "", err
	}
	return secret, nil
}

// RecordUse bumps the usage counters for an admitted request. Ids removed
// between authentication and admission are dropped silently.
func (s *Store) RecordUse(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.usage[id]
	if !ok {
		return
	}
	u.Requests++
	u.LastUsed = time.Now()
}

// Lookup returns the public view of a single key.
func (s *Store) Lookup(id string) (Info, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.index[id]
	if !ok {
		return Info{}, false
	}
	return s.infoLocked(rec), true
}

// List returns every key's public view in file order. Secrets are never
// exposed.
func (s *Store) List() []Info {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Info, 0, len(s.index))
	for _, e := range s.entries {
		if e.rec == nil {
			continue
		}
		out = append(out, s.infoLocked(e.rec))
	}
	return out
}

// Len returns the number of keys, active or not.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.index)
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

func (s *Store) infoLocked(r *record) Info {
	u := Usage{}
	if p := s.usage[r.ID]; p != nil {
		u = *p
	}
	return Info{
		ID:        r.ID,
		RateLimit: r.RateLimit,
		Revoked:   r.Revoked,
		ExpiresAt: r.ExpiresAt,
		Usage:     u,
	}
}
