package main

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var relativeExpiry = regexp.MustCompile(`^(\d+)([dhm])$`)

// parseExpiry turns a user-facing expiry into a timestamp. Accepts RFC 3339
// ("2026-03-01T00:00:00Z"), a zone-less local timestamp, or a relative
// duration ("30d", "24h", "60m"). Empty input means no expiry.
func parseExpiry(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if m := relativeExpiry.FindStringSubmatch(s); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid expiry %q: %w", s, err)
		}
		var unit time.Duration
		switch m[2] {
		case "d":
			unit = 24 * time.Hour
		case "h":
			unit = time.Hour
		case "m":
			unit = time.Minute
		}
		return time.Now().Add(time.Duration(n) * unit), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02T15:04:05", s, time.Local); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid expiry %q: use RFC 3339 or relative 30d/24h/60m", s)
}
