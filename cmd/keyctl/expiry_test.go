package main

import (
	"testing"
	"time"
)

func TestParseExpiry_Empty(t *testing.T) {
	got, err := parseExpiry("")
	if err != nil || !got.IsZero() {
		t.Fatalf("got %v err=%v", got, err)
	}
}

func TestParseExpiry_Relative(t *testing.T) {
	cases := map[string]time.Duration{
		"30d": 30 * 24 * time.Hour,
		"24h": 24 * time.Hour,
		"60m": 60 * time.Minute,
	}
	for in, d := range cases {
		before := time.Now()
		got, err := parseExpiry(in)
		if err != nil {
			t.Fatalf("%s: %v", in, err)
		}
		want := before.Add(d)
		if got.Before(want.Add(-time.Minute)) || got.After(want.Add(time.Minute)) {
			t.Fatalf("%s: got %v, want about %v", in, got, want)
		}
	}
}

func TestParseExpiry_Absolute(t *testing.T) {
	got, err := parseExpiry("2026-03-01T00:00:00Z")
	if err != nil {
		t.Fatalf("rfc3339: %v", err)
	}
	if got.Year() != 2026 || got.Month() != time.March {
		t.Fatalf("got %v", got)
	}
	// zone-less timestamps are taken as local time
	got, err = parseExpiry("2026-03-01T00:00:00")
	if err != nil {
		t.Fatalf("legacy: %v", err)
	}
	if got.Location() != time.Local {
		t.Fatalf("location=%v", got.Location())
	}
}

func TestParseExpiry_Invalid(t *testing.T) {
	for _, in := range []string{"soon", "30x", "d30", "2026-13-99"} {
		if _, err := parseExpiry(in); err == nil {
			t.Fatalf("%q: expected error", in)
		}
	}
}
