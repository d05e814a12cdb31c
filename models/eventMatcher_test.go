package models

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestStringSimilarity(t *testing.T) {
	cases := []struct {
		a, b     string
		expected float64
	}{
		{"Taylor Swift", "Taylor Swift", 1.0},
		{"Taylor Swift", "taylor swift!", 1.0},
		{"", "Taylor Swift", 0},
		{"Taylor Swift", "", 0},
		// containment scores by length ratio of the normalized strings
		{"bruno mars", "bruno mars live", 10.0 / 15.0},
	}
	for _, tc := range cases {
		got := StringSimilarity(tc.a, tc.b)
		if !almostEqual(got, tc.expected) {
			t.Fatalf("StringSimilarity(%q, %q) expected %v, got %v", tc.a, tc.b, got, tc.expected)
		}
	}
}

func TestStringSimilarityTypo(t *testing.T) {
	// one edit across 12 characters
	got := StringSimilarity("taylor swift", "tayler swift")
	if !almostEqual(got, 1.0-1.0/12.0) {
		t.Fatalf("expected %v, got %v", 1.0-1.0/12.0, got)
	}
	if got <= 0.8 {
		t.Fatalf("single-typo similarity should clear the outer fuzzy gate, got %v", got)
	}
}

func TestExtractCoreName(t *testing.T) {
	cases := []struct {
		in       string
		expected string
	}{
		{"Bruno Mars - The Romantic Tour", "bruno mars"},
		{"BTS World Tour 2026", "bts"},
		{"Adele in Concert", "adele"},
		{"The Weeknd", "weeknd"},
		{"Coldplay", "coldplay"},
		{"Tour", ""},
		{"", ""},
	}
	for _, tc := range cases {
		got := ExtractCoreName(tc.in)
		if got != tc.expected {
			t.Fatalf("ExtractCoreName(%q) expected %q, got %q", tc.in, tc.expected, got)
		}
	}
}
