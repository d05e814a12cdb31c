package utils

import "testing"

func TestExtractEmail(t *testing.T) {
	cases := []struct {
		in       string
		expected string
	}{
		{"account ops@venue.test active since may", "ops@venue.test"},
		{"two a@b.test then c@d.test", "a@b.test"},
		{"no address", ""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := ExtractEmail(tc.in); got != tc.expected {
			t.Fatalf("ExtractEmail(%q) expected %q, got %q", tc.in, tc.expected, got)
		}
	}
}

func TestCleanString(t *testing.T) {
	if got := CleanString("  "); got != nil {
		t.Fatalf("blank expected nil, got %q", *got)
	}
	if got := CleanString(" x "); got == nil || *got != "x" {
		t.Fatalf("expected trimmed value, got %v", got)
	}
}
