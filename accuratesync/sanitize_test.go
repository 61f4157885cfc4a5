package accuratesync

import (
	"encoding/json"
	"testing"
)

func TestSanitizeDate(t *testing.T) {
	strPtr := func(s string) *string { return &s }

	cases := []struct {
		name string
		in   string
		want *string
	}{
		{"slash format", "25/08/2025", strPtr("2025-08-25")},
		{"slash format single digits", "1/2/2025", strPtr("2025-02-01")},
		{"canonical passthrough", "2025-08-25", strPtr("2025-08-25")},
		{"empty", "", nil},
		{"whitespace", "   ", nil},
		{"garbage", "not a date", nil},
		{"two segments", "08/2025", nil},
		{"non-numeric segments", "a/b/2025", nil},
		{"two digit year", "25/08/25", nil},
		{"partial canonical", "2025-08", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := SanitizeDate(tc.in)
			if (got == nil) != (tc.want == nil) {
				t.Fatalf("SanitizeDate(%q) = %v, want %v", tc.in, got, tc.want)
			}
			if got != nil && *got != *tc.want {
				t.Fatalf("SanitizeDate(%q) = %q, want %q", tc.in, *got, *tc.want)
			}
		})
	}
}

func TestSanitizeFloat(t *testing.T) {
	cases := []struct {
		name string
		in   any
		want float64
	}{
		{"number", float64(42.5), 42.5},
		{"int", 7, 7},
		{"plain string", "12.25", 12.25},
		{"thousands separators", "1,250,000.50", 1250000.50},
		{"empty string", "", 0},
		{"garbage string", "abc", 0},
		{"nil", nil, 0},
		{"bool", true, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SanitizeFloat(tc.in); got != tc.want {
				t.Fatalf("SanitizeFloat(%v) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

func TestSanitizeInt(t *testing.T) {
	intPtr := func(n int) *int { return &n }

	cases := []struct {
		name string
		in   any
		want *int
	}{
		{"whole number", float64(101), intPtr(101)},
		{"fractional truncates", float64(12.9), intPtr(12)},
		{"negative fractional truncates toward zero", float64(-3.7), intPtr(-3)},
		{"numeric string", "205", intPtr(205)},
		{"padded numeric string", " 205 ", intPtr(205)},
		{"non-numeric string", "12a", nil},
		{"empty string", "", nil},
		{"nil", nil, nil},
		{"bool", false, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := SanitizeInt(tc.in)
			if (got == nil) != (tc.want == nil) {
				t.Fatalf("SanitizeInt(%v) = %v, want %v", tc.in, got, tc.want)
			}
			if got != nil && *got != *tc.want {
				t.Fatalf("SanitizeInt(%v) = %d, want %d", tc.in, *got, *tc.want)
			}
		})
	}
}

func TestSanitizeDecimal(t *testing.T) {
	cases := []struct {
		name string
		in   any
		want string
	}{
		{"number", float64(1250.5), "1250.5"},
		{"string with separators", "1,250,000.50", "1250000.5"},
		{"json number", json.Number("99.99"), "99.99"},
		{"empty string", "", "0"},
		{"garbage", "n/a", "0"},
		{"nil", nil, "0"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SanitizeDecimal(tc.in).String(); got != tc.want {
				t.Fatalf("SanitizeDecimal(%v) = %s, want %s", tc.in, got, tc.want)
			}
		})
	}
}
