package contracts

import (
	"math"
	"testing"
)

func TestParsePercent(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    float64
		wantErr bool
	}{
		{"percent form", "484.1%", 4.841, false},
		{"bare fraction", "0.27", 0.27, false},
		{"percent with spaces", "  7.1 % ", 0.071, false},
		{"negative percent", "-5.0%", -0.05, false},
		{"zero", "0", 0, false},
		{"empty", "", 0, true},
		{"junk", "soon", 0, true},
		{"junk with percent", "n/a%", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePercent(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParsePercent(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if err == nil && math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("ParsePercent(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestFormatPercent(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0.271, "27.1%"},
		{0, "0.0%"},
		{-0.05, "-5.0%"},
		{4.841, "484.1%"},
	}

	for _, tt := range tests {
		if got := FormatPercent(tt.in); got != tt.want {
			t.Errorf("FormatPercent(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatSignedPercent(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0.271, "+27.1%"},
		{0, "+0.0%"},
		{-0.05, "-5.0%"},
	}

	for _, tt := range tests {
		if got := FormatSignedPercent(tt.in); got != tt.want {
			t.Errorf("FormatSignedPercent(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPercentRoundTrip(t *testing.T) {
	// Formatting then parsing returns the fraction (within display precision)
	for _, f := range []float64{0.271, -0.05, 1.0, 0} {
		s := FormatPercent(f)
		got, err := ParsePercent(s)
		if err != nil {
			t.Fatalf("ParsePercent(%q) failed: %v", s, err)
		}
		if math.Abs(got-f) > 0.0005 {
			t.Errorf("round trip %v → %q → %v", f, s, got)
		}
	}
}
