package contracts

import (
	"fmt"
	"strconv"
	"strings"
)

// ⭐ SSOT: percent parsing and formatting. Returns are fractions
// everywhere in the app (0.27 = 27%); only display code formats them.

// ParsePercent converts a human percent form to a fraction.
// "484.1%" → 4.841, "0.27" → 0.27. A trailing % marks percent units;
// bare numbers are taken as fractions already.
func ParsePercent(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty percent value")
	}

	if strings.HasSuffix(s, "%") {
		body := strings.TrimSpace(strings.TrimSuffix(s, "%"))
		v, err := strconv.ParseFloat(body, 64)
		if err != nil {
			return 0, fmt.Errorf("parse percent %q: %w", s, err)
		}
		return v / 100, nil
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse percent %q: %w", s, err)
	}
	return v, nil
}

// FormatPercent renders a fraction for display: 0.271 → "27.1%"
func FormatPercent(f float64) string {
	return strconv.FormatFloat(f*100, 'f', 1, 64) + "%"
}

// FormatSignedPercent renders with an explicit sign for non-negative
// values: 0.271 → "+27.1%", -0.05 → "-5.0%"
func FormatSignedPercent(f float64) string {
	if f >= 0 {
		return "+" + FormatPercent(f)
	}
	return FormatPercent(f)
}
