package domain

import (
	"math"
	"strconv"
	"strings"
)

var digitReplacer = strings.NewReplacer(
	"۰", "0", "۱", "1", "۲", "2", "۳", "3", "۴", "4",
	"۵", "5", "۶", "6", "۷", "7", "۸", "8", "۹", "9",
	"٠", "0", "١", "1", "٢", "2", "٣", "3", "٤", "4",
	"٥", "5", "٦", "6", "٧", "7", "٨", "8", "٩", "9",
	"٬", "", ",", "", "٫", ".", "\u200c", "",
)

// ParseNumber parses a numeric cell, accepting Persian and Arabic-Indic
// digits and separators. ok is false for blank, non-numeric, NaN and
// infinite values.
func ParseNumber(s string) (v float64, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	s = digitReplacer.Replace(s)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// parseFloatOrZero parses a numeric cell, returning 0 when it is missing.
func parseFloatOrZero(s string) float64 {
	v, _ := ParseNumber(s)
	return v
}

// parseOptional parses a numeric cell, returning nil when it is missing.
func parseOptional(s string) *float64 {
	v, ok := ParseNumber(s)
	if !ok {
		return nil
	}
	return &v
}

// NormalizeID renders an identifier cell as a string. Integral floats such
// as "12.0" (a spreadsheet export artifact) become "12" so that IDs join
// against shapefile attributes.
func NormalizeID(s string) string {
	s = strings.TrimSpace(s)
	if IsUnknown(s) {
		return Unknown
	}
	if v, ok := ParseNumber(s); ok && v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatInt(int64(v), 10)
	}
	return s
}

// IsUnknown reports whether a categorical cell carries no information.
func IsUnknown(s string) bool {
	switch strings.TrimSpace(s) {
	case "", Unknown, "نامشخص", "nan", "NaN", "None", "<NA>":
		return true
	default:
		return false
	}
}

// orUnknown returns the trimmed value, or Unknown when it is blank.
func orUnknown(s string) string {
	s = strings.TrimSpace(s)
	if IsUnknown(s) {
		return Unknown
	}
	return s
}
