package forms

import (
	"math"
	"strconv"
	"strings"
	"unicode"
)

const (
	PINLength         = 4
	DurationMaxDigits = 4
)

// Number parses raw numeric text. Blank or unparsable input yields nil, never an error.
func Number(raw string) *float64 {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// OptionalString trims raw and returns nil when nothing is left.
func OptionalString(raw string) *string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	return &s
}

// Digits keeps only the ASCII digits of raw, capped at max characters.
func Digits(raw string, max int) string {
	var sb strings.Builder
	for _, r := range raw {
		if sb.Len() >= max {
			break
		}
		if r <= unicode.MaxASCII && unicode.IsDigit(r) {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// Count is used for sets and reps: absent or negative becomes 0, fractions are truncated.
func Count(raw string) int {
	v := Number(raw)
	if v == nil || *v < 0 {
		return 0
	}
	if *v > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(math.Trunc(*v))
}

// Amount is used for exercise weight: absent or negative becomes 0.
func Amount(raw string) float64 {
	v := Number(raw)
	if v == nil || *v < 0 {
		return 0
	}
	return *v
}

// Minutes parses a workout duration. Only digits count, and 0 means no duration.
func Minutes(raw string) *int {
	digits := Digits(raw, len(raw))
	if digits == "" {
		return nil
	}
	m, err := strconv.Atoi(digits)
	if err != nil || m == 0 {
		return nil
	}
	return &m
}

func FormatNumber(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func FormatInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func FormatString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
