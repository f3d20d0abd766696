package domain

import (
	"math"
	"strconv"
	"strings"
)

// NormalizeID canonicalizes a reservation identifier. The historical export
// renders numeric ids as floats ("646582709601.0") while live writes store
// them as plain strings, so both must collapse to the same key. Idempotent.
func NormalizeID(raw string) string {
	s := strings.TrimSpace(raw)
	if _, err := strconv.ParseInt(s, 10, 64); err == nil {
		return s
	}
	// Literal trim first: ids longer than a float's 15-16 significant digits
	// must never round-trip through ParseFloat.
	if p, ok := strings.CutSuffix(s, ".0"); ok && allDigits(p) {
		return p
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		if t := math.Trunc(f); f == t && !math.IsInf(f, 0) {
			return strconv.FormatInt(int64(t), 10)
		}
		s = strconv.FormatFloat(f, 'f', -1, 64)
	}
	s = strings.TrimSuffix(s, ".0")
	return strings.TrimSpace(s)
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// NormalizeIDValue accepts the loosely-typed forms ids arrive in (CSV cells
// parsed as float, JSON numbers, plain strings) and canonicalizes them.
func NormalizeIDValue(raw any) string {
	switch v := raw.(type) {
	case string:
		return NormalizeID(v)
	case float64:
		if t := math.Trunc(v); v == t && !math.IsInf(v, 0) {
			return strconv.FormatInt(int64(t), 10)
		}
		return NormalizeID(strconv.FormatFloat(v, 'f', -1, 64))
	case float32:
		return NormalizeIDValue(float64(v))
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	}
	return ""
}
