// Package normalize turns free-form numeric input into usable float64 values.
//
// Every function here is total: malformed input becomes 0, never an error and
// never NaN or Inf. Callers that need to know whether a value was parseable
// should use ParseNumber.
package normalize

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// ToNumber coerces value to a finite float64. Numbers pass through, strings
// are parsed with either '.' or ',' as the decimal separator, and anything
// else (nil, empty string, unparseable text, NaN, Inf) yields 0.
func ToNumber(value any) float64 {
	switch v := value.(type) {
	case nil:
		return 0
	case float64:
		return Finite(v)
	case float32:
		return Finite(float64(v))
	case int:
		return float64(v)
	case int8:
		return float64(v)
	case int16:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	case uint:
		return float64(v)
	case uint8:
		return float64(v)
	case uint16:
		return float64(v)
	case uint32:
		return float64(v)
	case uint64:
		return float64(v)
	case json.Number:
		f, _ := ParseNumber(string(v))
		return f
	case string:
		f, _ := ParseNumber(v)
		return f
	case *float64:
		if v == nil {
			return 0
		}
		return Finite(*v)
	case *string:
		if v == nil {
			return 0
		}
		f, _ := ParseNumber(*v)
		return f
	case bool:
		return 0
	default:
		return 0
	}
}

// Finite maps NaN and ±Inf to 0 and returns every other value unchanged.
func Finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// NonNegative is Finite clamped at zero.
func NonNegative(v float64) float64 {
	v = Finite(v)
	if v < 0 {
		return 0
	}
	return v
}

// ParseNumber reads the leading number of s. It accepts '.' or ',' as the
// decimal separator; when both appear, the last one is the decimal separator
// and the other is treated as a thousands separator. Trailing text such as a
// unit suffix is ignored ("12,5kg" is 12.5). Exponents are read ("1.5e3" is
// 1500). The boolean reports whether any digits were found.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	prefix := leadingNumber(s)
	if prefix == "" {
		return 0, false
	}

	canonical := canonicalDecimal(prefix)
	f, err := strconv.ParseFloat(canonical, 64)
	if err != nil {
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// leadingNumber returns the longest prefix made of an optional sign followed
// by digits and separators, trimmed of dangling separators, plus an optional
// exponent.
func leadingNumber(s string) string {
	end := 0
	if s[0] == '-' || s[0] == '+' {
		end = 1
	}

	digits := false
	for end < len(s) {
		c := s[end]
		if c >= '0' && c <= '9' {
			digits = true
			end++
			continue
		}
		if c == '.' || c == ',' {
			end++
			continue
		}
		break
	}
	if !digits {
		return ""
	}

	mantissa := strings.TrimRight(s[:end], ".,")
	return mantissa + exponent(s[end:])
}

// exponent returns a leading "e<digits>" / "E-<digits>" of s, or "" when s
// does not start with a complete exponent ("3eggs" has none).
func exponent(s string) string {
	if len(s) < 2 || (s[0] != 'e' && s[0] != 'E') {
		return ""
	}
	end := 1
	if s[end] == '-' || s[end] == '+' {
		end++
	}
	start := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == start {
		return ""
	}
	return s[:end]
}

func canonicalDecimal(s string) string {
	lastDot := strings.LastIndexByte(s, '.')
	lastComma := strings.LastIndexByte(s, ',')

	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			// 1.234,5
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			// 1,234.5
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		if strings.Count(s, ",") > 1 {
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.Replace(s, ",", ".", 1)
		}
	case lastDot >= 0:
		if strings.Count(s, ".") > 1 {
			s = strings.ReplaceAll(s, ".", "")
		}
	}

	return s
}

// Round rounds v to the given number of decimal places.
func Round(v float64, decimals int) float64 {
	if decimals <= 0 {
		return math.Round(v)
	}

	factor := math.Pow(10, float64(decimals))
	return math.Round(v*factor) / factor
}
