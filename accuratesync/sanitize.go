package accuratesync

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Accurate mixes types across documents: dates arrive as DD/MM/YYYY or
// YYYY-MM-DD, amounts as numbers or "1,250.50" strings, ids as numbers or
// numeric strings. Everything passes through these before persistence.

var (
	canonicalDate = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	slashDate     = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)
)

// SanitizeDate normalizes an Accurate date to YYYY-MM-DD. DD/MM/YYYY values
// are rearranged and zero-padded; canonical values pass through; anything
// else becomes nil.
func SanitizeDate(raw string) *string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if m := slashDate.FindStringSubmatch(raw); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		s := fmt.Sprintf("%s-%02d-%02d", m[3], month, day)
		return &s
	}
	if canonicalDate.MatchString(raw) {
		return &raw
	}
	return nil
}

// SanitizeFloat coerces a JSON value to float64. Strings are parsed after
// stripping thousands separators. Unparseable input yields 0.
func SanitizeFloat(raw any) float64 {
	switch v := raw.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0
		}
		return f
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(v), ",", "")
		if s == "" {
			return 0
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

// SanitizeInt coerces a JSON value to an integer identifier. Numbers are
// truncated toward zero, strings must be fully numeric. Anything else is nil
// so optional foreign keys stay NULL instead of becoming 0.
func SanitizeInt(raw any) *int {
	switch v := raw.(type) {
	case float64:
		n := int(math.Trunc(v))
		return &n
	case int:
		n := v
		return &n
	case int64:
		n := int(v)
		return &n
	case json.Number:
		i, err := v.Int64()
		if err != nil {
			f, ferr := v.Float64()
			if ferr != nil {
				return nil
			}
			n := int(math.Trunc(f))
			return &n
		}
		n := int(i)
		return &n
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return nil
		}
		return &n
	default:
		return nil
	}
}

// SanitizeDecimal coerces a JSON value to a decimal for money columns,
// keeping the exact digits Accurate sent instead of a float round-trip.
func SanitizeDecimal(raw any) decimal.Decimal {
	switch v := raw.(type) {
	case float64:
		return decimal.NewFromFloat(v)
	case int:
		return decimal.NewFromInt(int64(v))
	case int64:
		return decimal.NewFromInt(v)
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		if err != nil {
			return decimal.Zero
		}
		return d
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(v), ",", "")
		if s == "" {
			return decimal.Zero
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Zero
		}
		return d
	default:
		return decimal.Zero
	}
}
