package profiling

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// missingTokens are cell spellings treated as absent values, matching what
// spreadsheet exports and pandas readers produce for empty cells
var missingTokens = map[string]bool{
	"":     true,
	"na":   true,
	"n/a":  true,
	"nan":  true,
	"null": true,
	"none": true,
	"-":    true,
}

// IsMissing reports whether a cell carries no value
func IsMissing(v interface{}) bool {
	switch val := v.(type) {
	case nil:
		return true
	case float64:
		return math.IsNaN(val)
	case float32:
		return math.IsNaN(float64(val))
	case string:
		return missingTokens[strings.ToLower(strings.TrimSpace(val))]
	}
	return false
}

// ToFloat coerces a cell to a number. Booleans are not numbers here; the
// event normalizer handles them explicitly.
func ToFloat(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, !math.IsNaN(val) && !math.IsInf(val, 0)
	case float32:
		f := float64(val)
		return f, !math.IsNaN(f) && !math.IsInf(f, 0)
	case int:
		return float64(val), true
	case int8:
		return float64(val), true
	case int16:
		return float64(val), true
	case int32:
		return float64(val), true
	case int64:
		return float64(val), true
	case uint:
		return float64(val), true
	case uint8:
		return float64(val), true
	case uint16:
		return float64(val), true
	case uint32:
		return float64(val), true
	case uint64:
		return float64(val), true
	case string:
		return parseNumeric(val)
	}
	return 0, false
}

// parseNumeric parses spreadsheet-style numbers: thousands separators,
// accounting negatives "(12.5)", trailing percent signs
func parseNumeric(s string) (float64, bool) {
	clean := strings.TrimSpace(s)
	if clean == "" {
		return 0, false
	}

	negative := false
	if strings.HasPrefix(clean, "(") && strings.HasSuffix(clean, ")") {
		clean = strings.TrimSuffix(strings.TrimPrefix(clean, "("), ")")
		negative = true
	}
	clean = strings.TrimSuffix(clean, "%")
	if strings.Contains(clean, ".") || strings.Count(clean, ",") > 1 || thousandsGrouped(clean) {
		clean = strings.ReplaceAll(clean, ",", "")
	}
	clean = strings.TrimSpace(clean)

	val, err := strconv.ParseFloat(clean, 64)
	if err != nil || math.IsNaN(val) || math.IsInf(val, 0) {
		return 0, false
	}
	if negative {
		val = -val
	}
	return val, true
}

// thousandsGrouped reports "1,234"-style grouping (exactly three digits after
// the only comma)
func thousandsGrouped(s string) bool {
	idx := strings.Index(s, ",")
	if idx <= 0 {
		return false
	}
	tail := s[idx+1:]
	if len(tail) != 3 {
		return false
	}
	for _, r := range tail {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Label renders a cell as a stable group/category label. Integral floats
// print without a decimal part so 1 and 1.0 land in the same group.
func Label(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}
