// Package survival turns raw time/event columns into a validated survival
// series and fits Kaplan-Meier curves and log-rank comparisons on it.
package survival

import (
	"fmt"
	"sort"
	"strings"

	"scifig/internal/profiling"

	"github.com/rs/zerolog"
)

// Level grades a normalization warning
type Level string

const (
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Warning is a non-fatal note produced while decoding an event column
type Warning struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

func (w Warning) String() string {
	return strings.ToUpper(string(w.Level)) + ": " + w.Message
}

// Encoding names the strategy that decoded an event column
const (
	EncodingBinary     = "binary"
	EncodingComposite  = "composite_status"
	EncodingVocabulary = "vocabulary"
	EncodingNumeric    = "numeric_two_level"
	EncodingUnresolved = "unresolved"
)

// NormalizedEvents is an event column mapped to 0 (censored) / 1 (event)
type NormalizedEvents struct {
	Values       []int
	Encoding     string
	Warnings     []Warning
	Unrecognized int // distinct present values defaulted to censored
}

// Ambiguous reports whether some present value was read as censored only
// because it could not be interpreted
func (n NormalizedEvents) Ambiguous() bool {
	return n.Encoding == EncodingUnresolved || n.Unrecognized > 0
}

var (
	eventTerms = map[string]bool{
		"yes": true, "true": true, "dead": true, "death": true, "deceased": true,
		"event": true, "occurred": true, "positive": true, "1": true,
	}
	censoredTerms = map[string]bool{
		"no": true, "false": true, "alive": true, "living": true, "censored": true,
		"no event": true, "negative": true, "0": true,
	}
)

// eventValue is one distinct cell of an event column
type eventValue struct {
	key    string // lower-cased, trimmed label
	num    float64
	isNum  bool
	isText bool
	isBool bool
}

func newEventValue(v interface{}) eventValue {
	ev := eventValue{key: strings.ToLower(profiling.Label(v))}
	switch val := v.(type) {
	case bool:
		ev.isBool = true
		if val {
			ev.num = 1
		}
	case string:
		ev.isText = true
		ev.num, ev.isNum = profiling.ToFloat(val)
	default:
		ev.num, ev.isNum = profiling.ToFloat(val)
	}
	return ev
}

// strategy decodes an event column when its distinct values match
type strategy struct {
	name    string
	matches func(distinct []eventValue) bool
	decode  func(distinct []eventValue) (map[string]int, []Warning)
}

// strategies are tried in order; the first match decodes the column
var strategies = []strategy{
	{name: EncodingBinary, matches: isBinary, decode: decodeBinary},
	{name: EncodingComposite, matches: isComposite, decode: decodeComposite},
	{name: EncodingVocabulary, matches: isVocabulary, decode: decodeVocabulary},
	{name: EncodingNumeric, matches: isNumericTwoLevel, decode: decodeNumericTwoLevel},
}

func isBinary(distinct []eventValue) bool {
	for _, v := range distinct {
		if v.isBool {
			continue
		}
		if v.isText || !v.isNum || (v.num != 0 && v.num != 1) {
			return false
		}
	}
	return true
}

func decodeBinary(distinct []eventValue) (map[string]int, []Warning) {
	mapping := make(map[string]int, len(distinct))
	for _, v := range distinct {
		mapping[v.key] = int(v.num)
	}
	return mapping, nil
}

func isComposite(distinct []eventValue) bool {
	for _, v := range distinct {
		if strings.Contains(v.key, ":") {
			return true
		}
	}
	return false
}

func decodeComposite(distinct []eventValue) (map[string]int, []Warning) {
	mapping := make(map[string]int, len(distinct))
	var warnings []Warning
	for _, v := range distinct {
		switch {
		case strings.HasPrefix(v.key, "1:") || strings.Contains(v.key, "deceased") || strings.Contains(v.key, "dead"):
			mapping[v.key] = 1
		case strings.HasPrefix(v.key, "0:") || strings.Contains(v.key, "living") || strings.Contains(v.key, "alive"):
			mapping[v.key] = 0
		default:
			mapping[v.key] = 0
			warnings = append(warnings, Warning{
				Level:   LevelWarning,
				Message: fmt.Sprintf("Unknown colon-separated event value '%s' treated as censored (0)", v.key),
			})
		}
	}
	return mapping, warnings
}

func inVocabulary(key string) bool {
	return eventTerms[key] || censoredTerms[key]
}

// isVocabulary matches when every value is a known term, or when at least
// one is and the column is not purely numeric
func isVocabulary(distinct []eventValue) bool {
	all, some, numeric := true, false, true
	for _, v := range distinct {
		if inVocabulary(v.key) {
			some = true
		} else {
			all = false
		}
		if !v.isNum {
			numeric = false
		}
	}
	return all || (some && !numeric)
}

func decodeVocabulary(distinct []eventValue) (map[string]int, []Warning) {
	mapping := make(map[string]int, len(distinct))
	var warnings []Warning
	for _, v := range distinct {
		switch {
		case eventTerms[v.key]:
			mapping[v.key] = 1
		case censoredTerms[v.key]:
			mapping[v.key] = 0
		default:
			mapping[v.key] = 0
			warnings = append(warnings, Warning{
				Level:   LevelWarning,
				Message: fmt.Sprintf("Unknown event value '%s' treated as censored (0)", v.key),
			})
		}
	}
	return mapping, warnings
}

func isNumericTwoLevel(distinct []eventValue) bool {
	levels := make(map[float64]bool)
	for _, v := range distinct {
		if !v.isNum {
			return false
		}
		levels[v.num] = true
	}
	if len(levels) == 2 {
		return true
	}
	for l := range levels {
		if l != 0 && l != 1 {
			return false
		}
	}
	return true
}

func decodeNumericTwoLevel(distinct []eventValue) (map[string]int, []Warning) {
	levels := make([]float64, 0, 2)
	seen := make(map[float64]bool)
	for _, v := range distinct {
		if !seen[v.num] {
			seen[v.num] = true
			levels = append(levels, v.num)
		}
	}
	sort.Float64s(levels)

	mapping := make(map[string]int, len(distinct))
	for _, v := range distinct {
		switch {
		case len(levels) == 2 && v.num == levels[1]:
			mapping[v.key] = 1
		case len(levels) == 2:
			mapping[v.key] = 0
		default:
			mapping[v.key] = int(v.num)
		}
	}
	return mapping, nil
}

// Normalizer decodes event columns into 0/1 indicators
type Normalizer struct {
	logger zerolog.Logger
}

// NewNormalizer creates a normalizer that logs its warnings
func NewNormalizer(logger zerolog.Logger) *Normalizer {
	return &Normalizer{logger: logger.With().Str("component", "event_normalizer").Logger()}
}

// Normalize decodes an event column. It never fails: an unrecognized
// encoding yields an all-censored column with an error-level warning, which
// validation then rejects.
func (n *Normalizer) Normalize(column string, values []interface{}) NormalizedEvents {
	var distinct []eventValue
	seen := make(map[string]bool)
	missing := 0
	for _, v := range values {
		if profiling.IsMissing(v) {
			missing++
			continue
		}
		ev := newEventValue(v)
		if !seen[ev.key] {
			seen[ev.key] = true
			distinct = append(distinct, ev)
		}
	}

	result := NormalizedEvents{Values: make([]int, len(values)), Encoding: EncodingUnresolved}

	var mapping map[string]int
	for _, s := range strategies {
		if len(distinct) == 0 || !s.matches(distinct) {
			continue
		}
		mapping, result.Warnings = s.decode(distinct)
		result.Encoding = s.name
		result.Unrecognized = len(result.Warnings)
		break
	}

	if mapping == nil {
		result.Unrecognized = len(distinct)
		labels := make([]string, len(distinct))
		for i, v := range distinct {
			labels[i] = v.key
		}
		result.Warnings = append(result.Warnings,
			Warning{
				Level:   LevelError,
				Message: fmt.Sprintf("Cannot interpret event variable '%s' with values: [%s]", column, strings.Join(labels, ", ")),
			},
			Warning{
				Level:   LevelWarning,
				Message: "Assuming all observations are censored (0). Please check your data format.",
			},
		)
	} else {
		for i, v := range values {
			if profiling.IsMissing(v) {
				continue
			}
			result.Values[i] = mapping[newEventValue(v).key]
		}
	}

	if missing > 0 {
		result.Warnings = append(result.Warnings, Warning{
			Level:   LevelWarning,
			Message: fmt.Sprintf("%d missing event value(s) treated as censored (0)", missing),
		})
	}

	for _, w := range result.Warnings {
		evt := n.logger.Warn()
		if w.Level == LevelError {
			evt = n.logger.Error()
		}
		evt.Str("column", column).Str("encoding", result.Encoding).Msg(w.Message)
	}

	return result
}
