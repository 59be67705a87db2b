package observation

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// Rejection explains why a raw value could not be used as a number.
type Rejection int

const (
	RejectNone Rejection = iota
	RejectNull
	RejectEmpty
	RejectSentinel
	RejectAlphabetic
	RejectUnparseable
	RejectNonFinite
	RejectUnsupported
	// RejectMissingKey is raised by the assembler for rows without a
	// country or indicator name.
	RejectMissingKey
)

func (r Rejection) String() string {
	switch r {
	case RejectNone:
		return "none"
	case RejectNull:
		return "null"
	case RejectEmpty:
		return "empty"
	case RejectSentinel:
		return "sentinel"
	case RejectAlphabetic:
		return "alphabetic"
	case RejectUnparseable:
		return "unparseable"
	case RejectNonFinite:
		return "non_finite"
	case RejectUnsupported:
		return "unsupported_type"
	case RejectMissingKey:
		return "missing_key"
	default:
		return "unknown"
	}
}

// sentinelVocabulary holds the lower-cased placeholder strings that data
// providers use instead of a number.
var sentinelVocabulary = map[string]struct{}{
	"other":          {},
	"n/a":            {},
	"na":             {},
	"null":           {},
	"none":           {},
	"unknown":        {},
	"not available":  {},
	"not applicable": {},
}

// IsSentinel reports whether s, ignoring case and surrounding space, is one
// of the known placeholder strings.
func IsSentinel(s string) bool {
	_, ok := sentinelVocabulary[strings.ToLower(strings.TrimSpace(s))]
	return ok
}

// Classify converts v to a finite float64.  When v cannot be used the
// returned Rejection says why; the float is then 0.  Classify never panics.
func Classify(v any) (float64, Rejection) {
	switch x := v.(type) {
	case nil:
		return 0, RejectNull
	case string:
		return classifyText(x)
	case []byte:
		return classifyText(string(x))
	case json.Number:
		return classifyText(x.String())
	case fmt.Stringer:
		return classifyText(x.String())
	case bool:
		// Booleans render as words and are treated like any alphabetic label.
		return 0, RejectAlphabetic
	case float64:
		return finite(x)
	case float32:
		return finite(float64(x))
	case int:
		return float64(x), RejectNone
	case int8:
		return float64(x), RejectNone
	case int16:
		return float64(x), RejectNone
	case int32:
		return float64(x), RejectNone
	case int64:
		return float64(x), RejectNone
	case uint:
		return float64(x), RejectNone
	case uint8:
		return float64(x), RejectNone
	case uint16:
		return float64(x), RejectNone
	case uint32:
		return float64(x), RejectNone
	case uint64:
		return float64(x), RejectNone
	default:
		return 0, RejectUnsupported
	}
}

func classifyText(s string) (float64, Rejection) {
	t := strings.TrimSpace(s)
	if t == "" {
		return 0, RejectEmpty
	}
	if IsSentinel(t) {
		return 0, RejectSentinel
	}
	if isAlphabetic(t) {
		return 0, RejectAlphabetic
	}
	f, err := strconv.ParseFloat(t, 64)
	if err != nil {
		return 0, RejectUnparseable
	}
	return finite(f)
}

func finite(f float64) (float64, Rejection) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, RejectNonFinite
	}
	return f, RejectNone
}

func isAlphabetic(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return s != ""
}

// IsNumeric reports whether v carries a usable finite number.
func IsNumeric(v any) bool {
	_, r := Classify(v)
	return r == RejectNone
}

// ToFloat returns v as a float64, or def when v is not numeric.
func ToFloat(v any, def float64) float64 {
	f, r := Classify(v)
	if r != RejectNone {
		return def
	}
	return f
}

//Personal.AI order the ending
