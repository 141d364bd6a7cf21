// Package infer classifies sampled string values into schema types and
// widens sequences of classifications into one common type.
//
// The type set is the JSON-Schema scalar set plus "null":
//
//	integer, number, boolean, null, string
//
// Widening follows a small lattice: integer < number < string, every other
// mix of distinct concrete types widens straight to string, and null is
// neutral (it never narrows the other operand). "string" is absorbing, so
// folds can stop early once it is reached.
package infer

import (
	"strconv"
	"strings"
)

// Type names produced by Infer and Merge. The strings are emitted verbatim
// into generated schema documents, so they must stay JSON-Schema spellings.
const (
	TypeInteger = "integer"
	TypeNumber  = "number"
	TypeBoolean = "boolean"
	TypeNull    = "null"
	TypeString  = "string"
)

// Infer classifies a single sampled value.
//
// Grammar (deliberately conservative, see the boundary tests):
//   - blank (empty or whitespace-only) → null
//   - anything strconv.ParseInt accepts in base 10 → integer
//     ("007" and "-0" are integers)
//   - anything strconv.ParseFloat accepts over the decimal/exponential
//     alphabet → number ("1e10" and values beyond int64 range are
//     numbers; "NaN", "Inf" and hex floats read as text)
//   - case-insensitive "true"/"false" → boolean
//   - everything else → string
func Infer(value string) string {
	if strings.TrimSpace(value) == "" {
		return TypeNull
	}
	if _, err := strconv.ParseInt(value, 10, 64); err == nil {
		return TypeInteger
	}
	if isDecimalNumeral(value) {
		if _, err := strconv.ParseFloat(value, 64); err == nil {
			return TypeNumber
		}
	}
	if isBoolLiteral(value) {
		return TypeBoolean
	}
	return TypeString
}

// Merge widens two classifications into their least common type.
//
// Merge is commutative and associative, so folding a sample sequence in any
// order yields the same result. Rules:
//   - equal types → that type
//   - null → the other operand's type (all-null stays null)
//   - integer + number → number
//   - any other distinct pair → string
func Merge(a, b string) string {
	if a == b {
		return a
	}
	if a == TypeNull {
		return b
	}
	if b == TypeNull {
		return a
	}
	if (a == TypeInteger && b == TypeNumber) || (a == TypeNumber && b == TypeInteger) {
		return TypeNumber
	}
	return TypeString
}

// Fold infers and widens a value sequence in order, short-circuiting once
// the absorbing "string" state is reached. An empty sequence is null.
func Fold(values []string) string {
	merged := TypeNull
	for _, v := range values {
		merged = Merge(merged, Infer(v))
		if merged == TypeString {
			break
		}
	}
	return merged
}

// isDecimalNumeral reports whether s stays inside the decimal/exponential
// alphabet. strconv.ParseFloat also accepts "NaN", "Inf"/"Infinity" and
// hex floats like "0x1p-2"; in flat-file cells those are text.
func isDecimalNumeral(s string) bool {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r == '+' || r == '-' || r == '.' || r == 'e' || r == 'E':
		default:
			return false
		}
	}
	return true
}

// isBoolLiteral accepts exactly "true" and "false", case-insensitively.
// Looser spellings ("1", "yes") stay integers or strings; widening a
// boolean column on new evidence is cheaper than un-widening a numeric one.
func isBoolLiteral(s string) bool {
	return strings.EqualFold(s, "true") || strings.EqualFold(s, "false")
}
