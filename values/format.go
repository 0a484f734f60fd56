package values

import "strconv"

// InspectImmediate renders the parseable-where-possible form (spec.md
// §6 "Value formatting") for every non-heap value. Heap kinds format
// themselves (package heap), since only they know their payload.
func InspectImmediate(v Value) (string, bool) {
	switch v.Classify() {
	case KindNil:
		return "nil", true
	case KindTrue:
		return "true", true
	case KindFalse:
		return "false", true
	case KindUninitialized:
		return "<uninitialized>", true
	case KindFixedInteger:
		return strconv.FormatInt(v.AsInt(), 10), true
	case KindImmediateFloat:
		return formatFloat(v.AsFloat()), true
	default:
		return "", false
	}
}

// ToSImmediate renders the natural (to_s) form; for every kind handled
// here it is identical to InspectImmediate. Symbols are not handled
// here (ok is false), as in InspectImmediate.
func ToSImmediate(v Value) (string, bool) {
	return InspectImmediate(v)
}

func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	// Ruby renders integral floats with a trailing ".0".
	for _, c := range s {
		if c == '.' || c == 'e' || c == 'E' || c == 'n' || c == 'i' {
			return s
		}
	}
	return s + ".0"
}
