package value

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// ConstraintKind discriminates the constraint variants.
type ConstraintKind int

const (
	ConstraintNone ConstraintKind = iota
	ConstraintNonEmpty
	ConstraintPositive
	ConstraintNegative
	ConstraintRangeClosed
	ConstraintRangeHalfOpen
	ConstraintTimeoutRange
)

// Constraint is a validation rule attached to a schema field, independent of
// the field's value variant. Range bounds are nullable; a nil bound is
// unbounded on that side. TimeoutRange shares the bounds shape and applies
// to moderation-action timeout durations.
type Constraint struct {
	Kind  ConstraintKind
	Start *int64
	End   *int64
}

// NoConstraint is the always-satisfied constraint.
var NoConstraint = Constraint{Kind: ConstraintNone}

// NonEmpty requires a non-empty string or pattern.
func NonEmpty() Constraint { return Constraint{Kind: ConstraintNonEmpty} }

// Positive requires a non-negative number or a true boolean.
func Positive() Constraint { return Constraint{Kind: ConstraintPositive} }

// Negative requires a negative number or a false boolean.
func Negative() Constraint { return Constraint{Kind: ConstraintNegative} }

// RangeClosed constrains to [start, end]; nil bounds are open-ended.
func RangeClosed(start, end *int64) Constraint {
	return Constraint{Kind: ConstraintRangeClosed, Start: start, End: end}
}

// RangeHalfOpen constrains to [start, end); nil bounds are open-ended.
func RangeHalfOpen(start, end *int64) Constraint {
	return Constraint{Kind: ConstraintRangeHalfOpen, Start: start, End: end}
}

// TimeoutRange constrains a timeout action's duration to [start, end] seconds.
func TimeoutRange(start, end *int64) Constraint {
	return Constraint{Kind: ConstraintTimeoutRange, Start: start, End: end}
}

// Int64 is a bound-literal helper.
func Int64(n int64) *int64 { return &n }

// Equal reports whether two constraints express the same rule with the
// same bounds.
func (c Constraint) Equal(other Constraint) bool {
	return c.Kind == other.Kind && boundEqual(c.Start, other.Start) && boundEqual(c.End, other.End)
}

func boundEqual(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func (c Constraint) isRange() bool {
	switch c.Kind {
	case ConstraintRangeClosed, ConstraintRangeHalfOpen, ConstraintTimeoutRange:
		return true
	}
	return false
}

// contains checks n against the bounds, honouring the open end of
// half-open ranges and treating nil bounds as unbounded.
func (c Constraint) contains(n int64) bool {
	if c.Start != nil && n < *c.Start {
		return false
	}
	if c.End != nil {
		if c.Kind == ConstraintRangeHalfOpen {
			if n >= *c.End {
				return false
			}
		} else if n > *c.End {
			return false
		}
	}
	return true
}

// caseInsensitiveMarker prefixes patterns that should compile
// case-insensitively; it is stripped before the compile check.
const caseInsensitiveMarker = "(?i)"

// Verify reports whether v satisfies c. It is pure: same inputs always
// produce the same result and nothing is mutated. Every value-producing
// edit must pass through Verify before the result enters session state.
func Verify(v Value, c Constraint) bool {
	switch v.Kind {
	case KindNone:
		return c.Kind == ConstraintNone

	case KindBool:
		switch c.Kind {
		case ConstraintNone:
			return true
		case ConstraintPositive:
			return v.Bool
		case ConstraintNegative:
			return !v.Bool
		}
		return false

	case KindNumber:
		// A partially-typed editing buffer has no finite value yet.
		if !v.NumOK {
			return false
		}
		switch c.Kind {
		case ConstraintNone:
			return true
		case ConstraintPositive:
			return v.Num >= 0
		case ConstraintNegative:
			return v.Num < 0
		case ConstraintRangeClosed, ConstraintRangeHalfOpen, ConstraintTimeoutRange:
			return c.contains(v.Num)
		}
		return false

	case KindString:
		switch c.Kind {
		case ConstraintNone:
			return true
		case ConstraintNonEmpty:
			return v.Str != ""
		case ConstraintRangeClosed, ConstraintRangeHalfOpen:
			// Ranges measure string length, not content.
			return c.contains(int64(len(v.Str)))
		}
		return false

	case KindRegex:
		pattern := strings.TrimPrefix(v.Str, caseInsensitiveMarker)
		if _, err := regexp.Compile(pattern); err != nil {
			return false
		}
		switch c.Kind {
		case ConstraintNone:
			return true
		case ConstraintNonEmpty:
			return v.Str != ""
		}
		return false

	case KindPlatforms, KindPermissions:
		// No range semantics apply to bitmask values.
		return c.Kind == ConstraintNone

	case KindModAction:
		if v.Action.Kind == ModTimeout {
			switch c.Kind {
			case ConstraintNone:
				return true
			case ConstraintRangeClosed, ConstraintRangeHalfOpen, ConstraintTimeoutRange:
				return c.contains(v.Action.TimeoutSecs)
			}
			return false
		}
		// Fixed enumeration members are always valid.
		return true
	}

	return false
}

// Describe renders the human-readable validation hint for c, shown next to
// a field that fails its constraint.
func Describe(c Constraint) string {
	unit := ""
	if c.Kind == ConstraintTimeoutRange {
		unit = " seconds"
	}
	switch c.Kind {
	case ConstraintNone:
		return "Any value"
	case ConstraintNonEmpty:
		return "Must not be empty"
	case ConstraintPositive:
		return "Must be positive"
	case ConstraintNegative:
		return "Must be negative"
	case ConstraintRangeClosed, ConstraintTimeoutRange:
		switch {
		case c.Start != nil && c.End != nil:
			return fmt.Sprintf("Must be between %d and %d (inclusive)%s", *c.Start, *c.End, unit)
		case c.Start != nil:
			return fmt.Sprintf("Must be at least %d%s", *c.Start, unit)
		case c.End != nil:
			return fmt.Sprintf("Must be at most %d%s", *c.End, unit)
		}
		return "Any value"
	case ConstraintRangeHalfOpen:
		switch {
		case c.Start != nil && c.End != nil:
			return fmt.Sprintf("Must be between %d and %d (exclusive)", *c.Start, *c.End)
		case c.Start != nil:
			return fmt.Sprintf("Must be at least %d", *c.Start)
		case c.End != nil:
			return fmt.Sprintf("Must be less than %d", *c.End)
		}
		return "Any value"
	}
	return ""
}

type rangeBounds struct {
	Start *int64 `json:"start"`
	End   *int64 `json:"end"`
}

var constraintNames = map[ConstraintKind]string{
	ConstraintNone:     "None",
	ConstraintNonEmpty: "NonEmpty",
	ConstraintPositive: "Positive",
	ConstraintNegative: "Negative",
}

var rangeConstraintNames = map[ConstraintKind]string{
	ConstraintRangeClosed:   "RangeClosed",
	ConstraintRangeHalfOpen: "RangeHalfOpen",
	ConstraintTimeoutRange:  "TimeoutRange",
}

// MarshalJSON encodes bare kinds as their name and ranges as a single-key
// object carrying {start, end}.
func (c Constraint) MarshalJSON() ([]byte, error) {
	if name, ok := constraintNames[c.Kind]; ok {
		return json.Marshal(name)
	}
	if name, ok := rangeConstraintNames[c.Kind]; ok {
		return json.Marshal(map[string]rangeBounds{name: {Start: c.Start, End: c.End}})
	}
	return nil, fmt.Errorf("unknown constraint kind %d", int(c.Kind))
}

func (c *Constraint) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		for kind, n := range constraintNames {
			if n == name {
				*c = Constraint{Kind: kind}
				return nil
			}
		}
		return fmt.Errorf("unknown constraint %q", name)
	}

	var obj map[string]rangeBounds
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("invalid constraint: %w", err)
	}
	if len(obj) != 1 {
		return fmt.Errorf("constraint must have exactly one variant key, got %d", len(obj))
	}
	for key, bounds := range obj {
		for kind, n := range rangeConstraintNames {
			if n == key {
				*c = Constraint{Kind: kind, Start: bounds.Start, End: bounds.End}
				return nil
			}
		}
		return fmt.Errorf("unknown constraint %q", key)
	}
	return nil
}
