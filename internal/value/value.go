// Package value implements the tagged value variants and validation
// constraints used by the bot's typed configuration. Every config field
// carries one Value and one Constraint; Verify pairs them to compute the
// field's validity flag.
package value

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Kind discriminates the value variants. The variants are mutually
// exclusive; dispatch is always by explicit tag, never by shape.
type Kind int

const (
	KindNone Kind = iota
	KindBool
	KindNumber
	KindString
	KindRegex
	KindPlatforms
	KindPermissions
	KindModAction
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "None"
	case KindBool:
		return "Bool"
	case KindNumber:
		return "Number"
	case KindString:
		return "String"
	case KindRegex:
		return "Regex"
	case KindPlatforms:
		return "Platforms"
	case KindPermissions:
		return "Permissions"
	case KindModAction:
		return "ModAction"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Value is a closed sum over the configuration value variants. Exactly the
// payload matching Kind is meaningful; the zero Value is KindNone.
//
// A Number holds both its parsed integer and the raw text it was parsed
// from: while a numeric field is being edited the text may not parse yet
// (NumOK false), which Verify treats as non-finite and rejects.
type Value struct {
	Kind Kind

	Bool    bool
	Num     int64
	NumText string
	NumOK   bool
	Str     string // String and Regex payloads
	Plats   Platform
	Perms   Permission
	Action  ModAction
}

// None returns the empty value variant.
func None() Value { return Value{Kind: KindNone} }

// NewBool returns a boolean value.
func NewBool(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// NewNumber returns a finite numeric value.
func NewNumber(n int64) Value {
	return Value{Kind: KindNumber, Num: n, NumText: strconv.FormatInt(n, 10), NumOK: true}
}

// NumberFromText returns a numeric value parsed from a partially-typed
// editing buffer. The parse result is recorded in NumOK; callers keep the
// raw text so the editor can round-trip what the user typed.
func NumberFromText(text string) Value {
	n, err := strconv.ParseInt(text, 10, 64)
	return Value{Kind: KindNumber, Num: n, NumText: text, NumOK: err == nil}
}

// NewString returns a string value.
func NewString(s string) Value { return Value{Kind: KindString, Str: s} }

// NewRegex returns a regex-pattern value. The pattern is not compiled here;
// Verify performs the compile check.
func NewRegex(pattern string) Value { return Value{Kind: KindRegex, Str: pattern} }

// NewPlatforms returns a platform-bitmask value.
func NewPlatforms(p Platform) Value { return Value{Kind: KindPlatforms, Plats: p} }

// NewPermissions returns a permission-level value.
func NewPermissions(p Permission) Value { return Value{Kind: KindPermissions, Perms: p} }

// NewModAction returns a moderation-action value.
func NewModAction(a ModAction) Value { return Value{Kind: KindModAction, Action: a} }

// Equal reports whether two values are the same variant with the same
// payload. Numbers compare by raw text so an in-progress edit registers as
// a change even before it parses.
func (v Value) Equal(other Value) bool {
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case KindNone:
		return true
	case KindBool:
		return v.Bool == other.Bool
	case KindNumber:
		return v.NumText == other.NumText
	case KindString, KindRegex:
		return v.Str == other.Str
	case KindPlatforms:
		return v.Plats == other.Plats
	case KindPermissions:
		return v.Perms == other.Perms
	case KindModAction:
		return v.Action == other.Action
	}
	return false
}

func (v Value) String() string {
	switch v.Kind {
	case KindNone:
		return "None"
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindNumber:
		return v.NumText
	case KindString, KindRegex:
		return v.Str
	case KindPlatforms:
		return v.Plats.String()
	case KindPermissions:
		return v.Perms.String()
	case KindModAction:
		return v.Action.String()
	}
	return fmt.Sprintf("Value(%d)", int(v.Kind))
}

// MarshalJSON encodes the externally-tagged wire form: "None" for the empty
// variant, otherwise a single-key object keyed by the variant name.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindNone:
		return json.Marshal("None")
	case KindBool:
		return json.Marshal(map[string]bool{"Bool": v.Bool})
	case KindNumber:
		return json.Marshal(map[string]int64{"Number": v.Num})
	case KindString:
		return json.Marshal(map[string]string{"String": v.Str})
	case KindRegex:
		return json.Marshal(map[string]string{"Regex": v.Str})
	case KindPlatforms:
		return json.Marshal(map[string]uint32{"Platforms": uint32(v.Plats)})
	case KindPermissions:
		return json.Marshal(map[string]uint32{"Permissions": uint32(v.Perms)})
	case KindModAction:
		return json.Marshal(map[string]ModAction{"ModAction": v.Action})
	}
	return nil, fmt.Errorf("unknown value kind %d", int(v.Kind))
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var tag string
	if err := json.Unmarshal(data, &tag); err == nil {
		if tag != "None" {
			return fmt.Errorf("unknown value variant %q", tag)
		}
		*v = None()
		return nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("invalid value: %w", err)
	}
	if len(obj) != 1 {
		return fmt.Errorf("value must have exactly one variant key, got %d", len(obj))
	}

	for key, raw := range obj {
		switch key {
		case "Bool":
			var b bool
			if err := json.Unmarshal(raw, &b); err != nil {
				return err
			}
			*v = NewBool(b)
		case "Number":
			var n int64
			if err := json.Unmarshal(raw, &n); err != nil {
				// The backend only emits integers, but tolerate a float
				// from a drifted peer by truncating it.
				var f float64
				if ferr := json.Unmarshal(raw, &f); ferr != nil {
					return err
				}
				n = int64(f)
			}
			*v = NewNumber(n)
		case "String":
			var s string
			if err := json.Unmarshal(raw, &s); err != nil {
				return err
			}
			*v = NewString(s)
		case "Regex":
			var s string
			if err := json.Unmarshal(raw, &s); err != nil {
				return err
			}
			*v = NewRegex(s)
		case "Platforms":
			var bits uint32
			if err := json.Unmarshal(raw, &bits); err != nil {
				return err
			}
			*v = NewPlatforms(Platform(bits))
		case "Permissions":
			var bits uint32
			if err := json.Unmarshal(raw, &bits); err != nil {
				return err
			}
			*v = NewPermissions(Permission(bits))
		case "ModAction":
			var a ModAction
			if err := json.Unmarshal(raw, &a); err != nil {
				return err
			}
			*v = NewModAction(a)
		default:
			return fmt.Errorf("unknown value variant %q", key)
		}
	}
	return nil
}
