package value

import (
	"encoding/json"
	"fmt"
)

// ModActionKind enumerates the moderation actions the bot can take,
// ordered by severity.
type ModActionKind int

const (
	ModNone ModActionKind = iota
	ModWarn
	ModRemove
	ModTimeout
	ModKick
	ModBan
)

// ModAction is a moderation action. Timeout carries a duration in seconds;
// every other kind is bare.
type ModAction struct {
	Kind        ModActionKind
	TimeoutSecs int64
}

func (a ModAction) String() string {
	switch a.Kind {
	case ModNone:
		return "None"
	case ModWarn:
		return "Warn"
	case ModRemove:
		return "Remove"
	case ModTimeout:
		return fmt.Sprintf("Timeout (%ds)", a.TimeoutSecs)
	case ModKick:
		return "Kick"
	case ModBan:
		return "Ban"
	}
	return fmt.Sprintf("ModAction(%d)", int(a.Kind))
}

// MoreSevere reports whether a outranks other in the severity ordering.
func (a ModAction) MoreSevere(other ModAction) bool {
	return a.Kind > other.Kind
}

var modActionNames = map[ModActionKind]string{
	ModNone:   "None",
	ModWarn:   "Warn",
	ModRemove: "Remove",
	ModKick:   "Kick",
	ModBan:    "Ban",
}

// MarshalJSON encodes bare kinds as their name and Timeout as
// {"Timeout": seconds}, matching the backend's representation.
func (a ModAction) MarshalJSON() ([]byte, error) {
	if a.Kind == ModTimeout {
		return json.Marshal(map[string]int64{"Timeout": a.TimeoutSecs})
	}
	name, ok := modActionNames[a.Kind]
	if !ok {
		return nil, fmt.Errorf("unknown mod action kind %d", a.Kind)
	}
	return json.Marshal(name)
}

func (a *ModAction) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		for kind, n := range modActionNames {
			if n == name {
				*a = ModAction{Kind: kind}
				return nil
			}
		}
		return fmt.Errorf("unknown mod action %q", name)
	}

	var timeout struct {
		Timeout *int64 `json:"Timeout"`
	}
	if err := json.Unmarshal(data, &timeout); err != nil {
		return fmt.Errorf("invalid mod action: %w", err)
	}
	if timeout.Timeout == nil {
		return fmt.Errorf("invalid mod action %s", string(data))
	}
	*a = ModAction{Kind: ModTimeout, TimeoutSecs: *timeout.Timeout}
	return nil
}
