// Package wire defines the JSON frame formats exchanged with the backend
// bot process and the classification of inbound frames into typed events.
//
// The protocol uses externally-tagged unions: bare strings for payload
// variants without data, single-key objects otherwise. Collection dumps are
// encoded as JSON arrays (tuples) for compactness; this package hides the
// tuple shapes behind named structs.
package wire

import (
	"encoding/json"
	"fmt"

	"github.com/aussiebot/console/internal/value"
)

// User identifies a chat participant on some platform.
type User struct {
	ID    string           `json:"id"`
	Name  string           `json:"name"`
	Perms value.Permission `json:"perms"`
}

// Chat is a single chat event as relayed by the backend. Meta carries
// optional platform-specific metadata which the console does not interpret.
type Chat struct {
	User User            `json:"user"`
	Msg  string          `json:"msg"`
	Meta json.RawMessage `json:"meta,omitempty"`
}

// BotMessage is a reply sent by the bot itself. The optional user is a
// (platform, user) pair the console does not interpret.
type BotMessage struct {
	User json.RawMessage `json:"user,omitempty"`
	Msg  string          `json:"msg"`
	Meta json.RawMessage `json:"meta,omitempty"`
}

// StreamSignalKind discriminates stream start/stop signals.
type StreamSignalKind int

const (
	StreamStart StreamSignalKind = iota
	StreamStop
)

// StreamSignal announces that a platform's stream has started or stopped.
type StreamSignal struct {
	Kind StreamSignalKind
	URL  string
}

func (s StreamSignal) MarshalJSON() ([]byte, error) {
	switch s.Kind {
	case StreamStart:
		return json.Marshal(map[string]string{"Start": s.URL})
	case StreamStop:
		return json.Marshal(map[string]string{"Stop": s.URL})
	}
	return nil, fmt.Errorf("unknown stream signal kind %d", int(s.Kind))
}

func (s *StreamSignal) UnmarshalJSON(data []byte) error {
	var obj map[string]string
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("invalid stream signal: %w", err)
	}
	if url, ok := obj["Start"]; ok {
		*s = StreamSignal{Kind: StreamStart, URL: url}
		return nil
	}
	if url, ok := obj["Stop"]; ok {
		*s = StreamSignal{Kind: StreamStop, URL: url}
		return nil
	}
	return fmt.Errorf("unknown stream signal %s", string(data))
}

// StreamEventKind discriminates stream lifecycle events.
type StreamEventKind int

const (
	StreamDetectStart StreamEventKind = iota
	StreamStarted
	StreamDetectStop
	StreamStopped
)

// StreamEvent is a stream lifecycle notification. Started carries the
// stream URL and id; the other variants carry a single string.
type StreamEvent struct {
	Kind StreamEventKind
	URL  string
	ID   string
}

func (e StreamEvent) MarshalJSON() ([]byte, error) {
	switch e.Kind {
	case StreamDetectStart:
		return json.Marshal(map[string]string{"DetectStart": e.URL})
	case StreamStarted:
		return json.Marshal(map[string][2]string{"Started": {e.URL, e.ID}})
	case StreamDetectStop:
		return json.Marshal(map[string]string{"DetectStop": e.URL})
	case StreamStopped:
		return json.Marshal(map[string]string{"Stopped": e.ID})
	}
	return nil, fmt.Errorf("unknown stream event kind %d", int(e.Kind))
}

func (e *StreamEvent) UnmarshalJSON(data []byte) error {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("invalid stream event: %w", err)
	}
	if raw, ok := obj["Started"]; ok {
		var pair [2]string
		if err := json.Unmarshal(raw, &pair); err != nil {
			return err
		}
		*e = StreamEvent{Kind: StreamStarted, URL: pair[0], ID: pair[1]}
		return nil
	}
	for key, kind := range map[string]StreamEventKind{
		"DetectStart": StreamDetectStart,
		"DetectStop":  StreamDetectStop,
	} {
		if raw, ok := obj[key]; ok {
			var url string
			if err := json.Unmarshal(raw, &url); err != nil {
				return err
			}
			*e = StreamEvent{Kind: kind, URL: url}
			return nil
		}
	}
	if raw, ok := obj["Stopped"]; ok {
		var id string
		if err := json.Unmarshal(raw, &id); err != nil {
			return err
		}
		*e = StreamEvent{Kind: StreamStopped, ID: id}
		return nil
	}
	return fmt.Errorf("unknown stream event %s", string(data))
}

// ModActionEvent reports a moderation action taken against a user, with the
// name of the filter that issued it. Wire form is the tuple
// [user, action, reason].
type ModActionEvent struct {
	User   User
	Action value.ModAction
	Reason string
}

func (m ModActionEvent) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]any{m.User, m.Action, m.Reason})
}

func (m *ModActionEvent) UnmarshalJSON(data []byte) error {
	var parts [3]json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("invalid mod action event: %w", err)
	}
	if err := json.Unmarshal(parts[0], &m.User); err != nil {
		return err
	}
	if err := json.Unmarshal(parts[1], &m.Action); err != nil {
		return err
	}
	return json.Unmarshal(parts[2], &m.Reason)
}

// PayloadKind discriminates session payload variants.
type PayloadKind int

const (
	// Outbound-only dump requests.
	PayloadDumpConfig PayloadKind = iota
	PayloadDumpSchema
	PayloadDumpModActions
	PayloadDumpLog

	// Bidirectional.
	PayloadConfigDump

	// Inbound.
	PayloadSchemaDump
	PayloadMessage
	PayloadStreamSignal
	PayloadStreamEvent
	PayloadChat
	PayloadLogDump
	PayloadModAction
	PayloadModActionsDump
	PayloadConfigChanged
	PayloadConfigSaved
)

// Payload is the closed union of session payload variants. Exactly the
// field matching Kind is populated.
type Payload struct {
	Kind PayloadKind

	LogPlatform value.Platform  // PayloadDumpLog
	Config      *ConfigDump     // PayloadConfigDump
	Schema      SchemaDump      // PayloadSchemaDump
	BotMsg      *BotMessage     // PayloadMessage
	Signal      *StreamSignal   // PayloadStreamSignal
	Event       *StreamEvent    // PayloadStreamEvent
	Chat        *Chat           // PayloadChat
	Log         LogDump         // PayloadLogDump
	ModAction   *ModActionEvent // PayloadModAction
	ModActions  ModActionsDump  // PayloadModActionsDump
}

func (p Payload) MarshalJSON() ([]byte, error) {
	switch p.Kind {
	case PayloadDumpConfig:
		return json.Marshal("DumpConfig")
	case PayloadDumpSchema:
		return json.Marshal("DumpSchema")
	case PayloadDumpModActions:
		return json.Marshal("DumpModActions")
	case PayloadDumpLog:
		return json.Marshal(map[string]value.Platform{"DumpLog": p.LogPlatform})
	case PayloadConfigDump:
		return json.Marshal(map[string]*ConfigDump{"ConfigDump": p.Config})
	case PayloadSchemaDump:
		return json.Marshal(map[string]SchemaDump{"SchemaDump": p.Schema})
	case PayloadMessage:
		return json.Marshal(map[string]*BotMessage{"Message": p.BotMsg})
	case PayloadStreamSignal:
		return json.Marshal(map[string]*StreamSignal{"StreamSignal": p.Signal})
	case PayloadStreamEvent:
		return json.Marshal(map[string]*StreamEvent{"StreamEvent": p.Event})
	case PayloadChat:
		return json.Marshal(map[string]*Chat{"Chat": p.Chat})
	case PayloadLogDump:
		return json.Marshal(map[string]LogDump{"LogDump": p.Log})
	case PayloadModAction:
		return json.Marshal(map[string]*ModActionEvent{"ModAction": p.ModAction})
	case PayloadModActionsDump:
		return json.Marshal(map[string]ModActionsDump{"ModActionsDump": p.ModActions})
	case PayloadConfigChanged:
		return json.Marshal("ConfigChanged")
	case PayloadConfigSaved:
		return json.Marshal("ConfigSaved")
	}
	return nil, fmt.Errorf("unknown payload kind %d", int(p.Kind))
}

func (p *Payload) UnmarshalJSON(data []byte) error {
	var tag string
	if err := json.Unmarshal(data, &tag); err == nil {
		switch tag {
		case "DumpConfig":
			*p = Payload{Kind: PayloadDumpConfig}
		case "DumpSchema":
			*p = Payload{Kind: PayloadDumpSchema}
		case "DumpModActions":
			*p = Payload{Kind: PayloadDumpModActions}
		case "ConfigChanged":
			*p = Payload{Kind: PayloadConfigChanged}
		case "ConfigSaved":
			*p = Payload{Kind: PayloadConfigSaved}
		default:
			return fmt.Errorf("unknown payload %q", tag)
		}
		return nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}
	if len(obj) != 1 {
		return fmt.Errorf("payload must have exactly one variant key, got %d", len(obj))
	}

	for key, raw := range obj {
		switch key {
		case "DumpLog":
			*p = Payload{Kind: PayloadDumpLog}
			return json.Unmarshal(raw, &p.LogPlatform)
		case "ConfigDump":
			*p = Payload{Kind: PayloadConfigDump, Config: &ConfigDump{}}
			return json.Unmarshal(raw, p.Config)
		case "SchemaDump":
			*p = Payload{Kind: PayloadSchemaDump}
			return json.Unmarshal(raw, &p.Schema)
		case "Message":
			*p = Payload{Kind: PayloadMessage, BotMsg: &BotMessage{}}
			return json.Unmarshal(raw, p.BotMsg)
		case "StreamSignal":
			*p = Payload{Kind: PayloadStreamSignal, Signal: &StreamSignal{}}
			return json.Unmarshal(raw, p.Signal)
		case "StreamEvent":
			*p = Payload{Kind: PayloadStreamEvent, Event: &StreamEvent{}}
			return json.Unmarshal(raw, p.Event)
		case "Chat":
			*p = Payload{Kind: PayloadChat, Chat: &Chat{}}
			return json.Unmarshal(raw, p.Chat)
		case "LogDump":
			*p = Payload{Kind: PayloadLogDump}
			return json.Unmarshal(raw, &p.Log)
		case "ModAction":
			*p = Payload{Kind: PayloadModAction, ModAction: &ModActionEvent{}}
			return json.Unmarshal(raw, p.ModAction)
		case "ModActionsDump":
			*p = Payload{Kind: PayloadModActionsDump}
			return json.Unmarshal(raw, &p.ModActions)
		default:
			return fmt.Errorf("unknown payload %q", key)
		}
	}
	return nil
}

// Message is the session frame envelope. The platform tag marks the source
// or destination platform; channel scopes the frame to one bot instance.
type Message struct {
	Platform value.Platform `json:"platform"`
	Channel  string         `json:"channel"`
	Payload  Payload        `json:"payload"`
}
