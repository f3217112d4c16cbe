package wire

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/aussiebot/console/internal/value"
)

// FieldDump is one (name, value) pair of a config entry; wire form
// ["name", value].
type FieldDump struct {
	Name  string
	Value value.Value
}

func (f FieldDump) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{f.Name, f.Value})
}

func (f *FieldDump) UnmarshalJSON(data []byte) error {
	var parts [2]json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("invalid field dump: %w", err)
	}
	if err := json.Unmarshal(parts[0], &f.Name); err != nil {
		return err
	}
	return json.Unmarshal(parts[1], &f.Value)
}

// EntryDump is one command/filter/timer entry; wire form
// ["Type", "name", [fields...]].
type EntryDump struct {
	Type   string
	Name   string
	Fields []FieldDump
}

func (e EntryDump) MarshalJSON() ([]byte, error) {
	fields := e.Fields
	if fields == nil {
		fields = []FieldDump{}
	}
	return json.Marshal([3]any{e.Type, e.Name, fields})
}

func (e *EntryDump) UnmarshalJSON(data []byte) error {
	var parts [3]json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("invalid entry dump: %w", err)
	}
	if err := json.Unmarshal(parts[0], &e.Type); err != nil {
		return err
	}
	if err := json.Unmarshal(parts[1], &e.Name); err != nil {
		return err
	}
	return json.Unmarshal(parts[2], &e.Fields)
}

// ConfigDump is the full wire-format snapshot of the bot's configuration,
// partitioned into the three fixed categories.
type ConfigDump struct {
	Commands []EntryDump `json:"commands"`
	Filters  []EntryDump `json:"filters"`
	Timers   []EntryDump `json:"timers"`
}

// FieldSchema describes one config field; wire form
// ["name", "description", default, constraint].
type FieldSchema struct {
	Name        string
	Description string
	Default     value.Value
	Constraint  value.Constraint
}

func (f FieldSchema) MarshalJSON() ([]byte, error) {
	return json.Marshal([4]any{f.Name, f.Description, f.Default, f.Constraint})
}

func (f *FieldSchema) UnmarshalJSON(data []byte) error {
	var parts [4]json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("invalid field schema: %w", err)
	}
	if err := json.Unmarshal(parts[0], &f.Name); err != nil {
		return err
	}
	if err := json.Unmarshal(parts[1], &f.Description); err != nil {
		return err
	}
	if err := json.Unmarshal(parts[2], &f.Default); err != nil {
		return err
	}
	return json.Unmarshal(parts[3], &f.Constraint)
}

// CommandSchema describes one command type; wire form
// ["Type", "description", "Category", [field schemas...]].
// Category is one of "Command", "Filter", "Timer".
type CommandSchema struct {
	Type        string
	Description string
	Category    string
	Fields      []FieldSchema
}

func (c CommandSchema) MarshalJSON() ([]byte, error) {
	fields := c.Fields
	if fields == nil {
		fields = []FieldSchema{}
	}
	return json.Marshal([4]any{c.Type, c.Description, c.Category, fields})
}

func (c *CommandSchema) UnmarshalJSON(data []byte) error {
	var parts [4]json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("invalid command schema: %w", err)
	}
	if err := json.Unmarshal(parts[0], &c.Type); err != nil {
		return err
	}
	if err := json.Unmarshal(parts[1], &c.Description); err != nil {
		return err
	}
	if err := json.Unmarshal(parts[2], &c.Category); err != nil {
		return err
	}
	return json.Unmarshal(parts[3], &c.Fields)
}

// SchemaDump is the full command schema snapshot.
type SchemaDump []CommandSchema

// LogDumpEntry holds one platform's logged chat lines; wire form
// [platform, [line, ...]]. Each line is itself a serialized LogRecord.
type LogDumpEntry struct {
	Platform value.Platform
	Lines    []string
}

func (l LogDumpEntry) MarshalJSON() ([]byte, error) {
	lines := l.Lines
	if lines == nil {
		lines = []string{}
	}
	return json.Marshal([2]any{l.Platform, lines})
}

func (l *LogDumpEntry) UnmarshalJSON(data []byte) error {
	var parts [2]json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("invalid log dump entry: %w", err)
	}
	if err := json.Unmarshal(parts[0], &l.Platform); err != nil {
		return err
	}
	return json.Unmarshal(parts[1], &l.Lines)
}

// LogDump is the full chat-log snapshot across platforms.
type LogDump []LogDumpEntry

// LogRecord is one logged chat event; wire form is the tuple
// ["<unix millis>", chat], the timestamp encoded as a decimal string.
type LogRecord struct {
	At   time.Time
	Chat Chat
}

func (r LogRecord) MarshalJSON() ([]byte, error) {
	ts := strconv.FormatInt(r.At.UnixMilli(), 10)
	return json.Marshal([2]any{ts, r.Chat})
}

func (r *LogRecord) UnmarshalJSON(data []byte) error {
	var parts [2]json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("invalid log record: %w", err)
	}
	var ts string
	if err := json.Unmarshal(parts[0], &ts); err != nil {
		return err
	}
	millis, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid log timestamp %q: %w", ts, err)
	}
	r.At = time.UnixMilli(millis).UTC()
	return json.Unmarshal(parts[1], &r.Chat)
}

// ParseLogRecord decodes one log line. Lines that fail to parse are
// dropped by the caller; the backend's cache may hold lines written by
// older versions.
func ParseLogRecord(line string) (LogRecord, error) {
	var r LogRecord
	if err := json.Unmarshal([]byte(line), &r); err != nil {
		return LogRecord{}, err
	}
	return r, nil
}

// ModActionRow is one recorded moderation action; wire form
// [displayName|null, platformID, action, reason, unixSeconds].
type ModActionRow struct {
	DisplayName *string
	PlatformID  string
	Action      string
	Reason      string
	At          int64
}

func (m ModActionRow) MarshalJSON() ([]byte, error) {
	return json.Marshal([5]any{m.DisplayName, m.PlatformID, m.Action, m.Reason, m.At})
}

func (m *ModActionRow) UnmarshalJSON(data []byte) error {
	var parts [5]json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("invalid mod action row: %w", err)
	}
	if err := json.Unmarshal(parts[0], &m.DisplayName); err != nil {
		return err
	}
	if err := json.Unmarshal(parts[1], &m.PlatformID); err != nil {
		return err
	}
	if err := json.Unmarshal(parts[2], &m.Action); err != nil {
		return err
	}
	if err := json.Unmarshal(parts[3], &m.Reason); err != nil {
		return err
	}
	return json.Unmarshal(parts[4], &m.At)
}

// ModActionsEntry holds one platform's moderation history, newest first;
// wire form [platform, [row, ...]].
type ModActionsEntry struct {
	Platform value.Platform
	Rows     []ModActionRow
}

func (m ModActionsEntry) MarshalJSON() ([]byte, error) {
	rows := m.Rows
	if rows == nil {
		rows = []ModActionRow{}
	}
	return json.Marshal([2]any{m.Platform, rows})
}

func (m *ModActionsEntry) UnmarshalJSON(data []byte) error {
	var parts [2]json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("invalid mod actions entry: %w", err)
	}
	if err := json.Unmarshal(parts[0], &m.Platform); err != nil {
		return err
	}
	return json.Unmarshal(parts[1], &m.Rows)
}

// ModActionsDump is the full moderation-action snapshot across platforms.
type ModActionsDump []ModActionsEntry
