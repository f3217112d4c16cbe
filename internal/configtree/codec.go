package configtree

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/aussiebot/console/internal/value"
	"github.com/aussiebot/console/internal/wire"
)

// Decode maps a wire config dump into tree form, attaching each field's
// constraint from the schema and computing validity. It rejects the whole
// dump when any field's value variant does not match the schema default's
// variant; a mismatch means the client and server disagree on the schema
// version and nothing in the dump can be trusted. The caller logs the
// error and keeps an empty tree.
func Decode(dump wire.ConfigDump, schema Schema) (Tree, error) {
	tree := NewTree()
	var errs *multierror.Error

	for cat, entries := range map[Category][]wire.EntryDump{
		CategoryCommands: dump.Commands,
		CategoryFilters:  dump.Filters,
		CategoryTimers:   dump.Timers,
	} {
		decoded := make([]Entry, 0, len(entries))
		for _, ed := range entries {
			entry, err := decodeEntry(ed, schema)
			if err != nil {
				errs = multierror.Append(errs, fmt.Errorf("%s/%s: %w", cat, ed.Name, err))
				continue
			}
			decoded = append(decoded, entry)
		}
		tree.setEntries(cat, decoded)
	}

	if err := errs.ErrorOrNil(); err != nil {
		return NewTree(), err
	}
	return tree, nil
}

func decodeEntry(ed wire.EntryDump, schema Schema) (Entry, error) {
	spec, ok := schema.Lookup(ed.Type)
	if !ok {
		return Entry{}, fmt.Errorf("unknown command type %q", ed.Type)
	}
	e := Entry{Type: ed.Type, Name: ed.Name, Fields: make([]Field, 0, len(ed.Fields))}
	for _, fd := range ed.Fields {
		fs, ok := spec.field(fd.Name)
		if !ok {
			return Entry{}, fmt.Errorf("field %q not in schema for %q", fd.Name, ed.Type)
		}
		if fd.Value.Kind != fs.Default.Kind {
			return Entry{}, fmt.Errorf("field %q has %s value, schema expects %s",
				fd.Name, fd.Value.Kind, fs.Default.Kind)
		}
		e.Fields = append(e.Fields, Field{
			Name:       fd.Name,
			Value:      fd.Value,
			Constraint: fs.Constraint,
			Valid:      value.Verify(fd.Value, fs.Constraint),
		})
	}
	return e, nil
}

// Encode is the inverse transform back to wire form. Validity flags and
// constraints are client-side derivations and are not transmitted.
func Encode(t Tree) wire.ConfigDump {
	return wire.ConfigDump{
		Commands: encodeEntries(t.Commands),
		Filters:  encodeEntries(t.Filters),
		Timers:   encodeEntries(t.Timers),
	}
}

func encodeEntries(entries []Entry) []wire.EntryDump {
	out := make([]wire.EntryDump, 0, len(entries))
	for _, e := range entries {
		ed := wire.EntryDump{Type: e.Type, Name: e.Name, Fields: make([]wire.FieldDump, 0, len(e.Fields))}
		for _, f := range e.Fields {
			ed.Fields = append(ed.Fields, wire.FieldDump{Name: f.Name, Value: f.Value})
		}
		out = append(out, ed)
	}
	return out
}
