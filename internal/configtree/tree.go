// Package configtree converts between the wire form of the bot
// configuration (flat tuples) and the in-memory tree the session machine
// edits: named, constraint-checked fields partitioned into the three fixed
// categories. Every field carries a validity flag that is recomputed on
// every write, never stored stale.
package configtree

import (
	"github.com/aussiebot/console/internal/value"
)

// Field is one editable config field with its schema constraint and the
// validity of the current value against that constraint.
type Field struct {
	Name       string
	Value      value.Value
	Constraint value.Constraint
	Valid      bool
}

// Set replaces the field's value and revalidates it.
func (f *Field) Set(v value.Value) {
	f.Value = v
	f.Valid = value.Verify(v, f.Constraint)
}

// Entry is one configured command, filter or timer instance.
type Entry struct {
	Type   string
	Name   string
	Fields []Field
}

// Valid reports whether every field of the entry satisfies its constraint.
func (e Entry) Valid() bool {
	for _, f := range e.Fields {
		if !f.Valid {
			return false
		}
	}
	return true
}

func (e Entry) clone() Entry {
	out := e
	out.Fields = make([]Field, len(e.Fields))
	copy(out.Fields, e.Fields)
	return out
}

func (e Entry) equal(other Entry) bool {
	if e.Type != other.Type || e.Name != other.Name || len(e.Fields) != len(other.Fields) {
		return false
	}
	for i, f := range e.Fields {
		o := other.Fields[i]
		if f.Name != o.Name || !f.Value.Equal(o.Value) || !f.Constraint.Equal(o.Constraint) {
			return false
		}
	}
	return true
}

// Tree is the parsed configuration. It always has exactly three
// categories; an empty category is an empty slice, never missing.
type Tree struct {
	Commands []Entry
	Filters  []Entry
	Timers   []Entry
}

// NewTree returns an empty tree with all three categories present.
func NewTree() Tree {
	return Tree{Commands: []Entry{}, Filters: []Entry{}, Timers: []Entry{}}
}

// Entries returns the slice for a category.
func (t *Tree) Entries(cat Category) []Entry {
	switch cat {
	case CategoryCommands:
		return t.Commands
	case CategoryFilters:
		return t.Filters
	case CategoryTimers:
		return t.Timers
	}
	return nil
}

func (t *Tree) setEntries(cat Category, entries []Entry) {
	switch cat {
	case CategoryCommands:
		t.Commands = entries
	case CategoryFilters:
		t.Filters = entries
	case CategoryTimers:
		t.Timers = entries
	}
}

// At returns a pointer to the entry a cursor addresses, or nil when the
// cursor is out of range.
func (t *Tree) At(cur Cursor) *Entry {
	entries := t.Entries(cur.Category)
	if cur.Index < 0 || cur.Index >= len(entries) {
		return nil
	}
	return &entries[cur.Index]
}

// Append adds an entry to its category and returns the cursor addressing it.
func (t *Tree) Append(cat Category, e Entry) Cursor {
	entries := append(t.Entries(cat), e)
	t.setEntries(cat, entries)
	return Cursor{Category: cat, Index: len(entries) - 1}
}

// Remove deletes the entry at a cursor. It reports whether anything was
// removed.
func (t *Tree) Remove(cur Cursor) bool {
	entries := t.Entries(cur.Category)
	if cur.Index < 0 || cur.Index >= len(entries) {
		return false
	}
	entries = append(entries[:cur.Index], entries[cur.Index+1:]...)
	t.setEntries(cur.Category, entries)
	return true
}

// Valid reports whether every field in every category satisfies its
// constraint. Save is blocked while this is false.
func (t Tree) Valid() bool {
	for _, cat := range Categories {
		for _, e := range t.Entries(cat) {
			if !e.Valid() {
				return false
			}
		}
	}
	return true
}

// Clone deep-copies the tree. Snapshots handed to external readers and
// the last-acknowledged-good copy kept for revert both rely on this.
func (t Tree) Clone() Tree {
	out := NewTree()
	for _, cat := range Categories {
		src := t.Entries(cat)
		dst := make([]Entry, len(src))
		for i, e := range src {
			dst[i] = e.clone()
		}
		out.setEntries(cat, dst)
	}
	return out
}

// Equal compares two trees by field values; validity flags are derived
// and excluded. Change detection after every edit uses this.
func (t Tree) Equal(other Tree) bool {
	for _, cat := range Categories {
		a, b := t.Entries(cat), other.Entries(cat)
		if len(a) != len(b) {
			return false
		}
		for i := range a {
			if !a[i].equal(b[i]) {
				return false
			}
		}
	}
	return true
}

// Cursor locates one entry as a (category, index) pair. Index -1 or
// out-of-range means nothing is selected.
type Cursor struct {
	Category Category `json:"category"`
	Index    int      `json:"index"`
}

// NoSelection is the explicit nothing-selected cursor.
var NoSelection = Cursor{Category: CategoryCommands, Index: -1}

// Clamp constrains the cursor's index to the addressed category's range,
// mapping an empty category to -1.
func (c Cursor) Clamp(t *Tree) Cursor {
	n := len(t.Entries(c.Category))
	if n == 0 {
		return Cursor{Category: c.Category, Index: -1}
	}
	if c.Index < 0 {
		return Cursor{Category: c.Category, Index: 0}
	}
	if c.Index >= n {
		return Cursor{Category: c.Category, Index: n - 1}
	}
	return c
}

// RepairAfterDelete adjusts the cursor after deleting the entry at
// deleted, both within the same category: deleting the selected entry
// moves selection to the previous one (clamped to 0), deleting an earlier
// entry shifts selection down by one, deleting a later entry leaves it
// unchanged.
func (c Cursor) RepairAfterDelete(deleted Cursor) Cursor {
	if c.Category != deleted.Category || c.Index < 0 || deleted.Index < 0 {
		return c
	}
	switch {
	case deleted.Index == c.Index:
		idx := c.Index - 1
		if idx < 0 {
			idx = 0
		}
		return Cursor{Category: c.Category, Index: idx}
	case deleted.Index < c.Index:
		return Cursor{Category: c.Category, Index: c.Index - 1}
	}
	return c
}

// NewEntry synthesizes an entry of the given type from schema defaults,
// validating each default against its own constraint. The entry's name
// starts as the type name; the user renames it afterwards.
func NewEntry(schema Schema, typ string) (Entry, bool) {
	spec, ok := schema.Lookup(typ)
	if !ok {
		return Entry{}, false
	}
	e := Entry{Type: typ, Name: typ, Fields: make([]Field, 0, len(spec.Fields))}
	for _, fs := range spec.Fields {
		e.Fields = append(e.Fields, Field{
			Name:       fs.Name,
			Value:      fs.Default,
			Constraint: fs.Constraint,
			Valid:      value.Verify(fs.Default, fs.Constraint),
		})
	}
	return e, true
}
