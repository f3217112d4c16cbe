package configtree

import (
	"fmt"

	"github.com/aussiebot/console/internal/value"
	"github.com/aussiebot/console/internal/wire"
)

// Category is one of the three fixed configuration partitions.
type Category int

const (
	CategoryCommands Category = iota
	CategoryFilters
	CategoryTimers
)

// Categories in display order.
var Categories = []Category{CategoryCommands, CategoryFilters, CategoryTimers}

func (c Category) String() string {
	switch c {
	case CategoryCommands:
		return "commands"
	case CategoryFilters:
		return "filters"
	case CategoryTimers:
		return "timers"
	}
	return fmt.Sprintf("category(%d)", int(c))
}

// categoryKeys maps the schema wire category key to a Category.
var categoryKeys = map[string]Category{
	"Command": CategoryCommands,
	"Filter":  CategoryFilters,
	"Timer":   CategoryTimers,
}

// FieldSpec is the schema definition of one config field.
type FieldSpec struct {
	Name        string
	Description string
	Default     value.Value
	Constraint  value.Constraint
}

// EntrySpec is the schema definition of one command type: where it lives
// and which fields it carries, in declaration order.
type EntrySpec struct {
	Type        string
	Description string
	Category    Category
	Fields      []FieldSpec
}

func (e EntrySpec) field(name string) (FieldSpec, bool) {
	for _, f := range e.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// Schema is the immutable per-session command schema, keyed by type name.
type Schema struct {
	order []string
	types map[string]EntrySpec
}

// BuildSchema converts a schema dump into the lookup form used for
// decoding and for synthesizing new entries.
func BuildSchema(dump wire.SchemaDump) (Schema, error) {
	s := Schema{types: make(map[string]EntrySpec, len(dump))}
	for _, cs := range dump {
		cat, ok := categoryKeys[cs.Category]
		if !ok {
			return Schema{}, fmt.Errorf("schema type %q has unknown category %q", cs.Type, cs.Category)
		}
		if _, dup := s.types[cs.Type]; dup {
			return Schema{}, fmt.Errorf("schema type %q declared twice", cs.Type)
		}
		spec := EntrySpec{
			Type:        cs.Type,
			Description: cs.Description,
			Category:    cat,
			Fields:      make([]FieldSpec, 0, len(cs.Fields)),
		}
		for _, fs := range cs.Fields {
			spec.Fields = append(spec.Fields, FieldSpec{
				Name:        fs.Name,
				Description: fs.Description,
				Default:     fs.Default,
				Constraint:  fs.Constraint,
			})
		}
		s.types[cs.Type] = spec
		s.order = append(s.order, cs.Type)
	}
	return s, nil
}

// Lookup returns the spec for a command type.
func (s Schema) Lookup(typ string) (EntrySpec, bool) {
	spec, ok := s.types[typ]
	return spec, ok
}

// TypesFor lists the command types belonging to a category, in schema
// declaration order. The add-command flow offers these as choices.
func (s Schema) TypesFor(cat Category) []string {
	var out []string
	for _, typ := range s.order {
		if s.types[typ].Category == cat {
			out = append(out, typ)
		}
	}
	return out
}

// Empty reports whether the schema has been loaded yet.
func (s Schema) Empty() bool { return len(s.types) == 0 }
