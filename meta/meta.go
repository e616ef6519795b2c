// Package meta describes searchable beans: the tables a bean reads from, its
// optional join condition and grouping, and the ordered list of logical
// fields mapped to physical column expressions.
//
// Descriptors are plain data. They are usually loaded from YAML with
// LoadFile and served by a Registry, which validates every bean once and
// hands out shared, read-only pointers. Callers must not modify a Bean after
// it has been registered.
package meta

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

// Sentinel errors.
var (
	// ErrUnknownBean is returned when a bean name is not registered.
	ErrUnknownBean = errors.New("quarry: unknown bean")

	// ErrInvalidBean is returned when a descriptor fails validation.
	ErrInvalidBean = errors.New("quarry: invalid bean descriptor")
)

// FieldType is the declared value type of a field.
type FieldType string

// Field types.
const (
	String    FieldType = "string"
	Int       FieldType = "int"
	Long      FieldType = "long"
	Float     FieldType = "float"
	Double    FieldType = "double"
	Decimal   FieldType = "decimal"
	Bool      FieldType = "bool"
	Date      FieldType = "date"
	DateTime  FieldType = "datetime"
	Timestamp FieldType = "timestamp"
	Time      FieldType = "time"
)

// IsTemporal reports whether values of t are dates or times, which makes
// filters on the field eligible for precision truncation.
func (t FieldType) IsTemporal() bool {
	switch t {
	case Date, DateTime, Timestamp, Time:
		return true
	}
	return false
}

// IsNumeric reports whether t is a number type.
func (t FieldType) IsNumeric() bool {
	switch t {
	case Int, Long, Float, Double, Decimal:
		return true
	}
	return false
}

// Valid reports whether t is a known type. The empty type is treated as
// String and is valid.
func (t FieldType) Valid() bool {
	switch t {
	case "", String, Int, Long, Float, Double, Decimal, Bool, Date, DateTime, Timestamp, Time:
		return true
	}
	return false
}

// Field maps a logical field name to a physical column expression. Expr may
// embed virtual parameters.
type Field struct {
	Name string    `json:"name"`
	Expr string    `json:"expr"`
	Type FieldType `json:"type,omitempty"`

	// Conditional controls whether the field may be filtered on. Nil means true.
	Conditional *bool `json:"conditional,omitempty"`

	// OnlyOn restricts filters on this field to the listed operators.
	// Empty means any operator.
	OnlyOn []string `json:"only_on,omitempty"`

	// Alias overrides the generated select alias.
	Alias string `json:"alias,omitempty"`
}

// IsConditional reports whether the field participates in filtering.
func (f *Field) IsConditional() bool {
	return f.Conditional == nil || *f.Conditional
}

// Bean is a searchable entity.
type Bean struct {
	Name string `json:"name"`

	// Tables is the from-clause table list, e.g. "user u, role r".
	Tables string `json:"tables"`

	// JoinCond is an optional predicate joining the tables.
	JoinCond string `json:"join_cond,omitempty"`

	// GroupBy is an optional group by expression list.
	GroupBy string `json:"group_by,omitempty"`

	Distinct bool    `json:"distinct,omitempty"`
	Fields   []Field `json:"fields"`
}

// Field returns the field with the given logical name.
func (b *Bean) Field(name string) (*Field, bool) {
	for i := range b.Fields {
		if b.Fields[i].Name == name {
			return &b.Fields[i], true
		}
	}
	return nil, false
}

// SelectAlias returns the select-list alias of the i-th field: its explicit
// Alias, or d_<i>.
func (b *Bean) SelectAlias(i int) string {
	if a := b.Fields[i].Alias; a != "" {
		return a
	}
	return "d_" + strconv.Itoa(i)
}

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Validate checks the structural invariants of the descriptor: a name, a
// table list, at least one field, unique identifier field names, and unique
// identifier select aliases.
func (b *Bean) Validate() error {
	if b.Name == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidBean)
	}
	if b.Tables == "" {
		return fmt.Errorf("%w: bean %q: missing tables", ErrInvalidBean, b.Name)
	}
	if len(b.Fields) == 0 {
		return fmt.Errorf("%w: bean %q: no fields", ErrInvalidBean, b.Name)
	}

	names := make(map[string]bool, len(b.Fields))
	aliases := make(map[string]string, len(b.Fields))
	for i := range b.Fields {
		f := &b.Fields[i]
		if f.Name == "" {
			return fmt.Errorf("%w: bean %q: field %d has no name", ErrInvalidBean, b.Name, i)
		}
		if f.Expr == "" {
			return fmt.Errorf("%w: bean %q: field %q has no expr", ErrInvalidBean, b.Name, f.Name)
		}
		if !f.Type.Valid() {
			return fmt.Errorf("%w: bean %q: field %q has unknown type %q", ErrInvalidBean, b.Name, f.Name, f.Type)
		}
		if !identPattern.MatchString(f.Name) {
			return fmt.Errorf("%w: bean %q: field name %q is not an identifier", ErrInvalidBean, b.Name, f.Name)
		}
		if names[f.Name] {
			return fmt.Errorf("%w: bean %q: duplicate field %q", ErrInvalidBean, b.Name, f.Name)
		}
		names[f.Name] = true

		alias := b.SelectAlias(i)
		if !identPattern.MatchString(alias) {
			return fmt.Errorf("%w: bean %q: field %q alias %q is not an identifier", ErrInvalidBean, b.Name, f.Name, alias)
		}
		if other, ok := aliases[alias]; ok {
			return fmt.Errorf("%w: bean %q: fields %q and %q share alias %q", ErrInvalidBean, b.Name, other, f.Name, alias)
		}
		aliases[alias] = f.Name
	}
	return nil
}
