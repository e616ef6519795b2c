package param

import (
	"fmt"
	"strings"
)

// Operator is the comparison requested for one filter condition.
type Operator int

// Operators. Each has a long name and a two-letter code; both are accepted
// in the "<field>-op" request key.
const (
	Equal        Operator = iota // eq
	NotEqual                     // ne
	GreaterThan                  // gt
	GreaterEqual                 // ge
	LessThan                     // lt
	LessEqual                    // le
	Include                      // in
	StartWith                    // sw
	EndWith                      // ew
	Empty                        // ey
	NotEmpty                     // ny
	Between                      // bt
	MultiValue                   // mv
)

var operatorNames = [...]struct{ name, code string }{
	Equal:        {"Equal", "eq"},
	NotEqual:     {"NotEqual", "ne"},
	GreaterThan:  {"GreaterThan", "gt"},
	GreaterEqual: {"GreaterEqual", "ge"},
	LessThan:     {"LessThan", "lt"},
	LessEqual:    {"LessEqual", "le"},
	Include:      {"Include", "in"},
	StartWith:    {"StartWith", "sw"},
	EndWith:      {"EndWith", "ew"},
	Empty:        {"Empty", "ey"},
	NotEmpty:     {"NotEmpty", "ny"},
	Between:      {"Between", "bt"},
	MultiValue:   {"MultiValue", "mv"},
}

// Valid reports whether o is a defined operator.
func (o Operator) Valid() bool {
	return o >= Equal && int(o) < len(operatorNames)
}

func (o Operator) String() string {
	if !o.Valid() {
		return fmt.Sprintf("Operator(%d)", int(o))
	}
	return operatorNames[o].name
}

// Code returns the two-letter short form.
func (o Operator) Code() string {
	if !o.Valid() {
		return ""
	}
	return operatorNames[o].code
}

// CarriesValue reports whether the operator compares against request values.
// Empty and NotEmpty do not.
func (o Operator) CarriesValue() bool {
	return o != Empty && o != NotEmpty
}

// ParseOperator accepts a long name or a code, case-insensitively.
func ParseOperator(s string) (Operator, error) {
	s = strings.TrimSpace(s)
	for i, n := range operatorNames {
		if strings.EqualFold(s, n.name) || strings.EqualFold(s, n.code) {
			return Operator(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownOperator, s)
}
