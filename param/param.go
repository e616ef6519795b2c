// Package param holds the typed, request-scoped inputs of a search: filter
// conditions, sorting, paging and the requested aggregates. Resolver builds
// them from a raw request map.
package param

import (
	"errors"
	"strings"
)

// Sentinel errors.
var (
	// ErrUnknownOperator is returned for an operator name or code that is not defined.
	ErrUnknownOperator = errors.New("quarry: unknown operator")

	// ErrInvalidParam is returned when a paging or sorting parameter is malformed.
	ErrInvalidParam = errors.New("quarry: invalid search parameter")
)

// FilterCondition is one predicate on a logical field.
//
// Values are raw strings. Between carries exactly two (lower, upper) and
// either may be blank. MultiValue carries one or more. Empty and NotEmpty
// may carry none.
type FilterCondition struct {
	Field      string
	Operator   Operator
	Values     []string
	IgnoreCase bool
}

// FirstValue returns the first non-blank value, or "" when every value is blank.
func (c FilterCondition) FirstValue() string {
	for _, v := range c.Values {
		if !isBlank(v) {
			return v
		}
	}
	return ""
}

// AllBlank reports whether every value is blank (or there are none).
func (c FilterCondition) AllBlank() bool {
	for _, v := range c.Values {
		if !isBlank(v) {
			return false
		}
	}
	return true
}

// Active reports whether the condition produces a predicate. Conditions
// whose values are all blank are dropped, except Empty and NotEmpty.
func (c FilterCondition) Active() bool {
	return !c.Operator.CarriesValue() || !c.AllBlank()
}

// Order is a sort direction.
type Order string

// Sort directions.
const (
	Asc  Order = "asc"
	Desc Order = "desc"
)

// SortSpec orders the list query by one logical field.
type SortSpec struct {
	Field string
	Order Order
}

// PageSpec bounds the list query. A nil *PageSpec means no limit.
type PageSpec struct {
	Max    int
	Offset int64
}

// SearchParam is everything one search needs besides the bean descriptor.
type SearchParam struct {
	Filters []FilterCondition
	Sort    *SortSpec
	Page    *PageSpec

	// SummaryFields are the logical fields to sum in the cluster query.
	SummaryFields []string

	ShouldQueryTotal bool
	ShouldQueryList  bool

	// VirtualParams supplies values for virtual parameters by name.
	VirtualParams map[string]any
}

// ActiveFilters returns the filters that produce a predicate, in order.
// The receiver is not modified.
func (p *SearchParam) ActiveFilters() []FilterCondition {
	out := make([]FilterCondition, 0, len(p.Filters))
	for _, f := range p.Filters {
		if f.Active() {
			out = append(out, f)
		}
	}
	return out
}

// ShouldQueryCluster reports whether a count or sum query is needed.
func (p *SearchParam) ShouldQueryCluster() bool {
	return p.ShouldQueryTotal || len(p.SummaryFields) > 0
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
