package quarry

import (
	"errors"

	"github.com/pthm/quarry/dialect"
	"github.com/pthm/quarry/internal/sqlgen"
	"github.com/pthm/quarry/internal/vparam"
	"github.com/pthm/quarry/meta"
	"github.com/pthm/quarry/param"
)

// Sentinel errors. Errors returned by a Searcher wrap one of these, so
// callers can branch with errors.Is or the Is*Err helpers without importing
// the subpackages.
var (
	// ErrSyntax is returned when a virtual parameter in a bean descriptor is
	// malformed, e.g. a bare ":" with no name. Fix the descriptor.
	ErrSyntax = vparam.ErrSyntax

	// ErrUnmappedSummaryField is returned when a requested summary field is
	// not a field of the bean.
	ErrUnmappedSummaryField = sqlgen.ErrUnmappedSummaryField

	// ErrUnknownBean is returned when the provider has no bean with the
	// requested name.
	ErrUnknownBean = meta.ErrUnknownBean

	// ErrUnknownDialect is returned when a dialect name is not registered.
	ErrUnknownDialect = dialect.ErrUnknownDialect

	// ErrUnknownOperator is returned when a request names an operator that
	// does not exist.
	ErrUnknownOperator = param.ErrUnknownOperator

	// ErrInvalidParam is returned for malformed paging or sorting parameters.
	ErrInvalidParam = param.ErrInvalidParam

	// ErrNoSummaryFields is returned by SearchSum when no field is given.
	ErrNoSummaryFields = errors.New("quarry: no summary fields given")

	// ErrNoDatabase is returned by the search methods of a Searcher created
	// without a database. Build still works.
	ErrNoDatabase = errors.New("quarry: searcher has no database")
)

// IsSyntaxErr returns true if err is or wraps ErrSyntax.
func IsSyntaxErr(err error) bool {
	return errors.Is(err, ErrSyntax)
}

// IsUnmappedSummaryFieldErr returns true if err is or wraps ErrUnmappedSummaryField.
func IsUnmappedSummaryFieldErr(err error) bool {
	return errors.Is(err, ErrUnmappedSummaryField)
}

// IsUnknownBeanErr returns true if err is or wraps ErrUnknownBean.
func IsUnknownBeanErr(err error) bool {
	return errors.Is(err, ErrUnknownBean)
}

// IsUnknownDialectErr returns true if err is or wraps ErrUnknownDialect.
func IsUnknownDialectErr(err error) bool {
	return errors.Is(err, ErrUnknownDialect)
}

// IsBadRequestErr returns true if err was caused by the request parameters
// rather than the descriptor or the database.
func IsBadRequestErr(err error) bool {
	return errors.Is(err, ErrUnknownOperator) ||
		errors.Is(err, ErrInvalidParam) ||
		errors.Is(err, ErrUnmappedSummaryField) ||
		errors.Is(err, ErrNoSummaryFields)
}
