package quarry_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/pthm/quarry"
)

func TestErrorHelpers(t *testing.T) {
	t.Run("IsSyntaxErr", func(t *testing.T) {
		err := fmt.Errorf("wrapped: %w", quarry.ErrSyntax)
		if !quarry.IsSyntaxErr(err) {
			t.Error("IsSyntaxErr should return true for wrapped ErrSyntax")
		}
		if quarry.IsSyntaxErr(errors.New("other error")) {
			t.Error("IsSyntaxErr should return false for other errors")
		}
	})

	t.Run("IsUnknownBeanErr", func(t *testing.T) {
		err := fmt.Errorf("wrapped: %w", quarry.ErrUnknownBean)
		if !quarry.IsUnknownBeanErr(err) {
			t.Error("IsUnknownBeanErr should return true for wrapped ErrUnknownBean")
		}
		if quarry.IsUnknownBeanErr(errors.New("other error")) {
			t.Error("IsUnknownBeanErr should return false for other errors")
		}
	})

	t.Run("IsUnmappedSummaryFieldErr", func(t *testing.T) {
		err := fmt.Errorf("wrapped: %w", quarry.ErrUnmappedSummaryField)
		if !quarry.IsUnmappedSummaryFieldErr(err) {
			t.Error("IsUnmappedSummaryFieldErr should return true for wrapped ErrUnmappedSummaryField")
		}
	})

	t.Run("IsUnknownDialectErr", func(t *testing.T) {
		err := fmt.Errorf("wrapped: %w", quarry.ErrUnknownDialect)
		if !quarry.IsUnknownDialectErr(err) {
			t.Error("IsUnknownDialectErr should return true for wrapped ErrUnknownDialect")
		}
	})

	t.Run("IsBadRequestErr", func(t *testing.T) {
		for _, sentinel := range []error{
			quarry.ErrUnknownOperator,
			quarry.ErrInvalidParam,
			quarry.ErrUnmappedSummaryField,
			quarry.ErrNoSummaryFields,
		} {
			if !quarry.IsBadRequestErr(fmt.Errorf("wrapped: %w", sentinel)) {
				t.Errorf("IsBadRequestErr should return true for %v", sentinel)
			}
		}
		if quarry.IsBadRequestErr(quarry.ErrSyntax) {
			t.Error("IsBadRequestErr should return false for descriptor errors")
		}
	})
}

func TestSentinelErrors(t *testing.T) {
	// Every sentinel carries the package prefix.
	for _, err := range []error{
		quarry.ErrSyntax,
		quarry.ErrUnmappedSummaryField,
		quarry.ErrUnknownBean,
		quarry.ErrUnknownDialect,
		quarry.ErrUnknownOperator,
		quarry.ErrInvalidParam,
		quarry.ErrNoSummaryFields,
		quarry.ErrNoDatabase,
	} {
		t.Run(err.Error(), func(t *testing.T) {
			if !strings.HasPrefix(err.Error(), "quarry: ") {
				t.Errorf("error message %q should start with the package prefix", err.Error())
			}
		})
	}
}
