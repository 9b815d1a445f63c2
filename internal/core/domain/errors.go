// internal/core/domain/errors.go
package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError reports malformed or missing required input. It is the
// caller's fault and never leaves partial effects behind.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// NewValidationError builds a ValidationError from a format string.
func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// NotFoundError reports a referenced entity that does not exist.
type NotFoundError struct {
	Entity string
	Msg    string
}

func (e *NotFoundError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return fmt.Sprintf("%s not found", e.Entity)
}

// InsufficientStockError reports that a sale line could not be satisfied.
// It carries the full diagnostic breakdown so the caller can see exactly
// which lots exist and what each one holds.
type InsufficientStockError struct {
	BookName  string
	Available int
	Requested int
	LotCode   string // set when the failure is scoped to a single lot
	Lots      []LotAvailability
}

func (e *InsufficientStockError) Error() string {
	var b strings.Builder
	if e.LotCode != "" {
		fmt.Fprintf(&b, "insufficient stock for book %s in lot %s: available %d, requested %d",
			e.BookName, e.LotCode, e.Available, e.Requested)
		return b.String()
	}
	fmt.Fprintf(&b, "insufficient stock for book %s: total available %d, requested %d",
		e.BookName, e.Available, e.Requested)
	if len(e.Lots) == 0 {
		b.WriteString(". No lots available")
		return b.String()
	}
	b.WriteString(". Available lots: ")
	for i, l := range e.Lots {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s (%d units)", l.LotCode, l.UnitsAvailable)
	}
	return b.String()
}

// MissingPriceError reports that no intake record exists to price a book
// from. A sale cannot proceed until an intake with a sale price is recorded.
type MissingPriceError struct {
	BookName string
}

func (e *MissingPriceError) Error() string {
	return fmt.Sprintf("no price information found for book %s: record an intake with a sale price before selling", e.BookName)
}

// IsBusinessError reports whether err belongs to the business-rule taxonomy
// (validation, not-found, insufficient-stock, missing-price) as opposed to
// an infrastructure failure.
func IsBusinessError(err error) bool {
	var (
		ve *ValidationError
		nf *NotFoundError
		is *InsufficientStockError
		mp *MissingPriceError
	)
	return errors.As(err, &ve) || errors.As(err, &nf) || errors.As(err, &is) || errors.As(err, &mp)
}
