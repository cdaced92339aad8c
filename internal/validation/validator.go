// =============================================================================
// Payments Engine - Record Validation
// =============================================================================
//
// This module turns a raw input Record into a ledger.Transaction. It checks:
//   - the transaction type is one of the five known kinds
//   - client is an unsigned 16-bit integer
//   - tx is an unsigned 32-bit integer
//   - amount, when present, is an exact decimal within the allowed scale
//
// Whether an amount is *required* for a kind is a ledger rule, not a parsing
// rule: a deposit without amount is a well-formed record that the engine
// rejects with ErrMissingAmount.
//
// ERROR HANDLING:
//   - All field errors on a row are collected and joined
//   - Each error carries the row, field and offending value
//
// =============================================================================

package validation

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ginjaninja78/payments-engine/internal/ledger"
	"github.com/ginjaninja78/payments-engine/internal/types"
	"github.com/shopspring/decimal"
)

// DefaultMaxScale is the number of decimal places accepted in amounts.
const DefaultMaxScale = 4

// =============================================================================
// VALIDATION ERROR TYPES
// =============================================================================

// ValidationError describes one malformed field.
type ValidationError struct {
	// Row is the source row number.
	Row int

	// Field is the column that failed validation.
	Field string

	// Value is the raw cell value.
	Value string

	// Message is a human-readable reason.
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("row %d, field '%s': %s (value: '%s')", e.Row, e.Field, e.Message, e.Value)
}

// =============================================================================
// VALIDATOR
// =============================================================================

// Validator converts records into transactions.
type Validator struct {
	options ValidationOptions
}

// ValidationOptions contains options for validation.
type ValidationOptions struct {
	// MaxScale is the maximum number of decimal places in an amount.
	// Default: 4
	MaxScale int32

	// AllowNegativeAmounts accepts amounts below zero. The ledger does not
	// check signs itself, so this is the only place they can be refused.
	// Default: true
	AllowNegativeAmounts bool
}

// DefaultValidationOptions returns the default validation options.
func DefaultValidationOptions() ValidationOptions {
	return ValidationOptions{
		MaxScale:             DefaultMaxScale,
		AllowNegativeAmounts: true,
	}
}

// NewValidator creates a Validator with default options.
func NewValidator() *Validator {
	return NewValidatorWithOptions(DefaultValidationOptions())
}

// NewValidatorWithOptions creates a Validator with custom options.
func NewValidatorWithOptions(options ValidationOptions) *Validator {
	return &Validator{options: options}
}

// Validate converts a record into a transaction. The returned error joins
// one *ValidationError per malformed field.
func (v *Validator) Validate(record types.Record) (ledger.Transaction, error) {
	var (
		tx   ledger.Transaction
		errs []error
	)

	kind, err := ledger.ParseKind(record.Get(types.ColumnType))
	if err != nil {
		errs = append(errs, fieldError(record, types.ColumnType, "unknown transaction type"))
	}
	tx.Kind = kind

	client, err := parseUint(record.Get(types.ColumnClient), 16)
	if err != nil {
		errs = append(errs, fieldError(record, types.ColumnClient, err.Error()))
	}
	tx.Client = ledger.ClientID(client)

	id, err := parseUint(record.Get(types.ColumnTx), 32)
	if err != nil {
		errs = append(errs, fieldError(record, types.ColumnTx, err.Error()))
	}
	tx.TxID = ledger.TxID(id)

	amount, err := v.parseAmount(record.Get(types.ColumnAmount))
	if err != nil {
		errs = append(errs, fieldError(record, types.ColumnAmount, err.Error()))
	}
	tx.Amount = amount

	if len(errs) > 0 {
		return ledger.Transaction{}, errors.Join(errs...)
	}

	return tx, nil
}

func fieldError(record types.Record, field, message string) *ValidationError {
	return &ValidationError{
		Row:     record.Row,
		Field:   field,
		Value:   record.Get(field),
		Message: message,
	}
}

func parseUint(value string, bits int) (uint64, error) {
	if value == "" {
		return 0, errors.New("value is required")
	}

	n, err := strconv.ParseUint(value, 10, bits)
	if err != nil {
		return 0, fmt.Errorf("not a valid unsigned %d-bit integer", bits)
	}

	return n, nil
}

// parseAmount returns nil for an empty cell.
func (v *Validator) parseAmount(value string) (*decimal.Decimal, error) {
	if value == "" {
		return nil, nil
	}

	amount, err := decimal.NewFromString(value)
	if err != nil {
		return nil, errors.New("not a valid decimal number")
	}

	if v.options.MaxScale >= 0 && !amount.Equal(amount.Truncate(v.options.MaxScale)) {
		return nil, fmt.Errorf("more than %d decimal places", v.options.MaxScale)
	}

	if !v.options.AllowNegativeAmounts && amount.IsNegative() {
		return nil, errors.New("amount must not be negative")
	}

	return &amount, nil
}

// =============================================================================
// ERROR FORMATTING
// =============================================================================

// FieldErrors extracts the individual field errors from an error returned by
// Validate.
func FieldErrors(err error) []*ValidationError {
	if err == nil {
		return nil
	}

	var fieldErrs []*ValidationError

	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			var fieldErr *ValidationError
			if errors.As(e, &fieldErr) {
				fieldErrs = append(fieldErrs, fieldErr)
			}
		}

		return fieldErrs
	}

	var fieldErr *ValidationError
	if errors.As(err, &fieldErr) {
		fieldErrs = append(fieldErrs, fieldErr)
	}

	return fieldErrs
}

// FormatErrors formats validation errors for display or logging.
func FormatErrors(errs []*ValidationError) string {
	if len(errs) == 0 {
		return "No validation errors."
	}

	var builder strings.Builder

	builder.WriteString(fmt.Sprintf("Validation completed with %d error(s):\n\n", len(errs)))

	for i, err := range errs {
		builder.WriteString(fmt.Sprintf("%d. %s\n", i+1, err.Error()))
	}

	return builder.String()
}
