package ledger

import (
	"errors"
	"fmt"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ValidationError is a caller-correctable posting error: a missing account on
// a leg, a negative amount, missing source fields. It is surfaced directly to
// the caller and never retried.
type ValidationError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError creates a validation error
func NewValidationError(code, message string) *ValidationError {
	return &ValidationError{Code: code, Message: message}
}

// BalanceMismatchError means one Synchronize call supplied legs whose debits
// and credits do not sum equal. It is a programmer error in the calling
// document module, never user input: the enclosing database transaction must
// roll back so no partial postings survive. It is never coerced or
// auto-balanced.
type BalanceMismatchError struct {
	Source  SourceRef
	Debits  decimal.Decimal
	Credits decimal.Decimal
}

// Error implements the error interface
func (e *BalanceMismatchError) Error() string {
	return fmt.Sprintf("unbalanced posting for %s: debits %s != credits %s",
		e.Source, e.Debits.StringFixed(2), e.Credits.StringFixed(2))
}

// ErrPeriodClosed is returned when Close is called on an already-closed
// fiscal period. It is the caller-facing idempotency guard; closing is not
// retried internally.
var ErrPeriodClosed = shared.NewDomainError("PERIOD_CLOSED", "Fiscal period is already closed")

// ErrMissingProfitAndLossAccount means the configured profit-and-loss account
// code does not exist in the chart of accounts.
var ErrMissingProfitAndLossAccount = shared.NewDomainError("MISSING_PL_ACCOUNT", "Profit and loss account not found in chart of accounts")

// isNotFound reports whether err is the repository not-found sentinel
func isNotFound(err error) bool {
	return errors.Is(err, shared.ErrNotFound)
}
