package ledger

import (
	"errors"
	"fmt"

	"github.com/mcclellann/alfaledger/pkg/store"
)

// Reason is a short, user-facing explanation for a rejected write.
type Reason string

const (
	ReasonLoanClosed         Reason = "loan closed"
	ReasonInvalidType        Reason = "invalid type"
	ReasonInvalidDate        Reason = "invalid date"
	ReasonDuplicateDate      Reason = "duplicate date"
	ReasonInvalidAmount      Reason = "invalid amount"
	ReasonTypeAmountMismatch Reason = "type/amount mismatch"
	ReasonExceedsBalance     Reason = "exceeds balance"

	ReasonInvalidBorrower Reason = "invalid borrower name"
	ReasonInvalidInterest Reason = "invalid interest"
	ReasonInvalidStatus   Reason = "invalid status"
)

// ErrLoanNotFound is returned when the loan id does not exist.
var ErrLoanNotFound = store.ErrLoanNotFound

// ValidationError rejects a write. Nothing has been persisted when it is returned.
type ValidationError struct {
	Reason Reason
}

func (e *ValidationError) Error() string {
	return string(e.Reason)
}

func reject(r Reason) error {
	return &ValidationError{Reason: r}
}

// IsRejected reports whether err is a ValidationError carrying reason.
func IsRejected(err error, reason Reason) bool {
	var verr *ValidationError
	return errors.As(err, &verr) && verr.Reason == reason
}

// ConnectivityError means the store could not be reached, so the write was
// never attempted.
type ConnectivityError struct {
	Err error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("ledger store unreachable: %v", e.Err)
}

func (e *ConnectivityError) Unwrap() error {
	return e.Err
}
