package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/mcclellann/alfaledger/pkg/models"
	"github.com/shopspring/decimal"
)

// ErrLoanNotFound is returned when no loan exists for the requested id.
var ErrLoanNotFound = errors.New("loan not found")

// Update is the write produced by an AtomicFunc. The payment timestamp is
// always assigned by the store when the update is committed.
type Update struct {
	Balance decimal.Decimal
	Status  models.LoanStatus
	Payment models.Payment
}

// AtomicFunc inspects a consistent snapshot of a loan and returns the update to
// commit. Returning an error aborts the transaction without writing anything.
type AtomicFunc func(current *models.Loan) (*Update, error)

// Storage defines the interface for database operations related to loans and payments.
type Storage interface {
	// CreateLoan assigns loan.ID and persists the loan together with any payments it carries.
	CreateLoan(ctx context.Context, loan *models.Loan) error
	GetLoan(ctx context.Context, id uuid.UUID) (*models.Loan, error)
	GetAllLoans(ctx context.Context) ([]*models.Loan, error)

	// RunAtomic runs fn against the current state of the loan and commits its
	// update in the same transaction. Concurrent calls for one loan serialize.
	RunAtomic(ctx context.Context, id uuid.UUID, fn AtomicFunc) (*models.Loan, error)

	// Now returns the database clock, independent of the caller's clock.
	Now(ctx context.Context) (time.Time, error)
	Ping(ctx context.Context) error

	Close() error
}
