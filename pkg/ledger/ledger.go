package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mcclellann/alfaledger/pkg/events"
	"github.com/mcclellann/alfaledger/pkg/models"
	"github.com/mcclellann/alfaledger/pkg/report"
	"github.com/mcclellann/alfaledger/pkg/store"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Connectivity reports whether the authoritative store can be reached.
// Writes are refused when it returns an error.
type Connectivity interface {
	Online(ctx context.Context) error
}

// ConnectivityFunc adapts a function to Connectivity.
type ConnectivityFunc func(ctx context.Context) error

func (f ConnectivityFunc) Online(ctx context.Context) error { return f(ctx) }

// Ledger handles the business logic for loans and payments.
type Ledger struct {
	storage   store.Storage
	log       *logrus.Logger
	online    Connectivity
	publisher events.Publisher
	loc       *time.Location // Business time zone for "today"
}

type Option func(*Ledger)

func WithLogger(log *logrus.Logger) Option {
	return func(l *Ledger) { l.log = log }
}

// WithConnectivity replaces the default probe, which pings the store.
func WithConnectivity(c Connectivity) Option {
	return func(l *Ledger) { l.online = c }
}

func WithPublisher(p events.Publisher) Option {
	return func(l *Ledger) { l.publisher = p }
}

func WithLocation(loc *time.Location) Option {
	return func(l *Ledger) { l.loc = loc }
}

// NewLedger creates a new Ledger with a given Storage implementation.
func NewLedger(s store.Storage, opts ...Option) *Ledger {
	l := &Ledger{
		storage:   s,
		log:       logrus.StandardLogger(),
		online:    ConnectivityFunc(s.Ping),
		publisher: events.Nop{},
		loc:       time.Local,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LoanRequest holds the registration details for a new loan.
type LoanRequest struct {
	BorrowerName string            `json:"borrower_name"`
	Amount       decimal.Decimal   `json:"amount"`
	Interest     decimal.Decimal   `json:"interest"`
	LoanDate     string            `json:"loan_date"`
	DueDate      string            `json:"due_date"`
	Place        string            `json:"place"`
	Status       models.LoanStatus `json:"status,omitempty"`
}

// PaymentRequest is a payment as entered by the collector.
type PaymentRequest struct {
	Amount   decimal.Decimal    `json:"amount"`
	Type     models.PaymentType `json:"type"`
	Category string             `json:"category,omitempty"`
	Date     string             `json:"date"`
}

func (l *Ledger) checkOnline(ctx context.Context) error {
	if err := l.online.Online(ctx); err != nil {
		l.log.WithError(err).Warn("Ledger store unreachable, refusing write")
		return &ConnectivityError{Err: err}
	}
	return nil
}

// CreateLoan registers a new loan. The balance starts at the full amount.
func (l *Ledger) CreateLoan(ctx context.Context, req LoanRequest) (*models.Loan, error) {
	if err := validateLoanRequest(req); err != nil {
		return nil, err
	}
	if err := l.checkOnline(ctx); err != nil {
		return nil, err
	}

	status := req.Status
	if status == "" {
		status = models.LoanStatusActive
	}
	loan := &models.Loan{
		BorrowerName: strings.TrimSpace(req.BorrowerName),
		Amount:       req.Amount,
		Interest:     req.Interest,
		Balance:      req.Amount,
		LoanDate:     req.LoanDate,
		DueDate:      req.DueDate,
		Place:        strings.TrimSpace(req.Place),
		Status:       status,
		Payments:     []models.Payment{},
	}

	if err := l.storage.CreateLoan(ctx, loan); err != nil {
		return nil, fmt.Errorf("failed to store loan: %w", err)
	}

	l.log.WithFields(logrus.Fields{
		"loan_id": loan.ID,
		"amount":  loan.Amount.String(),
	}).Info("Loan registered")
	return loan, nil
}

// ImportLoans registers previously recorded loans with their payment history
// as-is. Records without a borrower name are skipped. A negative balance is
// clamped to 0 and a loan with nothing left to pay is stored Closed. It
// returns the number of loans stored.
func (l *Ledger) ImportLoans(ctx context.Context, loans []*models.Loan) (int, error) {
	if err := l.checkOnline(ctx); err != nil {
		return 0, err
	}

	imported := 0
	for i, loan := range loans {
		if strings.TrimSpace(loan.BorrowerName) == "" {
			l.log.WithField("index", i).Warn("Skipping imported loan without borrower name")
			continue
		}
		if loan.Status == "" {
			loan.Status = models.LoanStatusActive
		}
		if loan.Balance.IsNegative() {
			l.log.WithFields(logrus.Fields{
				"index":   i,
				"balance": loan.Balance.String(),
			}).Warn("Imported loan is overpaid, clamping balance to 0")
			loan.Balance = decimal.Zero
		}
		if loan.Balance.IsZero() {
			loan.Status = models.LoanStatusClosed
		}
		if loan.Payments == nil {
			loan.Payments = []models.Payment{}
		}
		if err := l.storage.CreateLoan(ctx, loan); err != nil {
			return imported, fmt.Errorf("failed to import loan %d (%s): %w", i, loan.BorrowerName, err)
		}
		imported++
	}

	l.log.WithFields(logrus.Fields{
		"imported": imported,
		"skipped":  len(loans) - imported,
	}).Info("Loans imported")
	return imported, nil
}

// ApplyPayment validates and records a payment against a loan in a single
// store transaction and returns the updated loan.
//
// The payment is re-validated against the loan as read inside the
// transaction, so a concurrent payment on the same loan is always taken into
// account. A rejection leaves the store untouched.
func (l *Ledger) ApplyPayment(ctx context.Context, loanID uuid.UUID, req PaymentRequest) (*models.Loan, error) {
	if err := l.checkOnline(ctx); err != nil {
		return nil, err
	}

	now, err := l.storage.Now(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read store clock: %w", err)
	}
	today := now.In(l.loc).Format(models.DateLayout)

	payment := models.Payment{
		Amount:   req.Amount,
		Type:     req.Type,
		Category: strings.TrimSpace(req.Category),
		Date:     req.Date,
	}

	loan, err := l.storage.RunAtomic(ctx, loanID, func(current *models.Loan) (*store.Update, error) {
		if err := Validate(current, payment, today); err != nil {
			return nil, err
		}
		return nextState(current, payment), nil
	})
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			l.log.WithFields(logrus.Fields{
				"loan_id": loanID,
				"reason":  verr.Reason,
			}).Info("Payment rejected")
			return nil, err
		}
		if errors.Is(err, store.ErrLoanNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to apply payment: %w", err)
	}

	applied := loan.Payments[len(loan.Payments)-1]
	l.log.WithFields(logrus.Fields{
		"loan_id": loan.ID,
		"type":    applied.Type,
		"amount":  applied.Amount.String(),
		"balance": loan.Balance.String(),
		"status":  loan.Status,
	}).Info("Payment applied")

	// The payment is committed; a broker failure must not be reported as a failed payment.
	if err := l.publisher.PublishPaymentApplied(ctx, events.NewPaymentAppliedMessage(loan, applied)); err != nil {
		l.log.WithError(err).WithField("loan_id", loan.ID).Error("Failed to publish payment event")
	}

	return loan, nil
}

// GetLoan retrieves a loan by its ID.
func (l *Ledger) GetLoan(ctx context.Context, id uuid.UUID) (*models.Loan, error) {
	return l.storage.GetLoan(ctx, id)
}

// ListLoans retrieves all loans.
func (l *Ledger) ListLoans(ctx context.Context) ([]*models.Loan, error) {
	return l.storage.GetAllLoans(ctx)
}

// SearchLoans returns the loans whose borrower name contains query, ignoring
// case. An empty query matches every loan.
func (l *Ledger) SearchLoans(ctx context.Context, query string) ([]*models.Loan, error) {
	loans, err := l.storage.GetAllLoans(ctx)
	if err != nil {
		return nil, err
	}
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return loans, nil
	}

	matches := make([]*models.Loan, 0, len(loans))
	for _, loan := range loans {
		if strings.Contains(strings.ToLower(loan.BorrowerName), query) {
			matches = append(matches, loan)
		}
	}
	return matches, nil
}

// MonthlySummary returns the loan together with its payments grouped by month.
func (l *Ledger) MonthlySummary(ctx context.Context, id uuid.UUID) (*models.Loan, []report.MonthlySummary, error) {
	loan, err := l.storage.GetLoan(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return loan, report.SummarizeByMonth(loan.Payments), nil
}

// Portfolio computes business-wide statistics, using the store clock to decide
// which payments were collected today.
func (l *Ledger) Portfolio(ctx context.Context) (report.Portfolio, error) {
	now, err := l.storage.Now(ctx)
	if err != nil {
		return report.Portfolio{}, fmt.Errorf("failed to read store clock: %w", err)
	}
	loans, err := l.storage.GetAllLoans(ctx)
	if err != nil {
		return report.Portfolio{}, err
	}
	return report.SummarizePortfolio(loans, report.LocalDayRange(now.In(l.loc))), nil
}
