package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DateLayout is the calendar date format used for loan and payment dates.
const DateLayout = "2006-01-02"

type LoanStatus string

const (
	LoanStatusActive  LoanStatus = "Active"
	LoanStatusPending LoanStatus = "Pending"
	LoanStatusClosed  LoanStatus = "Closed"
)

type Loan struct {
	ID           uuid.UUID       `json:"id"`
	BorrowerName string          `json:"borrower_name"`
	Amount       decimal.Decimal `json:"amount"`   // Principal lent
	Interest     decimal.Decimal `json:"interest"` // Flat interest profit on the loan
	Balance      decimal.Decimal `json:"balance"`
	LoanDate     string          `json:"loan_date"`
	DueDate      string          `json:"due_date"`
	Place        string          `json:"place"`
	Status       LoanStatus      `json:"status"`
	Payments     []Payment       `json:"payments"` // Insertion order
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// IsClosed reports whether the loan has been fully repaid.
func (l *Loan) IsClosed() bool {
	return l.Status == LoanStatusClosed
}

// HasPaymentOn reports whether a payment is already recorded for date.
func (l *Loan) HasPaymentOn(date string) bool {
	for _, p := range l.Payments {
		if p.Date == date {
			return true
		}
	}
	return false
}

type PaymentType string

const (
	PaymentTypeCredit PaymentType = "credit"
	PaymentTypeSkip   PaymentType = "skip"
)

// PaymentCategoryInterest marks a payment as collected interest rather than principal.
const PaymentCategoryInterest = "interest"

type Payment struct {
	ID        uuid.UUID       `json:"id"`
	Amount    decimal.Decimal `json:"amount"`
	Type      PaymentType     `json:"type"`
	Category  string          `json:"category,omitempty"`
	Date      string          `json:"date"`      // Entered by the collector
	Timestamp time.Time       `json:"timestamp"` // Assigned by the store
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, bool) {
	if len(s) != len(DateLayout) {
		return time.Time{}, false
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
