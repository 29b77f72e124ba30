package ledger

import (
	"strings"

	"github.com/mcclellann/alfaledger/pkg/models"
	"github.com/mcclellann/alfaledger/pkg/store"
)

// Validate checks a proposed payment against the loan's current state. today
// is the YYYY-MM-DD date payments may not be later than. The first failing
// check determines the reason.
func Validate(loan *models.Loan, p models.Payment, today string) error {
	if loan.IsClosed() {
		return reject(ReasonLoanClosed)
	}

	if p.Type != models.PaymentTypeCredit && p.Type != models.PaymentTypeSkip {
		return reject(ReasonInvalidType)
	}

	date, ok := models.ParseDate(p.Date)
	if !ok {
		return reject(ReasonInvalidDate)
	}
	if start, ok := models.ParseDate(loan.LoanDate); ok && date.Before(start) {
		return reject(ReasonInvalidDate)
	}
	if end, ok := models.ParseDate(today); !ok || date.After(end) {
		return reject(ReasonInvalidDate)
	}

	if loan.HasPaymentOn(p.Date) {
		return reject(ReasonDuplicateDate)
	}

	if p.Amount.IsNegative() {
		return reject(ReasonInvalidAmount)
	}

	switch p.Type {
	case models.PaymentTypeCredit:
		if !p.Amount.IsPositive() {
			return reject(ReasonTypeAmountMismatch)
		}
		if p.Amount.GreaterThan(loan.Balance) {
			return reject(ReasonExceedsBalance)
		}
	case models.PaymentTypeSkip:
		if !p.Amount.IsZero() {
			return reject(ReasonTypeAmountMismatch)
		}
	}
	return nil
}

// nextState computes the update that applying p to loan produces.
func nextState(loan *models.Loan, p models.Payment) *store.Update {
	balance := loan.Balance
	if p.Type == models.PaymentTypeCredit {
		balance = balance.Sub(p.Amount)
	}
	status := loan.Status
	if balance.IsZero() {
		status = models.LoanStatusClosed
	}
	return &store.Update{Balance: balance, Status: status, Payment: p}
}

func validateLoanRequest(req LoanRequest) error {
	if strings.TrimSpace(req.BorrowerName) == "" {
		return reject(ReasonInvalidBorrower)
	}
	if !req.Amount.IsPositive() {
		return reject(ReasonInvalidAmount)
	}
	if req.Interest.IsNegative() {
		return reject(ReasonInvalidInterest)
	}
	loanDate, ok := models.ParseDate(req.LoanDate)
	if !ok {
		return reject(ReasonInvalidDate)
	}
	dueDate, ok := models.ParseDate(req.DueDate)
	if !ok || dueDate.Before(loanDate) {
		return reject(ReasonInvalidDate)
	}
	switch req.Status {
	case "", models.LoanStatusActive, models.LoanStatusPending:
	default:
		return reject(ReasonInvalidStatus)
	}
	return nil
}
