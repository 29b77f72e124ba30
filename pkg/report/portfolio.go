package report

import (
	"time"

	"github.com/mcclellann/alfaledger/pkg/models"
	"github.com/shopspring/decimal"
)

// DayRange is an inclusive window of instants.
type DayRange struct {
	Start time.Time
	End   time.Time
}

// LocalDayRange returns the calendar day containing now, in now's location,
// from midnight up to the last nanosecond before the next midnight.
func LocalDayRange(now time.Time) DayRange {
	y, m, d := now.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	end := start.AddDate(0, 0, 1).Add(-time.Nanosecond)
	return DayRange{Start: start, End: end}
}

// Contains reports whether t falls inside the range. The zero time never does.
func (r DayRange) Contains(t time.Time) bool {
	if t.IsZero() {
		return false
	}
	return !t.Before(r.Start) && !t.After(r.End)
}

// Portfolio holds business-wide figures across every loan.
type Portfolio struct {
	TotalDisbursed       decimal.Decimal `json:"total_disbursed"`
	TotalDisbursedActive decimal.Decimal `json:"total_disbursed_active"`
	TotalOutstanding     decimal.Decimal `json:"total_outstanding"`
	TotalInterest        decimal.Decimal `json:"total_interest"`
	TotalInterestActive  decimal.Decimal `json:"total_interest_active"`
	// RecoveredPrincipal is active disbursement minus what is still outstanding.
	RecoveredPrincipal   decimal.Decimal `json:"recovered_principal"`
	TodayCollectionTotal decimal.Decimal `json:"today_collection_total"`
	TodayCollectionCount int             `json:"today_collection_count"`
	ActiveCount          int             `json:"active_count"`
	ClosedCount          int             `json:"closed_count"`
}

// SummarizePortfolio aggregates loans. Today's collection counts credit
// payments by their store timestamp, not by the date entered with them.
func SummarizePortfolio(loans []*models.Loan, today DayRange) Portfolio {
	var p Portfolio
	for _, loan := range loans {
		if loan == nil {
			continue
		}
		closed := loan.IsClosed()

		p.TotalDisbursed = p.TotalDisbursed.Add(loan.Amount)
		p.TotalOutstanding = p.TotalOutstanding.Add(loan.Balance)
		p.TotalInterest = p.TotalInterest.Add(loan.Interest)
		if closed {
			p.ClosedCount++
		} else {
			p.TotalDisbursedActive = p.TotalDisbursedActive.Add(loan.Amount)
			p.TotalInterestActive = p.TotalInterestActive.Add(loan.Interest)
			p.ActiveCount++
		}

		for _, payment := range loan.Payments {
			if payment.Type != models.PaymentTypeCredit || !today.Contains(payment.Timestamp) {
				continue
			}
			p.TodayCollectionTotal = p.TodayCollectionTotal.Add(payment.Amount)
			p.TodayCollectionCount++
		}
	}
	p.RecoveredPrincipal = p.TotalDisbursedActive.Sub(p.TotalOutstanding)
	return p
}
