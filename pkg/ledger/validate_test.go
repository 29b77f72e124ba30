package ledger

import (
	"testing"

	"github.com/mcclellann/alfaledger/pkg/models"
	"github.com/shopspring/decimal"
)

func TestValidate(t *testing.T) {
	const today = "2025-01-31"
	open := func() *models.Loan {
		return &models.Loan{
			Balance:  decimal.NewFromInt(1000),
			LoanDate: "2025-01-01",
			Status:   models.LoanStatusActive,
			Payments: []models.Payment{{Date: "2025-01-05", Type: models.PaymentTypeSkip}},
		}
	}
	amt := decimal.NewFromInt

	tests := []struct {
		name    string
		loan    func() *models.Loan
		payment models.Payment
		want    Reason // empty means accepted
	}{
		{"credit accepted", open, models.Payment{Amount: amt(100), Type: models.PaymentTypeCredit, Date: "2025-01-10"}, ""},
		{"skip accepted", open, models.Payment{Amount: decimal.Zero, Type: models.PaymentTypeSkip, Date: "2025-01-10"}, ""},
		{"full balance accepted", open, models.Payment{Amount: amt(1000), Type: models.PaymentTypeCredit, Date: today}, ""},
		{"pending loan accepted", func() *models.Loan { l := open(); l.Status = models.LoanStatusPending; return l },
			models.Payment{Amount: amt(1), Type: models.PaymentTypeCredit, Date: "2025-01-10"}, ""},
		{"closed loan", func() *models.Loan { l := open(); l.Status = models.LoanStatusClosed; return l },
			models.Payment{Amount: amt(1), Type: "bogus", Date: "bad"}, ReasonLoanClosed},
		{"unknown type", open, models.Payment{Amount: amt(-1), Type: "debit", Date: "bad"}, ReasonInvalidType},
		{"malformed date", open, models.Payment{Amount: amt(-1), Type: models.PaymentTypeCredit, Date: "2025-1-10"}, ReasonInvalidDate},
		{"before loan date", open, models.Payment{Amount: amt(1), Type: models.PaymentTypeCredit, Date: "2024-12-31"}, ReasonInvalidDate},
		{"after today", open, models.Payment{Amount: amt(1), Type: models.PaymentTypeCredit, Date: "2025-02-01"}, ReasonInvalidDate},
		{"duplicate date", open, models.Payment{Amount: amt(-1), Type: models.PaymentTypeCredit, Date: "2025-01-05"}, ReasonDuplicateDate},
		{"negative amount", open, models.Payment{Amount: amt(-5), Type: models.PaymentTypeCredit, Date: "2025-01-10"}, ReasonInvalidAmount},
		{"zero credit", open, models.Payment{Amount: decimal.Zero, Type: models.PaymentTypeCredit, Date: "2025-01-10"}, ReasonTypeAmountMismatch},
		{"skip with amount", open, models.Payment{Amount: amt(10), Type: models.PaymentTypeSkip, Date: "2025-01-10"}, ReasonTypeAmountMismatch},
		{"exceeds balance", open, models.Payment{Amount: amt(1001), Type: models.PaymentTypeCredit, Date: "2025-01-10"}, ReasonExceedsBalance},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.loan(), tt.payment, today)
			if tt.want == "" {
				if err != nil {
					t.Errorf("Expected payment to be accepted, got %v", err)
				}
				return
			}
			if !IsRejected(err, tt.want) {
				t.Errorf("Expected rejection %q, got %v", tt.want, err)
			}
		})
	}
}

func TestNextState(t *testing.T) {
	loan := &models.Loan{Balance: decimal.NewFromInt(500), Status: models.LoanStatusPending}

	u := nextState(loan, models.Payment{Amount: decimal.NewFromInt(200), Type: models.PaymentTypeCredit})
	if !u.Balance.Equal(decimal.NewFromInt(300)) || u.Status != models.LoanStatusPending {
		t.Errorf("Partial credit: got %s %s", u.Balance, u.Status)
	}

	u = nextState(loan, models.Payment{Amount: decimal.Zero, Type: models.PaymentTypeSkip})
	if !u.Balance.Equal(decimal.NewFromInt(500)) || u.Status != models.LoanStatusPending {
		t.Errorf("Skip: got %s %s", u.Balance, u.Status)
	}

	u = nextState(loan, models.Payment{Amount: decimal.NewFromInt(500), Type: models.PaymentTypeCredit})
	if !u.Balance.IsZero() || u.Status != models.LoanStatusClosed {
		t.Errorf("Payoff: got %s %s", u.Balance, u.Status)
	}
}
