package events

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mcclellann/alfaledger/pkg/models"
	"github.com/shopspring/decimal"
)

func TestNewPaymentAppliedMessage(t *testing.T) {
	loan := &models.Loan{
		ID:           uuid.New(),
		BorrowerName: "Meena",
		Balance:      decimal.NewFromInt(6000),
		Status:       models.LoanStatusActive,
	}
	payment := models.Payment{
		ID:        uuid.New(),
		Amount:    decimal.NewFromInt(4000),
		Type:      models.PaymentTypeCredit,
		Date:      "2025-01-10",
		Timestamp: time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC),
	}

	msg := NewPaymentAppliedMessage(loan, payment)
	data, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON failed: %v", err)
	}

	decoded, err := PaymentAppliedMessageFromJSON(data)
	if err != nil {
		t.Fatalf("PaymentAppliedMessageFromJSON failed: %v", err)
	}
	if decoded.LoanID != loan.ID || decoded.PaymentID != payment.ID {
		t.Errorf("IDs not preserved: %+v", decoded)
	}
	if !decoded.Balance.Equal(loan.Balance) || !decoded.Amount.Equal(payment.Amount) {
		t.Errorf("Amounts not preserved: %+v", decoded)
	}
	if !decoded.Timestamp.Equal(payment.Timestamp) {
		t.Errorf("Expected timestamp %v, got %v", payment.Timestamp, decoded.Timestamp)
	}
}

func TestPaymentAppliedMessageFromJSONRejectsGarbage(t *testing.T) {
	if _, err := PaymentAppliedMessageFromJSON([]byte("not json")); err == nil {
		t.Error("Expected an error for malformed JSON")
	}
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = Nop{}
	if err := p.PublishPaymentApplied(context.Background(), &PaymentAppliedMessage{}); err != nil {
		t.Errorf("Nop publish returned %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("Nop close returned %v", err)
	}
}
