package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/mcclellann/alfaledger/pkg/models"
	"github.com/shopspring/decimal"
)

// RoutingKeyPaymentApplied is used for every committed payment.
const RoutingKeyPaymentApplied = "payment.applied"

// PaymentAppliedMessage describes a payment that has been committed to a loan.
type PaymentAppliedMessage struct {
	LoanID       uuid.UUID          `json:"loan_id"`
	PaymentID    uuid.UUID          `json:"payment_id"`
	BorrowerName string             `json:"borrower_name"`
	Amount       decimal.Decimal    `json:"amount"`
	Type         models.PaymentType `json:"type"`
	Date         string             `json:"date"`
	Balance      decimal.Decimal    `json:"balance"`
	Status       models.LoanStatus  `json:"status"`
	Timestamp    time.Time          `json:"timestamp"`
}

// NewPaymentAppliedMessage builds the message from the loan state right after
// the payment was appended.
func NewPaymentAppliedMessage(loan *models.Loan, payment models.Payment) *PaymentAppliedMessage {
	return &PaymentAppliedMessage{
		LoanID:       loan.ID,
		PaymentID:    payment.ID,
		BorrowerName: loan.BorrowerName,
		Amount:       payment.Amount,
		Type:         payment.Type,
		Date:         payment.Date,
		Balance:      loan.Balance,
		Status:       loan.Status,
		Timestamp:    payment.Timestamp,
	}
}

// ToJSON converts the message to JSON bytes
func (m *PaymentAppliedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// PaymentAppliedMessageFromJSON decodes a message published by AMQPPublisher.
func PaymentAppliedMessageFromJSON(data []byte) (*PaymentAppliedMessage, error) {
	var msg PaymentAppliedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
