// Package importer turns loosely typed JSON exports of loan documents into
// models.Loan values. Nothing in the input is trusted: numbers may be strings,
// fields may be missing and timestamps may come in several shapes.
package importer

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/PaesslerAG/jsonpath"
	"github.com/mcclellann/alfaledger/pkg/models"
	"github.com/shopspring/decimal"
)

// DefaultPath selects the loan collection in an export shaped like {"loans": [...]}.
const DefaultPath = "$.loans"

// Decode reads a JSON document from r and converts the loan documents found at
// path. The selected value may be an array of documents or an object keyed by
// document id.
func Decode(r io.Reader, path string) ([]*models.Loan, error) {
	var doc any
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode import document: %w", err)
	}
	if path == "" {
		path = DefaultPath
	}

	selected, err := jsonpath.Get(path, doc)
	if err != nil {
		return nil, fmt.Errorf("select %q: %w", path, err)
	}

	var docs []any
	switch v := selected.(type) {
	case []any:
		docs = v
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			docs = append(docs, v[k])
		}
	default:
		return nil, fmt.Errorf("select %q: expected an array or object of loans, got %T", path, selected)
	}

	loans := make([]*models.Loan, 0, len(docs))
	for _, d := range docs {
		m, ok := d.(map[string]any)
		if !ok {
			continue
		}
		loans = append(loans, loanFromDocument(m))
	}
	return loans, nil
}

func loanFromDocument(m map[string]any) *models.Loan {
	loan := &models.Loan{
		BorrowerName: strings.TrimSpace(models.CoerceString(field(m, "borrowerName", "borrower_name", "name"))),
		Amount:       models.CoerceDecimal(field(m, "amount", "totalLoanAmount")),
		Interest:     models.CoerceDecimal(field(m, "interest")),
		LoanDate:     models.CoerceString(field(m, "loanDate", "loan_date")),
		DueDate:      models.CoerceString(field(m, "dueDate", "due_date")),
		Place:        models.CoerceString(field(m, "place")),
		Status:       normalizeStatus(models.CoerceString(field(m, "status"))),
		Payments:     []models.Payment{},
	}

	if list, ok := field(m, "payments").([]any); ok {
		for _, item := range list {
			if pm, ok := item.(map[string]any); ok {
				loan.Payments = append(loan.Payments, paymentFromDocument(pm))
			}
		}
	}

	// Without a stored balance, what is left is the amount minus every credit.
	if raw, ok := lookup(m, "balance", "remainingAmount"); ok {
		loan.Balance = models.CoerceDecimal(raw)
	} else {
		loan.Balance = loan.Amount.Sub(creditTotal(loan.Payments))
	}
	return loan
}

func creditTotal(payments []models.Payment) decimal.Decimal {
	total := decimal.Zero
	for _, p := range payments {
		if p.Type == models.PaymentTypeCredit {
			total = total.Add(p.Amount)
		}
	}
	return total
}

func paymentFromDocument(m map[string]any) models.Payment {
	p := models.Payment{
		Amount:    models.CoerceDecimal(field(m, "amount")),
		Type:      models.PaymentType(strings.ToLower(models.CoerceString(field(m, "type")))),
		Category:  strings.ToLower(models.CoerceString(field(m, "category", "kind", "subType"))),
		Date:      models.CoerceString(field(m, "date")),
		Timestamp: models.CoerceTime(field(m, "timestamp")),
	}
	if p.Type != models.PaymentTypeCredit && p.Type != models.PaymentTypeSkip {
		if p.Amount.IsPositive() {
			p.Type = models.PaymentTypeCredit
		} else {
			p.Type = models.PaymentTypeSkip
		}
	}
	return p
}

func normalizeStatus(s string) models.LoanStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "closed":
		return models.LoanStatusClosed
	case "pending":
		return models.LoanStatusPending
	}
	return models.LoanStatusActive
}

func lookup(m map[string]any, keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			return v, true
		}
	}
	return nil, false
}

func field(m map[string]any, keys ...string) any {
	v, _ := lookup(m, keys...)
	return v
}
