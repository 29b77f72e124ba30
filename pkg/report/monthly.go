package report

import (
	"sort"

	"github.com/mcclellann/alfaledger/pkg/models"
	"github.com/shopspring/decimal"
)

// MonthlySummary totals the payments collected in one calendar month.
type MonthlySummary struct {
	Month     string          `json:"month"` // YYYY-MM
	Total     decimal.Decimal `json:"total"`
	Principal decimal.Decimal `json:"principal"`
	Interest  decimal.Decimal `json:"interest"`
	Count     int             `json:"count"`
}

// SummarizeByMonth groups payments by the year-month prefix of their date,
// most recent month first. Payments with no positive amount are ignored.
func SummarizeByMonth(payments []models.Payment) []MonthlySummary {
	groups := make(map[string]*MonthlySummary)
	for _, p := range payments {
		if !p.Amount.IsPositive() {
			continue
		}
		key := monthKey(p.Date)
		g, ok := groups[key]
		if !ok {
			g = &MonthlySummary{Month: key}
			groups[key] = g
		}
		g.Total = g.Total.Add(p.Amount)
		if p.Category == models.PaymentCategoryInterest {
			g.Interest = g.Interest.Add(p.Amount)
		} else {
			g.Principal = g.Principal.Add(p.Amount)
		}
		g.Count++
	}

	summaries := make([]MonthlySummary, 0, len(groups))
	for _, g := range groups {
		summaries = append(summaries, *g)
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Month > summaries[j].Month
	})
	return summaries
}

func monthKey(date string) string {
	if len(date) < 7 {
		return date
	}
	return date[:7]
}
