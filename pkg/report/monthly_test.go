package report

import (
	"math/rand"
	"reflect"
	"testing"

	"github.com/mcclellann/alfaledger/pkg/models"
	"github.com/shopspring/decimal"
)

func pay(date string, amount int64, category string) models.Payment {
	typ := models.PaymentTypeCredit
	if amount == 0 {
		typ = models.PaymentTypeSkip
	}
	return models.Payment{Date: date, Amount: decimal.NewFromInt(amount), Type: typ, Category: category}
}

func TestSummarizeByMonth(t *testing.T) {
	payments := []models.Payment{
		pay("2024-03-02", 500, ""),
		pay("2024-04-01", 1000, ""),
		pay("2024-04-02", 0, ""),
		pay("2024-04-03", 200, models.PaymentCategoryInterest),
		pay("2024-03-15", 300, models.PaymentCategoryInterest),
		pay("2024-05-01", -50, ""),
	}

	got := SummarizeByMonth(payments)
	if len(got) != 2 {
		t.Fatalf("Expected 2 months, got %d: %+v", len(got), got)
	}

	april, march := got[0], got[1]
	if april.Month != "2024-04" || march.Month != "2024-03" {
		t.Fatalf("Expected most recent month first, got %s then %s", april.Month, march.Month)
	}
	if !april.Total.Equal(decimal.NewFromInt(1200)) || april.Count != 2 {
		t.Errorf("April: expected total 1200 over 2 payments, got %s over %d", april.Total, april.Count)
	}
	if !april.Principal.Equal(decimal.NewFromInt(1000)) || !april.Interest.Equal(decimal.NewFromInt(200)) {
		t.Errorf("April: unexpected split principal=%s interest=%s", april.Principal, april.Interest)
	}
	if !march.Total.Equal(decimal.NewFromInt(800)) || !march.Interest.Equal(decimal.NewFromInt(300)) {
		t.Errorf("March: unexpected totals %+v", march)
	}
}

func TestSummarizeByMonthOrderIndependent(t *testing.T) {
	var payments []models.Payment
	for i, date := range []string{"2025-01-05", "2025-02-11", "2024-12-31", "2025-01-20", "2025-02-01", "2024-11-09"} {
		payments = append(payments, pay(date, int64(100*(i+1)), ""))
	}
	want := SummarizeByMonth(payments)

	r := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		shuffled := append([]models.Payment(nil), payments...)
		r.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

		got := SummarizeByMonth(shuffled)
		if len(got) != len(want) {
			t.Fatalf("Expected %d groups, got %d", len(want), len(got))
		}
		for j := range want {
			if got[j].Month != want[j].Month || !got[j].Total.Equal(want[j].Total) || got[j].Count != want[j].Count {
				t.Fatalf("Shuffle %d: group %d = %+v, want %+v", i, j, got[j], want[j])
			}
		}
	}
}

func TestSummarizeByMonthEmpty(t *testing.T) {
	got := SummarizeByMonth(nil)
	if !reflect.DeepEqual(got, []MonthlySummary{}) {
		t.Errorf("Expected empty summary, got %+v", got)
	}
}
