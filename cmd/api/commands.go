package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/google/subcommands"
	"github.com/google/uuid"
	"github.com/mcclellann/alfaledger/pkg/importer"
	"github.com/mcclellann/alfaledger/pkg/report"
)

// --- importCmd ---

type importCmd struct {
	file string
	path string
}

func (*importCmd) Name() string     { return "import" }
func (*importCmd) Synopsis() string { return "imports loans and their payment history from a JSON export" }
func (*importCmd) Usage() string {
	return `import -file <export.json> [-path <jsonpath>]

Reads a JSON export (for example a Firestore dump) and registers every loan
found at -path together with its recorded payments. Malformed numbers are
imported as 0 and unreadable timestamps are left empty.
`
}
func (c *importCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.file, "file", "", "The path to the JSON export.")
	f.StringVar(&c.path, "path", importer.DefaultPath, "JSONPath selecting the loan documents.")
}

func (c *importCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.file == "" {
		fmt.Fprintln(os.Stderr, "Error: -file is required.")
		return subcommands.ExitUsageError
	}

	f, err := os.Open(c.file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer f.Close()

	loans, err := importer.Decode(f, c.path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	a, err := openApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	n, err := a.ledger.ImportLoans(ctx, loans)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error after importing %d loans: %v\n", n, err)
		return subcommands.ExitFailure
	}
	fmt.Printf("Imported %d of %d loans.\n", n, len(loans))
	return subcommands.ExitSuccess
}

// --- statsCmd ---

type statsCmd struct{}

func (*statsCmd) Name() string     { return "stats" }
func (*statsCmd) Synopsis() string { return "prints the business overview" }
func (*statsCmd) Usage() string {
	return `stats

Prints disbursed, outstanding, interest and today's collection across all loans.
`
}
func (*statsCmd) SetFlags(*flag.FlagSet) {}

func (*statsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	p, err := a.ledger.Portfolio(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	printPortfolio(os.Stdout, p, a.cfg.Currency)
	return subcommands.ExitSuccess
}

func printPortfolio(w io.Writer, p report.Portfolio, currency string) {
	fmt.Fprintf(w, "Total loans: %d (%d Active, %d Closed)\n", p.ActiveCount+p.ClosedCount, p.ActiveCount, p.ClosedCount)
	fmt.Fprintf(w, "%-24s %s\n", "Total Disbursed", report.FormatMoney(p.TotalDisbursedActive, currency))
	fmt.Fprintf(w, "%-24s %s\n", "Total Outstanding", report.FormatMoney(p.TotalOutstanding, currency))
	fmt.Fprintf(w, "%-24s %s (%d payments)\n", "Today's Collection", report.FormatMoney(p.TodayCollectionTotal, currency), p.TodayCollectionCount)
	fmt.Fprintf(w, "%-24s %s\n", "Interest Profit", report.FormatMoney(p.TotalInterestActive, currency))
	fmt.Fprintf(w, "%-24s %s\n", "Disbursed - Outstanding", report.FormatMoney(p.RecoveredPrincipal, currency))
}

// --- monthlyCmd ---

type monthlyCmd struct {
	loan string
}

func (*monthlyCmd) Name() string     { return "monthly" }
func (*monthlyCmd) Synopsis() string { return "prints a loan's payments grouped by month" }
func (*monthlyCmd) Usage() string {
	return `monthly -loan <loan_id>

Prints the loan amount, remaining balance and the collected total per month,
most recent month first.
`
}
func (c *monthlyCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.loan, "loan", "", "The loan ID.")
}

func (c *monthlyCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	id, err := uuid.Parse(c.loan)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error: -loan must be a loan ID.")
		return subcommands.ExitUsageError
	}

	a, err := openApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	loan, months, err := a.ledger.MonthlySummary(ctx, id)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	cur := a.cfg.Currency
	fmt.Printf("%s (%s)\n", loan.BorrowerName, loan.Status)
	fmt.Printf("Total Loan Amount: %s\nRemaining Balance: %s\n\n", report.FormatMoney(loan.Amount, cur), report.FormatMoney(loan.Balance, cur))
	for _, m := range months {
		fmt.Printf("%-8s %14s  (%d payments)\n", m.Month, report.FormatMoney(m.Total, cur), m.Count)
	}
	return subcommands.ExitSuccess
}
