package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mcclellann/alfaledger/pkg/models"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

const loanColumns = `id, borrower_name, amount, interest, balance, loan_date, due_date, place, status, created_at, updated_at`
const paymentColumns = `id, loan_id, amount, type, category, paid_on, recorded_at`

// dialect captures the few places where SQLite and PostgreSQL differ.
type dialect struct {
	name string
	// lockClause is appended to the loan read inside RunAtomic.
	lockClause string
	nowQuery   string
	parseNow   func(raw any) (time.Time, error)
	numbered   bool
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLStore implements Storage on top of database/sql.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
}

// Open connects to the named driver and returns a ready Storage.
func Open(driverName, dataSourceName string) (*SQLStore, error) {
	switch driverName {
	case DriverSQLite:
		return NewSQLiteStore(dataSourceName)
	case DriverPostgres:
		return NewPostgresStore(dataSourceName)
	}
	return nil, fmt.Errorf("unsupported driver %q", driverName)
}

// bind rewrites ? placeholders into $n for dialects that need numbered parameters.
func (s *SQLStore) bind(query string) string {
	if !s.dialect.numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// CreateLoan inserts a new loan and its payments within a transaction.
func (s *SQLStore) CreateLoan(ctx context.Context, loan *models.Loan) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now, err := s.now(ctx, tx)
	if err != nil {
		return err
	}

	loan.ID = uuid.New()
	loan.CreatedAt = now
	loan.UpdatedAt = now

	_, err = tx.ExecContext(ctx, s.bind(
		`INSERT INTO loans (`+loanColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		loan.ID.String(), loan.BorrowerName, loan.Amount, loan.Interest, loan.Balance, loan.LoanDate, loan.DueDate, loan.Place, string(loan.Status), loan.CreatedAt, loan.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create loan: %w", err)
	}

	for i := range loan.Payments {
		if loan.Payments[i].ID == uuid.Nil {
			loan.Payments[i].ID = uuid.New()
		}
		if err := s.insertPayment(ctx, tx, loan.ID, i, loan.Payments[i]); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetLoan retrieves a loan and its payments by ID.
func (s *SQLStore) GetLoan(ctx context.Context, id uuid.UUID) (*models.Loan, error) {
	return s.loadLoan(ctx, s.db, id, "")
}

// GetAllLoans retrieves all loans with their payments.
func (s *SQLStore) GetAllLoans(ctx context.Context) ([]*models.Loan, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+loanColumns+` FROM loans`)
	if err != nil {
		return nil, fmt.Errorf("failed to get all loans: %w", err)
	}
	loans, err := scanLoans(rows)
	rows.Close()
	if err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]*models.Loan, len(loans))
	for _, loan := range loans {
		byID[loan.ID] = loan
	}

	rows, err = s.db.QueryContext(ctx, `SELECT `+paymentColumns+` FROM payments ORDER BY loan_id, seq`)
	if err != nil {
		return nil, fmt.Errorf("failed to get payments: %w", err)
	}
	defer rows.Close()

	err = scanPayments(rows, func(loanID uuid.UUID, p models.Payment) {
		if loan, ok := byID[loanID]; ok {
			loan.Payments = append(loan.Payments, p)
		}
	})
	if err != nil {
		return nil, err
	}
	return loans, nil
}

// RunAtomic reads the loan, lets fn decide on an update and commits it, all in one transaction.
func (s *SQLStore) RunAtomic(ctx context.Context, id uuid.UUID, fn AtomicFunc) (*models.Loan, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	loan, err := s.loadLoan(ctx, tx, id, s.dialect.lockClause)
	if err != nil {
		return nil, err
	}

	update, err := fn(loan)
	if err != nil {
		return nil, err
	}

	now, err := s.now(ctx, tx)
	if err != nil {
		return nil, err
	}

	payment := update.Payment
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	payment.Timestamp = now
	// Keep timestamps strictly increasing per loan even if the clock steps back.
	if n := len(loan.Payments); n > 0 && !payment.Timestamp.After(loan.Payments[n-1].Timestamp) {
		payment.Timestamp = loan.Payments[n-1].Timestamp.Add(time.Microsecond)
	}

	result, err := tx.ExecContext(ctx, s.bind(`UPDATE loans SET balance = ?, status = ?, updated_at = ? WHERE id = ?`),
		update.Balance, string(update.Status), now, loan.ID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to update loan: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, ErrLoanNotFound
	}

	if err := s.insertPayment(ctx, tx, loan.ID, len(loan.Payments), payment); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit payment: %w", err)
	}

	loan.Balance = update.Balance
	loan.Status = update.Status
	loan.UpdatedAt = now
	loan.Payments = append(loan.Payments, payment)
	return loan, nil
}

// Now returns the database server's current time.
func (s *SQLStore) Now(ctx context.Context) (time.Time, error) {
	return s.now(ctx, s.db)
}

func (s *SQLStore) now(ctx context.Context, q queryer) (time.Time, error) {
	var raw any
	if err := q.QueryRowContext(ctx, s.dialect.nowQuery).Scan(&raw); err != nil {
		return time.Time{}, fmt.Errorf("failed to read %s clock: %w", s.dialect.name, err)
	}
	return s.dialect.parseNow(raw)
}

// Ping verifies the database is reachable.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) insertPayment(ctx context.Context, q queryer, loanID uuid.UUID, seq int, p models.Payment) error {
	var recordedAt any
	if !p.Timestamp.IsZero() {
		recordedAt = p.Timestamp
	}
	_, err := q.ExecContext(ctx, s.bind(
		`INSERT INTO payments (id, loan_id, seq, amount, type, category, paid_on, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		p.ID.String(), loanID.String(), seq, p.Amount, string(p.Type), p.Category, p.Date, recordedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

func (s *SQLStore) loadLoan(ctx context.Context, q queryer, id uuid.UUID, lock string) (*models.Loan, error) {
	row := q.QueryRowContext(ctx, s.bind(`SELECT `+loanColumns+` FROM loans WHERE id = ?`+lock), id.String())
	loan, err := scanLoan(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrLoanNotFound
		}
		return nil, fmt.Errorf("failed to get loan: %w", err)
	}

	rows, err := q.QueryContext(ctx, s.bind(`SELECT `+paymentColumns+` FROM payments WHERE loan_id = ? ORDER BY seq`), id.String())
	if err != nil {
		return nil, fmt.Errorf("failed to get payments for loan %s: %w", id, err)
	}
	defer rows.Close()

	err = scanPayments(rows, func(_ uuid.UUID, p models.Payment) {
		loan.Payments = append(loan.Payments, p)
	})
	if err != nil {
		return nil, err
	}
	return loan, nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scanLoan reads one loan row. Numeric and time columns go through the models
// coercion helpers so a malformed stored value reads back as zero.
func scanLoan(row scanner) (*models.Loan, error) {
	var (
		loan                      models.Loan
		idStr, status             string
		amount, interest, balance any
		created, updated          any
	)
	if err := row.Scan(&idStr, &loan.BorrowerName, &amount, &interest, &balance, &loan.LoanDate, &loan.DueDate, &loan.Place, &status, &created, &updated); err != nil {
		return nil, err
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("invalid loan id %q: %w", idStr, err)
	}
	loan.ID = id
	loan.Amount = models.CoerceDecimal(amount)
	loan.Interest = models.CoerceDecimal(interest)
	loan.Balance = models.CoerceDecimal(balance)
	loan.Status = models.LoanStatus(status)
	loan.CreatedAt = models.CoerceTime(created)
	loan.UpdatedAt = models.CoerceTime(updated)
	loan.Payments = []models.Payment{}
	return &loan, nil
}

func scanLoans(rows *sql.Rows) ([]*models.Loan, error) {
	var loans []*models.Loan
	for rows.Next() {
		loan, err := scanLoan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan loan row: %w", err)
		}
		loans = append(loans, loan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration: %w", err)
	}
	return loans, nil
}

func scanPayments(rows *sql.Rows, add func(loanID uuid.UUID, p models.Payment)) error {
	for rows.Next() {
		var (
			p                 models.Payment
			idStr, loanIDStr  string
			typ               string
			amount, timestamp any
		)
		if err := rows.Scan(&idStr, &loanIDStr, &amount, &typ, &p.Category, &p.Date, &timestamp); err != nil {
			return fmt.Errorf("failed to scan payment row: %w", err)
		}
		id, err := uuid.Parse(idStr)
		if err != nil {
			return fmt.Errorf("invalid payment id %q: %w", idStr, err)
		}
		loanID, err := uuid.Parse(loanIDStr)
		if err != nil {
			return fmt.Errorf("invalid loan id %q: %w", loanIDStr, err)
		}
		p.ID = id
		p.Type = models.PaymentType(typ)
		p.Amount = models.CoerceDecimal(amount)
		p.Timestamp = models.CoerceTime(timestamp)
		add(loanID, p)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error during rows iteration for payments: %w", err)
	}
	return nil
}
