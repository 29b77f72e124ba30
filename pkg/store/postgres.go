package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/mcclellann/alfaledger/pkg/models"
	"github.com/sirupsen/logrus"

	_ "github.com/lib/pq"
)

var postgresDialect = dialect{
	name:       DriverPostgres,
	lockClause: " FOR UPDATE",
	nowQuery:   `SELECT clock_timestamp()`,
	parseNow: func(raw any) (time.Time, error) {
		t := models.CoerceTime(raw)
		if t.IsZero() {
			return time.Time{}, fmt.Errorf("unexpected postgres clock value %v", raw)
		}
		return t, nil
	},
	numbered: true,
}

// NewPostgresStore connects to PostgreSQL and migrates the schema. Loan rows
// are locked with SELECT ... FOR UPDATE inside RunAtomic.
func NewPostgresStore(dataSourceName string) (*SQLStore, error) {
	if err := RunMigrations(DriverPostgres, dataSourceName); err != nil {
		return nil, fmt.Errorf("could not initialize schema: %w", err)
	}

	db, err := sql.Open(DriverPostgres, dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not connect to database: %w", err)
	}

	logrus.WithField("driver", DriverPostgres).Info("Database connection established and schema migrated")
	return &SQLStore{db: db, dialect: postgresDialect}, nil
}
