package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/mcclellann/alfaledger/pkg/models"
	"github.com/sirupsen/logrus"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteNowLayout = "2006-01-02 15:04:05.000"

var sqliteDialect = dialect{
	name:     DriverSQLite,
	nowQuery: `SELECT strftime('%Y-%m-%d %H:%M:%f', 'now')`,
	parseNow: func(raw any) (time.Time, error) {
		s := models.CoerceString(raw)
		t, err := time.ParseInLocation(sqliteNowLayout, s, time.UTC)
		if err != nil {
			return time.Time{}, fmt.Errorf("unexpected sqlite clock value %q: %w", s, err)
		}
		return t, nil
	},
}

// NewSQLiteStore opens (or creates) the SQLite database file and migrates it.
//
// Transactions start with BEGIN IMMEDIATE and the pool holds a single
// connection, so RunAtomic calls are serialized and each one sees the
// previous commit.
func NewSQLiteStore(dataSourceName string) (*SQLStore, error) {
	dsn := sqliteDSN(dataSourceName)
	if err := RunMigrations(DriverSQLite, dsn); err != nil {
		return nil, fmt.Errorf("could not initialize schema: %w", err)
	}

	db, err := sql.Open(DriverSQLite, dsn)
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	// Manually enable foreign keys and WAL mode
	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not connect to database: %w", err)
	}

	logrus.WithField("driver", DriverSQLite).Info("Database connection established and schema migrated")
	return &SQLStore{db: db, dialect: sqliteDialect}, nil
}

func sqliteDSN(path string) string {
	opts := "_txlock=immediate&_busy_timeout=5000"
	if strings.Contains(path, "?") {
		return path + "&" + opts
	}
	return path + "?" + opts
}
