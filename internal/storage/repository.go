// Package storage persists profiles, transactions, taxonomy entries and
// goals in SQLite. All money values are stored as integer cents and all
// dates as ISO YYYY-MM-DD text, which keeps range queries plain string
// comparisons.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"grana/internal/core"

	_ "modernc.org/sqlite"
)

type Repository struct {
	db *sql.DB
}

func New(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// Foreign keys are off by default in SQLite; the profile cascade
	// depends on them.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &Repository{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return r, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// tableFor maps a transaction kind to its table and denormalized ref
// columns. Incomes and expenses share a shape but live in separate tables.
func tableFor(kind core.TransactionKind) (table, refTable, refIDCol, refNameCol string, err error) {
	switch kind {
	case core.KindIncome:
		return "incomes", "income_sources", "source_id", "source_name", nil
	case core.KindExpense:
		return "expenses", "expense_categories", "category_id", "category_name", nil
	default:
		return "", "", "", "", fmt.Errorf("kind %q: %w", kind, core.ErrInvalidKind)
	}
}

// parseCreatedAt reads SQLite's datetime('now') text. An unparseable value
// degrades to the zero time instead of failing the row.
func parseCreatedAt(s string) time.Time {
	t, err := time.Parse("2006-01-02 15:04:05", s)
	if err != nil {
		return time.Time{}
	}
	return t
}
