package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"grana/internal/core"
)

// TaxonomyEntry is one income source or expense category.
type TaxonomyEntry struct {
	ID        int64  `json:"id"`
	ProfileID int64  `json:"profile_id"`
	Name      string `json:"name"`
}

// CreateRef adds a source (income kind) or category (expense kind).
func (r *Repository) CreateRef(ctx context.Context, kind core.TransactionKind, e *TaxonomyEntry) error {
	_, refTable, _, _, err := tableFor(kind)
	if err != nil {
		return err
	}
	e.Name = strings.TrimSpace(e.Name)
	if e.Name == "" {
		return core.ErrEmptyTitle
	}

	res, err := r.db.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (profile_id, name) VALUES (?, ?)`, refTable),
		e.ProfileID, e.Name)
	if err != nil {
		return fmt.Errorf("insert into %s: %w", refTable, err)
	}
	e.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("%s id: %w", refTable, err)
	}
	return nil
}

func (r *Repository) ListRefs(ctx context.Context, kind core.TransactionKind, profileID int64) ([]TaxonomyEntry, error) {
	_, refTable, _, _, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT id, profile_id, name FROM %s WHERE profile_id = ? ORDER BY name`, refTable),
		profileID)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", refTable, err)
	}
	defer rows.Close()

	var entries []TaxonomyEntry
	for rows.Next() {
		var e TaxonomyEntry
		if err := rows.Scan(&e.ID, &e.ProfileID, &e.Name); err != nil {
			return nil, fmt.Errorf("scan %s: %w", refTable, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// RenameRef changes a taxonomy entry's name. Recorded transactions keep
// the name captured when they were written.
func (r *Repository) RenameRef(ctx context.Context, kind core.TransactionKind, profileID, id int64, name string) error {
	_, refTable, _, _, err := tableFor(kind)
	if err != nil {
		return err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return core.ErrEmptyTitle
	}

	res, err := r.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE %s SET name = ? WHERE id = ? AND profile_id = ?`, refTable),
		name, id, profileID)
	if err != nil {
		return fmt.Errorf("rename in %s: %w", refTable, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rename %s rows: %w", refTable, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", refTable, id, core.ErrNotFound)
	}
	slog.InfoContext(ctx, "Taxonomy entry renamed", "table", refTable, "id", id, "name", name)
	return nil
}

// DeleteRef removes a taxonomy entry. Transactions that referenced it keep
// their captured name; the foreign key nulls only the id.
func (r *Repository) DeleteRef(ctx context.Context, kind core.TransactionKind, profileID, id int64) error {
	_, refTable, _, _, err := tableFor(kind)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE id = ? AND profile_id = ?`, refTable), id, profileID)
	if err != nil {
		return fmt.Errorf("delete from %s: %w", refTable, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete %s rows: %w", refTable, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", refTable, id, core.ErrNotFound)
	}
	return nil
}

// GetRef looks up one taxonomy entry scoped to a profile.
func (r *Repository) GetRef(ctx context.Context, kind core.TransactionKind, profileID, id int64) (*TaxonomyEntry, error) {
	_, refTable, _, _, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	var e TaxonomyEntry
	err = r.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT id, profile_id, name FROM %s WHERE id = ? AND profile_id = ?`, refTable),
		id, profileID).Scan(&e.ID, &e.ProfileID, &e.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s %d: %w", refTable, id, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get from %s: %w", refTable, err)
	}
	return &e, nil
}
