package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"grana/internal/core"
	"grana/internal/period"
)

// CreateTransaction inserts an income or expense. The source/category name
// is resolved from the taxonomy table at write time and stored on the row,
// so later renames never touch history. A ref belonging to another profile
// is treated as not found.
func (r *Repository) CreateTransaction(ctx context.Context, t *core.Transaction) error {
	if err := t.Validate(); err != nil {
		return err
	}
	table, refTable, refIDCol, refNameCol, err := tableFor(t.Kind)
	if err != nil {
		return err
	}

	if t.RefID != nil {
		var name string
		err := r.db.QueryRowContext(ctx,
			fmt.Sprintf(`SELECT name FROM %s WHERE id = ? AND profile_id = ?`, refTable),
			*t.RefID, t.ProfileID).Scan(&name)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%s %d: %w", refIDCol, *t.RefID, core.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("resolve %s: %w", refIDCol, err)
		}
		t.RefName = name
	}

	res, err := r.db.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (profile_id, %s, %s, amount_cents, date, observation, tags)
			VALUES (?, ?, ?, ?, ?, ?, ?)`, table, refIDCol, refNameCol),
		t.ProfileID, t.RefID, t.RefName, t.Amount.Cents, t.Date.String(), t.Observation, t.Tags)
	if err != nil {
		return fmt.Errorf("insert %s: %w", t.Kind, err)
	}
	t.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("%s id: %w", t.Kind, err)
	}

	slog.InfoContext(ctx, "Transaction recorded",
		"kind", t.Kind,
		"id", t.ID,
		"profile_id", t.ProfileID,
		"amount_cents", t.Amount.Cents,
		"date", t.Date.String())
	return nil
}

func (r *Repository) DeleteTransaction(ctx context.Context, profileID int64, kind core.TransactionKind, id int64) error {
	table, _, _, _, err := tableFor(kind)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE id = ? AND profile_id = ?`, table), id, profileID)
	if err != nil {
		return fmt.Errorf("delete %s: %w", kind, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete %s rows: %w", kind, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", kind, id, core.ErrNotFound)
	}
	slog.InfoContext(ctx, "Transaction deleted", "kind", kind, "id", id, "profile_id", profileID)
	return nil
}

const txColumns = `id, profile_id, %s, %s, amount_cents, date, observation, tags, created_at`

func scanTransaction(rows interface{ Scan(...any) error }, kind core.TransactionKind) (core.Transaction, error) {
	var t core.Transaction
	var date, createdAt string
	var refID sql.NullInt64
	if err := rows.Scan(&t.ID, &t.ProfileID, &refID, &t.RefName,
		&t.Amount.Cents, &date, &t.Observation, &t.Tags, &createdAt); err != nil {
		return t, fmt.Errorf("scan %s: %w", kind, err)
	}
	t.Kind = kind
	if refID.Valid {
		t.RefID = &refID.Int64
	}
	d, err := core.ParseDate(date)
	if err != nil {
		return t, fmt.Errorf("parse %s date %q: %w", kind, date, err)
	}
	t.Date = d
	t.CreatedAt = parseCreatedAt(createdAt)
	return t, nil
}

// ListTransactions returns every transaction of one kind whose date falls
// inside r, oldest first. An invalid range matches nothing.
func (r *Repository) ListTransactions(ctx context.Context, profileID int64, kind core.TransactionKind, rng period.Range) ([]core.Transaction, error) {
	if !rng.Valid() {
		return nil, nil
	}
	table, _, refIDCol, refNameCol, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT `+txColumns+` FROM %s
		WHERE profile_id = ? AND date >= ? AND date <= ?
		ORDER BY date, id`, refIDCol, refNameCol, table)
	rows, err := r.db.QueryContext(ctx, query, profileID, rng.From.String(), rng.To.String())
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", kind, err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows, kind)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// RecentTransactions returns the newest entries of one kind, most recent
// date first.
func (r *Repository) RecentTransactions(ctx context.Context, profileID int64, kind core.TransactionKind, limit int) ([]core.Transaction, error) {
	table, _, refIDCol, refNameCol, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 5
	}

	query := fmt.Sprintf(`SELECT `+txColumns+` FROM %s
		WHERE profile_id = ?
		ORDER BY date DESC, id DESC LIMIT ?`, refIDCol, refNameCol, table)
	rows, err := r.db.QueryContext(ctx, query, profileID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent %s: %w", kind, err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows, kind)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// TransactionFilter narrows a paginated listing. Zero values mean "no
// filter"; Search matches observation, tags and the captured label.
// Sort is "asc" for oldest first; anything else lists newest first.
type TransactionFilter struct {
	ProfileID int64
	Kind      core.TransactionKind
	From      core.Date
	To        core.Date
	RefID     *int64
	Search    string
	Sort      string
	Page      int
	Limit     int
}

type TransactionPage struct {
	Records    []core.Transaction `json:"records"`
	Total      int                `json:"total"`
	TotalCents int64              `json:"total_cents"`
	Page       int                `json:"page"`
	Pages      int                `json:"pages"`
	Limit      int                `json:"limit"`
}

// ListPage returns one page of transactions, newest first, along with the
// count and cent total of the whole filtered set. The page size is clamped
// to 10..100 and defaults to 20.
func (r *Repository) ListPage(ctx context.Context, f TransactionFilter) (*TransactionPage, error) {
	table, _, refIDCol, refNameCol, err := tableFor(f.Kind)
	if err != nil {
		return nil, err
	}

	switch {
	case f.Limit == 0:
		f.Limit = 20
	case f.Limit < 10:
		f.Limit = 10
	case f.Limit > 100:
		f.Limit = 100
	}
	if f.Page < 1 {
		f.Page = 1
	}

	where := `profile_id = ?`
	args := []any{f.ProfileID}
	if !f.From.IsZero() {
		where += ` AND date >= ?`
		args = append(args, f.From.String())
	}
	if !f.To.IsZero() {
		where += ` AND date <= ?`
		args = append(args, f.To.String())
	}
	if f.RefID != nil {
		where += fmt.Sprintf(` AND %s = ?`, refIDCol)
		args = append(args, *f.RefID)
	}
	if f.Search != "" {
		where += fmt.Sprintf(` AND (observation LIKE ? OR tags LIKE ? OR %s LIKE ?)`, refNameCol)
		like := "%" + f.Search + "%"
		args = append(args, like, like, like)
	}

	page := &TransactionPage{Records: []core.Transaction{}, Page: f.Page, Limit: f.Limit}
	err = r.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT COUNT(*), COALESCE(SUM(amount_cents), 0) FROM %s WHERE %s`, table, where),
		args...).Scan(&page.Total, &page.TotalCents)
	if err != nil {
		return nil, fmt.Errorf("count %s: %w", f.Kind, err)
	}
	page.Pages = (page.Total + f.Limit - 1) / f.Limit

	order := "DESC"
	if strings.EqualFold(f.Sort, "asc") {
		order = "ASC"
	}
	query := fmt.Sprintf(`SELECT `+txColumns+` FROM %s WHERE %s
		ORDER BY date %s, id %s LIMIT ? OFFSET ?`, refIDCol, refNameCol, table, where, order, order)
	args = append(args, f.Limit, (f.Page-1)*f.Limit)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("page %s: %w", f.Kind, err)
	}
	defer rows.Close()

	for rows.Next() {
		t, err := scanTransaction(rows, f.Kind)
		if err != nil {
			return nil, err
		}
		page.Records = append(page.Records, t)
	}
	return page, rows.Err()
}
