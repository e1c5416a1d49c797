package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"grana/internal/core"
)

// Every new profile starts with the same taxonomy; entries can be renamed
// or removed afterwards without touching recorded history.
var (
	defaultSources    = []string{"iFood", "Renda Online", "Serviços", "Vendas", "Outros"}
	defaultCategories = []string{"Mercado", "Gasolina", "Alimentação", "Contas", "Transporte", "Lazer", "Saúde", "Outros"}
)

// CreateProfile inserts the profile and seeds its default sources and
// categories in one transaction.
func (r *Repository) CreateProfile(ctx context.Context, p *core.Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin profile tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO profiles (name, avatar, pin) VALUES (?, ?, ?)`,
		p.Name, p.Avatar, p.PIN)
	if err != nil {
		return fmt.Errorf("insert profile: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("profile id: %w", err)
	}

	for _, name := range defaultSources {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO income_sources (profile_id, name) VALUES (?, ?)`, id, name); err != nil {
			return fmt.Errorf("seed source %q: %w", name, err)
		}
	}
	for _, name := range defaultCategories {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO expense_categories (profile_id, name) VALUES (?, ?)`, id, name); err != nil {
			return fmt.Errorf("seed category %q: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit profile tx: %w", err)
	}

	p.ID = id
	slog.InfoContext(ctx, "Profile created", "id", id, "name", p.Name)
	return nil
}

func (r *Repository) ListProfiles(ctx context.Context) ([]core.Profile, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, avatar, created_at FROM profiles ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	var profiles []core.Profile
	for rows.Next() {
		var p core.Profile
		var createdAt string
		if err := rows.Scan(&p.ID, &p.Name, &p.Avatar, &createdAt); err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		p.CreatedAt = parseCreatedAt(createdAt)
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

func (r *Repository) GetProfile(ctx context.Context, id int64) (*core.Profile, error) {
	var p core.Profile
	var createdAt string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, avatar, created_at FROM profiles WHERE id = ?`, id).
		Scan(&p.ID, &p.Name, &p.Avatar, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("profile %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	p.CreatedAt = parseCreatedAt(createdAt)
	return &p, nil
}

// VerifyPIN checks the profile's PIN. A profile with an empty PIN accepts
// any input.
func (r *Repository) VerifyPIN(ctx context.Context, id int64, pin string) (bool, error) {
	var stored string
	err := r.db.QueryRowContext(ctx,
		`SELECT pin FROM profiles WHERE id = ?`, id).Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("profile %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return false, fmt.Errorf("read pin: %w", err)
	}
	return stored == "" || stored == pin, nil
}

// DeleteProfile removes the profile; the schema cascades to its sources,
// categories, transactions and goals.
func (r *Repository) DeleteProfile(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM profiles WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete profile rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("profile %d: %w", id, core.ErrNotFound)
	}
	slog.InfoContext(ctx, "Profile deleted", "id", id)
	return nil
}
