package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"grana/internal/core"
)

func (r *Repository) CreateGoal(ctx context.Context, g *core.Goal) error {
	if err := g.Validate(); err != nil {
		return err
	}
	if g.Status == "" {
		g.Status = core.GoalActive
	}

	deadline := ""
	if !g.Deadline.IsZero() {
		deadline = g.Deadline.String()
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO goals (profile_id, title, target_cents, current_cents, deadline, icon, color, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ProfileID, g.Title, g.TargetAmount.Cents, g.CurrentAmount.Cents, deadline, g.Icon, g.Color, g.Status)
	if err != nil {
		return fmt.Errorf("insert goal: %w", err)
	}
	g.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("goal id: %w", err)
	}
	slog.InfoContext(ctx, "Goal created", "id", g.ID, "profile_id", g.ProfileID, "title", g.Title)
	return nil
}

func scanGoal(rows interface{ Scan(...any) error }) (core.Goal, error) {
	var g core.Goal
	var deadline, createdAt string
	if err := rows.Scan(&g.ID, &g.ProfileID, &g.Title, &g.TargetAmount.Cents,
		&g.CurrentAmount.Cents, &deadline, &g.Icon, &g.Color, &g.Status, &createdAt); err != nil {
		return g, fmt.Errorf("scan goal: %w", err)
	}
	if deadline != "" {
		d, err := core.ParseDate(deadline)
		if err != nil {
			return g, fmt.Errorf("parse goal deadline %q: %w", deadline, err)
		}
		g.Deadline = d
	}
	g.CreatedAt = parseCreatedAt(createdAt)
	return g, nil
}

const goalColumns = `id, profile_id, title, target_cents, current_cents, deadline, icon, color, status, created_at`

// ListGoals returns the profile's goals, newest first. An empty status
// matches every status; limit <= 0 means no cap.
func (r *Repository) ListGoals(ctx context.Context, profileID int64, status core.GoalStatus, limit int) ([]core.Goal, error) {
	query := `SELECT ` + goalColumns + ` FROM goals WHERE profile_id = ?`
	args := []any{profileID}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY id DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()

	var goals []core.Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		goals = append(goals, g)
	}
	return goals, rows.Err()
}

func (r *Repository) GetGoal(ctx context.Context, profileID, id int64) (*core.Goal, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+goalColumns+` FROM goals WHERE id = ? AND profile_id = ?`, id, profileID)
	g, err := scanGoal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("goal %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// UpdateGoal rewrites the goal's editable fields. The saved balance is not
// touched; use Deposit for that.
func (r *Repository) UpdateGoal(ctx context.Context, g *core.Goal) error {
	if err := g.Validate(); err != nil {
		return err
	}
	deadline := ""
	if !g.Deadline.IsZero() {
		deadline = g.Deadline.String()
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE goals SET title = ?, target_cents = ?, deadline = ?, icon = ?, color = ?, status = ?
		 WHERE id = ? AND profile_id = ?`,
		g.Title, g.TargetAmount.Cents, deadline, g.Icon, g.Color, g.Status, g.ID, g.ProfileID)
	if err != nil {
		return fmt.Errorf("update goal: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update goal rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("goal %d: %w", g.ID, core.ErrNotFound)
	}
	return nil
}

// Deposit moves money into (positive cents) or out of (negative cents) a
// goal. A withdrawal that would leave the balance negative is rejected.
// Crossing the target flips an active goal to completed; falling back
// under it reverts a completed goal to active. A paused goal keeps its
// status either way.
func (r *Repository) Deposit(ctx context.Context, profileID, goalID, cents int64) (*core.Goal, error) {
	if cents == 0 {
		return nil, core.ErrInvalidAmount
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin deposit tx: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx,
		`SELECT `+goalColumns+` FROM goals WHERE id = ? AND profile_id = ?`, goalID, profileID)
	g, err := scanGoal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("goal %d: %w", goalID, core.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	balance := g.CurrentAmount.Cents + cents
	if balance < 0 {
		return nil, fmt.Errorf("withdraw %d from goal %d: %w", -cents, goalID, core.ErrInsufficientBal)
	}

	status := g.Status
	switch {
	case balance >= g.TargetAmount.Cents && status == core.GoalActive:
		status = core.GoalCompleted
	case balance < g.TargetAmount.Cents && status == core.GoalCompleted:
		status = core.GoalActive
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE goals SET current_cents = ?, status = ? WHERE id = ? AND profile_id = ?`,
		balance, status, goalID, profileID); err != nil {
		return nil, fmt.Errorf("apply deposit: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit deposit tx: %w", err)
	}

	g.CurrentAmount.Cents = balance
	g.Status = status
	slog.InfoContext(ctx, "Goal balance changed",
		"id", goalID,
		"profile_id", profileID,
		"delta_cents", cents,
		"balance_cents", balance,
		"status", status)
	return &g, nil
}

func (r *Repository) DeleteGoal(ctx context.Context, profileID, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM goals WHERE id = ? AND profile_id = ?`, id, profileID)
	if err != nil {
		return fmt.Errorf("delete goal: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete goal rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("goal %d: %w", id, core.ErrNotFound)
	}
	return nil
}
