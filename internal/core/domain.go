package core

import (
	"errors"
	"strings"
	"time"
)

const (
	KindIncome  TransactionKind = "income"
	KindExpense TransactionKind = "expense"

	GoalActive    GoalStatus = "active"
	GoalCompleted GoalStatus = "completed"
	GoalPaused    GoalStatus = "paused"

	// DefaultBucketLabel is the sentinel bucket for transactions whose
	// source/category label is empty.
	DefaultBucketLabel = "Outros"
)

type (
	TransactionKind string

	GoalStatus string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Profile is a user identity. The PIN is stored and compared in
	// cleartext; there is no password hashing in this system.
	Profile struct {
		ID        int64     `json:"id"`
		Name      string    `json:"name"`
		Avatar    string    `json:"avatar"`
		PIN       string    `json:"-"`
		CreatedAt time.Time `json:"created_at"`
	}

	// Transaction is the shared shape for income and expense entries.
	// RefID points at an income source or expense category; RefName is the
	// label captured at write time and is never rewritten when the
	// referenced source/category is renamed or deleted.
	Transaction struct {
		ID          int64           `json:"id"`
		ProfileID   int64           `json:"profile_id"`
		Kind        TransactionKind `json:"kind"`
		Amount      Money           `json:"amount_cents"`
		Date        Date            `json:"date"`
		RefID       *int64          `json:"ref_id,omitempty"`
		RefName     string          `json:"ref_name"`
		Observation string          `json:"observation,omitempty"`
		Tags        string          `json:"tags,omitempty"`
		CreatedAt   time.Time       `json:"created_at"`
	}

	// Source is a user-defined income label (e.g. "Freelance").
	Source struct {
		ID        int64  `json:"id"`
		ProfileID int64  `json:"profile_id"`
		Name      string `json:"name"`
		Icon      string `json:"icon"`
		Color     string `json:"color"`
	}

	// Category is a user-defined expense label.
	Category struct {
		ID        int64  `json:"id"`
		ProfileID int64  `json:"profile_id"`
		Name      string `json:"name"`
		Icon      string `json:"icon"`
		Color     string `json:"color"`
	}

	// Goal is a savings target. Status is completed exactly when
	// CurrentAmount >= TargetAmount, except while paused.
	Goal struct {
		ID            int64      `json:"id"`
		ProfileID     int64      `json:"profile_id"`
		Title         string     `json:"title"`
		TargetAmount  Money      `json:"target_cents"`
		CurrentAmount Money      `json:"current_cents"`
		Deadline      Date       `json:"deadline,omitzero"`
		Icon          string     `json:"icon"`
		Color         string     `json:"color"`
		Status        GoalStatus `json:"status"`
		CreatedAt     time.Time  `json:"created_at"`
	}
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidKind     = errors.New("invalid transaction kind")
	ErrInvalidStatus   = errors.New("invalid goal status")
	ErrEmptyTitle      = errors.New("empty title")
	ErrNameTooShort    = errors.New("name must have at least 2 characters")
	ErrNotFound        = errors.New("not found")
	ErrInsufficientBal = errors.New("insufficient goal balance")
)

// NewDate creates a naive calendar date (UTC midnight).
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses an ISO YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// String renders the ISO form. The zero-padded fixed width makes
// lexicographic comparison equivalent to chronological comparison.
func (d Date) String() string {
	return d.Format("2006-01-02")
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (k TransactionKind) Validate() error {
	switch k {
	case KindIncome, KindExpense:
		return nil
	}
	return ErrInvalidKind
}

func (s GoalStatus) Validate() error {
	switch s {
	case GoalActive, GoalCompleted, GoalPaused:
		return nil
	}
	return ErrInvalidStatus
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (p Profile) Validate() error {
	if len(strings.TrimSpace(p.Name)) < 2 {
		return ErrNameTooShort
	}
	return nil
}

func (t Transaction) Validate() error {
	if err := t.Kind.Validate(); err != nil {
		return err
	}
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	return nil
}

// Label returns the grouping label for distribution buckets, coalescing a
// missing source/category name to the sentinel bucket.
func (t Transaction) Label() string {
	if strings.TrimSpace(t.RefName) == "" {
		return DefaultBucketLabel
	}
	return t.RefName
}

func (g Goal) Validate() error {
	if strings.TrimSpace(g.Title) == "" {
		return ErrEmptyTitle
	}
	if err := g.TargetAmount.Validate(); err != nil {
		return err
	}
	if g.Status != "" {
		return g.Status.Validate()
	}
	return nil
}

// Percentage reports progress toward the target, rounded to one decimal.
// A non-positive target yields 0 rather than a division error.
func (g Goal) Percentage() float64 {
	if g.TargetAmount.Cents <= 0 {
		return 0
	}
	return Round1(float64(g.CurrentAmount.Cents) / float64(g.TargetAmount.Cents) * 100)
}

// Remaining is the amount still missing, floored at zero.
func (g Goal) Remaining() Money {
	rem := g.TargetAmount.Cents - g.CurrentAmount.Cents
	if rem < 0 {
		rem = 0
	}
	return Money{Cents: rem}
}
