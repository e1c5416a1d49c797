package report

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"grana/internal/core"
	"grana/internal/period"
)

// Store is the read-only slice of the transaction store the engine needs.
// The profile ID is threaded explicitly through every call; the engine
// holds no session or per-profile state.
type Store interface {
	ListTransactions(ctx context.Context, profileID int64, kind core.TransactionKind, r period.Range) ([]core.Transaction, error)
	RecentTransactions(ctx context.Context, profileID int64, kind core.TransactionKind, limit int) ([]core.Transaction, error)
	ListGoals(ctx context.Context, profileID int64, status core.GoalStatus, limit int) ([]core.Goal, error)
}

// Engine assembles dashboard and report payloads. Each call reads a
// snapshot from the store and recomputes from scratch; calls are idempotent
// and safe to retry.
type Engine struct {
	store Store
	now   func() time.Time
}

func NewEngine(store Store) *Engine {
	return &Engine{store: store, now: time.Now}
}

// allTime covers every representable transaction date.
func allTime() period.Range {
	return period.Custom(core.NewDate(1, 1, 1), core.NewDate(9999, 12, 31))
}

type KindSummary struct {
	TodayCents int64 `json:"today_cents"`
	WeekCents  int64 `json:"week_cents"`
	MonthCents int64 `json:"month_cents"`
	YearCents  int64 `json:"year_cents"`
	TotalCents int64 `json:"total_cents"`
}

type IncomeSummary struct {
	KindSummary
	MonthGrowth    float64 `json:"month_growth"`
	LastMonthCents int64   `json:"last_month_cents"`
}

type BalanceSummary struct {
	MonthCents int64 `json:"month_cents"`
	YearCents  int64 `json:"year_cents"`
	TotalCents int64 `json:"total_cents"`
}

type GoalProgress struct {
	core.Goal
	Percentage     float64 `json:"percentage"`
	RemainingCents int64   `json:"remaining_cents"`
}

type DashboardPayload struct {
	Income               IncomeSummary      `json:"income"`
	Expenses             KindSummary        `json:"expenses"`
	Balance              BalanceSummary     `json:"balance"`
	MonthlyIncome        []Bucket           `json:"monthly_income"`
	MonthlyExpenses      []Bucket           `json:"monthly_expenses"`
	SourceDistribution   []Bucket           `json:"source_distribution"`
	CategoryDistribution []Bucket           `json:"category_distribution"`
	RecentIncome         []core.Transaction `json:"recent_income"`
	RecentExpenses       []core.Transaction `json:"recent_expenses"`
	ActiveGoals          []GoalProgress     `json:"active_goals"`
}

// DashboardSummary resolves today, week-to-date, month-to-date and
// year-to-date plus the all-time total for both kinds, the trailing
// twelve-month series, the month-to-date top-8 distributions, recent
// entries and active goals. Month-over-month growth compares income
// month-to-date against the full previous calendar month.
func (e *Engine) DashboardSummary(ctx context.Context, profileID int64) (*DashboardPayload, error) {
	today := e.today()

	var (
		incomes, expenses    []core.Transaction
		recentInc, recentExp []core.Transaction
		goals                []core.Goal
	)

	// Independent snapshot reads; the aggregation itself stays synchronous.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		incomes, err = e.store.ListTransactions(gctx, profileID, core.KindIncome, allTime())
		return err
	})
	g.Go(func() (err error) {
		expenses, err = e.store.ListTransactions(gctx, profileID, core.KindExpense, allTime())
		return err
	})
	g.Go(func() (err error) {
		recentInc, err = e.store.RecentTransactions(gctx, profileID, core.KindIncome, 5)
		return err
	})
	g.Go(func() (err error) {
		recentExp, err = e.store.RecentTransactions(gctx, profileID, core.KindExpense, 5)
		return err
	})
	g.Go(func() (err error) {
		goals, err = e.store.ListGoals(gctx, profileID, core.GoalActive, 4)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("dashboard reads: %w", err)
	}

	monthRange := period.MonthToDate(today)
	yearRange := period.YearToDate(today)
	lastMonth := Sum(incomes, period.FullMonth(period.PrevMonth(today.Year(), int(today.Month()))))

	inc := IncomeSummary{
		KindSummary: KindSummary{
			TodayCents: Sum(incomes, period.Day(today)).TotalCents,
			WeekCents:  Sum(incomes, period.WeekToDate(today)).TotalCents,
			MonthCents: Sum(incomes, monthRange).TotalCents,
			YearCents:  Sum(incomes, yearRange).TotalCents,
			TotalCents: Sum(incomes, allTime()).TotalCents,
		},
		LastMonthCents: lastMonth.TotalCents,
	}
	inc.MonthGrowth = GrowthPercent(inc.MonthCents, lastMonth.TotalCents)

	exp := KindSummary{
		TodayCents: Sum(expenses, period.Day(today)).TotalCents,
		WeekCents:  Sum(expenses, period.WeekToDate(today)).TotalCents,
		MonthCents: Sum(expenses, monthRange).TotalCents,
		YearCents:  Sum(expenses, yearRange).TotalCents,
		TotalCents: Sum(expenses, allTime()).TotalCents,
	}

	trailing := period.TrailingMonths(today, 12)
	progress := make([]GoalProgress, 0, len(goals))
	for _, goal := range goals {
		progress = append(progress, GoalProgress{
			Goal:           goal,
			Percentage:     goal.Percentage(),
			RemainingCents: goal.Remaining().Cents,
		})
	}

	return &DashboardPayload{
		Income:   inc,
		Expenses: exp,
		Balance: BalanceSummary{
			MonthCents: inc.MonthCents - exp.MonthCents,
			YearCents:  inc.YearCents - exp.YearCents,
			TotalCents: inc.TotalCents - exp.TotalCents,
		},
		MonthlyIncome:        MonthlySeries(incomes, trailing),
		MonthlyExpenses:      MonthlySeries(expenses, trailing),
		SourceDistribution:   TopN(ByLabel(incomes, monthRange), DashboardDistributionCap),
		CategoryDistribution: TopN(ByLabel(expenses, monthRange), DashboardDistributionCap),
		RecentIncome:         recentInc,
		RecentExpenses:       recentExp,
		ActiveGoals:          progress,
	}, nil
}

type MonthlyReportPayload struct {
	IncomeTotalCents     int64    `json:"income_total_cents"`
	IncomeCount          int      `json:"income_count"`
	ExpenseTotalCents    int64    `json:"expense_total_cents"`
	ExpenseCount         int      `json:"expense_count"`
	BalanceCents         int64    `json:"balance_cents"`
	AvgDailyIncomeCents  int64    `json:"avg_daily_income_cents"`
	AvgDailyExpenseCents int64    `json:"avg_daily_expense_cents"`
	BestDay              *Bucket  `json:"best_day"`
	IncomeGrowth         float64  `json:"income_growth"`
	DailyIncome          []Bucket `json:"daily_income"`
	DailyExpenses        []Bucket `json:"daily_expenses"`
	BySource             []Bucket `json:"by_source"`
	ByCategory           []Bucket `json:"by_category"`
}

// MonthlyReport aggregates one full calendar month. Growth compares the
// income total against the full prior calendar month (a March report is
// compared against all of February regardless of length). Expense growth
// is intentionally not computed.
func (e *Engine) MonthlyReport(ctx context.Context, profileID int64, month, year int) (*MonthlyReportPayload, error) {
	if month < 1 || month > 12 {
		return nil, fmt.Errorf("monthly report: month %d: %w", month, core.ErrInvalidDate)
	}

	r := period.FullMonth(year, month)
	incomes, err := e.store.ListTransactions(ctx, profileID, core.KindIncome, r)
	if err != nil {
		return nil, fmt.Errorf("monthly report incomes: %w", err)
	}
	expenses, err := e.store.ListTransactions(ctx, profileID, core.KindExpense, r)
	if err != nil {
		return nil, fmt.Errorf("monthly report expenses: %w", err)
	}
	prevRange := period.FullMonth(period.PrevMonth(year, month))
	prevIncomes, err := e.store.ListTransactions(ctx, profileID, core.KindIncome, prevRange)
	if err != nil {
		return nil, fmt.Errorf("monthly report prior incomes: %w", err)
	}

	incAgg := Sum(incomes, r)
	expAgg := Sum(expenses, r)
	prior := Sum(prevIncomes, prevRange)

	return &MonthlyReportPayload{
		IncomeTotalCents:     incAgg.TotalCents,
		IncomeCount:          incAgg.Count,
		ExpenseTotalCents:    expAgg.TotalCents,
		ExpenseCount:         expAgg.Count,
		BalanceCents:         incAgg.TotalCents - expAgg.TotalCents,
		AvgDailyIncomeCents:  AvgPerDayCents(incAgg.TotalCents, r),
		AvgDailyExpenseCents: AvgPerDayCents(expAgg.TotalCents, r),
		BestDay:              Best(DailySeries(incomes, r)),
		IncomeGrowth:         GrowthPercent(incAgg.TotalCents, prior.TotalCents),
		DailyIncome:          DailySeries(incomes, r),
		DailyExpenses:        DailySeries(expenses, r),
		BySource:             ByLabel(incomes, r),
		ByCategory:           ByLabel(expenses, r),
	}, nil
}

// MonthPoint is one month of an annual series, 1-12.
type MonthPoint struct {
	Month      int   `json:"month"`
	TotalCents int64 `json:"total_cents"`
	Count      int   `json:"count"`
}

type AnnualReportPayload struct {
	IncomeTotalCents       int64        `json:"income_total_cents"`
	IncomeCount            int          `json:"income_count"`
	ExpenseTotalCents      int64        `json:"expense_total_cents"`
	ExpenseCount           int          `json:"expense_count"`
	BalanceCents           int64        `json:"balance_cents"`
	AvgMonthlyIncomeCents  int64        `json:"avg_monthly_income_cents"`
	AvgMonthlyExpenseCents int64        `json:"avg_monthly_expense_cents"`
	BestMonth              *MonthPoint  `json:"best_month"`
	Growth                 float64      `json:"growth"`
	MonthlyIncome          []MonthPoint `json:"monthly_income"`
	MonthlyExpenses        []MonthPoint `json:"monthly_expenses"`
	BySource               []Bucket     `json:"by_source"`
	ByCategory             []Bucket     `json:"by_category"`
}

// AnnualReport aggregates January 1st through December 31st of a year.
// The monthly average divides by 12 unconditionally, not by months elapsed.
func (e *Engine) AnnualReport(ctx context.Context, profileID int64, year int) (*AnnualReportPayload, error) {
	r := period.FullYear(year)
	incomes, err := e.store.ListTransactions(ctx, profileID, core.KindIncome, r)
	if err != nil {
		return nil, fmt.Errorf("annual report incomes: %w", err)
	}
	expenses, err := e.store.ListTransactions(ctx, profileID, core.KindExpense, r)
	if err != nil {
		return nil, fmt.Errorf("annual report expenses: %w", err)
	}
	prevRange := period.FullYear(year - 1)
	prevIncomes, err := e.store.ListTransactions(ctx, profileID, core.KindIncome, prevRange)
	if err != nil {
		return nil, fmt.Errorf("annual report prior incomes: %w", err)
	}

	incAgg := Sum(incomes, r)
	expAgg := Sum(expenses, r)
	prior := Sum(prevIncomes, prevRange)

	incMonths := monthOfYearSeries(incomes, r)
	return &AnnualReportPayload{
		IncomeTotalCents:       incAgg.TotalCents,
		IncomeCount:            incAgg.Count,
		ExpenseTotalCents:      expAgg.TotalCents,
		ExpenseCount:           expAgg.Count,
		BalanceCents:           incAgg.TotalCents - expAgg.TotalCents,
		AvgMonthlyIncomeCents:  AvgPerMonthCents(incAgg.TotalCents),
		AvgMonthlyExpenseCents: AvgPerMonthCents(expAgg.TotalCents),
		BestMonth:              bestMonth(incMonths),
		Growth:                 GrowthPercent(incAgg.TotalCents, prior.TotalCents),
		MonthlyIncome:          incMonths,
		MonthlyExpenses:        monthOfYearSeries(expenses, r),
		BySource:               ByLabel(incomes, r),
		ByCategory:             ByLabel(expenses, r),
	}, nil
}

func monthOfYearSeries(txs []core.Transaction, r period.Range) []MonthPoint {
	buckets := groupBy(txs, r, func(tx core.Transaction) string {
		return strconv.Itoa(int(tx.Date.Month()))
	})
	points := make([]MonthPoint, 0, len(buckets))
	for _, b := range buckets {
		m, _ := strconv.Atoi(b.Label)
		points = append(points, MonthPoint{Month: m, TotalCents: b.TotalCents, Count: b.Count})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Month < points[j].Month })
	return points
}

func bestMonth(points []MonthPoint) *MonthPoint {
	if len(points) == 0 {
		return nil
	}
	best := points[0]
	for _, p := range points[1:] {
		if p.TotalCents > best.TotalCents {
			best = p
		}
	}
	return &best
}

// MonthBucket is one month inside the expense summary.
type MonthBucket struct {
	Month          int   `json:"month"`
	Year           int   `json:"year"`
	TotalCents     int64 `json:"total_cents"`
	Count          int   `json:"count"`
	AvgPerDayCents int64 `json:"avg_day_cents"`
}

type ExpenseSummaryPayload struct {
	Months           []MonthBucket `json:"months"`
	PeriodTotalCents int64         `json:"period_total_cents"`
	PeriodCount      int           `json:"period_count"`
	DateFrom         core.Date     `json:"date_from"`
	DateTo           core.Date     `json:"date_to"`
}

// ExpenseSummaryByMonth buckets expenses per calendar month, newest first,
// with the per-day average divided by each month's actual length. Zero
// dates default to the last six calendar months ending today. A reversed
// range yields an empty payload rather than an error.
func (e *Engine) ExpenseSummaryByMonth(ctx context.Context, profileID int64, from, to core.Date) (*ExpenseSummaryPayload, error) {
	today := e.today()
	if from.IsZero() {
		firstOfMonth := core.NewDate(today.Year(), int(today.Month()), 1)
		from = core.Date{Time: firstOfMonth.AddDate(0, -5, 0)}
	}
	if to.IsZero() {
		to = period.FullMonth(today.Year(), int(today.Month())).To
	}

	r := period.Custom(from, to)
	payload := &ExpenseSummaryPayload{Months: []MonthBucket{}, DateFrom: from, DateTo: to}
	if !r.Valid() {
		return payload, nil
	}

	expenses, err := e.store.ListTransactions(ctx, profileID, core.KindExpense, r)
	if err != nil {
		return nil, fmt.Errorf("expense summary: %w", err)
	}

	agg := Sum(expenses, r)
	payload.PeriodTotalCents = agg.TotalCents
	payload.PeriodCount = agg.Count

	for _, b := range MonthlySeries(expenses, r) {
		year, _ := strconv.Atoi(b.Label[:4])
		month, _ := strconv.Atoi(b.Label[5:])
		payload.Months = append(payload.Months, MonthBucket{
			Month:          month,
			Year:           year,
			TotalCents:     b.TotalCents,
			Count:          b.Count,
			AvgPerDayCents: AvgPerDayCents(b.TotalCents, period.FullMonth(year, month)),
		})
	}
	// newest first
	sort.Slice(payload.Months, func(i, j int) bool {
		if payload.Months[i].Year != payload.Months[j].Year {
			return payload.Months[i].Year > payload.Months[j].Year
		}
		return payload.Months[i].Month > payload.Months[j].Month
	})
	return payload, nil
}

func (e *Engine) today() core.Date {
	now := e.now()
	return core.NewDate(now.Year(), int(now.Month()), now.Day())
}
