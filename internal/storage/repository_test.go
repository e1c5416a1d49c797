package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"grana/internal/core"
	"grana/internal/period"
)

func testRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := New(filepath.Join(t.TempDir(), "grana.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func testProfile(t *testing.T, repo *Repository) *core.Profile {
	t.Helper()
	p := &core.Profile{Name: "Maria", PIN: "1234"}
	if err := repo.CreateProfile(context.Background(), p); err != nil {
		t.Fatalf("create profile: %v", err)
	}
	return p
}

func TestCreateProfileSeedsTaxonomy(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()
	p := testProfile(t, repo)

	sources, err := repo.ListRefs(ctx, core.KindIncome, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(sources) != len(defaultSources) {
		t.Fatalf("expected %d seeded sources, got %d", len(defaultSources), len(sources))
	}
	categories, err := repo.ListRefs(ctx, core.KindExpense, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(categories) != len(defaultCategories) {
		t.Fatalf("expected %d seeded categories, got %d", len(defaultCategories), len(categories))
	}
}

func TestVerifyPIN(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()
	p := testProfile(t, repo)

	ok, err := repo.VerifyPIN(ctx, p.ID, "1234")
	if err != nil || !ok {
		t.Fatalf("correct pin rejected: ok=%v err=%v", ok, err)
	}
	ok, err = repo.VerifyPIN(ctx, p.ID, "0000")
	if err != nil || ok {
		t.Fatalf("wrong pin accepted: ok=%v err=%v", ok, err)
	}
	if _, err := repo.VerifyPIN(ctx, 999, "1234"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing profile, got %v", err)
	}
}

func TestTransactionCapturesLabelAtWrite(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()
	p := testProfile(t, repo)

	sources, err := repo.ListRefs(ctx, core.KindIncome, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	src := sources[0]

	tx := &core.Transaction{
		ProfileID: p.ID,
		Kind:      core.KindIncome,
		Amount:    core.Money{Cents: 5000},
		Date:      core.NewDate(2025, 5, 10),
		RefID:     &src.ID,
	}
	if err := repo.CreateTransaction(ctx, tx); err != nil {
		t.Fatal(err)
	}
	if tx.RefName != src.Name {
		t.Fatalf("expected captured name %q, got %q", src.Name, tx.RefName)
	}

	// renaming the source must not rewrite recorded history
	if err := repo.RenameRef(ctx, core.KindIncome, p.ID, src.ID, "Renamed"); err != nil {
		t.Fatal(err)
	}
	got, err := repo.ListTransactions(ctx, p.ID, core.KindIncome, period.FullMonth(2025, 5))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].RefName != src.Name {
		t.Fatalf("recorded label must survive a rename, got %+v", got)
	}

	// deleting the source keeps the row with its captured name
	if err := repo.DeleteRef(ctx, core.KindIncome, p.ID, src.ID); err != nil {
		t.Fatal(err)
	}
	got, err = repo.ListTransactions(ctx, p.ID, core.KindIncome, period.FullMonth(2025, 5))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].RefName != src.Name {
		t.Fatalf("recorded label must survive a delete, got %+v", got)
	}
	if got[0].RefID != nil {
		t.Fatalf("ref id must be nulled after delete, got %v", *got[0].RefID)
	}
}

func TestCreateTransactionRejectsForeignRef(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()
	a := testProfile(t, repo)
	b := &core.Profile{Name: "João"}
	if err := repo.CreateProfile(ctx, b); err != nil {
		t.Fatal(err)
	}

	sources, err := repo.ListRefs(ctx, core.KindIncome, a.ID)
	if err != nil {
		t.Fatal(err)
	}
	tx := &core.Transaction{
		ProfileID: b.ID,
		Kind:      core.KindIncome,
		Amount:    core.Money{Cents: 100},
		Date:      core.NewDate(2025, 5, 1),
		RefID:     &sources[0].ID,
	}
	if err := repo.CreateTransaction(ctx, tx); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for another profile's source, got %v", err)
	}
}

func TestListTransactionsRange(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()
	p := testProfile(t, repo)

	for _, d := range []core.Date{
		core.NewDate(2025, 4, 30),
		core.NewDate(2025, 5, 1),
		core.NewDate(2025, 5, 31),
		core.NewDate(2025, 6, 1),
	} {
		tx := &core.Transaction{
			ProfileID: p.ID,
			Kind:      core.KindExpense,
			Amount:    core.Money{Cents: 100},
			Date:      d,
			RefName:   "Mercado",
		}
		if err := repo.CreateTransaction(ctx, tx); err != nil {
			t.Fatal(err)
		}
	}

	got, err := repo.ListTransactions(ctx, p.ID, core.KindExpense, period.FullMonth(2025, 5))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 rows inside May, got %d", len(got))
	}
	if !got[0].Date.Before(got[1].Date.Time) {
		t.Fatalf("rows must be oldest first: %s, %s", got[0].Date, got[1].Date)
	}

	inverted := period.Custom(core.NewDate(2025, 6, 1), core.NewDate(2025, 5, 1))
	got, err = repo.ListTransactions(ctx, p.ID, core.KindExpense, inverted)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Fatalf("inverted range must match nothing, got %d rows", len(got))
	}
}

func TestListPagePaginationAndSearch(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()
	p := testProfile(t, repo)

	for i := 0; i < 25; i++ {
		tx := &core.Transaction{
			ProfileID:   p.ID,
			Kind:        core.KindIncome,
			Amount:      core.Money{Cents: 100},
			Date:        core.NewDate(2025, 5, 1+i%28),
			RefName:     "Vendas",
			Observation: "entrega",
		}
		if err := repo.CreateTransaction(ctx, tx); err != nil {
			t.Fatal(err)
		}
	}

	page, err := repo.ListPage(ctx, TransactionFilter{ProfileID: p.ID, Kind: core.KindIncome})
	if err != nil {
		t.Fatal(err)
	}
	if page.Limit != 20 || len(page.Records) != 20 {
		t.Fatalf("default page size must be 20, got limit=%d records=%d", page.Limit, len(page.Records))
	}
	if page.Total != 25 || page.Pages != 2 || page.TotalCents != 2500 {
		t.Fatalf("totals cover the whole set: %+v", page)
	}

	page, err = repo.ListPage(ctx, TransactionFilter{ProfileID: p.ID, Kind: core.KindIncome, Limit: 5})
	if err != nil {
		t.Fatal(err)
	}
	if page.Limit != 10 {
		t.Fatalf("limit below 10 must clamp to 10, got %d", page.Limit)
	}

	page, err = repo.ListPage(ctx, TransactionFilter{ProfileID: p.ID, Kind: core.KindIncome, Limit: 500})
	if err != nil {
		t.Fatal(err)
	}
	if page.Limit != 100 {
		t.Fatalf("limit above 100 must clamp to 100, got %d", page.Limit)
	}

	page, err = repo.ListPage(ctx, TransactionFilter{ProfileID: p.ID, Kind: core.KindIncome, Search: "entrega"})
	if err != nil {
		t.Fatal(err)
	}
	if page.Total != 25 {
		t.Fatalf("search over observation must match all rows, got %d", page.Total)
	}
	page, err = repo.ListPage(ctx, TransactionFilter{ProfileID: p.ID, Kind: core.KindIncome, Search: "nada"})
	if err != nil {
		t.Fatal(err)
	}
	if page.Total != 0 || len(page.Records) != 0 {
		t.Fatalf("non-matching search must be empty, got %+v", page)
	}
}

func TestListPageSortOrder(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()
	p := testProfile(t, repo)

	for _, day := range []int{20, 5, 12} {
		tx := &core.Transaction{
			ProfileID: p.ID,
			Kind:      core.KindExpense,
			Amount:    core.Money{Cents: 100},
			Date:      core.NewDate(2025, 5, day),
		}
		if err := repo.CreateTransaction(ctx, tx); err != nil {
			t.Fatal(err)
		}
	}

	page, err := repo.ListPage(ctx, TransactionFilter{ProfileID: p.ID, Kind: core.KindExpense})
	if err != nil {
		t.Fatal(err)
	}
	if page.Records[0].Date.String() != "2025-05-20" {
		t.Fatalf("default order must be newest first, got %s", page.Records[0].Date)
	}

	page, err = repo.ListPage(ctx, TransactionFilter{ProfileID: p.ID, Kind: core.KindExpense, Sort: "asc"})
	if err != nil {
		t.Fatal(err)
	}
	if page.Records[0].Date.String() != "2025-05-05" {
		t.Fatalf("asc order must be oldest first, got %s", page.Records[0].Date)
	}
}

func TestGoalDepositCompletesAndReverts(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()
	p := testProfile(t, repo)

	g := &core.Goal{ProfileID: p.ID, Title: "Viagem", TargetAmount: core.Money{Cents: 10000}}
	if err := repo.CreateGoal(ctx, g); err != nil {
		t.Fatal(err)
	}
	if g.Status != core.GoalActive {
		t.Fatalf("new goal must start active, got %s", g.Status)
	}

	got, err := repo.Deposit(ctx, p.ID, g.ID, 10000)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != core.GoalCompleted {
		t.Fatalf("reaching the target must complete the goal, got %s", got.Status)
	}

	got, err = repo.Deposit(ctx, p.ID, g.ID, -1)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != core.GoalActive {
		t.Fatalf("falling under the target must revert to active, got %s", got.Status)
	}
	if got.CurrentAmount.Cents != 9999 {
		t.Fatalf("expected balance 9999, got %d", got.CurrentAmount.Cents)
	}
}

func TestGoalWithdrawalCannotGoNegative(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()
	p := testProfile(t, repo)

	g := &core.Goal{ProfileID: p.ID, Title: "Reserva", TargetAmount: core.Money{Cents: 5000}}
	if err := repo.CreateGoal(ctx, g); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.Deposit(ctx, p.ID, g.ID, 1000); err != nil {
		t.Fatal(err)
	}

	if _, err := repo.Deposit(ctx, p.ID, g.ID, -1001); !errors.Is(err, core.ErrInsufficientBal) {
		t.Fatalf("expected ErrInsufficientBal, got %v", err)
	}
	got, err := repo.GetGoal(ctx, p.ID, g.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.CurrentAmount.Cents != 1000 {
		t.Fatalf("rejected withdrawal must not change the balance, got %d", got.CurrentAmount.Cents)
	}
}

func TestGoalDepositKeepsPausedStatus(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()
	p := testProfile(t, repo)

	g := &core.Goal{ProfileID: p.ID, Title: "Curso", TargetAmount: core.Money{Cents: 1000}, Status: core.GoalPaused}
	if err := repo.CreateGoal(ctx, g); err != nil {
		t.Fatal(err)
	}
	got, err := repo.Deposit(ctx, p.ID, g.ID, 2000)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != core.GoalPaused {
		t.Fatalf("paused goal must keep its status, got %s", got.Status)
	}
}

func TestDeleteProfileCascades(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()
	p := testProfile(t, repo)

	tx := &core.Transaction{
		ProfileID: p.ID,
		Kind:      core.KindIncome,
		Amount:    core.Money{Cents: 100},
		Date:      core.NewDate(2025, 5, 1),
		RefName:   "Vendas",
	}
	if err := repo.CreateTransaction(ctx, tx); err != nil {
		t.Fatal(err)
	}
	g := &core.Goal{ProfileID: p.ID, Title: "Meta", TargetAmount: core.Money{Cents: 100}}
	if err := repo.CreateGoal(ctx, g); err != nil {
		t.Fatal(err)
	}

	if err := repo.DeleteProfile(ctx, p.ID); err != nil {
		t.Fatal(err)
	}

	rows, err := repo.ListTransactions(ctx, p.ID, core.KindIncome, period.FullYear(2025))
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 0 {
		t.Fatalf("transactions must cascade, got %d rows", len(rows))
	}
	goals, err := repo.ListGoals(ctx, p.ID, "", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(goals) != 0 {
		t.Fatalf("goals must cascade, got %d", len(goals))
	}
	refs, err := repo.ListRefs(ctx, core.KindIncome, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(refs) != 0 {
		t.Fatalf("sources must cascade, got %d", len(refs))
	}
}

func TestActivityLog(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()
	p := testProfile(t, repo)

	e := &ActivityEntry{
		ProfileID:     p.ID,
		EventType:     "transaction.recorded",
		Kind:          core.KindExpense,
		TransactionID: 7,
	}
	if err := repo.AppendActivity(ctx, e); err != nil {
		t.Fatal(err)
	}

	entries, err := repo.ListActivity(ctx, p.ID, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].EventType != "transaction.recorded" || entries[0].TransactionID != 7 {
		t.Fatalf("unexpected activity entries: %+v", entries)
	}
}

func TestPruneActivity(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()
	p := testProfile(t, repo)

	now := time.Now().UTC()
	for i, occurred := range []time.Time{
		now.AddDate(0, 0, -120),
		now.AddDate(0, 0, -91),
		now.AddDate(0, 0, -1),
	} {
		e := &ActivityEntry{
			ProfileID:     p.ID,
			EventType:     "transaction.recorded",
			Kind:          core.KindIncome,
			TransactionID: int64(i + 1),
			OccurredAt:    occurred,
		}
		if err := repo.AppendActivity(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	n, err := repo.PruneActivity(ctx, now.AddDate(0, 0, -90))
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("expected 2 pruned rows, got %d", n)
	}

	entries, err := repo.ListActivity(ctx, p.ID, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].TransactionID != 3 {
		t.Fatalf("only the recent row must survive, got %+v", entries)
	}

	n, err = repo.PruneActivity(ctx, now.AddDate(0, 0, -90))
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("second prune must be a no-op, got %d", n)
	}
}

func TestReopenExistingDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grana.db")
	ctx := context.Background()

	repo, err := New(path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	p := &core.Profile{Name: "Maria"}
	if err := repo.CreateProfile(ctx, p); err != nil {
		t.Fatal(err)
	}
	if err := repo.Close(); err != nil {
		t.Fatal(err)
	}

	// Second open applies no migrations and must keep the data.
	repo, err = New(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	profiles, err := repo.ListProfiles(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(profiles) != 1 || profiles[0].Name != "Maria" {
		t.Fatalf("data must survive a reopen, got %+v", profiles)
	}
}
