package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"grana/internal/report"
	"grana/internal/services"
	"grana/internal/storage"
)

func testServer(t *testing.T) *httptest.Server {
	t.Helper()
	repo, err := storage.New(filepath.Join(t.TempDir(), "grana.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	txService := services.NewTransactionService(repo, nil)
	engine := report.NewEngine(repo)
	s := NewServer(":0", repo, txService, engine, 10000)

	ts := httptest.NewServer(s.Server.Handler)
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, ts *httptest.Server, method, path, body string, out any) int {
	t.Helper()
	req, err := http.NewRequest(method, ts.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("%s %s: decode response: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func createProfile(t *testing.T, ts *httptest.Server) int64 {
	t.Helper()
	var profile struct {
		ID int64 `json:"id"`
	}
	status := doJSON(t, ts, http.MethodPost, "/profiles", `{"name":"Maria","pin":"1234"}`, &profile)
	if status != http.StatusCreated {
		t.Fatalf("create profile: status %d", status)
	}
	return profile.ID
}

func TestRateLimiterPerClient(t *testing.T) {
	rl := newRateLimiter(2)
	for i := 0; i < 2; i++ {
		if !rl.allow("1.2.3.4") {
			t.Fatalf("request %d within the limit must pass", i+1)
		}
	}
	if rl.allow("1.2.3.4") {
		t.Fatal("third request within a minute must be rejected")
	}
	if !rl.allow("5.6.7.8") {
		t.Fatal("limits are tracked per client")
	}
}

func TestRateLimiterSweepsStaleClients(t *testing.T) {
	rl := newRateLimiter(2)
	rl.clients["old"] = &clientInfo{lastRequest: time.Now().Add(-time.Hour), requests: 1}
	rl.lastSweep = time.Now().Add(-time.Hour)

	rl.allow("fresh")

	if _, ok := rl.clients["old"]; ok {
		t.Fatal("stale client entry must be swept on the next request")
	}
	if _, ok := rl.clients["fresh"]; !ok {
		t.Fatal("active client entry must survive the sweep")
	}
}

func TestHealthEndpoints(t *testing.T) {
	ts := testServer(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		resp, err := ts.Client().Get(ts.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s: status %d", path, resp.StatusCode)
		}
	}
}

func TestProfileLifecycle(t *testing.T) {
	ts := testServer(t)
	id := createProfile(t, ts)

	var sources []storage.TaxonomyEntry
	status := doJSON(t, ts, http.MethodGet, fmt.Sprintf("/sources?profile_id=%d", id), "", &sources)
	if status != http.StatusOK {
		t.Fatalf("list sources: status %d", status)
	}
	if len(sources) == 0 {
		t.Fatal("new profile must come with seeded sources")
	}

	var verified map[string]bool
	status = doJSON(t, ts, http.MethodPost, fmt.Sprintf("/profiles/%d/verify-pin", id), `{"pin":"1234"}`, &verified)
	if status != http.StatusOK || !verified["verified"] {
		t.Fatalf("verify pin: status %d, body %v", status, verified)
	}
	status = doJSON(t, ts, http.MethodPost, fmt.Sprintf("/profiles/%d/verify-pin", id), `{"pin":"9999"}`, nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("wrong pin must be 401, got %d", status)
	}

	req, _ := http.NewRequest(http.MethodDelete, fmt.Sprintf("%s/profiles/%d", ts.URL, id), nil)
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete profile: status %d", resp.StatusCode)
	}

	status = doJSON(t, ts, http.MethodGet, fmt.Sprintf("/profiles/%d", id), "", nil)
	if status != http.StatusNotFound {
		t.Fatalf("deleted profile must be 404, got %d", status)
	}
}

func TestRecordIncomeAndDashboard(t *testing.T) {
	ts := testServer(t)
	id := createProfile(t, ts)

	body := fmt.Sprintf(`{"profile_id":%d,"amount":"150,00","date":"2025-05-10","observation":"frete"}`, id)
	var created struct {
		ID          int64 `json:"id"`
		AmountCents int64 `json:"amount_cents"`
	}
	status := doJSON(t, ts, http.MethodPost, "/incomes", body, &created)
	if status != http.StatusCreated {
		t.Fatalf("create income: status %d", status)
	}
	if created.AmountCents != 15000 {
		t.Fatalf("expected 15000 cents, got %d", created.AmountCents)
	}

	var dash struct {
		Income struct {
			TotalCents int64 `json:"total_cents"`
		} `json:"income"`
		Balance struct {
			TotalCents int64 `json:"total_cents"`
		} `json:"balance"`
	}
	status = doJSON(t, ts, http.MethodGet, fmt.Sprintf("/dashboard?profile_id=%d", id), "", &dash)
	if status != http.StatusOK {
		t.Fatalf("dashboard: status %d", status)
	}
	if dash.Income.TotalCents != 15000 || dash.Balance.TotalCents != 15000 {
		t.Fatalf("dashboard totals mismatch: %+v", dash)
	}
}

func TestDashboardCacheInvalidation(t *testing.T) {
	ts := testServer(t)
	id := createProfile(t, ts)

	var dash struct {
		Income struct {
			TotalCents int64 `json:"total_cents"`
		} `json:"income"`
	}
	dashPath := fmt.Sprintf("/dashboard?profile_id=%d", id)
	if status := doJSON(t, ts, http.MethodGet, dashPath, "", &dash); status != http.StatusOK {
		t.Fatalf("dashboard: status %d", status)
	}
	if dash.Income.TotalCents != 0 {
		t.Fatalf("fresh profile income = %d, want 0", dash.Income.TotalCents)
	}

	body := fmt.Sprintf(`{"profile_id":%d,"amount_cents":5000,"date":"2025-05-10"}`, id)
	if status := doJSON(t, ts, http.MethodPost, "/incomes", body, nil); status != http.StatusCreated {
		t.Fatalf("create income: status %d", status)
	}

	// The write must have dropped the cached payload.
	if status := doJSON(t, ts, http.MethodGet, dashPath, "", &dash); status != http.StatusOK {
		t.Fatalf("dashboard after write: status %d", status)
	}
	if dash.Income.TotalCents != 5000 {
		t.Fatalf("dashboard served stale data: income = %d, want 5000", dash.Income.TotalCents)
	}
}

func TestCreateTransactionValidation(t *testing.T) {
	ts := testServer(t)
	id := createProfile(t, ts)

	cases := []struct {
		name string
		body string
		want int
	}{
		{"zero amount", fmt.Sprintf(`{"profile_id":%d,"amount_cents":0,"date":"2025-05-10"}`, id), http.StatusUnprocessableEntity},
		{"bad amount string", fmt.Sprintf(`{"profile_id":%d,"amount":"abc","date":"2025-05-10"}`, id), http.StatusUnprocessableEntity},
		{"bad date", fmt.Sprintf(`{"profile_id":%d,"amount_cents":100,"date":"10/05/2025"}`, id), http.StatusUnprocessableEntity},
		{"not json", `{{{`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if status := doJSON(t, ts, http.MethodPost, "/expenses", tc.body, nil); status != tc.want {
				t.Fatalf("status = %d, want %d", status, tc.want)
			}
		})
	}
}

func TestMonthlyReportEndpoint(t *testing.T) {
	ts := testServer(t)
	id := createProfile(t, ts)

	for _, row := range []struct {
		path, date string
		cents      int64
	}{
		{"/incomes", "2025-03-15", 31000},
		{"/incomes", "2025-02-20", 20000},
		{"/expenses", "2025-03-02", 4000},
	} {
		body := fmt.Sprintf(`{"profile_id":%d,"amount_cents":%d,"date":"%s"}`, id, row.cents, row.date)
		if status := doJSON(t, ts, http.MethodPost, row.path, body, nil); status != http.StatusCreated {
			t.Fatalf("seed %s: status %d", row.path, status)
		}
	}

	var payload struct {
		IncomeTotalCents int64   `json:"income_total_cents"`
		IncomeGrowth     float64 `json:"income_growth"`
		BalanceCents     int64   `json:"balance_cents"`
		BestDay          *struct {
			Label string `json:"label"`
		} `json:"best_day"`
	}
	path := fmt.Sprintf("/reports/monthly?profile_id=%d&month=3&year=2025", id)
	if status := doJSON(t, ts, http.MethodGet, path, "", &payload); status != http.StatusOK {
		t.Fatalf("monthly report: status %d", status)
	}
	if payload.IncomeTotalCents != 31000 || payload.BalanceCents != 27000 {
		t.Fatalf("report totals mismatch: %+v", payload)
	}
	if payload.IncomeGrowth != 55.0 {
		t.Fatalf("expected growth 55.0, got %v", payload.IncomeGrowth)
	}
	if payload.BestDay == nil || payload.BestDay.Label != "2025-03-15" {
		t.Fatalf("expected best day 2025-03-15, got %+v", payload.BestDay)
	}

	if status := doJSON(t, ts, http.MethodGet, fmt.Sprintf("/reports/monthly?profile_id=%d&month=13&year=2025", id), "", nil); status != http.StatusUnprocessableEntity {
		t.Fatalf("month 13 must be 422, got %d", status)
	}
}

func TestGoalDepositEndpoint(t *testing.T) {
	ts := testServer(t)
	id := createProfile(t, ts)

	var goal struct {
		ID     int64  `json:"id"`
		Status string `json:"status"`
	}
	body := fmt.Sprintf(`{"profile_id":%d,"title":"Viagem","target_cents":10000}`, id)
	if status := doJSON(t, ts, http.MethodPost, "/goals", body, &goal); status != http.StatusCreated {
		t.Fatalf("create goal: status %d", status)
	}

	depositPath := fmt.Sprintf("/goals/%d/deposit", goal.ID)
	var updated struct {
		CurrentCents int64  `json:"current_cents"`
		Status       string `json:"status"`
	}
	body = fmt.Sprintf(`{"profile_id":%d,"amount_cents":10000}`, id)
	if status := doJSON(t, ts, http.MethodPost, depositPath, body, &updated); status != http.StatusOK {
		t.Fatalf("deposit: status %d", status)
	}
	if updated.Status != "completed" {
		t.Fatalf("goal must auto-complete, got %s", updated.Status)
	}

	body = fmt.Sprintf(`{"profile_id":%d,"amount_cents":20000,"withdraw":true}`, id)
	if status := doJSON(t, ts, http.MethodPost, depositPath, body, nil); status != http.StatusConflict {
		t.Fatalf("overdraw must be 409, got %d", status)
	}
}

func TestListTransactionsPagination(t *testing.T) {
	ts := testServer(t)
	id := createProfile(t, ts)

	for i := 0; i < 15; i++ {
		body := fmt.Sprintf(`{"profile_id":%d,"amount_cents":100,"date":"2025-05-%02d"}`, id, 1+i)
		if status := doJSON(t, ts, http.MethodPost, "/expenses", body, nil); status != http.StatusCreated {
			t.Fatalf("seed expense %d: status %d", i, status)
		}
	}

	var page storage.TransactionPage
	path := fmt.Sprintf("/expenses?profile_id=%d&limit=10", id)
	if status := doJSON(t, ts, http.MethodGet, path, "", &page); status != http.StatusOK {
		t.Fatalf("list expenses: status %d", status)
	}
	if page.Total != 15 || page.Pages != 2 || len(page.Records) != 10 {
		t.Fatalf("pagination mismatch: total=%d pages=%d records=%d", page.Total, page.Pages, len(page.Records))
	}
	if page.Records[0].Date.String() != "2025-05-15" {
		t.Fatalf("records must be newest first, got %s", page.Records[0].Date)
	}
}
