package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"financeflow/internal/core"
	"financeflow/internal/storage"
	"financeflow/internal/store"
	"financeflow/internal/summary"
)

type countingGenerator struct {
	calls int64
}

func (g *countingGenerator) Generate(_ context.Context, in summary.Input) (string, error) {
	atomic.AddInt64(&g.calls, 1)
	return fmt.Sprintf("summary for %s %d", in.Month, in.Year), nil
}

func newTestServer(t *testing.T) (*Server, *store.Store) {
	t.Helper()
	st := store.New(storage.NewMemoryStore())
	s := NewServer(Options{
		Addr:       ":0",
		Store:      st,
		SummaryGen: &countingGenerator{},
	})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = s.Shutdown(ctx)
	})
	return s, st
}

func doRequest(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

const txBody = `{"date":"2025-07-01","description":"coffee","amount":"3.50","type":"expense","category":"Food","account":"Cash","currency":"usd"}`

func createTransaction(t *testing.T, s *Server, body string) core.Transaction {
	t.Helper()
	rec := doRequest(t, s, http.MethodPost, "/api/transactions", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create transaction: status %d, body %s", rec.Code, rec.Body.String())
	}
	return decodeBody[core.Transaction](t, rec)
}

func TestHealthEndpoints(t *testing.T) {
	s, _ := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		if rec := doRequest(t, s, http.MethodGet, path, ""); rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, rec.Code)
		}
	}
}

func TestCreateAndListTransactions(t *testing.T) {
	s, _ := newTestServer(t)

	tx := createTransaction(t, s, txBody)
	if tx.ID == "" {
		t.Fatal("created transaction must carry an id")
	}
	if tx.Currency != "USD" {
		t.Errorf("currency = %q, want normalized USD", tx.Currency)
	}

	rec := doRequest(t, s, http.MethodGet, "/api/transactions", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list: status %d", rec.Code)
	}
	resp := decodeBody[struct {
		Transactions []core.Transaction `json:"transactions"`
	}](t, rec)
	if len(resp.Transactions) != 1 || resp.Transactions[0].ID != tx.ID {
		t.Errorf("list = %+v", resp.Transactions)
	}
}

func TestListTransactionsSearch(t *testing.T) {
	s, _ := newTestServer(t)
	createTransaction(t, s, txBody)
	createTransaction(t, s, strings.Replace(txBody, "coffee", "rent", 1))

	rec := doRequest(t, s, http.MethodGet, "/api/transactions?q=coff", "")
	resp := decodeBody[struct {
		Transactions []core.Transaction `json:"transactions"`
	}](t, rec)
	if len(resp.Transactions) != 1 || resp.Transactions[0].Description != "coffee" {
		t.Errorf("search = %+v", resp.Transactions)
	}
}

func TestCreateTransactionKeepsTimeOfDay(t *testing.T) {
	s, _ := newTestServer(t)

	body := strings.Replace(txBody, "2025-07-01", "2025-07-01T10:30:00Z", 1)
	tx := createTransaction(t, s, body)

	want := time.Date(2025, 7, 1, 10, 30, 0, 0, time.UTC)
	if !tx.Date.Equal(want) {
		t.Errorf("date = %s, want %s", tx.Date, want)
	}

	// Daily buckets sort chronologically, so the timestamp must survive the
	// round trip, not collapse to midnight.
	earlier := strings.Replace(txBody, "2025-07-01", "2025-07-01T08:00:00Z", 1)
	createTransaction(t, s, earlier)

	rec := doRequest(t, s, http.MethodGet, "/api/history?granularity=daily&sort_by=date&order=asc", "")
	resp := decodeBody[struct {
		Buckets []core.Bucket `json:"buckets"`
	}](t, rec)
	if len(resp.Buckets) != 1 || len(resp.Buckets[0].Transactions) != 2 {
		t.Fatalf("buckets = %+v", resp.Buckets)
	}
	got := resp.Buckets[0].Transactions
	if !got[0].Date.Before(got[1].Date) {
		t.Errorf("in-bucket order = %s, %s; want chronological", got[0].Date, got[1].Date)
	}
}

func TestCreateTransactionValidation(t *testing.T) {
	s, _ := newTestServer(t)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"malformed json", `{"date":`, http.StatusBadRequest},
		{"unknown field", `{"when":"2025-07-01"}`, http.StatusBadRequest},
		{"zero amount", strings.Replace(txBody, `"3.50"`, `"0"`, 1), http.StatusUnprocessableEntity},
		{"negative amount", strings.Replace(txBody, `"3.50"`, `"-5"`, 1), http.StatusUnprocessableEntity},
		{"bad date", strings.Replace(txBody, "2025-07-01", "07/01/2025", 1), http.StatusUnprocessableEntity},
		{"bad type", strings.Replace(txBody, `"expense"`, `"spend"`, 1), http.StatusUnprocessableEntity},
		{"bad account", strings.Replace(txBody, `"Cash"`, `"Wallet"`, 1), http.StatusUnprocessableEntity},
		{"bad currency", strings.Replace(txBody, `"usd"`, `"u"`, 1), http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, s, http.MethodPost, "/api/transactions", tt.body)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestUpdateTransaction(t *testing.T) {
	s, _ := newTestServer(t)
	tx := createTransaction(t, s, txBody)

	updated := strings.Replace(txBody, "coffee", "espresso", 1)
	rec := doRequest(t, s, http.MethodPut, "/api/transactions/"+tx.ID, updated)
	if rec.Code != http.StatusOK {
		t.Fatalf("update: status %d, body %s", rec.Code, rec.Body.String())
	}
	got := decodeBody[core.Transaction](t, rec)
	if got.ID != tx.ID || got.Description != "espresso" {
		t.Errorf("updated = %+v", got)
	}

	if rec := doRequest(t, s, http.MethodPut, "/api/transactions/missing", updated); rec.Code != http.StatusNotFound {
		t.Errorf("update missing: status %d, want 404", rec.Code)
	}
}

func TestDeleteTransaction(t *testing.T) {
	s, _ := newTestServer(t)
	tx := createTransaction(t, s, txBody)

	if rec := doRequest(t, s, http.MethodDelete, "/api/transactions/"+tx.ID, ""); rec.Code != http.StatusNoContent {
		t.Fatalf("delete: status %d", rec.Code)
	}
	if rec := doRequest(t, s, http.MethodDelete, "/api/transactions/"+tx.ID, ""); rec.Code != http.StatusNotFound {
		t.Errorf("second delete: status %d, want 404", rec.Code)
	}
}

func TestBulkDeleteTransactions(t *testing.T) {
	s, _ := newTestServer(t)
	a := createTransaction(t, s, txBody)
	b := createTransaction(t, s, strings.Replace(txBody, "coffee", "rent", 1))

	body := fmt.Sprintf(`{"ids":[%q,%q,"missing"]}`, a.ID, b.ID)
	rec := doRequest(t, s, http.MethodPost, "/api/transactions/delete", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("bulk delete: status %d", rec.Code)
	}
	resp := decodeBody[map[string]int](t, rec)
	if resp["deleted"] != 2 {
		t.Errorf("deleted = %d, want 2", resp["deleted"])
	}
}

func TestCategoryEndpoints(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/api/categories", `{"name":" Food "}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create category: status %d", rec.Code)
	}
	if got := decodeBody[map[string]string](t, rec); got["name"] != "Food" {
		t.Errorf("name = %q, want trimmed Food", got["name"])
	}

	if rec := doRequest(t, s, http.MethodPost, "/api/categories", `{"name":"Food"}`); rec.Code != http.StatusConflict {
		t.Errorf("duplicate category: status %d, want 409", rec.Code)
	}
	if rec := doRequest(t, s, http.MethodPost, "/api/categories", `{"name":"  "}`); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("empty category: status %d, want 422", rec.Code)
	}

	createTransaction(t, s, txBody)
	if rec := doRequest(t, s, http.MethodPut, "/api/categories/Food", `{"name":"Groceries"}`); rec.Code != http.StatusOK {
		t.Fatalf("rename: status %d, body %s", rec.Code, rec.Body.String())
	}

	listRec := doRequest(t, s, http.MethodGet, "/api/transactions", "")
	listResp := decodeBody[struct {
		Transactions []core.Transaction `json:"transactions"`
	}](t, listRec)
	if listResp.Transactions[0].Category != "Groceries" {
		t.Errorf("rename did not cascade, category = %q", listResp.Transactions[0].Category)
	}

	if rec := doRequest(t, s, http.MethodDelete, "/api/categories/Groceries", ""); rec.Code != http.StatusNoContent {
		t.Errorf("delete category: status %d", rec.Code)
	}
	if rec := doRequest(t, s, http.MethodDelete, "/api/categories/Groceries", ""); rec.Code != http.StatusNotFound {
		t.Errorf("delete missing category: status %d, want 404", rec.Code)
	}
}

func TestRenameCategoryEchoesStoredName(t *testing.T) {
	s, _ := newTestServer(t)
	if rec := doRequest(t, s, http.MethodPost, "/api/categories", `{"name":"Food"}`); rec.Code != http.StatusCreated {
		t.Fatalf("create category: status %d", rec.Code)
	}

	// Control characters are stripped before storing; the response must
	// echo the stored form, not the raw input.
	rec := doRequest(t, s, http.MethodPut, "/api/categories/Food", `{"name":" Gro\u0007ceries "}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("rename: status %d, body %s", rec.Code, rec.Body.String())
	}
	if got := decodeBody[map[string]string](t, rec); got["name"] != "Groceries" {
		t.Errorf("echoed name = %q, want sanitized Groceries", got["name"])
	}

	listRec := doRequest(t, s, http.MethodGet, "/api/categories", "")
	listResp := decodeBody[struct {
		Categories []string `json:"categories"`
	}](t, listRec)
	if len(listResp.Categories) != 1 || listResp.Categories[0] != "Groceries" {
		t.Errorf("categories = %v", listResp.Categories)
	}
}

func TestHistoryEndpoint(t *testing.T) {
	s, _ := newTestServer(t)
	createTransaction(t, s, txBody)

	rec := doRequest(t, s, http.MethodGet, "/api/history?granularity=daily&sort_by=amount&order=asc", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("history: status %d, body %s", rec.Code, rec.Body.String())
	}
	resp := decodeBody[struct {
		Buckets []core.Bucket `json:"buckets"`
	}](t, rec)
	if len(resp.Buckets) != 1 || resp.Buckets[0].Key != "2025-07-01" {
		t.Errorf("buckets = %+v", resp.Buckets)
	}

	for _, path := range []string{
		"/api/history?granularity=weekly",
		"/api/history?sort_by=category",
		"/api/history?order=up",
	} {
		if rec := doRequest(t, s, http.MethodGet, path, ""); rec.Code != http.StatusBadRequest {
			t.Errorf("GET %s = %d, want 400", path, rec.Code)
		}
	}
}

func TestOverviewEndpoint(t *testing.T) {
	s, _ := newTestServer(t)
	createTransaction(t, s, txBody)
	createTransaction(t, s, strings.Replace(
		strings.Replace(txBody, `"expense"`, `"income"`, 1), `"3.50"`, `"10"`, 1))

	rec := doRequest(t, s, http.MethodGet, "/api/overview?year=2025&month=7", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("overview: status %d", rec.Code)
	}
	resp := decodeBody[map[string]string](t, rec)
	if resp["income"] != "10" || resp["expense"] != "3.5" {
		t.Errorf("overview = %v", resp)
	}

	if rec := doRequest(t, s, http.MethodGet, "/api/overview?month=13", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("bad month: status %d, want 400", rec.Code)
	}
}

func TestCalendarEndpoint(t *testing.T) {
	s, _ := newTestServer(t)
	createTransaction(t, s, txBody)

	rec := doRequest(t, s, http.MethodGet, "/api/calendar?year=2025&month=7", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("calendar: status %d", rec.Code)
	}
	resp := decodeBody[core.CalendarSummary](t, rec)
	if _, ok := resp.Days["2025-07-01"]; !ok {
		t.Errorf("days = %v, want entry for 2025-07-01", resp.Days)
	}
}

func TestBudgetEndpoints(t *testing.T) {
	s, _ := newTestServer(t)
	createTransaction(t, s, txBody)

	if rec := doRequest(t, s, http.MethodPut, "/api/budgets/Food", `{"goal":"100"}`); rec.Code != http.StatusOK {
		t.Fatalf("set budget: status %d, body %s", rec.Code, rec.Body.String())
	}
	if rec := doRequest(t, s, http.MethodPut, "/api/budgets/Food", `{"goal":"0"}`); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("zero goal: status %d, want 422", rec.Code)
	}

	rec := doRequest(t, s, http.MethodGet, "/api/budgets?year=2025&month=7", "")
	resp := decodeBody[struct {
		Budgets []core.BudgetStatus `json:"budgets"`
	}](t, rec)
	if len(resp.Budgets) != 1 || resp.Budgets[0].Category != "Food" {
		t.Fatalf("budgets = %+v", resp.Budgets)
	}
	if resp.Budgets[0].Progress != 0.035 {
		t.Errorf("progress = %v, want 0.035", resp.Budgets[0].Progress)
	}

	if rec := doRequest(t, s, http.MethodDelete, "/api/budgets/Food", ""); rec.Code != http.StatusNoContent {
		t.Errorf("delete budget: status %d", rec.Code)
	}
	if rec := doRequest(t, s, http.MethodDelete, "/api/budgets/Food", ""); rec.Code != http.StatusNotFound {
		t.Errorf("delete missing budget: status %d, want 404", rec.Code)
	}
}

func TestSummaryEndpointCaches(t *testing.T) {
	st := store.New(storage.NewMemoryStore())
	gen := &countingGenerator{}
	s := NewServer(Options{Addr: ":0", Store: st, SummaryGen: gen})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = s.Shutdown(ctx)
	})
	createTransaction(t, s, txBody)

	first := doRequest(t, s, http.MethodGet, "/api/summary?year=2025&month=7", "")
	if first.Code != http.StatusOK {
		t.Fatalf("summary: status %d", first.Code)
	}
	second := doRequest(t, s, http.MethodGet, "/api/summary?year=2025&month=7", "")
	if second.Code != http.StatusOK {
		t.Fatalf("summary: status %d", second.Code)
	}

	if got := atomic.LoadInt64(&gen.calls); got != 1 {
		t.Errorf("generator called %d times, want 1 (second hit cached)", got)
	}
	if first.Body.String() != second.Body.String() {
		t.Errorf("cached response differs: %s vs %s", first.Body.String(), second.Body.String())
	}
}

func TestExportEndpoint(t *testing.T) {
	s, _ := newTestServer(t)
	createTransaction(t, s, txBody)

	rec := doRequest(t, s, http.MethodGet, "/api/export?year=2025&month=7", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("export: status %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "transactions-2025-07.csv") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if !strings.Contains(rec.Body.String(), "coffee") {
		t.Errorf("csv body missing transaction: %s", rec.Body.String())
	}
}

func TestRateLimitOnMutations(t *testing.T) {
	s, _ := newTestServer(t)

	var limited bool
	for i := 0; i < 70; i++ {
		body := fmt.Sprintf(`{"name":"cat-%d"}`, i)
		rec := doRequest(t, s, http.MethodPost, "/api/categories", body)
		if rec.Code == http.StatusTooManyRequests {
			limited = true
			break
		}
	}
	if !limited {
		t.Error("mutations should be rate limited within 70 requests")
	}
}
