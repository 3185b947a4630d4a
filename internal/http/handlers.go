package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"financeflow/internal/core"
	"financeflow/internal/export"
	"financeflow/internal/summary"
)

// transactionRequest is the write shape for create and update. Amount is a
// decimal string so clients never send binary floats.
type transactionRequest struct {
	Date        string   `json:"date"`
	Description string   `json:"description"`
	Amount      string   `json:"amount"`
	Type        string   `json:"type"`
	Category    string   `json:"category"`
	Account     string   `json:"account"`
	Currency    string   `json:"currency"`
	ImageURLs   []string `json:"imageUrls,omitempty"`
}

func (req transactionRequest) toDomain() (core.Transaction, error) {
	date, err := parseDate(req.Date)
	if err != nil {
		return core.Transaction{}, err
	}
	amount, err := core.ParseAmount(req.Amount)
	if err != nil {
		return core.Transaction{}, err
	}
	return core.Transaction{
		Date:        date,
		Description: sanitizeInput(req.Description),
		Amount:      amount,
		Type:        core.TransactionType(req.Type),
		Category:    sanitizeInput(req.Category),
		Account:     core.Account(req.Account),
		Currency:    strings.ToUpper(strings.TrimSpace(req.Currency)),
		ImageURLs:   req.ImageURLs,
	}, nil
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	txns := s.store.Search(r.URL.Query().Get("q"))
	writeJSON(w, http.StatusOK, map[string]any{"transactions": txns})
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	data, err := req.toDomain()
	if err != nil {
		writeDomainError(w, err)
		return
	}

	tx, err := s.store.AddTransaction(r.Context(), data)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	s.logs.LogTransactionCreated(r.Context(), tx.ID, tx.Description,
		tx.Amount.String(), tx.Currency, tx.Category)

	// Export is fire-and-forget; a queue outage must not fail the write.
	if s.publisher != nil {
		if err := s.publisher.PublishExport(r.Context(), tx.ID); err != nil {
			slog.ErrorContext(r.Context(), "Export publish failed",
				"error", err, "transaction_id", tx.ID)
		}
	}

	writeJSON(w, http.StatusCreated, tx)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req transactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	data, err := req.toDomain()
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if err := s.store.EditTransaction(r.Context(), id, data); err != nil {
		writeDomainError(w, err)
		return
	}
	data.ID = id
	writeJSON(w, http.StatusOK, data)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteTransaction(r.Context(), r.PathValue("id")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBulkDeleteTransactions(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs []string `json:"ids"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	deleted := s.store.DeleteTransactions(r.Context(), req.IDs)
	writeJSON(w, http.StatusOK, map[string]int{"deleted": deleted})
}

func (s *Server) handleListCategories(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"categories": s.store.Categories()})
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	name, err := s.store.AddCategory(r.Context(), sanitizeInput(req.Name))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"name": name})
}

func (s *Server) handleRenameCategory(w http.ResponseWriter, r *http.Request) {
	oldName := r.PathValue("name")

	var req struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	newName := sanitizeInput(req.Name)
	if err := s.store.RenameCategory(r.Context(), oldName, newName); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"name": newName})
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteCategory(r.Context(), r.PathValue("name")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	granularity := core.Monthly
	if v := q.Get("granularity"); v != "" {
		granularity = core.Granularity(v)
	}
	if err := granularity.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sortBy := core.SortByDate
	if v := q.Get("sort_by"); v != "" {
		sortBy = core.SortBy(v)
	}
	if err := sortBy.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	order := core.Descending
	if v := q.Get("order"); v != "" {
		order = core.SortOrder(v)
	}
	if err := order.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	txns := s.store.Search(q.Get("q"))
	buckets := core.GroupByPeriod(txns, granularity, sortBy, order)
	writeJSON(w, http.StatusOK, map[string]any{"buckets": buckets})
}

// handleOverview returns the header totals. Without year/month parameters
// it covers the whole history; with them, one month.
func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	txns := s.store.Transactions()
	if r.URL.Query().Has("year") || r.URL.Query().Has("month") {
		year, month, err := parseYearMonth(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		txns = core.FilterMonth(txns, year, month)
	}
	writeJSON(w, http.StatusOK, core.Totals(txns))
}

func (s *Server) handleBreakdown(w http.ResponseWriter, r *http.Request) {
	txns := s.store.Transactions()
	if r.URL.Query().Has("year") || r.URL.Query().Has("month") {
		year, month, err := parseYearMonth(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		txns = core.FilterMonth(txns, year, month)
	}
	writeJSON(w, http.StatusOK, core.CategoryBreakdown(txns))
}

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	year, month, err := parseYearMonth(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, core.CalendarMonth(s.store.Transactions(), year, month))
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	year, month, err := parseYearMonth(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ref := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	statuses := core.BudgetRollup(s.store.Transactions(), s.store.BudgetGoals(), ref)
	writeJSON(w, http.StatusOK, map[string]any{"budgets": statuses})
}

func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request) {
	category := r.PathValue("category")

	var req struct {
		Goal string `json:"goal"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	goal, err := core.ParseAmount(req.Goal)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if err := s.store.SetBudgetGoal(r.Context(), category, goal); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"category": category, "goal": goal})
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteBudgetGoal(r.Context(), r.PathValue("category")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if s.summaryGen == nil {
		writeError(w, http.StatusNotImplemented, "summary backend not configured")
		return
	}

	year, month, err := parseYearMonth(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	key := fmt.Sprintf("%04d-%02d", year, int(month))
	if text, ok := s.summaryCache.Get(key); ok {
		slog.DebugContext(r.Context(), "Summary cache hit", "key", key)
		writeJSON(w, http.StatusOK, map[string]string{"summary": text, "month": key})
		return
	}

	monthTxns := core.FilterMonth(s.store.Transactions(), year, month)
	ref := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	in := summary.Input{
		Year:      year,
		Month:     month,
		Overview:  core.Totals(monthTxns),
		Breakdown: core.CategoryBreakdown(monthTxns),
		Budgets:   core.BudgetRollup(s.store.Transactions(), s.store.BudgetGoals(), ref),
	}

	text, err := s.summaryGen.Generate(r.Context(), in)
	if err != nil {
		slog.ErrorContext(r.Context(), "Summary generation failed", "error", err, "month", key)
		writeError(w, http.StatusBadGateway, "summary generation failed")
		return
	}

	s.summaryCache.Set(key, text)
	writeJSON(w, http.StatusOK, map[string]string{"summary": text, "month": key})
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	txns := s.store.Transactions()
	filename := "transactions.csv"
	if r.URL.Query().Has("year") || r.URL.Query().Has("month") {
		year, month, err := parseYearMonth(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		txns = core.FilterMonth(txns, year, month)
		filename = fmt.Sprintf("transactions-%04d-%02d.csv", year, int(month))
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if err := export.WriteCSV(w, txns); err != nil {
		slog.ErrorContext(r.Context(), "CSV export failed", "error", err)
	}
}
