package http

import (
	"net/http"

	"grana/internal/core"
	"grana/internal/period"
	"grana/internal/storage"
)

func (s *Server) registerTransactionRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /incomes", s.withCommon(s.handleCreateTransaction(core.KindIncome)))
	mux.HandleFunc("GET /incomes", s.withCommon(s.handleListTransactions(core.KindIncome)))
	mux.HandleFunc("DELETE /incomes/{id}", s.withCommon(s.handleDeleteTransaction(core.KindIncome)))

	mux.HandleFunc("POST /expenses", s.withCommon(s.handleCreateTransaction(core.KindExpense)))
	mux.HandleFunc("GET /expenses", s.withCommon(s.handleListTransactions(core.KindExpense)))
	mux.HandleFunc("DELETE /expenses/{id}", s.withCommon(s.handleDeleteTransaction(core.KindExpense)))
	mux.HandleFunc("GET /expenses/summary", s.withCommon(s.handleExpenseSummary))
}

type createTransactionRequest struct {
	ProfileID   int64  `json:"profile_id"`
	Amount      string `json:"amount"`
	AmountCents int64  `json:"amount_cents"`
	Date        string `json:"date"`
	SourceID    *int64 `json:"source_id"`
	CategoryID  *int64 `json:"category_id"`
	Observation string `json:"observation"`
	Tags        string `json:"tags"`
}

func (s *Server) handleCreateTransaction(kind core.TransactionKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createTransactionRequest
		if err := decodeJSON(r, &req); err != nil {
			jsonError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		cents := req.AmountCents
		if req.Amount != "" {
			parsed, err := core.ParseDecimalToCents(req.Amount)
			if err != nil {
				jsonError(w, http.StatusUnprocessableEntity, "invalid amount")
				return
			}
			cents = parsed
		}
		date, err := core.ParseDate(req.Date)
		if err != nil {
			jsonError(w, http.StatusUnprocessableEntity, "invalid date")
			return
		}

		refID := req.SourceID
		if kind == core.KindExpense {
			refID = req.CategoryID
		}
		t := &core.Transaction{
			ProfileID:   req.ProfileID,
			Kind:        kind,
			Amount:      core.Money{Cents: cents},
			Date:        date,
			RefID:       refID,
			Observation: sanitizeInput(req.Observation),
			Tags:        sanitizeInput(req.Tags),
		}
		if err := t.Validate(); err != nil {
			writeError(w, r, err)
			return
		}

		if err := s.transactions.Record(r.Context(), t); err != nil {
			writeError(w, r, err)
			return
		}
		s.invalidateDashboard(t.ProfileID)
		jsonResponse(w, http.StatusCreated, t)
	}
}

func (s *Server) handleListTransactions(kind core.TransactionKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		profileID, err := queryProfileID(r)
		if err != nil {
			jsonError(w, http.StatusBadRequest, err.Error())
			return
		}
		from, err := queryDate(r, "date_from")
		if err != nil {
			jsonError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		to, err := queryDate(r, "date_to")
		if err != nil {
			jsonError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}

		// month+year is a shorthand for a full-calendar-month window.
		if month, year := queryInt(r, "month", 0), queryInt(r, "year", 0); month >= 1 && month <= 12 && year > 0 {
			rng := period.FullMonth(year, month)
			from, to = rng.From, rng.To
		}

		filter := storage.TransactionFilter{
			ProfileID: profileID,
			Kind:      kind,
			From:      from,
			To:        to,
			Search:    sanitizeInput(r.URL.Query().Get("search")),
			Sort:      r.URL.Query().Get("order"),
			Page:      queryInt(r, "page", 1),
			Limit:     queryInt(r, "limit", 0),
		}
		if refID := int64(queryInt(r, refParam(kind), 0)); refID > 0 {
			filter.RefID = &refID
		}

		page, err := s.repo.ListPage(r.Context(), filter)
		if err != nil {
			writeError(w, r, err)
			return
		}
		jsonResponse(w, http.StatusOK, page)
	}
}

func refParam(kind core.TransactionKind) string {
	if kind == core.KindExpense {
		return "category_id"
	}
	return "source_id"
}

func (s *Server) handleDeleteTransaction(kind core.TransactionKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		profileID, err := queryProfileID(r)
		if err != nil {
			jsonError(w, http.StatusBadRequest, err.Error())
			return
		}
		id, err := pathID(r)
		if err != nil {
			jsonError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := s.transactions.Delete(r.Context(), profileID, kind, id); err != nil {
			writeError(w, r, err)
			return
		}
		s.invalidateDashboard(profileID)
		jsonResponse(w, http.StatusNoContent, nil)
	}
}

func (s *Server) handleExpenseSummary(w http.ResponseWriter, r *http.Request) {
	profileID, err := queryProfileID(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	from, err := queryDate(r, "date_from")
	if err != nil {
		jsonError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	to, err := queryDate(r, "date_to")
	if err != nil {
		jsonError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	payload, err := s.engine.ExpenseSummaryByMonth(r.Context(), profileID, from, to)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, payload)
}
