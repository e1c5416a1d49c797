package http

import (
	"net/http"

	"grana/internal/core"
	"grana/internal/storage"
)

func (s *Server) registerTaxonomyRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /sources", s.withCommon(s.handleCreateRef(core.KindIncome)))
	mux.HandleFunc("GET /sources", s.withCommon(s.handleListRefs(core.KindIncome)))
	mux.HandleFunc("PUT /sources/{id}", s.withCommon(s.handleRenameRef(core.KindIncome)))
	mux.HandleFunc("DELETE /sources/{id}", s.withCommon(s.handleDeleteRef(core.KindIncome)))

	mux.HandleFunc("POST /categories", s.withCommon(s.handleCreateRef(core.KindExpense)))
	mux.HandleFunc("GET /categories", s.withCommon(s.handleListRefs(core.KindExpense)))
	mux.HandleFunc("PUT /categories/{id}", s.withCommon(s.handleRenameRef(core.KindExpense)))
	mux.HandleFunc("DELETE /categories/{id}", s.withCommon(s.handleDeleteRef(core.KindExpense)))
}

type taxonomyRequest struct {
	ProfileID int64  `json:"profile_id"`
	Name      string `json:"name"`
}

func (s *Server) handleCreateRef(kind core.TransactionKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req taxonomyRequest
		if err := decodeJSON(r, &req); err != nil {
			jsonError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		entry := &storage.TaxonomyEntry{
			ProfileID: req.ProfileID,
			Name:      sanitizeInput(req.Name),
		}
		if err := s.repo.CreateRef(r.Context(), kind, entry); err != nil {
			writeError(w, r, err)
			return
		}
		jsonResponse(w, http.StatusCreated, entry)
	}
}

func (s *Server) handleListRefs(kind core.TransactionKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		profileID, err := queryProfileID(r)
		if err != nil {
			jsonError(w, http.StatusBadRequest, err.Error())
			return
		}
		entries, err := s.repo.ListRefs(r.Context(), kind, profileID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if entries == nil {
			entries = []storage.TaxonomyEntry{}
		}
		jsonResponse(w, http.StatusOK, entries)
	}
}

func (s *Server) handleRenameRef(kind core.TransactionKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			jsonError(w, http.StatusBadRequest, err.Error())
			return
		}
		var req taxonomyRequest
		if err := decodeJSON(r, &req); err != nil {
			jsonError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := s.repo.RenameRef(r.Context(), kind, req.ProfileID, id, sanitizeInput(req.Name)); err != nil {
			writeError(w, r, err)
			return
		}
		entry, err := s.repo.GetRef(r.Context(), kind, req.ProfileID, id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		jsonResponse(w, http.StatusOK, entry)
	}
}

func (s *Server) handleDeleteRef(kind core.TransactionKind) http.HandlerFunc {
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
		if err := s.repo.DeleteRef(r.Context(), kind, profileID, id); err != nil {
			writeError(w, r, err)
			return
		}
		jsonResponse(w, http.StatusNoContent, nil)
	}
}
