package http

import (
	"net/http"

	"grana/internal/core"
)

func (s *Server) registerGoalRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /goals", s.withCommon(s.handleCreateGoal))
	mux.HandleFunc("GET /goals", s.withCommon(s.handleListGoals))
	mux.HandleFunc("PUT /goals/{id}", s.withCommon(s.handleUpdateGoal))
	mux.HandleFunc("POST /goals/{id}/deposit", s.withCommon(s.handleGoalDeposit))
	mux.HandleFunc("DELETE /goals/{id}", s.withCommon(s.handleDeleteGoal))
}

type goalRequest struct {
	ProfileID   int64  `json:"profile_id"`
	Title       string `json:"title"`
	TargetCents int64  `json:"target_cents"`
	Deadline    string `json:"deadline"`
	Icon        string `json:"icon"`
	Color       string `json:"color"`
	Status      string `json:"status"`
}

func (req goalRequest) toGoal() (*core.Goal, error) {
	g := &core.Goal{
		ProfileID:    req.ProfileID,
		Title:        sanitizeInput(req.Title),
		TargetAmount: core.Money{Cents: req.TargetCents},
		Icon:         sanitizeInput(req.Icon),
		Color:        sanitizeInput(req.Color),
		Status:       core.GoalStatus(req.Status),
	}
	if req.Deadline != "" {
		d, err := core.ParseDate(req.Deadline)
		if err != nil {
			return nil, core.ErrInvalidDate
		}
		g.Deadline = d
	}
	return g, nil
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	var req goalRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	g, err := req.toGoal()
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.repo.CreateGoal(r.Context(), g); err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateDashboard(g.ProfileID)
	jsonResponse(w, http.StatusCreated, g)
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	profileID, err := queryProfileID(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	status := core.GoalStatus(r.URL.Query().Get("status"))
	if status != "" {
		if err := status.Validate(); err != nil {
			writeError(w, r, err)
			return
		}
	}

	goals, err := s.repo.ListGoals(r.Context(), profileID, status, queryInt(r, "limit", 0))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if goals == nil {
		goals = []core.Goal{}
	}
	jsonResponse(w, http.StatusOK, goals)
}

func (s *Server) handleUpdateGoal(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req goalRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	g, err := req.toGoal()
	if err != nil {
		writeError(w, r, err)
		return
	}
	g.ID = id
	if g.Status == "" {
		current, err := s.repo.GetGoal(r.Context(), g.ProfileID, id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		g.Status = current.Status
	}
	if err := s.repo.UpdateGoal(r.Context(), g); err != nil {
		writeError(w, r, err)
		return
	}
	updated, err := s.repo.GetGoal(r.Context(), g.ProfileID, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateDashboard(g.ProfileID)
	jsonResponse(w, http.StatusOK, updated)
}

type depositRequest struct {
	ProfileID   int64  `json:"profile_id"`
	AmountCents int64  `json:"amount_cents"`
	Amount      string `json:"amount"`
	Withdraw    bool   `json:"withdraw"`
}

func (s *Server) handleGoalDeposit(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req depositRequest
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
	if cents <= 0 {
		writeError(w, r, core.ErrInvalidAmount)
		return
	}
	if req.Withdraw {
		cents = -cents
	}

	g, err := s.repo.Deposit(r.Context(), req.ProfileID, id, cents)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateDashboard(req.ProfileID)
	jsonResponse(w, http.StatusOK, g)
}

func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request) {
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
	if err := s.repo.DeleteGoal(r.Context(), profileID, id); err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateDashboard(profileID)
	jsonResponse(w, http.StatusNoContent, nil)
}
