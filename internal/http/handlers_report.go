package http

import (
	"context"
	"net/http"
	"time"

	"grana/internal/storage"
)

// reportTimeout bounds the heavier aggregation endpoints.
const reportTimeout = 7 * time.Second

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	profileID, err := queryProfileID(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	if payload, ok := s.dashboards.Get(dashboardKey(profileID)); ok {
		jsonResponse(w, http.StatusOK, payload)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), reportTimeout)
	defer cancel()

	payload, err := s.engine.DashboardSummary(ctx, profileID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.dashboards.Set(dashboardKey(profileID), payload)
	jsonResponse(w, http.StatusOK, payload)
}

func (s *Server) handleMonthlyReport(w http.ResponseWriter, r *http.Request) {
	profileID, err := queryProfileID(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	now := time.Now()
	month := queryInt(r, "month", int(now.Month()))
	year := queryInt(r, "year", now.Year())

	ctx, cancel := context.WithTimeout(r.Context(), reportTimeout)
	defer cancel()

	payload, err := s.engine.MonthlyReport(ctx, profileID, month, year)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, payload)
}

func (s *Server) handleAnnualReport(w http.ResponseWriter, r *http.Request) {
	profileID, err := queryProfileID(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	year := queryInt(r, "year", time.Now().Year())

	ctx, cancel := context.WithTimeout(r.Context(), reportTimeout)
	defer cancel()

	payload, err := s.engine.AnnualReport(ctx, profileID, year)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, payload)
}

func (s *Server) handleListActivity(w http.ResponseWriter, r *http.Request) {
	profileID, err := queryProfileID(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	entries, err := s.repo.ListActivity(r.Context(), profileID, queryInt(r, "limit", 50))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if entries == nil {
		entries = []storage.ActivityEntry{}
	}
	jsonResponse(w, http.StatusOK, entries)
}
