package http

import (
	"log/slog"
	"net/http"

	"grana/internal/core"
)

type createProfileRequest struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
	PIN    string `json:"pin"`
}

func (s *Server) handleCreateProfile(w http.ResponseWriter, r *http.Request) {
	var req createProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p := &core.Profile{
		Name:   sanitizeInput(req.Name),
		Avatar: sanitizeInput(req.Avatar),
		PIN:    req.PIN,
	}
	if err := s.repo.CreateProfile(r.Context(), p); err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, p)
}

func (s *Server) handleListProfiles(w http.ResponseWriter, r *http.Request) {
	profiles, err := s.repo.ListProfiles(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if profiles == nil {
		profiles = []core.Profile{}
	}
	jsonResponse(w, http.StatusOK, profiles)
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	p, err := s.repo.GetProfile(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, p)
}

func (s *Server) handleDeleteProfile(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.repo.DeleteProfile(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateDashboard(id)
	jsonResponse(w, http.StatusNoContent, nil)
}

type verifyPINRequest struct {
	PIN string `json:"pin"`
}

func (s *Server) handleVerifyPIN(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req verifyPINRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ok, err := s.repo.VerifyPIN(r.Context(), id, req.PIN)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !ok {
		slog.WarnContext(r.Context(), "PIN verification failed", "profile_id", id)
		jsonError(w, http.StatusUnauthorized, "wrong pin")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]bool{"verified": true})
}
