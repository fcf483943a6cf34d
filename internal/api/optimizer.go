package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"pdptw/internal/model"
	"pdptw/internal/store"
)

// OptimizerConfigHandler returns the defaults applied to the caller's solve requests.
func (s *Server) OptimizerConfigHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := s.optionalPrincipal(w, r)
	if !ok {
		return
	}
	cfg, source := s.effectiveConfig(r.Context(), p.Tenant)
	writeJSON(w, http.StatusOK, map[string]any{"defaults": cfg, "source": source})
}

// AdminOptimizerConfigHandler reads (GET) or replaces (PUT) the tenant's saved defaults.
func (s *Server) AdminOptimizerConfigHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := s.requireAdmin(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		cfg, err := s.store.GetOptimizerConfig(r.Context(), p.Tenant)
		if errors.Is(err, store.ErrNotFound) {
			writeProblem(w, http.StatusNotFound, "Not Found", "tenant has no saved optimizer config", r.URL.Path)
			return
		}
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "Load optimizer config failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, cfg)
	case http.MethodPut:
		var in model.OptimizerConfig
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		if err := s.validate.Struct(in); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid optimizer config", err.Error(), r.URL.Path)
			return
		}
		if limit := s.cfg.MaxSolveTimeoutMs; limit > 0 && in.Timeout > limit {
			writeProblem(w, http.StatusBadRequest, "Invalid optimizer config", "timeout exceeds the solve timeout limit", r.URL.Path)
			return
		}
		saved, err := s.store.SaveOptimizerConfig(r.Context(), p.Tenant, in)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "Save optimizer config failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, saved)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}
