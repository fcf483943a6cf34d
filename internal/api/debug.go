package api

import (
	"net/http"
	"time"

	"pdptw/internal/buildinfo"
)

func (s *Server) DebugJSON(w http.ResponseWriter, r *http.Request) {
	info := map[string]any{
		"build": buildinfo.Info(),
		"time":  time.Now().UTC().Format(time.RFC3339),
		"config": map[string]any{
			"PORT":                 s.cfg.Port,
			"APP_ENV":              s.cfg.Env,
			"SOLVER_BACKEND":       s.cfg.Solver.Backend,
			"AUTH_MODE":            s.auth.Mode,
			"RATE_RPS":             s.cfg.Rate.RPS,
			"RATE_BURST":           s.cfg.Rate.Burst,
			"MAX_SOLVE_TIMEOUT_MS": s.cfg.MaxSolveTimeoutMs,
			"HAS_DATABASE_URL":     s.cfg.DatabaseURL != "",
			"HAS_REDIS_URL":        s.cfg.RedisURL != "",
		},
	}
	writeJSON(w, http.StatusOK, info)
}
