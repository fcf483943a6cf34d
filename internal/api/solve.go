package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"pdptw/internal/events"
	"pdptw/internal/logging"
	"pdptw/internal/metrics"
	"pdptw/internal/model"
	"pdptw/internal/ortool"
	"pdptw/internal/store"
	"pdptw/internal/vrp"
)

// SolveHandler handles POST /solve and POST /v1/solve.
func (s *Server) SolveHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := s.optionalPrincipal(w, r)
	if !ok {
		return
	}
	if !s.limiter.Allow(p.Tenant) {
		metrics.RateLimited.Inc()
		w.Header().Set("Retry-After", "1")
		writeProblem(w, http.StatusTooManyRequests, "Too Many Requests", "solve rate limit exceeded", r.URL.Path)
		return
	}

	var req model.SolveRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		metrics.Solves.WithLabelValues(vrp.MethodLabel(""), metrics.OutcomeInvalid).Inc()
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		metrics.Solves.WithLabelValues(vrp.MethodLabel(req.Method), metrics.OutcomeInvalid).Inc()
		writeProblem(w, http.StatusBadRequest, "Invalid solve request", err.Error(), r.URL.Path)
		return
	}
	s.applyDefaults(r.Context(), p.Tenant, &req)

	out, err := s.svc.SolveDetailed(r.Context(), req)
	method := out.Method
	if method == "" {
		method = vrp.MethodLabel(req.Method)
	}
	if err != nil {
		status, title, outcome := solveErrorStatus(err)
		metrics.Solves.WithLabelValues(method, outcome).Inc()
		if status == http.StatusServiceUnavailable {
			w.Header().Set("Retry-After", "5")
		}
		writeProblem(w, status, title, err.Error(), r.URL.Path)
		return
	}

	outcome := metrics.OutcomeSolved
	if !out.Response.Success {
		outcome = metrics.OutcomeNoSolution
	}
	metrics.Solves.WithLabelValues(method, outcome).Inc()
	metrics.SolveDuration.WithLabelValues(method).Observe(out.Duration.Seconds())
	s.publishSolve(r.Context(), p.Tenant, out)

	writeJSON(w, http.StatusOK, out.Response)
}

func solveErrorStatus(err error) (status int, title, outcome string) {
	switch {
	case errors.Is(err, vrp.ErrInvalidProblem):
		return http.StatusBadRequest, "Invalid solve request", metrics.OutcomeInvalid
	case errors.Is(err, ortool.ErrCircuitOpen):
		return http.StatusServiceUnavailable, "Solver unavailable", metrics.OutcomeError
	case errors.Is(err, vrp.ErrSolverUnavailable):
		return http.StatusBadGateway, "Solver failed", metrics.OutcomeError
	default:
		return http.StatusInternalServerError, "Solve failed", metrics.OutcomeError
	}
}

// applyDefaults fills the tuning fields req leaves out from the tenant's saved defaults,
// falling back to the service defaults. A failing store never fails the solve.
func (s *Server) applyDefaults(ctx context.Context, tenant string, req *model.SolveRequest) {
	cfg, _ := s.effectiveConfig(ctx, tenant)
	if req.Method == "" {
		req.Method = cfg.Method
	}
	if req.Timeout == nil && cfg.Timeout > 0 {
		t := cfg.Timeout
		req.Timeout = &t
	}
	if req.EnableGuidedLocalSearch == nil {
		gls := cfg.EnableGuidedLocalSearch
		req.EnableGuidedLocalSearch = &gls
	}
}

// effectiveConfig returns the defaults applied to tenant's requests and where they came from.
func (s *Server) effectiveConfig(ctx context.Context, tenant string) (model.OptimizerConfig, string) {
	base := s.cfg.Optimizer
	saved, err := s.store.GetOptimizerConfig(ctx, tenant)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			logging.FromContext(ctx, s.log).Warn("optimizer config lookup failed", zap.String("tenant", tenant), zap.Error(err))
		}
		return base, "service"
	}
	if saved.Method == "" {
		saved.Method = base.Method
	}
	if saved.Timeout == 0 {
		saved.Timeout = base.Timeout
	}
	return saved, "tenant"
}

func (s *Server) publishSolve(ctx context.Context, tenant string, out vrp.Outcome) {
	evt := model.SolveEvent{
		Type:       events.TypeSolveCompleted,
		ID:         uuid.NewString(),
		TenantID:   tenant,
		Success:    out.Response.Success,
		Stops:      len(out.Response.Route),
		Objective:  out.Objective,
		DurationMs: out.Duration.Milliseconds(),
		Method:     out.Method,
		At:         time.Now().UTC(),
	}
	if err := s.broker.Publish(ctx, tenant, evt); err != nil {
		logging.FromContext(ctx, s.log).Warn("publish solve event failed", zap.Error(err))
	}
}
