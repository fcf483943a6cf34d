// Package api implements the HTTP surface of the solve service.
package api

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"pdptw/internal/auth"
	"pdptw/internal/config"
	"pdptw/internal/events"
	"pdptw/internal/metrics"
	"pdptw/internal/store"
	"pdptw/internal/vrp"
)

// maxBodyBytes bounds solve and config request bodies.
const maxBodyBytes = 8 << 20

// Deps are the collaborators of a Server.
type Deps struct {
	Config  config.Config
	Service *vrp.Service
	Store   store.Store
	Broker  events.Broker
	Auth    *auth.Verifier
	Log     *zap.Logger
}

type Server struct {
	cfg      config.Config
	svc      *vrp.Service
	store    store.Store
	broker   events.Broker
	auth     *auth.Verifier
	log      *zap.Logger
	validate *validator.Validate
	limiter  *tenantLimiter
}

// NewServer wires a Server. A nil Store, Broker or Auth is replaced by its in-memory or dev
// counterpart.
func NewServer(d Deps) (*Server, error) {
	s := &Server{
		cfg:      d.Config,
		svc:      d.Service,
		store:    d.Store,
		broker:   d.Broker,
		auth:     d.Auth,
		log:      d.Log,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		limiter:  newTenantLimiter(d.Config.Rate.RPS, d.Config.Rate.Burst),
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.svc == nil {
		s.svc = vrp.NewService(vrp.NewEngine(s.log, d.Config.LogSearch), vrp.WithLogger(s.log))
	}
	if s.store == nil {
		s.store = store.NewMemory()
	}
	if s.broker == nil {
		s.broker = events.NewMemory()
	}
	if s.auth == nil {
		v, err := auth.NewVerifier(d.Config.Auth.Mode, d.Config.Auth.HMACSecret)
		if err != nil {
			return nil, err
		}
		s.auth = v
	}
	metrics.RegisterDefault()
	return s, nil
}

// Handler returns the routed and instrumented handler tree.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Solve
	mux.HandleFunc("POST /solve", s.SolveHandler)
	mux.HandleFunc("POST /v1/solve", s.SolveHandler)
	mux.HandleFunc("GET /v1/solve/events", s.SolveEventsHandler)

	// Optimizer defaults
	mux.HandleFunc("GET /v1/optimizer/config", s.OptimizerConfigHandler)
	mux.HandleFunc("GET /v1/admin/optimizer/config", s.AdminOptimizerConfigHandler)
	mux.HandleFunc("PUT /v1/admin/optimizer/config", s.AdminOptimizerConfigHandler)

	// Health and introspection
	mux.HandleFunc("GET /healthz", s.HealthHandler)
	mux.HandleFunc("GET /readyz", s.ReadyHandler)
	mux.HandleFunc("GET /debug/info", s.DebugJSON)
	mux.Handle("GET /metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	return s.instrument(mux)
}
