package vrp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"pdptw/internal/logging"
	"pdptw/internal/model"
	"pdptw/internal/routing"
)

// Result is what a Solver found. Stops is empty when Success is false.
type Result struct {
	Success   bool
	Stops     []model.Stop
	Objective int64
}

// Solver runs one validated problem. An infeasible problem is a successful call with
// Success false; errors are reserved for a solver that could not run.
type Solver interface {
	Solve(ctx context.Context, p *Problem) (Result, error)
}

// Engine solves problems with the in-process routing engine.
type Engine struct {
	log       *zap.Logger
	logSearch bool
}

// NewEngine returns an Engine. With logSearch set the engine logs its progress at debug level.
func NewEngine(log *zap.Logger, logSearch bool) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{log: log, logSearch: logSearch}
}

// Solve builds the model of p, searches within p's time budget and decodes the route.
func (e *Engine) Solve(ctx context.Context, p *Problem) (Result, error) {
	mgr, err := NewIndexManager(p)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrSolverUnavailable, err)
	}
	log := logging.FromContext(ctx, e.log).Named("routing")
	m, err := BuildModel(p, mgr, routing.WithLogger(log))
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrSolverUnavailable, err)
	}
	a, err := m.SolveWithParameters(ctx, SearchParameters(p, e.logSearch))
	if errors.Is(err, routing.ErrNoSolution) {
		return Result{Stops: []model.Stop{}}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrSolverUnavailable, err)
	}
	stops, err := Decode(mgr, m, a)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrSolverUnavailable, err)
	}
	return Result{Success: true, Stops: stops, Objective: a.ObjectiveValue()}, nil
}

// Outcome describes one finished Solve for callers that record metrics or publish events.
type Outcome struct {
	Response  model.SolveResponse
	Method    string
	Objective int64
	Duration  time.Duration
}

// Service validates requests and hands them to a Solver.
type Service struct {
	solver     Solver
	log        *zap.Logger
	maxTimeout time.Duration
}

// ServiceOption customises a Service.
type ServiceOption func(*Service)

// WithLogger sets the service logger.
func WithLogger(l *zap.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithMaxTimeout rejects requests asking for a longer search budget than limit. Zero disables
// the check.
func WithMaxTimeout(limit time.Duration) ServiceOption {
	return func(s *Service) { s.maxTimeout = limit }
}

// NewService returns a Service backed by solver.
func NewService(solver Solver, opts ...ServiceOption) *Service {
	s := &Service{solver: solver, log: zap.NewNop()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Solve answers req. Malformed requests fail with a *ValidationError before the solver runs;
// a problem without a route is a response with Success false.
func (s *Service) Solve(ctx context.Context, req model.SolveRequest) (model.SolveResponse, error) {
	out, err := s.SolveDetailed(ctx, req)
	if err != nil {
		return model.SolveResponse{Route: []model.Stop{}}, err
	}
	return out.Response, nil
}

// SolveDetailed is Solve with the resolved method, the route cost and the elapsed time.
func (s *Service) SolveDetailed(ctx context.Context, req model.SolveRequest) (Outcome, error) {
	p, err := NewProblem(req)
	if err != nil {
		return Outcome{}, err
	}
	if s.maxTimeout > 0 && p.Timeout() > s.maxTimeout {
		return Outcome{}, invalid("timeout", "%d ms exceeds the limit of %d ms", p.Timeout().Milliseconds(), s.maxTimeout.Milliseconds())
	}

	log := logging.FromContext(ctx, s.log)
	began := time.Now()
	res, err := s.run(ctx, p)
	out := Outcome{
		Method:   MethodLabel(p.Method()),
		Duration: time.Since(began),
	}
	if err != nil {
		log.Error("solve failed",
			zap.Error(err),
			zap.Int("nodes", p.NumNodes()),
			zap.String("method", out.Method))
		return out, err
	}
	out.Objective = res.Objective
	out.Response = model.SolveResponse{Success: res.Success, Route: res.Stops}
	if out.Response.Route == nil || !res.Success {
		out.Response.Route = []model.Stop{}
	}
	log.Info("solve finished",
		zap.Bool("success", res.Success),
		zap.Int("nodes", p.NumNodes()),
		zap.Int("stops", len(out.Response.Route)),
		zap.Int64("objective", res.Objective),
		zap.String("method", out.Method),
		zap.Bool("guided_local_search", p.GuidedLocalSearch()),
		zap.Duration("timeout", p.Timeout()),
		zap.Duration("elapsed", out.Duration))
	return out, nil
}

// run calls the solver and turns a panic inside it into ErrSolverUnavailable.
func (s *Service) run(ctx context.Context, p *Problem) (res Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: solver panic: %v", ErrSolverUnavailable, r)
		}
	}()
	return s.solver.Solve(ctx, p)
}
