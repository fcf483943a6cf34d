package routing

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// SolveWithParameters searches for the cheapest assignment it can find within the time limit.
// The model is frozen afterwards. ErrNoSolution is returned when no feasible assignment was
// found, including when the time limit or the context ended the search first.
func (m *Model) SolveWithParameters(ctx context.Context, params SearchParameters) (*Assignment, error) {
	if m.solved {
		return nil, ErrModelSolved
	}
	m.solved = true
	if ctx == nil {
		ctx = context.Background()
	}

	began := time.Now()
	s := newSearch(ctx, m, params.TimeLimit)
	if !params.LogSearch {
		s.quiet = true
	}
	s.debug("search started",
		zap.Int("indices", m.manager.NumIndices()),
		zap.Int("pairs", len(m.pairs)),
		zap.Stringer("first_solution", params.FirstSolutionStrategy),
		zap.Stringer("metaheuristic", params.LocalSearchMetaheuristic),
		zap.Duration("time_limit", params.TimeLimit))

	first, ok := s.firstSolution(params.FirstSolutionStrategy)
	if !ok {
		s.stats.WallTime = time.Since(began)
		s.debug("no first solution",
			zap.Bool("expired", s.expired),
			zap.Int("branches", s.stats.Branches),
			zap.Int("failures", s.stats.Failures))
		return nil, ErrNoSolution
	}
	s.debug("first solution",
		zap.Stringer("strategy", s.stats.FirstSolutionStrategy),
		zap.Bool("fallback", s.stats.Fallback),
		zap.Int64("cost", first.cost))

	best := s.improve(first, params)
	s.stats.WallTime = time.Since(began)
	s.debug("search finished",
		zap.Int64("cost", best.cost),
		zap.Int("moves", s.stats.Moves),
		zap.Int("penalties", s.stats.Penalties),
		zap.Duration("wall_time", s.stats.WallTime))
	return newAssignment(best, s.stats), nil
}

func (s *search) debug(msg string, fields ...zap.Field) {
	if s.quiet {
		return
	}
	s.m.log.Debug(msg, fields...)
}

func (s *search) logProgress(best *evaluation) {
	s.debug("improved", zap.Int64("cost", best.cost), zap.Int("moves", s.stats.Moves))
}
