package vrp

import (
	"time"

	"pdptw/internal/routing"
)

// Method names accepted in requests. global_cheapest_arch is the spelling existing clients
// send; the corrected spelling is accepted too.
const (
	MethodParallelCheapestInsertion = "parallel_cheapest_insertion"
	MethodPathCheapestArc           = "path_cheapest_arc"
	MethodGlobalCheapestArc         = "global_cheapest_arch"
	MethodAutomatic                 = "automatic"
)

// DefaultTimeout is the search budget of requests that do not set one.
const DefaultTimeout = 100 * time.Millisecond

// FirstSolutionStrategy maps a method name to a construction heuristic. Unknown names get the
// default, parallel cheapest insertion.
func FirstSolutionStrategy(method string) routing.FirstSolutionStrategy {
	switch method {
	case MethodPathCheapestArc:
		return routing.PathCheapestArc
	case MethodGlobalCheapestArc, "global_cheapest_arc":
		return routing.GlobalCheapestArc
	case MethodAutomatic:
		return routing.Automatic
	default:
		return routing.ParallelCheapestInsertion
	}
}

// SearchParameters derives the engine parameters from the tuning fields of p.
func SearchParameters(p *Problem, logSearch bool) routing.SearchParameters {
	params := routing.DefaultSearchParameters()
	params.FirstSolutionStrategy = FirstSolutionStrategy(p.Method())
	params.TimeLimit = p.Timeout()
	if p.GuidedLocalSearch() {
		params.LocalSearchMetaheuristic = routing.GuidedLocalSearch
	}
	params.LogSearch = logSearch
	return params
}

// MethodLabel is the canonical name of the strategy a method resolves to, for metrics and
// events.
func MethodLabel(method string) string {
	switch FirstSolutionStrategy(method) {
	case routing.PathCheapestArc:
		return MethodPathCheapestArc
	case routing.GlobalCheapestArc:
		return MethodGlobalCheapestArc
	case routing.Automatic:
		return MethodAutomatic
	default:
		return MethodParallelCheapestInsertion
	}
}
