package routing

import "time"

// FirstSolutionStrategy selects the construction heuristic for the initial route.
type FirstSolutionStrategy int

const (
	// FirstSolutionUnset lets the engine choose, like Automatic.
	FirstSolutionUnset FirstSolutionStrategy = iota
	// Automatic uses ParallelCheapestInsertion for models with pickups and deliveries and
	// PathCheapestArc otherwise.
	Automatic
	// PathCheapestArc extends the route from its last stop along the cheapest feasible arc.
	PathCheapestArc
	// GlobalCheapestArc repeatedly links the two route fragments joined by the cheapest arc.
	GlobalCheapestArc
	// ParallelCheapestInsertion inserts whole pickup-and-delivery units where they cost least.
	ParallelCheapestInsertion
)

func (s FirstSolutionStrategy) String() string {
	switch s {
	case Automatic:
		return "AUTOMATIC"
	case PathCheapestArc:
		return "PATH_CHEAPEST_ARC"
	case GlobalCheapestArc:
		return "GLOBAL_CHEAPEST_ARC"
	case ParallelCheapestInsertion:
		return "PARALLEL_CHEAPEST_INSERTION"
	default:
		return "UNSET"
	}
}

// LocalSearchMetaheuristic selects what happens after the first solution is found.
type LocalSearchMetaheuristic int

const (
	// MetaheuristicUnset returns the first solution without improvement.
	MetaheuristicUnset LocalSearchMetaheuristic = iota
	// GreedyDescent applies improving moves until a local optimum is reached.
	GreedyDescent
	// GuidedLocalSearch escapes local optima by penalising frequently used costly arcs and
	// keeps searching until the time limit.
	GuidedLocalSearch
)

func (h LocalSearchMetaheuristic) String() string {
	switch h {
	case GreedyDescent:
		return "GREEDY_DESCENT"
	case GuidedLocalSearch:
		return "GUIDED_LOCAL_SEARCH"
	default:
		return "UNSET"
	}
}

// SearchParameters configures one call to SolveWithParameters.
type SearchParameters struct {
	FirstSolutionStrategy    FirstSolutionStrategy
	LocalSearchMetaheuristic LocalSearchMetaheuristic
	// TimeLimit bounds the whole search. Zero means no limit besides the context.
	TimeLimit time.Duration
	// GuidedLocalSearchLambdaCoefficient scales arc penalties relative to the average arc cost.
	GuidedLocalSearchLambdaCoefficient float64
	// LogSearch emits debug logs while searching.
	LogSearch bool
}

// DefaultSearchParameters returns the engine defaults.
func DefaultSearchParameters() SearchParameters {
	return SearchParameters{
		FirstSolutionStrategy:              Automatic,
		LocalSearchMetaheuristic:           MetaheuristicUnset,
		GuidedLocalSearchLambdaCoefficient: 0.1,
	}
}
