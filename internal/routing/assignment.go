package routing

import "time"

// Stats describes how a solve went.
type Stats struct {
	FirstSolutionStrategy FirstSolutionStrategy
	// Fallback is set when the requested construction dead-ended and the exhaustive
	// path construction produced the first solution instead.
	Fallback     bool
	Branches     int
	Failures     int
	Neighbours   int
	Moves        int
	Improvements int
	Penalties    int
	WallTime     time.Duration
}

// Assignment is a solved model: the successor of every routed index and the minimal feasible
// cumul of every dimension.
type Assignment struct {
	next      []int
	vehicle   []int
	lo, hi    [][]int64
	objective int64
	stats     Stats
}

func newAssignment(e *evaluation, stats Stats) *Assignment {
	a := &Assignment{
		next:      make([]int, len(e.vehicle)),
		vehicle:   append([]int(nil), e.vehicle...),
		lo:        e.lo,
		hi:        e.hi,
		objective: e.cost,
		stats:     stats,
	}
	for i := range a.next {
		a.next[i] = -1
	}
	for _, r := range e.routes {
		for k := 0; k+1 < len(r); k++ {
			a.next[r[k]] = r[k+1]
		}
	}
	return a
}

// Next returns the index visited after index, or -1 for a route end or an unrouted index.
func (a *Assignment) Next(index int) int {
	if index < 0 || index >= len(a.next) {
		return -1
	}
	return a.next[index]
}

// Vehicle returns the vehicle serving index, -1 when it is not routed.
func (a *Assignment) Vehicle(index int) int {
	if index < 0 || index >= len(a.vehicle) {
		return -1
	}
	return a.vehicle[index]
}

// Min returns the smallest feasible value of the cumul. Taken together, the minima form a
// feasible schedule.
func (a *Assignment) Min(c CumulVar) int64 {
	return a.lo[c.dim.id][c.index]
}

// Max returns the largest value the cumul can take with every other cumul still adjustable.
func (a *Assignment) Max(c CumulVar) int64 {
	return a.hi[c.dim.id][c.index]
}

// ObjectiveValue is the total arc cost of the routes.
func (a *Assignment) ObjectiveValue() int64 { return a.objective }

// Stats returns search statistics.
func (a *Assignment) Stats() Stats { return a.stats }
