package routing

import (
	"context"
	"sort"
	"time"
)

// search carries the state shared by every phase of one solve.
type search struct {
	m        *Model
	ctx      context.Context
	deadline time.Time
	stats    Stats
	steps    int
	expired  bool
	quiet    bool
	visits   []int
	lo, hi   []int64
}

func newSearch(ctx context.Context, m *Model, limit time.Duration) *search {
	s := &search{
		m:      m,
		ctx:    ctx,
		visits: m.visits(),
		lo:     make([]int64, m.manager.NumIndices()+1),
		hi:     make([]int64, m.manager.NumIndices()+1),
	}
	if limit > 0 {
		s.deadline = time.Now().Add(limit)
	}
	return s
}

// stopped reports whether the time limit passed or the context ended. The clock is read every
// few calls only.
func (s *search) stopped() bool {
	if s.expired {
		return true
	}
	s.steps++
	if s.steps%32 != 1 {
		return false
	}
	if s.ctx.Err() != nil || (!s.deadline.IsZero() && time.Now().After(s.deadline)) {
		s.expired = true
	}
	return s.expired
}

// failBudget bounds backtracking inside the heuristic strategies before the exhaustive path
// construction takes over.
func (s *search) failBudget() int {
	n := s.m.manager.NumIndices()
	return 50 * n * n
}

// firstSolution builds an initial complete assignment with the requested strategy.
func (s *search) firstSolution(strategy FirstSolutionStrategy) (*evaluation, bool) {
	if strategy == FirstSolutionUnset || strategy == Automatic {
		if len(s.m.pairs) > 0 {
			strategy = ParallelCheapestInsertion
		} else {
			strategy = PathCheapestArc
		}
	}
	s.stats.FirstSolutionStrategy = strategy

	var (
		e  *evaluation
		ok bool
	)
	switch strategy {
	case GlobalCheapestArc:
		e, ok = s.globalCheapestArc(s.failBudget())
	case ParallelCheapestInsertion:
		e, ok = s.parallelCheapestInsertion(s.failBudget())
	default:
		return s.pathCheapestArc(-1)
	}
	if ok || s.expired {
		return e, ok
	}
	s.stats.Fallback = true
	return s.pathCheapestArc(-1)
}

// pathState is the partial solution explored by pathCheapestArc.
type pathState struct {
	routes [][]int
	v      int
	routed []bool
	left   int
	fails  int
	budget int
	result *evaluation
}

// pathCheapestArc grows routes one vehicle at a time from their start, trying the cheapest
// arcs first and backtracking on dead ends. With a negative budget it is exhaustive.
func (s *search) pathCheapestArc(budget int) (*evaluation, bool) {
	st := &pathState{
		routes: [][]int{{s.m.Start(0)}},
		routed: make([]bool, s.m.manager.NumIndices()),
		left:   len(s.visits),
		budget: budget,
	}
	if s.extendPath(st) {
		return st.result, true
	}
	return nil, false
}

type arcCandidate struct {
	idx  int
	cost int64
}

func (s *search) extendPath(st *pathState) bool {
	if s.stopped() {
		return false
	}
	s.stats.Branches++
	route := st.routes[st.v]
	last := route[len(route)-1]

	cands := make([]arcCandidate, 0, st.left)
	for _, idx := range s.visits {
		if st.routed[idx] {
			continue
		}
		if pi, ok := s.m.pairOf[idx]; ok && s.m.pairs[pi].Delivery == idx && !containsIndex(route, s.m.pairs[pi].Pickup) {
			continue
		}
		cands = append(cands, arcCandidate{idx: idx, cost: s.m.arcCostOf(last, idx)})
	}
	sort.SliceStable(cands, func(a, b int) bool { return cands[a].cost < cands[b].cost })

	for _, c := range cands {
		st.routes[st.v] = append(route, c.idx)
		st.routed[c.idx] = true
		st.left--
		if s.m.feasiblePrefix(st.v, st.routes[st.v], s.lo, s.hi) && s.extendPath(st) {
			return true
		}
		st.routed[c.idx] = false
		st.left++
		st.routes[st.v] = route
		if s.fail(st) {
			return false
		}
	}

	if s.expired || s.openPickups(route) {
		return false
	}
	lastVehicle := st.v == s.m.manager.NumVehicles()-1
	if lastVehicle && st.left > 0 {
		return false
	}
	st.routes[st.v] = append(route, s.m.End(st.v))
	defer func() { st.routes[st.v] = route }()
	if lastVehicle {
		if e, ok := s.m.evaluate(cloneRoutes(st.routes)); ok {
			st.result = e
			return true
		}
		s.fail(st)
		return false
	}
	if !s.m.feasiblePrefix(st.v, st.routes[st.v], s.lo, s.hi) {
		s.fail(st)
		return false
	}
	st.v++
	st.routes = append(st.routes, []int{s.m.Start(st.v)})
	if s.extendPath(st) {
		return true
	}
	st.routes = st.routes[:st.v]
	st.v--
	return false
}

func (s *search) fail(st *pathState) bool {
	s.stats.Failures++
	st.fails++
	return st.budget >= 0 && st.fails > st.budget
}

// openPickups reports whether route holds a pickup whose delivery is not on it yet.
func (s *search) openPickups(route []int) bool {
	for _, idx := range route {
		if pi, ok := s.m.pairOf[idx]; ok && s.m.pairs[pi].Pickup == idx && !containsIndex(route, s.m.pairs[pi].Delivery) {
			return true
		}
	}
	return false
}

type arc struct {
	from, to int
	cost     int64
}

// chains tracks the route fragments built by globalCheapestArc.
type chains struct {
	succ, pred []int
}

func (c *chains) head(i int) int {
	for c.pred[i] >= 0 {
		i = c.pred[i]
	}
	return i
}

func (c *chains) walk(h int) []int {
	out := []int{h}
	for c.succ[h] >= 0 {
		h = c.succ[h]
		out = append(out, h)
	}
	return out
}

// globalCheapestArc links fragments through the globally cheapest arcs first. Every index
// starts as its own fragment; a fragment headed by a vehicle start must stay schedulable and a
// fragment closed by a vehicle end must be a complete route of that vehicle.
func (s *search) globalCheapestArc(budget int) (*evaluation, bool) {
	n := s.m.manager.NumIndices()
	startOf := make(map[int]int, s.m.manager.NumVehicles())
	endOf := make(map[int]int, s.m.manager.NumVehicles())
	for v := 0; v < s.m.manager.NumVehicles(); v++ {
		startOf[s.m.Start(v)] = v
		endOf[s.m.End(v)] = v
	}
	var arcs []arc
	for i := 0; i < n; i++ {
		if s.m.IsEnd(i) {
			continue
		}
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			if _, isStart := startOf[j]; isStart {
				continue
			}
			if vi, ok := startOf[i]; ok {
				if vj, ok := endOf[j]; ok && (vi != vj || (len(s.visits) > 0 && s.m.manager.NumVehicles() == 1)) {
					continue
				}
			}
			arcs = append(arcs, arc{from: i, to: j, cost: s.m.arcCostOf(i, j)})
		}
	}
	sort.SliceStable(arcs, func(a, b int) bool { return arcs[a].cost < arcs[b].cost })

	c := &chains{succ: make([]int, n), pred: make([]int, n)}
	for i := range c.succ {
		c.succ[i], c.pred[i] = -1, -1
	}
	st := &pathState{budget: budget}
	links := n - s.m.manager.NumVehicles()
	if e, ok := s.linkArcs(c, arcs, 0, links, startOf, endOf, st); ok {
		return e, true
	}
	return nil, false
}

func (s *search) linkArcs(c *chains, arcs []arc, from, left int, startOf, endOf map[int]int, st *pathState) (*evaluation, bool) {
	if left == 0 {
		routes := make([][]int, s.m.manager.NumVehicles())
		for v := range routes {
			routes[v] = c.walk(s.m.Start(v))
		}
		if e, ok := s.m.evaluate(routes); ok {
			return e, true
		}
		s.fail(st)
		return nil, false
	}
	if s.stopped() {
		return nil, false
	}
	s.stats.Branches++
	for k := from; k <= len(arcs)-left; k++ {
		a := arcs[k]
		if c.succ[a.from] >= 0 || c.pred[a.to] >= 0 || c.head(a.from) == a.to {
			continue
		}
		c.succ[a.from], c.pred[a.to] = a.to, a.from
		if s.fragmentOK(c, c.head(a.from), startOf, endOf) {
			if e, ok := s.linkArcs(c, arcs, k+1, left-1, startOf, endOf, st); ok {
				return e, true
			}
		}
		c.succ[a.from], c.pred[a.to] = -1, -1
		if s.fail(st) || s.expired {
			return nil, false
		}
	}
	return nil, false
}

func (s *search) fragmentOK(c *chains, head int, startOf, endOf map[int]int) bool {
	frag := c.walk(head)
	if !s.m.pairOrderOK(frag) {
		return false
	}
	v, started := startOf[head]
	if !started {
		return true
	}
	if w, ended := endOf[frag[len(frag)-1]]; ended {
		if v != w {
			return false
		}
		for _, idx := range frag {
			if pi, ok := s.m.pairOf[idx]; ok {
				p := s.m.pairs[pi]
				if !containsIndex(frag, p.Pickup) || !containsIndex(frag, p.Delivery) {
					return false
				}
			}
		}
	}
	return s.m.feasiblePrefix(v, frag, s.lo, s.hi)
}

// unit is what parallelCheapestInsertion inserts: a pickup-and-delivery pair or a lone stop.
type unit struct {
	first, second int // second is -1 for a lone stop
}

type insertion struct {
	unit    int
	vehicle int
	route   []int
	delta   int64
}

// parallelCheapestInsertion starts from empty routes and inserts units where they increase the
// cost least, pickups and deliveries together, backtracking on dead ends.
func (s *search) parallelCheapestInsertion(budget int) (*evaluation, bool) {
	var units []unit
	for _, p := range s.m.pairs {
		units = append(units, unit{first: p.Pickup, second: p.Delivery})
	}
	for _, idx := range s.visits {
		if _, paired := s.m.pairOf[idx]; !paired {
			units = append(units, unit{first: idx, second: -1})
		}
	}
	routes := make([][]int, s.m.manager.NumVehicles())
	for v := range routes {
		routes[v] = []int{s.m.Start(v), s.m.End(v)}
	}
	pending := make([]bool, len(units))
	for i := range pending {
		pending[i] = true
	}
	st := &pathState{budget: budget}
	return s.insertUnits(routes, units, pending, len(units), st)
}

func (s *search) insertUnits(routes [][]int, units []unit, pending []bool, left int, st *pathState) (*evaluation, bool) {
	if left == 0 {
		if e, ok := s.m.evaluate(cloneRoutes(routes)); ok {
			return e, true
		}
		s.fail(st)
		return nil, false
	}
	if s.stopped() {
		return nil, false
	}
	s.stats.Branches++

	var cands []insertion
	for ui, u := range units {
		if !pending[ui] {
			continue
		}
		for v, r := range routes {
			base := s.m.routesCost([][]int{r})
			for i := 1; i < len(r); i++ {
				if u.second < 0 {
					cand := insertAt(r, i, u.first)
					if s.m.feasibleRoute(v, cand, s.lo, s.hi) {
						cands = append(cands, insertion{unit: ui, vehicle: v, route: cand, delta: s.m.routesCost([][]int{cand}) - base})
					}
					continue
				}
				withPickup := insertAt(r, i, u.first)
				for j := i + 1; j < len(withPickup); j++ {
					cand := insertAt(withPickup, j, u.second)
					if s.m.feasibleRoute(v, cand, s.lo, s.hi) {
						cands = append(cands, insertion{unit: ui, vehicle: v, route: cand, delta: s.m.routesCost([][]int{cand}) - base})
					}
				}
			}
		}
	}
	sort.SliceStable(cands, func(a, b int) bool { return cands[a].delta < cands[b].delta })

	for _, c := range cands {
		prev := routes[c.vehicle]
		routes[c.vehicle] = c.route
		pending[c.unit] = false
		if e, ok := s.insertUnits(routes, units, pending, left-1, st); ok {
			return e, true
		}
		pending[c.unit] = true
		routes[c.vehicle] = prev
		if s.fail(st) || s.expired {
			return nil, false
		}
	}
	return nil, false
}

func insertAt(route []int, pos, idx int) []int {
	out := make([]int, 0, len(route)+1)
	out = append(out, route[:pos]...)
	out = append(out, idx)
	return append(out, route[pos:]...)
}
