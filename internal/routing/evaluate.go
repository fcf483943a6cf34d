package routing

// evaluation is a checked candidate: routes per vehicle plus the tightest cumul bounds at
// every routed index. lo is the minimum feasible cumul, itself a feasible schedule because the
// dimension constraints along a route are difference constraints.
type evaluation struct {
	routes  [][]int
	vehicle []int
	pos     []int
	lo, hi  [][]int64
	cost    int64
}

// propagate tightens the positional bounds of one dimension along route. It returns false when
// some interval becomes empty. The backward pass is only needed to report minimal cumuls.
func (m *Model) propagate(d *Dimension, v int, route []int, lo, hi []int64, backward bool) bool {
	transit := m.transits[d.transit]
	l, h := d.rangeAt(route[0], v)
	if d.fixStartCumulToZero {
		if l > 0 {
			return false
		}
		h = 0
	}
	if l > h {
		return false
	}
	lo[0], hi[0] = l, h
	for k := 0; k+1 < len(route); k++ {
		t := transit(route[k], route[k+1])
		rl, rh := d.rangeAt(route[k+1], v)
		l = lo[k] + t
		h = hi[k] + t + d.slack
		if rl > l {
			l = rl
		}
		if rh < h {
			h = rh
		}
		if l > h {
			return false
		}
		lo[k+1], hi[k+1] = l, h
	}
	if !backward {
		return true
	}
	for k := len(route) - 2; k >= 0; k-- {
		t := transit(route[k], route[k+1])
		if x := hi[k+1] - t; x < hi[k] {
			hi[k] = x
		}
		if x := lo[k+1] - t - d.slack; x > lo[k] {
			lo[k] = x
		}
		if lo[k] > hi[k] {
			return false
		}
	}
	return true
}

// feasiblePrefix reports whether a route prefix starting at the vehicle start can still be
// scheduled. It only looks at dimensions and pickup-before-delivery order.
func (m *Model) feasiblePrefix(v int, prefix []int, lo, hi []int64) bool {
	for _, d := range m.dims {
		if !m.propagate(d, v, prefix, lo, hi, false) {
			return false
		}
	}
	return true
}

// feasibleRoute checks one route on its own: dimensions and pair order of the pairs it holds.
// Pairs split across routes are left to evaluate.
func (m *Model) feasibleRoute(v int, route []int, lo, hi []int64) bool {
	if !m.pairOrderOK(route) {
		return false
	}
	for _, d := range m.dims {
		if !m.propagate(d, v, route, lo, hi, false) {
			return false
		}
	}
	return true
}

func (m *Model) pairOrderOK(route []int) bool {
	if len(m.pairs) == 0 {
		return true
	}
	seen := make(map[int]bool, len(route))
	for _, idx := range route {
		if pi, ok := m.pairOf[idx]; ok {
			p := m.pairs[pi]
			if idx == p.Delivery && !seen[p.Pickup] && containsIndex(route, p.Pickup) {
				return false
			}
		}
		seen[idx] = true
	}
	return true
}

// evaluate fully checks a complete candidate and computes its cost and schedule.
func (m *Model) evaluate(routes [][]int) (*evaluation, bool) {
	n := m.manager.NumIndices()
	e := &evaluation{
		routes:  routes,
		vehicle: make([]int, n),
		pos:     make([]int, n),
		lo:      make([][]int64, len(m.dims)),
		hi:      make([][]int64, len(m.dims)),
	}
	for i := range e.vehicle {
		e.vehicle[i] = -1
		e.pos[i] = -1
	}
	if len(routes) != m.manager.NumVehicles() {
		return nil, false
	}
	for v, r := range routes {
		if len(r) < 2 || r[0] != m.Start(v) || r[len(r)-1] != m.End(v) {
			return nil, false
		}
		for k, idx := range r {
			if idx < 0 || idx >= n || e.vehicle[idx] >= 0 {
				return nil, false
			}
			e.vehicle[idx] = v
			e.pos[idx] = k
		}
	}
	for _, idx := range m.visits() {
		if e.vehicle[idx] < 0 {
			return nil, false
		}
	}
	for _, p := range m.pairs {
		if e.vehicle[p.Pickup] != e.vehicle[p.Delivery] || e.pos[p.Pickup] >= e.pos[p.Delivery] {
			return nil, false
		}
	}
	for di, d := range m.dims {
		e.lo[di] = make([]int64, n)
		e.hi[di] = make([]int64, n)
		for v, r := range routes {
			lo := make([]int64, len(r))
			hi := make([]int64, len(r))
			if !m.propagate(d, v, r, lo, hi, true) {
				return nil, false
			}
			for k, idx := range r {
				e.lo[di][idx] = lo[k]
				e.hi[di][idx] = hi[k]
			}
		}
	}
	for _, c := range m.constraints {
		if !c.satisfied(e) {
			return nil, false
		}
	}
	e.cost = m.routesCost(routes)
	return e, true
}

// routesCost sums arc costs; a vehicle going straight from start to end costs nothing.
func (m *Model) routesCost(routes [][]int) int64 {
	var total int64
	for _, r := range routes {
		if len(r) <= 2 && m.manager.NumVehicles() > 1 {
			continue
		}
		for k := 0; k+1 < len(r); k++ {
			total += m.arcCostOf(r[k], r[k+1])
		}
	}
	return total
}

func containsIndex(route []int, idx int) bool {
	for _, x := range route {
		if x == idx {
			return true
		}
	}
	return false
}

func cloneRoutes(routes [][]int) [][]int {
	out := make([][]int, len(routes))
	for i, r := range routes {
		out[i] = append([]int(nil), r...)
	}
	return out
}
