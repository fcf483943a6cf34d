package routing

// arcKey identifies a directed arc between two traversal indices.
type arcKey struct{ from, to int }

// neighbours enumerates the candidates reachable from routes with one move: relocating a lone
// stop, relocating a pickup-and-delivery pair, exchanging two stops of one route and reversing
// a segment (2-opt). visit returns true to stop the enumeration.
func (s *search) neighbours(routes [][]int, visit func([][]int) bool) {
	for v, r := range routes {
		for i := 1; i < len(r)-1; i++ {
			idx := r[i]
			if _, paired := s.m.pairOf[idx]; paired {
				continue
			}
			without := removeIndices(r, idx)
			for w := range routes {
				target := without
				if w != v {
					target = routes[w]
				}
				for j := 1; j < len(target); j++ {
					if w == v && j == i {
						continue
					}
					cand := cloneRoutes(routes)
					cand[v] = without
					cand[w] = insertAt(target, j, idx)
					if visit(cand) {
						return
					}
				}
			}
		}
	}

	for _, p := range s.m.pairs {
		v := routeOf(routes, p.Pickup)
		if v < 0 {
			continue
		}
		without := removeIndices(routes[v], p.Pickup, p.Delivery)
		for w := range routes {
			target := without
			if w != v {
				target = routes[w]
			}
			for i := 1; i < len(target); i++ {
				withPickup := insertAt(target, i, p.Pickup)
				for j := i + 1; j < len(withPickup); j++ {
					cand := cloneRoutes(routes)
					cand[v] = without
					cand[w] = insertAt(withPickup, j, p.Delivery)
					if sameRoute(cand[w], routes[w]) {
						continue
					}
					if visit(cand) {
						return
					}
				}
			}
		}
	}

	for v, r := range routes {
		for i := 1; i < len(r)-1; i++ {
			for j := i + 1; j < len(r)-1; j++ {
				cand := cloneRoutes(routes)
				cand[v][i], cand[v][j] = cand[v][j], cand[v][i]
				if visit(cand) {
					return
				}
				if j-i < 2 {
					continue
				}
				cand = cloneRoutes(routes)
				for a, b := i, j; a < b; a, b = a+1, b-1 {
					cand[v][a], cand[v][b] = cand[v][b], cand[v][a]
				}
				if visit(cand) {
					return
				}
			}
		}
	}
}

// firstImproving returns the first feasible neighbour whose score beats the current one, and
// how many feasible neighbours were seen.
func (s *search) firstImproving(cur *evaluation, score func(*evaluation) float64) (*evaluation, int) {
	base := score(cur)
	var (
		found    *evaluation
		feasible int
	)
	s.neighbours(cur.routes, func(cand [][]int) bool {
		if s.stopped() {
			return true
		}
		s.stats.Neighbours++
		e, ok := s.m.evaluate(cand)
		if !ok {
			return false
		}
		feasible++
		if score(e) < base-1e-9 {
			found = e
			return true
		}
		return false
	})
	return found, feasible
}

// improve runs the metaheuristic from an initial solution and returns the cheapest solution
// seen.
func (s *search) improve(first *evaluation, params SearchParameters) *evaluation {
	switch params.LocalSearchMetaheuristic {
	case GreedyDescent:
		return s.greedyDescent(first)
	case GuidedLocalSearch:
		return s.guidedLocalSearch(first, params.GuidedLocalSearchLambdaCoefficient)
	default:
		return first
	}
}

func (s *search) greedyDescent(cur *evaluation) *evaluation {
	trueCost := func(e *evaluation) float64 { return float64(e.cost) }
	for !s.stopped() {
		next, _ := s.firstImproving(cur, trueCost)
		if next == nil {
			break
		}
		s.stats.Moves++
		cur = next
	}
	return cur
}

// guidedLocalSearch descends on cost plus lambda times the penalties of the arcs in use. At
// each local optimum the arcs with the highest cost/(1+penalty) utility get one more penalty.
func (s *search) guidedLocalSearch(first *evaluation, coefficient float64) *evaluation {
	if coefficient <= 0 {
		coefficient = 0.1
	}
	arcs := 0
	for _, r := range first.routes {
		arcs += len(r) - 1
	}
	lambda := coefficient
	if arcs > 0 && first.cost > 0 {
		lambda = coefficient * float64(first.cost) / float64(arcs)
	}
	penalties := map[arcKey]int{}
	augmented := func(e *evaluation) float64 {
		total := float64(e.cost)
		for _, r := range e.routes {
			for k := 0; k+1 < len(r); k++ {
				total += lambda * float64(penalties[arcKey{r[k], r[k+1]}])
			}
		}
		return total
	}

	rounds := 0
	maxRounds := -1
	if s.deadline.IsZero() {
		maxRounds = 100 * s.m.manager.NumIndices()
	}
	best, cur := first, first
	for !s.stopped() {
		next, feasible := s.firstImproving(cur, augmented)
		if next != nil {
			s.stats.Moves++
			cur = next
			if cur.cost < best.cost {
				best = cur
				s.stats.Improvements++
				s.logProgress(best)
			}
			continue
		}
		if feasible == 0 {
			break
		}
		s.penalise(cur, penalties)
		rounds++
		if maxRounds >= 0 && rounds >= maxRounds {
			break
		}
	}
	return best
}

func (s *search) penalise(e *evaluation, penalties map[arcKey]int) {
	var (
		worst float64 = -1
		keys  []arcKey
	)
	for _, r := range e.routes {
		for k := 0; k+1 < len(r); k++ {
			key := arcKey{r[k], r[k+1]}
			u := float64(s.m.arcCostOf(key.from, key.to)) / float64(1+penalties[key])
			switch {
			case u > worst:
				worst = u
				keys = append(keys[:0], key)
			case u == worst:
				keys = append(keys, key)
			}
		}
	}
	for _, k := range keys {
		penalties[k]++
		s.stats.Penalties++
	}
}

func removeIndices(route []int, drop ...int) []int {
	out := make([]int, 0, len(route))
	for _, idx := range route {
		skip := false
		for _, d := range drop {
			if idx == d {
				skip = true
				break
			}
		}
		if !skip {
			out = append(out, idx)
		}
	}
	return out
}

func routeOf(routes [][]int, idx int) int {
	for v, r := range routes {
		if containsIndex(r, idx) {
			return v
		}
	}
	return -1
}

func sameRoute(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
