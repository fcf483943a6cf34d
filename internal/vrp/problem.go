// Package vrp turns a solve request into a routing model for a single vehicle serving
// pickup-and-delivery pairs under time windows, runs the search and decodes the route.
package vrp

import (
	"errors"
	"fmt"
	"time"

	"pdptw/internal/model"
)

var (
	// ErrInvalidProblem is matched by every *ValidationError.
	ErrInvalidProblem = errors.New("invalid problem")
	// ErrSolverUnavailable means the engine could not run, as opposed to finding no route.
	ErrSolverUnavailable = errors.New("solver unavailable")
)

// ValidationError reports the first malformed field of a request.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid problem: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidProblem }

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Window is the inclusive interval in which a node may be reached.
type Window struct {
	Earliest int64
	Latest   int64
}

// Pair couples a pickup node with the node its riders are dropped at.
type Pair struct {
	Pickup  int
	Dropoff int
}

// Problem is a validated request. It is never modified after NewProblem returns.
type Problem struct {
	timeMatrix  [][]int64
	windows     []Window
	demand      []int64
	capacity    int64
	pairs       []Pair
	maxDuration int64

	timeout           time.Duration
	method            string
	guidedLocalSearch bool
}

// NewProblem validates req and copies it into a Problem. Omitted tuning fields take the
// service defaults.
func NewProblem(req model.SolveRequest) (*Problem, error) {
	n := len(req.TimeMatrix)
	if n < 2 {
		return nil, invalid("time_matrix", "need at least 2 nodes, got %d", n)
	}
	p := &Problem{
		timeMatrix:  make([][]int64, n),
		windows:     make([]Window, 0, n),
		capacity:    req.VehicleCapacity,
		maxDuration: req.MaxRouteDuration,
		timeout:     DefaultTimeout,
		method:      MethodParallelCheapestInsertion,
	}
	for i, row := range req.TimeMatrix {
		if len(row) != n {
			return nil, invalid("time_matrix", "row %d has %d columns, want %d", i, len(row), n)
		}
		for j, t := range row {
			if t < 0 {
				return nil, invalid("time_matrix", "negative travel time from %d to %d", i, j)
			}
		}
		p.timeMatrix[i] = append([]int64(nil), row...)
	}

	if len(req.TimeWindows) != n {
		return nil, invalid("time_windows", "got %d windows for %d nodes", len(req.TimeWindows), n)
	}
	for i, w := range req.TimeWindows {
		if w[0] > w[1] {
			return nil, invalid("time_windows", "node %d: earliest %d after latest %d", i, w[0], w[1])
		}
		p.windows = append(p.windows, Window{Earliest: w[0], Latest: w[1]})
	}

	if len(req.Demand) != n {
		return nil, invalid("no_of_riders_per_request", "got %d values for %d nodes", len(req.Demand), n)
	}
	if req.Demand[0] != 0 || req.Demand[n-1] != 0 {
		return nil, invalid("no_of_riders_per_request", "depot demand must be 0")
	}
	p.demand = append([]int64(nil), req.Demand...)

	if req.VehicleCapacity <= 0 {
		return nil, invalid("vehicle_capacity", "must be positive, got %d", req.VehicleCapacity)
	}
	if req.MaxRouteDuration <= 0 {
		return nil, invalid("max_route_duration", "must be positive, got %d", req.MaxRouteDuration)
	}

	if err := p.setPairs(req.PickupsDropoffs); err != nil {
		return nil, err
	}

	if req.Timeout != nil {
		if *req.Timeout < 0 {
			return nil, invalid("timeout", "must not be negative, got %d", *req.Timeout)
		}
		if *req.Timeout > 0 {
			p.timeout = time.Duration(*req.Timeout) * time.Millisecond
		}
	}
	if req.Method != "" {
		p.method = req.Method
	}
	if req.EnableGuidedLocalSearch != nil {
		p.guidedLocalSearch = *req.EnableGuidedLocalSearch
	}
	return p, nil
}

func (p *Problem) setPairs(raw [][2]int) error {
	n := len(p.timeMatrix)
	seen := make([]bool, n)
	for _, pr := range raw {
		pu, do := pr[0], pr[1]
		for _, node := range []int{pu, do} {
			switch {
			case node < 0 || node >= n:
				return invalid("pickup_and_dropoffs", "node %d outside [0,%d)", node, n)
			case node == 0 || node == n-1:
				return invalid("pickup_and_dropoffs", "depot %d cannot be paired", node)
			}
		}
		if pu == do {
			return invalid("pickup_and_dropoffs", "node %d is its own dropoff", pu)
		}
		for _, node := range []int{pu, do} {
			if seen[node] {
				return invalid("pickup_and_dropoffs", "node %d appears in more than one pair", node)
			}
			seen[node] = true
		}
		if p.demand[pu] <= 0 {
			return invalid("no_of_riders_per_request", "pickup %d must board riders, got %d", pu, p.demand[pu])
		}
		if p.demand[pu] != -p.demand[do] {
			return invalid("no_of_riders_per_request", "pickup %d boards %d but dropoff %d alights %d", pu, p.demand[pu], do, -p.demand[do])
		}
		p.pairs = append(p.pairs, Pair{Pickup: pu, Dropoff: do})
	}
	for node := 1; node < n-1; node++ {
		if !seen[node] {
			return invalid("pickup_and_dropoffs", "node %d is not paired", node)
		}
	}
	return nil
}

// NumNodes is the number of rows of the travel-time matrix.
func (p *Problem) NumNodes() int { return len(p.timeMatrix) }

// Start is the start depot.
func (p *Problem) Start() int { return 0 }

// End is the end depot.
func (p *Problem) End() int { return len(p.timeMatrix) - 1 }

// TravelTime returns the travel time from node i to node j.
func (p *Problem) TravelTime(i, j int) int64 { return p.timeMatrix[i][j] }

// Window returns the time window of node.
func (p *Problem) Window(node int) Window { return p.windows[node] }

// Demand returns the riders boarding (positive) or alighting (negative) at node.
func (p *Problem) Demand(node int) int64 { return p.demand[node] }

// Capacity is the vehicle capacity.
func (p *Problem) Capacity() int64 { return p.capacity }

// MaxRouteDuration bounds the arrival time at the end depot.
func (p *Problem) MaxRouteDuration() int64 { return p.maxDuration }

// Pairs returns the pickup and dropoff couplings in request order.
func (p *Problem) Pairs() []Pair { return append([]Pair(nil), p.pairs...) }

// Timeout is the search budget.
func (p *Problem) Timeout() time.Duration { return p.timeout }

// Method is the requested first-solution method name, possibly unknown.
func (p *Problem) Method() string { return p.method }

// GuidedLocalSearch reports whether the search continues past the first solution.
func (p *Problem) GuidedLocalSearch() bool { return p.guidedLocalSearch }

// Request renders the problem back to its wire form with every tuning field resolved.
func (p *Problem) Request() model.SolveRequest {
	n := p.NumNodes()
	req := model.SolveRequest{
		TimeMatrix:       make([][]int64, n),
		TimeWindows:      make([][2]int64, n),
		Demand:           append([]int64(nil), p.demand...),
		VehicleCapacity:  p.capacity,
		PickupsDropoffs:  make([][2]int, len(p.pairs)),
		MaxRouteDuration: p.maxDuration,
		Method:           p.method,
	}
	for i := range p.timeMatrix {
		req.TimeMatrix[i] = append([]int64(nil), p.timeMatrix[i]...)
		req.TimeWindows[i] = [2]int64{p.windows[i].Earliest, p.windows[i].Latest}
	}
	for i, pr := range p.pairs {
		req.PickupsDropoffs[i] = [2]int{pr.Pickup, pr.Dropoff}
	}
	ms := p.timeout.Milliseconds()
	gls := p.guidedLocalSearch
	req.Timeout = &ms
	req.EnableGuidedLocalSearch = &gls
	return req
}
