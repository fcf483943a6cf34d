package vrp

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdptw/internal/model"
	"pdptw/internal/routing"
)

func ptr[T any](v T) *T { return &v }

// fourNodeRequest is one pickup at node 1 dropped at node 2, depots 0 and 3.
func fourNodeRequest() model.SolveRequest {
	return model.SolveRequest{
		TimeMatrix: [][]int64{
			{0, 1, 2, 3},
			{1, 0, 1, 2},
			{2, 1, 0, 1},
			{3, 2, 1, 0},
		},
		TimeWindows:      [][2]int64{{0, 100}, {0, 100}, {0, 100}, {0, 100}},
		Demand:           []int64{0, 1, -1, 0},
		VehicleCapacity:  1,
		PickupsDropoffs:  [][2]int{{1, 2}},
		MaxRouteDuration: 100,
	}
}

type countingSolver struct {
	calls int
	res   Result
	err   error
	panic bool
}

func (c *countingSolver) Solve(context.Context, *Problem) (Result, error) {
	c.calls++
	if c.panic {
		panic("boom")
	}
	return c.res, c.err
}

func TestSolveFeasibleScenario(t *testing.T) {
	svc := NewService(NewEngine(nil, false))
	resp, err := svc.Solve(context.Background(), fourNodeRequest())
	require.NoError(t, err)
	require.True(t, resp.Success)
	assert.Equal(t, []model.Stop{
		{Node: 0, ArrivalTime: 0},
		{Node: 1, ArrivalTime: 1},
		{Node: 2, ArrivalTime: 2},
		{Node: 3, ArrivalTime: 3},
	}, resp.Route)
}

func TestSolveInfeasibleScenario(t *testing.T) {
	req := fourNodeRequest()
	req.TimeMatrix[0][1] = 50
	req.TimeWindows[1] = [2]int64{0, 10}
	svc := NewService(NewEngine(nil, false))
	resp, err := svc.Solve(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.NotNil(t, resp.Route)
	assert.Empty(t, resp.Route)
}

func TestSolveRejectsPairOutsideRange(t *testing.T) {
	req := fourNodeRequest()
	req.PickupsDropoffs = [][2]int{{1, 7}}
	solver := &countingSolver{}
	_, err := NewService(solver).Solve(context.Background(), req)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "pickup_and_dropoffs", verr.Field)
	assert.ErrorIs(t, err, ErrInvalidProblem)
	assert.Zero(t, solver.calls)
}

func TestNewProblemValidation(t *testing.T) {
	cases := []struct {
		name  string
		edit  func(*model.SolveRequest)
		field string
	}{
		{"single node", func(r *model.SolveRequest) { r.TimeMatrix = [][]int64{{0}} }, "time_matrix"},
		{"ragged matrix", func(r *model.SolveRequest) { r.TimeMatrix[2] = []int64{1, 2} }, "time_matrix"},
		{"negative travel", func(r *model.SolveRequest) { r.TimeMatrix[1][2] = -1 }, "time_matrix"},
		{"missing window", func(r *model.SolveRequest) { r.TimeWindows = r.TimeWindows[:3] }, "time_windows"},
		{"inverted window", func(r *model.SolveRequest) { r.TimeWindows[1] = [2]int64{5, 4} }, "time_windows"},
		{"short demand", func(r *model.SolveRequest) { r.Demand = []int64{0, 1, -1} }, "no_of_riders_per_request"},
		{"depot demand", func(r *model.SolveRequest) { r.Demand[0] = 1 }, "no_of_riders_per_request"},
		{"unbalanced pair", func(r *model.SolveRequest) { r.Demand[2] = -2 }, "no_of_riders_per_request"},
		{"empty pickup", func(r *model.SolveRequest) { r.Demand[1], r.Demand[2] = 0, 0 }, "no_of_riders_per_request"},
		{"zero capacity", func(r *model.SolveRequest) { r.VehicleCapacity = 0 }, "vehicle_capacity"},
		{"zero duration", func(r *model.SolveRequest) { r.MaxRouteDuration = 0 }, "max_route_duration"},
		{"depot paired", func(r *model.SolveRequest) { r.PickupsDropoffs = [][2]int{{0, 2}} }, "pickup_and_dropoffs"},
		{"self pair", func(r *model.SolveRequest) { r.PickupsDropoffs = [][2]int{{1, 1}} }, "pickup_and_dropoffs"},
		{"uncovered node", func(r *model.SolveRequest) { r.PickupsDropoffs = nil }, "pickup_and_dropoffs"},
		{"node in two pairs", func(r *model.SolveRequest) { r.PickupsDropoffs = [][2]int{{1, 2}, {2, 1}} }, "pickup_and_dropoffs"},
		{"negative timeout", func(r *model.SolveRequest) { r.Timeout = ptr(int64(-1)) }, "timeout"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := fourNodeRequest()
			tc.edit(&req)
			_, err := NewProblem(req)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.field, verr.Field)
		})
	}
}

func TestNewProblemTuningDefaults(t *testing.T) {
	p, err := NewProblem(fourNodeRequest())
	require.NoError(t, err)
	assert.Equal(t, DefaultTimeout, p.Timeout())
	assert.Equal(t, MethodParallelCheapestInsertion, p.Method())
	assert.False(t, p.GuidedLocalSearch())

	req := fourNodeRequest()
	req.Timeout = ptr(int64(0))
	p, err = NewProblem(req)
	require.NoError(t, err)
	assert.Equal(t, DefaultTimeout, p.Timeout())

	req.Timeout = ptr(int64(250))
	req.Method = "automatic"
	req.EnableGuidedLocalSearch = ptr(true)
	p, err = NewProblem(req)
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, p.Timeout())
	assert.Equal(t, "automatic", p.Method())
	assert.True(t, p.GuidedLocalSearch())

	back := p.Request()
	assert.Equal(t, int64(250), *back.Timeout)
	assert.True(t, *back.EnableGuidedLocalSearch)
	assert.Equal(t, req.TimeMatrix, back.TimeMatrix)
	assert.Equal(t, req.PickupsDropoffs, back.PickupsDropoffs)
}

func TestProblemIsCopied(t *testing.T) {
	req := fourNodeRequest()
	p, err := NewProblem(req)
	require.NoError(t, err)
	req.TimeMatrix[0][1] = 99
	req.Demand[1] = 5
	assert.Equal(t, int64(1), p.TravelTime(0, 1))
	assert.Equal(t, int64(1), p.Demand(1))
}

func TestFirstSolutionStrategyMapping(t *testing.T) {
	assert.Equal(t, routing.PathCheapestArc, FirstSolutionStrategy("path_cheapest_arc"))
	assert.Equal(t, routing.GlobalCheapestArc, FirstSolutionStrategy("global_cheapest_arch"))
	assert.Equal(t, routing.GlobalCheapestArc, FirstSolutionStrategy("global_cheapest_arc"))
	assert.Equal(t, routing.Automatic, FirstSolutionStrategy("automatic"))
	assert.Equal(t, routing.ParallelCheapestInsertion, FirstSolutionStrategy("parallel_cheapest_insertion"))
	assert.Equal(t, routing.ParallelCheapestInsertion, FirstSolutionStrategy("simulated_annealing"))
	assert.Equal(t, MethodParallelCheapestInsertion, MethodLabel("nope"))
	assert.Equal(t, MethodGlobalCheapestArc, MethodLabel("global_cheapest_arc"))
}

func TestSearchParameters(t *testing.T) {
	req := fourNodeRequest()
	req.Timeout = ptr(int64(40))
	p, err := NewProblem(req)
	require.NoError(t, err)
	params := SearchParameters(p, true)
	assert.Equal(t, routing.ParallelCheapestInsertion, params.FirstSolutionStrategy)
	assert.Equal(t, routing.MetaheuristicUnset, params.LocalSearchMetaheuristic)
	assert.Equal(t, 40*time.Millisecond, params.TimeLimit)
	assert.True(t, params.LogSearch)

	req.EnableGuidedLocalSearch = ptr(true)
	p, err = NewProblem(req)
	require.NoError(t, err)
	assert.Equal(t, routing.GuidedLocalSearch, SearchParameters(p, false).LocalSearchMetaheuristic)
}

func TestBuildModelIgnoresDepotWindows(t *testing.T) {
	req := fourNodeRequest()
	req.TimeWindows[0] = [2]int64{50, 60}
	req.TimeWindows[3] = [2]int64{0, 0}
	resp, err := NewService(NewEngine(nil, false)).Solve(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, int64(0), resp.Route[0].ArrivalTime)
	assert.Equal(t, int64(3), resp.Route[3].ArrivalTime)
}

func TestDurationBudgetExceeded(t *testing.T) {
	req := fourNodeRequest()
	req.MaxRouteDuration = 2
	resp, err := NewService(NewEngine(nil, false)).Solve(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, resp.Success)
}

func TestServiceMaxTimeout(t *testing.T) {
	req := fourNodeRequest()
	req.Timeout = ptr(int64(5000))
	solver := &countingSolver{}
	_, err := NewService(solver, WithMaxTimeout(time.Second)).Solve(context.Background(), req)
	assert.ErrorIs(t, err, ErrInvalidProblem)
	assert.Zero(t, solver.calls)
}

func TestServiceSolverFailures(t *testing.T) {
	solver := &countingSolver{panic: true}
	resp, err := NewService(solver).Solve(context.Background(), fourNodeRequest())
	assert.ErrorIs(t, err, ErrSolverUnavailable)
	assert.False(t, resp.Success)
	assert.Empty(t, resp.Route)

	solver = &countingSolver{err: errors.Join(ErrSolverUnavailable, errors.New("connection refused"))}
	_, err = NewService(solver).Solve(context.Background(), fourNodeRequest())
	assert.ErrorIs(t, err, ErrSolverUnavailable)
	assert.False(t, errors.Is(err, ErrInvalidProblem))
}

func TestSolveDetailedReportsOutcome(t *testing.T) {
	req := fourNodeRequest()
	req.Method = "unknown_method"
	out, err := NewService(NewEngine(nil, false)).SolveDetailed(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, out.Response.Success)
	assert.Equal(t, MethodParallelCheapestInsertion, out.Method)
	assert.Equal(t, int64(3), out.Objective)
}

// randomRequest builds pairs with wide windows on a random symmetric matrix.
func randomRequest(r *rand.Rand, pairs int) model.SolveRequest {
	n := 2*pairs + 2
	req := model.SolveRequest{
		TimeMatrix:       make([][]int64, n),
		TimeWindows:      make([][2]int64, n),
		Demand:           make([]int64, n),
		VehicleCapacity:  3,
		MaxRouteDuration: 10000,
	}
	for i := range req.TimeMatrix {
		req.TimeMatrix[i] = make([]int64, n)
		req.TimeWindows[i] = [2]int64{0, 10000}
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := int64(1 + r.Intn(20))
			req.TimeMatrix[i][j], req.TimeMatrix[j][i] = d, d
		}
	}
	for k := 0; k < pairs; k++ {
		p, d := 1+2*k, 2+2*k
		riders := int64(1 + r.Intn(2))
		req.Demand[p], req.Demand[d] = riders, -riders
		req.PickupsDropoffs = append(req.PickupsDropoffs, [2]int{p, d})
	}
	return req
}

func TestRouteProperties(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	methods := []string{"parallel_cheapest_insertion", "path_cheapest_arc", "global_cheapest_arch", "automatic"}
	for trial := 0; trial < 8; trial++ {
		req := randomRequest(r, 1+trial%4)
		req.Method = methods[trial%len(methods)]
		req.EnableGuidedLocalSearch = ptr(trial%2 == 1)
		req.Timeout = ptr(int64(50))

		p, err := NewProblem(req)
		require.NoError(t, err)
		mgr, err := NewIndexManager(p)
		require.NoError(t, err)
		for node := 0; node < p.NumNodes(); node++ {
			assert.Equal(t, node, mgr.IndexToNode(mgr.NodeToIndex(node)))
		}

		resp, err := NewService(NewEngine(nil, false)).Solve(context.Background(), req)
		require.NoError(t, err)
		require.True(t, resp.Success, "trial %d", trial)
		route := resp.Route
		n := len(req.TimeMatrix)
		require.Len(t, route, n)
		assert.Equal(t, 0, route[0].Node)
		assert.Equal(t, n-1, route[n-1].Node)

		pos := map[int]int{}
		var load int64
		for k, s := range route {
			pos[s.Node] = k
			load += req.Demand[s.Node]
			assert.LessOrEqual(t, load, req.VehicleCapacity)
			assert.GreaterOrEqual(t, load, int64(0))
			if s.Node != 0 && s.Node != n-1 {
				w := req.TimeWindows[s.Node]
				assert.GreaterOrEqual(t, s.ArrivalTime, w[0])
				assert.LessOrEqual(t, s.ArrivalTime, w[1])
			}
			if k > 0 {
				prev := route[k-1]
				assert.Equal(t, prev.ArrivalTime+req.TimeMatrix[prev.Node][s.Node], s.ArrivalTime)
			}
		}
		assert.Len(t, pos, n)
		for _, pr := range req.PickupsDropoffs {
			assert.Less(t, pos[pr[0]], pos[pr[1]])
			assert.LessOrEqual(t, route[pos[pr[0]]].ArrivalTime, route[pos[pr[1]]].ArrivalTime)
		}
		assert.LessOrEqual(t, route[n-1].ArrivalTime-route[0].ArrivalTime, req.MaxRouteDuration)
	}
}

func TestSolveIsRepeatable(t *testing.T) {
	r := rand.New(rand.NewSource(11))
	req := randomRequest(r, 3)
	svc := NewService(NewEngine(nil, false))
	first, err := svc.Solve(context.Background(), req)
	require.NoError(t, err)
	second, err := svc.Solve(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, first.Success, second.Success)
	// without guided local search the engine is deterministic
	assert.Equal(t, first.Route, second.Route)
}
