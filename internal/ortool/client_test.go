package ortool

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdptw/internal/model"
	"pdptw/internal/vrp"
)

func testProblem(t *testing.T) *vrp.Problem {
	t.Helper()
	timeout := int64(30)
	p, err := vrp.NewProblem(model.SolveRequest{
		TimeMatrix:       [][]int64{{0, 1, 2, 3}, {1, 0, 1, 2}, {2, 1, 0, 1}, {3, 2, 1, 0}},
		TimeWindows:      [][2]int64{{0, 100}, {0, 100}, {0, 100}, {0, 100}},
		Demand:           []int64{0, 1, -1, 0},
		VehicleCapacity:  1,
		PickupsDropoffs:  [][2]int{{1, 2}},
		MaxRouteDuration: 100,
		Timeout:          &timeout,
	})
	require.NoError(t, err)
	return p
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.MinRequests = 2
	cfg.FailureThreshold = 0.5
	cfg.OpenTimeout = time.Minute
	return cfg
}

func TestClientSolve(t *testing.T) {
	var got model.SolveRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/solve", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(model.SolveResponse{Success: true, Route: []model.Stop{
			{Node: 0}, {Node: 1, ArrivalTime: 1}, {Node: 2, ArrivalTime: 2}, {Node: 3, ArrivalTime: 3},
		}})
	}))
	defer srv.Close()

	c, err := NewClient(testConfig(), nil, WithURL(srv.URL+"/solve"), WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	res, err := c.Solve(context.Background(), testProblem(t))
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Len(t, res.Stops, 4)
	assert.Equal(t, int64(3), res.Objective)

	require.NotNil(t, got.Timeout)
	assert.Equal(t, int64(30), *got.Timeout)
	assert.Equal(t, "parallel_cheapest_insertion", got.Method)
	assert.Equal(t, [][2]int{{1, 2}}, got.PickupsDropoffs)
}

func TestClientNoSolution(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":false,"route":[]}`))
	}))
	defer srv.Close()

	c, err := NewClient(testConfig(), nil, WithURL(srv.URL+"/solve"))
	require.NoError(t, err)
	res, err := c.Solve(context.Background(), testProblem(t))
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Empty(t, res.Stops)
}

func TestClientFailuresOpenBreaker(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "solver crashed", http.StatusInternalServerError)
	}))
	defer srv.Close()

	var states []gobreaker.State
	c, err := NewClient(testConfig(), nil, WithURL(srv.URL+"/solve"),
		WithStateListener(func(s gobreaker.State) { states = append(states, s) }))
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err := c.Solve(context.Background(), testProblem(t))
		require.ErrorIs(t, err, vrp.ErrSolverUnavailable)
		assert.Contains(t, err.Error(), "solver crashed")
	}
	assert.Equal(t, gobreaker.StateOpen, c.State())
	assert.Equal(t, []gobreaker.State{gobreaker.StateOpen}, states)

	_, err = c.Solve(context.Background(), testProblem(t))
	assert.ErrorIs(t, err, vrp.ErrSolverUnavailable)
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClientUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	c, err := NewClient(testConfig(), nil, WithURL(addr+"/solve"))
	require.NoError(t, err)
	_, err = c.Solve(context.Background(), testProblem(t))
	assert.ErrorIs(t, err, vrp.ErrSolverUnavailable)
}

func TestNewClientRejectsBadURL(t *testing.T) {
	_, err := NewClient(testConfig(), nil, WithURL("not a url"))
	assert.Error(t, err)
	assert.Equal(t, "http://localhost:8000/solve", DefaultConfig().URL())
}
