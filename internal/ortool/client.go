// Package ortool solves problems on a remote OR-Tools service that speaks the solve wire
// format.
package ortool

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"pdptw/internal/logging"
	"pdptw/internal/model"
	"pdptw/internal/vrp"
)

// Config locates the remote solver.
type Config struct {
	Host string
	Port int
	// Slack is added to the search budget of each request to get the HTTP timeout.
	Slack time.Duration
	// FailureThreshold is the failure ratio that opens the breaker once MinRequests were seen.
	FailureThreshold float64
	MinRequests      uint32
	// OpenTimeout is how long the breaker stays open before letting a probe through.
	OpenTimeout time.Duration
}

// DefaultConfig matches the solver's stock deployment.
func DefaultConfig() Config {
	return Config{
		Host:             "localhost",
		Port:             8000,
		Slack:            2 * time.Second,
		FailureThreshold: 0.6,
		MinRequests:      5,
		OpenTimeout:      30 * time.Second,
	}
}

// URL is the solve endpoint.
func (c Config) URL() string {
	return fmt.Sprintf("http://%s:%d/solve", c.Host, c.Port)
}

// Client posts problems to the remote solver. It implements vrp.Solver.
type Client struct {
	cfg     Config
	url     string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	onState func(gobreaker.State)
	log     *zap.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// WithURL overrides the endpoint derived from host and port.
func WithURL(u string) Option {
	return func(cl *Client) { cl.url = u }
}

// WithStateListener is called whenever the breaker changes state.
func WithStateListener(fn func(gobreaker.State)) Option {
	return func(cl *Client) { cl.onState = fn }
}

// NewClient validates the endpoint and returns a Client.
func NewClient(cfg Config, log *zap.Logger, opts ...Option) (*Client, error) {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Client{cfg: cfg, url: cfg.URL(), http: &http.Client{}, log: log}
	for _, o := range opts {
		o(c)
	}
	if _, err := url.ParseRequestURI(c.url); err != nil {
		return nil, fmt.Errorf("ortool: invalid url %q: %w", c.url, err)
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "ortool",
		Timeout: cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureThreshold
		},
		// callers hanging up say nothing about the solver
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.log.Warn("solver breaker state changed",
				zap.String("breaker", name),
				zap.Stringer("from", from),
				zap.Stringer("to", to))
			if c.onState != nil {
				c.onState(to)
			}
		},
	})
	c.log.Info("remote solver configured", zap.String("url", c.url))
	return c, nil
}

// State reports the breaker state.
func (c *Client) State() gobreaker.State { return c.breaker.State() }

// Solve posts p and returns the remote answer. Transport errors, non-200 answers and an open
// breaker all wrap vrp.ErrSolverUnavailable; only answers count as successes for the breaker.
func (c *Client) Solve(ctx context.Context, p *vrp.Problem) (vrp.Result, error) {
	out, err := c.breaker.Execute(func() (any, error) {
		return c.post(ctx, p)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return vrp.Result{}, fmt.Errorf("%w: %w", vrp.ErrSolverUnavailable, ErrCircuitOpen)
		}
		return vrp.Result{}, fmt.Errorf("%w: %v", vrp.ErrSolverUnavailable, err)
	}
	resp := out.(*model.SolveResponse)
	if !resp.Success {
		return vrp.Result{Stops: []model.Stop{}}, nil
	}
	return vrp.Result{Success: true, Stops: resp.Route, Objective: objective(p, resp.Route)}, nil
}

// ErrCircuitOpen is wrapped by errors returned while the breaker rejects calls.
var ErrCircuitOpen = errors.New("ortool: circuit open")

func (c *Client) post(ctx context.Context, p *vrp.Problem) (*model.SolveResponse, error) {
	body, err := json.Marshal(p.Request())
	if err != nil {
		return nil, fmt.Errorf("marshal problem: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, p.Timeout()+c.cfg.Slack)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if id := logging.RequestID(ctx); id != "" {
		req.Header.Set("X-Request-ID", id)
	}

	began := time.Now()
	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call solver: %w", err)
	}
	defer res.Body.Close()
	logging.FromContext(ctx, c.log).Debug("remote solve answered",
		zap.Int("status", res.StatusCode),
		zap.Duration("latency", time.Since(began)))

	if res.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return nil, fmt.Errorf("solver error (%d): %s", res.StatusCode, bytes.TrimSpace(msg))
	}
	var out model.SolveResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode solver response: %w", err)
	}
	return &out, nil
}

// objective recomputes the travel time of a remote route, which the wire format omits.
func objective(p *vrp.Problem, route []model.Stop) int64 {
	var total int64
	for k := 1; k < len(route); k++ {
		from, to := route[k-1].Node, route[k].Node
		if from < 0 || to < 0 || from >= p.NumNodes() || to >= p.NumNodes() {
			return 0
		}
		total += p.TravelTime(from, to)
	}
	return total
}
