package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"pdptw/internal/api"
	"pdptw/internal/buildinfo"
	"pdptw/internal/config"
	"pdptw/internal/events"
	"pdptw/internal/logging"
	"pdptw/internal/metrics"
	"pdptw/internal/ortool"
	"pdptw/internal/store"
	"pdptw/internal/vrp"
)

func main() {
	envFile := flag.String("env-file", ".env", "dotenv file read before the environment")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	metrics.RegisterDefault()

	var st store.Store = store.NewMemory()
	if strings.TrimSpace(cfg.DatabaseURL) != "" {
		pg, err := store.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		st = pg
	}
	defer func() { _ = st.Close() }()

	var broker events.Broker = events.NewMemory()
	if cfg.RedisURL != "" {
		rb, err := events.NewRedis(ctx, cfg.RedisURL, log.Named("events"))
		if err != nil {
			log.Warn("redis unavailable, using in-memory events", zap.Error(err))
		} else {
			broker = rb
		}
	}
	defer func() { _ = broker.Close() }()

	solver, err := newSolver(cfg, log)
	if err != nil {
		return err
	}
	svc := vrp.NewService(solver, vrp.WithLogger(log), vrp.WithMaxTimeout(cfg.MaxSolveTimeout()))

	srv, err := api.NewServer(api.Deps{
		Config:  cfg,
		Service: svc,
		Store:   st,
		Broker:  broker,
		Log:     log,
	})
	if err != nil {
		return err
	}

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		log.Info("API listening",
			zap.String("addr", httpSrv.Addr),
			zap.String("solver", cfg.Solver.Backend),
			zap.String("version", buildinfo.Version))
		errc <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.MaxSolveTimeout()+5*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

func newSolver(cfg config.Config, log *zap.Logger) (vrp.Solver, error) {
	if cfg.Solver.Backend != "remote" {
		return vrp.NewEngine(log, cfg.LogSearch), nil
	}
	oc := ortool.DefaultConfig()
	oc.Host = cfg.Solver.OrtoolHost
	oc.Port = cfg.Solver.OrtoolPort
	client, err := ortool.NewClient(oc, log.Named("ortool"), ortool.WithStateListener(func(s gobreaker.State) {
		metrics.BreakerState.Set(float64(s))
	}))
	if err != nil {
		return nil, fmt.Errorf("ortool client: %w", err)
	}
	return client, nil
}
