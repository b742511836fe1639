// Package runtime wires the gateway process together: a supervisor
// over tenant backend processes, a router dispatching requests to
// them, and the REST surface in front of both. Grounded on the shape of
// the teacher's cmd/revad/runtime bootstrap, adapted from "load every
// configured service" to "supervise many short-lived tenant processes
// behind one router."
package runtime

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/nimbusgate/accessgraph/internal/httpadapter"
	"github.com/nimbusgate/accessgraph/internal/router"
	"github.com/nimbusgate/accessgraph/internal/supervisor"
	"github.com/nimbusgate/accessgraph/pkg/config"
	"github.com/nimbusgate/accessgraph/pkg/log"
)

const defaultHealthProbeInterval = 5 * time.Second

// Run starts the gateway's HTTP surface and supervisor health probe
// loop, blocking until ctx is cancelled by a shutdown signal. It tears
// every supervised tenant process down before returning.
func Run(ctx context.Context, cfg config.GatewayConfig, logger log.Logger) error {
	sup := supervisor.New(supervisor.Config{
		Program:                  cfg.BackendProgram,
		MinPort:                  cfg.PortRangeMin,
		MaxPort:                  cfg.PortRangeMax,
		ConnectionStringTemplate: cfg.BaseConnectionString,
		StartupTimeout:           time.Duration(cfg.StartupTimeoutSeconds) * time.Second,
	}, logger.With("component", "supervisor"))
	defer sup.Shutdown()

	rt := router.New(sup, nil, logger.With("component", "router"))
	adapter := httpadapter.New(rt, logger.With("component", "httpadapter"))

	httpSrv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: adapter.Routes(),
	}

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	probeInterval := time.Duration(cfg.HealthProbeSeconds) * time.Second
	if probeInterval <= 0 {
		probeInterval = defaultHealthProbeInterval
	}
	probeDone := make(chan struct{})
	go runHealthProbe(sigCtx, sup, probeInterval, probeDone)

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("gateway listening", map[string]string{"addr": cfg.ListenAddr})
		err := httpSrv.ListenAndServe()
		if err == http.ErrServerClosed {
			err = nil
		}
		serveErr <- err
	}()

	select {
	case <-sigCtx.Done():
		logger.Info("shutdown signal received, draining gateway", nil)
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("gatewayd: http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("gateway http server did not shut down cleanly", map[string]string{"error": err.Error()})
	}
	<-probeDone

	logger.Info("gateway shut down cleanly", nil)
	return nil
}

// runHealthProbe ticks sup.HealthProbe until ctx is cancelled (spec
// §4.8: every HealthProbeSeconds, three consecutive failures tears a
// tenant process down).
func runHealthProbe(ctx context.Context, sup *supervisor.Supervisor, interval time.Duration, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			sup.HealthProbe(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// ExitCode per spec §6: 0 is a clean shutdown, nonzero a failure.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	return 1
}
