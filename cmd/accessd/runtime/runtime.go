// Package runtime wires a single tenant backend process together:
// hydrate the durable snapshot, construct the single-writer processor
// over it, expose it through rpcservice's gRPC surface, and drain
// cleanly on SIGTERM/SIGINT. Grounded on the shape of the teacher's
// cmd/revad/runtime bootstrap (hydrate/serve/wait-for-signal), adapted
// from "load every configured service into one process" to "load one
// tenant's graph into one process."
package runtime

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"

	"github.com/nimbusgate/accessgraph/internal/rpcservice"
	"github.com/nimbusgate/accessgraph/pkg/channel"
	"github.com/nimbusgate/accessgraph/pkg/command"
	"github.com/nimbusgate/accessgraph/pkg/config"
	"github.com/nimbusgate/accessgraph/pkg/hydration"
	"github.com/nimbusgate/accessgraph/pkg/log"
	"github.com/nimbusgate/accessgraph/pkg/persistence/sqlstore"
	"github.com/nimbusgate/accessgraph/pkg/processor"
)

const defaultCommandQueueSize = 256

// Run hydrates cfg.TenantID's graph, starts the single-writer processor
// and its write-behind worker, and serves the tenant's gRPC endpoint
// until ctx is cancelled by a shutdown signal. It returns nil on a
// clean shutdown and a non-nil error otherwise, which main.go turns
// into the process's exit code per the invocation contract.
func Run(ctx context.Context, cfg config.BackendConfig, logger log.Logger) error {
	logger = logger.With("tenant_id", cfg.TenantID)

	sink, err := sqlstore.Open(cfg.TenantID, sqlstore.Config{
		Driver:           cfg.StoreDriver,
		ConnectionString: cfg.ConnectionString(),
	})
	if err != nil {
		return fmt.Errorf("accessd: opening store: %w", err)
	}
	defer sink.Close()

	hydrated, err := hydration.Load(ctx, sink, cfg.TenantID, logger)
	if err != nil {
		return fmt.Errorf("accessd: hydrating tenant: %w", err)
	}

	queueSize := cfg.CommandQueueSize
	if queueSize <= 0 {
		queueSize = defaultCommandQueueSize
	}
	queue := channel.New(queueSize)

	proc := processor.New(cfg.TenantID, hydrated.Graph, hydrated.Views, queue, sink, logger)

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.GRPCPort))
	if err != nil {
		return fmt.Errorf("accessd: listening on port %d: %w", cfg.GRPCPort, err)
	}

	srv := rpcservice.NewServer(queue, healthFunc(proc), logger)
	gs := grpc.NewServer()
	rpcservice.RegisterServer(gs, srv)

	procCtx, cancelProc := context.WithCancel(context.Background())
	defer cancelProc()

	done := make(chan struct{})
	go func() {
		proc.Run(procCtx)
		close(done)
	}()
	go proc.RunPersistWorker(procCtx)

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("tenant backend listening", map[string]string{"addr": lis.Addr().String()})
		serveErr <- gs.Serve(lis)
	}()

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	select {
	case <-sigCtx.Done():
		logger.Info("shutdown signal received, draining command queue", nil)
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("accessd: grpc server: %w", err)
		}
	}

	gs.GracefulStop()
	queue.Close()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		logger.Warn("command queue did not drain within shutdown window", nil)
	}

	logger.Info("tenant backend shut down cleanly", nil)
	return nil
}

// healthFunc adapts processor.Processor's HealthSnapshot to the
// HealthResult shape rpcservice.Server reports over the wire. Healthy
// is always true here: this function only runs while the command loop
// is alive to answer it, and PersistenceDegraded separately carries the
// write-behind failure signal the supervisor cares about.
func healthFunc(proc *processor.Processor) rpcservice.HealthFunc {
	return func() command.HealthResult {
		snap := proc.Health()
		return command.HealthResult{
			Healthy:             true,
			UptimeSeconds:       snap.UptimeSeconds,
			CommandsProcessed:   snap.CommandsProcessed,
			PersistenceDegraded: snap.PersistenceDegraded,
		}
	}
}

// exit codes per spec §6: 0 is a clean shutdown, nonzero a failure.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	_, _ = fmt.Fprintln(os.Stderr, err)
	return 1
}
