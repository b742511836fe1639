package supervisor_test

import (
	"context"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nimbusgate/accessgraph/internal/rpcservice"
	"github.com/nimbusgate/accessgraph/internal/supervisor"
	"github.com/nimbusgate/accessgraph/pkg/command"
	"github.com/nimbusgate/accessgraph/pkg/errtypes"
	"github.com/nimbusgate/accessgraph/pkg/log"
)

// fakeBackend starts a bufconn-backed rpcservice server that reports
// healthy or not, standing in for a real spawned tenant process.
func fakeBackend(t *testing.T, healthy func() bool) func(endpoint string) (*rpcservice.Client, error) {
	t.Helper()
	srv := rpcservice.NewServer(nil, func() command.HealthResult {
		return command.HealthResult{Healthy: healthy()}
	}, log.Nop())

	lis := bufconn.Listen(1024 * 1024)
	gs := grpc.NewServer()
	rpcservice.RegisterServer(gs, srv)
	go func() { _ = gs.Serve(lis) }()
	t.Cleanup(gs.Stop)

	return func(endpoint string) (*rpcservice.Client, error) {
		return rpcservice.Dial("passthrough:///bufnet",
			grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.Dial() }),
			grpc.WithTransportCredentials(insecure.NewCredentials()),
		)
	}
}

func alwaysHealthy() bool { return true }

func newTestSupervisor(dial func(string) (*rpcservice.Client, error)) *supervisor.Supervisor {
	return supervisor.New(supervisor.Config{
		Program:                  "true",
		MinPort:                  20000,
		MaxPort:                  20000,
		ConnectionStringTemplate: "sqlite:///tmp/{TenantId}.db",
		Dial:                     dial,
	}, log.Nop())
}

func TestEnsureRunningIsIdempotentOnceHealthy(t *testing.T) {
	s := newTestSupervisor(fakeBackend(t, alwaysHealthy))

	ep1, err := s.EnsureRunning(context.Background(), "tenant-a")
	require.NoError(t, err)

	ep2, err := s.EnsureRunning(context.Background(), "tenant-a")
	require.NoError(t, err)
	assert.Equal(t, ep1, ep2)
}

func TestEnsureRunningExhaustsPortRange(t *testing.T) {
	s := newTestSupervisor(fakeBackend(t, alwaysHealthy))

	_, err := s.EnsureRunning(context.Background(), "tenant-a")
	require.NoError(t, err)
	_, err = s.EnsureRunning(context.Background(), "tenant-b")
	require.Error(t, err)
	assert.Equal(t, "CapacityExceeded", errtypes.Kind(err))
}

func TestStopReleasesPortForReuse(t *testing.T) {
	s := newTestSupervisor(fakeBackend(t, alwaysHealthy))

	_, err := s.EnsureRunning(context.Background(), "tenant-a")
	require.NoError(t, err)
	require.NoError(t, s.Stop("tenant-a"))

	_, err = s.EnsureRunning(context.Background(), "tenant-b")
	require.NoError(t, err)
}

func TestStopUnknownTenantReturnsNotFound(t *testing.T) {
	s := newTestSupervisor(fakeBackend(t, alwaysHealthy))
	err := s.Stop("never-started")
	require.Error(t, err)
	assert.Equal(t, "NotFound", errtypes.Kind(err))
}

func TestEnsureRunningFailsFastWithShortStartupTimeout(t *testing.T) {
	s := supervisor.New(supervisor.Config{
		Program:                  "true",
		MinPort:                  20000,
		MaxPort:                  20001,
		ConnectionStringTemplate: "sqlite:///tmp/{TenantId}.db",
		Dial: func(endpoint string) (*rpcservice.Client, error) {
			return nil, errtypes.DeadlineExceeded("dial never succeeds in this test")
		},
		StartupTimeout: 1200 * time.Millisecond,
	}, log.Nop())

	_, err := s.EnsureRunning(context.Background(), "tenant-a")
	require.Error(t, err)
	assert.Equal(t, "StartupFailed", errtypes.Kind(err))
}

func TestHealthProbeTearsDownAfterThreeFailures(t *testing.T) {
	healthy := true
	s := newTestSupervisor(fakeBackend(t, func() bool { return healthy }))

	_, err := s.EnsureRunning(context.Background(), "tenant-a")
	require.NoError(t, err)

	healthy = false
	for i := 0; i < 3; i++ {
		s.HealthProbe(context.Background())
	}

	// The tenant was torn down and its port released; once the backend
	// recovers, a fresh EnsureRunning call restarts and re-polls rather
	// than reusing the dead process's stale Healthy status.
	healthy = true
	_, err = s.EnsureRunning(context.Background(), "tenant-a")
	require.NoError(t, err)
}
