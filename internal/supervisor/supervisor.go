// Package supervisor implements the gateway's per-tenant backend
// process lifecycle (spec §4.8, C8): spawning a tenant backend on
// demand, polling it healthy, tearing it down on repeated failure, and
// handing back the live set of held ports. Grounded on the teacher's
// cmd/revad/grace package for pidfile/process-handle conventions,
// adapted here to a parent process managing many short-lived children
// instead of a process managing its own graceful restart.
package supervisor

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/nimbusgate/accessgraph/internal/rpcservice"
	"github.com/nimbusgate/accessgraph/pkg/errtypes"
	"github.com/nimbusgate/accessgraph/pkg/log"
	"github.com/nimbusgate/accessgraph/pkg/wire"
)

// Status is a tenant backend's lifecycle state.
type Status int

const (
	Starting Status = iota
	Healthy
	Unhealthy
	Stopped
)

func (s Status) String() string {
	switch s {
	case Starting:
		return "Starting"
	case Healthy:
		return "Healthy"
	case Unhealthy:
		return "Unhealthy"
	default:
		return "Stopped"
	}
}

// startupPollInterval/startupTimeout govern EnsureRunning's health poll
// (spec §4.8: every 1s up to 30s).
const (
	startupPollInterval = time.Second
	startupTimeout      = 30 * time.Second

	healthProbeInterval      = 5 * time.Second
	healthFailureThreshold   = 3
	gracefulShutdownDeadline = 5 * time.Second
)

// tenantProcess is one supervised backend's live state.
type tenantProcess struct {
	mu sync.Mutex

	tenantID        string
	port            int
	endpoint        string
	status          Status
	startTime       time.Time
	lastHealthProbe time.Time
	failureStreak   int

	cmd    *exec.Cmd
	client *rpcservice.Client
}

// Config parameterizes how Supervisor spawns and reaches a backend.
type Config struct {
	// Program is the backend binary to exec, e.g. "accessd".
	Program string
	// MinPort/MaxPort bound the port range EnsureRunning allocates from.
	MinPort, MaxPort int
	// ConnectionStringTemplate carries a "{TenantId}" placeholder,
	// substituted and passed as BASE_CONNECTION_STRING.
	ConnectionStringTemplate string
	// Dial opens an rpcservice.Client to a freshly-spawned backend;
	// overridable in tests to avoid a real network dial.
	Dial func(endpoint string) (*rpcservice.Client, error)
	// StartupTimeout bounds EnsureRunning's health poll; defaults to
	// startupTimeout (30s) when zero.
	StartupTimeout time.Duration
}

// Supervisor owns the tenant table and port pool described by spec §4.8
// and §5 ("Ports are managed through a per-supervisor mutex-guarded
// set").
type Supervisor struct {
	cfg    Config
	logger log.Logger

	mu        sync.Mutex
	processes map[string]*tenantProcess
	ports     map[int]string // port -> tenantID; releasePort deletes the entry
	nextPort  int
}

// New builds a Supervisor. cfg.Dial defaults to a real gRPC dial if nil.
func New(cfg Config, logger log.Logger) *Supervisor {
	if cfg.Dial == nil {
		cfg.Dial = func(endpoint string) (*rpcservice.Client, error) {
			return rpcservice.Dial(endpoint)
		}
	}
	if cfg.StartupTimeout <= 0 {
		cfg.StartupTimeout = startupTimeout
	}
	return &Supervisor{
		cfg:       cfg,
		logger:    logger,
		processes: make(map[string]*tenantProcess),
		ports:     make(map[int]string),
		nextPort:  cfg.MinPort,
	}
}

// EnsureRunning returns tenantID's live endpoint, spawning and
// health-polling a new backend process if one isn't already healthy.
// Idempotent: concurrent/repeated calls for an already-healthy tenant
// return the same endpoint without starting anything.
func (s *Supervisor) EnsureRunning(ctx context.Context, tenantID string) (string, error) {
	s.mu.Lock()
	tp, ok := s.processes[tenantID]
	if ok {
		tp.mu.Lock()
		status, endpoint := tp.status, tp.endpoint
		tp.mu.Unlock()
		if status == Healthy {
			s.mu.Unlock()
			return endpoint, nil
		}
	}
	if !ok {
		tp = &tenantProcess{tenantID: tenantID, status: Starting, startTime: time.Now()}
		s.processes[tenantID] = tp
	}
	s.mu.Unlock()

	return s.start(ctx, tp)
}

func (s *Supervisor) start(ctx context.Context, tp *tenantProcess) (string, error) {
	tp.mu.Lock()
	if tp.status == Healthy {
		endpoint := tp.endpoint
		tp.mu.Unlock()
		return endpoint, nil
	}
	tp.mu.Unlock()

	port, err := s.allocatePort(tp.tenantID)
	if err != nil {
		return "", err
	}
	endpoint := fmt.Sprintf("127.0.0.1:%d", port)

	connStr := strings.ReplaceAll(s.cfg.ConnectionStringTemplate, "{TenantId}", tp.tenantID)
	cmd := exec.CommandContext(context.Background(), s.cfg.Program,
		"--tenant", tp.tenantID, "--port", strconv.Itoa(port))
	cmd.Env = append(cmd.Env,
		"TENANT_ID="+tp.tenantID,
		"GRPC_PORT="+strconv.Itoa(port),
		"BASE_CONNECTION_STRING="+connStr,
	)

	if err := cmd.Start(); err != nil {
		s.releasePort(port)
		tp.mu.Lock()
		tp.status = Stopped
		tp.mu.Unlock()
		return "", errtypes.StartupFailed(fmt.Sprintf("exec %s: %v", s.cfg.Program, err))
	}

	tp.mu.Lock()
	tp.port = port
	tp.endpoint = endpoint
	tp.cmd = cmd
	tp.status = Starting
	tp.mu.Unlock()

	if err := s.pollHealthy(ctx, tp); err != nil {
		s.reap(tp)
		return "", err
	}

	tp.mu.Lock()
	tp.status = Healthy
	tp.lastHealthProbe = time.Now()
	tp.mu.Unlock()
	return endpoint, nil
}

func (s *Supervisor) pollHealthy(ctx context.Context, tp *tenantProcess) error {
	deadline := time.Now().Add(s.cfg.StartupTimeout)
	ticker := time.NewTicker(startupPollInterval)
	defer ticker.Stop()

	for {
		client, err := s.cfg.Dial(tp.endpoint)
		if err == nil {
			hctx, cancel := context.WithTimeout(ctx, startupPollInterval)
			resp, herr := client.HealthCheck(hctx, &wire.HealthRequest{})
			cancel()
			if herr == nil && resp.Healthy {
				tp.mu.Lock()
				tp.client = client
				tp.mu.Unlock()
				return nil
			}
			_ = client.Close()
		}

		if time.Now().After(deadline) {
			return errtypes.StartupFailed("tenant " + tp.tenantID + " did not become healthy within startup window")
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return errtypes.Cancelled(ctx.Err().Error())
		}
	}
}

// Stop gracefully shuts tenantID's process down, forcibly killing it
// after gracefulShutdownDeadline, and releases its port.
func (s *Supervisor) Stop(tenantID string) error {
	s.mu.Lock()
	tp, ok := s.processes[tenantID]
	s.mu.Unlock()
	if !ok {
		return errtypes.NotFound("tenant process " + tenantID)
	}
	s.reap(tp)
	return nil
}

func (s *Supervisor) reap(tp *tenantProcess) {
	tp.mu.Lock()
	cmd := tp.cmd
	client := tp.client
	port := tp.port
	tp.status = Stopped
	tp.client = nil
	tp.mu.Unlock()

	if client != nil {
		_ = client.Close()
	}
	if cmd != nil && cmd.Process != nil {
		_ = cmd.Process.Signal(syscall.SIGTERM)
		done := make(chan struct{})
		go func() { _, _ = cmd.Process.Wait(); close(done) }()
		select {
		case <-done:
		case <-time.After(gracefulShutdownDeadline):
			_ = cmd.Process.Kill()
		}
	}
	if port != 0 {
		s.releasePort(port)
	}
}

// HealthProbe polls every managed tenant's live process once; call this
// on a healthFailureThreshold-aware ticker (spec §4.8: every 5s, three
// consecutive failures tears the process down).
func (s *Supervisor) HealthProbe(ctx context.Context) {
	s.mu.Lock()
	snapshot := make([]*tenantProcess, 0, len(s.processes))
	for _, tp := range s.processes {
		snapshot = append(snapshot, tp)
	}
	s.mu.Unlock()

	for _, tp := range snapshot {
		tp.mu.Lock()
		status, client := tp.status, tp.client
		tp.mu.Unlock()
		if status != Healthy || client == nil {
			continue
		}

		hctx, cancel := context.WithTimeout(ctx, healthProbeInterval)
		resp, err := client.HealthCheck(hctx, &wire.HealthRequest{})
		cancel()

		tp.mu.Lock()
		tp.lastHealthProbe = time.Now()
		if err != nil || !resp.Healthy {
			tp.failureStreak++
		} else {
			tp.failureStreak = 0
		}
		failed := tp.failureStreak >= healthFailureThreshold
		if failed {
			tp.status = Unhealthy
		}
		tp.mu.Unlock()

		if failed {
			s.logger.Warn("tenant backend failed health probe threshold, tearing down", map[string]string{"tenant_id": tp.tenantID})
			s.reap(tp)
		}
	}
}

// Shutdown tears down every managed process, releasing all held ports.
func (s *Supervisor) Shutdown() {
	s.mu.Lock()
	snapshot := make([]*tenantProcess, 0, len(s.processes))
	for _, tp := range s.processes {
		snapshot = append(snapshot, tp)
	}
	s.mu.Unlock()

	for _, tp := range snapshot {
		s.reap(tp)
	}
}

func (s *Supervisor) allocatePort(tenantID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	span := s.cfg.MaxPort - s.cfg.MinPort + 1
	for i := 0; i < span; i++ {
		candidate := s.cfg.MinPort + (s.nextPort-s.cfg.MinPort+i)%span
		if _, held := s.ports[candidate]; !held {
			s.ports[candidate] = tenantID
			s.nextPort = candidate + 1
			return candidate, nil
		}
	}
	return 0, errtypes.CapacityExceeded("no free port in configured range")
}

func (s *Supervisor) releasePort(port int) {
	s.mu.Lock()
	delete(s.ports, port)
	s.mu.Unlock()
}
