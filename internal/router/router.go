// Package router implements the gateway's per-request tenant dispatch
// (spec §4.9, C9): resolve a tenant id, ensure its backend is running,
// reuse a persistent RPC channel per endpoint, and retry transient
// transport failures behind a per-tenant circuit breaker.
package router

import (
	"context"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v2"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/nimbusgate/accessgraph/internal/rpcservice"
	"github.com/nimbusgate/accessgraph/internal/supervisor"
	"github.com/nimbusgate/accessgraph/pkg/errtypes"
	"github.com/nimbusgate/accessgraph/pkg/log"
	"github.com/nimbusgate/accessgraph/pkg/wire"
)

// retryBackoffs is spec §4.9's retry policy: up to 2 retries with
// 100ms, 300ms backoff.
var retryBackoffs = []time.Duration{100 * time.Millisecond, 300 * time.Millisecond}

// channelCacheTTL bounds how long an idle per-tenant channel is kept
// before being closed and evicted, mirroring the teacher's
// ttlcache-backed provider/stat caches.
const channelCacheTTL = 10 * time.Minute

// Dialer opens an RPC channel to endpoint; overridable in tests.
type Dialer func(endpoint string) (*rpcservice.Client, error)

// Router owns the tenant-id-to-channel cache and per-tenant breakers.
type Router struct {
	supervisor *supervisor.Supervisor
	dial       Dialer
	logger     log.Logger

	channels *ttlcache.Cache

	mu       sync.Mutex
	breakers map[string]*breaker
}

// New builds a Router over sup. dial defaults to a real gRPC dial when
// nil.
func New(sup *supervisor.Supervisor, dial Dialer, logger log.Logger) *Router {
	if dial == nil {
		dial = func(endpoint string) (*rpcservice.Client, error) { return rpcservice.Dial(endpoint) }
	}
	cache := ttlcache.NewCache()
	_ = cache.SetTTL(channelCacheTTL)
	cache.SetExpirationCallback(func(key string, value interface{}) {
		if c, ok := value.(*rpcservice.Client); ok {
			_ = c.Close()
		}
	})

	return &Router{
		supervisor: sup,
		dial:       dial,
		logger:     logger,
		channels:   cache,
		breakers:   make(map[string]*breaker),
	}
}

// Dispatch resolves tenantID's backend, sends req over its (cached,
// reused) RPC channel, and retries per spec §4.9's policy on transient
// transport failure.
func (r *Router) Dispatch(ctx context.Context, tenantID string, req *wire.CommandRequest) (*wire.CommandResponse, error) {
	b := r.breakerFor(tenantID)
	if !b.Allow() {
		return nil, errBreakerOpen(tenantID)
	}

	var lastErr error
	for attempt := 0; attempt <= len(retryBackoffs); attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(retryBackoffs[attempt-1]):
			case <-ctx.Done():
				return nil, errtypes.Cancelled(ctx.Err().Error())
			}
		}

		resp, err := r.tryDispatch(ctx, tenantID, req)
		if err == nil {
			b.RecordSuccess()
			return resp, nil
		}
		lastErr = err
		if !isTransient(err) {
			return nil, err
		}
		r.invalidateChannel(tenantID)
	}

	b.RecordFailure()
	return nil, lastErr
}

func (r *Router) tryDispatch(ctx context.Context, tenantID string, req *wire.CommandRequest) (*wire.CommandResponse, error) {
	endpoint, err := r.supervisor.EnsureRunning(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	client, err := r.channelFor(tenantID, endpoint)
	if err != nil {
		return nil, err
	}

	return client.ExecuteCommand(ctx, req)
}

// channelFor returns the cached RPC client for tenantID, dialing and
// caching one if absent (spec §4.9 step 3: one channel per endpoint,
// shared by concurrent requests).
func (r *Router) channelFor(tenantID, endpoint string) (*rpcservice.Client, error) {
	if v, err := r.channels.Get(tenantID); err == nil {
		if c, ok := v.(*rpcservice.Client); ok {
			return c, nil
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if v, err := r.channels.Get(tenantID); err == nil {
		if c, ok := v.(*rpcservice.Client); ok {
			return c, nil
		}
	}

	client, err := r.dial(endpoint)
	if err != nil {
		return nil, errtypes.DeadlineExceeded("dial " + tenantID + ": " + err.Error())
	}
	_ = r.channels.Set(tenantID, client)
	return client, nil
}

func (r *Router) invalidateChannel(tenantID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if v, err := r.channels.Get(tenantID); err == nil {
		if c, ok := v.(*rpcservice.Client); ok {
			_ = c.Close()
		}
	}
	_ = r.channels.Remove(tenantID)
}

func (r *Router) breakerFor(tenantID string) *breaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.breakers[tenantID]
	if !ok {
		b = &breaker{}
		r.breakers[tenantID] = b
	}
	return b
}

// isTransient reports whether err is worth retrying per spec §7's
// Transient category: a transport-level failure (connection refused,
// backend unavailable, dial timeout) rather than an application error
// the backend already ran a command and decided on. Application errors
// arrive as a successful RPC carrying resp.ErrorKind, never as a Go
// error here, so this only has to classify gRPC status codes and our
// own dial/cancellation wrapping.
func isTransient(err error) bool {
	if st, ok := status.FromError(err); ok {
		switch st.Code() {
		case codes.Unavailable, codes.DeadlineExceeded, codes.Aborted, codes.ResourceExhausted:
			return true
		default:
			return false
		}
	}
	switch errtypes.Kind(err) {
	case "DeadlineExceeded", "StartupFailed":
		return true
	default:
		return false
	}
}
