// Package processor implements the single-writer command processor
// (spec §4.5/§5): the only goroutine that ever mutates a tenant's
// graph.TenantGraph. It drains pkg/channel's bounded queue, dispatches
// each command by type, replies, and write-behinds successful mutations
// and every command's outcome to pkg/persistence on a separate
// goroutine so storage latency never blocks the next dequeue.
package processor

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/nimbusgate/accessgraph/pkg/channel"
	"github.com/nimbusgate/accessgraph/pkg/command"
	"github.com/nimbusgate/accessgraph/pkg/errtypes"
	"github.com/nimbusgate/accessgraph/pkg/graph"
	"github.com/nimbusgate/accessgraph/pkg/log"
	"github.com/nimbusgate/accessgraph/pkg/persistence"
	"github.com/nimbusgate/accessgraph/pkg/views"
)

// Processor owns one tenant's graph, views and command queue.
type Processor struct {
	tenantID string
	g        *graph.TenantGraph
	v        *views.Views
	queue    *channel.Queue
	sink     persistence.Sink
	logger   log.Logger

	startedAt time.Time

	commandsProcessed    atomic.Uint64
	persistenceDegraded  atomic.Bool
	persistFailureStreak atomic.Uint32

	persistQueue chan persistJob
}

type persistJob struct {
	mutation *persistence.MutationRecord
	audit    *persistence.AuditRecord
}

// persistenceDegradeThreshold is the number of consecutive write-behind
// failures (mutation or audit) that flips HealthCheck's
// PersistenceDegraded flag, per spec §4.7.
const persistenceDegradeThreshold = 3

// New builds a Processor over an already-hydrated graph/views pair.
func New(tenantID string, g *graph.TenantGraph, v *views.Views, queue *channel.Queue, sink persistence.Sink, logger log.Logger) *Processor {
	p := &Processor{
		tenantID:     tenantID,
		g:            g,
		v:            v,
		queue:        queue,
		sink:         sink,
		logger:       logger,
		startedAt:    time.Now(),
		persistQueue: make(chan persistJob, 256),
	}
	return p
}

// Run drains the command queue until it is closed and drained, then
// closes the persistence write-behind queue so RunPersistWorker can
// finish. The two run on separate goroutines: Run for the command
// loop, and RunPersistWorker for the write-behind worker.
func (p *Processor) Run(ctx context.Context) {
	for {
		env, ok := p.queue.Receive()
		if !ok {
			close(p.persistQueue)
			return
		}
		result := p.dispatch(ctx, env.Cmd)
		p.commandsProcessed.Add(1)
		env.Reply <- result

		p.submitAudit(env.Cmd.Kind, result)
		if isMutation(env.Cmd.Kind) && result.Err == nil {
			p.submitMutation(env.Cmd, result)
		}
	}
}

// RunPersistWorker drains the write-behind queue sequentially,
// preserving per-tenant order, until the queue is closed (which happens
// once Run observes a closed command queue).
func (p *Processor) RunPersistWorker(ctx context.Context) {
	for job := range p.persistQueue {
		if job.mutation != nil {
			if err := p.sink.PersistMutation(ctx, *job.mutation); err != nil {
				p.logger.Error("write-behind: persist mutation failed", err, map[string]string{"tenant_id": p.tenantID})
				p.recordPersistFailure()
			} else {
				p.recordPersistSuccess()
			}
		}
		if job.audit != nil {
			if err := p.sink.AppendAuditRecord(ctx, *job.audit); err != nil {
				p.logger.Error("write-behind: append audit failed", err, map[string]string{"tenant_id": p.tenantID})
				p.recordPersistFailure()
			} else {
				p.recordPersistSuccess()
			}
		}
	}
}

func (p *Processor) recordPersistFailure() {
	n := p.persistFailureStreak.Add(1)
	if n >= persistenceDegradeThreshold {
		p.persistenceDegraded.Store(true)
	}
}

func (p *Processor) recordPersistSuccess() {
	p.persistFailureStreak.Store(0)
	p.persistenceDegraded.Store(false)
}

func (p *Processor) submitAudit(kind command.Kind, result command.Result) {
	rec := persistence.AuditRecord{
		TenantID: p.tenantID,
		Kind:     kind,
		Success:  result.Err == nil,
		At:       time.Now(),
	}
	if result.Err != nil {
		rec.ErrorKind = errtypes.Kind(result.Err)
	}
	select {
	case p.persistQueue <- persistJob{audit: &rec}:
	default:
		p.logger.Warn("write-behind queue full, dropping audit record", map[string]string{"tenant_id": p.tenantID})
		p.recordPersistFailure()
	}
}

func (p *Processor) submitMutation(cmd command.Command, result command.Result) {
	payload := mutationRowFor(cmd, result)
	if payload == nil {
		return
	}
	p.submitMutationRow(cmd.Kind, payload)
}

// submitMutationRow write-behinds a precomputed row for cases where the
// row can't be derived from a single Command/Result pair — each op in a
// BulkPermissionUpdate gets its own row this way, built as it's applied
// rather than reconstructed afterwards from BulkResult.
func (p *Processor) submitMutationRow(kind command.Kind, payload interface{}) {
	rec := persistence.MutationRecord{
		TenantID:  p.tenantID,
		Kind:      kind,
		Payload:   payload,
		AppliedAt: time.Now(),
	}
	select {
	case p.persistQueue <- persistJob{mutation: &rec}:
	default:
		p.logger.Warn("write-behind queue full, dropping mutation", map[string]string{"tenant_id": p.tenantID})
		p.recordPersistFailure()
	}
}

// HealthSnapshot reports the processor's liveness without going through
// the command queue, so it stays responsive even when the queue is
// saturated (spec §4.9's health probe contract).
type HealthSnapshot struct {
	UptimeSeconds       uint64
	CommandsProcessed   uint64
	QueueDepth          int
	PersistenceDegraded bool
}

// Health returns a point-in-time snapshot, safe to call concurrently
// with Run.
func (p *Processor) Health() HealthSnapshot {
	return HealthSnapshot{
		UptimeSeconds:       uint64(time.Since(p.startedAt).Seconds()),
		CommandsProcessed:   p.commandsProcessed.Load(),
		QueueDepth:          p.queue.Len(),
		PersistenceDegraded: p.persistenceDegraded.Load(),
	}
}

// isMutation reports whether kind's successful execution needs a
// write-behind row.
func isMutation(kind command.Kind) bool {
	switch kind {
	case command.KindCreateUser, command.KindCreateGroup, command.KindCreateRole,
		command.KindUpdateEntityName, command.KindDeleteEntity,
		command.KindAddUserToGroup, command.KindRemoveUserFromGroup,
		command.KindAddGroupToGroup, command.KindRemoveGroupFromGroup,
		command.KindAssignUserToRole, command.KindUnassignUserFromRole,
		command.KindAddRoleToGroup, command.KindRemoveRoleFromGroup,
		command.KindGrantPermission, command.KindDenyPermission, command.KindRevokePermission,
		command.KindBulkPermissionUpdate:
		return true
	default:
		return false
	}
}
