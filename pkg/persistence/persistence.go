// Package persistence defines the durable-store boundary (spec §4.7):
// the write-behind sink a tenant's processor drains mutations and audit
// records into, and the bulk loader hydration reads a snapshot from.
// Concrete backends (package sqlstore) implement Sink against
// database/sql.
package persistence

import (
	"context"
	"time"

	"github.com/nimbusgate/accessgraph/pkg/command"
)

// MutationRecord captures one applied mutation for durable storage.
type MutationRecord struct {
	TenantID  string
	Kind      command.Kind
	Payload   interface{}
	AppliedAt time.Time
}

// AuditRecord captures the outcome of any command, mutation or query,
// for the audit log (spec §4.7).
type AuditRecord struct {
	TenantID  string
	Kind      command.Kind
	Success   bool
	ErrorKind string
	At        time.Time
}

// EntitySnapshot is one entity row as loaded by LoadTenantSnapshot.
type EntitySnapshot struct {
	ID       int
	Variant  int // graph.Variant, kept as int to avoid importing pkg/graph here
	Name     string
	Metadata map[string]string
}

// EdgeSnapshot is one parent/child row.
type EdgeSnapshot struct {
	ParentID int
	ChildID  int
}

// PermissionSnapshot is one permission row.
type PermissionSnapshot struct {
	ID         int
	EntityID   int
	URI        string
	Verb       int // graph.Verb
	Polarity   int // graph.Polarity
	Scheme     int // graph.Scheme
	ExpiryUnix *int64
}

// TenantSnapshot is everything the hydration engine needs to rebuild a
// tenant's graph from durable storage (spec §4.6).
type TenantSnapshot struct {
	Entities    []EntitySnapshot
	Edges       []EdgeSnapshot
	Permissions []PermissionSnapshot
}

// EntityUpsert is a MutationRecord.Payload shape for entity creation
// and rename.
type EntityUpsert struct {
	ID       int
	Variant  int
	Name     string
	Metadata map[string]string
}

// EntityDelete is a MutationRecord.Payload shape for DeleteEntity.
type EntityDelete struct{ ID int }

// EdgeUpsert is a MutationRecord.Payload shape for any Add*To* link.
type EdgeUpsert struct{ ParentID, ChildID int }

// EdgeDelete is a MutationRecord.Payload shape for any Remove*From*
// unlink.
type EdgeDelete struct{ ParentID, ChildID int }

// PermissionUpsert is a MutationRecord.Payload shape for
// GrantPermission/DenyPermission.
type PermissionUpsert struct {
	ID         int
	EntityID   int
	URI        string
	Verb       int
	Polarity   int
	Scheme     int
	ExpiryUnix *int64
}

// PermissionDelete is a MutationRecord.Payload shape for
// RevokePermission.
type PermissionDelete struct{ ID int }

// Sink is the durable-store contract a processor writes behind into.
// Implementations must preserve call order per tenant; PersistMutation
// and AppendAuditRecord are invoked from a single background goroutine
// per tenant, never concurrently with each other.
type Sink interface {
	PersistMutation(ctx context.Context, rec MutationRecord) error
	AppendAuditRecord(ctx context.Context, rec AuditRecord) error
	LoadTenantSnapshot(ctx context.Context, tenantID string) (*TenantSnapshot, error)
}
