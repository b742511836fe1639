package command

import "github.com/nimbusgate/accessgraph/pkg/graph"

// Result is what a Command produces: a typed payload on success, or Err
// set to a tagged error from pkg/errtypes on failure. Payload is unset
// on failure, except for a failed transactional BulkPermissionUpdate,
// which carries both Err and its per-operation BulkResult.
type Result struct {
	Kind    Kind
	Payload interface{}
	Err     error
}

// EntityDTO is the wire/API projection of a graph.Entity: plain data,
// no back-references to the live graph.
type EntityDTO struct {
	ID       int
	Variant  graph.Variant
	Name     string
	Metadata map[string]string
	Parents  []int
	Children []int
}

// PermissionDTO is the wire/API projection of a graph.Permission.
type PermissionDTO struct {
	ID         int
	EntityID   int
	URI        string
	Verb       graph.Verb
	Polarity   graph.Polarity
	Scheme     graph.Scheme
	ExpiryUnix *int64 // seconds since epoch, nil if no expiry
}

// TraceEntryDTO is one entry of an evaluation trace, see resolver.TraceEntry.
type TraceEntryDTO struct {
	EntityID     int
	PermissionID int
	URI          string
	Verb         graph.Verb
	Polarity     graph.Polarity
	Specificity  int
	Distance     int
	Outcome      string
}

// EffectivePermissionDTO mirrors resolver.EffectivePermission.
type EffectivePermissionDTO struct {
	URI      string
	Verb     graph.Verb
	Polarity graph.Polarity
	Distance int
}

// BulkOpResult reports the outcome of one BulkOp within a
// BulkPermissionUpdate, in request order.
type BulkOpResult struct {
	Index        int
	Success      bool
	PermissionID int // set for Grant/Deny on success
	Error        string
}

// --- result payloads ---

// CreatedResult is returned by every Create* command.
type CreatedResult struct{ ID int }

// OKResult is returned by mutations that produce no data (rename,
// delete, link/unlink, revoke).
type OKResult struct{}

// PermissionResult is returned by GrantPermission / DenyPermission.
type PermissionResult struct{ PermissionID int }

// EntityResult is returned by GetEntity.
type EntityResult struct{ Entity EntityDTO }

// EntityListResult is returned by ListEntities.
type EntityListResult struct {
	Entities []EntityDTO
	Total    int
}

// PermissionListResult is returned by ListEntityPermissions and
// ListResourcePermissions.
type PermissionListResult struct {
	Permissions []PermissionDTO
}

// EvaluateResult is returned by EvaluatePermission.
type EvaluateResult struct {
	Allowed bool
	Reason  string
	Trace   []TraceEntryDTO
}

// EffectivePermissionsResult is returned by GetEffectivePermissions.
type EffectivePermissionsResult struct {
	Permissions []EffectivePermissionDTO
}

// BulkResult is returned by BulkPermissionUpdate.
type BulkResult struct {
	Results []BulkOpResult
}

// HealthResult is returned by HealthCheck, per spec §4.7/§4.9.
type HealthResult struct {
	Healthy             bool
	UptimeSeconds       uint64
	CommandsProcessed   uint64
	PersistenceDegraded bool
}
