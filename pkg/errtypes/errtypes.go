// Package errtypes contains the tagged error variants that cross the
// RPC boundary between the tenant backend and the gateway (spec §7).
// Each variant is a string type implementing error plus a marker
// interface, so callers can type-assert on behavior instead of
// comparing against a sentinel value.
package errtypes

// NotFound is returned when a referenced entity, permission or tenant
// does not exist.
type NotFound string

func (e NotFound) Error() string { return "not found: " + string(e) }
func (e NotFound) IsNotFound()   {}

// EdgeMissing is returned when an Unlink operation targets an edge that
// does not exist.
type EdgeMissing string

func (e EdgeMissing) Error() string  { return "edge missing: " + string(e) }
func (e EdgeMissing) IsEdgeMissing() {}

// CyclicHierarchy is returned when linking parent/child would introduce
// a cycle in the ancestor graph.
type CyclicHierarchy string

func (e CyclicHierarchy) Error() string      { return "cyclic hierarchy: " + string(e) }
func (e CyclicHierarchy) IsCyclicHierarchy() {}

// CapacityExceeded is returned when a parent already has MAX_CHILDREN
// children, or a gateway port range is exhausted.
type CapacityExceeded string

func (e CapacityExceeded) Error() string       { return "capacity exceeded: " + string(e) }
func (e CapacityExceeded) IsCapacityExceeded() {}

// ConflictingPolarity is returned when attaching an Explicit permission
// whose URI+verb already has an Explicit permission of the opposite
// polarity attached to the same entity.
type ConflictingPolarity string

func (e ConflictingPolarity) Error() string         { return "conflicting polarity: " + string(e) }
func (e ConflictingPolarity) IsConflictingPolarity() {}

// InvalidRelation is returned when a Link would violate the entity
// variant hierarchy (e.g. a User as parent, or a Role as a parent of a
// Group).
type InvalidRelation string

func (e InvalidRelation) Error() string      { return "invalid relation: " + string(e) }
func (e InvalidRelation) IsInvalidRelation() {}

// Validation is returned for malformed client input (empty name, name
// too long, unknown verb, ...).
type Validation string

func (e Validation) Error() string { return "validation: " + string(e) }
func (e Validation) IsValidation() {}

// Cancelled is returned when a caller's context is done while the
// caller is still waiting to enqueue its command, or during a gateway
// retry wait or a supervisor startup poll. A command already in the
// queue is not checked against its caller's deadline when dequeued.
type Cancelled string

func (e Cancelled) Error() string { return "cancelled: " + string(e) }
func (e Cancelled) IsCancelled()  {}

// DeadlineExceeded is returned by the gateway when a transport deadline
// fires before a reply is received.
type DeadlineExceeded string

func (e DeadlineExceeded) Error() string       { return "deadline exceeded: " + string(e) }
func (e DeadlineExceeded) IsDeadlineExceeded() {}

// StartupFailed is returned when the supervisor cannot bring a tenant
// backend process to a healthy state within its startup window.
type StartupFailed string

func (e StartupFailed) Error() string    { return "startup failed: " + string(e) }
func (e StartupFailed) IsStartupFailed() {}

// Shutdown is returned to a submission made after the command channel
// has been closed for shutdown; envelopes already queued at that point
// are still processed.
type Shutdown string

func (e Shutdown) Error() string { return "shutdown: " + string(e) }
func (e Shutdown) IsShutdown()   {}

// TraceOverflow is returned by the resolver when a single evaluation
// would produce more than the maximum allowed trace entries.
type TraceOverflow string

func (e TraceOverflow) Error() string    { return "trace overflow: " + string(e) }
func (e TraceOverflow) IsTraceOverflow() {}

// Internal wraps an unexpected failure that is neither a validation nor
// a state-dependent conflict.
type Internal string

func (e Internal) Error() string { return "internal: " + string(e) }
func (e Internal) IsInternal()   {}

// IsNotFound reports whether err carries NotFound semantics.
type IsNotFound interface{ IsNotFound() }

// IsEdgeMissing reports whether err carries EdgeMissing semantics.
type IsEdgeMissing interface{ IsEdgeMissing() }

// IsCyclicHierarchy reports whether err carries CyclicHierarchy semantics.
type IsCyclicHierarchy interface{ IsCyclicHierarchy() }

// IsCapacityExceeded reports whether err carries CapacityExceeded semantics.
type IsCapacityExceeded interface{ IsCapacityExceeded() }

// IsConflictingPolarity reports whether err carries ConflictingPolarity semantics.
type IsConflictingPolarity interface{ IsConflictingPolarity() }

// IsInvalidRelation reports whether err carries InvalidRelation semantics.
type IsInvalidRelation interface{ IsInvalidRelation() }

// IsValidation reports whether err carries Validation semantics.
type IsValidation interface{ IsValidation() }

// IsCancelled reports whether err carries Cancelled semantics.
type IsCancelled interface{ IsCancelled() }

// IsDeadlineExceeded reports whether err carries DeadlineExceeded semantics.
type IsDeadlineExceeded interface{ IsDeadlineExceeded() }

// IsStartupFailed reports whether err carries StartupFailed semantics.
type IsStartupFailed interface{ IsStartupFailed() }

// IsShutdown reports whether err carries Shutdown semantics.
type IsShutdown interface{ IsShutdown() }

// IsTraceOverflow reports whether err carries TraceOverflow semantics.
type IsTraceOverflow interface{ IsTraceOverflow() }

// IsInternal reports whether err carries Internal semantics.
type IsInternal interface{ IsInternal() }

// Kind returns the wire error-kind string for err (§6), or "Internal" if
// err does not match any known tagged variant.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case asNotFound(err):
		return "NotFound"
	case asEdgeMissing(err):
		return "EdgeMissing"
	case asCyclicHierarchy(err):
		return "CyclicHierarchy"
	case asCapacityExceeded(err):
		return "CapacityExceeded"
	case asConflictingPolarity(err):
		return "ConflictingPolarity"
	case asInvalidRelation(err):
		return "InvalidArgument"
	case asValidation(err):
		return "InvalidArgument"
	case asCancelled(err):
		return "Cancelled"
	case asDeadlineExceeded(err):
		return "DeadlineExceeded"
	case asStartupFailed(err):
		return "StartupFailed"
	case asShutdown(err):
		return "Shutdown"
	case asTraceOverflow(err):
		return "TraceOverflow"
	default:
		return "Internal"
	}
}

func asNotFound(err error) bool            { _, ok := err.(IsNotFound); return ok }
func asEdgeMissing(err error) bool         { _, ok := err.(IsEdgeMissing); return ok }
func asCyclicHierarchy(err error) bool     { _, ok := err.(IsCyclicHierarchy); return ok }
func asCapacityExceeded(err error) bool    { _, ok := err.(IsCapacityExceeded); return ok }
func asConflictingPolarity(err error) bool { _, ok := err.(IsConflictingPolarity); return ok }
func asInvalidRelation(err error) bool     { _, ok := err.(IsInvalidRelation); return ok }
func asValidation(err error) bool          { _, ok := err.(IsValidation); return ok }
func asCancelled(err error) bool           { _, ok := err.(IsCancelled); return ok }
func asDeadlineExceeded(err error) bool    { _, ok := err.(IsDeadlineExceeded); return ok }
func asStartupFailed(err error) bool       { _, ok := err.(IsStartupFailed); return ok }
func asShutdown(err error) bool            { _, ok := err.(IsShutdown); return ok }
func asTraceOverflow(err error) bool       { _, ok := err.(IsTraceOverflow); return ok }
