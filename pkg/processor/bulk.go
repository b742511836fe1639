package processor

import (
	"github.com/nimbusgate/accessgraph/pkg/command"
	"github.com/nimbusgate/accessgraph/pkg/errtypes"
	"github.com/nimbusgate/accessgraph/pkg/graph"
)

// inverseOp undoes one already-applied BulkOp, used for reverse-order
// rollback when a transactional bulk update fails partway through.
type inverseOp func(g *graph.TenantGraph) error

// dispatchBulk applies req.Operations in order. If req.Transactional
// and any operation fails, every already-applied operation is undone in
// reverse order and the whole command fails with that operation's
// error; otherwise each operation's outcome is reported independently
// and the command itself always succeeds.
func (p *Processor) dispatchBulk(req command.BulkPermissionUpdateReq) command.Result {
	results := make([]command.BulkOpResult, 0, len(req.Operations))
	var undo []inverseOp
	var rows []interface{}

	for i, op := range req.Operations {
		permID, inv, err := p.applyBulkOp(op)
		if err != nil {
			results = append(results, command.BulkOpResult{Index: i, Success: false, Error: errtypes.Kind(err)})
			if req.Transactional {
				p.rollback(undo)
				return command.Result{
					Kind:    command.KindBulkPermissionUpdate,
					Payload: command.BulkResult{Results: results},
					Err:     err,
				}
			}
			if req.StopOnFirstError {
				break
			}
			continue
		}
		results = append(results, command.BulkOpResult{Index: i, Success: true, PermissionID: permID})
		undo = append(undo, inv)
		if row := bulkOpRow(op, permID); row != nil {
			rows = append(rows, row)
		}
	}

	// Rows are only write-behinded once the whole batch is known to
	// commit: a transactional failure above returns before this point,
	// so nothing already undone in memory is ever persisted.
	for _, row := range rows {
		p.submitMutationRow(command.KindBulkPermissionUpdate, row)
	}

	return command.Result{Kind: command.KindBulkPermissionUpdate, Payload: command.BulkResult{Results: results}}
}

func (p *Processor) applyBulkOp(op command.BulkOp) (permID int, undo inverseOp, err error) {
	switch op.Kind {
	case command.BulkOpGrant, command.BulkOpDeny:
		polarity := graph.Grant
		if op.Kind == command.BulkOpDeny {
			polarity = graph.Deny
		}
		perm := &graph.Permission{
			ID:       p.g.NextPermissionID(),
			EntityID: op.EntityID,
			URI:      op.URI,
			Verb:     op.Verb,
			Polarity: polarity,
			Scheme:   op.Scheme,
			Expiry:   op.Expiry,
		}
		if err := p.g.AttachPermission(op.EntityID, perm); err != nil {
			return 0, nil, err
		}
		return perm.ID, func(g *graph.TenantGraph) error { return g.DetachPermission(perm.ID) }, nil

	case command.BulkOpRevoke:
		perm, ok := p.g.PermissionIndex[op.PermissionID]
		if !ok {
			return 0, nil, errtypes.NotFound("permission")
		}
		saved := *perm // copy before detach so rollback can reattach
		if err := p.g.DetachPermission(op.PermissionID); err != nil {
			return 0, nil, err
		}
		return op.PermissionID, func(g *graph.TenantGraph) error {
			restored := saved
			return g.AttachPermission(restored.EntityID, &restored)
		}, nil

	default:
		return 0, nil, errtypes.Validation("unrecognized bulk operation kind")
	}
}

func (p *Processor) rollback(undo []inverseOp) {
	for i := len(undo) - 1; i >= 0; i-- {
		if err := undo[i](p.g); err != nil {
			p.logger.Error("bulk rollback step failed, graph may be inconsistent", err, map[string]string{"tenant_id": p.tenantID})
		}
	}
}
