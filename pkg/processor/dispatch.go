package processor

import (
	"context"
	"time"

	"github.com/nimbusgate/accessgraph/pkg/command"
	"github.com/nimbusgate/accessgraph/pkg/errtypes"
	"github.com/nimbusgate/accessgraph/pkg/graph"
	"github.com/nimbusgate/accessgraph/pkg/resolver"
)

// dispatch executes one command against the graph/views synchronously.
// It is only ever called from Run's single goroutine.
func (p *Processor) dispatch(ctx context.Context, cmd command.Command) command.Result {
	switch cmd.Kind {

	case command.KindCreateUser:
		req := cmd.Payload.(command.CreateUserReq)
		e, err := p.g.AddEntity(graph.User, req.Name)
		return resultFromCreate(cmd.Kind, e, err)

	case command.KindCreateGroup:
		req := cmd.Payload.(command.CreateGroupReq)
		e, err := p.g.AddEntity(graph.Group, req.Name)
		if err == nil && req.ParentGroupID != nil {
			if linkErr := p.g.LinkParentChild(*req.ParentGroupID, e.ID); linkErr != nil {
				_ = p.g.RemoveEntity(e.ID)
				err = linkErr
			}
		}
		return resultFromCreate(cmd.Kind, e, err)

	case command.KindCreateRole:
		req := cmd.Payload.(command.CreateRoleReq)
		e, err := p.g.AddEntity(graph.Role, req.Name)
		if err == nil && req.GroupID != nil {
			if linkErr := p.g.LinkParentChild(*req.GroupID, e.ID); linkErr != nil {
				_ = p.g.RemoveEntity(e.ID)
				err = linkErr
			}
		}
		return resultFromCreate(cmd.Kind, e, err)

	case command.KindUpdateEntityName:
		req := cmd.Payload.(command.UpdateEntityNameReq)
		err := p.g.RenameEntity(req.ID, req.Name)
		return resultOK(cmd.Kind, err)

	case command.KindDeleteEntity:
		req := cmd.Payload.(command.DeleteEntityReq)
		err := p.g.RemoveEntity(req.ID)
		return resultOK(cmd.Kind, err)

	case command.KindAddUserToGroup:
		req := cmd.Payload.(command.AddUserToGroupReq)
		return resultOK(cmd.Kind, p.g.LinkParentChild(req.GroupID, req.UserID))

	case command.KindRemoveUserFromGroup:
		req := cmd.Payload.(command.RemoveUserFromGroupReq)
		return resultOK(cmd.Kind, p.g.UnlinkParentChild(req.GroupID, req.UserID))

	case command.KindAddGroupToGroup:
		req := cmd.Payload.(command.AddGroupToGroupReq)
		return resultOK(cmd.Kind, p.g.LinkParentChild(req.ParentID, req.ChildID))

	case command.KindRemoveGroupFromGroup:
		req := cmd.Payload.(command.RemoveGroupFromGroupReq)
		return resultOK(cmd.Kind, p.g.UnlinkParentChild(req.ParentID, req.ChildID))

	case command.KindAssignUserToRole:
		req := cmd.Payload.(command.AssignUserToRoleReq)
		return resultOK(cmd.Kind, p.g.LinkParentChild(req.RoleID, req.UserID))

	case command.KindUnassignUserFromRole:
		req := cmd.Payload.(command.UnassignUserFromRoleReq)
		return resultOK(cmd.Kind, p.g.UnlinkParentChild(req.RoleID, req.UserID))

	case command.KindAddRoleToGroup:
		req := cmd.Payload.(command.AddRoleToGroupReq)
		return resultOK(cmd.Kind, p.g.LinkParentChild(req.GroupID, req.RoleID))

	case command.KindRemoveRoleFromGroup:
		req := cmd.Payload.(command.RemoveRoleFromGroupReq)
		return resultOK(cmd.Kind, p.g.UnlinkParentChild(req.GroupID, req.RoleID))

	case command.KindGrantPermission:
		req := cmd.Payload.(command.GrantPermissionReq)
		return p.attachPermission(cmd.Kind, req.EntityID, req.URI, req.Verb, graph.Grant, req.Scheme, req.Expiry)

	case command.KindDenyPermission:
		req := cmd.Payload.(command.DenyPermissionReq)
		return p.attachPermission(cmd.Kind, req.EntityID, req.URI, req.Verb, graph.Deny, req.Scheme, req.Expiry)

	case command.KindRevokePermission:
		req := cmd.Payload.(command.RevokePermissionReq)
		err := p.g.DetachPermission(req.PermissionID)
		return resultOK(cmd.Kind, err)

	case command.KindBulkPermissionUpdate:
		req := cmd.Payload.(command.BulkPermissionUpdateReq)
		return p.dispatchBulk(req)

	case command.KindGetEntity:
		req := cmd.Payload.(command.GetEntityReq)
		e, ok := p.g.Entities[req.ID]
		if !ok {
			return command.Result{Kind: cmd.Kind, Err: errtypes.NotFound("entity")}
		}
		return command.Result{Kind: cmd.Kind, Payload: command.EntityResult{Entity: toEntityDTO(e)}}

	case command.KindListEntities:
		req := cmd.Payload.(command.ListEntitiesReq)
		return p.listEntities(cmd.Kind, req)

	case command.KindListEntityPermissions:
		req := cmd.Payload.(command.ListEntityPermissionsReq)
		if _, ok := p.g.Entities[req.EntityID]; !ok {
			return command.Result{Kind: cmd.Kind, Err: errtypes.NotFound("entity")}
		}
		var perms []command.PermissionDTO
		for _, id := range p.v.EntityPermissions(req.EntityID) {
			if perm := p.g.PermissionIndex[id]; perm != nil {
				perms = append(perms, toPermissionDTO(perm))
			}
		}
		return command.Result{Kind: cmd.Kind, Payload: command.PermissionListResult{Permissions: perms}}

	case command.KindEvaluatePermission:
		req := cmd.Payload.(command.EvaluatePermissionReq)
		decision, err := resolver.Evaluate(p.g, p.v, req.EntityID, req.URI, req.Verb, time.Now())
		if err != nil {
			return command.Result{Kind: cmd.Kind, Err: err}
		}
		return command.Result{Kind: cmd.Kind, Payload: command.EvaluateResult{
			Allowed: decision.Allowed,
			Reason:  decision.Reason,
			Trace:   toTraceDTOs(decision.Trace),
		}}

	case command.KindGetEffectivePermissions:
		req := cmd.Payload.(command.GetEffectivePermissionsReq)
		eff, err := resolver.GetEffectivePermissions(p.g, p.v, req.EntityID, time.Now())
		if err != nil {
			return command.Result{Kind: cmd.Kind, Err: err}
		}
		out := make([]command.EffectivePermissionDTO, len(eff))
		for i, e := range eff {
			out[i] = command.EffectivePermissionDTO{URI: e.URI, Verb: e.Verb, Polarity: e.Polarity, Distance: e.Distance}
		}
		return command.Result{Kind: cmd.Kind, Payload: command.EffectivePermissionsResult{Permissions: out}}

	case command.KindListResourcePermissions:
		req := cmd.Payload.(command.ListResourcePermissionsReq)
		if _, ok := p.v.Resource(req.URI); !ok {
			return command.Result{Kind: cmd.Kind, Payload: command.PermissionListResult{}}
		}
		var perms []command.PermissionDTO
		for _, perm := range p.g.PermissionIndex {
			if perm.URI == req.URI {
				perms = append(perms, toPermissionDTO(perm))
			}
		}
		return command.Result{Kind: cmd.Kind, Payload: command.PermissionListResult{Permissions: perms}}

	case command.KindHealthCheck:
		h := p.Health()
		return command.Result{Kind: cmd.Kind, Payload: command.HealthResult{
			Healthy:             true,
			UptimeSeconds:       h.UptimeSeconds,
			CommandsProcessed:   h.CommandsProcessed,
			PersistenceDegraded: h.PersistenceDegraded,
		}}

	case command.KindShutdown:
		p.queue.Close()
		return command.Result{Kind: cmd.Kind, Payload: command.OKResult{}}

	default:
		return command.Result{Kind: cmd.Kind, Err: errtypes.Internal("unrecognized command kind")}
	}
}

func resultFromCreate(kind command.Kind, e *graph.Entity, err error) command.Result {
	if err != nil {
		return command.Result{Kind: kind, Err: err}
	}
	return command.Result{Kind: kind, Payload: command.CreatedResult{ID: e.ID}}
}

func resultOK(kind command.Kind, err error) command.Result {
	if err != nil {
		return command.Result{Kind: kind, Err: err}
	}
	return command.Result{Kind: kind, Payload: command.OKResult{}}
}

func (p *Processor) attachPermission(kind command.Kind, entityID int, uri string, verb graph.Verb, polarity graph.Polarity, scheme graph.Scheme, expiry *time.Time) command.Result {
	perm := &graph.Permission{
		ID:       p.g.NextPermissionID(),
		EntityID: entityID,
		URI:      uri,
		Verb:     verb,
		Polarity: polarity,
		Scheme:   scheme,
		Expiry:   expiry,
	}
	if err := p.g.AttachPermission(entityID, perm); err != nil {
		return command.Result{Kind: kind, Err: err}
	}
	return command.Result{Kind: kind, Payload: command.PermissionResult{PermissionID: perm.ID}}
}

func (p *Processor) listEntities(kind command.Kind, req command.ListEntitiesReq) command.Result {
	all := p.v.ListByVariant(req.Variant)
	total := len(all)

	page, pageSize := req.Page, req.PageSize
	if pageSize <= 0 {
		pageSize = total
	}
	start := page * pageSize
	if start < 0 || start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	out := make([]command.EntityDTO, 0, end-start)
	for _, e := range all[start:end] {
		out = append(out, toEntityDTO(e))
	}
	return command.Result{Kind: kind, Payload: command.EntityListResult{Entities: out, Total: total}}
}

func toTraceDTOs(trace []resolver.TraceEntry) []command.TraceEntryDTO {
	out := make([]command.TraceEntryDTO, len(trace))
	for i, t := range trace {
		out[i] = command.TraceEntryDTO{
			EntityID:     t.EntityID,
			PermissionID: t.PermissionID,
			URI:          t.URI,
			Verb:         t.Verb,
			Polarity:     t.Polarity,
			Specificity:  t.Specificity,
			Distance:     t.Distance,
			Outcome:      t.Outcome,
		}
	}
	return out
}
