package processor

import (
	"github.com/nimbusgate/accessgraph/pkg/command"
	"github.com/nimbusgate/accessgraph/pkg/persistence"
)

// mutationRowFor builds the persistence.MutationRecord.Payload for a
// successfully-applied mutation command, or nil if cmd/result doesn't
// carry enough to build one (control/query commands never reach here;
// isMutation gates the call).
func mutationRowFor(cmd command.Command, result command.Result) interface{} {
	switch cmd.Kind {
	case command.KindCreateUser:
		req := cmd.Payload.(command.CreateUserReq)
		res := result.Payload.(command.CreatedResult)
		return persistence.EntityUpsert{ID: res.ID, Variant: 0, Name: req.Name, Metadata: map[string]string{}}
	case command.KindCreateGroup:
		req := cmd.Payload.(command.CreateGroupReq)
		res := result.Payload.(command.CreatedResult)
		return persistence.EntityUpsert{ID: res.ID, Variant: 1, Name: req.Name, Metadata: map[string]string{}}
	case command.KindCreateRole:
		req := cmd.Payload.(command.CreateRoleReq)
		res := result.Payload.(command.CreatedResult)
		return persistence.EntityUpsert{ID: res.ID, Variant: 2, Name: req.Name, Metadata: map[string]string{}}
	case command.KindUpdateEntityName:
		req := cmd.Payload.(command.UpdateEntityNameReq)
		return persistence.EntityUpsert{ID: req.ID, Name: req.Name, Metadata: map[string]string{}}
	case command.KindDeleteEntity:
		req := cmd.Payload.(command.DeleteEntityReq)
		return persistence.EntityDelete{ID: req.ID}

	case command.KindAddUserToGroup:
		req := cmd.Payload.(command.AddUserToGroupReq)
		return persistence.EdgeUpsert{ParentID: req.GroupID, ChildID: req.UserID}
	case command.KindRemoveUserFromGroup:
		req := cmd.Payload.(command.RemoveUserFromGroupReq)
		return persistence.EdgeDelete{ParentID: req.GroupID, ChildID: req.UserID}
	case command.KindAddGroupToGroup:
		req := cmd.Payload.(command.AddGroupToGroupReq)
		return persistence.EdgeUpsert{ParentID: req.ParentID, ChildID: req.ChildID}
	case command.KindRemoveGroupFromGroup:
		req := cmd.Payload.(command.RemoveGroupFromGroupReq)
		return persistence.EdgeDelete{ParentID: req.ParentID, ChildID: req.ChildID}
	case command.KindAssignUserToRole:
		req := cmd.Payload.(command.AssignUserToRoleReq)
		return persistence.EdgeUpsert{ParentID: req.RoleID, ChildID: req.UserID}
	case command.KindUnassignUserFromRole:
		req := cmd.Payload.(command.UnassignUserFromRoleReq)
		return persistence.EdgeDelete{ParentID: req.RoleID, ChildID: req.UserID}
	case command.KindAddRoleToGroup:
		req := cmd.Payload.(command.AddRoleToGroupReq)
		return persistence.EdgeUpsert{ParentID: req.GroupID, ChildID: req.RoleID}
	case command.KindRemoveRoleFromGroup:
		req := cmd.Payload.(command.RemoveRoleFromGroupReq)
		return persistence.EdgeDelete{ParentID: req.GroupID, ChildID: req.RoleID}

	case command.KindGrantPermission, command.KindDenyPermission:
		res := result.Payload.(command.PermissionResult)
		return permissionRowFromResult(cmd, res)
	case command.KindRevokePermission:
		req := cmd.Payload.(command.RevokePermissionReq)
		return persistence.PermissionDelete{ID: req.PermissionID}

	case command.KindBulkPermissionUpdate:
		// Individual bulk operations are persisted by dispatchBulk: it
		// builds each op's row via bulkOpRow as it applies the op, and
		// queues the rows once the whole batch has committed, since
		// BulkResult does not carry enough per-op detail to reconstruct
		// a row after the fact.
		return nil
	default:
		return nil
	}
}

// bulkOpRow builds the write-behind row for one already-applied BulkOp,
// or nil if op.Kind is unrecognized (applyBulkOp would already have
// failed in that case, so dispatchBulk never calls this for it).
func bulkOpRow(op command.BulkOp, permID int) interface{} {
	switch op.Kind {
	case command.BulkOpGrant, command.BulkOpDeny:
		polarity := 0
		if op.Kind == command.BulkOpDeny {
			polarity = 1
		}
		var expiry *int64
		if op.Expiry != nil {
			u := op.Expiry.Unix()
			expiry = &u
		}
		return persistence.PermissionUpsert{
			ID: permID, EntityID: op.EntityID, URI: op.URI,
			Verb: int(op.Verb), Polarity: polarity, Scheme: int(op.Scheme), ExpiryUnix: expiry,
		}
	case command.BulkOpRevoke:
		return persistence.PermissionDelete{ID: op.PermissionID}
	default:
		return nil
	}
}

func permissionRowFromResult(cmd command.Command, res command.PermissionResult) interface{} {
	var uri string
	var verb int
	var scheme int
	var polarity int
	var expiry *int64

	switch cmd.Kind {
	case command.KindGrantPermission:
		req := cmd.Payload.(command.GrantPermissionReq)
		uri, verb, scheme, polarity = req.URI, int(req.Verb), int(req.Scheme), 0
		if req.Expiry != nil {
			u := req.Expiry.Unix()
			expiry = &u
		}
	case command.KindDenyPermission:
		req := cmd.Payload.(command.DenyPermissionReq)
		uri, verb, scheme, polarity = req.URI, int(req.Verb), int(req.Scheme), 1
		if req.Expiry != nil {
			u := req.Expiry.Unix()
			expiry = &u
		}
	}

	return persistence.PermissionUpsert{
		ID:         res.PermissionID,
		EntityID:   entityIDFor(cmd),
		URI:        uri,
		Verb:       verb,
		Polarity:   polarity,
		Scheme:     scheme,
		ExpiryUnix: expiry,
	}
}

func entityIDFor(cmd command.Command) int {
	switch cmd.Kind {
	case command.KindGrantPermission:
		return cmd.Payload.(command.GrantPermissionReq).EntityID
	case command.KindDenyPermission:
		return cmd.Payload.(command.DenyPermissionReq).EntityID
	default:
		return 0
	}
}
