package wire

import (
	"github.com/nimbusgate/accessgraph/pkg/command"
	"github.com/nimbusgate/accessgraph/pkg/errtypes"
)

// EncodeCommandPayload marshals cmd.Payload into commandData bytes
// using the generic tagged-field codec. The concrete Go type is implied
// by cmd.Kind on both ends, the same way a .proto oneof's branch is
// implied by a discriminant field.
func EncodeCommandPayload(cmd command.Command) ([]byte, error) {
	return Marshal(cmd.Payload)
}

// DecodeCommandPayload decodes data into the Req struct that kind
// implies, returning it as cmd.Payload's concrete type.
func DecodeCommandPayload(kind command.Kind, data []byte) (interface{}, error) {
	payload, ok := newCommandPayload(kind)
	if !ok {
		return nil, errtypes.Internal("wire: unrecognized command kind " + string(kind))
	}
	if err := Unmarshal(data, payload); err != nil {
		return nil, err
	}
	return derefPayload(payload), nil
}

// EncodeResultPayload marshals res.Payload into resultData bytes.
func EncodeResultPayload(res command.Result) ([]byte, error) {
	return Marshal(res.Payload)
}

// DecodeResultPayload decodes data into the Result struct that kind
// implies.
func DecodeResultPayload(kind command.Kind, data []byte) (interface{}, error) {
	payload, ok := newResultPayload(kind)
	if !ok {
		return nil, errtypes.Internal("wire: unrecognized result kind " + string(kind))
	}
	if err := Unmarshal(data, payload); err != nil {
		return nil, err
	}
	return derefPayload(payload), nil
}

func derefPayload(p interface{}) interface{} {
	switch v := p.(type) {
	case *command.CreateUserReq:
		return *v
	case *command.CreateGroupReq:
		return *v
	case *command.CreateRoleReq:
		return *v
	case *command.UpdateEntityNameReq:
		return *v
	case *command.DeleteEntityReq:
		return *v
	case *command.AddUserToGroupReq:
		return *v
	case *command.RemoveUserFromGroupReq:
		return *v
	case *command.AddGroupToGroupReq:
		return *v
	case *command.RemoveGroupFromGroupReq:
		return *v
	case *command.AssignUserToRoleReq:
		return *v
	case *command.UnassignUserFromRoleReq:
		return *v
	case *command.AddRoleToGroupReq:
		return *v
	case *command.RemoveRoleFromGroupReq:
		return *v
	case *command.GrantPermissionReq:
		return *v
	case *command.DenyPermissionReq:
		return *v
	case *command.RevokePermissionReq:
		return *v
	case *command.BulkPermissionUpdateReq:
		return *v
	case *command.GetEntityReq:
		return *v
	case *command.ListEntitiesReq:
		return *v
	case *command.ListEntityPermissionsReq:
		return *v
	case *command.EvaluatePermissionReq:
		return *v
	case *command.GetEffectivePermissionsReq:
		return *v
	case *command.ListResourcePermissionsReq:
		return *v
	case *command.HealthCheckReq:
		return *v
	case *command.ShutdownReq:
		return *v

	case *command.CreatedResult:
		return *v
	case *command.OKResult:
		return *v
	case *command.PermissionResult:
		return *v
	case *command.EntityResult:
		return *v
	case *command.EntityListResult:
		return *v
	case *command.PermissionListResult:
		return *v
	case *command.EvaluateResult:
		return *v
	case *command.EffectivePermissionsResult:
		return *v
	case *command.BulkResult:
		return *v
	case *command.HealthResult:
		return *v
	default:
		return p
	}
}

func newCommandPayload(kind command.Kind) (interface{}, bool) {
	switch kind {
	case command.KindCreateUser:
		return &command.CreateUserReq{}, true
	case command.KindCreateGroup:
		return &command.CreateGroupReq{}, true
	case command.KindCreateRole:
		return &command.CreateRoleReq{}, true
	case command.KindUpdateEntityName:
		return &command.UpdateEntityNameReq{}, true
	case command.KindDeleteEntity:
		return &command.DeleteEntityReq{}, true
	case command.KindAddUserToGroup:
		return &command.AddUserToGroupReq{}, true
	case command.KindRemoveUserFromGroup:
		return &command.RemoveUserFromGroupReq{}, true
	case command.KindAddGroupToGroup:
		return &command.AddGroupToGroupReq{}, true
	case command.KindRemoveGroupFromGroup:
		return &command.RemoveGroupFromGroupReq{}, true
	case command.KindAssignUserToRole:
		return &command.AssignUserToRoleReq{}, true
	case command.KindUnassignUserFromRole:
		return &command.UnassignUserFromRoleReq{}, true
	case command.KindAddRoleToGroup:
		return &command.AddRoleToGroupReq{}, true
	case command.KindRemoveRoleFromGroup:
		return &command.RemoveRoleFromGroupReq{}, true
	case command.KindGrantPermission:
		return &command.GrantPermissionReq{}, true
	case command.KindDenyPermission:
		return &command.DenyPermissionReq{}, true
	case command.KindRevokePermission:
		return &command.RevokePermissionReq{}, true
	case command.KindBulkPermissionUpdate:
		return &command.BulkPermissionUpdateReq{}, true
	case command.KindGetEntity:
		return &command.GetEntityReq{}, true
	case command.KindListEntities:
		return &command.ListEntitiesReq{}, true
	case command.KindListEntityPermissions:
		return &command.ListEntityPermissionsReq{}, true
	case command.KindEvaluatePermission:
		return &command.EvaluatePermissionReq{}, true
	case command.KindGetEffectivePermissions:
		return &command.GetEffectivePermissionsReq{}, true
	case command.KindListResourcePermissions:
		return &command.ListResourcePermissionsReq{}, true
	case command.KindHealthCheck:
		return &command.HealthCheckReq{}, true
	case command.KindShutdown:
		return &command.ShutdownReq{}, true
	default:
		return nil, false
	}
}

func newResultPayload(kind command.Kind) (interface{}, bool) {
	switch kind {
	case command.KindCreateUser, command.KindCreateGroup, command.KindCreateRole:
		return &command.CreatedResult{}, true
	case command.KindUpdateEntityName, command.KindDeleteEntity,
		command.KindAddUserToGroup, command.KindRemoveUserFromGroup,
		command.KindAddGroupToGroup, command.KindRemoveGroupFromGroup,
		command.KindAssignUserToRole, command.KindUnassignUserFromRole,
		command.KindAddRoleToGroup, command.KindRemoveRoleFromGroup,
		command.KindRevokePermission, command.KindShutdown:
		return &command.OKResult{}, true
	case command.KindGrantPermission, command.KindDenyPermission:
		return &command.PermissionResult{}, true
	case command.KindBulkPermissionUpdate:
		return &command.BulkResult{}, true
	case command.KindGetEntity:
		return &command.EntityResult{}, true
	case command.KindListEntities:
		return &command.EntityListResult{}, true
	case command.KindListEntityPermissions, command.KindListResourcePermissions:
		return &command.PermissionListResult{}, true
	case command.KindEvaluatePermission:
		return &command.EvaluateResult{}, true
	case command.KindGetEffectivePermissions:
		return &command.EffectivePermissionsResult{}, true
	case command.KindHealthCheck:
		return &command.HealthResult{}, true
	default:
		return nil, false
	}
}
