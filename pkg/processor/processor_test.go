package processor_test

import (
	"context"
	"testing"
	"time"

	"github.com/nimbusgate/accessgraph/pkg/channel"
	"github.com/nimbusgate/accessgraph/pkg/command"
	"github.com/nimbusgate/accessgraph/pkg/errtypes"
	"github.com/nimbusgate/accessgraph/pkg/graph"
	"github.com/nimbusgate/accessgraph/pkg/log"
	"github.com/nimbusgate/accessgraph/pkg/persistence"
	"github.com/nimbusgate/accessgraph/pkg/processor"
	"github.com/nimbusgate/accessgraph/pkg/views"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopSink struct{}

func (nopSink) PersistMutation(ctx context.Context, rec persistence.MutationRecord) error { return nil }
func (nopSink) AppendAuditRecord(ctx context.Context, rec persistence.AuditRecord) error   { return nil }
func (nopSink) LoadTenantSnapshot(ctx context.Context, tenantID string) (*persistence.TenantSnapshot, error) {
	return &persistence.TenantSnapshot{}, nil
}

func newTestProcessor(t *testing.T) (*processor.Processor, *channel.Queue) {
	t.Helper()
	v := views.New()
	g := graph.New(v)
	q := channel.New(16)
	p := processor.New("tenant-a", g, v, q, nopSink{}, log.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go p.Run(ctx)
	go p.RunPersistWorker(ctx)
	return p, q
}

func submit(t *testing.T, q *channel.Queue, cmd command.Command) command.Result {
	t.Helper()
	reply, err := q.Submit(context.Background(), cmd)
	require.NoError(t, err)
	select {
	case res := <-reply:
		return res
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for reply")
		return command.Result{}
	}
}

func TestCreateUserThenGetEntity(t *testing.T) {
	_, q := newTestProcessor(t)

	res := submit(t, q, command.Command{Kind: command.KindCreateUser, Payload: command.CreateUserReq{Name: "alice"}})
	require.NoError(t, res.Err)
	id := res.Payload.(command.CreatedResult).ID

	res = submit(t, q, command.Command{Kind: command.KindGetEntity, Payload: command.GetEntityReq{ID: id}})
	require.NoError(t, res.Err)
	assert.Equal(t, "alice", res.Payload.(command.EntityResult).Entity.Name)
}

func TestCreateGroupThenUserThenGrantThenEvaluate(t *testing.T) {
	_, q := newTestProcessor(t)

	grpRes := submit(t, q, command.Command{Kind: command.KindCreateGroup, Payload: command.CreateGroupReq{Name: "engineers"}})
	require.NoError(t, grpRes.Err)
	grpID := grpRes.Payload.(command.CreatedResult).ID

	usrRes := submit(t, q, command.Command{Kind: command.KindCreateUser, Payload: command.CreateUserReq{Name: "alice"}})
	require.NoError(t, usrRes.Err)
	usrID := usrRes.Payload.(command.CreatedResult).ID

	linkRes := submit(t, q, command.Command{Kind: command.KindAddUserToGroup, Payload: command.AddUserToGroupReq{UserID: usrID, GroupID: grpID}})
	require.NoError(t, linkRes.Err)

	grantRes := submit(t, q, command.Command{Kind: command.KindGrantPermission, Payload: command.GrantPermissionReq{
		EntityID: grpID, URI: "/api/orders", Verb: graph.VerbGET, Scheme: graph.Explicit,
	}})
	require.NoError(t, grantRes.Err)

	evalRes := submit(t, q, command.Command{Kind: command.KindEvaluatePermission, Payload: command.EvaluatePermissionReq{
		EntityID: usrID, URI: "/api/orders", Verb: graph.VerbGET,
	}})
	require.NoError(t, evalRes.Err)
	assert.True(t, evalRes.Payload.(command.EvaluateResult).Allowed)
}

func TestBulkTransactionalRollsBackOnConflict(t *testing.T) {
	_, q := newTestProcessor(t)

	usrRes := submit(t, q, command.Command{Kind: command.KindCreateUser, Payload: command.CreateUserReq{Name: "alice"}})
	usrID := usrRes.Payload.(command.CreatedResult).ID

	bulkRes := submit(t, q, command.Command{Kind: command.KindBulkPermissionUpdate, Payload: command.BulkPermissionUpdateReq{
		Transactional: true,
		Operations: []command.BulkOp{
			{Kind: command.BulkOpGrant, EntityID: usrID, URI: "/api/orders", Verb: graph.VerbGET},
			{Kind: command.BulkOpDeny, EntityID: usrID, URI: "/api/orders", Verb: graph.VerbGET}, // conflicting polarity
		},
	}})
	require.Error(t, bulkRes.Err)
	assert.Equal(t, "ConflictingPolarity", errtypes.Kind(bulkRes.Err))

	permsRes := submit(t, q, command.Command{Kind: command.KindListEntityPermissions, Payload: command.ListEntityPermissionsReq{EntityID: usrID}})
	require.NoError(t, permsRes.Err)
	assert.Empty(t, permsRes.Payload.(command.PermissionListResult).Permissions)
}

func TestBulkNonTransactionalReportsPerOpResults(t *testing.T) {
	_, q := newTestProcessor(t)

	usrRes := submit(t, q, command.Command{Kind: command.KindCreateUser, Payload: command.CreateUserReq{Name: "alice"}})
	usrID := usrRes.Payload.(command.CreatedResult).ID

	bulkRes := submit(t, q, command.Command{Kind: command.KindBulkPermissionUpdate, Payload: command.BulkPermissionUpdateReq{
		Transactional: false,
		Operations: []command.BulkOp{
			{Kind: command.BulkOpGrant, EntityID: usrID, URI: "/api/orders", Verb: graph.VerbGET},
			{Kind: command.BulkOpDeny, EntityID: usrID, URI: "/api/orders", Verb: graph.VerbGET},
		},
	}})
	require.NoError(t, bulkRes.Err)
	results := bulkRes.Payload.(command.BulkResult).Results
	require.Len(t, results, 2)
	assert.True(t, results[0].Success)
	assert.False(t, results[1].Success)
	assert.Equal(t, "ConflictingPolarity", results[1].Error)
}

func TestDeleteEntityNotFound(t *testing.T) {
	_, q := newTestProcessor(t)
	res := submit(t, q, command.Command{Kind: command.KindDeleteEntity, Payload: command.DeleteEntityReq{ID: 9999}})
	require.Error(t, res.Err)
	assert.Equal(t, "NotFound", errtypes.Kind(res.Err))
}

func TestHealthCheckReportsUptimeAndCount(t *testing.T) {
	_, q := newTestProcessor(t)
	submit(t, q, command.Command{Kind: command.KindCreateUser, Payload: command.CreateUserReq{Name: "alice"}})

	res := submit(t, q, command.Command{Kind: command.KindHealthCheck, Payload: command.HealthCheckReq{}})
	require.NoError(t, res.Err)
	health := res.Payload.(command.HealthResult)
	assert.True(t, health.Healthy)
	assert.Equal(t, uint64(1), health.CommandsProcessed)
}

func TestShutdownDrainsThenStopsLoop(t *testing.T) {
	_, q := newTestProcessor(t)
	res := submit(t, q, command.Command{Kind: command.KindShutdown, Payload: command.ShutdownReq{}})
	require.NoError(t, res.Err)

	_, err := q.Submit(context.Background(), command.Command{Kind: command.KindHealthCheck})
	require.Error(t, err)
	assert.Equal(t, "Shutdown", errtypes.Kind(err))
}
