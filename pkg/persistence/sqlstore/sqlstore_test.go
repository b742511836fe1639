package sqlstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/nimbusgate/accessgraph/pkg/command"
	"github.com/nimbusgate/accessgraph/pkg/persistence"
	"github.com/nimbusgate/accessgraph/pkg/persistence/sqlstore"
	"github.com/stretchr/testify/require"
)

func open(t *testing.T) *sqlstore.Store {
	t.Helper()
	s, err := sqlstore.Open("tenant-a", sqlstore.Config{
		Driver:           "sqlite3",
		ConnectionString: "file::memory:?cache=shared",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPersistAndLoadEntityRoundTrip(t *testing.T) {
	s := open(t)
	ctx := context.Background()

	err := s.PersistMutation(ctx, persistence.MutationRecord{
		TenantID:  "tenant-a",
		Kind:      command.KindCreateUser,
		Payload:   persistence.EntityUpsert{ID: 1, Variant: 0, Name: "alice", Metadata: map[string]string{"team": "eng"}},
		AppliedAt: time.Now(),
	})
	require.NoError(t, err)

	snap, err := s.LoadTenantSnapshot(ctx, "tenant-a")
	require.NoError(t, err)
	require.Len(t, snap.Entities, 1)
	require.Equal(t, "alice", snap.Entities[0].Name)
	require.Equal(t, "eng", snap.Entities[0].Metadata["team"])
}

func TestPersistEdgeAndPermissionThenDelete(t *testing.T) {
	s := open(t)
	ctx := context.Background()

	require.NoError(t, s.PersistMutation(ctx, persistence.MutationRecord{
		TenantID: "tenant-a", Kind: command.KindAddUserToGroup,
		Payload: persistence.EdgeUpsert{ParentID: 10, ChildID: 11},
	}))
	require.NoError(t, s.PersistMutation(ctx, persistence.MutationRecord{
		TenantID: "tenant-a", Kind: command.KindGrantPermission,
		Payload: persistence.PermissionUpsert{ID: 5, EntityID: 11, URI: "/api/orders", Verb: 1, Polarity: 0, Scheme: 0},
	}))

	snap, err := s.LoadTenantSnapshot(ctx, "tenant-a")
	require.NoError(t, err)
	require.Len(t, snap.Edges, 1)
	require.Len(t, snap.Permissions, 1)

	require.NoError(t, s.PersistMutation(ctx, persistence.MutationRecord{
		TenantID: "tenant-a", Kind: command.KindRevokePermission,
		Payload: persistence.PermissionDelete{ID: 5},
	}))
	snap, err = s.LoadTenantSnapshot(ctx, "tenant-a")
	require.NoError(t, err)
	require.Len(t, snap.Permissions, 0)
}

func TestAppendAuditRecord(t *testing.T) {
	s := open(t)
	ctx := context.Background()
	err := s.AppendAuditRecord(ctx, persistence.AuditRecord{
		TenantID: "tenant-a",
		Kind:     command.KindHealthCheck,
		Success:  true,
		At:       time.Now(),
	})
	require.NoError(t, err)
}
