package hydration_test

import (
	"context"
	"testing"

	"github.com/nimbusgate/accessgraph/pkg/errtypes"
	"github.com/nimbusgate/accessgraph/pkg/hydration"
	"github.com/nimbusgate/accessgraph/pkg/log"
	"github.com/nimbusgate/accessgraph/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSink struct {
	snap *persistence.TenantSnapshot
}

func (f *fakeSink) PersistMutation(ctx context.Context, rec persistence.MutationRecord) error { return nil }
func (f *fakeSink) AppendAuditRecord(ctx context.Context, rec persistence.AuditRecord) error   { return nil }
func (f *fakeSink) LoadTenantSnapshot(ctx context.Context, tenantID string) (*persistence.TenantSnapshot, error) {
	return f.snap, nil
}

func TestLoadRestoresGraphAndViews(t *testing.T) {
	sink := &fakeSink{snap: &persistence.TenantSnapshot{
		Entities: []persistence.EntitySnapshot{
			{ID: 1, Variant: 0, Name: "alice", Metadata: map[string]string{"team": "eng"}},
			{ID: 2, Variant: 1, Name: "engineers"},
		},
		Edges: []persistence.EdgeSnapshot{{ParentID: 2, ChildID: 1}},
		Permissions: []persistence.PermissionSnapshot{
			{ID: 3, EntityID: 2, URI: "/api/orders", Verb: 1, Polarity: 0, Scheme: 0},
		},
	}}

	res, err := hydration.Load(context.Background(), sink, "tenant-a", log.Nop())
	require.NoError(t, err)

	alice, ok := res.Graph.Entities[1]
	require.True(t, ok)
	assert.Equal(t, "eng", alice.Metadata["team"])
	assert.True(t, alice.HasParent(2))

	perms := res.Views.EntityPermissions(2)
	require.Len(t, perms, 1)
	assert.Equal(t, 3, perms[0])

	assert.Equal(t, 4, res.Graph.NextID) // next alloc must be past the highest restored id
}

func TestLoadRejectsCorruptCyclicSnapshot(t *testing.T) {
	sink := &fakeSink{snap: &persistence.TenantSnapshot{
		Entities: []persistence.EntitySnapshot{
			{ID: 1, Variant: 1, Name: "a"},
			{ID: 2, Variant: 1, Name: "b"},
		},
		Edges: []persistence.EdgeSnapshot{
			{ParentID: 1, ChildID: 2},
			{ParentID: 2, ChildID: 1},
		},
	}}

	_, err := hydration.Load(context.Background(), sink, "tenant-a", log.Nop())
	require.Error(t, err)
	assert.Equal(t, "CyclicHierarchy", errtypes.Kind(err))
}
