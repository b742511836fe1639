package graph_test

import (
	"testing"

	"github.com/nimbusgate/accessgraph/pkg/errtypes"
	"github.com/nimbusgate/accessgraph/pkg/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddEntityAssignsIncreasingIDs(t *testing.T) {
	g := graph.New(nil)

	u1, err := g.AddEntity(graph.User, "alice")
	require.NoError(t, err)
	u2, err := g.AddEntity(graph.User, "bob")
	require.NoError(t, err)

	assert.Less(t, u1.ID, u2.ID)
	assert.Greater(t, g.NextID, u2.ID)
}

func TestAddEntityRejectsEmptyName(t *testing.T) {
	g := graph.New(nil)
	_, err := g.AddEntity(graph.User, "")
	require.Error(t, err)
	assert.True(t, errtypes.Kind(err) == "InvalidArgument")
}

func TestLinkParentChildSymmetric(t *testing.T) {
	g := graph.New(nil)
	grp, _ := g.AddEntity(graph.Group, "engineers")
	usr, _ := g.AddEntity(graph.User, "alice")

	require.NoError(t, g.LinkParentChild(grp.ID, usr.ID))

	assert.True(t, grp.HasChild(usr.ID))
	assert.True(t, usr.HasParent(grp.ID))
}

func TestLinkParentChildRejectsUserAsParent(t *testing.T) {
	g := graph.New(nil)
	usr, _ := g.AddEntity(graph.User, "alice")
	other, _ := g.AddEntity(graph.User, "bob")

	err := g.LinkParentChild(usr.ID, other.ID)
	require.Error(t, err)
	assert.Equal(t, "InvalidArgument", errtypes.Kind(err))
}

func TestLinkParentChildRejectsCycle(t *testing.T) {
	g := graph.New(nil)
	g1, _ := g.AddEntity(graph.Group, "g1")
	g2, _ := g.AddEntity(graph.Group, "g2")
	g3, _ := g.AddEntity(graph.Group, "g3")

	require.NoError(t, g.LinkParentChild(g1.ID, g2.ID))
	require.NoError(t, g.LinkParentChild(g2.ID, g3.ID))

	err := g.LinkParentChild(g3.ID, g1.ID)
	require.Error(t, err)
	assert.Equal(t, "CyclicHierarchy", errtypes.Kind(err))

	// graph unchanged: g1 still has exactly one child (g2)
	assert.Equal(t, []int{g2.ID}, g1.Children())
}

func TestLinkParentChildCapacityExceeded(t *testing.T) {
	g := graph.New(nil)
	parent, _ := g.AddEntity(graph.Group, "parent")
	for i := 0; i < graph.MaxChildren; i++ {
		child, _ := g.AddEntity(graph.Group, "child")
		require.NoError(t, g.LinkParentChild(parent.ID, child.ID))
	}

	overflow, _ := g.AddEntity(graph.Group, "overflow")
	err := g.LinkParentChild(parent.ID, overflow.ID)
	require.Error(t, err)
	assert.Equal(t, "CapacityExceeded", errtypes.Kind(err))
	assert.Len(t, parent.Children(), graph.MaxChildren)
}

func TestUnlinkParentChildRoundTrip(t *testing.T) {
	g := graph.New(nil)
	grp, _ := g.AddEntity(graph.Group, "engineers")
	usr, _ := g.AddEntity(graph.User, "alice")
	require.NoError(t, g.LinkParentChild(grp.ID, usr.ID))

	require.NoError(t, g.UnlinkParentChild(grp.ID, usr.ID))

	assert.False(t, grp.HasChild(usr.ID))
	assert.False(t, usr.HasParent(grp.ID))

	err := g.UnlinkParentChild(grp.ID, usr.ID)
	require.Error(t, err)
	assert.Equal(t, "EdgeMissing", errtypes.Kind(err))
}

func TestAttachPermissionConflictingPolarity(t *testing.T) {
	g := graph.New(nil)
	usr, _ := g.AddEntity(graph.User, "alice")

	grant := &graph.Permission{ID: 100, URI: "/api/orders", Verb: graph.VerbGET, Polarity: graph.Grant, Scheme: graph.Explicit}
	require.NoError(t, g.AttachPermission(usr.ID, grant))

	deny := &graph.Permission{ID: 101, URI: "/api/orders", Verb: graph.VerbGET, Polarity: graph.Deny, Scheme: graph.Explicit}
	err := g.AttachPermission(usr.ID, deny)
	require.Error(t, err)
	assert.Equal(t, "ConflictingPolarity", errtypes.Kind(err))
}

func TestDetachPermissionRoundTrip(t *testing.T) {
	g := graph.New(nil)
	usr, _ := g.AddEntity(graph.User, "alice")
	perm := &graph.Permission{ID: 50, URI: "/api/orders", Verb: graph.VerbGET, Polarity: graph.Grant, Scheme: graph.Explicit}
	require.NoError(t, g.AttachPermission(usr.ID, perm))

	require.NoError(t, g.DetachPermission(perm.ID))

	_, ok := g.PermissionIndex[perm.ID]
	assert.False(t, ok)
	assert.Empty(t, usr.Permissions)
}

func TestRemoveEntityDetachesEdgesAndPermissionsNotChildren(t *testing.T) {
	g := graph.New(nil)
	grp, _ := g.AddEntity(graph.Group, "engineers")
	usr, _ := g.AddEntity(graph.User, "alice")
	require.NoError(t, g.LinkParentChild(grp.ID, usr.ID))

	perm := &graph.Permission{ID: 7, URI: "/api", Verb: graph.VerbGET, Polarity: graph.Grant, Scheme: graph.Explicit}
	require.NoError(t, g.AttachPermission(grp.ID, perm))

	require.NoError(t, g.RemoveEntity(grp.ID))

	_, stillExists := g.Entities[grp.ID]
	assert.False(t, stillExists)

	// DESIGN.md #2: deletion is cascading detachment only; the child
	// entity survives.
	_, childSurvives := g.Entities[usr.ID]
	assert.True(t, childSurvives)
	assert.Empty(t, usr.Parents())

	_, permIndexed := g.PermissionIndex[perm.ID]
	assert.False(t, permIndexed)
}

func TestRoleMayParentUser(t *testing.T) {
	g := graph.New(nil)
	role, _ := g.AddEntity(graph.Role, "admin")
	usr, _ := g.AddEntity(graph.User, "alice")

	require.NoError(t, g.LinkParentChild(role.ID, usr.ID))
	assert.True(t, usr.HasParent(role.ID))
}

func TestRoleMayNotParentGroup(t *testing.T) {
	g := graph.New(nil)
	role, _ := g.AddEntity(graph.Role, "admin")
	grp, _ := g.AddEntity(graph.Group, "engineers")

	err := g.LinkParentChild(role.ID, grp.ID)
	require.Error(t, err)
	assert.Equal(t, "InvalidArgument", errtypes.Kind(err))
}

func TestRenameEntity(t *testing.T) {
	g := graph.New(nil)
	usr, _ := g.AddEntity(graph.User, "alice")

	require.NoError(t, g.RenameEntity(usr.ID, "alice2"))
	assert.Equal(t, "alice2", usr.Name)

	err := g.RenameEntity(usr.ID, "")
	require.Error(t, err)
	assert.Equal(t, "InvalidArgument", errtypes.Kind(err))
}

func TestHasChildIdempotentLink(t *testing.T) {
	g := graph.New(nil)
	grp, _ := g.AddEntity(graph.Group, "engineers")
	usr, _ := g.AddEntity(graph.User, "alice")

	require.NoError(t, g.LinkParentChild(grp.ID, usr.ID))
	require.NoError(t, g.LinkParentChild(grp.ID, usr.ID))

	assert.Len(t, grp.Children(), 1)
}
