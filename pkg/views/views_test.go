package views_test

import (
	"testing"

	"github.com/nimbusgate/accessgraph/pkg/graph"
	"github.com/nimbusgate/accessgraph/pkg/views"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGraphWithViews() (*graph.TenantGraph, *views.Views) {
	v := views.New()
	g := graph.New(v)
	return g, v
}

func TestRebuildIsCongruentWithGraph(t *testing.T) {
	g, v := newGraphWithViews()
	u, _ := g.AddEntity(graph.User, "alice")
	grp, _ := g.AddEntity(graph.Group, "engineers")
	require.NoError(t, g.LinkParentChild(grp.ID, u.ID))

	perm := &graph.Permission{ID: 1000, URI: "/api/orders", Verb: graph.VerbGET, Polarity: graph.Grant, Scheme: graph.Explicit}
	require.NoError(t, g.AttachPermission(grp.ID, perm))

	// simulate hydration: fresh views, rebuilt from the graph
	fresh := views.New()
	fresh.Rebuild(g)

	_, ok := fresh.UserByID(u.ID)
	assert.True(t, ok)
	_, ok = fresh.GroupByID(grp.ID)
	assert.True(t, ok)

	res, ok := fresh.Resource("/api/orders")
	require.True(t, ok)
	assert.Equal(t, 1, res.RefCount)

	assert.Equal(t, []int{perm.ID}, fresh.EntityPermissions(grp.ID))
}

func TestResourceRefcountDeletesAtZero(t *testing.T) {
	g, v := newGraphWithViews()
	u, _ := g.AddEntity(graph.User, "alice")

	p1 := &graph.Permission{ID: 1, URI: "/x", Verb: graph.VerbGET, Polarity: graph.Grant, Scheme: graph.Explicit}
	p2 := &graph.Permission{ID: 2, URI: "/x", Verb: graph.VerbPOST, Polarity: graph.Grant, Scheme: graph.Explicit}
	require.NoError(t, g.AttachPermission(u.ID, p1))
	require.NoError(t, g.AttachPermission(u.ID, p2))

	res, ok := v.Resource("/x")
	require.True(t, ok)
	assert.Equal(t, 2, res.RefCount)

	require.NoError(t, g.DetachPermission(p1.ID))
	res, ok = v.Resource("/x")
	require.True(t, ok)
	assert.Equal(t, 1, res.RefCount)

	require.NoError(t, g.DetachPermission(p2.ID))
	_, ok = v.Resource("/x")
	assert.False(t, ok, "last referencing permission revoked should delete the resource record")
}

func TestEntityRemovalClearsView(t *testing.T) {
	g, v := newGraphWithViews()
	u, _ := g.AddEntity(graph.User, "alice")

	require.NoError(t, g.RemoveEntity(u.ID))

	_, ok := v.UserByID(u.ID)
	assert.False(t, ok)
}

func TestListByVariantIsSortedByID(t *testing.T) {
	g, v := newGraphWithViews()
	_, _ = g.AddEntity(graph.User, "c")
	_, _ = g.AddEntity(graph.User, "a")
	_, _ = g.AddEntity(graph.User, "b")

	users := v.ListByVariant(graph.User)
	require.Len(t, users, 3)
	assert.Less(t, users[0].ID, users[1].ID)
	assert.Less(t, users[1].ID, users[2].ID)
}
