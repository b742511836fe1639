package resolver_test

import (
	"testing"
	"time"

	"github.com/nimbusgate/accessgraph/pkg/errtypes"
	"github.com/nimbusgate/accessgraph/pkg/graph"
	"github.com/nimbusgate/accessgraph/pkg/resolver"
	"github.com/nimbusgate/accessgraph/pkg/views"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*graph.TenantGraph, *views.Views) {
	t.Helper()
	v := views.New()
	g := graph.New(v)
	return g, v
}

func nextPermID(g *graph.TenantGraph) int { return g.NextPermissionID() }

// Scenario 1 (spec §8): grant-then-evaluate.
func TestGrantThenEvaluate(t *testing.T) {
	g, v := setup(t)
	u, _ := g.AddEntity(graph.User, "alice")
	grp, _ := g.AddEntity(graph.Group, "engineers")
	require.NoError(t, g.LinkParentChild(grp.ID, u.ID))

	perm := &graph.Permission{ID: nextPermID(g), URI: "/api/orders", Verb: graph.VerbGET, Polarity: graph.Grant, Scheme: graph.Explicit}
	require.NoError(t, g.AttachPermission(grp.ID, perm))

	decision, err := resolver.Evaluate(g, v, u.ID, "/api/orders", graph.VerbGET, time.Now())
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	require.Len(t, decision.Trace, 1)
	assert.Equal(t, grp.ID, decision.Trace[0].EntityID)
	assert.Equal(t, 1, decision.Trace[0].Distance)
}

// Scenario 2: deny wins at equal specificity (distance 0 deny beats
// distance 1 grant).
func TestDenyWinsAtEqualSpecificity(t *testing.T) {
	g, v := setup(t)
	u, _ := g.AddEntity(graph.User, "alice")
	grp, _ := g.AddEntity(graph.Group, "engineers")
	require.NoError(t, g.LinkParentChild(grp.ID, u.ID))

	grant := &graph.Permission{ID: nextPermID(g), URI: "/api/orders", Verb: graph.VerbGET, Polarity: graph.Grant, Scheme: graph.Explicit}
	require.NoError(t, g.AttachPermission(grp.ID, grant))

	deny := &graph.Permission{ID: nextPermID(g), URI: "/api/orders", Verb: graph.VerbGET, Polarity: graph.Deny, Scheme: graph.Explicit}
	require.NoError(t, g.AttachPermission(u.ID, deny))

	decision, err := resolver.Evaluate(g, v, u.ID, "/api/orders", graph.VerbGET, time.Now())
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
}

// Scenario 3: more-specific grant beats a less-specific ancestor deny.
func TestMoreSpecificGrantBeatsAncestorDeny(t *testing.T) {
	g, v := setup(t)
	u, _ := g.AddEntity(graph.User, "alice")
	grp, _ := g.AddEntity(graph.Group, "engineers")
	require.NoError(t, g.LinkParentChild(grp.ID, u.ID))

	deny := &graph.Permission{ID: nextPermID(g), URI: "/api/**", Verb: graph.VerbGET, Polarity: graph.Deny, Scheme: graph.Explicit}
	require.NoError(t, g.AttachPermission(grp.ID, deny))

	grant := &graph.Permission{ID: nextPermID(g), URI: "/api/orders", Verb: graph.VerbGET, Polarity: graph.Grant, Scheme: graph.Explicit}
	require.NoError(t, g.AttachPermission(u.ID, grant))

	decision, err := resolver.Evaluate(g, v, u.ID, "/api/orders", graph.VerbGET, time.Now())
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}

func TestEvaluateWithNoAncestorsNoPermissions(t *testing.T) {
	g, v := setup(t)
	u, _ := g.AddEntity(graph.User, "alice")

	decision, err := resolver.Evaluate(g, v, u.ID, "/anything", graph.VerbGET, time.Now())
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, "NoPermission", decision.Reason)
}

func TestExpiredPermissionIgnored(t *testing.T) {
	g, v := setup(t)
	u, _ := g.AddEntity(graph.User, "alice")

	past := time.Now().Add(-time.Hour)
	perm := &graph.Permission{ID: nextPermID(g), URI: "/api/orders", Verb: graph.VerbGET, Polarity: graph.Grant, Scheme: graph.Explicit, Expiry: &past}
	require.NoError(t, g.AttachPermission(u.ID, perm))

	decision, err := resolver.Evaluate(g, v, u.ID, "/api/orders", graph.VerbGET, time.Now())
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, "NoPermission", decision.Reason)
}

func TestEvaluateUnknownEntityNotFound(t *testing.T) {
	g, v := setup(t)
	_, err := resolver.Evaluate(g, v, 9999, "/x", graph.VerbGET, time.Now())
	require.Error(t, err)
	assert.Equal(t, "NotFound", errtypes.Kind(err))
}

func TestGetEffectivePermissionsDenyWinsAtEqualDistance(t *testing.T) {
	g, v := setup(t)
	u, _ := g.AddEntity(graph.User, "alice")
	readers, _ := g.AddEntity(graph.Group, "readers")
	auditors, _ := g.AddEntity(graph.Group, "auditors")
	require.NoError(t, g.LinkParentChild(readers.ID, u.ID))
	require.NoError(t, g.LinkParentChild(auditors.ID, u.ID))

	grant := &graph.Permission{ID: nextPermID(g), URI: "/api/orders", Verb: graph.VerbGET, Polarity: graph.Grant, Scheme: graph.Explicit}
	deny := &graph.Permission{ID: nextPermID(g), URI: "/api/orders", Verb: graph.VerbGET, Polarity: graph.Deny, Scheme: graph.Explicit}
	require.NoError(t, g.AttachPermission(readers.ID, grant))
	require.NoError(t, g.AttachPermission(auditors.ID, deny))

	eff, err := resolver.GetEffectivePermissions(g, v, u.ID, time.Now())
	require.NoError(t, err)
	require.Len(t, eff, 1)
	assert.Equal(t, graph.Deny, eff[0].Polarity)
}

func TestEvaluateIsPureNoMutation(t *testing.T) {
	g, v := setup(t)
	u, _ := g.AddEntity(graph.User, "alice")
	perm := &graph.Permission{ID: nextPermID(g), URI: "/api/orders", Verb: graph.VerbGET, Polarity: graph.Grant, Scheme: graph.Explicit}
	require.NoError(t, g.AttachPermission(u.ID, perm))

	before := len(g.PermissionIndex)
	d1, err := resolver.Evaluate(g, v, u.ID, "/api/orders", graph.VerbGET, time.Now())
	require.NoError(t, err)
	d2, err := resolver.Evaluate(g, v, u.ID, "/api/orders", graph.VerbGET, time.Now())
	require.NoError(t, err)

	assert.Equal(t, before, len(g.PermissionIndex))
	assert.Equal(t, d1.Allowed, d2.Allowed)
}
