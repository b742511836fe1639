// Package views implements the Normalizer Views (spec §4.2): the
// denormalized projections the resolver and listings read from, kept
// congruent with pkg/graph on every mutation via the graph.Observer
// contract.
package views

import (
	radix "github.com/armon/go-radix"
	"github.com/nimbusgate/accessgraph/pkg/graph"
)

// Resource is the lazily-created record behind ResourceByUri: the first
// permission grant referencing a previously unseen URI creates it; the
// last referencing permission being revoked deletes it (spec §4.2).
type Resource struct {
	URI      string
	RefCount int
}

// Views holds the variant-partitioned id maps, the URI-indexed resource
// radix tree and the per-entity permission lists. A Views value must be
// attached to exactly one graph.TenantGraph via SetObserver, and that
// graph's entities must already be congruent (i.e. Rebuild has run)
// before queries are trusted.
type Views struct {
	usersByID  map[int]*graph.Entity
	groupsByID map[int]*graph.Entity
	rolesByID  map[int]*graph.Entity

	resourceByURI *radix.Tree // key: URI, value: *Resource

	entityPermissions map[int][]int // entity id -> permission ids, attach order
}

// New returns an empty Views. Call Rebuild once the owning TenantGraph
// has been populated (directly, or via hydration) to make the two
// congruent.
func New() *Views {
	return &Views{
		usersByID:         map[int]*graph.Entity{},
		groupsByID:        map[int]*graph.Entity{},
		rolesByID:         map[int]*graph.Entity{},
		resourceByURI:     radix.New(),
		entityPermissions: map[int][]int{},
	}
}

// Rebuild recomputes every projection from g from scratch. Spec §4.2:
// called once by the hydration engine after C1 has been bulk-populated;
// after it returns, Views and g are congruent.
func (v *Views) Rebuild(g *graph.TenantGraph) {
	v.usersByID = map[int]*graph.Entity{}
	v.groupsByID = map[int]*graph.Entity{}
	v.rolesByID = map[int]*graph.Entity{}
	v.resourceByURI = radix.New()
	v.entityPermissions = map[int][]int{}

	for id, e := range g.Entities {
		v.partition(e)
		for _, permID := range e.Permissions {
			perm := g.PermissionIndex[permID]
			if perm == nil {
				continue
			}
			v.entityPermissions[id] = append(v.entityPermissions[id], permID)
			v.bumpResource(perm.URI, 1)
		}
	}
}

func (v *Views) partition(e *graph.Entity) {
	switch e.Variant {
	case graph.User:
		v.usersByID[e.ID] = e
	case graph.Group:
		v.groupsByID[e.ID] = e
	case graph.Role:
		v.rolesByID[e.ID] = e
	}
}

func (v *Views) unpartition(e *graph.Entity) {
	switch e.Variant {
	case graph.User:
		delete(v.usersByID, e.ID)
	case graph.Group:
		delete(v.groupsByID, e.ID)
	case graph.Role:
		delete(v.rolesByID, e.ID)
	}
}

func (v *Views) bumpResource(uri string, delta int) {
	var res *Resource
	if raw, ok := v.resourceByURI.Get(uri); ok {
		res = raw.(*Resource)
	} else {
		res = &Resource{URI: uri}
	}
	res.RefCount += delta
	if res.RefCount <= 0 {
		v.resourceByURI.Delete(uri)
		return
	}
	v.resourceByURI.Insert(uri, res)
}

// UserByID, GroupByID, RoleByID look up an entity within its
// variant-partitioned view.
func (v *Views) UserByID(id int) (*graph.Entity, bool)  { e, ok := v.usersByID[id]; return e, ok }
func (v *Views) GroupByID(id int) (*graph.Entity, bool) { e, ok := v.groupsByID[id]; return e, ok }
func (v *Views) RoleByID(id int) (*graph.Entity, bool)  { e, ok := v.rolesByID[id]; return e, ok }

// ListByVariant returns every entity of the given variant, in
// ascending id order, for ListEntities pagination (spec §4.5).
func (v *Views) ListByVariant(variant graph.Variant) []*graph.Entity {
	var m map[int]*graph.Entity
	switch variant {
	case graph.User:
		m = v.usersByID
	case graph.Group:
		m = v.groupsByID
	case graph.Role:
		m = v.rolesByID
	}
	out := make([]*graph.Entity, 0, len(m))
	for _, e := range m {
		out = append(out, e)
	}
	sortEntitiesByID(out)
	return out
}

func sortEntitiesByID(es []*graph.Entity) {
	for i := 1; i < len(es); i++ {
		for j := i; j > 0 && es[j-1].ID > es[j].ID; j-- {
			es[j-1], es[j] = es[j], es[j-1]
		}
	}
}

// Resource looks up the denormalized resource record for a URI.
func (v *Views) Resource(uri string) (*Resource, bool) {
	raw, ok := v.resourceByURI.Get(uri)
	if !ok {
		return nil, false
	}
	return raw.(*Resource), true
}

// WalkResourcePrefix visits every resource whose URI starts with
// prefix, in lexical order, stopping early once fn returns true.
func (v *Views) WalkResourcePrefix(prefix string, fn func(*Resource) bool) {
	v.resourceByURI.WalkPrefix(prefix, func(_ string, val interface{}) bool {
		return fn(val.(*Resource))
	})
}

// AllResources returns every resource record, in lexical URI order.
func (v *Views) AllResources() []*Resource {
	var out []*Resource
	v.resourceByURI.Walk(func(_ string, val interface{}) bool {
		out = append(out, val.(*Resource))
		return false
	})
	return out
}

// EntityPermissions returns the permission ids attached to entityID, in
// attach order.
func (v *Views) EntityPermissions(entityID int) []int {
	ids := v.entityPermissions[entityID]
	out := make([]int, len(ids))
	copy(out, ids)
	return out
}

// --- graph.Observer implementation ---

// OnEntityAdded partitions e into its variant view.
func (v *Views) OnEntityAdded(e *graph.Entity) error {
	v.partition(e)
	return nil
}

// OnEntityRemoved removes e from its variant view and drops its
// (already-empty, per pkg/graph's detach-before-erase ordering)
// permission list entry.
func (v *Views) OnEntityRemoved(e *graph.Entity) error {
	v.unpartition(e)
	delete(v.entityPermissions, e.ID)
	return nil
}

// OnEdgeAdded is a no-op: edges are navigated directly off
// graph.Entity, not duplicated into a view.
func (v *Views) OnEdgeAdded(parent, child *graph.Entity) error { return nil }

// OnEdgeRemoved is a no-op for the same reason as OnEdgeAdded.
func (v *Views) OnEdgeRemoved(parent, child *graph.Entity) error { return nil }

// OnPermissionAttached appends p to entityPermissions and bumps (or
// creates) the URI's resource record.
func (v *Views) OnPermissionAttached(e *graph.Entity, p *graph.Permission) error {
	v.entityPermissions[e.ID] = append(v.entityPermissions[e.ID], p.ID)
	v.bumpResource(p.URI, 1)
	return nil
}

// OnPermissionDetached removes p from entityPermissions and decrements
// (possibly deleting) the URI's resource record.
func (v *Views) OnPermissionDetached(e *graph.Entity, p *graph.Permission) error {
	ids := v.entityPermissions[e.ID]
	for i, id := range ids {
		if id == p.ID {
			v.entityPermissions[e.ID] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	v.bumpResource(p.URI, -1)
	return nil
}

var _ graph.Observer = (*Views)(nil)
