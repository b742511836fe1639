// Package graph implements the Graph Store (spec §4.1): the in-memory
// tenant authorization graph of entities, parent/child edges and
// attached permissions. Every operation here is synchronous and is
// only ever invoked from a tenant's single-writer command processor
// (spec §5) — there is deliberately no locking in this package.
package graph

import "github.com/nimbusgate/accessgraph/pkg/errtypes"

// Observer receives every mutation TenantGraph applies, on the same
// call that applied it, so a denormalized view (pkg/views) can stay
// congruent with the domain graph (spec §4.2's contract). If any hook
// returns an error, the TenantGraph operation that triggered it rolls
// back its own state change and returns the error — no observer ever
// sees a state it must itself half-apply.
type Observer interface {
	OnEntityAdded(e *Entity) error
	OnEntityRemoved(e *Entity) error
	OnEdgeAdded(parent, child *Entity) error
	OnEdgeRemoved(parent, child *Entity) error
	OnPermissionAttached(e *Entity, p *Permission) error
	OnPermissionDetached(e *Entity, p *Permission) error
}

// TenantGraph is the root container for one tenant's authorization
// graph (spec §3).
type TenantGraph struct {
	Entities        map[int]*Entity
	PermissionIndex map[int]*Permission
	NextID          int

	observer Observer
}

// New creates an empty TenantGraph. obs may be nil, in which case
// mutations are not projected anywhere (useful for unit tests of the
// graph in isolation).
func New(obs Observer) *TenantGraph {
	return &TenantGraph{
		Entities:        map[int]*Entity{},
		PermissionIndex: map[int]*Permission{},
		NextID:          1,
		observer:        obs,
	}
}

// SetObserver attaches or replaces the observer. Used by the hydration
// engine to wire pkg/views only after bulk-loading entities, then to
// call Rebuild explicitly rather than replaying per-entity hooks.
func (g *TenantGraph) SetObserver(obs Observer) {
	g.observer = obs
}

func (g *TenantGraph) notifyEntityAdded(e *Entity) error {
	if g.observer == nil {
		return nil
	}
	return g.observer.OnEntityAdded(e)
}

// AddEntity assigns the next id, inserts the entity, and registers it
// in the variant-partitioned view. Spec §4.1.
func (g *TenantGraph) AddEntity(variant Variant, name string) (*Entity, error) {
	if name == "" {
		return nil, errtypes.Validation("entity name must not be empty")
	}
	if len(name) > MaxNameLength {
		return nil, errtypes.Validation("entity name exceeds max length")
	}
	id := g.NextID
	e := newEntity(id, variant, name)
	g.Entities[id] = e
	if err := g.notifyEntityAdded(e); err != nil {
		delete(g.Entities, id)
		return nil, err
	}
	g.NextID++
	return e, nil
}

// AddEntityWithID inserts an entity with a pre-assigned id, bypassing
// NextID allocation. Used only by the hydration engine (spec §4.6) to
// restore entities with their durable ids.
func (g *TenantGraph) AddEntityWithID(id int, variant Variant, name string) (*Entity, error) {
	if _, exists := g.Entities[id]; exists {
		return nil, errtypes.Validation("duplicate entity id during hydration")
	}
	e := newEntity(id, variant, name)
	g.Entities[id] = e
	if err := g.notifyEntityAdded(e); err != nil {
		delete(g.Entities, id)
		return nil, err
	}
	if id >= g.NextID {
		g.NextID = id + 1
	}
	return e, nil
}

// RenameEntity changes an entity's display name in place. Spec §4.5's
// UpdateEntityName; fails with NotFound or Validation.
func (g *TenantGraph) RenameEntity(id int, name string) error {
	e, ok := g.Entities[id]
	if !ok {
		return errtypes.NotFound("entity")
	}
	if name == "" {
		return errtypes.Validation("entity name must not be empty")
	}
	if len(name) > MaxNameLength {
		return errtypes.Validation("entity name exceeds max length")
	}
	e.Name = name
	return nil
}

// RemoveEntity detaches all edges and permissions, then erases the
// entity. Spec §4.1; DESIGN.md #2 resolves deletion as non-cascading:
// child entities survive with the edge simply removed.
func (g *TenantGraph) RemoveEntity(id int) error {
	e, ok := g.Entities[id]
	if !ok {
		return errtypes.NotFound("entity")
	}

	for _, pid := range e.Parents() {
		if err := g.UnlinkParentChild(pid, id); err != nil {
			return err
		}
	}
	for _, cid := range e.Children() {
		if err := g.UnlinkParentChild(id, cid); err != nil {
			return err
		}
	}
	for _, permID := range append([]int(nil), e.Permissions...) {
		if err := g.DetachPermission(permID); err != nil {
			return err
		}
	}

	delete(g.Entities, id)
	if g.observer != nil {
		if err := g.observer.OnEntityRemoved(e); err != nil {
			// best-effort: the entity is already gone from Entities;
			// re-insert to keep the rollback contract honest.
			g.Entities[id] = e
			return err
		}
	}
	return nil
}

// LinkParentChild adds a symmetric parent/child edge. Spec §4.1: fails
// with NotFound, CyclicHierarchy, CapacityExceeded or InvalidRelation.
func (g *TenantGraph) LinkParentChild(parentID, childID int) error {
	parent, ok := g.Entities[parentID]
	if !ok {
		return errtypes.NotFound("parent entity")
	}
	child, ok := g.Entities[childID]
	if !ok {
		return errtypes.NotFound("child entity")
	}

	if err := validateRelation(parent.Variant, child.Variant); err != nil {
		return err
	}

	if len(parent.childOrder) >= MaxChildren {
		return errtypes.CapacityExceeded("parent already has MAX_CHILDREN children")
	}

	if parent.HasChild(childID) {
		return nil // idempotent no-op: edge already present
	}

	if g.isDescendant(childID, parentID) {
		return errtypes.CyclicHierarchy("linking would create a cycle")
	}

	parent.addChild(childID)
	child.addParent(parentID)

	if g.observer != nil {
		if err := g.observer.OnEdgeAdded(parent, child); err != nil {
			parent.removeChild(childID)
			child.removeParent(parentID)
			return err
		}
	}
	return nil
}

// validateRelation enforces spec §3's entity hierarchy: a User is
// always a leaf (never a parent) and a Group's parent must itself be a
// Group. A Role is a child of a Group (AddRoleToGroup) but may in turn
// parent a User (AssignUserToRole) — that edge is how a user inherits a
// role's attached permissions through the ancestor closure.
func validateRelation(parentVariant, childVariant Variant) error {
	if parentVariant == User {
		return errtypes.InvalidRelation("a User may not be a parent")
	}
	switch childVariant {
	case Group:
		if parentVariant != Group {
			return errtypes.InvalidRelation("a Group may only be a child of a Group")
		}
	case Role:
		if parentVariant != Group {
			return errtypes.InvalidRelation("a Role may only be a child of a Group")
		}
	case User:
		if parentVariant != Group && parentVariant != Role {
			return errtypes.InvalidRelation("a User may only be a child of a Group or Role")
		}
	}
	return nil
}

// isDescendant performs the bounded DFS from spec §4.1's cycle check:
// is target reachable from start by walking children?
func (g *TenantGraph) isDescendant(start, target int) bool {
	if start == target {
		return true
	}
	visited := map[int]bool{}
	stack := []int{start}
	for len(stack) > 0 {
		n := len(stack) - 1
		cur := stack[n]
		stack = stack[:n]
		if visited[cur] {
			continue
		}
		visited[cur] = true
		e, ok := g.Entities[cur]
		if !ok {
			continue
		}
		for _, c := range e.childOrder {
			if c == target {
				return true
			}
			if !visited[c] {
				stack = append(stack, c)
			}
		}
	}
	return false
}

// UnlinkParentChild removes a symmetric edge. Spec §4.1: fails with
// NotFound or EdgeMissing.
func (g *TenantGraph) UnlinkParentChild(parentID, childID int) error {
	parent, ok := g.Entities[parentID]
	if !ok {
		return errtypes.NotFound("parent entity")
	}
	child, ok := g.Entities[childID]
	if !ok {
		return errtypes.NotFound("child entity")
	}
	if !parent.HasChild(childID) {
		return errtypes.EdgeMissing("no edge between parent and child")
	}

	parent.removeChild(childID)
	child.removeParent(parentID)

	if g.observer != nil {
		if err := g.observer.OnEdgeRemoved(parent, child); err != nil {
			parent.addChild(childID)
			child.addParent(parentID)
			return err
		}
	}
	return nil
}

// AttachPermission attaches perm to the entity named by perm.EntityID.
// Spec §4.1: fails with NotFound or ConflictingPolarity (an Explicit
// permission of the opposite polarity already attached for the same
// URI+verb).
func (g *TenantGraph) AttachPermission(entityID int, perm *Permission) error {
	e, ok := g.Entities[entityID]
	if !ok {
		return errtypes.NotFound("entity")
	}

	if perm.Scheme == Explicit {
		for _, existingID := range e.Permissions {
			existing := g.PermissionIndex[existingID]
			if existing == nil {
				continue
			}
			if existing.Scheme == Explicit && existing.URI == perm.URI && existing.Verb == perm.Verb && existing.Polarity != perm.Polarity {
				return errtypes.ConflictingPolarity("opposite-polarity permission already attached for this URI+verb")
			}
		}
	}

	perm.EntityID = entityID
	id := perm.ID
	g.PermissionIndex[id] = perm
	e.Permissions = append(e.Permissions, id)

	if g.observer != nil {
		if err := g.observer.OnPermissionAttached(e, perm); err != nil {
			delete(g.PermissionIndex, id)
			e.Permissions = e.Permissions[:len(e.Permissions)-1]
			return err
		}
	}
	return nil
}

// DetachPermission removes a permission by id. Spec §4.1: fails with
// NotFound.
func (g *TenantGraph) DetachPermission(permissionID int) error {
	perm, ok := g.PermissionIndex[permissionID]
	if !ok {
		return errtypes.NotFound("permission")
	}
	e, ok := g.Entities[perm.EntityID]
	if !ok {
		return errtypes.NotFound("owning entity")
	}

	idx := -1
	for i, pid := range e.Permissions {
		if pid == permissionID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return errtypes.NotFound("permission")
	}

	e.Permissions = append(e.Permissions[:idx], e.Permissions[idx+1:]...)
	delete(g.PermissionIndex, permissionID)

	if g.observer != nil {
		if err := g.observer.OnPermissionDetached(e, perm); err != nil {
			// reinsert at the same position to keep order stable
			e.Permissions = append(e.Permissions, 0)
			copy(e.Permissions[idx+1:], e.Permissions[idx:])
			e.Permissions[idx] = permissionID
			g.PermissionIndex[permissionID] = perm
			return err
		}
	}
	return nil
}

// NextPermissionID is a convenience the processor uses to allocate
// permission ids out of the same id space as entities, matching spec
// §4.5's "NextId is an integer counter incremented atomically on each
// creation" note, which governs both entities and permissions.
func (g *TenantGraph) NextPermissionID() int {
	id := g.NextID
	g.NextID++
	return id
}
