package graph

// Variant distinguishes the three entity kinds the authorization graph
// supports (spec §3).
type Variant int

const (
	// User is always a leaf node: it may have parents but never children.
	User Variant = iota
	// Group may be a child of another Group, and may parent Groups, Roles or Users.
	Group
	// Role is a child of a Group, and may itself parent a User (AssignUserToRole).
	Role
)

// String renders the variant name, used in error messages and wire
// payloads.
func (v Variant) String() string {
	switch v {
	case User:
		return "User"
	case Group:
		return "Group"
	case Role:
		return "Role"
	default:
		return "Unknown"
	}
}

// MaxNameLength bounds Entity.Name per spec §3.
const MaxNameLength = 255

// MaxChildren bounds how many children a single parent may hold,
// per spec §3's MAX_CHILDREN invariant.
const MaxChildren = 100

// Entity is a node in the authorization graph: a User, Group or Role.
//
// Parents and Children are kept as ordered id slices plus a membership
// set: membership checks in LinkParentChild/UnlinkParentChild are O(1)
// average, removal from the ordered slice is linear, and iteration
// order (used by the resolver's ancestor walk) stays stable.
type Entity struct {
	ID       int
	Variant  Variant
	Name     string
	Metadata map[string]string

	parentOrder []int
	parents     map[int]struct{}
	childOrder  []int
	children    map[int]struct{}

	// Permissions lists ids into the owning TenantGraph's
	// PermissionIndex, in attachment order.
	Permissions []int
}

func newEntity(id int, variant Variant, name string) *Entity {
	return &Entity{
		ID:       id,
		Variant:  variant,
		Name:     name,
		Metadata: map[string]string{},
		parents:  map[int]struct{}{},
		children: map[int]struct{}{},
	}
}

// Parents returns the ids of this entity's parents in link order.
func (e *Entity) Parents() []int {
	out := make([]int, len(e.parentOrder))
	copy(out, e.parentOrder)
	return out
}

// Children returns the ids of this entity's children in link order.
func (e *Entity) Children() []int {
	out := make([]int, len(e.childOrder))
	copy(out, e.childOrder)
	return out
}

// HasParent reports whether parentID is a direct parent of e.
func (e *Entity) HasParent(parentID int) bool {
	_, ok := e.parents[parentID]
	return ok
}

// HasChild reports whether childID is a direct child of e.
func (e *Entity) HasChild(childID int) bool {
	_, ok := e.children[childID]
	return ok
}

func (e *Entity) addParent(id int) {
	if _, ok := e.parents[id]; ok {
		return
	}
	e.parents[id] = struct{}{}
	e.parentOrder = append(e.parentOrder, id)
}

func (e *Entity) addChild(id int) {
	if _, ok := e.children[id]; ok {
		return
	}
	e.children[id] = struct{}{}
	e.childOrder = append(e.childOrder, id)
}

func (e *Entity) removeParent(id int) bool {
	if _, ok := e.parents[id]; !ok {
		return false
	}
	delete(e.parents, id)
	e.parentOrder = removeInt(e.parentOrder, id)
	return true
}

func (e *Entity) removeChild(id int) bool {
	if _, ok := e.children[id]; !ok {
		return false
	}
	delete(e.children, id)
	e.childOrder = removeInt(e.childOrder, id)
	return true
}

func removeInt(s []int, v int) []int {
	for i, x := range s {
		if x == v {
			return append(s[:i], s[i+1:]...)
		}
	}
	return s
}
