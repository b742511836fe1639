// Package resolver implements the Permission Resolver (spec §4.3):
// hierarchical (entity, uri, verb) -> allow/deny evaluation with
// grant/deny conflict resolution, URI pattern matching and a bounded
// evaluation trace.
package resolver

import (
	"sort"
	"time"

	"github.com/nimbusgate/accessgraph/pkg/errtypes"
	"github.com/nimbusgate/accessgraph/pkg/graph"
	"github.com/nimbusgate/accessgraph/pkg/views"
)

// MaxTraceEntries bounds the evaluation trace per spec §4.3.
const MaxTraceEntries = 1024

// TraceEntry is one considered match in an evaluation, per spec §4.3.
type TraceEntry struct {
	EntityID     int
	PermissionID int
	URI          string
	Verb         graph.Verb
	Polarity     graph.Polarity
	Specificity  int
	Distance     int
	Outcome      string // "Allowed" or "Denied" — what this match alone would yield
}

// Decision is the result of Evaluate.
type Decision struct {
	Allowed bool
	Reason  string
	Trace   []TraceEntry
}

// Evaluate answers (entityID, uri, verb) -> allow/deny, per spec §4.3's
// five-step algorithm. g and v must already be congruent (see
// pkg/views's contract).
func Evaluate(g *graph.TenantGraph, v *views.Views, entityID int, uri string, verb graph.Verb, now time.Time) (*Decision, error) {
	if _, ok := g.Entities[entityID]; !ok {
		return nil, errtypes.NotFound("entity")
	}

	closure := ancestorClosure(g, entityID)

	var matches []TraceEntry
	for id, distance := range closure {
		for _, permID := range v.EntityPermissions(id) {
			perm := g.PermissionIndex[permID]
			if perm == nil {
				continue
			}
			if perm.Expired(now) {
				continue
			}
			if perm.Verb != graph.VerbAny && verb != graph.VerbAny && perm.Verb != verb {
				continue
			}
			matched, specificity, _ := matchPattern(perm.URI, uri)
			if !matched {
				continue
			}
			outcome := "Allowed"
			if perm.Polarity == graph.Deny {
				outcome = "Denied"
			}
			matches = append(matches, TraceEntry{
				EntityID:     id,
				PermissionID: perm.ID,
				URI:          perm.URI,
				Verb:         perm.Verb,
				Polarity:     perm.Polarity,
				Specificity:  specificity,
				Distance:     distance,
				Outcome:      outcome,
			})
			if len(matches) > MaxTraceEntries {
				return nil, errtypes.TraceOverflow("evaluation exceeded max trace entries")
			}
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Specificity != matches[j].Specificity {
			return matches[i].Specificity > matches[j].Specificity
		}
		if matches[i].Distance != matches[j].Distance {
			return matches[i].Distance < matches[j].Distance
		}
		// Equal specificity and distance: Deny wins the tie.
		return matches[i].Polarity == graph.Deny && matches[j].Polarity != graph.Deny
	})

	if len(matches) == 0 {
		return &Decision{Allowed: false, Reason: "NoPermission", Trace: matches}, nil
	}

	best := matches[0]
	return &Decision{
		Allowed: best.Polarity == graph.Grant,
		Reason:  best.Outcome,
		Trace:   matches,
	}, nil
}

// ancestorClosure returns entityID plus every transitive parent, mapped
// to the shortest distance (in edges) from entityID, per spec §4.3 step
// 1. A breadth-first walk naturally yields the shortest distance to
// each ancestor and terminates even in the presence of diamonds, since
// pkg/graph never allows a cycle to form.
func ancestorClosure(g *graph.TenantGraph, entityID int) map[int]int {
	dist := map[int]int{entityID: 0}
	queue := []int{entityID}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		e, ok := g.Entities[cur]
		if !ok {
			continue
		}
		for _, pid := range e.Parents() {
			if _, seen := dist[pid]; seen {
				continue
			}
			dist[pid] = dist[cur] + 1
			queue = append(queue, pid)
		}
	}
	return dist
}

// EffectivePermission is one flattened, deduplicated result of
// GetEffectivePermissions: the winning polarity for a (URI, Verb) pair
// across the whole ancestor closure.
type EffectivePermission struct {
	URI      string
	Verb     graph.Verb
	Polarity graph.Polarity
	Distance int
}

// GetEffectivePermissions returns every (URI, Verb) this entity's
// ancestor closure has an explicit permission for, deduplicated with
// deny-wins-at-equal-distance flattening (spec §4.5).
func GetEffectivePermissions(g *graph.TenantGraph, v *views.Views, entityID int, now time.Time) ([]EffectivePermission, error) {
	if _, ok := g.Entities[entityID]; !ok {
		return nil, errtypes.NotFound("entity")
	}

	closure := ancestorClosure(g, entityID)

	type key struct {
		uri  string
		verb graph.Verb
	}
	best := map[key]EffectivePermission{}

	for id, distance := range closure {
		for _, permID := range v.EntityPermissions(id) {
			perm := g.PermissionIndex[permID]
			if perm == nil || perm.Expired(now) {
				continue
			}
			k := key{uri: perm.URI, verb: perm.Verb}
			cur, exists := best[k]
			if !exists || distance < cur.Distance || (distance == cur.Distance && perm.Polarity == graph.Deny) {
				best[k] = EffectivePermission{URI: perm.URI, Verb: perm.Verb, Polarity: perm.Polarity, Distance: distance}
			}
		}
	}

	out := make([]EffectivePermission, 0, len(best))
	for _, ep := range best {
		out = append(out, ep)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].URI != out[j].URI {
			return out[i].URI < out[j].URI
		}
		return out[i].Verb < out[j].Verb
	})
	return out, nil
}
