package graph

import (
	"fmt"
	"sync"

	"github.com/ianremillard/vaultlink/internal/vlerr"
)

// ErrProtocol re-exports vlerr.ErrProtocol for callers that only import
// this package: a decoded or applied record that violates the wire
// protocol (spec.md §7) — an unknown value_type, a type change for a
// known id (I2), or a non-empty removed list on a first-seen OBJECT.
// It is fatal to the connection that produced it.
var ErrProtocol = vlerr.ErrProtocol

// Graph is the mapping id → Value described in spec.md §3.2. The zero
// value is not usable; construct one with New.
//
// The graph is owned by exactly one goroutine (the service runtime's
// receive loop, spec.md §5) and mutated only by Apply/GC on that
// goroutine (Put, which also mutates it, is for server-role test doubles). Readers elsewhere take a Snapshot, which is an
// independent copy-on-read view safe to hold and read concurrently.
type Graph struct {
	mu    sync.Mutex
	nodes map[uint32]*Value
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{nodes: make(map[uint32]*Value)}
}

// Get returns a clone of the node at id, or (nil, false) if unknown.
func (g *Graph) Get(id uint32) (*Value, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	v, ok := g.nodes[id]
	if !ok {
		return nil, false
	}
	return v.clone(), true
}

// Len returns the number of nodes currently in the mapping.
func (g *Graph) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.nodes)
}

// Apply reconciles one decoded record into the graph per spec.md R1-R3
// and returns a clone of the resulting node (R4: "the decoder yields the
// updated value node after each record").
func (g *Graph) Apply(rec *Record) (*Value, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	existing, known := g.nodes[rec.ID]
	if known && existing.Type != rec.Type {
		return nil, fmt.Errorf("%w: id %d first appeared as %s, got %s", ErrProtocol, rec.ID, existing.Type, rec.Type)
	}

	if rec.Type == Object {
		return g.applyObject(rec, existing, known)
	}

	v := &Value{ID: rec.ID, Type: rec.Type}
	switch rec.Type {
	case Bool:
		v.Bool = rec.Bool
	case Int8:
		v.Int8 = rec.Int8
	case Uint8:
		v.Uint8 = rec.Uint8
	case Int32:
		v.Int32 = rec.Int32
	case Uint32:
		v.Uint32 = rec.Uint32
	case Float:
		v.Float = rec.Float
	case String:
		v.String = rec.String
	case Array:
		v.Array = append([]uint32(nil), rec.Array...)
	default:
		return nil, fmt.Errorf("%w: unknown value_type %d for id %d", ErrProtocol, rec.Type, rec.ID)
	}

	g.nodes[rec.ID] = v
	return v.clone(), nil
}

func (g *Graph) applyObject(rec *Record, existing *Value, known bool) (*Value, error) {
	if !known {
		if len(rec.Removed) > 0 {
			return nil, fmt.Errorf("%w: non-empty removed list for first-seen OBJECT id %d", ErrProtocol, rec.ID)
		}
		v := &Value{ID: rec.ID, Type: Object, Object: make(map[string]uint32, len(rec.Added))}
		for k, id := range rec.Added {
			v.Object[k] = id
		}
		g.nodes[rec.ID] = v
		return v.clone(), nil
	}

	// R2: next = (current \ removed) ∪ added.
	removedSet := make(map[uint32]bool, len(rec.Removed))
	for _, id := range rec.Removed {
		removedSet[id] = true
	}
	next := make(map[string]uint32, len(existing.Object)+len(rec.Added))
	for k, id := range existing.Object {
		if !removedSet[id] {
			next[k] = id
		}
	}
	for k, id := range rec.Added {
		next[k] = id // later-added wins; rec.Added is already a map so this is automatic
	}

	v := &Value{ID: rec.ID, Type: Object, Object: next}
	g.nodes[rec.ID] = v
	return v.clone(), nil
}

// AllocateID returns the smallest non-negative integer not present in the
// mapping (spec.md §4.2.4, server role only). It fails once that integer
// would be ≥ 2^16.
func (g *Graph) AllocateID() (uint32, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for id := uint32(0); id < maxID; id++ {
		if _, taken := g.nodes[id]; !taken {
			return id, nil
		}
	}
	return 0, fmt.Errorf("graph: no free id below %d", maxID)
}

// put inserts or overwrites a node directly, bypassing Apply's diff/type
// checks. It is used by the encoder's test-double role and by tests that
// need to seed a graph without going through the wire format.
func (g *Graph) put(v *Value) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nodes[v.ID] = v.clone()
}

// GC performs an opportunistic mark-and-sweep collection rooted at roots
// (spec.md §9 design note): any id not reachable from a root is removed
// from the mapping. It is not part of the wire protocol — the server
// never reclaims orphaned ids (I4) — this exists purely to bound a long-
// running client's memory. Call it only between DATA_UPDATE batches, a
// quiescent point where no record is mid-application.
func (g *Graph) GC(roots ...uint32) (removed int) {
	g.mu.Lock()
	defer g.mu.Unlock()

	visited := make(map[uint32]bool, len(g.nodes))
	var stack []uint32
	for _, r := range roots {
		stack = append(stack, r)
	}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[id] {
			continue
		}
		visited[id] = true
		v, ok := g.nodes[id]
		if !ok {
			continue
		}
		switch v.Type {
		case Array:
			stack = append(stack, v.Array...)
		case Object:
			for _, childID := range v.Object {
				stack = append(stack, childID)
			}
		}
	}

	for id := range g.nodes {
		if !visited[id] {
			delete(g.nodes, id)
			removed++
		}
	}
	return removed
}
