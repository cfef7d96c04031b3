package graph

// Unresolved is the materialised value of a child id that is referenced
// by a container but not yet present in the mapping. The protocol does
// not guarantee I1 across a single update batch (spec.md §3.3), so
// dereferencing an as-yet-unseen id must not panic; it yields this
// marker instead.
type Unresolved uint32

// Truncated is the materialised value produced when a traversal would
// revisit an id already on the current path (a cycle, spec.md §3.2) or
// exceed the caller-supplied depth bound (spec.md §4.2.5).
type Truncated uint32

// Materialize recursively unfolds the node at id into its "materialised
// value" (spec.md §4.2.5): primitives and STRING yield themselves, ARRAY
// yields an ordered []any, OBJECT yields a map[string]any. maxDepth
// bounds recursion through containers; pass a large value (or 0 for the
// package default of 64) for graphs known to be acyclic.
func Materialize(s *Snapshot, id uint32, maxDepth int) any {
	if maxDepth <= 0 {
		maxDepth = 64
	}
	return materialize(s, id, maxDepth, map[uint32]bool{})
}

func materialize(s *Snapshot, id uint32, depthLeft int, path map[uint32]bool) any {
	v, ok := s.Get(id)
	if !ok {
		return Unresolved(id)
	}
	if path[id] || depthLeft <= 0 {
		return Truncated(id)
	}

	switch v.Type {
	case Bool:
		return v.Bool
	case Int8:
		return v.Int8
	case Uint8:
		return v.Uint8
	case Int32:
		return v.Int32
	case Uint32:
		return v.Uint32
	case Float:
		return v.Float
	case String:
		return v.String
	}

	path[id] = true
	defer delete(path, id)

	switch v.Type {
	case Array:
		out := make([]any, len(v.Array))
		for i, childID := range v.Array {
			out[i] = materialize(s, childID, depthLeft-1, path)
		}
		return out
	case Object:
		out := make(map[string]any, len(v.Object))
		for key, childID := range v.Object {
			out[key] = materialize(s, childID, depthLeft-1, path)
		}
		return out
	default:
		return nil
	}
}
