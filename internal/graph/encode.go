package graph

import "github.com/ianremillard/vaultlink/internal/wire"

// EncodeValue returns the DATA_UPDATE record bytes for v's current,
// absolute state (E1). For an OBJECT node, prevState may be non-nil to
// encode a diff relative to a previously-sent state (E2); pass nil (or
// an empty map) to encode an absolute OBJECT record (added = current,
// removed = ∅).
func EncodeValue(v *Value, prevState map[string]uint32) []byte {
	buf := wire.PutUint8(nil, uint8(v.Type))
	buf = wire.PutUint32(buf, v.ID)

	switch v.Type {
	case Bool:
		return wire.PutBool(buf, v.Bool)
	case Int8:
		return wire.PutInt8(buf, v.Int8)
	case Uint8:
		return wire.PutUint8(buf, v.Uint8)
	case Int32:
		return wire.PutInt32(buf, v.Int32)
	case Uint32:
		return wire.PutUint32(buf, v.Uint32)
	case Float:
		return wire.PutFloat32(buf, v.Float)
	case String:
		return wire.PutString(buf, v.String)
	case Array:
		buf = wire.PutUint16(buf, uint16(len(v.Array)))
		for _, id := range v.Array {
			buf = wire.PutUint32(buf, id)
		}
		return buf
	case Object:
		return encodeObjectDiff(buf, v.Object, prevState)
	default:
		return buf
	}
}

// encodeObjectDiff implements E2: removed = entries of prevState whose
// value_id no longer matches current; added = entries of current whose
// value_id differs from prevState.
func encodeObjectDiff(buf []byte, current, prevState map[string]uint32) []byte {
	var removed []uint32
	for key, prevID := range prevState {
		if curID, ok := current[key]; !ok || curID != prevID {
			removed = append(removed, prevID)
		}
	}
	var addedKeys []string
	for key, id := range current {
		if prevID, ok := prevState[key]; !ok || prevID != id {
			addedKeys = append(addedKeys, key)
		}
	}

	buf = wire.PutUint16(buf, uint16(len(addedKeys)))
	for _, key := range addedKeys {
		buf = wire.PutUint32(buf, current[key])
		buf = wire.PutString(buf, key)
	}

	buf = wire.PutUint16(buf, uint16(len(removed)))
	for _, id := range removed {
		buf = wire.PutUint32(buf, id)
	}
	return buf
}

// EncodeSnapshot walks the graph from roots and returns one DATA_UPDATE
// payload containing every reachable node, each emitted in
// referenced-before-referencing order (E3): children are serialized
// before any parent that points to them, so a client replaying the
// payload never observes a dangling reference (I1). Shared children are
// emitted once; cycles are tolerated via a visited set.
func EncodeSnapshot(g *Graph, roots ...uint32) []byte {
	g.mu.Lock()
	defer g.mu.Unlock()

	var out []byte
	visited := make(map[uint32]bool)
	var visit func(id uint32)
	visit = func(id uint32) {
		if visited[id] {
			return
		}
		visited[id] = true
		v, ok := g.nodes[id]
		if !ok {
			return
		}
		switch v.Type {
		case Array:
			for _, childID := range v.Array {
				visit(childID)
			}
		case Object:
			for _, childID := range v.Object {
				visit(childID)
			}
		}
		out = append(out, EncodeValue(v, nil)...)
	}
	for _, root := range roots {
		visit(root)
	}
	return out
}

// Put inserts or overwrites a node directly. It is the server-role
// complement to Apply: a test double constructing a snapshot to send
// does not go through the wire decoder, it builds nodes directly and
// registers them here.
func (g *Graph) Put(v *Value) {
	g.put(v)
}
