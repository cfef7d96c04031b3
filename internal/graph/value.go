// Package graph implements the typed, id-addressed value graph described
// in spec.md §3-§4.2: the mapping id → Value that a companion-app server
// streams to a client as a sequence of DATA_UPDATE records, the decoder
// that applies those records (R1-R4), and the encoder a server-role test
// double uses to produce them (E1-E3).
package graph

import "fmt"

// ValueType is the 1-byte tag identifying a node's shape on the wire.
type ValueType uint8

const (
	Bool ValueType = iota
	Int8
	Uint8
	Int32
	Uint32
	Float
	String
	Array
	Object
)

func (t ValueType) String() string {
	switch t {
	case Bool:
		return "BOOL"
	case Int8:
		return "INT8"
	case Uint8:
		return "UINT8"
	case Int32:
		return "INT32"
	case Uint32:
		return "UINT32"
	case Float:
		return "FLOAT"
	case String:
		return "STRING"
	case Array:
		return "ARRAY"
	case Object:
		return "OBJECT"
	default:
		return fmt.Sprintf("ValueType(%d)", uint8(t))
	}
}

// Value is one node in the graph. Exactly one of the fields below is
// meaningful, selected by Type; Array/Object store child ids, not
// inlined values (spec.md §3.2).
type Value struct {
	ID   uint32
	Type ValueType

	Bool    bool
	Int8    int8
	Uint8   uint8
	Int32   int32
	Uint32  uint32
	Float   float32
	String  string
	Array   []uint32
	Object  map[string]uint32 // key -> child id
}

// clone returns a deep copy, used so snapshots handed out to readers
// cannot be mutated by a later Apply on the owning goroutine.
func (v *Value) clone() *Value {
	cp := *v
	if v.Array != nil {
		cp.Array = append([]uint32(nil), v.Array...)
	}
	if v.Object != nil {
		cp.Object = make(map[string]uint32, len(v.Object))
		for k, id := range v.Object {
			cp.Object[k] = id
		}
	}
	return &cp
}

// Root is the well-known id of the OBJECT that anchors the whole graph
// once the initial snapshot has arrived (spec.md §3.2).
const Root uint32 = 0

// maxID is the ceiling preserved from the source for newly-allocated ids
// (spec.md §3.2, §4.2.4): server-role allocation fails at or above it.
const maxID = 1 << 16
