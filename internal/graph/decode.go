package graph

import (
	"fmt"

	"github.com/ianremillard/vaultlink/internal/wire"
)

// Record is one decoded DATA_UPDATE entry (spec.md §4.2.1), before it has
// been reconciled against any existing node. For OBJECT records, Added/
// Removed carry the diff halves separately — reconciliation rules (R1-R2)
// need both, not just the merged result.
type Record struct {
	ID   uint32
	Type ValueType

	Bool   bool
	Int8   int8
	Uint8  uint8
	Uint32 uint32
	Int32  int32
	Float  float32
	String string
	Array  []uint32

	Added   map[string]uint32 // OBJECT only
	Removed []uint32          // OBJECT only
}

// Decoder steps through the records of one DATA_UPDATE payload one at a
// time. It is deliberately not a goroutine-backed iterator: spec.md R4
// requires that pausing between records leave the graph well-defined, and
// a plain step function lets the service runtime yield to its send loop
// every N records (spec.md §4.6) without any extra synchronization.
type Decoder struct {
	data []byte
}

// NewDecoder returns a Decoder over one DATA_UPDATE payload.
func NewDecoder(payload []byte) *Decoder {
	return &Decoder{data: payload}
}

// Done reports whether the payload has been fully consumed.
func (d *Decoder) Done() bool {
	return len(d.data) == 0
}

// Next decodes and returns the next record. ok is false once the payload
// is exhausted; err is non-nil for a malformed record.
func (d *Decoder) Next() (rec *Record, ok bool, err error) {
	if len(d.data) == 0 {
		return nil, false, nil
	}

	typByte, rest, err := wire.Uint8(d.data)
	if err != nil {
		return nil, false, fmt.Errorf("decode record header: %w", err)
	}
	id, rest, err := wire.Uint32(rest)
	if err != nil {
		return nil, false, fmt.Errorf("decode record id: %w", err)
	}

	vt := ValueType(typByte)
	r := &Record{ID: id, Type: vt}

	switch vt {
	case Bool:
		r.Bool, rest, err = wire.Bool(rest)
	case Int8:
		r.Int8, rest, err = wire.Int8(rest)
	case Uint8:
		r.Uint8, rest, err = wire.Uint8(rest)
	case Int32:
		r.Int32, rest, err = wire.Int32(rest)
	case Uint32:
		r.Uint32, rest, err = wire.Uint32(rest)
	case Float:
		r.Float, rest, err = wire.Float32(rest)
	case String:
		var prefix []byte
		prefix, rest, err = wire.ParseString(rest)
		if err == nil {
			r.String = string(prefix)
		}
	case Array:
		rest, err = decodeArray(r, rest)
	case Object:
		rest, err = decodeObject(r, rest)
	default:
		return nil, false, fmt.Errorf("%w: unknown value_type %d for id %d", ErrProtocol, typByte, id)
	}
	if err != nil {
		return nil, false, fmt.Errorf("decode %s body for id %d: %w", vt, id, err)
	}

	d.data = rest
	return r, true, nil
}

func decodeArray(r *Record, data []byte) ([]byte, error) {
	n, rest, err := wire.Uint16(data)
	if err != nil {
		return nil, err
	}
	ids := make([]uint32, n)
	for i := range ids {
		ids[i], rest, err = wire.Uint32(rest)
		if err != nil {
			return nil, err
		}
	}
	r.Array = ids
	return rest, nil
}

func decodeObject(r *Record, data []byte) ([]byte, error) {
	na, rest, err := wire.Uint16(data)
	if err != nil {
		return nil, err
	}
	added := make(map[string]uint32, na)
	for i := uint16(0); i < na; i++ {
		var childID uint32
		childID, rest, err = wire.Uint32(rest)
		if err != nil {
			return nil, err
		}
		var keyBytes []byte
		keyBytes, rest, err = wire.ParseString(rest)
		if err != nil {
			return nil, err
		}
		added[string(keyBytes)] = childID // later entries win within a record
	}

	nr, rest, err := wire.Uint16(rest)
	if err != nil {
		return nil, err
	}
	removed := make([]uint32, nr)
	for i := range removed {
		removed[i], rest, err = wire.Uint32(rest)
		if err != nil {
			return nil, err
		}
	}

	r.Added = added
	r.Removed = removed
	return rest, nil
}

// DecodeAll decodes every record in payload eagerly. It exists for tests
// and for callers that don't need the incremental-yield behavior Decoder
// otherwise provides.
func DecodeAll(payload []byte) ([]*Record, error) {
	d := NewDecoder(payload)
	var recs []*Record
	for {
		rec, ok, err := d.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return recs, nil
		}
		recs = append(recs, rec)
	}
}
