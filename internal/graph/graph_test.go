package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestScenarioS2ThroughS4 walks through the literal byte scenarios from
// spec.md §8, S2-S4: root creation, a primitive child arriving, and an
// OBJECT diff orphaning that child.
func TestScenarioS2ThroughS4(t *testing.T) {
	g := New()

	// S2: OBJECT id=0, na=1, child_id=2, key="foo\0", nr=0.
	s2 := []byte{0x08, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x02, 0x00, 0x00, 0x00, 'f', 'o', 'o', 0x00, 0x00, 0x00}
	recs, err := DecodeAll(s2)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	_, err = g.Apply(recs[0])
	require.NoError(t, err)

	root, ok := g.Get(Root)
	require.True(t, ok)
	assert.Equal(t, Object, root.Type)
	assert.Equal(t, map[string]uint32{"foo": 2}, root.Object)

	snap := g.Snapshot()
	mat := Materialize(snap, Root, 0)
	m, ok := mat.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, Unresolved(2), m["foo"], "accessing foo before id 2 arrives must not panic")

	// S3: UINT32 id=2 value=42.
	s3 := []byte{0x04, 0x02, 0x00, 0x00, 0x00, 0x2A, 0x00, 0x00, 0x00}
	recs, err = DecodeAll(s3)
	require.NoError(t, err)
	_, err = g.Apply(recs[0])
	require.NoError(t, err)

	snap = g.Snapshot()
	m = Materialize(snap, Root, 0).(map[string]any)
	assert.Equal(t, uint32(42), m["foo"])

	// S4: OBJECT id=0, added empty, removed=[2].
	s4 := []byte{0x08, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x02, 0x00, 0x00, 0x00}
	recs, err = DecodeAll(s4)
	require.NoError(t, err)
	_, err = g.Apply(recs[0])
	require.NoError(t, err)

	snap = g.Snapshot()
	m = Materialize(snap, Root, 0).(map[string]any)
	assert.Empty(t, m, "removed key must be gone")

	_, stillPresent := g.Get(2)
	assert.True(t, stillPresent, "I4: removing an OBJECT entry must not delete the id from the mapping")
}

// TestScenarioS6ProtocolError: an OBJECT record for a never-seen id
// carrying a non-empty removed list is a protocol error (R1).
func TestScenarioS6ProtocolError(t *testing.T) {
	g := New()
	rec := &Record{ID: 7, Type: Object, Added: map[string]uint32{}, Removed: []uint32{9}}
	_, err := g.Apply(rec)
	assert.ErrorIs(t, err, ErrProtocol)
}

func TestTypeMismatchIsProtocolError(t *testing.T) {
	g := New()
	_, err := g.Apply(&Record{ID: 1, Type: Uint32, Uint32: 5})
	require.NoError(t, err)

	_, err = g.Apply(&Record{ID: 1, Type: String, String: "oops"})
	assert.ErrorIs(t, err, ErrProtocol)
}

// TestObjectDiffMatchesDirectMutation is property P2: applying the
// encoded diff for an add/remove sequence must match applying the
// mutation directly.
func TestObjectDiffMatchesDirectMutation(t *testing.T) {
	g := New()
	_, err := g.Apply(&Record{ID: 10, Type: Uint32, Uint32: 111})
	require.NoError(t, err)
	_, err = g.Apply(&Record{ID: 11, Type: Uint32, Uint32: 222})
	require.NoError(t, err)

	_, err = g.Apply(&Record{ID: 0, Type: Object, Added: map[string]uint32{"a": 10, "b": 11}})
	require.NoError(t, err)

	prevState := map[string]uint32{"a": 10, "b": 11}
	root, _ := g.Get(0)
	encoded := EncodeValue(root, prevState)

	// Mutate directly: replace b, keep a.
	_, err = g.Apply(&Record{ID: 12, Type: Uint32, Uint32: 333})
	require.NoError(t, err)
	directGraph := New()
	directGraph.Put(&Value{ID: 10, Type: Uint32, Uint32: 111})
	directGraph.Put(&Value{ID: 11, Type: Uint32, Uint32: 222})
	directGraph.Put(&Value{ID: 12, Type: Uint32, Uint32: 333})
	directGraph.Put(&Value{ID: 0, Type: Object, Object: map[string]uint32{"a": 10, "b": 11}})

	// Direct mutation: b -> 12.
	directRoot, _ := directGraph.Get(0)
	directRoot.Object["b"] = 12
	directGraph.Put(directRoot)

	// Encoded diff for the same mutation, decoded and applied to a fresh copy.
	v := &Value{ID: 0, Type: Object, Object: map[string]uint32{"a": 10, "b": 12}}
	diffBytes := EncodeValue(v, prevState)
	recs, err := DecodeAll(diffBytes)
	require.NoError(t, err)

	diffGraph := New()
	diffGraph.Put(&Value{ID: 0, Type: Object, Object: map[string]uint32{"a": 10, "b": 11}})
	updated, err := diffGraph.Apply(recs[0])
	require.NoError(t, err)

	directUpdated, _ := directGraph.Get(0)
	assert.Equal(t, directUpdated.Object, updated.Object)
	_ = encoded
}

// TestFullSnapshotRoundTrip is property P3: encoding a full snapshot and
// decoding it into a fresh graph reproduces the original id set and
// per-id values.
func TestFullSnapshotRoundTrip(t *testing.T) {
	src := New()
	src.Put(&Value{ID: 5, Type: String, String: "hello"})
	src.Put(&Value{ID: 6, Type: Uint32, Uint32: 99})
	src.Put(&Value{ID: 7, Type: Array, Array: []uint32{5, 6}})
	src.Put(&Value{ID: 0, Type: Object, Object: map[string]uint32{"list": 7}})

	payload := EncodeSnapshot(src, 0)

	dst := New()
	recs, err := DecodeAll(payload)
	require.NoError(t, err)
	for _, rec := range recs {
		_, err := dst.Apply(rec)
		require.NoError(t, err)
	}

	for _, id := range []uint32{0, 5, 6, 7} {
		want, ok1 := src.Get(id)
		got, ok2 := dst.Get(id)
		require.True(t, ok1)
		require.True(t, ok2)
		assert.Equal(t, want, got)
	}
}

// TestApplyIdempotentForAbsoluteRecords is property P4.
func TestApplyIdempotentForAbsoluteRecords(t *testing.T) {
	g := New()
	rec := &Record{ID: 3, Type: String, String: "same"}
	_, err := g.Apply(rec)
	require.NoError(t, err)
	first, _ := g.Get(3)

	_, err = g.Apply(rec)
	require.NoError(t, err)
	second, _ := g.Get(3)

	assert.Equal(t, first, second)
}

func TestGCRemovesOrphansButKeepsReachable(t *testing.T) {
	g := New()
	g.Put(&Value{ID: 1, Type: Uint32, Uint32: 1})
	g.Put(&Value{ID: 2, Type: Uint32, Uint32: 2})
	g.Put(&Value{ID: 0, Type: Object, Object: map[string]uint32{"a": 1}})

	removed := g.GC(Root)
	assert.Equal(t, 1, removed)
	_, ok := g.Get(2)
	assert.False(t, ok)
	_, ok = g.Get(1)
	assert.True(t, ok)
	_, ok = g.Get(0)
	assert.True(t, ok)
}

func TestGCToleratesCycles(t *testing.T) {
	g := New()
	g.Put(&Value{ID: 1, Type: Object, Object: map[string]uint32{"self": 1}})
	g.Put(&Value{ID: 0, Type: Object, Object: map[string]uint32{"a": 1}})

	assert.NotPanics(t, func() {
		g.GC(Root)
	})
	_, ok := g.Get(1)
	assert.True(t, ok)
}

func TestAllocateIDReturnsSmallestFree(t *testing.T) {
	g := New()
	g.Put(&Value{ID: 0, Type: Uint8, Uint8: 0})
	g.Put(&Value{ID: 2, Type: Uint8, Uint8: 0})

	id, err := g.AllocateID()
	require.NoError(t, err)
	assert.Equal(t, uint32(1), id)
}
