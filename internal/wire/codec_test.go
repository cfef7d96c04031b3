package wire

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrimitiveRoundTrip(t *testing.T) {
	t.Run("bool", func(t *testing.T) {
		for _, v := range []bool{true, false} {
			buf := PutBool(nil, v)
			got, rest, err := Bool(buf)
			require.NoError(t, err)
			assert.Equal(t, v, got)
			assert.Empty(t, rest)
		}
	})

	t.Run("int8", func(t *testing.T) {
		got, rest, err := Int8(PutInt8(nil, -42))
		require.NoError(t, err)
		assert.Equal(t, int8(-42), got)
		assert.Empty(t, rest)
	})

	t.Run("uint8", func(t *testing.T) {
		got, _, err := Uint8(PutUint8(nil, 200))
		require.NoError(t, err)
		assert.Equal(t, uint8(200), got)
	})

	t.Run("int32", func(t *testing.T) {
		got, _, err := Int32(PutInt32(nil, -123456))
		require.NoError(t, err)
		assert.Equal(t, int32(-123456), got)
	})

	t.Run("uint32", func(t *testing.T) {
		got, _, err := Uint32(PutUint32(nil, 4000000000))
		require.NoError(t, err)
		assert.Equal(t, uint32(4000000000), got)
	})

	t.Run("uint16", func(t *testing.T) {
		got, _, err := Uint16(PutUint16(nil, 65000))
		require.NoError(t, err)
		assert.Equal(t, uint16(65000), got)
	})

	t.Run("float32", func(t *testing.T) {
		got, _, err := Float32(PutFloat32(nil, 3.14159))
		require.NoError(t, err)
		assert.InDelta(t, float32(3.14159), got, 0.00001)
	})
}

func TestParseString(t *testing.T) {
	buf := PutString(nil, "foo")
	buf = append(buf, 0xAB) // trailing byte after the terminator

	prefix, rest, err := ParseString(buf)
	require.NoError(t, err)
	assert.Equal(t, "foo", string(prefix))
	assert.Equal(t, []byte{0xAB}, rest)
}

func TestParseStringIncomplete(t *testing.T) {
	_, _, err := ParseString([]byte("no terminator here"))
	assert.ErrorIs(t, err, ErrIncomplete)
}

func TestUnpackIncomplete(t *testing.T) {
	_, _, err := Uint32([]byte{1, 2})
	assert.ErrorIs(t, err, ErrIncomplete)
}

func TestEncodeFrameLiteral(t *testing.T) {
	// Scenario S1 from spec.md §8: CONNECTION_ACCEPTED with {"version":"1"}.
	payload := []byte(`{"version":"1"}`)
	got := EncodeFrame(ConnectionAccepted, payload)

	want := PutUint32(nil, uint32(len(payload)))
	want = PutUint8(want, uint8(ConnectionAccepted))
	want = append(want, payload...)
	assert.Equal(t, want, got)

	// decodeFrame must round-trip it back.
	frame, rest, err := decodeFrame(got)
	require.NoError(t, err)
	assert.Empty(t, rest)
	assert.Equal(t, ConnectionAccepted, frame.Type)
	assert.Equal(t, payload, frame.Payload)
}

func TestFrameReaderSplitAtEveryOffset(t *testing.T) {
	// P5: concatenating two frames and splitting the stream at every
	// possible offset must decode to the same two messages.
	a := EncodeFrame(KeepAlive, nil)
	b := EncodeFrame(Command, []byte(`{"id":0,"type":0,"args":[]}`))
	combined := append(append([]byte{}, a...), b...)

	for split := 0; split <= len(combined); split++ {
		first, second := combined[:split], combined[split:]
		r := &chunkedReader{chunks: [][]byte{first, second}}
		fr := NewFrameReader(r, 1)

		f1, err := fr.ReadFrame()
		require.NoErrorf(t, err, "split at %d: first frame", split)
		assert.Equal(t, KeepAlive, f1.Type)
		assert.Empty(t, f1.Payload)

		f2, err := fr.ReadFrame()
		require.NoErrorf(t, err, "split at %d: second frame", split)
		assert.Equal(t, Command, f2.Type)
		assert.Equal(t, b[5:], f2.Payload)
	}
}

func TestFrameReaderCleanClose(t *testing.T) {
	fr := NewFrameReader(bytes.NewReader(nil), 16)
	_, err := fr.ReadFrame()
	assert.ErrorIs(t, err, ErrPeerClosed)
}

func TestFrameReaderMidFrameClose(t *testing.T) {
	partial := EncodeFrame(KeepAlive, []byte("xx"))[:3]
	fr := NewFrameReader(bytes.NewReader(partial), 16)
	_, err := fr.ReadFrame()
	assert.ErrorIs(t, err, ErrFraming)
}

// chunkedReader serves the chunks in order, never mixing two chunks in one
// Read call (a chunk longer than p is served over several calls), then
// returns EOF.
type chunkedReader struct {
	chunks [][]byte
	pos    int
}

func (c *chunkedReader) Read(p []byte) (int, error) {
	if c.pos >= len(c.chunks) {
		return 0, io.EOF
	}
	chunk := c.chunks[c.pos]
	n := copy(p, chunk)
	if n < len(chunk) {
		c.chunks[c.pos] = chunk[n:]
	} else {
		c.pos++
	}
	return n, nil
}
