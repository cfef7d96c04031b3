// Package wire implements the primitive little-endian codec and the
// length-prefixed frame format used on the companion-app protocol's TCP
// stream. It is a pure function layer: no sizes are inferred, nothing is
// padded or aligned, and nothing here touches a socket.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// ErrIncomplete is returned when fewer bytes remain than a decode needs,
// or when a NUL-terminated string has no terminator in the given slice.
// Callers that own a growing buffer (the frame reader, the socket loop)
// treat it as "read more bytes"; callers decoding an already-bounded
// payload treat it as fatal.
var ErrIncomplete = errors.New("wire: incomplete")

// eat splits off the first n bytes of data, or returns ErrIncomplete.
func eat(data []byte, n int) (head, rest []byte, err error) {
	if len(data) < n {
		return nil, nil, fmt.Errorf("%w: need %d bytes, have %d", ErrIncomplete, n, len(data))
	}
	return data[:n], data[n:], nil
}

// Bool decodes a 1-byte boolean (0x00 = false, anything else = true).
func Bool(data []byte) (bool, []byte, error) {
	b, rest, err := eat(data, 1)
	if err != nil {
		return false, nil, err
	}
	return b[0] != 0, rest, nil
}

// PutBool appends a 1-byte boolean.
func PutBool(buf []byte, v bool) []byte {
	if v {
		return append(buf, 1)
	}
	return append(buf, 0)
}

// Int8 decodes a signed 1-byte integer.
func Int8(data []byte) (int8, []byte, error) {
	b, rest, err := eat(data, 1)
	if err != nil {
		return 0, nil, err
	}
	return int8(b[0]), rest, nil
}

// PutInt8 appends a signed 1-byte integer.
func PutInt8(buf []byte, v int8) []byte {
	return append(buf, byte(v))
}

// Uint8 decodes an unsigned 1-byte integer.
func Uint8(data []byte) (uint8, []byte, error) {
	b, rest, err := eat(data, 1)
	if err != nil {
		return 0, nil, err
	}
	return b[0], rest, nil
}

// PutUint8 appends an unsigned 1-byte integer.
func PutUint8(buf []byte, v uint8) []byte {
	return append(buf, v)
}

// Int32 decodes a little-endian signed 4-byte integer.
func Int32(data []byte) (int32, []byte, error) {
	b, rest, err := eat(data, 4)
	if err != nil {
		return 0, nil, err
	}
	return int32(binary.LittleEndian.Uint32(b)), rest, nil
}

// PutInt32 appends a little-endian signed 4-byte integer.
func PutInt32(buf []byte, v int32) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], uint32(v))
	return append(buf, tmp[:]...)
}

// Uint32 decodes a little-endian unsigned 4-byte integer.
func Uint32(data []byte) (uint32, []byte, error) {
	b, rest, err := eat(data, 4)
	if err != nil {
		return 0, nil, err
	}
	return binary.LittleEndian.Uint32(b), rest, nil
}

// PutUint32 appends a little-endian unsigned 4-byte integer.
func PutUint32(buf []byte, v uint32) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}

// Uint16 decodes a little-endian unsigned 2-byte integer.
func Uint16(data []byte) (uint16, []byte, error) {
	b, rest, err := eat(data, 2)
	if err != nil {
		return 0, nil, err
	}
	return binary.LittleEndian.Uint16(b), rest, nil
}

// PutUint16 appends a little-endian unsigned 2-byte integer.
func PutUint16(buf []byte, v uint16) []byte {
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], v)
	return append(buf, tmp[:]...)
}

// Float32 decodes a little-endian IEEE-754 single-precision float.
func Float32(data []byte) (float32, []byte, error) {
	b, rest, err := eat(data, 4)
	if err != nil {
		return 0, nil, err
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(b)), rest, nil
}

// PutFloat32 appends a little-endian IEEE-754 single-precision float.
func PutFloat32(buf []byte, v float32) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], math.Float32bits(v))
	return append(buf, tmp[:]...)
}

// ParseString splits off bytes up to (but not including) the first NUL
// byte, returning the prefix and the remainder after the terminator. It
// returns ErrIncomplete if no NUL byte is present.
func ParseString(data []byte) (prefix, rest []byte, err error) {
	for i, b := range data {
		if b == 0 {
			return data[:i], data[i+1:], nil
		}
	}
	return nil, nil, fmt.Errorf("%w: no NUL terminator in %d bytes", ErrIncomplete, len(data))
}

// PutString appends s followed by a NUL terminator.
func PutString(buf []byte, s string) []byte {
	buf = append(buf, s...)
	return append(buf, 0)
}
