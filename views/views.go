// Package views provides typed, read-only accessors over a Snapshot's
// materialised value graph (spec.md §4.2.5, §9: "convenience accessors
// for common paths are a reasonable addition, as long as they're built
// on the public read API"). Every accessor here is grounded on a
// property of the same name in the Python reference
// (original_source/mrpippy/mrpippy/data/player.py,
// original_source/mrpippy/mrpippy/data/inventory.py); none of it reaches
// into the wire protocol directly.
package views

import (
	"errors"
	"fmt"

	"github.com/ianremillard/vaultlink/internal/graph"
)

// ErrMissingField is returned when an expected key is absent from the
// materialised graph — normally because the server hasn't sent that
// part of the snapshot yet (spec.md §3.3: no cross-batch ordering
// guarantee).
var ErrMissingField = errors.New("views: field missing from snapshot")

func materializeRoot(s *graph.Snapshot) (map[string]any, error) {
	root := graph.Materialize(s, graph.Root, 0)
	m, ok := root.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: root", ErrMissingField)
	}
	return m, nil
}

func field(m map[string]any, key string) (any, error) {
	v, ok := m[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingField, key)
	}
	return v, nil
}

func asMap(v any, path string) (map[string]any, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not an object", ErrMissingField, path)
	}
	return m, nil
}

func asSlice(v any, path string) ([]any, error) {
	a, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not an array", ErrMissingField, path)
	}
	return a, nil
}

func asString(v any, path string) (string, error) {
	str, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s is not a string", ErrMissingField, path)
	}
	return str, nil
}

func asBool(v any, path string) (bool, error) {
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("%w: %s is not a bool", ErrMissingField, path)
	}
	return b, nil
}

// asNumber widens any of the protocol's five numeric value types to a
// float64, mirroring the Python reference's untyped arithmetic (it never
// distinguishes an INT32 stat from a FLOAT one at this layer).
func asNumber(v any, path string) (float64, error) {
	switch n := v.(type) {
	case int8:
		return float64(n), nil
	case uint8:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case uint32:
		return float64(n), nil
	case float32:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("%w: %s is not numeric", ErrMissingField, path)
	}
}

func childMap(m map[string]any, key string) (map[string]any, error) {
	v, err := field(m, key)
	if err != nil {
		return nil, err
	}
	return asMap(v, key)
}

func childSlice(m map[string]any, key string) ([]any, error) {
	v, err := field(m, key)
	if err != nil {
		return nil, err
	}
	return asSlice(v, key)
}

func childString(m map[string]any, key string) (string, error) {
	v, err := field(m, key)
	if err != nil {
		return "", err
	}
	return asString(v, key)
}

func childBool(m map[string]any, key string) (bool, error) {
	v, err := field(m, key)
	if err != nil {
		return false, err
	}
	return asBool(v, key)
}

func childNumber(m map[string]any, key string) (float64, error) {
	v, err := field(m, key)
	if err != nil {
		return 0, err
	}
	return asNumber(v, key)
}
