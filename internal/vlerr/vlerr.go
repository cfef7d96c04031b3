// Package vlerr collects the sentinel error kinds shared across the
// protocol components (spec.md §7), so that callers at any layer can
// errors.Is/As against one consistent taxonomy regardless of which
// component raised the error.
package vlerr

import "errors"

var (
	// ErrProtocol marks a malformed record, a wrong first handshake
	// message, a type mismatch for a known id, a non-empty removed list
	// on a first-seen OBJECT, or an unknown value_type. Fatal to the
	// connection.
	ErrProtocol = errors.New("vaultlink: protocol error")

	// ErrRefused marks a CONNECTION_REFUSED received during handshake.
	ErrRefused = errors.New("vaultlink: connection refused")

	// ErrUnknownResponse marks a COMMAND_RESULT whose id has no matching
	// outstanding request. Fatal to the connection.
	ErrUnknownResponse = errors.New("vaultlink: unknown response id")
)
