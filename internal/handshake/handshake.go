// Package handshake implements the initial accept/refuse exchange every
// connection opens with (spec.md §4.4): the server's first frame must be
// CONNECTION_ACCEPTED or CONNECTION_REFUSED, carrying the server version
// and implementation language, before either side sends anything else.
package handshake

import (
	"encoding/json"
	"fmt"

	"github.com/ianremillard/vaultlink/internal/vlerr"
	"github.com/ianremillard/vaultlink/internal/wire"
)

// DefaultLanguage is reported when a CONNECTION_ACCEPTED payload omits
// "lang" (spec.md §8 S1: "language default ('unknown')").
const DefaultLanguage = "unknown"

// Result is what the client learns from a successful handshake.
type Result struct {
	Version  string
	Language string
}

type acceptedPayload struct {
	Version string `json:"version"`
	Lang    string `json:"lang"`
}

// Accept reads the server's opening frame from fr and validates it. Any
// frame type other than CONNECTION_ACCEPTED/CONNECTION_REFUSED is a
// protocol error that terminates the connection (spec.md §4.4).
func Accept(fr *wire.FrameReader) (Result, error) {
	frame, err := fr.ReadFrame()
	if err != nil {
		return Result{}, err
	}

	switch frame.Type {
	case wire.ConnectionRefused:
		return Result{}, fmt.Errorf("%w: %s", vlerr.ErrRefused, frame.Payload)

	case wire.ConnectionAccepted:
		var payload acceptedPayload
		if err := json.Unmarshal(frame.Payload, &payload); err != nil {
			return Result{}, fmt.Errorf("%w: malformed CONNECTION_ACCEPTED payload: %v", vlerr.ErrProtocol, err)
		}
		lang := payload.Lang
		if lang == "" {
			lang = DefaultLanguage
		}
		return Result{Version: payload.Version, Language: lang}, nil

	default:
		return Result{}, fmt.Errorf("%w: expected CONNECTION_ACCEPTED or CONNECTION_REFUSED, got %s", vlerr.ErrProtocol, frame.Type)
	}
}

// Send returns the encoded CONNECTION_ACCEPTED frame (server role, used
// by test doubles exercising the client against a fake server); the
// caller writes it to the connection.
func Send(version, language string) []byte {
	payload, _ := json.Marshal(acceptedPayload{Version: version, Lang: language})
	return wire.EncodeFrame(wire.ConnectionAccepted, payload)
}

// Refuse returns the encoded CONNECTION_REFUSED frame carrying an
// optional diagnostic string.
func Refuse(reason string) []byte {
	return wire.EncodeFrame(wire.ConnectionRefused, []byte(reason))
}
