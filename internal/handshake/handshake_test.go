package handshake

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ianremillard/vaultlink/internal/vlerr"
	"github.com/ianremillard/vaultlink/internal/wire"
)

// TestScenarioS1HandshakeAccept reproduces spec.md §8 S1: the literal
// frame bytes for a CONNECTION_ACCEPTED with {"version":"1"}, no "lang".
func TestScenarioS1HandshakeAccept(t *testing.T) {
	payload := []byte(`{"version":"1"}`)
	frame := wire.EncodeFrame(wire.ConnectionAccepted, payload)

	fr := wire.NewFrameReader(bytes.NewReader(frame), 16)
	result, err := Accept(fr)
	require.NoError(t, err)
	assert.Equal(t, "1", result.Version)
	assert.Equal(t, DefaultLanguage, result.Language)
}

func TestAcceptWithLanguage(t *testing.T) {
	frame := Send("2.1.3", "cpp")
	fr := wire.NewFrameReader(bytes.NewReader(frame), 16)
	result, err := Accept(fr)
	require.NoError(t, err)
	assert.Equal(t, "2.1.3", result.Version)
	assert.Equal(t, "cpp", result.Language)
}

func TestAcceptRefused(t *testing.T) {
	frame := Refuse("already in use")
	fr := wire.NewFrameReader(bytes.NewReader(frame), 16)
	_, err := Accept(fr)
	assert.ErrorIs(t, err, vlerr.ErrRefused)
	assert.Contains(t, err.Error(), "already in use")
}

func TestAcceptWrongFirstMessageIsProtocolError(t *testing.T) {
	frame := wire.EncodeFrame(wire.KeepAlive, nil)
	fr := wire.NewFrameReader(bytes.NewReader(frame), 16)
	_, err := Accept(fr)
	assert.ErrorIs(t, err, vlerr.ErrProtocol)
}
