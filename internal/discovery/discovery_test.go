package discovery

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProbeFindsResponder(t *testing.T) {
	port := 38000 + int(time.Now().UnixNano()%1000)
	responder, err := NewResponder(port, "Fallout4", "10.0.0.5:27000", false)
	require.NoError(t, err)
	defer responder.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go responder.Serve(ctx)

	replies, err := Probe(context.Background(), port, 3, 300*time.Millisecond, false)
	require.NoError(t, err)
	require.Len(t, replies, 1)
	assert.Equal(t, "Fallout4", replies[0].MachineType)
	assert.Equal(t, "10.0.0.5:27000", replies[0].Addr)
	assert.False(t, replies[0].IsBusy)
}

func TestProbeFiltersBusyUnlessOptedIn(t *testing.T) {
	port := 39000 + int(time.Now().UnixNano()%1000)
	responder, err := NewResponder(port, "Fallout4", "10.0.0.6:27000", true)
	require.NoError(t, err)
	defer responder.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go responder.Serve(ctx)

	replies, err := Probe(context.Background(), port, 2, 300*time.Millisecond, false)
	require.NoError(t, err)
	assert.Empty(t, replies, "busy replies must be filtered without allowBusy")

	replies, err = Probe(context.Background(), port, 2, 300*time.Millisecond, true)
	require.NoError(t, err)
	require.Len(t, replies, 1)
	assert.True(t, replies[0].IsBusy)
}

func TestProbeWithNoResponderTimesOutCleanly(t *testing.T) {
	port := 40000 + int(time.Now().UnixNano()%1000)
	// No responder bound: Probe should time out cleanly with no replies
	// rather than error.
	replies, err := Probe(context.Background(), port, 1, 100*time.Millisecond, false)
	require.NoError(t, err)
	assert.Empty(t, replies)
}
