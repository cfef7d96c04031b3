package rpc

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ianremillard/vaultlink/internal/vlerr"
)

// TestScenarioS5RPCRoundTrip reproduces spec.md §8 S5: UseItem([5,17])
// allocates id 0, and the matching COMMAND_RESULT resolves it.
func TestScenarioS5RPCRoundTrip(t *testing.T) {
	c := New()

	var got Response
	id, payload, err := c.CreateRequest(0, []any{5, 17}, func(r Response) { got = r })
	require.NoError(t, err)
	assert.Equal(t, uint32(0), id)
	assert.JSONEq(t, `{"id":0,"type":0,"args":[5,17]}`, string(payload))

	err = c.Recv([]byte(`{"id":0,"ok":true}`))
	require.NoError(t, err)
	assert.Equal(t, true, got["ok"])
}

func TestUnknownResponseIsFatal(t *testing.T) {
	c := New()
	err := c.Recv([]byte(`{"id":99}`))
	assert.ErrorIs(t, err, vlerr.ErrUnknownResponse)
}

func TestIDsAreUniqueAndMonotonic(t *testing.T) {
	c := New()
	seen := map[uint32]bool{}
	for i := 0; i < 50; i++ {
		id, _, err := c.CreateRequest(0, nil, func(Response) {})
		require.NoError(t, err)
		assert.False(t, seen[id], "id %d reused", id)
		seen[id] = true
	}
}

func TestCancelDropsCompletionButAcceptsLateResponse(t *testing.T) {
	c := New()
	called := false
	id, _, err := c.CreateRequest(1, nil, func(Response) { called = true })
	require.NoError(t, err)

	c.Cancel(id)
	err = c.Recv([]byte(fmt.Sprintf(`{"id":%d}`, id)))
	assert.NoError(t, err, "a late response for a cancelled id must not be ErrUnknownResponse")
	assert.False(t, called, "a cancelled completion must never fire")
}

// TestEachCompletionFiresExactlyOnce is property P6: under concurrent
// CreateRequest/Recv interleaving, every completion fires exactly once
// with the response matching its id.
func TestEachCompletionFiresExactlyOnce(t *testing.T) {
	c := New()
	const n = 200

	var mu sync.Mutex
	fired := make(map[uint32]int)

	var wg sync.WaitGroup
	ids := make(chan uint32, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var id uint32
			newID, _, err := c.CreateRequest(0, nil, func(r Response) {
				mu.Lock()
				fired[id] = fired[id] + 1
				mu.Unlock()
			})
			require.NoError(t, err)
			id = newID
			ids <- id
		}()
	}
	wg.Wait()
	close(ids)

	var respWG sync.WaitGroup
	for id := range ids {
		respWG.Add(1)
		go func(id uint32) {
			defer respWG.Done()
			err := c.Recv([]byte(fmt.Sprintf(`{"id":%d}`, id)))
			assert.NoError(t, err)
		}(id)
	}
	respWG.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, fired, n)
	for id, count := range fired {
		assert.Equalf(t, 1, count, "completion for id %d fired %d times", id, count)
	}
}
