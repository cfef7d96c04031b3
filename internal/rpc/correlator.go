// Package rpc implements the request/response correlator for remote
// commands (spec.md §4.5): it allocates request ids, matches
// COMMAND_RESULT responses back to the caller that issued the matching
// COMMAND, and lets a caller abandon a request locally without the wire
// protocol's knowledge.
package rpc

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/ianremillard/vaultlink/internal/vlerr"
)

// Response is a decoded COMMAND_RESULT payload, keyed by arbitrary
// fields the server chooses to return (spec.md §3.5: "payload is a
// UTF-8 JSON object; carries the echoed 'id'").
type Response map[string]any

// completion is delivered exactly once, either by Recv (a matching
// response arrived) or discarded by Cancel.
type completion func(Response)

// Correlator is the state machine described in spec.md §4.5: a
// monotonically increasing 32-bit next_id and a map of outstanding
// completions. It is safe for concurrent use; the service runtime calls
// CreateRequest from caller goroutines and Recv from its single receive
// goroutine.
type Correlator struct {
	mu          sync.Mutex
	nextID      uint32
	outstanding map[uint32]completion
}

// New returns an empty correlator.
func New() *Correlator {
	return &Correlator{outstanding: make(map[uint32]completion)}
}

type request struct {
	ID   uint32 `json:"id"`
	Type uint8  `json:"type"`
	Args []any  `json:"args"`
}

// CreateRequest allocates a request id, stores onComplete against it,
// and returns the encoded COMMAND payload bytes. Delivery ordering for
// onComplete is arbitrary: the server may answer out of order.
func (c *Correlator) CreateRequest(reqType uint8, args []any, onComplete func(Response)) (id uint32, payload []byte, err error) {
	c.mu.Lock()
	id = c.nextID
	c.nextID++
	c.outstanding[id] = onComplete
	c.mu.Unlock()

	if args == nil {
		args = []any{}
	}
	payload, err = json.Marshal(request{ID: id, Type: reqType, Args: args})
	if err != nil {
		c.Cancel(id)
		return 0, nil, fmt.Errorf("rpc: encode request %d: %w", id, err)
	}
	return id, payload, nil
}

// Recv decodes a COMMAND_RESULT payload, looks up the completion for its
// echoed id, removes it, and invokes it. An id with no matching
// outstanding request is ErrUnknownResponse — fatal to the connection at
// the protocol layer (spec.md §4.5, §7).
func (c *Correlator) Recv(payload []byte) error {
	var resp Response
	if err := json.Unmarshal(payload, &resp); err != nil {
		return fmt.Errorf("%w: malformed COMMAND_RESULT: %v", vlerr.ErrProtocol, err)
	}

	idFloat, ok := resp["id"].(float64)
	if !ok {
		return fmt.Errorf("%w: COMMAND_RESULT missing numeric id", vlerr.ErrProtocol)
	}
	id := uint32(idFloat)

	c.mu.Lock()
	done, known := c.outstanding[id]
	if known {
		delete(c.outstanding, id)
	}
	c.mu.Unlock()

	if !known {
		return fmt.Errorf("%w: %d", vlerr.ErrUnknownResponse, id)
	}
	done(resp)
	return nil
}

// Cancel discards the completion for id without affecting any in-flight
// network state (spec.md §4.5: "the wire protocol does not support
// cancellation"). A later Recv for the same id is accepted and silently
// dropped rather than raising ErrUnknownResponse, since the id really
// was allocated.
func (c *Correlator) Cancel(id uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.outstanding[id]; ok {
		c.outstanding[id] = func(Response) {}
	}
}

// Outstanding returns the number of requests awaiting a response.
func (c *Correlator) Outstanding() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.outstanding)
}
