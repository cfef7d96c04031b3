package vaultlink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/ianremillard/vaultlink/internal/graph"
	"github.com/ianremillard/vaultlink/internal/rpc"
	"github.com/ianremillard/vaultlink/internal/vlog"
	"github.com/ianremillard/vaultlink/internal/wire"
)

// SendCommand issues a remote command and blocks until the matching
// COMMAND_RESULT arrives, ctx is cancelled, or the service closes
// (spec.md §4.5). The correlator's completion callback is turned into a
// blocking call returning (response, error), with ctx for cancellation.
// It is only meaningful for a client-role Service.
func (s *Service) SendCommand(ctx context.Context, reqType uint8, args []any) (map[string]any, error) {
	if s.role != roleClient {
		return nil, fmt.Errorf("vaultlink: SendCommand is client-role only")
	}

	done := make(chan rpcResponse, 1)
	id, payload, err := s.corr.CreateRequest(reqType, args, func(r rpc.Response) {
		done <- rpcResponse{value: map[string]any(r)}
	})
	if err != nil {
		return nil, err
	}
	s.metrics.RPCOutstanding.Set(float64(s.corr.Outstanding()))

	if err := s.enqueue(wire.Command, payload); err != nil {
		s.corr.Cancel(id)
		return nil, err
	}

	select {
	case resp := <-done:
		s.metrics.RPCOutstanding.Set(float64(s.corr.Outstanding()))
		return resp.value, nil
	case <-ctx.Done():
		s.corr.Cancel(id)
		return nil, ctx.Err()
	case <-s.finished:
		s.corr.Cancel(id)
		return nil, s.waitErr()
	}
}

type rpcResponse struct {
	value map[string]any
}

// enqueue hands a frame to the send activity, respecting ctx-free
// backpressure from the bounded channel (spec.md §5: bounded-blocking
// put). It returns ErrClosed once shutdown has begun, rather than
// blocking forever on a channel nobody will ever drain again.
func (s *Service) enqueue(t wire.MessageType, payload []byte) error {
	select {
	case s.sendCh <- sendItem{msgType: t, payload: payload}:
		return nil
	case <-s.finished:
		return ErrClosed
	}
}

// Close begins an orderly shutdown (spec.md §4.6.1: Running → Closing →
// Closed) and waits for all three activities to stop. It is idempotent
// and safe to call from any goroutine, including from inside a
// subscriber callback.
func (s *Service) Close() error {
	s.beginClose(nil)
	s.wg.Wait()
	s.stateMu.Lock()
	s.state = Closed
	s.stateMu.Unlock()
	return s.waitErr()
}

// Wait blocks until the service stops for any reason (the peer closed
// the connection, a protocol error occurred, or Close was called) and
// returns the error that stopped it, or nil for an orderly Close or a
// clean close by the peer.
func (s *Service) Wait() error {
	<-s.finished
	return s.waitErr()
}

func (s *Service) waitErr() error {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.closeErr
}

// beginClose transitions Running → Closing exactly once, records cause
// (nil for a caller-requested Close), closes the finished signal so
// every blocked caller wakes up, and closes the underlying connection so
// the receive activity's blocking read unblocks too.
func (s *Service) beginClose(cause error) {
	s.closeOnce.Do(func() {
		s.stateMu.Lock()
		s.state = Closing
		s.closeErr = cause
		s.stateMu.Unlock()

		close(s.finished)
		s.conn.Close()
	})
}

func (s *Service) receiveLoop() {
	defer s.wg.Done()
	for {
		frame, err := s.fr.ReadFrame()
		if err != nil {
			if errors.Is(err, ErrPeerClosed) {
				s.beginClose(nil)
			} else {
				s.metrics.ProtocolErrors.Inc()
				s.beginClose(err)
			}
			return
		}
		s.metrics.FramesReceived.Inc()

		if err := s.dispatch(frame); err != nil {
			s.metrics.ProtocolErrors.Inc()
			s.beginClose(err)
			return
		}
	}
}

func (s *Service) dispatch(frame wire.Frame) error {
	switch frame.Type {
	case wire.KeepAlive:
		return nil

	case wire.DataUpdate:
		return s.applyDataUpdate(frame.Payload)

	case wire.CommandResult:
		if s.role != roleClient {
			vlog.Warningf("vaultlink: ignoring COMMAND_RESULT received in server role")
			return nil
		}
		return s.corr.Recv(frame.Payload)

	case wire.Command:
		if s.role != roleServer {
			vlog.Warningf("vaultlink: ignoring COMMAND received in client role")
			return nil
		}
		return s.dispatchCommand(frame.Payload)

	case wire.LocalMapUpdate:
		vlog.Debugf("vaultlink: ignoring LOCAL_MAP_UPDATE (%d bytes)", len(frame.Payload))
		return nil

	default:
		vlog.Warningf("vaultlink: ignoring unknown message type %d (%d bytes)", frame.Type, len(frame.Payload))
		return nil
	}
}

type commandPayload struct {
	ID   uint32 `json:"id"`
	Type uint8  `json:"type"`
	Args []any  `json:"args"`
}

func (s *Service) dispatchCommand(payload []byte) error {
	var cmd commandPayload
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return fmt.Errorf("%w: malformed COMMAND: %v", ErrProtocol, err)
	}

	s.commandsMu.Lock()
	handler := s.onCommand
	s.commandsMu.Unlock()

	if handler == nil {
		vlog.Warningf("vaultlink: COMMAND id=%d type=%d received with no handler registered", cmd.ID, cmd.Type)
		return nil
	}
	handler(cmd.ID, cmd.Type, cmd.Args)
	return nil
}

// applyDataUpdate decodes and applies every record in payload, yielding
// to the send/keepalive activities every YieldEvery records and running
// an opportunistic GC once the graph crosses GraphGCThreshold (spec.md
// §4.6, §9). Each applied record is also fanned out to subscribers.
func (s *Service) applyDataUpdate(payload []byte) error {
	dec := graph.NewDecoder(payload)
	count := 0
	for {
		rec, ok, err := dec.Next()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrProtocol, err)
		}
		if !ok {
			break
		}

		v, err := s.graph.Apply(rec)
		if err != nil {
			return err
		}
		s.metrics.DataUpdateRecord.Inc()
		s.notifySubscribers(v)

		count++
		if s.cfg.YieldEvery > 0 && count%s.cfg.YieldEvery == 0 {
			runtime.Gosched()
		}
	}

	s.metrics.GraphNodes.Set(float64(s.graph.Len()))
	if s.cfg.GraphGCThreshold > 0 && s.graph.Len() > s.cfg.GraphGCThreshold {
		removed := s.graph.GC(graph.Root)
		if removed > 0 {
			vlog.Debugf("vaultlink: GC removed %d orphaned nodes", removed)
			s.metrics.GraphNodes.Set(float64(s.graph.Len()))
		}
	}
	return nil
}

func (s *Service) sendLoop() {
	defer s.wg.Done()
	for {
		select {
		case item := <-s.sendCh:
			frame := wire.EncodeFrame(item.msgType, item.payload)
			if _, err := s.conn.Write(frame); err != nil {
				s.metrics.ProtocolErrors.Inc()
				s.beginClose(fmt.Errorf("vaultlink: write %s: %w", item.msgType, err))
				return
			}
			s.metrics.FramesSent.Inc()
		case <-s.finished:
			return
		}
	}
}

func (s *Service) keepaliveLoop() {
	defer s.wg.Done()
	interval := s.cfg.KeepaliveInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.enqueue(wire.KeepAlive, nil); err != nil {
				return
			}
			s.metrics.KeepalivesSent.Inc()
		case <-s.finished:
			return
		}
	}
}
