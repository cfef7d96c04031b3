// Package discovery implements the broadcast-discovery accessory
// (spec.md §4 component 7, §6.2): a UDP probe that finds companion-app
// servers on the local network. It is explicitly not part of the
// protocol's core, and is grounded directly on the Python reference
// (original_source/mrpippy/discovery.py).
package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"syscall"
	"time"

	"github.com/rs/xid"

	"github.com/ianremillard/vaultlink/internal/vlog"
)

// syscallConn is the subset of *net.UDPConn that enableBroadcast needs;
// named so the unix/windows implementations don't each import net.
type syscallConn interface {
	SyscallConn() (syscall.RawConn, error)
}

// Reply is one server's response to an autodiscover probe.
type Reply struct {
	Addr        string
	MachineType string
	IsBusy      bool
}

type probeMessage struct {
	Cmd   string `json:"cmd"`
	Nonce string `json:"nonce,omitempty"`
}

type replyMessage struct {
	MachineType *string `json:"MachineType"`
	Addr        *string `json:"addr"`
	IsBusy      *bool   `json:"IsBusy"`
}

// Probe sends `repeats` autodiscover broadcasts to port and collects
// replies until timeout elapses. Each broadcast packet carries a short
// opaque nonce (github.com/rs/xid); the wire protocol does not require
// or interpret this field, and Probe itself dedupes replies by
// (addr, machine type) rather than by nonce, since a real server
// replies once per probe it sees regardless of repeats. Replies missing
// a required key, that aren't a JSON object, or that fail to parse are
// silently discarded; IsBusy replies are filtered out unless allowBusy
// is set (spec.md §6.2).
func Probe(ctx context.Context, port, repeats int, timeout time.Duration, allowBusy bool) ([]Reply, error) {
	conn, err := net.ListenPacket("udp4", ":0")
	if err != nil {
		return nil, fmt.Errorf("discovery: listen: %w", err)
	}
	defer conn.Close()

	sock, ok := conn.(*net.UDPConn)
	if !ok {
		return nil, fmt.Errorf("discovery: expected *net.UDPConn")
	}
	if err := enableBroadcast(sock); err != nil {
		return nil, err
	}

	broadcast := &net.UDPAddr{IP: net.IPv4bcast, Port: port}
	nonce := xid.New().String()
	probe, err := json.Marshal(probeMessage{Cmd: "autodiscover", Nonce: nonce})
	if err != nil {
		return nil, fmt.Errorf("discovery: encode probe: %w", err)
	}

	for i := 0; i < repeats; i++ {
		if _, err := sock.WriteToUDP(probe, broadcast); err != nil {
			vlog.Warningf("discovery: broadcast %d/%d failed: %v", i+1, repeats, err)
		}
	}

	deadline := time.Now().Add(timeout)
	if err := sock.SetReadDeadline(deadline); err != nil {
		return nil, fmt.Errorf("discovery: set deadline: %w", err)
	}

	var replies []Reply
	seen := make(map[string]bool)
	buf := make([]byte, 1024)
	for {
		if ctx.Err() != nil {
			return replies, ctx.Err()
		}
		n, _, err := sock.ReadFromUDP(buf)
		if err != nil {
			// Timeout (or any other read failure) just ends collection;
			// a companion-app host that never answers is not an error.
			return replies, nil
		}

		var msg replyMessage
		if err := json.Unmarshal(buf[:n], &msg); err != nil {
			continue // malformed message, ignore it
		}
		if msg.MachineType == nil || msg.Addr == nil || msg.IsBusy == nil {
			continue // missing required keys, ignore it
		}
		if *msg.IsBusy && !allowBusy {
			continue // server is busy, caller did not opt in
		}
		key := *msg.Addr + "|" + *msg.MachineType
		if seen[key] {
			continue
		}
		seen[key] = true
		replies = append(replies, Reply{Addr: *msg.Addr, MachineType: *msg.MachineType, IsBusy: *msg.IsBusy})
	}
}

// Responder is a minimal server-role test double: it answers every
// autodiscover probe it receives on conn with a fixed reply.
type Responder struct {
	conn        *net.UDPConn
	machineType string
	addr        string
	busy        bool
}

// NewResponder binds a UDP responder to port.
func NewResponder(port int, machineType, addr string, busy bool) (*Responder, error) {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{Port: port})
	if err != nil {
		return nil, fmt.Errorf("discovery: responder listen: %w", err)
	}
	return &Responder{conn: conn, machineType: machineType, addr: addr, busy: busy}, nil
}

// Close releases the responder's socket.
func (r *Responder) Close() error {
	return r.conn.Close()
}

// Serve answers probes until ctx is cancelled.
func (r *Responder) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		r.conn.Close()
	}()

	buf := make([]byte, 1024)
	for {
		n, from, err := r.conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("discovery: responder read: %w", err)
		}

		var msg probeMessage
		if err := json.Unmarshal(buf[:n], &msg); err != nil || msg.Cmd != "autodiscover" {
			continue
		}

		reply, err := json.Marshal(replyMessage{
			MachineType: &r.machineType,
			Addr:        &r.addr,
			IsBusy:      &r.busy,
		})
		if err != nil {
			continue
		}
		if _, err := r.conn.WriteToUDP(reply, from); err != nil {
			vlog.Warningf("discovery: responder reply failed: %v", err)
		}
	}
}
