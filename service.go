// Package vaultlink is the client library for the companion-app wire
// protocol described in spec.md: framed transport + handshake, the
// typed value graph, the RPC correlator, and the concurrent service
// runtime that multiplexes them over one TCP connection (spec.md §4.6).
//
// Data-view accessors (see the sibling views package) are a convenience
// layer built on Service.Graph(); they never touch the wire directly.
package vaultlink

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/ianremillard/vaultlink/internal/config"
	"github.com/ianremillard/vaultlink/internal/graph"
	"github.com/ianremillard/vaultlink/internal/handshake"
	"github.com/ianremillard/vaultlink/internal/metrics"
	"github.com/ianremillard/vaultlink/internal/rpc"
	"github.com/ianremillard/vaultlink/internal/vlerr"
	"github.com/ianremillard/vaultlink/internal/vlog"
	"github.com/ianremillard/vaultlink/internal/wire"
)

// Re-export the sentinel error kinds from spec.md §7 so callers never
// need to import the internal packages directly.
var (
	ErrProtocol        = vlerr.ErrProtocol
	ErrRefused         = vlerr.ErrRefused
	ErrUnknownResponse = vlerr.ErrUnknownResponse
	ErrPeerClosed      = wire.ErrPeerClosed
	ErrFraming         = wire.ErrFraming
	ErrClosed          = errors.New("vaultlink: service is closed")
)

// State is one of the three lifecycle states from spec.md §4.6.1.
type State int

const (
	Running State = iota
	Closing
	Closed
)

func (s State) String() string {
	switch s {
	case Running:
		return "Running"
	case Closing:
		return "Closing"
	case Closed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// role distinguishes the two ends of the handshake (spec.md §4.4). Only
// the client role is "core" per spec.md §1; the server role exists so
// tests can drive a real Service as the companion-app end without a
// second implementation of the framing/dispatch logic.
type role int

const (
	roleClient role = iota
	roleServer
)

type sendItem struct {
	msgType wire.MessageType
	payload []byte
}

// Service owns exactly one connection and the three concurrent
// activities described in spec.md §4.6: receive, send, and keepalive.
type Service struct {
	conn net.Conn
	fr   *wire.FrameReader
	role role

	cfg     config.ServiceConfig
	metrics *metrics.Metrics

	graph *graph.Graph
	corr  *rpc.Correlator

	version  string
	language string

	sendCh chan sendItem

	subsMu    sync.Mutex
	subs      map[int]func(*graph.Value)
	nextSubID int

	// commandsMu/onCommand is the server-role counterpart to subs: a
	// handler invoked on every COMMAND received, since a server-role
	// Service has no RPC correlator of its own to route those through.
	commandsMu sync.Mutex
	onCommand  func(id uint32, reqType uint8, args []any)

	stateMu sync.Mutex
	state   State

	closeOnce sync.Once
	closeErr  error
	finished  chan struct{}

	wg sync.WaitGroup
}

// Option configures a Service at construction time.
type Option func(*config.ServiceConfig)

// WithConfig overrides the whole config in one call.
func WithConfig(cfg config.ServiceConfig) Option {
	return func(c *config.ServiceConfig) { *c = cfg }
}

// WithKeepaliveInterval overrides the keepalive period (spec.md §4.6: a
// sensible default is 30s).
func WithKeepaliveInterval(d time.Duration) Option {
	return func(c *config.ServiceConfig) { c.KeepaliveInterval = d }
}

func applyOptions(opts []Option) config.ServiceConfig {
	cfg := config.Defaults()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// Connect dials host:port, performs the client-side handshake (spec.md
// §4.4), and starts the service runtime. If the server refuses the
// connection, Connect returns an error wrapping ErrRefused and the
// connection is closed.
func Connect(ctx context.Context, host string, port int, opts ...Option) (*Service, error) {
	cfg := applyOptions(opts)
	if port != 0 {
		cfg.Port = port
	}

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", fmt.Sprintf("%s:%d", host, cfg.Port))
	if err != nil {
		return nil, fmt.Errorf("vaultlink: dial %s:%d: %w", host, cfg.Port, err)
	}

	svc := newService(conn, roleClient, cfg)

	result, err := handshake.Accept(svc.fr)
	if err != nil {
		conn.Close()
		return nil, err
	}
	svc.version = result.Version
	svc.language = result.Language

	svc.start()
	return svc, nil
}

// Accept takes an already-accepted socket and runs the server side of
// the handshake (spec.md §4.4): it sends CONNECTION_ACCEPTED with the
// given version/language, then starts the service runtime in the server
// role. This is the test-double half of the library boundary (spec.md
// §6.4) — it lets tests exercise a real client Service against a real
// connection without standing up the full companion-app server.
func Accept(conn net.Conn, version, language string, opts ...Option) (*Service, error) {
	cfg := applyOptions(opts)
	svc := newService(conn, roleServer, cfg)
	svc.version = version
	svc.language = language

	if _, err := conn.Write(handshake.Send(version, language)); err != nil {
		conn.Close()
		return nil, fmt.Errorf("vaultlink: send handshake: %w", err)
	}

	svc.start()
	return svc, nil
}

func newService(conn net.Conn, r role, cfg config.ServiceConfig) *Service {
	return &Service{
		conn:     conn,
		fr:       wire.NewFrameReader(conn, 0),
		role:     r,
		cfg:      cfg,
		metrics:  metrics.New(),
		graph:    graph.New(),
		corr:     rpc.New(),
		sendCh:   make(chan sendItem, sendChanCapacity(cfg)),
		subs:     make(map[int]func(*graph.Value)),
		state:    Running,
		finished: make(chan struct{}),
	}
}

func sendChanCapacity(cfg config.ServiceConfig) int {
	if cfg.SendQueueCapacity > 0 {
		return cfg.SendQueueCapacity
	}
	return 256
}

func (s *Service) start() {
	s.wg.Add(3)
	go s.receiveLoop()
	go s.sendLoop()
	go s.keepaliveLoop()
}

// Version is the server's reported protocol version from the handshake.
func (s *Service) Version() string { return s.version }

// Language is the server's reported implementation language from the
// handshake (defaults to "unknown" per spec.md §8 S1).
func (s *Service) Language() string { return s.language }

// State returns the service's current lifecycle state (spec.md §4.6.1).
func (s *Service) State() State {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.state
}

// Metrics returns the Prometheus collectors this Service updates; their
// registry is Metrics().Registry().
func (s *Service) Metrics() *metrics.Metrics { return s.metrics }

// Graph returns a read-only, point-in-time snapshot of the value graph
// (spec.md §6.4: "service.graph() for snapshot read access").
func (s *Service) Graph() *graph.Snapshot {
	return s.graph.Snapshot()
}

// Subscribe registers fn to be called once per applied value-graph
// record, in decode order. There is no per-batch delivery mode: a
// subscriber is never handed a whole DATA_UPDATE at once. The returned
// cancel function
// removes the subscription; a subscription registered from inside a
// dispatch callback takes effect starting with the next record (spec.md
// §5).
func (s *Service) Subscribe(fn func(*graph.Value)) (cancel func()) {
	s.subsMu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subs[id] = fn
	s.subsMu.Unlock()

	return func() {
		s.subsMu.Lock()
		delete(s.subs, id)
		s.subsMu.Unlock()
	}
}

func (s *Service) notifySubscribers(v *graph.Value) {
	s.subsMu.Lock()
	fns := make([]func(*graph.Value), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subsMu.Unlock()

	for _, fn := range fns {
		s.safeCall(fn, v)
	}
}

// safeCall runs an untrusted subscriber callback and logs, rather than
// propagates, a panic (spec.md §7: "subscriber callbacks that throw are
// logged and do not abort dispatch").
func (s *Service) safeCall(fn func(*graph.Value), v *graph.Value) {
	defer func() {
		if r := recover(); r != nil {
			vlog.Errorf("vaultlink: subscriber callback panicked: %v", r)
		}
	}()
	fn(v)
}

// OnCommand registers the handler a server-role Service (from Accept)
// invokes for every COMMAND it receives. It is the server-side
// counterpart to SendCommand and has no client-role equivalent.
func (s *Service) OnCommand(fn func(id uint32, reqType uint8, args []any)) {
	s.commandsMu.Lock()
	s.onCommand = fn
	s.commandsMu.Unlock()
}

// SendDataUpdate enqueues a raw DATA_UPDATE payload (server role only;
// a client-role Service has no business producing DATA_UPDATE records).
func (s *Service) SendDataUpdate(payload []byte) error {
	return s.enqueue(wire.DataUpdate, payload)
}

// SendCommandResult enqueues a COMMAND_RESULT payload (server role
// only). The caller is responsible for including the echoed "id" field.
func (s *Service) SendCommandResult(payload []byte) error {
	return s.enqueue(wire.CommandResult, payload)
}
