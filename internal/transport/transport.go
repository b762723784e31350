// Package transport defines the hub/client communication interface and
// provides implementations for production (TCP, WebSocket) and testing
// (in-memory).
package transport

import (
	"context"
	"time"

	"github.com/Operative-001/vchat/internal/protocol"
	"go.uber.org/zap"
)

const (
	DefaultMaxPeers       = 32
	DefaultConnectTimeout = 3 * time.Second
	eventQueueDepth       = 256
)

// EventType classifies a transport event.
type EventType int

const (
	EventConnect EventType = iota + 1
	EventReceive
	EventDisconnect
)

func (t EventType) String() string {
	switch t {
	case EventConnect:
		return "connect"
	case EventReceive:
		return "receive"
	case EventDisconnect:
		return "disconnect"
	default:
		return "unknown"
	}
}

// Event is delivered by Poll.
type Event struct {
	Type EventType
	// Peer identifies the connection (its remote address). Use it with Send,
	// Broadcast and Disconnect.
	Peer string
	// Addr is the peer's host address without the port.
	Addr string
	// Packet is set for EventReceive.
	Packet protocol.Packet
}

// Transport abstracts hub/client packet I/O.
// The relay uses this interface exclusively so that tests can inject an
// in-memory transport without needing real network sockets.
type Transport interface {
	// Send delivers pkt reliably to one peer. Failures are logged and
	// reported as false.
	Send(peer string, pkt protocol.Packet) bool

	// Broadcast sends pkt to every connected peer except the one named by
	// except. An empty except excludes nobody.
	Broadcast(pkt protocol.Packet, except string) bool

	// Poll blocks for up to timeout and returns every queued event.
	// It returns (nil, nil) when the timeout passes with nothing to report.
	Poll(ctx context.Context, timeout time.Duration) ([]Event, error)

	// Peers returns the identifiers of currently connected peers.
	Peers() []string

	// Disconnect closes one peer connection gracefully.
	Disconnect(peer string)

	// Close shuts down the transport and all peer connections.
	Close() error
}

// Options configures a Host.
type Options struct {
	// MaxPeers bounds concurrent peers on a listening host.
	MaxPeers int
	Logger   *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.MaxPeers <= 0 {
		o.MaxPeers = DefaultMaxPeers
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}
