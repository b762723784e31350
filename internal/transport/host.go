package transport

import (
	"context"
	"errors"
	"io"
	"net"
	"sort"
	"sync"
	"time"

	"github.com/Operative-001/vchat/internal/protocol"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// conn is one framed, bidirectional peer connection.
type conn interface {
	ReadPacket() (protocol.Packet, error)
	WritePacket(pkt protocol.Packet) error
	RemoteAddr() net.Addr
	Close() error
}

type peer struct {
	id     string
	addr   string
	connID string
	c      conn

	wmu sync.Mutex
}

func (p *peer) write(pkt protocol.Packet) error {
	p.wmu.Lock()
	defer p.wmu.Unlock()
	return p.c.WritePacket(pkt)
}

// Host is an event-driven endpoint: either a listening hub with up to
// MaxPeers peers, or a client holding a single connection to its hub.
// Each connection has a reader goroutine that feeds one event queue;
// Poll drains that queue.
type Host struct {
	log      *zap.Logger
	maxPeers int
	local    string
	remote   string
	events   chan Event

	mu    sync.RWMutex
	peers map[string]*peer

	stopper   io.Closer // listener or server; nil for clients
	onClose   func()
	closeOnce sync.Once
	done      chan struct{}
	wg        sync.WaitGroup
}

func newHost(opts Options) *Host {
	opts = opts.withDefaults()
	return &Host{
		log:      opts.Logger,
		maxPeers: opts.MaxPeers,
		events:   make(chan Event, eventQueueDepth),
		peers:    make(map[string]*peer),
		done:     make(chan struct{}),
	}
}

// Addr returns the local listening address of a hub.
func (h *Host) Addr() string { return h.local }

// Remote returns the peer identifier of the hub a client is connected to.
// It is empty on a hub.
func (h *Host) Remote() string { return h.remote }

func (h *Host) Send(id string, pkt protocol.Packet) bool {
	h.mu.RLock()
	p, ok := h.peers[id]
	h.mu.RUnlock()
	if !ok {
		h.log.Warn("send to unknown peer", zap.String("peer", id), zap.Error(ErrUnknownPeer))
		return false
	}
	if err := p.write(pkt); err != nil {
		h.log.Warn("send failed",
			zap.String("peer", p.id),
			zap.String("conn", p.connID),
			zap.Error(err))
		return false
	}
	return true
}

func (h *Host) Broadcast(pkt protocol.Packet, except string) bool {
	h.mu.RLock()
	targets := lo.Filter(lo.Values(h.peers), func(p *peer, _ int) bool {
		return p.id != except
	})
	h.mu.RUnlock()

	ok := true
	for _, p := range targets {
		if err := p.write(pkt); err != nil {
			h.log.Warn("broadcast failed",
				zap.String("peer", p.id),
				zap.String("conn", p.connID),
				zap.Error(err))
			ok = false
		}
	}
	return ok
}

func (h *Host) Poll(ctx context.Context, timeout time.Duration) ([]Event, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var out []Event
	select {
	case ev := <-h.events:
		out = append(out, ev)
	case <-timer.C:
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-h.done:
		return nil, ErrClosed
	}
	for {
		select {
		case ev := <-h.events:
			out = append(out, ev)
		default:
			return out, nil
		}
	}
}

func (h *Host) Peers() []string {
	h.mu.RLock()
	ids := lo.Keys(h.peers)
	h.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

func (h *Host) Disconnect(id string) {
	h.mu.RLock()
	p, ok := h.peers[id]
	h.mu.RUnlock()
	if !ok {
		return
	}
	h.log.Info("disconnecting peer", zap.String("peer", p.id), zap.String("conn", p.connID))
	p.c.Close() //nolint:errcheck
}

func (h *Host) Close() error {
	h.closeOnce.Do(func() {
		// done is closed under mu so addPeer cannot register a reader
		// after Wait has started.
		h.mu.Lock()
		close(h.done)
		for _, p := range h.peers {
			p.c.Close() //nolint:errcheck
		}
		h.mu.Unlock()
		if h.stopper != nil {
			h.stopper.Close() //nolint:errcheck
		}
		if h.onClose != nil {
			h.onClose()
		}
	})
	h.wg.Wait()
	return nil
}

func (h *Host) closed() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// addPeer registers c and starts its reader. Hubs announce the connection
// with an EventConnect; a client's single connection is already established
// by the time its Host is returned.
func (h *Host) addPeer(c conn, announce bool) bool {
	id := c.RemoteAddr().String()
	p := &peer{
		id:     id,
		addr:   hostOf(id),
		connID: uuid.NewString(),
		c:      c,
	}

	h.mu.Lock()
	if h.closed() || len(h.peers) >= h.maxPeers {
		h.mu.Unlock()
		h.log.Warn("rejecting peer", zap.String("peer", id), zap.Error(ErrHubFull))
		c.Close() //nolint:errcheck
		return false
	}
	h.peers[id] = p
	h.wg.Add(1)
	h.mu.Unlock()

	h.log.Info("peer connected", zap.String("peer", id), zap.String("conn", p.connID))
	if announce {
		h.emit(Event{Type: EventConnect, Peer: p.id, Addr: p.addr})
	}
	go h.readLoop(p)
	return true
}

func (h *Host) readLoop(p *peer) {
	defer h.wg.Done()
	defer func() {
		p.c.Close() //nolint:errcheck
		h.mu.Lock()
		delete(h.peers, p.id)
		h.mu.Unlock()
		h.log.Info("peer disconnected", zap.String("peer", p.id), zap.String("conn", p.connID))
		h.emit(Event{Type: EventDisconnect, Peer: p.id, Addr: p.addr})
	}()

	for {
		pkt, err := p.c.ReadPacket()
		if errors.Is(err, protocol.ErrBadChannel) {
			h.log.Warn("dropping packet", zap.String("peer", p.id), zap.Error(err))
			continue
		}
		if err != nil {
			if !h.closed() && !errors.Is(err, io.EOF) {
				h.log.Debug("read ended", zap.String("peer", p.id), zap.Error(err))
			}
			return
		}
		h.emit(Event{Type: EventReceive, Peer: p.id, Addr: p.addr, Packet: pkt})
	}
}

// emit queues ev unless the host is shutting down.
func (h *Host) emit(ev Event) {
	if h.closed() {
		return
	}
	select {
	case h.events <- ev:
	case <-h.done:
	}
}

func hostOf(id string) string {
	host, _, err := net.SplitHostPort(id)
	if err != nil {
		return id
	}
	return host
}
