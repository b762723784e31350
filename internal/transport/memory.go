package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"
)

// In-process transport for tests. ListenMemory registers a hub under a name;
// DialMemory connects to it over a synchronous net.Pipe using the same
// framing as TCP. Every dialed client gets a unique "mem-N" address.

var (
	registryMu sync.Mutex
	registry   = map[string]*Host{}
	nextID     int
)

var errAddrInUse = errors.New("address already in use")

type memAddr string

func (a memAddr) Network() string { return "memory" }
func (a memAddr) String() string  { return string(a) }

// ListenMemory starts an in-process hub registered under name.
func ListenMemory(name string, opts Options) (*Host, error) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, taken := registry[name]; taken {
		return nil, &TransportInitError{Addr: name, Err: errAddrInUse}
	}
	h := newHost(opts)
	h.local = name
	h.onClose = func() {
		registryMu.Lock()
		delete(registry, name)
		registryMu.Unlock()
	}
	registry[name] = h
	return h, nil
}

// DialMemory connects a client to the in-process hub registered under name.
func DialMemory(_ context.Context, name string, opts Options) (*Host, error) {
	registryMu.Lock()
	hub, ok := registry[name]
	nextID++
	id := fmt.Sprintf("mem-%d", nextID)
	registryMu.Unlock()
	if !ok {
		return nil, &ConnectTimeoutError{
			Addr:    name,
			Timeout: DefaultConnectTimeout,
			Err:     fmt.Errorf("memory transport: no hub named %q", name),
		}
	}

	hubSide, clientSide := net.Pipe()
	if !hub.addPeer(newStreamConn(hubSide, memAddr(id)), true) {
		clientSide.Close() //nolint:errcheck
		return nil, &ConnectTimeoutError{Addr: name, Timeout: time.Duration(0), Err: ErrHubFull}
	}

	opts.MaxPeers = 1
	h := newHost(opts)
	h.local = id
	h.remote = name
	h.addPeer(newStreamConn(clientSide, memAddr(name)), false)
	return h, nil
}
