package transport

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/Operative-001/vchat/internal/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
)

type dialFunc func(ctx context.Context, addr string, opts Options) (*Host, error)
type listenFunc func(addr string, opts Options) (*Host, error)

func dialTCP(ctx context.Context, addr string, opts Options) (*Host, error) {
	return DialTCP(ctx, addr, time.Second, opts)
}

func dialWS(ctx context.Context, addr string, opts Options) (*Host, error) {
	return DialWebSocket(ctx, addr, time.Second, opts)
}

// next polls h until an event of type want arrives.
func next(t *testing.T, h *Host, want EventType) Event {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		events, err := h.Poll(context.Background(), 50*time.Millisecond)
		require.NoError(t, err)
		for _, ev := range events {
			if ev.Type == want {
				return ev
			}
		}
	}
	t.Fatalf("timeout waiting for %s event", want)
	return Event{}
}

// quiet asserts no receive event arrives on h for a short period.
func quiet(t *testing.T, h *Host) {
	t.Helper()
	events, err := h.Poll(context.Background(), 100*time.Millisecond)
	require.NoError(t, err)
	for _, ev := range events {
		assert.NotEqual(t, EventReceive, ev.Type, "unexpected packet %q", ev.Packet.Text())
	}
}

func testHubRelay(t *testing.T, listen listenFunc, dial dialFunc, addr string) {
	opts := Options{Logger: zaptest.NewLogger(t)}
	hub, err := listen(addr, opts)
	require.NoError(t, err)
	defer hub.Close()

	ctx := context.Background()
	a, err := dial(ctx, hub.Addr(), opts)
	require.NoError(t, err)
	defer a.Close()
	connA := next(t, hub, EventConnect)

	b, err := dial(ctx, hub.Addr(), opts)
	require.NoError(t, err)
	defer b.Close()
	connB := next(t, hub, EventConnect)
	require.NotEqual(t, connA.Peer, connB.Peer)

	require.True(t, a.Send(a.Remote(), protocol.Join("Ann")))
	ev := next(t, hub, EventReceive)
	assert.Equal(t, protocol.ChannelJoin, ev.Packet.Channel)
	assert.Equal(t, "Ann", ev.Packet.Text())
	assert.Equal(t, connA.Peer, ev.Peer)

	require.True(t, a.Send(a.Remote(), protocol.Chat("[Ann]: hello")))
	ev = next(t, hub, EventReceive)
	require.Equal(t, "[Ann]: hello", ev.Packet.Text())

	// Re-broadcast excluding the sender.
	require.True(t, hub.Broadcast(ev.Packet, ev.Peer))
	got := next(t, b, EventReceive)
	assert.Equal(t, "[Ann]: hello", got.Packet.Text())
	assert.Equal(t, protocol.ChannelChat, got.Packet.Channel)
	quiet(t, a)

	require.NoError(t, b.Close())
	left := next(t, hub, EventDisconnect)
	assert.Equal(t, connB.Peer, left.Peer)
	assert.Len(t, hub.Peers(), 1)
}

func TestTCPHubRelay(t *testing.T) {
	defer goleak.VerifyNone(t)
	testHubRelay(t, ListenTCP, dialTCP, "127.0.0.1:0")
}

func TestWebSocketHubRelay(t *testing.T) {
	testHubRelay(t, ListenWebSocket, dialWS, "127.0.0.1:0")
}

func TestMemoryHubRelay(t *testing.T) {
	testHubRelay(t, ListenMemory, DialMemory, "hub-relay")
}

func TestListenTCPBindFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	_, err = ListenTCP(ln.Addr().String(), Options{})
	var initErr *TransportInitError
	require.ErrorAs(t, err, &initErr)
	assert.Equal(t, ln.Addr().String(), initErr.Addr)
}

func TestDialTCPFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	_, err = DialTCP(context.Background(), addr, 500*time.Millisecond, Options{})
	var connErr *ConnectTimeoutError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, addr, connErr.Addr)
	assert.Equal(t, 500*time.Millisecond, connErr.Timeout)
	assert.False(t, connErr.TimedOut(), "a refused connection is not a timeout")
}

func TestDialTCPTimedOut(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()
	_, err = DialTCP(ctx, ln.Addr().String(), time.Second, Options{})
	var connErr *ConnectTimeoutError
	require.ErrorAs(t, err, &connErr)
	assert.True(t, connErr.TimedOut())
}

func TestDialMemoryUnknownHub(t *testing.T) {
	_, err := DialMemory(context.Background(), "nobody-home", Options{})
	var connErr *ConnectTimeoutError
	require.ErrorAs(t, err, &connErr)
}

func TestListenMemoryNameTaken(t *testing.T) {
	hub, err := ListenMemory("taken", Options{})
	require.NoError(t, err)
	_, err = ListenMemory("taken", Options{})
	var initErr *TransportInitError
	require.ErrorAs(t, err, &initErr)

	require.NoError(t, hub.Close())
	again, err := ListenMemory("taken", Options{})
	require.NoError(t, err, "name should be free after Close")
	again.Close()
}

func TestMaxPeers(t *testing.T) {
	hub, err := ListenMemory("tiny", Options{MaxPeers: 1})
	require.NoError(t, err)
	defer hub.Close()

	a, err := DialMemory(context.Background(), "tiny", Options{})
	require.NoError(t, err)
	defer a.Close()

	_, err = DialMemory(context.Background(), "tiny", Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrHubFull))
	assert.Len(t, hub.Peers(), 1)
}

func TestPollTimeoutAndCancel(t *testing.T) {
	hub, err := ListenMemory("idle", Options{})
	require.NoError(t, err)
	defer hub.Close()

	start := time.Now()
	events, err := hub.Poll(context.Background(), 30*time.Millisecond)
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = hub.Poll(ctx, time.Second)
	assert.ErrorIs(t, err, context.Canceled)

	hub.Close()
	_, err = hub.Poll(context.Background(), time.Second)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestSendUnknownPeer(t *testing.T) {
	hub, err := ListenMemory("lonely", Options{})
	require.NoError(t, err)
	defer hub.Close()
	assert.False(t, hub.Send("mem-404", protocol.Chat("hi")))
}

func TestDisconnectEmitsEvent(t *testing.T) {
	hub, err := ListenMemory("kick", Options{})
	require.NoError(t, err)
	defer hub.Close()

	c, err := DialMemory(context.Background(), "kick", Options{})
	require.NoError(t, err)
	defer c.Close()
	joined := next(t, hub, EventConnect)

	hub.Disconnect(joined.Peer)
	left := next(t, hub, EventDisconnect)
	assert.Equal(t, joined.Peer, left.Peer)
	next(t, c, EventDisconnect)
}

func TestHostOf(t *testing.T) {
	assert.Equal(t, "127.0.0.1", hostOf("127.0.0.1:9000"))
	assert.Equal(t, "::1", hostOf("[::1]:9000"))
	assert.Equal(t, "mem-7", hostOf("mem-7"))
}

func TestCloseRacesIncomingPeers(t *testing.T) {
	defer goleak.VerifyNone(t)

	for round := 0; round < 20; round++ {
		hub, err := ListenMemory("closing", Options{MaxPeers: 64})
		require.NoError(t, err)

		var wg sync.WaitGroup
		clients := make(chan *Host, 16)
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if c, err := DialMemory(context.Background(), "closing", Options{}); err == nil {
					clients <- c
				}
			}()
		}
		require.NoError(t, hub.Close())
		wg.Wait()
		close(clients)
		for c := range clients {
			c.Close()
		}
		assert.Empty(t, hub.Peers())
	}
}
