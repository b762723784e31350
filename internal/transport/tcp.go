package transport

import (
	"bufio"
	"context"
	"net"
	"time"

	"github.com/Operative-001/vchat/internal/protocol"
	"go.uber.org/zap"
)

// streamConn frames packets over a byte stream.
// Framing: channel byte, 2-byte big-endian length, NUL-terminated payload.
type streamConn struct {
	net.Conn
	r      *bufio.Reader
	remote net.Addr
}

func newStreamConn(c net.Conn, remote net.Addr) *streamConn {
	if remote == nil {
		remote = c.RemoteAddr()
	}
	return &streamConn{Conn: c, r: bufio.NewReader(c), remote: remote}
}

func (c *streamConn) ReadPacket() (protocol.Packet, error) {
	return protocol.ReadPacket(c.r)
}

func (c *streamConn) WritePacket(pkt protocol.Packet) error {
	return protocol.WritePacket(c.Conn, pkt)
}

func (c *streamConn) RemoteAddr() net.Addr { return c.remote }

// ListenTCP starts a hub accepting raw TCP peers on addr.
func ListenTCP(addr string, opts Options) (*Host, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, &TransportInitError{Addr: addr, Err: err}
	}
	h := newHost(opts)
	h.local = ln.Addr().String()
	h.stopper = ln

	h.wg.Add(1)
	go h.acceptLoop(ln)
	h.log.Info("hub listening", zap.String("transport", "tcp"), zap.String("addr", h.local))
	return h, nil
}

// DialTCP connects a client to the hub at addr. A single attempt is made.
func DialTCP(ctx context.Context, addr string, timeout time.Duration, opts Options) (*Host, error) {
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}
	d := net.Dialer{Timeout: timeout}
	c, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, &ConnectTimeoutError{Addr: addr, Timeout: timeout, Err: err}
	}
	opts.MaxPeers = 1
	h := newHost(opts)
	h.local = c.LocalAddr().String()
	h.remote = c.RemoteAddr().String()
	h.addPeer(newStreamConn(c, nil), false)
	h.log.Info("connected to hub", zap.String("transport", "tcp"), zap.String("addr", h.remote))
	return h, nil
}

func (h *Host) acceptLoop(ln net.Listener) {
	defer h.wg.Done()
	for {
		c, err := ln.Accept()
		if err != nil {
			return
		}
		h.addPeer(newStreamConn(c, nil), true)
	}
}
