package transport

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/Operative-001/vchat/internal/protocol"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// WebSocketPath is the HTTP path a WebSocket hub upgrades on.
const WebSocketPath = "/chat"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// wsConn carries one encoded packet per binary WebSocket message.
type wsConn struct {
	ws *websocket.Conn
}

func (c *wsConn) ReadPacket() (protocol.Packet, error) {
	for {
		mt, data, err := c.ws.ReadMessage()
		if err != nil {
			return protocol.Packet{}, err
		}
		if mt != websocket.BinaryMessage {
			continue
		}
		return protocol.Decode(data)
	}
}

func (c *wsConn) WritePacket(pkt protocol.Packet) error {
	wire, err := pkt.Encode()
	if err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.BinaryMessage, wire)
}

func (c *wsConn) RemoteAddr() net.Addr { return c.ws.RemoteAddr() }

func (c *wsConn) Close() error {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second)) //nolint:errcheck
	return c.ws.Close()
}

// ListenWebSocket starts a hub that accepts peers upgrading on WebSocketPath.
func ListenWebSocket(addr string, opts Options) (*Host, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, &TransportInitError{Addr: addr, Err: err}
	}
	h := newHost(opts)
	h.local = ln.Addr().String()

	mux := http.NewServeMux()
	mux.HandleFunc(WebSocketPath, func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.log.Warn("websocket upgrade failed", zap.String("remote", r.RemoteAddr), zap.Error(err))
			return
		}
		h.addPeer(&wsConn{ws: ws}, true)
	})
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	h.stopper = srv

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			h.log.Error("websocket hub stopped", zap.Error(err))
		}
	}()
	h.log.Info("hub listening", zap.String("transport", "ws"), zap.String("addr", h.local))
	return h, nil
}

// DialWebSocket connects a client to a WebSocket hub. addr may be a bare
// host:port or a full ws:// URL.
func DialWebSocket(ctx context.Context, addr string, timeout time.Duration, opts Options) (*Host, error) {
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}
	url := addr
	if !strings.Contains(addr, "://") {
		url = "ws://" + addr + WebSocketPath
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	d := websocket.Dialer{HandshakeTimeout: timeout}
	ws, resp, err := d.DialContext(ctx, url, nil)
	if err != nil {
		return nil, &ConnectTimeoutError{Addr: addr, Timeout: timeout, Err: err}
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close() //nolint:errcheck
	}

	opts.MaxPeers = 1
	h := newHost(opts)
	h.local = ws.LocalAddr().String()
	h.remote = ws.RemoteAddr().String()
	h.addPeer(&wsConn{ws: ws}, false)
	h.log.Info("connected to hub", zap.String("transport", "ws"), zap.String("addr", url))
	return h, nil
}
