package transport

import (
	"errors"
	"fmt"
	"net"
	"time"
)

var (
	ErrClosed      = errors.New("transport: closed")
	ErrUnknownPeer = errors.New("transport: unknown peer")
	ErrHubFull     = errors.New("transport: hub is full")
)

// TransportInitError reports that a hub endpoint could not be bound.
type TransportInitError struct {
	Addr string
	Err  error
}

func (e *TransportInitError) Error() string {
	return fmt.Sprintf("transport: cannot start hub on %s: %v", e.Addr, e.Err)
}

func (e *TransportInitError) Unwrap() error { return e.Err }

// ConnectTimeoutError reports that a client could not reach its hub within
// the connect timeout.
type ConnectTimeoutError struct {
	Addr    string
	Timeout time.Duration
	Err     error
}

func (e *ConnectTimeoutError) Error() string {
	return fmt.Sprintf("transport: failed to connect to %s within %s: %v", e.Addr, e.Timeout, e.Err)
}

func (e *ConnectTimeoutError) Unwrap() error { return e.Err }

// TimedOut reports whether the attempt ran out of time rather than being
// refused outright.
func (e *ConnectTimeoutError) TimedOut() bool {
	var ne net.Error
	return errors.As(e.Err, &ne) && ne.Timeout()
}
