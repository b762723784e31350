// Package relay implements the vchat message-relay engine.
//
// Design:
//   - A Session is the single owned context for one process: its role,
//     chat log, session registry, command interpreter and transport.
//   - One goroutine (the relay loop) polls the transport with a bounded
//     timeout and reacts to connect, receive and disconnect events. A hub
//     re-broadcasts received chat to every peer except the sender.
//   - A second goroutine (the input loop) reads keys, edits the input
//     buffer and hands committed lines to Send.
//   - The loops share two leaf locks: the chat log's and the registry's
//     (the relay loop records joins, the input loop reads it for /who).
//     Neither is held while taking the other or across terminal or network
//     I/O; rendering works on snapshots.
//   - Both loops share one context. Quit, a fatal error or Stop cancels it;
//     the relay loop notices within one poll and the key read is cancelled
//     through the same context.
package relay

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Operative-001/vchat/internal/chatlog"
	"github.com/Operative-001/vchat/internal/command"
	"github.com/Operative-001/vchat/internal/input"
	"github.com/Operative-001/vchat/internal/protocol"
	"github.com/Operative-001/vchat/internal/registry"
	"github.com/Operative-001/vchat/internal/transport"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultPollInterval = time.Second

	// LostHubNotice is logged locally when a client's hub goes away.
	LostHubNotice = "Lost connection to the hub."
)

// Link is an open transport as returned by a Connector.
type Link struct {
	Transport transport.Transport
	// Upstream is the hub's peer id on a client; empty on a hub.
	Upstream string
	// Addr is the hub's listening address, announced in its own log.
	Addr string
}

// Connector opens the transport for a session. It runs once, while the
// session is Connecting; an error is fatal.
type Connector func(ctx context.Context) (Link, error)

// Display draws the two views. Implementations must be safe for use from
// both loops.
type Display interface {
	DrawLog(lines []string)
	DrawInput(buf []rune, cursor int)
}

// KeySource delivers classified key events. ReadKey blocks until a key
// arrives or ctx is done.
type KeySource interface {
	ReadKey(ctx context.Context) (input.Key, error)
}

// Config configures a Session.
type Config struct {
	Role     Role
	Username string
	// Border is the already-resolved sender border, e.g. "[Ann]: ".
	Border  string
	Connect Connector

	// Log defaults to a chatlog.New(chatlog.DefaultCapacity).
	Log *chatlog.Log
	// Registry is used on a hub only; defaults to an empty registry.
	Registry *registry.Registry
	// Commands replaces the built-in command table when non-nil.
	Commands []command.Command
	Rand     func(n int) int

	// Display defaults to a no-op. Without Keys no input loop runs.
	Display Display
	Keys    KeySource

	PollInterval time.Duration
	Logger       *zap.Logger
}

// Session is the relay engine for one process.
type Session struct {
	cfg     Config
	log     *zap.Logger
	chat    *chatlog.Log
	reg     *registry.Registry
	interp  *command.Interpreter
	display Display

	tr       transport.Transport
	upstream string

	state     atomic.Int32
	ready     chan struct{}
	mu        sync.Mutex
	cancel    context.CancelFunc
	stopped   bool
	closeOnce sync.Once
}

// New creates an idle Session.
func New(cfg Config) (*Session, error) {
	if cfg.Connect == nil {
		return nil, errors.New("relay: Connect is required")
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Log == nil {
		cfg.Log = chatlog.New(chatlog.DefaultCapacity)
	}
	if cfg.Registry == nil {
		cfg.Registry = registry.New()
	}
	if cfg.Display == nil {
		cfg.Display = nopDisplay{}
	}

	s := &Session{
		cfg:     cfg,
		log:     cfg.Logger.With(zap.Stringer("role", cfg.Role)),
		chat:    cfg.Log,
		reg:     cfg.Registry,
		display: cfg.Display,
		ready:   make(chan struct{}),
	}
	ic := command.Config{
		Hub:      cfg.Role == RoleHub,
		Username: cfg.Username,
		Border:   cfg.Border,
		Rand:     cfg.Rand,
		Commands: cfg.Commands,
	}
	if cfg.Role == RoleHub {
		ic.Online = s.reg.Online
	}
	s.interp = command.New(ic)
	return s, nil
}

// State returns the current lifecycle state.
func (s *Session) State() State { return State(s.state.Load()) }

// Ready is closed once the session is Active.
func (s *Session) Ready() <-chan struct{} { return s.ready }

// Log returns the session's chat log.
func (s *Session) Log() *chatlog.Log { return s.chat }

// Registry returns the session registry (meaningful on a hub).
func (s *Session) Registry() *registry.Registry { return s.reg }

func (s *Session) setState(st State) {
	prev := State(s.state.Swap(int32(st)))
	if prev != st {
		s.log.Info("session state", zap.Stringer("from", prev), zap.Stringer("to", st))
	}
}

// Run connects, runs the relay and input loops until Stop, a quit key, a
// fatal error or ctx cancellation, then shuts down. It returns the connect
// error on a failed start and nil on a normal shutdown.
func (s *Session) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		s.setState(StateTerminated)
		return nil
	}
	s.cancel = cancel
	s.mu.Unlock()

	s.setState(StateConnecting)
	link, err := s.cfg.Connect(ctx)
	if err != nil {
		s.setState(StateTerminated)
		if s.stopRequested() && ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("relay: connect: %w", err)
	}
	s.tr = link.Transport
	s.upstream = link.Upstream

	switch s.cfg.Role {
	case RoleHub:
		s.Send(fmt.Sprintf("Server started on ip: %s", link.Addr))
	case RoleClient:
		if !s.tr.Send(s.upstream, protocol.Join(s.cfg.Username)) {
			s.log.Warn("join handshake not sent", zap.String("hub", s.upstream))
		}
	}

	s.setState(StateActive)
	close(s.ready)
	s.redraw()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.relayLoop(gctx) })
	if s.cfg.Keys != nil {
		g.Go(func() error { return s.inputLoop(gctx) })
	}
	err = g.Wait()

	s.shutdown()
	return err
}

// Stop requests shutdown. It is safe to call from any goroutine, any number
// of times, before or during Run.
func (s *Session) Stop() {
	s.mu.Lock()
	s.stopped = true
	cancel := s.cancel
	s.mu.Unlock()
	if s.State() == StateActive {
		s.setState(StateShuttingDown)
	}
	if cancel != nil {
		cancel()
	}
}

func (s *Session) stopRequested() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

func (s *Session) shutdown() {
	s.closeOnce.Do(func() {
		s.setState(StateShuttingDown)
		for _, p := range s.tr.Peers() {
			s.tr.Disconnect(p)
		}
		if err := s.tr.Close(); err != nil {
			s.log.Warn("transport close", zap.Error(err))
		}
		s.setState(StateTerminated)
	})
}

// Send relays a locally composed line. A command line is consumed by the
// interpreter and the lines it produces are relayed instead; anything else
// is logged, redrawn and transmitted. Send must only be called once Ready
// is closed.
func (s *Session) Send(msg string) {
	if out, ok := s.interp.Interpret(msg); ok {
		s.log.Debug("command", zap.String("line", msg), zap.Int("produced", len(out)))
		for _, m := range out {
			s.publish(m)
		}
		return
	}
	s.publish(msg)
}

// publish logs msg and transmits it: a hub broadcasts to every peer, a
// client sends to its hub. Notices and command output use this path
// directly so that their text is never interpreted as a command.
func (s *Session) publish(msg string) {
	s.record(msg)
	pkt := protocol.Chat(msg)
	if s.cfg.Role == RoleHub {
		s.tr.Broadcast(pkt, "")
		return
	}
	if !s.tr.Send(s.upstream, pkt) {
		s.log.Warn("message not delivered to hub", zap.String("hub", s.upstream))
	}
}

func (s *Session) record(msg string) {
	if s.chat.Append(msg) {
		s.log.Debug("chat log evicted oldest line", zap.Int("capacity", s.chat.Cap()))
	}
	s.redraw()
}

func (s *Session) redraw() {
	s.display.DrawLog(s.chat.Snapshot())
}

type nopDisplay struct{}

func (nopDisplay) DrawLog([]string)      {}
func (nopDisplay) DrawInput([]rune, int) {}
