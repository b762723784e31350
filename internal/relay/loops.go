package relay

import (
	"context"
	"errors"

	"github.com/Operative-001/vchat/internal/input"
	"github.com/Operative-001/vchat/internal/protocol"
	"github.com/Operative-001/vchat/internal/transport"
	"go.uber.org/zap"
)

// relayLoop polls the transport until ctx is done. Each poll blocks for at
// most PollInterval, which bounds how long shutdown takes to be noticed.
func (s *Session) relayLoop(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		events, err := s.tr.Poll(ctx, s.cfg.PollInterval)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, transport.ErrClosed) {
				s.log.Warn("transport closed underneath the relay loop")
			}
			return err
		}
		for _, ev := range events {
			s.handleEvent(ev)
		}
	}
}

func (s *Session) handleEvent(ev transport.Event) {
	switch ev.Type {
	case transport.EventConnect:
		s.log.Info("peer connected", zap.String("peer", ev.Peer))

	case transport.EventReceive:
		if ev.Packet.Channel == protocol.ChannelJoin {
			if s.cfg.Role != RoleHub {
				return
			}
			name := ev.Packet.Text()
			s.log.Info("peer joined", zap.String("peer", ev.Peer), zap.String("name", name))
			s.publish(s.reg.OnJoin(ev.Addr, name))
			return
		}
		s.record(ev.Packet.Text())
		if s.cfg.Role == RoleHub {
			s.tr.Broadcast(ev.Packet, ev.Peer)
		}

	case transport.EventDisconnect:
		s.log.Info("peer disconnected", zap.String("peer", ev.Peer))
		if s.cfg.Role == RoleHub {
			s.publish(s.reg.OnDisconnect(ev.Addr))
			return
		}
		s.record(LostHubNotice)
	}
}

// inputLoop edits the input buffer from key events and sends each
// committed line with the sender border prepended.
func (s *Session) inputLoop(ctx context.Context) error {
	var ed input.Editor
	for {
		s.display.DrawInput(ed.Buffer(), ed.Cursor())

		k, err := s.cfg.Keys.ReadKey(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		switch k.Kind {
		case input.KeyQuit:
			s.log.Info("quit requested")
			s.Stop()
			return nil
		case input.KeyResize:
			s.redraw()
			continue
		}

		if line, ok := ed.Apply(k); ok {
			s.Send(s.cfg.Border + line)
		}
	}
}
