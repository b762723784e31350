// Package protocol defines the vchat wire format.
//
// A packet is a channel byte, a 2-byte big-endian length and the payload.
// Payloads are NUL-terminated text; the terminator is counted in the length
// and stripped again on decode, so a sender that omits it is still accepted.
package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
)

const (
	HeaderSize = 1 + 2 // channel + payloadLen
	MaxPayload = 1<<16 - 1 - 1

	// ChannelChat carries chat text.
	ChannelChat byte = 0
	// ChannelJoin carries the join handshake: the client's display name,
	// sent once right after connecting.
	ChannelJoin byte = 1
)

// Packet is one unit of network traffic on a channel.
type Packet struct {
	Channel byte
	Payload []byte
}

var (
	ErrTooLarge   = errors.New("packet: payload exceeds MaxPayload")
	ErrTruncated  = errors.New("packet: truncated")
	ErrBadChannel = errors.New("packet: unknown channel")
)

// Chat builds a chat packet from text.
func Chat(text string) Packet {
	return Packet{Channel: ChannelChat, Payload: []byte(text)}
}

// Join builds a join handshake packet carrying a display name.
func Join(name string) Packet {
	return Packet{Channel: ChannelJoin, Payload: []byte(name)}
}

// Text returns the payload as a string.
func (p Packet) Text() string {
	return string(p.Payload)
}

// Encode serialises p with its header and NUL terminator.
func (p Packet) Encode() ([]byte, error) {
	if len(p.Payload) > MaxPayload {
		return nil, ErrTooLarge
	}
	buf := make([]byte, HeaderSize+len(p.Payload)+1)
	buf[0] = p.Channel
	binary.BigEndian.PutUint16(buf[1:], uint16(len(p.Payload)+1))
	copy(buf[HeaderSize:], p.Payload)
	return buf, nil
}

// Decode parses one complete encoded packet.
func Decode(b []byte) (Packet, error) {
	if len(b) < HeaderSize {
		return Packet{}, ErrTruncated
	}
	n := int(binary.BigEndian.Uint16(b[1:]))
	if len(b)-HeaderSize != n {
		return Packet{}, ErrTruncated
	}
	return newPacket(b[0], b[HeaderSize:])
}

// ReadPacket reads exactly one packet from r.
func ReadPacket(r io.Reader) (Packet, error) {
	var hdr [HeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return Packet{}, err
	}
	n := int(binary.BigEndian.Uint16(hdr[1:]))
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return Packet{}, err
	}
	return newPacket(hdr[0], buf)
}

// WritePacket encodes p and writes it to w in a single call.
func WritePacket(w io.Writer, p Packet) error {
	wire, err := p.Encode()
	if err != nil {
		return err
	}
	_, err = w.Write(wire)
	return err
}

func newPacket(channel byte, payload []byte) (Packet, error) {
	if channel != ChannelChat && channel != ChannelJoin {
		return Packet{}, ErrBadChannel
	}
	if i := bytes.IndexByte(payload, 0); i >= 0 {
		payload = payload[:i]
	}
	return Packet{Channel: channel, Payload: payload}, nil
}
