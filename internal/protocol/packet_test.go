package protocol

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func TestEncodeDecodeRoundtrip(t *testing.T) {
	pkt := Chat("[Ann]: hello")

	wire, err := pkt.Encode()
	if err != nil {
		t.Fatal(err)
	}
	if len(wire) != HeaderSize+len(pkt.Payload)+1 {
		t.Fatalf("encoded size %d", len(wire))
	}
	if wire[len(wire)-1] != 0 {
		t.Fatal("payload not NUL terminated")
	}

	decoded, err := Decode(wire)
	if err != nil {
		t.Fatal(err)
	}
	if decoded.Channel != ChannelChat {
		t.Fatalf("channel mismatch: %d", decoded.Channel)
	}
	if decoded.Text() != "[Ann]: hello" {
		t.Fatalf("payload mismatch: got %q", decoded.Text())
	}
}

func TestDecodeTruncated(t *testing.T) {
	_, err := Decode([]byte{0, 0})
	if !errors.Is(err, ErrTruncated) {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}

	wire, _ := Join("Ann").Encode()
	if _, err := Decode(wire[:len(wire)-1]); !errors.Is(err, ErrTruncated) {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
}

func TestDecodeStopsAtNUL(t *testing.T) {
	// A handshake without a terminator and one with trailing garbage after
	// the terminator both decode to the same name.
	raw := []byte{ChannelJoin, 0, 3, 'A', 'n', 'n'}
	p, err := Decode(raw)
	if err != nil {
		t.Fatal(err)
	}
	if p.Text() != "Ann" {
		t.Fatalf("got %q", p.Text())
	}

	raw = []byte{ChannelJoin, 0, 6, 'A', 'n', 'n', 0, 'x', 'y'}
	p, err = Decode(raw)
	if err != nil {
		t.Fatal(err)
	}
	if p.Text() != "Ann" {
		t.Fatalf("got %q", p.Text())
	}
}

func TestUnknownChannel(t *testing.T) {
	_, err := Decode([]byte{7, 0, 1, 0})
	if !errors.Is(err, ErrBadChannel) {
		t.Fatalf("expected ErrBadChannel, got %v", err)
	}
}

func TestPayloadTooLarge(t *testing.T) {
	_, err := Packet{Payload: make([]byte, MaxPayload+1)}.Encode()
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
	if _, err := (Packet{Payload: make([]byte, MaxPayload)}).Encode(); err != nil {
		t.Fatalf("max payload should encode: %v", err)
	}
}

func TestStreamReadWrite(t *testing.T) {
	tests := []struct {
		name string
		pkt  Packet
	}{
		{"empty", Chat("")},
		{"chat", Chat("hi there")},
		{"join", Join("Ann")},
		{"unicode", Chat("¯\\_(ツ)_/¯")},
	}

	var buf bytes.Buffer
	for _, tc := range tests {
		if err := WritePacket(&buf, tc.pkt); err != nil {
			t.Fatal(err)
		}
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ReadPacket(&buf)
			if err != nil {
				t.Fatal(err)
			}
			if got.Channel != tc.pkt.Channel || got.Text() != tc.pkt.Text() {
				t.Fatalf("got %d/%q want %d/%q", got.Channel, got.Text(), tc.pkt.Channel, tc.pkt.Text())
			}
		})
	}
	if _, err := ReadPacket(&buf); err != io.EOF {
		t.Fatalf("expected io.EOF at end of stream, got %v", err)
	}
}

func TestReadPacketShortBody(t *testing.T) {
	r := bytes.NewReader([]byte{ChannelChat, 0, 5, 'a', 'b'})
	if _, err := ReadPacket(r); err != io.ErrUnexpectedEOF {
		t.Fatalf("expected io.ErrUnexpectedEOF, got %v", err)
	}
}
