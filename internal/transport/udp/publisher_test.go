// SPDX-License-Identifier: MIT
package udp

import (
	"encoding/binary"
	"net"
	"testing"
	"time"

	"capture/internal/audio"
)

func TestPublisherSendsDecodablePacket(t *testing.T) {
	listener, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to open listener: %v", err)
	}
	defer listener.Close()

	p, err := NewPublisher(listener.LocalAddr().String())
	if err != nil {
		t.Fatalf("failed to create publisher: %v", err)
	}
	defer p.Close()

	status := audio.Status{
		State:            audio.StateCountingIn,
		RemainingBeats:   6,
		CountInBeat:      3,
		CountInProgress:  0.25,
		TempoBPM:         128,
		MetronomeEnabled: true,
		RecordedSeconds:  0,
		PeakLeft:         0.5,
		PeakRight:        0.75,
		Overflows:        2,
	}
	if err := p.Send(status); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	listener.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 256)
	n, _, err := listener.ReadFrom(buf)
	if err != nil {
		t.Fatalf("failed to receive packet: %v", err)
	}
	pkt := buf[:n]

	if got := binary.BigEndian.Uint32(pkt[0:4]); got != packetMagic {
		t.Errorf("expected magic %#x, got %#x", packetMagic, got)
	}
	if pkt[4] != packetVersion {
		t.Errorf("expected version %d, got %d", packetVersion, pkt[4])
	}
	if got := audio.State(pkt[5]); got != audio.StateCountingIn {
		t.Errorf("expected counting_in state byte, got %v", got)
	}
	if got := binary.BigEndian.Uint32(pkt[8:12]); got != 1 {
		t.Errorf("expected sequence 1, got %d", got)
	}
	if got := binary.BigEndian.Uint32(pkt[20:24]); got != 6 {
		t.Errorf("expected 6 remaining beats, got %d", got)
	}
}

func TestPublisherSequenceIncrements(t *testing.T) {
	listener, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to open listener: %v", err)
	}
	defer listener.Close()

	p, err := NewPublisher(listener.LocalAddr().String())
	if err != nil {
		t.Fatalf("failed to create publisher: %v", err)
	}
	defer p.Close()

	for i := 0; i < 3; i++ {
		if err := p.Send(audio.Status{}); err != nil {
			t.Fatalf("send %d failed: %v", i, err)
		}
	}

	buf := make([]byte, 256)
	var last uint32
	for i := 0; i < 3; i++ {
		listener.SetReadDeadline(time.Now().Add(2 * time.Second))
		n, _, err := listener.ReadFrom(buf)
		if err != nil {
			t.Fatalf("failed to receive packet %d: %v", i, err)
		}
		seq := binary.BigEndian.Uint32(buf[:n][8:12])
		if seq <= last {
			t.Errorf("sequence not increasing: %d after %d", seq, last)
		}
		last = seq
	}
}

func TestPublisherRejectsWrongPayload(t *testing.T) {
	listener, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to open listener: %v", err)
	}
	defer listener.Close()

	p, err := NewPublisher(listener.LocalAddr().String())
	if err != nil {
		t.Fatalf("failed to create publisher: %v", err)
	}
	defer p.Close()

	if err := p.Send("not a status"); err == nil {
		t.Fatal("expected an error for a non-status payload")
	}
}

func TestSenderClosedWrite(t *testing.T) {
	listener, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to open listener: %v", err)
	}
	defer listener.Close()

	s, err := NewSender(listener.LocalAddr().String())
	if err != nil {
		t.Fatalf("failed to create sender: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if err := s.Write([]byte{1}); err == nil {
		t.Fatal("expected an error writing to a closed sender")
	}
	if err := s.Close(); err != nil {
		t.Errorf("double close should be a no-op, got %v", err)
	}
}
