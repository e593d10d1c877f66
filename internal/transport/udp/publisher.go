// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"

	"capture/internal/audio"
)

// Wire format constants. Fixed-size big-endian packet, one per status
// snapshot.
const (
	packetMagic   = 0x43415054 // "CAPT"
	packetVersion = 1
)

// Publisher encodes audio.Status snapshots as binary packets and sends
// them through a Sender. It implements transport.Transport.
//
// Packet layout, big endian:
//
//	u32 magic, u8 version, u8 state, u16 reserved
//	u32 sequence, u64 unix timestamp (ms)
//	u32 remaining beats, u32 count-in beat
//	f32 count-in progress, f64 tempo BPM
//	u8 metronome enabled, u8 padding ×3
//	f64 recorded seconds
//	f32 peak left, f32 peak right
//	u64 overflows
type Publisher struct {
	sender *Sender
	seq    uint32
	buf    *bytes.Buffer
}

// NewPublisher creates a publisher sending to targetAddr.
func NewPublisher(targetAddr string) (*Publisher, error) {
	sender, err := NewSender(targetAddr)
	if err != nil {
		return nil, err
	}
	return &Publisher{
		sender: sender,
		buf:    bytes.NewBuffer(make([]byte, 0, 128)),
	}, nil
}

// Send encodes and transmits one status snapshot. data must be an
// audio.Status.
func (p *Publisher) Send(data any) error {
	status, ok := data.(audio.Status)
	if !ok {
		return fmt.Errorf("unsupported payload type %T", data)
	}

	p.seq++
	p.buf.Reset()

	var enabled uint8
	if status.MetronomeEnabled {
		enabled = 1
	}

	fields := []any{
		uint32(packetMagic),
		uint8(packetVersion),
		uint8(status.State),
		uint16(0),
		p.seq,
		uint64(time.Now().UnixMilli()),
		status.RemainingBeats,
		status.CountInBeat,
		status.CountInProgress,
		status.TempoBPM,
		enabled,
		[3]uint8{},
		status.RecordedSeconds,
		status.PeakLeft,
		status.PeakRight,
		status.Overflows,
	}
	for _, f := range fields {
		if err := binary.Write(p.buf, binary.BigEndian, f); err != nil {
			return fmt.Errorf("failed to encode status packet: %w", err)
		}
	}

	return p.sender.Write(p.buf.Bytes())
}

// Close shuts the underlying sender down.
func (p *Publisher) Close() error {
	return p.sender.Close()
}
