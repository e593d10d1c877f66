// SPDX-License-Identifier: MIT
//
// Package udp sends compact binary status packets to a fixed target,
// for consumers that want meter-rate updates without a WebSocket
// session (hardware controllers, OSC-style bridges).
package udp

import (
	"fmt"
	"net"
	"sync"
)

// Sender writes datagrams to a single preconfigured target address.
type Sender struct {
	mu     sync.Mutex
	conn   net.Conn
	closed bool
}

// NewSender resolves the target and opens the socket.
func NewSender(targetAddr string) (*Sender, error) {
	conn, err := net.Dial("udp", targetAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to dial UDP target %s: %w", targetAddr, err)
	}
	return &Sender{conn: conn}, nil
}

// Write sends one datagram. Delivery is best effort.
func (s *Sender) Write(payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("sender closed")
	}
	if _, err := s.conn.Write(payload); err != nil {
		return fmt.Errorf("udp write: %w", err)
	}
	return nil
}

// Close shuts the socket down.
func (s *Sender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.conn.Close()
}
