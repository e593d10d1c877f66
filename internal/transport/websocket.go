// SPDX-License-Identifier: MIT
package transport

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"capture/internal/log"

	"github.com/gorilla/websocket"
)

// WebSocketTransport broadcasts JSON-encoded status snapshots to every
// connected client. Clients that fall behind or error out are dropped.
type WebSocketTransport struct {
	server   *http.Server
	listener net.Listener
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]bool
	closed  bool
}

// NewWebSocketTransport creates a transport listening on addr and
// serving the stream at /ws.
func NewWebSocketTransport(addr string) (*WebSocketTransport, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	t := &WebSocketTransport{
		listener: listener,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Status is broadcast-only telemetry; any origin may read it.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*websocket.Conn]bool),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", t.handleWS)
	t.server = &http.Server{Handler: mux}

	go func() {
		log.Infof("websocket transport listening on %s", listener.Addr())
		if err := t.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Errorf("websocket server: %v", err)
		}
	}()

	return t, nil
}

// Addr returns the bound listen address.
func (t *WebSocketTransport) Addr() string {
	return t.listener.Addr().String()
}

func (t *WebSocketTransport) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := t.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warnf("websocket upgrade failed: %v", err)
		return
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		conn.Close()
		return
	}
	t.clients[conn] = true
	n := len(t.clients)
	t.mu.Unlock()
	log.Debugf("websocket client connected (%d total)", n)

	// Drain and discard client reads so pings and close frames are
	// processed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				t.dropClient(conn)
				return
			}
		}
	}()
}

func (t *WebSocketTransport) dropClient(conn *websocket.Conn) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.clients[conn] {
		delete(t.clients, conn)
		conn.Close()
	}
}

// Send marshals data to JSON and broadcasts it to all clients.
func (t *WebSocketTransport) Send(data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal status: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return fmt.Errorf("transport closed")
	}

	for conn := range t.clients {
		conn.SetWriteDeadline(time.Now().Add(time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			delete(t.clients, conn)
			conn.Close()
		}
	}
	return nil
}

// Close disconnects all clients and shuts the server down.
func (t *WebSocketTransport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	for conn := range t.clients {
		conn.Close()
	}
	t.clients = make(map[*websocket.Conn]bool)
	t.mu.Unlock()

	return t.server.Close()
}
