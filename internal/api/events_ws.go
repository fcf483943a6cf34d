package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"pdptw/internal/logging"
)

const (
	wsReadWait   = 60 * time.Second
	wsWriteWait  = 10 * time.Second
	wsPingPeriod = 20 * time.Second
)

var upgrader = websocket.Upgrader{CheckOrigin: func(_ *http.Request) bool { return true }}

// wsMessage frames everything sent on the events socket: connection_ack, next (payload is a
// SolveEvent), ping, pong and complete.
type wsMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// SolveEventsHandler handles GET /v1/solve/events and streams the caller tenant's solve
// events over a WebSocket.
func (s *Server) SolveEventsHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := s.optionalPrincipal(w, r)
	if !ok {
		return
	}
	log := logging.FromContext(r.Context(), s.log)

	// Subscribe before upgrading so a broker failure can still be answered with a problem.
	ch, err := s.broker.Subscribe(r.Context(), p.Tenant)
	if err != nil {
		writeProblem(w, http.StatusServiceUnavailable, "Events unavailable", err.Error(), r.URL.Path)
		return
	}
	defer s.broker.Unsubscribe(p.Tenant, ch)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer func() { _ = conn.Close() }()

	var mu sync.Mutex
	write := func(v any) error {
		mu.Lock()
		defer mu.Unlock()
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		return conn.WriteJSON(v)
	}
	if err := write(wsMessage{Type: "connection_ack"}); err != nil {
		return
	}
	log.Debug("events subscriber connected", zap.String("tenant", p.Tenant))

	// Read loop: answers pings and notices when the client goes away.
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(1 << 16)
		_ = conn.SetReadDeadline(time.Now().Add(wsReadWait))
		conn.SetPongHandler(func(string) error { return conn.SetReadDeadline(time.Now().Add(wsReadWait)) })
		for {
			var msg wsMessage
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			_ = conn.SetReadDeadline(time.Now().Add(wsReadWait))
			switch msg.Type {
			case "ping":
				_ = write(wsMessage{Type: "pong"})
			case "complete":
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case evt, ok := <-ch:
			if !ok {
				_ = write(wsMessage{Type: "complete"})
				return
			}
			payload, err := json.Marshal(evt)
			if err != nil {
				continue
			}
			if err := write(wsMessage{Type: "next", Payload: payload}); err != nil {
				return
			}
		case <-ticker.C:
			if err := write(wsMessage{Type: "ping"}); err != nil {
				return
			}
		}
	}
}
