package ws

import (
	"sync"

	"github.com/gorilla/websocket"

	"roomchat/internal/service"
)

// session wraps a connection with a write lock; gorilla connections do not
// allow concurrent writers.
type session struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *session) writeJSON(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(v)
}

// Hub tracks active WebSocket connections keyed by session ID and delivers
// coordinator events to them. It implements service.Broadcaster.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]*session
}

var _ service.Broadcaster = (*Hub)(nil)

func NewHub() *Hub {
	return &Hub{
		sessions: make(map[string]*session),
	}
}

// Register adds the connection under the given session ID.
func (h *Hub) Register(sessionID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessions[sessionID] = &session{conn: conn}
}

// Unregister removes the session's connection.
func (h *Hub) Unregister(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.sessions, sessionID)
}

// SendToSessions writes the event to each listed session. Sessions that are
// gone or fail to write are skipped; the read loop handles their cleanup.
func (h *Hub) SendToSessions(sessionIDs []string, event any) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sid := range sessionIDs {
		s, ok := h.sessions[sid]
		if !ok {
			continue
		}
		if err := s.writeJSON(event); err != nil {
			s.conn.Close()
		}
	}
}
