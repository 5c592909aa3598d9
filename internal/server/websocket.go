package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// wsClient wraps a connection with a write lock. The heartbeat ticks and
// HTTP handlers broadcast from different goroutines, and gorilla/websocket
// supports at most one concurrent writer per connection.
type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsClient) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// wsHub fans events out to every participant connected to a session room.
type wsHub struct {
	mu    sync.Mutex
	rooms map[string]map[*websocket.Conn]*wsClient
}

func newWSHub() *wsHub {
	return &wsHub{
		rooms: make(map[string]map[*websocket.Conn]*wsClient),
	}
}

func (h *wsHub) Add(sessionID string, conn *websocket.Conn) *wsClient {
	h.mu.Lock()
	defer h.mu.Unlock()
	room := h.rooms[sessionID]
	if room == nil {
		room = make(map[*websocket.Conn]*wsClient)
		h.rooms[sessionID] = room
	}
	client := &wsClient{conn: conn}
	room[conn] = client
	return client
}

func (h *wsHub) Remove(sessionID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room := h.rooms[sessionID]
	if room == nil {
		return
	}
	delete(room, conn)
	_ = conn.Close()
	if len(room) == 0 {
		delete(h.rooms, sessionID)
	}
}

func (h *wsHub) Send(client *wsClient, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	_ = client.write(data)
}

func (h *wsHub) Broadcast(sessionID string, payload any) {
	h.mu.Lock()
	room := h.rooms[sessionID]
	clients := make([]*wsClient, 0, len(room))
	for _, client := range room {
		clients = append(clients, client)
	}
	h.mu.Unlock()

	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	for _, client := range clients {
		if err := client.write(data); err != nil {
			h.Remove(sessionID, client.conn)
		}
	}
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	param, ok := parseWebsocketPath(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}
	sess, err := s.getSession(param)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	log.Printf("ws connected session_id=%s remote=%s", sess.ID, r.RemoteAddr)
	client := s.ws.Add(sess.ID, conn)
	s.ws.Send(client, wsMessage{Type: "snapshot", Payload: snapshot(sess)})
	go s.readWS(sess.ID, conn)
}

func (s *Server) readWS(sessionID string, conn *websocket.Conn) {
	defer s.ws.Remove(sessionID, conn)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			log.Printf("ws disconnected session_id=%s error=%v", sessionID, err)
			return
		}
	}
}

func (s *Server) broadcastEvent(sess *Session, eventType string, payload EventPayload) {
	if s.ws == nil {
		return
	}
	s.ws.Broadcast(sess.ID, wsMessage{Type: eventType, Payload: payload})
}

func (s *Server) broadcastRoundEnded(sess *Session, round *RoundState) {
	s.broadcastEvent(sess, eventRoundEnded, EventPayload{
		RoundNumber: round.Number,
		Letter:      round.Letter,
		Status:      sess.Status,
		Answers:     answerViews(round),
		Scores:      scoreViews(round),
	})
}
