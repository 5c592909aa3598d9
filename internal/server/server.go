package server

import (
	"net/http"
	"sync"

	"stopthebus/internal/config"

	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"
)

type Server struct {
	store       *Store
	db          *gorm.DB
	ids         *durableIDs
	ws          *wsHub
	cfg         config.Config
	clock       clockwork.Clock
	timersMu    sync.Mutex
	roundTimers map[string]clockwork.Timer
	heartbeats  map[string]chan struct{}
}

func New(conn *gorm.DB, cfg config.Config) *Server {
	return newServer(conn, cfg, clockwork.NewRealClock())
}

func newServer(conn *gorm.DB, cfg config.Config, clock clockwork.Clock) *Server {
	return &Server{
		store:       NewStore(),
		db:          conn,
		ids:         newDurableIDs(),
		ws:          newWSHub(),
		cfg:         cfg,
		clock:       clock,
		roundTimers: make(map[string]clockwork.Timer),
		heartbeats:  make(map[string]chan struct{}),
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/sessions", s.handleCreateSession)
	mux.HandleFunc("GET /api/sessions/", s.handleSessionSubroutes)
	mux.HandleFunc("POST /api/sessions/", s.handleSessionSubroutes)
	mux.HandleFunc("GET /ws/sessions/", s.handleWebsocket)
	return mux
}

// Shutdown cancels every scheduled timer so no callback outlives the
// server and mutates a stale session.
func (s *Server) Shutdown() {
	s.timersMu.Lock()
	defer s.timersMu.Unlock()
	for id, timer := range s.roundTimers {
		timer.Stop()
		delete(s.roundTimers, id)
	}
	for id, stop := range s.heartbeats {
		close(stop)
		delete(s.heartbeats, id)
	}
}
