// Package monitor exposes a read-only websocket feed of bot status for
// external dashboards.
package monitor

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Status is one broadcast frame.
type Status struct {
	State      string  `json:"state"`
	Fatigue    float64 `json:"fatigue"`
	X          int32   `json:"x"`
	Y          int32   `json:"y"`
	Plane      int8    `json:"plane"`
	Health     int     `json:"health"`
	MaxHealth  int     `json:"maxHealth"`
	XPGained   int64   `json:"xpGained"`
	Kills      int     `json:"kills"`
	Loots      int     `json:"loots"`
	BankTrips  int     `json:"bankTrips"`
	Errors     int     `json:"errors"`
	RuntimeSec int64   `json:"runtimeSec"`
}

// Server hosts the /ws endpoint and fans Status frames out to every
// connected client. Broadcast never blocks the bot loop: slow clients are
// dropped.
type Server struct {
	log      *zap.Logger
	srv      *http.Server
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

// NewServer builds a monitor bound to addr.
func NewServer(addr string, log *zap.Logger) *Server {
	s := &Server{
		log:   log,
		conns: make(map[*websocket.Conn]struct{}),
		upgrader: websocket.Upgrader{
			// Local-only observability endpoint.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	s.srv = &http.Server{Addr: addr, Handler: mux}
	return s
}

// Start begins serving. Non-blocking.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}
	s.log.Info("monitor listening", zap.String("addr", ln.Addr().String()))
	go func() {
		if err := s.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.log.Error("monitor stopped", zap.Error(err))
		}
	}()
	return nil
}

// Shutdown closes all client connections and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	for c := range s.conns {
		c.Close()
	}
	s.conns = make(map[*websocket.Conn]struct{})
	s.mu.Unlock()
	return s.srv.Shutdown(ctx)
}

// Broadcast sends one status frame to every client.
func (s *Server) Broadcast(st Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.conns {
		c.SetWriteDeadline(time.Now().Add(2 * time.Second))
		if err := c.WriteJSON(st); err != nil {
			s.log.Debug("dropping slow monitor client", zap.Error(err))
			c.Close()
			delete(s.conns, c)
		}
	}
}

// ClientCount returns the number of connected clients.
func (s *Server) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.mu.Unlock()

	// Drain client frames so pings and closes are processed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				s.mu.Lock()
				delete(s.conns, conn)
				s.mu.Unlock()
				conn.Close()
				return
			}
		}
	}()
}
