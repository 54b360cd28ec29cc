package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/gorilla/websocket"

	"github.com/cardroomlabs/tourneycore/internal/engine"
)

// Server is the WebSocket front end over the betting engine. Every
// mutating command answers the caller and broadcasts the resulting
// snapshot to all other clients.
type Server struct {
	addr        string
	upgrader    websocket.Upgrader
	connections map[*Connection]bool
	register    chan *Connection
	unregister  chan *Connection
	logger      *log.Logger
	mu          sync.RWMutex
	ctx         context.Context
	cancel      context.CancelFunc

	engine   *engine.Engine
	defaults GameSettings

	watchdog turnWatchdog
}

// NewServer creates a new WebSocket server over the given engine.
// turnTimeout is how long the player on turn has before a fold is
// forced; zero disables the watchdog.
func NewServer(addr string, logger *log.Logger, eng *engine.Engine, defaults GameSettings, clock quartz.Clock, turnTimeout int) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	if clock == nil {
		clock = quartz.NewReal()
	}

	s := &Server{
		addr: addr,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// For development, allow all origins
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		connections: make(map[*Connection]bool),
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		logger:      logger.WithPrefix("server"),
		ctx:         ctx,
		cancel:      cancel,
		engine:      eng,
		defaults:    defaults,
	}
	s.watchdog.init(s, clock, turnTimeout)
	return s
}

// Start starts the WebSocket server
func (s *Server) Start() error {
	go s.run()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)

	s.logger.Info("Starting WebSocket server", "addr", s.addr)
	return http.ListenAndServe(s.addr, mux)
}

// Stop stops the WebSocket server
func (s *Server) Stop() error {
	s.cancel()
	s.stopWatchdog()

	s.mu.Lock()
	for conn := range s.connections {
		_ = conn.Close()
	}
	s.mu.Unlock()

	return nil
}

// run handles connection lifecycle
func (s *Server) run() {
	for {
		select {
		case conn := <-s.register:
			s.mu.Lock()
			s.connections[conn] = true
			total := len(s.connections)
			s.mu.Unlock()
			s.logger.Info("Client connected", "total", total)

		case conn := <-s.unregister:
			s.mu.Lock()
			if _, ok := s.connections[conn]; ok {
				delete(s.connections, conn)
				_ = conn.Close()
			}
			total := len(s.connections)
			s.mu.Unlock()
			s.logger.Info("Client disconnected", "total", total)

		case <-s.ctx.Done():
			return
		}
	}
}

// handleWebSocket handles WebSocket upgrade requests
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection", "error", err)
		return
	}

	client := NewConnection(conn, s.logger, s)
	s.register <- client
	client.Start()

	go func() {
		<-client.ctx.Done()
		s.unregister <- client
	}()
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "OK")
}

// Broadcast sends a message to every connected client
func (s *Server) Broadcast(msg *Message) {
	s.broadcastExcept(nil, msg)
}

// broadcastExcept sends a message to every connected client except one
func (s *Server) broadcastExcept(skip *Connection, msg *Message) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for conn := range s.connections {
		if conn == skip {
			continue
		}
		if err := conn.SendMessage(msg); err != nil {
			s.logger.Error("Failed to send message to client", "error", err)
		} else {
			count++
		}
	}

	s.logger.Debug("Broadcasted message", "type", msg.Type, "recipients", count)
}

func (s *Server) armWatchdog(snap *engine.Snapshot) {
	s.watchdog.arm(snap)
}

func (s *Server) stopWatchdog() {
	s.watchdog.stop()
}
