// internal/handlers/server.go
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/jason-s-yu/guandan/internal/database"
	"github.com/jason-s-yu/guandan/internal/middleware"
	"github.com/jason-s-yu/guandan/internal/room"
	"github.com/sirupsen/logrus"
)

// Server bundles the dependencies shared by the HTTP and websocket handlers.
type Server struct {
	Logger   *logrus.Logger
	Rooms    *room.Manager
	Users    database.UserStore
	TokenTTL time.Duration
}

func NewServer(logger *logrus.Logger, rooms *room.Manager, users database.UserStore, tokenTTL time.Duration) *Server {
	return &Server{
		Logger:   logger,
		Rooms:    rooms,
		Users:    users,
		TokenTTL: tokenTTL,
	}
}

// Routes builds the request router wrapped in request logging.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /user/register", s.RegisterHandler)
	mux.HandleFunc("POST /user/login", s.LoginHandler)
	mux.HandleFunc("GET /rooms", s.ListRoomsHandler)
	mux.HandleFunc("GET /ping", PingHandler)
	mux.HandleFunc("/ws", s.WSHandler)
	return middleware.LogMiddleware(s.Logger)(mux)
}

// PingHandler is the liveness probe.
func PingHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ListRoomsHandler returns every open room. The listing may already be stale
// by the time it reaches the client.
func (s *Server) ListRoomsHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"rooms": s.Rooms.ListRooms()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
