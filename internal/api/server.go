package api

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/evgenius1424/need-for-fun/internal/room"
	"github.com/evgenius1424/need-for-fun/internal/session"
)

// IceConfig is the peer-negotiation bootstrap served to clients: a STUN
// default plus the TURN credentials passed through from the environment.
type IceConfig struct {
	StunURL      string `json:"stunUrl"`
	TurnURL      string `json:"turnUrl,omitempty"`
	TurnUsername string `json:"turnUsername,omitempty"`
	TurnPassword string `json:"turnPassword,omitempty"`
}

// Server is the HTTP front: the WebSocket endpoint plus a small JSON
// surface for room listings and ICE configuration.
type Server struct {
	manager     *room.Manager
	gateway     *Gateway
	router      *chi.Mux
	rateLimiter *IPRateLimiter
	ice         IceConfig
}

// NewServer assembles the router. No goroutines start until Start; tests
// use Router() with httptest directly.
func NewServer(manager *room.Manager, defaults session.Defaults, ice IceConfig, serverStartedAt time.Time) *Server {
	s := &Server{
		manager:     manager,
		gateway:     NewGateway(manager, defaults, serverStartedAt),
		rateLimiter: NewIPRateLimiter(DefaultRateLimitConfig),
		ice:         ice,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
	}))

	r.Get("/healthz", s.handleHealthz)
	r.Get("/ws", s.gateway.HandleWS)

	r.Group(func(r chi.Router) {
		r.Use(s.rateLimiter.Middleware)
		r.Get("/api/rooms", s.handleListRooms)
		r.Get("/api/ice", s.handleIce)
	})

	s.router = r
	return s
}

// Router exposes the handler for httptest.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start blocks serving HTTP on addr.
func (s *Server) Start(addr string) error {
	log.Printf("api server on %s", addr)
	return http.ListenAndServe(addr, s.router)
}

// Stop releases background resources.
func (s *Server) Stop() {
	s.rateLimiter.Stop()
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

type roomListing struct {
	RoomID         string `json:"roomId"`
	Name           string `json:"name"`
	CurrentPlayers int    `json:"currentPlayers"`
	MaxPlayers     int    `json:"maxPlayers"`
	MapID          string `json:"mapId"`
	Mode           string `json:"mode"`
	Status         string `json:"status"`
}

func (s *Server) handleListRooms(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	summaries := s.manager.ListRooms()

	out := make([]roomListing, 0, len(summaries))
	for _, sum := range summaries {
		out = append(out, roomListing{
			RoomID:         sum.RoomID,
			Name:           sum.Name,
			CurrentPlayers: sum.CurrentPlayers,
			MaxPlayers:     sum.MaxPlayers,
			MapID:          sum.MapID,
			Mode:           sum.Mode,
			Status:         sum.Status.String(),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
	RecordRequest(r.Method, "/api/rooms", time.Since(started))
}

func (s *Server) handleIce(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.ice)
	RecordRequest(r.Method, "/api/ice", time.Since(started))
}
