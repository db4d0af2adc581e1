package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/gravitas-games/hexfront/internal/config"
	"github.com/gravitas-games/hexfront/internal/persistence"
	"github.com/gravitas-games/hexfront/pkg/logger"
	"github.com/gravitas-games/hexfront/pkg/models"
)

const leaderboardSize = 10

var roomNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,32}$`)

var (
	errRoomLimit    = errors.New("room limit reached")
	errShuttingDown = errors.New("server is shutting down")
)

// roomSlot tracks one live or starting room. Fields other than ready are
// guarded by Server.roomMu.
type roomSlot struct {
	ready     chan struct{} // closed once room or err is set
	room      *Room
	err       error
	users     int // connections holding the room
	idleSince time.Time
}

// Server represents the game server
type Server struct {
	config       *config.Config
	log          *logrus.Entry
	upgrader     websocket.Upgrader
	httpSrv      *http.Server
	jwtValidator *JWTValidator // nil accepts guests
	redis        *redis.Client
	store        *persistence.Store
	startedAt    time.Time

	rooms    map[string]*roomSlot
	stopping map[string]*Room // reaped rooms still writing their snapshot
	roomMu   sync.Mutex

	// Connection tracking
	connections map[*Connection]bool
	connMu      sync.RWMutex

	// Shutdown
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a new server instance. Redis and JWT validation are only set
// up when configured.
func New(cfg *config.Config) (*Server, error) {
	log := logger.Component("server")
	log.Info("initializing server")

	ctx, cancel := context.WithCancel(context.Background())

	srv := &Server{
		config:      cfg,
		log:         log,
		rooms:       make(map[string]*roomSlot),
		stopping:    make(map[string]*Room),
		connections: make(map[*Connection]bool),
		startedAt:   time.Now(),
		ctx:         ctx,
		cancel:      cancel,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			Subprotocols:    []string{"access_token"},
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}

	if cfg.Redis.Address != "" {
		srv.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := srv.redis.Ping(ctx).Err(); err != nil {
			srv.closeResources()
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		log.WithField("addr", cfg.Redis.Address).Info("connected to Redis")
	}

	if cfg.JWT.PublicKeyURL != "" {
		v, err := NewJWTValidator(ctx, cfg, srv.redis)
		if err != nil {
			srv.closeResources()
			return nil, fmt.Errorf("failed to initialize JWT validator: %w", err)
		}
		srv.jwtValidator = v
	} else {
		log.Warn("no JWT public key configured, accepting guest connections")
	}

	if cfg.Database.Path != "" {
		store, err := persistence.Open(cfg.Database.Path)
		if err != nil {
			srv.closeResources()
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		srv.store = store
	}

	if _, err := srv.Room(cfg.Session.DefaultRoom); err != nil {
		srv.closeResources()
		return nil, err
	}
	go srv.reapRooms()

	log.Info("server initialized")
	return srv, nil
}

// Room returns the named room, creating it on first use.
func (s *Server) Room(name string) (*Room, error) {
	slot, err := s.acquireRoom(name)
	if err != nil {
		return nil, err
	}
	s.releaseRoom(slot)
	return slot.room, nil
}

// acquireRoom returns the slot of the named room with one more user,
// starting the room if needed. World generation runs outside roomMu.
// Callers release the slot with releaseRoom.
func (s *Server) acquireRoom(name string) (*roomSlot, error) {
	s.roomMu.Lock()
	if s.ctx.Err() != nil {
		s.roomMu.Unlock()
		return nil, errShuttingDown
	}
	slot, ok := s.rooms[name]
	prev := s.stopping[name]
	if !ok {
		if len(s.rooms) >= s.config.Session.MaxRooms {
			s.roomMu.Unlock()
			return nil, errRoomLimit
		}
		slot = &roomSlot{ready: make(chan struct{})}
		s.rooms[name] = slot
	}
	slot.users++
	s.roomMu.Unlock()

	if ok {
		<-slot.ready
		if slot.err != nil {
			return nil, slot.err
		}
		return slot, nil
	}

	if prev != nil {
		<-prev.Done()
	}
	room, err := NewRoom(s.ctx, name, s.config, s.store)
	s.roomMu.Lock()
	if err != nil {
		slot.err = fmt.Errorf("failed to create room %s: %w", name, err)
		delete(s.rooms, name)
	} else {
		slot.room = room
	}
	s.roomMu.Unlock()
	close(slot.ready)
	if slot.err != nil {
		return nil, slot.err
	}
	return slot, nil
}

func (s *Server) releaseRoom(slot *roomSlot) {
	s.roomMu.Lock()
	defer s.roomMu.Unlock()
	slot.users--
	if slot.users == 0 {
		slot.idleSince = time.Now()
	}
}

// reapIdle stops rooms other than the default one that had no connection
// since before now minus room_idle_seconds. Stopped rooms write their
// snapshot and are recreated from it on the next request.
func (s *Server) reapIdle(now time.Time) int {
	idle := time.Duration(s.config.Session.RoomIdleSeconds) * time.Second
	var stale []*Room

	s.roomMu.Lock()
	for name, slot := range s.rooms {
		if name == s.config.Session.DefaultRoom || slot.room == nil || slot.users > 0 {
			continue
		}
		if now.Sub(slot.idleSince) < idle {
			continue
		}
		delete(s.rooms, name)
		s.stopping[name] = slot.room
		stale = append(stale, slot.room)
	}
	s.roomMu.Unlock()

	for _, r := range stale {
		r.Stop()
		s.roomMu.Lock()
		if s.stopping[r.ID] == r {
			delete(s.stopping, r.ID)
		}
		s.roomMu.Unlock()
		s.log.WithField("room", r.ID).Info("idle room stopped")
	}
	return len(stale)
}

func (s *Server) reapRooms() {
	every := time.Duration(s.config.Session.RoomIdleSeconds) * time.Second / 2
	every = min(max(every, time.Second), time.Minute)
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			s.reapIdle(now)
		case <-s.ctx.Done():
			return
		}
	}
}

// roomName picks the room from the query string. Unusable names fall back to
// the default room.
func (s *Server) roomName(r *http.Request) string {
	name := r.URL.Query().Get("room")
	if !roomNamePattern.MatchString(name) {
		return s.config.Session.DefaultRoom
	}
	return name
}

// Handler returns the HTTP routes of the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/leaderboard", s.handleLeaderboard)
	return mux
}

// Start begins listening for connections
func (s *Server) Start(addr string) error {
	s.httpSrv = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.log.WithField("addr", addr).Info("listening")
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server. Rooms write their final snapshot and
// flush pending records before the store is closed.
func (s *Server) Shutdown() error {
	s.log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if s.httpSrv != nil {
		if err := s.httpSrv.Shutdown(ctx); err != nil {
			s.log.WithError(err).Warn("HTTP server shutdown error")
		}
	}

	s.connMu.Lock()
	for conn := range s.connections {
		conn.Close()
	}
	s.connMu.Unlock()

	s.cancel()
	var rooms []*Room
	s.roomMu.Lock()
	for _, slot := range s.rooms {
		if slot.room != nil {
			rooms = append(rooms, slot.room)
		}
	}
	s.roomMu.Unlock()
	for _, r := range rooms {
		<-r.Done()
	}

	s.closeResources()
	s.log.Info("server shutdown complete")
	return nil
}

func (s *Server) closeResources() {
	s.cancel()
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.log.WithError(err).Warn("database close error")
		}
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.log.WithError(err).Warn("Redis close error")
		}
	}
}

// authenticate resolves the player of a connection request.
func (s *Server) authenticate(r *http.Request) (*models.Player, error) {
	if s.jwtValidator == nil {
		return guestPlayer(r), nil
	}
	token := extractTokenFromHeader(r)
	if token == "" {
		return nil, errMissingToken
	}
	return s.jwtValidator.ValidateToken(r.Context(), token)
}

// handleWebSocket handles WebSocket connection requests
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	log := s.log.WithField("remote", r.RemoteAddr)

	player, err := s.authenticate(r)
	if err != nil {
		log.WithError(err).Info("authentication failed")
		http.Error(w, fmt.Sprintf("Invalid token: %v", err), http.StatusUnauthorized)
		return
	}

	slot, err := s.acquireRoom(s.roomName(r))
	if err != nil {
		log.WithError(err).Warn("room unavailable")
		http.Error(w, "Room unavailable", http.StatusServiceUnavailable)
		return
	}
	defer s.releaseRoom(slot)
	room := slot.room

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	conn := NewConnection(ws, s, room, player)
	s.connMu.Lock()
	s.connections[conn] = true
	s.connMu.Unlock()

	log.WithFields(logrus.Fields{"player": player.ID, "room": room.ID}).Info("connection established")
	conn.Handle()

	s.connMu.Lock()
	delete(s.connections, conn)
	s.connMu.Unlock()
	log.WithField("player", player.ID).Info("connection closed")
}

type healthResponse struct {
	Status  string `json:"status"`
	Hexes   int    `json:"hexes"`
	Players int    `json:"players"`
	Rooms   int    `json:"rooms"`
	Uptime  int64  `json:"uptime"`
}

// handleHealth reports stored row counts and server uptime
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status: "ok",
		Uptime: int64(time.Since(s.startedAt).Seconds()),
	}
	s.roomMu.Lock()
	resp.Rooms = len(s.rooms)
	s.roomMu.Unlock()

	if s.store != nil {
		hexes, players, err := s.store.Counts(r.Context())
		if err != nil {
			s.log.WithError(err).Warn("health count failed")
			resp.Status = "degraded"
		}
		resp.Hexes, resp.Players = hexes, players
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleLeaderboard lists the top players of a room by owned hexes
func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		http.Error(w, "Leaderboard unavailable", http.StatusServiceUnavailable)
		return
	}
	limit := leaderboardSize
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 && v <= 100 {
		limit = v
	}
	entries, err := s.store.Leaderboard(r.Context(), s.roomName(r), limit)
	if err != nil {
		s.log.WithError(err).Error("leaderboard query failed")
		http.Error(w, "Leaderboard unavailable", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []persistence.LeaderboardEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
