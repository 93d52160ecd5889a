// Package server exposes running games over websockets. Each game runs
// as one session with a single goroutine owning the engine; websocket
// clients feed messages into the session's inbox and receive broadcasts
// on buffered per-client channels.
package server

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmasztalerczuk/swords-and-ravens/internal/config"
	"github.com/mmasztalerczuk/swords-and-ravens/internal/game"
	"github.com/mmasztalerczuk/swords-and-ravens/internal/store"
)

// Hub owns all live game sessions and upgrades websocket connections
// into them.
type Hub struct {
	cfg    config.Config
	logger *zap.Logger
	store  *store.SnapshotStore // nil when persistence is disabled

	mu       sync.RWMutex
	sessions map[string]*Session

	upgrader websocket.Upgrader
}

// NewHub creates an empty hub. snapshots may be nil.
func NewHub(cfg config.Config, snapshots *store.SnapshotStore, logger *zap.Logger) *Hub {
	return &Hub{
		cfg:      cfg,
		logger:   logger,
		store:    snapshots,
		sessions: make(map[string]*Session),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The protocol carries no credentials in cookies; origin
			// checking is left to the deployment's proxy.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// CreateGame starts a new session for the given users and house
// assignments. It fails if the id is taken or the setup is invalid.
func (h *Hub) CreateGame(id string, users []*game.User, assignments map[string]string) (*Session, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.sessions[id]; ok {
		return nil, ErrGameExists
	}
	session, err := newSession(h, id, users, assignments)
	if err != nil {
		return nil, err
	}
	h.sessions[id] = session
	go session.run()
	h.logger.Info("game session created", zap.String("game", id), zap.Int("users", len(users)))
	return session, nil
}

// Session returns a running session, or nil.
func (h *Hub) Session(id string) *Session {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.sessions[id]
}

func (h *Hub) removeSession(id string) {
	h.mu.Lock()
	delete(h.sessions, id)
	h.mu.Unlock()
}

// Shutdown stops every session.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	sessions := make([]*Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		sessions = append(sessions, s)
	}
	h.mu.Unlock()
	for _, s := range sessions {
		s.stop()
	}
}

// ServeWS upgrades one websocket connection and attaches it to its game.
// Expected query parameters: game, user, and optionally password for
// admin access.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	gameID := r.URL.Query().Get("game")
	userID := r.URL.Query().Get("user")
	if gameID == "" || userID == "" {
		http.Error(w, "game and user are required", http.StatusBadRequest)
		return
	}

	session := h.Session(gameID)
	if session == nil {
		http.Error(w, "unknown game", http.StatusNotFound)
		return
	}

	admin := false
	if password := r.URL.Query().Get("password"); password != "" {
		if !h.checkAdminPassword(password) {
			http.Error(w, "bad admin password", http.StatusForbidden)
			return
		}
		admin = true
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := newClient(session, conn, userID, admin, h.cfg.Server, h.logger)
	session.attach(client)
	go client.writePump()
	go client.readPump()
}

func (h *Hub) checkAdminPassword(password string) bool {
	hash := h.cfg.Auth.AdminPasswordHash
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
