package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/mmasztalerczuk/swords-and-ravens/internal/game"
)

// Handler builds the hub's HTTP surface: game creation, websocket
// attachment, and a health probe.
func (h *Hub) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /games", h.handleCreateGame)
	mux.HandleFunc("GET /games/{id}/replay", h.handleReplay)
	mux.HandleFunc("GET /ws", h.ServeWS)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

type createGameRequest struct {
	ID          string            `json:"id"`
	Users       []*game.User      `json:"users"`
	Assignments map[string]string `json:"assignments"`
}

func (h *Hub) handleCreateGame(w http.ResponseWriter, r *http.Request) {
	var req createGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request body", http.StatusBadRequest)
		return
	}
	if req.ID == "" || len(req.Users) == 0 {
		http.Error(w, "id and users are required", http.StatusBadRequest)
		return
	}

	if _, err := h.CreateGame(req.ID, req.Users, req.Assignments); err != nil {
		if errors.Is(err, ErrGameExists) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		h.logger.Warn("game creation failed", zap.String("game", req.ID), zap.Error(err))
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{"id": req.ID})
}

// handleReplay serves a game's full move-by-move snapshot history. The
// snapshots carry hidden information, so this is admin-only.
func (h *Hub) handleReplay(w http.ResponseWriter, r *http.Request) {
	if !h.checkAdminPassword(r.URL.Query().Get("password")) {
		http.Error(w, "bad admin password", http.StatusForbidden)
		return
	}
	session := h.Session(r.PathValue("id"))
	if session == nil {
		http.Error(w, "unknown game", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(session.Replay().States())
}
