package server

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mmasztalerczuk/swords-and-ravens/internal/game"
	"github.com/mmasztalerczuk/swords-and-ravens/internal/message"
)

// ErrGameExists is returned when creating a session with a taken id.
var ErrGameExists = errors.New("server: game id already in use")

const persistTimeout = 5 * time.Second

// command is one unit of work for the session goroutine. Everything that
// touches the engine runs here, so the engine itself needs no locking.
type command func()

// Session runs one game. The engine is owned by the run goroutine; all
// interaction goes through the inbox.
type Session struct {
	hub    *Hub
	id     string
	engine *game.EntireGame
	logger *zap.Logger

	inbox chan command
	done  chan struct{}

	// replay records the admin snapshot after every settled message, so
	// finished or live games can be stepped through move by move.
	replay *game.Replay

	mu      sync.RWMutex
	clients map[*wsClient]struct{}
}

func newSession(hub *Hub, id string, users []*game.User, assignments map[string]string) (*Session, error) {
	s := &Session{
		hub:     hub,
		id:      id,
		logger:  hub.logger.With(zap.String("game", id)),
		inbox:   make(chan command, 256),
		done:    make(chan struct{}),
		clients: make(map[*wsClient]struct{}),
	}
	s.engine = game.NewEntireGame(id, users, s.logger, s.send)
	if err := s.engine.Start(assignments); err != nil {
		return nil, err
	}
	s.replay = game.NewReplay(id)
	s.replay.RecordState(s.engine.SerializeToClient(true, nil))
	return s, nil
}

// Replay returns the session's recorded history.
func (s *Session) Replay() *game.Replay { return s.replay }

func (s *Session) run() {
	defer s.hub.removeSession(s.id)
	for {
		select {
		case cmd := <-s.inbox:
			cmd()
		case <-s.done:
			s.mu.Lock()
			for c := range s.clients {
				c.close()
			}
			s.clients = make(map[*wsClient]struct{})
			s.mu.Unlock()
			return
		}
	}
}

func (s *Session) stop() {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
}

// post enqueues work for the session goroutine, dropping it if the
// session is shutting down.
func (s *Session) post(cmd command) {
	select {
	case s.inbox <- cmd:
	case <-s.done:
	}
}

// attach registers a client and hands it its initial snapshot. The
// snapshot is serialized on the session goroutine so it can never catch
// the engine mid-transition.
func (s *Session) attach(c *wsClient) {
	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()

	s.post(func() {
		viewer := s.engine.PlayerForUser(c.userID)
		snapshot := s.engine.SerializeToClient(c.admin, viewer)
		c.enqueue(&message.ServerMessage{
			Type:  message.ServerGameStateChange,
			State: snapshot,
		})
	})
}

func (s *Session) detach(c *wsClient) {
	s.mu.Lock()
	delete(s.clients, c)
	s.mu.Unlock()
}

// handleClientMessage is called from a client's read pump.
func (s *Session) handleClientMessage(userID string, msg *message.ClientMessage) {
	s.post(func() {
		s.engine.OnClientMessage(userID, msg)
		snapshot := s.engine.SerializeToClient(true, nil)
		s.replay.RecordState(snapshot)
		s.persist(snapshot)
	})
}

// requestResync re-sends a client's full snapshot, used when the client
// reports it can no longer apply incremental messages.
func (s *Session) requestResync(c *wsClient) {
	s.post(func() {
		viewer := s.engine.PlayerForUser(c.userID)
		c.enqueue(&message.ServerMessage{
			Type:  message.ServerGameStateChange,
			State: s.engine.SerializeToClient(c.admin, viewer),
		})
	})
}

// send implements game.SendFunc. Delivery is fire-and-forget: a client
// whose buffer is full is dropped and will resync on reconnect.
func (s *Session) send(users []*game.User, msg *message.ServerMessage) {
	targets := make(map[string]bool, len(users))
	for _, u := range users {
		targets[u.ID] = true
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for c := range s.clients {
		if targets[c.userID] {
			c.enqueue(msg)
		}
	}
}

// persist writes the admin snapshot after each settled message. Runs on
// the session goroutine; persistence failures are logged, not fatal.
func (s *Session) persist(snapshot json.RawMessage) {
	if s.hub.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := s.hub.store.Save(ctx, s.id, snapshot); err != nil {
		s.logger.Error("failed to persist snapshot", zap.Error(err))
	}
}
