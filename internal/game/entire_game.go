// Package game implements the authoritative rules engine: the nested
// game-state tree, the combat resolution pipeline, house-card ability
// dispatch and the per-viewer synchronization protocol. The same state
// tree runs on the server (where it validates and applies player
// messages) and on client replicas (where it passively applies server
// messages without re-deciding legality).
package game

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/mmasztalerczuk/swords-and-ravens/internal/message"
)

// GameState is one node of the nested state machine. Each node owns at
// most one active child; the current phase of the game is the path from
// the root to the deepest node.
type GameState interface {
	// OnPlayerMessage validates and applies a client action. Illegal
	// messages (wrong phase, wrong house, illegal target) are dropped
	// silently.
	OnPlayerMessage(p *Player, msg *message.ClientMessage)

	// OnServerMessage applies one replicated mutation on a client
	// replica, without re-validating legality.
	OnServerMessage(msg *message.ServerMessage)

	// SerializeToClient produces the snapshot of this node and its child
	// chain. admin bypasses all information hiding; viewer may be nil
	// for an anonymous spectator.
	SerializeToClient(admin bool, viewer *Player) json.RawMessage
}

// User is a connected account. Transport-level concerns live outside the
// engine; a user here is just a stable id the engine can address.
type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Player binds a user to the house they control.
type Player struct {
	User  *User
	House string // house id; resolved against the entity tables
}

// SendFunc delivers a server message to a set of users. Fire-and-forget;
// nil on client replicas.
type SendFunc func(users []*User, msg *message.ServerMessage)

// EntireGame is the root of the state tree. It owns the user table, the
// ingame child state, and the outbound messaging primitives.
type EntireGame struct {
	ID     string
	Users  []*User
	Ingame *Ingame

	logger       *zap.Logger
	sendFn       SendFunc
	stateChanged bool
}

// desyncError marks an integrity failure: a replicated message or a
// snapshot referenced an entity the replica does not know. The replicas
// have diverged; the only recovery is a full resync.
type desyncError struct{ msg string }

func (d desyncError) Error() string { return d.msg }

func desyncf(format string, args ...any) {
	panic(desyncError{msg: fmt.Sprintf(format, args...)})
}

// mustMarshal encodes a snapshot struct. The serialized structs contain
// only plain data, so failure here is a programmer error.
func mustMarshal(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("marshal snapshot: %v", err))
	}
	return data
}

// NewEntireGame creates the root node. send may be nil for a client
// replica or a headless test game.
func NewEntireGame(id string, users []*User, logger *zap.Logger, send SendFunc) *EntireGame {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EntireGame{
		ID:     id,
		Users:  users,
		logger: logger,
		sendFn: send,
	}
}

// Start builds the entity tables and launches the first planning phase.
// assignments maps user ids to house ids and must cover every house.
func (e *EntireGame) Start(assignments map[string]string) error {
	ingame, err := newIngame(e, assignments)
	if err != nil {
		return err
	}
	e.Ingame = ingame
	e.Ingame.firstStart()
	e.stateChanged = false
	return nil
}

// User returns the user with the given id, or nil.
func (e *EntireGame) User(id string) *User {
	for _, u := range e.Users {
		if u.ID == id {
			return u
		}
	}
	return nil
}

// PlayerForUser returns the player controlled by the given user, or nil
// for spectators.
func (e *EntireGame) PlayerForUser(userID string) *Player {
	if e.Ingame == nil {
		return nil
	}
	return e.Ingame.players[userID]
}

// OnClientMessage is the single server-side entry point. Exactly one
// message is processed at a time per game; the hub guarantees that.
func (e *EntireGame) OnClientMessage(userID string, msg *message.ClientMessage) {
	player := e.PlayerForUser(userID)
	if player == nil {
		// Spectators cannot act.
		return
	}
	e.Ingame.OnPlayerMessage(player, msg)
	e.flushStateChange()
}

// ApplyServerMessage is the client-side entry point. An integrity error
// (unknown id, unknown node type) is returned so the caller can force a
// full state resync instead of attempting partial repair.
func (e *EntireGame) ApplyServerMessage(msg *message.ServerMessage) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if d, ok := r.(desyncError); ok {
				err = fmt.Errorf("replica desync: %s", d.msg)
				return
			}
			panic(r)
		}
	}()
	e.Ingame.OnServerMessage(msg)
	return nil
}

// SerializeToClient produces the full root snapshot for one viewer.
func (e *EntireGame) SerializeToClient(admin bool, viewer *Player) json.RawMessage {
	return mustMarshal(serializedEntireGame{
		Type:           "entire-game",
		ID:             e.ID,
		Users:          e.Users,
		ChildGameState: e.Ingame.SerializeToClient(admin, viewer),
	})
}

type serializedEntireGame struct {
	Type           string          `json:"type"`
	ID             string          `json:"id"`
	Users          []*User         `json:"users"`
	ChildGameState json.RawMessage `json:"childGameState"`
}

// ClientGameFromSnapshot reconstructs a full replica from a snapshot
// produced by SerializeToClient. Unknown ids or node types are integrity
// errors.
func ClientGameFromSnapshot(data []byte, logger *zap.Logger) (e *EntireGame, err error) {
	defer func() {
		if r := recover(); r != nil {
			if d, ok := r.(desyncError); ok {
				e, err = nil, fmt.Errorf("corrupt snapshot: %s", d.msg)
				return
			}
			panic(r)
		}
	}()

	var raw serializedEntireGame
	if jsonErr := json.Unmarshal(data, &raw); jsonErr != nil {
		return nil, fmt.Errorf("decode snapshot: %w", jsonErr)
	}
	if raw.Type != "entire-game" {
		return nil, fmt.Errorf("unexpected snapshot root type %q", raw.Type)
	}

	e = NewEntireGame(raw.ID, raw.Users, logger, nil)
	e.Ingame = deserializeIngame(e, raw.ChildGameState)
	return e, nil
}

func (e *EntireGame) broadcast(msg *message.ServerMessage) {
	if e.sendFn != nil {
		e.sendFn(e.Users, msg)
	}
}

func (e *EntireGame) sendToUser(u *User, msg *message.ServerMessage) {
	if e.sendFn != nil {
		e.sendFn([]*User{u}, msg)
	}
}

func (e *EntireGame) broadcastExcept(skip *User, msg *message.ServerMessage) {
	if e.sendFn == nil {
		return
	}
	others := make([]*User, 0, len(e.Users))
	for _, u := range e.Users {
		if u != skip {
			others = append(others, u)
		}
	}
	e.sendFn(others, msg)
}

func (e *EntireGame) markStateChanged() {
	e.stateChanged = true
}

// flushStateChange broadcasts the new state subtree once per processed
// message, after all transitions have settled. Every user receives their
// own information-filtered projection.
func (e *EntireGame) flushStateChange() {
	if !e.stateChanged {
		return
	}
	e.stateChanged = false
	if e.sendFn == nil {
		return
	}
	for _, u := range e.Users {
		state := e.Ingame.child.SerializeToClient(false, e.Ingame.players[u.ID])
		e.sendToUser(u, &message.ServerMessage{
			Type:  message.ServerGameStateChange,
			State: state,
		})
	}
}

// stateType peeks at the discriminant of a serialized node.
func stateType(data json.RawMessage) string {
	var header struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &header); err != nil {
		desyncf("undecodable game state snapshot: %v", err)
	}
	return header.Type
}
