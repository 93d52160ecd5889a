package game

import (
	"encoding/json"
	"sync"
)

// Replay is the recorded history of one game as a sequence of full admin
// snapshots, one per settled message. It supports stepping in both
// directions; each returned snapshot can be rebuilt into a live replica
// with ClientGameFromSnapshot.
type Replay struct {
	gameID string

	mu     sync.RWMutex
	states []json.RawMessage
	index  int
}

// NewReplay creates an empty replay for a game.
func NewReplay(gameID string) *Replay {
	return &Replay{gameID: gameID}
}

// GameID returns the recorded game's id.
func (r *Replay) GameID() string { return r.gameID }

// RecordState appends a snapshot.
func (r *Replay) RecordState(snapshot json.RawMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, snapshot)
}

// Size returns the number of recorded snapshots.
func (r *Replay) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.states)
}

// Rewind resets the cursor to the beginning.
func (r *Replay) Rewind() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.index = 0
}

// Next returns the snapshot under the cursor and advances it. ok is
// false once the cursor has passed the last snapshot.
func (r *Replay) Next() (snapshot json.RawMessage, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.index >= len(r.states) {
		return nil, false
	}
	snapshot = r.states[r.index]
	r.index++
	return snapshot, true
}

// Previous steps the cursor back and returns the snapshot it lands on.
func (r *Replay) Previous() (snapshot json.RawMessage, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.index == 0 {
		return nil, false
	}
	r.index--
	return r.states[r.index], true
}

// StateAt returns the snapshot at a given position without moving the
// cursor.
func (r *Replay) StateAt(index int) (snapshot json.RawMessage, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if index < 0 || index >= len(r.states) {
		return nil, false
	}
	return r.states[index], true
}

// States returns the full snapshot list, for serving the replay whole.
func (r *Replay) States() []json.RawMessage {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]json.RawMessage, len(r.states))
	copy(out, r.states)
	return out
}
