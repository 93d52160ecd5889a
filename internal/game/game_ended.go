package game

import (
	"encoding/json"

	"github.com/mmasztalerczuk/swords-and-ravens/internal/message"
)

// GameEnded is the terminal node. It is entered when a new round would
// start with no house able to place a single order, so the game can
// never produce another action.
type GameEnded struct {
	ingame *Ingame
}

func newGameEnded(in *Ingame) *GameEnded { return &GameEnded{ingame: in} }

func (ge *GameEnded) OnPlayerMessage(p *Player, msg *message.ClientMessage) {}

func (ge *GameEnded) OnServerMessage(msg *message.ServerMessage) {}

type serializedGameEnded struct {
	Type string `json:"type"`
}

func (ge *GameEnded) SerializeToClient(admin bool, viewer *Player) json.RawMessage {
	return mustMarshal(serializedGameEnded{Type: "game-ended"})
}

func deserializeGameEnded(in *Ingame, data json.RawMessage) *GameEnded {
	var raw serializedGameEnded
	if err := json.Unmarshal(data, &raw); err != nil {
		desyncf("decode game-ended state: %v", err)
	}
	return newGameEnded(in)
}
