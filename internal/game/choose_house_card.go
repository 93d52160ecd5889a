package game

import (
	"encoding/json"

	"github.com/mmasztalerczuk/swords-and-ravens/internal/board"
	"github.com/mmasztalerczuk/swords-and-ravens/internal/message"
)

// ChooseHouseCard is the simultaneous, hidden card selection at the
// start of a combat. Selections stay secret until both sides have
// chosen, then both cards are revealed at once. The Valyrian Steel Blade
// may also be committed during this window.
type ChooseHouseCard struct {
	combat   *Combat
	chosen   map[string]bool // house id -> has selected (card may be nil)
	revealed bool
}

func newChooseHouseCard(c *Combat) *ChooseHouseCard {
	return &ChooseHouseCard{
		combat: c,
		chosen: make(map[string]bool),
	}
}

func (chc *ChooseHouseCard) firstStart() {
	// A side with an empty hand fights without a card.
	for _, h := range chc.combat.ResolutionOrder() {
		if len(h.CardsInState(board.HouseCardAvailable)) == 0 {
			chc.chosen[h.ID] = true
			chc.combat.ingame().entireGame.broadcast(&message.ServerMessage{
				Type:    message.ServerHouseCardChosen,
				HouseID: h.ID,
			})
		}
	}
	chc.checkReveal()
}

func (chc *ChooseHouseCard) OnPlayerMessage(p *Player, msg *message.ClientMessage) {
	house := chc.combat.ingame().houseOfPlayer(p)
	data := chc.combat.DataOf(house)
	if data == nil {
		return
	}

	switch msg.Type {
	case message.ClientSelectHouseCard:
		if chc.chosen[house.ID] {
			return
		}
		card := house.HouseCard(msg.HouseCardID)
		if card == nil || card.State != board.HouseCardAvailable {
			return
		}
		data.HouseCard = card
		chc.chosen[house.ID] = true

		// The owner learns the selection now, everyone else only learns
		// that a selection was made.
		id := card.ID
		chc.combat.ingame().entireGame.sendToUser(p.User, &message.ServerMessage{
			Type:    message.ServerHouseCardChosen,
			HouseID: house.ID,
			CardIDs: []string{id},
		})
		chc.combat.ingame().entireGame.broadcastExcept(p.User, &message.ServerMessage{
			Type:    message.ServerHouseCardChosen,
			HouseID: house.ID,
		})
		chc.checkReveal()

	case message.ClientUseValyrianBlade:
		game := chc.combat.game()
		if game.ValyrianSteelBladeHolder() != house || game.ValyrianSteelBladeUsed || data.UsedValyrianBlade {
			return
		}
		game.ValyrianSteelBladeUsed = true
		data.UsedValyrianBlade = true
		chc.combat.ingame().entireGame.broadcast(&message.ServerMessage{
			Type:      message.ServerChangeValyrianBladeUse,
			HouseID:   house.ID,
			BladeUsed: true,
		})
	}
}

func (chc *ChooseHouseCard) checkReveal() {
	for _, h := range chc.combat.ResolutionOrder() {
		if !chc.chosen[h.ID] {
			return
		}
	}
	chc.revealed = true

	// Simultaneous reveal: now everyone learns both cards.
	for _, h := range chc.combat.ResolutionOrder() {
		card := chc.combat.DataOf(h).HouseCard
		if card == nil {
			continue
		}
		chc.combat.ingame().entireGame.broadcast(&message.ServerMessage{
			Type:    message.ServerHouseCardChosen,
			HouseID: h.ID,
			CardIDs: []string{card.ID},
		})
		chc.combat.ingame().setHouseCardStates(h, []*board.HouseCard{card}, board.HouseCardChosen)
	}
	chc.combat.onChooseHouseCardFinish()
}

func (chc *ChooseHouseCard) OnServerMessage(msg *message.ServerMessage) {
	// Card resolution happens in the parent combat; only the selection
	// bookkeeping lives here.
	if msg.Type == message.ServerHouseCardChosen {
		chc.chosen[chc.combat.ingame().mustHouse(msg.HouseID).ID] = true
	}
}

type serializedChooseHouseCard struct {
	Type     string   `json:"type"`
	Chosen   []string `json:"chosen"`
	Revealed bool     `json:"revealed"`
}

func (chc *ChooseHouseCard) SerializeToClient(admin bool, viewer *Player) json.RawMessage {
	s := serializedChooseHouseCard{Type: "choose-house-card", Revealed: chc.revealed}
	for _, h := range chc.combat.ResolutionOrder() {
		if chc.chosen[h.ID] {
			s.Chosen = append(s.Chosen, h.ID)
		}
	}
	return mustMarshal(s)
}

func deserializeChooseHouseCard(c *Combat, data json.RawMessage) *ChooseHouseCard {
	var raw serializedChooseHouseCard
	if err := json.Unmarshal(data, &raw); err != nil {
		desyncf("decode choose-house-card state: %v", err)
	}
	chc := newChooseHouseCard(c)
	chc.revealed = raw.Revealed
	for _, houseID := range raw.Chosen {
		chc.chosen[c.ingame().mustHouse(houseID).ID] = true
	}
	return chc
}
