package game

import (
	"encoding/json"

	"github.com/mmasztalerczuk/swords-and-ravens/internal/board"
	"github.com/mmasztalerczuk/swords-and-ravens/internal/gamelog"
	"github.com/mmasztalerczuk/swords-and-ravens/internal/message"
)

// AfterWinnerDetermination runs the after-winner stage of each played
// house card, one house at a time in resolution order. An ability may
// park a sub-decision state here and must call
// OnHouseCardResolutionFinish once it is done.
type AfterWinnerDetermination struct {
	postCombat *PostCombat
	order      []*board.House
	idx        int

	child GameState
}

func newAfterWinnerDetermination(pc *PostCombat) *AfterWinnerDetermination {
	return &AfterWinnerDetermination{postCombat: pc}
}

func (awd *AfterWinnerDetermination) ingame() *Ingame { return awd.postCombat.ingame() }

func (awd *AfterWinnerDetermination) firstStart() {
	awd.order = awd.postCombat.combat.ResolutionOrder()
	awd.proceedNextHouse()
}

func (awd *AfterWinnerDetermination) proceedNextHouse() {
	for awd.idx < len(awd.order) {
		h := awd.order[awd.idx]
		card := awd.postCombat.combat.DataOf(h).HouseCard
		if card != nil {
			if ab := AbilityByID(card.AbilityID); ab != nil {
				ab.AfterWinnerDetermination(awd, h, card)
				return
			}
		}
		awd.idx++
	}
	awd.postCombat.onAfterWinnerDeterminationFinish()
}

// OnHouseCardResolutionFinish is the completion signal every
// after-winner ability must eventually give.
func (awd *AfterWinnerDetermination) OnHouseCardResolutionFinish(house *board.House) {
	awd.child = nil
	awd.idx++
	awd.proceedNextHouse()
}

func (awd *AfterWinnerDetermination) setChild(state GameState) {
	awd.child = state
	awd.ingame().entireGame.markStateChanged()
}

func (awd *AfterWinnerDetermination) OnPlayerMessage(p *Player, msg *message.ClientMessage) {
	if awd.child != nil {
		awd.child.OnPlayerMessage(p, msg)
	}
}

func (awd *AfterWinnerDetermination) OnServerMessage(msg *message.ServerMessage) {
	if awd.child != nil {
		awd.child.OnServerMessage(msg)
	}
}

type serializedAfterWinnerDetermination struct {
	Type           string          `json:"type"`
	HouseIDs       []string        `json:"houseIds"`
	Index          int             `json:"index"`
	ChildGameState json.RawMessage `json:"childGameState,omitempty"`
}

func (awd *AfterWinnerDetermination) SerializeToClient(admin bool, viewer *Player) json.RawMessage {
	s := serializedAfterWinnerDetermination{
		Type:  "after-winner-determination",
		Index: awd.idx,
	}
	for _, h := range awd.order {
		s.HouseIDs = append(s.HouseIDs, h.ID)
	}
	if awd.child != nil {
		s.ChildGameState = awd.child.SerializeToClient(admin, viewer)
	}
	return mustMarshal(s)
}

func deserializeAfterWinnerDetermination(pc *PostCombat, data json.RawMessage) *AfterWinnerDetermination {
	var raw serializedAfterWinnerDetermination
	if err := json.Unmarshal(data, &raw); err != nil {
		desyncf("decode after-winner-determination state: %v", err)
	}
	awd := newAfterWinnerDetermination(pc)
	awd.idx = raw.Index
	for _, houseID := range raw.HouseIDs {
		awd.order = append(awd.order, pc.ingame().mustHouse(houseID))
	}
	if len(raw.ChildGameState) > 0 {
		switch t := stateType(raw.ChildGameState); t {
		case "mace-tyrell-ability":
			awd.child = deserializeMaceTyrellAbilityState(awd, raw.ChildGameState)
		case "renly-baratheon-ability":
			awd.child = deserializeRenlyBaratheonAbilityState(awd, raw.ChildGameState)
		default:
			desyncf("unknown after-winner child state %q", t)
		}
	}
	return awd
}

// MaceTyrellAbilityState lets the card's owner destroy one opposing
// footman from the enemy combat army.
type MaceTyrellAbilityState struct {
	parent *AfterWinnerDetermination
	house  *board.House
}

func newMaceTyrellAbilityState(parent *AfterWinnerDetermination, house *board.House) *MaceTyrellAbilityState {
	return &MaceTyrellAbilityState{parent: parent, house: house}
}

func (s *MaceTyrellAbilityState) firstStart() {
	if len(s.eligibleUnits()) == 0 {
		s.parent.OnHouseCardResolutionFinish(s.house)
	}
}

func (s *MaceTyrellAbilityState) eligibleUnits() []*board.Unit {
	enemy := s.parent.postCombat.combat.Enemy(s.house)
	var units []*board.Unit
	for _, u := range s.parent.postCombat.combat.DataOf(enemy).Army {
		if u.Type == board.Footman {
			units = append(units, u)
		}
	}
	return units
}

func (s *MaceTyrellAbilityState) OnPlayerMessage(p *Player, msg *message.ClientMessage) {
	if p.House != s.house.ID {
		return
	}
	switch msg.Type {
	case message.ClientSkipAbility:
		s.parent.OnHouseCardResolutionFinish(s.house)
	case message.ClientSelectAbilityUnit:
		if len(msg.UnitIDs) != 1 {
			return
		}
		var target *board.Unit
		for _, u := range s.eligibleUnits() {
			if u.ID == msg.UnitIDs[0] {
				target = u
				break
			}
		}
		if target == nil {
			return
		}

		c := s.parent.postCombat.combat
		enemyData := c.DataOf(c.Enemy(s.house))
		s.parent.ingame().log(gamelog.New(gamelog.TypeUnitDestroyed, gamelog.Casualties{
			House:  enemyData.House.ID,
			Region: enemyData.Region.ID,
			Killed: []string{target.ID},
		}))
		s.parent.ingame().removeUnits(enemyData.Region, []*board.Unit{target})

		var survivors []*board.Unit
		for _, u := range enemyData.Army {
			if u != target {
				survivors = append(survivors, u)
			}
		}
		c.setArmy(enemyData, survivors)
		s.parent.OnHouseCardResolutionFinish(s.house)
	}
}

func (s *MaceTyrellAbilityState) OnServerMessage(msg *message.ServerMessage) {}

type serializedAbilityState struct {
	Type    string `json:"type"`
	HouseID string `json:"houseId"`
}

func (s *MaceTyrellAbilityState) SerializeToClient(admin bool, viewer *Player) json.RawMessage {
	return mustMarshal(serializedAbilityState{Type: "mace-tyrell-ability", HouseID: s.house.ID})
}

func deserializeMaceTyrellAbilityState(parent *AfterWinnerDetermination, data json.RawMessage) *MaceTyrellAbilityState {
	var raw serializedAbilityState
	if err := json.Unmarshal(data, &raw); err != nil {
		desyncf("decode mace-tyrell-ability state: %v", err)
	}
	return newMaceTyrellAbilityState(parent, parent.ingame().mustHouse(raw.HouseID))
}

// RenlyBaratheonAbilityState lets the winning owner upgrade one of their
// footmen in the combat army to a knight.
type RenlyBaratheonAbilityState struct {
	parent *AfterWinnerDetermination
	house  *board.House
}

func newRenlyBaratheonAbilityState(parent *AfterWinnerDetermination, house *board.House) *RenlyBaratheonAbilityState {
	return &RenlyBaratheonAbilityState{parent: parent, house: house}
}

func (s *RenlyBaratheonAbilityState) firstStart() {
	if len(s.eligibleUnits()) == 0 {
		s.parent.OnHouseCardResolutionFinish(s.house)
	}
}

func (s *RenlyBaratheonAbilityState) eligibleUnits() []*board.Unit {
	var units []*board.Unit
	for _, u := range s.parent.postCombat.combat.DataOf(s.house).Army {
		if u.Type == board.Footman {
			units = append(units, u)
		}
	}
	return units
}

func (s *RenlyBaratheonAbilityState) OnPlayerMessage(p *Player, msg *message.ClientMessage) {
	if p.House != s.house.ID {
		return
	}
	switch msg.Type {
	case message.ClientSkipAbility:
		s.parent.OnHouseCardResolutionFinish(s.house)
	case message.ClientSelectAbilityUnit:
		if len(msg.UnitIDs) != 1 {
			return
		}
		var target *board.Unit
		for _, u := range s.eligibleUnits() {
			if u.ID == msg.UnitIDs[0] {
				target = u
				break
			}
		}
		if target == nil {
			return
		}
		s.parent.ingame().changeUnitType(target, board.Knight)
		s.parent.ingame().log(gamelog.New(gamelog.TypeUnitUpgraded, map[string]string{
			"house": s.house.ID,
			"unit":  target.ID,
			"to":    board.Knight.ID,
		}))
		s.parent.OnHouseCardResolutionFinish(s.house)
	}
}

func (s *RenlyBaratheonAbilityState) OnServerMessage(msg *message.ServerMessage) {}

func (s *RenlyBaratheonAbilityState) SerializeToClient(admin bool, viewer *Player) json.RawMessage {
	return mustMarshal(serializedAbilityState{Type: "renly-baratheon-ability", HouseID: s.house.ID})
}

func deserializeRenlyBaratheonAbilityState(parent *AfterWinnerDetermination, data json.RawMessage) *RenlyBaratheonAbilityState {
	var raw serializedAbilityState
	if err := json.Unmarshal(data, &raw); err != nil {
		desyncf("decode renly-baratheon-ability state: %v", err)
	}
	return newRenlyBaratheonAbilityState(parent, parent.ingame().mustHouse(raw.HouseID))
}
