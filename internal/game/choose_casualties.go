package game

import (
	"encoding/json"

	"github.com/mmasztalerczuk/swords-and-ravens/internal/board"
	"github.com/mmasztalerczuk/swords-and-ravens/internal/message"
)

// ChooseCasualties asks the losing house to pick which of its surviving
// units die to the winner's sword icons. It only exists when there is an
// actual choice; a full wipe resolves without it.
type ChooseCasualties struct {
	postCombat *PostCombat
	house      *board.House
	selectable []*board.Unit
	count      int
}

func newChooseCasualties(pc *PostCombat, house *board.House, selectable []*board.Unit, count int) *ChooseCasualties {
	return &ChooseCasualties{
		postCombat: pc,
		house:      house,
		selectable: selectable,
		count:      count,
	}
}

func (cc *ChooseCasualties) firstStart() {}

// Count is the number of units that must be chosen.
func (cc *ChooseCasualties) Count() int { return cc.count }

func (cc *ChooseCasualties) OnPlayerMessage(p *Player, msg *message.ClientMessage) {
	if msg.Type != message.ClientChooseCasualties || p.House != cc.house.ID {
		return
	}
	if len(msg.UnitIDs) != cc.count {
		return
	}

	selectable := make(map[string]*board.Unit, len(cc.selectable))
	for _, u := range cc.selectable {
		selectable[u.ID] = u
	}
	seen := make(map[string]bool, len(msg.UnitIDs))
	killed := make([]*board.Unit, 0, cc.count)
	for _, id := range msg.UnitIDs {
		u, ok := selectable[id]
		if !ok || seen[id] {
			return
		}
		seen[id] = true
		killed = append(killed, u)
	}

	cc.postCombat.onChooseCasualtiesEnd(cc.postCombat.combat.DataOf(cc.house).Region, killed)
}

func (cc *ChooseCasualties) OnServerMessage(msg *message.ServerMessage) {}

type serializedChooseCasualties struct {
	Type              string   `json:"type"`
	HouseID           string   `json:"houseId"`
	SelectableUnitIDs []string `json:"selectableUnitIds"`
	Count             int      `json:"count"`
}

func (cc *ChooseCasualties) SerializeToClient(admin bool, viewer *Player) json.RawMessage {
	return mustMarshal(serializedChooseCasualties{
		Type:              "choose-casualties",
		HouseID:           cc.house.ID,
		SelectableUnitIDs: unitIDs(cc.selectable),
		Count:             cc.count,
	})
}

func deserializeChooseCasualties(pc *PostCombat, data json.RawMessage) *ChooseCasualties {
	var raw serializedChooseCasualties
	if err := json.Unmarshal(data, &raw); err != nil {
		desyncf("decode choose-casualties state: %v", err)
	}
	in := pc.ingame()
	return newChooseCasualties(pc, in.mustHouse(raw.HouseID), in.mustUnits(raw.SelectableUnitIDs), raw.Count)
}
