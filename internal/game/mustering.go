package game

import (
	"encoding/json"

	"github.com/mmasztalerczuk/swords-and-ravens/internal/board"
	"github.com/mmasztalerczuk/swords-and-ravens/internal/gamelog"
	"github.com/mmasztalerczuk/swords-and-ravens/internal/message"
)

// Mustering resolves a consolidate-power order on a castle region: the
// controlling house may recruit new units there, spending up to the
// castle level in muster points. Sending an empty recruitment list
// forfeits the muster.
type Mustering struct {
	action *Action
	house  *board.House
	region *board.Region
	points int
}

func newMustering(a *Action, house *board.House, region *board.Region) *Mustering {
	return &Mustering{
		action: a,
		house:  house,
		region: region,
		points: region.CastleLevel,
	}
}

func (m *Mustering) firstStart() {}

func (m *Mustering) OnPlayerMessage(p *Player, msg *message.ClientMessage) {
	if msg.Type != message.ClientMuster {
		return
	}
	if p.House != m.house.ID || msg.RegionID != m.region.ID {
		return
	}

	types := make([]*board.UnitType, 0, len(msg.UnitTypeIDs))
	cost := 0
	for _, typeID := range msg.UnitTypeIDs {
		t, ok := board.UnitTypes[typeID]
		if !ok {
			return
		}
		types = append(types, t)
		cost += t.MusterCost
	}
	if cost > m.points {
		return
	}

	if len(types) > 0 {
		units := m.action.ingame.addUnits(m.region, m.house, types)
		names := make([]string, 0, len(units))
		for _, u := range units {
			names = append(names, u.Type.ID)
		}
		m.action.ingame.log(gamelog.New(gamelog.TypePlayerMustered, gamelog.Mustered{
			House:  m.house.ID,
			Region: m.region.ID,
			Units:  names,
		}))
	}
	m.action.onMusteringEnd()
}

func (m *Mustering) OnServerMessage(msg *message.ServerMessage) {}

type serializedMustering struct {
	Type     string `json:"type"`
	HouseID  string `json:"houseId"`
	RegionID string `json:"regionId"`
	Points   int    `json:"points"`
}

func (m *Mustering) SerializeToClient(admin bool, viewer *Player) json.RawMessage {
	return mustMarshal(serializedMustering{
		Type:     "mustering",
		HouseID:  m.house.ID,
		RegionID: m.region.ID,
		Points:   m.points,
	})
}

func deserializeMustering(a *Action, data json.RawMessage) *Mustering {
	var raw serializedMustering
	if err := json.Unmarshal(data, &raw); err != nil {
		desyncf("decode mustering state: %v", err)
	}
	m := newMustering(a, a.ingame.mustHouse(raw.HouseID), a.ingame.mustRegion(raw.RegionID))
	m.points = raw.Points
	return m
}
