package board

import "fmt"

// SerializedGame is the wire form of the full entity tables, used in the
// initial snapshot sent to a joining client. Everything below is visible
// to every viewer; hidden information (face-down orders, unrevealed house
// cards) lives in the game states, not here.
type SerializedGame struct {
	Houses                 []SerializedHouse  `json:"houses"`
	Regions                []SerializedRegion `json:"regions"`
	Adjacency              [][2]string        `json:"adjacency"`
	IronThroneTrack        []string           `json:"ironThroneTrack"`
	FiefdomsTrack          []string           `json:"fiefdomsTrack"`
	KingsCourtTrack        []string           `json:"kingsCourtTrack"`
	ValyrianSteelBladeUsed bool               `json:"valyrianSteelBladeUsed"`
	Round                  int                `json:"round"`
}

type SerializedHouse struct {
	ID          string                `json:"id"`
	Name        string                `json:"name"`
	PowerTokens int                   `json:"powerTokens"`
	HouseCards  []SerializedHouseCard `json:"houseCards"`
}

type SerializedHouseCard struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Strength   int    `json:"strength"`
	SwordIcons int    `json:"swordIcons"`
	TowerIcons int    `json:"towerIcons"`
	State      int    `json:"state"`
	AbilityID  string `json:"abilityId,omitempty"`
}

type SerializedRegion struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	CastleLevel int              `json:"castleLevel"`
	Garrison    int              `json:"garrison"`
	Units       []SerializedUnit `json:"units"`
}

type SerializedUnit struct {
	ID      string `json:"id"`
	TypeID  string `json:"typeId"`
	HouseID string `json:"houseId"`
	Wounded bool   `json:"wounded,omitempty"`
}

// Serialize produces the full entity snapshot.
func (g *Game) Serialize() *SerializedGame {
	sg := &SerializedGame{
		Adjacency:              g.World.adjacencyPairs(),
		ValyrianSteelBladeUsed: g.ValyrianSteelBladeUsed,
		Round:                  g.Round,
	}
	for _, h := range g.Houses {
		sh := SerializedHouse{ID: h.ID, Name: h.Name, PowerTokens: h.PowerTokens}
		for _, hc := range h.HouseCards {
			sh.HouseCards = append(sh.HouseCards, SerializedHouseCard{
				ID:         hc.ID,
				Name:       hc.Name,
				Strength:   hc.Strength,
				SwordIcons: hc.SwordIcons,
				TowerIcons: hc.TowerIcons,
				State:      int(hc.State),
				AbilityID:  hc.AbilityID,
			})
		}
		sg.Houses = append(sg.Houses, sh)
	}
	for _, r := range g.World.SortedRegions() {
		sr := SerializedRegion{ID: r.ID, Name: r.Name, CastleLevel: r.CastleLevel, Garrison: r.Garrison}
		for _, u := range r.SortedUnits() {
			sr.Units = append(sr.Units, SerializedUnit{
				ID:      u.ID,
				TypeID:  u.Type.ID,
				HouseID: u.Allegiance.ID,
				Wounded: u.Wounded,
			})
		}
		sg.Regions = append(sg.Regions, sr)
	}
	for _, h := range g.IronThroneTrack {
		sg.IronThroneTrack = append(sg.IronThroneTrack, h.ID)
	}
	for _, h := range g.FiefdomsTrack {
		sg.FiefdomsTrack = append(sg.FiefdomsTrack, h.ID)
	}
	for _, h := range g.KingsCourtTrack {
		sg.KingsCourtTrack = append(sg.KingsCourtTrack, h.ID)
	}
	return sg
}

// GameFromSnapshot rebuilds the entity tables from a snapshot. Any id
// referencing unknown shared content is an integrity error: the replicas
// have diverged and the caller should force a full resync.
func GameFromSnapshot(sg *SerializedGame) (*Game, error) {
	world := NewWorld()
	for _, sr := range sg.Regions {
		world.AddRegion(NewRegion(sr.ID, sr.Name, sr.CastleLevel, sr.Garrison))
	}
	for _, pair := range sg.Adjacency {
		if world.Region(pair[0]) == nil || world.Region(pair[1]) == nil {
			return nil, fmt.Errorf("adjacency references unknown region %v", pair)
		}
		world.Connect(pair[0], pair[1])
	}

	game := NewGame(world)
	game.ValyrianSteelBladeUsed = sg.ValyrianSteelBladeUsed
	game.Round = sg.Round

	for _, sh := range sg.Houses {
		h := &House{ID: sh.ID, Name: sh.Name, PowerTokens: sh.PowerTokens}
		for _, sc := range sh.HouseCards {
			h.HouseCards = append(h.HouseCards, &HouseCard{
				ID:         sc.ID,
				Name:       sc.Name,
				Strength:   sc.Strength,
				SwordIcons: sc.SwordIcons,
				TowerIcons: sc.TowerIcons,
				State:      HouseCardState(sc.State),
				AbilityID:  sc.AbilityID,
			})
		}
		game.AddHouse(h)
	}

	for _, sr := range sg.Regions {
		region := world.Region(sr.ID)
		for _, su := range sr.Units {
			unitType, ok := UnitTypes[su.TypeID]
			if !ok {
				return nil, fmt.Errorf("unit %s has unknown type %q", su.ID, su.TypeID)
			}
			house := game.House(su.HouseID)
			if house == nil {
				return nil, fmt.Errorf("unit %s belongs to unknown house %q", su.ID, su.HouseID)
			}
			region.AddUnit(&Unit{ID: su.ID, Type: unitType, Allegiance: house, Wounded: su.Wounded})
		}
	}

	var err error
	if game.IronThroneTrack, err = game.resolveTrack(sg.IronThroneTrack); err != nil {
		return nil, err
	}
	if game.FiefdomsTrack, err = game.resolveTrack(sg.FiefdomsTrack); err != nil {
		return nil, err
	}
	if game.KingsCourtTrack, err = game.resolveTrack(sg.KingsCourtTrack); err != nil {
		return nil, err
	}

	return game, nil
}

func (g *Game) resolveTrack(ids []string) ([]*House, error) {
	track := make([]*House, 0, len(ids))
	for _, id := range ids {
		h := g.House(id)
		if h == nil {
			return nil, fmt.Errorf("influence track references unknown house %q", id)
		}
		track = append(track, h)
	}
	return track, nil
}
