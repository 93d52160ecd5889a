package board

// Game holds the authoritative entity tables for one game: houses, the
// world, and the influence tracks. Entities are created at setup (or
// from a snapshot) and are always referenced by stable id afterwards.
type Game struct {
	Houses     []*House
	housesByID map[string]*House

	World *World

	// Influence tracks, ordered best position first.
	IronThroneTrack []*House
	FiefdomsTrack   []*House
	KingsCourtTrack []*House

	// The Valyrian Steel Blade belongs to the head of the fiefdoms track
	// and can be spent once per game round for +1 combat strength.
	ValyrianSteelBladeUsed bool

	Round int
}

// NewGame creates an empty game around a world.
func NewGame(world *World) *Game {
	return &Game{
		World:      world,
		housesByID: make(map[string]*House),
		Round:      1,
	}
}

// AddHouse registers a house.
func (g *Game) AddHouse(h *House) {
	g.Houses = append(g.Houses, h)
	g.housesByID[h.ID] = h
}

// House returns the house with the given id, or nil.
func (g *Game) House(id string) *House {
	return g.housesByID[id]
}

// Unit finds a unit anywhere on the board by id, or nil.
func (g *Game) Unit(id string) *Unit {
	for _, r := range g.World.Regions {
		if u, ok := r.Units[id]; ok {
			return u
		}
	}
	return nil
}

// HouseCard finds a card across all houses by id, or nil.
func (g *Game) HouseCard(id string) *HouseCard {
	for _, h := range g.Houses {
		if hc := h.HouseCard(id); hc != nil {
			return hc
		}
	}
	return nil
}

// ValyrianSteelBladeHolder returns the house holding the blade.
func (g *Game) ValyrianSteelBladeHolder() *House {
	if len(g.FiefdomsTrack) == 0 {
		return nil
	}
	return g.FiefdomsTrack[0]
}

// WhoIsAheadInTrack returns whichever of a and b holds the higher
// position on the given influence track. Used as the deterministic
// tie-break for combat.
func (g *Game) WhoIsAheadInTrack(track []*House, a, b *House) *House {
	for _, h := range track {
		if h == a {
			return a
		}
		if h == b {
			return b
		}
	}
	return a
}

// TurnOrder returns the houses in iron throne order, the order in which
// all sequential resolutions happen.
func (g *Game) TurnOrder() []*House {
	return g.IronThroneTrack
}
