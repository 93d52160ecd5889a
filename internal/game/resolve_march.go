package game

import (
	"encoding/json"

	"github.com/mmasztalerczuk/swords-and-ravens/internal/board"
	"github.com/mmasztalerczuk/swords-and-ravens/internal/gamelog"
	"github.com/mmasztalerczuk/swords-and-ravens/internal/message"
)

// ResolveMarchOrder walks the houses in turn order; each house with
// remaining march orders resolves one at a time. Marching into an
// enemy-held region opens a combat as a child state.
type ResolveMarchOrder struct {
	action       *Action
	currentHouse *board.House
	child        GameState
}

func newResolveMarchOrder(a *Action) *ResolveMarchOrder {
	return &ResolveMarchOrder{action: a}
}

func (rm *ResolveMarchOrder) firstStart() {
	rm.proceedNextResolve()
}

// CurrentHouse returns the house expected to resolve a march, nil while
// a combat is in progress.
func (rm *ResolveMarchOrder) CurrentHouse() *board.House { return rm.currentHouse }

func (rm *ResolveMarchOrder) ingame() *Ingame { return rm.action.ingame }

func (rm *ResolveMarchOrder) proceedNextResolve() {
	for _, h := range rm.ingame().game.TurnOrder() {
		if len(rm.marchableRegions(h)) > 0 {
			rm.currentHouse = h
			rm.ingame().entireGame.markStateChanged()
			return
		}
	}
	rm.currentHouse = nil
	rm.action.onResolveMarchOrderFinish()
}

func (rm *ResolveMarchOrder) marchableRegions(h *board.House) []*board.Region {
	var regions []*board.Region
	for _, r := range rm.ingame().game.World.SortedRegions() {
		order := rm.action.Order(r)
		if order != nil && order.Kind == board.OrderMarch && r.ControllingHouse() == h {
			regions = append(regions, r)
		}
	}
	return regions
}

func (rm *ResolveMarchOrder) OnPlayerMessage(p *Player, msg *message.ClientMessage) {
	if rm.child != nil {
		rm.child.OnPlayerMessage(p, msg)
		return
	}
	if msg.Type != message.ClientMarch {
		return
	}
	house := rm.ingame().houseOfPlayer(p)
	if house != rm.currentHouse {
		return
	}

	from := rm.ingame().game.World.Region(msg.RegionID)
	if from == nil || from.ControllingHouse() != house {
		return
	}
	order := rm.action.Order(from)
	if order == nil || order.Kind != board.OrderMarch {
		return
	}

	if msg.ToRegionID == "" {
		// Forfeit the march: the order comes off without moving.
		rm.action.RemoveOrder(from)
		rm.ingame().log(gamelog.New(gamelog.TypeMarchResolved, gamelog.March{
			House: house.ID,
			From:  from.ID,
		}))
		rm.proceedNextResolve()
		return
	}

	to := rm.ingame().game.World.Region(msg.ToRegionID)
	if to == nil || !rm.ingame().game.World.AreAdjacent(from, to) {
		return
	}

	units, ok := rm.resolveMarchingUnits(from, house, msg.UnitIDs)
	if !ok {
		return
	}

	defender := to.ControllingHouse()
	if defender != nil && defender != house {
		combat := newCombat(rm, house, defender, from, to, units, order)
		rm.child = combat
		rm.ingame().entireGame.markStateChanged()
		combat.firstStart()
		return
	}

	if to.Garrison > 0 && defender == nil {
		rm.resolveNeutralGarrison(house, from, to, units, order)
		return
	}

	rm.ingame().moveUnits(from, to, units)
	rm.action.RemoveOrder(from)
	rm.ingame().log(gamelog.New(gamelog.TypeMarchResolved, gamelog.March{
		House: house.ID,
		From:  from.ID,
		To:    to.ID,
		Units: unitIDs(units),
	}))
	rm.proceedNextResolve()
}

func (rm *ResolveMarchOrder) resolveMarchingUnits(from *board.Region, house *board.House, ids []string) ([]*board.Unit, bool) {
	if len(ids) == 0 {
		return nil, false
	}
	seen := make(map[string]bool, len(ids))
	units := make([]*board.Unit, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			return nil, false
		}
		seen[id] = true
		u, ok := from.Units[id]
		if !ok || u.Allegiance != house || u.Wounded {
			return nil, false
		}
		units = append(units, u)
	}
	return units, true
}

// resolveNeutralGarrison handles a march against an empty region with a
// garrison. No combat opens: the marching army's strength plus the march
// bonus is compared against the garrison value. Strictly greater takes
// the region and destroys the garrison; otherwise the march fizzles.
func (rm *ResolveMarchOrder) resolveNeutralGarrison(house *board.House, from, to *board.Region, units []*board.Unit, order *board.Order) {
	strength := order.Bonus
	for _, u := range units {
		strength += u.Type.CombatStrength
	}

	rm.action.RemoveOrder(from)
	if strength > to.Garrison {
		rm.ingame().changeGarrison(to, 0)
		rm.ingame().moveUnits(from, to, units)
		rm.ingame().log(gamelog.New(gamelog.TypeGarrisonOverrun, gamelog.March{
			House: house.ID,
			From:  from.ID,
			To:    to.ID,
			Units: unitIDs(units),
		}))
	} else {
		rm.ingame().log(gamelog.New(gamelog.TypeGarrisonHeld, gamelog.March{
			House: house.ID,
			From:  from.ID,
			To:    to.ID,
		}))
	}
	rm.proceedNextResolve()
}

func (rm *ResolveMarchOrder) onCombatFinish() {
	rm.child = nil
	rm.proceedNextResolve()
}

func (rm *ResolveMarchOrder) OnServerMessage(msg *message.ServerMessage) {
	if rm.child != nil {
		rm.child.OnServerMessage(msg)
	}
}

type serializedResolveMarchOrder struct {
	Type           string          `json:"type"`
	CurrentHouseID string          `json:"currentHouseId,omitempty"`
	ChildGameState json.RawMessage `json:"childGameState,omitempty"`
}

func (rm *ResolveMarchOrder) SerializeToClient(admin bool, viewer *Player) json.RawMessage {
	s := serializedResolveMarchOrder{Type: "resolve-march-order"}
	if rm.currentHouse != nil {
		s.CurrentHouseID = rm.currentHouse.ID
	}
	if rm.child != nil {
		s.ChildGameState = rm.child.SerializeToClient(admin, viewer)
	}
	return mustMarshal(s)
}

func deserializeResolveMarchOrder(a *Action, data json.RawMessage) *ResolveMarchOrder {
	var raw serializedResolveMarchOrder
	if err := json.Unmarshal(data, &raw); err != nil {
		desyncf("decode resolve-march-order state: %v", err)
	}
	rm := newResolveMarchOrder(a)
	if raw.CurrentHouseID != "" {
		rm.currentHouse = a.ingame.mustHouse(raw.CurrentHouseID)
	}
	if len(raw.ChildGameState) > 0 {
		if t := stateType(raw.ChildGameState); t != "combat" {
			desyncf("unknown resolve-march-order child state %q", t)
		}
		rm.child = deserializeCombat(rm, raw.ChildGameState)
	}
	return rm
}

func unitIDs(units []*board.Unit) []string {
	ids := make([]string, 0, len(units))
	for _, u := range units {
		ids = append(ids, u.ID)
	}
	return ids
}
