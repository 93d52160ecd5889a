package game

import (
	"encoding/json"
	"sort"

	"github.com/mmasztalerczuk/swords-and-ravens/internal/board"
	"github.com/mmasztalerczuk/swords-and-ravens/internal/gamelog"
	"github.com/mmasztalerczuk/swords-and-ravens/internal/message"
)

// Action is the order resolution phase. All orders are revealed at the
// transition from planning; march orders resolve first in turn order,
// then consolidate-power orders.
type Action struct {
	ingame *Ingame

	// ordersOnBoard maps region id to its revealed order. Orders are
	// removed as they resolve.
	ordersOnBoard map[string]*board.Order

	// cpQueue holds the regions with pending consolidate-power orders,
	// built once march resolution finishes.
	cpQueue []*board.Region

	child GameState
}

func newAction(in *Ingame) *Action {
	return &Action{
		ingame:        in,
		ordersOnBoard: make(map[string]*board.Order),
	}
}

func (a *Action) firstStart(placedOrders map[string]*board.Order) {
	for regionID, order := range placedOrders {
		if order != nil {
			a.ordersOnBoard[regionID] = order
		}
	}
	a.ingame.log(gamelog.New(gamelog.TypeActionPhaseBegan, nil))

	rm := newResolveMarchOrder(a)
	a.setChild(rm)
	rm.firstStart()
}

func (a *Action) setChild(state GameState) {
	a.child = state
	a.ingame.entireGame.markStateChanged()
}

// Order returns the unresolved order on a region, or nil.
func (a *Action) Order(region *board.Region) *board.Order {
	return a.ordersOnBoard[region.ID]
}

// RemoveOrder takes a resolved order off the board and replicates the
// removal. Removing from a region without an order is a no-op.
func (a *Action) RemoveOrder(region *board.Region) {
	if _, ok := a.ordersOnBoard[region.ID]; !ok {
		return
	}
	delete(a.ordersOnBoard, region.ID)
	a.ingame.entireGame.broadcast(&message.ServerMessage{
		Type:     message.ServerActionPhaseChangeOrder,
		RegionID: region.ID,
	})
}

func (a *Action) onResolveMarchOrderFinish() {
	a.child = nil
	// Consolidate-power orders resolve in turn order, regions by id
	// within a house.
	for _, h := range a.ingame.game.TurnOrder() {
		var regions []*board.Region
		for regionID, order := range a.ordersOnBoard {
			if order.Kind != board.OrderConsolidatePower {
				continue
			}
			region := a.ingame.game.World.Region(regionID)
			if region.ControllingHouse() == h {
				regions = append(regions, region)
			}
		}
		sort.Slice(regions, func(i, j int) bool { return regions[i].ID < regions[j].ID })
		a.cpQueue = append(a.cpQueue, regions...)
	}
	a.proceedConsolidatePower()
}

func (a *Action) proceedConsolidatePower() {
	for len(a.cpQueue) > 0 {
		region := a.cpQueue[0]
		a.cpQueue = a.cpQueue[1:]

		house := region.ControllingHouse()
		if house == nil || a.Order(region) == nil {
			// The region changed hands or lost its order during combat.
			continue
		}
		a.RemoveOrder(region)

		if region.CastleLevel > 0 {
			mustering := newMustering(a, house, region)
			a.setChild(mustering)
			mustering.firstStart()
			return
		}

		total := a.ingame.changePowerTokens(house, 1)
		a.ingame.log(gamelog.New(gamelog.TypePowerGained, gamelog.PowerChange{
			House: house.ID,
			Delta: 1,
			Total: total,
		}))
	}
	a.ingame.proceedToPlanningPhase()
}

func (a *Action) onMusteringEnd() {
	a.child = nil
	a.proceedConsolidatePower()
}

func (a *Action) OnPlayerMessage(p *Player, msg *message.ClientMessage) {
	if a.child != nil {
		a.child.OnPlayerMessage(p, msg)
	}
}

func (a *Action) OnServerMessage(msg *message.ServerMessage) {
	switch msg.Type {
	case message.ServerActionPhaseChangeOrder:
		region := a.ingame.mustRegion(msg.RegionID)
		if msg.OrderID != nil {
			a.ordersOnBoard[region.ID] = a.ingame.mustOrder(*msg.OrderID)
		} else {
			delete(a.ordersOnBoard, region.ID)
		}
	default:
		if a.child != nil {
			a.child.OnServerMessage(msg)
		}
	}
}

type serializedAction struct {
	Type           string                  `json:"type"`
	OrdersOnBoard  []serializedPlacedOrder `json:"ordersOnBoard"`
	CPQueue        []string                `json:"cpQueue,omitempty"`
	ChildGameState json.RawMessage         `json:"childGameState,omitempty"`
}

func (a *Action) SerializeToClient(admin bool, viewer *Player) json.RawMessage {
	s := serializedAction{Type: "action"}

	regionIDs := make([]string, 0, len(a.ordersOnBoard))
	for regionID := range a.ordersOnBoard {
		regionIDs = append(regionIDs, regionID)
	}
	sort.Strings(regionIDs)
	for _, regionID := range regionIDs {
		id := a.ordersOnBoard[regionID].ID
		s.OrdersOnBoard = append(s.OrdersOnBoard, serializedPlacedOrder{
			RegionID: regionID,
			OrderID:  &id,
		})
	}
	for _, region := range a.cpQueue {
		s.CPQueue = append(s.CPQueue, region.ID)
	}
	if a.child != nil {
		s.ChildGameState = a.child.SerializeToClient(admin, viewer)
	}
	return mustMarshal(s)
}

func deserializeAction(in *Ingame, data json.RawMessage) *Action {
	var raw serializedAction
	if err := json.Unmarshal(data, &raw); err != nil {
		desyncf("decode action state: %v", err)
	}
	a := newAction(in)
	for _, po := range raw.OrdersOnBoard {
		region := in.mustRegion(po.RegionID)
		if po.OrderID == nil {
			desyncf("action phase order on %q has no id", region.ID)
		}
		a.ordersOnBoard[region.ID] = in.mustOrder(*po.OrderID)
	}
	for _, regionID := range raw.CPQueue {
		a.cpQueue = append(a.cpQueue, in.mustRegion(regionID))
	}
	if len(raw.ChildGameState) > 0 {
		a.child = deserializeActionChild(a, raw.ChildGameState)
	}
	return a
}

func deserializeActionChild(a *Action, data json.RawMessage) GameState {
	switch t := stateType(data); t {
	case "resolve-march-order":
		return deserializeResolveMarchOrder(a, data)
	case "mustering":
		return deserializeMustering(a, data)
	default:
		desyncf("unknown action child state %q", t)
		return nil
	}
}
