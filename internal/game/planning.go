package game

import (
	"encoding/json"
	"sort"

	"github.com/mmasztalerczuk/swords-and-ravens/internal/board"
	"github.com/mmasztalerczuk/swords-and-ravens/internal/gamelog"
	"github.com/mmasztalerczuk/swords-and-ravens/internal/message"
)

// Planning is the simultaneous, hidden order-placement phase. Placed
// orders are face down: only the owner (and admins) see which order sits
// on a region, everyone else just sees that one is there.
type Planning struct {
	ingame *Ingame

	// placedOrders maps region id to the placed order. On replicas a nil
	// value is a face-down order whose identity is hidden from this
	// viewer.
	placedOrders map[string]*board.Order
	readyHouses  []*board.House
}

func newPlanning(in *Ingame) *Planning {
	return &Planning{
		ingame:       in,
		placedOrders: make(map[string]*board.Order),
	}
}

func (p *Planning) firstStart() {
	p.ingame.log(gamelog.New(gamelog.TypePlanningPhaseBegan, map[string]int{
		"round": p.ingame.game.Round,
	}))
	// Houses with nothing on the board have nothing to plan.
	for _, h := range p.ingame.game.TurnOrder() {
		if len(p.possibleRegions(h)) == 0 {
			p.readyHouses = append(p.readyHouses, h)
		}
	}
	p.checkAllReady()
}

// possibleRegions returns the regions the house may place orders on:
// regions it controls with at least one unit.
func (p *Planning) possibleRegions(h *board.House) []*board.Region {
	var regions []*board.Region
	for _, r := range p.ingame.game.World.ControlledRegions(h) {
		if len(r.Units) > 0 {
			regions = append(regions, r)
		}
	}
	sort.Slice(regions, func(i, j int) bool { return regions[i].ID < regions[j].ID })
	return regions
}

// PlacedOrder returns the order on a region, which may be nil both when
// nothing is placed and, on replicas, when the order is face down.
func (p *Planning) PlacedOrder(regionID string) (*board.Order, bool) {
	o, ok := p.placedOrders[regionID]
	return o, ok
}

func (p *Planning) isReady(h *board.House) bool {
	for _, rh := range p.readyHouses {
		if rh == h {
			return true
		}
	}
	return false
}

// AssignOrder applies an order placement locally without any validation
// or replication. Optimistic client UIs call this before the server
// confirms; the confirming order-placed message reapplies the same
// mutation, so the two paths converge.
func (p *Planning) AssignOrder(region *board.Region, order *board.Order) {
	if order == nil {
		delete(p.placedOrders, region.ID)
		return
	}
	p.placedOrders[region.ID] = order
}

func (p *Planning) OnPlayerMessage(player *Player, msg *message.ClientMessage) {
	house := p.ingame.houseOfPlayer(player)
	switch msg.Type {
	case message.ClientPlaceOrder:
		p.onPlaceOrder(player, house, msg)
	case message.ClientReady:
		p.onReady(player, house)
	case message.ClientUnready:
		p.onUnready(player, house)
	}
}

func (p *Planning) onPlaceOrder(player *Player, house *board.House, msg *message.ClientMessage) {
	region := p.ingame.game.World.Region(msg.RegionID)
	if region == nil || region.ControllingHouse() != house || len(region.Units) == 0 {
		return
	}

	if msg.OrderID == nil {
		// Retract.
		if _, ok := p.placedOrders[region.ID]; !ok {
			return
		}
		delete(p.placedOrders, region.ID)
		p.setUnready(player, house)
		p.ingame.entireGame.broadcast(&message.ServerMessage{
			Type:     message.ServerRemovePlacedOrder,
			RegionID: region.ID,
		})
		return
	}

	order := board.OrderByID(*msg.OrderID)
	if order == nil {
		return
	}
	// Each order token exists once per house.
	for regionID, placed := range p.placedOrders {
		if regionID == region.ID || placed != order {
			continue
		}
		if other := p.ingame.game.World.Region(regionID); other.ControllingHouse() == house {
			return
		}
	}

	p.placedOrders[region.ID] = order
	p.setUnready(player, house)

	// The owner sees the order, everyone else just sees a face-down token.
	p.ingame.entireGame.sendToUser(player.User, &message.ServerMessage{
		Type:     message.ServerOrderPlaced,
		RegionID: region.ID,
		OrderID:  &order.ID,
	})
	p.ingame.entireGame.broadcastExcept(player.User, &message.ServerMessage{
		Type:     message.ServerOrderPlaced,
		RegionID: region.ID,
	})
}

func (p *Planning) onReady(player *Player, house *board.House) {
	if p.isReady(house) {
		return
	}
	for _, r := range p.possibleRegions(house) {
		if _, ok := p.placedOrders[r.ID]; !ok {
			return
		}
	}
	p.readyHouses = append(p.readyHouses, house)
	p.ingame.entireGame.broadcast(&message.ServerMessage{
		Type:   message.ServerPlayerReady,
		UserID: player.User.ID,
	})
	p.checkAllReady()
}

func (p *Planning) onUnready(player *Player, house *board.House) {
	if !p.isReady(house) {
		return
	}
	p.removeReady(house)
	p.ingame.entireGame.broadcast(&message.ServerMessage{
		Type:   message.ServerPlayerUnready,
		UserID: player.User.ID,
	})
}

func (p *Planning) setUnready(player *Player, house *board.House) {
	if !p.isReady(house) {
		return
	}
	p.removeReady(house)
	p.ingame.entireGame.broadcast(&message.ServerMessage{
		Type:   message.ServerPlayerUnready,
		UserID: player.User.ID,
	})
}

func (p *Planning) removeReady(house *board.House) {
	for i, rh := range p.readyHouses {
		if rh == house {
			p.readyHouses = append(p.readyHouses[:i], p.readyHouses[i+1:]...)
			return
		}
	}
}

func (p *Planning) checkAllReady() {
	if len(p.readyHouses) < len(p.ingame.game.Houses) {
		return
	}
	p.ingame.log(gamelog.New(gamelog.TypeOrdersPlaced, nil))
	action := newAction(p.ingame)
	p.ingame.setChildGameState(action)
	action.firstStart(p.placedOrders)
}

func (p *Planning) OnServerMessage(msg *message.ServerMessage) {
	switch msg.Type {
	case message.ServerOrderPlaced:
		region := p.ingame.mustRegion(msg.RegionID)
		if msg.OrderID != nil {
			p.placedOrders[region.ID] = p.ingame.mustOrder(*msg.OrderID)
		} else {
			// Face down: present but hidden.
			p.placedOrders[region.ID] = nil
		}
	case message.ServerRemovePlacedOrder:
		delete(p.placedOrders, p.ingame.mustRegion(msg.RegionID).ID)
	case message.ServerPlayerReady:
		if player, ok := p.ingame.players[msg.UserID]; ok {
			p.readyHouses = append(p.readyHouses, p.ingame.mustHouse(player.House))
		}
	case message.ServerPlayerUnready:
		if player, ok := p.ingame.players[msg.UserID]; ok {
			p.removeReady(p.ingame.mustHouse(player.House))
		}
	}
}

type serializedPlanning struct {
	Type         string                  `json:"type"`
	PlacedOrders []serializedPlacedOrder `json:"placedOrders"`
	ReadyHouses  []string                `json:"readyHouses"`
}

type serializedPlacedOrder struct {
	RegionID string `json:"regionId"`
	OrderID  *int   `json:"orderId,omitempty"`
}

func (p *Planning) SerializeToClient(admin bool, viewer *Player) json.RawMessage {
	s := serializedPlanning{Type: "planning"}

	regionIDs := make([]string, 0, len(p.placedOrders))
	for regionID := range p.placedOrders {
		regionIDs = append(regionIDs, regionID)
	}
	sort.Strings(regionIDs)
	for _, regionID := range regionIDs {
		entry := serializedPlacedOrder{RegionID: regionID}
		order := p.placedOrders[regionID]
		if order != nil && (admin || p.viewerOwnsRegion(viewer, regionID)) {
			id := order.ID
			entry.OrderID = &id
		}
		s.PlacedOrders = append(s.PlacedOrders, entry)
	}
	for _, h := range p.readyHouses {
		s.ReadyHouses = append(s.ReadyHouses, h.ID)
	}
	return mustMarshal(s)
}

func (p *Planning) viewerOwnsRegion(viewer *Player, regionID string) bool {
	if viewer == nil {
		return false
	}
	region := p.ingame.game.World.Region(regionID)
	if region == nil {
		return false
	}
	controller := region.ControllingHouse()
	return controller != nil && controller.ID == viewer.House
}

func deserializePlanning(in *Ingame, data json.RawMessage) *Planning {
	var raw serializedPlanning
	if err := json.Unmarshal(data, &raw); err != nil {
		desyncf("decode planning state: %v", err)
	}
	p := newPlanning(in)
	for _, po := range raw.PlacedOrders {
		region := in.mustRegion(po.RegionID)
		if po.OrderID != nil {
			p.placedOrders[region.ID] = in.mustOrder(*po.OrderID)
		} else {
			p.placedOrders[region.ID] = nil
		}
	}
	for _, houseID := range raw.ReadyHouses {
		p.readyHouses = append(p.readyHouses, in.mustHouse(houseID))
	}
	return p
}
