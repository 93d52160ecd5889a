package game

import (
	"encoding/json"

	"github.com/mmasztalerczuk/swords-and-ravens/internal/board"
	"github.com/mmasztalerczuk/swords-and-ravens/internal/gamelog"
	"github.com/mmasztalerczuk/swords-and-ravens/internal/message"
)

// HouseCombatData is one side of a combat: the house, the region it
// fights from, the committed army, and the chosen house card. The army
// is a snapshot taken when combat opens; casualty resolution prunes it.
type HouseCombatData struct {
	House             *board.House
	Region            *board.Region
	Army              []*board.Unit
	HouseCard         *board.HouseCard
	UsedValyrianBlade bool
}

// Combat resolves one march into an enemy-held region. It drives the
// fixed pipeline: house card selection, winner determination, casualties,
// card abilities, retreat, and end-of-combat movement.
type Combat struct {
	resolveMarchOrder *ResolveMarchOrder

	attacker        *board.House
	defender        *board.House
	attackingRegion *board.Region
	defendingRegion *board.Region
	marchOrder      *board.Order

	attackerData *HouseCombatData
	defenderData *HouseCombatData

	child GameState
}

func newCombat(rm *ResolveMarchOrder, attacker, defender *board.House, from, to *board.Region, units []*board.Unit, order *board.Order) *Combat {
	return &Combat{
		resolveMarchOrder: rm,
		attacker:          attacker,
		defender:          defender,
		attackingRegion:   from,
		defendingRegion:   to,
		marchOrder:        order,
		attackerData:      &HouseCombatData{House: attacker, Region: from, Army: units},
		defenderData:      &HouseCombatData{House: defender, Region: to},
	}
}

func (c *Combat) ingame() *Ingame   { return c.resolveMarchOrder.ingame() }
func (c *Combat) game() *board.Game { return c.ingame().game }

func (c *Combat) firstStart() {
	c.defenderData.Army = c.defendingRegion.SortedUnits()
	c.ingame().log(gamelog.New(gamelog.TypeCombatStarted, gamelog.CombatOpened{
		Attacker: c.attacker.ID,
		Defender: c.defender.ID,
		Region:   c.defendingRegion.ID,
	}))

	chc := newChooseHouseCard(c)
	c.setChild(chc)
	chc.firstStart()
}

func (c *Combat) setChild(state GameState) {
	c.child = state
	c.ingame().entireGame.markStateChanged()
}

// Attacker and Defender expose the two sides for tests and abilities.
func (c *Combat) Attacker() *board.House { return c.attacker }
func (c *Combat) Defender() *board.House { return c.defender }

// DefendingRegion is the embattled region.
func (c *Combat) DefendingRegion() *board.Region { return c.defendingRegion }

// DataOf returns the combat data of a combatant house.
func (c *Combat) DataOf(h *board.House) *HouseCombatData {
	if h == c.attacker {
		return c.attackerData
	}
	if h == c.defender {
		return c.defenderData
	}
	return nil
}

// Enemy returns the opposing combatant.
func (c *Combat) Enemy(h *board.House) *board.House {
	if h == c.attacker {
		return c.defender
	}
	return c.attacker
}

// ResolutionOrder returns the two combatants in iron throne order, the
// order in which all per-house combat effects resolve.
func (c *Combat) ResolutionOrder() []*board.House {
	order := make([]*board.House, 0, 2)
	for _, h := range c.game().TurnOrder() {
		if h == c.attacker || h == c.defender {
			order = append(order, h)
		}
	}
	return order
}

func (c *Combat) ability(h *board.House) HouseCardAbility {
	card := c.DataOf(h).HouseCard
	if card == nil {
		return nil
	}
	return AbilityByID(card.AbilityID)
}

// ArmyStrength sums the printed strength of a side's remaining army.
func (c *Combat) ArmyStrength(h *board.House) int {
	strength := 0
	for _, u := range c.DataOf(h).Army {
		strength += u.Type.CombatStrength
	}
	return strength
}

// OrderBonus is the march bonus for the attacker and the defense order
// bonus, if any, for the defender.
func (c *Combat) OrderBonus(h *board.House) int {
	if h == c.attacker {
		return c.marchOrder.Bonus
	}
	if order := c.resolveMarchOrder.action.Order(c.defendingRegion); order != nil && order.Kind == board.OrderDefense {
		return order.Bonus
	}
	return 0
}

// SupportStrength sums the support order bonuses a house receives from
// its own adjacent regions. Houses only support themselves.
func (c *Combat) SupportStrength(h *board.House) int {
	strength := 0
	for _, r := range c.game().World.Neighbours(c.defendingRegion) {
		order := c.resolveMarchOrder.action.Order(r)
		if order == nil || order.Kind != board.OrderSupport {
			continue
		}
		if r.ControllingHouse() == h {
			strength += order.Bonus
		}
	}
	return strength
}

// GarrisonStrength counts for the defender only.
func (c *Combat) GarrisonStrength(h *board.House) int {
	if h == c.defender {
		return c.defendingRegion.Garrison
	}
	return 0
}

// HouseCardStrength is the card's printed strength after every in-combat
// card ability has had its say.
func (c *Combat) HouseCardStrength(h *board.House) int {
	card := c.DataOf(h).HouseCard
	if card == nil {
		return 0
	}
	strength := card.Strength
	for _, owner := range c.ResolutionOrder() {
		ab := c.ability(owner)
		if ab == nil {
			continue
		}
		strength = ab.ModifyHouseCardStrength(c, owner, c.DataOf(owner).HouseCard, h, card, strength)
	}
	return strength
}

// SwordIcons returns a side's effective sword icon count.
func (c *Combat) SwordIcons(h *board.House) int {
	card := c.DataOf(h).HouseCard
	if card == nil {
		return 0
	}
	icons := card.SwordIcons
	if ab := c.ability(h); ab != nil {
		icons = ab.ModifySwordIcons(c, h, card, icons)
	}
	return icons
}

// TowerIcons returns a side's effective fortification icon count.
func (c *Combat) TowerIcons(h *board.House) int {
	card := c.DataOf(h).HouseCard
	if card == nil {
		return 0
	}
	icons := card.TowerIcons
	if ab := c.ability(h); ab != nil {
		icons = ab.ModifyTowerIcons(c, h, card, icons)
	}
	return icons
}

func (c *Combat) valyrianBladeBonus(h *board.House) int {
	if c.DataOf(h).UsedValyrianBlade {
		return 1
	}
	return 0
}

// TotalCombatStrength is the full sum for one side: army, order bonus,
// support, garrison, house card, blade, plus any total-level abilities.
// The attacker-only clamp to zero happens at winner determination, not
// here.
func (c *Combat) TotalCombatStrength(h *board.House) int {
	total := c.ArmyStrength(h) +
		c.OrderBonus(h) +
		c.SupportStrength(h) +
		c.GarrisonStrength(h) +
		c.HouseCardStrength(h) +
		c.valyrianBladeBonus(h)
	for _, owner := range c.ResolutionOrder() {
		ab := c.ability(owner)
		if ab == nil {
			continue
		}
		total = ab.ModifyCombatStrength(c, owner, c.DataOf(owner).HouseCard, h, total)
	}
	return total
}

// AreCasualtiesPrevented reports whether the losing side is shielded
// from sword-icon casualties by a card ability.
func (c *Combat) AreCasualtiesPrevented(loser *board.House) bool {
	for _, owner := range c.ResolutionOrder() {
		ab := c.ability(owner)
		if ab == nil {
			continue
		}
		if ab.PreventsCasualties(c, owner, c.DataOf(owner).HouseCard, loser) {
			return true
		}
	}
	return false
}

func (c *Combat) onChooseHouseCardFinish() {
	// Cancel-stage abilities fire once, before any strength is computed.
	for _, h := range c.ResolutionOrder() {
		if ab := c.ability(h); ab != nil {
			ab.Cancel(c, h, c.DataOf(h).HouseCard)
		}
	}
	pc := newPostCombat(c)
	c.setChild(pc)
	pc.firstStart()
}

// setArmy prunes a side's army and replicates the new composition.
func (c *Combat) setArmy(data *HouseCombatData, army []*board.Unit) {
	data.Army = army
	c.ingame().entireGame.broadcast(&message.ServerMessage{
		Type:     message.ServerCombatChangeArmy,
		HouseID:  data.House.ID,
		RegionID: data.Region.ID,
		UnitIDs:  unitIDs(army),
	})
}

func (c *Combat) OnPlayerMessage(p *Player, msg *message.ClientMessage) {
	if c.child != nil {
		c.child.OnPlayerMessage(p, msg)
	}
}

func (c *Combat) OnServerMessage(msg *message.ServerMessage) {
	switch msg.Type {
	case message.ServerCombatChangeArmy:
		data := c.DataOf(c.ingame().mustHouse(msg.HouseID))
		if data == nil {
			desyncf("combat army change for non-combatant %q", msg.HouseID)
		}
		data.Army = c.ingame().mustUnits(msg.UnitIDs)
	case message.ServerHouseCardChosen:
		data := c.DataOf(c.ingame().mustHouse(msg.HouseID))
		if data == nil {
			desyncf("house card chosen for non-combatant %q", msg.HouseID)
		}
		if len(msg.CardIDs) == 1 {
			data.HouseCard = c.ingame().mustHouseCard(msg.CardIDs[0])
		}
		if c.child != nil {
			c.child.OnServerMessage(msg)
		}
	case message.ServerChangeValyrianBladeUse:
		data := c.DataOf(c.ingame().mustHouse(msg.HouseID))
		if data == nil {
			desyncf("blade use for non-combatant %q", msg.HouseID)
		}
		data.UsedValyrianBlade = msg.BladeUsed
	default:
		if c.child != nil {
			c.child.OnServerMessage(msg)
		}
	}
}

type serializedCombat struct {
	Type              string                `json:"type"`
	AttackerID        string                `json:"attackerId"`
	DefenderID        string                `json:"defenderId"`
	AttackingRegionID string                `json:"attackingRegionId"`
	DefendingRegionID string                `json:"defendingRegionId"`
	MarchOrderID      int                   `json:"marchOrderId"`
	Sides             []serializedCombatSide `json:"sides"`
	ChildGameState    json.RawMessage       `json:"childGameState,omitempty"`
}

type serializedCombatSide struct {
	HouseID           string   `json:"houseId"`
	RegionID          string   `json:"regionId"`
	ArmyUnitIDs       []string `json:"armyUnitIds"`
	HouseCardID       string   `json:"houseCardId,omitempty"`
	UsedValyrianBlade bool     `json:"usedValyrianBlade,omitempty"`
}

func (c *Combat) SerializeToClient(admin bool, viewer *Player) json.RawMessage {
	s := serializedCombat{
		Type:              "combat",
		AttackerID:        c.attacker.ID,
		DefenderID:        c.defender.ID,
		AttackingRegionID: c.attackingRegion.ID,
		DefendingRegionID: c.defendingRegion.ID,
		MarchOrderID:      c.marchOrder.ID,
	}

	// Before the simultaneous reveal, each side's chosen card is visible
	// only to its owner.
	hiddenSelection := false
	if chc, ok := c.child.(*ChooseHouseCard); ok {
		hiddenSelection = !chc.revealed
	}
	for _, data := range []*HouseCombatData{c.attackerData, c.defenderData} {
		side := serializedCombatSide{
			HouseID:           data.House.ID,
			RegionID:          data.Region.ID,
			ArmyUnitIDs:       unitIDs(data.Army),
			UsedValyrianBlade: data.UsedValyrianBlade,
		}
		if data.HouseCard != nil {
			visible := admin || !hiddenSelection || (viewer != nil && viewer.House == data.House.ID)
			if visible {
				side.HouseCardID = data.HouseCard.ID
			}
		}
		s.Sides = append(s.Sides, side)
	}
	if c.child != nil {
		s.ChildGameState = c.child.SerializeToClient(admin, viewer)
	}
	return mustMarshal(s)
}

func deserializeCombat(rm *ResolveMarchOrder, data json.RawMessage) *Combat {
	var raw serializedCombat
	if err := json.Unmarshal(data, &raw); err != nil {
		desyncf("decode combat state: %v", err)
	}
	in := rm.ingame()
	c := newCombat(rm,
		in.mustHouse(raw.AttackerID),
		in.mustHouse(raw.DefenderID),
		in.mustRegion(raw.AttackingRegionID),
		in.mustRegion(raw.DefendingRegionID),
		nil,
		in.mustOrder(raw.MarchOrderID))

	for _, side := range raw.Sides {
		data := c.DataOf(in.mustHouse(side.HouseID))
		if data == nil {
			desyncf("combat side references non-combatant %q", side.HouseID)
		}
		data.Army = in.mustUnits(side.ArmyUnitIDs)
		data.UsedValyrianBlade = side.UsedValyrianBlade
		if side.HouseCardID != "" {
			data.HouseCard = in.mustHouseCard(side.HouseCardID)
		}
	}
	if len(raw.ChildGameState) > 0 {
		c.child = deserializeCombatChild(c, raw.ChildGameState)
	}
	return c
}

func deserializeCombatChild(c *Combat, data json.RawMessage) GameState {
	switch t := stateType(data); t {
	case "choose-house-card":
		return deserializeChooseHouseCard(c, data)
	case "post-combat":
		return deserializePostCombat(c, data)
	default:
		desyncf("unknown combat child state %q", t)
		return nil
	}
}
