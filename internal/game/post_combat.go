package game

import (
	"encoding/json"

	"github.com/mmasztalerczuk/swords-and-ravens/internal/board"
	"github.com/mmasztalerczuk/swords-and-ravens/internal/gamelog"
	"github.com/mmasztalerczuk/swords-and-ravens/internal/message"
)

// PostCombat determines the winner and drives the ordered aftermath:
// casualties, house card handling, winner-determination abilities,
// retreat, and finally end-of-combat movement.
type PostCombat struct {
	combat *Combat
	winner *board.House
	loser  *board.House

	child GameState
}

func newPostCombat(c *Combat) *PostCombat {
	return &PostCombat{combat: c}
}

// Winner and Loser are set from firstStart on.
func (pc *PostCombat) Winner() *board.House { return pc.winner }
func (pc *PostCombat) Loser() *board.House  { return pc.loser }

func (pc *PostCombat) ingame() *Ingame { return pc.combat.ingame() }

func (pc *PostCombat) firstStart() {
	c := pc.combat

	// Only the attacker's total is clamped: a negative march bonus can
	// drag a lone footman below zero, but the defender's total stands as
	// computed.
	attackerTotal := c.TotalCombatStrength(c.attacker)
	if attackerTotal < 0 {
		attackerTotal = 0
	}
	defenderTotal := c.TotalCombatStrength(c.defender)

	switch {
	case attackerTotal > defenderTotal:
		pc.winner = c.attacker
	case defenderTotal > attackerTotal:
		pc.winner = c.defender
	default:
		// Ties break by fiefdoms track position.
		pc.winner = c.game().WhoIsAheadInTrack(c.game().FiefdomsTrack, c.attacker, c.defender)
	}
	pc.loser = c.Enemy(pc.winner)

	pc.ingame().log(gamelog.New(gamelog.TypeCombatResult, gamelog.CombatResult{
		Winner: pc.winner.ID,
		Stats: []gamelog.CombatStats{
			pc.statsOf(c.attacker, attackerTotal),
			pc.statsOf(c.defender, defenderTotal),
		},
	}))

	pc.proceedCasualties()
}

func (pc *PostCombat) statsOf(h *board.House, total int) gamelog.CombatStats {
	// Published totals never go below zero.
	if total < 0 {
		total = 0
	}
	c := pc.combat
	data := c.DataOf(h)
	stats := gamelog.CombatStats{
		House:             h.ID,
		Region:            data.Region.ID,
		Army:              c.ArmyStrength(h),
		ArmyUnits:         unitIDs(data.Army),
		OrderBonus:        c.OrderBonus(h),
		Support:           c.SupportStrength(h),
		Garrison:          c.GarrisonStrength(h),
		HouseCardStrength: c.HouseCardStrength(h),
		ValyrianBlade:     c.valyrianBladeBonus(h),
		Total:             total,
	}
	if data.HouseCard != nil {
		stats.HouseCard = data.HouseCard.ID
	}
	return stats
}

func (pc *PostCombat) proceedCasualties() {
	c := pc.combat

	// A defeated defender loses the region's garrison outright.
	if pc.loser == c.defender && c.defendingRegion.Garrison > 0 {
		pc.ingame().changeGarrison(c.defendingRegion, 0)
	}

	loserData := c.DataOf(pc.loser)

	// Units that cannot retreat die before any sword-icon math.
	var doomed, remaining []*board.Unit
	for _, u := range loserData.Army {
		if u.Wounded || !u.Type.CanRetreat {
			doomed = append(doomed, u)
		} else {
			remaining = append(remaining, u)
		}
	}
	if len(doomed) > 0 {
		pc.ingame().log(gamelog.New(gamelog.TypeImmediatelyKilled, gamelog.Casualties{
			House:  pc.loser.ID,
			Region: loserData.Region.ID,
			Killed: unitIDs(doomed),
		}))
		pc.ingame().removeUnits(loserData.Region, doomed)
		c.setArmy(loserData, remaining)
	}

	count := c.SwordIcons(pc.winner) - c.TowerIcons(pc.loser)
	if count < 0 {
		count = 0
	}
	if count > len(remaining) {
		count = len(remaining)
	}

	if count > 0 && !c.AreCasualtiesPrevented(pc.loser) {
		if count < len(remaining) {
			cc := newChooseCasualties(pc, pc.loser, remaining, count)
			pc.setChild(cc)
			cc.firstStart()
			return
		}
		// The whole army dies; no choice to make.
		pc.onChooseCasualtiesEnd(loserData.Region, remaining)
		return
	}
	pc.proceedHouseCardHandling()
}

func (pc *PostCombat) setChild(state GameState) {
	pc.child = state
	pc.ingame().entireGame.markStateChanged()
}

func (pc *PostCombat) onChooseCasualtiesEnd(region *board.Region, killed []*board.Unit) {
	loserData := pc.combat.DataOf(pc.loser)

	pc.ingame().log(gamelog.New(gamelog.TypeKilledAfterCombat, gamelog.Casualties{
		House:  pc.loser.ID,
		Region: region.ID,
		Killed: unitIDs(killed),
	}))
	pc.ingame().removeUnits(region, killed)

	dead := make(map[string]bool, len(killed))
	for _, u := range killed {
		dead[u.ID] = true
	}
	var survivors []*board.Unit
	for _, u := range loserData.Army {
		if !dead[u.ID] {
			survivors = append(survivors, u)
		}
	}
	pc.combat.setArmy(loserData, survivors)
	pc.child = nil
	pc.proceedHouseCardHandling()
}

func (pc *PostCombat) proceedHouseCardHandling() {
	for _, h := range pc.combat.ResolutionOrder() {
		pc.markHouseCardAsUsed(h, pc.combat.DataOf(h).HouseCard)
	}
	awd := newAfterWinnerDetermination(pc)
	pc.setChild(awd)
	awd.firstStart()
}

// markHouseCardAsUsed discards the played card and, if the house's whole
// hand is now spent, returns every card except the one just played. The
// check runs per house, immediately, so the just-played card stays used
// for a full cycle.
func (pc *PostCombat) markHouseCardAsUsed(house *board.House, card *board.HouseCard) {
	if card == nil {
		return
	}
	pc.ingame().setHouseCardStates(house, []*board.HouseCard{card}, board.HouseCardUsed)

	anyAvailable := false
	for _, hc := range house.HouseCards {
		if hc.State == board.HouseCardAvailable || hc.State == board.HouseCardChosen {
			anyAvailable = true
			break
		}
	}
	if anyAvailable {
		return
	}

	var toReturn []*board.HouseCard
	for _, hc := range house.HouseCards {
		if hc.State == board.HouseCardUsed && hc != card {
			toReturn = append(toReturn, hc)
		}
	}
	if len(toReturn) == 0 {
		return
	}
	pc.ingame().setHouseCardStates(house, toReturn, board.HouseCardAvailable)
	pc.ingame().log(gamelog.New(gamelog.TypeHouseCardsReturned, map[string]any{
		"house": house.ID,
		"cards": cardIDs(toReturn),
	}))
}

func (pc *PostCombat) onAfterWinnerDeterminationFinish() {
	pc.child = nil
	pc.proceedRetreat()
}

func (pc *PostCombat) proceedRetreat() {
	if len(pc.combat.DataOf(pc.loser).Army) > 0 {
		rr := newResolveRetreat(pc)
		pc.setChild(rr)
		rr.firstStart()
		return
	}
	pc.onResolveRetreatFinish()
}

func (pc *PostCombat) onResolveRetreatFinish() {
	pc.child = nil
	pc.proceedEndOfCombat()
}

func (pc *PostCombat) proceedEndOfCombat() {
	c := pc.combat

	if pc.winner == c.attacker {
		if len(c.attackerData.Army) > 0 && !pc.attackingMovementPrevented() {
			pc.ingame().moveUnits(c.attackingRegion, c.defendingRegion, c.attackerData.Army)
		}
		// Only a conquest clears the embattled region's token; a winning
		// defender keeps whatever order it had there.
		c.resolveMarchOrder.action.RemoveOrder(c.defendingRegion)
	}
	c.resolveMarchOrder.action.RemoveOrder(c.attackingRegion)

	for _, h := range c.ResolutionOrder() {
		if ab := c.ability(h); ab != nil {
			ab.AfterCombat(pc, h, c.DataOf(h).HouseCard)
		}
	}

	c.resolveMarchOrder.onCombatFinish()
}

func (pc *PostCombat) attackingMovementPrevented() bool {
	c := pc.combat
	for _, h := range c.ResolutionOrder() {
		if ab := c.ability(h); ab != nil && ab.PreventsAttackingArmyMovement(pc, h, c.DataOf(h).HouseCard) {
			return true
		}
	}
	return false
}

func (pc *PostCombat) OnPlayerMessage(p *Player, msg *message.ClientMessage) {
	if pc.child != nil {
		pc.child.OnPlayerMessage(p, msg)
	}
}

func (pc *PostCombat) OnServerMessage(msg *message.ServerMessage) {
	if pc.child != nil {
		pc.child.OnServerMessage(msg)
	}
}

type serializedPostCombat struct {
	Type           string          `json:"type"`
	WinnerID       string          `json:"winnerId"`
	LoserID        string          `json:"loserId"`
	ChildGameState json.RawMessage `json:"childGameState,omitempty"`
}

func (pc *PostCombat) SerializeToClient(admin bool, viewer *Player) json.RawMessage {
	s := serializedPostCombat{
		Type:     "post-combat",
		WinnerID: pc.winner.ID,
		LoserID:  pc.loser.ID,
	}
	if pc.child != nil {
		s.ChildGameState = pc.child.SerializeToClient(admin, viewer)
	}
	return mustMarshal(s)
}

func deserializePostCombat(c *Combat, data json.RawMessage) *PostCombat {
	var raw serializedPostCombat
	if err := json.Unmarshal(data, &raw); err != nil {
		desyncf("decode post-combat state: %v", err)
	}
	pc := newPostCombat(c)
	pc.winner = c.ingame().mustHouse(raw.WinnerID)
	pc.loser = c.ingame().mustHouse(raw.LoserID)
	if len(raw.ChildGameState) > 0 {
		pc.child = deserializePostCombatChild(pc, raw.ChildGameState)
	}
	return pc
}

func deserializePostCombatChild(pc *PostCombat, data json.RawMessage) GameState {
	switch t := stateType(data); t {
	case "choose-casualties":
		return deserializeChooseCasualties(pc, data)
	case "resolve-retreat":
		return deserializeResolveRetreat(pc, data)
	case "after-winner-determination":
		return deserializeAfterWinnerDetermination(pc, data)
	default:
		desyncf("unknown post-combat child state %q", t)
		return nil
	}
}

func cardIDs(cards []*board.HouseCard) []string {
	ids := make([]string, 0, len(cards))
	for _, c := range cards {
		ids = append(ids, c.ID)
	}
	return ids
}
