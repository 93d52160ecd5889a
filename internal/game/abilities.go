package game

import (
	"github.com/mmasztalerczuk/swords-and-ravens/internal/board"
	"github.com/mmasztalerczuk/swords-and-ravens/internal/gamelog"
)

// HouseCardAbility is the hook set a house card can implement. Abilities
// are stateless singletons registered by id; cards reference them by
// that id, and all per-combat state lives in the game states. Hooks get
// the full combat so they can inspect anything they need.
//
// house and card always identify the ability's owner and the card
// carrying it; affected identifies whose value is being modified, which
// may be either combatant.
type HouseCardAbility interface {
	ModifyCombatStrength(c *Combat, house *board.House, card *board.HouseCard, affected *board.House, strength int) int
	ModifyHouseCardStrength(c *Combat, house *board.House, card *board.HouseCard, affected *board.House, affectedCard *board.HouseCard, strength int) int
	ModifySwordIcons(c *Combat, house *board.House, card *board.HouseCard, icons int) int
	ModifyTowerIcons(c *Combat, house *board.House, card *board.HouseCard, icons int) int

	// AfterWinnerDetermination runs after the winner is known and
	// casualties are resolved. It must eventually call
	// awd.OnHouseCardResolutionFinish, possibly after a sub-decision.
	AfterWinnerDetermination(awd *AfterWinnerDetermination, house *board.House, card *board.HouseCard)

	// AfterCombat runs at the very end of combat, after movement.
	AfterCombat(pc *PostCombat, house *board.House, card *board.HouseCard)

	PreventsAttackingArmyMovement(pc *PostCombat, house *board.House, card *board.HouseCard) bool
	PreventsCasualties(c *Combat, house *board.House, card *board.HouseCard, loser *board.House) bool

	// Cancel runs once, before any strength computation, and may undo
	// other effects on the board.
	Cancel(c *Combat, house *board.House, card *board.HouseCard)
}

// baseAbility provides the no-op default for every hook, so concrete
// abilities only override what they change.
type baseAbility struct{}

func (baseAbility) ModifyCombatStrength(c *Combat, house *board.House, card *board.HouseCard, affected *board.House, strength int) int {
	return strength
}

func (baseAbility) ModifyHouseCardStrength(c *Combat, house *board.House, card *board.HouseCard, affected *board.House, affectedCard *board.HouseCard, strength int) int {
	return strength
}

func (baseAbility) ModifySwordIcons(c *Combat, house *board.House, card *board.HouseCard, icons int) int {
	return icons
}

func (baseAbility) ModifyTowerIcons(c *Combat, house *board.House, card *board.HouseCard, icons int) int {
	return icons
}

func (baseAbility) AfterWinnerDetermination(awd *AfterWinnerDetermination, house *board.House, card *board.HouseCard) {
	awd.OnHouseCardResolutionFinish(house)
}

func (baseAbility) AfterCombat(pc *PostCombat, house *board.House, card *board.HouseCard) {}

func (baseAbility) PreventsAttackingArmyMovement(pc *PostCombat, house *board.House, card *board.HouseCard) bool {
	return false
}

func (baseAbility) PreventsCasualties(c *Combat, house *board.House, card *board.HouseCard, loser *board.House) bool {
	return false
}

func (baseAbility) Cancel(c *Combat, house *board.House, card *board.HouseCard) {}

var abilities = map[string]HouseCardAbility{
	"stannis-baratheon":     stannisBaratheonAbility{},
	"stannis-baratheon-dwd": stannisBaratheonDwDAbility{},
	"balon-greyjoy":         balonGreyjoyAbility{},
	"theon-greyjoy":         theonGreyjoyAbility{},
	"asha-greyjoy":          ashaGreyjoyAbility{},
	"nymeria-sand":          nymeriaSandAbility{},
	"tywin-lannister":       tywinLannisterAbility{},
	"mace-tyrell":           maceTyrellAbility{},
	"renly-baratheon":       renlyBaratheonAbility{},
	"arianne-martell":       arianneMartellAbility{},
	"the-blackfish":         theBlackfishAbility{},
}

// AbilityByID resolves a card's ability id. Vanilla cards have no id and
// resolve to nil.
func AbilityByID(id string) HouseCardAbility {
	if id == "" {
		return nil
	}
	return abilities[id]
}

// stannisBaratheonAbility grants +1 total strength when the opponent
// holds a better iron throne position.
type stannisBaratheonAbility struct{ baseAbility }

func (stannisBaratheonAbility) ModifyCombatStrength(c *Combat, house *board.House, card *board.HouseCard, affected *board.House, strength int) int {
	if affected != house {
		return strength
	}
	enemy := c.Enemy(house)
	if c.game().WhoIsAheadInTrack(c.game().IronThroneTrack, house, enemy) == enemy {
		return strength + 1
	}
	return strength
}

// stannisBaratheonDwDAbility discards all support orders adjacent to the
// embattled region when its owner fights unsupported.
type stannisBaratheonDwDAbility struct{ baseAbility }

func (stannisBaratheonDwDAbility) Cancel(c *Combat, house *board.House, card *board.HouseCard) {
	if c.SupportStrength(house) > 0 {
		return
	}
	action := c.resolveMarchOrder.action
	for _, r := range c.game().World.Neighbours(c.defendingRegion) {
		order := action.Order(r)
		if order == nil || order.Kind != board.OrderSupport {
			continue
		}
		action.RemoveOrder(r)
		c.ingame().log(gamelog.New(gamelog.TypeSupportOrderRemoved, map[string]string{
			"house":  house.ID,
			"region": r.ID,
		}))
	}
}

// balonGreyjoyAbility reduces the opposing house card's printed strength
// to zero.
type balonGreyjoyAbility struct{ baseAbility }

func (balonGreyjoyAbility) ModifyHouseCardStrength(c *Combat, house *board.House, card *board.HouseCard, affected *board.House, affectedCard *board.HouseCard, strength int) int {
	if affectedCard != card {
		return 0
	}
	return strength
}

// theonGreyjoyAbility grants +1 strength and +1 sword icon when its
// owner defends a castle region.
type theonGreyjoyAbility struct{ baseAbility }

func (theonGreyjoyAbility) ModifyCombatStrength(c *Combat, house *board.House, card *board.HouseCard, affected *board.House, strength int) int {
	if affected == house && house == c.Defender() && c.DefendingRegion().CastleLevel > 0 {
		return strength + 1
	}
	return strength
}

func (theonGreyjoyAbility) ModifySwordIcons(c *Combat, house *board.House, card *board.HouseCard, icons int) int {
	if house == c.Defender() && c.DefendingRegion().CastleLevel > 0 {
		return icons + 1
	}
	return icons
}

// ashaGreyjoyAbility grants +2 sword and +1 fortification icons when its
// owner fights without support.
type ashaGreyjoyAbility struct{ baseAbility }

func (ashaGreyjoyAbility) ModifySwordIcons(c *Combat, house *board.House, card *board.HouseCard, icons int) int {
	if c.SupportStrength(house) == 0 {
		return icons + 2
	}
	return icons
}

func (ashaGreyjoyAbility) ModifyTowerIcons(c *Combat, house *board.House, card *board.HouseCard, icons int) int {
	if c.SupportStrength(house) == 0 {
		return icons + 1
	}
	return icons
}

// nymeriaSandAbility counts as a sword icon when attacking and a
// fortification icon when defending.
type nymeriaSandAbility struct{ baseAbility }

func (nymeriaSandAbility) ModifySwordIcons(c *Combat, house *board.House, card *board.HouseCard, icons int) int {
	if house == c.Attacker() {
		return icons + 1
	}
	return icons
}

func (nymeriaSandAbility) ModifyTowerIcons(c *Combat, house *board.House, card *board.HouseCard, icons int) int {
	if house == c.Defender() {
		return icons + 1
	}
	return icons
}

// tywinLannisterAbility grants 2 power tokens on a win.
type tywinLannisterAbility struct{ baseAbility }

func (tywinLannisterAbility) AfterWinnerDetermination(awd *AfterWinnerDetermination, house *board.House, card *board.HouseCard) {
	if awd.postCombat.Winner() == house {
		total := awd.ingame().changePowerTokens(house, 2)
		awd.ingame().log(gamelog.New(gamelog.TypePowerGained, gamelog.PowerChange{
			House: house.ID,
			Delta: 2,
			Total: total,
		}))
	}
	awd.OnHouseCardResolutionFinish(house)
}

// maceTyrellAbility lets its owner destroy one opposing footman, win or
// lose.
type maceTyrellAbility struct{ baseAbility }

func (maceTyrellAbility) AfterWinnerDetermination(awd *AfterWinnerDetermination, house *board.House, card *board.HouseCard) {
	state := newMaceTyrellAbilityState(awd, house)
	awd.setChild(state)
	state.firstStart()
}

// renlyBaratheonAbility lets its owner upgrade a footman to a knight
// after winning.
type renlyBaratheonAbility struct{ baseAbility }

func (renlyBaratheonAbility) AfterWinnerDetermination(awd *AfterWinnerDetermination, house *board.House, card *board.HouseCard) {
	if awd.postCombat.Winner() != house {
		awd.OnHouseCardResolutionFinish(house)
		return
	}
	state := newRenlyBaratheonAbilityState(awd, house)
	awd.setChild(state)
	state.firstStart()
}

// arianneMartellAbility keeps a victorious attacker out of the embattled
// region when its owner loses on defense.
type arianneMartellAbility struct{ baseAbility }

func (arianneMartellAbility) PreventsAttackingArmyMovement(pc *PostCombat, house *board.House, card *board.HouseCard) bool {
	return house == pc.combat.Defender() && pc.Loser() == house
}

// theBlackfishAbility shields its owner from all combat casualties.
type theBlackfishAbility struct{ baseAbility }

func (theBlackfishAbility) PreventsCasualties(c *Combat, house *board.House, card *board.HouseCard, loser *board.House) bool {
	return loser == house
}
