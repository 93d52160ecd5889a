package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmasztalerczuk/swords-and-ravens/internal/board"
	"github.com/mmasztalerczuk/swords-and-ravens/internal/gamelog"
	"github.com/mmasztalerczuk/swords-and-ravens/internal/message"
)

// setCard wires a card onto a combat side directly, bypassing selection,
// so modifier hooks can be probed in isolation.
func setCard(c *Combat, h *board.House, cardID string) {
	c.DataOf(h).HouseCard = c.game().HouseCard(cardID)
}

func TestStannisBaratheonStrengthDependsOnThrone(t *testing.T) {
	tg := newTestGame(t)
	tg.stageCombat([]string{"knight"}, []string{"knight"}, 2, 8)
	c := tg.combat()
	setCard(c, c.Attacker(), "stannis-baratheon")

	// Lannister sits above stark on the iron throne: no bonus.
	base := c.TotalCombatStrength(c.Attacker())
	assert.Equal(t, 2+10, base)

	// Push the enemy above the owner and the +1 kicks in.
	g := tg.game()
	g.IronThroneTrack = []*board.House{g.House("baratheon"), g.House("stark"), g.House("lannister")}
	assert.Equal(t, 2+10+1, c.TotalCombatStrength(c.Attacker()))
}

func TestBalonGreyjoyZeroesOpposingCard(t *testing.T) {
	tg := newTestGame(t)
	tg.stageCombat([]string{"knight"}, []string{"knight"}, 2, 8)
	c := tg.combat()
	setCard(c, c.Attacker(), "the-hound")
	setCard(c, c.Defender(), "balon-greyjoy")

	assert.Equal(t, 0, c.HouseCardStrength(c.Attacker()))
	assert.Equal(t, 7, c.HouseCardStrength(c.Defender()))
	assert.Equal(t, 2, c.TotalCombatStrength(c.Attacker()))
}

func TestTheonGreyjoyDefendingCastle(t *testing.T) {
	tg := newTestGame(t)
	// Riverrun is castle level 1.
	tg.stageCombat([]string{"knight"}, []string{"knight"}, 2, 8)
	c := tg.combat()
	setCard(c, c.Defender(), "theon-greyjoy")

	assert.Equal(t, 2+4+1, c.TotalCombatStrength(c.Defender()))
	assert.Equal(t, 1, c.SwordIcons(c.Defender()))

	// Attacking, the card is just its printed strength.
	setCard(c, c.Defender(), "")
	setCard(c, c.Attacker(), "theon-greyjoy")
	assert.Equal(t, 2+4, c.TotalCombatStrength(c.Attacker()))
	assert.Equal(t, 0, c.SwordIcons(c.Attacker()))
}

func TestAshaGreyjoyIconsWhenUnsupported(t *testing.T) {
	tg := newTestGame(t)
	tg.stageCombat([]string{"knight"}, []string{"knight"}, 2, 8)
	c := tg.combat()
	setCard(c, c.Defender(), "asha-greyjoy")

	require.Equal(t, 0, c.SupportStrength(c.Defender()))
	assert.Equal(t, 2, c.SwordIcons(c.Defender()))
	assert.Equal(t, 1, c.TowerIcons(c.Defender()))

	// With support in place the bonus icons vanish.
	tg.addUnit("st-sup", "the-twins", "stark", "footman")
	tg.action().ordersOnBoard["the-twins"] = board.OrderByID(4) // support +1
	require.Equal(t, 1, c.SupportStrength(c.Defender()))
	assert.Equal(t, 0, c.SwordIcons(c.Defender()))
	assert.Equal(t, 0, c.TowerIcons(c.Defender()))
}

func TestNymeriaSandAdaptsToRole(t *testing.T) {
	tg := newTestGame(t)
	tg.stageCombat([]string{"knight"}, []string{"knight"}, 2, 8)
	c := tg.combat()

	setCard(c, c.Attacker(), "nymeria-sand")
	assert.Equal(t, 1, c.SwordIcons(c.Attacker()))
	assert.Equal(t, 0, c.TowerIcons(c.Attacker()))

	setCard(c, c.Attacker(), "")
	setCard(c, c.Defender(), "nymeria-sand")
	assert.Equal(t, 0, c.SwordIcons(c.Defender()))
	assert.Equal(t, 1, c.TowerIcons(c.Defender()))
}

func TestTywinLannisterGrantsPowerOnWin(t *testing.T) {
	tg := newTestGame(t)
	tg.stageCombat([]string{"knight", "knight"}, []string{"footman"}, 3, 8)
	tg.selectHouseCard("lannister", "tywin-lannister")
	tg.selectHouseCard("stark", "roose-bolton")

	// 4 + 1 + 10 = 15 beats 1 + 7 = 8; tywin banks 2 power.
	assert.Equal(t, 7, tg.game().House("lannister").PowerTokens)

	var gained bool
	for _, entry := range tg.e.Ingame.gameLog {
		if entry.Type == gamelog.TypePowerGained {
			gained = true
		}
	}
	assert.True(t, gained)
}

func TestMaceTyrellDestroysFootmanAndStopsOccupation(t *testing.T) {
	tg := newTestGame(t)
	tg.clearBoard()
	tg.addUnit("st-0", "blackwater", "stark", "footman")
	tg.addUnit("la-0", "kings-landing", "lannister", "footman")
	tg.placeOrder("stark", "blackwater", 3)
	tg.placeOrder("lannister", "kings-landing", 8)
	tg.readyAll()
	tg.march("stark", "blackwater", "kings-landing", "st-0")

	tg.selectHouseCard("stark", "eddard-stark")
	tg.selectHouseCard("lannister", "mace-tyrell")

	// Stark wins 1 + 1 + 10 = 12 against 1 + 7 = 8, and eddard's two
	// swords kill the defending footman outright. Mace tyrell still
	// fires for the loser.
	awd, ok := tg.postCombat().child.(*AfterWinnerDetermination)
	require.True(t, ok, "expected ability stage, got %T", tg.postCombat().child)
	_, ok = awd.child.(*MaceTyrellAbilityState)
	require.True(t, ok, "expected mace tyrell decision, got %T", awd.child)

	// Only the card's owner may pick the victim.
	tg.send("u2", &message.ClientMessage{Type: message.ClientSelectAbilityUnit, UnitIDs: []string{"st-0"}})
	tg.send("u1", &message.ClientMessage{Type: message.ClientSelectAbilityUnit, UnitIDs: []string{"st-0"}})

	// The winning army was wiped by the ability: nobody occupies, and
	// with no army left anywhere the game is over.
	assert.Empty(t, tg.unitIDsIn("kings-landing"))
	assert.Empty(t, tg.unitIDsIn("blackwater"))
	_, ended := tg.e.Ingame.ChildGameState().(*GameEnded)
	assert.True(t, ended, "expected game end, got %T", tg.e.Ingame.ChildGameState())
}

func TestRenlyBaratheonUpgradesFootman(t *testing.T) {
	tg := newTestGame(t)
	tg.clearBoard()
	tg.addUnit("ba-0", "storms-end", "baratheon", "footman")
	tg.addUnit("ba-1", "storms-end", "baratheon", "footman")
	tg.addUnit("la-0", "kings-landing", "lannister", "footman")
	tg.placeOrder("baratheon", "storms-end", 3)
	tg.placeOrder("lannister", "kings-landing", 8)
	tg.readyAll()
	tg.march("baratheon", "storms-end", "kings-landing", "ba-0", "ba-1")

	tg.selectHouseCard("baratheon", "renly-baratheon")
	tg.selectHouseCard("lannister", "the-hound")

	// 2 + 1 + 9 = 12 beats 1 + 8 = 9; the winner may promote a footman.
	awd, ok := tg.postCombat().child.(*AfterWinnerDetermination)
	require.True(t, ok)
	_, ok = awd.child.(*RenlyBaratheonAbilityState)
	require.True(t, ok, "expected renly decision, got %T", awd.child)

	tg.send("u3", &message.ClientMessage{Type: message.ClientSelectAbilityUnit, UnitIDs: []string{"ba-0"}})

	assert.Equal(t, board.Knight, tg.game().Unit("ba-0").Type)
}

func TestRenlyBaratheonSkippedOnLoss(t *testing.T) {
	tg := newTestGame(t)
	tg.clearBoard()
	tg.addUnit("ba-0", "storms-end", "baratheon", "footman")
	tg.addUnit("la-0", "kings-landing", "lannister", "knight")
	tg.addUnit("la-1", "kings-landing", "lannister", "knight")
	tg.placeOrder("baratheon", "storms-end", 2)
	tg.placeOrder("lannister", "kings-landing", 8)
	tg.readyAll()
	tg.march("baratheon", "storms-end", "kings-landing", "ba-0")

	tg.selectHouseCard("baratheon", "renly-baratheon")
	tg.selectHouseCard("lannister", "the-hound")

	// 1 + 9 = 10 loses to 4 + 8 = 12: no upgrade decision appears and
	// the combat resolves through without pausing.
	result := tg.combatResult()
	assert.Equal(t, "lannister", result.Winner)
	assert.Equal(t, board.Footman, tg.game().Unit("ba-0").Type)
}

func TestArianneMartellBlocksOccupation(t *testing.T) {
	tg := newTestGame(t)
	tg.stageCombat([]string{"knight", "knight"}, []string{"knight"}, 2, 8)
	tg.selectHouseCard("lannister", "the-hound")
	tg.selectHouseCard("stark", "arianne-martell")

	// Lannister wins 4 + 8 = 12 against 2 + 3 = 5, but arianne keeps the
	// attackers out. The loser still retreats.
	tg.send("u2", &message.ClientMessage{Type: message.ClientRetreat, RegionID: "the-twins"})

	assert.Equal(t, []string{"la-0", "la-1"}, tg.unitIDsIn("lannisport"))
	assert.Empty(t, tg.unitIDsIn("riverrun"))
	assert.Equal(t, []string{"st-0"}, tg.unitIDsIn("the-twins"))
}

func TestTheBlackfishPreventsCasualties(t *testing.T) {
	tg := newTestGame(t)
	tg.clearBoard()
	tg.addUnit("st-0", "blackwater", "stark", "knight")
	tg.addUnit("st-1", "blackwater", "stark", "knight")
	for i := 0; i < 3; i++ {
		tg.addUnit(unitName("la", i), "kings-landing", "lannister", "footman")
	}
	tg.placeOrder("stark", "blackwater", 3)
	tg.placeOrder("lannister", "kings-landing", 8)
	tg.readyAll()
	tg.march("stark", "blackwater", "kings-landing", "st-0", "st-1")

	tg.selectHouseCard("stark", "eddard-stark") // two swords
	tg.selectHouseCard("lannister", "the-blackfish")

	// Without the blackfish eddard's swords would take two footmen; with
	// it the whole army walks away.
	pc := tg.postCombat()
	require.Equal(t, "stark", pc.Winner().ID)
	_, retreating := pc.child.(*ResolveRetreat)
	require.True(t, retreating, "expected retreat, got %T", pc.child)
	assert.Len(t, pc.combat.DataOf(pc.Loser()).Army, 3)
}

func TestStannisDwDDiscardsSupportWhenUnsupported(t *testing.T) {
	tg := newTestGame(t)
	tg.clearBoard()
	tg.addUnit("ba-0", "storms-end", "baratheon", "knight")
	tg.addUnit("la-0", "kings-landing", "lannister", "footman")
	tg.addUnit("la-1", "the-reach", "lannister", "footman")
	tg.placeOrder("baratheon", "storms-end", 2)
	tg.placeOrder("lannister", "kings-landing", 6) // defense +1
	tg.placeOrder("lannister", "the-reach", 4)     // support +1
	tg.readyAll()
	tg.march("baratheon", "storms-end", "kings-landing", "ba-0")

	c := tg.combat()
	require.Equal(t, 1, c.SupportStrength(c.Defender()))

	tg.selectHouseCard("baratheon", "stannis-baratheon-dwd")
	tg.selectHouseCard("lannister", "cersei-lannister")

	// The unsupported owner strips every support order next to the
	// embattled region before strengths are computed, so the defender
	// fights at 1 + 1 + 4 = 6 instead of 7.
	assert.Nil(t, tg.action().Order(tg.game().World.Region("the-reach")))

	result := tg.combatResult()
	assert.Equal(t, "baratheon", result.Winner)
	assert.Equal(t, 0, result.Stats[1].Support)

	var removed bool
	for _, entry := range tg.e.Ingame.gameLog {
		if entry.Type == gamelog.TypeSupportOrderRemoved {
			removed = true
		}
	}
	assert.True(t, removed)
}

func TestHouseCardsReshuffleWhenHandExhausted(t *testing.T) {
	tg := newTestGame(t)
	tg.stageCombat([]string{"knight", "knight"}, []string{"footman"}, 3, 8)

	// Lannister has burned everything except the hound.
	lannister := tg.game().House("lannister")
	for _, hc := range lannister.HouseCards {
		if hc.ID != "the-hound" {
			hc.State = board.HouseCardUsed
		}
	}

	tg.selectHouseCard("lannister", "the-hound")
	tg.selectHouseCard("stark", "roose-bolton")

	// Playing the last card returns the rest of the hand immediately,
	// while the just-played card stays used for a full cycle.
	assert.Equal(t, board.HouseCardUsed, lannister.HouseCard("the-hound").State)
	for _, hc := range lannister.HouseCards {
		if hc.ID != "the-hound" {
			assert.Equal(t, board.HouseCardAvailable, hc.State, "card %s", hc.ID)
		}
	}

	// Stark spent one card of seven: no reshuffle there.
	stark := tg.game().House("stark")
	assert.Equal(t, board.HouseCardUsed, stark.HouseCard("roose-bolton").State)
	assert.Len(t, stark.CardsInState(board.HouseCardAvailable), 6)

	var returned bool
	for _, entry := range tg.e.Ingame.gameLog {
		if entry.Type == gamelog.TypeHouseCardsReturned {
			returned = true
		}
	}
	assert.True(t, returned)
}
