package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmasztalerczuk/swords-and-ravens/internal/board"
	"github.com/mmasztalerczuk/swords-and-ravens/internal/gamelog"
	"github.com/mmasztalerczuk/swords-and-ravens/internal/message"
)

// combatResult digs the combat-result entry out of the game log, for
// flows that resolve past post-combat without pausing.
func (tg *testGame) combatResult() *gamelog.CombatResult {
	tg.t.Helper()
	for i := len(tg.e.Ingame.gameLog) - 1; i >= 0; i-- {
		if tg.e.Ingame.gameLog[i].Type == gamelog.TypeCombatResult {
			r := tg.e.Ingame.gameLog[i].Data.(gamelog.CombatResult)
			return &r
		}
	}
	tg.t.Fatal("no combat result logged")
	return nil
}

func TestCombatAttackerWinsAndOccupies(t *testing.T) {
	tg := newTestGame(t)
	tg.clearBoard()
	for i, typeID := range []string{"knight", "footman", "footman"} {
		tg.addUnit(unitName("la", i), "lannisport", "lannister", typeID)
	}
	for i, typeID := range []string{"footman", "knight"} {
		tg.addUnit(unitName("st", i), "riverrun", "stark", typeID)
	}
	// A second stark march keeps the action phase open after the combat,
	// so the retreated units' wounds stay observable.
	tg.addUnit("wf-0", "winterfell", "stark", "footman")

	tg.placeOrder("lannister", "lannisport", 2) // march +0
	tg.placeOrder("stark", "riverrun", 8)       // consolidate power
	tg.placeOrder("stark", "winterfell", 2)
	tg.readyAll()

	tg.march("lannister", "lannisport", "riverrun", "la-0", "la-1", "la-2")

	c := tg.combat()
	tg.selectHouseCard("lannister", "the-hound")
	tg.selectHouseCard("stark", "roose-bolton")

	// 4 + 8 = 12 beats 3 + 7 = 10.
	require.Equal(t, 12, c.TotalCombatStrength(c.Attacker()))
	require.Equal(t, 10, c.TotalCombatStrength(c.Defender()))
	pc := tg.postCombat()
	assert.Equal(t, "lannister", pc.Winner().ID)

	// No sword icons: the whole defender army survives to retreat.
	rr, ok := pc.child.(*ResolveRetreat)
	require.True(t, ok, "expected retreat, got %T", pc.child)
	targetIDs := make([]string, 0)
	for _, r := range rr.RetreatTargets() {
		targetIDs = append(targetIDs, r.ID)
	}
	assert.Equal(t, []string{"blackwater", "the-twins"}, targetIDs)

	tg.send("u2", &message.ClientMessage{Type: message.ClientRetreat, RegionID: "the-twins"})

	// Attacker moved in, defender retreated wounded.
	assert.Equal(t, []string{"la-0", "la-1", "la-2"}, tg.unitIDsIn("riverrun"))
	assert.Empty(t, tg.unitIDsIn("lannisport"))
	assert.Equal(t, []string{"st-0", "st-1"}, tg.unitIDsIn("the-twins"))
	for _, u := range tg.game().World.Region("the-twins").SortedUnits() {
		assert.True(t, u.Wounded)
	}

	// Both combat regions lost their order tokens.
	a := tg.action()
	assert.Nil(t, a.Order(tg.game().World.Region("lannisport")))
	assert.Nil(t, a.Order(tg.game().World.Region("riverrun")))

	// Forfeiting the remaining march ends the round; wounds heal at the
	// next planning phase.
	tg.march("stark", "winterfell", "")
	tg.planning()
	assert.Equal(t, 2, tg.game().Round)
	for _, u := range tg.game().World.Region("the-twins").SortedUnits() {
		assert.False(t, u.Wounded)
	}
}

func TestCombatTieGoesToFiefdomsHolderDefending(t *testing.T) {
	tg := newTestGame(t)
	tg.clearBoard()
	tg.addUnit("la-0", "lannisport", "lannister", "knight")
	tg.addUnit("la-1", "lannisport", "lannister", "knight")
	tg.addUnit("st-0", "riverrun", "stark", "knight")
	tg.addUnit("st-1", "riverrun", "stark", "knight")
	tg.addUnit("wf-0", "winterfell", "stark", "footman")

	tg.placeOrder("lannister", "lannisport", 2) // march +0
	tg.placeOrder("stark", "riverrun", 6)       // defense +1
	tg.placeOrder("stark", "winterfell", 2)
	tg.readyAll()
	tg.march("lannister", "lannisport", "riverrun", "la-0", "la-1")

	tg.selectHouseCard("lannister", "the-hound")
	tg.selectHouseCard("stark", "roose-bolton")

	// 4 + 0 + 8 = 12 vs 4 + 1 + 7 = 12; stark is ahead on the fiefdoms
	// track and wins the tie on defense. The defeated attacker never
	// moves and its army stays home, wounded.
	result := tg.combatResult()
	assert.Equal(t, "stark", result.Winner)
	assert.Equal(t, []string{"la-0", "la-1"}, tg.unitIDsIn("lannisport"))
	for _, u := range tg.game().World.Region("lannisport").SortedUnits() {
		assert.True(t, u.Wounded)
	}
	assert.Equal(t, []string{"st-0", "st-1"}, tg.unitIDsIn("riverrun"))

	// The repelled march order is spent, but the winning defender keeps
	// its defense order on the board.
	a := tg.action()
	assert.Nil(t, a.Order(tg.game().World.Region("lannisport")))
	assert.NotNil(t, a.Order(tg.game().World.Region("riverrun")))
}

func TestCombatTieGoesToFiefdomsHolderAttacking(t *testing.T) {
	tg := newTestGame(t)
	tg.clearBoard()
	tg.addUnit("st-0", "blackwater", "stark", "knight")
	tg.addUnit("st-1", "blackwater", "stark", "knight")
	tg.addUnit("la-0", "kings-landing", "lannister", "knight")
	tg.addUnit("la-1", "kings-landing", "lannister", "knight")

	tg.placeOrder("stark", "blackwater", 3)        // march +1
	tg.placeOrder("lannister", "kings-landing", 8) // consolidate power
	tg.readyAll()
	tg.march("stark", "blackwater", "kings-landing", "st-0", "st-1")

	tg.selectHouseCard("stark", "roose-bolton")
	tg.selectHouseCard("lannister", "the-hound")

	// 4 + 1 + 7 = 12 vs 4 + 8 = 12; the fiefdoms holder wins as attacker.
	pc := tg.postCombat()
	assert.Equal(t, "stark", pc.Winner().ID)
	_, retreating := pc.child.(*ResolveRetreat)
	assert.True(t, retreating)
}

func TestCombatCasualtiesChoice(t *testing.T) {
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

	tg.selectHouseCard("stark", "eddard-stark") // 10, two swords
	tg.selectHouseCard("lannister", "the-hound")

	pc := tg.postCombat()
	require.Equal(t, "stark", pc.Winner().ID)

	// Two swords against three survivors: the loser picks which two die.
	cc, ok := pc.child.(*ChooseCasualties)
	require.True(t, ok, "expected casualty choice, got %T", pc.child)
	assert.Equal(t, 2, cc.Count())

	// Wrong house and wrong counts are ignored.
	tg.send("u2", &message.ClientMessage{Type: message.ClientChooseCasualties, UnitIDs: []string{"la-0", "la-1"}})
	tg.send("u1", &message.ClientMessage{Type: message.ClientChooseCasualties, UnitIDs: []string{"la-0"}})
	_, stillChoosing := tg.postCombat().child.(*ChooseCasualties)
	require.True(t, stillChoosing)

	tg.send("u1", &message.ClientMessage{Type: message.ClientChooseCasualties, UnitIDs: []string{"la-0", "la-2"}})

	// The survivor retreats.
	tg.send("u1", &message.ClientMessage{Type: message.ClientRetreat, RegionID: "the-reach"})

	assert.Equal(t, []string{"st-0", "st-1"}, tg.unitIDsIn("kings-landing"))
	assert.Equal(t, []string{"la-1"}, tg.unitIDsIn("the-reach"))
}

func TestCombatFullArmyKilledWithoutChoice(t *testing.T) {
	tg := newTestGame(t)
	tg.clearBoard()
	tg.addUnit("st-0", "blackwater", "stark", "knight")
	tg.addUnit("st-1", "blackwater", "stark", "knight")
	tg.addUnit("la-0", "kings-landing", "lannister", "footman")
	tg.addUnit("la-1", "kings-landing", "lannister", "footman")
	tg.placeOrder("stark", "blackwater", 3)
	tg.placeOrder("lannister", "kings-landing", 8)
	tg.readyAll()
	tg.march("stark", "blackwater", "kings-landing", "st-0", "st-1")

	tg.selectHouseCard("stark", "eddard-stark")
	tg.selectHouseCard("lannister", "the-hound")

	// Two swords, two survivors: the army dies outright with no choice
	// node and no retreat, and the attacker moves in.
	assert.Equal(t, []string{"st-0", "st-1"}, tg.unitIDsIn("kings-landing"))
	assert.Empty(t, tg.unitIDsIn("blackwater"))

	var killed []string
	for _, entry := range tg.e.Ingame.gameLog {
		if entry.Type == gamelog.TypeKilledAfterCombat {
			killed = entry.Data.(gamelog.Casualties).Killed
		}
	}
	assert.ElementsMatch(t, []string{"la-0", "la-1"}, killed)
}

func TestCombatTowerIconsReduceCasualties(t *testing.T) {
	tg := newTestGame(t)
	tg.clearBoard()
	tg.addUnit("st-0", "blackwater", "stark", "knight")
	tg.addUnit("st-1", "blackwater", "stark", "knight")
	for i := 0; i < 3; i++ {
		tg.addUnit(unitName("la", i), "kings-landing", "lannister", "footman")
	}
	tg.placeOrder("stark", "blackwater", 2)
	tg.placeOrder("lannister", "kings-landing", 8)
	tg.readyAll()
	tg.march("stark", "blackwater", "kings-landing", "st-0", "st-1")

	tg.selectHouseCard("stark", "greatjon-umber")       // 8, one sword
	tg.selectHouseCard("lannister", "cersei-lannister") // 4, one tower

	pc := tg.postCombat()
	require.Equal(t, "stark", pc.Winner().ID)

	// One sword minus one tower: no casualties, straight to retreat.
	_, retreating := pc.child.(*ResolveRetreat)
	require.True(t, retreating, "expected retreat, got %T", pc.child)
	assert.Len(t, pc.combat.DataOf(pc.Loser()).Army, 3)
}

func TestCombatUnretreatableUnitsDieImmediately(t *testing.T) {
	tg := newTestGame(t)
	// A siege engine cannot retreat and dies before sword icon math.
	tg.stageCombat([]string{"knight", "knight", "knight"}, []string{"siege-engine", "footman"}, 3, 8)
	tg.selectHouseCard("lannister", "the-hound")
	tg.selectHouseCard("stark", "roose-bolton")

	// 6 + 1 + 8 = 15 beats 5 + 7 = 12.
	pc := tg.postCombat()
	require.Equal(t, "lannister", pc.Winner().ID)

	var entry *gamelog.Entry
	for i := range tg.e.Ingame.gameLog {
		if tg.e.Ingame.gameLog[i].Type == gamelog.TypeImmediatelyKilled {
			entry = &tg.e.Ingame.gameLog[i]
		}
	}
	require.NotNil(t, entry)
	assert.Equal(t, []string{"st-0"}, entry.Data.(gamelog.Casualties).Killed)

	// The footman survives (no swords on the winner) and must retreat.
	_, retreating := tg.postCombat().child.(*ResolveRetreat)
	require.True(t, retreating)
	tg.send("u2", &message.ClientMessage{Type: message.ClientRetreat, RegionID: "the-twins"})
	assert.Equal(t, []string{"st-1"}, tg.unitIDsIn("the-twins"))
}

func TestCombatResultLogCarriesFullBreakdown(t *testing.T) {
	tg := newTestGame(t)
	tg.stageCombat([]string{"knight", "footman"}, []string{"knight"}, 3, 6)
	tg.selectHouseCard("lannister", "the-hound")
	tg.selectHouseCard("stark", "roose-bolton")

	result := tg.combatResult()
	require.Len(t, result.Stats, 2)

	attacker := result.Stats[0]
	assert.Equal(t, "lannister", attacker.House)
	assert.Equal(t, 3, attacker.Army)
	assert.Equal(t, 1, attacker.OrderBonus)
	assert.Equal(t, 8, attacker.HouseCardStrength)
	assert.Equal(t, 12, attacker.Total)

	defender := result.Stats[1]
	assert.Equal(t, "stark", defender.House)
	assert.Equal(t, 2, defender.Army)
	assert.Equal(t, 1, defender.OrderBonus)
	assert.Equal(t, 7, defender.HouseCardStrength)
	assert.Equal(t, 10, defender.Total)
	assert.Equal(t, "lannister", result.Winner)
}

func TestCombatAttackerTotalClampedAtZero(t *testing.T) {
	tg := newTestGame(t)
	tg.stageCombat([]string{"footman"}, []string{"footman"}, 1, 8) // march -1

	c := tg.combat()
	// Without cards: 1 - 1 = 0 vs 1.
	require.Equal(t, 0, c.TotalCombatStrength(c.Attacker()))
	require.Equal(t, 1, c.TotalCombatStrength(c.Defender()))

	tg.selectHouseCard("lannister", "the-blackfish") // strength 0
	tg.selectHouseCard("stark", "roose-bolton")

	result := tg.combatResult()
	assert.Equal(t, "stark", result.Winner)
	assert.Equal(t, 0, result.Stats[0].Total)
}

func TestCombatStatsClampNegativeTotals(t *testing.T) {
	tg := newTestGame(t)
	tg.stageCombat([]string{"footman"}, []string{"footman"}, 1, 8)
	pc := newPostCombat(tg.combat())

	stats := pc.statsOf(tg.game().House("stark"), -2)
	assert.Equal(t, 0, stats.Total)
}

func TestNeutralGarrisonHoldsAndFalls(t *testing.T) {
	tg := newTestGame(t)
	tg.clearBoard()
	// Harrenhal holds a neutral garrison of 4.
	tg.addUnit("la-0", "blackwater", "lannister", "knight")
	tg.addUnit("la-1", "blackwater", "lannister", "knight")
	tg.placeOrder("lannister", "blackwater", 2) // 4 vs 4: not enough
	tg.readyAll()
	tg.march("lannister", "blackwater", "harrenhal", "la-0", "la-1")

	assert.Equal(t, []string{"la-0", "la-1"}, tg.unitIDsIn("blackwater"))
	assert.Equal(t, 4, tg.game().World.Region("harrenhal").Garrison)

	// Next round, march +1 makes it 5 > 4 and the garrison falls.
	tg.placeOrder("lannister", "blackwater", 3)
	tg.readyAll()
	tg.march("lannister", "blackwater", "harrenhal", "la-0", "la-1")

	assert.Equal(t, []string{"la-0", "la-1"}, tg.unitIDsIn("harrenhal"))
	assert.Equal(t, 0, tg.game().World.Region("harrenhal").Garrison)
}

func TestDefenderGarrisonCountsInCombat(t *testing.T) {
	tg := newTestGame(t)
	tg.clearBoard()
	// Lannisport keeps its garrison of 2 while lannister holds it.
	tg.addUnit("st-0", "riverrun", "stark", "knight")
	tg.addUnit("st-1", "riverrun", "stark", "knight")
	tg.addUnit("la-0", "lannisport", "lannister", "footman")
	tg.placeOrder("stark", "riverrun", 2)
	tg.placeOrder("lannister", "lannisport", 8)
	tg.readyAll()
	tg.march("stark", "riverrun", "lannisport", "st-0", "st-1")

	c := tg.combat()
	assert.Equal(t, 2, c.GarrisonStrength(c.Defender()))
	assert.Equal(t, 0, c.GarrisonStrength(c.Attacker()))

	tg.selectHouseCard("stark", "roose-bolton")
	tg.selectHouseCard("lannister", "the-hound")

	// 4 + 7 = 11 vs 1 + 2 + 8 = 11: tie, stark ahead on fiefdoms.
	pc := tg.postCombat()
	require.Equal(t, "stark", pc.Winner().ID)

	// A defeated defender's garrison is destroyed.
	assert.Equal(t, 0, tg.game().World.Region("lannisport").Garrison)
}

func TestValyrianBladeAddsOneAndExhausts(t *testing.T) {
	tg := newTestGame(t)
	tg.stageCombat([]string{"knight"}, []string{"knight"}, 2, 8)

	c := tg.combat()
	// Stark holds the blade (head of the fiefdoms track) and defends.
	tg.send("u2", &message.ClientMessage{Type: message.ClientUseValyrianBlade})
	assert.True(t, c.DataOf(c.Defender()).UsedValyrianBlade)
	assert.True(t, tg.game().ValyrianSteelBladeUsed)
	assert.Equal(t, 3, c.TotalCombatStrength(c.Defender()))

	// Non-holders are refused, and the blade is spent for the round.
	tg.send("u1", &message.ClientMessage{Type: message.ClientUseValyrianBlade})
	assert.False(t, c.DataOf(c.Attacker()).UsedValyrianBlade)
}

func TestMarchRejectsWoundedAndForeignUnits(t *testing.T) {
	tg := newTestGame(t)
	tg.clearBoard()
	tg.addUnit("la-0", "lannisport", "lannister", "knight")
	wounded := tg.addUnit("la-1", "lannisport", "lannister", "footman")
	wounded.Wounded = true
	tg.placeOrder("lannister", "lannisport", 2)
	tg.readyAll()

	// Wounded units cannot be committed.
	tg.march("lannister", "lannisport", "riverrun", "la-0", "la-1")
	assert.Equal(t, []string{"la-0", "la-1"}, tg.unitIDsIn("lannisport"))

	// A partial march with the healthy knight works.
	tg.march("lannister", "lannisport", "riverrun", "la-0")
	assert.Equal(t, []string{"la-0"}, tg.unitIDsIn("riverrun"))
	assert.Equal(t, []string{"la-1"}, tg.unitIDsIn("lannisport"))
}

func TestConsolidatePowerAndMustering(t *testing.T) {
	tg := newTestGame(t)
	tg.clearBoard()
	tg.addUnit("la-0", "the-reach", "lannister", "footman") // plain region
	tg.addUnit("st-0", "winterfell", "stark", "footman")    // castle level 2
	tg.placeOrder("lannister", "the-reach", 8)
	tg.placeOrder("stark", "winterfell", 8)
	tg.readyAll()

	// No marches: straight into consolidate power. Lannister's plain
	// region yields a token; stark's castle musters instead.
	assert.Equal(t, 6, tg.game().House("lannister").PowerTokens)

	m, ok := tg.action().child.(*Mustering)
	require.True(t, ok, "expected mustering, got %T", tg.action().child)
	assert.Equal(t, 2, m.points)

	// Overspending is refused, then a knight for 2 points is fine.
	tg.send("u2", &message.ClientMessage{Type: message.ClientMuster, RegionID: "winterfell", UnitTypeIDs: []string{"knight", "footman"}})
	_, stillMustering := tg.action().child.(*Mustering)
	require.True(t, stillMustering)
	tg.send("u2", &message.ClientMessage{Type: message.ClientMuster, RegionID: "winterfell", UnitTypeIDs: []string{"knight"}})

	units := tg.game().World.Region("winterfell").SortedUnits()
	require.Len(t, units, 2)
	knights := 0
	for _, u := range units {
		if u.Type == board.Knight {
			knights++
		}
	}
	assert.Equal(t, 1, knights)
	assert.Equal(t, 2, tg.game().Round)
}
