package game

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/mmasztalerczuk/swords-and-ravens/internal/board"
	"github.com/mmasztalerczuk/swords-and-ravens/internal/message"
)

// sentMessage is one captured outbound message with its recipients.
type sentMessage struct {
	userIDs []string
	msg     *message.ServerMessage
}

// testGame wraps a running engine with captured outbound traffic and
// helpers to drive it through phases.
type testGame struct {
	t    *testing.T
	e    *EntireGame
	sent []sentMessage
}

var testAssignments = map[string]string{
	"u1": "lannister",
	"u2": "stark",
	"u3": "baratheon",
}

var userOfHouse = map[string]string{
	"lannister": "u1",
	"stark":     "u2",
	"baratheon": "u3",
}

func newTestGame(t *testing.T) *testGame {
	t.Helper()
	tg := &testGame{t: t}
	users := []*User{
		{ID: "u1", Name: "Alice"},
		{ID: "u2", Name: "Bob"},
		{ID: "u3", Name: "Carol"},
	}
	tg.e = NewEntireGame("test-game", users, zaptest.NewLogger(t), func(users []*User, msg *message.ServerMessage) {
		ids := make([]string, 0, len(users))
		for _, u := range users {
			ids = append(ids, u.ID)
		}
		tg.sent = append(tg.sent, sentMessage{userIDs: ids, msg: msg})
	})
	require.NoError(t, tg.e.Start(testAssignments))
	return tg
}

func (tg *testGame) game() *board.Game { return tg.e.Ingame.game }

func (tg *testGame) send(userID string, msg *message.ClientMessage) {
	tg.e.OnClientMessage(userID, msg)
}

func (tg *testGame) placeOrder(houseID, regionID string, orderID int) {
	tg.send(userOfHouse[houseID], &message.ClientMessage{
		Type:     message.ClientPlaceOrder,
		RegionID: regionID,
		OrderID:  &orderID,
	})
}

func (tg *testGame) ready(houseID string) {
	tg.send(userOfHouse[houseID], &message.ClientMessage{Type: message.ClientReady})
}

func (tg *testGame) readyAll() {
	for _, houseID := range []string{"lannister", "stark", "baratheon"} {
		tg.ready(houseID)
	}
}

func (tg *testGame) march(houseID, from, to string, unitIDs ...string) {
	tg.send(userOfHouse[houseID], &message.ClientMessage{
		Type:       message.ClientMarch,
		RegionID:   from,
		ToRegionID: to,
		UnitIDs:    unitIDs,
	})
}

func (tg *testGame) selectHouseCard(houseID, cardID string) {
	tg.send(userOfHouse[houseID], &message.ClientMessage{
		Type:        message.ClientSelectHouseCard,
		HouseCardID: cardID,
	})
}

// clearBoard removes every unit, so each test can stage its own armies.
func (tg *testGame) clearBoard() {
	for _, r := range tg.game().World.Regions {
		r.Units = make(map[string]*board.Unit)
	}
}

func (tg *testGame) addUnit(id, regionID, houseID, typeID string) *board.Unit {
	u := &board.Unit{
		ID:         id,
		Type:       board.UnitTypes[typeID],
		Allegiance: tg.game().House(houseID),
	}
	tg.game().World.Region(regionID).AddUnit(u)
	return u
}

// Accessors that walk the state tree, failing the test when the game is
// not in the expected phase.

func (tg *testGame) planning() *Planning {
	tg.t.Helper()
	p, ok := tg.e.Ingame.child.(*Planning)
	require.True(tg.t, ok, "expected planning phase, got %T", tg.e.Ingame.child)
	return p
}

func (tg *testGame) action() *Action {
	tg.t.Helper()
	a, ok := tg.e.Ingame.child.(*Action)
	require.True(tg.t, ok, "expected action phase, got %T", tg.e.Ingame.child)
	return a
}

func (tg *testGame) resolveMarch() *ResolveMarchOrder {
	tg.t.Helper()
	rm, ok := tg.action().child.(*ResolveMarchOrder)
	require.True(tg.t, ok, "expected march resolution, got %T", tg.action().child)
	return rm
}

func (tg *testGame) combat() *Combat {
	tg.t.Helper()
	c, ok := tg.resolveMarch().child.(*Combat)
	require.True(tg.t, ok, "expected combat, got %T", tg.resolveMarch().child)
	return c
}

func (tg *testGame) postCombat() *PostCombat {
	tg.t.Helper()
	pc, ok := tg.combat().child.(*PostCombat)
	require.True(tg.t, ok, "expected post-combat, got %T", tg.combat().child)
	return pc
}

func (tg *testGame) unitIDsIn(regionID string) []string {
	var ids []string
	for _, u := range tg.game().World.Region(regionID).SortedUnits() {
		ids = append(ids, u.ID)
	}
	return ids
}

// stageCombat builds the standard two-army stage: the given lannister
// units in lannisport, the given stark units in riverrun, a march order
// on lannisport and the given order on riverrun, everyone readied, and
// the march declared. It stops inside ChooseHouseCard.
func (tg *testGame) stageCombat(attackerTypes, defenderTypes []string, marchOrderID, defenderOrderID int) {
	tg.t.Helper()
	tg.clearBoard()
	attackerIDs := make([]string, 0, len(attackerTypes))
	for i, typeID := range attackerTypes {
		u := tg.addUnit(unitName("la", i), "lannisport", "lannister", typeID)
		attackerIDs = append(attackerIDs, u.ID)
	}
	for i, typeID := range defenderTypes {
		tg.addUnit(unitName("st", i), "riverrun", "stark", typeID)
	}
	tg.placeOrder("lannister", "lannisport", marchOrderID)
	tg.placeOrder("stark", "riverrun", defenderOrderID)
	tg.readyAll()
	tg.march("lannister", "lannisport", "riverrun", attackerIDs...)
}

func unitName(prefix string, i int) string {
	return prefix + "-" + string(rune('0'+i))
}
