package game

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmasztalerczuk/swords-and-ravens/internal/board"
	"github.com/mmasztalerczuk/swords-and-ravens/internal/gamelog"
	"github.com/mmasztalerczuk/swords-and-ravens/internal/message"
)

// Ingame holds the running game: the entity tables, the player bindings,
// the game log, and the current phase as its child state. All entity
// mutations go through the mutators below so that the server copy and
// the client replicas move in lockstep.
type Ingame struct {
	entireGame *EntireGame
	game       *board.Game
	players    map[string]*Player // keyed by user id
	gameLog    []gamelog.Entry

	child GameState
}

func newIngame(e *EntireGame, assignments map[string]string) (*Ingame, error) {
	in := &Ingame{
		entireGame: e,
		game:       board.DefaultSetup(),
		players:    make(map[string]*Player),
	}
	for userID, houseID := range assignments {
		user := e.User(userID)
		if user == nil {
			return nil, fmt.Errorf("assignment references unknown user %q", userID)
		}
		if in.game.House(houseID) == nil {
			return nil, fmt.Errorf("assignment references unknown house %q", houseID)
		}
		in.players[userID] = &Player{User: user, House: houseID}
	}
	for _, h := range in.game.Houses {
		if in.controllerOfHouse(h) == nil {
			return nil, fmt.Errorf("house %q has no player", h.ID)
		}
	}
	return in, nil
}

// Game exposes the entity tables, mainly for tests and the hub.
func (in *Ingame) Game() *board.Game { return in.game }

// ChildGameState returns the current phase node.
func (in *Ingame) ChildGameState() GameState { return in.child }

// GameLog returns the append-only log.
func (in *Ingame) GameLog() []gamelog.Entry { return in.gameLog }

func (in *Ingame) firstStart() {
	planning := newPlanning(in)
	in.setChildGameState(planning)
	planning.firstStart()
}

func (in *Ingame) setChildGameState(state GameState) {
	in.child = state
	in.entireGame.markStateChanged()
	in.entireGame.logger.Info("game state changed",
		zap.String("game", in.entireGame.ID),
		zap.String("state", fmt.Sprintf("%T", state)))
}

func (in *Ingame) controllerOfHouse(h *board.House) *Player {
	for _, p := range in.players {
		if p.House == h.ID {
			return p
		}
	}
	return nil
}

func (in *Ingame) houseOfPlayer(p *Player) *board.House {
	return in.game.House(p.House)
}

// proceedToPlanningPhase starts a new game round: wounded units heal, the
// Valyrian Steel Blade becomes usable again, and orders are planned anew.
// A board without a single army can never produce another action, so the
// game ends instead of starting an empty round.
func (in *Ingame) proceedToPlanningPhase() {
	if !in.anyUnitsOnBoard() {
		in.log(gamelog.New(gamelog.TypeGameEnded, map[string]int{
			"round": in.game.Round,
		}))
		in.setChildGameState(newGameEnded(in))
		return
	}

	in.game.Round++
	in.game.ValyrianSteelBladeUsed = false
	in.entireGame.broadcast(&message.ServerMessage{
		Type:  message.ServerNewRound,
		Round: in.game.Round,
	})

	var wounded []*board.Unit
	for _, r := range in.game.World.SortedRegions() {
		for _, u := range r.SortedUnits() {
			if u.Wounded {
				wounded = append(wounded, u)
			}
		}
	}
	if len(wounded) > 0 {
		in.setUnitsWounded(wounded, false)
	}

	planning := newPlanning(in)
	in.setChildGameState(planning)
	planning.firstStart()
}

func (in *Ingame) anyUnitsOnBoard() bool {
	for _, r := range in.game.World.Regions {
		if len(r.Units) > 0 {
			return true
		}
	}
	return false
}

// log appends an entry and replicates it.
func (in *Ingame) log(entry gamelog.Entry) {
	in.gameLog = append(in.gameLog, entry)
	in.entireGame.logger.Debug("game log",
		zap.String("game", in.entireGame.ID),
		zap.String("entry", entry.Type))
	in.entireGame.broadcast(&message.ServerMessage{
		Type: message.ServerGameLog,
		Log:  &entry,
	})
}

// Entity mutators. Each one applies a mutation to the local tables and
// broadcasts the id-only message that lets replicas do the same.

func (in *Ingame) removeUnits(region *board.Region, units []*board.Unit) {
	ids := make([]string, 0, len(units))
	for _, u := range units {
		region.RemoveUnit(u)
		ids = append(ids, u.ID)
	}
	in.entireGame.broadcast(&message.ServerMessage{
		Type:     message.ServerRemoveUnits,
		RegionID: region.ID,
		UnitIDs:  ids,
	})
}

func (in *Ingame) addUnits(region *board.Region, house *board.House, types []*board.UnitType) []*board.Unit {
	units := make([]*board.Unit, 0, len(types))
	refs := make([]message.UnitRef, 0, len(types))
	for _, t := range types {
		u := &board.Unit{ID: uuid.New().String(), Type: t, Allegiance: house}
		region.AddUnit(u)
		units = append(units, u)
		refs = append(refs, message.UnitRef{ID: u.ID, TypeID: t.ID})
	}
	in.entireGame.broadcast(&message.ServerMessage{
		Type:     message.ServerAddUnits,
		RegionID: region.ID,
		HouseID:  house.ID,
		Units:    refs,
	})
	return units
}

func (in *Ingame) moveUnits(from, to *board.Region, units []*board.Unit) {
	ids := make([]string, 0, len(units))
	for _, u := range units {
		from.RemoveUnit(u)
		to.AddUnit(u)
		ids = append(ids, u.ID)
	}
	in.entireGame.broadcast(&message.ServerMessage{
		Type:       message.ServerMoveUnits,
		RegionID:   from.ID,
		ToRegionID: to.ID,
		UnitIDs:    ids,
	})
}

func (in *Ingame) setUnitsWounded(units []*board.Unit, wounded bool) {
	ids := make([]string, 0, len(units))
	for _, u := range units {
		u.Wounded = wounded
		ids = append(ids, u.ID)
	}
	in.entireGame.broadcast(&message.ServerMessage{
		Type:    message.ServerUnitsWounded,
		UnitIDs: ids,
		Wounded: wounded,
	})
}

func (in *Ingame) changeUnitType(unit *board.Unit, newType *board.UnitType) {
	unit.Type = newType
	in.entireGame.broadcast(&message.ServerMessage{
		Type:       message.ServerChangeUnitType,
		UnitIDs:    []string{unit.ID},
		UnitTypeID: newType.ID,
	})
}

func (in *Ingame) changeGarrison(region *board.Region, garrison int) {
	region.Garrison = garrison
	in.entireGame.broadcast(&message.ServerMessage{
		Type:     message.ServerChangeGarrison,
		RegionID: region.ID,
		Garrison: garrison,
	})
}

func (in *Ingame) changePowerTokens(house *board.House, delta int) int {
	house.PowerTokens += delta
	if house.PowerTokens < 0 {
		house.PowerTokens = 0
	}
	in.entireGame.broadcast(&message.ServerMessage{
		Type:        message.ServerChangePowerToken,
		HouseID:     house.ID,
		PowerTokens: house.PowerTokens,
	})
	return house.PowerTokens
}

func (in *Ingame) setHouseCardStates(house *board.House, cards []*board.HouseCard, state board.HouseCardState) {
	ids := make([]string, 0, len(cards))
	for _, c := range cards {
		c.State = state
		ids = append(ids, c.ID)
	}
	in.entireGame.broadcast(&message.ServerMessage{
		Type:      message.ServerChangeStateHouseCard,
		HouseID:   house.ID,
		CardIDs:   ids,
		CardState: int(state),
	})
}

// Resolvers used on the replication path. A missing entity means the
// replica has diverged from the server, which is unrecoverable locally.

func (in *Ingame) mustRegion(id string) *board.Region {
	r := in.game.World.Region(id)
	if r == nil {
		desyncf("unknown region %q", id)
	}
	return r
}

func (in *Ingame) mustHouse(id string) *board.House {
	h := in.game.House(id)
	if h == nil {
		desyncf("unknown house %q", id)
	}
	return h
}

func (in *Ingame) mustUnit(id string) *board.Unit {
	u := in.game.Unit(id)
	if u == nil {
		desyncf("unknown unit %q", id)
	}
	return u
}

func (in *Ingame) mustUnits(ids []string) []*board.Unit {
	units := make([]*board.Unit, 0, len(ids))
	for _, id := range ids {
		units = append(units, in.mustUnit(id))
	}
	return units
}

func (in *Ingame) mustUnitType(id string) *board.UnitType {
	t, ok := board.UnitTypes[id]
	if !ok {
		desyncf("unknown unit type %q", id)
	}
	return t
}

func (in *Ingame) mustOrder(id int) *board.Order {
	o := board.OrderByID(id)
	if o == nil {
		desyncf("unknown order %d", id)
	}
	return o
}

func (in *Ingame) mustHouseCard(id string) *board.HouseCard {
	c := in.game.HouseCard(id)
	if c == nil {
		desyncf("unknown house card %q", id)
	}
	return c
}

func (in *Ingame) OnPlayerMessage(p *Player, msg *message.ClientMessage) {
	in.child.OnPlayerMessage(p, msg)
}

// OnServerMessage applies one replicated mutation. Entity-table mutations
// are handled here; phase-specific messages are forwarded down the tree.
func (in *Ingame) OnServerMessage(msg *message.ServerMessage) {
	switch msg.Type {
	case message.ServerGameLog:
		if msg.Log != nil {
			in.gameLog = append(in.gameLog, *msg.Log)
		}
	case message.ServerGameStateChange:
		in.child = deserializeIngameChild(in, msg.State)
	case message.ServerRemoveUnits:
		region := in.mustRegion(msg.RegionID)
		for _, u := range in.mustUnits(msg.UnitIDs) {
			region.RemoveUnit(u)
		}
	case message.ServerAddUnits:
		region := in.mustRegion(msg.RegionID)
		house := in.mustHouse(msg.HouseID)
		for _, ref := range msg.Units {
			region.AddUnit(&board.Unit{
				ID:         ref.ID,
				Type:       in.mustUnitType(ref.TypeID),
				Allegiance: house,
			})
		}
	case message.ServerMoveUnits:
		from := in.mustRegion(msg.RegionID)
		to := in.mustRegion(msg.ToRegionID)
		for _, u := range in.mustUnits(msg.UnitIDs) {
			from.RemoveUnit(u)
			to.AddUnit(u)
		}
	case message.ServerUnitsWounded:
		for _, u := range in.mustUnits(msg.UnitIDs) {
			u.Wounded = msg.Wounded
		}
	case message.ServerChangeUnitType:
		if len(msg.UnitIDs) != 1 {
			desyncf("change-unit-type names %d units", len(msg.UnitIDs))
		}
		in.mustUnit(msg.UnitIDs[0]).Type = in.mustUnitType(msg.UnitTypeID)
	case message.ServerChangeGarrison:
		in.mustRegion(msg.RegionID).Garrison = msg.Garrison
	case message.ServerChangePowerToken:
		in.mustHouse(msg.HouseID).PowerTokens = msg.PowerTokens
	case message.ServerChangeStateHouseCard:
		in.mustHouse(msg.HouseID)
		for _, id := range msg.CardIDs {
			in.mustHouseCard(id).State = board.HouseCardState(msg.CardState)
		}
	case message.ServerNewRound:
		in.game.Round = msg.Round
		in.game.ValyrianSteelBladeUsed = false
	case message.ServerChangeValyrianBladeUse:
		in.game.ValyrianSteelBladeUsed = msg.BladeUsed
		fallthrough
	default:
		if in.child != nil {
			in.child.OnServerMessage(msg)
		}
	}
}

type serializedIngame struct {
	Type           string                `json:"type"`
	Game           *board.SerializedGame `json:"game"`
	Players        []serializedPlayer    `json:"players"`
	GameLog        []gamelog.Entry       `json:"gameLog"`
	ChildGameState json.RawMessage       `json:"childGameState"`
}

type serializedPlayer struct {
	UserID  string `json:"userId"`
	HouseID string `json:"houseId"`
}

func (in *Ingame) SerializeToClient(admin bool, viewer *Player) json.RawMessage {
	s := serializedIngame{
		Type:           "ingame",
		Game:           in.game.Serialize(),
		GameLog:        in.gameLog,
		ChildGameState: in.child.SerializeToClient(admin, viewer),
	}
	for _, u := range in.entireGame.Users {
		if p, ok := in.players[u.ID]; ok {
			s.Players = append(s.Players, serializedPlayer{UserID: u.ID, HouseID: p.House})
		}
	}
	return mustMarshal(s)
}

func deserializeIngame(e *EntireGame, data json.RawMessage) *Ingame {
	if t := stateType(data); t != "ingame" {
		desyncf("expected ingame state, got %q", t)
	}
	var raw serializedIngame
	if err := json.Unmarshal(data, &raw); err != nil {
		desyncf("decode ingame state: %v", err)
	}

	g, err := board.GameFromSnapshot(raw.Game)
	if err != nil {
		desyncf("%v", err)
	}

	in := &Ingame{
		entireGame: e,
		game:       g,
		players:    make(map[string]*Player),
		gameLog:    raw.GameLog,
	}
	for _, sp := range raw.Players {
		user := e.User(sp.UserID)
		if user == nil {
			desyncf("player references unknown user %q", sp.UserID)
		}
		in.mustHouse(sp.HouseID)
		in.players[sp.UserID] = &Player{User: user, House: sp.HouseID}
	}
	in.child = deserializeIngameChild(in, raw.ChildGameState)
	return in
}

func deserializeIngameChild(in *Ingame, data json.RawMessage) GameState {
	switch t := stateType(data); t {
	case "planning":
		return deserializePlanning(in, data)
	case "action":
		return deserializeAction(in, data)
	case "game-ended":
		return deserializeGameEnded(in, data)
	default:
		desyncf("unknown ingame child state %q", t)
		return nil
	}
}
