package game

import (
	"encoding/json"
	"sort"

	"github.com/mmasztalerczuk/swords-and-ravens/internal/board"
	"github.com/mmasztalerczuk/swords-and-ravens/internal/gamelog"
	"github.com/mmasztalerczuk/swords-and-ravens/internal/message"
)

// ResolveRetreat moves the loser's surviving army out of the embattled
// region. A defeated attacker stays where it marched from; a defeated
// defender must find an adjacent friendly or empty region, and dies if
// none exists. Retreating units are wounded until the next planning
// phase.
type ResolveRetreat struct {
	postCombat *PostCombat
}

func newResolveRetreat(pc *PostCombat) *ResolveRetreat {
	return &ResolveRetreat{postCombat: pc}
}

func (rr *ResolveRetreat) ingame() *Ingame { return rr.postCombat.ingame() }

func (rr *ResolveRetreat) firstStart() {
	pc := rr.postCombat
	c := pc.combat
	loserData := c.DataOf(pc.loser)

	if pc.loser == c.attacker {
		// The attacking army never left home; it just licks its wounds.
		rr.ingame().setUnitsWounded(loserData.Army, true)
		rr.ingame().log(gamelog.New(gamelog.TypeRetreatMade, gamelog.Retreat{
			House: pc.loser.ID,
			From:  c.attackingRegion.ID,
			To:    c.attackingRegion.ID,
		}))
		pc.onResolveRetreatFinish()
		return
	}

	if len(rr.RetreatTargets()) == 0 {
		rr.ingame().log(gamelog.New(gamelog.TypeRetreatFailed, gamelog.Retreat{
			House: pc.loser.ID,
			From:  c.defendingRegion.ID,
		}))
		rr.ingame().removeUnits(c.defendingRegion, loserData.Army)
		c.setArmy(loserData, nil)
		pc.onResolveRetreatFinish()
	}
}

// RetreatTargets lists the regions the defeated defender may retreat to:
// neighbours of the embattled region that are empty or friendly, minus
// the region the attacker came from and any neutral garrison.
func (rr *ResolveRetreat) RetreatTargets() []*board.Region {
	pc := rr.postCombat
	c := pc.combat

	var targets []*board.Region
	for _, r := range c.game().World.Neighbours(c.defendingRegion) {
		if r == c.attackingRegion {
			continue
		}
		controller := r.ControllingHouse()
		if controller != nil && controller != pc.loser {
			continue
		}
		if controller == nil && r.Garrison > 0 {
			continue
		}
		targets = append(targets, r)
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i].ID < targets[j].ID })
	return targets
}

func (rr *ResolveRetreat) OnPlayerMessage(p *Player, msg *message.ClientMessage) {
	pc := rr.postCombat
	if msg.Type != message.ClientRetreat || p.House != pc.loser.ID {
		return
	}
	var target *board.Region
	for _, r := range rr.RetreatTargets() {
		if r.ID == msg.RegionID {
			target = r
			break
		}
	}
	if target == nil {
		return
	}

	c := pc.combat
	army := c.DataOf(pc.loser).Army
	rr.ingame().moveUnits(c.defendingRegion, target, army)
	rr.ingame().setUnitsWounded(army, true)
	rr.ingame().log(gamelog.New(gamelog.TypeRetreatMade, gamelog.Retreat{
		House: pc.loser.ID,
		From:  c.defendingRegion.ID,
		To:    target.ID,
	}))
	pc.onResolveRetreatFinish()
}

func (rr *ResolveRetreat) OnServerMessage(msg *message.ServerMessage) {}

type serializedResolveRetreat struct {
	Type            string   `json:"type"`
	HouseID         string   `json:"houseId"`
	TargetRegionIDs []string `json:"targetRegionIds"`
}

func (rr *ResolveRetreat) SerializeToClient(admin bool, viewer *Player) json.RawMessage {
	s := serializedResolveRetreat{
		Type:    "resolve-retreat",
		HouseID: rr.postCombat.loser.ID,
	}
	for _, r := range rr.RetreatTargets() {
		s.TargetRegionIDs = append(s.TargetRegionIDs, r.ID)
	}
	return mustMarshal(s)
}

func deserializeResolveRetreat(pc *PostCombat, data json.RawMessage) *ResolveRetreat {
	var raw serializedResolveRetreat
	if err := json.Unmarshal(data, &raw); err != nil {
		desyncf("decode resolve-retreat state: %v", err)
	}
	pc.ingame().mustHouse(raw.HouseID)
	return newResolveRetreat(pc)
}
