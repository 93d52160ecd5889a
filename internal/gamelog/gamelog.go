// Package gamelog defines the structured, append-only game log. One
// tagged entry is produced per meaningful rules event; entries are
// immutable once appended and are consumed by presentation layers, not
// by the rules engine itself.
package gamelog

import "time"

// Entry is one log record.
type Entry struct {
	Type string    `json:"type"`
	Time time.Time `json:"time"`
	Data any       `json:"data,omitempty"`
}

// New creates a timestamped entry.
func New(entryType string, data any) Entry {
	return Entry{Type: entryType, Time: time.Now().UTC(), Data: data}
}

// Entry types.
const (
	TypePlanningPhaseBegan  = "planning-phase-began"
	TypeActionPhaseBegan    = "action-phase-began"
	TypeOrdersPlaced        = "orders-placed"
	TypeMarchResolved       = "march-resolved"
	TypeGarrisonOverrun     = "garrison-overrun"
	TypeGarrisonHeld        = "garrison-held"
	TypeCombatStarted       = "combat-started"
	TypeCombatResult        = "combat-result"
	TypeImmediatelyKilled   = "immediately-killed-after-combat"
	TypeKilledAfterCombat   = "killed-after-combat"
	TypeHouseCardsReturned  = "house-cards-returned"
	TypeRetreatMade         = "retreat-made"
	TypeRetreatFailed       = "retreat-failed"
	TypePowerGained         = "power-gained"
	TypePlayerMustered      = "player-mustered"
	TypeUnitUpgraded        = "unit-upgraded"
	TypeUnitDestroyed       = "unit-destroyed"
	TypeSupportOrderRemoved = "support-order-removed"
	TypeGameEnded           = "game-ended"
)

// CombatStats is the audited per-house strength breakdown logged with
// every combat result.
type CombatStats struct {
	House             string   `json:"house"`
	Region            string   `json:"region"`
	Army              int      `json:"army"`
	ArmyUnits         []string `json:"armyUnits"`
	OrderBonus        int      `json:"orderBonus"`
	Support           int      `json:"support"`
	Garrison          int      `json:"garrison"`
	HouseCard         string   `json:"houseCard,omitempty"`
	HouseCardStrength int      `json:"houseCardStrength"`
	ValyrianBlade     int      `json:"valyrianBlade"`
	Total             int      `json:"total"`
}

// CombatResult is the payload of a combat-result entry.
type CombatResult struct {
	Winner string        `json:"winner"`
	Stats  []CombatStats `json:"stats"`
}

// Casualties is the payload of killed / immediately-killed entries.
type Casualties struct {
	House  string   `json:"house"`
	Region string   `json:"region"`
	Killed []string `json:"killed"`
}

// Retreat is the payload of retreat entries.
type Retreat struct {
	House string `json:"house"`
	From  string `json:"from"`
	To    string `json:"to,omitempty"`
}

// Mustered is the payload of a player-mustered entry.
type Mustered struct {
	House  string   `json:"house"`
	Region string   `json:"region"`
	Units  []string `json:"units"`
}

// PowerChange is the payload of a power-gained entry.
type PowerChange struct {
	House string `json:"house"`
	Delta int    `json:"delta"`
	Total int    `json:"total"`
}

// March is the payload of a march-resolved / garrison entry.
type March struct {
	House string `json:"house"`
	From  string `json:"from"`
	To    string `json:"to,omitempty"`
	Units []string `json:"units,omitempty"`
}

// CombatOpened is the payload of a combat-started entry.
type CombatOpened struct {
	Attacker string `json:"attacker"`
	Defender string `json:"defender"`
	Region   string `json:"region"`
}
