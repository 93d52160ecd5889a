// Package message defines the closed, tagged message sets exchanged
// between server and clients. Messages carry entity ids only, never
// entity values; both sides resolve ids against their own tables.
package message

import (
	"encoding/json"

	"github.com/mmasztalerczuk/swords-and-ravens/internal/gamelog"
)

// Client message types.
const (
	ClientPlaceOrder        = "place-order"
	ClientReady             = "ready"
	ClientUnready           = "unready"
	ClientMarch             = "march"
	ClientSelectHouseCard   = "select-house-card"
	ClientUseValyrianBlade  = "use-valyrian-blade"
	ClientChooseCasualties  = "choose-casualties"
	ClientRetreat           = "retreat"
	ClientMuster            = "muster"
	ClientSkipAbility       = "skip-ability"
	ClientSelectAbilityUnit = "select-ability-unit"
)

// ClientMessage is an action submission. Fields are shared across types;
// only the ones relevant to Type are set. Illegal messages are dropped
// silently by the engine.
type ClientMessage struct {
	Type        string   `json:"type"`
	RegionID    string   `json:"regionId,omitempty"`
	ToRegionID  string   `json:"toRegionId,omitempty"`
	OrderID     *int     `json:"orderId,omitempty"`
	HouseCardID string   `json:"houseCardId,omitempty"`
	UnitIDs     []string `json:"unitIds,omitempty"`
	UnitTypeIDs []string `json:"unitTypeIds,omitempty"`
}

// Server message types.
const (
	ServerOrderPlaced            = "order-placed"
	ServerRemovePlacedOrder      = "remove-placed-order"
	ServerPlayerReady            = "player-ready"
	ServerPlayerUnready          = "player-unready"
	ServerGameStateChange        = "game-state-change"
	ServerGameLog                = "game-log"
	ServerActionPhaseChangeOrder = "action-phase-change-order"
	ServerCombatChangeArmy       = "combat-change-army"
	ServerRemoveUnits            = "remove-units"
	ServerAddUnits               = "add-units"
	ServerMoveUnits              = "move-units"
	ServerUnitsWounded           = "units-wounded"
	ServerChangeUnitType         = "change-unit-type"
	ServerChangeGarrison         = "change-garrison"
	ServerChangeStateHouseCard   = "change-state-house-card"
	ServerChangePowerToken       = "change-power-token"
	ServerHouseCardChosen        = "house-card-chosen"
	ServerChangeValyrianBladeUse = "change-valyrian-blade-use"
	ServerNewRound               = "new-round"
)

// UnitRef names a unit together with its type, for unit creation.
type UnitRef struct {
	ID     string `json:"id"`
	TypeID string `json:"typeId"`
}

// ServerMessage is a state-change broadcast. Each message names exactly
// the fields needed to replicate one mutation on a client replica.
type ServerMessage struct {
	Type        string          `json:"type"`
	RegionID    string          `json:"regionId,omitempty"`
	ToRegionID  string          `json:"toRegionId,omitempty"`
	OrderID     *int            `json:"orderId,omitempty"`
	UserID      string          `json:"userId,omitempty"`
	HouseID     string          `json:"houseId,omitempty"`
	UnitIDs     []string        `json:"unitIds,omitempty"`
	Units       []UnitRef       `json:"units,omitempty"`
	UnitTypeID  string          `json:"unitTypeId,omitempty"`
	CardIDs     []string        `json:"cardIds,omitempty"`
	CardState   int             `json:"cardState,omitempty"`
	PowerTokens int             `json:"powerTokens,omitempty"`
	Round       int             `json:"round,omitempty"`
	Garrison    int             `json:"garrison"`
	Wounded     bool            `json:"wounded,omitempty"`
	BladeUsed   bool            `json:"bladeUsed,omitempty"`
	State       json.RawMessage `json:"state,omitempty"`
	Log         *gamelog.Entry  `json:"log,omitempty"`
}
