package board

// UnitType describes one of the fixed unit kinds. The table below is
// process-wide, read-only content initialized at package load and shared
// by every game.
type UnitType struct {
	ID             string
	Name           string
	CombatStrength int
	CanRetreat     bool
	MusterCost     int
}

var (
	Footman = &UnitType{ID: "footman", Name: "Footman", CombatStrength: 1, CanRetreat: true, MusterCost: 1}
	Knight  = &UnitType{ID: "knight", Name: "Knight", CombatStrength: 2, CanRetreat: true, MusterCost: 2}
	Ship    = &UnitType{ID: "ship", Name: "Ship", CombatStrength: 1, CanRetreat: true, MusterCost: 1}
	Siege   = &UnitType{ID: "siege-engine", Name: "Siege Engine", CombatStrength: 4, CanRetreat: false, MusterCost: 2}
)

// UnitTypes maps unit type ids to their shared definitions.
var UnitTypes = map[string]*UnitType{
	Footman.ID: Footman,
	Knight.ID:  Knight,
	Ship.ID:    Ship,
	Siege.ID:   Siege,
}

// Unit is a single piece on the board. Units are created at setup or by
// mustering and destroyed by casualty resolution.
type Unit struct {
	ID         string
	Type       *UnitType
	Allegiance *House
	Region     *Region
	Wounded    bool
}
