package board

// HouseCardState is the lifecycle state of a house card. A card cycles
// AVAILABLE -> CHOSEN (during a combat) -> USED, and back to AVAILABLE
// once every card of the house is USED or DISCARDED.
type HouseCardState int

const (
	HouseCardAvailable HouseCardState = iota
	HouseCardChosen
	HouseCardUsed
	HouseCardDiscarded
)

func (s HouseCardState) String() string {
	switch s {
	case HouseCardAvailable:
		return "available"
	case HouseCardChosen:
		return "chosen"
	case HouseCardUsed:
		return "used"
	case HouseCardDiscarded:
		return "discarded"
	}
	return "unknown"
}

// HouseCard is a character card with printed strength and icons. The
// attached ability is referenced by id and resolved against the shared
// ability registry; cards never carry per-combat state.
type HouseCard struct {
	ID         string
	Name       string
	Strength   int
	SwordIcons int
	TowerIcons int
	State      HouseCardState
	AbilityID  string
}
