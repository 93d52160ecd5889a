package board

import "sort"

// Region is a board location. A non-empty region's units belong to
// exactly one house outside of a combat snapshot.
type Region struct {
	ID          string
	Name        string
	CastleLevel int
	Garrison    int
	Units       map[string]*Unit
}

// NewRegion creates an empty region.
func NewRegion(id, name string, castleLevel, garrison int) *Region {
	return &Region{
		ID:          id,
		Name:        name,
		CastleLevel: castleLevel,
		Garrison:    garrison,
		Units:       make(map[string]*Unit),
	}
}

// ControllingHouse returns the house owning the units in this region, or
// nil if the region is empty.
func (r *Region) ControllingHouse() *House {
	for _, u := range r.Units {
		return u.Allegiance
	}
	return nil
}

// AddUnit places a unit in this region and updates its back-reference.
func (r *Region) AddUnit(u *Unit) {
	r.Units[u.ID] = u
	u.Region = r
}

// RemoveUnit removes a unit from this region.
func (r *Region) RemoveUnit(u *Unit) {
	delete(r.Units, u.ID)
}

// SortedUnits returns the region's units ordered by id, for deterministic
// serialization and iteration.
func (r *Region) SortedUnits() []*Unit {
	units := make([]*Unit, 0, len(r.Units))
	for _, u := range r.Units {
		units = append(units, u)
	}
	sort.Slice(units, func(i, j int) bool { return units[i].ID < units[j].ID })
	return units
}
