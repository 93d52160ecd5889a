package board

import "sort"

// World is the board graph: regions plus their adjacency. Region
// geography is loaded once at setup and never mutated afterwards.
type World struct {
	Regions   map[string]*Region
	adjacency map[string]map[string]bool
}

// NewWorld creates an empty world.
func NewWorld() *World {
	return &World{
		Regions:   make(map[string]*Region),
		adjacency: make(map[string]map[string]bool),
	}
}

// AddRegion registers a region.
func (w *World) AddRegion(r *Region) {
	w.Regions[r.ID] = r
}

// Region returns the region with the given id, or nil.
func (w *World) Region(id string) *Region {
	return w.Regions[id]
}

// Connect records a two-way adjacency between two regions.
func (w *World) Connect(a, b string) {
	if w.adjacency[a] == nil {
		w.adjacency[a] = make(map[string]bool)
	}
	if w.adjacency[b] == nil {
		w.adjacency[b] = make(map[string]bool)
	}
	w.adjacency[a][b] = true
	w.adjacency[b][a] = true
}

// AreAdjacent reports whether two regions share a border.
func (w *World) AreAdjacent(a, b *Region) bool {
	return w.adjacency[a.ID][b.ID]
}

// Neighbours returns the regions adjacent to r, ordered by id.
func (w *World) Neighbours(r *Region) []*Region {
	ids := make([]string, 0, len(w.adjacency[r.ID]))
	for id := range w.adjacency[r.ID] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	regions := make([]*Region, 0, len(ids))
	for _, id := range ids {
		regions = append(regions, w.Regions[id])
	}
	return regions
}

// ControlledRegions returns the regions whose units belong to the given
// house, ordered by id.
func (w *World) ControlledRegions(h *House) []*Region {
	var regions []*Region
	for _, r := range w.Regions {
		if r.ControllingHouse() == h && h != nil {
			regions = append(regions, r)
		}
	}
	sort.Slice(regions, func(i, j int) bool { return regions[i].ID < regions[j].ID })
	return regions
}

// SortedRegions returns all regions ordered by id.
func (w *World) SortedRegions() []*Region {
	regions := make([]*Region, 0, len(w.Regions))
	for _, r := range w.Regions {
		regions = append(regions, r)
	}
	sort.Slice(regions, func(i, j int) bool { return regions[i].ID < regions[j].ID })
	return regions
}

// adjacencyPairs returns each adjacency once, ordered, for serialization.
func (w *World) adjacencyPairs() [][2]string {
	var pairs [][2]string
	for a, m := range w.adjacency {
		for b := range m {
			if a < b {
				pairs = append(pairs, [2]string{a, b})
			}
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i][0] != pairs[j][0] {
			return pairs[i][0] < pairs[j][0]
		}
		return pairs[i][1] < pairs[j][1]
	})
	return pairs
}
