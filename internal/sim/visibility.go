package sim

import (
	"slices"

	"github.com/gravitas-games/hexfront/internal/gamemap"
	"github.com/gravitas-games/hexfront/internal/hexgrid"
)

// UpdateVisibility recomputes visibleTo for every cell and unit from the
// vision of connected players. Entities are marked dirty only when their
// observer list changed. Returns the number of changed entities.
func UpdateVisibility(w *gamemap.World) int {
	rules := w.Rules()
	seen := make(map[hexgrid.Axial][]string)

	structures := make(map[string][]hexgrid.Axial)
	w.RangeCells(func(c *gamemap.Cell) bool {
		if c.Structure == gamemap.StructureStorage {
			structures[c.Owner] = append(structures[c.Owner], c.Coord)
		}
		return true
	})

	// Players are visited in id order so every list comes out sorted.
	for _, p := range w.ConnectedPlayers() {
		visible := make(map[hexgrid.Axial]struct{})
		for _, u := range w.UnitsOwnedBy(p.ID) {
			for _, a := range hexgrid.Disk(w.UnitHex(u), rules.UnitVision) {
				visible[a] = struct{}{}
			}
		}
		for _, at := range structures[p.ID] {
			for _, a := range hexgrid.Disk(at, rules.StructureVision) {
				visible[a] = struct{}{}
			}
		}
		for a := range visible {
			seen[a] = append(seen[a], p.ID)
		}
	}

	changed := 0
	w.RangeCells(func(c *gamemap.Cell) bool {
		if w.SetCellVisibility(c, slices.Clip(seen[c.Coord])) {
			changed++
		}
		return true
	})
	w.RangeUnits(func(u *gamemap.Unit) bool {
		if w.SetUnitVisibility(u, slices.Clip(seen[w.UnitHex(u)])) {
			changed++
		}
		return true
	})
	return changed
}

// CanSee reports whether player is in the observer list.
func CanSee(visibleTo []string, player string) bool {
	_, found := slices.BinarySearch(visibleTo, player)
	return found
}
