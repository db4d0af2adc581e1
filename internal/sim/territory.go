package sim

import (
	"github.com/gravitas-games/hexfront/internal/gamemap"
	"github.com/gravitas-games/hexfront/internal/hexgrid"
)

// ApplyTerritory claims every plain, structure-free cell within the
// territory radius of each storage structure for the structure's owner.
// Returns the number of cells whose ownership changed.
func ApplyTerritory(w *gamemap.World) int {
	type site struct {
		at    hexgrid.Axial
		owner string
		color string
	}
	var sites []site
	w.RangeCells(func(c *gamemap.Cell) bool {
		if c.Structure == gamemap.StructureStorage {
			color := c.Color
			if p, ok := w.Player(c.Owner); ok {
				color = p.Color
			}
			sites = append(sites, site{at: c.Coord, owner: c.Owner, color: color})
		}
		return true
	})

	radius := w.Rules().TerritoryRadius
	changed := 0
	for _, s := range sites {
		for _, a := range hexgrid.Disk(s.at, radius) {
			if w.AssignTerritory(a, s.owner, s.color) {
				changed++
			}
		}
	}
	return changed
}
