package sim

import (
	"math"

	"github.com/gravitas-games/hexfront/internal/gamemap"
	"github.com/gravitas-games/hexfront/internal/hexgrid"
	"github.com/gravitas-games/hexfront/internal/pathfind"
)

// MoveCost builds the terrain cost function used for every unit path owned
// by owner. Cells that were never materialized count as plain. A structure
// owned by anyone else blocks the cell.
func MoveCost(w *gamemap.World, owner string) pathfind.CostFunc {
	return func(a hexgrid.Axial) float64 {
		c, ok := w.Cell(a)
		if !ok {
			return gamemap.TerrainPlain.MoveCost()
		}
		if c.Structure != gamemap.StructureNone && c.Owner != owner {
			return math.Inf(1)
		}
		return c.Terrain.MoveCost()
	}
}
