package gamemap

import (
	"math"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/gravitas-games/hexfront/internal/hexgrid"
)

// GenConfig holds map generation parameters.
type GenConfig struct {
	Radius      int   // Hex radius around the origin
	Seed        int64 // Noise seed
	ForestLevel float64
	MountainLvl float64
	RuinsLevel  float64
}

// DefaultGenConfig returns the reference generation parameters.
func DefaultGenConfig() GenConfig {
	return GenConfig{
		Radius:      60,
		Seed:        42,
		ForestLevel: 0.58,
		MountainLvl: 0.74,
		RuinsLevel:  0.86,
	}
}

// Generate fills the world with neutral cells inside cfg.Radius. Terrain and
// resource amounts are deterministic for a given seed. Existing cells are
// left alone so stored state can be applied before or after.
func Generate(w *World, cfg GenConfig) int {
	elevNoise := opensimplex.NewNormalized(cfg.Seed)
	ruinNoise := opensimplex.NewNormalized(cfg.Seed + 1)
	richNoise := opensimplex.NewNormalized(cfg.Seed + 2)

	created := 0
	for _, coord := range hexgrid.Disk(hexgrid.Axial{}, cfg.Radius) {
		if _, exists := w.cells[coord]; exists {
			continue
		}
		// Hex axial → cartesian: x = q + r*0.5, y = r * sqrt(3)/2
		x := float64(coord.Q) + float64(coord.R)*0.5
		y := float64(coord.R) * math.Sqrt(3.0) / 2.0

		elev := octaveNoise(elevNoise, x, y, 3, 0.09, 0.5)
		ruin := ruinNoise.Eval2(x*0.3, y*0.3)
		rich := richNoise.Eval2(x*0.15, y*0.15)

		terrain := deriveTerrain(elev, ruin, cfg)
		w.insertCell(&Cell{
			Coord:          coord,
			Owner:          NeutralOwner,
			Terrain:        terrain,
			ResourceAmount: resourceAmount(terrain, rich),
		})
		created++
	}
	return created
}

func deriveTerrain(elev, ruin float64, cfg GenConfig) Terrain {
	switch {
	case elev >= cfg.MountainLvl:
		return TerrainMountain
	case elev >= cfg.ForestLevel:
		return TerrainForest
	case ruin >= cfg.RuinsLevel:
		return TerrainRuins
	default:
		return TerrainPlain
	}
}

// resourceAmount scales the per-terrain range by richness in [0,1).
func resourceAmount(t Terrain, rich float64) int {
	lo, hi := 0, 0
	switch t {
	case TerrainForest:
		lo, hi = 300, 800
	case TerrainMountain:
		lo, hi = 500, 1200
	case TerrainRuins:
		lo, hi = 100, 400
	default:
		return 0
	}
	return lo + int(rich*float64(hi-lo))
}

// octaveNoise sums several noise octaves and renormalizes into [0,1).
func octaveNoise(n opensimplex.Noise, x, y float64, octaves int, freq, persistence float64) float64 {
	total, amp, maxAmp := 0.0, 1.0, 0.0
	for i := 0; i < octaves; i++ {
		total += n.Eval2(x*freq, y*freq) * amp
		maxAmp += amp
		amp *= persistence
		freq *= 2
	}
	return total / maxAmp
}
