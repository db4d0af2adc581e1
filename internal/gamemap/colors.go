package gamemap

import "math/rand"

// Palette is the set of display colors handed to new players.
var Palette = []string{
	"#e94560", "#533483", "#4ecca3",
	"#ff9a00", "#ff4d00", "#00d2ff",
	"#f5a623", "#7ed321", "#bd10e0",
}

// RandomColor picks a palette color.
func RandomColor(rng *rand.Rand) string {
	if rng == nil {
		return Palette[rand.Intn(len(Palette))]
	}
	return Palette[rng.Intn(len(Palette))]
}
