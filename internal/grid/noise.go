package grid

import (
	"github.com/ojrac/opensimplex-go"

	"github.com/martinezcajm/ArtificialIntelligenceProject/internal/geom"
)

// NoiseScale is the sampling step applied to cell coordinates.
const NoiseScale = 0.15

// GenerateNoise builds a procedural map. Cells whose normalized simplex noise
// lies above threshold are occupied. The same seed always yields the same map.
func GenerateNoise(width, height int, ratio geom.Vec2, seed int64, threshold float64) (*Map, error) {
	m, err := New(width, height, ratio)
	if err != nil {
		return nil, err
	}
	noise := opensimplex.NewNormalized(seed)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := noise.Eval2(float64(x)*NoiseScale, float64(y)*NoiseScale)
			m.occupied[m.index(x, y)] = v > threshold
		}
	}
	return m, nil
}
