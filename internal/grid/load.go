package grid

import (
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/png"
	"io"
	"os"

	"github.com/martinezcajm/ArtificialIntelligenceProject/internal/geom"
)

// Decode rasterizes a collision image into a map. Fully white pixels are
// free; anything else is occupied. The ratio maps the image onto a world of
// worldWidth x worldHeight units.
func Decode(r io.Reader, worldWidth, worldHeight float64) (*Map, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode collision image: %w", err)
	}
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= 0 || h <= 0 {
		return nil, ErrInvalidDimensions
	}
	m, err := New(w, h, geom.V(worldWidth/float64(w), worldHeight/float64(h)))
	if err != nil {
		return nil, err
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			gray := color.GrayModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.Gray)
			m.occupied[m.index(x, y)] = gray.Y != 0xff
		}
	}
	return m, nil
}

// Load reads and decodes a collision image from disk.
func Load(path string, worldWidth, worldHeight float64) (*Map, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open collision image: %w", err)
	}
	defer f.Close()
	return Decode(f, worldWidth, worldHeight)
}
