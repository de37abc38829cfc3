// Package grid implements the occupancy grid consumed by the search engine
// together with helpers that convert between world and cell coordinates.
package grid

import (
	"errors"
	"math"
	"strings"

	"github.com/martinezcajm/ArtificialIntelligenceProject/internal/geom"
)

var (
	ErrInvalidDimensions = errors.New("grid: width and height must be positive")
	ErrInvalidRatio      = errors.New("grid: ratio must be positive on both axes")
)

// Occupancy is the read-only view of a map needed to plan routes.
type Occupancy interface {
	// IsOccupied reports whether a cell is blocked. Out of range cells are
	// blocked.
	IsOccupied(x, y int) bool
	// Ratio reports world units per cell on each axis.
	Ratio() geom.Vec2
}

// Map is a dense boolean occupancy grid.
type Map struct {
	width    int
	height   int
	ratio    geom.Vec2
	occupied []bool
}

// New returns a width x height map with every cell free.
func New(width, height int, ratio geom.Vec2) (*Map, error) {
	if width <= 0 || height <= 0 {
		return nil, ErrInvalidDimensions
	}
	if ratio.X <= 0 || ratio.Y <= 0 {
		return nil, ErrInvalidRatio
	}
	return &Map{
		width:    width,
		height:   height,
		ratio:    ratio,
		occupied: make([]bool, width*height),
	}, nil
}

// FromRows builds a map from a textual layout. '#' and 'X' mark occupied
// cells; every other rune is free. Short rows are padded with free cells.
func FromRows(rows []string, ratio geom.Vec2) (*Map, error) {
	width := 0
	for _, row := range rows {
		if n := len([]rune(row)); n > width {
			width = n
		}
	}
	m, err := New(width, len(rows), ratio)
	if err != nil {
		return nil, err
	}
	for y, row := range rows {
		for x, r := range []rune(row) {
			if r == '#' || r == 'X' {
				m.occupied[m.index(x, y)] = true
			}
		}
	}
	return m, nil
}

func (m *Map) index(x, y int) int {
	return y*m.width + x
}

// IsValid reports whether (x, y) lies inside the map.
func (m *Map) IsValid(x, y int) bool {
	return m != nil && x >= 0 && y >= 0 && x < m.width && y < m.height
}

// IsOccupied implements Occupancy.
func (m *Map) IsOccupied(x, y int) bool {
	if !m.IsValid(x, y) {
		return true
	}
	return m.occupied[m.index(x, y)]
}

// Set marks a cell. Out of range coordinates are ignored.
func (m *Map) Set(x, y int, occupied bool) {
	if !m.IsValid(x, y) {
		return
	}
	m.occupied[m.index(x, y)] = occupied
}

// Ratio implements Occupancy.
func (m *Map) Ratio() geom.Vec2 {
	if m == nil {
		return geom.Vec2{}
	}
	return m.ratio
}

func (m *Map) Width() int {
	if m == nil {
		return 0
	}
	return m.width
}

func (m *Map) Height() int {
	if m == nil {
		return 0
	}
	return m.height
}

// WorldSize reports the extent of the map in world units.
func (m *Map) WorldSize() geom.Vec2 {
	if m == nil {
		return geom.Vec2{}
	}
	return geom.V(float64(m.width)*m.ratio.X, float64(m.height)*m.ratio.Y)
}

// Rows renders the map using '#' for occupied and '.' for free cells.
func (m *Map) Rows() []string {
	if m == nil {
		return nil
	}
	rows := make([]string, m.height)
	var b strings.Builder
	for y := 0; y < m.height; y++ {
		b.Reset()
		for x := 0; x < m.width; x++ {
			if m.occupied[m.index(x, y)] {
				b.WriteByte('#')
			} else {
				b.WriteByte('.')
			}
		}
		rows[y] = b.String()
	}
	return rows
}

// Cell is an integer grid coordinate.
type Cell struct {
	X int
	Y int
}

// FreeCells lists every unoccupied cell in row-major order.
func (m *Map) FreeCells() []Cell {
	if m == nil {
		return nil
	}
	cells := make([]Cell, 0, len(m.occupied))
	for y := 0; y < m.height; y++ {
		for x := 0; x < m.width; x++ {
			if !m.occupied[m.index(x, y)] {
				cells = append(cells, Cell{X: x, Y: y})
			}
		}
	}
	return cells
}

// CellOf converts a world position to the cell containing it.
func CellOf(g Occupancy, world geom.Vec2) Cell {
	ratio := g.Ratio()
	return Cell{
		X: int(math.Floor(world.X / ratio.X)),
		Y: int(math.Floor(world.Y / ratio.Y)),
	}
}

// WorldOf converts a cell to the world position of its origin corner.
func WorldOf(g Occupancy, c Cell) geom.Vec2 {
	ratio := g.Ratio()
	return geom.V(float64(c.X)*ratio.X, float64(c.Y)*ratio.Y)
}

// CenterOf converts a cell to the world position of its centre.
func CenterOf(g Occupancy, c Cell) geom.Vec2 {
	ratio := g.Ratio()
	return geom.V((float64(c.X)+0.5)*ratio.X, (float64(c.Y)+0.5)*ratio.Y)
}
