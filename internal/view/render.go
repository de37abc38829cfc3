// Package view draws simulation snapshots onto a terminal screen, one
// terminal cell per grid cell.
package view

import (
	"fmt"
	"unicode"

	"github.com/gdamore/tcell/v2"

	"github.com/martinezcajm/ArtificialIntelligenceProject/internal/grid"
	"github.com/martinezcajm/ArtificialIntelligenceProject/internal/sim"
)

const (
	wallRune  = '#'
	floorRune = '.'
	routeRune = '*'
)

var (
	styleFloor  = tcell.StyleDefault.Foreground(tcell.ColorDarkGray)
	styleWall   = tcell.StyleDefault.Foreground(tcell.ColorGray).Background(tcell.ColorGray)
	styleRoute  = tcell.StyleDefault.Foreground(tcell.ColorTeal)
	styleStatus = tcell.StyleDefault.Foreground(tcell.ColorWhite).Reverse(true)

	mindStyles = map[string]tcell.Style{
		"idle":       tcell.StyleDefault.Foreground(tcell.ColorWhite).Bold(true),
		"requesting": tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true),
		"following":  tcell.StyleDefault.Foreground(tcell.ColorLightGreen).Bold(true),
		"waiting":    tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true),
	}
)

// MindStyle returns the agent style for a mind state name.
func MindStyle(mind string) tcell.Style {
	if style, ok := mindStyles[mind]; ok {
		return style
	}
	return tcell.StyleDefault
}

// Glyph is the rune used for an agent: the upper-cased first letter of its id.
func Glyph(id string) rune {
	for _, r := range id {
		return unicode.ToUpper(r)
	}
	return '@'
}

// Render clears screen and draws the map, the remaining routes, the agents
// and a status line below the map. Content outside the screen is clipped.
// The caller is responsible for Show.
func Render(screen tcell.Screen, g *grid.Map, snap sim.Snapshot) {
	screen.Clear()
	width, height := screen.Size()
	put := func(x, y int, r rune, style tcell.Style) {
		if x < 0 || y < 0 || x >= width || y >= height {
			return
		}
		screen.SetContent(x, y, r, nil, style)
	}

	for y := 0; y < g.Height(); y++ {
		for x := 0; x < g.Width(); x++ {
			if g.IsOccupied(x, y) {
				put(x, y, wallRune, styleWall)
			} else {
				put(x, y, floorRune, styleFloor)
			}
		}
	}

	for _, a := range snap.Agents {
		for _, p := range a.Route {
			c := grid.CellOf(g, p)
			if g.IsValid(c.X, c.Y) {
				put(c.X, c.Y, routeRune, styleRoute)
			}
		}
	}

	for _, a := range snap.Agents {
		c := grid.CellOf(g, a.Position)
		if g.IsValid(c.X, c.Y) {
			put(c.X, c.Y, Glyph(a.ID), MindStyle(a.Mind))
		}
	}

	drawText(put, 0, g.Height(), StatusLine(snap), styleStatus)
}

// StatusLine summarises the tick and the coordinator.
func StatusLine(snap sim.Snapshot) string {
	line := fmt.Sprintf("tick %d | coordinator %s", snap.Tick, snap.Coordinator.State)
	if snap.Coordinator.Current != "" {
		line += " for " + snap.Coordinator.Current
	}
	if n := len(snap.Coordinator.Pending); n > 0 {
		line += fmt.Sprintf(" | %d queued", n)
	}
	return line
}

func drawText(put func(int, int, rune, tcell.Style), x, y int, text string, style tcell.Style) {
	for _, r := range text {
		put(x, y, r, style)
		x++
	}
}
