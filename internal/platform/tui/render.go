package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vovakirdan/antcraft/internal/sim"
)

// cellStyle is the colour class of one map cell.
type cellStyle uint8

const (
	styleUnexplored cellStyle = iota
	styleFogDirt
	styleFogRock
	styleDirt
	styleRock
	styleOwn
	styleEnemy
	styleWild
	styleSite
	styleCorpse
	styleSelected
	styleCursor
)

// cellStyles maps cell classes to lipgloss styles.
var cellStyles = map[cellStyle]lipgloss.Style{
	styleUnexplored: lipgloss.NewStyle(),
	styleFogDirt:    lipgloss.NewStyle().Foreground(lipgloss.Color("236")),
	styleFogRock:    lipgloss.NewStyle().Foreground(lipgloss.Color("239")),
	styleDirt:       lipgloss.NewStyle().Foreground(lipgloss.Color("94")),
	styleRock:       lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
	styleOwn:        lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true),
	styleEnemy:      lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
	styleWild:       lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
	styleSite:       lipgloss.NewStyle().Foreground(lipgloss.Color("14")),
	styleCorpse:     lipgloss.NewStyle().Foreground(lipgloss.Color("208")),
	styleSelected:   lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("10")),
	styleCursor:     lipgloss.NewStyle().Reverse(true),
}

// kindGlyphs are the map symbols of each entity kind.
var kindGlyphs = map[sim.Kind]rune{
	sim.KindAnt:      'a',
	sim.KindQueen:    'Q',
	sim.KindHive:     'H',
	sim.KindHiveSite: 'o',
	sim.KindCorpse:   '%',
	sim.KindAphid:    ',',
	sim.KindBeetle:   'b',
	sim.KindMantis:   'M',
	sim.KindSpitter:  's',
}

// drawOrder ranks kinds so that the most relevant one wins a shared tile.
func drawOrder(e *sim.Entity, player sim.PlayerID) int {
	switch {
	case e.Kind == sim.KindCorpse:
		return 0
	case e.Kind == sim.KindHiveSite:
		return 1
	case e.Kind == sim.KindHive:
		return 2
	case e.Owner == sim.Neutral:
		return 3
	case e.Owner != player:
		return 4
	default:
		return 5
	}
}

// cell is one rendered map position.
type cell struct {
	r     rune
	style cellStyle
}

// Canvas is a styled character grid, the match counterpart of a screen buffer.
type Canvas struct {
	w, h  int
	cells []cell
}

// NewCanvas creates a blank canvas.
func NewCanvas(w, h int) *Canvas {
	w, h = max(w, 0), max(h, 0)
	c := &Canvas{w: w, h: h, cells: make([]cell, w*h)}
	for i := range c.cells {
		c.cells[i] = cell{' ', styleUnexplored}
	}
	return c
}

func (c *Canvas) set(x, y int, r rune, s cellStyle) {
	if x < 0 || y < 0 || x >= c.w || y >= c.h {
		return
	}
	c.cells[y*c.w+x] = cell{r, s}
}

// Rune returns the glyph at (x, y), for tests and screenshots.
func (c *Canvas) Rune(x, y int) rune {
	if x < 0 || y < 0 || x >= c.w || y >= c.h {
		return 0
	}
	return c.cells[y*c.w+x].r
}

// Plain returns the canvas without styling.
func (c *Canvas) Plain() string {
	var sb strings.Builder
	sb.Grow(c.w*c.h + c.h)
	for y := range c.h {
		if y > 0 {
			sb.WriteRune('\n')
		}
		for x := range c.w {
			sb.WriteRune(c.cells[y*c.w+x].r)
		}
	}
	return sb.String()
}

// String converts the canvas to a styled string for display.
// Groups adjacent cells with the same style to minimize ANSI escape sequences.
func (c *Canvas) String() string {
	var sb strings.Builder
	// Pre-allocate with extra space for ANSI codes
	sb.Grow(c.w*c.h*2 + c.h)

	for y := range c.h {
		if y > 0 {
			sb.WriteRune('\n')
		}

		x := 0
		for x < c.w {
			start := c.cells[y*c.w+x].style

			var run strings.Builder
			for x < c.w {
				cl := c.cells[y*c.w+x]
				if cl.style != start {
					break
				}
				run.WriteRune(cl.r)
				x++
			}

			style, ok := cellStyles[start]
			if !ok {
				style = cellStyles[styleUnexplored]
			}
			sb.WriteString(style.Render(run.String()))
		}
	}
	return sb.String()
}

// camera returns the top-left map tile of a w×h viewport centred on the
// cursor and clamped to the map.
func camera(m *sim.TileMap, cursor sim.Point, w, h int) (int32, int32) {
	clamp := func(c int32, size int, limit int32) int32 {
		origin := c - int32(size)/2
		origin = min(origin, limit-int32(size))
		return max(origin, 0)
	}
	return clamp(cursor.X, w, m.Width), clamp(cursor.Y, h, m.Height)
}

// DrawView renders the part of v around the cursor onto a w×h canvas.
// Unexplored tiles are blank, fogged tiles show remembered terrain only.
func DrawView(v *sim.View, ctl *Controls, w, h int) *Canvas {
	c := NewCanvas(w, h)
	if v.Map == nil {
		return c
	}
	ox, oy := camera(v.Map, ctl.Cursor, w, h)

	for y := range h {
		for x := range w {
			tx, ty := ox+int32(x), oy+int32(y)
			if !v.Map.InBounds(tx, ty) {
				continue
			}
			rock := v.Map.At(tx, ty) == sim.Rock
			vis := sim.Visible
			if v.Vis != nil {
				vis = v.Vis.At(tx, ty)
			}
			switch {
			case vis == sim.Unexplored:
			case vis == sim.Fogged && rock:
				c.set(x, y, '#', styleFogRock)
			case vis == sim.Fogged:
				c.set(x, y, '.', styleFogDirt)
			case rock:
				c.set(x, y, '#', styleRock)
			default:
				c.set(x, y, '.', styleDirt)
			}
		}
	}

	// Higher draw order overwrites lower on shared tiles.
	rank := make([]int, w*h)
	for i := range rank {
		rank[i] = -1
	}
	for i := range v.Entities {
		e := &v.Entities[i]
		x, y := int(sim.ToTile(e.X)-ox), int(sim.ToTile(e.Y)-oy)
		if x < 0 || y < 0 || x >= w || y >= h {
			continue
		}
		order := drawOrder(e, v.Player)
		if order < rank[y*w+x] {
			continue
		}
		rank[y*w+x] = order
		c.set(x, y, glyph(e), entityStyle(e, v.Player, ctl))
	}

	cx, cy := int(ctl.Cursor.X-ox), int(ctl.Cursor.Y-oy)
	if cx >= 0 && cy >= 0 && cx < w && cy < h {
		c.set(cx, cy, c.Rune(cx, cy), styleCursor)
	}
	return c
}

func glyph(e *sim.Entity) rune {
	if r, ok := kindGlyphs[e.Kind]; ok {
		return r
	}
	return '?'
}

func entityStyle(e *sim.Entity, player sim.PlayerID, ctl *Controls) cellStyle {
	switch {
	case e.Kind == sim.KindCorpse:
		return styleCorpse
	case e.Kind == sim.KindHiveSite:
		return styleSite
	case e.Owner == sim.Neutral:
		return styleWild
	case e.Owner != player:
		return styleEnemy
	case ctl.IsSelected(e.ID):
		return styleSelected
	default:
		return styleOwn
	}
}

// HUD styles.
var (
	hudStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("229")).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	bannerStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 2).Border(lipgloss.RoundedBorder())
	victoryColor = lipgloss.Color("10")
	defeatColor  = lipgloss.Color("9")
)

// ArmySummary counts the player's own units by kind.
type ArmySummary struct {
	Ants, Spitters, Queens, Hives, Carrying int32
}

// Summarize tallies the own entities of v.
func Summarize(v *sim.View) ArmySummary {
	var s ArmySummary
	for i := range v.Entities {
		e := &v.Entities[i]
		if e.Owner != v.Player {
			continue
		}
		switch e.Kind {
		case sim.KindAnt:
			s.Ants++
			s.Carrying += e.Carrying
		case sim.KindSpitter:
			s.Spitters++
		case sim.KindQueen:
			s.Queens++
		case sim.KindHive:
			s.Hives++
		}
	}
	return s
}

// renderHUD is the status line above the map.
func renderHUD(v *sim.View, ctl *Controls, tickRate int) string {
	s := Summarize(v)
	secs := 0
	if tickRate > 0 {
		secs = int(v.Tick) / tickRate
	}
	return hudStyle.Render(fmt.Sprintf("%s  jelly %d", v.Player, v.Jelly)) +
		mutedStyle.Render(fmt.Sprintf("  ants %d  spitters %d  queens %d  hives %d  carrying %d  selected %d  tick %d (%d:%02d)",
			s.Ants, s.Spitters, s.Queens, s.Hives, s.Carrying, len(ctl.Selected), v.Tick, secs/60, secs%60))
}

// renderOutcome is the banner shown once the match has a result.
func renderOutcome(v *sim.View, reason string) string {
	switch {
	case v.GameOver && v.Winner == v.Player:
		return bannerStyle.BorderForeground(victoryColor).Foreground(victoryColor).Render("VICTORY")
	case v.GameOver && v.Winner == sim.Neutral:
		return bannerStyle.Render("DRAW")
	case v.GameOver:
		return bannerStyle.BorderForeground(defeatColor).Foreground(defeatColor).Render("DEFEAT")
	default:
		return bannerStyle.BorderForeground(defeatColor).Render("MATCH ENDED: " + reason)
	}
}
