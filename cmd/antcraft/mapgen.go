package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/antcraft/internal/sim"
)

var (
	flagMapSeed   uint32
	flagMapWidth  int32
	flagMapHeight int32
)

var mapgenCmd = &cobra.Command{
	Use:   "mapgen",
	Short: "Print the map generated from a seed",
	Long: `Print the cave map a match with this seed would be played on.
'X' is rock, '.' is dirt, 'S' marks start tiles and 'o' hive sites.

Examples:
  antcraft mapgen --seed 42
  antcraft mapgen --seed 7 --width 60 --height 40`,
	Args: cobra.NoArgs,
	Run:  runMapgen,
}

func init() {
	mapgenCmd.Flags().Uint32Var(&flagMapSeed, "seed", 1, "Map seed")
	mapgenCmd.Flags().Int32Var(&flagMapWidth, "width", 0, "Map width (default from config)")
	mapgenCmd.Flags().Int32Var(&flagMapHeight, "height", 0, "Map height (default from config)")
}

func runMapgen(_ *cobra.Command, _ []string) {
	cfg := loadConfig()
	w, h := cfg.Simulation.MapWidth, cfg.Simulation.MapHeight
	if flagMapWidth > 0 {
		w = flagMapWidth
	}
	if flagMapHeight > 0 {
		h = flagMapHeight
	}
	if w < 8 || h < 8 {
		fail("map must be at least 8x8, got %dx%d", w, h)
	}

	m := sim.Generate(flagMapSeed, w, h)
	fmt.Println(markMap(m))
	fmt.Printf("\n%dx%d, seed %d, %d%% rock\n", w, h, flagMapSeed, rockPercent(m))
}

// markMap overlays start tiles and hive sites on the ASCII map.
func markMap(m *sim.TileMap) string {
	rows := make([][]byte, m.Height)
	for y := range m.Height {
		row := make([]byte, m.Width)
		for x := range m.Width {
			row[x] = '.'
			if m.At(x, y) == sim.Rock {
				row[x] = 'X'
			}
		}
		rows[y] = row
	}
	for _, p := range m.Starts {
		rows[p.Y][p.X] = 'S'
	}
	for _, p := range m.Sites {
		rows[p.Y][p.X] = 'o'
	}
	out := make([]byte, 0, int(m.Width+1)*int(m.Height))
	for i, row := range rows {
		if i > 0 {
			out = append(out, '\n')
		}
		out = append(out, row...)
	}
	return string(out)
}

func rockPercent(m *sim.TileMap) int {
	if len(m.Tiles) == 0 {
		return 0
	}
	rock := 0
	for _, t := range m.Tiles {
		if t == sim.Rock {
			rock++
		}
	}
	return rock * 100 / len(m.Tiles)
}
