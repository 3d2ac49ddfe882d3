package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/antcraft/internal/multiplayer"
	"github.com/vovakirdan/antcraft/internal/netcode"
	"github.com/vovakirdan/antcraft/internal/sim"
)

var (
	flagSoloSeed uint32
	soloFlags    matchFlags
)

var soloCmd = &cobra.Command{
	Use:   "solo",
	Short: "Practice alone",
	Long: `Start a match against a loopback peer that never issues commands.
Useful to learn the controls and to record replays for testing.

Examples:
  antcraft solo
  antcraft solo --seed 42 --spectate :23235`,
	Args: cobra.NoArgs,
	Run:  runSolo,
}

func init() {
	soloCmd.Flags().Uint32Var(&flagSoloSeed, "seed", 0, "Match seed (0 = random)")
	soloFlags.register(soloCmd.Flags())
}

func runSolo(_ *cobra.Command, _ []string) {
	cfg := loadConfig()
	logger, closeLog := matchLogger(cfg, soloFlags)
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := runMatch(ctx, matchSetup{
		cfg:     cfg,
		flags:   soloFlags,
		mode:    multiplayer.MatchModeSolo,
		seed:    randomSeed(flagSoloSeed),
		peer:    netcode.NewLoopback(0),
		players: [sim.Players]string{defaultName(), "loopback"},
		logger:  logger,
	})
	if err != nil {
		fail("%v", err)
	}
}
