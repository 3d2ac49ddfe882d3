package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/antcraft/internal/multiplayer"
	"github.com/vovakirdan/antcraft/internal/netcode"
	"github.com/vovakirdan/antcraft/internal/sim"
)

var (
	flagHostPort int
	flagHostSeed uint32
	flagHostName string
	hostFlags    matchFlags
)

var hostCmd = &cobra.Command{
	Use:   "host",
	Short: "Host a match",
	Long: `Listen for one joiner on a UDP port and start a match as player 0.

The joiner must run with the same simulation and balance settings; a joiner
whose rules fingerprint differs is refused.

Controls:
  Arrows/hjkl - Move the cursor
  Space       - Select own units under the cursor (Tab: all ants)
  M / A / E   - Move, attack, harvest at the cursor
  S / G       - Spawn an ant, merge ants into a queen
  F / P       - Found a hive with a queen, morph an ant into a spitter
  X           - Stop
  Q/Ctrl+C    - Leave the match

Examples:
  antcraft host
  antcraft host --port 4000 --seed 1234
  antcraft host --spectate :23235
  antcraft host --headless --log-level debug`,
	Args: cobra.NoArgs,
	Run:  runHost,
}

func init() {
	hostCmd.Flags().IntVar(&flagHostPort, "port", 0, "UDP port to listen on (default from config)")
	hostCmd.Flags().Uint32Var(&flagHostSeed, "seed", 0, "Match seed (0 = random)")
	hostCmd.Flags().StringVar(&flagHostName, "name", defaultName(), "Player name")
	hostFlags.register(hostCmd.Flags())
}

func runHost(_ *cobra.Command, _ []string) {
	cfg := loadConfig()
	if flagHostPort != 0 {
		cfg.Network.Port = flagHostPort
	}
	logger, closeLog := matchLogger(cfg, hostFlags)
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := fmt.Sprintf(":%d", cfg.Network.Port)
	t, err := netcode.ListenUDP(addr)
	if err != nil {
		fail("%v", err)
	}

	rules := cfg.Rules()
	seed := randomSeed(flagHostSeed)
	fmt.Printf("Hosting on %s (seed %d, rules %08x)\n", t.LocalAddr(), seed, rules.Fingerprint())
	fmt.Println("Waiting for a player to join, press Ctrl+C to cancel")

	peer, err := netcode.Host(ctx, t, netcode.HostParams{
		Seed:        seed,
		TickRate:    uint32(rules.TickRate),
		Fingerprint: rules.Fingerprint(),
	}, cfg.Netcode(), logger)
	if err != nil {
		_ = t.Close()
		fail("%v", err)
	}

	err = runMatch(ctx, matchSetup{
		cfg:      cfg,
		flags:    hostFlags,
		mode:     multiplayer.MatchModeHost,
		seed:     seed,
		peer:     peer,
		opponent: peer.Name(),
		players:  [sim.Players]string{flagHostName, peer.Name()},
		logger:   logger,
	})
	if err != nil {
		fail("%v", err)
	}
}

// defaultName is the login name, or "player".
func defaultName() string {
	for _, env := range []string{"USER", "USERNAME"} {
		if v := os.Getenv(env); v != "" {
			return v
		}
	}
	return "player"
}
