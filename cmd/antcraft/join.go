package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/antcraft/internal/multiplayer"
	"github.com/vovakirdan/antcraft/internal/netcode"
	"github.com/vovakirdan/antcraft/internal/sim"
)

var (
	flagJoinName string
	joinFlags    matchFlags
)

var joinCmd = &cobra.Command{
	Use:   "join <host[:port]>",
	Short: "Join a hosted match",
	Long: `Connect to a host and play as player 1. The seed and tick rate come
from the host; the port defaults to the configured one.

Examples:
  antcraft join 192.168.1.20
  antcraft join example.org:4000 --name alice`,
	Args: cobra.ExactArgs(1),
	Run:  runJoin,
}

func init() {
	joinCmd.Flags().StringVar(&flagJoinName, "name", defaultName(), "Player name sent to the host")
	joinFlags.register(joinCmd.Flags())
}

func runJoin(_ *cobra.Command, args []string) {
	cfg := loadConfig()
	logger, closeLog := matchLogger(cfg, joinFlags)
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := args[0]
	if _, _, err := net.SplitHostPort(addr); err != nil {
		addr = net.JoinHostPort(addr, strconv.Itoa(cfg.Network.Port))
	}
	t, err := netcode.DialUDP(addr)
	if err != nil {
		fail("%v", err)
	}

	rules := cfg.Rules()
	fmt.Printf("Joining %s as %s (rules %08x)\n", addr, flagJoinName, rules.Fingerprint())
	peer, ack, err := netcode.Join(ctx, t, netcode.JoinParams{
		Name:        flagJoinName,
		Fingerprint: rules.Fingerprint(),
	}, cfg.Netcode(), logger)
	if err != nil {
		_ = t.Close()
		if errors.Is(err, netcode.ErrRulesMismatch) {
			fail("the host runs different simulation or balance settings")
		}
		fail("%v", err)
	}
	if int32(ack.TickRate) != rules.TickRate {
		logger.Warn("host tick rate differs", "host", ack.TickRate, "local", rules.TickRate)
	}

	err = runMatch(ctx, matchSetup{
		cfg:      cfg,
		flags:    joinFlags,
		mode:     multiplayer.MatchModeJoin,
		seed:     ack.Seed,
		peer:     peer,
		opponent: addr,
		players:  [sim.Players]string{addr, flagJoinName},
		logger:   logger,
	})
	if err != nil {
		fail("%v", err)
	}
}
