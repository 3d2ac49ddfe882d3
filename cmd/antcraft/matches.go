package main

import (
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vovakirdan/antcraft/internal/platform/tui"
	"github.com/vovakirdan/antcraft/internal/storage"
)

var (
	flagMatchLimit int
	flagPlain      bool
)

var matchesCmd = &cobra.Command{
	Use:   "matches [match-id]",
	Short: "Show match history",
	Long: `List recent matches, or show one match in detail with its stored
checkpoints and desync reports.

Examples:
  antcraft matches
  antcraft matches --limit 50 --plain
  antcraft matches 7f3c9a2e-...`,
	Args: cobra.MaximumNArgs(1),
	Run:  runMatches,
}

func init() {
	matchesCmd.Flags().IntVar(&flagMatchLimit, "limit", 20, "Number of matches to list")
	matchesCmd.Flags().BoolVar(&flagPlain, "plain", false, "Print a plain table instead of the interactive view")
}

func runMatches(_ *cobra.Command, args []string) {
	cfg := loadConfig()

	store, err := storage.Open(cfg.Storage.Database)
	if err != nil {
		fail("opening match database: %v", err)
	}
	defer store.Close()

	if len(args) == 1 {
		showMatch(store, args[0])
		return
	}

	matches, err := store.RecentMatches(flagMatchLimit)
	if err != nil {
		fail("retrieving matches: %v", err)
	}
	stats, err := store.GetStats()
	if err != nil {
		fail("retrieving stats: %v", err)
	}

	if !flagPlain && isTerminal(os.Stdout) {
		w, h, err := term.GetSize(int(os.Stdout.Fd()))
		if err != nil {
			w, h = 80, 24
		}
		if err := tui.RunHistory(matches, stats, w, h); err != nil {
			fail("%v", err)
		}
		return
	}

	fmt.Println("Match History")
	fmt.Println()
	if len(matches) == 0 {
		fmt.Println("No matches recorded yet.")
		fmt.Println()
		fmt.Println("Play 'antcraft solo' to record the first one!")
		return
	}

	now := time.Now()
	fmt.Printf("  %-36s  %-5s  %-12s  %-7s  %8s  %s\n", "Match", "Mode", "Opponent", "Result", "Ticks", "When")
	fmt.Printf("  %-36s  %-5s  %-12s  %-7s  %8s  %s\n", "-----", "----", "--------", "------", "-----", "----")
	for _, m := range matches {
		opp := m.Opponent
		if opp == "" {
			opp = "-"
		}
		fmt.Printf("  %-36s  %-5s  %-12s  %-7s  %8s  %s\n",
			m.MatchID, m.Mode, opp, tui.ResultLabel(m),
			humanize.Comma(int64(m.Ticks)), humanize.RelTime(m.CreatedAt, now, "ago", "from now"))
	}

	fmt.Println()
	fmt.Printf("Played %d: %d won, %d lost, %d drawn, %d aborted\n",
		stats.Matches, stats.Wins, stats.Losses, stats.Draws, stats.Aborted)
}

func showMatch(store *storage.Store, matchID string) {
	m, err := store.MatchByID(matchID)
	if err != nil {
		fail("retrieving match: %v", err)
	}
	if m == nil {
		fail("no match %q", matchID)
	}

	fmt.Printf("Match %s\n", m.MatchID)
	fmt.Printf("  mode      %s\n", m.Mode)
	if m.Opponent != "" {
		fmt.Printf("  opponent  %s\n", m.Opponent)
	}
	fmt.Printf("  seed      %d\n", m.Seed)
	fmt.Printf("  result    %s (%s)\n", tui.ResultLabel(*m), m.EndReason)
	fmt.Printf("  length    %s ticks, %s\n", humanize.Comma(int64(m.Ticks)), time.Duration(m.Duration)*time.Second)
	fmt.Printf("  played    %s\n", m.CreatedAt.Local().Format("2006-01-02 15:04"))

	cps, err := store.Checkpoints(matchID)
	if err != nil {
		fail("retrieving checkpoints: %v", err)
	}
	fmt.Println()
	if len(cps) == 0 {
		fmt.Println("No checkpoints stored.")
	} else {
		fmt.Printf("  %-8s  %s\n", "Tick", "Digest")
		fmt.Printf("  %-8s  %s\n", "----", "------")
		for _, cp := range cps {
			fmt.Printf("  %-8d  %s\n", cp.Tick, cp.Digest)
		}
	}

	desyncs, err := store.Desyncs(matchID)
	if err != nil {
		fail("retrieving desync reports: %v", err)
	}
	for _, d := range desyncs {
		fmt.Println()
		fmt.Printf("Desync at tick %d\n", d.Tick)
		fmt.Printf("  local   %s (dump %s)\n", d.LocalDigest, humanize.Bytes(uint64(len(d.LocalDump))))
		fmt.Printf("  remote  %s (dump %s)\n", d.RemoteDigest, humanize.Bytes(uint64(len(d.RemoteDump))))
	}
}
