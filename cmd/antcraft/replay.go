package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/antcraft/internal/replay"
	"github.com/vovakirdan/antcraft/internal/storage"
)

var flagReplayInterval uint32

var replayCmd = &cobra.Command{
	Use:   "replay <file>",
	Short: "Re-run a replay and print checkpoint digests",
	Long: `Re-simulate a recorded match from its seed and command log. Every
checkpoint stored in the file is compared against the re-run; with
--interval, a digest is also printed every N ticks. When the match database
holds digests for the same match they are compared too.

Examples:
  antcraft replay ~/.antcraft/replays/<match>.acrp
  antcraft replay match.acrp --interval 50`,
	Args: cobra.ExactArgs(1),
	Run:  runReplay,
}

func init() {
	replayCmd.Flags().Uint32Var(&flagReplayInterval, "interval", 0, "Print a digest every N ticks (0 = recorded checkpoints only)")
}

func runReplay(_ *cobra.Command, args []string) {
	cfg := loadConfig()
	path := args[0]

	info, err := os.Stat(path)
	if err != nil {
		fail("%v", err)
	}
	r, err := replay.OpenFile(path)
	if err != nil {
		fail("%v", err)
	}
	defer r.Close()

	hdr := r.Header()
	fmt.Printf("Replay %s (%s)\n", hdr.MatchID, humanize.Bytes(uint64(info.Size())))
	fmt.Printf("  recorded  %s (%s)\n", hdr.Started.Local().Format("2006-01-02 15:04"), humanize.Time(hdr.Started))
	fmt.Printf("  players   %s vs %s\n", hdr.Players[0], hdr.Players[1])
	fmt.Printf("  seed      %d, rules %08x\n", hdr.Seed, hdr.Fingerprint)
	fmt.Println()

	res, err := replay.Verify(r, flagReplayInterval)
	if err != nil {
		if errors.Is(err, replay.ErrMismatch) {
			fail("replay diverged: %v", err)
		}
		fail("%v", err)
	}

	fmt.Printf("  %-8s  %s\n", "Tick", "Digest")
	fmt.Printf("  %-8s  %s\n", "----", "------")
	for _, cp := range res.Checkpoints {
		fmt.Printf("  %-8d  %s\n", cp.Tick, cp.Digest)
	}
	fmt.Println()
	fmt.Printf("Final tick %d, digest %s\n", res.Final.Tick, res.Final.Digest)
	if res.GameOver {
		fmt.Printf("Game over, winner %s\n", res.Winner)
	}
	fmt.Printf("%d recorded checkpoints verified\n", res.Verified)

	compareStored(cfg.Storage.Database, hdr.MatchID, res)
}

// compareStored checks the re-run against digests saved during the match.
func compareStored(dbPath, matchID string, res replay.Result) {
	store, err := storage.Open(dbPath)
	if err != nil {
		return
	}
	defer store.Close()

	stored, err := store.Checkpoints(matchID)
	if err != nil || len(stored) == 0 {
		return
	}
	byTick := make(map[uint32]replay.Checkpoint, len(res.Checkpoints))
	for _, cp := range res.Checkpoints {
		byTick[cp.Tick] = cp
	}
	checked := 0
	for _, cp := range stored {
		got, ok := byTick[cp.Tick]
		if !ok {
			continue
		}
		if got.Digest != cp.Digest {
			fail("tick %d: database digest %s, replay %s", cp.Tick, cp.Digest.Short(), got.Digest.Short())
		}
		checked++
	}
	fmt.Printf("%d database checkpoints verified\n", checked)
}
