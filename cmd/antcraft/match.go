package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"

	"github.com/vovakirdan/antcraft/internal/config"
	"github.com/vovakirdan/antcraft/internal/multiplayer"
	"github.com/vovakirdan/antcraft/internal/netcode"
	"github.com/vovakirdan/antcraft/internal/platform/tui"
	"github.com/vovakirdan/antcraft/internal/replay"
	"github.com/vovakirdan/antcraft/internal/sim"
	"github.com/vovakirdan/antcraft/internal/storage"
)

// matchFlags are shared by host, join and solo.
type matchFlags struct {
	headless bool
	spectate string
	noReplay bool
}

func (f *matchFlags) register(fs interface {
	BoolVar(p *bool, name string, value bool, usage string)
	StringVar(p *string, name string, value string, usage string)
}) {
	fs.BoolVar(&f.headless, "headless", false, "Run without the match view, logging events only")
	fs.StringVar(&f.spectate, "spectate", "", "Serve a read-only view over SSH on this address (e.g. :23235)")
	fs.BoolVar(&f.noReplay, "no-replay", false, "Do not record a replay file")
}

func (f *matchFlags) interactive() bool {
	return !f.headless && isTerminal(os.Stdout)
}

// matchLogger returns the logger for a match command. The match view owns
// the terminal, so interactive runs log to a file instead of stderr.
func matchLogger(cfg config.Config, f matchFlags) (*log.Logger, func()) {
	if f.interactive() {
		if file, err := openLogFile(); err == nil {
			return newLogger(file, cfg.Log), func() { _ = file.Close() }
		}
	}
	return newLogger(os.Stderr, cfg.Log), func() {}
}

// matchSetup is everything runMatch needs once the peer is connected.
type matchSetup struct {
	cfg      config.Config
	flags    matchFlags
	mode     multiplayer.MatchMode
	seed     uint32
	peer     netcode.Peer
	opponent string
	players  [sim.Players]string
	logger   *log.Logger
}

// runMatch plays one match to its end and prints the outcome.
func runMatch(ctx context.Context, s matchSetup) error {
	rules := s.cfg.Rules()
	logger := s.logger
	interactive := s.flags.interactive()

	state := sim.NewMatch(s.seed, rules)
	state.Reject = func(cmd sim.Command, reason string) {
		logger.Debug("command rejected", "player", cmd.Player, "type", cmd.Type, "tick", cmd.Tick, "reason", reason)
	}
	session := netcode.NewSession(state, s.peer, s.cfg.Netcode(), logger)

	// Open storage; the match still runs without it.
	store, err := storage.Open(s.cfg.Storage.Database)
	if err != nil {
		logger.Warn("could not open match database", "error", err)
		store = nil
	}
	if store != nil {
		defer store.Close()
	}

	id := multiplayer.NewMatchID()
	var rec *replay.Recorder
	var replayPath string
	if !s.flags.noReplay {
		replayPath = filepath.Join(config.ExpandHome(s.cfg.Storage.ReplayDir), string(id)+".acrp")
		rec, err = replay.Create(replayPath, replay.Header{
			Format:      replay.Format,
			MatchID:     string(id),
			Seed:        s.seed,
			Fingerprint: rules.Fingerprint(),
			Rules:       rules,
			Players:     s.players,
			Started:     time.Now().UTC(),
		})
		if err != nil {
			logger.Warn("could not create replay", "error", err)
			rec, replayPath = nil, ""
		}
	}

	coord := multiplayer.NewCoordinator(nil, logger)
	if store != nil {
		coord.SetResultSaver(store)
	}
	coord.Start()
	defer coord.Stop()

	owner := multiplayer.NewChannelSession("local", 256)
	mcfg := multiplayer.MatchConfig{
		ID:                 id,
		Mode:               s.mode,
		Seed:               s.seed,
		Opponent:           s.opponent,
		TickRate:           int(rules.TickRate),
		CheckpointInterval: s.cfg.Storage.CheckpointInterval,
	}
	if rec != nil {
		mcfg.Recorder = rec
	}
	m := multiplayer.NewMatch(mcfg, session, owner, logger)
	coord.StartMatch(ctx, m)

	if s.flags.spectate != "" {
		watchCfg := tui.DefaultSpectatorConfig()
		watchCfg.Address = s.flags.spectate
		watchCfg.MatchID = id
		watchCfg.TickRate = int(rules.TickRate)
		srv, err := tui.NewSpectatorServer(watchCfg, coord, logger)
		if err != nil {
			logger.Warn("spectator server disabled", "error", err)
		} else {
			watchCtx, cancel := context.WithCancel(ctx)
			defer cancel()
			go func() {
				if err := srv.ListenAndServe(watchCtx); err != nil {
					logger.Error("spectator server failed", "error", err)
				}
			}()
		}
	}

	if interactive {
		err := tui.Run(tui.MatchModelConfig{
			SessionID:   owner.ID(),
			MatchID:     id,
			Events:      owner.Events(),
			Coordinator: coord,
			TickRate:    int(rules.TickRate),
		})
		if err != nil {
			m.Stop()
			<-m.Done()
			return fmt.Errorf("match view failed: %w", err)
		}
		m.Stop()
	} else {
		logEvents(ctx, owner, logger)
	}
	<-m.Done()

	if rec != nil {
		if err := rec.Close(); err != nil {
			logger.Warn("could not finish replay", "error", err)
		}
	}

	res, ok := coord.Result(id)
	if !ok {
		return fmt.Errorf("match %s has no result", id)
	}
	printResult(res, session.Local(), replayPath)
	if res.Reason == multiplayer.MatchEndReasonDesync {
		return fmt.Errorf("match desynced: %w", res.Err)
	}
	return nil
}

// logEvents follows a headless match until it ends.
func logEvents(ctx context.Context, owner *multiplayer.ChannelSession, logger *log.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-owner.Events():
			switch e := evt.(type) {
			case multiplayer.StatusEvent:
				logger.Info("status changed", "tick", e.Tick, "status", e.Status)
			case multiplayer.ViewEvent:
				if e.View.Tick%100 == 0 {
					logger.Debug("tick", "tick", e.View.Tick, "jelly", e.View.Jelly, "entities", len(e.View.Entities))
				}
			case multiplayer.MatchEndedEvent:
				return
			}
		}
	}
}

func printResult(res multiplayer.MatchResult, local sim.PlayerID, replayPath string) {
	outcome := res.Reason.String()
	if res.Reason == multiplayer.MatchEndReasonCompleted {
		switch res.Winner {
		case local:
			outcome = "victory"
		case sim.Neutral:
			outcome = "draw"
		default:
			outcome = "defeat"
		}
	}
	fmt.Printf("Match %s: %s after %s ticks (%s)\n",
		res.MatchID, outcome, humanize.Comma(int64(res.Ticks)), res.Duration.Round(time.Second))
	if res.Desync != nil {
		fmt.Printf("Desync at tick %d: local %s, remote %s\n",
			res.Desync.Tick, res.Desync.Local.Short(), res.Desync.Remote.Short())
	}
	if replayPath != "" {
		if info, err := os.Stat(replayPath); err == nil {
			fmt.Printf("Replay: %s (%s)\n", replayPath, humanize.Bytes(uint64(info.Size())))
		}
	}
}

// randomSeed picks a seed when none was given.
func randomSeed(seed uint32) uint32 {
	if seed != 0 {
		return seed
	}
	return uint32(time.Now().UnixNano())
}
