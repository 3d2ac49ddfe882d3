// antcraft is a deterministic two-player ant colony RTS for the terminal,
// played peer to peer over UDP in lockstep.
//
// Usage:
//
//	antcraft host             - Host a match and wait for a joiner
//	antcraft join <addr>      - Join a hosted match
//	antcraft solo             - Play alone against an idle opponent
//	antcraft replay <file>    - Re-run a replay and print checkpoint digests
//	antcraft matches [id]     - Show match history or one match in detail
//	antcraft mapgen           - Print the map generated from a seed
//
// Global flags:
//
//	--config <path>     - Config file (default search: ~/.antcraft, ./configs)
//	--log-level <lvl>   - debug, info, warn or error
//	--db <path>         - Match database path
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vovakirdan/antcraft/internal/config"
)

var (
	// Global flags
	flagConfig   string
	flagLogLevel string
	flagDBPath   string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "antcraft",
	Short: "AntCraft - a lockstep ant colony RTS in your terminal",
	Long: `AntCraft is a two-player real-time strategy game about ant colonies.
Both players run the same deterministic simulation and exchange only their
commands, so a match needs nothing but a UDP port between two terminals.

Available commands:
  host     - Host a match
  join     - Join a hosted match
  solo     - Practice alone
  replay   - Verify a recorded match
  matches  - Show match history
  mapgen   - Print a generated map

Examples:
  antcraft host --port 23456
  antcraft join 192.168.1.20:23456 --name alice
  antcraft solo --seed 42
  antcraft replay ~/.antcraft/replays/<match>.acrp
  antcraft matches`,
	SilenceUsage: true,
}

func init() {
	// Global persistent flags
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to antcraft.yaml")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level override: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&flagDBPath, "db", "", "Path to match database (default from config)")

	// Add subcommands
	rootCmd.AddCommand(hostCmd)
	rootCmd.AddCommand(joinCmd)
	rootCmd.AddCommand(soloCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(matchesCmd)
	rootCmd.AddCommand(mapgenCmd)
}

// fail prints an error and exits like every command's Run does.
func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

// loadConfig loads the config and applies the global flag overrides.
func loadConfig() config.Config {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		fail("%v", err)
	}
	if flagLogLevel != "" {
		cfg.Log.Level = flagLogLevel
	}
	if flagDBPath != "" {
		cfg.Storage.Database = flagDBPath
	}
	return cfg
}

// isTerminal reports whether f is attached to a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// newLogger builds the process logger. Terminals get the text formatter,
// pipes and files logfmt, unless the config names a format.
func newLogger(w io.Writer, cfg config.LogConfig) *log.Logger {
	logger := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		Prefix:          "antcraft",
	})
	if lvl, err := log.ParseLevel(cfg.Level); err == nil {
		logger.SetLevel(lvl)
	}

	switch cfg.Format {
	case "json":
		logger.SetFormatter(log.JSONFormatter)
	case "logfmt":
		logger.SetFormatter(log.LogfmtFormatter)
	case "text":
		logger.SetFormatter(log.TextFormatter)
	default:
		if f, ok := w.(*os.File); !ok || !isTerminal(f) {
			logger.SetFormatter(log.LogfmtFormatter)
		}
	}
	return logger
}

// openLogFile opens the log file used while the match view owns the terminal.
func openLogFile() (*os.File, error) {
	path := config.ExpandHome("~/.antcraft/antcraft.log")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("cannot create log directory: %w", err)
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}
