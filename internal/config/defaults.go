package config

import (
	_ "embed"

	"github.com/vovakirdan/antcraft/internal/netcode"
	"github.com/vovakirdan/antcraft/internal/sim"
)

//go:embed defaults/antcraft.yaml
var defaultYAML []byte

//go:embed defaults/antcraft.schema.json
var schemaJSON []byte

// DefaultYAML returns the embedded default document, for `config init`
// style dumps.
func DefaultYAML() []byte {
	return append([]byte(nil), defaultYAML...)
}

// Default returns the hard-coded configuration. The embedded YAML mirrors it.
func Default() Config {
	rules := sim.DefaultRules()
	n := netcode.DefaultConfig()
	return Config{
		Network: NetworkConfig{
			Port:                netcode.DefaultPort,
			InputDelayTicks:     n.InputDelay,
			HashCheckInterval:   n.HashInterval,
			SendRedundancy:      n.Redundancy,
			ResendIntervalMS:    int(n.ResendInterval.Milliseconds()),
			WarnTimeoutMS:       int(n.WarnTimeout.Milliseconds()),
			DisconnectTimeoutMS: int(n.DisconnectTimeout.Milliseconds()),
			ConnectTimeoutMS:    int(n.ConnectTimeout.Milliseconds()),
			ConnectRetryMS:      int(n.ConnectRetry.Milliseconds()),
			DrainTimeoutMS:      int(n.DrainTimeout.Milliseconds()),
		},
		Simulation: SimulationConfig{
			TickRate:  rules.TickRate,
			MapWidth:  rules.MapWidth,
			MapHeight: rules.MapHeight,
		},
		Balance: rules.Balance,
		Storage: StorageConfig{
			Database:           "~/.antcraft/antcraft.db",
			ReplayDir:          "~/.antcraft/replays",
			CheckpointInterval: 100,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "auto",
		},
	}
}
