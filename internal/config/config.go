// Package config provides YAML-based configuration loading for AntCraft:
// network timings, simulation and balance rules, storage paths and logging.
package config

import (
	"time"

	"github.com/vovakirdan/antcraft/internal/netcode"
	"github.com/vovakirdan/antcraft/internal/sim"
)

// Config is the complete antcraft.yaml document.
type Config struct {
	Network    NetworkConfig    `yaml:"network" json:"network"`
	Simulation SimulationConfig `yaml:"simulation" json:"simulation"`
	Balance    sim.Balance      `yaml:"balance" json:"balance"`
	Storage    StorageConfig    `yaml:"storage" json:"storage"`
	Log        LogConfig        `yaml:"log" json:"log"`
}

// NetworkConfig holds the lockstep and transport timings. Durations are in
// milliseconds.
type NetworkConfig struct {
	Port                int    `yaml:"port" json:"port"`
	InputDelayTicks     uint32 `yaml:"input_delay_ticks" json:"input_delay_ticks"`
	HashCheckInterval   uint32 `yaml:"hash_check_interval" json:"hash_check_interval"`
	SendRedundancy      int    `yaml:"send_redundancy" json:"send_redundancy"`
	ResendIntervalMS    int    `yaml:"resend_interval_ms" json:"resend_interval_ms"`
	WarnTimeoutMS       int    `yaml:"warn_timeout_ms" json:"warn_timeout_ms"`
	DisconnectTimeoutMS int    `yaml:"disconnect_timeout_ms" json:"disconnect_timeout_ms"`
	ConnectTimeoutMS    int    `yaml:"connect_timeout_ms" json:"connect_timeout_ms"`
	ConnectRetryMS      int    `yaml:"connect_retry_ms" json:"connect_retry_ms"`
	DrainTimeoutMS      int    `yaml:"drain_timeout_ms" json:"drain_timeout_ms"`
}

// SimulationConfig holds the match-wide simulation parameters.
type SimulationConfig struct {
	TickRate  int32 `yaml:"tick_rate" json:"tick_rate"`
	MapWidth  int32 `yaml:"map_width" json:"map_width"`
	MapHeight int32 `yaml:"map_height" json:"map_height"`
}

// StorageConfig locates the match database and replay files.
type StorageConfig struct {
	Database           string `yaml:"database" json:"database"`
	ReplayDir          string `yaml:"replay_dir" json:"replay_dir"`
	CheckpointInterval uint32 `yaml:"checkpoint_interval" json:"checkpoint_interval"`
}

// LogConfig selects the log level and formatter.
type LogConfig struct {
	Level  string `yaml:"level" json:"level"`   // debug, info, warn, error
	Format string `yaml:"format" json:"format"` // auto, text, logfmt, json
}

// Rules returns the simulation rules both peers must agree on.
func (c *Config) Rules() sim.Rules {
	return sim.Rules{
		TickRate:  c.Simulation.TickRate,
		MapWidth:  c.Simulation.MapWidth,
		MapHeight: c.Simulation.MapHeight,
		Balance:   c.Balance,
	}
}

// Netcode converts the network section to lockstep timings.
func (c *Config) Netcode() netcode.Config {
	ms := func(v int) time.Duration { return time.Duration(v) * time.Millisecond }
	n := c.Network
	return netcode.Config{
		InputDelay:        n.InputDelayTicks,
		HashInterval:      n.HashCheckInterval,
		Redundancy:        n.SendRedundancy,
		ResendInterval:    ms(n.ResendIntervalMS),
		WarnTimeout:       ms(n.WarnTimeoutMS),
		DisconnectTimeout: ms(n.DisconnectTimeoutMS),
		ConnectTimeout:    ms(n.ConnectTimeoutMS),
		ConnectRetry:      ms(n.ConnectRetryMS),
		DrainTimeout:      ms(n.DrainTimeoutMS),
	}
}
