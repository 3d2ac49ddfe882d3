package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/vovakirdan/antcraft/internal/netcode"
	"github.com/vovakirdan/antcraft/internal/sim"
)

func TestEmbeddedDefaultMatchesDefault(t *testing.T) {
	cfg, err := Parse(defaultYAML, "embedded")
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	if !reflect.DeepEqual(cfg, Default()) {
		t.Errorf("embedded default = %+v, expected %+v", cfg, Default())
	}
}

func TestDefaultRulesFingerprint(t *testing.T) {
	cfg := Default()
	rules := cfg.Rules()
	want := sim.DefaultRules()
	if rules.Fingerprint() != want.Fingerprint() {
		t.Errorf("Rules().Fingerprint() = %08x, expected %08x", rules.Fingerprint(), want.Fingerprint())
	}
	if !reflect.DeepEqual(cfg.Netcode(), netcode.DefaultConfig()) {
		t.Errorf("Netcode() = %+v, expected %+v", cfg.Netcode(), netcode.DefaultConfig())
	}
}

func TestPartialOverlay(t *testing.T) {
	doc := []byte(`
network:
  input_delay_ticks: 4
  warn_timeout_ms: 1500
balance:
  spawn_cost: 12
  ant: {hp: 25}
log:
  level: debug
`)
	cfg, err := Parse(doc, "test")
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}

	def := Default()
	if cfg.Network.InputDelayTicks != 4 {
		t.Errorf("InputDelayTicks = %d, expected 4", cfg.Network.InputDelayTicks)
	}
	if got := cfg.Netcode().WarnTimeout; got != 1500*time.Millisecond {
		t.Errorf("WarnTimeout = %v, expected 1.5s", got)
	}
	if cfg.Network.Port != def.Network.Port {
		t.Errorf("Port = %d, expected default %d", cfg.Network.Port, def.Network.Port)
	}
	if cfg.Balance.SpawnCost != 12 {
		t.Errorf("SpawnCost = %d, expected 12", cfg.Balance.SpawnCost)
	}
	if cfg.Balance.Ant.HP != 25 {
		t.Errorf("Ant.HP = %d, expected 25", cfg.Balance.Ant.HP)
	}
	if cfg.Balance.Ant.Damage != def.Balance.Ant.Damage {
		t.Errorf("Ant.Damage = %d, expected default %d", cfg.Balance.Ant.Damage, def.Balance.Ant.Damage)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != def.Log.Format {
		t.Errorf("Log = %+v, expected level debug with default format", cfg.Log)
	}
	if cfg.Rules().Fingerprint() == def.Rules().Fingerprint() {
		t.Error("changed balance kept the default fingerprint")
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"unknown section", "graphics:\n  vsync: true\n"},
		{"unknown key", "network:\n  input_lag: 3\n"},
		{"negative cost", "balance:\n  spawn_cost: -1\n"},
		{"zero tick rate", "simulation:\n  tick_rate: 0\n"},
		{"port out of range", "network:\n  port: 70000\n"},
		{"fractional hp", "balance:\n  ant: {hp: 2.5}\n"},
		{"bad log level", "log:\n  level: loud\n"},
		{"string number", "simulation:\n  map_width: wide\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate([]byte(tt.doc))
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("Validate() = %v, expected ErrInvalid", err)
			}
		})
	}
}

func TestValidateAcceptsEmpty(t *testing.T) {
	if err := Validate(nil); err != nil {
		t.Errorf("Validate(nil) = %v, expected nil", err)
	}
	cfg, err := Parse([]byte("# nothing here\n"), "test")
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	if !reflect.DeepEqual(cfg, Default()) {
		t.Errorf("empty document = %+v, expected defaults", cfg)
	}
}

func TestLoadCustomPath(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "good.yaml")
	if err := os.WriteFile(good, []byte("simulation:\n  map_width: 64\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}
	cfg, err := Load(good)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Simulation.MapWidth != 64 {
		t.Errorf("MapWidth = %d, expected 64", cfg.Simulation.MapWidth)
	}

	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("simulation:\n  map_width: 2\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}
	if _, err := Load(bad); !errors.Is(err, ErrInvalid) {
		t.Errorf("Load(bad) = %v, expected ErrInvalid", err)
	}

	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("Load(missing) succeeded, expected error")
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	tests := []struct {
		in   string
		want string
	}{
		{"~/.antcraft/antcraft.db", filepath.Join(home, ".antcraft/antcraft.db")},
		{"~", home},
		{"/tmp/x.db", "/tmp/x.db"},
		{"~other/x", "~other/x"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ExpandHome(tt.in); got != tt.want {
				t.Errorf("ExpandHome(%q) = %q, expected %q", tt.in, got, tt.want)
			}
		})
	}
}
