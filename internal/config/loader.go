package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// FileName is the configuration file looked up in each search location.
const FileName = "antcraft.yaml"

// ErrInvalid wraps schema violations.
var ErrInvalid = errors.New("invalid config")

const schemaURL = "antcraft.schema.json"

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		if err := c.AddResource(schemaURL, bytes.NewReader(schemaJSON)); err != nil {
			schemaErr = fmt.Errorf("add schema: %w", err)
			return
		}
		schema, schemaErr = c.Compile(schemaURL)
	})
	return schema, schemaErr
}

// Load loads the AntCraft configuration.
// Search order: customPath -> ~/.antcraft/antcraft.yaml -> ./configs/antcraft.yaml -> embedded default
//
// A document only needs the keys it changes; everything else keeps its
// default. A file that exists but fails to parse or validate is an error in
// every location, since silently falling back would desync a match.
func Load(customPath string) (Config, error) {
	// Try custom path first
	if customPath != "" {
		data, err := os.ReadFile(customPath)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config %s: %w", customPath, err)
		}
		return Parse(data, customPath)
	}

	// Try user config directory, then local configs directory
	for _, path := range []string{userConfigPath(FileName), filepath.Join("configs", FileName)} {
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		return Parse(data, path)
	}

	// Use embedded default YAML
	cfg, err := Parse(defaultYAML, "embedded default")
	if err != nil {
		return Default(), nil // Fallback to hardcoded if embed fails
	}
	return cfg, nil
}

// Parse validates a YAML document and overlays it onto Default. The source
// names the document in error messages.
func Parse(data []byte, source string) (Config, error) {
	if err := Validate(data); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", source, err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config %s: %w", source, err)
	}
	return cfg, nil
}

// Validate checks a YAML document against the embedded JSON schema.
func Validate(data []byte) error {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse yaml: %w", err)
	}
	if doc == nil {
		return nil // empty document keeps every default
	}

	// The validator expects JSON-decoded values (float64 numbers,
	// map[string]any objects).
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("convert yaml: %w", err)
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("convert yaml: %w", err)
	}

	s, err := compiledSchema()
	if err != nil {
		return err
	}
	if err := s.Validate(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// userConfigPath returns the path to user config file, or empty if home is unavailable.
func userConfigPath(filename string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".antcraft", filename)
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) string {
	if path == "~" || len(path) > 1 && path[0] == '~' && (path[1] == '/' || path[1] == filepath.Separator) {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[1:])
	}
	return path
}
