package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/leandrodaf/midibridge/sdk/contracts"
)

// Config is the on-disk configuration of the midibridge CLI.
type Config struct {
	Backend   string  `json:"backend"`
	Port      string  `json:"port,omitempty"` // Empty selects the first available port.
	Virtual   bool    `json:"virtual,omitempty"`
	Autoreset bool    `json:"autoreset,omitempty"`
	SoundFont string  `json:"soundfont,omitempty"`
	Tempo     float64 `json:"tempo"`
	Velocity  float64 `json:"velocity"`
	LogLevel  string  `json:"logLevel"`
	LogFile   string  `json:"logFile,omitempty"`
}

// DefaultConfig returns a config that plays through the log-only backend.
func DefaultConfig() *Config {
	return &Config{
		Backend:  string(contracts.NullBackend),
		Tempo:    1,
		Velocity: 1,
		LogLevel: "info",
	}
}

// ConfigPath returns the full path to config.json
func ConfigPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "midibridge", "config.json"), nil
}

// Load reads the config at path. A missing file yields DefaultConfig; fields
// absent from the file keep their defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", contracts.ErrMalformedRequest, path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path, creating the directory if needed.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate checks the enumerated and numeric fields.
func (c *Config) Validate() error {
	if _, ok := contracts.ParseBackendKind(c.Backend); !ok {
		return fmt.Errorf("%w: unknown backend %q", contracts.ErrMalformedRequest, c.Backend)
	}
	if _, ok := contracts.ParseLogLevel(c.LogLevel); !ok {
		return fmt.Errorf("%w: unknown log level %q", contracts.ErrMalformedRequest, c.LogLevel)
	}
	if c.Tempo <= 0 || c.Velocity <= 0 {
		return fmt.Errorf("%w: tempo and velocity factors must be positive", contracts.ErrMalformedRequest)
	}
	if c.Virtual && c.Port == "" {
		return fmt.Errorf("%w: a virtual port needs a name", contracts.ErrMalformedRequest)
	}
	return nil
}

// Options converts the config into SDK options. The synthesizer is not part
// of the file and has to be added by the caller.
func (c *Config) Options() []contracts.Option {
	backend, _ := contracts.ParseBackendKind(c.Backend)
	level, _ := contracts.ParseLogLevel(c.LogLevel)
	opts := []contracts.Option{
		contracts.WithBackend(backend),
		contracts.WithPortName(c.Port),
		contracts.WithLogLevel(level),
	}
	if c.Virtual {
		opts = append(opts, contracts.WithVirtual())
	}
	if c.Autoreset {
		opts = append(opts, contracts.WithAutoreset())
	}
	if c.LogFile != "" {
		opts = append(opts, contracts.WithLogFile(c.LogFile))
	}
	return opts
}
