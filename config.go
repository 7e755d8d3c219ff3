package prp

import (
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

var ErrInvalidMaxDepth = errors.New("prp: max_depth must be at least 1")

// Config is the pipeline asset: recursion limit and draw flags.
type Config struct {
	// MaxDepth counts rendered layers including the base one.
	MaxDepth        int    `toml:"max_depth"`
	Debug           bool   `toml:"debug"`
	DynamicBatching bool   `toml:"dynamic_batching"`
	Instancing      bool   `toml:"instancing"`
	LogPrefix       string `toml:"log_prefix"`
}

func DefaultConfig() Config {
	return Config{
		MaxDepth:  3,
		LogPrefix: "prp",
	}
}

func (c Config) Validate() error {
	if c.MaxDepth < 1 {
		return fmt.Errorf("%w, got %d", ErrInvalidMaxDepth, c.MaxDepth)
	}
	return nil
}

// ParseConfig reads TOML on top of DefaultConfig.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("prp: parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("prp: load config: %w", err)
	}
	return ParseConfig(data)
}

// Encode renders c as TOML.
func (c Config) Encode() ([]byte, error) {
	return toml.Marshal(c)
}
