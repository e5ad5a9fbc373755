package config

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config is the top-level laze configuration.
type Config struct {
	Server ServerConfig `toml:"server"`
	Input  InputConfig  `toml:"input"`
}

// ServerConfig holds the listener and admission settings.
type ServerConfig struct {
	StartingPort  int  `toml:"starting_port"`
	MaxClients    int  `toml:"max_clients"`
	Discovery     bool `toml:"discovery"`
	DiscoveryPort int  `toml:"discovery_port"`
	EventBuffer   int  `toml:"event_buffer"`
}

// InputConfig holds pointer and wheel sensitivity settings.
type InputConfig struct {
	MoveXSense int `toml:"move_x_sense"`
	MoveYSense int `toml:"move_y_sense"`
	WheelSense int `toml:"wheel_sense"`
}

// Default returns a Config populated with default values.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			StartingPort:  7878,
			MaxClients:    10,
			Discovery:     true,
			DiscoveryPort: 7877,
			EventBuffer:   100,
		},
		Input: InputConfig{
			MoveXSense: 1,
			MoveYSense: 1,
			WheelSense: 1,
		},
	}
}

// Load reads the configuration from the default path
// ($XDG_CONFIG_HOME/laze/config.toml or ~/.config/laze/config.toml).
// If the file does not exist, defaults are returned without error.
func Load() (*Config, error) {
	return LoadFrom(defaultPath())
}

// LoadFrom reads the configuration from the given path.
// If the file does not exist, defaults are returned without error.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()

	_, err := toml.DecodeFile(path, cfg)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}

	applyDefaults(cfg)
	return cfg, nil
}

// applyDefaults fills in zero-valued fields with their default values.
func applyDefaults(cfg *Config) {
	d := Default()
	if cfg.Server.StartingPort == 0 {
		cfg.Server.StartingPort = d.Server.StartingPort
	}
	if cfg.Server.MaxClients == 0 {
		cfg.Server.MaxClients = d.Server.MaxClients
	}
	if cfg.Server.DiscoveryPort == 0 {
		cfg.Server.DiscoveryPort = d.Server.DiscoveryPort
	}
	if cfg.Server.EventBuffer == 0 {
		cfg.Server.EventBuffer = d.Server.EventBuffer
	}
	if cfg.Input.MoveXSense == 0 {
		cfg.Input.MoveXSense = d.Input.MoveXSense
	}
	if cfg.Input.MoveYSense == 0 {
		cfg.Input.MoveYSense = d.Input.MoveYSense
	}
	if cfg.Input.WheelSense == 0 {
		cfg.Input.WheelSense = d.Input.WheelSense
	}
}

// defaultPath returns the default config file path.
func defaultPath() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "laze", "config.toml")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "laze", "config.toml")
}
