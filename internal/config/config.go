// Package config loads certgen settings from a TOML file.
//
// Every field has a default, so a missing file or a partial file is fine.
// PORT in the environment overrides server.port.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Server  ServerConfig  `toml:"server"`
	Render  RenderConfig  `toml:"render"`
	Dataset DatasetConfig `toml:"dataset"`
	Log     LogConfig     `toml:"log"`
	Prefs   PrefsConfig   `toml:"prefs"`
}

type ServerConfig struct {
	Port int `toml:"port"`
	// MaxUploadMB caps template and dataset uploads.
	MaxUploadMB int `toml:"max_upload_mb"`
	// SessionTTLMinutes expires idle editor sessions; 0 keeps them forever.
	SessionTTLMinutes int `toml:"session_ttl_minutes"`
}

type RenderConfig struct {
	// FontPath is a TTF/OTF file; empty uses the bundled Go Regular face.
	FontPath string `toml:"font_path"`
	// FontRatio is the text size as a fraction of box height.
	FontRatio float64 `toml:"font_ratio"`
	TextColor string  `toml:"text_color"`
}

type DatasetConfig struct {
	MaxRows int `toml:"max_rows"`
}

type LogConfig struct {
	// Level is trace, debug, info, warn or error.
	Level string `toml:"level"`
	// File enables rotating file output; empty logs to stderr.
	File      string `toml:"file"`
	MaxSizeMB int    `toml:"max_size_mb"`
}

type PrefsConfig struct {
	Path string `toml:"path"`
}

func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Port:              8080,
			MaxUploadMB:       10,
			SessionTTLMinutes: 120,
		},
		Render: RenderConfig{
			FontRatio: 0.6,
			TextColor: "#000000",
		},
		Dataset: DatasetConfig{MaxRows: 10000},
		Log: LogConfig{
			Level:     "info",
			MaxSizeMB: 10,
		},
		Prefs: PrefsConfig{Path: defaultPrefsPath()},
	}
}

func defaultPrefsPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "certgen", "prefs.toml")
}

// Load reads path over the defaults. An empty path or a missing file
// yields the defaults. Environment overrides are applied last.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PORT: %w", err)
		}
		c.Server.Port = p
	}
	return nil
}

// Validate reports the first out-of-range setting.
func (c Config) Validate() error {
	switch {
	case c.Server.Port <= 0 || c.Server.Port > 65535:
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	case c.Server.MaxUploadMB <= 0:
		return fmt.Errorf("server.max_upload_mb must be positive")
	case c.Server.SessionTTLMinutes < 0:
		return fmt.Errorf("server.session_ttl_minutes must not be negative")
	case c.Render.FontRatio <= 0 || c.Render.FontRatio > 1:
		return fmt.Errorf("render.font_ratio %v must be in (0, 1]", c.Render.FontRatio)
	case c.Dataset.MaxRows < 0:
		return fmt.Errorf("dataset.max_rows must not be negative")
	}
	return nil
}

func (c Config) Addr() string { return ":" + strconv.Itoa(c.Server.Port) }

func (c Config) MaxUploadBytes() int64 { return int64(c.Server.MaxUploadMB) << 20 }

func (c Config) SessionTTL() time.Duration {
	return time.Duration(c.Server.SessionTTLMinutes) * time.Minute
}
