// Package config loads whm settings from defaults, an optional YAML file and
// WHM_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Backend modes.
const (
	ModeRemote = "remote"
	ModeLocal  = "local"
)

// Config holds every whm setting.
type Config struct {
	// Mode selects the hosted backend (remote) or the embedded SQLite one (local).
	Mode string `yaml:"mode"`
	// BackendURL is the base URL of the hosted backend. Required in remote mode.
	BackendURL string `yaml:"backend_url"`
	// DBPath is the SQLite file of the local backend.
	DBPath string `yaml:"db_path"`
	// JWTSecret fixes the local backend's token secret. Empty uses the one
	// persisted in the database.
	JWTSecret string `yaml:"jwt_secret"`

	StoragePath     string        `yaml:"storage_path"`
	PageSize        int           `yaml:"page_size"`
	MessageDuration time.Duration `yaml:"message_duration"`
	HTTPTimeout     time.Duration `yaml:"http_timeout"`

	LogLevel string `yaml:"log_level"`
	LogPath  string `yaml:"log_path"`

	ServeAddr   string   `yaml:"serve_addr"`
	CORSOrigins []string `yaml:"cors_origins"`

	// OAuthPort is the loopback port of the OAuth redirect listener; 0 picks
	// a free one.
	OAuthPort          int    `yaml:"oauth_port"`
	GoogleClientID     string `yaml:"google_client_id"`
	GoogleClientSecret string `yaml:"google_client_secret"`
}

// Dir returns ~/.whm, or .whm when the home directory is unknown.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".whm"
	}
	return filepath.Join(home, ".whm")
}

// DefaultConfig returns a Config with every default filled in.
func DefaultConfig() Config {
	dir := Dir()
	return Config{
		Mode:            ModeRemote,
		DBPath:          filepath.Join(dir, "whm.db"),
		StoragePath:     filepath.Join(dir, "storage.json"),
		PageSize:        10,
		MessageDuration: 5000 * time.Millisecond,
		HTTPTimeout:     30 * time.Second,
		LogLevel:        "info",
		LogPath:         filepath.Join(dir, "whm.log"),
		ServeAddr:       ":8080",
		CORSOrigins:     []string{"*"},
	}
}

// Load reads the config file named by WHM_CONFIG (default ~/.whm/config.yaml,
// skipped when absent) and applies the environment on top.
func Load() (Config, error) {
	path := os.Getenv("WHM_CONFIG")
	explicit := path != ""
	if !explicit {
		path = filepath.Join(Dir(), "config.yaml")
	}

	cfg := DefaultConfig()
	if err := loadFile(path, &cfg); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			err = nil
		}
		if err != nil {
			return Config{}, err
		}
	}
	applyEnv(&cfg, os.Getenv)
	return cfg, nil
}

// LoadFromFile reads a YAML config over the defaults, without the environment.
func LoadFromFile(path string) (Config, error) {
	cfg := DefaultConfig()
	if err := loadFile(path, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

// applyEnv overlays WHM_* variables. Malformed numbers and durations are
// ignored and keep the previous value.
func applyEnv(cfg *Config, getenv func(string) string) {
	if v := getenv("WHM_MODE"); v != "" {
		cfg.Mode = strings.ToLower(v)
	}
	if v := getenv("WHM_BACKEND_URL"); v != "" {
		cfg.BackendURL = v
	} else if v := getenv("NEXT_PUBLIC_POCKETBASE_URL"); v != "" && cfg.BackendURL == "" {
		cfg.BackendURL = v
	}
	if v := getenv("WHM_DB"); v != "" {
		cfg.DBPath = v
	}
	if v := getenv("WHM_JWT_SECRET"); v != "" {
		cfg.JWTSecret = v
	}
	if v := getenv("WHM_STORAGE"); v != "" {
		cfg.StoragePath = v
	}
	if v := getenv("WHM_PAGE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.PageSize = n
		}
	}
	if v := getenv("WHM_MESSAGE_DURATION_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MessageDuration = time.Duration(n) * time.Millisecond
		}
	}
	if v := getenv("WHM_HTTP_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.HTTPTimeout = d
		}
	}
	if v := getenv("WHM_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := getenv("WHM_LOG"); v != "" {
		cfg.LogPath = v
	}
	if v := getenv("WHM_ADDR"); v != "" {
		cfg.ServeAddr = v
	}
	if v := getenv("WHM_CORS_ORIGINS"); v != "" {
		cfg.CORSOrigins = splitList(v)
	}
	if v := getenv("WHM_OAUTH_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.OAuthPort = n
		}
	}
	if v := getenv("WHM_GOOGLE_CLIENT_ID"); v != "" {
		cfg.GoogleClientID = v
	}
	if v := getenv("WHM_GOOGLE_CLIENT_SECRET"); v != "" {
		cfg.GoogleClientSecret = v
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeRemote:
		if c.BackendURL == "" {
			return fmt.Errorf("backend url is required in remote mode (set WHM_BACKEND_URL)")
		}
	case ModeLocal:
		if c.DBPath == "" {
			return fmt.Errorf("db path is required in local mode")
		}
	default:
		return fmt.Errorf("invalid mode %q (must be remote or local)", c.Mode)
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("page size must be positive, got %d", c.PageSize)
	}
	if c.MessageDuration <= 0 {
		return fmt.Errorf("message duration must be positive")
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("http timeout must be positive")
	}
	if c.OAuthPort < 0 || c.OAuthPort > 65535 {
		return fmt.Errorf("invalid oauth port %d", c.OAuthPort)
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// SlogLevel parses LogLevel.
func (c *Config) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	return lvl, nil
}
