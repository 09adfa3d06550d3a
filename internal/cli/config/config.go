package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/ghost-build/ghost/internal/buildctx"
	"github.com/ghost-build/ghost/internal/hooks"
	"github.com/ghost-build/ghost/internal/manifest"
)

// EnvPrefix is the prefix of every environment variable read by ghost.
const EnvPrefix = "GHOST"

// Config holds the invocation settings that are not part of a manifest.
type Config struct {
	// Profile is a profile file path; GHOST_PROFILE
	Profile string `mapstructure:"profile"`
	// Env is the free-form environment tag exposed to hooks; GHOST_ENV
	Env        string      `mapstructure:"env"`
	Ninja      string      `mapstructure:"ninja"`
	Manifest   string      `mapstructure:"manifest"`
	HookScript string      `mapstructure:"hook_script"`
	Watch      WatchConfig `mapstructure:"watch"`
}

// WatchConfig configures `ghost watch`.
type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce"`
}

// Load reads settings for the workspace in the current directory.
func Load() (*Config, error) {
	return LoadFrom(".")
}

// LoadFrom reads settings for the workspace at dir: a .env file (never
// overriding variables already set), an optional ghost.toml, then GHOST_*
// environment variables.
func LoadFrom(dir string) (*Config, error) {
	if err := godotenv.Load(filepath.Join(dir, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	v := viper.New()

	v.SetDefault("profile", "")
	v.SetDefault("env", buildctx.DefaultEnv)
	v.SetDefault("ninja", "ninja")
	v.SetDefault("manifest", manifest.FileName)
	v.SetDefault("hook_script", hooks.DefaultScript)
	v.SetDefault("watch.debounce", 100*time.Millisecond)

	v.SetConfigName("ghost")
	v.SetConfigType("toml")
	v.AddConfigPath(dir)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FindWorkspaceRoot walks up from dir to the first directory whose
// manifest declares workspace members. Directories without a manifest, or
// whose manifest parses without members, are passed over; any other
// manifest failure is returned as the *manifest.ParseError.
func FindWorkspaceRoot(dir, manifestName string) (string, error) {
	if manifestName == "" {
		manifestName = manifest.FileName
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}

	for {
		path := filepath.Join(abs, manifestName)
		if _, err := os.Stat(path); err == nil {
			_, err := manifest.LoadWorkspace(path)
			if err == nil {
				return abs, nil
			}
			if !errors.Is(err, manifest.ErrNoMembers) {
				return "", err
			}
		}

		parent := filepath.Dir(abs)
		if parent == abs {
			return "", fmt.Errorf("not in a ghost workspace (no %s with [workspace] members found)", manifestName)
		}
		abs = parent
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Manifest == "" {
		return fmt.Errorf("manifest must not be empty")
	}
	if cfg.Ninja == "" {
		return fmt.Errorf("ninja must not be empty")
	}
	if cfg.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative, got: %s", cfg.Watch.Debounce)
	}
	return nil
}
