package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/tailscale/hujson"

	"writededuper/internal/wddlog"
	"writededuper/pkg/dedup"
	"writededuper/pkg/dedup/index"
)

// ConfigFileName is the default project config file name.
const ConfigFileName = ".wdd.json"

// Config errors.
var (
	errConfigFileRead = errors.New("cannot read config file")
	errConfigInvalid  = errors.New("invalid config file")
)

// Config holds all tool configuration options. The zero value selects
// the in-process index with quiet diagnostics.
type Config struct {
	RedisHost string `json:"redis_host,omitempty"`
	RedisPort string `json:"redis_port,omitempty"`
	Bloom     bool   `json:"bloom,omitempty"`
	Verbose   bool   `json:"verbose,omitempty"`
}

// LoadConfig loads configuration with the following precedence (highest
// wins):
// 1. Defaults
// 2. Project config file (.wdd.json in workDir, or configPath if non-empty)
// 3. Environment variables (the LIBWRITEDEDUPER_* set the shim honors).
//
// An explicit configPath must exist; the default project file is
// optional.
func LoadConfig(workDir, configPath string, env map[string]string) (Config, error) {
	var cfg Config

	path := configPath
	mustExist := configPath != ""

	if path == "" {
		path = filepath.Join(workDir, ConfigFileName)
	}

	fileCfg, loaded, err := loadConfigFile(path, mustExist)
	if err != nil {
		return Config{}, err
	}

	if loaded {
		cfg = fileCfg
	}

	if v, ok := env[dedup.EnvRedisHost]; ok {
		cfg.RedisHost = v
	}

	if v, ok := env[dedup.EnvRedisPort]; ok {
		cfg.RedisPort = v
	}

	if v, ok := env[dedup.EnvBloom]; ok {
		b, err := strconv.ParseBool(v)
		cfg.Bloom = v != "" && (err != nil || b)
	}

	if v, ok := env[dedup.EnvVerbose]; ok {
		b, err := strconv.ParseBool(v)
		cfg.Verbose = v != "" && (err != nil || b)
	}

	return cfg, nil
}

// loadConfigFile loads a config file if it exists. Returns the config
// and whether a file was loaded.
func loadConfigFile(path string, mustExist bool) (Config, bool, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is intentionally user-controlled
	if err != nil {
		if os.IsNotExist(err) && !mustExist {
			return Config{}, false, nil
		}

		return Config{}, false, fmt.Errorf("%w: %s", errConfigFileRead, path)
	}

	cfg, parseErr := parseConfig(data)
	if parseErr != nil {
		return Config{}, false, fmt.Errorf("%w %s: %w", errConfigInvalid, path, parseErr)
	}

	return cfg, true, nil
}

// parseConfig parses JSONC config data.
func parseConfig(data []byte) (Config, error) {
	// Standardize JSONC to JSON
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, fmt.Errorf("invalid JSONC: %w", err)
	}

	var cfg Config

	decodeErr := json.Unmarshal(standardized, &cfg)
	if decodeErr != nil {
		return Config{}, decodeErr
	}

	return cfg, nil
}

// Options materializes shim options from the configuration. The shim
// built from them owns the returned index; its Close releases it.
func (c Config) Options() (dedup.Options, error) {
	opts := dedup.Options{
		Logger: wddlog.New(c.Verbose),
	}

	if c.RedisHost != "" || c.RedisPort != "" {
		idx, err := index.NewRedis(index.RedisOptions{Host: c.RedisHost, Port: c.RedisPort})
		if err != nil {
			return dedup.Options{}, err
		}

		opts.Index = idx
	} else {
		opts.Index = index.NewMemory()
	}

	if c.Bloom {
		opts.Index = index.NewBloomed(opts.Index)
	}

	return opts, nil
}
