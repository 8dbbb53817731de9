package userconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/tailscale/hujson"
)

// Defaults
const (
	DefaultAPIURL           = "http://localhost:8000"
	DefaultPollInterval     = 2 * time.Second
	DefaultPollAttempts     = 30
	DefaultIndexingInterval = 5 * time.Second
	DefaultRequestTimeout   = 30 * time.Second
)

// EnvAPIURL overrides the configured backend address
const EnvAPIURL = "VULNDASH_API_URL"

// Duration is a time.Duration stored as a Go duration string ("2s")
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		// plain numbers are seconds
		var secs float64
		if err := json.Unmarshal(data, &secs); err != nil {
			return fmt.Errorf("invalid duration %s", data)
		}
		*d = Duration(secs * float64(time.Second))
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// UserConfig holds persistent user preferences
type UserConfig struct {
	APIURL           string   `json:"api_url,omitempty"`
	PollInterval     Duration `json:"poll_interval,omitempty"`
	PollAttempts     int      `json:"poll_attempts,omitempty"`
	IndexingInterval Duration `json:"indexing_interval,omitempty"`
	RequestTimeout   Duration `json:"request_timeout,omitempty"`
	LogLevel         string   `json:"log_level,omitempty"`
	LogToFile        *bool    `json:"log_to_file,omitempty"`
}

// Defaults returns a config with every field set to its default
func Defaults() *UserConfig {
	logToFile := true
	return &UserConfig{
		APIURL:           DefaultAPIURL,
		PollInterval:     Duration(DefaultPollInterval),
		PollAttempts:     DefaultPollAttempts,
		IndexingInterval: Duration(DefaultIndexingInterval),
		RequestTimeout:   Duration(DefaultRequestTimeout),
		LogLevel:         "info",
		LogToFile:        &logToFile,
	}
}

// withDefaults fills zero fields from Defaults and applies env overrides
func (c *UserConfig) withDefaults() *UserConfig {
	def := Defaults()
	if c.APIURL == "" {
		c.APIURL = def.APIURL
	}
	if c.PollInterval <= 0 {
		c.PollInterval = def.PollInterval
	}
	if c.PollAttempts <= 0 {
		c.PollAttempts = def.PollAttempts
	}
	if c.IndexingInterval <= 0 {
		c.IndexingInterval = def.IndexingInterval
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = def.RequestTimeout
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	if c.LogToFile == nil {
		c.LogToFile = def.LogToFile
	}
	if env := os.Getenv(EnvAPIURL); env != "" {
		c.APIURL = env
	}
	return c
}

// configPath returns the path to the user config file
func configPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".vulndash", "config.json"), nil
}

// Load loads the user config from disk. A missing file yields defaults; the
// file may contain comments and trailing commas.
func Load() (*UserConfig, error) {
	path, err := configPath()
	if err != nil {
		return Defaults().withDefaults(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return (&UserConfig{}).withDefaults(), nil
		}
		return nil, err
	}

	return Parse(data)
}

// Parse decodes a JSONC config document
func Parse(data []byte) (*UserConfig, error) {
	std, err := hujson.Standardize(data)
	if err != nil {
		return nil, fmt.Errorf("failed to standardize config: %w", err)
	}

	var cfg UserConfig
	if err := json.Unmarshal(std, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg.withDefaults(), nil
}

// Save saves the user config to disk
func Save(cfg *UserConfig) error {
	path, err := configPath()
	if err != nil {
		return err
	}

	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Keys lists the settable keys
func Keys() []string {
	keys := []string{"api_url", "poll_interval", "poll_attempts", "indexing_interval", "request_timeout", "log_level", "log_to_file"}
	sort.Strings(keys)
	return keys
}

// Get gets a config value
func Get(key string) (string, error) {
	cfg, err := Load()
	if err != nil {
		return "", err
	}

	switch key {
	case "api_url":
		return cfg.APIURL, nil
	case "poll_interval":
		return time.Duration(cfg.PollInterval).String(), nil
	case "poll_attempts":
		return strconv.Itoa(cfg.PollAttempts), nil
	case "indexing_interval":
		return time.Duration(cfg.IndexingInterval).String(), nil
	case "request_timeout":
		return time.Duration(cfg.RequestTimeout).String(), nil
	case "log_level":
		return cfg.LogLevel, nil
	case "log_to_file":
		return strconv.FormatBool(*cfg.LogToFile), nil
	default:
		return "", fmt.Errorf("unknown config key %q", key)
	}
}

// Set sets a config value
func Set(key, value string) error {
	cfg, err := Load()
	if err != nil {
		cfg = Defaults()
	}

	switch key {
	case "api_url":
		cfg.APIURL = value
	case "poll_interval", "indexing_interval", "request_timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for %s: %w", key, err)
		}
		switch key {
		case "poll_interval":
			cfg.PollInterval = Duration(d)
		case "indexing_interval":
			cfg.IndexingInterval = Duration(d)
		default:
			cfg.RequestTimeout = Duration(d)
		}
	case "poll_attempts":
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return fmt.Errorf("poll_attempts must be a positive integer")
		}
		cfg.PollAttempts = n
	case "log_level":
		cfg.LogLevel = value
	case "log_to_file":
		b := value == "true" || value == "1"
		cfg.LogToFile = &b
	default:
		return fmt.Errorf("unknown config key %q", key)
	}

	return Save(cfg)
}
