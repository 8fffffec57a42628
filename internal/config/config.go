package config

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"

	"github.com/five82/momento/internal/debounce"
	"github.com/five82/momento/internal/momento"
	"github.com/five82/momento/internal/poll"
)

// Config holds the client settings.
type Config struct {
	APIURL            string
	LogFile           string
	LogLevel          string
	MetricsAddr       string
	PageSize          int
	SearchDebounce    time.Duration
	RequestsPerSecond float64
	Poll              PollConfig
}

// PollConfig holds the per-view polling intervals.
type PollConfig struct {
	Conversation  time.Duration
	Partners      time.Duration
	Unread        time.Duration
	Notifications time.Duration
}

const (
	defaultConfigPath = "~/.config/momento/config.toml"
	defaultAPIURL     = "http://localhost:4000/api"
	defaultLogFile    = "~/.local/state/momento/momento.log"
	defaultLogLevel   = "info"
	defaultRPS        = 20
)

// Environment variables that override the file.
const (
	EnvAPIURL   = "MOMENTO_API_URL"
	EnvLogFile  = "MOMENTO_LOG_FILE"
	EnvLogLevel = "MOMENTO_LOG_LEVEL"
)

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		APIURL:            defaultAPIURL,
		LogFile:           mustExpand(defaultLogFile),
		LogLevel:          defaultLogLevel,
		PageSize:          momento.DefaultPageSize,
		SearchDebounce:    debounce.DefaultDelay,
		RequestsPerSecond: defaultRPS,
		Poll: PollConfig{
			Conversation:  poll.ConversationInterval,
			Partners:      poll.PartnersInterval,
			Unread:        poll.UnreadInterval,
			Notifications: poll.NotificationsInterval,
		},
	}
}

type rawConfig struct {
	APIURL            string  `toml:"api_url"`
	LogFile           string  `toml:"log_file"`
	LogLevel          string  `toml:"log_level"`
	MetricsAddr       string  `toml:"metrics_addr"`
	PageSize          int     `toml:"page_size"`
	SearchDebounceMS  int     `toml:"search_debounce_ms"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	Poll              struct {
		ConversationMS  int `toml:"conversation_ms"`
		PartnersMS      int `toml:"partners_ms"`
		UnreadMS        int `toml:"unread_ms"`
		NotificationsMS int `toml:"notifications_ms"`
	} `toml:"poll"`
}

// Load reads the config file, falling back to defaults when it is missing,
// then applies overrides from the .env file and the process environment.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	file, err := os.Open(resolved)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return Config{}, fmt.Errorf("open config: %w", err)
	default:
		defer file.Close()
		bytes, err := io.ReadAll(file)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		var raw rawConfig
		if err := toml.Unmarshal(bytes, &raw); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
		cfg.merge(raw)
	}

	env, err := loadEnv(filepath.Join(filepath.Dir(resolved), ".env"))
	if err != nil {
		return Config{}, err
	}
	cfg.applyEnv(env)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) merge(raw rawConfig) {
	if v := strings.TrimSpace(raw.APIURL); v != "" {
		c.APIURL = v
	}
	if v := strings.TrimSpace(raw.LogFile); v != "" {
		c.LogFile = mustExpand(v)
	}
	if v := strings.TrimSpace(raw.LogLevel); v != "" {
		c.LogLevel = v
	}
	c.MetricsAddr = strings.TrimSpace(raw.MetricsAddr)
	if raw.PageSize > 0 {
		c.PageSize = raw.PageSize
	}
	if raw.RequestsPerSecond > 0 {
		c.RequestsPerSecond = raw.RequestsPerSecond
	}
	setMillis(&c.SearchDebounce, raw.SearchDebounceMS)
	setMillis(&c.Poll.Conversation, raw.Poll.ConversationMS)
	setMillis(&c.Poll.Partners, raw.Poll.PartnersMS)
	setMillis(&c.Poll.Unread, raw.Poll.UnreadMS)
	setMillis(&c.Poll.Notifications, raw.Poll.NotificationsMS)
}

func setMillis(dst *time.Duration, ms int) {
	if ms > 0 {
		*dst = time.Duration(ms) * time.Millisecond
	}
}

// loadEnv reads the optional .env file and lets the process environment
// win over it.
func loadEnv(path string) (map[string]string, error) {
	values, err := godotenv.Read(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read env file: %w", err)
		}
		values = map[string]string{}
	}
	for _, key := range []string{EnvAPIURL, EnvLogFile, EnvLogLevel} {
		if v, ok := os.LookupEnv(key); ok {
			values[key] = v
		}
	}
	return values, nil
}

func (c *Config) applyEnv(env map[string]string) {
	if v := strings.TrimSpace(env[EnvAPIURL]); v != "" {
		c.APIURL = v
	}
	if v := strings.TrimSpace(env[EnvLogFile]); v != "" {
		c.LogFile = mustExpand(v)
	}
	if v := strings.TrimSpace(env[EnvLogLevel]); v != "" {
		c.LogLevel = v
	}
}

// Validate checks fields that would otherwise fail much later.
func (c Config) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil {
		return fmt.Errorf("invalid api_url %q: %w", c.APIURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid api_url %q: scheme must be http or https", c.APIURL)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid api_url %q: missing host", c.APIURL)
	}
	return nil
}

// LogDir returns the directory holding the log file.
func (c Config) LogDir() string {
	if strings.TrimSpace(c.LogFile) == "" {
		return filepath.Dir(mustExpand(defaultLogFile))
	}
	return filepath.Dir(c.LogFile)
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
