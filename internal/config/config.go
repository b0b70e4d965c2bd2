// Package config resolves client settings from defaults, a .env file, the
// environment, and command-line flags, in increasing order of precedence.
package config

import (
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Environment variables read by Load.
const (
	EnvAPIURL         = "BLAGAJNA_API_URL"
	EnvState          = "BLAGAJNA_STATE"
	EnvTimeout        = "BLAGAJNA_TIMEOUT"
	EnvPageSize       = "BLAGAJNA_PAGE_SIZE"
	EnvPollInterval   = "BLAGAJNA_POLL_INTERVAL"
	EnvDebounce       = "BLAGAJNA_DEBOUNCE"
	EnvHighlight      = "BLAGAJNA_HIGHLIGHT"
	EnvLog            = "BLAGAJNA_LOG"
	EnvTelegramToken  = "TELEGRAM_BOT_TOKEN"
	EnvTelegramChatID = "TELEGRAM_CHAT_ID"
)

// Config holds client settings.
type Config struct {
	APIURL       string
	StatePath    string // local storage database
	Timeout      time.Duration
	PageSize     int
	PollInterval time.Duration
	Debounce     time.Duration
	Highlight    time.Duration
	LogPath      string

	TelegramToken  string
	TelegramChatID int64
}

// Default returns the built-in settings.
func Default() Config {
	state := "blagajna.sqlite3"
	if dir, err := os.UserConfigDir(); err == nil {
		state = filepath.Join(dir, "blagajna", "state.sqlite3")
	}
	return Config{
		APIURL:       "http://localhost:8000",
		StatePath:    state,
		Timeout:      15 * time.Second,
		PageSize:     10,
		PollInterval: 30 * time.Second,
		Debounce:     300 * time.Millisecond,
		Highlight:    3 * time.Second,
	}
}

// Load returns the defaults overridden by envFile (if it exists) and then by
// the process environment. An empty envFile means ".env".
func Load(envFile string) (Config, error) {
	if envFile == "" {
		envFile = ".env"
	}
	file, err := godotenv.Read(envFile)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("reading %s: %w", envFile, err)
	}

	cfg := Default()
	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := file[key]
		return v, ok
	}
	if err := cfg.apply(lookup); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) apply(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	dur := func(key string, dst *time.Duration) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = d
		return nil
	}

	str(EnvAPIURL, &c.APIURL)
	str(EnvState, &c.StatePath)
	str(EnvLog, &c.LogPath)
	str(EnvTelegramToken, &c.TelegramToken)

	for key, dst := range map[string]*time.Duration{
		EnvTimeout:      &c.Timeout,
		EnvPollInterval: &c.PollInterval,
		EnvDebounce:     &c.Debounce,
		EnvHighlight:    &c.Highlight,
	} {
		if err := dur(key, dst); err != nil {
			return err
		}
	}

	if v, ok := lookup(EnvPageSize); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvPageSize, err)
		}
		c.PageSize = n
	}
	if v, ok := lookup(EnvTelegramChatID); ok && v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvTelegramChatID, err)
		}
		c.TelegramChatID = id
	}
	return nil
}

// RegisterFlags binds the settings that make sense per invocation, each with
// a long and a short name. Current values become the flag defaults.
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.APIURL, "api", c.APIURL, "")
	fs.StringVar(&c.APIURL, "a", c.APIURL, "")

	fs.StringVar(&c.StatePath, "state", c.StatePath, "")
	fs.StringVar(&c.StatePath, "s", c.StatePath, "")

	fs.DurationVar(&c.Timeout, "timeout", c.Timeout, "")
	fs.DurationVar(&c.Timeout, "t", c.Timeout, "")

	fs.IntVar(&c.PageSize, "page-size", c.PageSize, "")
	fs.IntVar(&c.PageSize, "n", c.PageSize, "")

	fs.DurationVar(&c.PollInterval, "interval", c.PollInterval, "")
	fs.DurationVar(&c.PollInterval, "i", c.PollInterval, "")

	fs.StringVar(&c.LogPath, "log", c.LogPath, "")
	fs.StringVar(&c.LogPath, "l", c.LogPath, "")
}

// Validate checks the settings.
func (c Config) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("api url must be an http(s) URL, got %q", c.APIURL)
	}
	if c.StatePath == "" {
		return errors.New("state path must not be empty")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %s", c.Timeout)
	}
	if c.PageSize < 1 || c.PageSize > 100 {
		return fmt.Errorf("page size must be between 1 and 100, got %d", c.PageSize)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %s", c.PollInterval)
	}
	if c.Debounce < 0 || c.Highlight < 0 {
		return errors.New("debounce and highlight must not be negative")
	}
	if (c.TelegramToken == "") != (c.TelegramChatID == 0) {
		return fmt.Errorf("%s and %s must be set together", EnvTelegramToken, EnvTelegramChatID)
	}
	return nil
}

// TelegramEnabled reports whether low-stock alerts should go to Telegram.
func (c Config) TelegramEnabled() bool {
	return c.TelegramToken != "" && c.TelegramChatID != 0
}
