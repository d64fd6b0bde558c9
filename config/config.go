package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g.
// RIGDASH_BACKEND_URL for backend.url
const EnvPrefix = "RIGDASH"

// Config represents the complete console configuration
type Config struct {
	Backend BackendConfig `mapstructure:"backend"`
	Console ConsoleConfig `mapstructure:"console"`
	Prefs   PrefsConfig   `mapstructure:"prefs"`
	Stream  StreamConfig  `mapstructure:"stream"`
	Log     LogConfig     `mapstructure:"log"`
}

// BackendConfig locates the rig backend
type BackendConfig struct {
	URL  string `mapstructure:"url"`
	Path string `mapstructure:"path"`
}

// ConsoleConfig contains the operator console server settings
type ConsoleConfig struct {
	Listen       string   `mapstructure:"listen"`
	PasswordHash string   `mapstructure:"password_hash"`
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// PrefsConfig locates the persisted UI preferences
type PrefsConfig struct {
	Path string `mapstructure:"path"`
}

// StreamConfig contains telemetry stream timing
type StreamConfig struct {
	ReconnectDelay time.Duration `mapstructure:"reconnect_delay"`
	StaleAfter     time.Duration `mapstructure:"stale_after"`
	PollInterval   time.Duration `mapstructure:"poll_interval"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
	Access      bool   `mapstructure:"access"`
}

// AuthEnabled reports whether console routes require basic auth
func (c ConsoleConfig) AuthEnabled() bool {
	return c.PasswordHash != ""
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("backend.url", "http://127.0.0.1:8000")
	v.SetDefault("backend.path", "")
	v.SetDefault("console.listen", ":8090")
	v.SetDefault("console.password_hash", "")
	v.SetDefault("console.allow_origins", []string{"*"})
	v.SetDefault("prefs.path", "rigdash-prefs.yaml")
	v.SetDefault("stream.reconnect_delay", 5*time.Second)
	v.SetDefault("stream.stale_after", 30*time.Second)
	v.SetDefault("stream.poll_interval", 10*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
	v.SetDefault("log.access", true)
}

// Load reads the optional YAML file at path, applies RIGDASH_ environment
// overrides and validates the result. An empty path uses defaults and
// environment only.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Backend.URL = strings.TrimRight(cfg.Backend.URL, "/")
	cfg.Backend.Path = strings.TrimRight(cfg.Backend.Path, "/")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings the console cannot start without
func (c *Config) Validate() error {
	u, err := url.Parse(c.Backend.URL)
	if err != nil || u.Host == "" {
		return fmt.Errorf("backend.url %q is not an absolute URL", c.Backend.URL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("backend.url scheme must be http or https, got %q", u.Scheme)
	}
	if c.Backend.Path != "" && !strings.HasPrefix(c.Backend.Path, "/") {
		return fmt.Errorf("backend.path %q must start with /", c.Backend.Path)
	}
	if c.Console.Listen == "" {
		return errors.New("console.listen is required")
	}
	if c.Stream.ReconnectDelay <= 0 || c.Stream.StaleAfter <= 0 || c.Stream.PollInterval <= 0 {
		return errors.New("stream durations must be positive")
	}
	return nil
}
