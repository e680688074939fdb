package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Config holds all configuration (file + env overrides)
type Config struct {
	Server struct {
		Addr     string `mapstructure:"addr"`
		LogLevel string `mapstructure:"log_level"`
	} `mapstructure:"server"`

	Poll struct {
		IntervalSeconds int `mapstructure:"interval_seconds"`
	} `mapstructure:"poll"`

	Weather Weather `mapstructure:"weather"`

	// flat layout kept for older config files
	APIKey   string `mapstructure:"api_key"`
	Location string `mapstructure:"location"`

	Apply struct {
		Commands []string `mapstructure:"commands"`
	} `mapstructure:"apply"`

	Rules struct {
		Source string `mapstructure:"source" validate:"omitempty,oneof=file postgres"`
	} `mapstructure:"rules"`

	Postgres struct {
		Host         string `mapstructure:"host"`
		Port         int    `mapstructure:"port"`
		User         string `mapstructure:"user"`
		Password     string `mapstructure:"password"`
		DBName       string `mapstructure:"db_name"`
		SSLMode      string `mapstructure:"ssl_mode"`
		MaxOpenConns int    `mapstructure:"max_open_conns"`
		MaxIdleConns int    `mapstructure:"max_idle_conns"`
	} `mapstructure:"postgres"`

	Listener struct {
		Channel          string `mapstructure:"channel"`
		ReconnectSeconds int    `mapstructure:"reconnect_seconds"`
	} `mapstructure:"listener"`

	Items []Item `mapstructure:"items" validate:"dive"`
}

// Weather holds the weather provider settings.
type Weather struct {
	APIKey         string `mapstructure:"api_key"`
	Location       string `mapstructure:"location"`
	BaseURL        string `mapstructure:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// Item is one configured wallpaper rule. Inverted windows wrap around.
type Item struct {
	StartHour     int    `mapstructure:"start_hour" validate:"min=0,max=23"`
	EndHour       int    `mapstructure:"end_hour" validate:"min=0,max=23"`
	StartMonth    int    `mapstructure:"start_month" validate:"min=1,max=12"`
	EndMonth      int    `mapstructure:"end_month" validate:"min=1,max=12"`
	Weather       string `mapstructure:"weather" validate:"required"`
	WallpaperPath string `mapstructure:"wallpaper_path" validate:"required"`
}

const (
	SourceFile     = "file"
	SourcePostgres = "postgres"

	DefaultFileName = "wallpaper_config.json"
)

// DefaultApplyCommands sets both the light and dark GNOME background.
var DefaultApplyCommands = []string{
	"gsettings set org.gnome.desktop.background picture-uri {uri}",
	"gsettings set org.gnome.desktop.background picture-uri-dark {uri}",
}

var validate = validator.New()

// envDefaults registers every scalar leaf key with a typed zero value;
// AutomaticEnv only reaches keys viper already knows about.
var envDefaults = map[string]any{
	"server.addr":                "",
	"server.log_level":           "",
	"poll.interval_seconds":      0,
	"weather.api_key":            "",
	"weather.location":           "",
	"weather.base_url":           "",
	"weather.timeout_seconds":    0,
	"api_key":                    "",
	"location":                   "",
	"rules.source":               "",
	"postgres.host":              "",
	"postgres.port":              0,
	"postgres.user":              "",
	"postgres.password":          "",
	"postgres.db_name":           "",
	"postgres.ssl_mode":          "",
	"postgres.max_open_conns":    0,
	"postgres.max_idle_conns":    0,
	"listener.channel":           "",
	"listener.reconnect_seconds": 0,
}

// DefaultPath is <user config dir>/weather-wallpaper/wallpaper_config.json.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "weather-wallpaper", DefaultFileName)
}

// Loader reads one config file with WALLPAPER_ env overrides and can watch it.
type Loader struct {
	v    *viper.Viper
	path string
	mu   sync.Mutex
}

func NewLoader(path string) *Loader {
	if path == "" {
		path = DefaultPath()
	}
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("WALLPAPER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for k, def := range envDefaults {
		v.SetDefault(k, def)
	}
	return &Loader{v: v, path: path}
}

func (l *Loader) Path() string { return l.path }

// Load reads the file and returns a validated config with defaults applied.
// A missing file is not an error; env can fully configure.
func (l *Loader) Load() (Config, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var cfg Config
	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("read config %s: %w", l.path, err)
		}
		log.Warn().Str("path", l.path).Msg("config file not found")
	}
	if err := l.v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("unable to decode config: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Watch calls onChange with every config that loads cleanly after the file changes.
// Broken edits are logged and skipped so the last good config stays in effect.
func (l *Loader) Watch(onChange func(Config)) {
	l.v.OnConfigChange(func(e fsnotify.Event) {
		log.Info().Str("path", e.Name).Str("op", e.Op.String()).Msg("reloading config")
		cfg, err := l.Load()
		if err != nil {
			log.Error().Err(err).Msg("failed to reload config")
			return
		}
		onChange(cfg)
	})
	l.v.WatchConfig()
}

// Validate checks rule bounds and fills in defaults.
func Validate(c *Config) error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Server.Addr == "" { c.Server.Addr = ":8080" }
	if c.Poll.IntervalSeconds <= 0 { c.Poll.IntervalSeconds = 300 }
	if c.Weather.APIKey == "" { c.Weather.APIKey = c.APIKey }
	if c.Weather.Location == "" { c.Weather.Location = c.Location }
	if c.Weather.BaseURL == "" { c.Weather.BaseURL = "http://api.weatherapi.com/v1" }
	if c.Weather.TimeoutSeconds <= 0 { c.Weather.TimeoutSeconds = 10 }
	if len(c.Apply.Commands) == 0 { c.Apply.Commands = slices.Clone(DefaultApplyCommands) }
	if c.Rules.Source == "" { c.Rules.Source = SourceFile }
	if c.Postgres.Port == 0 { c.Postgres.Port = 5432 }
	if c.Postgres.SSLMode == "" { c.Postgres.SSLMode = "disable" }
	if c.Postgres.MaxOpenConns == 0 { c.Postgres.MaxOpenConns = 10 }
	if c.Postgres.MaxIdleConns == 0 { c.Postgres.MaxIdleConns = 10 }
	if c.Listener.Channel == "" { c.Listener.Channel = "wallpaper_rules_changed" }
	if c.Listener.ReconnectSeconds <= 0 { c.Listener.ReconnectSeconds = 5 }
	return nil
}

func (c Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Postgres.User,
		c.Postgres.Password,
		c.Postgres.Host,
		c.Postgres.Port,
		c.Postgres.DBName,
		c.Postgres.SSLMode,
	)
}

func (c Config) Backoff() time.Duration { return time.Duration(c.Listener.ReconnectSeconds) * time.Second }

func (c Config) PollInterval() time.Duration { return time.Duration(c.Poll.IntervalSeconds) * time.Second }

func (w Weather) Timeout() time.Duration { return time.Duration(w.TimeoutSeconds) * time.Second }

// Configured reports whether the weather provider can be queried.
func (w Weather) Configured() bool { return w.APIKey != "" && w.Location != "" }
