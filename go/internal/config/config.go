// Package config loads screen agent settings from a YAML file and the
// environment. Environment variables win over the file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mcdev12/slotsync/go/internal/queuesync"
	"github.com/mcdev12/slotsync/go/internal/session"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

const (
	SessionBackendMemory   = "memory"
	SessionBackendFile     = "file"
	SessionBackendRedis    = "redis"
	SessionBackendPostgres = "postgres"

	JournalBackendMemory   = "memory"
	JournalBackendPostgres = "postgres"
)

type Config struct {
	Screen struct {
		Name string `yaml:"name"`
		Mode string `yaml:"mode"`
	} `yaml:"screen"`

	Server struct {
		URL        string `yaml:"url"`
		ClientName string `yaml:"client_name"`
	} `yaml:"server"`

	Poll struct {
		Interval time.Duration `yaml:"interval"`
		Timeout  time.Duration `yaml:"timeout"`
	} `yaml:"poll"`

	Countdown struct {
		DriftTolerance int `yaml:"drift_tolerance"`
	} `yaml:"countdown"`

	Services struct {
		Catalog        map[string]int `yaml:"catalog"`
		AverageMinutes int            `yaml:"average_minutes"`
		Default        string         `yaml:"default"`
	} `yaml:"services"`

	Actions struct {
		RepeatInterval time.Duration `yaml:"repeat_interval"`
	} `yaml:"actions"`

	Session struct {
		Backend string              `yaml:"backend"`
		File    string              `yaml:"file"`
		Redis   session.RedisConfig `yaml:"redis"`
	} `yaml:"session"`

	Journal struct {
		Backend  string `yaml:"backend"`
		Capacity int    `yaml:"capacity"`
	} `yaml:"journal"`

	Gateway struct {
		Port string `yaml:"port"`
	} `yaml:"gateway"`

	NATS struct {
		URL     string `yaml:"url"`
		Subject string `yaml:"subject"`
	} `yaml:"nats"`

	Database DatabaseConfig `yaml:"database"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// Default returns the settings used when neither file nor environment says
// otherwise.
func Default() *Config {
	c := &Config{}
	c.Screen.Name = "front-desk"
	c.Screen.Mode = string(queuesync.ModeCustomer)
	c.Server.URL = "http://localhost:8000"
	c.Server.ClientName = "slotsync-screen"
	c.Poll.Interval = queuesync.DefaultPollerConfig().Interval
	c.Poll.Timeout = queuesync.DefaultPollerConfig().Timeout
	c.Countdown.DriftTolerance = queuesync.DefaultDriftTolerance
	c.Services.AverageMinutes = queuesync.DefaultAverageMinutes
	c.Services.Default = "Haircut"
	c.Actions.RepeatInterval = 500 * time.Millisecond
	c.Session.Backend = SessionBackendMemory
	c.Session.File = ".slotsync/session.yaml"
	c.Session.Redis.Addr = "localhost:6379"
	c.Journal.Backend = JournalBackendMemory
	c.Journal.Capacity = 200
	c.Gateway.Port = "8080"
	c.NATS.Subject = "slotsync.queue"
	c.Database = defaultDatabase()
	c.Log.Level = "info"
	return c
}

// Load reads path (skipped when empty or missing) over the defaults, then
// applies environment overrides and validates the result.
func Load(path string) (*Config, error) {
	c := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, c); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	c.applyEnv()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) applyEnv() {
	c.Screen.Name = getEnv("SCREEN_NAME", c.Screen.Name)
	c.Screen.Mode = getEnv("SCREEN_MODE", c.Screen.Mode)
	c.Server.URL = getEnv("QUEUE_SERVER_URL", c.Server.URL)
	c.Poll.Interval = getEnvAsDuration("POLL_INTERVAL", c.Poll.Interval)
	c.Poll.Timeout = getEnvAsDuration("POLL_TIMEOUT", c.Poll.Timeout)
	c.Countdown.DriftTolerance = getEnvAsInt("DRIFT_TOLERANCE", c.Countdown.DriftTolerance)
	c.Services.AverageMinutes = getEnvAsInt("AVERAGE_SERVICE_MINUTES", c.Services.AverageMinutes)
	c.Services.Default = getEnv("DEFAULT_SERVICE", c.Services.Default)
	c.Actions.RepeatInterval = getEnvAsDuration("ACTION_REPEAT_INTERVAL", c.Actions.RepeatInterval)
	c.Session.Backend = getEnv("SESSION_BACKEND", c.Session.Backend)
	c.Session.File = getEnv("SESSION_FILE", c.Session.File)
	c.Session.Redis.Addr = getEnv("REDIS_ADDR", c.Session.Redis.Addr)
	c.Session.Redis.Password = getEnv("REDIS_PASSWORD", c.Session.Redis.Password)
	c.Session.Redis.DB = getEnvAsInt("REDIS_DB", c.Session.Redis.DB)
	c.Journal.Backend = getEnv("JOURNAL_BACKEND", c.Journal.Backend)
	c.Gateway.Port = getEnv("PORT", c.Gateway.Port)
	c.NATS.URL = getEnv("NATS_URL", c.NATS.URL)
	c.NATS.Subject = getEnv("NATS_SUBJECT", c.NATS.Subject)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Database.applyEnv()
}

// Validate rejects settings the screen cannot run with.
func (c *Config) Validate() error {
	if _, err := queuesync.ParseMode(c.Screen.Mode); err != nil {
		return err
	}
	if c.Server.URL == "" {
		return errors.New("queue server url is required")
	}
	if c.Poll.Interval <= 0 || c.Poll.Timeout <= 0 {
		return fmt.Errorf("poll interval and timeout must be positive, got %s and %s", c.Poll.Interval, c.Poll.Timeout)
	}
	switch c.Session.Backend {
	case SessionBackendMemory, SessionBackendFile, SessionBackendRedis, SessionBackendPostgres:
	default:
		return fmt.Errorf("unknown session backend %q", c.Session.Backend)
	}
	switch c.Journal.Backend {
	case JournalBackendMemory, JournalBackendPostgres:
	default:
		return fmt.Errorf("unknown journal backend %q", c.Journal.Backend)
	}
	if _, err := zerolog.ParseLevel(strings.ToLower(c.Log.Level)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.Log.Level, err)
	}
	return nil
}

// LogLevel returns the configured zerolog level.
func (c *Config) LogLevel() zerolog.Level {
	level, err := zerolog.ParseLevel(strings.ToLower(c.Log.Level))
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}

// ScreenConfig translates the settings into the sync engine's terms.
func (c *Config) ScreenConfig() queuesync.ScreenConfig {
	sc := queuesync.DefaultScreenConfig()
	sc.Mode = queuesync.Mode(c.Screen.Mode)
	sc.Poller = queuesync.PollerConfig{Interval: c.Poll.Interval, Timeout: c.Poll.Timeout}
	sc.DriftTolerance = c.Countdown.DriftTolerance
	if len(c.Services.Catalog) > 0 {
		sc.Catalog = c.Services.Catalog
	}
	sc.AverageMinutes = c.Services.AverageMinutes
	sc.Dispatcher = queuesync.DispatcherConfig{
		DefaultService: c.Services.Default,
		RepeatInterval: c.Actions.RepeatInterval,
	}
	return sc
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
