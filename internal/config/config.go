package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type SessionBackend string

const (
	SessionMemory SessionBackend = "memory"
	SessionRedis  SessionBackend = "redis"
)

type Config struct {
	ListenAddr string `yaml:"listen"`
	// HostRoot is where the host's /etc lives; "/" outside containers.
	HostRoot   string `yaml:"host_root"`
	SuFallback bool   `yaml:"su_fallback"`
	LogDir     string `yaml:"log_dir"`
	LogLevel   string `yaml:"log_level"`

	Database Database `yaml:"database"`
	Session  Session  `yaml:"session"`
}

type Database struct {
	Driver string `yaml:"driver"` // sqlite|postgres
	DSN    string `yaml:"dsn"`
}

type Session struct {
	Backend      SessionBackend `yaml:"backend"`
	RedisURL     string         `yaml:"redis_url"`
	RedisTTL     time.Duration  `yaml:"redis_ttl"`
	Secret       string         `yaml:"secret"`
	CookieName   string         `yaml:"cookie_name"`
	SecureCookie bool           `yaml:"secure_cookie"`
}

func Default() Config {
	return Config{
		ListenAddr: ":14393",
		HostRoot:   "/",
		SuFallback: true,
		LogLevel:   "info",
		Database: Database{
			Driver: "sqlite",
			DSN:    "macallow.db",
		},
		Session: Session{
			Backend:    SessionMemory,
			RedisURL:   "redis://localhost:6379/0",
			CookieName: "macallow_session",
		},
	}
}

// Load builds the configuration from defaults, the optional YAML file at
// path, and MACALLOW_* environment variables, in that order of precedence.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(b, &cfg); err != nil {
				return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("config: unknown database driver %q", c.Database.Driver)
	}
	if strings.TrimSpace(c.Database.DSN) == "" {
		return errors.New("config: database dsn is required")
	}
	switch c.Session.Backend {
	case SessionMemory:
	case SessionRedis:
		if c.Session.RedisURL == "" {
			return errors.New("config: redis_url is required for the redis session backend")
		}
	default:
		return fmt.Errorf("config: unknown session backend %q", c.Session.Backend)
	}
	if c.Session.CookieName == "" {
		return errors.New("config: cookie_name must not be empty")
	}
	return nil
}

func applyEnv(c *Config) error {
	setString(&c.ListenAddr, "MACALLOW_LISTEN")
	setString(&c.HostRoot, "MACALLOW_HOST_ROOT")
	setString(&c.LogDir, "MACALLOW_LOG_DIR")
	setString(&c.LogLevel, "MACALLOW_LOG_LEVEL")
	setString(&c.Database.Driver, "MACALLOW_DB_DRIVER")
	setString(&c.Database.DSN, "MACALLOW_DB_DSN")
	setString(&c.Session.RedisURL, "MACALLOW_REDIS_URL")
	setString(&c.Session.Secret, "MACALLOW_SESSION_SECRET")
	setString(&c.Session.CookieName, "MACALLOW_COOKIE_NAME")
	if v := os.Getenv("MACALLOW_SESSION_BACKEND"); v != "" {
		c.Session.Backend = SessionBackend(strings.ToLower(v))
	}
	if err := setBool(&c.SuFallback, "MACALLOW_SU_FALLBACK"); err != nil {
		return err
	}
	if err := setBool(&c.Session.SecureCookie, "MACALLOW_SECURE_COOKIE"); err != nil {
		return err
	}
	if v := os.Getenv("MACALLOW_REDIS_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: MACALLOW_REDIS_TTL: %w", err)
		}
		c.Session.RedisTTL = d
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("config: %s: %w", key, err)
	}
	*dst = b
	return nil
}
