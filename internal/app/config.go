// Package app loads the bot configuration and wires storage, services and
// the Telegram adapter together.
package app

import (
	"fmt"
	"strings"
	"time"

	coreconfig "github.com/ileafrica/ilebot/core/config"
	coredatabase "github.com/ileafrica/ilebot/core/database"
)

// Storage drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSupabase = "supabase"
)

// Session backends.
const (
	SessionMemory = "memory"
	SessionRedis  = "redis"
)

// StorageConfig selects where users and properties live.
type StorageConfig struct {
	Driver string `yaml:"driver" envconfig:"STORAGE_DRIVER"`
}

// SupabaseConfig holds the REST and Storage credentials. Bucket receives the
// submission photos and must be public.
type SupabaseConfig struct {
	URL    string `yaml:"url" envconfig:"SUPABASE_URL"`
	Key    string `yaml:"key" envconfig:"SUPABASE_KEY"`
	Schema string `yaml:"schema" envconfig:"SUPABASE_SCHEMA"`
	Bucket string `yaml:"bucket" envconfig:"SUPABASE_BUCKET"`
}

// SessionConfig selects the draft store.
type SessionConfig struct {
	Backend       string `yaml:"backend" envconfig:"SESSION_BACKEND"`
	RedisAddr     string `yaml:"redis_addr" envconfig:"REDIS_ADDR"`
	RedisPassword string `yaml:"redis_password" envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `yaml:"redis_db" envconfig:"REDIS_DB"`
	RedisPrefix   string `yaml:"redis_prefix" envconfig:"REDIS_PREFIX"`
}

// SubmissionConfig tunes the submission flow.
type SubmissionConfig struct {
	CooldownMinutes int `yaml:"cooldown_minutes" envconfig:"SUBMISSION_COOLDOWN_MINUTES"`
	MaxImages       int `yaml:"max_images" envconfig:"SUBMISSION_MAX_IMAGES"`
	// ListLimit caps the properties shown by listing commands.
	ListLimit int `yaml:"list_limit" envconfig:"SUBMISSION_LIST_LIMIT"`
}

// Cooldown returns the minimum time between two submissions of one user.
func (s SubmissionConfig) Cooldown() time.Duration {
	return time.Duration(s.CooldownMinutes) * time.Minute
}

// Config is the full bot configuration.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Storage    StorageConfig       `yaml:"storage"`
	Database   coredatabase.Config `yaml:"database"`
	Supabase   SupabaseConfig      `yaml:"supabase"`
	Session    SessionConfig       `yaml:"session"`
	Submission SubmissionConfig    `yaml:"submission"`
}

// CoreConfig returns the shared core section.
func (c *Config) CoreConfig() *coreconfig.Config {
	if c == nil {
		return nil
	}
	return &c.Config
}

// Load reads path, overlays the environment and validates the result.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.LoadInto(path, &cfg); err != nil {
		return nil, err
	}
	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates cfg and fills defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	if err := coreconfig.Normalize(&cfg.Config); err != nil {
		return err
	}

	cfg.Storage.Driver = strings.ToLower(strings.TrimSpace(cfg.Storage.Driver))
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = DriverPostgres
	}
	switch cfg.Storage.Driver {
	case DriverMemory:
	case DriverPostgres:
		if cfg.Database.Host == "" || cfg.Database.Name == "" {
			return fmt.Errorf("database.host and database.name are required for the postgres driver")
		}
		if cfg.Database.Port == "" {
			cfg.Database.Port = "5432"
		}
	case DriverSupabase:
		if cfg.Supabase.URL == "" || cfg.Supabase.Key == "" {
			return fmt.Errorf("supabase.url and supabase.key are required for the supabase driver")
		}
	default:
		return fmt.Errorf("invalid storage.driver %q; allowed: memory, postgres, supabase", cfg.Storage.Driver)
	}

	// Photos always go to Supabase Storage unless everything runs in memory.
	if cfg.Storage.Driver != DriverMemory {
		if cfg.Supabase.URL == "" || cfg.Supabase.Key == "" {
			return fmt.Errorf("supabase.url and supabase.key are required for image uploads")
		}
		if cfg.Supabase.Bucket == "" {
			cfg.Supabase.Bucket = "property-images"
		}
	}
	cfg.Supabase.URL = strings.TrimRight(cfg.Supabase.URL, "/")

	cfg.Session.Backend = strings.ToLower(strings.TrimSpace(cfg.Session.Backend))
	switch cfg.Session.Backend {
	case "", SessionMemory:
		cfg.Session.Backend = SessionMemory
	case SessionRedis:
		if cfg.Session.RedisAddr == "" {
			return fmt.Errorf("session.redis_addr is required for the redis backend")
		}
		if cfg.Session.RedisPrefix == "" {
			cfg.Session.RedisPrefix = "ilebot:draft:"
		}
	default:
		return fmt.Errorf("invalid session.backend %q; allowed: memory, redis", cfg.Session.Backend)
	}

	if cfg.Submission.CooldownMinutes < 0 {
		return fmt.Errorf("submission.cooldown_minutes must be >= 0")
	}
	if cfg.Submission.CooldownMinutes == 0 {
		cfg.Submission.CooldownMinutes = 10
	}
	if cfg.Submission.MaxImages < 0 {
		return fmt.Errorf("submission.max_images must be >= 0")
	}
	if cfg.Submission.MaxImages == 0 {
		cfg.Submission.MaxImages = 5
	}
	return nil
}
