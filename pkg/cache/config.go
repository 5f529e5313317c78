package cache

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/JaimeStill/envoy/pkg/database"
	"github.com/JaimeStill/envoy/pkg/storage"
)

// DefaultTTL is applied when no ttl is configured.
const DefaultTTL = 86400

// Config selects the cache backend and entry lifetime.
// TTL is expressed in seconds.
type Config struct {
	Enabled  bool            `yaml:"enabled" json:"enabled"`
	TTL      int             `yaml:"ttl" json:"ttl"`
	Backend  string          `yaml:"backend" json:"backend"`
	Storage  storage.Config  `yaml:"storage" json:"storage"`
	Redis    RedisConfig     `yaml:"redis" json:"redis"`
	Database database.Config `yaml:"database" json:"database"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Enabled       string
	TTL           string
	Backend       string
	RedisAddr     string
	RedisPassword string
	Storage       *storage.Env
	Database      *database.Env
}

// TTLDuration returns TTL as a time.Duration.
func (c *Config) TTLDuration() time.Duration {
	return time.Duration(c.TTL) * time.Second
}

// Finalize applies defaults, environment variable overrides, and validation.
// Nested backend configs are finalized only for the selected backend.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	c.normalize()
	if err := c.validate(); err != nil {
		return err
	}

	var (
		storageEnv  *storage.Env
		databaseEnv *database.Env
	)
	if env != nil {
		storageEnv, databaseEnv = env.Storage, env.Database
	}

	switch c.Backend {
	case BackendFile:
		if err := c.Storage.Finalize(storageEnv); err != nil {
			return fmt.Errorf("storage: %w", err)
		}
	case BackendPostgres:
		if err := c.Database.Finalize(databaseEnv); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	case BackendRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis: addr required")
		}
	}
	return nil
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.Enabled {
		c.Enabled = true
	}
	if overlay.TTL != 0 {
		c.TTL = overlay.TTL
	}
	if overlay.Backend != "" {
		c.Backend = overlay.Backend
	}
	if overlay.Redis.Addr != "" {
		c.Redis = overlay.Redis
	}
	c.Storage.Merge(&overlay.Storage)
	c.Database.Merge(&overlay.Database)
}

func (c *Config) loadDefaults() {
	if c.TTL == 0 {
		c.TTL = DefaultTTL
	}
	if c.Backend == "" {
		c.Backend = BackendFile
	}
}

// normalize folds blob storage backend names into the file backend.
func (c *Config) normalize() {
	switch c.Backend {
	case storage.BackendLocal:
		c.Backend = BackendFile
		c.Storage.Backend = storage.BackendLocal
	case storage.BackendAzure:
		c.Backend = BackendFile
		c.Storage.Backend = storage.BackendAzure
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.Enabled != "" {
		if v := os.Getenv(env.Enabled); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				c.Enabled = b
			}
		}
	}
	if env.TTL != "" {
		if v := os.Getenv(env.TTL); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.TTL = n
			}
		}
	}
	if env.Backend != "" {
		if v := os.Getenv(env.Backend); v != "" {
			c.Backend = v
		}
	}
	if env.RedisAddr != "" {
		if v := os.Getenv(env.RedisAddr); v != "" {
			c.Redis.Addr = v
		}
	}
	if env.RedisPassword != "" {
		if v := os.Getenv(env.RedisPassword); v != "" {
			c.Redis.Password = v
		}
	}
}

func (c *Config) validate() error {
	if c.TTL <= 0 {
		return fmt.Errorf("ttl must be positive, got %d", c.TTL)
	}
	switch c.Backend {
	case BackendFile, BackendMemory, BackendRedis, BackendPostgres:
		return nil
	default:
		return fmt.Errorf("unsupported backend %q", c.Backend)
	}
}
