// Package config loads envoy configuration from YAML, JSON, or TOML files,
// applies environment overlays and ${VAR} expansion, and finalizes defaults.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/JaimeStill/envoy/pkg/cache"
	"github.com/JaimeStill/envoy/pkg/database"
	"github.com/JaimeStill/envoy/pkg/storage"
)

const (
	BaseConfigFile  = "config.yaml"
	LocalConfigFile = "config.local.yaml"

	EnvConfig                = "ENVOY_CONFIG"
	EnvEnvoyEnv              = "ENVOY_ENV"
	EnvOutputDir             = "ENVOY_OUTPUT_DIR"
	EnvShutdownTimeout       = "ENVOY_SHUTDOWN_TIMEOUT"
	EnvInputStrict           = "ENVOY_INPUT_STRICT"
	EnvAPIMaxRetries         = "ENVOY_API_MAX_RETRIES"
	EnvAPIRetryDelay         = "ENVOY_API_RETRY_DELAY"
	EnvAPITimeout            = "ENVOY_API_TIMEOUT"
	EnvLogLevel              = "ENVOY_LOG_LEVEL"
	EnvLogFormat             = "ENVOY_LOG_FORMAT"
	EnvLogFile               = "ENVOY_LOG_FILE"
	EnvImagesContinueOnError = "ENVOY_IMAGES_CONTINUE_ON_ERROR"
	EnvOutputFormat          = "ENVOY_OUTPUT_FORMAT"
	EnvMetricsTextfile       = "ENVOY_METRICS_TEXTFILE"
)

var cacheEnv = &cache.Env{
	Enabled:       "ENVOY_CACHE_ENABLED",
	TTL:           "ENVOY_CACHE_TTL",
	Backend:       "ENVOY_CACHE_BACKEND",
	RedisAddr:     "ENVOY_CACHE_REDIS_ADDR",
	RedisPassword: "ENVOY_CACHE_REDIS_PASSWORD",
	Storage: &storage.Env{
		Backend:          "ENVOY_CACHE_STORAGE_BACKEND",
		Path:             "ENVOY_CACHE_DIR",
		ContainerName:    "ENVOY_CACHE_CONTAINER_NAME",
		ConnectionString: "ENVOY_CACHE_CONNECTION_STRING",
		AccountURL:       "ENVOY_CACHE_ACCOUNT_URL",
		MaxListSize:      "ENVOY_CACHE_MAX_LIST_SIZE",
	},
	Database: &database.Env{
		URL:             "ENVOY_DB_DSN",
		Host:            "ENVOY_DB_HOST",
		Port:            "ENVOY_DB_PORT",
		Name:            "ENVOY_DB_NAME",
		User:            "ENVOY_DB_USER",
		Password:        "ENVOY_DB_PASSWORD",
		SSLMode:         "ENVOY_DB_SSL_MODE",
		MaxOpenConns:    "ENVOY_DB_MAX_OPEN_CONNS",
		MaxIdleConns:    "ENVOY_DB_MAX_IDLE_CONNS",
		ConnMaxLifetime: "ENVOY_DB_CONN_MAX_LIFETIME",
		ConnTimeout:     "ENVOY_DB_CONN_TIMEOUT",
	},
}

// Config is the root configuration.
type Config struct {
	OutputDir       string                 `yaml:"output_dir"`
	ShutdownTimeout string                 `yaml:"shutdown_timeout"`
	Models          map[string]ModelConfig `yaml:"models"`
	Agents          map[string]AgentConfig `yaml:"agents"`
	Validation      ValidationConfig       `yaml:"validation"`
	API             APIConfig              `yaml:"api"`
	Logging         LoggingConfig          `yaml:"logging"`
	Cache           cache.Config           `yaml:"cache"`
	Images          ImagesConfig           `yaml:"images"`
	Output          OutputConfig           `yaml:"output"`
	Metrics         MetricsConfig          `yaml:"metrics"`

	// Path is the file the base configuration was read from, if any.
	Path string `yaml:"-"`
	// Dir resolves relative agent config paths; it is the directory of Path.
	Dir string `yaml:"-"`
	// Skipped lists disabled models and agents dropped during finalize.
	Skipped []string `yaml:"-"`
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, _ := parseDuration(c.ShutdownTimeout)
	return d
}

// Load reads the configuration file chosen by path, ENVOY_CONFIG,
// config.local.yaml, or config.yaml (first that applies), merges the
// config.<ENVOY_ENV>.<ext> overlay when present, and finalizes all values.
// A .env file in the working directory is loaded into the environment first.
// With no explicit path and no file on disk, defaults and environment
// variables provide all configuration.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	path, explicit := selectPath(path)

	cfg := &Config{}
	if path != "" {
		if _, err := os.Stat(path); err == nil || explicit {
			loaded, err := load(path)
			if err != nil {
				return nil, err
			}
			cfg = loaded
			cfg.Path = path
		}
	}

	if overlay := overlayPath(cfg.Path); overlay != "" {
		o, err := load(overlay)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", overlay, err)
		}
		cfg.Merge(o)
	}

	if err := cfg.finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sections.
// Models and agents are merged by name.
func (c *Config) Merge(overlay *Config) {
	if overlay.OutputDir != "" {
		c.OutputDir = overlay.OutputDir
	}
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	if len(overlay.Models) > 0 && c.Models == nil {
		c.Models = make(map[string]ModelConfig)
	}
	for name, m := range overlay.Models {
		c.Models[name] = m
	}
	if len(overlay.Agents) > 0 && c.Agents == nil {
		c.Agents = make(map[string]AgentConfig)
	}
	for name, a := range overlay.Agents {
		c.Agents[name] = a
	}
	c.Validation.Merge(&overlay.Validation)
	c.API.Merge(&overlay.API)
	c.Logging.Merge(&overlay.Logging)
	c.Cache.Merge(&overlay.Cache)
	c.Images.Merge(&overlay.Images)
	c.Output.Merge(&overlay.Output)
	if overlay.Metrics.Textfile != "" {
		c.Metrics.Textfile = overlay.Metrics.Textfile
	}
}

// ModelNames returns the enabled model names in sorted order.
func (c *Config) ModelNames() []string {
	return sortedNames(c.Models)
}

// AgentNames returns the enabled agent names in sorted order.
func (c *Config) AgentNames() []string {
	return sortedNames(c.Agents)
}

// LogSkipped reports the models and agents dropped because they are disabled.
func (c *Config) LogSkipped(logger *slog.Logger) {
	for _, name := range c.Skipped {
		logger.Debug("skipping disabled entry", "name", name)
	}
}

func (c *Config) finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.API.Finalize(); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	if err := c.Logging.Finalize(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	if err := c.Cache.Finalize(cacheEnv); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	if err := c.Images.Finalize(); err != nil {
		return fmt.Errorf("images: %w", err)
	}
	if err := c.Output.Finalize(); err != nil {
		return fmt.Errorf("output: %w", err)
	}

	c.filterDisabled()

	for _, name := range c.ModelNames() {
		m := c.Models[name]
		if err := m.Finalize(); err != nil {
			return fmt.Errorf("model %s: %w", name, err)
		}
		c.Models[name] = m
	}
	for _, name := range c.AgentNames() {
		a := c.Agents[name]
		if err := a.validate(); err != nil {
			return fmt.Errorf("agent %s: %w", name, err)
		}
	}
	return nil
}

func (c *Config) loadDefaults() {
	if c.OutputDir == "" {
		c.OutputDir = "output"
	}
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "10s"
	}
	if c.Dir == "" && c.Path != "" {
		c.Dir = filepath.Dir(c.Path)
	}
}

func (c *Config) loadEnv() {
	if v := os.Getenv(EnvOutputDir); v != "" {
		c.OutputDir = v
	}
	if v := os.Getenv(EnvShutdownTimeout); v != "" {
		c.ShutdownTimeout = v
	}
	if v := os.Getenv(EnvMetricsTextfile); v != "" {
		c.Metrics.Textfile = v
	}
	c.Validation.loadEnv()
}

func (c *Config) validate() error {
	if _, err := parseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}
	return nil
}

func (c *Config) filterDisabled() {
	for name, m := range c.Models {
		if !m.IsEnabled() {
			delete(c.Models, name)
			c.Skipped = append(c.Skipped, "model:"+name)
		}
	}
	for name, a := range c.Agents {
		if !a.IsEnabled() {
			delete(c.Agents, name)
			c.Skipped = append(c.Skipped, "agent:"+name)
		}
	}
	slices.Sort(c.Skipped)
}

// load decodes path by extension, expands ${VAR} references non-strictly,
// and decodes the result into a Config.
func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	raw := make(map[string]any)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, &raw)
	case ".yaml", ".yml", ".json":
		err = yaml.Unmarshal(data, &raw)
	default:
		return nil, fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	expanded, err := Expand(raw, false)
	if err != nil {
		return nil, fmt.Errorf("expand config: %w", err)
	}

	normalized, err := yaml.Marshal(expanded)
	if err != nil {
		return nil, fmt.Errorf("normalize config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(normalized, &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	return &cfg, nil
}

func selectPath(path string) (string, bool) {
	if path != "" {
		return path, true
	}
	if env := os.Getenv(EnvConfig); env != "" {
		return env, true
	}
	if _, err := os.Stat(LocalConfigFile); err == nil {
		return LocalConfigFile, false
	}
	return BaseConfigFile, false
}

// overlayPath returns config.<ENVOY_ENV><ext> next to base when it exists.
func overlayPath(base string) string {
	env := os.Getenv(EnvEnvoyEnv)
	if env == "" {
		return ""
	}

	ext := ".yaml"
	dir := "."
	if base != "" {
		ext = filepath.Ext(base)
		dir = filepath.Dir(base)
	}

	path := filepath.Join(dir, fmt.Sprintf("config.%s%s", env, ext))
	if _, err := os.Stat(path); err == nil {
		return path
	}
	return ""
}

func sortedNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// DatabaseDSN returns the connection string for the PostgreSQL cache
// backend, applying database defaults and ENVOY_DB_* overrides even when
// another backend is selected.
func (c *Config) DatabaseDSN() (string, error) {
	db := c.Cache.Database
	if err := db.Finalize(cacheEnv.Database); err != nil {
		return "", fmt.Errorf("database: %w", err)
	}
	return db.Dsn(), nil
}
