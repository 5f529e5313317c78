package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/JaimeStill/envoy/pkg/formatting"
)

// ValidationConfig toggles the validation layers.
type ValidationConfig struct {
	PromptTemplateValidation *bool `yaml:"prompt_template_validation"`
	InputValidation          *bool `yaml:"input_validation"`
	InputStrict              bool  `yaml:"input_strict"`
	OutputValidation         *bool `yaml:"output_validation"`
}

// TemplateEnabled reports whether template-reference validation runs.
func (c *ValidationConfig) TemplateEnabled() bool { return enabled(c.PromptTemplateValidation) }

// InputEnabled reports whether input-completeness validation runs.
func (c *ValidationConfig) InputEnabled() bool { return enabled(c.InputValidation) }

// OutputEnabled reports whether output-completeness validation runs.
func (c *ValidationConfig) OutputEnabled() bool { return enabled(c.OutputValidation) }

// Merge overwrites fields set in overlay.
func (c *ValidationConfig) Merge(overlay *ValidationConfig) {
	if overlay.PromptTemplateValidation != nil {
		c.PromptTemplateValidation = overlay.PromptTemplateValidation
	}
	if overlay.InputValidation != nil {
		c.InputValidation = overlay.InputValidation
	}
	if overlay.OutputValidation != nil {
		c.OutputValidation = overlay.OutputValidation
	}
	if overlay.InputStrict {
		c.InputStrict = true
	}
}

func (c *ValidationConfig) loadEnv() {
	if v, ok := envBool(EnvInputStrict); ok {
		c.InputStrict = v
	}
}

// APIConfig governs model invocation retries and timeouts.
// Durations accept Go syntax ("2s") or bare seconds ("2").
type APIConfig struct {
	MaxRetries int    `yaml:"max_retries"`
	RetryDelay string `yaml:"retry_delay"`
	Timeout    string `yaml:"timeout"`
}

// RetryDelayDuration returns RetryDelay as a time.Duration.
func (c *APIConfig) RetryDelayDuration() time.Duration {
	d, _ := parseDuration(c.RetryDelay)
	return d
}

// TimeoutDuration returns Timeout as a time.Duration.
func (c *APIConfig) TimeoutDuration() time.Duration {
	d, _ := parseDuration(c.Timeout)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *APIConfig) Finalize() error {
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.RetryDelay == "" {
		c.RetryDelay = "2s"
	}
	if c.Timeout == "" {
		c.Timeout = "60s"
	}

	if v := os.Getenv(EnvAPIMaxRetries); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxRetries = n
		}
	}
	if v := os.Getenv(EnvAPIRetryDelay); v != "" {
		c.RetryDelay = v
	}
	if v := os.Getenv(EnvAPITimeout); v != "" {
		c.Timeout = v
	}

	if c.MaxRetries < 1 {
		return fmt.Errorf("max_retries must be at least 1, got %d", c.MaxRetries)
	}
	if _, err := parseDuration(c.RetryDelay); err != nil {
		return fmt.Errorf("invalid retry_delay: %w", err)
	}
	if _, err := parseDuration(c.Timeout); err != nil {
		return fmt.Errorf("invalid timeout: %w", err)
	}
	return nil
}

// Merge overwrites non-zero fields from overlay.
func (c *APIConfig) Merge(overlay *APIConfig) {
	if overlay.MaxRetries != 0 {
		c.MaxRetries = overlay.MaxRetries
	}
	if overlay.RetryDelay != "" {
		c.RetryDelay = overlay.RetryDelay
	}
	if overlay.Timeout != "" {
		c.Timeout = overlay.Timeout
	}
}

// LoggingConfig selects the log level, handler format, and optional file.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *LoggingConfig) Finalize() error {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = "text"
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Level = v
	}
	if v := os.Getenv(EnvLogFormat); v != "" {
		c.Format = v
	}
	if v := os.Getenv(EnvLogFile); v != "" {
		c.File = v
	}

	c.Level = strings.ToLower(c.Level)
	switch c.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("unknown level %q", c.Level)
	}
	if c.Format != "text" && c.Format != "json" {
		return fmt.Errorf("format must be text or json, got %q", c.Format)
	}
	return nil
}

// Merge overwrites non-zero fields from overlay.
func (c *LoggingConfig) Merge(overlay *LoggingConfig) {
	if overlay.Level != "" {
		c.Level = overlay.Level
	}
	if overlay.Format != "" {
		c.Format = overlay.Format
	}
	if overlay.File != "" {
		c.File = overlay.File
	}
}

// ImagesConfig governs image failure policy and remote downloads.
type ImagesConfig struct {
	ContinueOnError bool   `yaml:"continue_on_error"`
	DownloadTimeout string `yaml:"download_timeout"`
	MaxDownloadSize string `yaml:"max_download_size"`
}

// DownloadTimeoutDuration returns DownloadTimeout as a time.Duration.
func (c *ImagesConfig) DownloadTimeoutDuration() time.Duration {
	d, _ := parseDuration(c.DownloadTimeout)
	return d
}

// MaxDownloadBytes returns MaxDownloadSize in bytes.
func (c *ImagesConfig) MaxDownloadBytes() int64 {
	n, err := formatting.ParseBytes(c.MaxDownloadSize)
	if err != nil {
		return 20 * 1024 * 1024
	}
	return n
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *ImagesConfig) Finalize() error {
	if c.DownloadTimeout == "" {
		c.DownloadTimeout = "30s"
	}
	if c.MaxDownloadSize == "" {
		c.MaxDownloadSize = "20MB"
	}
	if v, ok := envBool(EnvImagesContinueOnError); ok {
		c.ContinueOnError = v
	}

	if _, err := parseDuration(c.DownloadTimeout); err != nil {
		return fmt.Errorf("invalid download_timeout: %w", err)
	}
	if _, err := formatting.ParseBytes(c.MaxDownloadSize); err != nil {
		return fmt.Errorf("invalid max_download_size: %w", err)
	}
	return nil
}

// Merge overwrites non-zero fields from overlay.
func (c *ImagesConfig) Merge(overlay *ImagesConfig) {
	if overlay.ContinueOnError {
		c.ContinueOnError = true
	}
	if overlay.DownloadTimeout != "" {
		c.DownloadTimeout = overlay.DownloadTimeout
	}
	if overlay.MaxDownloadSize != "" {
		c.MaxDownloadSize = overlay.MaxDownloadSize
	}
}

// OutputConfig selects the result document format.
type OutputConfig struct {
	Format          string `yaml:"format"`
	LengthThreshold int    `yaml:"length_threshold"`
}

// Finalize applies defaults and environment variable overrides.
// Format names are validated by the output package.
func (c *OutputConfig) Finalize() error {
	if c.Format == "" {
		c.Format = "auto"
	}
	if c.LengthThreshold == 0 {
		c.LengthThreshold = 500
	}
	if v := os.Getenv(EnvOutputFormat); v != "" {
		c.Format = v
	}
	c.Format = strings.ToLower(c.Format)
	if c.LengthThreshold < 0 {
		return fmt.Errorf("length_threshold must not be negative")
	}
	return nil
}

// Merge overwrites non-zero fields from overlay.
func (c *OutputConfig) Merge(overlay *OutputConfig) {
	if overlay.Format != "" {
		c.Format = overlay.Format
	}
	if overlay.LengthThreshold != 0 {
		c.LengthThreshold = overlay.LengthThreshold
	}
}

// MetricsConfig enables the Prometheus textfile export when Textfile is set.
type MetricsConfig struct {
	Textfile string `yaml:"textfile"`
}

func enabled(b *bool) bool {
	return b == nil || *b
}

func envBool(name string) (bool, bool) {
	v := os.Getenv(name)
	if v == "" {
		return false, false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, false
	}
	return b, true
}

// parseDuration accepts Go duration syntax or a bare number of seconds.
func parseDuration(s string) (time.Duration, error) {
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	return time.ParseDuration(s)
}
