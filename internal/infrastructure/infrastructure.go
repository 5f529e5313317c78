// Package infrastructure assembles the shared systems a command needs:
// logging, metrics, lifecycle coordination, and the image cache backend.
package infrastructure

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/JaimeStill/envoy/internal/config"
	"github.com/JaimeStill/envoy/pkg/cache"
	"github.com/JaimeStill/envoy/pkg/database"
	"github.com/JaimeStill/envoy/pkg/lifecycle"
	"github.com/JaimeStill/envoy/pkg/metrics"
	"github.com/JaimeStill/envoy/pkg/storage"
)

// Infrastructure holds the systems shared by every command.
type Infrastructure struct {
	Lifecycle *lifecycle.Coordinator
	Logger    *slog.Logger
	Metrics   *metrics.Recorder
	Cache     *cache.Manager

	starters []starter
}

type starter interface {
	Start(lc *lifecycle.Coordinator) error
}

// New creates an Infrastructure from the application configuration.
// Log output goes to w and, when configured, to the log file. Systems are
// constructed but not started; call Start separately.
func New(ctx context.Context, cfg *config.Config, w io.Writer) (*Infrastructure, error) {
	lc := lifecycle.New(ctx)

	logger, logFile, err := NewLogger(&cfg.Logging, w)
	if err != nil {
		return nil, fmt.Errorf("logger init failed: %w", err)
	}
	if logFile != nil {
		lc.OnShutdown(func() {
			<-lc.Context().Done()
			logFile.Close()
		})
	}

	infra := &Infrastructure{
		Lifecycle: lc,
		Logger:    logger,
		Metrics:   metrics.New(),
	}

	store, err := infra.cacheStore(ctx, &cfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("cache init failed: %w", err)
	}

	infra.Cache = cache.NewManager(
		store,
		cfg.Cache.TTLDuration(),
		cfg.Cache.Enabled,
		logger,
		cache.WithRecorder(infra.Metrics),
	)

	return infra, nil
}

// Start registers the cache backend with the lifecycle coordinator and
// waits for its startup hooks.
func (i *Infrastructure) Start() error {
	for _, s := range i.starters {
		if err := s.Start(i.Lifecycle); err != nil {
			return fmt.Errorf("cache start failed: %w", err)
		}
	}
	return i.Lifecycle.WaitForStartup()
}

// Shutdown cancels the lifecycle context and waits for cleanup hooks.
func (i *Infrastructure) Shutdown(timeout time.Duration) error {
	return i.Lifecycle.Shutdown(timeout)
}

// WriteMetrics exports the collected metrics to path when path is set.
func (i *Infrastructure) WriteMetrics(path string) {
	if path == "" {
		return
	}
	if err := i.Metrics.WriteTextfile(path); err != nil {
		i.Logger.Warn("metrics export failed", "path", path, "error", err)
		return
	}
	i.Logger.Debug("metrics exported", "path", path)
}

// cacheStore builds the configured store. A disabled cache gets a memory
// store so no backend connection is attempted.
func (i *Infrastructure) cacheStore(ctx context.Context, cfg *cache.Config) (cache.Store, error) {
	if !cfg.Enabled {
		return cache.NewMemory(), nil
	}

	switch cfg.Backend {
	case cache.BackendMemory:
		return cache.NewMemory(), nil

	case cache.BackendFile:
		sys, err := storage.New(&cfg.Storage, i.Logger)
		if err != nil {
			return nil, err
		}
		i.starters = append(i.starters, sys)
		return cache.NewBlob(sys), nil

	case cache.BackendPostgres:
		db, err := database.New(&cfg.Database, i.Logger, database.WithTables(cache.PostgresTable))
		if err != nil {
			return nil, err
		}
		i.starters = append(i.starters, db)
		return cache.NewPostgres(db.Connection()), nil

	case cache.BackendRedis:
		store, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		if c, ok := store.(io.Closer); ok {
			i.Lifecycle.OnShutdown(func() {
				<-i.Lifecycle.Context().Done()
				if err := c.Close(); err != nil {
					i.Logger.Error("redis close failed", "error", err)
				}
			})
		}
		return store, nil

	default:
		return nil, fmt.Errorf("unsupported cache backend %q", cfg.Backend)
	}
}

// NewLogger builds the slog logger described by cfg. When cfg.File is set
// records are written to both w and the file; the returned file must be
// closed by the caller.
func NewLogger(cfg *config.LoggingConfig, w io.Writer) (*slog.Logger, *os.File, error) {
	var file *os.File
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create log directory: %w", err)
		}
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		file = f
		w = io.MultiWriter(w, f)
	}

	opts := &slog.HandlerOptions{Level: level(cfg.Level)}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler), file, nil
}

func level(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
