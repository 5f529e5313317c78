package workflow

import (
	"log/slog"
	"time"

	"github.com/JaimeStill/envoy/internal/agents"
	"github.com/JaimeStill/envoy/internal/config"
	"github.com/JaimeStill/envoy/internal/images"
	"github.com/JaimeStill/envoy/internal/model"
	"github.com/JaimeStill/envoy/internal/validation"
)

// Observer receives the outcome of every run.
type Observer interface {
	ObserveRun(agent, status string, d time.Duration)
}

// Runtime bundles the dependencies a run requires.
// It is constructed by the command layer from configuration and infrastructure.
type Runtime struct {
	Agent      *agents.Agent
	Client     model.Client
	Images     *images.Processor
	Validation config.ValidationConfig
	Input      validation.InputPolicy

	// ContinueOnImageError skips failing images instead of aborting the run.
	ContinueOnImageError bool

	Observer Observer
	Logger   *slog.Logger
	Now      func() time.Time
}

// ImageOptions derives image processing options from a model and the
// images configuration section.
func ImageOptions(m config.ModelConfig, ic config.ImagesConfig) images.Options {
	return images.Options{
		MaxDimension:     m.MaxImageSize,
		Quality:          m.ImageQuality,
		Resize:           m.ResizeImageForAPI,
		Download:         m.DownloadImages,
		DownloadTimeout:  ic.DownloadTimeoutDuration(),
		MaxDownloadBytes: ic.MaxDownloadBytes(),
	}
}

// ModelPolicy derives the invocation policy from the api configuration section.
func ModelPolicy(api config.APIConfig) model.Policy {
	return model.Policy{
		MaxAttempts: api.MaxRetries,
		Delay:       api.RetryDelayDuration(),
		Timeout:     api.TimeoutDuration(),
	}
}

func (rt *Runtime) now() time.Time {
	if rt.Now != nil {
		return rt.Now()
	}
	return time.Now()
}
