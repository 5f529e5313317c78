// Package images prepares image inputs for vision models.
//
// Local files (and remote images when downloading is enabled) are decoded,
// optionally shrunk, re-encoded, and returned as data URIs. Results are
// cached by content key, so an unchanged source with unchanged parameters
// skips decoding entirely. Remote URLs without downloading pass through as
// references.
package images

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/JaimeStill/envoy/pkg/cache"
)

// SupportedFormats lists the accepted local file extensions.
var SupportedFormats = []string{"jpg", "jpeg", "png", "webp", "gif"}

// Options configures a Processor.
type Options struct {
	MaxDimension     int
	Quality          int
	Resize           bool
	Download         bool
	DownloadTimeout  time.Duration
	MaxDownloadBytes int64
}

func (o Options) params() cache.Params {
	return cache.Params{
		MaxDimension: o.MaxDimension,
		Quality:      o.Quality,
		Resize:       o.Resize,
	}
}

// Descriptor is a processed image ready to send to a model. URL is either a
// data URI or, for pass-through references, the original URL.
type Descriptor struct {
	Index         int    `json:"index"`
	Source        string `json:"source"`
	URL           string `json:"-"`
	MimeType      string `json:"mime_type,omitempty"`
	Reference     bool   `json:"reference,omitempty"`
	Cached        bool   `json:"cached,omitempty"`
	OriginalSize  [2]int `json:"original_size,omitzero"`
	ProcessedSize [2]int `json:"processed_size,omitzero"`
}

// Recorder observes image failures.
type Recorder interface {
	ImageFailure()
}

// Option configures a Processor.
type Option func(*Processor)

// WithHTTPClient replaces the client used for downloads.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Processor) { p.client = c }
}

// WithRecorder reports failures to r.
func WithRecorder(r Recorder) Option {
	return func(p *Processor) { p.recorder = r }
}

// Processor turns image sources into Descriptors.
type Processor struct {
	opts     Options
	cache    *cache.Manager
	client   *http.Client
	recorder Recorder
	logger   *slog.Logger
}

// New creates a Processor. A nil cache manager disables caching.
func New(opts Options, mgr *cache.Manager, logger *slog.Logger, options ...Option) *Processor {
	if opts.DownloadTimeout <= 0 {
		opts.DownloadTimeout = 30 * time.Second
	}
	if opts.Quality <= 0 {
		opts.Quality = 85
	}

	p := &Processor{
		opts:   opts,
		cache:  mgr,
		client: http.DefaultClient,
		logger: logger.With("system", "images"),
	}
	for _, o := range options {
		o(p)
	}
	return p
}

// Process prepares the source at position index.
// Failures are returned as *ImageProcessingError.
func (p *Processor) Process(ctx context.Context, index int, source string) (Descriptor, error) {
	d, err := p.process(ctx, index, source)
	if err != nil {
		if p.recorder != nil {
			p.recorder.ImageFailure()
		}
		return Descriptor{}, &ImageProcessingError{Index: index, Source: source, Err: err}
	}
	return d, nil
}

// ProcessAll prepares sources strictly in order. With continueOnError set,
// failing sources are skipped and returned alongside the successes;
// otherwise the first failure aborts and is returned as the error.
func (p *Processor) ProcessAll(ctx context.Context, sources []string, continueOnError bool) ([]Descriptor, []*ImageProcessingError, error) {
	out := make([]Descriptor, 0, len(sources))
	var failures []*ImageProcessingError

	for i, source := range sources {
		if err := ctx.Err(); err != nil {
			return nil, failures, err
		}

		d, err := p.Process(ctx, i, source)
		if err != nil {
			var ipe *ImageProcessingError
			errors.As(err, &ipe)
			if !continueOnError {
				return nil, failures, err
			}
			p.logger.WarnContext(ctx, "skipping image", "index", i+1, "source", source, "error", ipe.Err)
			failures = append(failures, ipe)
			continue
		}

		p.logger.InfoContext(ctx, "image processed",
			"index", i+1,
			"total", len(sources),
			"source", source,
			"cached", d.Cached,
		)
		out = append(out, d)
	}

	return out, failures, nil
}

func (p *Processor) process(ctx context.Context, index int, source string) (Descriptor, error) {
	if IsURL(source) {
		return p.processURL(ctx, index, source)
	}
	return p.processFile(ctx, index, source)
}

func (p *Processor) processFile(ctx context.Context, index int, path string) (Descriptor, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")

	src, err := cache.FileSource(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Descriptor{}, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return Descriptor{}, err
	}
	if !slices.Contains(SupportedFormats, ext) {
		return Descriptor{}, fmt.Errorf("%w: %q (supported: %s)", ErrUnsupportedFormat, ext, strings.Join(SupportedFormats, ", "))
	}

	key := cache.Key(src, p.opts.params())
	if d, ok := p.lookup(ctx, key, index, path); ok {
		return d, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return Descriptor{}, err
	}
	defer f.Close()

	enc, err := transcode(f, p.opts.MaxDimension, p.opts.Quality, p.opts.Resize)
	if err != nil {
		return Descriptor{}, err
	}

	return p.store(ctx, key, index, path, enc), nil
}

func (p *Processor) processURL(ctx context.Context, index int, raw string) (Descriptor, error) {
	u, err := checkScheme(raw)
	if err != nil {
		return Descriptor{}, err
	}

	if !p.opts.Download {
		p.logger.DebugContext(ctx, "passing image url through", "url", raw)
		return Descriptor{Index: index, Source: raw, URL: u, Reference: true}, nil
	}

	key := cache.Key(cache.URLSource(raw), p.opts.params())
	if d, ok := p.lookup(ctx, key, index, raw); ok {
		return d, nil
	}

	body, err := p.fetch(ctx, raw)
	if err != nil {
		return Descriptor{}, err
	}

	enc, err := transcode(body, p.opts.MaxDimension, p.opts.Quality, p.opts.Resize)
	if err != nil {
		return Descriptor{}, err
	}

	return p.store(ctx, key, index, raw, enc), nil
}

func (p *Processor) lookup(ctx context.Context, key string, index int, source string) (Descriptor, bool) {
	if p.cache == nil {
		return Descriptor{}, false
	}
	entry, ok := p.cache.Get(ctx, key)
	if !ok {
		return Descriptor{}, false
	}
	return Descriptor{
		Index:         index,
		Source:        source,
		URL:           entry.Data,
		MimeType:      entry.Metadata.MimeType,
		Cached:        true,
		OriginalSize:  entry.Metadata.OriginalSize,
		ProcessedSize: entry.Metadata.ProcessedSize,
	}, true
}

func (p *Processor) store(ctx context.Context, key string, index int, source string, enc *encoded) Descriptor {
	uri := enc.dataURI()

	if p.cache != nil {
		p.cache.Put(ctx, key, uri, cache.Metadata{
			OriginalSize:  enc.originalSize,
			ProcessedSize: enc.processedSize,
			Format:        enc.format,
			MimeType:      enc.mimeType,
		})
	}

	p.logger.DebugContext(ctx, "image transcoded",
		"source", source,
		"original", fmt.Sprintf("%dx%d", enc.originalSize[0], enc.originalSize[1]),
		"processed", fmt.Sprintf("%dx%d", enc.processedSize[0], enc.processedSize[1]),
		"mime_type", enc.mimeType,
	)

	return Descriptor{
		Index:         index,
		Source:        source,
		URL:           uri,
		MimeType:      enc.mimeType,
		OriginalSize:  enc.originalSize,
		ProcessedSize: enc.processedSize,
	}
}

func checkScheme(raw string) (string, error) {
	lower := strings.ToLower(raw)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		return "", fmt.Errorf("%w: %s", ErrInvalidURL, raw)
	}
	return raw, nil
}
