package images_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/JaimeStill/envoy/internal/images"
	"github.com/JaimeStill/envoy/pkg/cache"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func solid(w, h int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, c)
		}
	}
	return img
}

func writePNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatalf("write png: %v", err)
	}
}

func writeJPEG(t *testing.T, path string, img image.Image) {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatalf("write jpeg: %v", err)
	}
}

func newManager() *cache.Manager {
	return cache.NewManager(cache.NewMemory(), time.Hour, true, discardLogger())
}

func TestProcessResizesPreservingAspect(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wide.jpg")
	writeJPEG(t, path, solid(400, 200, color.RGBA{200, 10, 10, 255}))

	p := images.New(images.Options{MaxDimension: 100, Quality: 80, Resize: true}, nil, discardLogger())

	d, err := p.Process(context.Background(), 0, path)
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}

	if d.OriginalSize != [2]int{400, 200} {
		t.Errorf("original size: got %v", d.OriginalSize)
	}
	if d.ProcessedSize != [2]int{100, 50} {
		t.Errorf("processed size: got %v, want [100 50]", d.ProcessedSize)
	}
	if d.MimeType != "image/jpeg" {
		t.Errorf("mime type: got %s, want image/jpeg", d.MimeType)
	}
	if !strings.HasPrefix(d.URL, "data:image/jpeg;base64,") {
		t.Errorf("url: got %.40s", d.URL)
	}
}

func TestProcessNoResizeWhenDisabledOrSmall(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tall.png")
	writePNG(t, path, solid(30, 60, color.NRGBA{0, 0, 255, 255}))

	tests := []struct {
		name   string
		opts   images.Options
		expect [2]int
	}{
		{"disabled", images.Options{MaxDimension: 10, Resize: false}, [2]int{30, 60}},
		{"fits", images.Options{MaxDimension: 100, Resize: true}, [2]int{30, 60}},
		{"tall", images.Options{MaxDimension: 20, Resize: true}, [2]int{10, 20}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := images.New(tt.opts, nil, discardLogger())
			d, err := p.Process(context.Background(), 0, path)
			if err != nil {
				t.Fatalf("process failed: %v", err)
			}
			if d.ProcessedSize != tt.expect {
				t.Errorf("processed size: got %v, want %v", d.ProcessedSize, tt.expect)
			}
		})
	}
}

func TestProcessTransparencyKeepsPNG(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "alpha.png")
	writePNG(t, path, solid(8, 8, color.NRGBA{10, 20, 30, 100}))

	p := images.New(images.Options{MaxDimension: 2048}, nil, discardLogger())
	d, err := p.Process(context.Background(), 0, path)
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if d.MimeType != "image/png" {
		t.Errorf("mime type: got %s, want image/png", d.MimeType)
	}
}

func TestProcessCacheHitSkipsDecode(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "photo.png")
	writePNG(t, path, solid(16, 16, color.NRGBA{1, 2, 3, 255}))

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}

	p := images.New(images.Options{MaxDimension: 2048, Quality: 85}, newManager(), discardLogger())

	first, err := p.Process(context.Background(), 0, path)
	if err != nil {
		t.Fatalf("first process failed: %v", err)
	}
	if first.Cached {
		t.Fatal("first process should miss the cache")
	}

	if err := os.WriteFile(path, []byte("not an image"), 0644); err != nil {
		t.Fatalf("corrupt: %v", err)
	}
	if err := os.Chtimes(path, info.ModTime(), info.ModTime()); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	second, err := p.Process(context.Background(), 0, path)
	if err != nil {
		t.Fatalf("second process should hit the cache, got error: %v", err)
	}
	if !second.Cached {
		t.Error("second process should report a cache hit")
	}
	if second.URL != first.URL {
		t.Error("cached payload differs from the original")
	}

	later := info.ModTime().Add(time.Minute)
	if err := os.Chtimes(path, later, later); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	if _, err := p.Process(context.Background(), 0, path); err == nil {
		t.Error("changed mtime should miss the cache and fail to decode")
	}
}

func TestProcessErrors(t *testing.T) {
	dir := t.TempDir()
	bmp := filepath.Join(dir, "image.bmp")
	if err := os.WriteFile(bmp, []byte("BM"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	broken := filepath.Join(dir, "broken.png")
	if err := os.WriteFile(broken, []byte("garbage"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	tests := []struct {
		name   string
		source string
		want   error
	}{
		{"missing", filepath.Join(dir, "absent.png"), images.ErrNotFound},
		{"unsupported", bmp, images.ErrUnsupportedFormat},
		{"bad scheme", "ftp://example.com/a.png", images.ErrInvalidURL},
		{"undecodable", broken, nil},
	}

	p := images.New(images.Options{MaxDimension: 2048}, nil, discardLogger())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Process(context.Background(), 3, tt.source)

			var ipe *images.ImageProcessingError
			if !errors.As(err, &ipe) {
				t.Fatalf("error: got %v, want *ImageProcessingError", err)
			}
			if ipe.Index != 3 || ipe.Source != tt.source {
				t.Errorf("error attribution: got index %d source %s", ipe.Index, ipe.Source)
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("error: got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestProcessURLPassThrough(t *testing.T) {
	mgr := newManager()
	p := images.New(images.Options{MaxDimension: 2048}, mgr, discardLogger())

	d, err := p.Process(context.Background(), 0, "https://example.com/cat.jpg")
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if !d.Reference || d.URL != "https://example.com/cat.jpg" {
		t.Errorf("descriptor: got %+v", d)
	}

	stats, err := mgr.Stats(context.Background())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Entries != 0 {
		t.Errorf("pass-through url should not be cached, got %d entries", stats.Entries)
	}
}

func TestProcessURLDownload(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, solid(40, 20, color.NRGBA{9, 9, 9, 255})); err != nil {
		t.Fatalf("encode: %v", err)
	}

	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		switch r.URL.Path {
		case "/ok.png":
			w.Header().Set("Content-Type", "image/png")
			w.Write(buf.Bytes())
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	p := images.New(
		images.Options{MaxDimension: 10, Resize: true, Download: true, MaxDownloadBytes: 1 << 20},
		newManager(),
		discardLogger(),
		images.WithHTTPClient(srv.Client()),
	)

	d, err := p.Process(context.Background(), 0, srv.URL+"/ok.png")
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if d.Reference || !strings.HasPrefix(d.URL, "data:image/jpeg;base64,") {
		t.Errorf("descriptor: got reference=%v url=%.40s", d.Reference, d.URL)
	}
	if d.ProcessedSize != [2]int{10, 5} {
		t.Errorf("processed size: got %v, want [10 5]", d.ProcessedSize)
	}

	again, err := p.Process(context.Background(), 0, srv.URL+"/ok.png")
	if err != nil {
		t.Fatalf("second process failed: %v", err)
	}
	if !again.Cached || hits != 1 {
		t.Errorf("second download should be served from cache: cached=%v hits=%d", again.Cached, hits)
	}

	if _, err := p.Process(context.Background(), 1, srv.URL+"/missing.png"); err == nil {
		t.Error("expected error for 404")
	}
}

func TestProcessURLDownloadTooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(bytes.Repeat([]byte{0}, 4096))
	}))
	defer srv.Close()

	p := images.New(
		images.Options{Download: true, MaxDownloadBytes: 1024},
		nil,
		discardLogger(),
		images.WithHTTPClient(srv.Client()),
	)

	_, err := p.Process(context.Background(), 0, srv.URL+"/big.png")
	if !errors.Is(err, images.ErrTooLarge) {
		t.Errorf("error: got %v, want ErrTooLarge", err)
	}
}

type failureCounter struct{ n int }

func (f *failureCounter) ImageFailure() { f.n++ }

func TestProcessAll(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.png")
	b := filepath.Join(dir, "b.jpg")
	writePNG(t, a, solid(4, 4, color.NRGBA{1, 1, 1, 255}))
	writeJPEG(t, b, solid(4, 4, color.RGBA{2, 2, 2, 255}))
	missing := filepath.Join(dir, "missing.png")

	sources := []string{b, missing, "https://example.com/c.png", a}

	t.Run("continue on error", func(t *testing.T) {
		counter := &failureCounter{}
		p := images.New(images.Options{MaxDimension: 2048}, nil, discardLogger(), images.WithRecorder(counter))

		out, failures, err := p.ProcessAll(context.Background(), sources, true)
		if err != nil {
			t.Fatalf("process all failed: %v", err)
		}

		wantOrder := []string{b, "https://example.com/c.png", a}
		if len(out) != len(wantOrder) {
			t.Fatalf("descriptors: got %d, want %d", len(out), len(wantOrder))
		}
		for i, src := range wantOrder {
			if out[i].Source != src {
				t.Errorf("out[%d]: got %s, want %s", i, out[i].Source, src)
			}
		}
		if len(failures) != 1 || failures[0].Index != 1 {
			t.Errorf("failures: got %v", failures)
		}
		if counter.n != 1 {
			t.Errorf("recorded failures: got %d, want 1", counter.n)
		}
	})

	t.Run("abort", func(t *testing.T) {
		p := images.New(images.Options{MaxDimension: 2048}, nil, discardLogger())

		out, _, err := p.ProcessAll(context.Background(), sources, false)
		var ipe *images.ImageProcessingError
		if !errors.As(err, &ipe) || ipe.Index != 1 {
			t.Fatalf("error: got %v, want failure at index 1", err)
		}
		if out != nil {
			t.Errorf("descriptors: got %v, want nil", out)
		}
	})
}

func TestIsURL(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"https://example.com/a.png", true},
		{"http://localhost:8080/x", true},
		{"images/a.png", false},
		{"/abs/path.jpg", false},
		{"C:\\images\\a.png", false},
	}

	for _, tt := range tests {
		if got := images.IsURL(tt.in); got != tt.want {
			t.Errorf("IsURL(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
