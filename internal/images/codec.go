package images

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"

	_ "image/gif"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	mimeJPEG = "image/jpeg"
	mimePNG  = "image/png"
)

// encoded is the result of one decode, resize, and re-encode pass.
type encoded struct {
	data          []byte
	mimeType      string
	format        string
	originalSize  [2]int
	processedSize [2]int
}

func (e *encoded) dataURI() string {
	return fmt.Sprintf("data:%s;base64,%s", e.mimeType, base64.StdEncoding.EncodeToString(e.data))
}

// transcode decodes r, shrinks it to fit maxDim when resize is set, and
// re-encodes it: PNG when the image carries transparency, JPEG at quality
// otherwise.
func transcode(r io.Reader, maxDim, quality int, resize bool) (*encoded, error) {
	src, format, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	b := src.Bounds()
	out := &encoded{
		format:       format,
		originalSize: [2]int{b.Dx(), b.Dy()},
	}

	alpha := hasAlpha(src)
	img := src
	if resize {
		if w, h, ok := fit(b.Dx(), b.Dy(), maxDim); ok {
			img = scale(src, w, h, alpha)
		}
	}

	pb := img.Bounds()
	out.processedSize = [2]int{pb.Dx(), pb.Dy()}

	var buf bytes.Buffer
	if alpha {
		out.mimeType = mimePNG
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		err = enc.Encode(&buf, img)
	} else {
		out.mimeType = mimeJPEG
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality})
	}
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}

	out.data = buf.Bytes()
	return out, nil
}

// fit returns the dimensions that fit w x h inside maxDim while preserving
// the aspect ratio. ok is false when the image already fits.
func fit(w, h, maxDim int) (int, int, bool) {
	if maxDim <= 0 || (w <= maxDim && h <= maxDim) {
		return w, h, false
	}
	if w > h {
		return maxDim, max(1, int(float64(h)*float64(maxDim)/float64(w))), true
	}
	return max(1, int(float64(w)*float64(maxDim)/float64(h))), maxDim, true
}

func scale(src image.Image, w, h int, alpha bool) image.Image {
	rect := image.Rect(0, 0, w, h)
	var dst draw.Image
	if alpha {
		dst = image.NewNRGBA(rect)
	} else {
		dst = image.NewRGBA(rect)
	}
	draw.CatmullRom.Scale(dst, rect, src, src.Bounds(), draw.Over, nil)
	return dst
}

// hasAlpha reports whether any pixel of img is not fully opaque.
func hasAlpha(img image.Image) bool {
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return !o.Opaque()
	}

	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if _, _, _, a := img.At(x, y).RGBA(); a != 0xffff {
				return true
			}
		}
	}
	return false
}
