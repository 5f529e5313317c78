package images

import (
	"errors"
	"fmt"
)

// Image processing failure causes.
var (
	ErrNotFound          = errors.New("image file not found")
	ErrUnsupportedFormat = errors.New("unsupported image format")
	ErrInvalidURL        = errors.New("invalid image url")
	ErrTooLarge          = errors.New("remote image exceeds size limit")
)

// ImageProcessingError names the source that failed and its position in the
// caller-supplied image list.
type ImageProcessingError struct {
	Index  int
	Source string
	Err    error
}

func (e *ImageProcessingError) Error() string {
	return fmt.Sprintf("image %d (%s): %v", e.Index+1, e.Source, e.Err)
}

func (e *ImageProcessingError) Unwrap() error {
	return e.Err
}
