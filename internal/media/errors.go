package media

import (
	"errors"
	"fmt"
)

// Messages carried by the domain errors.
const (
	msgInvalidImage = "invalid image data"
	msgEncodeImage  = "failed to encode image"
	msgReadImage    = "failed to read image"
	msgWriteImage   = "failed to write image"
	msgVideo        = "Error occurred while resizing the video"
)

// ImageError is returned when image bytes cannot be decoded, when the
// resized raster cannot be encoded into the requested format, or when the
// file and stream variants fail to read or write. The cause stays reachable
// through Unwrap, so os.ErrNotExist and friends still match.
type ImageError struct {
	Message string
	Err     error
}

func (e *ImageError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *ImageError) Unwrap() error {
	return e.Err
}

// VideoError is returned for any failure staging, invoking or reading back
// the external encoder. Diagnostics holds the encoder's output lines when
// they were available.
type VideoError struct {
	Message     string
	Diagnostics []string
	Err         error
}

func (e *VideoError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *VideoError) Unwrap() error {
	return e.Err
}

// newVideoError wraps err, lifting ffmpeg's stderr into Diagnostics.
func newVideoError(err error) *VideoError {
	ve := &VideoError{Message: msgVideo, Err: err}
	var fe *FFmpegError
	if errors.As(err, &fe) {
		ve.Diagnostics = fe.Lines()
	}
	return ve
}
