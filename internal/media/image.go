package media

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"os"
	"path/filepath"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"

	"github.com/techgnious/ivcompressor/internal/format"
	"github.com/techgnious/ivcompressor/internal/resolution"
)

// Static errors for image operations.
var (
	// ErrInvalidDimensions is returned when the provided dimensions are not positive.
	ErrInvalidDimensions = errors.New("invalid dimensions: width and height must be positive")

	errAlphaUnsupported = errors.New("format cannot carry an alpha channel")
)

const (
	jpegQuality = 90
	webpQuality = 90
)

// ImageResizer stretches raster images to an exact target resolution and
// re-encodes them. It holds no mutable state and is safe for concurrent use.
type ImageResizer struct {
	preset resolution.Preset
}

// ImageOption configures an ImageResizer.
type ImageOption func(*ImageResizer)

// WithImagePreset sets the resolution used by Resize.
func WithImagePreset(p resolution.Preset) ImageOption {
	return func(r *ImageResizer) {
		r.preset = p
	}
}

// NewImageResizer creates an ImageResizer defaulting to resolution.ImageDefault.
func NewImageResizer(opts ...ImageOption) *ImageResizer {
	r := &ImageResizer{preset: resolution.ImageDefault}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Preset returns the resolution used by Resize.
func (r *ImageResizer) Preset() resolution.Preset {
	return r.preset
}

// Resize resizes data to the resizer's preset and encodes it as f.
func (r *ImageResizer) Resize(data []byte, f format.Image) ([]byte, error) {
	return r.resize(data, f, r.preset.Size())
}

// ResizeTo resizes data to preset p and encodes it as f.
func (r *ImageResizer) ResizeTo(data []byte, f format.Image, p resolution.Preset) ([]byte, error) {
	return r.resize(data, f, p.Size())
}

// ResizeToSize resizes data to an explicit size, ignoring the resizer's preset.
func (r *ImageResizer) ResizeToSize(data []byte, f format.Image, size resolution.Size) ([]byte, error) {
	return r.resize(data, f, size)
}

// ResizeFile reads the image at path and resizes it to the resizer's preset.
func (r *ImageResizer) ResizeFile(path string, f format.Image) ([]byte, error) {
	data, err := os.ReadFile(path) // #nosec G304 - path is provided by trusted caller
	if err != nil {
		return nil, &ImageError{Message: msgReadImage, Err: fmt.Errorf("read image file: %w", err)}
	}
	return r.Resize(data, f)
}

// ResizeReader drains src and returns a reader over the resized image.
func (r *ImageResizer) ResizeReader(src io.Reader, f format.Image) (io.Reader, error) {
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, &ImageError{Message: msgReadImage, Err: fmt.Errorf("read image stream: %w", err)}
	}
	out, err := r.Resize(data, f)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(out), nil
}

// ResizeAndSave resizes the image at srcPath, writes it to dstPath and
// returns the absolute path of the written file.
func (r *ImageResizer) ResizeAndSave(srcPath string, f format.Image, dstPath string) (string, error) {
	out, err := r.ResizeFile(srcPath, f)
	if err != nil {
		return "", err
	}

	abs, err := filepath.Abs(dstPath)
	if err != nil {
		return "", &ImageError{Message: msgWriteImage, Err: fmt.Errorf("resolve output path: %w", err)}
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0750); err != nil {
		return "", &ImageError{Message: msgWriteImage, Err: fmt.Errorf("create output directory: %w", err)}
	}
	if err := os.WriteFile(abs, out, 0640); err != nil { // #nosec G306 - resized images are shared with the group
		return "", &ImageError{Message: msgWriteImage, Err: fmt.Errorf("write image file: %w", err)}
	}
	return abs, nil
}

func (r *ImageResizer) resize(data []byte, f format.Image, size resolution.Size) ([]byte, error) {
	if !size.Valid() {
		return nil, &ImageError{
			Message: msgEncodeImage,
			Err:     fmt.Errorf("%w: width=%d, height=%d", ErrInvalidDimensions, size.Width, size.Height),
		}
	}

	src, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, &ImageError{Message: msgInvalidImage, Err: err}
	}

	// Stretch to the exact target; aspect ratio is not preserved.
	dst := imaging.Resize(src, size.Width, size.Height, imaging.Lanczos)

	out, err := encodeImage(dst, f)
	if errors.Is(err, errAlphaUnsupported) {
		out, err = encodeImage(flatten(dst), f)
	}
	if err != nil {
		return nil, &ImageError{Message: msgEncodeImage, Err: err}
	}
	return out, nil
}

// encodeImage writes img in format f. Translucent rasters are rejected for
// formats without an alpha channel.
func encodeImage(img *image.NRGBA, f format.Image) ([]byte, error) {
	if !f.SupportsAlpha() && !img.Opaque() {
		return nil, fmt.Errorf("%w: %s", errAlphaUnsupported, f)
	}

	var buf bytes.Buffer
	var err error
	switch f {
	case format.JPG, format.JPEG:
		err = imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality))
	case format.PNG:
		err = imaging.Encode(&buf, img, imaging.PNG)
	case format.GIF:
		err = imaging.Encode(&buf, img, imaging.GIF)
	case format.BMP:
		err = imaging.Encode(&buf, img, imaging.BMP)
	case format.TIFF:
		err = imaging.Encode(&buf, img, imaging.TIFF)
	case format.WEBP:
		err = webp.Encode(&buf, img, &webp.Options{Quality: webpQuality})
	default:
		return nil, fmt.Errorf("%w: %q", format.ErrUnsupportedImage, f)
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// flatten composites img onto an opaque white canvas of the same size.
func flatten(img *image.NRGBA) *image.NRGBA {
	b := img.Bounds()
	canvas := imaging.New(b.Dx(), b.Dy(), color.White)
	return imaging.Overlay(canvas, img, image.Pt(0, 0), 1.0)
}
