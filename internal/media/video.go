package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/techgnious/ivcompressor/internal/encoding"
	"github.com/techgnious/ivcompressor/internal/format"
	"github.com/techgnious/ivcompressor/internal/media/tempname"
	"github.com/techgnious/ivcompressor/internal/resolution"
	"github.com/techgnious/ivcompressor/internal/storage"
)

// Static errors for video operations.
var (
	// ErrEncoderRequired is returned when no Encoder is configured.
	ErrEncoderRequired = errors.New("video encoder is required")
	// ErrTempStoreRequired is returned when no temporary store is configured.
	ErrTempStoreRequired = errors.New("temporary store is required")
)

// EncodeRequest describes a single transcode. Nil overrides keep the
// compressor's defaults.
type EncodeRequest struct {
	Input  format.Video
	Output format.Video
	Video  *encoding.VideoAttributes
	Audio  *encoding.AudioAttributes
	// Size replaces the video size whether or not Video is set.
	Size *resolution.Size
}

// VideoCompressor stages video bytes in temporary files, runs the Encoder
// over them and returns the encoded bytes. Every call resolves its own
// configuration, so one instance may serve concurrent callers.
type VideoCompressor struct {
	encoder  Encoder
	temp     storage.TempStore
	defaults encoding.Defaults
	timeout  time.Duration
	logger   *slog.Logger
}

// VideoOption configures a VideoCompressor.
type VideoOption func(*VideoCompressor)

// WithDefaults replaces the baseline attributes overrides are merged onto.
func WithDefaults(d encoding.Defaults) VideoOption {
	return func(c *VideoCompressor) {
		c.defaults = encoding.Defaults{Video: d.Video.Clone(), Audio: d.Audio.Clone()}
	}
}

// WithEncodeTimeout bounds each Encoder call. Zero disables the deadline.
func WithEncodeTimeout(d time.Duration) VideoOption {
	return func(c *VideoCompressor) {
		c.timeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) VideoOption {
	return func(c *VideoCompressor) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewVideoCompressor creates a VideoCompressor using the library defaults.
func NewVideoCompressor(encoder Encoder, temp storage.TempStore, opts ...VideoOption) (*VideoCompressor, error) {
	if encoder == nil {
		return nil, ErrEncoderRequired
	}
	if temp == nil {
		return nil, ErrTempStoreRequired
	}

	c := &VideoCompressor{
		encoder:  encoder,
		temp:     temp,
		defaults: encoding.LibraryDefaults(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Encode resolves req against the compressor's defaults and transcodes data.
func (c *VideoCompressor) Encode(ctx context.Context, data []byte, req EncodeRequest) ([]byte, error) {
	cfg, err := encoding.Resolve(req.Input, req.Output, c.defaults, encoding.Overrides{
		Video: req.Video,
		Audio: req.Audio,
		Size:  req.Size,
	})
	if err != nil {
		return nil, newVideoError(err)
	}
	return c.run(ctx, data, cfg)
}

// ReduceVideoSize re-encodes data with the default attributes, keeping the container.
func (c *VideoCompressor) ReduceVideoSize(ctx context.Context, data []byte, f format.Video) ([]byte, error) {
	return c.Encode(ctx, data, EncodeRequest{Input: f, Output: f})
}

// ReduceVideoSizeWithResolution re-encodes data at preset p.
func (c *VideoCompressor) ReduceVideoSizeWithResolution(ctx context.Context, data []byte, f format.Video, p resolution.Preset) ([]byte, error) {
	size := p.Size()
	return c.Encode(ctx, data, EncodeRequest{Input: f, Output: f, Size: &size})
}

// ReduceVideoSizeFile reads the video at path and re-encodes it with the
// default attributes.
func (c *VideoCompressor) ReduceVideoSizeFile(ctx context.Context, path string, f format.Video) ([]byte, error) {
	data, err := os.ReadFile(path) // #nosec G304 - path is provided by trusted caller
	if err != nil {
		return nil, fmt.Errorf("read video file: %w", err)
	}
	return c.ReduceVideoSize(ctx, data, f)
}

// EncodeVideoWithAttributes re-encodes data with the given overrides.
func (c *VideoCompressor) EncodeVideoWithAttributes(ctx context.Context, data []byte, f format.Video, audio *encoding.AudioAttributes, video *encoding.VideoAttributes) ([]byte, error) {
	return c.Encode(ctx, data, EncodeRequest{Input: f, Output: f, Audio: audio, Video: video})
}

// ConvertVideo changes the container from in to out, leaving every
// attribute to the encoder.
func (c *VideoCompressor) ConvertVideo(ctx context.Context, data []byte, in, out format.Video) ([]byte, error) {
	cfg, err := encoding.ConvertOnly(in, out, nil)
	if err != nil {
		return nil, newVideoError(err)
	}
	return c.run(ctx, data, cfg)
}

// ConvertAndResizeVideo changes the container and scales to size.
func (c *VideoCompressor) ConvertAndResizeVideo(ctx context.Context, data []byte, in, out format.Video, size resolution.Size) ([]byte, error) {
	cfg, err := encoding.ConvertOnly(in, out, &size)
	if err != nil {
		return nil, newVideoError(err)
	}
	return c.run(ctx, data, cfg)
}

// run stages data, invokes the encoder and reads the result back. Both temp
// files are removed on every path out.
func (c *VideoCompressor) run(ctx context.Context, data []byte, cfg encoding.Configuration) ([]byte, error) {
	prefix := tempname.Generate()
	logger := c.logger.With(
		slog.String("prefix", prefix),
		slog.String("input_format", cfg.InputFormat.Token()),
		slog.String("output_format", cfg.OutputFormat.Token()),
	)

	var paths []string
	defer func() { c.cleanup(ctx, logger, paths) }()

	src, err := c.temp.SaveTemp(ctx, tempname.Pattern(prefix, "source", cfg.InputFormat.Token()), bytes.NewReader(data))
	if err != nil {
		return nil, newVideoError(fmt.Errorf("stage input: %w", err))
	}
	paths = append(paths, src)

	dst, err := c.temp.CreateTemp(ctx, tempname.Pattern(prefix, "target", cfg.OutputFormat.Token()))
	if err != nil {
		return nil, newVideoError(fmt.Errorf("reserve output: %w", err))
	}
	paths = append(paths, dst)

	encCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		encCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	logger.Debug("encoding video", slog.Int("input_bytes", len(data)))
	if err := c.encoder.Encode(encCtx, src, dst, cfg); err != nil {
		logger.Error("video encode failed", slog.String("error", err.Error()))
		return nil, newVideoError(err)
	}

	out, err := c.readAll(ctx, dst)
	if err != nil {
		return nil, newVideoError(fmt.Errorf("read output: %w", err))
	}

	logger.Info("video encoded",
		slog.Int("input_bytes", len(data)),
		slog.Int("output_bytes", len(out)),
		slog.Duration("elapsed", time.Since(start)),
	)
	return out, nil
}

func (c *VideoCompressor) readAll(ctx context.Context, path string) ([]byte, error) {
	rc, err := c.temp.LoadTemp(ctx, path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	return io.ReadAll(rc)
}

// cleanup runs even when ctx is already cancelled; failures are only logged.
func (c *VideoCompressor) cleanup(ctx context.Context, logger *slog.Logger, paths []string) {
	if len(paths) == 0 {
		return
	}
	if err := c.temp.CleanupTemp(context.WithoutCancel(ctx), paths); err != nil {
		logger.Warn("failed to remove temp files", slog.String("error", err.Error()))
	}
}
