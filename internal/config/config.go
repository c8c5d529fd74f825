// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"

	"github.com/techgnious/ivcompressor/internal/encoding"
	"github.com/techgnious/ivcompressor/internal/resolution"
)

// Static errors for configuration validation.
var (
	// ErrInvalidPort is returned when PORT is outside 1-65535.
	ErrInvalidPort = errors.New("config: PORT must be between 1 and 65535")
	// ErrInvalidEncodeTimeout is returned when ENCODE_TIMEOUT is negative.
	ErrInvalidEncodeTimeout = errors.New("config: ENCODE_TIMEOUT must not be negative")
	// ErrInvalidMaxBodyBytes is returned when MAX_BODY_BYTES is not positive.
	ErrInvalidMaxBodyBytes = errors.New("config: MAX_BODY_BYTES must be positive")
	// ErrInvalidResolution is returned when a resolution name is unknown.
	ErrInvalidResolution = errors.New("config: unknown resolution")
	// ErrInvalidVideoDefaults is returned when a default encoding attribute is out of range.
	ErrInvalidVideoDefaults = errors.New("config: invalid default encoding attributes")
	// ErrS3RegionRequired is returned when S3_BUCKET is set without S3_REGION.
	ErrS3RegionRequired = errors.New("config: S3_REGION is required when S3_BUCKET is set")
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	Port         int   `env:"PORT, default=8080" json:"port"`
	MaxBodyBytes int64 `env:"MAX_BODY_BYTES, default=268435456" json:"max_body_bytes"`

	// Storage settings
	TempDir   string `env:"TEMP_DIR, default=/tmp/ivcompressor" json:"temp_dir"`
	OutputDir string `env:"OUTPUT_DIR, default=/tmp/ivcompressor/out" json:"output_dir"`

	// Encoder settings
	FFmpegPath    string        `env:"FFMPEG_PATH, default=ffmpeg" json:"ffmpeg_path"`
	EncodeTimeout time.Duration `env:"ENCODE_TIMEOUT, default=10m" json:"encode_timeout"`

	// Default attributes
	ImageResolution string `env:"IMAGE_RESOLUTION, default=image_default" json:"image_resolution"`
	VideoResolution string `env:"VIDEO_RESOLUTION, default=video_default" json:"video_resolution"`
	VideoBitRate    int    `env:"VIDEO_BIT_RATE, default=160000" json:"video_bit_rate"`
	VideoFrameRate  int    `env:"VIDEO_FRAME_RATE, default=15" json:"video_frame_rate"`
	AudioBitRate    int    `env:"AUDIO_BIT_RATE, default=64000" json:"audio_bit_rate"`

	// Optional S3 settings
	S3Bucket           string `env:"S3_BUCKET" json:"s3_bucket,omitempty"`
	S3Region           string `env:"S3_REGION" json:"s3_region,omitempty"`
	S3Endpoint         string `env:"S3_ENDPOINT" json:"s3_endpoint,omitempty"`
	S3KeyPrefix        string `env:"S3_KEY_PREFIX" json:"s3_key_prefix,omitempty"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format"` // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"`   // "debug", "info", "warn", "error"
}

// S3Enabled returns true if S3 configuration is provided.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3Region != ""
}

// Load reads configuration from environment variables using go-envconfig
// and validates the result.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := envconfig.Process(context.Background(), cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the configuration values are usable.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("%w: got %d", ErrInvalidPort, c.Port)
	}
	if c.EncodeTimeout < 0 {
		return fmt.Errorf("%w: got %s", ErrInvalidEncodeTimeout, c.EncodeTimeout)
	}
	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidMaxBodyBytes, c.MaxBodyBytes)
	}
	if _, err := c.ImagePreset(); err != nil {
		return err
	}
	if _, err := c.EncodingDefaults(); err != nil {
		return err
	}
	if c.S3Bucket != "" && c.S3Region == "" {
		return ErrS3RegionRequired
	}
	return nil
}

// ImagePreset returns the preset named by IMAGE_RESOLUTION.
func (c *Config) ImagePreset() (resolution.Preset, error) {
	p, err := resolution.Parse(c.ImageResolution)
	if err != nil {
		return 0, fmt.Errorf("%w: IMAGE_RESOLUTION=%q", ErrInvalidResolution, c.ImageResolution)
	}
	return p, nil
}

// EncodingDefaults returns the library defaults with the configured
// resolution and rates applied.
func (c *Config) EncodingDefaults() (encoding.Defaults, error) {
	p, err := resolution.Parse(c.VideoResolution)
	if err != nil {
		return encoding.Defaults{}, fmt.Errorf("%w: VIDEO_RESOLUTION=%q", ErrInvalidResolution, c.VideoResolution)
	}

	d := encoding.LibraryDefaults()
	size := p.Size()
	video := encoding.MergeVideo(d.Video, &encoding.VideoAttributes{
		BitRate:   encoding.Int(c.VideoBitRate),
		FrameRate: encoding.Int(c.VideoFrameRate),
		Size:      &size,
	})
	audio := encoding.MergeAudio(d.Audio, &encoding.AudioAttributes{
		BitRate: encoding.Int(c.AudioBitRate),
	})
	if err := video.Validate(); err != nil {
		return encoding.Defaults{}, fmt.Errorf("%w: %w", ErrInvalidVideoDefaults, err)
	}
	if err := audio.Validate(); err != nil {
		return encoding.Defaults{}, fmt.Errorf("%w: %w", ErrInvalidVideoDefaults, err)
	}
	return encoding.Defaults{Video: video, Audio: audio}, nil
}

// NewLogger creates a structured logger based on the configuration.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLogger() *slog.Logger {
	level := parseLogLevel(c.LogLevel)

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Port: %d, MaxBodyBytes: %d, TempDir: %s, OutputDir: %s, FFmpegPath: %s, EncodeTimeout: %s, ImageResolution: %s, VideoResolution: %s, S3Bucket: %s, S3Region: %s, S3Endpoint: %s, AWSAccessKeyID: %s, LogFormat: %s, LogLevel: %s}",
		c.Port,
		c.MaxBodyBytes,
		c.TempDir,
		c.OutputDir,
		c.FFmpegPath,
		c.EncodeTimeout,
		c.ImageResolution,
		c.VideoResolution,
		c.S3Bucket,
		c.S3Region,
		c.S3Endpoint,
		mask(c.AWSAccessKeyID),
		c.LogFormat,
		c.LogLevel,
	)
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "****"
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
