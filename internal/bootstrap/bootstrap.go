// Package bootstrap provides dependency initialization for the ivcompressor server.
package bootstrap

import (
	"fmt"
	"log/slog"

	"github.com/techgnious/ivcompressor/internal/config"
	"github.com/techgnious/ivcompressor/internal/media"
	"github.com/techgnious/ivcompressor/internal/metrics"
	"github.com/techgnious/ivcompressor/internal/server"
	"github.com/techgnious/ivcompressor/internal/storage"
)

// Dependencies holds all initialized dependencies for the HTTP server.
type Dependencies struct {
	Images  *media.ImageResizer
	Videos  *media.VideoCompressor
	Storage storage.Storage
	Metrics *metrics.Metrics
}

// NewDependencies creates and initializes all dependencies for the application.
func NewDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	store, err := initStorage(cfg, logger)
	if err != nil {
		return nil, err
	}

	imagePreset, err := cfg.ImagePreset()
	if err != nil {
		return nil, err
	}
	defaults, err := cfg.EncodingDefaults()
	if err != nil {
		return nil, err
	}

	videos, err := media.NewVideoCompressor(
		media.NewFFmpegEncoder(cfg.FFmpegPath),
		store,
		media.WithDefaults(defaults),
		media.WithEncodeTimeout(cfg.EncodeTimeout),
		media.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("create video compressor: %w", err)
	}

	return &Dependencies{
		Images:  media.NewImageResizer(media.WithImagePreset(imagePreset)),
		Videos:  videos,
		Storage: store,
		Metrics: metrics.New(),
	}, nil
}

// Handlers builds the HTTP handlers over the initialized dependencies.
func (d *Dependencies) Handlers(cfg *config.Config, logger *slog.Logger) *server.Handlers {
	return server.NewHandlers(d.Images, d.Videos, logger,
		server.WithStorage(d.Storage),
		server.WithOutputDir(cfg.OutputDir),
		server.WithMaxBodyBytes(cfg.MaxBodyBytes),
		server.WithMetrics(d.Metrics),
	)
}

// initStorage creates the appropriate storage backend based on configuration.
func initStorage(cfg *config.Config, logger *slog.Logger) (storage.Storage, error) {
	if cfg.S3Enabled() {
		s3Cfg := storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			KeyPrefix:       cfg.S3KeyPrefix,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		}
		s3Store, err := storage.NewS3Storage(cfg.TempDir, s3Cfg)
		if err != nil {
			return nil, fmt.Errorf("create S3 storage: %w", err)
		}
		logger.Info("S3 storage configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
			slog.String("key_prefix", cfg.S3KeyPrefix),
		)
		return s3Store, nil
	}

	localStore, err := storage.NewLocalStorage(cfg.TempDir)
	if err != nil {
		return nil, fmt.Errorf("create local storage: %w", err)
	}
	logger.Info("local storage configured",
		slog.String("temp_dir", localStore.TempDir()),
	)
	return localStore, nil
}
