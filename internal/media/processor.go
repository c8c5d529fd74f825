// Package media provides image resizing and video transcoding on top of an
// external image codec and an external ffmpeg encoder.
package media

import (
	"context"

	"github.com/techgnious/ivcompressor/internal/encoding"
)

// Encoder defines the external video/audio transcoding capability.
// Implementations read inPath, write the result to outPath and must not
// retain cfg after returning.
type Encoder interface {
	// Encode transcodes inPath into outPath using the resolved configuration.
	// It blocks until the encoder finishes or ctx is done.
	Encode(ctx context.Context, inPath, outPath string, cfg encoding.Configuration) error
}
