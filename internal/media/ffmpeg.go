package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/techgnious/ivcompressor/internal/encoding"
	"github.com/techgnious/ivcompressor/internal/resolution"
)

// ErrNoOutputFormat is returned when a configuration names no output container.
var ErrNoOutputFormat = errors.New("output format is required")

// Compile-time check that FFmpegEncoder implements Encoder.
var _ Encoder = (*FFmpegEncoder)(nil)

// killGrace bounds how long Wait keeps draining stderr after ffmpeg is killed.
const killGrace = 2 * time.Second

// FFmpegEncoder implements Encoder on top of the ffmpeg-go stream builder.
type FFmpegEncoder struct {
	// ffmpegPath is the path to the ffmpeg binary. Defaults to "ffmpeg".
	ffmpegPath string
}

// NewFFmpegEncoder creates a new FFmpegEncoder.
// If ffmpegPath is empty, it defaults to "ffmpeg" (found via PATH).
func NewFFmpegEncoder(ffmpegPath string) *FFmpegEncoder {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &FFmpegEncoder{ffmpegPath: ffmpegPath}
}

// Encode transcodes inPath into outPath. The input container is probed by
// ffmpeg; the output container is forced with -f.
func (e *FFmpegEncoder) Encode(ctx context.Context, inPath, outPath string, cfg encoding.Configuration) error {
	stream, err := buildStream(inPath, outPath, cfg)
	if err != nil {
		return err
	}

	var stderr bytes.Buffer
	cmd := stream.
		SetFfmpegPath(e.ffmpegPath).
		WithErrorOutput(&stderr).
		Silent(true).
		Compile()

	return runFFmpeg(ctx, cmd, &stderr)
}

// buildStream renders cfg as an ffmpeg-go stream graph. Unset attributes emit
// no flag so ffmpeg falls back to the container's defaults.
func buildStream(inPath, outPath string, cfg encoding.Configuration) (*ffmpeg.Stream, error) {
	muxer := cfg.OutputFormat.Muxer()
	if muxer == "" {
		return nil, fmt.Errorf("%w: %q", ErrNoOutputFormat, cfg.OutputFormat)
	}

	out := ffmpeg.KwArgs{"f": muxer}

	v := cfg.Video
	putString(out, "c:v", v.Codec)
	putString(out, "profile:v", v.Profile)
	putString(out, "pix_fmt", v.PixelFormat)
	putInt(out, "b:v", v.BitRate)
	putInt(out, "r", v.FrameRate)
	putString(out, "vf", videoFilter(v))

	a := cfg.Audio
	putString(out, "c:a", a.Codec)
	putInt(out, "b:a", a.BitRate)
	putInt(out, "ac", a.Channels)
	putInt(out, "ar", a.SampleRate)

	return ffmpeg.Input(inPath, ffmpeg.KwArgs{"loglevel": "warning"}).
		Output(outPath, out).
		GlobalArgs("-hide_banner", "-nostdin").
		OverWriteOutput(), nil
}

// videoFilter joins the scale step and the caller's filters into one chain.
// 4:2:0 pixel formats need even dimensions, so odd sizes are rounded up.
func videoFilter(v encoding.VideoAttributes) string {
	var chain []string
	if v.Size != nil {
		size := *v.Size
		if subsampled420(v.PixelFormat) && (size.Width%2 != 0 || size.Height%2 != 0) {
			size = evenSize(size)
			chain = append(chain, fmt.Sprintf("scale=%d:%d", size.Width, size.Height), "setsar=1")
		} else {
			chain = append(chain, fmt.Sprintf("scale=%d:%d", size.Width, size.Height))
		}
	}
	chain = append(chain, v.Filters...)
	return strings.Join(chain, ",")
}

func subsampled420(pixFmt string) bool {
	switch pixFmt {
	case "yuv420p", "yuvj420p", "nv12", "nv21":
		return true
	default:
		return false
	}
}

func evenSize(s resolution.Size) resolution.Size {
	return resolution.Size{Width: s.Width + s.Width%2, Height: s.Height + s.Height%2}
}

func putString(kw ffmpeg.KwArgs, key, v string) {
	if v != "" {
		kw[key] = v
	}
}

func putInt(kw ffmpeg.KwArgs, key string, v *int) {
	if v != nil {
		kw[key] = strconv.Itoa(*v)
	}
}

// runFFmpeg runs the compiled command, killing it when ctx is done. Any
// failure, cancellation included, is returned as *FFmpegError carrying the
// stderr captured so far.
func runFFmpeg(ctx context.Context, cmd *exec.Cmd, stderr *bytes.Buffer) error {
	args := cmd.Args[1:]
	if err := ctx.Err(); err != nil {
		return &FFmpegError{Args: args, Err: fmt.Errorf("ffmpeg cancelled: %w", err)}
	}

	cmd.WaitDelay = killGrace
	if err := cmd.Start(); err != nil {
		return &FFmpegError{Args: args, Stderr: stderr.String(), Err: err}
	}
	stop := context.AfterFunc(ctx, func() {
		_ = cmd.Process.Kill()
	})
	err := cmd.Wait()
	stop()

	if ctxErr := ctx.Err(); ctxErr != nil {
		return &FFmpegError{
			Args:   args,
			Stderr: stderr.String(),
			Err:    fmt.Errorf("ffmpeg cancelled: %w", ctxErr),
		}
	}
	if err != nil {
		return &FFmpegError{
			Args:   args,
			Stderr: stderr.String(),
			Err:    err,
		}
	}
	return nil
}

// FFmpegError represents an error from running ffmpeg, including the stderr output.
type FFmpegError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *FFmpegError) Error() string {
	return fmt.Sprintf("ffmpeg error: %v\nargs: %v\nstderr: %s", e.Err, e.Args, e.Stderr)
}

func (e *FFmpegError) Unwrap() error {
	return e.Err
}

// Lines returns the non-empty stderr lines in order.
func (e *FFmpegError) Lines() []string {
	var lines []string
	for _, line := range strings.Split(e.Stderr, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
