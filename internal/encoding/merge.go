package encoding

import (
	"errors"
	"fmt"
	"slices"

	"github.com/go-playground/validator/v10"

	"github.com/techgnious/ivcompressor/internal/format"
	"github.com/techgnious/ivcompressor/internal/resolution"
)

// ErrInvalidAttributes is returned when an override fails validation.
var ErrInvalidAttributes = errors.New("invalid encoding attributes")

var validate = validator.New()

// MergeVideo overlays the present fields of override onto base. Absent
// fields keep base's value. The result shares no memory with either input.
func MergeVideo(base VideoAttributes, override *VideoAttributes) VideoAttributes {
	out := base.Clone()
	if override == nil {
		return out
	}
	if override.BitRate != nil {
		out.BitRate = Int(*override.BitRate)
	}
	if override.FrameRate != nil {
		out.FrameRate = Int(*override.FrameRate)
	}
	if override.Size != nil {
		size := *override.Size
		out.Size = &size
	}
	if override.Profile != "" {
		out.Profile = override.Profile
	}
	if override.PixelFormat != "" {
		out.PixelFormat = override.PixelFormat
	}
	if len(override.Filters) > 0 {
		out.Filters = slices.Clone(override.Filters)
	}
	return out
}

// MergeAudio overlays the present fields of override onto base.
func MergeAudio(base AudioAttributes, override *AudioAttributes) AudioAttributes {
	out := base.Clone()
	if override == nil {
		return out
	}
	if override.BitRate != nil {
		out.BitRate = Int(*override.BitRate)
	}
	if override.SampleRate != nil {
		out.SampleRate = Int(*override.SampleRate)
	}
	if override.Channels != nil {
		out.Channels = Int(*override.Channels)
	}
	return out
}

// Validate checks the attribute ranges.
func (v *VideoAttributes) Validate() error {
	if v == nil {
		return nil
	}
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("%w: video: %w", ErrInvalidAttributes, err)
	}
	return nil
}

// Validate checks the attribute ranges.
func (a *AudioAttributes) Validate() error {
	if a == nil {
		return nil
	}
	if err := validate.Struct(a); err != nil {
		return fmt.Errorf("%w: audio: %w", ErrInvalidAttributes, err)
	}
	return nil
}

func validateSize(s *resolution.Size) error {
	if s == nil {
		return nil
	}
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("%w: size: %w", ErrInvalidAttributes, err)
	}
	return nil
}

// Defaults is the baseline that overrides are merged onto.
type Defaults struct {
	Video VideoAttributes
	Audio AudioAttributes
}

// LibraryDefaults returns a fresh copy of the library's baseline attributes.
func LibraryDefaults() Defaults {
	return Defaults{
		Video: DefaultVideoAttributes(),
		Audio: DefaultAudioAttributes(),
	}
}

// Overrides carries the optional per-call attribute overrides.
type Overrides struct {
	Video *VideoAttributes
	Audio *AudioAttributes
	// Size replaces the video size whether or not Video is set.
	Size *resolution.Size
}

// Configuration is the resolved encoder input for a single call.
type Configuration struct {
	InputFormat  format.Video
	OutputFormat format.Video
	Video        VideoAttributes
	Audio        AudioAttributes
}

// Resolve validates the overrides and builds a fresh Configuration from
// base. Codecs are always forced to the output container's defaults.
func Resolve(in, out format.Video, base Defaults, o Overrides) (Configuration, error) {
	if err := o.Video.Validate(); err != nil {
		return Configuration{}, err
	}
	if err := o.Audio.Validate(); err != nil {
		return Configuration{}, err
	}
	if err := validateSize(o.Size); err != nil {
		return Configuration{}, err
	}

	video := MergeVideo(base.Video, o.Video)
	audio := MergeAudio(base.Audio, o.Audio)
	if o.Size != nil {
		size := *o.Size
		video.Size = &size
	}

	video.Codec = out.VideoCodec()
	audio.Codec = out.AudioCodec()
	if video.Codec != H264Codec {
		video.Profile = ""
	}

	return Configuration{
		InputFormat:  in,
		OutputFormat: out,
		Video:        video,
		Audio:        audio,
	}, nil
}

// ConvertOnly builds a configuration that changes the container and leaves
// every attribute at the encoder's own defaults. size, when given, is the
// only attribute applied.
func ConvertOnly(in, out format.Video, size *resolution.Size) (Configuration, error) {
	if err := validateSize(size); err != nil {
		return Configuration{}, err
	}
	cfg := Configuration{InputFormat: in, OutputFormat: out}
	if size != nil {
		s := *size
		cfg.Video.Size = &s
	}
	return cfg, nil
}
