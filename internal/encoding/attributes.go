// Package encoding turns user-facing audio/video attribute overrides into the
// configuration handed to the external encoder.
package encoding

import (
	"slices"

	"github.com/techgnious/ivcompressor/internal/resolution"
)

// H264Codec is the codec name that accepts an x264 profile.
const H264Codec = "libx264"

// Library defaults applied when neither the caller nor the compressor
// instance configures a value.
const (
	DefaultVideoBitRate    = 160000
	DefaultFrameRate       = 15
	DefaultProfile         = "baseline"
	DefaultPixelFormat     = "yuv420p"
	DefaultAudioBitRate    = 64000
	DefaultAudioChannels   = 2
	DefaultAudioSampleRate = 44100
)

// AudioAttributes tunes the audio stream. A nil field keeps the encoder's
// own default.
type AudioAttributes struct {
	// Codec is resolved from the output container and never read from overrides.
	Codec string `json:"-"`
	// BitRate in bits per second.
	BitRate *int `json:"bit_rate,omitempty" validate:"omitempty,min=1"`
	// SampleRate in Hz.
	SampleRate *int `json:"sample_rate,omitempty" validate:"omitempty,min=1"`
	// Channels is 1 (mono) or 2 (stereo).
	Channels *int `json:"channels,omitempty" validate:"omitempty,oneof=1 2"`
}

// VideoAttributes tunes the video stream. A nil or empty field keeps the
// encoder's own default.
type VideoAttributes struct {
	// Codec is resolved from the output container and never read from overrides.
	Codec string `json:"-"`
	// BitRate in bits per second.
	BitRate *int `json:"bit_rate,omitempty" validate:"omitempty,min=1"`
	// FrameRate in frames per second.
	FrameRate *int `json:"frame_rate,omitempty" validate:"omitempty,min=1,max=240"`
	// Size is the output resolution.
	Size *resolution.Size `json:"size,omitempty"`
	// Profile is the x264 profile; ignored for other codecs.
	Profile string `json:"profile,omitempty" validate:"omitempty,oneof=baseline main high high10 high422 high444"`
	// PixelFormat is an ffmpeg pixel format name such as yuv420p.
	PixelFormat string `json:"pixel_format,omitempty" validate:"omitempty,alphanum"`
	// Filters are ffmpeg filter descriptors appended after scaling, in order.
	Filters []string `json:"filters,omitempty" validate:"omitempty,dive,required"`
}

// Int returns a pointer to v, for populating optional attribute fields.
func Int(v int) *int {
	return &v
}

// DefaultVideoAttributes returns a fresh copy of the library video defaults.
func DefaultVideoAttributes() VideoAttributes {
	size := resolution.VideoDefault.Size()
	return VideoAttributes{
		BitRate:     Int(DefaultVideoBitRate),
		FrameRate:   Int(DefaultFrameRate),
		Size:        &size,
		Profile:     DefaultProfile,
		PixelFormat: DefaultPixelFormat,
	}
}

// DefaultAudioAttributes returns a fresh copy of the library audio defaults.
func DefaultAudioAttributes() AudioAttributes {
	return AudioAttributes{
		BitRate:    Int(DefaultAudioBitRate),
		SampleRate: Int(DefaultAudioSampleRate),
		Channels:   Int(DefaultAudioChannels),
	}
}

// Clone returns a deep copy that shares no pointers or slices with a.
func (a AudioAttributes) Clone() AudioAttributes {
	a.BitRate = cloneInt(a.BitRate)
	a.SampleRate = cloneInt(a.SampleRate)
	a.Channels = cloneInt(a.Channels)
	return a
}

// Clone returns a deep copy that shares no pointers or slices with v.
func (v VideoAttributes) Clone() VideoAttributes {
	v.BitRate = cloneInt(v.BitRate)
	v.FrameRate = cloneInt(v.FrameRate)
	if v.Size != nil {
		size := *v.Size
		v.Size = &size
	}
	v.Filters = slices.Clone(v.Filters)
	return v
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	return Int(*p)
}
