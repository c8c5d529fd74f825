// Package resolution provides the catalog of named width/height presets used
// when a caller does not supply a custom size.
package resolution

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownPreset is returned when a preset name cannot be parsed.
var ErrUnknownPreset = errors.New("unknown resolution preset")

// Size is a custom width/height pair. It is the alternative to a Preset.
type Size struct {
	// Width in pixels.
	Width int `json:"width" validate:"min=1,max=8192"`
	// Height in pixels.
	Height int `json:"height" validate:"min=1,max=8192"`
}

// String returns the size formatted as WxH.
func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// Valid reports whether both dimensions are positive.
func (s Size) Valid() bool {
	return s.Width > 0 && s.Height > 0
}

// Preset is a named resolution.
type Preset int

const (
	R240P Preset = iota
	R360P
	R480P
	R720P
	R1080P
	R1440P
	// ImageDefault is used by image resizing when no resolution is given.
	ImageDefault
	// VideoDefault is used by video encoding when no resolution is given.
	VideoDefault
	// Thumbnail is 189x100. The odd width cannot be encoded with a 4:2:0
	// pixel format, so video encodes using one are scaled to 190x100.
	Thumbnail
	SmallThumbnail
)

type presetInfo struct {
	name string
	size Size
}

var presets = map[Preset]presetInfo{
	R240P:          {"240p", Size{426, 240}},
	R360P:          {"360p", Size{480, 360}},
	R480P:          {"480p", Size{640, 480}},
	R720P:          {"720p", Size{1280, 720}},
	R1080P:         {"1080p", Size{1920, 1080}},
	R1440P:         {"1440p", Size{2560, 1440}},
	ImageDefault:   {"image_default", Size{480, 360}},
	VideoDefault:   {"video_default", Size{400, 300}},
	Thumbnail:      {"thumbnail", Size{189, 100}},
	SmallThumbnail: {"small_thumbnail", Size{100, 100}},
}

// Presets returns every preset in declaration order.
func Presets() []Preset {
	return []Preset{R240P, R360P, R480P, R720P, R1080P, R1440P, ImageDefault, VideoDefault, Thumbnail, SmallThumbnail}
}

// Size returns the preset's dimensions.
func (p Preset) Size() Size {
	return presets[p].size
}

// Width returns the preset's width in pixels.
func (p Preset) Width() int {
	return p.Size().Width
}

// Height returns the preset's height in pixels.
func (p Preset) Height() int {
	return p.Size().Height
}

func (p Preset) String() string {
	if info, ok := presets[p]; ok {
		return info.name
	}
	return fmt.Sprintf("Preset(%d)", int(p))
}

// Parse resolves a preset by name. Matching is case-insensitive and accepts
// an optional leading "r" ("r720p") as well as '-' in place of '_'.
func Parse(name string) (Preset, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	n = strings.ReplaceAll(n, "-", "_")
	if strings.HasPrefix(n, "r") && strings.HasSuffix(n, "p") {
		n = strings.TrimPrefix(n, "r")
	}
	for p, info := range presets {
		if info.name == n {
			return p, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
}
