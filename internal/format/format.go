// Package format defines the closed sets of image and video containers the
// compressor accepts, together with the tokens, muxers and default codecs
// each one maps to.
package format

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Static errors for format resolution.
var (
	// ErrUnsupportedImage is returned for unknown image format tokens.
	ErrUnsupportedImage = errors.New("unsupported image format")
	// ErrUnsupportedVideo is returned for unknown video format tokens.
	ErrUnsupportedVideo = errors.New("unsupported video format")
	// ErrUndetectable is returned when content sniffing finds no known container.
	ErrUndetectable = errors.New("could not detect media format")
)

// Image is a supported image output format. Its value is the canonical
// token, which doubles as the file extension.
type Image string

const (
	JPG  Image = "jpg"
	JPEG Image = "jpeg"
	PNG  Image = "png"
	GIF  Image = "gif"
	BMP  Image = "bmp"
	TIFF Image = "tiff"
	WEBP Image = "webp"
)

var imageMIME = map[Image]string{
	JPG:  "image/jpeg",
	JPEG: "image/jpeg",
	PNG:  "image/png",
	GIF:  "image/gif",
	BMP:  "image/bmp",
	TIFF: "image/tiff",
	WEBP: "image/webp",
}

// Images returns every supported image format.
func Images() []Image {
	return []Image{JPG, JPEG, PNG, GIF, BMP, TIFF, WEBP}
}

// ParseImage resolves an image token such as "png" or ".JPG".
func ParseImage(s string) (Image, error) {
	f := Image(normalize(s))
	if f == "tif" {
		return TIFF, nil
	}
	if _, ok := imageMIME[f]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedImage, s)
	}
	return f, nil
}

// Token returns the canonical token.
func (f Image) Token() string { return string(f) }

// Extension returns the token with a leading dot.
func (f Image) Extension() string { return "." + string(f) }

// MIME returns the media type of the format.
func (f Image) MIME() string { return imageMIME[f] }

// SupportsAlpha reports whether the format can carry an alpha channel.
func (f Image) SupportsAlpha() bool {
	switch f {
	case PNG, GIF, TIFF, WEBP:
		return true
	default:
		return false
	}
}

// Video is a supported video container. Its value is the canonical token,
// which doubles as the file extension.
type Video string

const (
	MP4  Video = "mp4"
	MOV  Video = "mov"
	MKV  Video = "mkv"
	WEBM Video = "webm"
	FLV  Video = "flv"
	AVI  Video = "avi"
	WMV  Video = "wmv"
	GP3  Video = "3gp"
)

type videoInfo struct {
	muxer      string
	videoCodec string
	audioCodec string
	mime       string
}

// Codec pairs are fixed per container so that a forced codec can always be
// muxed into the selected output.
var videoInfos = map[Video]videoInfo{
	MP4:  {muxer: "mp4", videoCodec: "libx264", audioCodec: "aac", mime: "video/mp4"},
	MOV:  {muxer: "mov", videoCodec: "libx264", audioCodec: "aac", mime: "video/quicktime"},
	MKV:  {muxer: "matroska", videoCodec: "libx264", audioCodec: "aac", mime: "video/x-matroska"},
	WEBM: {muxer: "webm", videoCodec: "libvpx", audioCodec: "libvorbis", mime: "video/webm"},
	FLV:  {muxer: "flv", videoCodec: "libx264", audioCodec: "aac", mime: "video/x-flv"},
	AVI:  {muxer: "avi", videoCodec: "libx264", audioCodec: "libmp3lame", mime: "video/x-msvideo"},
	WMV:  {muxer: "asf", videoCodec: "wmv2", audioCodec: "wmav2", mime: "video/x-ms-asf"},
	GP3:  {muxer: "3gp", videoCodec: "libx264", audioCodec: "aac", mime: "video/3gpp"},
}

// Videos returns every supported video container.
func Videos() []Video {
	return []Video{MP4, MOV, MKV, WEBM, FLV, AVI, WMV, GP3}
}

// ParseVideo resolves a video token such as "mp4" or ".WEBM".
func ParseVideo(s string) (Video, error) {
	f := Video(normalize(s))
	if f == "matroska" {
		return MKV, nil
	}
	if _, ok := videoInfos[f]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedVideo, s)
	}
	return f, nil
}

// Token returns the canonical token.
func (f Video) Token() string { return string(f) }

// Extension returns the token with a leading dot.
func (f Video) Extension() string { return "." + string(f) }

// Muxer returns the ffmpeg muxer name passed with -f.
func (f Video) Muxer() string { return videoInfos[f].muxer }

// VideoCodec returns the library default video codec for the container.
func (f Video) VideoCodec() string { return videoInfos[f].videoCodec }

// AudioCodec returns the library default audio codec for the container.
func (f Video) AudioCodec() string { return videoInfos[f].audioCodec }

// MIME returns the media type of the container.
func (f Video) MIME() string { return videoInfos[f].mime }

// DetectVideo sniffs data and returns the matching container.
func DetectVideo(data []byte) (Video, error) {
	m := mimetype.Detect(data)
	for _, f := range Videos() {
		if m.Is(f.MIME()) {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUndetectable, m.String())
}

// DetectImage sniffs data and returns the matching image format. JPEG input
// is reported as JPG.
func DetectImage(data []byte) (Image, error) {
	m := mimetype.Detect(data)
	for _, f := range Images() {
		if m.Is(f.MIME()) {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUndetectable, m.String())
}

func normalize(s string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), ".")
}
