// Package server provides the HTTP façade over the image resizer and the
// video compressor. It includes handlers, middleware, routes, and DTOs
// separated from domain types.
package server

// ResizeImageRequest is the HTTP request body for resizing an image.
// Width and Height take precedence over Resolution; with neither, the
// server's configured image resolution is used.
type ResizeImageRequest struct {
	// ImageBase64 is the base64-encoded source image.
	ImageBase64 string `json:"image_base64" validate:"required"`
	// Format is the output image format token, e.g. "png".
	Format string `json:"format" validate:"required"`
	// Resolution is an optional preset name such as "720p" or "thumbnail".
	Resolution string `json:"resolution,omitempty"`
	// Width is the optional custom target width.
	Width int `json:"width,omitempty" validate:"required_with=Height,omitempty,min=1,max=8192"`
	// Height is the optional custom target height.
	Height int `json:"height,omitempty" validate:"required_with=Width,omitempty,min=1,max=8192"`
}

// ResizeImageResponse is the HTTP response for a resized image.
type ResizeImageResponse struct {
	// ImageBase64 is the base64-encoded resized image.
	ImageBase64 string `json:"image_base64"`
	// Format is the output image format token.
	Format string `json:"format"`
	// Width is the output width in pixels.
	Width int `json:"width"`
	// Height is the output height in pixels.
	Height int `json:"height"`
}

// VideoAttributesRequest carries optional video overrides.
type VideoAttributesRequest struct {
	BitRate     *int     `json:"bit_rate,omitempty" validate:"omitempty,min=1"`
	FrameRate   *int     `json:"frame_rate,omitempty" validate:"omitempty,min=1,max=240"`
	Width       int      `json:"width,omitempty" validate:"required_with=Height,omitempty,min=1,max=8192"`
	Height      int      `json:"height,omitempty" validate:"required_with=Width,omitempty,min=1,max=8192"`
	Profile     string   `json:"profile,omitempty"`
	PixelFormat string   `json:"pixel_format,omitempty"`
	Filters     []string `json:"filters,omitempty" validate:"omitempty,max=16,dive,required,vfilter"`
}

// AudioAttributesRequest carries optional audio overrides.
type AudioAttributesRequest struct {
	BitRate    *int `json:"bit_rate,omitempty" validate:"omitempty,min=1"`
	SampleRate *int `json:"sample_rate,omitempty" validate:"omitempty,min=1"`
	Channels   *int `json:"channels,omitempty" validate:"omitempty,oneof=1 2"`
}

// EncodeVideoRequest is the HTTP request body for re-encoding a video.
type EncodeVideoRequest struct {
	// VideoBase64 is the base64-encoded source video.
	VideoBase64 string `json:"video_base64" validate:"required"`
	// InputFormat is the source container; detected from content when empty.
	InputFormat string `json:"input_format,omitempty"`
	// OutputFormat is the target container token, e.g. "webm".
	OutputFormat string `json:"output_format" validate:"required"`
	// Resolution is an optional preset name; it overrides video.width/height.
	Resolution string `json:"resolution,omitempty"`
	// Video holds optional video attribute overrides.
	Video *VideoAttributesRequest `json:"video,omitempty"`
	// Audio holds optional audio attribute overrides.
	Audio *AudioAttributesRequest `json:"audio,omitempty"`
	// FileName, when set, stores the result under the output directory
	// instead of returning it inline. Also used as the S3 object key.
	FileName string `json:"file_name,omitempty" validate:"omitempty,max=255"`
	// PushToS3 indicates whether to upload the result to S3.
	PushToS3 bool `json:"push_to_s3"`
}

// ConvertVideoRequest is the HTTP request body for a container change.
type ConvertVideoRequest struct {
	// VideoBase64 is the base64-encoded source video.
	VideoBase64 string `json:"video_base64" validate:"required"`
	// InputFormat is the source container; detected from content when empty.
	InputFormat string `json:"input_format,omitempty"`
	// OutputFormat is the target container token.
	OutputFormat string `json:"output_format" validate:"required"`
	// Width is the optional target width.
	Width int `json:"width,omitempty" validate:"required_with=Height,omitempty,min=1,max=8192"`
	// Height is the optional target height.
	Height int `json:"height,omitempty" validate:"required_with=Width,omitempty,min=1,max=8192"`
	// FileName, when set, stores the result under the output directory.
	FileName string `json:"file_name,omitempty" validate:"omitempty,max=255"`
	// PushToS3 indicates whether to upload the result to S3.
	PushToS3 bool `json:"push_to_s3"`
}

// VideoResponse is the HTTP response for an encoded video. Exactly one of
// VideoBase64, Path and VideoURL is set.
type VideoResponse struct {
	// VideoBase64 is the base64-encoded result when it is returned inline.
	VideoBase64 string `json:"video_base64,omitempty"`
	// Path is the absolute path of the stored result.
	Path string `json:"path,omitempty"`
	// VideoURL is the S3 URL of the uploaded result.
	VideoURL string `json:"video_url,omitempty"`
	// Format is the output container token.
	Format string `json:"format"`
	// SizeBytes is the size of the encoded result.
	SizeBytes int `json:"size_bytes"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`
	// Code is the error code for programmatic handling.
	Code string `json:"code"`
	// Details holds encoder diagnostics, when available.
	Details []string `json:"details,omitempty"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	// Status is the health status of the service.
	Status string `json:"status"`
}
