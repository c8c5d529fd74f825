package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/techgnious/ivcompressor/internal/encoding"
	"github.com/techgnious/ivcompressor/internal/format"
	"github.com/techgnious/ivcompressor/internal/media"
	"github.com/techgnious/ivcompressor/internal/media/tempname"
	"github.com/techgnious/ivcompressor/internal/metrics"
	"github.com/techgnious/ivcompressor/internal/resolution"
	"github.com/techgnious/ivcompressor/internal/storage"
)

// Operation names used for metrics.
const (
	opImageResize  = "image_resize"
	opVideoEncode  = "video_encode"
	opVideoConvert = "video_convert"
)

// ImageResizer is the image capability used by the handlers.
type ImageResizer interface {
	Preset() resolution.Preset
	Resize(data []byte, f format.Image) ([]byte, error)
	ResizeTo(data []byte, f format.Image, p resolution.Preset) ([]byte, error)
	ResizeToSize(data []byte, f format.Image, size resolution.Size) ([]byte, error)
}

// VideoCompressor is the video capability used by the handlers.
type VideoCompressor interface {
	Encode(ctx context.Context, data []byte, req media.EncodeRequest) ([]byte, error)
	ConvertVideo(ctx context.Context, data []byte, in, out format.Video) ([]byte, error)
	ConvertAndResizeVideo(ctx context.Context, data []byte, in, out format.Video, size resolution.Size) ([]byte, error)
}

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	images       ImageResizer
	videos       VideoCompressor
	store        storage.Storage
	metrics      *metrics.Metrics
	validator    *validator.Validate
	logger       *slog.Logger
	outputDir    string
	maxBodyBytes int64
}

// HandlerOption is a function that configures a Handlers instance.
type HandlerOption func(*Handlers)

// WithStorage sets where results requested by file name or for S3 go.
func WithStorage(s storage.Storage) HandlerOption {
	return func(h *Handlers) {
		h.store = s
	}
}

// WithOutputDir sets the directory results are stored in when a request
// names a file.
func WithOutputDir(dir string) HandlerOption {
	return func(h *Handlers) {
		h.outputDir = dir
	}
}

// WithMaxBodyBytes limits the size of request bodies.
func WithMaxBodyBytes(n int64) HandlerOption {
	return func(h *Handlers) {
		if n > 0 {
			h.maxBodyBytes = n
		}
	}
}

// WithMetrics records operation metrics and exposes them on /metrics.
func WithMetrics(m *metrics.Metrics) HandlerOption {
	return func(h *Handlers) {
		h.metrics = m
	}
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(images ImageResizer, videos VideoCompressor, logger *slog.Logger, opts ...HandlerOption) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handlers{
		images:       images,
		videos:       videos,
		validator:    newValidator(),
		logger:       logger,
		maxBodyBytes: 256 << 20,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// ResizeImage handles POST /images/resize requests.
func (h *Handlers) ResizeImage(w http.ResponseWriter, r *http.Request) {
	var req ResizeImageRequest
	if !h.decode(w, r, &req) {
		return
	}

	f, err := format.ParseImage(req.Format)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "UNSUPPORTED_FORMAT")
		return
	}
	data, ok := decodeBase64(w, req.ImageBase64)
	if !ok {
		return
	}

	var size resolution.Size
	var out []byte
	done := h.track(opImageResize, len(data))
	switch {
	case req.Width > 0:
		size = resolution.Size{Width: req.Width, Height: req.Height}
		out, err = h.images.ResizeToSize(data, f, size)
	case req.Resolution != "":
		p, perr := resolution.Parse(req.Resolution)
		if perr != nil {
			done(0, perr)
			writeError(w, http.StatusBadRequest, perr.Error(), "UNKNOWN_RESOLUTION")
			return
		}
		size = p.Size()
		out, err = h.images.ResizeTo(data, f, p)
	default:
		size = h.images.Preset().Size()
		out, err = h.images.Resize(data, f)
	}
	done(len(out), err)

	if err != nil {
		h.writeMediaError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ResizeImageResponse{
		ImageBase64: base64.StdEncoding.EncodeToString(out),
		Format:      f.Token(),
		Width:       size.Width,
		Height:      size.Height,
	})
}

// EncodeVideo handles POST /videos/encode requests.
func (h *Handlers) EncodeVideo(w http.ResponseWriter, r *http.Request) {
	var req EncodeVideoRequest
	if !h.decode(w, r, &req) {
		return
	}

	data, ok := decodeBase64(w, req.VideoBase64)
	if !ok {
		return
	}
	in, out, ok := resolveVideoFormats(w, data, req.InputFormat, req.OutputFormat)
	if !ok {
		return
	}

	encReq := media.EncodeRequest{
		Input:  in,
		Output: out,
		Video:  toVideoAttributes(req.Video),
		Audio:  toAudioAttributes(req.Audio),
	}
	if req.Resolution != "" {
		p, err := resolution.Parse(req.Resolution)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error(), "UNKNOWN_RESOLUTION")
			return
		}
		size := p.Size()
		encReq.Size = &size
	}

	done := h.track(opVideoEncode, len(data))
	result, err := h.videos.Encode(r.Context(), data, encReq)
	done(len(result), err)
	if err != nil {
		h.writeMediaError(w, err)
		return
	}

	h.deliver(w, r, result, out, req.FileName, req.PushToS3)
}

// ConvertVideo handles POST /videos/convert requests.
func (h *Handlers) ConvertVideo(w http.ResponseWriter, r *http.Request) {
	var req ConvertVideoRequest
	if !h.decode(w, r, &req) {
		return
	}

	data, ok := decodeBase64(w, req.VideoBase64)
	if !ok {
		return
	}
	in, out, ok := resolveVideoFormats(w, data, req.InputFormat, req.OutputFormat)
	if !ok {
		return
	}

	var result []byte
	var err error
	done := h.track(opVideoConvert, len(data))
	if req.Width > 0 {
		result, err = h.videos.ConvertAndResizeVideo(r.Context(), data, in, out,
			resolution.Size{Width: req.Width, Height: req.Height})
	} else {
		result, err = h.videos.ConvertVideo(r.Context(), data, in, out)
	}
	done(len(result), err)
	if err != nil {
		h.writeMediaError(w, err)
		return
	}

	h.deliver(w, r, result, out, req.FileName, req.PushToS3)
}

// deliver returns the result inline, stores it under the output directory,
// or uploads it to S3.
func (h *Handlers) deliver(w http.ResponseWriter, r *http.Request, data []byte, f format.Video, fileName string, pushToS3 bool) {
	resp := VideoResponse{Format: f.Token(), SizeBytes: len(data)}

	switch {
	case pushToS3:
		if h.store == nil {
			writeError(w, http.StatusBadRequest, storage.ErrS3NotConfigured.Error(), "S3_NOT_CONFIGURED")
			return
		}
		name := fileName
		if name == "" {
			name = tempname.Generate()
		}
		url, err := h.store.UploadToS3(r.Context(), storage.WithExtension(name, f.Token()), bytes.NewReader(data))
		if err != nil {
			if errors.Is(err, storage.ErrS3NotConfigured) {
				writeError(w, http.StatusBadRequest, err.Error(), "S3_NOT_CONFIGURED")
				return
			}
			h.logger.Error("failed to upload result", slog.String("error", err.Error()))
			writeError(w, http.StatusBadGateway, "failed to upload result", "UPLOAD_FAILED")
			return
		}
		resp.VideoURL = url

	case fileName != "":
		if h.store == nil || h.outputDir == "" {
			writeError(w, http.StatusBadRequest, "result storage is not configured", "STORAGE_NOT_CONFIGURED")
			return
		}
		path, err := h.store.Store(r.Context(), data, fileName, h.outputDir, f.Token())
		if err != nil {
			if errors.Is(err, storage.ErrInvalidFileName) || errors.Is(err, storage.ErrInvalidPath) {
				writeError(w, http.StatusBadRequest, err.Error(), "INVALID_FILE_NAME")
				return
			}
			h.logger.Error("failed to store result",
				slog.String("file_name", fileName),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "failed to store result", "STORE_FAILED")
			return
		}
		resp.Path = path

	default:
		resp.VideoBase64 = base64.StdEncoding.EncodeToString(data)
	}

	writeJSON(w, http.StatusOK, resp)
}

// decode reads and validates a JSON body, writing the error response on failure.
func (h *Handlers) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large", "BODY_TOO_LARGE")
			return false
		}
		h.logger.Warn("failed to decode request body",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, "invalid JSON body", "INVALID_JSON")
		return false
	}

	// Validate request
	if err := h.validator.Struct(dst); err != nil {
		h.logger.Warn("request validation failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return false
	}
	return true
}

func (h *Handlers) track(operation string, inputBytes int) func(int, error) {
	if h.metrics == nil {
		return func(int, error) {}
	}
	return h.metrics.Track(operation, inputBytes)
}

// writeMediaError maps domain errors to HTTP responses.
func (h *Handlers) writeMediaError(w http.ResponseWriter, err error) {
	var ie *media.ImageError
	var ve *media.VideoError
	switch {
	case errors.Is(err, encoding.ErrInvalidAttributes):
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
	case errors.As(err, &ie):
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:   ie.Message,
			Code:    "IMAGE_ERROR",
			Details: []string{err.Error()},
		})
	case errors.As(err, &ve):
		h.logger.Warn("video operation failed",
			slog.String("error", err.Error()),
			slog.Int("diagnostic_lines", len(ve.Diagnostics)),
		)
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:   ve.Message,
			Code:    "VIDEO_ERROR",
			Details: ve.Diagnostics,
		})
	default:
		h.logger.Error("media operation failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
	}
}

func decodeBase64(w http.ResponseWriter, s string) ([]byte, bool) {
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid base64 payload", "INVALID_BASE64")
		return nil, false
	}
	return data, true
}

// resolveVideoFormats parses the output token and the input token, sniffing
// the input container from data when no token was given.
func resolveVideoFormats(w http.ResponseWriter, data []byte, inToken, outToken string) (format.Video, format.Video, bool) {
	out, err := format.ParseVideo(outToken)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "UNSUPPORTED_FORMAT")
		return "", "", false
	}

	var in format.Video
	if inToken != "" {
		in, err = format.ParseVideo(inToken)
	} else {
		in, err = format.DetectVideo(data)
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "UNSUPPORTED_FORMAT")
		return "", "", false
	}
	return in, out, true
}

func toVideoAttributes(req *VideoAttributesRequest) *encoding.VideoAttributes {
	if req == nil {
		return nil
	}
	v := &encoding.VideoAttributes{
		BitRate:     req.BitRate,
		FrameRate:   req.FrameRate,
		Profile:     req.Profile,
		PixelFormat: req.PixelFormat,
		Filters:     req.Filters,
	}
	if req.Width > 0 {
		v.Size = &resolution.Size{Width: req.Width, Height: req.Height}
	}
	return v
}

func toAudioAttributes(req *AudioAttributesRequest) *encoding.AudioAttributes {
	if req == nil {
		return nil
	}
	return &encoding.AudioAttributes{
		BitRate:    req.BitRate,
		SampleRate: req.SampleRate,
		Channels:   req.Channels,
	}
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
