package media

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/techgnious/ivcompressor/internal/encoding"
	"github.com/techgnious/ivcompressor/internal/format"
	"github.com/techgnious/ivcompressor/internal/resolution"
	"github.com/techgnious/ivcompressor/internal/storage"
)

type mockEncoder struct {
	mock.Mock
}

func (m *mockEncoder) Encode(ctx context.Context, inPath, outPath string, cfg encoding.Configuration) error {
	args := m.Called(ctx, inPath, outPath, cfg)
	return args.Error(0)
}

// writeOutput makes a mocked Encode call write data to its output path.
func writeOutput(data string) func(mock.Arguments) {
	return func(args mock.Arguments) {
		_ = os.WriteFile(args.String(2), []byte(data), 0600)
	}
}

// failingCleanupStore reports an error from every cleanup after removing the files.
type failingCleanupStore struct {
	*storage.LocalStorage
}

func (s failingCleanupStore) CleanupTemp(ctx context.Context, paths []string) error {
	_ = s.LocalStorage.CleanupTemp(ctx, paths)
	return errors.New("permission denied")
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestCompressor(t *testing.T, enc Encoder, opts ...VideoOption) (*VideoCompressor, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewLocalStorage(dir)
	require.NoError(t, err)

	opts = append([]VideoOption{WithLogger(testLogger())}, opts...)
	c, err := NewVideoCompressor(enc, store, opts...)
	require.NoError(t, err)
	return c, dir
}

func assertNoTempFiles(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "temporary files left behind")
}

func TestNewVideoCompressor_RequiresDependencies(t *testing.T) {
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = NewVideoCompressor(nil, store)
	assert.ErrorIs(t, err, ErrEncoderRequired)

	_, err = NewVideoCompressor(&mockEncoder{}, nil)
	assert.ErrorIs(t, err, ErrTempStoreRequired)
}

func TestReduceVideoSize_Success(t *testing.T) {
	enc := &mockEncoder{}
	c, dir := newTestCompressor(t, enc)

	var inPath, outPath string
	enc.On("Encode", mock.Anything, mock.Anything, mock.Anything, mock.MatchedBy(func(cfg encoding.Configuration) bool {
		return cfg.InputFormat == format.MP4 &&
			cfg.OutputFormat == format.MP4 &&
			cfg.Video.Codec == "libx264" &&
			cfg.Audio.Codec == "aac" &&
			*cfg.Video.Size == resolution.VideoDefault.Size()
	})).Run(func(args mock.Arguments) {
		inPath, outPath = args.String(1), args.String(2)
		staged, err := os.ReadFile(inPath)
		require.NoError(t, err)
		assert.Equal(t, "raw video", string(staged))
		writeOutput("encoded video")(args)
	}).Return(nil).Once()

	out, err := c.ReduceVideoSize(context.Background(), []byte("raw video"), format.MP4)
	require.NoError(t, err)
	assert.Equal(t, "encoded video", string(out))

	enc.AssertExpectations(t)
	assert.True(t, strings.HasSuffix(inPath, ".mp4"))
	assert.True(t, strings.HasSuffix(outPath, ".mp4"))
	assert.Contains(t, filepath.Base(inPath), "-source-")
	assert.Contains(t, filepath.Base(outPath), "-target-")
	prefix := strings.SplitN(filepath.Base(inPath), "-source-", 2)[0]
	assert.True(t, strings.HasPrefix(filepath.Base(outPath), prefix+"-target-"))
	assertNoTempFiles(t, dir)
}

func TestEncode_EncoderFailure(t *testing.T) {
	enc := &mockEncoder{}
	c, dir := newTestCompressor(t, enc)

	ffErr := &FFmpegError{
		Args:   []string{"-i", "in"},
		Stderr: "Invalid data found when processing input\nConversion failed!\n",
		Err:    errors.New("exit status 1"),
	}
	enc.On("Encode", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(ffErr).Once()

	_, err := c.ReduceVideoSize(context.Background(), []byte("not a video"), format.MOV)
	require.Error(t, err)

	var ve *VideoError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "Error occurred while resizing the video", ve.Message)
	assert.Equal(t, []string{"Invalid data found when processing input", "Conversion failed!"}, ve.Diagnostics)
	assert.ErrorIs(t, err, ffErr)
	assertNoTempFiles(t, dir)
}

func TestEncode_InvalidOverrides(t *testing.T) {
	enc := &mockEncoder{}
	c, dir := newTestCompressor(t, enc)

	_, err := c.EncodeVideoWithAttributes(context.Background(), []byte("x"), format.MP4,
		&encoding.AudioAttributes{Channels: encoding.Int(5)}, nil)

	var ve *VideoError
	require.ErrorAs(t, err, &ve)
	assert.ErrorIs(t, err, encoding.ErrInvalidAttributes)
	assert.Empty(t, ve.Diagnostics)
	enc.AssertNotCalled(t, "Encode", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	assertNoTempFiles(t, dir)
}

func TestEncodeVideoWithAttributes_MergesOntoInstanceDefaults(t *testing.T) {
	enc := &mockEncoder{}
	defaults := encoding.LibraryDefaults()
	defaults.Video.BitRate = encoding.Int(500000)
	c, _ := newTestCompressor(t, enc, WithDefaults(defaults))

	enc.On("Encode", mock.Anything, mock.Anything, mock.Anything, mock.MatchedBy(func(cfg encoding.Configuration) bool {
		return *cfg.Video.FrameRate == 30 &&
			*cfg.Video.BitRate == 500000 &&
			*cfg.Audio.Channels == 1 &&
			*cfg.Audio.SampleRate == encoding.DefaultAudioSampleRate
	})).Run(writeOutput("ok")).Return(nil).Once()

	_, err := c.EncodeVideoWithAttributes(context.Background(), []byte("x"), format.MKV,
		&encoding.AudioAttributes{Channels: encoding.Int(1)},
		&encoding.VideoAttributes{FrameRate: encoding.Int(30)})
	require.NoError(t, err)
	enc.AssertExpectations(t)

	// Instance defaults are untouched by the call.
	assert.Equal(t, encoding.DefaultFrameRate, *c.defaults.Video.FrameRate)
	assert.Equal(t, encoding.DefaultAudioChannels, *c.defaults.Audio.Channels)
}

func TestReduceVideoSizeWithResolution(t *testing.T) {
	enc := &mockEncoder{}
	c, _ := newTestCompressor(t, enc)

	enc.On("Encode", mock.Anything, mock.Anything, mock.Anything, mock.MatchedBy(func(cfg encoding.Configuration) bool {
		return *cfg.Video.Size == resolution.R720P.Size() && *cfg.Video.BitRate == encoding.DefaultVideoBitRate
	})).Run(writeOutput("720")).Return(nil).Once()

	out, err := c.ReduceVideoSizeWithResolution(context.Background(), []byte("x"), format.FLV, resolution.R720P)
	require.NoError(t, err)
	assert.Equal(t, "720", string(out))
	enc.AssertExpectations(t)
}

func TestReduceVideoSizeFile(t *testing.T) {
	enc := &mockEncoder{}
	c, _ := newTestCompressor(t, enc)

	src := filepath.Join(t.TempDir(), "clip.avi")
	require.NoError(t, os.WriteFile(src, []byte("from disk"), 0600))

	enc.On("Encode", mock.Anything, mock.MatchedBy(func(in string) bool {
		data, err := os.ReadFile(in)
		return err == nil && string(data) == "from disk" && strings.HasSuffix(in, ".avi")
	}), mock.Anything, mock.Anything).Run(writeOutput("done")).Return(nil).Once()

	out, err := c.ReduceVideoSizeFile(context.Background(), src, format.AVI)
	require.NoError(t, err)
	assert.Equal(t, "done", string(out))

	_, err = c.ReduceVideoSizeFile(context.Background(), filepath.Join(t.TempDir(), "missing.avi"), format.AVI)
	require.Error(t, err)
	var ve *VideoError
	assert.False(t, errors.As(err, &ve), "missing input file is an I/O error, not a VideoError")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestConvertVideo_LeavesAttributesToEncoder(t *testing.T) {
	enc := &mockEncoder{}
	c, dir := newTestCompressor(t, enc)

	var outPath string
	enc.On("Encode", mock.Anything, mock.Anything, mock.Anything, mock.MatchedBy(func(cfg encoding.Configuration) bool {
		return cfg.InputFormat == format.MP4 &&
			cfg.OutputFormat == format.WEBM &&
			cfg.Video.Codec == "" &&
			cfg.Video.BitRate == nil &&
			cfg.Video.Size == nil &&
			cfg.Audio.Codec == ""
	})).Run(func(args mock.Arguments) {
		outPath = args.String(2)
		writeOutput("webm")(args)
	}).Return(nil).Once()

	out, err := c.ConvertVideo(context.Background(), []byte("mp4"), format.MP4, format.WEBM)
	require.NoError(t, err)
	assert.Equal(t, "webm", string(out))
	assert.True(t, strings.HasSuffix(outPath, ".webm"))
	enc.AssertExpectations(t)
	assertNoTempFiles(t, dir)
}

func TestConvertAndResizeVideo(t *testing.T) {
	enc := &mockEncoder{}
	c, _ := newTestCompressor(t, enc)

	size := resolution.Size{Width: 320, Height: 240}
	enc.On("Encode", mock.Anything, mock.Anything, mock.Anything, mock.MatchedBy(func(cfg encoding.Configuration) bool {
		return cfg.OutputFormat == format.MOV && cfg.Video.Size != nil && *cfg.Video.Size == size && cfg.Video.FrameRate == nil
	})).Run(writeOutput("mov")).Return(nil).Once()

	_, err := c.ConvertAndResizeVideo(context.Background(), []byte("x"), format.MP4, format.MOV, size)
	require.NoError(t, err)
	enc.AssertExpectations(t)

	_, err = c.ConvertAndResizeVideo(context.Background(), []byte("x"), format.MP4, format.MOV, resolution.Size{})
	var ve *VideoError
	require.ErrorAs(t, err, &ve)
	assert.ErrorIs(t, err, encoding.ErrInvalidAttributes)
}

func TestEncode_Timeout(t *testing.T) {
	enc := &mockEncoder{}
	c, dir := newTestCompressor(t, enc, WithEncodeTimeout(20*time.Millisecond))

	enc.On("Encode", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(context.DeadlineExceeded).Once()

	_, err := c.ReduceVideoSize(context.Background(), []byte("x"), format.MP4)
	var ve *VideoError
	require.ErrorAs(t, err, &ve)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assertNoTempFiles(t, dir)
}

func TestEncode_CancelledContextStillCleansUp(t *testing.T) {
	enc := &mockEncoder{}
	c, dir := newTestCompressor(t, enc)

	ctx, cancel := context.WithCancel(context.Background())
	enc.On("Encode", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { cancel() }).
		Return(context.Canceled).Once()

	_, err := c.ReduceVideoSize(ctx, []byte("x"), format.MP4)
	require.Error(t, err)
	assertNoTempFiles(t, dir)
}

func TestEncode_CleanupFailureIsNotReturned(t *testing.T) {
	local, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	enc := &mockEncoder{}
	enc.On("Encode", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Run(writeOutput("fine")).Return(nil).Once()

	c, err := NewVideoCompressor(enc, failingCleanupStore{local}, WithLogger(testLogger()))
	require.NoError(t, err)

	out, err := c.ReduceVideoSize(context.Background(), []byte("x"), format.MP4)
	require.NoError(t, err)
	assert.Equal(t, "fine", string(out))
}

// rateEchoEncoder writes the frame rate it was asked for as the output.
type rateEchoEncoder struct {
	mu    sync.Mutex
	paths map[string]bool
}

func (e *rateEchoEncoder) Encode(_ context.Context, inPath, outPath string, cfg encoding.Configuration) error {
	e.mu.Lock()
	if e.paths[inPath] || e.paths[outPath] {
		e.mu.Unlock()
		return fmt.Errorf("temp path reused: %s %s", inPath, outPath)
	}
	e.paths[inPath], e.paths[outPath] = true, true
	e.mu.Unlock()

	staged, err := os.ReadFile(inPath)
	if err != nil {
		return err
	}
	time.Sleep(time.Millisecond)
	return os.WriteFile(outPath, []byte(string(staged)+":"+strconv.Itoa(*cfg.Video.FrameRate)), 0600)
}

func TestEncode_ConcurrentCallsDoNotShareConfiguration(t *testing.T) {
	enc := &rateEchoEncoder{paths: map[string]bool{}}
	c, dir := newTestCompressor(t, enc)

	const workers = 16
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 1; i <= workers; i++ {
		wg.Add(1)
		go func(rate int) {
			defer wg.Done()
			input := "call" + strconv.Itoa(rate)
			out, err := c.EncodeVideoWithAttributes(context.Background(), []byte(input), format.MP4, nil,
				&encoding.VideoAttributes{FrameRate: encoding.Int(rate)})
			if err != nil {
				errs <- err
				return
			}
			if want := input + ":" + strconv.Itoa(rate); string(out) != want {
				errs <- fmt.Errorf("got %q, want %q", out, want)
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
	assert.Equal(t, encoding.DefaultFrameRate, *c.defaults.Video.FrameRate)
	assertNoTempFiles(t, dir)
}

// shapeEchoEncoder checks that the staged files carry the extensions of the
// call's own containers and writes back what it was asked to produce.
type shapeEchoEncoder struct{}

func (shapeEchoEncoder) Encode(_ context.Context, inPath, outPath string, cfg encoding.Configuration) error {
	if filepath.Ext(inPath) != cfg.InputFormat.Extension() || filepath.Ext(outPath) != cfg.OutputFormat.Extension() {
		return fmt.Errorf("temp files %s -> %s do not match %s -> %s", inPath, outPath, cfg.InputFormat, cfg.OutputFormat)
	}
	staged, err := os.ReadFile(inPath)
	if err != nil {
		return err
	}
	size := "none"
	if cfg.Video.Size != nil {
		size = fmt.Sprintf("%dx%d", cfg.Video.Size.Width, cfg.Video.Size.Height)
	}
	time.Sleep(time.Millisecond)
	return os.WriteFile(outPath, []byte(fmt.Sprintf("%s|%s|%s", staged, cfg.OutputFormat, size)), 0600)
}

func TestEncode_ConcurrentCallsKeepTheirOwnContainerAndSize(t *testing.T) {
	c, dir := newTestCompressor(t, shapeEchoEncoder{})

	videos := format.Videos()
	presets := resolution.Presets()
	defaultSize := resolution.VideoDefault.Size()

	const calls = 48
	var wg sync.WaitGroup
	errs := make(chan error, calls)
	for i := 0; i < calls; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			in := videos[i%len(videos)]
			out := videos[(i*3+1)%len(videos)]
			size := presets[i%len(presets)].Size()
			input := "call" + strconv.Itoa(i)

			var got []byte
			var err error
			var want string
			switch i % 3 {
			case 0:
				got, err = c.Encode(context.Background(), []byte(input), EncodeRequest{Input: in, Output: out, Size: &size})
				want = fmt.Sprintf("%s|%s|%dx%d", input, out, size.Width, size.Height)
			case 1:
				got, err = c.ConvertAndResizeVideo(context.Background(), []byte(input), in, out, size)
				want = fmt.Sprintf("%s|%s|%dx%d", input, out, size.Width, size.Height)
			default:
				got, err = c.ReduceVideoSize(context.Background(), []byte(input), in)
				want = fmt.Sprintf("%s|%s|%dx%d", input, in, defaultSize.Width, defaultSize.Height)
			}
			if err != nil {
				errs <- err
				return
			}
			if string(got) != want {
				errs <- fmt.Errorf("call %d: got %q, want %q", i, got, want)
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
	assert.Equal(t, defaultSize, *c.defaults.Video.Size)
	assertNoTempFiles(t, dir)
}

func TestVideoCompressor_WithFFmpeg(t *testing.T) {
	skipIfNoFFmpeg(t)
	skipIfNoEncoder(t, "libvpx", "libvorbis")

	src := filepath.Join(t.TempDir(), "source.mp4")
	createTestVideo(t, src, 1.0, "green")
	data, err := os.ReadFile(src)
	require.NoError(t, err)

	c, dir := newTestCompressor(t, NewFFmpegEncoder(""), WithEncodeTimeout(time.Minute))

	out, err := c.Encode(context.Background(), data, EncodeRequest{
		Input:  format.MP4,
		Output: format.WEBM,
		Video:  &encoding.VideoAttributes{FrameRate: encoding.Int(15)},
	})
	require.NoError(t, err)
	assertNoTempFiles(t, dir)

	dst := filepath.Join(t.TempDir(), "out.webm")
	require.NoError(t, os.WriteFile(dst, out, 0600))
	w, h, rate := probeVideo(t, dst)
	assert.Equal(t, 400, w)
	assert.Equal(t, 300, h)
	assert.Equal(t, "15/1", rate)
	assert.Equal(t, "vorbis", probeAudioCodec(t, dst))
}
