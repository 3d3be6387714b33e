package thumbnail

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"os/exec"
	"strconv"
	"time"

	"video-catalog/internal/cache"
	"video-catalog/internal/logging"
	"video-catalog/internal/metrics"
	"video-catalog/internal/probe"

	"github.com/disintegration/imaging"

	_ "image/png"

	_ "golang.org/x/image/bmp"
)

// largeFileBytes is the size above which a file with an unknown frame
// count is assumed to run long enough to seek five seconds in.
const largeFileBytes = 10 * 1000 * 1000

// Key identifies one cached thumbnail: path, normalized position, and
// target dimensions.
type Key struct {
	Path     string
	Position float64
	Width    int
	Height   int
}

// MetadataSource supplies media metadata for seek calculations.
// *probe.Prober satisfies it.
type MetadataSource interface {
	Probe(ctx context.Context, path string) (*probe.Metadata, error)
}

// frameRunner executes ffmpeg and returns one encoded frame.
// Swappable in tests.
type frameRunner func(ctx context.Context, path string, seekSeconds float64) ([]byte, error)

// Extractor decodes one representative frame per video and scales it to
// fit a target size. Extraction can run synchronously or on a bounded
// worker pool; results are cached by composite key for the process
// lifetime.
type Extractor struct {
	cache  *cache.Bounded[Key, image.Image]
	meta   MetadataSource
	sem    chan struct{}
	runner frameRunner
}

// New creates an Extractor with the given cache capacity and worker
// pool size. meta is consulted to translate a normalized position into
// a seek timestamp.
func New(cacheCapacity, poolSize int, meta MetadataSource) *Extractor {
	if poolSize < 1 {
		poolSize = 1
	}
	return &Extractor{
		cache:  cache.NewBounded[Key, image.Image](cacheCapacity),
		meta:   meta,
		sem:    make(chan struct{}, poolSize),
		runner: runFFmpegFrame,
	}
}

// Extract returns a thumbnail for path at the normalized position
// (clamped into [0,1]), scaled to fit within target preserving the
// source aspect ratio. It never returns nil: when the file cannot be
// opened or no frame decodes, a solid placeholder of exactly the target
// size is returned so callers always have something paintable.
func (e *Extractor) Extract(ctx context.Context, path string, position float64, target image.Point) image.Image {
	position = clamp(position)

	key := Key{Path: path, Position: position, Width: target.X, Height: target.Y}
	if img, ok := e.cache.Get(key); ok {
		metrics.ThumbnailCacheHits.Inc()
		return img
	}

	start := time.Now()

	seek, ok := e.seekSeconds(ctx, path, position)
	if !ok {
		metrics.ThumbnailOperationsTotal.WithLabelValues("placeholder").Inc()
		return Placeholder(target)
	}

	frame, err := e.runner(ctx, path, seek)
	if err != nil {
		logging.Debug("frame extraction failed for %s: %v", path, err)
		metrics.ThumbnailOperationsTotal.WithLabelValues("placeholder").Inc()
		return Placeholder(target)
	}

	img, _, err := image.Decode(bytes.NewReader(frame))
	if err != nil {
		logging.Debug("frame decode failed for %s: %v", path, err)
		metrics.ThumbnailOperationsTotal.WithLabelValues("placeholder").Inc()
		return Placeholder(target)
	}

	thumb := imaging.Fit(img, target.X, target.Y, imaging.Lanczos)
	e.cache.Put(key, thumb)

	metrics.ThumbnailOperationsTotal.WithLabelValues("success").Inc()
	metrics.ThumbnailDuration.Observe(time.Since(start).Seconds())

	return thumb
}

// ExtractAsync schedules extraction on the worker pool and invokes
// callback with the result when done. The call itself never blocks;
// concurrency is capped by the pool size. The callback is invoked
// exactly once, with a nil image when ctx was cancelled before a frame
// was produced. It runs on a worker goroutine, so consumers that are
// not thread-safe must marshal the result onto their own loop.
func (e *Extractor) ExtractAsync(ctx context.Context, path string, position float64, target image.Point, callback func(path string, img image.Image)) {
	go func() {
		select {
		case e.sem <- struct{}{}:
		case <-ctx.Done():
			callback(path, nil)
			return
		}
		defer func() { <-e.sem }()

		metrics.ThumbnailWorkersBusy.Inc()
		defer metrics.ThumbnailWorkersBusy.Dec()

		img := e.Extract(ctx, path, position, target)
		if ctx.Err() != nil {
			callback(path, nil)
			return
		}
		callback(path, img)
	}()
}

// Invalidate drops every cached thumbnail for path.
func (e *Extractor) Invalidate(path string) {
	// Keys embed position and size, so a targeted delete is not
	// possible without tracking them. A full flush is acceptable for
	// the rare rename/delete case.
	e.cache.Clear()
}

// ClearCache discards all cached thumbnails.
func (e *Extractor) ClearCache() {
	e.cache.Clear()
}

// seekSeconds converts a normalized position into a wall-clock seek
// offset. When the frame count is known the selected frame index is
// clamped to a minimum of 1: frame 0 is black or corrupt in several
// common encoders. When it is unknown the offset falls back to 5s for
// large files and 1s for small ones.
func (e *Extractor) seekSeconds(ctx context.Context, path string, position float64) (float64, bool) {
	meta, err := e.meta.Probe(ctx, path)
	if err != nil || meta == nil {
		return 0, false
	}
	return seekForMetadata(meta, position), true
}

func seekForMetadata(meta *probe.Metadata, position float64) float64 {
	if meta.Frames > 0 {
		frame := int64(float64(meta.Frames) * position)
		if frame < 1 {
			frame = 1
		}
		if meta.FrameRate > 0 {
			return float64(frame) / meta.FrameRate
		}
		if meta.Duration > 0 {
			return meta.Duration * float64(frame) / float64(meta.Frames)
		}
	}

	if meta.Size > largeFileBytes {
		return 5.0
	}
	return 1.0
}

// Placeholder returns a solid dark-gray image of exactly the given size.
func Placeholder(target image.Point) image.Image {
	if target.X < 1 {
		target.X = 1
	}
	if target.Y < 1 {
		target.Y = 1
	}
	img := image.NewRGBA(image.Rect(0, 0, target.X, target.Y))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.RGBA{R: 64, G: 64, B: 64, A: 255}}, image.Point{}, draw.Src)
	return img
}

func clamp(position float64) float64 {
	if position < 0 {
		return 0
	}
	if position > 1 {
		return 1
	}
	return position
}

// runFFmpegFrame decodes one frame at the given offset. The first
// attempt pipes PNG with rgb24 pixel format, which also normalizes the
// decoder's native channel order. If that fails the seek is dropped and
// BMP output is tried, which some truncated containers still manage.
func runFFmpegFrame(ctx context.Context, path string, seekSeconds float64) ([]byte, error) {
	out, err := pipeFrame(ctx, path, seekSeconds, "png")
	if err == nil {
		return out, nil
	}
	logging.Debug("ffmpeg png attempt failed for %s: %v, retrying with bmp", path, err)

	out, retryErr := pipeFrame(ctx, path, -1, "bmp")
	if retryErr != nil {
		return nil, fmt.Errorf("ffmpeg failed: %w (retry: %v)", err, retryErr)
	}
	return out, nil
}

func pipeFrame(ctx context.Context, path string, seekSeconds float64, codec string) ([]byte, error) {
	args := []string{}
	if seekSeconds >= 0 {
		args = append(args, "-ss", strconv.FormatFloat(seekSeconds, 'f', 3, 64))
	}
	args = append(args,
		"-i", path,
		"-vframes", "1",
		"-f", "image2pipe",
		"-vcodec", codec,
		"-pix_fmt", "rgb24",
		"-",
	)

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg error: %w - %s", err, stderr.String())
	}
	if stdout.Len() == 0 {
		return nil, fmt.Errorf("ffmpeg produced no output for %s", path)
	}
	return stdout.Bytes(), nil
}
