package probe

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"video-catalog/internal/cache"
	"video-catalog/internal/filesystem"
	"video-catalog/internal/logging"
	"video-catalog/internal/metrics"

	"github.com/goccy/go-json"
)

// Metadata holds the intrinsic properties of one media file. It is an
// immutable snapshot: a re-probe after a file change replaces the whole
// record, there are no partial updates.
type Metadata struct {
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	FrameRate  float64   `json:"frameRate"` // 0 when unknown
	Duration   float64   `json:"duration"`  // seconds
	Frames     int64     `json:"frames"`    // 0 when unknown
	Size       int64     `json:"size"`
	CreatedAt  time.Time `json:"createdAt"`
	ModifiedAt time.Time `json:"modifiedAt"`
}

// Fallback holds the defaults substituted when a container cannot be
// opened or under-reports its properties. These are best-effort values,
// not measurements; they keep one bad file from stalling ingestion.
type Fallback struct {
	Width     int
	Height    int
	FrameRate float64
	Duration  float64
}

// DefaultFallback mirrors the historical defaults: 720p, 30fps, one minute.
var DefaultFallback = Fallback{Width: 1280, Height: 720, FrameRate: 30, Duration: 60}

// runnerFunc executes ffprobe for a path and returns its stdout.
// Swappable in tests to count filesystem touches.
type runnerFunc func(ctx context.Context, path string) ([]byte, error)

// Prober extracts media metadata from files via ffprobe. Results are
// cached by path; repeated probes of an unmodified path are served from
// the cache without re-reading the file.
type Prober struct {
	cache    *cache.Bounded[string, Metadata]
	fallback Fallback
	runner   runnerFunc
}

// New creates a Prober with the given cache capacity and fallback
// defaults. A zero-value Fallback selects DefaultFallback.
func New(cacheCapacity int, fallback Fallback) *Prober {
	if fallback == (Fallback{}) {
		fallback = DefaultFallback
	}
	return &Prober{
		cache:    cache.NewBounded[string, Metadata](cacheCapacity),
		fallback: fallback,
		runner:   runFFprobe,
	}
}

// Probe returns the metadata for path. A nonexistent path yields a nil
// record and an error; an existing but unreadable or corrupt file yields
// the fallback record and no error, so a single bad file never aborts a
// scan.
func (p *Prober) Probe(ctx context.Context, path string) (*Metadata, error) {
	if meta, ok := p.cache.Get(path); ok {
		metrics.ProbeCacheHits.Inc()
		return &meta, nil
	}

	start := time.Now()

	info, err := filesystem.StatWithRetry(path, filesystem.DefaultRetryConfig())
	if err != nil {
		metrics.ProbeOperationsTotal.WithLabelValues("missing").Inc()
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	meta := Metadata{
		Size:       info.Size(),
		CreatedAt:  info.ModTime(),
		ModifiedAt: info.ModTime(),
	}

	out, err := p.runner(ctx, path)
	if err != nil {
		// File exists but the container would not open. Hand back the
		// heuristic record instead of failing the caller. Hard failures
		// are not cached so a later retry gets a fresh look.
		logging.Debug("probe failed for %s: %v, using fallback", path, err)
		metrics.ProbeOperationsTotal.WithLabelValues("fallback").Inc()
		metrics.ProbeDuration.Observe(time.Since(start).Seconds())

		meta.Width = p.fallback.Width
		meta.Height = p.fallback.Height
		meta.FrameRate = p.fallback.FrameRate
		meta.Duration = p.fallback.Duration
		return &meta, nil
	}

	parseFFprobeOutput(out, &meta)

	// Some containers under-report via the fast path: a successful open
	// can still come back with zero dimensions or duration. Substitute
	// defaults for non-empty files rather than propagating zeros.
	if info.Size() > 0 {
		if meta.Width <= 0 {
			meta.Width = p.fallback.Width
		}
		if meta.Height <= 0 {
			meta.Height = p.fallback.Height
		}
		if meta.Duration <= 0 {
			meta.Duration = p.fallback.Duration
		}
	}

	p.cache.Put(path, meta)

	metrics.ProbeOperationsTotal.WithLabelValues("success").Inc()
	metrics.ProbeDuration.Observe(time.Since(start).Seconds())

	return &meta, nil
}

// Invalidate drops the cached record for path, forcing the next probe
// to re-read the file. Used after rename, move, and delete operations.
func (p *Prober) Invalidate(path string) {
	p.cache.Delete(path)
}

// ClearCache discards all cached metadata.
func (p *Prober) ClearCache() {
	p.cache.Clear()
}

// ffprobe JSON payload, trimmed to the fields the catalog needs.
type ffprobeOutput struct {
	Streams []ffprobeStream `json:"streams"`
	Format  ffprobeFormat   `json:"format"`
}

type ffprobeStream struct {
	CodecType    string `json:"codec_type"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	AvgFrameRate string `json:"avg_frame_rate"`
	RFrameRate   string `json:"r_frame_rate"`
	NbFrames     string `json:"nb_frames"`
	Duration     string `json:"duration"`
}

type ffprobeFormat struct {
	Duration string `json:"duration"`
}

func runFFprobe(ctx context.Context, path string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffprobe error: %w - %s", err, stderr.String())
	}
	return stdout.Bytes(), nil
}

// parseFFprobeOutput fills meta from the first video stream and the
// container format. Malformed payloads leave the zero values in place;
// the caller substitutes fallbacks.
func parseFFprobeOutput(out []byte, meta *Metadata) {
	var payload ffprobeOutput
	if err := json.Unmarshal(out, &payload); err != nil {
		logging.Debug("unparseable ffprobe output: %v", err)
		return
	}

	for _, stream := range payload.Streams {
		if stream.CodecType != "video" {
			continue
		}
		meta.Width = stream.Width
		meta.Height = stream.Height

		meta.FrameRate = parseRational(stream.AvgFrameRate)
		if meta.FrameRate <= 0 {
			meta.FrameRate = parseRational(stream.RFrameRate)
		}
		if meta.FrameRate < 0 {
			meta.FrameRate = 0
		}

		if frames, err := strconv.ParseInt(stream.NbFrames, 10, 64); err == nil && frames > 0 {
			meta.Frames = frames
		}
		if meta.Duration <= 0 {
			if d, err := strconv.ParseFloat(stream.Duration, 64); err == nil {
				meta.Duration = d
			}
		}
		break
	}

	if d, err := strconv.ParseFloat(payload.Format.Duration, 64); err == nil && d > 0 {
		meta.Duration = d
	}

	// Derive the frame count when the stream omits it.
	if meta.Frames == 0 && meta.FrameRate > 0 && meta.Duration > 0 {
		meta.Frames = int64(meta.Duration * meta.FrameRate)
	}
}

// parseRational parses ffprobe's "num/den" frame rate notation.
// Plain decimal values are accepted too.
func parseRational(s string) float64 {
	if s == "" {
		return 0
	}
	if num, den, found := strings.Cut(s, "/"); found {
		n, err1 := strconv.ParseFloat(num, 64)
		d, err2 := strconv.ParseFloat(den, 64)
		if err1 != nil || err2 != nil || d == 0 {
			return 0
		}
		return n / d
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
