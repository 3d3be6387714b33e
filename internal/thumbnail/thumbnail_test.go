package thumbnail

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"
	"time"

	"video-catalog/internal/probe"
)

// fakeMeta serves canned metadata per path.
type fakeMeta struct {
	records map[string]*probe.Metadata
}

func (f *fakeMeta) Probe(ctx context.Context, path string) (*probe.Metadata, error) {
	if meta, ok := f.records[path]; ok {
		return meta, nil
	}
	return nil, errors.New("no such file")
}

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 100, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func newTestExtractor(meta MetadataSource, runner frameRunner) *Extractor {
	e := New(10, 4, meta)
	e.runner = runner
	return e
}

func TestExtractScalesWithinTarget(t *testing.T) {
	meta := &fakeMeta{records: map[string]*probe.Metadata{
		"wide.mp4": {Frames: 3000, FrameRate: 30, Duration: 100, Size: 1 << 20},
	}}
	frame := encodePNG(t, 640, 360)
	e := newTestExtractor(meta, func(ctx context.Context, path string, seek float64) ([]byte, error) {
		return frame, nil
	})

	img := e.Extract(context.Background(), "wide.mp4", 0.1, image.Pt(320, 180))
	if img == nil {
		t.Fatal("Extract returned nil")
	}

	bounds := img.Bounds()
	if bounds.Dx() > 320 || bounds.Dy() > 180 {
		t.Errorf("thumbnail %dx%d exceeds target 320x180", bounds.Dx(), bounds.Dy())
	}
	// 640x360 is already 16:9, so fitting into 320x180 fills it exactly.
	if bounds.Dx() != 320 || bounds.Dy() != 180 {
		t.Errorf("thumbnail = %dx%d, want 320x180 for matching aspect", bounds.Dx(), bounds.Dy())
	}
}

func TestExtractPreservesAspectRatio(t *testing.T) {
	meta := &fakeMeta{records: map[string]*probe.Metadata{
		"tall.mp4": {Frames: 100, FrameRate: 25, Duration: 4, Size: 1000},
	}}
	frame := encodePNG(t, 100, 200) // 1:2 portrait
	e := newTestExtractor(meta, func(ctx context.Context, path string, seek float64) ([]byte, error) {
		return frame, nil
	})

	img := e.Extract(context.Background(), "tall.mp4", 0.5, image.Pt(320, 180))
	bounds := img.Bounds()

	// Height is the binding constraint: 180 tall means 90 wide.
	if bounds.Dy() != 180 || bounds.Dx() != 90 {
		t.Errorf("thumbnail = %dx%d, want 90x180", bounds.Dx(), bounds.Dy())
	}
}

func TestExtractFailureReturnsPlaceholder(t *testing.T) {
	meta := &fakeMeta{records: map[string]*probe.Metadata{
		"corrupt.mkv": {Size: 500},
	}}
	e := newTestExtractor(meta, func(ctx context.Context, path string, seek float64) ([]byte, error) {
		return nil, errors.New("moov atom not found")
	})

	img := e.Extract(context.Background(), "corrupt.mkv", 0.1, image.Pt(320, 180))
	if img == nil {
		t.Fatal("Extract returned nil for corrupt file")
	}
	bounds := img.Bounds()
	if bounds.Dx() != 320 || bounds.Dy() != 180 {
		t.Errorf("placeholder = %dx%d, want exactly 320x180", bounds.Dx(), bounds.Dy())
	}
}

func TestExtractUnknownFileReturnsPlaceholder(t *testing.T) {
	e := newTestExtractor(&fakeMeta{}, func(ctx context.Context, path string, seek float64) ([]byte, error) {
		t.Fatal("runner invoked for unknown file")
		return nil, nil
	})

	img := e.Extract(context.Background(), "/missing.mp4", 0.1, image.Pt(64, 64))
	bounds := img.Bounds()
	if bounds.Dx() != 64 || bounds.Dy() != 64 {
		t.Errorf("placeholder = %dx%d, want 64x64", bounds.Dx(), bounds.Dy())
	}
}

func TestExtractUndecodableFrameReturnsPlaceholder(t *testing.T) {
	meta := &fakeMeta{records: map[string]*probe.Metadata{
		"garbage.mp4": {Frames: 10, FrameRate: 10, Duration: 1, Size: 100},
	}}
	e := newTestExtractor(meta, func(ctx context.Context, path string, seek float64) ([]byte, error) {
		return []byte("not an image"), nil
	})

	img := e.Extract(context.Background(), "garbage.mp4", 0.1, image.Pt(200, 100))
	bounds := img.Bounds()
	if bounds.Dx() != 200 || bounds.Dy() != 100 {
		t.Errorf("placeholder = %dx%d, want 200x100", bounds.Dx(), bounds.Dy())
	}
}

func TestExtractCachesByCompositeKey(t *testing.T) {
	meta := &fakeMeta{records: map[string]*probe.Metadata{
		"clip.mp4": {Frames: 300, FrameRate: 30, Duration: 10, Size: 1 << 20},
	}}
	var calls int
	var mu sync.Mutex
	frame := encodePNG(t, 320, 180)
	e := newTestExtractor(meta, func(ctx context.Context, path string, seek float64) ([]byte, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		return frame, nil
	})

	ctx := context.Background()
	e.Extract(ctx, "clip.mp4", 0.1, image.Pt(320, 180))
	e.Extract(ctx, "clip.mp4", 0.1, image.Pt(320, 180)) // cache hit
	e.Extract(ctx, "clip.mp4", 0.5, image.Pt(320, 180)) // different position
	e.Extract(ctx, "clip.mp4", 0.1, image.Pt(640, 360)) // different size

	if calls != 3 {
		t.Errorf("runner called %d times, want 3 (one per distinct composite key)", calls)
	}
}

func TestSeekNeverSelectsFrameZero(t *testing.T) {
	tests := []struct {
		name string
		meta probe.Metadata
		pos  float64
		want float64
	}{
		{
			name: "position zero clamps to frame one",
			meta: probe.Metadata{Frames: 1000, FrameRate: 25, Duration: 40},
			pos:  0,
			want: 1.0 / 25.0,
		},
		{
			name: "tiny position clamps to frame one",
			meta: probe.Metadata{Frames: 100, FrameRate: 50, Duration: 2},
			pos:  0.001,
			want: 1.0 / 50.0,
		},
		{
			name: "midpoint",
			meta: probe.Metadata{Frames: 1000, FrameRate: 25, Duration: 40},
			pos:  0.5,
			want: 500.0 / 25.0,
		},
		{
			name: "frames known without fps uses duration fraction",
			meta: probe.Metadata{Frames: 200, Duration: 100},
			pos:  0.1,
			want: 100 * 20.0 / 200.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := seekForMetadata(&tt.meta, tt.pos)
			if got != tt.want {
				t.Errorf("seekForMetadata = %v, want %v", got, tt.want)
			}
			if got <= 0 {
				t.Errorf("seek offset %v selects frame zero", got)
			}
		})
	}
}

func TestSeekUnknownFrameCountUsesFileSize(t *testing.T) {
	large := &probe.Metadata{Size: 50 * 1000 * 1000}
	if got := seekForMetadata(large, 0.1); got != 5.0 {
		t.Errorf("large file seek = %v, want 5.0", got)
	}

	small := &probe.Metadata{Size: 1000}
	if got := seekForMetadata(small, 0.1); got != 1.0 {
		t.Errorf("small file seek = %v, want 1.0", got)
	}
}

func TestClampPosition(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{-0.5, 0},
		{0, 0},
		{0.3, 0.3},
		{1, 1},
		{2.5, 1},
	}
	for _, tt := range tests {
		if got := clamp(tt.in); got != tt.want {
			t.Errorf("clamp(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestExtractAsync(t *testing.T) {
	meta := &fakeMeta{records: map[string]*probe.Metadata{
		"a.mp4": {Frames: 100, FrameRate: 25, Duration: 4, Size: 100},
	}}
	frame := encodePNG(t, 64, 64)
	e := newTestExtractor(meta, func(ctx context.Context, path string, seek float64) ([]byte, error) {
		return frame, nil
	})

	done := make(chan image.Image, 1)
	e.ExtractAsync(context.Background(), "a.mp4", 0.1, image.Pt(32, 32), func(path string, img image.Image) {
		if path != "a.mp4" {
			t.Errorf("callback path = %q, want a.mp4", path)
		}
		done <- img
	})

	select {
	case img := <-done:
		if img == nil {
			t.Fatal("callback received nil image")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("ExtractAsync callback never fired")
	}
}

func TestExtractAsyncCancelledContext(t *testing.T) {
	meta := &fakeMeta{records: map[string]*probe.Metadata{
		"a.mp4": {Frames: 100, FrameRate: 25, Duration: 4, Size: 100},
	}}
	e := newTestExtractor(meta, func(ctx context.Context, path string, seek float64) ([]byte, error) {
		return encodePNG(t, 8, 8), nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got := make(chan image.Image, 1)
	e.ExtractAsync(ctx, "a.mp4", 0.1, image.Pt(8, 8), func(path string, img image.Image) {
		got <- img
	})

	select {
	case img := <-got:
		if img != nil {
			t.Error("callback received an image for a cancelled context, want nil")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("callback never fired")
	}
}

func TestPlaceholderMinimumSize(t *testing.T) {
	img := Placeholder(image.Pt(0, -3))
	bounds := img.Bounds()
	if bounds.Dx() < 1 || bounds.Dy() < 1 {
		t.Errorf("Placeholder = %dx%d, want at least 1x1", bounds.Dx(), bounds.Dy())
	}
}
