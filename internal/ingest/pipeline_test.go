package ingest

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"video-catalog/internal/catalog"
	"video-catalog/internal/probe"
)

type fakeStore struct {
	mu          sync.Mutex
	nextID      int64
	entries     map[string]*catalog.Entry
	tags        map[int64][]string
	createCalls int
	createErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		entries: make(map[string]*catalog.Entry),
		tags:    make(map[int64][]string),
	}
}

func (f *fakeStore) FindByPath(ctx context.Context, path string) (*catalog.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e, ok := f.entries[path]; ok {
		cp := *e
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeStore) CreateEntry(ctx context.Context, e catalog.NewEntry) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.createErr != nil {
		return 0, f.createErr
	}
	if existing, ok := f.entries[e.Path]; ok {
		existing.Size = e.Size
		existing.Duration = e.Duration
		return existing.ID, nil
	}
	f.nextID++
	f.entries[e.Path] = &catalog.Entry{
		ID:       f.nextID,
		Path:     e.Path,
		Name:     e.Name,
		Folder:   e.Folder,
		Size:     e.Size,
		Duration: e.Duration,
	}
	return f.nextID, nil
}

func (f *fakeStore) EntryTags(ctx context.Context, entryID int64) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tags[entryID], nil
}

func (f *fakeStore) seed(path, name string, size int64, duration float64, watched bool, tags []string) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.entries[path] = &catalog.Entry{
		ID:       f.nextID,
		Path:     path,
		Name:     name,
		Size:     size,
		Duration: duration,
		Watched:  watched,
	}
	if tags != nil {
		f.tags[f.nextID] = tags
	}
	return f.nextID
}

type fakeProber struct {
	mu      sync.Mutex
	calls   map[string]int
	failAll bool
	// when set, Probe blocks until the channel closes or ctx is done
	gate chan struct{}
}

func (f *fakeProber) Probe(ctx context.Context, path string) (*probe.Metadata, error) {
	f.mu.Lock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[path]++
	gate := f.gate
	failAll := f.failAll
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if failAll {
		return nil, errors.New("probe failed")
	}
	now := time.Now()
	return &probe.Metadata{
		Width: 1920, Height: 1080, FrameRate: 25, Duration: 90,
		Frames: 2250, Size: 4096, CreatedAt: now, ModifiedAt: now,
	}, nil
}

func (f *fakeProber) callCount(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[path]
}

type fakeThumbs struct{}

func (fakeThumbs) ExtractAsync(ctx context.Context, path string, position float64, target image.Point, callback func(path string, img image.Image)) {
	go func() {
		if ctx.Err() != nil {
			callback(path, nil)
			return
		}
		callback(path, image.NewRGBA(image.Rect(0, 0, target.X, target.Y)))
	}()
}

func mediaFolder(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("data"), 0o644); err != nil {
			t.Fatalf("write fixture %s: %v", name, err)
		}
	}
	return dir
}

func drain(t *testing.T, ch <-chan Event) []Event {
	t.Helper()
	var events []Event
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-timeout:
			t.Fatalf("timed out draining events, got %d so far", len(events))
		}
	}
}

func byKind(events []Event, kind Kind) []Event {
	var out []Event
	for _, ev := range events {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

func newTestPipeline(store Catalog, prober Prober) *Pipeline {
	return New(store, prober, fakeThumbs{}, 0.1, image.Pt(320, 180))
}

func TestLoadFiltersUnsupported(t *testing.T) {
	dir := mediaFolder(t, "a.mp4", "b.txt", "c.mkv")
	store := newFakeStore()
	p := newTestPipeline(store, &fakeProber{})

	ch, _ := p.Load(dir)
	events := drain(t, ch)

	items := byKind(events, KindItemReady)
	if len(items) != 2 {
		t.Fatalf("got %d item events, want 2", len(items))
	}
	names := map[string]bool{}
	for _, ev := range items {
		names[ev.Name] = true
	}
	if !names["a.mp4"] || !names["c.mkv"] || names["b.txt"] {
		t.Errorf("item names = %v", names)
	}

	completed := byKind(events, KindCompleted)
	if len(completed) != 1 || completed[0].TotalProcessed != 2 {
		t.Errorf("completed events = %+v", completed)
	}
}

func TestLoadEmptyFolder(t *testing.T) {
	dir := mediaFolder(t, "readme.txt")
	p := newTestPipeline(newFakeStore(), &fakeProber{})

	ch, id := p.Load(dir)
	events := drain(t, ch)

	if len(events) != 1 {
		t.Fatalf("got %d events, want exactly 1: %+v", len(events), events)
	}
	ev := events[0]
	if ev.Kind != KindCompleted || !ev.NoMedia || ev.RequestID != id {
		t.Errorf("terminal event = %+v", ev)
	}
}

func TestLoadUnreadableFolder(t *testing.T) {
	p := newTestPipeline(newFakeStore(), &fakeProber{})

	ch, _ := p.Load(filepath.Join(t.TempDir(), "does-not-exist"))
	events := drain(t, ch)

	if len(events) != 1 || events[0].Kind != KindDirectoryError || events[0].Err == nil {
		t.Fatalf("events = %+v, want single directory error", events)
	}
	if got := p.Status().State; got != StateFailed {
		t.Errorf("Status().State = %v, want %v", got, StateFailed)
	}
}

func TestLoadPersistsNewFiles(t *testing.T) {
	dir := mediaFolder(t, "a.mp4")
	store := newFakeStore()
	prober := &fakeProber{}
	p := newTestPipeline(store, prober)

	events := drainLoad(t, p, dir)

	items := byKind(events, KindItemReady)
	if len(items) != 1 {
		t.Fatalf("got %d item events, want 1", len(items))
	}
	ev := items[0]
	if ev.Size != 4096 || ev.Duration != 90 || ev.Watched || len(ev.Tags) != 0 {
		t.Errorf("item event = %+v", ev)
	}
	if ev.Tags == nil {
		t.Error("item event tags are nil, want empty slice")
	}

	path := filepath.Join(dir, "a.mp4")
	if store.entries[path] == nil {
		t.Error("entry was not persisted")
	}
	if prober.callCount(path) != 1 {
		t.Errorf("probe called %d times, want 1", prober.callCount(path))
	}
}

func TestReScanUsesStoredValues(t *testing.T) {
	dir := mediaFolder(t, "a.mp4")
	path := filepath.Join(dir, "a.mp4")

	store := newFakeStore()
	id := store.seed(path, "a.mp4", 999, 42.5, true, []string{"keeper"})
	prober := &fakeProber{}
	p := newTestPipeline(store, prober)

	events := drainLoad(t, p, dir)

	items := byKind(events, KindItemReady)
	if len(items) != 1 {
		t.Fatalf("got %d item events, want 1", len(items))
	}
	ev := items[0]
	if ev.Size != 999 || ev.Duration != 42.5 || !ev.Watched {
		t.Errorf("item event carries re-probed values: %+v", ev)
	}
	if len(ev.Tags) != 1 || ev.Tags[0] != "keeper" {
		t.Errorf("item tags = %v", ev.Tags)
	}

	if prober.callCount(path) != 0 {
		t.Errorf("probe called %d times for a known file, want 0", prober.callCount(path))
	}
	if store.createCalls != 0 {
		t.Errorf("CreateEntry called %d times for a known file, want 0", store.createCalls)
	}
	if store.entries[path].ID != id {
		t.Error("entry id changed on re-scan")
	}
}

func TestProbeFailureSkipsItemButCountsProgress(t *testing.T) {
	dir := mediaFolder(t, "a.mp4", "b.mkv")
	p := newTestPipeline(newFakeStore(), &fakeProber{failAll: true})

	events := drainLoad(t, p, dir)

	if items := byKind(events, KindItemReady); len(items) != 0 {
		t.Errorf("got %d item events for unprobeable files, want 0", len(items))
	}
	progress := byKind(events, KindProgress)
	if len(progress) != 2 {
		t.Fatalf("got %d progress events, want 2", len(progress))
	}
	completed := byKind(events, KindCompleted)
	if len(completed) != 1 || completed[0].TotalProcessed != 2 {
		t.Errorf("completed = %+v", completed)
	}
}

func TestPersistFailureStillAnnouncesItem(t *testing.T) {
	dir := mediaFolder(t, "a.mp4")
	store := newFakeStore()
	store.createErr = errors.New("disk full")
	p := newTestPipeline(store, &fakeProber{})

	events := drainLoad(t, p, dir)

	if items := byKind(events, KindItemReady); len(items) != 1 {
		t.Errorf("got %d item events, want 1 despite persistence failure", len(items))
	}
	if completed := byKind(events, KindCompleted); len(completed) != 1 {
		t.Errorf("completed events = %+v", completed)
	}
}

func TestItemReadyBeforeThumbnailReady(t *testing.T) {
	dir := mediaFolder(t, "a.mp4", "b.mkv", "c.webm")
	p := newTestPipeline(newFakeStore(), &fakeProber{})

	events := drainLoad(t, p, dir)

	itemAt := map[string]int{}
	for i, ev := range events {
		if ev.Kind == KindItemReady {
			itemAt[ev.Path] = i
		}
	}
	thumbs := byKind(events, KindThumbnailReady)
	if len(thumbs) != 3 {
		t.Fatalf("got %d thumbnail events, want 3", len(thumbs))
	}
	for i, ev := range events {
		if ev.Kind != KindThumbnailReady {
			continue
		}
		at, ok := itemAt[ev.Path]
		if !ok {
			t.Errorf("thumbnail for unannounced file %s", ev.Path)
			continue
		}
		if at > i {
			t.Errorf("thumbnail for %s at index %d precedes its item event at %d", ev.Path, i, at)
		}
		if ev.Image == nil {
			t.Errorf("thumbnail event for %s has nil image", ev.Path)
		}
	}
}

func TestProgressMonotoneOncePerFile(t *testing.T) {
	dir := mediaFolder(t, "a.mp4", "b.mkv", "c.webm", "d.avi")
	p := newTestPipeline(newFakeStore(), &fakeProber{})

	events := drainLoad(t, p, dir)

	progress := byKind(events, KindProgress)
	if len(progress) != 4 {
		t.Fatalf("got %d progress events, want 4", len(progress))
	}
	for i, ev := range progress {
		if ev.Processed != i+1 || ev.Total != 4 {
			t.Errorf("progress[%d] = %d/%d, want %d/4", i, ev.Processed, ev.Total, i+1)
		}
	}
	if last := progress[len(progress)-1]; last.Processed != last.Total {
		t.Errorf("final progress %d/%d, want processed == total", last.Processed, last.Total)
	}
}

func TestLoadSupersedesActiveRun(t *testing.T) {
	dirA := mediaFolder(t, "a1.mp4", "a2.mp4", "a3.mp4")
	dirB := mediaFolder(t, "b1.mp4")

	gate := make(chan struct{})
	prober := &fakeProber{gate: gate}
	p := newTestPipeline(newFakeStore(), prober)

	chA, idA := p.Load(dirA)

	// A is parked inside its first probe when B arrives.
	chB, idB := p.Load(dirB)
	close(gate)

	eventsB := drain(t, chB)
	eventsA := drain(t, chA)

	completedB := byKind(eventsB, KindCompleted)
	if len(completedB) != 1 || completedB[0].TotalProcessed != 1 {
		t.Fatalf("B events = %+v, want full completion", eventsB)
	}
	for _, ev := range eventsB {
		if ev.RequestID != idB {
			t.Errorf("B stream carries foreign request id: %+v", ev)
		}
	}

	if len(byKind(eventsA, KindCompleted)) != 0 {
		t.Error("superseded run A completed")
	}
	if len(byKind(eventsA, KindCancelled)) != 1 {
		t.Errorf("A events = %+v, want a cancelled terminal", eventsA)
	}
	for _, ev := range eventsA {
		if ev.Kind == KindItemReady {
			t.Errorf("superseded run A emitted an item event: %+v", ev)
		}
		if ev.RequestID != idA {
			t.Errorf("A stream carries foreign request id: %+v", ev)
		}
	}

	if got := p.Status(); got.RequestID != idB || got.State != StateCompleted {
		t.Errorf("Status() = %+v, want completed run %s", got, idB)
	}
}

func TestCancelStopsRun(t *testing.T) {
	dir := mediaFolder(t, "a.mp4", "b.mp4")

	gate := make(chan struct{})
	p := newTestPipeline(newFakeStore(), &fakeProber{gate: gate})

	ch, _ := p.Load(dir)
	p.Cancel()
	close(gate)

	events := drain(t, ch)
	if len(byKind(events, KindCancelled)) != 1 {
		t.Errorf("events = %+v, want a cancelled terminal", events)
	}
	if len(byKind(events, KindCompleted)) != 0 {
		t.Error("cancelled run emitted completed")
	}
}

func TestStatusIdleBeforeLoad(t *testing.T) {
	p := newTestPipeline(newFakeStore(), &fakeProber{})
	if got := p.Status(); got.State != StateIdle {
		t.Errorf("Status() = %+v, want idle", got)
	}
}

// stubbornProber ignores cancellation, holding its worker in place
// until the gate opens.
type stubbornProber struct {
	entered chan struct{}
	gate    chan struct{}
	once    sync.Once
}

func (s *stubbornProber) Probe(ctx context.Context, path string) (*probe.Metadata, error) {
	s.once.Do(func() { close(s.entered) })
	<-s.gate
	return nil, errors.New("probe aborted")
}

// Status must answer immediately while Load waits out its grace period
// for a worker that is slow to observe cancellation.
func TestStatusResponsiveDuringSupersession(t *testing.T) {
	dirA := mediaFolder(t, "a.mp4")
	dirB := mediaFolder(t, "b.mp4")
	store := newFakeStore()
	prober := &stubbornProber{entered: make(chan struct{}), gate: make(chan struct{})}
	p := newTestPipeline(store, prober)

	chA, _ := p.Load(dirA)
	select {
	case <-prober.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("worker never reached the probe")
	}

	loaded := make(chan (<-chan Event))
	go func() {
		ch, _ := p.Load(dirB)
		loaded <- ch
	}()
	// Give Load time to enter its grace wait on the stuck worker.
	time.Sleep(50 * time.Millisecond)

	start := time.Now()
	p.Status()
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("Status blocked for %v during supersession", elapsed)
	}

	close(prober.gate)
	var chB <-chan Event
	select {
	case chB = <-loaded:
	case <-time.After(5 * time.Second):
		t.Fatal("second Load never returned")
	}
	drain(t, chA)
	drain(t, chB)
}

// A consumer that lags behind a full event buffer must still receive
// the terminal event before the stream closes.
func TestCompletedReachesSlowConsumer(t *testing.T) {
	// 22 files produce 66 pre-terminal events (item, progress, and
	// thumbnail per file), overfilling the 64-slot buffer when the
	// consumer has only read two of them.
	names := make([]string, 22)
	for i := range names {
		names[i] = fmt.Sprintf("clip%02d.mp4", i)
	}
	dir := mediaFolder(t, names...)
	store := newFakeStore()
	p := newTestPipeline(store, &fakeProber{})

	ch, _ := p.Load(dir)

	for i := 0; i < 2; i++ {
		select {
		case <-ch:
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for initial events")
		}
	}

	// Stall until the worker has processed every file and is about to
	// emit its terminal event.
	deadline := time.Now().Add(5 * time.Second)
	for p.Status().State != StateCompleted {
		if time.Now().After(deadline) {
			t.Fatalf("run did not finish, state %v", p.Status().State)
		}
		time.Sleep(5 * time.Millisecond)
	}

	events := drain(t, ch)
	completed := byKind(events, KindCompleted)
	if len(completed) != 1 {
		t.Fatalf("got %d Completed events, want 1", len(completed))
	}
	if completed[0].TotalProcessed != 22 {
		t.Errorf("TotalProcessed = %d, want 22", completed[0].TotalProcessed)
	}
	if last := events[len(events)-1]; last.Kind != KindCompleted {
		t.Errorf("last event = %s, want %s", last.Kind, KindCompleted)
	}
}

func drainLoad(t *testing.T, p *Pipeline, dir string) []Event {
	t.Helper()
	ch, _ := p.Load(dir)
	return drain(t, ch)
}
