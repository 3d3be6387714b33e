package ingest

import (
	"context"
	"fmt"
	"image"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"video-catalog/internal/catalog"
	"video-catalog/internal/filesystem"
	"video-catalog/internal/logging"
	"video-catalog/internal/mediatypes"
	"video-catalog/internal/metrics"
	"video-catalog/internal/probe"
)

// State tracks where a run is in its lifecycle.
type State int

const (
	StateIdle State = iota
	StateListing
	StateProcessing
	StateCompleted
	StateCancelled
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateListing:
		return "listing"
	case StateProcessing:
		return "processing"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalJSON renders the state as its lowercase name.
func (s State) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

const (
	// DefaultPreviewPosition is the relative position thumbnails are
	// taken from, early enough to be cheap to seek but past any intro
	// black frames.
	DefaultPreviewPosition = 0.1

	// graceWait bounds how long a superseding load waits for the
	// previous run's worker to observe cancellation.
	graceWait = time.Second

	// eventBuffer sizes each run's stream so the scan loop is not
	// gated on consumer pace for short bursts.
	eventBuffer = 64
)

// Catalog is the persistence surface the pipeline needs.
type Catalog interface {
	FindByPath(ctx context.Context, path string) (*catalog.Entry, error)
	CreateEntry(ctx context.Context, e catalog.NewEntry) (int64, error)
	EntryTags(ctx context.Context, entryID int64) ([]string, error)
}

// Prober yields file metadata for uncatalogued files.
type Prober interface {
	Probe(ctx context.Context, path string) (*probe.Metadata, error)
}

// Thumbnailer extracts preview frames off the scan loop.
type Thumbnailer interface {
	ExtractAsync(ctx context.Context, path string, position float64, target image.Point, callback func(path string, img image.Image))
}

// Status is a snapshot of the active (or last) run.
type Status struct {
	State     State     `json:"state"`
	RequestID uuid.UUID `json:"requestId"`
	Folder    string    `json:"folder"`
	Processed int       `json:"processed"`
	Total     int       `json:"total"`
}

// Pipeline ingests one folder at a time. Load supersedes any run in
// flight; each run streams Events on its own channel, closed after the
// terminal event.
type Pipeline struct {
	store  Catalog
	prober Prober
	thumbs Thumbnailer

	position float64
	target   image.Point

	mu     sync.Mutex
	active *request
}

type request struct {
	id     uuid.UUID
	folder string
	ctx    context.Context
	cancel context.CancelFunc
	events chan Event
	done   chan struct{}

	emitMu sync.Mutex
	closed bool

	thumbWG sync.WaitGroup

	stateMu   sync.Mutex
	state     State
	processed int
	total     int
}

// New builds a pipeline over the given collaborators. target is the
// thumbnail size requested from the extractor; position in (0,1] is
// the preview position, defaulted when zero.
func New(store Catalog, prober Prober, thumbs Thumbnailer, position float64, target image.Point) *Pipeline {
	if position <= 0 || position > 1 {
		position = DefaultPreviewPosition
	}
	return &Pipeline{
		store:    store,
		prober:   prober,
		thumbs:   thumbs,
		position: position,
		target:   target,
	}
}

// Load starts ingesting folder, superseding any active run: the old
// run's cancellation is signalled, waited on briefly, and the new run
// starts regardless. The returned channel carries the new run's events
// and is closed after its terminal event.
func (p *Pipeline) Load(folder string) (<-chan Event, uuid.UUID) {
	p.mu.Lock()
	prev := p.active
	p.mu.Unlock()

	// Wait for the old worker outside the lock so Status and Cancel
	// stay responsive during the handover.
	if prev != nil {
		prev.cancel()
		select {
		case <-prev.done:
		case <-time.After(graceWait):
			logging.Warn("previous ingest %s still draining, starting new run", prev.id)
		}
		metrics.IngestCancellations.Inc()
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	// A concurrent Load may have installed another run while the lock
	// was released; it loses the race and is cancelled without a wait.
	if p.active != nil && p.active != prev {
		p.active.cancel()
	}

	ctx, cancel := context.WithCancel(context.Background())
	req := &request{
		id:     uuid.New(),
		folder: folder,
		ctx:    ctx,
		cancel: cancel,
		events: make(chan Event, eventBuffer),
		done:   make(chan struct{}),
		state:  StateIdle,
	}
	p.active = req

	metrics.IngestRunsTotal.Inc()
	logging.Info("Ingesting %s (request %s)", folder, req.id)
	go p.run(req)

	return req.events, req.id
}

// Cancel stops the active run, if any. The run emits Cancelled and
// closes its stream.
func (p *Pipeline) Cancel() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active != nil {
		p.active.cancel()
	}
}

// Status reports the active run's state, or the last terminal state.
func (p *Pipeline) Status() Status {
	p.mu.Lock()
	req := p.active
	p.mu.Unlock()

	if req == nil {
		return Status{State: StateIdle}
	}
	req.stateMu.Lock()
	defer req.stateMu.Unlock()
	return Status{
		State:     req.state,
		RequestID: req.id,
		Folder:    req.folder,
		Processed: req.processed,
		Total:     req.total,
	}
}

func (p *Pipeline) run(req *request) {
	defer close(req.done)
	metrics.IngestRunning.Set(1)
	defer metrics.IngestRunning.Set(0)
	start := time.Now()

	req.setState(StateListing)
	names, err := listMedia(req.folder)
	if err != nil {
		logging.Error("ingest %s: %v", req.id, err)
		metrics.IngestErrors.Inc()
		req.setState(StateFailed)
		req.finish(Event{Kind: KindDirectoryError, RequestID: req.id, Err: err})
		return
	}

	if len(names) == 0 {
		logging.Info("Ingest %s: no media in %s", req.id, req.folder)
		req.setState(StateCompleted)
		req.finish(Event{Kind: KindCompleted, RequestID: req.id, NoMedia: true})
		return
	}

	req.setTotal(len(names))
	req.setState(StateProcessing)

	for i, name := range names {
		if req.ctx.Err() != nil {
			p.cancelRun(req)
			return
		}

		path := filepath.Join(req.folder, name)
		if !p.processFile(req, path, name) {
			p.cancelRun(req)
			return
		}

		processed := i + 1
		req.setProcessed(processed)
		metrics.IngestFilesProcessed.Inc()
		if !req.emit(Event{Kind: KindProgress, RequestID: req.id, Processed: processed, Total: len(names)}) {
			p.cancelRun(req)
			return
		}
	}

	// Let outstanding thumbnail callbacks land on the stream before the
	// terminal event; cancellation releases the wait.
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		req.thumbWG.Wait()
	}()
	select {
	case <-drained:
	case <-req.ctx.Done():
	}

	req.setState(StateCompleted)
	req.finish(Event{Kind: KindCompleted, RequestID: req.id, TotalProcessed: len(names)})
	metrics.IngestLastRunDuration.Set(time.Since(start).Seconds())
	logging.Info("Ingest %s: completed %d files in %v", req.id, len(names), time.Since(start).Round(time.Millisecond))
}

// processFile handles one file: announce it from the catalog (probing
// and persisting first when unknown) and schedule its thumbnail.
// Returns false when the run was cancelled mid-file.
func (p *Pipeline) processFile(req *request, path, name string) bool {
	entry, err := p.store.FindByPath(req.ctx, path)
	if err != nil {
		logging.Warn("ingest %s: lookup %s: %v", req.id, path, err)
		entry = nil
	}

	ev := Event{Kind: KindItemReady, RequestID: req.id, Path: path, Name: name, Tags: []string{}}

	if entry != nil {
		ev.Size = entry.Size
		ev.Duration = entry.Duration
		ev.Watched = entry.Watched
		if tags, err := p.store.EntryTags(req.ctx, entry.ID); err == nil && tags != nil {
			ev.Tags = tags
		}
	} else {
		meta, err := p.prober.Probe(req.ctx, path)
		if err != nil || meta == nil {
			// File vanished or is unreadable beyond recovery. Skip the
			// item but keep the scan going.
			logging.Warn("ingest %s: probe %s: %v", req.id, path, err)
			return req.ctx.Err() == nil
		}
		ne := catalog.NewEntry{
			Path:       path,
			Name:       name,
			Folder:     req.folder,
			Size:       meta.Size,
			Duration:   meta.Duration,
			CreatedAt:  meta.CreatedAt,
			ModifiedAt: meta.ModifiedAt,
		}
		if _, err := p.store.CreateEntry(req.ctx, ne); err != nil {
			// Persist best-effort; the consumer still gets the item.
			logging.Error("ingest %s: persist %s: %v", req.id, path, err)
		}
		ev.Size = meta.Size
		ev.Duration = meta.Duration
	}

	if !req.emit(ev) {
		return false
	}

	// Scheduled strictly after the item event so the stream never shows
	// a thumbnail for an unannounced file. A nil image means the run was
	// cancelled before the frame came out.
	req.thumbWG.Add(1)
	p.thumbs.ExtractAsync(req.ctx, path, p.position, p.target, func(path string, img image.Image) {
		defer req.thumbWG.Done()
		if img == nil {
			return
		}
		req.emit(Event{Kind: KindThumbnailReady, RequestID: req.id, Path: path, Image: img})
	})
	return true
}

func (p *Pipeline) cancelRun(req *request) {
	logging.Info("Ingest %s: cancelled after %d/%d files", req.id, req.processedCount(), req.totalCount())
	req.setState(StateCancelled)
	req.finish(Event{Kind: KindCancelled, RequestID: req.id})
}

// listMedia returns the supported media files directly inside folder,
// in directory order.
func listMedia(folder string) ([]string, error) {
	dirents, err := filesystem.ReadDirWithRetry(folder, filesystem.DefaultRetryConfig())
	if err != nil {
		return nil, fmt.Errorf("read folder %s: %w", folder, err)
	}
	var names []string
	for _, d := range dirents {
		if d.IsDir() || !mediatypes.IsSupportedMedia(d.Name()) {
			continue
		}
		names = append(names, d.Name())
	}
	return names, nil
}

// emit delivers an event, or reports false once the run is cancelled
// or finished. Stale deliveries from superseded runs end up here and
// are dropped.
func (r *request) emit(ev Event) bool {
	r.emitMu.Lock()
	defer r.emitMu.Unlock()
	if r.closed || r.ctx.Err() != nil {
		return false
	}
	select {
	case r.events <- ev:
		return true
	case <-r.ctx.Done():
		return false
	}
}

// finish emits the terminal event and closes the stream. For a live
// run the send blocks until the consumer drains enough of the buffer,
// so a slow consumer never loses its terminal event. Cancellation
// releases the wait: a superseded run's consumer may have walked away,
// and its terminal event is dropped with the rest.
func (r *request) finish(ev Event) {
	r.emitMu.Lock()
	defer r.emitMu.Unlock()
	if r.closed {
		return
	}
	select {
	case r.events <- ev:
	case <-r.ctx.Done():
		select {
		case r.events <- ev:
		default:
		}
	}
	r.closed = true
	close(r.events)
}

func (r *request) setState(s State) {
	r.stateMu.Lock()
	r.state = s
	r.stateMu.Unlock()
}

func (r *request) setTotal(n int) {
	r.stateMu.Lock()
	r.total = n
	r.stateMu.Unlock()
}

func (r *request) setProcessed(n int) {
	r.stateMu.Lock()
	r.processed = n
	r.stateMu.Unlock()
}

func (r *request) processedCount() int {
	r.stateMu.Lock()
	defer r.stateMu.Unlock()
	return r.processed
}

func (r *request) totalCount() int {
	r.stateMu.Lock()
	defer r.stateMu.Unlock()
	return r.total
}
