package handlers

import (
	"image"
	"time"

	"video-catalog/internal/catalog"
	"video-catalog/internal/filesystem"
	"video-catalog/internal/ingest"
	"video-catalog/internal/probe"
	"video-catalog/internal/startup"
	"video-catalog/internal/thumbnail"
)

type Handlers struct {
	store       *catalog.Store
	pipeline    *ingest.Pipeline
	prober      *probe.Prober
	extractor   *thumbnail.Extractor
	watcher     *filesystem.Watcher
	mediaDir    string
	thumbTarget image.Point
	startTime   time.Time
}

// New builds the handler set. watcher may be nil when folder watching
// is disabled.
func New(store *catalog.Store, pipeline *ingest.Pipeline, prober *probe.Prober, extractor *thumbnail.Extractor, watcher *filesystem.Watcher, config *startup.Config) *Handlers {
	return &Handlers{
		store:       store,
		pipeline:    pipeline,
		prober:      prober,
		extractor:   extractor,
		watcher:     watcher,
		mediaDir:    config.MediaDir,
		thumbTarget: image.Pt(config.ThumbnailWidth, config.ThumbnailHeight),
		startTime:   time.Now(),
	}
}
