package main

import (
	"context"
	"image"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"video-catalog/internal/catalog"
	"video-catalog/internal/filesystem"
	"video-catalog/internal/handlers"
	"video-catalog/internal/ingest"
	"video-catalog/internal/logging"
	"video-catalog/internal/memory"
	"video-catalog/internal/probe"
	"video-catalog/internal/startup"
	"video-catalog/internal/thumbnail"
	"video-catalog/internal/workers"
)

func main() {
	startTime := time.Now()

	memory.ConfigureFromEnv()

	config, err := startup.LoadConfig()
	if err != nil {
		logging.Fatal("Configuration error: %v", err)
	}

	// Initialize catalog database
	dbStart := time.Now()
	store, err := catalog.Open(context.Background(), config.DatabasePath)
	if err != nil {
		logging.Fatal("Failed to open catalog: %v", err)
	}
	defer store.Close()
	startup.LogCatalogInit(time.Since(dbStart))

	// Initialize metadata prober and thumbnail extractor
	prober := probe.New(config.CacheCapacity, probe.DefaultFallback)
	poolSize := workers.ForThumbnails(0)
	extractor := thumbnail.New(config.CacheCapacity, poolSize, prober)
	startup.LogExtractorInit(poolSize)

	// Initialize ingestion pipeline
	width, height := config.ThumbnailTarget()
	pipeline := ingest.New(store, prober, extractor, config.PreviewPosition, image.Pt(width, height))

	// Watch the media folder for changes and re-ingest on activity
	var watcher *filesystem.Watcher
	if config.WatchEnabled {
		watcher, err = filesystem.NewWatcher(func(folder string) {
			events, _ := pipeline.Load(folder)
			for range events {
			}
		})
		if err != nil {
			logging.Warn("Folder watching unavailable: %v", err)
			watcher = nil
		}
	}

	// Initialize handlers and router
	h := handlers.New(store, pipeline, prober, extractor, watcher, config)
	router := handlers.NewRouter(h, config)
	startup.LogHTTPRoutes(router)

	srv := &http.Server{
		Addr:         ":" + config.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go handleShutdown(srv, pipeline, watcher, extractor, prober)

	startup.LogServerStarted(config.Port, config.MetricsEnabled, time.Since(startTime))
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		logging.Fatal("Server error: %v", err)
	}
}

func handleShutdown(srv *http.Server, pipeline *ingest.Pipeline, watcher *filesystem.Watcher, extractor *thumbnail.Extractor, prober *probe.Prober) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pipeline.Cancel()
	startup.LogShutdownStepComplete("Ingestion stopped")

	if watcher != nil {
		if err := watcher.Close(); err != nil {
			logging.Warn("Watcher close error: %v", err)
		}
		startup.LogShutdownStepComplete("Folder watcher stopped")
	}

	extractor.ClearCache()
	prober.ClearCache()
	startup.LogShutdownStepComplete("Caches cleared")

	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	startup.LogShutdownComplete()
}
