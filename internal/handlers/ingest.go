package handlers

import (
	"net/http"

	"video-catalog/internal/ingest"
	"video-catalog/internal/logging"
)

// IngestRequest asks the pipeline to load a folder. An empty folder
// defaults to the configured media directory.
type IngestRequest struct {
	Folder string `json:"folder"`
}

// IngestResponse reports the run started by StartIngest.
type IngestResponse struct {
	RequestID string `json:"requestId"`
	Folder    string `json:"folder"`
}

// StartIngest launches an ingestion run, superseding any active one.
// The run's event stream is drained server-side: entries and thumbnails
// land in the catalog and caches, progress is readable via IngestStatus.
func (h *Handlers) StartIngest(w http.ResponseWriter, r *http.Request) {
	var req IngestRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeJSONError(w, "invalid request body", http.StatusBadRequest)
			return
		}
	}
	folder := req.Folder
	if folder == "" {
		folder = h.mediaDir
	}

	events, id := h.pipeline.Load(folder)
	go drainEvents(events)

	if h.watcher != nil {
		if err := h.watcher.SetFolder(folder); err != nil {
			logging.Warn("folder watch unavailable for %s: %v", folder, err)
		}
	}

	writeJSON(w, IngestResponse{RequestID: id.String(), Folder: folder})
}

// IngestStatus reports the active run's progress.
func (h *Handlers) IngestStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, h.pipeline.Status())
}

// CancelIngest stops the active run.
func (h *Handlers) CancelIngest(w http.ResponseWriter, _ *http.Request) {
	h.pipeline.Cancel()
	writeJSONStatus(w, "cancelling")
}

// drainEvents consumes a run's stream. Persistence happens inside the
// pipeline; here the terminal events are surfaced to the log.
func drainEvents(events <-chan ingest.Event) {
	for ev := range events {
		switch ev.Kind {
		case ingest.KindCompleted:
			if ev.NoMedia {
				logging.Info("Ingest %s: no media found", ev.RequestID)
			} else {
				logging.Info("Ingest %s: %d files processed", ev.RequestID, ev.TotalProcessed)
			}
		case ingest.KindDirectoryError:
			logging.Error("Ingest %s: %v", ev.RequestID, ev.Err)
		case ingest.KindCancelled:
			logging.Debug("Ingest %s: cancelled", ev.RequestID)
		default:
			logging.Debug("Ingest %s: %s %s", ev.RequestID, ev.Kind, ev.Path)
		}
	}
}
