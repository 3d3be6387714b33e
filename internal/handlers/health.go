package handlers

import (
	"net/http"
	"runtime"
	"time"

	"video-catalog/internal/ingest"
	"video-catalog/internal/startup"
)

const (
	statusHealthy  = "healthy"
	statusDegraded = "degraded"
)

// HealthResponse contains the health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`

	IngestState     string `json:"ingestState"`
	IngestProcessed int    `json:"ingestProcessed"`
	IngestTotal     int    `json:"ingestTotal"`

	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`

	TotalEntries int `json:"totalEntries"`
	TotalTags    int `json:"totalTags"`
	TotalReviews int `json:"totalReviews"`
}

// HealthCheck returns the health status of the service
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := h.pipeline.Status()

	response := HealthResponse{
		Status:          statusHealthy,
		Version:         startup.Version,
		Uptime:          time.Since(h.startTime).Round(time.Second).String(),
		IngestState:     status.State.String(),
		IngestProcessed: status.Processed,
		IngestTotal:     status.Total,
		GoVersion:       runtime.Version(),
		NumCPU:          runtime.NumCPU(),
		NumGoroutine:    runtime.NumGoroutine(),
	}

	stats, err := h.store.CalculateStats(r.Context())
	if err != nil {
		response.Status = statusDegraded
	} else {
		response.TotalEntries = stats.TotalEntries
		response.TotalTags = stats.TotalTags
		response.TotalReviews = stats.TotalReviews
	}

	if response.Status != statusHealthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	writeJSON(w, response)
}

// Livez is a minimal liveness probe.
func (h *Handlers) Livez(w http.ResponseWriter, _ *http.Request) {
	writeJSONStatus(w, "ok")
}

// Readyz reports readiness: the catalog must answer and no ingest run
// may be stuck in a failed state with nothing catalogued.
func (h *Handlers) Readyz(w http.ResponseWriter, r *http.Request) {
	if _, err := h.store.CalculateStats(r.Context()); err != nil {
		writeJSONError(w, "catalog unavailable", http.StatusServiceUnavailable)
		return
	}
	if h.pipeline.Status().State == ingest.StateFailed {
		writeJSONStatus(w, "degraded")
		return
	}
	writeJSONStatus(w, "ready")
}
