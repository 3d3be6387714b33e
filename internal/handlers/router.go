package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"video-catalog/internal/middleware"
	"video-catalog/internal/startup"
)

// NewRouter wires every HTTP endpoint plus logging and metrics
// middleware. The /metrics endpoint is only registered when metrics
// are enabled in config.
func NewRouter(h *Handlers, config *startup.Config) *mux.Router {
	r := mux.NewRouter()

	logCfg := middleware.DefaultLoggingConfig()
	logCfg.LogHealthChecks = config.LogHealthChecks
	r.Use(middleware.Logger(logCfg))
	if config.MetricsEnabled {
		r.Use(middleware.Metrics(middleware.DefaultMetricsConfig()))
		r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	}

	r.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)
	r.HandleFunc("/livez", h.Livez).Methods(http.MethodGet)
	r.HandleFunc("/readyz", h.Readyz).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/ingest", h.StartIngest).Methods(http.MethodPost)
	api.HandleFunc("/ingest", h.IngestStatus).Methods(http.MethodGet)
	api.HandleFunc("/ingest", h.CancelIngest).Methods(http.MethodDelete)

	api.HandleFunc("/entries", h.ListEntries).Methods(http.MethodGet)
	api.HandleFunc("/entries/{id:[0-9]+}", h.DeleteEntry).Methods(http.MethodDelete)
	api.HandleFunc("/entries/{id:[0-9]+}/watched", h.SetWatched).Methods(http.MethodPost)
	api.HandleFunc("/entries/{id:[0-9]+}/rename", h.RenameEntry).Methods(http.MethodPost)

	api.HandleFunc("/entries/{id:[0-9]+}/tags", h.AddTag).Methods(http.MethodPost)
	api.HandleFunc("/entries/{id:[0-9]+}/tags/{tag}", h.RemoveTag).Methods(http.MethodDelete)
	api.HandleFunc("/tags", h.GetAllTags).Methods(http.MethodGet)
	api.HandleFunc("/tags/{tag}", h.RenameTag).Methods(http.MethodPut)
	api.HandleFunc("/tags/{tag}", h.DeleteTag).Methods(http.MethodDelete)

	api.HandleFunc("/entries/{id:[0-9]+}/note", h.GetNote).Methods(http.MethodGet)
	api.HandleFunc("/entries/{id:[0-9]+}/note", h.SaveNote).Methods(http.MethodPut)
	api.HandleFunc("/entries/{id:[0-9]+}/reviews", h.AddReview).Methods(http.MethodPost)
	api.HandleFunc("/entries/{id:[0-9]+}/reviews/latest", h.GetLatestReview).Methods(http.MethodGet)
	api.HandleFunc("/reviews", h.GetAllReviews).Methods(http.MethodGet)
	api.HandleFunc("/reviews/{reviewId:[0-9]+}", h.UpdateReview).Methods(http.MethodPut)

	api.HandleFunc("/thumbnail", h.GetThumbnail).Methods(http.MethodGet)
	api.HandleFunc("/stats", h.GetStats).Methods(http.MethodGet)
	api.HandleFunc("/version", h.GetVersion).Methods(http.MethodGet)

	return r
}
