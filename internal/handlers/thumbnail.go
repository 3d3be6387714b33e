package handlers

import (
	"image"
	"image/png"
	"net/http"
	"strconv"

	"video-catalog/internal/ingest"
	"video-catalog/internal/logging"
)

// GetThumbnail serves a preview frame for a media file as PNG. Query
// parameters position, width, and height override the configured
// defaults. Extraction failures still produce an image because the
// extractor substitutes a placeholder frame.
func (h *Handlers) GetThumbnail(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	path := q.Get("path")
	if path == "" {
		writeJSONError(w, "path is required", http.StatusBadRequest)
		return
	}

	position := ingest.DefaultPreviewPosition
	if s := q.Get("position"); s != "" {
		p, err := strconv.ParseFloat(s, 64)
		if err != nil || p <= 0 || p > 1 {
			writeJSONError(w, "position must be in (0, 1]", http.StatusBadRequest)
			return
		}
		position = p
	}

	target := h.thumbTarget
	if s := q.Get("width"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			target.X = v
		}
	}
	if s := q.Get("height"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			target.Y = v
		}
	}

	img := h.extractor.Extract(r.Context(), path, position, target)
	if img == nil {
		img = image.NewRGBA(image.Rect(0, 0, target.X, target.Y))
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	if err := png.Encode(w, img); err != nil {
		logging.Error("encode thumbnail for %s: %v", path, err)
	}
}
