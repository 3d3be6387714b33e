package handlers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"video-catalog/internal/catalog"
	"video-catalog/internal/logging"
)

// NoteRequest carries free-form note text for an entry.
type NoteRequest struct {
	Content string `json:"content"`
}

// NoteResponse wraps an entry's note text.
type NoteResponse struct {
	Content string `json:"content"`
}

// ReviewRequest carries a star rating and optional review text.
type ReviewRequest struct {
	Rating int    `json:"rating"`
	Text   string `json:"text"`
}

// GetNote returns the note attached to an entry, empty when none is set.
func (h *Handlers) GetNote(w http.ResponseWriter, r *http.Request) {
	id, ok := entryID(r)
	if !ok {
		writeJSONError(w, "invalid entry id", http.StatusBadRequest)
		return
	}

	content, err := h.store.Note(r.Context(), id)
	if err != nil {
		logging.Error("load note for entry %d: %v", id, err)
		writeJSONError(w, "failed to load note", http.StatusInternalServerError)
		return
	}
	writeJSON(w, NoteResponse{Content: content})
}

// SaveNote replaces the note attached to an entry.
func (h *Handlers) SaveNote(w http.ResponseWriter, r *http.Request) {
	id, ok := entryID(r)
	if !ok {
		writeJSONError(w, "invalid entry id", http.StatusBadRequest)
		return
	}
	var req NoteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.store.SaveNote(r.Context(), id, req.Content); err != nil {
		writeJSONError(w, "failed to save note", http.StatusInternalServerError)
		return
	}
	writeJSONStatus(w, "ok")
}

// AddReview records a new review for an entry.
func (h *Handlers) AddReview(w http.ResponseWriter, r *http.Request) {
	id, ok := entryID(r)
	if !ok {
		writeJSONError(w, "invalid entry id", http.StatusBadRequest)
		return
	}
	var req ReviewRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	reviewID, err := h.store.AddReview(r.Context(), id, req.Rating, req.Text)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, map[string]int64{"id": reviewID})
}

// UpdateReview rewrites an existing review's rating and text.
func (h *Handlers) UpdateReview(w http.ResponseWriter, r *http.Request) {
	reviewID, err := strconv.ParseInt(mux.Vars(r)["reviewId"], 10, 64)
	if err != nil {
		writeJSONError(w, "invalid review id", http.StatusBadRequest)
		return
	}
	var req ReviewRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.store.UpdateReview(r.Context(), reviewID, req.Rating, req.Text); err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSONStatus(w, "ok")
}

// GetLatestReview returns the most recent review for an entry, or 404
// when the entry has none.
func (h *Handlers) GetLatestReview(w http.ResponseWriter, r *http.Request) {
	id, ok := entryID(r)
	if !ok {
		writeJSONError(w, "invalid entry id", http.StatusBadRequest)
		return
	}

	review, err := h.store.LatestReview(r.Context(), id)
	if err != nil {
		writeJSONError(w, "failed to load review", http.StatusInternalServerError)
		return
	}
	if review == nil {
		writeJSONError(w, "no reviews for entry", http.StatusNotFound)
		return
	}
	writeJSON(w, review)
}

// GetAllReviews lists every review in the catalog, newest first.
func (h *Handlers) GetAllReviews(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.store.AllReviews(r.Context())
	if err != nil {
		writeJSONError(w, "failed to list reviews", http.StatusInternalServerError)
		return
	}
	if reviews == nil {
		reviews = []catalog.Review{}
	}
	writeJSON(w, reviews)
}
