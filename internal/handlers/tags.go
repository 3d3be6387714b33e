package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"video-catalog/internal/catalog"
	"video-catalog/internal/logging"
)

// TagRequest names a tag to attach, detach, or create.
type TagRequest struct {
	Name string `json:"name"`
}

// RenameTagRequest carries the replacement name for a tag.
type RenameTagRequest struct {
	NewName string `json:"newName"`
}

// GetAllTags lists every tag with its usage count.
func (h *Handlers) GetAllTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.store.AllTags(r.Context())
	if err != nil {
		logging.Error("list tags: %v", err)
		writeJSONError(w, "failed to list tags", http.StatusInternalServerError)
		return
	}
	if tags == nil {
		tags = []catalog.Tag{}
	}
	writeJSON(w, tags)
}

// AddTag attaches a tag to an entry, creating the tag if needed.
func (h *Handlers) AddTag(w http.ResponseWriter, r *http.Request) {
	id, ok := entryID(r)
	if !ok {
		writeJSONError(w, "invalid entry id", http.StatusBadRequest)
		return
	}
	var req TagRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.store.AddTag(r.Context(), id, req.Name); err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSONStatus(w, "ok")
}

// RemoveTag detaches a tag from an entry. The tag itself survives even
// when no entries carry it any more.
func (h *Handlers) RemoveTag(w http.ResponseWriter, r *http.Request) {
	id, ok := entryID(r)
	if !ok {
		writeJSONError(w, "invalid entry id", http.StatusBadRequest)
		return
	}
	name := mux.Vars(r)["tag"]

	if err := h.store.RemoveTag(r.Context(), id, name); err != nil {
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSONStatus(w, "ok")
}

// RenameTag renames a tag everywhere it is used.
func (h *Handlers) RenameTag(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["tag"]
	var req RenameTagRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.store.RenameTag(r.Context(), name, req.NewName); err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSONStatus(w, "ok")
}

// DeleteTag removes a tag and every association it has.
func (h *Handlers) DeleteTag(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["tag"]

	if err := h.store.DeleteTag(r.Context(), name); err != nil {
		writeJSONError(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSONStatus(w, "ok")
}
