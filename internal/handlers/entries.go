package handlers

import (
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"video-catalog/internal/catalog"
	"video-catalog/internal/logging"
	"video-catalog/internal/mediatypes"
)

// ListEntries returns catalogued entries, filtered by the query
// parameters q (name substring), folder, tag (repeatable), and watched.
func (h *Handlers) ListEntries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := catalog.SearchOptions{
		Query:  q.Get("q"),
		Folder: q.Get("folder"),
		Tags:   q["tag"],
	}
	if watchedStr := q.Get("watched"); watchedStr != "" {
		watched, err := strconv.ParseBool(watchedStr)
		if err != nil {
			writeJSONError(w, "invalid watched filter", http.StatusBadRequest)
			return
		}
		opts.Watched = &watched
	}

	entries, err := h.store.Search(r.Context(), opts)
	if err != nil {
		logging.Error("entry search failed: %v", err)
		writeJSONError(w, "failed to search entries", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []catalog.Entry{}
	}
	for i := range entries {
		if tags, err := h.store.EntryTags(r.Context(), entries[i].ID); err == nil && tags != nil {
			entries[i].Tags = tags
		}
		entries[i].MimeType = mediatypes.GetMimeType(strings.ToLower(filepath.Ext(entries[i].Path)))
	}

	writeJSON(w, entries)
}

// WatchedRequest updates an entry's watched state.
type WatchedRequest struct {
	Watched  bool  `json:"watched"`
	Position int64 `json:"position"`
}

// SetWatched marks an entry watched or unwatched.
func (h *Handlers) SetWatched(w http.ResponseWriter, r *http.Request) {
	id, ok := entryID(r)
	if !ok {
		writeJSONError(w, "invalid entry id", http.StatusBadRequest)
		return
	}
	var req WatchedRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	var lastWatched time.Time
	if req.Watched {
		lastWatched = time.Now()
	}
	if err := h.store.SetWatched(r.Context(), id, req.Watched, req.Position, lastWatched); err != nil {
		writeJSONError(w, "failed to update watched state", http.StatusNotFound)
		return
	}
	writeJSONStatus(w, "ok")
}

// RenameRequest moves or renames an entry's file.
type RenameRequest struct {
	NewPath string `json:"newPath"`
}

// RenameEntry renames or moves the file on disk and rewrites the
// catalog path; tags, notes, and reviews stay attached.
func (h *Handlers) RenameEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := entryID(r)
	if !ok {
		writeJSONError(w, "invalid entry id", http.StatusBadRequest)
		return
	}
	var req RenameRequest
	if err := decodeJSON(r, &req); err != nil || req.NewPath == "" {
		writeJSONError(w, "newPath is required", http.StatusBadRequest)
		return
	}

	entry, err := h.findEntry(r, id)
	if err != nil {
		writeJSONError(w, "entry not found", http.StatusNotFound)
		return
	}

	if _, err := os.Stat(req.NewPath); err == nil {
		writeJSONError(w, "destination already exists", http.StatusConflict)
		return
	}
	if err := os.Rename(entry.Path, req.NewPath); err != nil {
		logging.Error("rename %s -> %s: %v", entry.Path, req.NewPath, err)
		writeJSONError(w, "failed to rename file", http.StatusInternalServerError)
		return
	}

	newName := filepath.Base(req.NewPath)
	newFolder := filepath.Dir(req.NewPath)
	if err := h.store.UpdatePath(r.Context(), id, req.NewPath, newName, newFolder); err != nil {
		logging.Error("catalog path update for entry %d: %v", id, err)
		writeJSONError(w, "file renamed but catalog update failed", http.StatusInternalServerError)
		return
	}

	h.prober.Invalidate(entry.Path)
	h.extractor.Invalidate(entry.Path)
	writeJSONStatus(w, "ok")
}

// DeleteEntry removes an entry. With ?file=true the media file itself
// is deleted from disk as well.
func (h *Handlers) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := entryID(r)
	if !ok {
		writeJSONError(w, "invalid entry id", http.StatusBadRequest)
		return
	}

	entry, err := h.findEntry(r, id)
	if err != nil {
		writeJSONError(w, "entry not found", http.StatusNotFound)
		return
	}

	if deleteFile, _ := strconv.ParseBool(r.URL.Query().Get("file")); deleteFile {
		if err := os.Remove(entry.Path); err != nil && !os.IsNotExist(err) {
			logging.Error("delete file %s: %v", entry.Path, err)
			writeJSONError(w, "failed to delete file", http.StatusInternalServerError)
			return
		}
	}

	if err := h.store.DeleteEntry(r.Context(), id); err != nil {
		writeJSONError(w, "failed to delete entry", http.StatusInternalServerError)
		return
	}

	h.prober.Invalidate(entry.Path)
	h.extractor.Invalidate(entry.Path)
	writeJSONStatus(w, "ok")
}

// GetStats returns catalog totals.
func (h *Handlers) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.CalculateStats(r.Context())
	if err != nil {
		writeJSONError(w, "failed to calculate stats", http.StatusInternalServerError)
		return
	}
	writeJSON(w, stats)
}

func (h *Handlers) findEntry(r *http.Request, id int64) (*catalog.Entry, error) {
	entry, err := h.store.FindByID(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, os.ErrNotExist
	}
	return entry, nil
}
