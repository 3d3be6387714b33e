package catalog

import "time"

// Entry is the durable record for one media file. Identity is the
// absolute file path; the store enforces at most one entry per path.
type Entry struct {
	ID           int64     `json:"id"`
	Path         string    `json:"path"`
	Name         string    `json:"name"`
	Folder       string    `json:"folder"`
	Size         int64     `json:"size"`
	Duration     float64   `json:"duration"`
	Watched      bool      `json:"watched"`
	LastWatched  time.Time `json:"lastWatched,omitempty"`
	LastPosition int64     `json:"lastPosition"`
	CreatedAt    time.Time `json:"createdAt"`
	ModifiedAt   time.Time `json:"modifiedAt"`
	Tags         []string  `json:"tags,omitempty"`
	MimeType     string    `json:"mimeType,omitempty"`
}

// NewEntry carries the fields persisted when a file is first discovered.
type NewEntry struct {
	Path       string
	Name       string
	Folder     string
	Size       int64
	Duration   float64
	CreatedAt  time.Time
	ModifiedAt time.Time
}

// Tag is a user-defined label attached to entries.
type Tag struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	ItemCount int       `json:"itemCount"`
	CreatedAt time.Time `json:"createdAt"`
}

// Review is one rating with optional text for an entry.
type Review struct {
	ID        int64     `json:"id"`
	EntryID   int64     `json:"entryId"`
	EntryName string    `json:"entryName,omitempty"`
	Rating    int       `json:"rating"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// SearchOptions filters entry queries. Zero values mean "no filter";
// multiple tag names match entries carrying any of them.
type SearchOptions struct {
	Query   string
	Folder  string
	Tags    []string
	Watched *bool
}

// Stats summarizes catalog contents.
type Stats struct {
	TotalEntries int `json:"totalEntries"`
	TotalWatched int `json:"totalWatched"`
	TotalTags    int `json:"totalTags"`
	TotalReviews int `json:"totalReviews"`
}
