package ingest

import (
	"image"

	"github.com/google/uuid"
)

// Kind discriminates the events a pipeline run emits.
type Kind int

const (
	// KindItemReady announces one catalogued file, without its thumbnail.
	KindItemReady Kind = iota + 1
	// KindThumbnailReady delivers the asynchronously extracted thumbnail
	// for a previously announced file.
	KindThumbnailReady
	// KindProgress is emitted exactly once per file, in iteration order.
	KindProgress
	// KindCompleted terminates a run that processed the whole listing.
	KindCompleted
	// KindCancelled terminates a run that was superseded or stopped.
	KindCancelled
	// KindDirectoryError terminates a run whose folder could not be read.
	KindDirectoryError
)

func (k Kind) String() string {
	switch k {
	case KindItemReady:
		return "item_ready"
	case KindThumbnailReady:
		return "thumbnail_ready"
	case KindProgress:
		return "progress"
	case KindCompleted:
		return "completed"
	case KindCancelled:
		return "cancelled"
	case KindDirectoryError:
		return "directory_error"
	default:
		return "unknown"
	}
}

// Event is one message on a run's stream. RequestID identifies the run
// that produced it, so a consumer holding events from several runs can
// discard the stale ones. Which other fields are set depends on Kind:
// ItemReady fills the file fields, ThumbnailReady fills Path and Image,
// Progress fills the counters, Completed fills TotalProcessed and
// NoMedia, DirectoryError fills Err.
type Event struct {
	Kind      Kind
	RequestID uuid.UUID

	// ItemReady
	Path     string
	Name     string
	Size     int64
	Duration float64
	Watched  bool
	Tags     []string

	// ThumbnailReady
	Image image.Image

	// Progress
	Processed int
	Total     int

	// Completed
	TotalProcessed int
	NoMedia        bool

	// DirectoryError
	Err error
}
