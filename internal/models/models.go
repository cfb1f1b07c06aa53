package models

import (
	"fmt"
	"time"
)

// Playlist represents a music playlist from the catalog service.
type Playlist struct {
	ID          string
	Name        string
	Description string
	TrackCount  int
	Public      bool
}

// PlaylistExport represents a playlist with all its tracks.
type PlaylistExport struct {
	Playlist Playlist
	Tracks   []Track
}

// Track represents a music track from the catalog service.
type Track struct {
	ID       string
	Title    string
	Artist   string
	Album    string
	Duration int    // Duration in seconds
	ISRC     string // International Standard Recording Code for matching
}

// Query returns the search string used to resolve the track on the store.
func (t Track) Query() string {
	return t.Artist + " " + t.Title
}

// ItemStatus is the lifecycle state of a WorkItem.
type ItemStatus int

const (
	ItemPending ItemStatus = iota
	ItemResolved
	ItemDownloaded
	ItemFailed
	ItemSkipped
)

func (s ItemStatus) String() string {
	switch s {
	case ItemPending:
		return "pending"
	case ItemResolved:
		return "resolved"
	case ItemDownloaded:
		return "downloaded"
	case ItemFailed:
		return "failed"
	case ItemSkipped:
		return "skipped"
	default:
		return ""
	}
}

// WorkItem is one unit of end-to-end processing: a single track carrying its
// resolved store link and terminal status. Items are created from a playlist
// fetch, mutated by exactly one worker, and discarded after their terminal
// state is logged.
type WorkItem struct {
	Index  int
	Track  Track
	Link   string // Resolved store link, empty until resolution succeeds
	Path   string // Local file path, empty until download succeeds
	Size   int64
	Status ItemStatus
	Err    error
}

// NewWorkItem creates a pending WorkItem for a track.
func NewWorkItem(index int, track Track) *WorkItem {
	return &WorkItem{Index: index, Track: track, Status: ItemPending}
}

// Resolve marks the item resolved with its store link.
func (w *WorkItem) Resolve(link string) {
	w.Link = link
	w.Status = ItemResolved
}

// Complete marks the item downloaded with the file it produced.
func (w *WorkItem) Complete(path string, size int64) {
	w.Path = path
	w.Size = size
	w.Status = ItemDownloaded
}

// Fail marks the item terminally failed.
func (w *WorkItem) Fail(err error) {
	w.Err = err
	w.Status = ItemFailed
}

// Skip marks the item skipped (already present in the download history).
func (w *WorkItem) Skip() {
	w.Status = ItemSkipped
}

// Terminal reports whether the item reached a terminal state.
func (w *WorkItem) Terminal() bool {
	switch w.Status {
	case ItemDownloaded, ItemFailed, ItemSkipped:
		return true
	}
	return false
}

// Download is a persisted record of a completed download.
type Download struct {
	ID        string
	Sequence  int
	Query     string
	Title     string
	Artist    string
	Album     string
	StoreLink string
	Path      string
	SizeBytes int64
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

// NewDownload builds a Download record from a completed work item.
func NewDownload(item *WorkItem) *Download {
	now := time.Now()
	return &Download{
		Query:     item.Track.Query(),
		Title:     item.Track.Title,
		Artist:    item.Track.Artist,
		Album:     item.Track.Album,
		StoreLink: item.Link,
		Path:      item.Path,
		SizeBytes: item.Size,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Validate checks that the record has the fields the schema requires.
func (d *Download) Validate() error {
	if d.Query == "" {
		return fmt.Errorf("download record missing query")
	}
	if d.Title == "" {
		return fmt.Errorf("download record missing title")
	}
	if d.Path == "" {
		return fmt.Errorf("download record missing path")
	}
	return nil
}
