package tasks

import (
	"fmt"

	"github.com/desertthunder/flacsync/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchPlaylist Phase = iota
	FilterHistory
	ResolveTrack
	DownloadTrack
	Finish
)

func (p Phase) String() string {
	switch p {
	case FetchPlaylist:
		return "fetch_playlist"
	case FilterHistory:
		return "filter_history"
	case ResolveTrack:
		return "resolve_track"
	case DownloadTrack:
		return "download_track"
	case Finish:
		return "finish"
	default:
		return ""
	}
}

func fetchingPlaylistUpdate() ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchPlaylist,
		Step:    1,
		Total:   1,
		Message: "Fetching playlist from Spotify...",
	}
}

func foundPlaylistUpdate(export *models.PlaylistExport) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchPlaylist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Found playlist: %s (%d tracks)", export.Playlist.Name, len(export.Tracks)),
		Data:    export,
	}
}

func skippedUpdate(step, total int, tr models.Track) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FilterHistory,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Already downloaded: %s - %s", step, total, tr.Artist, tr.Title),
	}
}

func resolvingUpdate(step, total int, tr models.Track) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ResolveTrack,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Resolving: %s - %s", step, total, tr.Artist, tr.Title),
	}
}

func downloadingUpdate(step, total int, tr models.Track) ProgressUpdate {
	return ProgressUpdate{
		Phase:   DownloadTrack,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Downloading: %s - %s", step, total, tr.Artist, tr.Title),
	}
}

func downloadedUpdate(step, total int, item *models.WorkItem) ProgressUpdate {
	return ProgressUpdate{
		Phase:   DownloadTrack,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s", step, total, item.Path),
		Data:    item,
	}
}

func failedUpdate(step, total int, item *models.WorkItem) ProgressUpdate {
	return ProgressUpdate{
		Phase:   DownloadTrack,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s - %s: %v", step, total, item.Track.Artist, item.Track.Title, item.Err),
		Data:    item,
	}
}

func finishedUpdate(result *SyncResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Finish,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Done: %d downloaded, %d skipped, %d failed", result.Downloaded, result.Skipped, result.Failed),
		Data:    result,
	}
}
