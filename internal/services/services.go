package services

import (
	"context"

	"github.com/desertthunder/flacsync/internal/models"
)

// Service defines the interface for read-only music catalog providers.
type Service interface {
	// Authenticate obtains an API token for the service.
	// Returns an error if authentication fails.
	Authenticate(ctx context.Context) error

	// GetPlaylist retrieves a specific playlist by ID.
	GetPlaylist(ctx context.Context, playlistID string) (*models.Playlist, error)

	// ExportPlaylist exports a playlist with all its tracks.
	ExportPlaylist(ctx context.Context, playlistID string) (*models.PlaylistExport, error)

	// Name returns the name of the service (e.g., "Spotify")
	Name() string
}
