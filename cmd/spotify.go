package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/flacsync/internal/formatter"
	"github.com/desertthunder/flacsync/internal/shared"
	"github.com/urfave/cli/v3"
)

// SpotifyPlaylist shows metadata for a single playlist.
func (r *Runner) SpotifyPlaylist(ctx context.Context, cmd *cli.Command) error {
	useJSON := cmd.Bool("json")
	pretty := cmd.Bool("pretty")

	svc, err := r.requireSpotify()
	if err != nil {
		return err
	}

	if err := svc.Authenticate(ctx); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}

	playlist, err := svc.GetPlaylist(ctx, cmd.String("id"))
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	if useJSON {
		return r.writeJSON(playlist, pretty)
	}

	r.writePlainHeader(playlist.Name)
	if playlist.Description != "" {
		r.writePlain("%s\n", playlist.Description)
	}
	r.writePlain("Tracks: %d\n", playlist.TrackCount)
	r.writePlain("Visibility: %s\n", shared.VisibilityString(playlist.Public))
	return nil
}

// SpotifyExport exports a playlist's tracks, to files with --output or to
// stdout otherwise.
func (r *Runner) SpotifyExport(ctx context.Context, cmd *cli.Command) error {
	useJSON := cmd.Bool("json")
	pretty := cmd.Bool("pretty")
	output := cmd.String("output")

	svc, err := r.requireSpotify()
	if err != nil {
		return err
	}

	if err := svc.Authenticate(ctx); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}

	r.logger.Info("exporting playlist", "id", cmd.String("id"))

	export, err := svc.ExportPlaylist(ctx, cmd.String("id"))
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	if output != "" {
		result, err := formatter.WriteCSVExport(export, output)
		if err != nil {
			return err
		}
		r.writePlain("✓ Tracks written to %s\n", result.TracksFile)
		r.writePlain("✓ Metadata written to %s\n", result.MetadataFile)
		return nil
	}

	if useJSON {
		return r.writeJSON(export, pretty)
	}

	text, err := formatter.ExportToText(export)
	if err != nil {
		return err
	}
	return r.writePlain("%s", text)
}
