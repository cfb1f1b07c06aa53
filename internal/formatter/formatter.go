// package formatter provides functions to export playlist data and the
// download history to various formats (CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/desertthunder/flacsync/internal/models"
	"github.com/desertthunder/flacsync/internal/shared"
	"github.com/desertthunder/flacsync/internal/tasks"
)

// ExportToCSV converts a PlaylistExport to CSV format with columns: ID, Title, Artist, Album, Duration, ISRC
func ExportToCSV(export *models.PlaylistExport) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Title", "Artist", "Album", "Duration", "ISRC"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, track := range export.Tracks {
		record := []string{
			track.ID,
			track.Title,
			track.Artist,
			track.Album,
			strconv.Itoa(track.Duration),
			track.ISRC,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToText converts a PlaylistExport to plain text format
func ExportToText(export *models.PlaylistExport) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Playlist: %s\n", export.Playlist.Name))
	if export.Playlist.Description != "" {
		buf.WriteString(fmt.Sprintf("Description: %s\n", export.Playlist.Description))
	}
	buf.WriteString(fmt.Sprintf("Visibility: %s\n", shared.VisibilityString(export.Playlist.Public)))
	buf.WriteString(fmt.Sprintf("Tracks: %d\n\n", len(export.Tracks)))

	for i, track := range export.Tracks {
		buf.WriteString(fmt.Sprintf("%d. %s - %s [%s]\n", i+1, track.Artist, track.Title, shared.FormatDuration(track.Duration)))
	}

	return buf.Bytes(), nil
}

// HistoryToCSV converts download history records to CSV format with columns:
// Sequence, Query, Title, Artist, Album, Path, Size, Downloaded At
func HistoryToCSV(downloads []*models.Download) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Sequence", "Query", "Title", "Artist", "Album", "Path", "Size", "Downloaded At"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, d := range downloads {
		record := []string{
			strconv.Itoa(d.Sequence),
			d.Query,
			d.Title,
			d.Artist,
			d.Album,
			d.Path,
			strconv.FormatInt(d.SizeBytes, 10),
			d.CreatedAt.Format("2006-01-02 15:04:05"),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// HistoryToMarkdown converts download history records to a Markdown table.
func HistoryToMarkdown(downloads []*models.Download) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("# Download History\n\n")
	buf.WriteString(fmt.Sprintf("**Downloads**: %d\n\n", len(downloads)))

	if len(downloads) == 0 {
		return buf.Bytes(), nil
	}

	buf.WriteString("| # | Artist | Title | Album | Size | Downloaded |\n")
	buf.WriteString("|---|--------|-------|-------|------|------------|\n")
	for _, d := range downloads {
		buf.WriteString(fmt.Sprintf("| %d | %s | %s | %s | %s | %s |\n",
			d.Sequence,
			d.Artist,
			d.Title,
			d.Album,
			shared.FormatBytes(d.SizeBytes),
			d.CreatedAt.Format("2006-01-02"),
		))
	}

	return buf.Bytes(), nil
}

// SyncReport renders a completed sync result as plain text, listing failures
// with their errors.
func SyncReport(result *tasks.SyncResult) []byte {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Playlist: %s\n", result.Playlist.Playlist.Name))
	buf.WriteString(fmt.Sprintf("Tracks: %d | Downloaded: %d | Skipped: %d | Failed: %d\n",
		result.Total, result.Downloaded, result.Skipped, result.Failed))
	buf.WriteString(fmt.Sprintf("Elapsed: %s\n", result.Elapsed.Round(time.Second)))

	if result.Failed > 0 {
		buf.WriteString("\nFailures:\n")
		for _, item := range result.Items {
			if item.Status == models.ItemFailed {
				buf.WriteString(fmt.Sprintf("  ✗ %s - %s: %v\n", item.Track.Artist, item.Track.Title, item.Err))
			}
		}
	}

	return buf.Bytes()
}

// ToMetadataJSON generates a JSON representation of playlist metadata (without tracks)
func ToMetadataJSON(playlist models.Playlist) ([]byte, error) {
	return shared.MarshalJSON(playlist, true)
}

// CSVExportResult contains the paths of files created by WriteCSVExport
type CSVExportResult struct {
	TracksFile   string
	MetadataFile string
}

// WriteCSVExport exports a playlist to CSV format with accompanying metadata JSON file.
//
// Defaults to playlist ID as the base filename & creates {base}_tracks.csv and {base}_metadata.json
func WriteCSVExport(export *models.PlaylistExport, baseFilepath string) (*CSVExportResult, error) {
	if baseFilepath == "" {
		baseFilepath = export.Playlist.ID
	}

	csvData, err := ExportToCSV(export)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSV: %w", err)
	}

	tracksFile := baseFilepath + "_tracks.csv"
	if err := os.WriteFile(tracksFile, csvData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write CSV file: %w", err)
	}

	metadataJSON, err := ToMetadataJSON(export.Playlist)
	if err != nil {
		return nil, fmt.Errorf("failed to generate metadata JSON: %w", err)
	}

	metadataFile := baseFilepath + "_metadata.json"
	if err := os.WriteFile(metadataFile, metadataJSON, 0644); err != nil {
		return nil, fmt.Errorf("failed to write metadata file: %w", err)
	}

	return &CSVExportResult{
		TracksFile:   tracksFile,
		MetadataFile: metadataFile,
	}, nil
}

// WriteHistoryExport writes the download history to path in the given format
// ("csv" or "md").
func WriteHistoryExport(downloads []*models.Download, path, format string) (string, error) {
	var (
		data []byte
		err  error
	)

	switch format {
	case "csv", "":
		data, err = HistoryToCSV(downloads)
		if path == "" {
			path = "history.csv"
		}
	case "md", "markdown":
		data, err = HistoryToMarkdown(downloads)
		if path == "" {
			path = "history.md"
		}
	default:
		return "", fmt.Errorf("%w: unknown history format %q", shared.ErrInvalidFlag, format)
	}
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write history file: %w", err)
	}

	return path, nil
}
