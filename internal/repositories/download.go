package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/flacsync/internal/models"
	"github.com/desertthunder/flacsync/internal/shared"
)

const downloadColumns = "id, sequence, query, title, artist, album, store_link, path, size_bytes, created_at, updated_at, deleted_at"

// DownloadRepository persists completed downloads.
type DownloadRepository struct {
	db *sql.DB
}

// NewDownloadRepository creates a new DownloadRepository with the given database connection
func NewDownloadRepository(db *sql.DB) *DownloadRepository {
	return &DownloadRepository{db: db}
}

// Create inserts a new [models.Download] with generated ID and sequence.
func (r *DownloadRepository) Create(ctx context.Context, d *models.Download) error {
	if err := d.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(ctx, r.db, "downloads")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	d.ID = shared.GenerateID()
	d.Sequence = sequence

	query := `
		INSERT INTO downloads (` + downloadColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL)
	`

	_, err = r.db.ExecContext(ctx, query,
		d.ID,
		d.Sequence,
		d.Query,
		d.Title,
		d.Artist,
		d.Album,
		d.StoreLink,
		d.Path,
		d.SizeBytes,
		d.CreatedAt,
		d.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert download: %w", err)
	}

	return nil
}

// Exists reports whether a non-deleted download exists for the search query.
func (r *DownloadRepository) Exists(ctx context.Context, query string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		"SELECT 1 FROM downloads WHERE query = ? AND deleted_at IS NULL", query).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query download: %w", err)
	}
	return true, nil
}

// GetByQuery retrieves a download by its search query, excluding soft-deleted rows.
func (r *DownloadRepository) GetByQuery(ctx context.Context, query string) (*models.Download, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+downloadColumns+`
		FROM downloads
		WHERE query = ? AND deleted_at IS NULL
	`, query)

	d, err := scanDownload(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no download for %q", shared.ErrTrackNotFound, query)
	}
	return d, err
}

// List retrieves all downloads ordered by sequence, excluding soft-deleted rows.
func (r *DownloadRepository) List(ctx context.Context) ([]*models.Download, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+downloadColumns+`
		FROM downloads
		WHERE deleted_at IS NULL
		ORDER BY sequence ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query downloads: %w", err)
	}
	defer rows.Close()

	var downloads []*models.Download
	for rows.Next() {
		d, err := scanDownload(rows.Scan)
		if err != nil {
			return nil, err
		}
		downloads = append(downloads, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return downloads, nil
}

// Delete soft-deletes a download by ID.
func (r *DownloadRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE downloads
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete download: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: download not found or already deleted: %s", shared.ErrTrackNotFound, id)
	}

	return nil
}

// scanDownload scans one row's columns into a [models.Download]. Works for
// both [sql.Row] and [sql.Rows] via their Scan method.
func scanDownload(scan func(dest ...any) error) (*models.Download, error) {
	var (
		d         models.Download
		deletedAt sql.NullTime
	)

	err := scan(&d.ID, &d.Sequence, &d.Query, &d.Title, &d.Artist, &d.Album,
		&d.StoreLink, &d.Path, &d.SizeBytes, &d.CreatedAt, &d.UpdatedAt, &deletedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan download: %w", err)
	}

	if deletedAt.Valid {
		d.DeletedAt = &deletedAt.Time
	}

	return &d, nil
}
