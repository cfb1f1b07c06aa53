package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/desertthunder/flacsync/internal/formatter"
	"github.com/desertthunder/flacsync/internal/repositories"
	"github.com/desertthunder/flacsync/internal/shared"
	"github.com/urfave/cli/v3"
)

// openHistory opens the configured database with the schema applied.
func (r *Runner) openHistory(configPath string) (*sql.DB, *repositories.DownloadRepository, error) {
	config := r.loadOrCreateConfig(configPath)

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, repositories.NewDownloadRepository(db), nil
}

// HistoryList lists completed downloads.
func (r *Runner) HistoryList(ctx context.Context, cmd *cli.Command) error {
	db, repo, err := r.openHistory(cmd.String("config"))
	if err != nil {
		return err
	}
	defer db.Close()

	downloads, err := repo.List(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(downloads, true)
	}

	if len(downloads) == 0 {
		r.writePlain("No downloads yet\n")
		return nil
	}

	r.writePlainHeader(fmt.Sprintf("Download History (%d)", len(downloads)))
	for _, d := range downloads {
		r.writePlain("%4d. %s - %s (%s) %s\n",
			d.Sequence, d.Artist, d.Title, shared.FormatBytes(d.SizeBytes), d.CreatedAt.Format("2006-01-02"))
	}
	return nil
}

// HistoryExport writes the history to a CSV or Markdown file.
func (r *Runner) HistoryExport(ctx context.Context, cmd *cli.Command) error {
	db, repo, err := r.openHistory(cmd.String("config"))
	if err != nil {
		return err
	}
	defer db.Close()

	downloads, err := repo.List(ctx)
	if err != nil {
		return err
	}

	path, err := formatter.WriteHistoryExport(downloads, cmd.String("output"), cmd.String("format"))
	if err != nil {
		return err
	}

	r.writePlain("✓ History written to %s\n", path)
	return nil
}
