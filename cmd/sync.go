package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/flacsync/internal/browser"
	"github.com/desertthunder/flacsync/internal/formatter"
	"github.com/desertthunder/flacsync/internal/governor"
	"github.com/desertthunder/flacsync/internal/repositories"
	"github.com/desertthunder/flacsync/internal/shared"
	"github.com/desertthunder/flacsync/internal/tasks"
	"github.com/urfave/cli/v3"
)

// pipeline bundles the collaborators a sync needs, plus their teardown.
type pipeline struct {
	engine  *tasks.DownloadEngine
	session *browser.Session
	db      *sql.DB
}

func (p *pipeline) close() {
	if p.session != nil {
		p.session.Close()
	}
	if p.db != nil {
		p.db.Close()
	}
}

// buildPipeline wires the governor, browser, history, and engine from config.
func (r *Runner) buildPipeline(ctx context.Context, config *shared.Config, opts tasks.EngineOpts) (*pipeline, error) {
	gov := governor.New(governor.Config{
		RequestsPerMinute: config.Limits.RequestsPerMinute,
		RequestsPerHour:   config.Limits.RequestsPerHour,
		MinDelay:          config.Limits.MinDelay(),
		MaxBackoff:        config.Limits.MaxBackoff(),
		WindowSlack:       config.Limits.WindowSlack(),
	})

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)
	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	session := browser.NewSession(browser.SessionOpts{
		Headless:    config.Browser.Headless,
		UserDataDir: config.Browser.UserDataDir,
		DownloadDir: config.Downloader.OutputDir,
		Logger:      r.logger,
	})
	if err := session.Start(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	resolver := browser.NewAmazonResolver(session, r.logger)
	downloader := browser.NewMirrorDownloader(session, config.Downloader.BaseURL, r.logger)
	history := repositories.NewDownloadRepository(db)

	opts.Workers = config.Downloader.Workers
	opts.Stagger = time.Duration(config.Downloader.StaggerSeconds) * time.Second
	opts.OutputDir = config.Downloader.OutputDir

	engine := tasks.NewDownloadEngine(r.spotify, resolver, downloader, gov, history, r.logger, opts)

	return &pipeline{engine: engine, session: session, db: db}, nil
}

// consumeProgress prints progress updates until the channel closes.
func (r *Runner) consumeProgress(progress <-chan tasks.ProgressUpdate, done chan<- struct{}) {
	for update := range progress {
		r.writePlain("%s\n", update.Message)
	}
	close(done)
}

// SyncRun runs the full playlist sync pipeline.
func (r *Runner) SyncRun(ctx context.Context, cmd *cli.Command) error {
	svc, err := r.requireSpotify()
	if err != nil {
		return err
	}

	config := r.loadOrCreateConfig(cmd.String("config"))

	if err := svc.Authenticate(ctx); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}

	p, err := r.buildPipeline(ctx, config, tasks.EngineOpts{
		Limit:  int(cmd.Int("limit")),
		DryRun: cmd.Bool("dry-run"),
	})
	if err != nil {
		return err
	}
	defer p.close()

	progress := make(chan tasks.ProgressUpdate, 64)
	done := make(chan struct{})
	go r.consumeProgress(progress, done)

	result, err := p.engine.Run(ctx, progress, cmd.String("playlist"))
	close(progress)
	<-done

	if err != nil {
		return err
	}

	r.writePlain("\n%s", formatter.SyncReport(result))
	return nil
}

// SyncTrack downloads a single store link through the mirror.
func (r *Runner) SyncTrack(ctx context.Context, cmd *cli.Command) error {
	storeLink := cmd.StringArg("url")
	if storeLink == "" {
		return fmt.Errorf("%w: store link argument is required", shared.ErrMissingArgument)
	}

	config := r.loadOrCreateConfig(cmd.String("config"))

	p, err := r.buildPipeline(ctx, config, tasks.EngineOpts{})
	if err != nil {
		return err
	}
	defer p.close()

	progress := make(chan tasks.ProgressUpdate, 8)
	done := make(chan struct{})
	go r.consumeProgress(progress, done)

	item, err := p.engine.RunTrack(ctx, progress, storeLink)
	close(progress)
	<-done

	if err != nil {
		return err
	}

	r.writePlain("✓ Saved %s (%s)\n", item.Path, shared.FormatBytes(item.Size))
	return nil
}
