package tasks

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/flacsync/internal/browser"
	"github.com/desertthunder/flacsync/internal/governor"
	"github.com/desertthunder/flacsync/internal/models"
	"github.com/desertthunder/flacsync/internal/services"
	"github.com/desertthunder/flacsync/internal/shared"
)

// Governor admits outbound mirror requests. Satisfied by *governor.Governor.
type Governor interface {
	Acquire(ctx context.Context) error
	ReportSuccess()
	ReportError()
	Stats() governor.Stats
}

// History records completed downloads and answers skip queries.
// Satisfied by *repositories.DownloadRepository.
type History interface {
	Exists(ctx context.Context, query string) (bool, error)
	Create(ctx context.Context, d *models.Download) error
}

// SyncResult contains all data from a full playlist sync.
type SyncResult struct {
	Playlist   *models.PlaylistExport // Source playlist with tracks
	Items      []*models.WorkItem     // Every work item in playlist order
	Downloaded int
	Skipped    int
	Failed     int
	Total      int
	Elapsed    time.Duration
}

// SyncEngine defines the playlist download operations.
type SyncEngine interface {
	// Run downloads every track of a playlist that is not already in the
	// history.
	Run(ctx context.Context, progress chan<- ProgressUpdate, playlistID string) (*SyncResult, error)

	// RunTrack downloads a single already-resolved store link.
	RunTrack(ctx context.Context, progress chan<- ProgressUpdate, storeLink string) (*models.WorkItem, error)
}

// EngineOpts tunes the pipeline. Zero values fall back to defaults.
type EngineOpts struct {
	Workers          int           // Concurrent workers (default 3)
	Stagger          time.Duration // Per-slot start delay (default 5s)
	ResolveAttempts  int           // Store search attempts per track (default 3)
	DownloadAttempts int           // Mirror attempts per track (default 2)
	RetryPause       time.Duration // Worker-local pause between attempts (default 2s)
	OutputDir        string        // Where finished files land
	Limit            int           // Process at most N tracks (0 = all)
	DryRun           bool          // Plan only: no browser work, no history writes
}

func (o *EngineOpts) defaults() {
	if o.Workers <= 0 {
		o.Workers = 3
	}
	if o.Stagger <= 0 {
		o.Stagger = 5 * time.Second
	}
	if o.ResolveAttempts <= 0 {
		o.ResolveAttempts = 3
	}
	if o.DownloadAttempts <= 0 {
		o.DownloadAttempts = 2
	}
	if o.RetryPause <= 0 {
		o.RetryPause = 2 * time.Second
	}
	if o.OutputDir == "" {
		o.OutputDir = "downloads"
	}
}

// DownloadEngine implements SyncEngine against a real catalog, browser, and
// governor.
type DownloadEngine struct {
	catalog    services.Service
	resolver   browser.Resolver
	downloader browser.Downloader
	governor   Governor
	history    History
	logger     *log.Logger
	opts       EngineOpts

	// sleep is injectable so tests do not pay stagger and retry pauses.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewDownloadEngine creates a DownloadEngine with the provided collaborators.
func NewDownloadEngine(catalog services.Service, resolver browser.Resolver, downloader browser.Downloader, gov Governor, history History, logger *log.Logger, opts EngineOpts) *DownloadEngine {
	opts.defaults()
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &DownloadEngine{
		catalog:    catalog,
		resolver:   resolver,
		downloader: downloader,
		governor:   gov,
		history:    history,
		logger:     logger,
		opts:       opts,
		sleep:      sleepContext,
	}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *DownloadEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Run downloads a playlist end to end.
func (e *DownloadEngine) Run(ctx context.Context, progress chan<- ProgressUpdate, playlistID string) (*SyncResult, error) {
	if e.catalog == nil {
		return nil, fmt.Errorf("%w: catalog service not initialized", shared.ErrServiceUnavailable)
	}
	if e.governor == nil {
		return nil, fmt.Errorf("%w: request governor not initialized", shared.ErrServiceUnavailable)
	}

	start := time.Now()

	e.sendProgress(progress, fetchingPlaylistUpdate())
	export, err := e.catalog.ExportPlaylist(ctx, playlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to export playlist: %w", err)
	}
	e.sendProgress(progress, foundPlaylistUpdate(export))

	tracks := export.Tracks
	if e.opts.Limit > 0 && e.opts.Limit < len(tracks) {
		tracks = tracks[:e.opts.Limit]
	}

	result := &SyncResult{Playlist: export, Total: len(tracks)}

	items := make([]*models.WorkItem, len(tracks))
	pending := make([]*models.WorkItem, 0, len(tracks))
	for i, track := range tracks {
		item := models.NewWorkItem(i, track)
		items[i] = item

		if e.history != nil {
			exists, err := e.history.Exists(ctx, track.Query())
			if err != nil {
				e.logger.Warn("history lookup failed", "query", track.Query(), "error", err)
			} else if exists {
				item.Skip()
				e.sendProgress(progress, skippedUpdate(i+1, len(tracks), track))
				continue
			}
		}
		pending = append(pending, item)
	}
	result.Items = items

	if e.opts.DryRun {
		e.logger.Info("dry run", "would_download", len(pending), "skipped", len(items)-len(pending))
	} else {
		e.processPool(ctx, progress, pending, len(tracks))
	}

	for _, item := range items {
		switch item.Status {
		case models.ItemDownloaded:
			result.Downloaded++
		case models.ItemSkipped:
			result.Skipped++
		case models.ItemFailed:
			result.Failed++
		}
	}
	result.Elapsed = time.Since(start)

	stats := e.governor.Stats()
	e.logger.Info("sync finished",
		"downloaded", result.Downloaded,
		"skipped", result.Skipped,
		"failed", result.Failed,
		"requests_last_hour", stats.RequestsLastHour,
		"elapsed", result.Elapsed)

	e.sendProgress(progress, finishedUpdate(result))
	return result, nil
}

// RunTrack downloads a single store link, bypassing catalog and resolution.
func (e *DownloadEngine) RunTrack(ctx context.Context, progress chan<- ProgressUpdate, storeLink string) (*models.WorkItem, error) {
	if e.governor == nil {
		return nil, fmt.Errorf("%w: request governor not initialized", shared.ErrServiceUnavailable)
	}

	name := trackNameFromLink(storeLink)
	item := models.NewWorkItem(0, models.Track{Title: name})
	item.Resolve(storeLink)

	e.sendProgress(progress, downloadingUpdate(1, 1, item.Track))
	e.download(ctx, item, filepath.Join(e.opts.OutputDir, shared.SanitizeFilename(name)+".flac"))

	if item.Status == models.ItemFailed {
		e.sendProgress(progress, failedUpdate(1, 1, item))
		return item, item.Err
	}

	e.record(ctx, item)
	e.sendProgress(progress, downloadedUpdate(1, 1, item))
	return item, nil
}

// processPool runs the pending items through a bounded worker pool. Worker
// slots start staggered so the first wave of mirror requests does not land
// at once.
func (e *DownloadEngine) processPool(ctx context.Context, progress chan<- ProgressUpdate, pending []*models.WorkItem, total int) {
	queue := make(chan *models.WorkItem)

	var wg sync.WaitGroup
	for slot := range e.opts.Workers {
		wg.Add(1)
		go func() {
			defer wg.Done()

			if slot > 0 {
				if err := e.sleep(ctx, time.Duration(slot)*e.opts.Stagger); err != nil {
					return
				}
			}

			logger := e.logger.With("slot", slot)
			for item := range queue {
				e.processItem(ctx, progress, logger, item, total)
			}
		}()
	}

	for _, item := range pending {
		select {
		case queue <- item:
		case <-ctx.Done():
			item.Fail(ctx.Err())
		}
	}
	close(queue)
	wg.Wait()

	// Workers that bailed on cancellation leave their queued items pending.
	for _, item := range pending {
		if !item.Terminal() {
			item.Fail(ctx.Err())
		}
	}
}

// processItem takes one item from pending to a terminal state.
func (e *DownloadEngine) processItem(ctx context.Context, progress chan<- ProgressUpdate, logger *log.Logger, item *models.WorkItem, total int) {
	step := item.Index + 1

	e.sendProgress(progress, resolvingUpdate(step, total, item.Track))
	e.resolve(ctx, item)
	if item.Status != models.ItemResolved {
		logger.Error("resolve failed", "track", item.Track.Query(), "error", item.Err)
		e.sendProgress(progress, failedUpdate(step, total, item))
		return
	}

	e.sendProgress(progress, downloadingUpdate(step, total, item.Track))
	dest := filepath.Join(e.opts.OutputDir, shared.TrackFilename(item.Track.Artist, item.Track.Title, "flac"))
	e.download(ctx, item, dest)
	if item.Status != models.ItemDownloaded {
		logger.Error("download failed", "track", item.Track.Query(), "error", item.Err)
		e.sendProgress(progress, failedUpdate(step, total, item))
		return
	}

	e.record(ctx, item)
	logger.Info("downloaded", "track", item.Track.Query(), "path", item.Path, "bytes", item.Size)
	e.sendProgress(progress, downloadedUpdate(step, total, item))
}

// resolve searches the store for the item's track, retrying a bounded number
// of times. Every attempt is admitted by the governor first.
func (e *DownloadEngine) resolve(ctx context.Context, item *models.WorkItem) {
	var lastErr error
	for attempt := 1; attempt <= e.opts.ResolveAttempts; attempt++ {
		if err := e.governor.Acquire(ctx); err != nil {
			item.Fail(err)
			return
		}

		link, err := e.resolver.ResolveTrack(ctx, item.Track)
		if err == nil {
			e.governor.ReportSuccess()
			item.Resolve(link)
			return
		}

		e.governor.ReportError()
		lastErr = err

		if attempt < e.opts.ResolveAttempts {
			if err := e.sleep(ctx, e.opts.RetryPause); err != nil {
				item.Fail(err)
				return
			}
		}
	}
	item.Fail(fmt.Errorf("resolve exhausted after %d attempts: %w", e.opts.ResolveAttempts, lastErr))
}

// download fetches the item's resolved link through the mirror, retrying a
// bounded number of times with a page reset between failed attempts.
func (e *DownloadEngine) download(ctx context.Context, item *models.WorkItem, dest string) {
	var lastErr error
	for attempt := 1; attempt <= e.opts.DownloadAttempts; attempt++ {
		if err := e.governor.Acquire(ctx); err != nil {
			item.Fail(err)
			return
		}

		size, err := e.downloader.DownloadTrack(ctx, item.Link, dest)
		if err == nil {
			e.governor.ReportSuccess()
			item.Complete(dest, size)
			return
		}

		e.governor.ReportError()
		lastErr = err

		if attempt < e.opts.DownloadAttempts {
			if err := e.downloader.Reset(ctx); err != nil {
				e.logger.Warn("page reset failed", "error", err)
			}
			if err := e.sleep(ctx, e.opts.RetryPause); err != nil {
				item.Fail(err)
				return
			}
		}
	}
	item.Fail(fmt.Errorf("download exhausted after %d attempts: %w", e.opts.DownloadAttempts, lastErr))
}

// record persists a completed item into the download history.
func (e *DownloadEngine) record(ctx context.Context, item *models.WorkItem) {
	if e.history == nil {
		return
	}
	if err := e.history.Create(ctx, models.NewDownload(item)); err != nil {
		e.logger.Warn("failed to record download", "query", item.Track.Query(), "error", err)
	}
}

// trackNameFromLink derives a display name from a store link's path.
func trackNameFromLink(link string) string {
	u, err := url.Parse(link)
	if err != nil || u.Path == "" || u.Path == "/" {
		return "track"
	}
	name := path.Base(u.Path)
	if asin := u.Query().Get("trackAsin"); asin != "" {
		name = asin
	}
	return name
}

// sleepContext sleeps for d or until ctx is cancelled.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
