package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/flacsync/internal/governor"
	"github.com/desertthunder/flacsync/internal/models"
)

// fakeCatalog returns a canned playlist export.
type fakeCatalog struct {
	export *models.PlaylistExport
	err    error
}

func (f *fakeCatalog) Authenticate(ctx context.Context) error { return nil }
func (f *fakeCatalog) Name() string                           { return "Fake" }

func (f *fakeCatalog) GetPlaylist(ctx context.Context, id string) (*models.Playlist, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &f.export.Playlist, nil
}

func (f *fakeCatalog) ExportPlaylist(ctx context.Context, id string) (*models.PlaylistExport, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.export, nil
}

// fakeResolver resolves every track, failing the first failures[query] calls.
type fakeResolver struct {
	mu       sync.Mutex
	calls    map[string]int
	failures map[string]int
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{calls: map[string]int{}, failures: map[string]int{}}
}

func (f *fakeResolver) ResolveTrack(ctx context.Context, track models.Track) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q := track.Query()
	f.calls[q]++
	if f.calls[q] <= f.failures[q] {
		return "", errors.New("no result")
	}
	return "https://store.example/tracks/" + track.ID, nil
}

// fakeDownloader succeeds unless the link is marked broken.
type fakeDownloader struct {
	mu     sync.Mutex
	broken map[string]bool
	resets int
	calls  int
}

func newFakeDownloader() *fakeDownloader {
	return &fakeDownloader{broken: map[string]bool{}}
}

func (f *fakeDownloader) DownloadTrack(ctx context.Context, link, dest string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.broken[link] {
		return 0, errors.New("mirror error")
	}
	return 1024, nil
}

func (f *fakeDownloader) Reset(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets++
	return nil
}

// fakeGovernor counts admissions and outcome reports without waiting.
type fakeGovernor struct {
	mu        sync.Mutex
	acquires  int
	successes int
	errors    int
}

func (f *fakeGovernor) Acquire(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	f.acquires++
	f.mu.Unlock()
	return nil
}

func (f *fakeGovernor) ReportSuccess() {
	f.mu.Lock()
	f.successes++
	f.mu.Unlock()
}

func (f *fakeGovernor) ReportError() {
	f.mu.Lock()
	f.errors++
	f.mu.Unlock()
}

func (f *fakeGovernor) Stats() governor.Stats { return governor.Stats{} }

// fakeHistory is an in-memory History.
type fakeHistory struct {
	mu      sync.Mutex
	records map[string]*models.Download
}

func newFakeHistory(existing ...string) *fakeHistory {
	h := &fakeHistory{records: map[string]*models.Download{}}
	for _, q := range existing {
		h.records[q] = &models.Download{Query: q}
	}
	return h
}

func (f *fakeHistory) Exists(ctx context.Context, query string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.records[query]
	return ok, nil
}

func (f *fakeHistory) Create(ctx context.Context, d *models.Download) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[d.Query] = d
	return nil
}

func testExport(n int) *models.PlaylistExport {
	export := &models.PlaylistExport{
		Playlist: models.Playlist{ID: "pl1", Name: "Test Playlist", TrackCount: n},
	}
	for i := range n {
		export.Tracks = append(export.Tracks, models.Track{
			ID:     fmt.Sprintf("t%d", i),
			Title:  fmt.Sprintf("Song %d", i),
			Artist: "Artist",
		})
	}
	return export
}

// newTestEngine builds an engine with instant sleeps and a single worker by
// default, so tests are deterministic.
func newTestEngine(catalog *fakeCatalog, resolver *fakeResolver, downloader *fakeDownloader, gov *fakeGovernor, history *fakeHistory, opts EngineOpts) *DownloadEngine {
	e := NewDownloadEngine(catalog, resolver, downloader, gov, history, nil, opts)
	e.sleep = func(ctx context.Context, d time.Duration) error { return ctx.Err() }
	return e
}

func TestRunDownloadsPlaylist(t *testing.T) {
	catalog := &fakeCatalog{export: testExport(4)}
	resolver := newFakeResolver()
	downloader := newFakeDownloader()
	gov := &fakeGovernor{}
	history := newFakeHistory()

	engine := newTestEngine(catalog, resolver, downloader, gov, history, EngineOpts{Workers: 1, OutputDir: t.TempDir()})

	result, err := engine.Run(context.Background(), nil, "pl1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Downloaded != 4 || result.Failed != 0 || result.Skipped != 0 {
		t.Errorf("result = %d downloaded, %d failed, %d skipped", result.Downloaded, result.Failed, result.Skipped)
	}

	// One resolve permit and one download permit per track.
	if gov.acquires != 8 {
		t.Errorf("expected 8 governor admissions, got %d", gov.acquires)
	}
	if gov.successes != 8 || gov.errors != 0 {
		t.Errorf("expected 8 successes and 0 errors reported, got %d/%d", gov.successes, gov.errors)
	}

	for _, item := range result.Items {
		if item.Status != models.ItemDownloaded {
			t.Errorf("item %d status = %s", item.Index, item.Status)
		}
		if item.Path == "" || item.Size != 1024 {
			t.Errorf("item %d missing download result", item.Index)
		}
	}

	if len(history.records) != 4 {
		t.Errorf("expected 4 history records, got %d", len(history.records))
	}
}

func TestRunSkipsHistory(t *testing.T) {
	catalog := &fakeCatalog{export: testExport(3)}
	gov := &fakeGovernor{}
	history := newFakeHistory("Artist Song 0", "Artist Song 2")

	engine := newTestEngine(catalog, newFakeResolver(), newFakeDownloader(), gov, history, EngineOpts{Workers: 1, OutputDir: t.TempDir()})

	result, err := engine.Run(context.Background(), nil, "pl1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Skipped != 2 || result.Downloaded != 1 {
		t.Errorf("expected 2 skipped and 1 downloaded, got %d/%d", result.Skipped, result.Downloaded)
	}
	if gov.acquires != 2 {
		t.Errorf("skipped tracks must not consume permits: %d admissions", gov.acquires)
	}
}

func TestRunRetriesResolution(t *testing.T) {
	catalog := &fakeCatalog{export: testExport(1)}
	resolver := newFakeResolver()
	resolver.failures["Artist Song 0"] = 2 // succeeds on third attempt
	gov := &fakeGovernor{}

	engine := newTestEngine(catalog, resolver, newFakeDownloader(), gov, newFakeHistory(), EngineOpts{Workers: 1, OutputDir: t.TempDir()})

	result, err := engine.Run(context.Background(), nil, "pl1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Downloaded != 1 {
		t.Fatalf("expected the track to download after retries, got %+v", result)
	}
	if gov.errors != 2 || gov.successes != 2 {
		t.Errorf("expected 2 reported errors and 2 successes, got %d/%d", gov.errors, gov.successes)
	}
	// 3 resolve permits + 1 download permit.
	if gov.acquires != 4 {
		t.Errorf("expected 4 admissions, got %d", gov.acquires)
	}
}

func TestRunExhaustsResolutionAttempts(t *testing.T) {
	catalog := &fakeCatalog{export: testExport(1)}
	resolver := newFakeResolver()
	resolver.failures["Artist Song 0"] = 10
	gov := &fakeGovernor{}
	downloader := newFakeDownloader()

	engine := newTestEngine(catalog, resolver, downloader, gov, newFakeHistory(), EngineOpts{Workers: 1, OutputDir: t.TempDir()})

	result, err := engine.Run(context.Background(), nil, "pl1")
	if err != nil {
		t.Fatalf("a failed track must not fail the run: %v", err)
	}

	if result.Failed != 1 || result.Downloaded != 0 {
		t.Errorf("expected 1 failed, got %+v", result)
	}
	if downloader.calls != 0 {
		t.Error("download must not run when resolution failed")
	}
	if resolver.calls["Artist Song 0"] != 3 {
		t.Errorf("expected 3 resolve attempts, got %d", resolver.calls["Artist Song 0"])
	}
	if item := result.Items[0]; item.Err == nil {
		t.Error("failed item should carry its error")
	}
}

func TestRunRetriesDownloadWithReset(t *testing.T) {
	catalog := &fakeCatalog{export: testExport(1)}
	downloader := newFakeDownloader()
	downloader.broken["https://store.example/tracks/t0"] = true
	gov := &fakeGovernor{}

	engine := newTestEngine(catalog, newFakeResolver(), downloader, gov, newFakeHistory(), EngineOpts{Workers: 1, OutputDir: t.TempDir()})

	result, err := engine.Run(context.Background(), nil, "pl1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Failed != 1 {
		t.Fatalf("expected 1 failed, got %+v", result)
	}
	if downloader.calls != 2 {
		t.Errorf("expected 2 download attempts, got %d", downloader.calls)
	}
	if downloader.resets != 1 {
		t.Errorf("expected 1 page reset between attempts, got %d", downloader.resets)
	}
}

func TestRunLimit(t *testing.T) {
	catalog := &fakeCatalog{export: testExport(10)}
	engine := newTestEngine(catalog, newFakeResolver(), newFakeDownloader(), &fakeGovernor{}, newFakeHistory(), EngineOpts{Workers: 1, Limit: 3, OutputDir: t.TempDir()})

	result, err := engine.Run(context.Background(), nil, "pl1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Total != 3 || result.Downloaded != 3 {
		t.Errorf("limit not applied: %+v", result)
	}
}

func TestRunDryRun(t *testing.T) {
	catalog := &fakeCatalog{export: testExport(5)}
	gov := &fakeGovernor{}
	downloader := newFakeDownloader()

	engine := newTestEngine(catalog, newFakeResolver(), downloader, gov, newFakeHistory(), EngineOpts{Workers: 1, DryRun: true, OutputDir: t.TempDir()})

	result, err := engine.Run(context.Background(), nil, "pl1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gov.acquires != 0 || downloader.calls != 0 {
		t.Error("dry run must not touch the governor or the browser")
	}
	if result.Downloaded != 0 || result.Failed != 0 {
		t.Errorf("dry run result should be all pending: %+v", result)
	}
}

func TestRunConcurrentWorkers(t *testing.T) {
	catalog := &fakeCatalog{export: testExport(12)}
	gov := &fakeGovernor{}
	history := newFakeHistory()

	engine := newTestEngine(catalog, newFakeResolver(), newFakeDownloader(), gov, history, EngineOpts{Workers: 3, OutputDir: t.TempDir()})

	result, err := engine.Run(context.Background(), nil, "pl1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Downloaded != 12 {
		t.Errorf("expected all 12 downloaded, got %+v", result)
	}
	if len(history.records) != 12 {
		t.Errorf("expected 12 history records, got %d", len(history.records))
	}
}

func TestRunCancelled(t *testing.T) {
	catalog := &fakeCatalog{export: testExport(4)}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	engine := newTestEngine(catalog, newFakeResolver(), newFakeDownloader(), &fakeGovernor{}, newFakeHistory(), EngineOpts{Workers: 2, OutputDir: t.TempDir()})

	result, err := engine.Run(ctx, nil, "pl1")
	if err != nil {
		t.Fatalf("cancellation surfaces per item, not as a run error: %v", err)
	}

	for _, item := range result.Items {
		if !item.Terminal() {
			t.Errorf("item %d left non-terminal after cancellation", item.Index)
		}
		if item.Status == models.ItemFailed && !errors.Is(item.Err, context.Canceled) {
			t.Errorf("item %d error = %v, want context.Canceled", item.Index, item.Err)
		}
	}
}

func TestRunProgressUpdates(t *testing.T) {
	catalog := &fakeCatalog{export: testExport(2)}
	engine := newTestEngine(catalog, newFakeResolver(), newFakeDownloader(), &fakeGovernor{}, newFakeHistory(), EngineOpts{Workers: 1, OutputDir: t.TempDir()})

	progress := make(chan ProgressUpdate, 64)
	if _, err := engine.Run(context.Background(), progress, "pl1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	close(progress)

	var phases []Phase
	for update := range progress {
		phases = append(phases, update.Phase)
	}

	if len(phases) == 0 || phases[0] != FetchPlaylist {
		t.Fatalf("first update should be FetchPlaylist, got %v", phases)
	}
	if phases[len(phases)-1] != Finish {
		t.Errorf("last update should be Finish, got %v", phases[len(phases)-1])
	}
}

func TestRunTrack(t *testing.T) {
	downloader := newFakeDownloader()
	history := newFakeHistory()
	engine := newTestEngine(nil, newFakeResolver(), downloader, &fakeGovernor{}, history, EngineOpts{Workers: 1, OutputDir: t.TempDir()})

	item, err := engine.RunTrack(context.Background(), nil, "https://store.example/albums/B003?trackAsin=B004")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if item.Status != models.ItemDownloaded {
		t.Errorf("expected downloaded item, got %s", item.Status)
	}
	if len(history.records) != 1 {
		t.Errorf("single download should be recorded, got %d records", len(history.records))
	}
}

func TestTrackNameFromLink(t *testing.T) {
	tc := []struct {
		link string
		want string
	}{
		{"https://music.amazon.com/albums/B003?trackAsin=B004", "B004"},
		{"https://music.amazon.com/tracks/B002", "B002"},
		{"not a url at all://", "track"},
	}

	for _, tt := range tc {
		if got := trackNameFromLink(tt.link); got != tt.want {
			t.Errorf("trackNameFromLink(%q) = %q, want %q", tt.link, got, tt.want)
		}
	}
}
