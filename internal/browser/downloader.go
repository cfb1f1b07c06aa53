package browser

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/flacsync/internal/shared"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

const (
	mirrorLoadTimeout = 30 * time.Second

	// The mirror prepares the file server-side before the button appears,
	// which can take a while for lossless rips.
	buttonPollInterval = 5 * time.Second
	buttonPollAttempts = 24 // 2 minutes

	// A Cloudflare interstitial usually clears on its own with the stealth
	// patches; headful runs give the user time to solve a challenge by hand.
	challengeWait = 15 * time.Second

	downloadWait = 10 * time.Minute
)

// Downloader fetches a resolved store link through the mirror and places the
// finished file at destPath.
type Downloader interface {
	DownloadTrack(ctx context.Context, link, destPath string) (int64, error)
	Reset(ctx context.Context) error
}

// MirrorDownloader drives the download mirror's web UI. Every call to
// DownloadTrack performs exactly one mirror request; callers must hold a
// governor permit before calling it.
type MirrorDownloader struct {
	session *Session
	baseURL string
	logger  *log.Logger

	mu   chan struct{} // capacity-1 semaphore: the mirror page is not reentrant
	page *rod.Page
}

// NewMirrorDownloader creates a downloader for the mirror at baseURL.
func NewMirrorDownloader(session *Session, baseURL string, logger *log.Logger) *MirrorDownloader {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &MirrorDownloader{
		session: session,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
		mu:      make(chan struct{}, 1),
	}
}

// DownloadTrack submits the store link to the mirror, waits for the download
// button, clicks it, and moves the finished file to destPath. Returns the
// file size in bytes.
func (d *MirrorDownloader) DownloadTrack(ctx context.Context, link, destPath string) (int64, error) {
	select {
	case d.mu <- struct{}{}:
		defer func() { <-d.mu }()
	case <-ctx.Done():
		return 0, ctx.Err()
	}

	if d.page == nil {
		page, err := d.session.Page()
		if err != nil {
			return 0, err
		}
		d.page = page
	}

	mirrorURL := fmt.Sprintf("%s/?url=%s", d.baseURL, url.QueryEscape(link))
	page := d.page.Context(ctx)

	if err := page.Timeout(mirrorLoadTimeout).Navigate(mirrorURL); err != nil {
		return 0, fmt.Errorf("failed to open mirror: %w", err)
	}
	if err := page.Timeout(mirrorLoadTimeout).WaitLoad(); err != nil {
		return 0, fmt.Errorf("mirror page did not load: %w", err)
	}

	if err := d.passChallenge(ctx, page); err != nil {
		return 0, err
	}

	button, err := d.waitForButton(ctx, page)
	if err != nil {
		return 0, err
	}

	wait := d.session.Browser().WaitDownload(d.session.DownloadDir())

	if err := button.Click("left", 1); err != nil {
		return 0, fmt.Errorf("failed to click download button: %w", err)
	}

	d.logger.Debug("waiting for download", "link", link)
	finished := make(chan *proto.PageDownloadWillBegin, 1)
	go func() { finished <- wait() }()

	var info *proto.PageDownloadWillBegin
	select {
	case info = <-finished:
	case <-time.After(downloadWait):
		return 0, fmt.Errorf("%w: download did not finish within %s", shared.ErrDownloadFailed, downloadWait)
	case <-ctx.Done():
		return 0, ctx.Err()
	}
	if info == nil {
		return 0, fmt.Errorf("%w: download never started", shared.ErrDownloadFailed)
	}

	tempPath := filepath.Join(d.session.DownloadDir(), info.GUID)
	if err := moveFile(tempPath, destPath); err != nil {
		return 0, fmt.Errorf("%w: %v", shared.ErrDownloadFailed, err)
	}

	size, err := fileSize(destPath)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", shared.ErrDownloadFailed, err)
	}
	if size == 0 {
		return 0, fmt.Errorf("%w: mirror produced an empty file", shared.ErrDownloadFailed)
	}

	return size, nil
}

// Reset navigates the mirror page away so the next attempt starts clean.
func (d *MirrorDownloader) Reset(ctx context.Context) error {
	select {
	case d.mu <- struct{}{}:
		defer func() { <-d.mu }()
	case <-ctx.Done():
		return ctx.Err()
	}

	if d.page == nil {
		return nil
	}
	return d.page.Context(ctx).Navigate("about:blank")
}

// passChallenge waits out a Cloudflare interstitial if one is showing.
func (d *MirrorDownloader) passChallenge(ctx context.Context, page *rod.Page) error {
	title, err := pageTitle(page)
	if err != nil {
		return err
	}
	if !isChallengeTitle(title) {
		return nil
	}

	d.logger.Warn("challenge page detected, waiting", "title", title)
	if err := sleepContext(ctx, challengeWait); err != nil {
		return err
	}

	title, err = pageTitle(page)
	if err != nil {
		return err
	}
	if isChallengeTitle(title) {
		return fmt.Errorf("%w: challenge did not clear; run the session setup command headful", shared.ErrDownloadFailed)
	}
	return nil
}

// waitForButton polls for the mirror's download button while the file is
// prepared server-side.
func (d *MirrorDownloader) waitForButton(ctx context.Context, page *rod.Page) (*rod.Element, error) {
	for attempt := range buttonPollAttempts {
		var button *rod.Element
		err := rod.Try(func() {
			button = page.Timeout(buttonPollInterval).MustElementR("button", "/download|get/i")
		})
		if err == nil {
			return button, nil
		}

		if attempt < buttonPollAttempts-1 {
			d.logger.Debug("download button not ready", "attempt", attempt+1)
			if err := sleepContext(ctx, buttonPollInterval); err != nil {
				return nil, err
			}
		}
	}
	return nil, shared.ErrButtonNotFound
}

// pageTitle reads document.title.
func pageTitle(page *rod.Page) (string, error) {
	res, err := page.Eval(`() => document.title`)
	if err != nil {
		return "", fmt.Errorf("failed to read page title: %w", err)
	}
	return res.Value.Str(), nil
}

// isChallengeTitle reports whether a page title looks like a Cloudflare
// interstitial.
func isChallengeTitle(title string) bool {
	t := strings.ToLower(title)
	return strings.Contains(t, "just a moment") ||
		strings.Contains(t, "attention required") ||
		strings.Contains(t, "verify you are human")
}
