package browser

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/flacsync/internal/models"
	"github.com/desertthunder/flacsync/internal/shared"
	"github.com/go-rod/rod"
)

const (
	amazonSearchURL = "https://music.amazon.com/search/%s"

	searchLoadTimeout = 20 * time.Second
	searchSettleDelay = 3 * time.Second
)

// Resolver turns a track into a store link the mirror can ingest.
type Resolver interface {
	ResolveTrack(ctx context.Context, track models.Track) (string, error)
}

// AmazonResolver resolves tracks by searching the Amazon Music web player
// and scraping result anchors. Callers hold a governor permit before each
// call; the resolver itself only drives the page.
type AmazonResolver struct {
	session *Session
	logger  *log.Logger

	mu   chan struct{} // capacity-1 semaphore: one search page at a time
	page *rod.Page
}

// NewAmazonResolver creates a resolver backed by the given session.
func NewAmazonResolver(session *Session, logger *log.Logger) *AmazonResolver {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &AmazonResolver{
		session: session,
		logger:  logger,
		mu:      make(chan struct{}, 1),
	}
}

// ResolveTrack searches for the track and returns the best store link.
// Returns ErrLinkNotFound when no result anchor points at a track.
func (r *AmazonResolver) ResolveTrack(ctx context.Context, track models.Track) (string, error) {
	select {
	case r.mu <- struct{}{}:
		defer func() { <-r.mu }()
	case <-ctx.Done():
		return "", ctx.Err()
	}

	if r.page == nil {
		page, err := r.session.Page()
		if err != nil {
			return "", err
		}
		r.page = page
	}

	query := track.Query()
	searchURL := fmt.Sprintf(amazonSearchURL, url.PathEscape(query))
	r.logger.Debug("searching store", "query", query)

	page := r.page.Context(ctx).Timeout(searchLoadTimeout)
	if err := page.Navigate(searchURL); err != nil {
		return "", fmt.Errorf("failed to open search page: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return "", fmt.Errorf("search page did not load: %w", err)
	}

	// Results render client-side after load.
	if err := sleepContext(ctx, searchSettleDelay); err != nil {
		return "", err
	}

	hrefs, err := collectHrefs(page)
	if err != nil {
		return "", err
	}

	link := pickTrackLink(hrefs)
	if link == "" {
		return "", fmt.Errorf("%w: no track result for %q", shared.ErrLinkNotFound, query)
	}

	r.logger.Debug("resolved track", "query", query, "link", link)
	return link, nil
}

// collectHrefs returns the href of every anchor on the page.
func collectHrefs(page *rod.Page) ([]string, error) {
	res, err := page.Eval(`() => Array.from(document.querySelectorAll("a[href]")).map(a => a.href)`)
	if err != nil {
		return nil, fmt.Errorf("failed to collect result links: %w", err)
	}

	arr := res.Value.Arr()
	hrefs := make([]string, 0, len(arr))
	for _, v := range arr {
		hrefs = append(hrefs, v.Str())
	}
	return hrefs, nil
}

// pickTrackLink selects the best candidate from search result hrefs.
//
// Album links carrying a trackAsin query parameter identify an exact track
// within its album and are preferred; bare /tracks/ links are the fallback.
func pickTrackLink(hrefs []string) string {
	var fallback string
	for _, href := range hrefs {
		if strings.Contains(href, "trackAsin=") {
			return href
		}
		if fallback == "" && strings.Contains(href, "/tracks/") {
			fallback = href
		}
	}
	return fallback
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
