package browser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/flacsync/internal/shared"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// Session owns the Chrome process for one run. Pages are created through it
// so that every page carries the stealth patches and shares the persistent
// profile.
type Session struct {
	mu          sync.Mutex
	browser     *rod.Browser
	lnch        *launcher.Launcher
	headless    bool
	userDataDir string
	downloadDir string
	logger      *log.Logger
}

// SessionOpts configures a browser session.
type SessionOpts struct {
	// Headless runs Chrome without a window. Cloudflare challenges are much
	// harder to pass headless, so interactive setup runs headful.
	Headless bool

	// UserDataDir is the persistent Chrome profile. Cookies set during a
	// manual CAPTCHA solve live here.
	UserDataDir string

	// DownloadDir is where Chrome writes finished downloads.
	DownloadDir string

	Logger *log.Logger
}

// NewSession creates an unstarted session. Call Start to launch Chrome.
func NewSession(opts SessionOpts) *Session {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	return &Session{
		headless:    opts.Headless,
		userDataDir: opts.UserDataDir,
		downloadDir: opts.DownloadDir,
		logger:      opts.Logger,
	}
}

// Start launches Chrome with the persistent profile and connects to it.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.browser != nil {
		return nil
	}

	if s.userDataDir != "" {
		if err := os.MkdirAll(s.userDataDir, 0o755); err != nil {
			return fmt.Errorf("failed to create profile dir: %w", err)
		}
	}
	if s.downloadDir != "" {
		if err := os.MkdirAll(s.downloadDir, 0o755); err != nil {
			return fmt.Errorf("failed to create download dir: %w", err)
		}
	}

	l := launcher.New().
		Headless(s.headless).
		Set("disable-blink-features", "AutomationControlled")
	if s.userDataDir != "" {
		l = l.UserDataDir(s.userDataDir)
	}

	wsURL, err := l.Launch()
	if err != nil {
		return fmt.Errorf("failed to launch chrome: %w", err)
	}

	b := rod.New().ControlURL(wsURL).Context(ctx)
	if err := b.Connect(); err != nil {
		l.Cleanup()
		return fmt.Errorf("failed to connect to chrome: %w", err)
	}

	s.browser = b
	s.lnch = l
	s.logger.Debug("browser session started", "headless", s.headless, "profile", s.userDataDir)
	return nil
}

// Page opens a new stealth-patched page.
func (s *Session) Page() (*rod.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.browser == nil {
		return nil, shared.ErrBrowserNotStarted
	}

	page, err := stealth.Page(s.browser)
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	return page, nil
}

// Browser returns the underlying rod handle.
func (s *Session) Browser() *rod.Browser {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.browser
}

// DownloadDir returns the directory Chrome writes downloads to.
func (s *Session) DownloadDir() string {
	return s.downloadDir
}

// ImportCookies injects cookies captured from a "Copy as cURL" snippet into
// the browser profile, scoped to the snippet's host. Used to carry a solved
// Cloudflare clearance from a regular browser into the automated one.
func (s *Session) ImportCookies(curl *shared.CurlSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.browser == nil {
		return shared.ErrBrowserNotStarted
	}

	host, err := curl.Host()
	if err != nil {
		return err
	}

	cookies := make([]*proto.NetworkCookieParam, 0, len(curl.Cookies))
	for name, value := range curl.Cookies {
		cookies = append(cookies, &proto.NetworkCookieParam{
			Name:   name,
			Value:  value,
			Domain: host,
			Path:   "/",
			Secure: true,
		})
	}

	if err := s.browser.SetCookies(cookies); err != nil {
		return fmt.Errorf("failed to set cookies: %w", err)
	}

	s.logger.Info("imported session cookies", "host", host, "count", len(cookies))
	return nil
}

// Close shuts down Chrome and cleans up the launcher.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			s.logger.Warn("browser close", "error", err)
		}
		s.browser = nil
	}
	if s.lnch != nil {
		s.lnch.Cleanup()
		s.lnch = nil
	}
	return nil
}

// fileSize returns the size of the file at path.
func fileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// moveFile renames src to dest, falling back to copy+remove across devices.
func moveFile(src, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	if err := os.Rename(src, dest); err == nil {
		return nil
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return err
	}
	return os.Remove(src)
}
