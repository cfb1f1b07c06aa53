package shared

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.Downloader.BaseURL == "" {
		t.Error("default config should carry a mirror base URL")
	}
	if config.Downloader.Workers != 3 {
		t.Errorf("default workers = %d, want 3", config.Downloader.Workers)
	}
	if config.Limits.RequestsPerMinute != 30 || config.Limits.RequestsPerHour != 500 {
		t.Errorf("unexpected default limits: %+v", config.Limits)
	}
	if config.Database.Path == "" {
		t.Error("default config should carry a database path")
	}
}

func TestLimitsDurations(t *testing.T) {
	limits := LimitsConfig{
		MinDelaySeconds:    2.0,
		MaxBackoffSeconds:  300.0,
		WindowSlackSeconds: 1.5,
	}

	if got := limits.MinDelay(); got != 2*time.Second {
		t.Errorf("MinDelay() = %v, want 2s", got)
	}
	if got := limits.MaxBackoff(); got != 5*time.Minute {
		t.Errorf("MaxBackoff() = %v, want 5m", got)
	}
	if got := limits.WindowSlack(); got != 1500*time.Millisecond {
		t.Errorf("WindowSlack() = %v, want 1.5s", got)
	}
}

func TestLoadConfig(t *testing.T) {
	t.Run("valid file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "config.toml")

		content := `
[credentials.spotify]
client_id = "id"
client_secret = "secret"

[limits]
requests_per_minute = 10
min_delay_seconds = 0.5
`
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}

		config, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if config.Credentials.Spotify.ClientID != "id" {
			t.Errorf("unexpected client id %q", config.Credentials.Spotify.ClientID)
		}
		if config.Limits.RequestsPerMinute != 10 {
			t.Errorf("unexpected rpm %d", config.Limits.RequestsPerMinute)
		}
		if config.Limits.MinDelay() != 500*time.Millisecond {
			t.Errorf("unexpected min delay %v", config.Limits.MinDelay())
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := LoadConfig("/nonexistent/config.toml"); err == nil {
			t.Error("expected error for missing file")
		}
	})

	t.Run("invalid toml", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "bad.toml")
		os.WriteFile(path, []byte("not [valid"), 0644)

		if _, err := LoadConfig(path); err == nil {
			t.Error("expected error for invalid TOML")
		}
	})
}

func TestCreateConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	if err := CreateConfigFile(path); err != nil {
		t.Fatalf("CreateConfigFile failed: %v", err)
	}

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("created config does not load: %v", err)
	}
	if config.Downloader.Workers != 3 {
		t.Errorf("created config differs from defaults: %+v", config.Downloader)
	}

	t.Run("refuses to overwrite", func(t *testing.T) {
		if err := CreateConfigFile(path); err == nil {
			t.Error("expected error when file exists")
		}
	})
}

func TestSaveConfigRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	config := DefaultConfig()
	config.Credentials.Spotify.ClientID = "wizard-id"
	config.Credentials.Spotify.ClientSecret = "wizard-secret"
	config.Downloader.OutputDir = "/music"

	if err := SaveConfig(path, config); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if loaded.Credentials.Spotify.ClientID != "wizard-id" || loaded.Downloader.OutputDir != "/music" {
		t.Errorf("round-trip mismatch: %+v", loaded)
	}
}
