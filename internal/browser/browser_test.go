package browser

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestPickTrackLink(t *testing.T) {
	tc := []struct {
		name  string
		hrefs []string
		want  string
	}{
		{
			name: "prefers trackAsin link",
			hrefs: []string{
				"https://music.amazon.com/artists/B001",
				"https://music.amazon.com/tracks/B002",
				"https://music.amazon.com/albums/B003?trackAsin=B004",
			},
			want: "https://music.amazon.com/albums/B003?trackAsin=B004",
		},
		{
			name: "falls back to tracks link",
			hrefs: []string{
				"https://music.amazon.com/artists/B001",
				"https://music.amazon.com/tracks/B002",
				"https://music.amazon.com/tracks/B005",
			},
			want: "https://music.amazon.com/tracks/B002",
		},
		{
			name: "no candidates",
			hrefs: []string{
				"https://music.amazon.com/artists/B001",
				"https://music.amazon.com/albums/B003",
			},
			want: "",
		},
		{name: "empty", hrefs: nil, want: ""},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := pickTrackLink(tt.hrefs); got != tt.want {
				t.Errorf("pickTrackLink() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsChallengeTitle(t *testing.T) {
	tc := []struct {
		title string
		want  bool
	}{
		{"Just a moment...", true},
		{"Attention Required! | Cloudflare", true},
		{"Verify you are human", true},
		{"Lucida", false},
		{"", false},
	}

	for _, tt := range tc {
		if got := isChallengeTitle(tt.title); got != tt.want {
			t.Errorf("isChallengeTitle(%q) = %v, want %v", tt.title, got, tt.want)
		}
	}
}

func TestSleepContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := sleepContext(ctx, time.Hour); err != context.Canceled {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestMoveFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "guid-1234")
	dest := filepath.Join(dir, "out", "Artist - Song.flac")

	if err := os.WriteFile(src, []byte("flac bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := moveFile(src, dest); err != nil {
		t.Fatalf("moveFile failed: %v", err)
	}

	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Error("source file should be gone after move")
	}

	size, err := fileSize(dest)
	if err != nil || size != int64(len("flac bytes")) {
		t.Errorf("fileSize = %d, %v", size, err)
	}
}

func TestSessionPageRequiresStart(t *testing.T) {
	s := NewSession(SessionOpts{})
	if _, err := s.Page(); err == nil {
		t.Error("Page before Start should fail")
	}
}
