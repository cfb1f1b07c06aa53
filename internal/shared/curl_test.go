package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

const sampleCurl = `curl 'https://lucida.to/?url=test' \
  -H 'accept: text/html' \
  -H 'user-agent: Mozilla/5.0 (X11; Linux x86_64)' \
  -H 'cookie: cf_clearance=abc123; session=xyz' \
  -b 'extra=1'`

func TestParseCurlCommand(t *testing.T) {
	t.Run("full command", func(t *testing.T) {
		session, err := ParseCurlCommand([]byte(sampleCurl))
		if err != nil {
			t.Fatalf("ParseCurlCommand failed: %v", err)
		}

		if session.URL != "https://lucida.to/?url=test" {
			t.Errorf("unexpected URL %q", session.URL)
		}
		if session.Headers["accept"] != "text/html" {
			t.Errorf("unexpected headers: %v", session.Headers)
		}
		if _, ok := session.Headers["cookie"]; ok {
			t.Error("cookie header should be split into Cookies, not kept as a header")
		}

		want := map[string]string{"cf_clearance": "abc123", "session": "xyz", "extra": "1"}
		for name, value := range want {
			if session.Cookies[name] != value {
				t.Errorf("cookie %s = %q, want %q", name, session.Cookies[name], value)
			}
		}
	})

	t.Run("double quotes", func(t *testing.T) {
		cmd := `curl "https://lucida.to/" -H "accept: */*" --cookie "a=b"`
		session, err := ParseCurlCommand([]byte(cmd))
		if err != nil {
			t.Fatalf("ParseCurlCommand failed: %v", err)
		}
		if session.Cookies["a"] != "b" {
			t.Errorf("unexpected cookies: %v", session.Cookies)
		}
	})

	t.Run("not a curl command", func(t *testing.T) {
		if _, err := ParseCurlCommand([]byte("wget https://example.com")); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("curl without headers or cookies", func(t *testing.T) {
		if _, err := ParseCurlCommand([]byte("curl 'https://example.com'")); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})
}

func TestParseCurlFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "session.sh")
	if err := os.WriteFile(path, []byte(sampleCurl), 0644); err != nil {
		t.Fatal(err)
	}

	session, err := ParseCurlFile(path)
	if err != nil {
		t.Fatalf("ParseCurlFile failed: %v", err)
	}
	if session.Cookies["cf_clearance"] != "abc123" {
		t.Errorf("unexpected cookies: %v", session.Cookies)
	}

	if _, err := ParseCurlFile(filepath.Join(dir, "missing.sh")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestCurlSessionHost(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		s := &CurlSession{URL: "https://lucida.to/?url=test"}
		host, err := s.Host()
		if err != nil || host != "lucida.to" {
			t.Errorf("Host() = %q, %v", host, err)
		}
	})

	t.Run("no url", func(t *testing.T) {
		s := &CurlSession{}
		if _, err := s.Host(); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})
}
