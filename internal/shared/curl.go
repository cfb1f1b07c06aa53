// Utilities for parsing cURL commands.
//
// The mirror site sits behind Cloudflare; a session solved once in a real
// browser can be exported via DevTools "Copy as cURL" and imported into the
// automation browser through these helpers.
package shared

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"
)

// CurlSession represents parsed headers and cookies from a cURL command.
type CurlSession struct {
	URL     string
	Headers map[string]string
	Cookies map[string]string
}

// Host returns the hostname the cURL command targeted.
func (c *CurlSession) Host() (string, error) {
	if c.URL == "" {
		return "", fmt.Errorf("%w: cURL command has no URL", ErrInvalidInput)
	}
	u, err := url.Parse(c.URL)
	if err != nil || u.Hostname() == "" {
		return "", fmt.Errorf("%w: cannot parse cURL URL %q", ErrInvalidInput, c.URL)
	}
	return u.Hostname(), nil
}

var (
	curlURLRegex    = regexp.MustCompile(`curl\s+'([^']+)'|curl\s+"([^"]+)"`)
	curlHeaderRegex = regexp.MustCompile(`-H\s+'([^']+)'|-H\s+"([^"]+)"`)
	curlCookieRegex = regexp.MustCompile(`-b\s+'([^']+)'|-b\s+"([^"]+)"|--cookie\s+'([^']+)'|--cookie\s+"([^"]+)"`)
)

// ParseCurlFile reads a .sh file containing a cURL command and extracts the session.
func ParseCurlFile(path string) (*CurlSession, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read curl file: %w", err)
	}

	return ParseCurlCommand(content)
}

// ParseCurlCommand parses a cURL command string and extracts URL, headers and cookies.
func ParseCurlCommand(data []byte) (*CurlSession, error) {
	curlCmd := string(data)
	curlCmd = strings.ReplaceAll(curlCmd, "\\\n", " ")
	curlCmd = strings.ReplaceAll(curlCmd, "\\", "")

	if !strings.Contains(curlCmd, "curl") {
		return nil, fmt.Errorf("%w: not a cURL command", ErrInvalidInput)
	}

	session := &CurlSession{
		Headers: make(map[string]string),
		Cookies: make(map[string]string),
	}

	if m := curlURLRegex.FindStringSubmatch(curlCmd); m != nil {
		session.URL = firstGroup(m)
	}

	for _, m := range curlHeaderRegex.FindAllStringSubmatch(curlCmd, -1) {
		headerLine := firstGroup(m)
		name, value, ok := strings.Cut(headerLine, ":")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		value = strings.TrimSpace(value)

		if strings.EqualFold(name, "cookie") {
			parseCookieString(value, session.Cookies)
		} else {
			session.Headers[name] = value
		}
	}

	for _, m := range curlCookieRegex.FindAllStringSubmatch(curlCmd, -1) {
		parseCookieString(firstGroup(m), session.Cookies)
	}

	if len(session.Headers) == 0 && len(session.Cookies) == 0 {
		return nil, fmt.Errorf("%w: no headers or cookies found in cURL command", ErrInvalidInput)
	}

	return session, nil
}

// parseCookieString splits a "name=value; name2=value2" cookie header into the map.
func parseCookieString(raw string, into map[string]string) {
	for _, pair := range strings.Split(raw, ";") {
		name, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || name == "" {
			continue
		}
		into[name] = value
	}
}

// firstGroup returns the first non-empty capture group of a regexp match.
func firstGroup(match []string) string {
	for _, g := range match[1:] {
		if g != "" {
			return g
		}
	}
	return ""
}
