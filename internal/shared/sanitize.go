package shared

import (
	"regexp"
	"strings"
)

var unsafeFilenameChars = regexp.MustCompile(`[<>:"/\\|?*]`)

// SanitizeFilename strips characters that are invalid in filenames on common
// filesystems and trims surrounding whitespace.
func SanitizeFilename(name string) string {
	return strings.TrimSpace(unsafeFilenameChars.ReplaceAllString(name, ""))
}

// TrackFilename builds a sanitized "<artist> - <title>.<ext>" filename for a track.
func TrackFilename(artist, title, ext string) string {
	return SanitizeFilename(artist+" - "+title) + "." + strings.TrimPrefix(ext, ".")
}
