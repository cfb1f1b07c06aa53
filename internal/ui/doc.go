// package ui implements the interactive terminal frontend.
//
// The main component is the first-run setup wizard: a bubbletea form that
// collects Spotify credentials and the download directory, which the caller
// persists into the config file. Styling lives in the package-level palette.
package ui
