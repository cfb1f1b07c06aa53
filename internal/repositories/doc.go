// Package repositories implements SQLite persistence for the download
// history.
//
// [DownloadRepository] handles CRUD with atomic sequence generation and soft
// deletes via deleted_at timestamps; deleted records are excluded from
// queries by default. The history is what lets a re-run of a playlist skip
// tracks that already made it to disk, so Exists is keyed on the same search
// query string the resolver uses.
package repositories
