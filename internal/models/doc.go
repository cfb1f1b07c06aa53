// package models defines the data model shared across the sync pipeline:
// catalog playlists and tracks, per-track work items, and persisted
// download records.
package models
