// package tasks implements the playlist download pipeline.
//
// The core abstraction is SyncEngine, which fetches a playlist from the
// catalog, filters out tracks already in the download history, and drives a
// bounded worker pool through resolve and download phases. Every mirror
// request a worker makes is admitted by the request governor first.
// Operations emit progress updates via channels for non-blocking status
// reporting to the CLI layer.
package tasks
