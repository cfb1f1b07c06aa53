// package services defines interface Service for reading playlists from
// music catalog APIs.
//
// The only production implementation is Spotify, authenticated with the
// client-credentials flow. The catalog is a read-only collaborator: the
// sync pipeline fetches a playlist here and resolves the actual audio
// elsewhere. Catalog calls are paced with a token bucket; the request
// governor only covers the rate-limited mirror, not the catalog.
package services
