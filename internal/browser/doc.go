// package browser drives a real Chrome instance through go-rod to resolve
// tracks to store links and to fetch files from the download mirror.
//
// The mirror sits behind Cloudflare, so pages are created with the stealth
// patches and the browser runs against a persistent user data directory:
// a one-time manual CAPTCHA solve (see the session setup command) survives
// restarts. Every navigation to the mirror must first pass through the
// request governor; this package performs the navigations but never decides
// when they are allowed to happen.
package browser
