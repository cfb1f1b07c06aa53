// package governor implements admission control for the rate-limited mirror site.
//
// A single [Governor] instance is shared by every worker in a sync session.
// Workers call [Governor.Acquire] immediately before each outbound request,
// then report the outcome with [Governor.ReportSuccess] or
// [Governor.ReportError]. The governor combines three policies:
//
//  1. A minimum delay between any two admitted requests.
//  2. Sliding per-minute and per-hour windows that block (never reject)
//     until the oldest request ages out of the window.
//  3. Exponential backoff derived from consecutive reported errors,
//     stacked on top of the windowed waits.
//
// The governor performs no I/O of its own and never fails: its only error
// path is context cancellation during a wait.
package governor
