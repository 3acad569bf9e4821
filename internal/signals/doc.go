// Package signals provides scoped signal interception for fragile.
//
// A Trap replaces the default disposition of a fixed set of signals with a
// recorded event history. Two ways of consuming it are supported:
//
//   - Blocking iteration through a Cursor (Next, or Ready + Poll inside a
//     select loop). The command runner supervises children this way.
//   - A non-blocking, time-filtered check with Since. The driver uses it to
//     notice an interrupt that arrived while provisioning.
//
// Every consumer owns its own cursor, so the same trap can be observed by
// the driver and by the command runner without stealing events.
//
// # Disjointness
//
// At most one active trap may intercept a given signal number. New returns
// ErrOverlap otherwise. In practice the driver owns SIGINT and SIGTERM and
// the process-wide Child trap owns SIGCHLD.
package signals
