// Package browser drives remote Browserbase sessions on behalf of the model.
//
// # Sessions and handles
//
// A session is created remotely by the createSession tools and is identified
// only by its ID. The first tool call that names a session provisions a
// Handle for it (a Playwright connection over CDP) and registers it in the
// Pool. Every later call with the same ID reuses that handle. A handle leaves
// the pool when closeStagehand closes it or when a call finds the remote
// session gone, in which case the next call provisions a fresh one.
//
// # Failure handling
//
// Handles classify every error into a Fault:
//
//   - FaultTransientPage: the page's execution context was torn down. The
//     act and extract tools wait for the page to load and retry exactly once.
//   - FaultSessionGone: the remote session is closed or inactive. The handle
//     is evicted from the pool.
//   - FaultOther: reported to the model unchanged.
//
// Readiness waits after a navigation are soft: a page that never reaches
// networkidle does not fail the tool. The wait for search results is the only
// hard wait.
//
// # Tools
//
// NewToolset returns the tools in the order they are offered to the model,
// and Dispatcher executes them by name behind a concurrency bulkhead. Every
// call produces a *tools.Result; no tool error escapes as a Go error.
package browser
