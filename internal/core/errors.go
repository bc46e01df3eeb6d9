package core

import "errors"

// Sentinel errors for the orchestration core. Callers match them with
// errors.Is; the wrapping error carries the task title or path.
var (
	// ErrMissingGoal marks a manifest block that has no Goal line. The parser
	// drops such blocks and keeps going.
	ErrMissingGoal = errors.New("task block has no goal")

	// ErrManifestNotFound is fatal at run start.
	ErrManifestNotFound = errors.New("manifest not found")

	// ErrOutputDirectoryUnavailable is fatal at run start; no task runs.
	ErrOutputDirectoryUnavailable = errors.New("cannot create run output directory")

	// ErrNoSuitableHandler is recorded as a failed result for the task.
	ErrNoSuitableHandler = errors.New("no suitable handler")

	// ErrHandlerInvocationFailed wraps any error or panic raised by a handler.
	ErrHandlerInvocationFailed = errors.New("handler invocation failed")

	// ErrManifestUpdateFailed is logged; it never fails the task.
	ErrManifestUpdateFailed = errors.New("manifest update failed")
)
