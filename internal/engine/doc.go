// Package engine is the single-writer front door of the registry.
//
// ARCHITECTURE:
//
// Journal first:
// Execute decodes and normalizes the action's arguments, resolves the caller
// and height, stamps the invocation with the next logical seq and writes it
// to the journal before the registry sees it. The registry outcome
// (Success, NotFound or Unauthorized) is then written as the completion.
//
// Replay:
// The journal of invocations is the source of truth. Open re-executes it in
// seq order with each invocation's recorded caller and height, which
// rebuilds the registry exactly. Recorded completions are compared with the
// recomputed ones; any difference is reported as a Mismatch. Invocations
// that never got a completion are completed during Open.
//
// CRITICAL PATTERNS:
//
// Logical Clock:
// All records are stamped with a monotonic seq. Open resumes it after the
// highest seq in the journal, and a seq burned by a failed write is skipped.
// NEVER use wall-clock timestamps for ordering.
//
// Content-addressed ids:
// Invocation and completion ids are SHA-256 over RFC 8785 canonical JSON,
// so a tampered journal row no longer matches its id.
package engine
