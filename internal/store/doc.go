// Package store provides the SQLite-backed journal of registry operations.
//
// The journal is an append-only log with two tables:
//   - invocations: one row per mutating operation, written before it runs
//   - completions: the outcome of each invocation, at most one per invocation
//
// Invocations carry the caller and block height they ran with, so the
// journal alone is enough to rebuild the registry by re-executing it in seq
// order. Completions are kept to verify that re-execution is deterministic.
//
// # Ordering
//
// All ordering uses the seq column (logical clock), never timestamps, and
// every query orders by seq ASC, id ASC COLLATE BINARY so results are
// identical across runs.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Ids are computed in internal/ir/hash.go from RFC 8785 canonical JSON and
// SHA-256 with domain separation.
package store
