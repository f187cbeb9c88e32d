// Package ir provides the canonical value types for the field equipment registry.
//
// This package contains type definitions and their canonical encoding only.
// All other internal packages import ir; ir imports nothing internal. This
// keeps the record shapes the foundational layer with no circular
// dependencies.
//
// Key design constraints:
//   - NO float types anywhere - coordinates are kept as the strings the
//     operator entered, heights and money are integers
//   - Principal is opaque; the registry never parses it
//   - All JSON tags use snake_case
//   - Block heights (int64) are the only notion of time, never wall-clock
package ir
