// Package record defines the student record held by the roster store.
//
// This package contains type definitions and their text encoding only. All
// other internal packages import record; record imports nothing internal.
//
// Key constraints:
//   - IDs are trimmed and NFC-normalised before comparison or storage
//   - Scores are optional: an absent score encodes as the empty string
//   - The persisted header (Columns) is fixed when a store is created
package record
