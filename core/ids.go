// Package core holds the process-local identifier types shared across the
// search core's packages.
package core

// DocID is a dense, process-local identifier for an entry.
// It is strictly 32-bit and never reused within a process lifetime.
type DocID uint32

// MaxDocID is the maximum possible value for a DocID.
const MaxDocID = ^DocID(0)
