// Package tools provides process-level helpers shared by hostctl binaries.
//
// Ownership boundary:
// - local command execution
//
// - process signal policy
package tools
