// Package reconcile converges a host's identity onto a declared target.
//
// Ownership boundary:
// - hostname (transient and persisted)
// - primary IPv4 address (netplan document and hosts file)
// - static hosts mapping entries
//
// Each field converges independently. A run that finds a field already at
// its target writes nothing for it, so a second run with the same target is a
// no-op. There is no cross-field rollback.
package reconcile
