package tensor

import "sync/atomic"

// VersionCounter counts in-place modifications of one storage.
//
// Every handle aliasing the storage holds the same *VersionCounter. The value
// only ever increases, so a consumer that remembers the version it saw can
// later tell whether the storage was written to through any alias.
type VersionCounter struct {
	version atomic.Uint64
}

// NewVersionCounter returns a counter at version 0.
func NewVersionCounter() *VersionCounter {
	return &VersionCounter{}
}

// Current returns the current version.
func (vc *VersionCounter) Current() uint64 {
	return vc.version.Load()
}

// Bump increments the version and returns the new value.
func (vc *VersionCounter) Bump() uint64 {
	return vc.version.Add(1)
}
