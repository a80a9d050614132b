// Copyright 2023 Rivian Automotive, Inc.
// Licensed under the Apache License, Version 2.0 (the “License”);
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an “AS IS” BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package lock provides the mutual-exclusion primitive a catalog uses to
// serialize the compare-and-swap that advances a table's current snapshot
// pointer, so two concurrent commits against the same table never race.
package lock

import (
	"errors"
)

var (
	// ErrLockNotObtained is returned when the snapshot-pointer lock for a
	// table key is already held by another committer.
	ErrLockNotObtained error = errors.New("the lock could not be obtained")
	// ErrUnableToUnlock is returned when the held lock could not be
	// released, leaving the table key locked until it expires or is
	// broken out of band.
	ErrUnableToUnlock error = errors.New("the lock could not be released")
)

// Locker is the interface a catalog backend implements to guard one
// table's snapshot-pointer commit. A lock is scoped to a key (typically
// the table identifier) and must be held for the duration of a single
// read-current-snapshot/compute-new-snapshot/compare-and-swap cycle.
type Locker interface {
	// NewLock derives a lock bound to key from an existing lock instance,
	// without acquiring it.
	NewLock(key string) (Locker, error)

	// Unlock releases a held lock. Returns ErrUnableToUnlock on failure;
	// the table key remains locked until the backend's lease expires.
	Unlock() error

	// TryLock attempts to acquire the lock for this key. Whether it waits
	// or retries while another committer holds it depends on the
	// implementation. Returns true on success; returns false and
	// ErrLockNotObtained if the lock could not be obtained.
	TryLock() (bool, error)
}
