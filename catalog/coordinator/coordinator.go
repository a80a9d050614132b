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

package coordinator

import (
	"strconv"

	"github.com/ananddannygt/iceberg/storage"
)

// Coordinator tracks in-flight commit attempts for a table, independent
// of the lock.Locker/state.Store pair used to serialize the actual
// catalog pointer update. A catalog implementation that already commits
// through a single linearizable metastore (most catalogs) has no need
// of one; Coordinator exists for catalogs fronted by storage that only
// guarantees atomic put-if-absent on individual files.
type Coordinator interface {
	// PutIfAbsent registers entry as the in-flight attempt for its
	// snapshot id, returning false if another attempt is already
	// registered for the same table and snapshot id.
	PutIfAbsent(entry *CommitEntry) (bool, error)

	// Get returns the registered entry for tablePath/snapshotID, if any.
	Get(tablePath storage.Path, snapshotID int64) (*CommitEntry, bool, error)

	// MarkComplete replaces the registered entry with its completed
	// form so later readers see it as resolved.
	MarkComplete(entry *CommitEntry, expirationDelaySeconds uint64) error
}

// InMemoryCoordinator is a Coordinator backed by a process-local map, for
// single-writer deployments and tests.
type InMemoryCoordinator struct {
	entries map[string]*CommitEntry
}

// NewInMemory returns an empty InMemoryCoordinator.
func NewInMemory() *InMemoryCoordinator {
	return &InMemoryCoordinator{entries: make(map[string]*CommitEntry)}
}

func (c *InMemoryCoordinator) PutIfAbsent(entry *CommitEntry) (bool, error) {
	key := coordinatorKey(entry.TablePath().Raw, entry.SnapshotID())
	if _, ok := c.entries[key]; ok {
		return false, nil
	}
	c.entries[key] = entry
	return true, nil
}

func (c *InMemoryCoordinator) Get(tablePath storage.Path, snapshotID int64) (*CommitEntry, bool, error) {
	entry, ok := c.entries[coordinatorKey(tablePath.Raw, snapshotID)]
	return entry, ok, nil
}

func (c *InMemoryCoordinator) MarkComplete(entry *CommitEntry, expirationDelaySeconds uint64) error {
	key := coordinatorKey(entry.TablePath().Raw, entry.SnapshotID())
	c.entries[key] = entry.Complete(expirationDelaySeconds)
	return nil
}

func coordinatorKey(tablePath string, snapshotID int64) string {
	return tablePath + "#" + strconv.FormatInt(snapshotID, 10)
}
