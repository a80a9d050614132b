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

// Package coordinator tracks staged metadata writes between the moment a
// new snapshot's files are durably written to storage and the moment a
// catalog commit makes that snapshot current, so a crashed or superseded
// writer's staged files can be identified and reclaimed.
package coordinator

import (
	"time"

	"github.com/ananddannygt/iceberg/storage"
)

// CommitEntry records one writer's attempt to advance a table to a new
// snapshot: where the new metadata file was staged, whether the catalog
// commit that would promote it succeeded, and, once completed, when the
// entry expires.
type CommitEntry struct {
	tablePath      storage.Path
	metadataPath   storage.Path
	snapshotID     int64
	isComplete     bool
	expirationTime uint64
}

// New creates a CommitEntry for a staged metadata file at metadataPath,
// proposing snapshotID as the table's next snapshot.
func New(tablePath, metadataPath storage.Path, snapshotID int64) *CommitEntry {
	return &CommitEntry{
		tablePath:    tablePath,
		metadataPath: metadataPath,
		snapshotID:   snapshotID,
	}
}

// TablePath gets the table this entry belongs to.
func (ce *CommitEntry) TablePath() storage.Path { return ce.tablePath }

// MetadataPath gets the staged metadata file's path.
func (ce *CommitEntry) MetadataPath() storage.Path { return ce.metadataPath }

// SnapshotID gets the snapshot id this entry would promote.
func (ce *CommitEntry) SnapshotID() int64 { return ce.snapshotID }

// IsComplete reports whether the catalog commit promoting this entry
// succeeded.
func (ce *CommitEntry) IsComplete() bool { return ce.isComplete }

// ExpirationTime gets the epoch-seconds time at which a completed entry
// expires. It is zero until Complete sets it.
func (ce *CommitEntry) ExpirationTime() uint64 { return ce.expirationTime }

// Complete returns a copy of ce marked complete, expiring
// expirationDelaySeconds from now.
func (ce *CommitEntry) Complete(expirationDelaySeconds uint64) *CommitEntry {
	next := *ce
	next.isComplete = true
	next.expirationTime = uint64(time.Now().Unix()) + expirationDelaySeconds
	return &next
}
