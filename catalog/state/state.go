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

// Package state contains the resources required to create a state store.
package state

import (
	"errors"
)

var (
	// ErrorStateIsEmpty is returned when a state is empty.
	ErrorStateIsEmpty error = errors.New("the state is empty")
	// ErrorCanNotReadState is returned when a state cannot be read.
	ErrorCanNotReadState error = errors.New("the state is could not be read")
	// ErrorCanNotWriteState is returned when a state cannot be written.
	ErrorCanNotWriteState error = errors.New("the state is could not be written")
)

// CommitState records the snapshot id a table pointed to as of the last
// successful commit. It lets a committer recover the current snapshot
// without re-reading the catalog's metadata pointer.
type CommitState struct {
	// SnapshotID is the id of the currently committed snapshot.
	SnapshotID int64 `json:"snapshotId"`
}

// Store provides fast, out-of-band lookup of the current snapshot id,
// independent of whatever holds the actual metadata pointer (catalog
// table, hive metastore entry, or plain file). catalog.Table writes the
// committed snapshot id here after each successful commit; its commit
// loop does not read it back.
type Store interface {
	// Get returns the last snapshot id this process (or a peer sharing
	// the same store) observed as committed.
	Get() (CommitState, error)

	// Put records snapshotID as the current commit.
	Put(CommitState) error
}
