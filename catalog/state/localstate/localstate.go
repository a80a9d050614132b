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

// Package localstate is an in-memory state.Store for single-process use
// and tests. It has no persistence and no cross-process visibility.
package localstate

import (
	"github.com/ananddannygt/iceberg/catalog/state"
)

// Store holds the current snapshot id in memory.
// There is no concurrency support across multiple processes and nothing
// is persisted across restarts. Intended for local use and testing only.
type Store struct {
	snapshotID int64
}

// New returns a Store seeded with currentSnapshotID.
func New(currentSnapshotID int64) *Store {
	return &Store{snapshotID: currentSnapshotID}
}

var _ state.Store = (*Store)(nil)

func (s *Store) Get() (state.CommitState, error) {
	return state.CommitState{SnapshotID: s.snapshotID}, nil
}

func (s *Store) Put(commitState state.CommitState) error {
	s.snapshotID = commitState.SnapshotID
	return nil
}
