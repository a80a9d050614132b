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

// Package iceberg implements the snapshot-merge core of a table-format
// library: manifest filtering, bin-pack compaction planning and the
// retry-safe update object that ties them together.
package iceberg

import (
	"errors"
	"fmt"
)

var (
	// ErrExceededCommitRetryAttempts is returned when the catalog's commit
	// retry driver exhausts its configured attempt budget.
	ErrExceededCommitRetryAttempts = errors.New("iceberg: exceeded commit retry attempts")
	// ErrNoCurrentSnapshot is returned when an operation requires a
	// current snapshot but the table metadata has none.
	ErrNoCurrentSnapshot = errors.New("iceberg: table has no current snapshot")
	// ErrUnknownPartitionSpec is returned when a manifest or file
	// references a partition spec id the table metadata doesn't have.
	ErrUnknownPartitionSpec = errors.New("iceberg: unknown partition spec id")
	// ErrManifestClosed is returned when a ManifestWriter is used after Close.
	ErrManifestClosed = errors.New("iceberg: manifest writer already closed")
)

// CannotDeletePartialError is returned when a file's partition satisfies
// the inclusive delete predicate but not the strict one, and its column
// metrics cannot prove every row matches.
type CannotDeletePartialError struct {
	Path      string
	Predicate fmt.Stringer
}

func (e *CannotDeletePartialError) Error() string {
	return fmt.Sprintf("iceberg: cannot delete file %q: partition only partially matches %s", e.Path, e.Predicate)
}

// DeleteForbiddenError is returned when failAnyDelete is set and at least
// one file would be deleted.
type DeleteForbiddenError struct {
	PartitionPath string
}

func (e *DeleteForbiddenError) Error() string {
	return fmt.Sprintf("iceberg: delete forbidden for partition %q", e.PartitionPath)
}

// MissingDeletePathsError is returned when failMissingDeletePaths is set
// and one or more explicit delete paths matched no file in the base
// snapshot.
type MissingDeletePathsError struct {
	Paths []string
}

func (e *MissingDeletePathsError) Error() string {
	return fmt.Sprintf("iceberg: %d delete path(s) matched no file: %v", len(e.Paths), e.Paths)
}

// CommitFailedError wraps a catalog commit rejection (optimistic CAS lost
// the race); the caller is expected to refresh the base and re-Apply.
type CommitFailedError struct {
	Err error
}

func (e *CommitFailedError) Error() string { return fmt.Sprintf("iceberg: commit failed: %v", e.Err) }
func (e *CommitFailedError) Unwrap() error { return e.Err }
