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

package catalog

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ananddannygt/iceberg"
	"github.com/ananddannygt/iceberg/catalog/lock"
	"github.com/ananddannygt/iceberg/catalog/state/localstate"
	"github.com/ananddannygt/iceberg/storage"
	"github.com/ananddannygt/iceberg/storage/filestore"
)

// fakeOps is a TableOperations whose CommitSnapshot can be made to reject
// a configured number of attempts with a CommitFailedError before
// succeeding, simulating another writer winning the optimistic race.
type fakeOps struct {
	mu        sync.Mutex
	current   *iceberg.Snapshot
	rejectN   int
	refreshes int
	commits   int
}

func (o *fakeOps) Refresh() (iceberg.TableMetadata, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.refreshes++
	spec := identitySpec()
	return &iceberg.StaticMetadata{
		Specs:         map[int32]iceberg.PartitionSpec{spec.SpecID: spec},
		CurrentSpecID: spec.SpecID,
		Snapshot:      o.current,
	}, nil
}

func (o *fakeOps) CommitSnapshot(base, next *iceberg.Snapshot) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.commits++
	if o.rejectN > 0 {
		o.rejectN--
		return &iceberg.CommitFailedError{Err: errors.New("lost the race")}
	}
	if (base == nil) != (o.current == nil) {
		return &iceberg.CommitFailedError{Err: errors.New("base mismatch")}
	}
	if base != nil && base.SnapshotID != o.current.SnapshotID {
		return &iceberg.CommitFailedError{Err: errors.New("base mismatch")}
	}
	o.current = next
	return nil
}

func identitySpec() iceberg.PartitionSpec {
	return iceberg.PartitionSpec{
		SpecID: 0,
		Fields: []iceberg.PartitionField{
			{SourceColumn: "date", Transform: iceberg.Transform{Kind: iceberg.TransformIdentity}, Name: "date"},
		},
	}
}

type fakeLocker struct {
	mu       sync.Mutex
	locked   bool
	failLock bool
}

func (l *fakeLocker) NewLock(key string) (lock.Locker, error) { return l, nil }

func (l *fakeLocker) TryLock() (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failLock {
		return false, nil
	}
	if l.locked {
		return false, nil
	}
	l.locked = true
	return true, nil
}

func (l *fakeLocker) Unlock() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.locked = false
	return nil
}

func newTestFileIO(t *testing.T) storage.FileIO {
	t.Helper()
	return filestore.New(storage.NewPath(t.TempDir()))
}

func TestTableCommitSucceedsOnFirstAttempt(t *testing.T) {
	ops := &fakeOps{}
	fio := newTestFileIO(t)
	table := NewTable(ops, &fakeLocker{}, localstate.New(0), Options{RetryWaitDuration: time.Millisecond})

	meta, err := ops.Refresh()
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	u := iceberg.NewSnapshotUpdate(fio, "manifests", meta, 1)
	u.AppendFile(iceberg.DataFile{Path: "data/a.parquet", Partition: iceberg.PartitionTuple{"date": "2024-01-01"}})

	snap, err := table.Commit(context.Background(), u, iceberg.Summary{Operation: "append"})
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if snap.SnapshotID != 1 {
		t.Errorf("SnapshotID = %d, want 1", snap.SnapshotID)
	}
	if ops.commits != 1 {
		t.Errorf("expected exactly 1 CommitSnapshot call, got %d", ops.commits)
	}
}

func TestTableCommitRetriesOnConflictThenSucceeds(t *testing.T) {
	ops := &fakeOps{rejectN: 2}
	fio := newTestFileIO(t)
	table := NewTable(ops, &fakeLocker{}, localstate.New(0), Options{RetryWaitDuration: time.Millisecond})

	meta, err := ops.Refresh()
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	u := iceberg.NewSnapshotUpdate(fio, "manifests", meta, 1)
	u.AppendFile(iceberg.DataFile{Path: "data/a.parquet", Partition: iceberg.PartitionTuple{"date": "2024-01-01"}})

	snap, err := table.Commit(context.Background(), u, iceberg.Summary{Operation: "append"})
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if snap == nil {
		t.Fatal("expected a committed snapshot after retrying past the conflicts")
	}
	if ops.commits != 3 {
		t.Errorf("expected 2 rejected attempts plus 1 success = 3 CommitSnapshot calls, got %d", ops.commits)
	}
}

func TestTableCommitGivesUpAfterMaxRetryAttempts(t *testing.T) {
	ops := &fakeOps{rejectN: 1_000_000}
	fio := newTestFileIO(t)
	table := NewTable(ops, &fakeLocker{}, localstate.New(0), Options{
		MaxRetryCommitAttempts: 3,
		RetryWaitDuration:      time.Millisecond,
	})

	meta, err := ops.Refresh()
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	u := iceberg.NewSnapshotUpdate(fio, "manifests", meta, 1)
	u.AppendFile(iceberg.DataFile{Path: "data/a.parquet", Partition: iceberg.PartitionTuple{"date": "2024-01-01"}})

	_, err = table.Commit(context.Background(), u, iceberg.Summary{Operation: "append"})
	if !errors.Is(err, iceberg.ErrExceededCommitRetryAttempts) {
		t.Fatalf("expected ErrExceededCommitRetryAttempts, got %v", err)
	}
}

func TestTableCommitPropagatesNonConflictError(t *testing.T) {
	fio := newTestFileIO(t)
	table := NewTable(&fakeOps{}, &fakeLocker{failLock: true}, localstate.New(0), Options{RetryWaitDuration: time.Millisecond})

	meta := &iceberg.StaticMetadata{
		Specs:         map[int32]iceberg.PartitionSpec{0: identitySpec()},
		CurrentSpecID: 0,
	}
	u := iceberg.NewSnapshotUpdate(fio, "manifests", meta, 1)
	u.AppendFile(iceberg.DataFile{Path: "data/a.parquet", Partition: iceberg.PartitionTuple{"date": "2024-01-01"}})

	_, err := table.Commit(context.Background(), u, iceberg.Summary{Operation: "append"})
	if err == nil {
		t.Fatal("expected Commit to surface a lock-acquisition failure rather than retry forever")
	}
}

func TestTableCommitRecordsStateAfterSuccess(t *testing.T) {
	ops := &fakeOps{}
	fio := newTestFileIO(t)
	store := localstate.New(0)
	table := NewTable(ops, &fakeLocker{}, store, Options{RetryWaitDuration: time.Millisecond})

	meta, err := ops.Refresh()
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	u := iceberg.NewSnapshotUpdate(fio, "manifests", meta, 9)
	u.AppendFile(iceberg.DataFile{Path: "data/a.parquet", Partition: iceberg.PartitionTuple{"date": "2024-01-01"}})

	if _, err := table.Commit(context.Background(), u, iceberg.Summary{Operation: "append"}); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	got, err := store.Get()
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.SnapshotID != 9 {
		t.Errorf("state store SnapshotID = %d, want 9", got.SnapshotID)
	}
}
