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

// Package catalog drives the commit-retry loop that turns a
// iceberg.SnapshotUpdate into a durably committed snapshot: it acquires a
// lock, reads the table's current state, asks the update to Apply against
// that state, and races an optimistic pointer update against any other
// writer, retrying with a fresh base on conflict.
package catalog

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/ananddannygt/iceberg"
	"github.com/ananddannygt/iceberg/catalog/lock"
	"github.com/ananddannygt/iceberg/catalog/state"
)

// TableOperations is the catalog-specific half of a commit: refreshing
// table metadata and atomically advancing the current snapshot pointer.
// A concrete catalog (Hive metastore, REST catalog, a bare directory of
// metadata JSON files) implements this once; the retry loop in Table is
// catalog-agnostic.
type TableOperations interface {
	// Refresh reloads and returns the table's current metadata.
	Refresh() (iceberg.TableMetadata, error)

	// CommitSnapshot atomically replaces base's current snapshot with
	// next, failing with a *iceberg.CommitFailedError if the table's
	// current snapshot is no longer base by the time of the attempt.
	CommitSnapshot(base *iceberg.Snapshot, next *iceberg.Snapshot) error
}

// Options tunes the commit-retry loop.
type Options struct {
	MaxRetryCommitAttempts         uint32
	RetryWaitDuration              time.Duration
	RetryCommitAttemptsBeforeResync uint32
}

const (
	DefaultMaxRetryCommitAttempts          uint32        = 10_000_000
	DefaultRetryWaitDuration               time.Duration = 15 * time.Millisecond
	DefaultRetryCommitAttemptsBeforeResync uint32        = 100
)

func (o *Options) setDefaults() {
	if o.MaxRetryCommitAttempts == 0 {
		o.MaxRetryCommitAttempts = DefaultMaxRetryCommitAttempts
	}
	if o.RetryWaitDuration == 0 {
		o.RetryWaitDuration = DefaultRetryWaitDuration
	}
	if o.RetryCommitAttemptsBeforeResync == 0 {
		o.RetryCommitAttemptsBeforeResync = DefaultRetryCommitAttemptsBeforeResync
	}
}

// Table drives commits for one table: it pairs the catalog's own
// metadata pointer (TableOperations) with a lock.Locker for mutual
// exclusion. Every successful commit is also recorded in a state.Store,
// giving readers a fast, out-of-band way to learn the current snapshot
// id without going through the catalog.
type Table struct {
	Ops        TableOperations
	Lock       lock.Locker
	StateStore state.Store
	Options    Options
}

// NewTable returns a Table ready to drive commits.
func NewTable(ops TableOperations, locker lock.Locker, stateStore state.Store, opts Options) *Table {
	opts.setDefaults()
	return &Table{Ops: ops, Lock: locker, StateStore: stateStore, Options: opts}
}

// Commit drives update to completion: it repeatedly locks, reads the
// current snapshot, lets update.Apply produce the manifest list for the
// next snapshot, and attempts to install it, retrying against a
// refreshed base whenever another writer won the race. On any terminal
// outcome it calls update.CleanUncommitted so files this attempt
// produced but never linked into a committed snapshot don't leak.
func (t *Table) Commit(ctx context.Context, update *iceberg.SnapshotUpdate, summary iceberg.Summary) (*iceberg.Snapshot, error) {
	var committed *iceberg.Snapshot
	var attempt uint32

	for {
		if attempt > 0 {
			time.Sleep(t.Options.RetryWaitDuration)
		}
		if attempt >= t.Options.MaxRetryCommitAttempts {
			if cleanErr := update.CleanUncommitted(nil); cleanErr != nil {
				log.Debugf("iceberg: cleanup after failed commit failed: %v", cleanErr)
			}
			return nil, iceberg.ErrExceededCommitRetryAttempts
		}

		snap, err := t.tryCommit(ctx, update, summary)
		if err == nil {
			committed = snap
			break
		}

		var conflict *iceberg.CommitFailedError
		if !errors.As(err, &conflict) {
			if cleanErr := update.CleanUncommitted(nil); cleanErr != nil {
				log.Debugf("iceberg: cleanup after failed commit failed: %v", cleanErr)
			}
			return nil, err
		}

		attempt++
		log.Debugf("iceberg: commit attempt failed with '%v', retrying (attempt %d)", err, attempt)
		if attempt%t.Options.RetryCommitAttemptsBeforeResync == 0 {
			if _, err := t.Ops.Refresh(); err != nil {
				log.Debugf("iceberg: refresh during commit retry failed: %v", err)
			}
		}
	}

	committedPaths := make(map[string]struct{}, len(committed.Manifests))
	for _, m := range committed.Manifests {
		committedPaths[m.Path] = struct{}{}
	}
	if err := update.CleanUncommitted(committedPaths); err != nil {
		log.Debugf("iceberg: cleanup after commit failed: %v", err)
	}

	return committed, nil
}

// tryCommit runs one lock-acquire/Apply/install attempt.
func (t *Table) tryCommit(ctx context.Context, update *iceberg.SnapshotUpdate, summary iceberg.Summary) (snap *iceberg.Snapshot, err error) {
	locked, err := t.Lock.TryLock()
	if err != nil {
		return nil, errors.Join(lock.ErrLockNotObtained, err)
	}
	if !locked {
		return nil, lock.ErrLockNotObtained
	}
	defer func() {
		if unlockErr := t.Lock.Unlock(); unlockErr != nil && err == nil {
			err = unlockErr
		}
	}()

	meta, err := t.Ops.Refresh()
	if err != nil {
		return nil, err
	}
	base := meta.CurrentSnapshot()

	manifests, err := update.Apply(ctx, base)
	if err != nil {
		return nil, err
	}

	next := &iceberg.Snapshot{
		SnapshotID:  update.SnapshotID(),
		Manifests:   manifests,
		Summary:     summary,
		TimestampMs: currentTimeMillis(),
	}
	if base != nil {
		next.ParentID = base.SnapshotID
	}

	if err := t.Ops.CommitSnapshot(base, next); err != nil {
		return nil, err
	}

	if putErr := t.StateStore.Put(state.CommitState{SnapshotID: next.SnapshotID}); putErr != nil {
		log.Debugf("iceberg: state store put failed after successful commit: %v", putErr)
	}

	return next, nil
}

func currentTimeMillis() int64 {
	return time.Now().UnixMilli()
}
