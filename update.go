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

package iceberg

import (
	"context"
	"sort"
	"sync"

	cmap "github.com/orcaman/concurrent-map/v2"

	"github.com/ananddannygt/iceberg/pool"
	"github.com/ananddannygt/iceberg/storage"
)

// SnapshotUpdate accumulates appends/deletes and, on Apply, produces the
// ordered manifest list for a new snapshot. It is created once per
// logical change, mutated by Add/Delete/Drop*, then Apply may be invoked
// once per commit-retry attempt against a refreshed base.
type SnapshotUpdate struct {
	fio       storage.FileIO
	outputDir string
	table     TableMetadata
	projector *DeletePredicateProjector

	currentSnapshotID int64

	mu                     sync.Mutex
	newFiles               []DataFile
	hasNewFiles            bool
	deletePaths            map[string]struct{}
	dropPartitions         map[string]PartitionTuple
	deleteExpression       Predicate
	failAnyDeleteFlag      bool
	failMissingDeletePaths bool
	filterUpdated          bool

	newManifestPath string
	newManifest     *ManifestFile

	filteredManifests              cmap.ConcurrentMap[string, ManifestFile]
	mergeManifests                 cmap.ConcurrentMap[string, ManifestFile]
	filteredManifestToDeletedFiles cmap.ConcurrentMap[string, map[string]struct{}]
}

// NewSnapshotUpdate returns an empty update bound to table and writing new
// manifests under outputDir via fio.
func NewSnapshotUpdate(fio storage.FileIO, outputDir string, table TableMetadata, currentSnapshotID int64) *SnapshotUpdate {
	return &SnapshotUpdate{
		fio:                             fio,
		outputDir:                       outputDir,
		table:                           table,
		projector:                       NewDeletePredicateProjector(),
		currentSnapshotID:               currentSnapshotID,
		deletePaths:                     make(map[string]struct{}),
		dropPartitions:                  make(map[string]PartitionTuple),
		deleteExpression:                AlwaysFalse,
		filteredManifests:              cmap.New[ManifestFile](),
		mergeManifests:                 cmap.New[ManifestFile](),
		filteredManifestToDeletedFiles: cmap.New[map[string]struct{}](),
	}
}

// SnapshotID returns the id this update will tag every new entry with and
// commit as the resulting snapshot's id. Iceberg snapshot ids need only be
// unique, not sequential, so a writer picks one randomly up front and
// keeps it fixed across every Apply retry regardless of how the base
// snapshot changes underneath it.
func (u *SnapshotUpdate) SnapshotID() int64 { return u.currentSnapshotID }

// AppendFile enqueues a new DataFile.
func (u *SnapshotUpdate) AppendFile(file DataFile) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.newFiles = append(u.newFiles, file)
	u.hasNewFiles = true
}

// Add is an alias for AppendFile.
func (u *SnapshotUpdate) Add(file DataFile) { u.AppendFile(file) }

// Delete adds a force-delete path.
func (u *SnapshotUpdate) Delete(path string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.deletePaths[path] = struct{}{}
	u.filterUpdated = true
}

// DeleteByRowFilter ORs expr into deleteExpression.
func (u *SnapshotUpdate) DeleteByRowFilter(expr Predicate) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.deleteExpression = OrPredicate(u.deleteExpression, expr)
	u.filterUpdated = true
}

// DropPartition adds a partition tuple to dropPartitions.
func (u *SnapshotUpdate) DropPartition(tuple PartitionTuple) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.dropPartitions[tuple.Key()] = tuple
	u.filterUpdated = true
}

// FailAnyDelete sets the failAnyDelete flag.
func (u *SnapshotUpdate) FailAnyDelete() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.failAnyDeleteFlag = true
}

// FailMissingDeletePaths sets the failMissingDeletePaths flag.
func (u *SnapshotUpdate) FailMissingDeletePaths() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.failMissingDeletePaths = true
}

func (u *SnapshotUpdate) criteria() DeleteCriteria {
	dropKeys := make(map[string]struct{}, len(u.dropPartitions))
	for k := range u.dropPartitions {
		dropKeys[k] = struct{}{}
	}
	return DeleteCriteria{
		DeletePaths:       u.deletePaths,
		DropPartitions:    dropKeys,
		DeleteExpression:  u.deleteExpression,
		FailAnyDelete:     u.failAnyDeleteFlag,
		CurrentSnapshotID: u.currentSnapshotID,
	}
}

// Apply orchestrates the projector, filter, bin-packer and merge
// processor over base and returns the ordered manifest list for the new
// snapshot. It may be called once per retry attempt; filtered/merged
// outputs are reused across calls when their inputs are unchanged.
func (u *SnapshotUpdate) Apply(ctx context.Context, base *Snapshot) ([]ManifestFile, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	// Step 1: invalidate stale filtered outputs if delete criteria changed
	// since the last Apply.
	if u.filterUpdated {
		if err := u.invalidateFilterCaches(); err != nil {
			return nil, err
		}
		u.filterUpdated = false
	}

	// Step 2: materialize the new-files manifest.
	newManifest, err := u.materializeNewFilesManifest()
	if err != nil {
		return nil, err
	}

	// Step 3: seed per-spec groups, descending specId, new-files manifest first.
	groups := make(map[int32][]ManifestFile)
	if newManifest != nil {
		groups[u.table.CurrentSpec().SpecID] = append(groups[u.table.CurrentSpec().SpecID], *newManifest)
	}

	// Step 4: bind the metrics evaluator to deleteExpression.
	metricsEval := NewStrictMetricsEvaluator(u.deleteExpression)

	// Step 5/6/7: filter base manifests in parallel, preserving order.
	var baseManifests []ManifestFile
	if base != nil {
		baseManifests = base.Manifests
	}
	filtered, deletedFiles, err := u.filterAll(ctx, baseManifests, metricsEval)
	if err != nil {
		return nil, err
	}
	for _, mf := range filtered {
		groups[mf.PartitionSpecID] = append(groups[mf.PartitionSpecID], mf)
	}

	// Step 8: run the merge decision per group, descending specId order.
	specIDs := make([]int32, 0, len(groups))
	for id := range groups {
		specIDs = append(specIDs, id)
	}
	sort.Slice(specIDs, func(i, j int) bool { return specIDs[i] > specIDs[j] })

	var result []ManifestFile
	for _, specID := range specIDs {
		manifests := groups[specID]
		target := u.table.Properties().TargetManifestSizeBytes()
		minCount := u.table.Properties().MinManifestsCountToMerge()

		bins := PackEnd(manifests, func(m ManifestFile) int64 { return m.LengthBytes }, target)

		newPath := ""
		if newManifest != nil {
			newPath = newManifest.Path
		}
		mgp := NewMergeGroupProcessor(u.fio, u.outputDir, u.currentSnapshotID, minCount, newPath, u.mergeManifests)
		out, err := mgp.ProcessGroup(ctx, specID, bins)
		if err != nil {
			return nil, err
		}
		result = append(result, out...)
	}

	// Step 9: verify every explicit delete path matched a file.
	if u.failMissingDeletePaths {
		var unmatched []string
		for p := range u.deletePaths {
			if _, ok := deletedFiles[p]; !ok {
				unmatched = append(unmatched, p)
			}
		}
		if len(unmatched) > 0 {
			sort.Strings(unmatched)
			return nil, &MissingDeletePathsError{Paths: unmatched}
		}
	}

	return result, nil
}

// invalidateFilterCaches clears every cached filter result: every
// filtered output that differs from its input manifest is deleted and
// the filter caches are cleared, since a change to delete criteria
// invalidates any previously computed filter result.
func (u *SnapshotUpdate) invalidateFilterCaches() error {
	for entry := range u.filteredManifests.IterBuffered() {
		if entry.Key != entry.Val.Path {
			if err := u.fio.DeleteFile(entry.Val.Path); err != nil {
				return err
			}
		}
	}
	u.filteredManifests.Clear()
	u.filteredManifestToDeletedFiles.Clear()
	return nil
}

// materializeNewFilesManifest writes every pending appended file into a
// fresh manifest under the table's current partition spec. A rewrite only
// happens when files were appended since the last successful write;
// otherwise the manifest produced by that write is returned unchanged, so
// a retry against an unmutated update needs no I/O at all.
func (u *SnapshotUpdate) materializeNewFilesManifest() (*ManifestFile, error) {
	if len(u.newFiles) == 0 {
		return nil, nil
	}
	if !u.hasNewFiles {
		return u.newManifest, nil
	}

	if u.newManifestPath != "" {
		if err := u.fio.DeleteFile(u.newManifestPath); err != nil {
			return nil, err
		}
		u.newManifestPath = ""
	}

	spec := u.table.CurrentSpec()
	w, err := NewManifestWriter(u.fio, u.outputDir, spec.SpecID)
	if err != nil {
		return nil, err
	}
	for _, f := range u.newFiles {
		if err := w.Add(ManifestEntry{Status: EntryAdded, SnapshotID: u.currentSnapshotID, File: f}); err != nil {
			return nil, err
		}
	}
	mf, err := w.Close()
	if err != nil {
		return nil, err
	}
	u.newManifestPath = mf.Path
	u.newManifest = &mf
	u.hasNewFiles = false
	return &mf, nil
}

// filterAll runs ManifestFilter over every base manifest in parallel,
// writing results into index-preserved slots so output order matches
// input order regardless of completion order. A manifest already present
// in filteredManifests is reused as-is: only invalidateFilterCaches and
// CleanUncommitted evict entries, so a hit here means criteria and base
// are unchanged since the value was computed and Filter need not run again.
func (u *SnapshotUpdate) filterAll(ctx context.Context, manifests []ManifestFile, metricsEval MetricsEvaluator) ([]ManifestFile, map[string]struct{}, error) {
	results := make([]ManifestFile, len(manifests))
	criteria := u.criteria()

	wp := pool.New(ctx, 0)
	for i, m := range manifests {
		i, m := i, m
		wp.Go(func() error {
			if cached, ok := u.filteredManifests.Get(m.Path); ok {
				results[i] = cached
				return nil
			}
			spec, ok := u.table.Spec(m.PartitionSpecID)
			if !ok {
				return ErrUnknownPartitionSpec
			}
			filter := NewManifestFilter(u.fio, u.outputDir, u.projector)
			out, deleted, err := filter.Filter(m, spec, criteria, metricsEval)
			if err != nil {
				return err
			}
			results[i] = out
			u.filteredManifests.Set(m.Path, out)
			if deleted != nil {
				u.filteredManifestToDeletedFiles.Set(out.Path, deleted)
			}
			return nil
		})
	}
	if err := wp.Wait(); err != nil {
		return nil, nil, err
	}

	deletedFiles := make(map[string]struct{})
	for _, out := range results {
		if deleted, ok := u.filteredManifestToDeletedFiles.Get(out.Path); ok {
			for p := range deleted {
				deletedFiles[p] = struct{}{}
			}
		}
	}

	return results, deletedFiles, nil
}
