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
	"errors"
	"fmt"
	"testing"
)

func testMetadata(t *testing.T, spec PartitionSpec, snap *Snapshot, props Properties) TableMetadata {
	t.Helper()
	return &StaticMetadata{
		Specs:         map[int32]PartitionSpec{spec.SpecID: spec},
		CurrentSpecID: spec.SpecID,
		Snapshot:      snap,
		Props:         props,
	}
}

// Scenario 1: pure append against an empty base.
func TestApplyPureAppend(t *testing.T) {
	fio := newTestFileIO(t)
	spec := identitySpec()
	table := testMetadata(t, spec, nil, Properties{})

	u := NewSnapshotUpdate(fio, "manifests", table, 1)
	u.AppendFile(DataFile{Path: "data/a.parquet", Partition: PartitionTuple{"date": "2024-01-01"}})
	u.AppendFile(DataFile{Path: "data/b.parquet", Partition: PartitionTuple{"date": "2024-01-02"}})
	u.AppendFile(DataFile{Path: "data/c.parquet", Partition: PartitionTuple{"date": "2024-01-03"}})

	manifests, err := u.Apply(context.Background(), nil)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(manifests) != 1 {
		t.Fatalf("expected a single manifest, got %d", len(manifests))
	}
	if manifests[0].PartitionSpecID != spec.SpecID {
		t.Errorf("expected manifest tagged with current spec, got %d", manifests[0].PartitionSpecID)
	}

	entries := readTestManifest(t, fio, manifests[0].Path)
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	wantOrder := []string{"data/a.parquet", "data/b.parquet", "data/c.parquet"}
	for i, e := range entries {
		if e.Status != EntryAdded {
			t.Errorf("entry %d: expected ADDED, got %v", i, e.Status)
		}
		if e.File.Path != wantOrder[i] {
			t.Errorf("entry %d: expected insertion order %q, got %q", i, wantOrder[i], e.File.Path)
		}
	}
}

// Scenario 2: append plus drop-partition against a two-manifest base.
func TestApplyAppendAndDropPartition(t *testing.T) {
	fio := newTestFileIO(t)
	spec := identitySpec()

	m1 := writeTestManifest(t, fio, spec.SpecID,
		addedEntry(1, "data/p1-a.parquet", PartitionTuple{"date": "p1"}),
		addedEntry(1, "data/p1-b.parquet", PartitionTuple{"date": "p1"}),
	)
	m2 := writeTestManifest(t, fio, spec.SpecID,
		addedEntry(1, "data/p2-a.parquet", PartitionTuple{"date": "p2"}),
	)
	base := &Snapshot{SnapshotID: 1, Manifests: []ManifestFile{m1, m2}}
	table := testMetadata(t, spec, base, Properties{})

	u := NewSnapshotUpdate(fio, "manifests", table, 2)
	u.AppendFile(DataFile{Path: "data/new.parquet", Partition: PartitionTuple{"date": "p3"}})
	u.DropPartition(PartitionTuple{"date": "p1"})

	manifests, err := u.Apply(context.Background(), base)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(manifests) != 3 {
		t.Fatalf("expected 3 manifests (new-files + rewritten p1 + unchanged p2), got %d", len(manifests))
	}
	if manifests[0].Path == m1.Path || manifests[0].Path == m2.Path {
		t.Errorf("expected the new-files manifest first, got %v", manifests[0])
	}

	var rewrittenFound, unchangedFound bool
	for _, mf := range manifests[1:] {
		if mf.Path == m2.Path {
			unchangedFound = true
			continue
		}
		entries := readTestManifest(t, fio, mf.Path)
		for _, e := range entries {
			if e.File.Path == "data/p1-a.parquet" || e.File.Path == "data/p1-b.parquet" {
				if e.Status != EntryDeleted {
					t.Errorf("expected %q marked DELETED, got %v", e.File.Path, e.Status)
				}
				rewrittenFound = true
			}
		}
	}
	if !rewrittenFound {
		t.Error("expected to find the rewritten p1 manifest with DELETED entries")
	}
	if !unchangedFound {
		t.Error("expected the p2 manifest to pass through unchanged")
	}
}

// Scenario 3: row-filter delete where the metrics can't prove full match.
func TestApplyRowFilterPartialMatchFails(t *testing.T) {
	fio := newTestFileIO(t)
	spec := PartitionSpec{
		SpecID: 5,
		Fields: []PartitionField{
			{SourceColumn: "x", Transform: Transform{Kind: TransformBucket, Param: 16}, Name: "x_bucket"},
		},
	}
	m1 := writeTestManifest(t, fio, spec.SpecID, ManifestEntry{
		Status:     EntryAdded,
		SnapshotID: 1,
		File: DataFile{
			Path:        "data/a.parquet",
			Partition:   PartitionTuple{"x_bucket": int64(4)},
			ColumnStats: map[string]ColumnStat{"x": {Min: int64(5), Max: int64(20), NullCount: 0}},
		},
	})
	base := &Snapshot{SnapshotID: 1, Manifests: []ManifestFile{m1}}
	table := testMetadata(t, spec, base, Properties{})

	u := NewSnapshotUpdate(fio, "manifests", table, 2)
	u.DeleteByRowFilter(Cmp{Column: "x", Op: CmpLt, Literal: int64(10)})

	_, err := u.Apply(context.Background(), base)
	var partial *CannotDeletePartialError
	if !errors.As(err, &partial) {
		t.Fatalf("expected CannotDeletePartialError, got %v", err)
	}

	if cleanErr := u.CleanUncommitted(map[string]struct{}{}); cleanErr != nil {
		t.Fatalf("CleanUncommitted: %v", cleanErr)
	}
}

// Scenario 4: below the min-merge threshold, everything passes through.
func TestApplyBelowMinMergeThresholdPassesThrough(t *testing.T) {
	fio := newTestFileIO(t)
	spec := identitySpec()

	var baseManifests []ManifestFile
	for i := 0; i < 5; i++ {
		baseManifests = append(baseManifests, writeTestManifest(t, fio, spec.SpecID,
			addedEntry(1, fmt.Sprintf("data/f%d.parquet", i), PartitionTuple{"date": "2024-01-01"})))
	}
	base := &Snapshot{SnapshotID: 1, Manifests: baseManifests}
	props := Properties{
		string(ManifestTargetSizeBytesKey): "1073741824",
		string(ManifestMinCountToMergeKey): "100",
	}
	table := testMetadata(t, spec, base, props)

	u := NewSnapshotUpdate(fio, "manifests", table, 2)
	u.AppendFile(DataFile{Path: "data/new.parquet", Partition: PartitionTuple{"date": "2024-01-01"}})

	manifests, err := u.Apply(context.Background(), base)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(manifests) != 6 {
		t.Fatalf("expected all 6 manifests to pass through unmerged, got %d", len(manifests))
	}
}

// Scenario 5: same as 4 but with a low merge threshold, triggering a merge.
func TestApplyAboveMinMergeThresholdMerges(t *testing.T) {
	fio := newTestFileIO(t)
	spec := identitySpec()

	var baseManifests []ManifestFile
	for i := 0; i < 5; i++ {
		baseManifests = append(baseManifests, writeTestManifest(t, fio, spec.SpecID,
			addedEntry(1, fmt.Sprintf("data/f%d.parquet", i), PartitionTuple{"date": "2024-01-01"})))
	}
	base := &Snapshot{SnapshotID: 1, Manifests: baseManifests}
	props := Properties{
		string(ManifestTargetSizeBytesKey): "1073741824",
		string(ManifestMinCountToMergeKey): "2",
	}
	table := testMetadata(t, spec, base, props)

	u := NewSnapshotUpdate(fio, "manifests", table, 2)
	u.AppendFile(DataFile{Path: "data/new.parquet", Partition: PartitionTuple{"date": "2024-01-01"}})

	manifests, err := u.Apply(context.Background(), base)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(manifests) != 1 {
		t.Fatalf("expected all 6 manifests collapsed into 1 merged manifest, got %d", len(manifests))
	}

	entries := readTestManifest(t, fio, manifests[0].Path)
	if len(entries) != 6 {
		t.Fatalf("expected 6 entries in the merged manifest, got %d", len(entries))
	}
	var addedCount, existingCount int
	for _, e := range entries {
		switch e.Status {
		case EntryAdded:
			addedCount++
		case EntryExisting:
			existingCount++
		}
	}
	if addedCount != 1 {
		t.Errorf("expected exactly 1 ADDED entry (the new file), got %d", addedCount)
	}
	if existingCount != 5 {
		t.Errorf("expected 5 EXISTING entries (downgraded from the prior snapshot), got %d", existingCount)
	}
}

// Scenario 6: failMissingDeletePaths surfaces an unmatched explicit delete.
func TestApplyFailMissingDeletePaths(t *testing.T) {
	fio := newTestFileIO(t)
	spec := identitySpec()
	m1 := writeTestManifest(t, fio, spec.SpecID, addedEntry(1, "data/a.parquet", PartitionTuple{"date": "2024-01-01"}))
	base := &Snapshot{SnapshotID: 1, Manifests: []ManifestFile{m1}}
	table := testMetadata(t, spec, base, Properties{})

	u := NewSnapshotUpdate(fio, "manifests", table, 2)
	u.Delete("data/nonexistent.parquet")
	u.FailMissingDeletePaths()

	_, err := u.Apply(context.Background(), base)
	var missing *MissingDeletePathsError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingDeletePathsError, got %v", err)
	}
	if len(missing.Paths) != 1 || missing.Paths[0] != "data/nonexistent.parquet" {
		t.Errorf("unexpected missing paths: %v", missing.Paths)
	}

	if cleanErr := u.CleanUncommitted(map[string]struct{}{}); cleanErr != nil {
		t.Fatalf("CleanUncommitted: %v", cleanErr)
	}
}

func TestApplyIsIdempotentWithoutMutation(t *testing.T) {
	fio := newTestFileIO(t)
	spec := identitySpec()
	table := testMetadata(t, spec, nil, Properties{})

	u := NewSnapshotUpdate(fio, "manifests", table, 1)
	u.AppendFile(DataFile{Path: "data/a.parquet", Partition: PartitionTuple{"date": "2024-01-01"}})

	first, err := u.Apply(context.Background(), nil)
	if err != nil {
		t.Fatalf("Apply (first): %v", err)
	}
	second, err := u.Apply(context.Background(), nil)
	if err != nil {
		t.Fatalf("Apply (second): %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("expected the same manifest list length, got %d and %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Path != second[i].Path {
			t.Errorf("manifest %d: expected stable path across re-apply, got %q vs %q", i, first[i].Path, second[i].Path)
		}
	}
}

func TestSnapshotUpdateSnapshotIDIsFixed(t *testing.T) {
	fio := newTestFileIO(t)
	table := testMetadata(t, identitySpec(), nil, Properties{})
	u := NewSnapshotUpdate(fio, "manifests", table, 42)
	if u.SnapshotID() != 42 {
		t.Errorf("SnapshotID() = %d, want 42", u.SnapshotID())
	}
}
