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
	"testing"

	cmap "github.com/orcaman/concurrent-map/v2"
)

func TestMergeGroupProcessorLeavesSingletonBinsAlone(t *testing.T) {
	fio := newTestFileIO(t)
	mf := writeTestManifest(t, fio, 0, addedEntry(1, "data/a.parquet", nil))

	p := NewMergeGroupProcessor(fio, "manifests", 1, 100, "", cmap.New[ManifestFile]())
	out, err := p.ProcessGroup(context.Background(), 0, [][]ManifestFile{{mf}})
	if err != nil {
		t.Fatalf("ProcessGroup: %v", err)
	}
	if len(out) != 1 || out[0].Path != mf.Path {
		t.Errorf("expected the singleton bin returned unchanged, got %v", out)
	}
}

func TestMergeGroupProcessorDefersSmallBinContainingNewManifest(t *testing.T) {
	fio := newTestFileIO(t)
	newManifest := writeTestManifest(t, fio, 0, addedEntry(2, "data/new.parquet", nil))
	old := writeTestManifest(t, fio, 0, addedEntry(1, "data/old.parquet", nil))

	p := NewMergeGroupProcessor(fio, "manifests", 2, 100, newManifest.Path, cmap.New[ManifestFile]())
	out, err := p.ProcessGroup(context.Background(), 0, [][]ManifestFile{{old, newManifest}})
	if err != nil {
		t.Fatalf("ProcessGroup: %v", err)
	}
	if len(out) != 2 {
		t.Errorf("expected the bin to be deferred (not merged) below min-count-to-merge, got %d manifests", len(out))
	}
}

func TestMergeGroupProcessorMergesWhenAboveThreshold(t *testing.T) {
	fio := newTestFileIO(t)
	newManifest := writeTestManifest(t, fio, 0, addedEntry(2, "data/new.parquet", nil))
	old := writeTestManifest(t, fio, 0, addedEntry(1, "data/old.parquet", nil))

	p := NewMergeGroupProcessor(fio, "manifests", 2, 1, newManifest.Path, cmap.New[ManifestFile]())
	out, err := p.ProcessGroup(context.Background(), 0, [][]ManifestFile{{old, newManifest}})
	if err != nil {
		t.Fatalf("ProcessGroup: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected a single merged manifest, got %d", len(out))
	}

	entries := readTestManifest(t, fio, out[0].Path)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries in the merged manifest, got %d", len(entries))
	}
	byPath := map[string]ManifestEntry{}
	for _, e := range entries {
		byPath[e.File.Path] = e
	}
	if byPath["data/old.parquet"].Status != EntryExisting {
		t.Errorf("expected the prior snapshot's entry downgraded to EXISTING, got %v", byPath["data/old.parquet"].Status)
	}
	if byPath["data/new.parquet"].Status != EntryAdded {
		t.Errorf("expected the current snapshot's entry to stay ADDED, got %v", byPath["data/new.parquet"].Status)
	}
}

func TestMergeGroupProcessorSuppressesStaleDeletes(t *testing.T) {
	fio := newTestFileIO(t)
	m1 := writeTestManifest(t, fio, 0,
		ManifestEntry{Status: EntryDeleted, SnapshotID: 1, File: DataFile{Path: "data/gone.parquet"}},
	)
	m2 := writeTestManifest(t, fio, 0, addedEntry(2, "data/live.parquet", nil))

	p := NewMergeGroupProcessor(fio, "manifests", 2, 1, "", cmap.New[ManifestFile]())
	out, err := p.ProcessGroup(context.Background(), 0, [][]ManifestFile{{m1, m2}})
	if err != nil {
		t.Fatalf("ProcessGroup: %v", err)
	}
	entries := readTestManifest(t, fio, out[0].Path)
	for _, e := range entries {
		if e.File.Path == "data/gone.parquet" {
			t.Errorf("expected a DELETED entry from a prior snapshot to be dropped during merge, found %v", e)
		}
	}
}

func TestMergeGroupProcessorCachesMergeResultByBinIdentity(t *testing.T) {
	fio := newTestFileIO(t)
	m1 := writeTestManifest(t, fio, 0, addedEntry(1, "data/a.parquet", nil))
	m2 := writeTestManifest(t, fio, 0, addedEntry(1, "data/b.parquet", nil))

	cache := cmap.New[ManifestFile]()
	p := NewMergeGroupProcessor(fio, "manifests", 1, 1, "", cache)
	out1, err := p.ProcessGroup(context.Background(), 0, [][]ManifestFile{{m1, m2}})
	if err != nil {
		t.Fatalf("ProcessGroup (first): %v", err)
	}
	out2, err := p.ProcessGroup(context.Background(), 0, [][]ManifestFile{{m1, m2}})
	if err != nil {
		t.Fatalf("ProcessGroup (second): %v", err)
	}
	if out1[0].Path != out2[0].Path {
		t.Errorf("expected the same bin to reuse the cached merge result, got %q and %q", out1[0].Path, out2[0].Path)
	}
}
