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
	"io"
	"testing"

	"github.com/ananddannygt/iceberg/storage"
	"github.com/ananddannygt/iceberg/storage/filestore"
)

func newTestFileIO(t *testing.T) storage.FileIO {
	t.Helper()
	return filestore.New(storage.NewPath(t.TempDir()))
}

// writeTestManifest writes entries to a fresh manifest under specID and
// returns its descriptor.
func writeTestManifest(t *testing.T, fio storage.FileIO, specID int32, entries ...ManifestEntry) ManifestFile {
	t.Helper()
	w, err := NewManifestWriter(fio, "manifests", specID)
	if err != nil {
		t.Fatalf("NewManifestWriter: %v", err)
	}
	for _, e := range entries {
		if err := w.Add(e); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	mf, err := w.Close()
	if err != nil {
		t.Fatalf("Close: %v", err)
	}
	return mf
}

func readTestManifest(t *testing.T, fio storage.FileIO, path string) []ManifestEntry {
	t.Helper()
	r, err := OpenManifestReader(fio, path)
	if err != nil {
		t.Fatalf("OpenManifestReader: %v", err)
	}
	defer r.Close()
	var out []ManifestEntry
	for {
		e, err := r.Next()
		if err != nil {
			if err == io.EOF {
				break
			}
			t.Fatalf("Next: %v", err)
		}
		out = append(out, e)
	}
	return out
}

func addedEntry(snapshotID int64, path string, partition PartitionTuple) ManifestEntry {
	return ManifestEntry{
		Status:     EntryAdded,
		SnapshotID: snapshotID,
		File: DataFile{
			Path:          path,
			Partition:     partition,
			RecordCount:   10,
			FileSizeBytes: 128,
			ColumnStats:   map[string]ColumnStat{},
		},
	}
}
