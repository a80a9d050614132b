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
	"io"
	"strings"

	cmap "github.com/orcaman/concurrent-map/v2"

	"github.com/ananddannygt/iceberg/pool"
	"github.com/ananddannygt/iceberg/storage"
)

// MergeGroupProcessor decides, per partition-spec group, whether to
// rewrite bins of manifests into a single merged manifest.
type MergeGroupProcessor struct {
	fio               storage.FileIO
	outputDir         string
	currentSnapshotID int64
	minCountToMerge   int
	newManifestPath   string // path of the in-memory new-files manifest, if any
	mergeCache        cmap.ConcurrentMap[string, ManifestFile]
}

// NewMergeGroupProcessor returns a processor writing merged manifests
// under outputDir, tagging freshly ADDED entries with currentSnapshotID.
// newManifestPath identifies the new-files manifest (may be empty), used
// to decide the min-count-to-merge deferral.
func NewMergeGroupProcessor(fio storage.FileIO, outputDir string, currentSnapshotID int64, minCountToMerge int, newManifestPath string, mergeCache cmap.ConcurrentMap[string, ManifestFile]) *MergeGroupProcessor {
	return &MergeGroupProcessor{
		fio:               fio,
		outputDir:         outputDir,
		currentSnapshotID: currentSnapshotID,
		minCountToMerge:   minCountToMerge,
		newManifestPath:   newManifestPath,
		mergeCache:        mergeCache,
	}
}

// ProcessGroup runs the merge decision over bins belonging to one
// partition-spec group, processing bins in parallel and reassembling
// results in bin order.
func (p *MergeGroupProcessor) ProcessGroup(ctx context.Context, specID int32, bins [][]ManifestFile) ([]ManifestFile, error) {
	results := make([][]ManifestFile, len(bins))

	wp := pool.New(ctx, 0)
	for i, bin := range bins {
		i, bin := i, bin
		wp.Go(func() error {
			out, err := p.processBin(specID, bin)
			if err != nil {
				return err
			}
			results[i] = out
			return nil
		})
	}
	if err := wp.Wait(); err != nil {
		return nil, err
	}

	var out []ManifestFile
	for _, r := range results {
		out = append(out, r...)
	}
	return out, nil
}

// processBin implements the per-bin merge-or-pass-through decision.
func (p *MergeGroupProcessor) processBin(specID int32, bin []ManifestFile) ([]ManifestFile, error) {
	if len(bin) == 1 {
		return bin, nil
	}

	if p.binContainsNewManifest(bin) && len(bin) < p.minCountToMerge {
		return bin, nil
	}

	key := binKey(bin)
	if cached, ok := p.mergeCache.Get(key); ok {
		return []ManifestFile{cached}, nil
	}

	merged, err := p.createManifest(specID, bin)
	if err != nil {
		return nil, err
	}
	p.mergeCache.Set(key, merged)
	return []ManifestFile{merged}, nil
}

func (p *MergeGroupProcessor) binContainsNewManifest(bin []ManifestFile) bool {
	if p.newManifestPath == "" {
		return false
	}
	for _, m := range bin {
		if m.Path == p.newManifestPath {
			return true
		}
	}
	return false
}

// createManifest streams every manifest in bin, in order, through a fresh
// writer, downgrading ADDED entries from prior snapshots to EXISTING and
// suppressing DELETED entries from prior snapshots.
func (p *MergeGroupProcessor) createManifest(specID int32, bin []ManifestFile) (ManifestFile, error) {
	w, err := NewManifestWriter(p.fio, p.outputDir, specID)
	if err != nil {
		return ManifestFile{}, err
	}

	for _, m := range bin {
		if err := p.copyEntries(m, w); err != nil {
			return ManifestFile{}, err
		}
	}

	return w.Close()
}

func (p *MergeGroupProcessor) copyEntries(m ManifestFile, w ManifestWriter) error {
	r, err := OpenManifestReader(p.fio, m.Path)
	if err != nil {
		return err
	}
	defer r.Close()

	for {
		entry, err := r.Next()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}

		switch {
		case entry.Status == EntryDeleted:
			if entry.SnapshotID == p.currentSnapshotID {
				if err := w.Add(entry); err != nil {
					return err
				}
			}
		case entry.Status == EntryAdded && entry.SnapshotID == p.currentSnapshotID:
			if err := w.Add(entry); err != nil {
				return err
			}
		default:
			if err := w.Add(ManifestEntry{Status: EntryExisting, SnapshotID: entry.SnapshotID, File: entry.File}); err != nil {
				return err
			}
		}
	}
}

// binKey identifies a bin by its constituent manifests' identity, for the
// merge cache.
func binKey(bin []ManifestFile) string {
	var sb strings.Builder
	for i, m := range bin {
		if i > 0 {
			sb.WriteByte('|')
		}
		sb.WriteString(m.Path)
	}
	return sb.String()
}
