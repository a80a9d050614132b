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

	log "github.com/sirupsen/logrus"

	"github.com/ananddannygt/iceberg/storage"
)

// DeleteCriteria bundles everything a ManifestFilter pass needs to decide
// whether an entry is deleted.
type DeleteCriteria struct {
	DeletePaths       map[string]struct{}
	DropPartitions    map[string]struct{} // keyed by PartitionTuple.Key()
	DeleteExpression  Predicate
	FailAnyDelete     bool
	CurrentSnapshotID int64
}

// isEmpty reports whether no delete criterion is active at all, the
// condition under which ManifestFilter takes its fast path.
func (c DeleteCriteria) isEmpty() bool {
	return IsAlwaysFalse(c.DeleteExpression) && len(c.DeletePaths) == 0 && len(c.DropPartitions) == 0
}

// ManifestFilter rewrites a manifest to mark matched entries DELETED,
// given delete criteria and strict/inclusive partition projections.
type ManifestFilter struct {
	fio       storage.FileIO
	outputDir string
	projector *DeletePredicateProjector
}

// NewManifestFilter returns a filter that writes rewritten manifests under
// outputDir via fio, projecting predicates with projector.
func NewManifestFilter(fio storage.FileIO, outputDir string, projector *DeletePredicateProjector) *ManifestFilter {
	return &ManifestFilter{fio: fio, outputDir: outputDir, projector: projector}
}

// Filter runs delete criteria against a manifest and its spec, returning
// either the input manifest unchanged or a rewritten copy, plus the set
// of paths it deleted (nil if unchanged).
func (mf *ManifestFilter) Filter(manifest ManifestFile, spec PartitionSpec, criteria DeleteCriteria, metricsEval MetricsEvaluator) (ManifestFile, map[string]struct{}, error) {
	if criteria.isEmpty() {
		return manifest, nil, nil
	}

	inclusive, strict := mf.projector.Project(criteria.DeleteExpression, spec)

	candidateFound, err := mf.detect(manifest, inclusive, strict, criteria, metricsEval)
	if err != nil {
		return ManifestFile{}, nil, err
	}
	if !candidateFound {
		return manifest, nil, nil
	}

	return mf.rewrite(manifest, spec, inclusive, strict, criteria, metricsEval)
}

// entryForceDeleted reports whether a file's path/partition satisfy one of
// the explicit (non-predicate) delete criteria.
func entryForceDeleted(file DataFile, criteria DeleteCriteria) bool {
	if _, ok := criteria.DeletePaths[file.Path]; ok {
		return true
	}
	if _, ok := criteria.DropPartitions[file.Partition.Key()]; ok {
		return true
	}
	return false
}

// detect scans for the first candidate entry and validates it as it
// goes, per the open-question resolution in DESIGN.md (the rewrite pass
// re-validates independently, so detect's early break cannot hide an
// unvalidated entry).
func (mf *ManifestFilter) detect(manifest ManifestFile, inclusive, strict PartitionPredicate, criteria DeleteCriteria, metricsEval MetricsEvaluator) (bool, error) {
	r, err := OpenManifestReader(mf.fio, manifest.Path)
	if err != nil {
		return false, err
	}
	defer r.Close()

	for {
		entry, err := r.Next()
		if err != nil {
			if err == io.EOF {
				break
			}
			return false, err
		}
		if entry.Status == EntryDeleted {
			continue
		}
		forceDelete := entryForceDeleted(entry.File, criteria)
		if forceDelete || inclusive(entry.File.Partition) {
			if err := validateDeletable(entry.File, forceDelete, strict, metricsEval, criteria); err != nil {
				return false, err
			}
			return true, nil
		}
	}
	return false, nil
}

func validateDeletable(file DataFile, forceDelete bool, strict PartitionPredicate, metricsEval MetricsEvaluator, criteria DeleteCriteria) error {
	if !(forceDelete || strict(file.Partition) || metricsEval.AllRowsMatch(file)) {
		return &CannotDeletePartialError{Path: file.Path, Predicate: criteria.DeleteExpression}
	}
	if criteria.FailAnyDelete {
		return &DeleteForbiddenError{PartitionPath: file.Partition.Key()}
	}
	return nil
}

// rewrite is a fresh pass that streams every entry through a new
// ManifestWriter, deciding DELETED vs EXISTING per entry.
func (mf *ManifestFilter) rewrite(manifest ManifestFile, spec PartitionSpec, inclusive, strict PartitionPredicate, criteria DeleteCriteria, metricsEval MetricsEvaluator) (ManifestFile, map[string]struct{}, error) {
	r, err := OpenManifestReader(mf.fio, manifest.Path)
	if err != nil {
		return ManifestFile{}, nil, err
	}
	defer r.Close()

	w, err := NewManifestWriter(mf.fio, mf.outputDir, spec.SpecID)
	if err != nil {
		return ManifestFile{}, nil, err
	}

	deleted := make(map[string]struct{})

	for {
		entry, err := r.Next()
		if err != nil {
			if err == io.EOF {
				break
			}
			return ManifestFile{}, nil, err
		}
		if entry.Status == EntryDeleted {
			continue
		}
		forceDelete := entryForceDeleted(entry.File, criteria)
		shouldDelete := forceDelete || inclusive(entry.File.Partition)
		if shouldDelete {
			if err := validateDeletable(entry.File, forceDelete, strict, metricsEval, criteria); err != nil {
				return ManifestFile{}, nil, err
			}
			if _, dup := deleted[entry.File.Path]; dup {
				log.Warnf("iceberg: path %q deleted more than once while rewriting manifest %q", entry.File.Path, manifest.Path)
			}
			deleted[entry.File.Path] = struct{}{}
			if err := w.Add(ManifestEntry{Status: EntryDeleted, SnapshotID: criteria.CurrentSnapshotID, File: entry.File}); err != nil {
				return ManifestFile{}, nil, err
			}
		} else {
			if err := w.Add(ManifestEntry{Status: EntryExisting, SnapshotID: entry.SnapshotID, File: entry.File}); err != nil {
				return ManifestFile{}, nil, err
			}
		}
	}

	out, err := w.Close()
	if err != nil {
		return ManifestFile{}, nil, err
	}
	return out, deleted, nil
}
