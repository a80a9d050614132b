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
	"fmt"

	"golang.org/x/exp/slices"
)

// EntryStatus is the tagged status of a ManifestEntry.
type EntryStatus int

const (
	EntryAdded EntryStatus = iota
	EntryExisting
	EntryDeleted
)

func (s EntryStatus) String() string {
	switch s {
	case EntryAdded:
		return "ADDED"
	case EntryExisting:
		return "EXISTING"
	case EntryDeleted:
		return "DELETED"
	default:
		return "UNKNOWN"
	}
}

// ColumnStat carries the per-column metrics used by StrictMetricsEvaluator
// to prove a delete-by-predicate is safe for a partially-matching
// partition.
type ColumnStat struct {
	Min        any
	Max        any
	NullCount  int64
	ValueCount int64
}

// DataFile is an immutable record describing one on-disk data file.
// Identity is Path.
type DataFile struct {
	Path          string
	Partition     PartitionTuple
	RecordCount   uint64
	FileSizeBytes uint64
	ColumnStats   map[string]ColumnStat
}

// PartitionTuple is a partition value tuple keyed by the destination
// partition field name.
type PartitionTuple map[string]any

// Key returns a stable string suitable for use as a map/set key, sorted
// by field name so two structurally-equal tuples always collide.
func (t PartitionTuple) Key() string {
	if len(t) == 0 {
		return ""
	}
	names := make([]string, 0, len(t))
	for k := range t {
		names = append(names, k)
	}
	slices.Sort(names)
	s := ""
	for _, n := range names {
		s += fmt.Sprintf("%s=%v;", n, t[n])
	}
	return s
}

// Transform is the closed set of partition transforms this package can
// project predicates through. General schema-evolution transforms are
// out of scope; these are the common transforms a real table format
// implements, which cover identity, bucketing, truncation, and the
// calendar-unit transforms over a timestamp source column.
type Transform struct {
	Kind  TransformKind
	Param int // bucket count / truncate width, when applicable
}

type TransformKind int

const (
	TransformIdentity TransformKind = iota
	TransformBucket
	TransformTruncate
	TransformYear
	TransformMonth
	TransformDay
	TransformHour
	TransformVoid
)

// PartitionField maps one source column to one partition column via a
// Transform.
type PartitionField struct {
	SourceColumn string
	Transform    Transform
	Name         string
}

// PartitionSpec is immutable; two specs are compatible for merge iff their
// SpecID is equal; specs are not structurally re-compared here.
type PartitionSpec struct {
	SpecID int32
	Fields []PartitionField
}

// ManifestEntry is the tagged record a manifest streams.
type ManifestEntry struct {
	Status     EntryStatus
	SnapshotID int64
	File       DataFile
}

// ManifestCounts are the optional per-status counters a ManifestFile
// carries once its writer has closed.
type ManifestCounts struct {
	AddedFilesCount   int
	ExistingFilesCount int
	DeletedFilesCount int
}

// ManifestFile is the metadata handle for an on-disk manifest. Manifests
// are immutable once written. The filter and merge caches identify a
// manifest by Path alone; LengthBytes and PartitionSpecID are not part of
// their keys.
type ManifestFile struct {
	Path            string
	LengthBytes     int64
	PartitionSpecID int32
	Counts          *ManifestCounts
}

// equalIdentity implements ManifestFile value equality by path, length,
// and partition spec id. The caches do not use it.
func (m ManifestFile) equalIdentity(o ManifestFile) bool {
	return m.Path == o.Path && m.LengthBytes == o.LengthBytes && m.PartitionSpecID == o.PartitionSpecID
}

// Summary aggregates the operation-level counters a snapshot carries.
type Summary struct {
	AddedDataFiles   int
	DeletedDataFiles int
	AddedRecords     int64
	DeletedRecords   int64
	Operation        string
}

// Snapshot is `{snapshotId, parentId, timestampMs, manifests, summary}`.
// The Manifests slice order is significant and preserved across merges.
type Snapshot struct {
	SnapshotID   int64
	ParentID     int64 // 0 means "no parent"
	TimestampMs  int64
	Manifests    []ManifestFile
	Summary      Summary
}
