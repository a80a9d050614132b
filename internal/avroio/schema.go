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

// Package avroio is the concrete, on-disk encoding for manifest entry
// streams. It is grounded on the real Iceberg manifest-list Avro schema
// (see apache-iceberg-go's internal package) but flattens
// DataFile.Partition/ColumnStats to JSON side-fields rather than a
// fully-typed nested Avro union, since the partition/column structure is
// only known at the SnapshotUpdate layer, not here.
package avroio

import "github.com/hamba/avro/v2"

const entrySchemaJSON = `{
	"type": "record",
	"name": "manifest_entry",
	"namespace": "iceberg.avroio",
	"fields": [
		{"name": "status", "type": "int", "doc": "0=ADDED 1=EXISTING 2=DELETED"},
		{"name": "snapshot_id", "type": "long"},
		{"name": "file_path", "type": "string"},
		{"name": "partition_json", "type": "string"},
		{"name": "record_count", "type": "long"},
		{"name": "file_size_bytes", "type": "long"},
		{"name": "column_stats_json", "type": "string"}
	]
}`

// EntrySchema is the Avro record schema for one ManifestEntry.
var EntrySchema = avro.MustParse(entrySchemaJSON)

// Entry is the Avro-tagged wire representation of a ManifestEntry. The
// iceberg package's writer.go converts to/from this at the
// package boundary so this package never depends on the root package's
// types (avoiding an import cycle with the component that consumes it).
type Entry struct {
	Status          int32  `avro:"status"`
	SnapshotID      int64  `avro:"snapshot_id"`
	FilePath        string `avro:"file_path"`
	PartitionJSON   string `avro:"partition_json"`
	RecordCount     int64  `avro:"record_count"`
	FileSizeBytes   int64  `avro:"file_size_bytes"`
	ColumnStatsJSON string `avro:"column_stats_json"`
}

// Metadata keys stashed in the Avro OCF file header, mirroring the
// "partition-spec-id"/"snapshot-id" header metadata real Iceberg manifests
// carry (see apache-iceberg-go's ocf.WithMetadata usage).
const (
	MetaPartitionSpecID = "partition-spec-id"
)
