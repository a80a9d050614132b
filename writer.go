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
	"encoding/json"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/ananddannygt/iceberg/internal/avroio"
	"github.com/ananddannygt/iceberg/storage"
)

// ManifestWriter accumulates ManifestEntry values and produces a sealed
// ManifestFile. It is the external collaborator that filtering and
// merge both use to materialize new manifests.
type ManifestWriter interface {
	// Add appends one entry. Add after Close returns ErrManifestClosed.
	Add(entry ManifestEntry) error
	// Close seals the manifest and returns its descriptor. Close is
	// idempotent: calling it twice returns the same result.
	Close() (ManifestFile, error)
}

// manifestWriter is the avroio-backed ManifestWriter implementation.
type manifestWriter struct {
	io     storage.FileIO
	out    storage.OutputFile
	enc    *avroio.Writer
	specID int32
	closed bool
	result ManifestFile
}

// NewManifestWriter opens a new manifest file under dir, named uniquely by
// a UUID (file names carry no ordering meaning), tagged with the
// partition spec every entry written to it must share.
func NewManifestWriter(fio storage.FileIO, dir string, specID int32) (ManifestWriter, error) {
	p := storage.Path{Raw: dir}
	path := p.ManifestPath(uuid.NewString())
	out, err := fio.NewOutputFile(path)
	if err != nil {
		return nil, fmt.Errorf("iceberg: new manifest output file: %w", err)
	}
	wc, err := out.Create()
	if err != nil {
		return nil, fmt.Errorf("iceberg: create manifest: %w", err)
	}
	enc, err := avroio.NewWriter(wc, specID)
	if err != nil {
		wc.Close()
		return nil, err
	}
	return &manifestWriter{io: fio, out: out, enc: enc, specID: specID}, nil
}

func (w *manifestWriter) Add(entry ManifestEntry) error {
	if w.closed {
		return ErrManifestClosed
	}
	dto, err := toAvroEntry(entry)
	if err != nil {
		return err
	}
	return w.enc.Write(dto)
}

func (w *manifestWriter) Close() (ManifestFile, error) {
	if w.closed {
		return w.result, nil
	}
	w.closed = true
	if err := w.enc.Close(); err != nil {
		return ManifestFile{}, err
	}
	added, existing, deleted := w.enc.Counts()
	length, err := manifestLength(w.io, w.out.Path())
	if err != nil {
		return ManifestFile{}, err
	}
	w.result = ManifestFile{
		Path:            w.out.Path(),
		LengthBytes:     length,
		PartitionSpecID: w.specID,
		Counts: &ManifestCounts{
			AddedFilesCount:    added,
			ExistingFilesCount: existing,
			DeletedFilesCount:  deleted,
		},
	}
	return w.result, nil
}

func manifestLength(fio storage.FileIO, path string) (int64, error) {
	in, err := fio.NewInputFile(path)
	if err != nil {
		return 0, err
	}
	return in.Length()
}

// ManifestReader streams ManifestEntry values back out of a written
// manifest. Next returns io.EOF once the stream is exhausted.
type ManifestReader interface {
	Next() (ManifestEntry, error)
	PartitionSpecID() int32
	Close() error
}

type manifestReader struct {
	rc  io.ReadCloser
	dec *avroio.Reader
}

// OpenManifestReader opens the manifest at path for reading.
func OpenManifestReader(fio storage.FileIO, path string) (ManifestReader, error) {
	in, err := fio.NewInputFile(path)
	if err != nil {
		return nil, err
	}
	rc, err := in.Open()
	if err != nil {
		return nil, err
	}
	dec, err := avroio.NewReader(rc)
	if err != nil {
		rc.Close()
		return nil, err
	}
	return &manifestReader{rc: rc, dec: dec}, nil
}

func (r *manifestReader) PartitionSpecID() int32 { return r.dec.PartitionSpecID() }

func (r *manifestReader) Close() error { return r.rc.Close() }

func (r *manifestReader) Next() (ManifestEntry, error) {
	dto, err := r.dec.Next()
	if err != nil {
		return ManifestEntry{}, err
	}
	return fromAvroEntry(dto)
}

func toAvroEntry(e ManifestEntry) (avroio.Entry, error) {
	partJSON, err := json.Marshal(e.File.Partition)
	if err != nil {
		return avroio.Entry{}, fmt.Errorf("iceberg: marshal partition: %w", err)
	}
	statsJSON, err := json.Marshal(e.File.ColumnStats)
	if err != nil {
		return avroio.Entry{}, fmt.Errorf("iceberg: marshal column stats: %w", err)
	}
	return avroio.Entry{
		Status:          int32(e.Status),
		SnapshotID:      e.SnapshotID,
		FilePath:        e.File.Path,
		PartitionJSON:   string(partJSON),
		RecordCount:     int64(e.File.RecordCount),
		FileSizeBytes:   int64(e.File.FileSizeBytes),
		ColumnStatsJSON: string(statsJSON),
	}, nil
}

func fromAvroEntry(dto avroio.Entry) (ManifestEntry, error) {
	var partition PartitionTuple
	if err := json.Unmarshal([]byte(dto.PartitionJSON), &partition); err != nil {
		return ManifestEntry{}, fmt.Errorf("iceberg: unmarshal partition: %w", err)
	}
	var stats map[string]ColumnStat
	if err := json.Unmarshal([]byte(dto.ColumnStatsJSON), &stats); err != nil {
		return ManifestEntry{}, fmt.Errorf("iceberg: unmarshal column stats: %w", err)
	}
	return ManifestEntry{
		Status:     EntryStatus(dto.Status),
		SnapshotID: dto.SnapshotID,
		File: DataFile{
			Path:          dto.FilePath,
			Partition:     partition,
			RecordCount:   uint64(dto.RecordCount),
			FileSizeBytes: uint64(dto.FileSizeBytes),
			ColumnStats:   stats,
		},
	}, nil
}
