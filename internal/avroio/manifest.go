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

package avroio

import (
	"fmt"
	"io"
	"strconv"

	"github.com/hamba/avro/v2/ocf"
)

// Writer streams Entry values to an Avro object container file, tracking
// per-status counters the way ManifestWriter.Close() reports them once
// the stream is sealed.
type Writer struct {
	enc      *ocf.Encoder
	closed   bool
	added    int
	existing int
	deleted  int
}

// NewWriter opens an Avro-encoded manifest writer over w, tagging the
// output with partitionSpecID. Every entry written through it belongs to
// that one partition spec.
func NewWriter(w io.Writer, partitionSpecID int32) (*Writer, error) {
	enc, err := ocf.NewEncoder(EntrySchema.String(), w,
		ocf.WithMetadata(map[string][]byte{
			MetaPartitionSpecID: []byte(strconv.Itoa(int(partitionSpecID))),
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("avroio: open writer: %w", err)
	}
	return &Writer{enc: enc}, nil
}

// Write appends one entry, tallying its status.
func (w *Writer) Write(e Entry) error {
	if w.closed {
		return fmt.Errorf("avroio: write after close")
	}
	if err := w.enc.Encode(e); err != nil {
		return fmt.Errorf("avroio: encode entry: %w", err)
	}
	switch e.Status {
	case 0:
		w.added++
	case 1:
		w.existing++
	case 2:
		w.deleted++
	}
	return nil
}

// Counts returns the (added, existing, deleted) tallies accumulated so far.
func (w *Writer) Counts() (added, existing, deleted int) {
	return w.added, w.existing, w.deleted
}

// Close flushes and closes the underlying encoder. Calls after the first
// do nothing and return nil.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.enc.Close()
}

// Reader streams Entry values back out of an Avro object container file.
type Reader struct {
	dec             *ocf.Decoder
	partitionSpecID int32
}

// NewReader opens r for reading and recovers the partition-spec-id header
// metadata written by NewWriter.
func NewReader(r io.Reader) (*Reader, error) {
	dec, err := ocf.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("avroio: open reader: %w", err)
	}
	rd := &Reader{dec: dec}
	if raw, ok := dec.Metadata()[MetaPartitionSpecID]; ok {
		if id, err := strconv.Atoi(string(raw)); err == nil {
			rd.partitionSpecID = int32(id)
		}
	}
	return rd, nil
}

// PartitionSpecID returns the spec id recorded in the file header.
func (r *Reader) PartitionSpecID() int32 { return r.partitionSpecID }

// Next returns the next entry, or io.EOF once the stream is exhausted.
func (r *Reader) Next() (Entry, error) {
	if !r.dec.HasNext() {
		if err := r.dec.Error(); err != nil {
			return Entry{}, fmt.Errorf("avroio: decode: %w", err)
		}
		return Entry{}, io.EOF
	}
	var e Entry
	if err := r.dec.Decode(&e); err != nil {
		return Entry{}, fmt.Errorf("avroio: decode entry: %w", err)
	}
	return e, nil
}
