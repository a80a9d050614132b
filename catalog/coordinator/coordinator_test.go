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

package coordinator

import (
	"testing"

	"github.com/ananddannygt/iceberg/storage"
)

func TestPutIfAbsentRejectsDuplicateSnapshotID(t *testing.T) {
	c := NewInMemory()
	table := storage.NewPath("s3://bucket/table")

	first := New(table, storage.NewPath("s3://bucket/table/metadata/1.json"), 1)
	ok, err := c.PutIfAbsent(first)
	if err != nil {
		t.Fatalf("PutIfAbsent: %v", err)
	}
	if !ok {
		t.Fatal("expected the first registration to succeed")
	}

	second := New(table, storage.NewPath("s3://bucket/table/metadata/1-retry.json"), 1)
	ok, err = c.PutIfAbsent(second)
	if err != nil {
		t.Fatalf("PutIfAbsent: %v", err)
	}
	if ok {
		t.Error("expected a duplicate snapshot id registration to be rejected")
	}
}

func TestPutIfAbsentAllowsDistinctSnapshotIDs(t *testing.T) {
	c := NewInMemory()
	table := storage.NewPath("s3://bucket/table")

	if ok, err := c.PutIfAbsent(New(table, storage.NewPath("m1.json"), 1)); err != nil || !ok {
		t.Fatalf("PutIfAbsent(1): ok=%v err=%v", ok, err)
	}
	if ok, err := c.PutIfAbsent(New(table, storage.NewPath("m2.json"), 2)); err != nil || !ok {
		t.Fatalf("PutIfAbsent(2): ok=%v err=%v", ok, err)
	}
}

func TestGetReturnsRegisteredEntry(t *testing.T) {
	c := NewInMemory()
	table := storage.NewPath("s3://bucket/table")
	entry := New(table, storage.NewPath("m1.json"), 5)
	if _, err := c.PutIfAbsent(entry); err != nil {
		t.Fatalf("PutIfAbsent: %v", err)
	}

	got, ok, err := c.Get(table, 5)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatal("expected the entry to be found")
	}
	if got.SnapshotID() != 5 || got.MetadataPath().Raw != "m1.json" {
		t.Errorf("unexpected entry: %+v", got)
	}
}

func TestGetMissesUnknownSnapshotID(t *testing.T) {
	c := NewInMemory()
	table := storage.NewPath("s3://bucket/table")
	_, ok, err := c.Get(table, 999)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Error("expected no entry for an unregistered snapshot id")
	}
}

func TestMarkCompleteReplacesEntryWithCompletedForm(t *testing.T) {
	c := NewInMemory()
	table := storage.NewPath("s3://bucket/table")
	entry := New(table, storage.NewPath("m1.json"), 7)
	if _, err := c.PutIfAbsent(entry); err != nil {
		t.Fatalf("PutIfAbsent: %v", err)
	}
	if entry.IsComplete() {
		t.Fatal("expected a freshly created entry to be incomplete")
	}

	if err := c.MarkComplete(entry, 3600); err != nil {
		t.Fatalf("MarkComplete: %v", err)
	}

	got, ok, err := c.Get(table, 7)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatal("expected the completed entry to still be retrievable")
	}
	if !got.IsComplete() {
		t.Error("expected the registered entry to be replaced with its completed form")
	}
	if got.ExpirationTime() == 0 {
		t.Error("expected a completed entry to carry a non-zero expiration time")
	}
	if entry.IsComplete() {
		t.Error("Complete should return a copy, leaving the original entry untouched")
	}
}
