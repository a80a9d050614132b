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
package filestore

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/ananddannygt/iceberg/storage"
)

func writeFile(t *testing.T, store *Store, path, contents string) {
	t.Helper()
	out, err := store.NewOutputFile(path)
	if err != nil {
		t.Fatalf("NewOutputFile: %v", err)
	}
	wc, err := out.Create()
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := wc.Write([]byte(contents)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := wc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestOutputFileCreate(t *testing.T) {
	tmpDir := t.TempDir()
	store := New(storage.NewPath(tmpDir))

	writeFile(t, store, "test_file.json", "some data")

	data, err := os.ReadFile(filepath.Join(tmpDir, "test_file.json"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "some data" {
		t.Errorf("file has %q, want %q", data, "some data")
	}
}

func TestOutputFileCreateMakesParentDirs(t *testing.T) {
	tmpDir := t.TempDir()
	store := New(storage.NewPath(tmpDir))

	writeFile(t, store, "manifests/nested/a.avro", "data")

	if _, err := os.Stat(filepath.Join(tmpDir, "manifests/nested/a.avro")); err != nil {
		t.Errorf("expected file to exist: %v", err)
	}
}

func TestOutputFileCreateRefusesOverwrite(t *testing.T) {
	tmpDir := t.TempDir()
	store := New(storage.NewPath(tmpDir))

	writeFile(t, store, "data.json", "some data")

	out, err := store.NewOutputFile("data.json")
	if err != nil {
		t.Fatalf("NewOutputFile: %v", err)
	}
	_, err = out.Create()
	if !errors.Is(err, storage.ErrObjectAlreadyExists) {
		t.Errorf("Create error = %v, want ErrObjectAlreadyExists", err)
	}
}

func TestInputFileExistsAndLength(t *testing.T) {
	tmpDir := t.TempDir()
	store := New(storage.NewPath(tmpDir))

	in, err := store.NewInputFile("test_file.json")
	if err != nil {
		t.Fatalf("NewInputFile: %v", err)
	}

	exists, err := in.Exists()
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if exists {
		t.Error("expected Exists to be false before write")
	}

	writeFile(t, store, "test_file.json", "some data")

	exists, err = in.Exists()
	if err != nil || !exists {
		t.Fatalf("Exists = %v, %v; want true, nil", exists, err)
	}

	length, err := in.Length()
	if err != nil || length != int64(len("some data")) {
		t.Fatalf("Length = %d, %v; want 9, nil", length, err)
	}
}

func TestInputFileOpen(t *testing.T) {
	tmpDir := t.TempDir()
	store := New(storage.NewPath(tmpDir))
	writeFile(t, store, "data.json", "some data")

	in, err := store.NewInputFile("data.json")
	if err != nil {
		t.Fatalf("NewInputFile: %v", err)
	}
	rc, err := in.Open()
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(data) != "some data" {
		t.Errorf("got %q, want %q", data, "some data")
	}
}

func TestInputFileOpenMissing(t *testing.T) {
	tmpDir := t.TempDir()
	store := New(storage.NewPath(tmpDir))

	in, err := store.NewInputFile("missing.json")
	if err != nil {
		t.Fatalf("NewInputFile: %v", err)
	}
	_, err = in.Open()
	if !errors.Is(err, storage.ErrObjectDoesNotExist) {
		t.Errorf("Open error = %v, want ErrObjectDoesNotExist", err)
	}
}

func TestDeleteFile(t *testing.T) {
	tmpDir := t.TempDir()
	store := New(storage.NewPath(tmpDir))
	writeFile(t, store, "data.json", "some data")

	if err := store.DeleteFile("data.json"); err != nil {
		t.Fatalf("DeleteFile: %v", err)
	}
	if _, err := os.Stat(filepath.Join(tmpDir, "data.json")); !os.IsNotExist(err) {
		t.Errorf("expected file to be removed, stat err = %v", err)
	}

	err := store.DeleteFile("data.json")
	if !errors.Is(err, storage.ErrObjectDoesNotExist) {
		t.Errorf("DeleteFile on missing file error = %v, want ErrObjectDoesNotExist", err)
	}
}
