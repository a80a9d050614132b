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

// Package storage defines the FileIO collaborator: newInputFile,
// newOutputFile and deleteFile are the only operations the merge core
// needs from the underlying object store. Concrete backends live in
// the filestore and s3store subpackages.
package storage

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"
)

var (
	// ErrObjectDoesNotExist is returned when an object does not exist.
	ErrObjectDoesNotExist error = errors.New("the object does not exist")
	// ErrObjectAlreadyExists is returned when an object already exists.
	ErrObjectAlreadyExists error = errors.New("the object already exists")
	// ErrPutObject is returned when an object cannot be created.
	ErrPutObject error = errors.New("error while putting the object")
	// ErrGetObject is returned when an object cannot be retrieved.
	ErrGetObject error = errors.New("error while getting the object")
	// ErrHeadObject is returned when an object's metadata cannot be retrieved.
	ErrHeadObject error = errors.New("error while getting the object head")
	// ErrDeleteObject is returned when an object cannot be deleted.
	ErrDeleteObject error = errors.New("error while deleting the object")
)

// Path stores the location of an object.
type Path struct {
	Raw string
}

// NewPath creates a new Path instance.
func NewPath(raw string) Path { return Path{Raw: raw} }

// Base returns the base of a path.
func (p Path) Base() string { return filepath.Base(p.Raw) }

// Join joins two paths.
func (p Path) Join(path Path) Path { return Path{Raw: filepath.Join(p.Raw, path.Raw)} }

// ManifestPath builds the path for a manifest written under a
// caller-supplied name rather than a monotonic version number, since
// manifest file names are UUID-based and carry no ordering meaning.
func (p Path) ManifestPath(name string) string {
	return filepath.Join(p.Raw, fmt.Sprintf("%s.avro", name))
}

// ObjectMeta is the metadata that describes an object.
type ObjectMeta struct {
	Location     Path
	LastModified time.Time
	Size         int64
}

// InputFile is a handle to an existing, immutable object (manifests are
// immutable once written).
type InputFile interface {
	Path() string
	Exists() (bool, error)
	Length() (int64, error)
	// Open returns a reader positioned at the start of the object. The
	// caller must close it.
	Open() (io.ReadCloser, error)
}

// OutputFile is a handle to a not-yet-written object.
type OutputFile interface {
	Path() string
	// Create returns a writer for the object. The caller must close it;
	// the object is only guaranteed durable after Close returns nil.
	Create() (io.WriteCloser, error)
}

// FileIO is the external collaborator the merge core depends on:
// newInputFile, newOutputFile, deleteFile.
type FileIO interface {
	NewInputFile(path string) (InputFile, error)
	NewOutputFile(path string) (OutputFile, error)
	DeleteFile(path string) error
}
