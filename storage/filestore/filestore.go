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

// Package filestore is a local-disk storage.FileIO, used for tests and for
// single-writer setups that don't need a networked object store.
package filestore

import (
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/ananddannygt/iceberg/storage"
)

// Store implements storage.FileIO against the local filesystem.
type Store struct {
	baseURI storage.Path
}

var _ storage.FileIO = (*Store)(nil)

// New returns a Store rooted at baseURI.
func New(baseURI storage.Path) *Store {
	return &Store{baseURI: baseURI}
}

func (s *Store) fullPath(p string) string {
	return filepath.Join(s.baseURI.Raw, p)
}

// NewInputFile implements storage.FileIO.
func (s *Store) NewInputFile(path string) (storage.InputFile, error) {
	return &inputFile{store: s, path: path}, nil
}

// NewOutputFile implements storage.FileIO.
func (s *Store) NewOutputFile(path string) (storage.OutputFile, error) {
	return &outputFile{store: s, path: path}, nil
}

// DeleteFile implements storage.FileIO.
func (s *Store) DeleteFile(path string) error {
	if err := os.Remove(s.fullPath(path)); err != nil {
		if os.IsNotExist(err) {
			return errors.Join(storage.ErrObjectDoesNotExist, err)
		}
		return errors.Join(storage.ErrDeleteObject, err)
	}
	return nil
}

type inputFile struct {
	store *Store
	path  string
}

func (f *inputFile) Path() string { return f.path }

func (f *inputFile) Exists() (bool, error) {
	_, err := os.Stat(f.store.fullPath(f.path))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, errors.Join(storage.ErrHeadObject, err)
}

func (f *inputFile) Length() (int64, error) {
	info, err := os.Stat(f.store.fullPath(f.path))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, errors.Join(storage.ErrObjectDoesNotExist, err)
		}
		return 0, errors.Join(storage.ErrHeadObject, err)
	}
	return info.Size(), nil
}

func (f *inputFile) Open() (io.ReadCloser, error) {
	rc, err := os.Open(f.store.fullPath(f.path))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Join(storage.ErrObjectDoesNotExist, err)
		}
		return nil, errors.Join(storage.ErrGetObject, err)
	}
	return rc, nil
}

type outputFile struct {
	store *Store
	path  string
}

func (f *outputFile) Path() string { return f.path }

func (f *outputFile) Create() (io.WriteCloser, error) {
	full := f.store.fullPath(f.path)
	if err := os.MkdirAll(filepath.Dir(full), 0700); err != nil {
		return nil, errors.Join(storage.ErrPutObject, err)
	}
	wc, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		if os.IsExist(err) {
			return nil, errors.Join(storage.ErrObjectAlreadyExists, err)
		}
		return nil, errors.Join(storage.ErrPutObject, err)
	}
	return wc, nil
}
