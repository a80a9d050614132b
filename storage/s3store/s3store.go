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

// Package s3store is an S3-backed storage.FileIO.
package s3store

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/ananddannygt/iceberg/storage"
)

// API is the subset of the S3 client this package needs, so tests can
// supply a fake without pulling in the full AWS SDK surface.
type API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, opts ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Store implements storage.FileIO against an S3 bucket.
type Store struct {
	Client API
	bucket string
	prefix string
}

var _ storage.FileIO = (*Store)(nil)

// New returns a Store over baseURI, an s3://bucket/prefix URL.
func New(client API, baseURI storage.Path) (*Store, error) {
	u, err := url.Parse(baseURI.Raw)
	if err != nil {
		return nil, err
	}
	return &Store{
		Client: client,
		bucket: u.Host,
		prefix: strings.TrimPrefix(u.Path, "/"),
	}, nil
}

func (s *Store) key(path string) (string, error) {
	return url.JoinPath(s.prefix, path)
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
	key, err := s.key(path)
	if err != nil {
		return err
	}
	_, err = s.Client.DeleteObject(context.Background(), &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return errors.Join(storage.ErrDeleteObject, err)
	}
	return nil
}

func isNotFound(err error) bool {
	var re *awshttp.ResponseError
	return errors.As(err, &re) && re.HTTPStatusCode() == http.StatusNotFound
}

type inputFile struct {
	store *Store
	path  string
}

func (f *inputFile) Path() string { return f.path }

func (f *inputFile) Exists() (bool, error) {
	_, err := f.head()
	if err == nil {
		return true, nil
	}
	if errors.Is(err, storage.ErrObjectDoesNotExist) {
		return false, nil
	}
	return false, err
}

func (f *inputFile) head() (*s3.HeadObjectOutput, error) {
	key, err := f.store.key(f.path)
	if err != nil {
		return nil, err
	}
	out, err := f.store.Client.HeadObject(context.Background(), &s3.HeadObjectInput{
		Bucket: aws.String(f.store.bucket),
		Key:    aws.String(key),
	})
	if isNotFound(err) {
		return nil, errors.Join(storage.ErrObjectDoesNotExist, err)
	}
	if err != nil {
		return nil, errors.Join(storage.ErrHeadObject, err)
	}
	return out, nil
}

func (f *inputFile) Length() (int64, error) {
	out, err := f.head()
	if err != nil {
		return 0, err
	}
	return out.ContentLength, nil
}

func (f *inputFile) Open() (io.ReadCloser, error) {
	key, err := f.store.key(f.path)
	if err != nil {
		return nil, err
	}
	out, err := f.store.Client.GetObject(context.Background(), &s3.GetObjectInput{
		Bucket: aws.String(f.store.bucket),
		Key:    aws.String(key),
	})
	if isNotFound(err) {
		return nil, errors.Join(storage.ErrObjectDoesNotExist, err)
	}
	if err != nil {
		return nil, errors.Join(storage.ErrGetObject, err)
	}
	return out.Body, nil
}

type outputFile struct {
	store *Store
	path  string
}

func (f *outputFile) Path() string { return f.path }

// Create buffers the write in memory and issues a single PutObject on
// Close, since S3 has no append/random-access write model. Manifests are
// written once and in full, so this matches how they're produced.
func (f *outputFile) Create() (io.WriteCloser, error) {
	return &s3Writer{file: f}, nil
}

type s3Writer struct {
	file *outputFile
	buf  bytes.Buffer
}

func (w *s3Writer) Write(p []byte) (int, error) { return w.buf.Write(p) }

func (w *s3Writer) Close() error {
	key, err := w.file.store.key(w.file.path)
	if err != nil {
		return err
	}
	_, err = w.file.store.Client.PutObject(context.Background(), &s3.PutObjectInput{
		Bucket: aws.String(w.file.store.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(w.buf.Bytes()),
	})
	if err != nil {
		return errors.Join(storage.ErrPutObject, err)
	}
	return nil
}
