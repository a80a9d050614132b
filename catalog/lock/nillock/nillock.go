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
package nillock

import (
	"github.com/ananddannygt/iceberg/catalog/lock"
)

// NilLock implements lock.Locker without backing storage, for use when
// exactly one process is writing a table and locking is unnecessary.
//
// WARNING: it provides no concurrency support and must be used from a
// single goroutine only. If another writer touches the same table
// concurrently, commits can be silently overwritten.
type NilLock struct {
}

var _ lock.Locker = (*NilLock)(nil)

func (*NilLock) NewLock(key string) (lock.Locker, error) {
	return new(NilLock), nil
}

func New() *NilLock {
	return new(NilLock)
}

// Does nothing
func (*NilLock) Unlock() error {
	return nil
}

// Always returns true
func (*NilLock) TryLock() (bool, error) {
	return true, nil
}
