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

// CleanUncommitted deletes every output file this update produced that
// did not make it into the committed manifest set, without touching any
// committed file. It is safe to call after any terminal outcome,
// successful or not.
func (u *SnapshotUpdate) CleanUncommitted(committed map[string]struct{}) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.newManifestPath != "" {
		if _, ok := committed[u.newManifestPath]; !ok {
			if err := u.fio.DeleteFile(u.newManifestPath); err != nil {
				return err
			}
			u.newManifestPath = ""
			u.newManifest = nil
			u.hasNewFiles = len(u.newFiles) > 0
		}
	}

	for entry := range u.mergeManifests.IterBuffered() {
		if _, ok := committed[entry.Val.Path]; !ok {
			if err := u.fio.DeleteFile(entry.Val.Path); err != nil {
				return err
			}
			u.mergeManifests.Remove(entry.Key)
		}
	}

	for entry := range u.filteredManifests.IterBuffered() {
		inputPath, output := entry.Key, entry.Val
		if _, ok := committed[output.Path]; !ok && output.Path != inputPath {
			if err := u.fio.DeleteFile(output.Path); err != nil {
				return err
			}
		}
		u.filteredManifests.Remove(entry.Key)
	}

	return nil
}
