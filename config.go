// Copyright 2023 Rivian Automotive, Inc.
// Licensed under the Apache License, Version 2.0 (the “License”);
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an “AS IS” BASIS
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package iceberg

import (
	"strconv"
)

// ConfigKey represents a table property recognized by this package.
type ConfigKey string

const (
	// ManifestTargetSizeBytesKey bounds the aggregate size of a bin
	// produced by the BinPacker. Default 8 MiB.
	ManifestTargetSizeBytesKey ConfigKey = "commit.manifest.target-size-bytes"
	// ManifestMinCountToMergeKey is the minimum bin size, when the bin
	// holds the in-memory new-files manifest, before MergeGroupProcessor
	// will rewrite it. Default 100.
	ManifestMinCountToMergeKey ConfigKey = "commit.manifest.min-count-to-merge"
)

const (
	defaultManifestTargetSizeBytes int64 = 8 * 1024 * 1024
	defaultManifestMinCountToMerge int   = 100
)

// Properties is the flattened table-property map surfaced by
// TableMetadata.Properties.
type Properties map[string]string

// AsLong returns the property parsed as an int64, or defaultValue if the
// key is absent or unparsable. Mirrors TableOperations.propertyAsLong.
func (p Properties) AsLong(key ConfigKey, defaultValue int64) int64 {
	raw, ok := p[string(key)]
	if !ok {
		return defaultValue
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return defaultValue
	}
	return v
}

// AsInt returns the property parsed as an int, or defaultValue if the key
// is absent or unparsable. Mirrors TableOperations.propertyAsInt.
func (p Properties) AsInt(key ConfigKey, defaultValue int) int {
	return int(p.AsLong(key, int64(defaultValue)))
}

// TargetManifestSizeBytes returns the configured BinPacker target,
// falling back to the 8 MiB default.
func (p Properties) TargetManifestSizeBytes() int64 {
	return p.AsLong(ManifestTargetSizeBytesKey, defaultManifestTargetSizeBytes)
}

// MinManifestsCountToMerge returns the configured merge threshold,
// falling back to the default of 100.
func (p Properties) MinManifestsCountToMerge() int {
	return p.AsInt(ManifestMinCountToMergeKey, defaultManifestMinCountToMerge)
}
