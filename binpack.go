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

import "golang.org/x/exp/slices"

// PackEnd packs items into bins whose aggregate weight is <= target,
// processing items from the end of the slice backward. Lookback=1 means
// each item is only ever compared against the currently-open bin, so no
// reordering occurs: concatenating the returned bins in order reproduces
// items exactly.
//
// The under-filled bin ends up first in the result, which is
// intentional: it's the bin a later merge pass will reconsider once more
// manifests accumulate.
func PackEnd[T any](items []T, weight func(T) int64, target int64) [][]T {
	if len(items) == 0 {
		return nil
	}

	var bins [][]T
	var current []T
	var currentWeight int64

	for i := len(items) - 1; i >= 0; i-- {
		item := items[i]
		w := weight(item)
		if len(current) > 0 && currentWeight+w > target {
			slices.Reverse(current)
			bins = append(bins, current)
			current = nil
			currentWeight = 0
		}
		current = append(current, item)
		currentWeight += w
	}
	if len(current) > 0 {
		slices.Reverse(current)
		bins = append(bins, current)
	}

	slices.Reverse(bins)
	return bins
}
