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

// TableMetadata is the consumed view of table state an update needs:
// partition specs by id, the current spec, the current snapshot, and
// configuration properties. Schema itself isn't needed here since
// expression evaluation is consumed through fixed interfaces (Predicate,
// MetricsEvaluator), not re-derived from it.
type TableMetadata interface {
	Spec(specID int32) (PartitionSpec, bool)
	CurrentSpec() PartitionSpec
	CurrentSnapshot() *Snapshot
	Properties() Properties
}

// StaticMetadata is a simple in-memory TableMetadata, sufficient for a
// single catalog-driven table handle. catalog.Table does not hold one; a
// TableOperations.Refresh implementation can return one.
type StaticMetadata struct {
	Specs       map[int32]PartitionSpec
	CurrentSpecID int32
	Snapshot    *Snapshot
	Props       Properties
}

func (m *StaticMetadata) Spec(specID int32) (PartitionSpec, bool) {
	s, ok := m.Specs[specID]
	return s, ok
}

func (m *StaticMetadata) CurrentSpec() PartitionSpec { return m.Specs[m.CurrentSpecID] }

func (m *StaticMetadata) CurrentSnapshot() *Snapshot { return m.Snapshot }

func (m *StaticMetadata) Properties() Properties { return m.Props }
