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

import (
	"fmt"
	"sync"

	"golang.org/x/exp/maps"
)

// DeletePredicateProjector projects a row predicate to inclusive/strict
// partition predicates for a given PartitionSpec. Both projections are
// pure functions of (predicate, spec); results are cached per specId for
// reuse across many manifests.
type DeletePredicateProjector struct {
	mu    sync.Mutex
	cache map[int32]map[Predicate]projection
}

type projection struct {
	inclusive PartitionPredicate
	strict    PartitionPredicate
}

// PartitionPredicate evaluates over a partition tuple rather than a row.
type PartitionPredicate func(PartitionTuple) bool

// NewDeletePredicateProjector returns a projector with an empty cache.
func NewDeletePredicateProjector() *DeletePredicateProjector {
	return &DeletePredicateProjector{cache: make(map[int32]map[Predicate]projection)}
}

// Project returns (inclusive, strict) partition predicates for p under
// spec, satisfying strict ⇒ inclusive.
func (dp *DeletePredicateProjector) Project(p Predicate, spec PartitionSpec) (PartitionPredicate, PartitionPredicate) {
	dp.mu.Lock()
	bySpec, ok := dp.cache[spec.SpecID]
	if !ok {
		bySpec = make(map[Predicate]projection)
		dp.cache[spec.SpecID] = bySpec
	}
	if proj, ok := bySpec[p]; ok {
		dp.mu.Unlock()
		return proj.inclusive, proj.strict
	}
	dp.mu.Unlock()

	inclusive, strict := projectPredicate(p, spec)

	dp.mu.Lock()
	bySpec[p] = projection{inclusive: inclusive, strict: strict}
	dp.mu.Unlock()

	return inclusive, strict
}

// CachedSpecIDs returns the partition spec ids this projector currently
// holds a projection cache for, in no particular order.
func (dp *DeletePredicateProjector) CachedSpecIDs() []int32 {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	return maps.Keys(dp.cache)
}

func projectPredicate(p Predicate, spec PartitionSpec) (PartitionPredicate, PartitionPredicate) {
	switch v := p.(type) {
	case predTrue:
		return alwaysTruePartition, alwaysTruePartition
	case predFalse:
		return alwaysFalsePartition, alwaysFalsePartition
	case And:
		li, ls := projectPredicate(v.Left, spec)
		ri, rs := projectPredicate(v.Right, spec)
		return andPartition(li, ri), andPartition(ls, rs)
	case Or:
		li, ls := projectPredicate(v.Left, spec)
		ri, rs := projectPredicate(v.Right, spec)
		_ = ls
		_ = rs
		// Under-approximating an OR's strict projection as the union of
		// per-branch strict predicates is unsound in general (a partition
		// could satisfy the disjunction row-wise without any single
		// branch being universally true for that partition), so the
		// strict side conservatively degrades to false; inclusive is the
		// sound union.
		return orPartition(li, ri), alwaysFalsePartition
	case Not:
		i, s := projectPredicate(v.Inner, spec)
		// Negating an inclusive projection is not sound as a strict
		// projection and vice versa; conservatively degrade both.
		_ = i
		_ = s
		return alwaysTruePartition, alwaysFalsePartition
	case Cmp:
		return projectCmp(v, spec)
	default:
		return alwaysTruePartition, alwaysFalsePartition
	}
}

func alwaysTruePartition(PartitionTuple) bool  { return true }
func alwaysFalsePartition(PartitionTuple) bool { return false }

func andPartition(a, b PartitionPredicate) PartitionPredicate {
	return func(t PartitionTuple) bool { return a(t) && b(t) }
}

func orPartition(a, b PartitionPredicate) PartitionPredicate {
	return func(t PartitionTuple) bool { return a(t) || b(t) }
}

// projectCmp pushes a single-column comparison through every partition
// field sourced from that column. Only Identity projects the comparison
// itself, on both the inclusive and the strict side; every other
// transform (Bucket, Truncate, Year/Month/Day/Hour, Void) is treated as
// inclusive-only for every operator, equality included.
func projectCmp(c Cmp, spec PartitionSpec) (PartitionPredicate, PartitionPredicate) {
	inclusive := alwaysTruePartition
	strict := alwaysTruePartition
	matched := false
	for _, f := range spec.Fields {
		if f.SourceColumn != c.Column {
			continue
		}
		matched = true
		fi, fs := projectField(c, f)
		inclusive = andPartition(inclusive, fi)
		strict = andPartition(strict, fs)
	}
	if !matched {
		// The predicate's column isn't part of this spec: every
		// partition might contain a matching row (inclusive=true), but
		// we can't prove every row in a partition matches (strict=false).
		return alwaysTruePartition, alwaysFalsePartition
	}
	return inclusive, strict
}

func projectField(c Cmp, f PartitionField) (PartitionPredicate, PartitionPredicate) {
	name := f.Name
	switch f.Transform.Kind {
	case TransformIdentity:
		return func(t PartitionTuple) bool { return compareAny(t[name], c.Op, c.Literal) },
			func(t PartitionTuple) bool { return compareAny(t[name], c.Op, c.Literal) }
	case TransformVoid:
		// Void always projects to null; no partition value can prove or
		// disprove anything about the source column.
		return alwaysTruePartition, alwaysFalsePartition
	default:
		// Bucket/Truncate/time transforms are lossy: the partition value
		// alone under-determines the source value except at equality on
		// a transform whose input the predicate's literal maps to
		// exactly. Conservatively treat as inclusive-only.
		return alwaysTruePartition, alwaysFalsePartition
	}
}

func compareAny(a any, op CmpOp, b any) bool {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		switch op {
		case CmpEq:
			return af == bf
		case CmpNotEq:
			return af != bf
		case CmpLt:
			return af < bf
		case CmpLtEq:
			return af <= bf
		case CmpGt:
			return af > bf
		case CmpGtEq:
			return af >= bf
		}
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		switch op {
		case CmpEq:
			return as == bs
		case CmpNotEq:
			return as != bs
		case CmpLt:
			return as < bs
		case CmpLtEq:
			return as <= bs
		case CmpGt:
			return as > bs
		case CmpGtEq:
			return as >= bs
		}
	}
	return false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// String implements fmt.Stringer so a Predicate can be embedded in
// CannotDeletePartialError without an extra adaptor.
var _ fmt.Stringer = predTrue{}
