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

import "fmt"

// CmpOp is a row-predicate comparison operator.
type CmpOp int

const (
	CmpEq CmpOp = iota
	CmpNotEq
	CmpLt
	CmpLtEq
	CmpGt
	CmpGtEq
)

// Predicate is a row-level expression. Full expression parsing and schema
// evolution are out of scope — this is the minimal sum type
// DeletePredicateProjector and StrictMetricsEvaluator need: literal
// true/false, boolean combinators, and a single-column comparison
// against a literal.
type Predicate interface {
	isPredicate()
	String() string
}

type predTrue struct{}
type predFalse struct{}

func (predTrue) isPredicate()  {}
func (predFalse) isPredicate() {}
func (predTrue) String() string  { return "true" }
func (predFalse) String() string { return "false" }

// AlwaysTrue is the predicate that matches every row.
var AlwaysTrue Predicate = predTrue{}

// AlwaysFalse is the predicate that matches no row; it is the initial
// value of SnapshotUpdate.deleteExpression.
var AlwaysFalse Predicate = predFalse{}

// And is the conjunction of two predicates.
type And struct{ Left, Right Predicate }

func (And) isPredicate() {}
func (p And) String() string { return fmt.Sprintf("(%s AND %s)", p.Left, p.Right) }

// Or is the disjunction of two predicates. deleteExpression is extended
// by OR via this constructor.
type Or struct{ Left, Right Predicate }

func (Or) isPredicate() {}
func (p Or) String() string { return fmt.Sprintf("(%s OR %s)", p.Left, p.Right) }

// Not negates a predicate.
type Not struct{ Inner Predicate }

func (Not) isPredicate() {}
func (p Not) String() string { return fmt.Sprintf("NOT (%s)", p.Inner) }

// Cmp compares a source column against a literal, e.g. `x < 10`.
type Cmp struct {
	Column  string
	Op      CmpOp
	Literal any
}

func (Cmp) isPredicate() {}
func (p Cmp) String() string {
	ops := map[CmpOp]string{CmpEq: "=", CmpNotEq: "!=", CmpLt: "<", CmpLtEq: "<=", CmpGt: ">", CmpGtEq: ">="}
	return fmt.Sprintf("%s %s %v", p.Column, ops[p.Op], p.Literal)
}

// OrPredicate ORs addition into an accumulator, treating a nil/AlwaysFalse
// accumulator as the identity element. Used by
// SnapshotUpdate.DeleteByRowFilter.
func OrPredicate(acc, addition Predicate) Predicate {
	if acc == nil || acc == AlwaysFalse {
		return addition
	}
	if addition == nil || addition == AlwaysFalse {
		return acc
	}
	return Or{Left: acc, Right: addition}
}

// IsAlwaysFalse reports whether p is (or reduces trivially to) AlwaysFalse
// — used for the ManifestFilter fast path.
func IsAlwaysFalse(p Predicate) bool {
	if p == nil {
		return true
	}
	_, ok := p.(predFalse)
	return ok
}
