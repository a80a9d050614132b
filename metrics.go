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
	"github.com/apache/arrow/go/v14/arrow/decimal128"
	"github.com/apache/arrow/go/v14/arrow/float16"
)

// MetricsEvaluator proves whether every row of a DataFile matches a
// predicate, using only that file's column-level statistics. It never
// has false positives: true means the statistics prove every row
// matches; false means no such proof was found, though the rows may
// still all match.
type MetricsEvaluator interface {
	// AllRowsMatch reports whether the column statistics on file prove
	// that every row in the file satisfies the evaluator's predicate.
	AllRowsMatch(file DataFile) bool
}

// StrictMetricsEvaluator is bound to a delete predicate and proves
// full-row-match using per-column min/max/null-count bounds. Only
// single-column Cmp predicates (and their AND/OR combinations) are
// supported; anything else, NOT included, conservatively answers false, since
// expression evaluation here is consumed through fixed interfaces rather
// than re-derived from a general evaluator.
type StrictMetricsEvaluator struct {
	predicate Predicate
}

// NewStrictMetricsEvaluator binds an evaluator to the predicate driving a
// delete. The table schema itself is not needed here because ColumnStat
// values already carry typed Go values.
func NewStrictMetricsEvaluator(predicate Predicate) *StrictMetricsEvaluator {
	return &StrictMetricsEvaluator{predicate: predicate}
}

// AllRowsMatch implements MetricsEvaluator.
func (e *StrictMetricsEvaluator) AllRowsMatch(file DataFile) bool {
	return metricsProve(e.predicate, file)
}

func metricsProve(p Predicate, file DataFile) bool {
	switch v := p.(type) {
	case predTrue:
		return true
	case predFalse:
		return false
	case And:
		return metricsProve(v.Left, file) && metricsProve(v.Right, file)
	case Or:
		// Proving one branch fully matches the file is sufficient for
		// the OR to fully match.
		return metricsProve(v.Left, file) || metricsProve(v.Right, file)
	case Cmp:
		return metricsProveCmp(v, file)
	default:
		return false
	}
}

func metricsProveCmp(c Cmp, file DataFile) bool {
	stat, ok := file.ColumnStats[c.Column]
	if !ok {
		return false
	}
	if stat.NullCount > 0 {
		// A null value never satisfies (or fails) an ordered comparison
		// the way this evaluator reasons about it; treat any nulls as
		// breaking the "every row matches" proof.
		return false
	}
	if stat.Min == nil || stat.Max == nil {
		return false
	}
	min, minOK := compareValue(stat.Min)
	max, maxOK := compareValue(stat.Max)
	if !minOK || !maxOK {
		return false
	}
	lit, litOK := compareValue(c.Literal)
	if !litOK {
		return false
	}
	switch c.Op {
	case CmpLt:
		return max < lit
	case CmpLtEq:
		return max <= lit
	case CmpGt:
		return min > lit
	case CmpGtEq:
		return min >= lit
	case CmpEq:
		return min == max && min == lit
	case CmpNotEq:
		return max < lit || min > lit
	default:
		return false
	}
}

// compareValue normalizes the handful of scalar kinds ColumnStat.Min/Max
// may carry — including the Arrow decimal128/float16 types produced when
// column statistics are derived from an Arrow-backed reader — to a single
// comparable float64 domain.
func compareValue(v any) (float64, bool) {
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
	case float16.Num:
		return float64(n.Float32()), true
	case decimal128.Num:
		return n.ToFloat64(0), true
	default:
		return 0, false
	}
}
