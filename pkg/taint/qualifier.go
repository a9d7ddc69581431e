// pkg/taint/qualifier.go
package taint

import (
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Qualifier is the binary annotation external checkers understand.
// Exactly two values exist; the multi-valued lattice collapses onto
// them one-way.
type Qualifier string

const (
	QualifierUntainted Qualifier = "@Untainted"
	QualifierTainted   Qualifier = "@Tainted"
)

// QualifiedValue is the tagged representation handed to annotation
// based checkers. The tag decides everything an external checker sees;
// Level preserves the originating lattice level so FromQualifiedType
// can attempt a best-effort reconstruction. The two tags are mutually
// exclusive by construction.
type QualifiedValue struct {
	Data      any       `json:"data"`
	Qualifier Qualifier `json:"qualifier"`
	Source    Source    `json:"source,omitempty"`
	Level     Level     `json:"level,omitempty"`
	Meta      *Metadata `json:"meta,omitempty"`
}

// IsTainted reports whether the value carries the @Tainted tag.
func (q QualifiedValue) IsTainted() bool { return q.Qualifier == QualifierTainted }

// IsUntainted reports whether the value carries the @Untainted tag.
func (q QualifiedValue) IsUntainted() bool { return q.Qualifier == QualifierUntainted }

// ToQualifier collapses a lattice level onto the binary qualifier. The
// collapse is lossy and one-way: every non-bottom level, Unknown
// included, maps to @Tainted. Only the bottom family is ever considered
// untainted.
func ToQualifier(l Level) Qualifier {
	if IsBottom(l) {
		return QualifierUntainted
	}
	return QualifierTainted
}

// ToQualifiedType wraps data with the qualifier matching its level. The
// originating level rides along so the round trip loses as little as
// the binary representation allows.
func ToQualifiedType(data any, level Level, source Source, meta *Metadata) QualifiedValue {
	q := QualifiedValue{
		Data:      data,
		Qualifier: ToQualifier(level),
		Level:     normalize(level),
		Meta:      meta.clone(),
	}
	if q.IsTainted() {
		q.Source = source
	}
	return q
}

// FromQualifiedType reconstructs a lattice level from a qualified
// value. The round trip is not exact: Tainted and HighlyTainted both
// collapse to @Tainted. When a stored level is present and consistent
// with the tag it is used; without one, @Tainted reconstructs to the
// conservative Tainted rank, never toward bottom.
func FromQualifiedType(q QualifiedValue) Level {
	if q.IsUntainted() {
		return Untainted
	}
	if q.Level != "" && !IsBottom(q.Level) {
		return normalize(q.Level)
	}
	return Tainted
}

// IsAssignmentSafe reports whether a value at sourceLevel may be
// assigned into a target accepting targetLevel. Assigning a higher
// taint into a lower-taint-accepting slot is unsafe.
func IsAssignmentSafe(sourceLevel, targetLevel Level) bool {
	return LessOrEqual(sourceLevel, targetLevel)
}

// ConversionItem is one independent input to a batch conversion.
type ConversionItem struct {
	Data   any
	Level  string // level name, either naming family
	Source Source
	Meta   *Metadata
}

// ConversionError records one failed batch item; siblings are
// unaffected.
type ConversionError struct {
	Index int
	Err   error
}

func (e ConversionError) Error() string {
	return fmt.Sprintf("item %d: %v", e.Index, e.Err)
}

// convertItem performs one conversion. An unparseable level name is the
// per-item failure mode; the defensive Unknown mapping stays available
// to callers who go through ParseLevel themselves.
func convertItem(item ConversionItem) (QualifiedValue, error) {
	level, ok := ParseLevel(item.Level)
	if !ok {
		return QualifiedValue{}, fmt.Errorf("unrecognized taint level %q", item.Level)
	}
	return ToQualifiedType(item.Data, level, item.Source, item.Meta), nil
}

// BatchConvert converts every item independently. Failed items are
// skipped and collected; the batch never aborts. Result order follows
// input order with failures omitted.
func BatchConvert(items []ConversionItem) ([]QualifiedValue, []ConversionError) {
	out := make([]QualifiedValue, 0, len(items))
	var errs []ConversionError
	for i, item := range items {
		q, err := convertItem(item)
		if err != nil {
			errs = append(errs, ConversionError{Index: i, Err: err})
			continue
		}
		out = append(out, q)
	}
	return out, errs
}

// BatchConvertParallel is BatchConvert over a bounded worker pool.
// Items are independent, so each worker writes only its own index; no
// shared mutable state exists and no ordering between items is
// required. workers <= 0 selects GOMAXPROCS.
func BatchConvertParallel(items []ConversionItem, workers int) ([]QualifiedValue, []ConversionError) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	results := make([]*QualifiedValue, len(items))
	itemErrs := make([]error, len(items))

	var g errgroup.Group
	g.SetLimit(workers)
	for i := range items {
		i := i
		g.Go(func() error {
			q, err := convertItem(items[i])
			if err != nil {
				itemErrs[i] = err
				return nil
			}
			results[i] = &q
			return nil
		})
	}
	// Workers never return errors; failures are per-item.
	_ = g.Wait()

	out := make([]QualifiedValue, 0, len(items))
	var errs []ConversionError
	for i := range items {
		if itemErrs[i] != nil {
			errs = append(errs, ConversionError{Index: i, Err: itemErrs[i]})
			continue
		}
		out = append(out, *results[i])
	}
	return out, errs
}
