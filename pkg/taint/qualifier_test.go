// pkg/taint/qualifier_test.go
package taint_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/sasakama-code/taintcore/pkg/taint"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestToQualifier_TotalOverAllLevels(t *testing.T) {
	for _, l := range allLevels {
		q := taint.ToQualifier(l)
		if taint.IsBottom(l) {
			assert.Equal(t, taint.QualifierUntainted, q, "level %s", l)
		} else {
			assert.Equal(t, taint.QualifierTainted, q, "level %s", l)
		}
	}

	// Unrecognized levels collapse through the defensive Unknown
	// mapping, so they tag tainted.
	assert.Equal(t, taint.QualifierTainted, taint.ToQualifier(taint.Level("MYSTERY")))
}

func TestToQualifiedType_SourceOnlyWhenTainted(t *testing.T) {
	clean := taint.ToQualifiedType("ok", taint.Untainted, taint.SourceUserInput, nil)
	assert.True(t, clean.IsUntainted())
	assert.Empty(t, clean.Source, "an untainted value carries no provenance")

	dirty := taint.ToQualifiedType("attack", taint.Tainted, taint.SourceUserInput, nil)
	assert.True(t, dirty.IsTainted())
	assert.Equal(t, taint.SourceUserInput, dirty.Source)
	assert.Equal(t, taint.Tainted, dirty.Level)
}

func TestFromQualifiedType_RoundTripNeverLosesTaint(t *testing.T) {
	for _, l := range allLevels {
		q := taint.ToQualifiedType(nil, l, taint.SourceNetwork, nil)
		back := taint.FromQualifiedType(q)

		if taint.IsBottom(l) {
			assert.Equal(t, taint.Untainted, back, "level %s", l)
			continue
		}
		// The stored level survives the round trip exactly.
		assert.Equal(t, taint.Height(l), taint.Height(back), "level %s", l)
	}
}

func TestFromQualifiedType_BareTaintedReconstructsConservatively(t *testing.T) {
	// A @Tainted value with no stored level, e.g. one deserialized from
	// an external annotation, lands on the Tainted rank rather than
	// anywhere lower.
	q := taint.QualifiedValue{Qualifier: taint.QualifierTainted}
	assert.Equal(t, taint.Tainted, taint.FromQualifiedType(q))
}

func TestIsAssignmentSafe(t *testing.T) {
	cases := []struct {
		source, target taint.Level
		safe           bool
	}{
		{taint.Untainted, taint.Untainted, true},
		{taint.Sanitized, taint.Untainted, true},
		{taint.Untainted, taint.HighlyTainted, true},
		{taint.Unknown, taint.Tainted, true},
		{taint.Tainted, taint.Tainted, true},
		{taint.Tainted, taint.Unknown, false},
		{taint.HighlyTainted, taint.Untainted, false},
		{taint.PossiblyTainted, taint.Untainted, false},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%s_into_%s", tc.source, tc.target), func(t *testing.T) {
			assert.Equal(t, tc.safe, taint.IsAssignmentSafe(tc.source, tc.target))
		})
	}

	// Reflexivity over the whole lattice.
	for _, l := range allLevels {
		assert.True(t, taint.IsAssignmentSafe(l, l), "level %s", l)
	}
}

func TestBatchConvert_SkipsAndCollectsFailures(t *testing.T) {
	items := []taint.ConversionItem{
		{Data: "a", Level: "TAINTED", Source: taint.SourceUserInput},
		{Data: "b", Level: "NOT_A_LEVEL"},
		{Data: "c", Level: "UNTAINTED"},
		{Data: "d", Level: "DEFINITELY_TAINTED", Source: taint.SourceNetwork},
	}

	out, errs := taint.BatchConvert(items)

	require.Len(t, out, 3)
	assert.Equal(t, "a", out[0].Data)
	assert.Equal(t, "c", out[1].Data)
	assert.Equal(t, "d", out[2].Data)
	assert.True(t, out[0].IsTainted())
	assert.True(t, out[1].IsUntainted())
	// Legacy level names normalize on the way through.
	assert.Equal(t, taint.Tainted, out[2].Level)

	require.Len(t, errs, 1)
	assert.Equal(t, 1, errs[0].Index)
	assert.Contains(t, errs[0].Error(), "NOT_A_LEVEL")
}

func TestBatchConvert_EmptyInput(t *testing.T) {
	out, errs := taint.BatchConvert(nil)
	assert.Empty(t, out)
	assert.Empty(t, errs)
}

func TestBatchConvertParallel_MatchesSequential(t *testing.T) {
	var items []taint.ConversionItem
	for i := 0; i < 200; i++ {
		level := "POSSIBLY_TAINTED"
		if i%7 == 0 {
			level = "bogus"
		}
		items = append(items, taint.ConversionItem{Data: i, Level: level, Source: taint.SourceDatabase})
	}

	seqOut, seqErrs := taint.BatchConvert(items)
	parOut, parErrs := taint.BatchConvertParallel(items, 8)

	assert.Equal(t, seqOut, parOut)
	require.Len(t, parErrs, len(seqErrs))
	for i := range seqErrs {
		assert.Equal(t, seqErrs[i].Index, parErrs[i].Index)
	}
}

func TestBatchConvertParallel_DefaultsWorkerCount(t *testing.T) {
	items := []taint.ConversionItem{
		{Data: "x", Level: "HIGHLY_TAINTED", Source: taint.SourceUserInput},
	}
	out, errs := taint.BatchConvertParallel(items, 0)
	require.Len(t, out, 1)
	assert.Empty(t, errs)
	assert.Equal(t, taint.HighlyTainted, out[0].Level)
}
