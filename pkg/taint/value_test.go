// pkg/taint/value_test.go
package taint_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sasakama-code/taintcore/pkg/taint"
)

func TestNewTainted_SourceInvariant(t *testing.T) {
	// A non-bottom level keeps its source.
	v := taint.NewTainted("q", taint.Tainted, taint.SourceUserInput)
	assert.Equal(t, taint.SourceUserInput, v.Source)
	assert.True(t, v.IsTainted())

	// A bottom level drops the source: source is absent iff untainted.
	clean := taint.NewTainted("q", taint.Untainted, taint.SourceUserInput)
	assert.Empty(t, clean.Source)
	assert.False(t, clean.IsTainted())

	// The Sanitized alias behaves like bottom.
	alias := taint.NewTainted("q", taint.Sanitized, taint.SourceUserInput)
	assert.Empty(t, alias.Source)
}

func TestNewUntainted(t *testing.T) {
	v := taint.NewUntainted(42)
	assert.Equal(t, taint.Untainted, v.Level)
	assert.Empty(t, v.Source)
	assert.False(t, v.IsTainted())
}

func TestUnknownCountsAsTainted(t *testing.T) {
	// Inference failure is never treated as safe.
	v := taint.NewTainted("x", taint.Unknown, taint.SourceEnvironment)
	assert.True(t, v.IsTainted())
}

func TestCombine_LevelIsJoin(t *testing.T) {
	a := taint.NewTainted("a", taint.PossiblyTainted, taint.SourceEnvironment)
	b := taint.NewTainted("b", taint.HighlyTainted, taint.SourceUserInput)

	out := taint.Combine(a, b, func(x, y any) any { return x.(string) + y.(string) })
	assert.Equal(t, taint.HighlyTainted, out.Level)
	assert.Equal(t, "ab", out.Data)
	// The strictly higher operand's source wins.
	assert.Equal(t, taint.SourceUserInput, out.Source)
}

func TestCombine_TieKeepsFirstSource(t *testing.T) {
	a := taint.NewTainted("a", taint.Tainted, taint.SourceDatabase)
	b := taint.NewTainted("b", taint.Tainted, taint.SourceUserInput)

	out := taint.Combine(a, b, nil)
	// Documented left bias: on equal levels the first operand's source
	// wins, deterministically.
	assert.Equal(t, taint.SourceDatabase, out.Source)
	assert.Equal(t, taint.Tainted, out.Level)
}

func TestCombine_DoesNotMutateOperands(t *testing.T) {
	a := taint.NewTainted("a", taint.PossiblyTainted, taint.SourceEnvironment)
	b := taint.NewTainted("b", taint.Tainted, taint.SourceUserInput)
	aLevel, bLevel := a.Level, b.Level
	aPathLen := len(a.Meta.Path)

	_ = taint.Combine(a, b, nil)

	assert.Equal(t, aLevel, a.Level)
	assert.Equal(t, bLevel, b.Level)
	assert.Len(t, a.Meta.Path, aPathLen, "combine must not extend the operand's own trace")
}

func TestCombine_MergesProvenance(t *testing.T) {
	a := taint.NewTainted("a", taint.Tainted, taint.SourceUserInput)
	b := taint.NewTainted("b", taint.Tainted, taint.SourceDatabase)

	out := taint.Combine(a, b, nil)
	require.NotNil(t, out.Meta)
	assert.ElementsMatch(t, []taint.Source{taint.SourceUserInput, taint.SourceDatabase}, out.Meta.Sources)

	// The merge is recorded as a trace step.
	require.NotEmpty(t, out.Meta.Path)
	last := out.Meta.Path[len(out.Meta.Path)-1]
	assert.Equal(t, taint.StepMerge, last.Kind)
	assert.Equal(t, taint.Tainted, last.OutputLevel)
}

func TestCombine_CleanOperandsStayClean(t *testing.T) {
	out := taint.Combine(taint.NewUntainted(1), taint.NewUntainted(2), nil)
	assert.Equal(t, taint.Untainted, out.Level)
	assert.Empty(t, out.Source)
}

func TestSourceRiskTiers(t *testing.T) {
	assert.Equal(t, taint.RiskHigh, taint.SourceUserInput.RiskTier())
	assert.Equal(t, taint.RiskHigh, taint.SourceNetwork.RiskTier())
	assert.Equal(t, taint.RiskMedium, taint.SourceEnvironment.RiskTier())
	assert.Equal(t, taint.RiskMedium, taint.SourceFileSystem.RiskTier())
	assert.Equal(t, taint.RiskLow, taint.SourceDatabase.RiskTier())
	// Unknown sources report the middle tier, not either extreme.
	assert.Equal(t, taint.RiskMedium, taint.Source("CARRIER_PIGEON").RiskTier())
}
