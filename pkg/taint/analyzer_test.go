// pkg/taint/analyzer_test.go
package taint_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sasakama-code/taintcore/pkg/taint"
)

// userInputPatterns marks the identifier userInput as a recognized
// user-controlled source, the way a caller extends the built-ins.
func userInputPatterns() taint.PatternSet {
	return taint.PatternSet{
		Sources: []taint.SourcePattern{
			{Name: "userInput", Source: taint.SourceUserInput, Level: taint.Tainted, Pattern: `\buserInput\b`},
		},
	}
}

func newTestAnalyzer(t *testing.T, opts ...taint.Option) *taint.Analyzer {
	t.Helper()
	return taint.NewAnalyzer(zap.NewNop(), opts...)
}

func TestAnalyze_SQLInjection_ExactlyOneCriticalViolation(t *testing.T) {
	a := newTestAnalyzer(t, taint.WithExtraPatterns(userInputPatterns()))

	res := a.Analyze(`db.execute("SELECT * FROM users WHERE id = " + userInput)`)

	require.Len(t, res.Violations, 1)
	v := res.Violations[0]
	assert.Equal(t, "taint-violation", v.Kind)
	assert.Equal(t, taint.SeverityCritical, v.Severity)
	assert.Equal(t, taint.SinkDatabaseQuery, v.Sink)
	assert.Equal(t, taint.SourceUserInput, v.Source)
	assert.NotEmpty(t, v.ID)
	assert.False(t, res.Inconclusive)
}

func TestAnalyze_Eval_AlwaysCritical(t *testing.T) {
	a := newTestAnalyzer(t, taint.WithExtraPatterns(userInputPatterns()))

	res := a.Analyze(`eval(userInput)`)

	require.Len(t, res.Violations, 1)
	v := res.Violations[0]
	assert.Equal(t, taint.SeverityCritical, v.Severity)
	assert.Equal(t, taint.SinkCodeExecution, v.Sink)
	assert.Contains(t, v.Message, "executed directly")
}

func TestAnalyze_EvalCriticalRegardlessOfSurroundingCode(t *testing.T) {
	a := newTestAnalyzer(t, taint.WithExtraPatterns(userInputPatterns()))

	fragment := `
// totally harmless helper
const banner = "hello";
console.log(banner);
eval(userInput);
const after = 1;
`
	res := a.Analyze(fragment)
	require.Len(t, res.Violations, 1)
	assert.Equal(t, taint.SeverityCritical, res.Violations[0].Severity)
}

func TestAnalyze_SanitizerWrappingSourceRecordsFlowNotViolation(t *testing.T) {
	a := newTestAnalyzer(t)

	res := a.Analyze(`const name = escapeHtml(req.query.name);`)

	assert.Empty(t, res.Violations)
	require.Len(t, res.Sources, 1)
	require.Len(t, res.Sanitizers, 1)
	assert.Equal(t, "req.query", res.Sources[0].Name)
	assert.Equal(t, "escapeHtml", res.Sanitizers[0].Name)

	// One flow edge source -> sanitizer at the pre-sanitization level.
	require.Len(t, res.Flows, 1)
	flow := res.Flows[0]
	assert.Equal(t, "req.query", flow.From)
	assert.Equal(t, "escapeHtml", flow.To)
	assert.Equal(t, taint.Tainted, flow.Level)
}

func TestAnalyze_TaintFollowsVariables(t *testing.T) {
	a := newTestAnalyzer(t)

	fragment := `
const id = req.query.id;
db.execute("SELECT * FROM users WHERE id = " + id);
`
	res := a.Analyze(fragment)
	require.Len(t, res.Violations, 1)
	v := res.Violations[0]
	assert.Equal(t, taint.SinkDatabaseQuery, v.Sink)
	assert.Equal(t, taint.SourceUserInput, v.Source)
	assert.Equal(t, taint.SeverityCritical, v.Severity)
}

func TestAnalyze_SanitizedVariableDoesNotViolate(t *testing.T) {
	a := newTestAnalyzer(t)

	fragment := `
const raw = req.query.id;
const id = escapeSql(raw);
db.execute("SELECT * FROM users WHERE id = " + id);
`
	res := a.Analyze(fragment)
	assert.Empty(t, res.Violations, "sanitized data reaching a sink is not a finding")
}

func TestAnalyze_ReassignmentClearsTaint(t *testing.T) {
	a := newTestAnalyzer(t)

	fragment := `
let id = req.query.id;
id = "constant";
db.execute("SELECT * FROM users WHERE id = " + id);
`
	res := a.Analyze(fragment)
	assert.Empty(t, res.Violations)
}

func TestAnalyze_EnvironmentSourceGradesHigh(t *testing.T) {
	a := newTestAnalyzer(t)

	res := a.Analyze(`db.execute("SELECT " + process.env.TABLE)`)
	require.Len(t, res.Violations, 1)
	assert.Equal(t, taint.SeverityHigh, res.Violations[0].Severity)
}

func TestAnalyze_AssertionSinkGradesLow(t *testing.T) {
	a := newTestAnalyzer(t)

	res := a.Analyze(`expect(req.body.value)`)
	require.Len(t, res.Violations, 1)
	assert.Equal(t, taint.SeverityLow, res.Violations[0].Severity)
}

func TestAnalyze_EmptyFragmentIsInconclusive(t *testing.T) {
	a := newTestAnalyzer(t)

	for _, fragment := range []string{"", "   \n\t  ", "\x00binary\x00", "\xff\xfe"} {
		res := a.Analyze(fragment)
		assert.True(t, res.Inconclusive, "fragment %q", fragment)
		assert.Empty(t, res.Violations)
		assert.Empty(t, res.Sources)
	}
}

func TestAnalyze_CleanFragmentIsConclusive(t *testing.T) {
	a := newTestAnalyzer(t)

	res := a.Analyze(`const x = 1 + 2;`)
	assert.False(t, res.Inconclusive, "a readable fragment with no findings is clean, not inconclusive")
	assert.Empty(t, res.Violations)
}

func TestAnalyze_UnsanitizedSourceReportsGap(t *testing.T) {
	a := newTestAnalyzer(t)

	res := a.Analyze(`const id = req.query.id;`)
	assert.Empty(t, res.Violations)
	require.Len(t, res.Gaps, 1)
	assert.Contains(t, res.Gaps[0].Description, "req.query")
}

func TestAnalyze_OneOccurrencePerSyntacticHit(t *testing.T) {
	a := newTestAnalyzer(t)

	fragment := `
const a = req.query.a;
const b = req.query.b;
`
	res := a.Analyze(fragment)

	want := []taint.Occurrence{
		{Name: "req.query", Location: taint.Location{Line: 2, Column: 11}},
		{Name: "req.query", Location: taint.Location{Line: 3, Column: 11}},
	}
	if diff := cmp.Diff(want, res.Sources); diff != "" {
		t.Errorf("sources mismatch (-want +got):\n%s", diff)
	}
}

func TestAnalyze_BadExtraPatternDegradesGracefully(t *testing.T) {
	a := newTestAnalyzer(t, taint.WithExtraPatterns(taint.PatternSet{
		Sources: []taint.SourcePattern{
			{Name: "broken", Source: taint.SourceUserInput, Pattern: `([`},
		},
	}))

	// The malformed pattern is skipped; the built-ins still work.
	res := a.Analyze(`eval(req.query.cmd)`)
	require.Len(t, res.Violations, 1)
	assert.Equal(t, taint.SeverityCritical, res.Violations[0].Severity)
}
