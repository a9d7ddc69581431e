// pkg/taint/value.go
package taint

// Source identifies where a tainted value originally entered the
// program.
type Source string

const (
	SourceUserInput   Source = "USER_INPUT"
	SourceNetwork     Source = "NETWORK"
	SourceEnvironment Source = "ENVIRONMENT"
	SourceFileSystem  Source = "FILE_SYSTEM"
	SourceDatabase    Source = "DATABASE"
)

// RiskTier is a fixed, reporting-only classification of a source. It
// never feeds back into lattice ordering.
type RiskTier string

const (
	RiskHigh   RiskTier = "high"
	RiskMedium RiskTier = "medium"
	RiskLow    RiskTier = "low"
)

var sourceRiskTiers = map[Source]RiskTier{
	SourceUserInput:   RiskHigh,
	SourceNetwork:     RiskHigh,
	SourceEnvironment: RiskMedium,
	SourceFileSystem:  RiskMedium,
	SourceDatabase:    RiskLow,
}

// RiskTier returns the reporting tier of the source. An unrecognized
// source reports medium rather than either extreme.
func (s Source) RiskTier() RiskTier {
	if t, ok := sourceRiskTiers[s]; ok {
		return t
	}
	return RiskMedium
}

// Sink identifies an operation where tainted data becomes dangerous
// without sufficient sanitization.
type Sink string

const (
	SinkDatabaseQuery Sink = "DATABASE_QUERY"
	SinkHTMLOutput    Sink = "HTML_OUTPUT"
	SinkCodeExecution Sink = "DYNAMIC_CODE_EXEC"
	SinkSystemCommand Sink = "SYSTEM_COMMAND"
	SinkFileWrite     Sink = "FILE_WRITE"
	SinkTestAssertion Sink = "TEST_ASSERTION"
)

// TraceStepKind labels one hop of a propagation path.
type TraceStepKind string

const (
	StepPropagate TraceStepKind = "propagate"
	StepSanitize  TraceStepKind = "sanitize"
	StepMerge     TraceStepKind = "merge"
	StepBranch    TraceStepKind = "branch"
)

// TraceStep records a single level transition along a value's history.
type TraceStep struct {
	Kind        TraceStepKind `json:"kind"`
	Description string        `json:"description"`
	InputLevel  Level         `json:"input_level"`
	OutputLevel Level         `json:"output_level"`
	Location    string        `json:"location,omitempty"`
}

// Metadata carries the provenance of a tainted value: what fed it, what
// consumed it, what cleaned it, and the path it took.
type Metadata struct {
	Confidence float64     `json:"confidence"`
	Sources    []Source    `json:"sources,omitempty"`
	Sinks      []Sink      `json:"sinks,omitempty"`
	Sanitizers []string    `json:"sanitizers,omitempty"`
	Path       []TraceStep `json:"path,omitempty"`
}

// clone deep-copies the metadata so derived values never alias the
// slices of their parents.
func (m *Metadata) clone() *Metadata {
	if m == nil {
		return nil
	}
	out := &Metadata{Confidence: clampRatio(m.Confidence)}
	out.Sources = append(out.Sources, m.Sources...)
	out.Sinks = append(out.Sinks, m.Sinks...)
	out.Sanitizers = append(out.Sanitizers, m.Sanitizers...)
	out.Path = append(out.Path, m.Path...)
	return out
}

// Value is an immutable wrapper pairing arbitrary data with its taint
// level and provenance. Every transform returns a fresh instance; a
// Value is never upgraded in place.
//
// Invariant: Source is empty exactly when the level has height zero.
type Value struct {
	Data   any
	Level  Level
	Source Source
	Meta   *Metadata
}

// NewUntainted wraps data that is known clean.
func NewUntainted(data any) Value {
	return Value{Data: data, Level: Untainted}
}

// NewTainted wraps data entering from the given source at the given
// level. A bottom level drops the source to preserve the invariant; a
// non-bottom level with no source is recorded against Unknown rather
// than rejected.
func NewTainted(data any, level Level, source Source) Value {
	level = normalize(level)
	if IsBottom(level) {
		return Value{Data: data, Level: level}
	}
	meta := &Metadata{Confidence: 1.0}
	if source != "" {
		meta.Sources = []Source{source}
	}
	return Value{Data: data, Level: level, Source: source, Meta: meta}
}

// IsTainted reports whether the value carries any taint rank above
// bottom. Unknown counts as tainted; inference failure is never safe.
func (v Value) IsTainted() bool { return !IsBottom(v.Level) }

// withStep derives a new value from v with an adjusted level and an
// appended trace step.
func (v Value) withStep(level Level, source Source, step TraceStep) Value {
	meta := v.Meta.clone()
	if meta == nil {
		meta = &Metadata{Confidence: 1.0}
	}
	meta.Path = append(meta.Path, step)
	if IsBottom(level) {
		source = ""
	}
	return Value{Data: v.Data, Level: level, Source: source, Meta: meta}
}

// MergeFunc combines the payloads of two values. The engine is agnostic
// about payload types; the caller owns the data semantics.
type MergeFunc func(a, b any) any

// keepLeft is the default payload merge when the caller supplies none.
func keepLeft(a, _ any) any { return a }

// Combine folds two values into one. The result level is the join of
// the operand levels, so the combination is never safer than either
// input. The result source is whichever operand is strictly more
// tainted; on a tie the first operand wins. The left bias is a
// documented tie-break, not an accident: it keeps a fold over operands
// deterministic.
func Combine(a, b Value, merge MergeFunc) Value {
	if merge == nil {
		merge = keepLeft
	}
	level := Join(a.Level, b.Level)

	source := a.Source
	if Height(b.Level) > Height(a.Level) {
		source = b.Source
	}

	meta := a.Meta.clone()
	if meta == nil {
		meta = &Metadata{Confidence: 1.0}
	}
	if b.Meta != nil {
		meta.Sources = appendMissingSources(meta.Sources, b.Meta.Sources)
		meta.Sanitizers = appendMissingStrings(meta.Sanitizers, b.Meta.Sanitizers)
		if b.Meta.Confidence < meta.Confidence {
			meta.Confidence = b.Meta.Confidence
		}
	}
	meta.Path = append(meta.Path, TraceStep{
		Kind:        StepMerge,
		Description: "combine",
		InputLevel:  a.Level,
		OutputLevel: level,
	})

	if IsBottom(level) {
		source = ""
	}
	return Value{Data: merge(a.Data, b.Data), Level: level, Source: source, Meta: meta}
}

func appendMissingSources(dst, extra []Source) []Source {
	for _, s := range extra {
		seen := false
		for _, have := range dst {
			if have == s {
				seen = true
				break
			}
		}
		if !seen {
			dst = append(dst, s)
		}
	}
	return dst
}

func appendMissingStrings(dst, extra []string) []string {
	for _, s := range extra {
		seen := false
		for _, have := range dst {
			if have == s {
				seen = true
				break
			}
		}
		if !seen {
			dst = append(dst, s)
		}
	}
	return dst
}
