// pkg/taint/analyzer.go
package taint

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Severity grades a violation for the surrounding pipeline.
type Severity string

const (
	SeverityCritical Severity = "Critical"
	SeverityHigh     Severity = "High"
	SeverityMedium   Severity = "Medium"
	SeverityLow      Severity = "Low"
	SeverityInfo     Severity = "Info"
)

// Occurrence is a recognized source or sanitizer at a specific spot in
// the fragment.
type Occurrence struct {
	Name     string   `json:"name"`
	Location Location `json:"location"`
}

// Flow is one recorded edge of tainted data movement.
type Flow struct {
	From     string   `json:"from"`
	To       string   `json:"to"`
	Level    Level    `json:"level"`
	Location Location `json:"location"`
}

// Violation is a sink reached by tainted data with no intervening
// sanitizer on the direct data path.
type Violation struct {
	ID       string   `json:"id"`
	Kind     string   `json:"kind"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Location Location `json:"location"`
	Source   Source   `json:"source,omitempty"`
	Sink     Sink     `json:"sink"`
}

// Gap is a missing-sanitizer-coverage observation: a recognized source
// that no sanitizer ever touches inside the fragment. The caller maps
// gaps to quality findings; a gap is not a violation by itself.
type Gap struct {
	Description string   `json:"description"`
	Location    Location `json:"location"`
}

// Result is the analyzer's complete answer for one fragment.
// Inconclusive distinguishes "the fragment could not be tokenized" from
// "the fragment is clean"; both produce empty finding lists.
type Result struct {
	Sources      []Occurrence `json:"sources"`
	Sanitizers   []Occurrence `json:"sanitizers"`
	Flows        []Flow       `json:"flows"`
	Violations   []Violation  `json:"violations"`
	Gaps         []Gap        `json:"gaps,omitempty"`
	Inconclusive bool         `json:"inconclusive"`
}

// Analyzer scans code fragments for taint flows. It is a pure,
// synchronous component: callers hand it in-memory text, it never does
// I/O of its own, and a single instance is safe to share across
// goroutines analyzing different fragments.
type Analyzer struct {
	recognizer Recognizer
	patterns   PatternSet
	logger     *zap.Logger
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithRecognizer swaps the recognition strategy. The default is the
// regex recognizer; an AST-based strategy plugs in here.
func WithRecognizer(r Recognizer) Option {
	return func(a *Analyzer) {
		if r != nil {
			a.recognizer = r
		}
	}
}

// WithExtraPatterns extends the built-in source/sanitizer/sink lists.
func WithExtraPatterns(extra PatternSet) Option {
	return func(a *Analyzer) {
		a.patterns = a.patterns.Merge(extra)
	}
}

// NewAnalyzer builds an analyzer with the default pattern set and regex
// recognizer.
func NewAnalyzer(logger *zap.Logger, opts ...Option) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Analyzer{
		recognizer: NewRegexRecognizer(),
		patterns:   DefaultPatterns(),
		logger:     logger.Named("taint_analyzer"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// taintedVar tracks a variable the scan has seen absorb taint.
type taintedVar struct {
	level      Level
	source     Source
	sourceName string
}

// Analyze performs the single, intraprocedural pass over the fragment.
// Sources taint the variables they are assigned to; sanitizer calls in
// the same statement reduce the level before it lands; a sink reached
// by a source or a tainted variable with no sanitizer in the statement
// is a violation. Callers needing cross-function coverage compose
// multiple invocations themselves.
func (a *Analyzer) Analyze(fragment string) Result {
	scan, err := a.recognizer.Recognize(fragment, a.patterns)
	if err != nil {
		a.logger.Warn("recognizer failed, reporting inconclusive", zap.Error(err))
		return Result{Inconclusive: true}
	}
	if !scan.Tokenized {
		return Result{Inconclusive: true}
	}

	res := Result{}
	tainted := map[string]taintedVar{}
	sanitizedSources := map[string]bool{}

	for _, stmt := range scan.Statements {
		for _, src := range stmt.Sources {
			res.Sources = append(res.Sources, Occurrence{Name: src.Name, Location: src.Location})
		}
		for _, san := range stmt.Sanitizers {
			res.Sanitizers = append(res.Sanitizers, Occurrence{Name: san.Name, Location: san.Location})
		}

		hasSanitizer := len(stmt.Sanitizers) > 0

		// A sanitizer wrapping a source in the same statement records a
		// flow edge at the pre-sanitization level.
		if hasSanitizer {
			for _, src := range stmt.Sources {
				san := stmt.Sanitizers[0]
				res.Flows = append(res.Flows, Flow{
					From:     src.Name,
					To:       san.Name,
					Level:    src.Level,
					Location: san.Location,
				})
				sanitizedSources[src.Name] = true
			}
		}

		// Referenced tainted variables, before this statement updates
		// anything.
		var carried *taintedVar
		for _, ident := range stmt.Idents {
			if ident == stmt.Assign {
				continue
			}
			if tv, ok := tainted[ident]; ok {
				if carried == nil || Height(tv.level) > Height(carried.level) {
					c := tv
					carried = &c
				}
				if hasSanitizer {
					san := stmt.Sanitizers[0]
					res.Flows = append(res.Flows, Flow{
						From:     ident,
						To:       san.Name,
						Level:    tv.level,
						Location: san.Location,
					})
					sanitizedSources[tv.sourceName] = true
				}
			}
		}

		// Violations: a sink fed by a source or tainted variable with
		// no sanitizer on the statement's data path.
		if !hasSanitizer {
			for _, sink := range stmt.Sinks {
				if len(stmt.Sources) > 0 {
					src := highestSource(stmt.Sources)
					res.Flows = append(res.Flows, Flow{
						From: src.Name, To: sink.Name, Level: src.Level, Location: sink.Location,
					})
					res.Violations = append(res.Violations, a.newViolation(src.Name, src.Source, src.Level, sink))
				} else if carried != nil {
					res.Flows = append(res.Flows, Flow{
						From: carried.sourceName, To: sink.Name, Level: carried.level, Location: sink.Location,
					})
					res.Violations = append(res.Violations, a.newViolation(carried.sourceName, carried.source, carried.level, sink))
				}
			}
		}

		// Assignment bookkeeping, last: the statement's own reads saw
		// the prior state.
		if stmt.Assign != "" {
			switch {
			case len(stmt.Sources) > 0:
				src := highestSource(stmt.Sources)
				level := src.Level
				if hasSanitizer {
					san := stmt.Sanitizers[0]
					level = ApplySanitizer(level, san.Kind, 1.0)
				}
				if IsBottom(level) {
					delete(tainted, stmt.Assign)
				} else {
					tainted[stmt.Assign] = taintedVar{level: level, source: src.Source, sourceName: src.Name}
				}
			case carried != nil:
				level := carried.level
				if hasSanitizer {
					san := stmt.Sanitizers[0]
					level = ApplySanitizer(level, san.Kind, 1.0)
				}
				if IsBottom(level) {
					delete(tainted, stmt.Assign)
				} else {
					tainted[stmt.Assign] = taintedVar{level: level, source: carried.source, sourceName: carried.sourceName}
				}
			default:
				// Plain assignment from clean data overwrites any taint
				// the variable previously carried.
				delete(tainted, stmt.Assign)
			}
		}
	}

	for _, src := range res.Sources {
		if !sanitizedSources[src.Name] {
			res.Gaps = append(res.Gaps, Gap{
				Description: fmt.Sprintf("source %q is never sanitized in this fragment", src.Name),
				Location:    src.Location,
			})
		}
	}

	a.logger.Debug("fragment analyzed",
		zap.Int("sources", len(res.Sources)),
		zap.Int("sanitizers", len(res.Sanitizers)),
		zap.Int("violations", len(res.Violations)),
	)
	return res
}

// highestSource picks the most tainted source hit of a statement, with
// the usual left bias on ties.
func highestSource(hits []SourceHit) SourceHit {
	best := hits[0]
	for _, h := range hits[1:] {
		if Height(h.Level) > Height(best.Level) {
			best = h
		}
	}
	return best
}

// newViolation grades and describes one source-to-sink hit. A taint
// source flowing directly into dynamic code execution is always
// critical, independent of every other heuristic: unconditional
// execution of attacker-controlled data is never conditionally safe.
func (a *Analyzer) newViolation(srcName string, source Source, level Level, sink SinkHit) Violation {
	v := Violation{
		ID:       uuid.New().String(),
		Kind:     "taint-violation",
		Location: sink.Location,
		Source:   source,
		Sink:     sink.Sink,
	}

	if sink.Sink == SinkCodeExecution {
		v.Severity = SeverityCritical
		v.Message = fmt.Sprintf("tainted data from %s is executed directly by %s", srcName, sink.Name)
		return v
	}

	switch {
	case sink.Sink == SinkTestAssertion:
		// Taint reaching an assertion is a hygiene problem, not an
		// exploit path.
		v.Severity = SeverityLow
	case source.RiskTier() == RiskHigh:
		v.Severity = SeverityCritical
	case source.RiskTier() == RiskMedium:
		v.Severity = SeverityHigh
	default:
		v.Severity = SeverityMedium
	}
	v.Message = fmt.Sprintf("tainted data from %s reaches %s sink %s without sanitization (level %s)",
		srcName, sink.Sink, sink.Name, level)
	return v
}
