// pkg/taint/recognizer.go
package taint

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Location pins an occurrence inside the analyzed fragment. Lines and
// columns are 1-based.
type Location struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

func (l Location) String() string {
	return fmt.Sprintf("%d:%d", l.Line, l.Column)
}

// SourcePattern matches an expression that introduces tainted data.
// Level is the taint level inferred for a match; zero value means the
// PossiblyTainted baseline.
type SourcePattern struct {
	Name    string
	Source  Source
	Level   Level
	Pattern string
}

// SanitizerPattern matches a sanitizer call by function name.
type SanitizerPattern struct {
	Name    string
	Kind    SanitizerKind
	Pattern string
}

// SinkPattern matches an operation where tainted data becomes
// dangerous.
type SinkPattern struct {
	Name    string
	Sink    Sink
	Pattern string
}

// PatternSet bundles the source, sanitizer and sink patterns a
// recognizer works from. Callers extend the built-in lists through
// Merge; the defaults are never replaced wholesale.
type PatternSet struct {
	Sources    []SourcePattern
	Sanitizers []SanitizerPattern
	Sinks      []SinkPattern
}

// Merge returns a new set containing this set's patterns followed by
// the extras. Neither input is modified.
func (ps PatternSet) Merge(extra PatternSet) PatternSet {
	out := PatternSet{
		Sources:    append([]SourcePattern{}, ps.Sources...),
		Sanitizers: append([]SanitizerPattern{}, ps.Sanitizers...),
		Sinks:      append([]SinkPattern{}, ps.Sinks...),
	}
	out.Sources = append(out.Sources, extra.Sources...)
	out.Sanitizers = append(out.Sanitizers, extra.Sanitizers...)
	out.Sinks = append(out.Sinks, extra.Sinks...)
	return out
}

// DefaultPatterns returns the built-in recognition lists. They target
// the JavaScript/TypeScript surface the surrounding pipeline feeds us,
// but nothing downstream depends on the language.
func DefaultPatterns() PatternSet {
	return PatternSet{
		Sources: []SourcePattern{
			{Name: "req.query", Source: SourceUserInput, Level: Tainted, Pattern: `\breq\.query\b`},
			{Name: "req.body", Source: SourceUserInput, Level: Tainted, Pattern: `\breq\.body\b`},
			{Name: "req.params", Source: SourceUserInput, Level: Tainted, Pattern: `\breq\.params\b`},
			{Name: "req.headers", Source: SourceUserInput, Level: Tainted, Pattern: `\breq\.headers\b`},
			{Name: "req.cookies", Source: SourceUserInput, Level: Tainted, Pattern: `\breq\.cookies\b`},
			{Name: "document.cookie", Source: SourceUserInput, Pattern: `\bdocument\.cookie\b`},
			{Name: "window.location", Source: SourceUserInput, Pattern: `\bwindow\.location\b`},
			{Name: "localStorage.getItem", Source: SourceUserInput, Pattern: `\blocalStorage\.getItem\s*\(`},
			{Name: "process.argv", Source: SourceUserInput, Pattern: `\bprocess\.argv\b`},
			{Name: "process.env", Source: SourceEnvironment, Pattern: `\bprocess\.env\b`},
			{Name: "fetch", Source: SourceNetwork, Pattern: `\bfetch\s*\(`},
			{Name: "axios", Source: SourceNetwork, Pattern: `\baxios\.(?:get|post|put|delete|request)\s*\(`},
			{Name: "http.request", Source: SourceNetwork, Pattern: `\bhttps?\.(?:get|request)\s*\(`},
			{Name: "fs.readFile", Source: SourceFileSystem, Pattern: `\bfs\.readFile(?:Sync)?\s*\(`},
			{Name: "db.read", Source: SourceDatabase, Pattern: `\bdb\.(?:find|get|read)\w*\s*\(`},
		},
		Sanitizers: []SanitizerPattern{
			{Name: "escapeHtml", Kind: HTMLEscape, Pattern: `\b(?:escapeHtml|escapeHTML|sanitizeHtml|htmlspecialchars)\s*\(`},
			{Name: "encodeURIComponent", Kind: HTMLEscape, Pattern: `\bencodeURI(?:Component)?\s*\(`},
			{Name: "escapeSql", Kind: SQLEscape, Pattern: `\b(?:escapeSql|sqlEscape|mysql\.escape)\s*\(`},
			{Name: "validate", Kind: InputValidation, Pattern: `\b(?:validate\w*|isValid\w*)\s*\(`},
			{Name: "parseInt", Kind: TypeConversion, Pattern: `\b(?:parseInt|parseFloat|Number|Boolean)\s*\(`},
			{Name: "sanitize", Kind: StringSanitize, Pattern: `\bsanitize\w*\s*\(`},
			{Name: "JSON.parse", Kind: JSONParse, Pattern: `\bJSON\.parse\s*\(`},
			{Name: "createHash", Kind: CryptoHash, Pattern: `\b(?:createHash|sha(?:1|256|512)|md5)\s*\(`},
		},
		Sinks: []SinkPattern{
			{Name: "db.execute", Sink: SinkDatabaseQuery, Pattern: `\b(?:db|conn|connection|pool)\.(?:execute|query)\s*\(`},
			{Name: "innerHTML", Sink: SinkHTMLOutput, Pattern: `\.(?:innerHTML|outerHTML)\s*=`},
			{Name: "document.write", Sink: SinkHTMLOutput, Pattern: `\bdocument\.write(?:ln)?\s*\(`},
			{Name: "insertAdjacentHTML", Sink: SinkHTMLOutput, Pattern: `\binsertAdjacentHTML\s*\(`},
			{Name: "res.send", Sink: SinkHTMLOutput, Pattern: `\bres\.send\s*\(`},
			{Name: "eval", Sink: SinkCodeExecution, Pattern: `\beval\s*\(`},
			{Name: "new Function", Sink: SinkCodeExecution, Pattern: `\bnew\s+Function\s*\(`},
			{Name: "vm.run", Sink: SinkCodeExecution, Pattern: `\bvm\.run(?:InContext|InNewContext|InThisContext)?\s*\(`},
			{Name: "child_process.exec", Sink: SinkSystemCommand, Pattern: `\b(?:exec|execSync|spawn|spawnSync|execFile)\s*\(`},
			{Name: "fs.writeFile", Sink: SinkFileWrite, Pattern: `\bfs\.(?:writeFile|writeFileSync|appendFile|appendFileSync)\s*\(`},
			{Name: "expect", Sink: SinkTestAssertion, Pattern: `\b(?:expect|assert)\s*\(`},
		},
	}
}

// SourceHit is one syntactic occurrence of a source pattern.
type SourceHit struct {
	Name     string
	Source   Source
	Level    Level
	Location Location
}

// SanitizerHit is one syntactic occurrence of a sanitizer call.
type SanitizerHit struct {
	Name     string
	Kind     SanitizerKind
	Location Location
}

// SinkHit is one syntactic occurrence of a sink operation.
type SinkHit struct {
	Name     string
	Sink     Sink
	Location Location
}

// Statement is the recognizer's view of one statement of the fragment,
// in source order.
type Statement struct {
	Line       int
	Assign     string // lhs identifier when the statement assigns one
	Idents     []string
	Sources    []SourceHit
	Sanitizers []SanitizerHit
	Sinks      []SinkHit
}

// Scan is the raw recognizer output the analyzer turns into flows and
// violations. Tokenized is false when the fragment could not be read as
// text at all, which is a different situation from a clean fragment.
type Scan struct {
	Statements []Statement
	Tokenized  bool
}

// Recognizer is the strategy that extracts source, sanitizer and sink
// occurrences from a fragment. The default is regex-driven; an
// AST-driven implementation can be swapped in without touching the
// lattice, propagation or sanitizer layers.
type Recognizer interface {
	Recognize(fragment string, patterns PatternSet) (Scan, error)
}

// RegexRecognizer is the default single-pass, line-oriented recognizer.
// It compiles the pattern tables once and keeps no state across calls,
// so a single instance is safe for concurrent use.
type RegexRecognizer struct{}

// NewRegexRecognizer returns the default recognizer.
func NewRegexRecognizer() *RegexRecognizer { return &RegexRecognizer{} }

var (
	regexAssign = regexp.MustCompile(`^\s*(?:var|let|const)?\s*([A-Za-z_$][\w$]*)\s*=[^=]`)
	regexIdent  = regexp.MustCompile(`[A-Za-z_$][\w$]*`)
)

// compiledPatterns caches the compiled form of one PatternSet for the
// duration of a Recognize call. Patterns that fail to compile are
// skipped: a bad caller-supplied pattern degrades recognition, it never
// aborts it.
type compiledPatterns struct {
	sources    []*regexp.Regexp
	sanitizers []*regexp.Regexp
	sinks      []*regexp.Regexp
}

func compile(ps PatternSet) compiledPatterns {
	cp := compiledPatterns{
		sources:    make([]*regexp.Regexp, len(ps.Sources)),
		sanitizers: make([]*regexp.Regexp, len(ps.Sanitizers)),
		sinks:      make([]*regexp.Regexp, len(ps.Sinks)),
	}
	for i, p := range ps.Sources {
		cp.sources[i], _ = regexp.Compile(p.Pattern)
	}
	for i, p := range ps.Sanitizers {
		cp.sanitizers[i], _ = regexp.Compile(p.Pattern)
	}
	for i, p := range ps.Sinks {
		cp.sinks[i], _ = regexp.Compile(p.Pattern)
	}
	return cp
}

// Recognize scans the fragment line by line. Each line is treated as
// one statement; every distinct match becomes its own hit.
func (r *RegexRecognizer) Recognize(fragment string, patterns PatternSet) (Scan, error) {
	if strings.TrimSpace(fragment) == "" || !utf8.ValidString(fragment) || strings.ContainsRune(fragment, 0) {
		return Scan{Tokenized: false}, nil
	}

	cp := compile(patterns)
	scan := Scan{Tokenized: true}

	for i, line := range strings.Split(fragment, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "//") {
			continue
		}

		stmt := Statement{Line: i + 1}
		if m := regexAssign.FindStringSubmatch(line); m != nil {
			stmt.Assign = m[1]
		}
		stmt.Idents = regexIdent.FindAllString(line, -1)

		for j, re := range cp.sources {
			if re == nil {
				continue
			}
			for _, loc := range re.FindAllStringIndex(line, -1) {
				p := patterns.Sources[j]
				level := p.Level
				if level == "" {
					level = PossiblyTainted
				}
				stmt.Sources = append(stmt.Sources, SourceHit{
					Name:     p.Name,
					Source:   p.Source,
					Level:    level,
					Location: Location{Line: i + 1, Column: loc[0] + 1},
				})
			}
		}
		for j, re := range cp.sanitizers {
			if re == nil {
				continue
			}
			for _, loc := range re.FindAllStringIndex(line, -1) {
				p := patterns.Sanitizers[j]
				stmt.Sanitizers = append(stmt.Sanitizers, SanitizerHit{
					Name:     p.Name,
					Kind:     p.Kind,
					Location: Location{Line: i + 1, Column: loc[0] + 1},
				})
			}
		}
		for j, re := range cp.sinks {
			if re == nil {
				continue
			}
			for _, loc := range re.FindAllStringIndex(line, -1) {
				p := patterns.Sinks[j]
				stmt.Sinks = append(stmt.Sinks, SinkHit{
					Name:     p.Name,
					Sink:     p.Sink,
					Location: Location{Line: i + 1, Column: loc[0] + 1},
				})
			}
		}

		if stmt.Assign != "" || len(stmt.Sources)+len(stmt.Sanitizers)+len(stmt.Sinks) > 0 {
			scan.Statements = append(scan.Statements, stmt)
		}
	}

	return scan, nil
}
