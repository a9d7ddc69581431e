// pkg/taint/sitter.go
package taint

import (
	"context"
	"regexp"
	"strings"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
)

// SitterRecognizer is the AST-backed recognition strategy. It parses
// the fragment with the tree-sitter JavaScript grammar and splits it
// into real statements instead of physical lines, so multi-statement
// lines and multi-line statements are recognized correctly. It
// satisfies the same Recognizer interface as the regex strategy; the
// lattice, propagation and sanitizer layers never know which one ran.
type SitterRecognizer struct {
	lang *sitter.Language
}

// NewSitterRecognizer returns a recognizer over the JavaScript grammar.
func NewSitterRecognizer() *SitterRecognizer {
	return &SitterRecognizer{lang: javascript.GetLanguage()}
}

// statementTypes are the node kinds treated as one analyzable
// statement. Subexpressions below these belong to the statement.
var statementTypes = map[string]bool{
	"expression_statement": true,
	"lexical_declaration":  true,
	"variable_declaration": true,
	"return_statement":     true,
	"throw_statement":      true,
}

// Recognize parses the fragment and extracts one Statement per
// syntactic statement. A fragment the grammar cannot produce a tree for
// degrades to Tokenized=false rather than an error: the caller decides
// whether to report "inconclusive".
func (r *SitterRecognizer) Recognize(fragment string, patterns PatternSet) (Scan, error) {
	if strings.TrimSpace(fragment) == "" || !utf8.ValidString(fragment) || strings.ContainsRune(fragment, 0) {
		return Scan{Tokenized: false}, nil
	}

	parser := sitter.NewParser()
	parser.SetLanguage(r.lang)
	src := []byte(fragment)

	tree, err := parser.ParseCtx(context.Background(), nil, src)
	if err != nil || tree == nil {
		return Scan{Tokenized: false}, nil
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil {
		return Scan{Tokenized: false}, nil
	}

	cp := compile(patterns)
	scan := Scan{Tokenized: true}
	r.walk(root, src, patterns, cp, &scan)
	return scan, nil
}

// walk descends until it hits a statement node, emits it, and does not
// descend further: everything below is part of that statement.
func (r *SitterRecognizer) walk(node *sitter.Node, src []byte, patterns PatternSet, cp compiledPatterns, scan *Scan) {
	if node == nil {
		return
	}
	if statementTypes[node.Type()] {
		if stmt, ok := r.statement(node, src, patterns, cp); ok {
			scan.Statements = append(scan.Statements, stmt)
		}
		return
	}
	for i := 0; i < int(node.NamedChildCount()); i++ {
		r.walk(node.NamedChild(i), src, patterns, cp, scan)
	}
}

// statement turns one statement node into the recognizer's view of it.
func (r *SitterRecognizer) statement(node *sitter.Node, src []byte, patterns PatternSet, cp compiledPatterns) (Statement, bool) {
	content := node.Content(src)
	line := int(node.StartPoint().Row) + 1
	col := int(node.StartPoint().Column) + 1

	stmt := Statement{Line: line}
	stmt.Assign = assignTarget(node, src)
	collectIdents(node, src, &stmt.Idents)

	locate := func(re *regexp.Regexp) []Location {
		var locs []Location
		for _, m := range re.FindAllStringIndex(content, -1) {
			locs = append(locs, offsetLocation(content, m[0], line, col))
		}
		return locs
	}

	for j, re := range cp.sources {
		if re == nil {
			continue
		}
		for _, loc := range locate(re) {
			p := patterns.Sources[j]
			level := p.Level
			if level == "" {
				level = PossiblyTainted
			}
			stmt.Sources = append(stmt.Sources, SourceHit{Name: p.Name, Source: p.Source, Level: level, Location: loc})
		}
	}
	for j, re := range cp.sanitizers {
		if re == nil {
			continue
		}
		for _, loc := range locate(re) {
			p := patterns.Sanitizers[j]
			stmt.Sanitizers = append(stmt.Sanitizers, SanitizerHit{Name: p.Name, Kind: p.Kind, Location: loc})
		}
	}
	for j, re := range cp.sinks {
		if re == nil {
			continue
		}
		for _, loc := range locate(re) {
			p := patterns.Sinks[j]
			stmt.Sinks = append(stmt.Sinks, SinkHit{Name: p.Name, Sink: p.Sink, Location: loc})
		}
	}

	if stmt.Assign == "" && len(stmt.Sources)+len(stmt.Sanitizers)+len(stmt.Sinks) == 0 {
		return Statement{}, false
	}
	return stmt, true
}

// assignTarget finds the identifier a statement assigns to, if any.
func assignTarget(node *sitter.Node, src []byte) string {
	switch node.Type() {
	case "variable_declarator":
		if name := node.ChildByFieldName("name"); name != nil && name.Type() == "identifier" {
			return name.Content(src)
		}
	case "assignment_expression":
		if left := node.ChildByFieldName("left"); left != nil && left.Type() == "identifier" {
			return left.Content(src)
		}
	}
	for i := 0; i < int(node.NamedChildCount()); i++ {
		if target := assignTarget(node.NamedChild(i), src); target != "" {
			return target
		}
	}
	return ""
}

// collectIdents gathers every identifier in the statement subtree.
func collectIdents(node *sitter.Node, src []byte, out *[]string) {
	if node.Type() == "identifier" {
		*out = append(*out, node.Content(src))
		return
	}
	for i := 0; i < int(node.NamedChildCount()); i++ {
		collectIdents(node.NamedChild(i), src, out)
	}
}

// offsetLocation translates a byte offset inside a statement's text
// into a fragment location, accounting for statements spanning lines.
func offsetLocation(content string, offset, startLine, startCol int) Location {
	prefix := content[:offset]
	newlines := strings.Count(prefix, "\n")
	if newlines == 0 {
		return Location{Line: startLine, Column: startCol + offset}
	}
	last := strings.LastIndexByte(prefix, '\n')
	return Location{Line: startLine + newlines, Column: offset - last}
}

var _ Recognizer = (*SitterRecognizer)(nil)
