// Package grammar is a small hand-written PEG-style combinator engine:
// ordered choice, concatenation, optional, zero-or-more, one-or-more,
// character sets and negated literals, composed into Parsers that build
// an internal/ast.Node tree. Parsing is greedy with backtracking at every
// choice point; the engine tracks the deepest failure position seen
// across the whole attempt so a caller can report the most informative
// syntax error. Circular grammars are supported via Lazy, a late-bound
// rule slot resolved at parse time rather than at grammar-construction
// time.
package grammar

import (
	"fmt"
	"sort"
	"unicode/utf8"

	"github.com/ln-lang/lnc/internal/ast"
)

// State is the mutable parse cursor threaded through every combinator.
type State struct {
	src  string
	file string
	pos  int

	deepestPos      int
	deepestLine     int
	deepestCol      int
	deepestExpected map[string]bool
}

// NewState creates a parse cursor over src, identified by file for error
// reporting.
func NewState(src, file string) *State {
	return &State{
		src:             src,
		file:            file,
		deepestExpected: map[string]bool{},
	}
}

// Error is a structured syntax error: the deepest position reached during
// the parse attempt and the set of rule names that would have continued
// the parse from there.
type Error struct {
	File     string
	Line     int
	Column   int
	Expected []string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s:%d:%d: unexpected input, expected one of %v", e.File, e.Line, e.Column, e.Expected)
}

func (s *State) fail(rule string) {
	if s.pos > s.deepestPos {
		s.deepestPos = s.pos
		s.deepestLine, s.deepestCol = s.lineCol(s.pos)
		s.deepestExpected = map[string]bool{rule: true}
	} else if s.pos == s.deepestPos {
		s.deepestExpected[rule] = true
	}
}

func (s *State) lineCol(pos int) (int, int) {
	line, col := 1, 1
	for i := 0; i < pos && i < len(s.src); i++ {
		if s.src[i] == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	return line, col
}

func (s *State) pos2(at int) ast.Pos {
	line, col := s.lineCol(at)
	return ast.Pos{File: s.file, Line: line, Column: col}
}

// Err materializes the deepest-failure Error recorded so far. Expected
// alternatives are sorted so the same failure always renders the same
// message.
func (s *State) Err() *Error {
	expected := make([]string, 0, len(s.deepestExpected))
	for k := range s.deepestExpected {
		expected = append(expected, k)
	}
	sort.Strings(expected)
	line, col := s.deepestLine, s.deepestCol
	if line == 0 {
		line, col = 1, 1
	}
	return &Error{File: s.file, Line: line, Column: col, Expected: expected}
}

// Parser attempts to match at the current position, returning the node it
// built (if any) and whether it matched. On failure the cursor position
// must be restored by the caller (combinators do this themselves); a
// failing Parser must not mutate s.pos permanently.
type Parser func(s *State) (*ast.Node, bool)

// Lit matches an exact literal string, case-sensitively, and yields a leaf
// node tagged rule.
func Lit(rule, text string) Parser {
	return func(s *State) (*ast.Node, bool) {
		start := s.pos
		if start+len(text) > len(s.src) || s.src[start:start+len(text)] != text {
			s.fail(rule)
			return nil, false
		}
		s.pos += len(text)
		return ast.NewLeaf(rule, text, s.pos2(start)), true
	}
}

// Class matches a single rune satisfying pred and yields a leaf node
// tagged rule containing that rune.
func Class(rule string, pred func(r rune) bool) Parser {
	return func(s *State) (*ast.Node, bool) {
		start := s.pos
		if start >= len(s.src) {
			s.fail(rule)
			return nil, false
		}
		r, size := utf8.DecodeRuneInString(s.src[start:])
		if r == utf8.RuneError || !pred(r) {
			s.fail(rule)
			return nil, false
		}
		s.pos += size
		return ast.NewLeaf(rule, s.src[start:start+size], s.pos2(start)), true
	}
}

// NotClass matches a single rune NOT satisfying pred (negated literal).
func NotClass(rule string, pred func(r rune) bool) Parser {
	return Class(rule, func(r rune) bool { return !pred(r) })
}

// Seq is named-and: every part must match in order at the current
// position; the result is a single node tagged rule whose children are
// the parts' results in match order, keyed by each part's own rule tag.
// On any failure the whole Seq fails and the cursor is restored.
func Seq(rule string, parts ...Parser) Parser {
	return func(s *State) (*ast.Node, bool) {
		start := s.pos
		node := ast.NewNode(rule, "", s.pos2(start))
		for _, p := range parts {
			child, ok := p(s)
			if !ok {
				s.pos = start
				return nil, false
			}
			if child != nil {
				node.Add(child.Rule, child)
			}
		}
		node.Text = s.src[start:s.pos]
		return node, true
	}
}

// Choice is ordered named-or: each alternative is tried in order at the
// current position; the first to succeed wins. The result node is tagged
// rule and has exactly one child, keyed by the name of the alternative
// that matched, so callers can switch on Node.Get to learn which branch
// was taken.
func Choice(rule string, alts ...Parser) Parser {
	return func(s *State) (*ast.Node, bool) {
		start := s.pos
		for _, alt := range alts {
			s.pos = start
			child, ok := alt(s)
			if ok {
				node := ast.NewNode(rule, s.src[start:s.pos], s.pos2(start))
				node.Add(child.Rule, child)
				return node, true
			}
		}
		s.pos = start
		s.fail(rule)
		return nil, false
	}
}

// Opt matches p zero or one times; never fails. The resulting node is
// tagged rule and, if p matched, carries its result as a single "value"
// child.
func Opt(rule string, p Parser) Parser {
	return func(s *State) (*ast.Node, bool) {
		start := s.pos
		node := ast.NewNode(rule, "", s.pos2(start))
		if child, ok := p(s); ok {
			node.Add("value", child)
			node.Text = s.src[start:s.pos]
		} else {
			s.pos = start
		}
		return node, true
	}
}

// Star matches p zero or more times; never fails. Each match is appended
// as an "item" child in order.
func Star(rule string, p Parser) Parser {
	return func(s *State) (*ast.Node, bool) {
		start := s.pos
		node := ast.NewNode(rule, "", s.pos2(start))
		for {
			before := s.pos
			child, ok := p(s)
			if !ok || s.pos == before {
				break
			}
			node.Add("item", child)
		}
		node.Text = s.src[start:s.pos]
		return node, true
	}
}

// Plus matches p one or more times, failing if there is not at least one
// match.
func Plus(rule string, p Parser) Parser {
	star := Star(rule, p)
	return func(s *State) (*ast.Node, bool) {
		start := s.pos
		node, _ := star(s)
		if len(node.GetAll("item")) == 0 {
			s.pos = start
			s.fail(rule)
			return nil, false
		}
		return node, true
	}
}

// Not is negative lookahead: it succeeds exactly when p fails at the
// current position, and never consumes input or contributes a node.
func Not(rule string, p Parser) Parser {
	return func(s *State) (*ast.Node, bool) {
		start := s.pos
		_, ok := p(s)
		s.pos = start
		if ok {
			s.fail(rule)
			return nil, false
		}
		return nil, true
	}
}

// Lazy defers resolution of a recursive rule until parse time, breaking
// the initialization cycle a directly recursive grammar would otherwise
// create.
func Lazy(get func() Parser) Parser {
	var cached Parser
	return func(s *State) (*ast.Node, bool) {
		if cached == nil {
			cached = get()
		}
		return cached(s)
	}
}

// Parse runs p over the entire input and requires it to consume every
// byte; trailing content is a syntax error, never silently discarded.
func Parse(p Parser, src, file string) (*ast.Node, error) {
	s := NewState(src, file)
	node, ok := p(s)
	if !ok {
		return nil, s.Err()
	}
	if s.pos != len(s.src) {
		s.fail("end of input")
		return nil, s.Err()
	}
	return node, nil
}
