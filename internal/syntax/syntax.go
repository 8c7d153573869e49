// Package syntax defines the Ln grammar as a set of internal/grammar
// combinators and exposes Parse, which turns normalized, comment-stripped
// source text into an internal/ast.Node parse tree rooted at "Program".
package syntax

import (
	"unicode"

	"github.com/ln-lang/lnc/internal/ast"
	"github.com/ln-lang/lnc/internal/cerrors"
	"github.com/ln-lang/lnc/internal/grammar"
)

var keywords = map[string]bool{
	"from": true, "import": true, "as": true, "export": true,
	"type": true, "interface": true, "const": true, "let": true,
	"event": true, "operator": true, "fn": true, "on": true,
	"return": true, "emit": true, "if": true, "else": true,
	"true": true, "false": true, "prefix": true, "infix": true,
}

func ws() grammar.Parser {
	return func(s *grammar.State) (*ast.Node, bool) { return skipWS(s) }
}

// skipWS is implemented by re-deriving whitespace char-by-char using the
// same State the combinators thread through, kept in this package rather
// than grammar so grammar stays layout-agnostic.
func skipWS(s *grammar.State) (*ast.Node, bool) {
	return wsParser(s)
}

var wsParser = grammar.Star("WS", grammar.Class("WSChar", func(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}))

// tok wraps a parser so it consumes any trailing whitespace, the way a
// lexer would emit whitespace-delimited tokens, without ever materializing
// a token stream: grammar rules compose directly into the parse tree.
func tok(p grammar.Parser) grammar.Parser {
	return func(s *grammar.State) (*ast.Node, bool) {
		node, ok := p(s)
		if !ok {
			return nil, false
		}
		wsParser(s)
		return node, true
	}
}

func isIdentStart(r rune) bool { return unicode.IsLetter(r) || r == '_' }
func isIdentCont(r rune) bool  { return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' }

var identRaw = grammar.Seq("IdentRaw",
	grammar.Class("IdentStart", isIdentStart),
	grammar.Star("IdentCont", grammar.Class("IdentChar", isIdentCont)),
)

// Ident matches an identifier that is not a reserved keyword.
var Ident = tok(func(s *grammar.State) (*ast.Node, bool) {
	node, ok := identRaw(s)
	if !ok {
		return nil, false
	}
	if keywords[node.Text] {
		return nil, false
	}
	return ast.NewLeaf("Ident", node.Text, node.Position), true
})

func kw(word string) grammar.Parser {
	return tok(func(s *grammar.State) (*ast.Node, bool) {
		node, ok := identRaw(s)
		if !ok || node.Text != word {
			return nil, false
		}
		return ast.NewLeaf("Kw:"+word, node.Text, node.Position), true
	})
}

func sym(text string) grammar.Parser {
	return tok(grammar.Lit("Sym:"+text, text))
}

// operatorChars are the punctuation runes an operator symbol may be made
// of; structural punctuation (parens, braces, comma, colon, semicolon,
// dot, `@`, `$`) is reserved and excluded.
func isOperatorChar(r rune) bool {
	switch r {
	case '+', '-', '*', '/', '%', '<', '>', '=', '!', '&', '|', '^', '~':
		return true
	}
	return false
}

// OperatorSymbol matches a maximal run of operator-punctuation runes, so
// a user-declared operator with an arbitrary symbol (see OperatorDecl) is
// tokenized the same way a built-in one is. Precedence and prefix/infix
// disambiguation happen later, during lowering; the grammar stays
// agnostic to any specific operator's meaning.
var OperatorSymbol = tok(grammar.Plus("OperatorSymbol", grammar.Class("OpChar", isOperatorChar)))

// assignEq matches a single `=` that is not the start of a longer
// operator token, so `x == y` at statement position never half-matches as
// an assignment to x.
var assignEq = tok(grammar.Seq("AssignEq",
	grammar.Lit("Sym:=", "="),
	grammar.Not("AssignEqEnd", grammar.Class("OpChar", isOperatorChar)),
))

func digit(r rune) bool { return r >= '0' && r <= '9' }

var intLit = tok(grammar.Plus("IntDigits", grammar.Class("Digit", digit)))

var floatLit = tok(grammar.Seq("FloatRaw",
	grammar.Plus("IntPart", grammar.Class("Digit", digit)),
	grammar.Lit("Dot", "."),
	grammar.Plus("FracPart", grammar.Class("Digit", digit)),
))

// NumberLit matches a float literal if a decimal point follows the
// integer part, otherwise an int literal. The lowering pass seeds the
// literal's OneOf candidate set from this syntactic distinction.
var NumberLit = grammar.Choice("NumberLit", floatLit, intLit)

var stringLit = tok(grammar.Seq("StringRaw",
	grammar.Lit("Quote", `"`),
	grammar.Star("StringBody", grammar.NotClass("StringChar", func(r rune) bool { return r == '"' })),
	grammar.Lit("Quote", `"`),
))

// Single-quoted strings are interchangeable with double-quoted ones; both
// collapse to the same Lit during lowering.
var stringSqLit = tok(grammar.Seq("StringSqRaw",
	grammar.Lit("Quote", "'"),
	grammar.Star("StringBody", grammar.NotClass("StringChar", func(r rune) bool { return r == '\'' })),
	grammar.Lit("Quote", "'"),
))

var boolLit = grammar.Choice("BoolRaw", kw("true"), kw("false"))

// Literal matches any of the literal forms: number, string, bool.
var Literal = grammar.Choice("Literal", NumberLit, stringLit, stringSqLit, boolLit)

// ---- Types ----

var typeRefLazy grammar.Parser

func typeRef() grammar.Parser { return typeRefLazy }

func init() {
	typeArgs := grammar.Opt("TypeArgs", grammar.Seq("TypeArgsInner",
		sym("<"),
		grammar.Lazy(func() grammar.Parser { return typeRef() }),
		grammar.Star("MoreTypeArg", grammar.Seq("MoreTypeArgItem", sym(","), grammar.Lazy(func() grammar.Parser { return typeRef() }))),
		sym(">"),
	))
	typeRefLazy = grammar.Seq("TypeRef", Ident, typeArgs)
}

// ---- Declarations ----

var field = grammar.Seq("Field", Ident, sym(":"), grammar.Lazy(typeRef))

var genericParams = grammar.Opt("GenericParams", grammar.Seq("GenericParamsInner",
	sym("<"),
	Ident,
	grammar.Star("MoreGenericParam", grammar.Seq("MoreGenericParamItem", sym(","), Ident)),
	sym(">"),
))

// TypeDecl matches both a struct declaration and a type alias:
// `type Name<T> { field: Type ... }` or `type Name = Other`.
var TypeDecl = grammar.Seq("TypeDecl",
	kw("type"), Ident, genericParams,
	grammar.Choice("TypeDeclBody",
		grammar.Seq("TypeAlias", sym("="), grammar.Lazy(typeRef)),
		grammar.Seq("StructBody", sym("{"), grammar.Star("Field", field), sym("}")),
	),
)

var paramList = grammar.Seq("ParamList",
	grammar.Opt("ParamListInner", grammar.Seq("ParamListInnerSeq",
		field,
		grammar.Star("MoreParam", grammar.Seq("MoreParamItem", sym(","), field)),
	)),
)

var fnReq = grammar.Seq("FnReq",
	grammar.Opt("FnKw", kw("fn")),
	Ident, sym("("),
	grammar.Opt("FnReqParams", grammar.Seq("FnReqParamsInner",
		grammar.Lazy(typeRef),
		grammar.Star("MoreFnReqParam", grammar.Seq("MoreFnReqParamItem", sym(","), grammar.Lazy(typeRef))),
	)),
	sym(")"), sym(":"), grammar.Lazy(typeRef),
)

var opReq = grammar.Seq("OpReq",
	kw("operator"), OperatorSymbol, sym("("),
	grammar.Lazy(typeRef), sym(","), grammar.Lazy(typeRef),
	sym(")"), sym(":"), grammar.Lazy(typeRef),
)

var propertyReq = grammar.Seq("PropertyReq", Ident, sym(":"), grammar.Lazy(typeRef))

var interfaceLine = grammar.Choice("InterfaceLine", fnReq, opReq, propertyReq)

// InterfaceDecl matches a name and zero or more requirement lines, each
// a property, function, or operator requirement.
var InterfaceDecl = grammar.Seq("InterfaceDecl",
	kw("interface"), Ident, sym("{"),
	grammar.Star("InterfaceLine", interfaceLine),
	sym("}"),
)

// ConstDecl matches a module-level const: `const name: Type = expr`. The
// type annotation is optional; when absent the expression's inferred type
// is used.
var ConstDecl = grammar.Seq("ConstDecl",
	kw("const"), Ident,
	grammar.Opt("ConstType", grammar.Seq("ConstTypeInner", sym(":"), grammar.Lazy(typeRef))),
	assignEq, grammar.Lazy(assignables),
)

// EventDecl matches `event Name: Type`.
var EventDecl = grammar.Seq("EventDecl", kw("event"), Ident, sym(":"), grammar.Lazy(typeRef))

// OperatorDecl binds an operator symbol to a numeric precedence, a
// prefix/infix flag, and the function implementing it.
var OperatorDecl = grammar.Seq("OperatorDecl",
	kw("operator"), OperatorSymbol, sym("("),
	intLit,
	grammar.Choice("Fixity", kw("prefix"), kw("infix")),
	sym(")"), sym("="), Ident,
)

var blockLazy grammar.Parser

func block() grammar.Parser { return blockLazy }

// FnDecl matches `fn name(params): RetType { ... }`. The return type is
// optional (void when absent).
var FnDecl = grammar.Seq("FnDecl",
	kw("fn"), Ident, sym("("), paramList, sym(")"),
	grammar.Opt("FnRet", grammar.Seq("FnRetInner", sym(":"), grammar.Lazy(typeRef))),
	grammar.Lazy(block),
)

// HandlerDecl matches the three handler-attachment forms: binding an
// existing function by name, an inline anonymous handler block, or an
// inline named-parameter handler.
var HandlerDecl = grammar.Seq("HandlerDecl",
	kw("on"), Ident,
	grammar.Choice("HandlerBody",
		grammar.Seq("HandlerFnRef", kw("fn"), Ident),
		grammar.Seq("HandlerInlineFn", kw("fn"), sym("("), paramList, sym(")"), grammar.Lazy(block)),
		grammar.Lazy(block),
	),
)

// ---- Statements ----

var assignablesLazy grammar.Parser

func assignables() grammar.Parser { return assignablesLazy }

var stmtLazy grammar.Parser

func stmtRule() grammar.Parser { return stmtLazy }

// semi is the optional statement terminator. Statements may be separated
// by newlines alone; a trailing `;` is accepted and discarded.
var semi = grammar.Opt("Semi", sym(";"))

var letDecl = grammar.Seq("LetDecl",
	grammar.Choice("LetKind", kw("let"), kw("const")),
	Ident,
	grammar.Opt("LetType", grammar.Seq("LetTypeInner", sym(":"), grammar.Lazy(typeRef))),
	assignEq, grammar.Lazy(assignables), semi,
)

var assignStmt = grammar.Seq("Assign", Ident, assignEq, grammar.Lazy(assignables), semi)

var emitStmt = grammar.Seq("Emit", kw("emit"), Ident,
	grammar.Opt("EmitArg", grammar.Lazy(assignables)), semi)

var returnStmt = grammar.Seq("Return", kw("return"),
	grammar.Opt("ReturnArg", grammar.Lazy(assignables)), semi)

var exprStmt = grammar.Seq("ExprStmt", grammar.Lazy(assignables), semi)

// ifCond accepts the condition either parenthesized or bare.
var ifCond = grammar.Choice("IfCond",
	grammar.Seq("IfCondParen", sym("("), grammar.Lazy(assignables), sym(")")),
	grammar.Lazy(assignables),
)

// ifBody is either a braced block or a single statement, so
// `if n < 2 return 1 else return 0` parses without braces.
var ifBody = grammar.Choice("IfBody", grammar.Lazy(block), grammar.Lazy(stmtRule))

var ifStmt = grammar.Seq("If",
	kw("if"), ifCond, ifBody,
	grammar.Opt("Else", grammar.Seq("ElseInner", kw("else"),
		grammar.Choice("ElseBody", grammar.Lazy(block), grammar.Lazy(stmtRule)))),
)

func init() {
	stmtLazy = grammar.Choice("Stmt", letDecl, assignStmt, emitStmt, returnStmt, ifStmt, exprStmt)
	blockLazy = grammar.Seq("Block", sym("{"), grammar.Star("Stmt", grammar.Lazy(stmtRule)), sym("}"))
}

// ---- Expressions ----

var argList = grammar.Seq("ArgList",
	grammar.Opt("ArgListInner", grammar.Seq("ArgListInnerSeq",
		grammar.Lazy(assignables),
		grammar.Star("MoreArg", grammar.Seq("MoreArgItem", sym(","), grammar.Lazy(assignables))),
	)),
)

var callSuffix = grammar.Seq("CallSuffix", sym("("), argList, sym(")"))

var dotSuffix = grammar.Seq("DotSuffix", sym("."), Ident, grammar.Opt("DotCall", callSuffix))

var assignSeg = grammar.Choice("AssignSeg",
	grammar.Seq("IdentSeg", Ident, grammar.Opt("IdentCall", callSuffix)),
	grammar.Seq("LiteralSeg", Literal),
)

// baseAssignableList is one dot-chained sequence of identifier/call/
// literal segments, e.g. `num.toString()` or `list.map(f).length`.
var baseAssignableList = grammar.Seq("BaseAssignableList", assignSeg, grammar.Star("DotSuffix", dotSuffix))

// operatorItem is one operator token appearing between two
// base-assignable-lists (or before/after one, for prefix/postfix use).
var operatorItem = grammar.Seq("OperatorItem", OperatorSymbol)

// Assignables is the flat alternating list of base-assignable-lists and
// operator tokens. The grammar does not encode operator precedence or
// associativity at all; that happens in internal/lower, against the
// operator bindings recorded in scope.
func init() {
	assignablesLazy = grammar.Seq("Assignables",
		grammar.Star("PrefixOperator", operatorItem),
		baseAssignableList,
		grammar.Star("AssignablesTail", grammar.Seq("AssignablesTailItem", operatorItem, grammar.Star("TailPrefix", operatorItem), baseAssignableList)),
	)
}

// ---- Imports & Program ----

var identList = grammar.Seq("IdentList", Ident, grammar.Star("MoreIdent", grammar.Seq("MoreIdentItem", sym(","), Ident)))

var importPath = tok(grammar.Plus("ImportPathChar", grammar.Class("ImportPathChar", func(r rune) bool {
	return isIdentStart(r) || isIdentCont(r) || r == '.' || r == '/' || r == '@'
})))

// Import matches both import forms: a from-import of selected names, or
// a whole-module import bound to a local name.
var Import = grammar.Choice("Import",
	grammar.Seq("FromImport", kw("from"), importPath, kw("import"), identList),
	grammar.Seq("WholeImport", kw("import"), importPath,
		grammar.Opt("ImportAs", grammar.Seq("ImportAsInner", kw("as"), Ident))),
)

var exportableDecl = grammar.Choice("ExportableDecl",
	TypeDecl, InterfaceDecl, ConstDecl, EventDecl, OperatorDecl, FnDecl,
)

// topDecl is one top-level declaration. Declarations, "export" keyword
// optionally prefixed, are bindable into a module's export scope; imports
// and handler attachments are never exported and so never take the
// prefix.
var topDecl = grammar.Choice("TopDecl",
	Import, HandlerDecl,
	grammar.Seq("MaybeExported", grammar.Opt("ExportKw", kw("export")), exportableDecl),
)

// Program is the grammar's start rule: zero or more top-level
// declarations, each of which ends at the next one; trailing content that
// matches none of them is a syntax error (grammar.Parse enforces this by
// requiring the whole input be consumed).
var Program = grammar.Seq("Program", ws(), grammar.Star("TopDecl", topDecl))

// Parse lexes (normalizes + strips comments) and parses src, returning
// the Program parse tree or a structured error carrying the offending
// source line.
func Parse(src []byte, file string) (*ast.Node, error) {
	clean := stripForParse(src)
	node, err := grammar.Parse(Program, string(clean), file)
	if err != nil {
		if ge, ok := err.(*grammar.Error); ok {
			serr := cerrors.New(cerrors.LEX003, ast.Pos{File: ge.File, Line: ge.Line, Column: ge.Column},
				"unexpected input", map[string]any{"expected": ge.Expected})
			return nil, cerrors.AttachExcerpt(serr, func(string) ([]byte, bool) { return src, true })
		}
		return nil, err
	}
	return node, nil
}
