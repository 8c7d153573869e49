package syntax

import (
	"testing"

	"github.com/ln-lang/lnc/internal/ast"
	"github.com/ln-lang/lnc/internal/cerrors"
)

func mustParse(t *testing.T, src string) *ast.Node {
	t.Helper()
	tree, err := Parse([]byte(src), "test.ln")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	return tree
}

func TestParseImports(t *testing.T) {
	tree := mustParse(t, `
from @std/app import start, print, exit
import ./helpers as h
`)
	decls := tree.Items("TopDecl")
	if len(decls) != 2 {
		t.Fatalf("expected 2 top decls, got %d", len(decls))
	}
	from := decls[0].Get("Import").Get("FromImport")
	if from == nil {
		t.Fatal("first decl should be a from-import")
	}
	if got := from.Get("ImportPathChar").Text; got != "@std/app" {
		t.Fatalf("import path = %q", got)
	}
	names := from.Get("IdentList").CommaList("Ident", "MoreIdent", "Ident")
	if len(names) != 3 || names[2].Text != "exit" {
		t.Fatalf("unexpected import list: %v", names)
	}

	whole := decls[1].Get("Import").Get("WholeImport")
	if whole == nil {
		t.Fatal("second decl should be a whole import")
	}
	if as := whole.Get("ImportAs").Opt(); as == nil || as.Get("Ident").Text != "h" {
		t.Fatal("as-alias not captured")
	}
}

func TestParseDeclarations(t *testing.T) {
	tree := mustParse(t, `
export type Point { x: int64 y: int64 }
type Coord = Point
interface Printable { toString(Point): string }
export const answer: int64 = 42
event tick: int64
fn double(n: int64): int64 { return n + n }
`)
	decls := tree.Items("TopDecl")
	if len(decls) != 6 {
		t.Fatalf("expected 6 top decls, got %d", len(decls))
	}

	point := decls[0].Get("MaybeExported")
	if point.Get("ExportKw").Opt() == nil {
		t.Fatal("export keyword lost")
	}
	td := point.Get("ExportableDecl").Get("TypeDecl")
	fields := td.Get("TypeDeclBody").Get("StructBody").Items("Field")
	if len(fields) != 2 || fields[1].Get("Ident").Text != "y" {
		t.Fatalf("struct fields misparsed: %d", len(fields))
	}

	alias := decls[1].Get("MaybeExported").Get("ExportableDecl").Get("TypeDecl")
	if alias.Get("TypeDeclBody").Get("TypeAlias") == nil {
		t.Fatal("alias form not recognized")
	}
}

func TestParseHandlersAndStatements(t *testing.T) {
	tree := mustParse(t, `
from @std/app import start, exit
on start {
  const x: int8 = 0;
  emit exit x;
}
`)
	handler := tree.Items("TopDecl")[1].Get("HandlerDecl")
	if handler == nil {
		t.Fatal("handler decl not recognized")
	}
	block := handler.Get("HandlerBody").Get("Block")
	stmts := block.Items("Stmt")
	if len(stmts) != 2 {
		t.Fatalf("expected 2 statements, got %d", len(stmts))
	}
	if stmts[0].Get("LetDecl") == nil {
		t.Fatal("const declaration misparsed")
	}
	if stmts[1].Get("Emit") == nil {
		t.Fatal("emit misparsed")
	}
}

func TestParseIfWithoutParensOrBraces(t *testing.T) {
	tree := mustParse(t, `
fn f(n: int64): int64 { if n < 2 return 1 else return 2 }
`)
	fn := tree.Items("TopDecl")[0].Get("MaybeExported").Get("ExportableDecl").Get("FnDecl")
	ifNode := fn.Get("Block").Items("Stmt")[0].Get("If")
	if ifNode == nil {
		t.Fatal("if statement misparsed")
	}
	if ifNode.Get("IfCond").Get("Assignables") == nil {
		t.Fatal("bare condition not captured")
	}
	if ifNode.Get("IfBody").Get("Stmt") == nil {
		t.Fatal("single-statement then-arm not captured")
	}
	if ifNode.Get("Else").Opt() == nil {
		t.Fatal("else arm lost")
	}
}

func TestParseOperatorExpression(t *testing.T) {
	tree := mustParse(t, `
on tick { print('got ' + n.toString()); }
`)
	// Grammar-level only: tick/print/n resolve later, during lowering.
	handler := tree.Items("TopDecl")[0].Get("HandlerDecl")
	stmt := handler.Get("HandlerBody").Get("Block").Items("Stmt")[0]
	assigns := stmt.Get("ExprStmt").Get("Assignables")
	if assigns == nil {
		t.Fatal("expression statement misparsed")
	}
}

func TestSingleAndDoubleQuotedStringsAgree(t *testing.T) {
	for _, src := range []string{`on t { print('hi'); }`, `on t { print("hi"); }`} {
		if _, err := Parse([]byte(src), "test.ln"); err != nil {
			t.Fatalf("%s: %v", src, err)
		}
	}
}

func TestStatementLevelComparisonIsNotAssignment(t *testing.T) {
	tree := mustParse(t, `on t { x == 1; }`)
	stmt := tree.Items("TopDecl")[0].Get("HandlerDecl").Get("HandlerBody").Get("Block").Items("Stmt")[0]
	if stmt.Get("Assign") != nil {
		t.Fatal("x == 1 must not parse as an assignment to x")
	}
	if stmt.Get("ExprStmt") == nil {
		t.Fatal("x == 1 should be an expression statement")
	}
}

func TestCommentsAreStripped(t *testing.T) {
	tree := mustParse(t, `
// leading comment
event tick: int64 /* inline */
`)
	if len(tree.Items("TopDecl")) != 1 {
		t.Fatal("comments must not produce declarations")
	}
	ev := tree.Items("TopDecl")[0].Get("MaybeExported").Get("ExportableDecl").Get("EventDecl")
	if ev.Get("Ident").Text != "tick" {
		t.Fatal("event name lost")
	}
	if ev.Get("Ident").Position.Line != 3 {
		t.Fatalf("line numbers must survive comment stripping, got %d", ev.Get("Ident").Position.Line)
	}
}

func TestSyntaxErrorIsStructured(t *testing.T) {
	_, err := Parse([]byte("event 123"), "broken.ln")
	if err == nil {
		t.Fatal("expected a syntax error")
	}
	rep, ok := cerrors.AsReport(err)
	if !ok {
		t.Fatalf("syntax errors must carry a report, got %T", err)
	}
	if rep.Code != cerrors.LEX003 {
		t.Fatalf("unexpected code %s", rep.Code)
	}
	if rep.Pos.File != "broken.ln" || rep.Pos.Line == 0 {
		t.Fatalf("position missing: %+v", rep.Pos)
	}
	if rep.Data["expected"] == nil {
		t.Fatal("expected-alternatives missing from the report")
	}
	if rep.Excerpt != "event 123" {
		t.Fatalf("offending source line must be attached, got %q", rep.Excerpt)
	}
}

func TestTrailingGarbageRejected(t *testing.T) {
	if _, err := Parse([]byte("event tick: int64 ???"), "test.ln"); err == nil {
		t.Fatal("trailing garbage must be a syntax error")
	}
}
