package cerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/ln-lang/lnc/internal/ast"
)

func TestReportSurvivesWrapping(t *testing.T) {
	err := New(TYP004, ast.Pos{File: "a.ln", Line: 3, Column: 7}, "bool is not int64", nil)
	wrapped := fmt.Errorf("while compiling: %w", err)

	rep, ok := AsReport(wrapped)
	if !ok {
		t.Fatal("AsReport must unwrap through fmt.Errorf")
	}
	if rep.Code != TYP004 || rep.Phase != "typecheck" {
		t.Fatalf("code/phase = %s/%s", rep.Code, rep.Phase)
	}
	if rep.Pos.Line != 3 {
		t.Fatalf("position lost: %+v", rep.Pos)
	}
}

func TestErrorStringIncludesPosition(t *testing.T) {
	err := New(NAM001, ast.Pos{File: "a.ln", Line: 1, Column: 2}, "x is not defined", nil)
	if got := err.Error(); got != `NAM001: x is not defined at a.ln:1:2` {
		t.Fatalf("unexpected rendering: %q", got)
	}
}

func TestWithExcerpt(t *testing.T) {
	err := New(FNC004, ast.Pos{}, "Unreachable code in function 'f' after:", nil)
	err = WithExcerpt(err, "return 1")
	rep, _ := AsReport(err)
	if rep.Excerpt != "return 1" {
		t.Fatalf("excerpt = %q", rep.Excerpt)
	}
}

func TestAttachExcerptQuotesTheSourceLine(t *testing.T) {
	src := []byte("line one\n  let x = 1\nline three")
	lookup := func(file string) ([]byte, bool) {
		if file == "a.ln" {
			return src, true
		}
		return nil, false
	}

	err := New(TYP004, ast.Pos{File: "a.ln", Line: 2, Column: 3}, "bad type", nil)
	err = AttachExcerpt(err, lookup)
	rep, _ := AsReport(err)
	if rep.Excerpt != "let x = 1" {
		t.Fatalf("excerpt = %q", rep.Excerpt)
	}

	// An existing excerpt is never overwritten.
	err2 := WithExcerpt(New(TYP004, ast.Pos{File: "a.ln", Line: 2}, "bad", nil), "precise")
	err2 = AttachExcerpt(err2, lookup)
	rep2, _ := AsReport(err2)
	if rep2.Excerpt != "precise" {
		t.Fatalf("excerpt overwritten: %q", rep2.Excerpt)
	}

	// Unknown files and position-less errors pass through untouched.
	err3 := AttachExcerpt(New(TYP004, ast.Pos{File: "other.ln", Line: 1}, "bad", nil), lookup)
	rep3, _ := AsReport(err3)
	if rep3.Excerpt != "" {
		t.Fatalf("unknown file must not gain an excerpt: %q", rep3.Excerpt)
	}
}

func TestExitCodes(t *testing.T) {
	if got := ExitCode(nil); got != 0 {
		t.Fatalf("success must be 0, got %d", got)
	}
	if got := ExitCode(New(MOD001, ast.Pos{}, "no such file", nil)); got != 2 {
		t.Fatalf("I/O errors must be 2, got %d", got)
	}
	if got := ExitCode(New(TYP001, ast.Pos{}, "missing fields", nil)); got != 1 {
		t.Fatalf("user errors must be 1, got %d", got)
	}
	if got := ExitCode(errors.New("plain")); got != 1 {
		t.Fatalf("unknown errors default to 1, got %d", got)
	}
}

func TestPhaseTable(t *testing.T) {
	cases := map[Code]string{
		LEX001: "parser",
		MOD002: "loader",
		NAM001: "resolve",
		TYP003: "typecheck",
		OPR001: "operators",
		FNC003: "compile",
		AMM001: "emit",
	}
	for code, phase := range cases {
		if got := phaseOf(code); got != phase {
			t.Errorf("phaseOf(%s) = %q, want %q", code, got, phase)
		}
	}
}
