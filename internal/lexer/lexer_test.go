package lexer

import (
	"strings"
	"testing"
)

func TestNormalizeStripsBOM(t *testing.T) {
	src := append([]byte{0xEF, 0xBB, 0xBF}, []byte("const x = 1")...)
	got := Normalize(src)
	if string(got) != "const x = 1" {
		t.Fatalf("BOM not stripped: %q", got)
	}
}

func TestNormalizeNFC(t *testing.T) {
	// "e" + combining acute vs precomposed "é" must normalize to the
	// same bytes.
	decomposed := Normalize([]byte("cafe\u0301"))
	precomposed := Normalize([]byte("caf\u00e9"))
	if string(decomposed) != string(precomposed) {
		t.Fatalf("NFC forms differ: %q vs %q", decomposed, precomposed)
	}
}

func TestStripLineComment(t *testing.T) {
	got := string(StripComments([]byte("let x = 1 // trailing\nlet y = 2")))
	if strings.Contains(got, "trailing") {
		t.Fatalf("line comment not stripped: %q", got)
	}
	if !strings.Contains(got, "let y = 2") {
		t.Fatalf("code after the comment lost: %q", got)
	}
}

func TestStripBlockCommentPreservesLines(t *testing.T) {
	src := "a /* one\ntwo\nthree */ b"
	got := string(StripComments([]byte(src)))
	if strings.Count(got, "\n") != 2 {
		t.Fatalf("newlines inside a block comment must survive: %q", got)
	}
	if strings.Contains(got, "two") {
		t.Fatalf("block comment body must be blanked: %q", got)
	}
	if len(got) != len(src) {
		t.Fatalf("stripping must preserve byte offsets: %d != %d", len(got), len(src))
	}
}

func TestCommentsInsideStringsSurvive(t *testing.T) {
	src := `print("not // a comment") // real`
	got := string(StripComments([]byte(src)))
	if !strings.Contains(got, "not // a comment") {
		t.Fatalf("quoted // must be left alone: %q", got)
	}
	if strings.Contains(got, "real") {
		t.Fatalf("the real comment must be stripped: %q", got)
	}
}

func TestUnterminatedBlockComment(t *testing.T) {
	got := string(StripComments([]byte("a /* never closed")))
	if strings.Contains(got, "never") {
		t.Fatalf("unterminated comment must blank to end of input: %q", got)
	}
}
