// Package lexer performs the source-level preprocessing that happens
// before grammar combinators in internal/syntax ever see a byte: input
// normalization and comment stripping.
package lexer

import (
	"bytes"

	"golang.org/x/text/unicode/norm"
)

var bomUTF8 = []byte{0xEF, 0xBB, 0xBF}

// Normalize strips a leading UTF-8 BOM and applies Unicode NFC
// normalization, so lexically identical source produces an identical
// parse tree regardless of encoding form.
func Normalize(src []byte) []byte {
	src = bytes.TrimPrefix(src, bomUTF8)
	if !norm.NFC.IsNormal(src) {
		src = norm.NFC.Bytes(src)
	}
	return src
}
