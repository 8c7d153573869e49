package syntax

import "github.com/ln-lang/lnc/internal/lexer"

// stripForParse runs the two source-level passes that happen before any
// grammar rule sees a byte: Unicode normalization and comment stripping.
func stripForParse(src []byte) []byte {
	return lexer.StripComments(lexer.Normalize(src))
}
