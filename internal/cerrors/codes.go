// Package cerrors provides the centralized, phase-keyed error taxonomy
// for the Ln compiler: every diagnostic carries one of these codes plus
// a structured Report (see report.go).
package cerrors

// Code is a stable diagnostic identifier. Codes are grouped by compiler
// phase so a caller can classify an error without string-matching the
// message.
type Code string

const (
	// Lexing/parsing (LEX###)
	LEX001 Code = "LEX001" // unexpected character
	LEX002 Code = "LEX002" // unterminated string/char literal
	LEX003 Code = "LEX003" // unexpected token / grammar rule failed
	LEX004 Code = "LEX004" // trailing input after a complete parse

	// Module loading (MOD###)
	MOD001 Code = "MOD001" // source file not found / unreadable (IOError)
	MOD002 Code = "MOD002" // circular module dependency
	MOD003 Code = "MOD003" // import of a name the foreign module does not define
	MOD004 Code = "MOD004" // import of a name that exists but was not exported
	MOD005 Code = "MOD005" // malformed import path

	// Name resolution (NAM###)
	NAM001 Code = "NAM001" // identifier not found in scope
	NAM002 Code = "NAM002" // deepGet traversal hit a non-scope segment

	// Type system (TYP###)
	TYP001 Code = "TYP001" // struct field mismatch (missing/extra fields)
	TYP002 Code = "TYP002" // interface typed as a concrete field
	TYP003 Code = "TYP003" // instance() called on an undecided type
	TYP004 Code = "TYP004" // cross-type comparison / incompatible constraint
	TYP005 Code = "TYP005" // assignment to a const
	TYP006 Code = "TYP006" // reassigning a let to an incompatible type

	// Operator resolution (OPR###)
	OPR001 Code = "OPR001" // cannot resolve operators with remaining statement
	OPR002 Code = "OPR002" // prefix/infix ambiguity at equal precedence
	OPR003 Code = "OPR003" // multiple declared precedences for one symbol

	// Function/handler compilation (FNC###)
	FNC001 Code = "FNC001" // unable to find matching function overload
	FNC002 Code = "FNC002" // handler candidate selection did not converge to one
	FNC003 Code = "FNC003" // recursive callstack detected
	FNC004 Code = "FNC004" // unreachable code after return
	FNC005 Code = "FNC005" // opcode named directly as a value

	// AMM emission (AMM###)
	AMM001 Code = "AMM001" // expression cannot be rendered (unrenderable operand or call with no selected opcode)
)

// phaseOf derives the human phase name from a code's three-letter prefix.
func phaseOf(c Code) string {
	switch {
	case len(c) >= 3 && c[:3] == "LEX":
		return "parser"
	case len(c) >= 3 && c[:3] == "MOD":
		return "loader"
	case len(c) >= 3 && c[:3] == "NAM":
		return "resolve"
	case len(c) >= 3 && c[:3] == "TYP":
		return "typecheck"
	case len(c) >= 3 && c[:3] == "OPR":
		return "operators"
	case len(c) >= 3 && c[:3] == "FNC":
		return "compile"
	case len(c) >= 3 && c[:3] == "AMM":
		return "emit"
	default:
		return "unknown"
	}
}
