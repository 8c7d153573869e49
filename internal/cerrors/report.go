package cerrors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ln-lang/lnc/internal/ast"
)

// Report is the canonical structured diagnostic. Every error the
// compiler raises is built from one of these, wrapped in a CompileError
// so it survives errors.As unwrapping.
type Report struct {
	Code    Code
	Phase   string
	Message string
	Pos     ast.Pos
	Excerpt string         // offending source line, when available
	Data    map[string]any // structured detail, e.g. "expected": [...]
}

// CompileError wraps a Report as an error.
type CompileError struct {
	Rep *Report
}

func (e *CompileError) Error() string {
	if e.Rep == nil {
		return "unknown compile error"
	}
	if e.Rep.Pos.File != "" {
		return fmt.Sprintf("%s: %s at %s", e.Rep.Code, e.Rep.Message, e.Rep.Pos)
	}
	return fmt.Sprintf("%s: %s", e.Rep.Code, e.Rep.Message)
}

// AsReport extracts a *Report from an error chain, if present.
func AsReport(err error) (*Report, bool) {
	var ce *CompileError
	if errors.As(err, &ce) {
		return ce.Rep, true
	}
	return nil, false
}

// New builds and wraps a Report in one call.
func New(code Code, pos ast.Pos, message string, data map[string]any) error {
	return &CompileError{Rep: &Report{
		Code:    code,
		Phase:   phaseOf(code),
		Message: message,
		Pos:     pos,
		Data:    data,
	}}
}

// WithExcerpt attaches the offending source excerpt to an already-built
// CompileError and returns it, for callers that have a more precise
// excerpt than the error's source line.
func WithExcerpt(err error, excerpt string) error {
	if ce, ok := err.(*CompileError); ok && ce.Rep != nil {
		ce.Rep.Excerpt = excerpt
	}
	return err
}

// AttachExcerpt fills in a report's Excerpt with the source line its
// position points at, so every positioned error prints with the
// offending code. Errors that already carry an excerpt, have no
// position, or whose file the lookup does not know are returned
// untouched.
func AttachExcerpt(err error, source func(file string) ([]byte, bool)) error {
	rep, ok := AsReport(err)
	if !ok || rep.Excerpt != "" || rep.Pos.File == "" || rep.Pos.Line <= 0 {
		return err
	}
	src, ok := source(rep.Pos.File)
	if !ok {
		return err
	}
	lines := strings.Split(string(src), "\n")
	if rep.Pos.Line <= len(lines) {
		rep.Excerpt = strings.TrimSpace(lines[rep.Pos.Line-1])
	}
	return err
}

// ExitCode maps a compile error to the process exit code: 0 success,
// 1 user error (syntax/name/type), 2 I/O error.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	if rep, ok := AsReport(err); ok && rep.Code == MOD001 {
		return 2
	}
	return 1
}
