package compile

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/ln-lang/lnc/internal/cerrors"
	"github.com/ln-lang/lnc/internal/config"
)

func compileSrc(t *testing.T, src string) (string, error) {
	t.Helper()
	return CompileString(src)
}

func mustCompile(t *testing.T, src string) string {
	t.Helper()
	out, err := compileSrc(t, src)
	require.NoError(t, err)
	return out
}

func errCode(t *testing.T, err error) cerrors.Code {
	t.Helper()
	require.Error(t, err)
	rep, ok := cerrors.AsReport(err)
	require.True(t, ok, "expected a structured report, got %v", err)
	return rep.Code
}

func TestEmitExitLiteral(t *testing.T) {
	out := mustCompile(t, `
from @std/app import start, exit
on start { emit exit 0; }
`)
	require.Contains(t, out, "const _const0: int8 = 0i8",
		"the exit payload literal becomes a global int8 const")
	require.Contains(t, out, "on _start fn (): void {")
	require.Contains(t, out, "emit exit")
	require.NotContains(t, out, "event _start", "runtime events are never declared")
	require.Contains(t, out, "event exit: int8")
	require.Contains(t, out, "exitop(x, @0)", "the standard exit handler applies the int8 exitop")
}

func TestEventPayloadNarrowsLiterals(t *testing.T) {
	out := mustCompile(t, `
from @std/app import start, print, exit
event aNumber: int64
on aNumber fn(num: int64) { print('I got a number! ' + num.toString()); emit exit 0; }
on start { emit aNumber 5; }
`)
	require.Contains(t, out, "event aNumber: int64")
	require.Contains(t, out, "on aNumber fn (num: int64): void {")
	require.Contains(t, out, "i64str(num, @0)",
		"toString on an int64 receiver selects the int64 conversion")
	require.Contains(t, out, "catstr(", "string + resolves to concatenation")
	require.Contains(t, out, "5i64", "the emitted literal narrows to the event payload width")
	require.Contains(t, out, `"I got a number! "str`)
	require.Equal(t, 3, strings.Count(out, "\non ")+boolToInt(strings.HasPrefix(out, "on ")),
		"start, exit and aNumber handlers")
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func TestOverloadSelectionAvoidsConversion(t *testing.T) {
	out := mustCompile(t, `
from @std/app import start, exit
on start { const x: int8 = 0; emit exit x; }
`)
	require.Contains(t, out, "const x: int8")
	require.Contains(t, out, "emit exit x")
	require.Contains(t, out, "exitop(x, @0)")
	for _, conv := range []string{"i8i16(", "i8i32(", "i8i64("} {
		require.NotContains(t, out, conv, "no width conversion may be inserted")
	}
}

func TestCrossTypeComparisonFails(t *testing.T) {
	_, err := compileSrc(t, `
from @std/app import start, print
on start { print(true == 1); }
`)
	require.Equal(t, cerrors.OPR001, errCode(t, err))
	rep, _ := cerrors.AsReport(err)
	require.True(t, strings.HasPrefix(rep.Message, "Cannot resolve operators with remaining statement"),
		"got %q", rep.Message)
	require.Contains(t, rep.Message, "true == 1")
	require.Contains(t, rep.Message, "<bool> == <int64>")
	require.Contains(t, rep.Excerpt, "true == 1", "the offending source line is attached")
}

func TestRecursionDetected(t *testing.T) {
	_, err := compileSrc(t, `
from @std/app import start, exit
fn f(n: int64) { if n < 2 return 1 else return f(n-1) + f(n-2) }
on start { f(3); }
`)
	require.Equal(t, cerrors.FNC003, errCode(t, err))
	rep, _ := cerrors.AsReport(err)
	require.Equal(t, "Recursive callstack detected: f -> f. Aborting.", rep.Message)
}

func TestImportOfUnexportedTypeFails(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "piece.ln"),
		[]byte(`type Piece { owner: bool }`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.ln"),
		[]byte(`from ./piece import Piece`), 0o644))

	_, err := CompileFileWith(filepath.Join(dir, "main.ln"), &config.Config{})
	require.Equal(t, cerrors.MOD004, errCode(t, err))
	require.Equal(t, 1, cerrors.ExitCode(err))
	rep, _ := cerrors.AsReport(err)
	require.Equal(t, "from ./piece import Piece", rep.Excerpt)
}

func TestWholeModuleImportQualifiedAccess(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lib.ln"), []byte(`
export const base: int8 = 1
export fn double(n: int64): int64 { return n + n }
`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.ln"), []byte(`
from @std/app import start, print, exit
import ./lib
on start { print(lib.double(21).toString()); emit exit lib.base; }
`), 0o644))

	out, err := CompileFileWith(filepath.Join(dir, "main.ln"), &config.Config{})
	require.NoError(t, err)

	require.Contains(t, out, "addi64(", "lib.double inlines through the export scope")
	require.Contains(t, out, "i64str(_r", "the inlined result feeds the conversion")
	require.Contains(t, out, "emit exit base", "lib.base resolves to the foreign const")
	require.NotContains(t, out, "lib.", "qualified names never reach the output")
	require.NotContains(t, out, "double(", "user calls must not survive to the output")
}

func TestWholeModuleImportUnknownMember(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lib.ln"),
		[]byte(`export const base: int8 = 1`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.ln"), []byte(`
from @std/app import start, exit
import ./lib
on start { emit exit lib.missing; }
`), 0o644))

	_, err := CompileFileWith(filepath.Join(dir, "main.ln"), &config.Config{})
	require.Equal(t, cerrors.NAM001, errCode(t, err))
	rep, _ := cerrors.AsReport(err)
	require.Contains(t, rep.Message, "not exported")
}

func TestUserFunctionsAreInlined(t *testing.T) {
	out := mustCompile(t, `
from @std/app import start, print
fn identity(n: int64): int64 { return n }
on start { print(identity(5).toString()); }
`)
	require.NotContains(t, out, "identity(", "user calls must not survive to the output")
	require.Contains(t, out, "i64str(_r1", "the inlined result slot feeds the conversion")
	require.Contains(t, out, "stdoutp(")
}

func TestUnreachableCodeRejected(t *testing.T) {
	_, err := compileSrc(t, `
from @std/app import start, exit
on start { return; emit exit 0; }
`)
	require.Equal(t, cerrors.FNC004, errCode(t, err))
	rep, _ := cerrors.AsReport(err)
	require.Contains(t, rep.Message, "Unreachable code in function 'on_start' after:")
	require.True(t, strings.HasPrefix(rep.Excerpt, "return"), "excerpt = %q", rep.Excerpt)
}

func TestOpcodeMisuse(t *testing.T) {
	_, err := compileSrc(t, `
from @std/app import start
on start { exitop(0); }
`)
	require.Equal(t, cerrors.FNC005, errCode(t, err))
	rep, _ := cerrors.AsReport(err)
	require.Equal(t, "exitop is not a function but used as one.", rep.Message)
}

func TestConstReassignmentRejected(t *testing.T) {
	_, err := compileSrc(t, `
from @std/app import start
on start { const x: int8 = 0; x = 1; }
`)
	require.Equal(t, cerrors.TYP005, errCode(t, err))
}

func TestLetReassignment(t *testing.T) {
	out := mustCompile(t, `
from @std/app import start
on start { let x: int64 = 1; x = 2; }
`)
	require.Contains(t, out, "let x: int64")
	require.Contains(t, out, "x: int64 = copyi64(")
}

func TestWrongTypeReassignmentRejected(t *testing.T) {
	_, err := compileSrc(t, `
from @std/app import start
on start { let x: int64 = 1; x = 'nope'; }
`)
	require.Equal(t, cerrors.TYP006, errCode(t, err))
}

func TestConditionalsLowerToClosures(t *testing.T) {
	out := mustCompile(t, `
from @std/app import start, print
on start { if true { print('yes'); } else { print('no'); } }
`)
	require.Contains(t, out, "condfn(")
	require.Contains(t, out, "execcond(")
	require.Contains(t, out, "fn _closure0 (): void {")
	require.Contains(t, out, "fn _closure1 (): void {")
	require.NotContains(t, out, "phi", "branch tables, never SSA phi nodes")
}

func TestHandlerSelectionRequiresExactlyOne(t *testing.T) {
	_, err := compileSrc(t, `
event tick: int64
fn nope(): int64 { return 1 }
on tick fn nope
`)
	require.Equal(t, cerrors.FNC002, errCode(t, err))
}

func TestModuleConstLoweredAtUse(t *testing.T) {
	out := mustCompile(t, `
from @std/app import start, exit
const status: int8 = 0
on start { emit exit status; }
`)
	require.Contains(t, out, "const status: int8")
	require.Contains(t, out, "emit exit status")
}

func TestOperatorPrecedence(t *testing.T) {
	out := mustCompile(t, `
from @std/app import start
on start { let x: int64 = 1 + 2 * 3; }
`)
	mul := strings.Index(out, "muli64(")
	add := strings.Index(out, "addi64(")
	require.True(t, mul >= 0 && add >= 0, "both operators must lower to int64 opcodes:\n%s", out)
	require.Less(t, mul, add, "* binds tighter than +")
}

func TestPrefixOperator(t *testing.T) {
	out := mustCompile(t, `
from @std/app import start
on start { let x: int64 = -5; }
`)
	require.Contains(t, out, "negi64(")
}

func TestLowPrecedencePrefixOperatorBindsLoosest(t *testing.T) {
	out := mustCompile(t, `
from @std/app import start
fn flip(n: int64): int64 { return 0 - n }
operator ~ (1 prefix) = flip
on start { let x: int64 = ~ 2 * 3; }
`)
	mul := strings.Index(out, "muli64(")
	sub := strings.Index(out, "subi64(")
	require.True(t, mul >= 0 && sub >= 0, "expected the product and the negation:\n%s", out)
	require.Less(t, mul, sub, "a precedence-1 prefix operator applies after the product, not before")
}

func TestPrefixInfixPrecedenceTieIsAmbiguous(t *testing.T) {
	_, err := compileSrc(t, `
from @std/app import start
fn flip(n: int64): int64 { return 0 - n }
operator ~ (7 prefix) = flip
on start { let x: int64 = ~ 2 * 3; }
`)
	require.Equal(t, cerrors.OPR002, errCode(t, err))
	rep, _ := cerrors.AsReport(err)
	require.Contains(t, rep.Message, "prefix and infix operators tie")
}

func TestDeterministicOutput(t *testing.T) {
	src := `
from @std/app import start, print, exit
event aNumber: int64
on aNumber fn(num: int64) { print(num.toString()); emit exit 0; }
on start { emit aNumber 5; }
`
	first := mustCompile(t, src)
	second := mustCompile(t, src)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("same input must emit identical AMM (-first +second):\n%s", diff)
	}
}

func TestWhitespaceInvariance(t *testing.T) {
	compact := mustCompile(t, `
from @std/app import start, exit
on start { emit exit 0; }
`)
	spaced := mustCompile(t, `
from   @std/app   import   start ,  exit

on start {
	emit exit 0 ;
}
`)
	if diff := cmp.Diff(compact, spaced); diff != "" {
		t.Fatalf("whitespace must not change the output (-compact +spaced):\n%s", diff)
	}
}

var (
	declLine = regexp.MustCompile(`^\s*(?:const |let )?([A-Za-z_][A-Za-z0-9_]*): [A-Za-z0-9]+ = ([A-Za-z_][A-Za-z0-9_]*)\((.*)\)$`)
	litToken = regexp.MustCompile(`^(?:-?[0-9.]+(?:i8|i16|i32|i64|f32|f64)|".*"str|(?:true|false)bool)$`)
)

// TestEmittedOperandsAreDeclared checks the output-shape invariant: every
// operand of every opcode call is @0, a literal with a recognized
// suffix, or a name declared somewhere in the program text.
func TestEmittedOperandsAreDeclared(t *testing.T) {
	out := mustCompile(t, `
from @std/app import start, print, exit
event aNumber: int64
on aNumber fn(num: int64) { print('n: ' + num.toString()); if num < 9 { emit exit 0; } }
on start { emit aNumber 5; }
`)

	declared := map[string]bool{}
	for _, line := range strings.Split(out, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "const ") || strings.HasPrefix(trimmed, "let ") {
			rest := strings.TrimPrefix(strings.TrimPrefix(trimmed, "const "), "let ")
			if i := strings.Index(rest, ":"); i > 0 {
				declared[rest[:i]] = true
			}
		}
		if m := regexp.MustCompile(`^on \S+ fn \(([^)]*)\)`).FindStringSubmatch(trimmed); m != nil {
			for _, p := range strings.Split(m[1], ",") {
				if name := strings.TrimSpace(strings.Split(p, ":")[0]); name != "" {
					declared[name] = true
				}
			}
		}
		if m := regexp.MustCompile(`^fn (\S+) `).FindStringSubmatch(trimmed); m != nil {
			declared[m[1]] = true
		}
	}

	for _, line := range strings.Split(out, "\n") {
		m := declLine.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		for _, arg := range strings.Split(m[3], ",") {
			arg = strings.TrimSpace(arg)
			if arg == "" || arg == "@0" || litToken.MatchString(arg) {
				continue
			}
			if !declared[arg] {
				t.Errorf("operand %q used without a declaration in line %q", arg, line)
			}
		}
	}
}
