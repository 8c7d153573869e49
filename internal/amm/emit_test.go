package amm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ln-lang/lnc/internal/ir"
	"github.com/ln-lang/lnc/internal/sym"
	"github.com/ln-lang/lnc/internal/types"
)

func testProgram(t *testing.T) (*types.Arena, *types.Builtins, *sym.Event, *sym.Event) {
	t.Helper()
	arena := types.NewArena()
	b := types.NewBuiltins(arena)
	start := &sym.Event{Name: "start", Payload: b.Void, Runtime: true}
	ping := &sym.Event{Name: "ping", Payload: b.Int64}
	return arena, b, start, ping
}

func litDec(name string, value any, ty types.Handle) (*ir.VarDef, ir.Stmt) {
	v := &ir.VarDef{Name: name, Type: ty}
	return v, &ir.Dec{Name: name, Var: v, Expr: &ir.Lit{Value: value, ValueTy: ty}}
}

func TestSectionsAppearInOrder(t *testing.T) {
	arena, b, start, ping := testProgram(t)

	v, dec := litDec("_t1", int64(7), b.Int64)
	body := []ir.Stmt{
		dec,
		&ir.Emit{Event: ping, Arg: &ir.Ref{Var: v}},
		&ir.Exit{},
	}
	fn := &sym.Function{Name: "on_start", Return: b.Void}

	out, err := Emit(arena, b, []*sym.Event{start, ping}, []Handler{{Event: start, Fn: fn, Body: body}})
	require.NoError(t, err)

	constAt := strings.Index(out, "const _const0: int64 = 7i64")
	eventAt := strings.Index(out, "event ping: int64")
	handlerAt := strings.Index(out, "on _start fn (): void {")
	require.True(t, constAt >= 0 && eventAt >= 0 && handlerAt >= 0, "missing section:\n%s", out)
	require.Less(t, constAt, eventAt)
	require.Less(t, eventAt, handlerAt)

	require.NotContains(t, out, "event start", "runtime events are not declared")
	require.Contains(t, out, "emit ping _t1")
	require.Contains(t, out, "  return\n}")
}

func TestIdenticalLiteralsShareOneGlobal(t *testing.T) {
	arena, b, start, ping := testProgram(t)

	v1, dec1 := litDec("_t1", int64(7), b.Int64)
	v2, dec2 := litDec("_t2", int64(7), b.Int64)
	body := []ir.Stmt{
		dec1,
		&ir.Emit{Event: ping, Arg: &ir.Ref{Var: v1}},
		dec2,
		&ir.Emit{Event: ping, Arg: &ir.Ref{Var: v2}},
	}
	fn := &sym.Function{Name: "on_start", Return: b.Void}

	out, err := Emit(arena, b, []*sym.Event{start, ping}, []Handler{{Event: start, Fn: fn, Body: body}})
	require.NoError(t, err)

	require.Equal(t, 1, strings.Count(out, "= 7i64"), "one global per unique (type, literal) pair")
	require.Equal(t, 2, strings.Count(out, "copyi64(_const0)"), "both temporaries copy the same global")
}

func TestCopyLinesHoistToBodyStart(t *testing.T) {
	arena, b, start, ping := testProgram(t)

	v1, dec1 := litDec("_t1", int64(1), b.Int64)
	v2, dec2 := litDec("_t2", int64(2), b.Int64)
	body := []ir.Stmt{
		dec1,
		&ir.Emit{Event: ping, Arg: &ir.Ref{Var: v1}},
		dec2,
		&ir.Emit{Event: ping, Arg: &ir.Ref{Var: v2}},
	}
	fn := &sym.Function{Name: "on_start", Return: b.Void}

	out, err := Emit(arena, b, []*sym.Event{start, ping}, []Handler{{Event: start, Fn: fn, Body: body}})
	require.NoError(t, err)

	secondCopy := strings.Index(out, "copyi64(_const1)")
	firstEmit := strings.Index(out, "emit ping")
	require.True(t, secondCopy >= 0 && firstEmit >= 0)
	require.Less(t, secondCopy, firstEmit, "every literal copy-line precedes the first use")
}

func TestOpcodeCallPadsWithSentinel(t *testing.T) {
	arena, b, start, _ := testProgram(t)

	exitFn := &sym.Function{
		Name:       "on_exit",
		Params:     []sym.Param{{Name: "x", Type: b.Int8}},
		Return:     b.Void,
		IsOpcode:   true,
		OpcodeName: "exitop",
	}
	result := &ir.VarDef{Name: "_t1", Type: b.Void}
	body := []ir.Stmt{
		&ir.Dec{Name: "_t1", Var: result, Expr: &ir.Call{
			Candidates: &sym.FunctionSet{Functions: []*sym.Function{exitFn}},
			Selected:   exitFn,
			Args:       []*ir.Ref{{Var: &ir.VarDef{Name: "x", Type: b.Int8}}},
			ResultTy:   b.Void,
		}},
		&ir.Exit{},
	}
	exitEvent := &sym.Event{Name: "exit", Payload: b.Int8}

	out, err := Emit(arena, b, []*sym.Event{start, exitEvent}, []Handler{{Event: exitEvent, Fn: exitFn, Body: body}})
	require.NoError(t, err)

	require.Contains(t, out, "on exit fn (x: int8): void {")
	require.Contains(t, out, "const _t1: void = exitop(x, @0)")
}

func TestUndecidedCallIsAnError(t *testing.T) {
	arena, b, start, _ := testProgram(t)

	v := &ir.VarDef{Name: "_t1", Type: b.Int64}
	body := []ir.Stmt{
		&ir.Dec{Name: "_t1", Var: v, Expr: &ir.Call{
			Candidates: &sym.FunctionSet{},
			Args:       nil,
			ResultTy:   b.Int64,
		}},
	}
	fn := &sym.Function{Name: "on_start", Return: b.Void}

	_, err := Emit(arena, b, []*sym.Event{start}, []Handler{{Event: start, Fn: fn, Body: body}})
	require.Error(t, err, "a call with no selected opcode must not render")
}
