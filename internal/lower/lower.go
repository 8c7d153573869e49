package lower

import (
	"fmt"

	"github.com/ln-lang/lnc/internal/ast"
	"github.com/ln-lang/lnc/internal/cerrors"
	"github.com/ln-lang/lnc/internal/ir"
	"github.com/ln-lang/lnc/internal/opcode"
	"github.com/ln-lang/lnc/internal/scope"
	"github.com/ln-lang/lnc/internal/sym"
	"github.com/ln-lang/lnc/internal/types"
)

// ctx carries everything one handler body's lowering needs: the arena and
// catalog shared across the whole compilation, the declaring module's
// scope, the current chain of local bindings, the inline callstack, and a
// per-handler temp-name counter.
type ctx struct {
	arena    *types.Arena
	catalog  *opcode.Catalog
	modScope *scope.Scope
	locals   *env
	tempN    int
	retType  types.Handle
	fnName   string

	// callstack holds the chain of user functions currently being
	// inlined, root handler first, so a cycle is caught the moment a
	// function re-enters itself.
	callstack   []*sym.Function
	inlineDepth int
	inlineN     int
	mangleN     int // the inline instance locals are being renamed under
	inlineRet   *ir.VarDef

	constRefs map[*sym.Const]*ir.Ref
}

func (c *ctx) newTemp(t types.Handle) *ir.VarDef {
	c.tempN++
	return &ir.VarDef{Name: fmt.Sprintf("_t%d", c.tempN), Type: t, Mutable: false}
}

// mangle renames a local declared inside an inlined body so two inline
// instantiations of the same function never collide in one handler.
func (c *ctx) mangle(name string) string {
	if c.inlineDepth == 0 {
		return name
	}
	return fmt.Sprintf("%s_%d", name, c.mangleN)
}

// LowerFunction lowers fn.BodyNode into a flat statement list, seeding
// the local environment with its parameters. User function calls are
// inlined at their call sites, so the returned statements contain only
// opcode calls. The statements still need Cleanup passes before any
// Call's Selected field can be trusted as final.
func LowerFunction(arena *types.Arena, cat *opcode.Catalog, modScope *scope.Scope, fn *sym.Function) ([]ir.Stmt, error) {
	c := &ctx{
		arena: arena, catalog: cat, modScope: modScope,
		locals: newEnv(nil), retType: fn.Return, fnName: fn.Name,
		callstack: []*sym.Function{fn},
		constRefs: map[*sym.Const]*ir.Ref{},
	}
	for _, p := range fn.Params {
		pt := arena.Dup(p.Type)
		c.locals.declare(p.Name, &ir.VarDef{Name: p.Name, Type: pt, Mutable: false})
	}
	if fn.BodyNode == nil {
		return nil, nil
	}
	return c.lowerBlock(fn.BodyNode)
}

// Cleanup iterates stmts to a fixed point: constraints narrow OneOf and
// Generated handles as other statements' types become known, and the
// loop stops only when a full pass makes no further progress. The pass
// terminates because every step is monotone; a pass that narrows nothing
// reports no progress.
func Cleanup(arena *types.Arena, stmts []ir.Stmt) {
	for {
		progressed := false
		for _, s := range stmts {
			if s.Cleanup(arena) {
				progressed = true
			}
		}
		if !progressed {
			return
		}
	}
}

// Finalize forces a decision on every call Cleanup left open: arguments
// whose literal types nothing ever constrained collapse to their display
// defaults, then the overload scan runs one last time. A call that still
// has no single winner is an error.
func Finalize(arena *types.Arena, stmts []ir.Stmt) error {
	var failed *ir.Call
	ir.Walk(stmts, func(s ir.Stmt) {
		if failed != nil {
			return
		}
		var e ir.Expr
		switch st := s.(type) {
		case *ir.Dec:
			e = st.Expr
		case *ir.Assign:
			e = st.Expr
		}
		call, ok := e.(*ir.Call)
		if !ok || call.Selected != nil {
			return
		}
		for _, arg := range call.Args {
			_ = arena.DefaultNarrow(arg.Var.Type)
		}
		call.Resolve(arena)
		if call.Selected == nil {
			failed = call
		}
	})
	if failed != nil {
		return cerrors.New(cerrors.FNC001, ast.Pos{}, "Unable to find matching function", nil)
	}
	return nil
}

func typeErr(pos ast.Pos, msg string) error {
	return cerrors.New(cerrors.TYP004, pos, msg, nil)
}
