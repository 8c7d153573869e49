// Package lower turns a function or handler's parsed statement block
// into the three-address internal/ir form: expression trees are
// flattened into Dec-bound temporaries, operators are resolved against
// scope-bound precedence/fixity/candidate declarations, overloads are
// picked by a reverse-definition-order scan, and user function calls are
// inlined at their call sites. Cleanup then iterates every lowered
// statement to a fixed point instead of running a single-pass solver.
package lower

import (
	"github.com/ln-lang/lnc/internal/ir"
)

// env is a chain of local variable bindings, independent of
// internal/scope (locals are never Mergeable and never need a secondary
// parent) but following the same "walk to primary parent" shape.
type env struct {
	parent *env
	vars   map[string]*ir.VarDef
}

func newEnv(parent *env) *env {
	return &env{parent: parent, vars: map[string]*ir.VarDef{}}
}

func (e *env) lookup(name string) (*ir.VarDef, bool) {
	for cur := e; cur != nil; cur = cur.parent {
		if v, ok := cur.vars[name]; ok {
			return v, true
		}
	}
	return nil, false
}

func (e *env) declare(name string, v *ir.VarDef) {
	e.vars[name] = v
}
