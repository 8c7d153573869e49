// Package ir defines the lowered, three-address statement and expression
// forms produced by internal/lower: declarations, assignments, emits,
// exits, and branch tables over Ref/Lit/Call expressions.
package ir

import (
	"github.com/ln-lang/lnc/internal/sym"
	"github.com/ln-lang/lnc/internal/types"
)

// VarDef is a single local binding: a generated-or-source name, its type,
// and whether it may be the target of a later Assign (only `let` may).
type VarDef struct {
	Name    string
	Type    types.Handle
	Mutable bool
}

// Expr is the lowered expression sum type: Ref, Lit, or Call. Every
// operand of a Call or operator application is always a Ref, by
// construction of the lowering pass.
type Expr interface {
	Type(arena *types.Arena) types.Handle
	exprNode()
}

// Ref is a reference to a previously bound VarDef.
type Ref struct {
	Var *VarDef
}

func (*Ref) exprNode()                        {}
func (r *Ref) Type(*types.Arena) types.Handle { return r.Var.Type }

// Lit is a literal value; its Type may still be a OneOf until narrowed by
// argument-position constraints.
type Lit struct {
	Value   any
	ValueTy types.Handle
}

func (*Lit) exprNode()                        {}
func (l *Lit) Type(*types.Arena) types.Handle { return l.ValueTy }

// Call is a function application whose candidate pool narrows as its
// argument and result types do. Selected is nil until exactly one
// candidate survives (or an instance-directed scan picks one); final
// selection scans candidates in reverse definition order so the most
// recently declared overload wins ties.
type Call struct {
	Candidates *sym.FunctionSet
	Closure    *Ref
	Args       []*Ref
	Selected   *sym.Function
	ResultTy   types.Handle
}

func (*Call) exprNode()                        {}
func (c *Call) Type(*types.Arena) types.Handle { return c.ResultTy }

// constrainProgress applies Constrain and reports whether either side's
// narrowing state changed. Constraint failures are deliberately swallowed
// here: cleanup keeps iterating on the statements that can still make
// progress, and anything left undecidable is reported when the program is
// finalized for emission.
func constrainProgress(a *types.Arena, h, other types.Handle) bool {
	r1a, c1a := a.Fingerprint(h)
	r2a, c2a := a.Fingerprint(other)
	_ = a.Constrain(h, other)
	r1b, c1b := a.Fingerprint(h)
	r2b, c2b := a.Fingerprint(other)
	return r1a != r1b || c1a != c1b || r2a != r2b || c2a != c2b
}

// Resolve narrows the call's candidate pool against what is now known
// about its arguments and result, selecting a single overload as soon as
// one is forced.
func (c *Call) Resolve(a *types.Arena) bool {
	if c.Selected != nil {
		progressed := false
		for i, p := range c.Selected.Params {
			if i < len(c.Args) && constrainProgress(a, c.Args[i].Var.Type, p.Type) {
				progressed = true
			}
		}
		if constrainProgress(a, c.ResultTy, c.Selected.Return) {
			progressed = true
		}
		return progressed
	}

	var kept []*sym.Function
	for _, fn := range c.Candidates.Functions {
		if len(fn.Params) != len(c.Args) {
			continue
		}
		ok := a.CompatibleWithConstraint(c.ResultTy, fn.Return)
		for i := 0; ok && i < len(fn.Params); i++ {
			ok = a.CompatibleWithConstraint(c.Args[i].Var.Type, fn.Params[i].Type)
		}
		if ok {
			kept = append(kept, fn)
		}
	}
	progressed := len(kept) != len(c.Candidates.Functions)
	if progressed {
		c.Candidates = &sym.FunctionSet{Functions: kept}
	}
	if len(kept) == 0 {
		return progressed
	}
	if len(kept) == 1 {
		c.choose(a, kept[0])
		return true
	}

	for _, arg := range c.Args {
		if _, err := a.Instance(arg.Var.Type); err != nil {
			return progressed
		}
	}
	for _, fn := range (&sym.FunctionSet{Functions: kept}).ReverseCandidates() {
		ok := true
		for i, p := range fn.Params {
			inst, _ := a.Instance(c.Args[i].Var.Type)
			if !a.CompatibleWithConstraint(inst, p.Type) {
				ok = false
				break
			}
		}
		if ok {
			c.choose(a, fn)
			return true
		}
	}
	return progressed
}

func (c *Call) choose(a *types.Arena, fn *sym.Function) {
	c.Selected = fn
	for i, p := range fn.Params {
		if i < len(c.Args) {
			_ = a.Constrain(c.Args[i].Var.Type, p.Type)
		}
	}
	_ = a.Constrain(c.ResultTy, fn.Return)
}

func exprCleanup(a *types.Arena, e Expr) bool {
	if call, ok := e.(*Call); ok {
		return call.Resolve(a)
	}
	return false
}

// Stmt is the lowered statement sum type. Cleanup re-runs constraint
// propagation for this statement and reports whether it made progress;
// the fixed-point pass iterates until no statement does.
type Stmt interface {
	Cleanup(arena *types.Arena) bool
	stmtNode()
}

// Dec is a declaration statement: `(const|let) name: Type = expr`. A nil
// Expr marks a default-initialized mutable slot (used for inlined call
// results that are assigned from conditional branches).
type Dec struct {
	Immutable bool
	Name      string
	Var       *VarDef
	Expr      Expr
}

func (*Dec) stmtNode() {}

func (d *Dec) Cleanup(arena *types.Arena) bool {
	if d.Expr == nil {
		return false
	}
	progressed := exprCleanup(arena, d.Expr)
	if constrainProgress(arena, d.Var.Type, d.Expr.Type(arena)) {
		progressed = true
	}
	return progressed
}

// Assign is a reassignment of a `let` variable: `target = expr`.
type Assign struct {
	Target *VarDef
	Expr   Expr
}

func (*Assign) stmtNode() {}

func (a2 *Assign) Cleanup(arena *types.Arena) bool {
	progressed := exprCleanup(arena, a2.Expr)
	if constrainProgress(arena, a2.Target.Type, a2.Expr.Type(arena)) {
		progressed = true
	}
	return progressed
}

// Emit raises an event, optionally carrying one payload Ref. The payload
// is re-constrained against the event's declared type on every pass so a
// literal argument narrows to the payload width.
type Emit struct {
	Event *sym.Event
	Arg   *Ref
}

func (*Emit) stmtNode() {}

func (e *Emit) Cleanup(arena *types.Arena) bool {
	if e.Arg == nil {
		return false
	}
	return constrainProgress(arena, e.Arg.Var.Type, e.Event.Payload)
}

// Exit returns from the enclosing function/handler, optionally carrying
// one result Ref, against the function's declared return type.
type Exit struct {
	Arg      *Ref
	Declared types.Handle
}

func (*Exit) stmtNode() {}

func (e *Exit) Cleanup(arena *types.Arena) bool {
	if e.Arg == nil || e.Declared == 0 {
		return false
	}
	return constrainProgress(arena, e.Arg.Var.Type, e.Declared)
}

// CondBranch is one arm of a Cond branch table: a guard Ref (nil for the
// implicit else arm) and the statements to run when it holds.
type CondBranch struct {
	Guard *Ref
	Body  []Stmt
}

// Cond is a branch table, lowered from surface `if`/`else` into the
// closure-based condtable form rather than an SSA phi node, because the
// downstream IR has no phi support.
type Cond struct {
	Branches []CondBranch
}

func (*Cond) stmtNode() {}

func (c *Cond) Cleanup(arena *types.Arena) bool {
	progressed := false
	for _, br := range c.Branches {
		for _, s := range br.Body {
			if s.Cleanup(arena) {
				progressed = true
			}
		}
	}
	return progressed
}

// Walk visits every statement in stmts depth-first, descending into Cond
// branch bodies.
func Walk(stmts []Stmt, visit func(Stmt)) {
	for _, s := range stmts {
		visit(s)
		if c, ok := s.(*Cond); ok {
			for _, br := range c.Branches {
				Walk(br.Body, visit)
			}
		}
	}
}
