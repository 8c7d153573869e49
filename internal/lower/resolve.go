package lower

import (
	"fmt"
	"strings"

	"github.com/ln-lang/lnc/internal/ast"
	"github.com/ln-lang/lnc/internal/cerrors"
	"github.com/ln-lang/lnc/internal/ir"
	"github.com/ln-lang/lnc/internal/sym"
	"github.com/ln-lang/lnc/internal/types"
)

// resolveTypeRef resolves a bare "TypeRef" node against the declaring
// module's scope. Unlike internal/module's version this never needs a
// generics map: local `let`/`const` type annotations can only name
// already-declared nominal types, never a generic parameter.
func (c *ctx) resolveTypeRef(node *ast.Node) (types.Handle, error) {
	name := node.Get("Ident").Text
	b, ok := c.modScope.Get(name)
	if !ok {
		return 0, cerrors.New(cerrors.NAM001, node.Position, fmt.Sprintf("unknown type %q", name), nil)
	}
	tb, ok := b.(*sym.TypeBinding)
	if !ok {
		return 0, cerrors.New(cerrors.NAM001, node.Position, fmt.Sprintf("%q is not a type", name), nil)
	}
	return tb.Handle, nil
}

// filterCandidates keeps the functions whose arity matches and whose
// parameters could each accept the corresponding argument's current
// type, probing without mutation.
func (c *ctx) filterCandidates(candidates *sym.FunctionSet, args []*ir.Ref) []*sym.Function {
	var kept []*sym.Function
	for _, fn := range candidates.Functions {
		if len(fn.Params) != len(args) {
			continue
		}
		ok := true
		for i, p := range fn.Params {
			if !c.arena.CompatibleWithConstraint(args[i].Var.Type, p.Type) {
				ok = false
				break
			}
		}
		if ok {
			kept = append(kept, fn)
		}
	}
	return kept
}

// selectEager picks a single definition right now, scanning reverse
// definition order so the most recently declared overload wins ties.
// Each candidate's parameters are probed with TempConstrain/ResetTemp so
// a rejected candidate never leaves a mark on the argument's type.
func (c *ctx) selectEager(kept []*sym.Function, args []*ir.Ref, pos ast.Pos) (*sym.Function, error) {
	set := &sym.FunctionSet{Functions: kept}
	for _, fn := range set.ReverseCandidates() {
		ok := true
		for i, p := range fn.Params {
			if err := c.arena.TempConstrain(args[i].Var.Type, p.Type); err != nil {
				ok = false
			}
		}
		for i := range fn.Params {
			c.arena.ResetTemp(args[i].Var.Type)
		}
		if ok {
			return fn, nil
		}
	}
	return nil, cerrors.New(cerrors.FNC001, pos, "Unable to find matching function", nil)
}

func hasUserFunction(fns []*sym.Function) bool {
	for _, fn := range fns {
		if !fn.IsOpcode {
			return true
		}
	}
	return false
}

// paramOneOf constrains args[i] to the set of parameter types the
// surviving candidates declare at position i.
func (c *ctx) paramOneOf(kept []*sym.Function, args []*ir.Ref, i int) {
	var distinct []types.Handle
	seen := map[types.Handle]bool{}
	for _, fn := range kept {
		h := c.arena.Resolve(fn.Params[i].Type)
		if !seen[h] {
			seen[h] = true
			distinct = append(distinct, h)
		}
	}
	switch len(distinct) {
	case 0:
	case 1:
		_ = c.arena.Constrain(args[i].Var.Type, distinct[0])
	default:
		_ = c.arena.Constrain(args[i].Var.Type, c.arena.NewOneOf(distinct))
	}
}

// resultType builds the call's return type: the single shared return
// when every surviving candidate agrees, otherwise a OneOf of the
// distinct returns, narrowed as the candidate pool shrinks.
func (c *ctx) resultType(kept []*sym.Function) types.Handle {
	var distinct []types.Handle
	seen := map[types.Handle]bool{}
	for _, fn := range kept {
		h := c.arena.Resolve(fn.Return)
		if !seen[h] {
			seen[h] = true
			distinct = append(distinct, h)
		}
	}
	if len(distinct) == 1 {
		return c.arena.Dup(distinct[0])
	}
	return c.arena.NewOneOf(distinct)
}

// buildCall turns a candidate pool plus lowered arguments into either an
// opcode Call bound to a fresh temporary, or — for a user-defined
// function — the function's body inlined at the call site. Opcode calls
// keep their whole surviving candidate set; the single winner is decided
// during cleanup, once every argument type has an instance.
func (c *ctx) buildCall(candidates *sym.FunctionSet, args []*ir.Ref, pos ast.Pos, stmts *[]ir.Stmt) (*ir.Ref, error) {
	kept := c.filterCandidates(candidates, args)
	if len(kept) == 0 {
		return nil, cerrors.New(cerrors.FNC001, pos, "Unable to find matching function", nil)
	}

	if hasUserFunction(kept) {
		fn, err := c.selectEager(kept, args, pos)
		if err != nil {
			return nil, err
		}
		if !fn.IsOpcode {
			return c.inlineCall(fn, args, pos, stmts)
		}
		kept = []*sym.Function{fn}
	}

	for i := range args {
		c.paramOneOf(kept, args, i)
	}
	resultTy := c.resultType(kept)
	call := &ir.Call{Candidates: &sym.FunctionSet{Functions: kept}, Args: args, ResultTy: resultTy}
	if len(kept) == 1 {
		call.Selected = kept[0]
	}
	temp := c.newTemp(resultTy)
	*stmts = append(*stmts, &ir.Dec{Name: temp.Name, Var: temp, Expr: call})
	return &ir.Ref{Var: temp}, nil
}

// inlineCall splices fn's body into the current statement stream. The
// callee's parameters bind directly to the caller's argument refs; its
// returns become assignments to a dedicated result slot. A function
// already on the callstack is a recursion error: the downstream form has
// no call instruction to loop back with.
func (c *ctx) inlineCall(fn *sym.Function, args []*ir.Ref, pos ast.Pos, stmts *[]ir.Stmt) (*ir.Ref, error) {
	for i, onStack := range c.callstack {
		if onStack == fn {
			names := make([]string, 0, len(c.callstack)-i+1)
			for _, f := range c.callstack[i:] {
				names = append(names, f.Name)
			}
			names = append(names, fn.Name)
			return nil, cerrors.New(cerrors.FNC003, pos,
				fmt.Sprintf("Recursive callstack detected: %s. Aborting.", strings.Join(names, " -> ")), nil)
		}
	}

	callee := newEnv(nil)
	for i, p := range fn.Params {
		pt := c.arena.Dup(p.Type)
		if err := c.arena.Constrain(args[i].Var.Type, pt); err != nil {
			return nil, cerrors.New(cerrors.FNC001, pos, "Unable to find matching function", nil)
		}
		callee.declare(p.Name, args[i].Var)
	}

	c.inlineN++
	var retVar *ir.VarDef
	if fn.Return != 0 && fn.Return != c.catalog.Builtins.Void {
		retVar = &ir.VarDef{Name: fmt.Sprintf("_r%d", c.inlineN), Type: c.arena.Dup(fn.Return), Mutable: true}
		*stmts = append(*stmts, &ir.Dec{Name: retVar.Name, Var: retVar})
	}

	savedLocals, savedScope, savedRet := c.locals, c.modScope, c.retType
	savedInlineRet, savedName, savedMangle := c.inlineRet, c.fnName, c.mangleN
	c.locals, c.modScope, c.retType = callee, fn.Owner, fn.Return
	c.inlineRet, c.fnName, c.mangleN = retVar, fn.Name, c.inlineN
	c.callstack = append(c.callstack, fn)
	c.inlineDepth++

	body, err := c.lowerBlock(fn.BodyNode)

	c.inlineDepth--
	c.callstack = c.callstack[:len(c.callstack)-1]
	c.locals, c.modScope, c.retType = savedLocals, savedScope, savedRet
	c.inlineRet, c.fnName, c.mangleN = savedInlineRet, savedName, savedMangle

	if err != nil {
		return nil, err
	}
	*stmts = append(*stmts, body...)
	if retVar != nil {
		return &ir.Ref{Var: retVar}, nil
	}
	return &ir.Ref{Var: &ir.VarDef{Name: "_", Type: c.catalog.Builtins.Void}}, nil
}

// opGroup looks up symbol's operator binding: unbound symbol, non-
// operator bindings, and conflicting precedence declarations are each
// their own error.
func (c *ctx) opGroup(symbol string, pos ast.Pos) (*sym.OperatorGroup, error) {
	b, ok := c.modScope.Get(symbol)
	if !ok {
		return nil, cerrors.New(cerrors.OPR001, pos, fmt.Sprintf("unknown operator %q", symbol), nil)
	}
	g, ok := b.(*sym.OperatorGroup)
	if !ok {
		return nil, cerrors.New(cerrors.OPR001, pos, fmt.Sprintf("%q is not an operator", symbol), nil)
	}
	if g.Conflict {
		return nil, cerrors.New(cerrors.OPR003, pos, fmt.Sprintf("operator %q has conflicting precedence declarations", symbol), nil)
	}
	return g, nil
}

// opElem is one slot of the operand/operator array operator resolution
// reduces over: exactly one of ref and op is set.
type opElem struct {
	ref    *ir.Ref
	op     *sym.Operator
	prefix bool
	symbol string
}

// operatorFailure renders the canonical unresolvable-operator report: the
// source text of the statement that would not reduce, then the remaining
// operand types and operator symbols.
func (c *ctx) operatorFailure(seq []opElem, srcText string, pos ast.Pos) error {
	parts := make([]string, 0, len(seq))
	for _, e := range seq {
		if e.ref != nil {
			parts = append(parts, "<"+c.arena.Describe(e.ref.Var.Type)+">")
		} else {
			parts = append(parts, e.symbol)
		}
	}
	msg := fmt.Sprintf("Cannot resolve operators with remaining statement\n%s\n%s",
		strings.TrimSpace(srcText), strings.Join(parts, " "))
	return cerrors.New(cerrors.OPR001, pos, msg, nil)
}

// wrapOperatorErr converts an overload-selection failure inside a
// reduction into the unresolvable-operator report; other errors pass
// through untouched.
func (c *ctx) wrapOperatorErr(err error, seq []opElem, srcText string, pos ast.Pos) error {
	if rep, ok := cerrors.AsReport(err); ok && rep.Code == cerrors.FNC001 {
		return c.operatorFailure(seq, srcText, pos)
	}
	return err
}

// resolveOperators reduces the interleaved operand/operator sequence by
// precedence, prefix and infix operators competing together: on each
// round the highest precedence still present is reduced — right-to-left
// for prefix operators, left-to-right for infix — and a prefix/infix tie
// at the same precedence is an ambiguity error. The parse tree carries
// no precedence or associativity at all, so this is the only place
// either is decided.
func (c *ctx) resolveOperators(seq []opElem, srcText string, pos ast.Pos, stmts *[]ir.Stmt) (*ir.Ref, error) {
	for {
		if len(seq) == 1 && seq[0].ref != nil {
			return seq[0].ref, nil
		}

		maxPrec, hasOp := 0, false
		for _, e := range seq {
			if e.op == nil {
				continue
			}
			if !hasOp || e.op.Precedence > maxPrec {
				maxPrec = e.op.Precedence
			}
			hasOp = true
		}
		if !hasOp {
			return nil, c.operatorFailure(seq, srcText, pos)
		}

		prefixAtMax, infixAtMax := false, false
		for _, e := range seq {
			if e.op != nil && e.op.Precedence == maxPrec {
				if e.prefix {
					prefixAtMax = true
				} else {
					infixAtMax = true
				}
			}
		}
		if prefixAtMax && infixAtMax {
			return nil, cerrors.New(cerrors.OPR002, pos,
				fmt.Sprintf("ambiguous expression: prefix and infix operators tie at precedence %d in %q",
					maxPrec, strings.TrimSpace(srcText)), nil)
		}

		var err error
		if prefixAtMax {
			seq, err = c.reducePrefix(seq, maxPrec, srcText, pos, stmts)
		} else {
			seq, err = c.reduceInfix(seq, maxPrec, srcText, pos, stmts)
		}
		if err != nil {
			return nil, err
		}
	}
}

// reducePrefix applies the rightmost prefix operator at prec to the
// operand to its right, giving right-associativity so `- -x` reads as
// negate(negate(x)).
func (c *ctx) reducePrefix(seq []opElem, prec int, srcText string, pos ast.Pos, stmts *[]ir.Stmt) ([]opElem, error) {
	for i := len(seq) - 1; i >= 0; i-- {
		e := seq[i]
		if e.op == nil || !e.prefix || e.op.Precedence != prec {
			continue
		}
		if i+1 >= len(seq) || seq[i+1].ref == nil {
			return nil, c.operatorFailure(seq, srcText, pos)
		}
		result, err := c.buildCall(e.op.Candidates, []*ir.Ref{seq[i+1].ref}, pos, stmts)
		if err != nil {
			return nil, c.wrapOperatorErr(err, seq, srcText, pos)
		}
		out := append(append([]opElem{}, seq[:i]...), opElem{ref: result})
		return append(out, seq[i+2:]...), nil
	}
	return nil, c.operatorFailure(seq, srcText, pos)
}

// reduceInfix applies the leftmost infix operator at prec to the
// operands on either side, giving left-associativity within a
// precedence level.
func (c *ctx) reduceInfix(seq []opElem, prec int, srcText string, pos ast.Pos, stmts *[]ir.Stmt) ([]opElem, error) {
	for i, e := range seq {
		if e.op == nil || e.prefix || e.op.Precedence != prec {
			continue
		}
		if i == 0 || seq[i-1].ref == nil || i+1 >= len(seq) || seq[i+1].ref == nil {
			return nil, c.operatorFailure(seq, srcText, pos)
		}
		result, err := c.buildCall(e.op.Candidates, []*ir.Ref{seq[i-1].ref, seq[i+1].ref}, pos, stmts)
		if err != nil {
			return nil, c.wrapOperatorErr(err, seq, srcText, pos)
		}
		out := append(append([]opElem{}, seq[:i-1]...), opElem{ref: result})
		return append(out, seq[i+2:]...), nil
	}
	return nil, c.operatorFailure(seq, srcText, pos)
}
