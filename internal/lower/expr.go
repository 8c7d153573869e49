package lower

import (
	"fmt"
	"strconv"

	"github.com/ln-lang/lnc/internal/ast"
	"github.com/ln-lang/lnc/internal/cerrors"
	"github.com/ln-lang/lnc/internal/ir"
	"github.com/ln-lang/lnc/internal/scope"
	"github.com/ln-lang/lnc/internal/sym"
	"github.com/ln-lang/lnc/internal/types"
)

// lowerAssignables lowers one "Assignables" node — the grammar's flat,
// precedence-free alternating list of prefix operators, operands, and
// infix operators — into a chain of temp Decs, returning a Ref to the
// final result. Fixity is decided by position (an operator immediately
// following an expression is infix, otherwise prefix); reduction order
// across both kinds is decided by precedence in resolveOperators.
func (c *ctx) lowerAssignables(node *ast.Node, stmts *[]ir.Stmt) (*ir.Ref, error) {
	var seq []opElem

	appendPrefix := func(items []*ast.Node, pos ast.Pos) error {
		for _, it := range items {
			symbol := it.Get("OperatorSymbol").Text
			g, err := c.opGroup(symbol, pos)
			if err != nil {
				return err
			}
			if g.Prefix == nil {
				return cerrors.New(cerrors.OPR001, pos, fmt.Sprintf("%q has no prefix form", symbol), nil)
			}
			seq = append(seq, opElem{op: g.Prefix, prefix: true, symbol: symbol})
		}
		return nil
	}

	if err := appendPrefix(node.Items("PrefixOperator"), node.Position); err != nil {
		return nil, err
	}
	first, err := c.lowerBaseAssignableList(node.Get("BaseAssignableList"), stmts)
	if err != nil {
		return nil, err
	}
	seq = append(seq, opElem{ref: first})

	for _, tail := range node.Items("AssignablesTail") {
		symbol := tail.Get("OperatorItem").Get("OperatorSymbol").Text
		g, err := c.opGroup(symbol, tail.Position)
		if err != nil {
			return nil, err
		}
		if g.Infix == nil {
			return nil, cerrors.New(cerrors.OPR001, tail.Position, fmt.Sprintf("%q has no infix form", symbol), nil)
		}
		seq = append(seq, opElem{op: g.Infix, symbol: symbol})

		if err := appendPrefix(tail.Items("TailPrefix"), tail.Position); err != nil {
			return nil, err
		}
		operand, err := c.lowerBaseAssignableList(tail.Get("BaseAssignableList"), stmts)
		if err != nil {
			return nil, err
		}
		seq = append(seq, opElem{ref: operand})
	}

	if len(seq) == 1 {
		return seq[0].ref, nil
	}
	return c.resolveOperators(seq, node.Text, node.Position, stmts)
}

// lowerBaseAssignableList lowers one dot-chained segment: an identifier
// reference, a bare call, or a literal, followed by zero or more
// `.name(args)` suffixes. A bare identifier bound to a whole-module
// import routes the dotted chain through the foreign export scope
// instead of method dispatch.
func (c *ctx) lowerBaseAssignableList(node *ast.Node, stmts *[]ir.Stmt) (*ir.Ref, error) {
	seg := node.Get("AssignSeg")
	suffixes := node.Items("DotSuffix")

	if is := seg.Get("IdentSeg"); is != nil && is.Get("IdentCall").Opt() == nil {
		name := is.Get("Ident").Text
		if _, isLocal := c.locals.lookup(name); !isLocal {
			if b, ok := c.modScope.Get(name); ok {
				if _, isMod := b.(scope.NestedScope); isMod {
					return c.lowerQualified(is.Get("Ident"), suffixes, stmts)
				}
			}
		}
	}

	var ref *ir.Ref
	var err error
	switch {
	case seg.Get("IdentSeg") != nil:
		ref, err = c.lowerIdentSeg(seg.Get("IdentSeg"), stmts)
	case seg.Get("LiteralSeg") != nil:
		ref, err = c.lowerLiteral(seg.Get("LiteralSeg"), stmts)
	}
	if err != nil {
		return nil, err
	}
	return c.applyDotSuffixes(ref, suffixes, stmts)
}

// lowerQualified resolves `alias.a.b...` where alias names a whole-module
// import: each dotted segment descends through export scopes via DeepGet
// until a constant or callable is reached, and anything after that point
// is ordinary method dispatch on the resolved value.
func (c *ctx) lowerQualified(ident *ast.Node, suffixes []*ast.Node, stmts *[]ir.Stmt) (*ir.Ref, error) {
	path := ident.Text
	for i, ds := range suffixes {
		name := ds.Get("Ident").Text
		call := ds.Get("DotCall").Opt()
		full := path + "." + name
		b, ok := c.modScope.DeepGet(full)
		if !ok {
			return nil, cerrors.New(cerrors.NAM001, ds.Position,
				fmt.Sprintf("%q is not exported by %q", name, path), nil)
		}
		switch bound := b.(type) {
		case scope.NestedScope:
			if call != nil {
				return nil, cerrors.New(cerrors.NAM001, ds.Position,
					fmt.Sprintf("%q is a module, not a function", full), nil)
			}
			path = full
		case *sym.Const:
			if call != nil {
				return nil, cerrors.New(cerrors.NAM001, ds.Position,
					fmt.Sprintf("%q is a constant, not a function", full), nil)
			}
			ref, err := c.constRef(bound, stmts)
			if err != nil {
				return nil, err
			}
			return c.applyDotSuffixes(ref, suffixes[i+1:], stmts)
		case *sym.FunctionSet:
			if call == nil {
				return nil, cerrors.New(cerrors.NAM001, ds.Position,
					fmt.Sprintf("%q is a function and must be called", full), nil)
			}
			if rawOpcodeSet(name, bound) {
				return nil, cerrors.New(cerrors.FNC005, ds.Position,
					fmt.Sprintf("%s is not a function but used as one.", name), nil)
			}
			args, err := c.lowerArgList(call.Get("ArgList"), stmts)
			if err != nil {
				return nil, err
			}
			ref, err := c.buildCall(bound, args, ds.Position, stmts)
			if err != nil {
				return nil, err
			}
			return c.applyDotSuffixes(ref, suffixes[i+1:], stmts)
		default:
			return nil, cerrors.New(cerrors.NAM001, ds.Position,
				fmt.Sprintf("%q is not a value", full), nil)
		}
	}
	return nil, cerrors.New(cerrors.NAM001, ident.Position,
		fmt.Sprintf("module %q is not a value", path), nil)
}

// applyDotSuffixes runs the method-dispatch chain: each `.name(args)`
// becomes a call with the accumulated expression as its first argument.
func (c *ctx) applyDotSuffixes(ref *ir.Ref, suffixes []*ast.Node, stmts *[]ir.Stmt) (*ir.Ref, error) {
	var err error
	for _, ds := range suffixes {
		ref, err = c.lowerDotSuffix(ds, ref, stmts)
		if err != nil {
			return nil, err
		}
	}
	return ref, nil
}

// rawOpcodeSet reports whether a function set reached by name is the
// opcode itself rather than a user-facing alias: every candidate is an
// opcode whose downstream name equals the name the source used.
func rawOpcodeSet(name string, fs *sym.FunctionSet) bool {
	if len(fs.Functions) == 0 {
		return false
	}
	for _, f := range fs.Functions {
		if !f.IsOpcode || f.OpcodeName != name {
			return false
		}
	}
	return true
}

func (c *ctx) lowerIdentSeg(node *ast.Node, stmts *[]ir.Stmt) (*ir.Ref, error) {
	name := node.Get("Ident").Text
	call := node.Get("IdentCall").Opt()

	if call == nil {
		if v, ok := c.locals.lookup(name); ok {
			return &ir.Ref{Var: v}, nil
		}
		b, ok := c.modScope.Get(name)
		if !ok {
			return nil, cerrors.New(cerrors.NAM001, node.Position, fmt.Sprintf("%q is not defined", name), nil)
		}
		switch bound := b.(type) {
		case *sym.Const:
			return c.constRef(bound, stmts)
		case *sym.FunctionSet:
			if rawOpcodeSet(name, bound) {
				return nil, cerrors.New(cerrors.FNC005, node.Position, fmt.Sprintf("%s is not a function but used as one.", name), nil)
			}
			return nil, cerrors.New(cerrors.NAM001, node.Position, fmt.Sprintf("%q is a function and must be called", name), nil)
		default:
			return nil, cerrors.New(cerrors.NAM001, node.Position, fmt.Sprintf("%q is not a value", name), nil)
		}
	}

	args, err := c.lowerArgList(call.Get("ArgList"), stmts)
	if err != nil {
		return nil, err
	}
	b, ok := c.modScope.Get(name)
	if !ok {
		return nil, cerrors.New(cerrors.NAM001, node.Position, fmt.Sprintf("unknown function %q", name), nil)
	}
	fs, ok := b.(*sym.FunctionSet)
	if !ok {
		return nil, cerrors.New(cerrors.NAM001, node.Position, fmt.Sprintf("%q is not callable", name), nil)
	}
	if rawOpcodeSet(name, fs) {
		return nil, cerrors.New(cerrors.FNC005, node.Position, fmt.Sprintf("%s is not a function but used as one.", name), nil)
	}
	return c.buildCall(fs, args, node.Position, stmts)
}

func (c *ctx) lowerDotSuffix(node *ast.Node, receiver *ir.Ref, stmts *[]ir.Stmt) (*ir.Ref, error) {
	name := node.Get("Ident").Text
	call := node.Get("DotCall").Opt()
	if call == nil {
		return nil, cerrors.New(cerrors.NAM002, node.Position, fmt.Sprintf("%q must be called; bare field access is not supported", name), nil)
	}
	args, err := c.lowerArgList(call.Get("ArgList"), stmts)
	if err != nil {
		return nil, err
	}
	full := append([]*ir.Ref{receiver}, args...)
	b, ok := c.modScope.Get(name)
	if !ok {
		return nil, cerrors.New(cerrors.NAM001, node.Position, fmt.Sprintf("unknown method %q", name), nil)
	}
	fs, ok := b.(*sym.FunctionSet)
	if !ok {
		return nil, cerrors.New(cerrors.NAM001, node.Position, fmt.Sprintf("%q is not callable", name), nil)
	}
	if rawOpcodeSet(name, fs) {
		return nil, cerrors.New(cerrors.FNC005, node.Position, fmt.Sprintf("%s is not a function but used as one.", name), nil)
	}
	return c.buildCall(fs, full, node.Position, stmts)
}

func (c *ctx) lowerArgList(node *ast.Node, stmts *[]ir.Stmt) ([]*ir.Ref, error) {
	inner := node.Get("ArgListInner").Opt()
	if inner == nil {
		return nil, nil
	}
	var out []*ir.Ref
	for _, a := range inner.CommaList("Assignables", "MoreArg", "Assignables") {
		ref, err := c.lowerAssignables(a, stmts)
		if err != nil {
			return nil, err
		}
		out = append(out, ref)
	}
	return out, nil
}

// lowerLiteral builds the Lit expr for one literal segment: int/float
// literals get a fresh OneOf over the numeric-width candidates, narrowed
// later by Cleanup; string/bool literals are already concrete.
func (c *ctx) lowerLiteral(seg *ast.Node, stmts *[]ir.Stmt) (*ir.Ref, error) {
	lit := seg.Get("Literal")
	b := c.catalog.Builtins

	var value any
	var ty types.Handle
	switch {
	case lit.Get("NumberLit") != nil:
		num := lit.Get("NumberLit")
		if f := num.Get("FloatRaw"); f != nil {
			v, _ := strconv.ParseFloat(f.Text, 64)
			value = v
			ty = c.arena.NewOneOf(append([]types.Handle(nil), b.FloatLiteralCandidates()...))
		} else {
			i := num.Get("IntDigits")
			v, _ := strconv.ParseInt(i.Text, 10, 64)
			value = v
			ty = c.arena.NewOneOf(append([]types.Handle(nil), b.IntLiteralCandidates()...))
		}
	case lit.Get("StringRaw") != nil, lit.Get("StringSqRaw") != nil:
		raw := lit.Get("StringRaw")
		if raw == nil {
			raw = lit.Get("StringSqRaw")
		}
		text := raw.Text
		if len(text) >= 2 {
			text = text[1 : len(text)-1]
		}
		value = text
		ty = b.String
	case lit.Get("BoolRaw") != nil:
		value = lit.Get("BoolRaw").Get("Kw:true") != nil
		ty = b.Bool
	default:
		return nil, cerrors.New(cerrors.LEX003, seg.Position, "unrecognized literal form", nil)
	}

	temp := c.newTemp(ty)
	*stmts = append(*stmts, &ir.Dec{Name: temp.Name, Var: temp, Expr: &ir.Lit{Value: value, ValueTy: ty}})
	return &ir.Ref{Var: temp}, nil
}

// constRef lowers a module-level const's initializer at its first use in
// the current handler and caches the resulting Ref, so every later
// reference to the same const shares one VarDef. The cache entry is
// published before lowering so a self-referential initializer terminates
// (and then fails downstream as a use of an undeclared name).
func (c *ctx) constRef(cst *sym.Const, stmts *[]ir.Stmt) (*ir.Ref, error) {
	if r, ok := c.constRefs[cst]; ok {
		return r, nil
	}
	v := &ir.VarDef{Name: cst.Name, Type: cst.Type, Mutable: false}
	r := &ir.Ref{Var: v}
	c.constRefs[cst] = r

	init, err := c.lowerAssignables(cst.ExprNode, stmts)
	if err != nil {
		return nil, err
	}
	if err := c.arena.Constrain(cst.Type, init.Var.Type); err != nil {
		return nil, typeErr(cst.ExprNode.Position, fmt.Sprintf("initializer for %q does not match its declared type", cst.Name))
	}
	*stmts = append(*stmts, &ir.Dec{Immutable: true, Name: cst.Name, Var: v, Expr: init})
	return r, nil
}
