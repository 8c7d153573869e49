package lower

import (
	"fmt"
	"strings"

	"github.com/ln-lang/lnc/internal/ast"
	"github.com/ln-lang/lnc/internal/cerrors"
	"github.com/ln-lang/lnc/internal/ir"
	"github.com/ln-lang/lnc/internal/sym"
)

// lowerBlock lowers a "Block" node's statements in a fresh child scope of
// locals, so a `let` declared inside an `if` branch does not leak past
// its closing brace. Statements after a `return` in the same block are
// unreachable and rejected.
func (c *ctx) lowerBlock(node *ast.Node) ([]ir.Stmt, error) {
	saved := c.locals
	c.locals = newEnv(saved)
	defer func() { c.locals = saved }()

	var stmts []ir.Stmt
	items := node.Items("Stmt")
	for i, item := range items {
		if err := c.lowerStmt(item, &stmts); err != nil {
			return nil, err
		}
		if item.Get("Return") != nil && i < len(items)-1 {
			err := cerrors.New(cerrors.FNC004, items[i+1].Position,
				fmt.Sprintf("Unreachable code in function '%s' after:", c.fnName), nil)
			return nil, cerrors.WithExcerpt(err, strings.TrimSpace(item.Text))
		}
	}
	return stmts, nil
}

func (c *ctx) lowerStmt(node *ast.Node, stmts *[]ir.Stmt) error {
	switch {
	case node.Get("LetDecl") != nil:
		return c.lowerLetDecl(node.Get("LetDecl"), stmts)
	case node.Get("Assign") != nil:
		return c.lowerAssignStmt(node.Get("Assign"), stmts)
	case node.Get("Emit") != nil:
		return c.lowerEmitStmt(node.Get("Emit"), stmts)
	case node.Get("Return") != nil:
		return c.lowerReturnStmt(node.Get("Return"), stmts)
	case node.Get("If") != nil:
		return c.lowerIfStmt(node.Get("If"), stmts)
	case node.Get("ExprStmt") != nil:
		_, err := c.lowerAssignables(node.Get("ExprStmt").Get("Assignables"), stmts)
		return err
	}
	return cerrors.New(cerrors.LEX003, node.Position, "unrecognized statement form", nil)
}

// lowerLetDecl handles both `let` and `const` local declarations. A
// declared type annotation constrains, rather than replaces, the
// initializer's inferred type, so a literal's OneOf still narrows toward
// the annotation.
func (c *ctx) lowerLetDecl(node *ast.Node, stmts *[]ir.Stmt) error {
	immutable := node.Get("LetKind").Get("Kw:const") != nil
	name := node.Get("Ident").Text

	ref, err := c.lowerAssignables(node.Get("Assignables"), stmts)
	if err != nil {
		return err
	}

	varTy := ref.Var.Type
	if lt := node.Get("LetType").Opt(); lt != nil {
		declared, err := c.resolveTypeRef(lt.Get("TypeRef"))
		if err != nil {
			return err
		}
		if err := c.arena.Constrain(declared, varTy); err != nil {
			return typeErr(node.Position, fmt.Sprintf("initializer for %q does not match its declared type", name))
		}
		varTy = declared
	}

	vd := &ir.VarDef{Name: c.mangle(name), Type: varTy, Mutable: !immutable}
	c.locals.declare(name, vd)
	*stmts = append(*stmts, &ir.Dec{Immutable: immutable, Name: vd.Name, Var: vd, Expr: ref})
	return nil
}

// lowerAssignStmt handles bare `name = expr` reassignment, valid only
// against a `let`-declared local. The reassigned expression must still
// satisfy the variable's declared type.
func (c *ctx) lowerAssignStmt(node *ast.Node, stmts *[]ir.Stmt) error {
	name := node.Get("Ident").Text
	v, ok := c.locals.lookup(name)
	if !ok {
		return cerrors.New(cerrors.NAM001, node.Position, fmt.Sprintf("%q is not declared in this scope", name), nil)
	}
	if !v.Mutable {
		return cerrors.New(cerrors.TYP005, node.Position, fmt.Sprintf("%q is const and cannot be reassigned", name), nil)
	}
	ref, err := c.lowerAssignables(node.Get("Assignables"), stmts)
	if err != nil {
		return err
	}
	if err := c.arena.Constrain(v.Type, ref.Var.Type); err != nil {
		return cerrors.New(cerrors.TYP006, node.Position,
			fmt.Sprintf("cannot reassign %q: %s", name, err), nil)
	}
	*stmts = append(*stmts, &ir.Assign{Target: v, Expr: ref})
	return nil
}

func (c *ctx) lowerEmitStmt(node *ast.Node, stmts *[]ir.Stmt) error {
	name := node.Get("Ident").Text
	b, ok := c.modScope.Get(name)
	if !ok {
		return cerrors.New(cerrors.NAM001, node.Position, fmt.Sprintf("unknown event %q", name), nil)
	}
	ev, ok := b.(*sym.Event)
	if !ok {
		return cerrors.New(cerrors.NAM001, node.Position, fmt.Sprintf("%q is not an event", name), nil)
	}
	var arg *ir.Ref
	if a := node.Get("EmitArg").Opt(); a != nil {
		var err error
		arg, err = c.lowerAssignables(a, stmts)
		if err != nil {
			return err
		}
		if err := c.arena.Constrain(arg.Var.Type, ev.Payload); err != nil {
			return typeErr(node.Position, fmt.Sprintf("payload for event %q must be %s", name, c.arena.Describe(ev.Payload)))
		}
	}
	*stmts = append(*stmts, &ir.Emit{Event: ev, Arg: arg})
	return nil
}

// lowerReturnStmt lowers `return` to an Exit, except inside an inlined
// body, where the returned value is assigned to the call's result slot
// instead (there is no frame to return from once the body is spliced
// into its caller).
func (c *ctx) lowerReturnStmt(node *ast.Node, stmts *[]ir.Stmt) error {
	var arg *ir.Ref
	if a := node.Get("ReturnArg").Opt(); a != nil {
		var err error
		arg, err = c.lowerAssignables(a, stmts)
		if err != nil {
			return err
		}
	}
	if c.inlineDepth > 0 {
		if c.inlineRet != nil && arg != nil {
			if err := c.arena.Constrain(arg.Var.Type, c.inlineRet.Type); err != nil {
				return typeErr(node.Position, fmt.Sprintf("return value does not match the declared return type of %q", c.fnName))
			}
			*stmts = append(*stmts, &ir.Assign{Target: c.inlineRet, Expr: arg})
		}
		return nil
	}
	*stmts = append(*stmts, &ir.Exit{Arg: arg, Declared: c.retType})
	return nil
}

// lowerIfBody lowers one arm of an if statement: a braced block or a
// single statement, each in its own child scope.
func (c *ctx) lowerIfBody(node *ast.Node) ([]ir.Stmt, error) {
	if b := node.Get("Block"); b != nil {
		return c.lowerBlock(b)
	}
	saved := c.locals
	c.locals = newEnv(saved)
	defer func() { c.locals = saved }()
	var stmts []ir.Stmt
	err := c.lowerStmt(node.Get("Stmt"), &stmts)
	return stmts, err
}

func (c *ctx) lowerIfStmt(node *ast.Node, stmts *[]ir.Stmt) error {
	condNode := node.Get("IfCond")
	assigns := condNode.Get("Assignables")
	if p := condNode.Get("IfCondParen"); p != nil {
		assigns = p.Get("Assignables")
	}
	cond, err := c.lowerAssignables(assigns, stmts)
	if err != nil {
		return err
	}
	if err := c.arena.Constrain(cond.Var.Type, c.catalog.Builtins.Bool); err != nil {
		return typeErr(node.Position, "if condition must be bool")
	}

	thenStmts, err := c.lowerIfBody(node.Get("IfBody"))
	if err != nil {
		return err
	}
	branches := []ir.CondBranch{{Guard: cond, Body: thenStmts}}

	if els := node.Get("Else").Opt(); els != nil {
		elseStmts, err := c.lowerIfBody(els.Get("ElseBody"))
		if err != nil {
			return err
		}
		branches = append(branches, ir.CondBranch{Guard: nil, Body: elseStmts})
	}

	*stmts = append(*stmts, &ir.Cond{Branches: branches})
	return nil
}
