// Package amm serializes a resolved program to the textual AMM form the
// downstream graphcode assembler consumes: a global-constant preamble,
// event declarations, then one block per event handler, and after all
// handler blocks the closure blocks lifted out of them.
package amm

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ln-lang/lnc/internal/ast"
	"github.com/ln-lang/lnc/internal/cerrors"
	"github.com/ln-lang/lnc/internal/ir"
	"github.com/ln-lang/lnc/internal/sym"
	"github.com/ln-lang/lnc/internal/types"
)

// Handler pairs an event with one compiled handler body.
type Handler struct {
	Event *sym.Event
	Fn    *sym.Function
	Body  []ir.Stmt
}

type constKey struct {
	ty  types.Handle
	lit string
}

type emitter struct {
	arena *types.Arena
	b     *types.Builtins

	constNames map[constKey]string
	constLines []string

	closures []string
	closureN int
	padN     int // counter for emitter-synthesized guard temporaries
}

// Emit renders the whole program. Events appear in the given order;
// runtime-defined events are referenced (with a leading underscore) but
// never declared.
func Emit(arena *types.Arena, b *types.Builtins, events []*sym.Event, handlers []Handler) (string, error) {
	e := &emitter{
		arena:      arena,
		b:          b,
		constNames: map[constKey]string{},
	}

	var blocks []string
	for _, h := range handlers {
		block, err := e.renderHandler(h)
		if err != nil {
			return "", err
		}
		blocks = append(blocks, block)
	}

	var out strings.Builder
	for _, line := range e.constLines {
		out.WriteString(line)
		out.WriteByte('\n')
	}
	for _, ev := range events {
		if ev.Runtime {
			continue
		}
		ty, err := e.typeName(ev.Payload)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&out, "event %s: %s\n", ev.Name, ty)
	}
	for _, block := range blocks {
		out.WriteString(block)
	}
	for _, cl := range e.closures {
		out.WriteString(cl)
	}
	return out.String(), nil
}

// eventName is the name an event is referenced by inside handler bodies:
// runtime events carry a leading underscore.
func eventName(ev *sym.Event) string {
	if ev.Runtime {
		return "_" + ev.Name
	}
	return ev.Name
}

// concrete forces h to its instance type, collapsing an untouched
// literal OneOf to its display default first.
func (e *emitter) concrete(h types.Handle) (types.Handle, error) {
	if inst, err := e.arena.Instance(h); err == nil {
		return inst, nil
	}
	if err := e.arena.DefaultNarrow(h); err != nil {
		return 0, cerrors.New(cerrors.TYP003, ast.Pos{}, err.Error(), nil)
	}
	inst, err := e.arena.Instance(h)
	if err != nil {
		return 0, cerrors.New(cerrors.TYP003, ast.Pos{}, err.Error(), nil)
	}
	return inst, nil
}

func (e *emitter) typeName(h types.Handle) (string, error) {
	inst, err := e.concrete(h)
	if err != nil {
		return "", err
	}
	ent := e.arena.Entry(inst)
	if ent.Kind == types.KindBuiltin {
		return ent.AMMName, nil
	}
	return ent.Name, nil
}

// renderLit prints a literal with its width suffix, e.g. 0i8, 1.5f64,
// "hi"str, truebool.
func (e *emitter) renderLit(value any, inst types.Handle) string {
	sfx := e.b.LiteralSuffix(inst)
	switch v := value.(type) {
	case int64:
		return fmt.Sprintf("%d%s", v, sfx)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64) + sfx
	case string:
		return strconv.Quote(v) + sfx
	case bool:
		return fmt.Sprintf("%v%s", v, sfx)
	default:
		return fmt.Sprintf("%v%s", v, sfx)
	}
}

// globalConst interns one (type, literal) pair, returning its generated
// name. Names are assigned in first-use order, so identical programs
// emit identical preambles.
func (e *emitter) globalConst(inst types.Handle, rendered string) (string, error) {
	key := constKey{ty: inst, lit: rendered}
	if name, ok := e.constNames[key]; ok {
		return name, nil
	}
	name := fmt.Sprintf("_const%d", len(e.constNames))
	e.constNames[key] = name
	ty, err := e.typeName(inst)
	if err != nil {
		return "", err
	}
	e.constLines = append(e.constLines, fmt.Sprintf("const %s: %s = %s", name, ty, rendered))
	return name, nil
}

// zeroLiteral renders the zero value for a builtin, used to initialize
// the result slot of an inlined call before its branches assign it.
func (e *emitter) zeroLiteral(inst types.Handle) string {
	switch inst {
	case e.b.Float32, e.b.Float64:
		return e.renderLit(float64(0), inst)
	case e.b.String:
		return e.renderLit("", inst)
	case e.b.Bool:
		return e.renderLit(false, inst)
	default:
		return e.renderLit(int64(0), inst)
	}
}

func (e *emitter) renderHandler(h Handler) (string, error) {
	var params []string
	for _, p := range h.Fn.Params {
		ty, err := e.typeName(p.Type)
		if err != nil {
			return "", err
		}
		params = append(params, fmt.Sprintf("%s: %s", p.Name, ty))
	}
	ret, err := e.typeName(h.Fn.Return)
	if err != nil {
		return "", err
	}

	lines, endsInReturn, err := e.renderBody(h.Body)
	if err != nil {
		return "", err
	}

	var out strings.Builder
	fmt.Fprintf(&out, "on %s fn (%s): %s {\n", eventName(h.Event), strings.Join(params, ", "), ret)
	for _, line := range lines {
		out.WriteString("  ")
		out.WriteString(line)
		out.WriteByte('\n')
	}
	if !endsInReturn {
		out.WriteString("  return\n")
	}
	out.WriteString("}\n")
	return out.String(), nil
}

// renderBody renders one statement list. Copy-lines for literal
// temporaries are hoisted to the front of the body; everything else
// keeps its order.
func (e *emitter) renderBody(stmts []ir.Stmt) (lines []string, endsInReturn bool, err error) {
	var copies, rest []string
	for _, s := range stmts {
		endsInReturn = false
		switch st := s.(type) {
		case *ir.Dec:
			line, isCopy, err := e.renderDec(st)
			if err != nil {
				return nil, false, err
			}
			if isCopy {
				copies = append(copies, line)
			} else {
				rest = append(rest, line)
			}
		case *ir.Assign:
			line, err := e.renderAssign(st)
			if err != nil {
				return nil, false, err
			}
			rest = append(rest, line)
		case *ir.Emit:
			if st.Arg != nil {
				rest = append(rest, fmt.Sprintf("emit %s %s", eventName(st.Event), st.Arg.Var.Name))
			} else {
				rest = append(rest, "emit "+eventName(st.Event))
			}
		case *ir.Exit:
			if st.Arg != nil {
				rest = append(rest, "return "+st.Arg.Var.Name)
			} else {
				rest = append(rest, "return")
			}
			endsInReturn = true
		case *ir.Cond:
			condLines, err := e.renderCond(st)
			if err != nil {
				return nil, false, err
			}
			rest = append(rest, condLines...)
		}
	}
	return append(copies, rest...), endsInReturn, nil
}

func declPrefix(v *ir.VarDef) string {
	if v.Mutable {
		return "let "
	}
	return "const "
}

// renderDec prints one declaration. The second result marks a hoistable
// literal copy-line.
func (e *emitter) renderDec(d *ir.Dec) (string, bool, error) {
	inst, err := e.concrete(d.Var.Type)
	if err != nil {
		return "", false, err
	}
	ty, err := e.typeName(d.Var.Type)
	if err != nil {
		return "", false, err
	}

	switch ex := d.Expr.(type) {
	case *ir.Lit:
		global, err := e.globalConst(inst, e.renderLit(ex.Value, inst))
		if err != nil {
			return "", false, err
		}
		return fmt.Sprintf("%s%s: %s = copy%s(%s)", declPrefix(d.Var), d.Var.Name, ty, e.b.LiteralSuffix(inst), global), true, nil
	case *ir.Call:
		rhs, err := e.renderCall(ex)
		if err != nil {
			return "", false, err
		}
		return fmt.Sprintf("%s%s: %s = %s", declPrefix(d.Var), d.Var.Name, ty, rhs), false, nil
	case *ir.Ref:
		return fmt.Sprintf("%s%s: %s = copy%s(%s)", declPrefix(d.Var), d.Var.Name, ty, e.b.LiteralSuffix(inst), ex.Var.Name), false, nil
	case nil:
		global, err := e.globalConst(inst, e.zeroLiteral(inst))
		if err != nil {
			return "", false, err
		}
		return fmt.Sprintf("%s%s: %s = copy%s(%s)", declPrefix(d.Var), d.Var.Name, ty, e.b.LiteralSuffix(inst), global), false, nil
	default:
		return "", false, cerrors.New(cerrors.AMM001, ast.Pos{}, "unrenderable declaration expression", nil)
	}
}

func (e *emitter) renderAssign(a *ir.Assign) (string, error) {
	inst, err := e.concrete(a.Target.Type)
	if err != nil {
		return "", err
	}
	ty, err := e.typeName(a.Target.Type)
	if err != nil {
		return "", err
	}
	switch ex := a.Expr.(type) {
	case *ir.Call:
		rhs, err := e.renderCall(ex)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s: %s = %s", a.Target.Name, ty, rhs), nil
	case *ir.Ref:
		return fmt.Sprintf("%s: %s = copy%s(%s)", a.Target.Name, ty, e.b.LiteralSuffix(inst), ex.Var.Name), nil
	default:
		return "", cerrors.New(cerrors.AMM001, ast.Pos{}, "unrenderable assignment expression", nil)
	}
}

// renderCall prints an opcode application, padding missing second and
// third argument slots with the fixed @0 sentinel.
func (e *emitter) renderCall(c *ir.Call) (string, error) {
	if c.Selected == nil || !c.Selected.IsOpcode {
		return "", cerrors.New(cerrors.AMM001, ast.Pos{}, "call survived lowering without an opcode selection", nil)
	}
	args := make([]string, 0, 2)
	for _, a := range c.Args {
		args = append(args, a.Var.Name)
	}
	for len(args) < 2 {
		args = append(args, "@0")
	}
	return fmt.Sprintf("%s(%s)", c.Selected.OpcodeName, strings.Join(args, ", ")), nil
}

// renderCond lowers a branch table to the closure form: every branch
// body becomes a lifted closure, paired with its guard through condfn,
// and execcond runs the first pairing whose guard holds.
func (e *emitter) renderCond(c *ir.Cond) ([]string, error) {
	var lines []string
	var pairs []string
	for _, br := range c.Branches {
		closure := fmt.Sprintf("_closure%d", e.closureN)
		e.closureN++
		body, _, err := e.renderBody(br.Body)
		if err != nil {
			return nil, err
		}
		var cl strings.Builder
		fmt.Fprintf(&cl, "fn %s (): void {\n", closure)
		for _, line := range body {
			cl.WriteString("  ")
			cl.WriteString(line)
			cl.WriteByte('\n')
		}
		cl.WriteString("  return\n}\n")
		e.closures = append(e.closures, cl.String())

		guard := ""
		if br.Guard != nil {
			guard = br.Guard.Var.Name
		} else {
			global, err := e.globalConst(e.b.Bool, e.renderLit(true, e.b.Bool))
			if err != nil {
				return nil, err
			}
			e.padN++
			tmp := fmt.Sprintf("_g%d", e.padN)
			lines = append(lines, fmt.Sprintf("const %s: bool = copybool(%s)", tmp, global))
			guard = tmp
		}
		e.padN++
		pair := fmt.Sprintf("_g%d", e.padN)
		lines = append(lines, fmt.Sprintf("const %s: void = condfn(%s, %s)", pair, guard, closure))
		pairs = append(pairs, pair)
	}
	for len(pairs) < 2 {
		pairs = append(pairs, "@0")
	}
	e.padN++
	lines = append(lines, fmt.Sprintf("const _g%d: void = execcond(%s)", e.padN, strings.Join(pairs[:2], ", ")))
	return lines, nil
}
