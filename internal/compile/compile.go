// Package compile wires the whole pipeline together: load modules,
// type-check events and select their handlers, lower each handler body,
// run the cleanup fixed point, and emit AMM text.
package compile

import (
	"fmt"

	"github.com/ln-lang/lnc/internal/amm"
	"github.com/ln-lang/lnc/internal/ast"
	"github.com/ln-lang/lnc/internal/cerrors"
	"github.com/ln-lang/lnc/internal/config"
	"github.com/ln-lang/lnc/internal/ir"
	"github.com/ln-lang/lnc/internal/lower"
	"github.com/ln-lang/lnc/internal/module"
	"github.com/ln-lang/lnc/internal/opcode"
	"github.com/ln-lang/lnc/internal/sym"
)

// CompileFile compiles the program rooted at path and returns its AMM
// text.
func CompileFile(path string) (string, error) {
	return CompileFileWith(path, config.FromEnv())
}

// CompileFileWith is CompileFile with an explicit configuration, for
// callers that resolve search paths themselves. Every positioned error
// leaves with the offending source line attached.
func CompileFileWith(path string, cfg *config.Config) (string, error) {
	cat := opcode.New()
	l, err := module.NewLoader(cat, cfg)
	if err != nil {
		return "", err
	}
	if _, err := l.LoadFile(path); err != nil {
		return "", cerrors.AttachExcerpt(err, l.Source)
	}
	out, err := build(cat, l)
	if err != nil {
		return "", cerrors.AttachExcerpt(err, l.Source)
	}
	return out, nil
}

// CompileString compiles an in-memory source buffer, for REPL-style
// callers.
func CompileString(src string) (string, error) {
	cat := opcode.New()
	l, err := module.NewLoader(cat, config.FromEnv())
	if err != nil {
		return "", err
	}
	if _, err := l.LoadSource("input.ln", []byte(src)); err != nil {
		return "", cerrors.AttachExcerpt(err, l.Source)
	}
	out, err := build(cat, l)
	if err != nil {
		return "", cerrors.AttachExcerpt(err, l.Source)
	}
	return out, nil
}

// build runs every post-load phase in order. Event order is fixed —
// start, then the standard exit event when the program uses @std/app,
// then user events in module load order — so the same file set always
// emits byte-identical AMM.
func build(cat *opcode.Catalog, l *module.Loader) (string, error) {
	events := []*sym.Event{cat.Start}
	if l.StdUsed("app") && l.StdApp() != nil && l.StdApp().Exit != nil {
		events = append(events, l.StdApp().Exit)
	}
	for _, m := range l.Modules() {
		events = append(events, m.Events...)
	}

	var handlers []amm.Handler
	var all []ir.Stmt
	for _, ev := range events {
		for _, set := range ev.Handlers {
			fn, err := selectHandler(cat, ev, set)
			if err != nil {
				return "", err
			}
			var body []ir.Stmt
			if fn.IsOpcode {
				body = opcodeHandlerBody(cat, fn)
			} else {
				body, err = lower.LowerFunction(cat.Arena, cat, fn.Owner, fn)
				if err != nil {
					return "", err
				}
			}
			handlers = append(handlers, amm.Handler{Event: ev, Fn: fn, Body: body})
			all = append(all, body...)
		}
	}

	lower.Cleanup(cat.Arena, all)
	if err := lower.Finalize(cat.Arena, all); err != nil {
		return "", err
	}
	return amm.Emit(cat.Arena, cat.Builtins, events, handlers)
}

// selectHandler applies the event type-check: a void payload admits only
// zero-parameter candidates; any other payload requires exactly one
// parameter of the payload type. Exactly one candidate must survive.
func selectHandler(cat *opcode.Catalog, ev *sym.Event, set *sym.FunctionSet) (*sym.Function, error) {
	var kept []*sym.Function
	for _, fn := range set.Functions {
		if ev.Payload == cat.Builtins.Void || ev.Payload == 0 {
			if len(fn.Params) == 0 {
				kept = append(kept, fn)
			}
			continue
		}
		if len(fn.Params) == 1 && cat.Arena.CompatibleWithConstraint(fn.Params[0].Type, ev.Payload) {
			kept = append(kept, fn)
		}
	}
	if len(kept) != 1 {
		return nil, cerrors.New(cerrors.FNC002, ast.Pos{},
			fmt.Sprintf("event %q needs exactly one matching handler, found %d", ev.Name, len(kept)), nil)
	}
	return kept[0], nil
}

// opcodeHandlerBody synthesizes the pre-lowered body of an opcode-backed
// standard handler: one call applying the opcode to the handler's own
// parameters, then a return.
func opcodeHandlerBody(cat *opcode.Catalog, fn *sym.Function) []ir.Stmt {
	args := make([]*ir.Ref, len(fn.Params))
	for i, p := range fn.Params {
		args[i] = &ir.Ref{Var: &ir.VarDef{Name: p.Name, Type: p.Type}}
	}
	call := &ir.Call{
		Candidates: &sym.FunctionSet{Functions: []*sym.Function{fn}},
		Selected:   fn,
		Args:       args,
		ResultTy:   cat.Builtins.Void,
	}
	result := &ir.VarDef{Name: "_t1", Type: cat.Builtins.Void}
	return []ir.Stmt{
		&ir.Dec{Name: result.Name, Var: result, Expr: call},
		&ir.Exit{},
	}
}
