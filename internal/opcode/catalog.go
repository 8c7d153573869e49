// Package opcode seeds the compilation-wide root scope: the primitive
// types, the primitive `start` event, and the fixed table of opcodes the
// AMM emitter writes out verbatim. The catalog is built once and
// thereafter read only.
package opcode

import (
	"github.com/ln-lang/lnc/internal/scope"
	"github.com/ln-lang/lnc/internal/sym"
	"github.com/ln-lang/lnc/internal/types"
)

// Catalog is the seeded root scope plus the arena and builtin table every
// later compilation phase needs a handle to.
type Catalog struct {
	Arena    *types.Arena
	Builtins *types.Builtins
	Root     *scope.Scope
	Start    *sym.Event
}

// New builds a fresh Catalog: a new arena, the primitive types, the
// `start` event, and the opcode function sets, all bound into Root.
func New() *Catalog {
	arena := types.NewArena()
	b := types.NewBuiltins(arena)
	root := scope.New("root", nil)

	for _, name := range types.BuiltinNames {
		h, _ := b.Lookup(name)
		root.Put(name, &sym.TypeBinding{Handle: h})
	}

	start := &sym.Event{Name: "start", Payload: b.Void, Runtime: true}
	root.Put("start", start)

	c := &Catalog{Arena: arena, Builtins: b, Root: root, Start: start}
	c.registerNumeric()
	c.registerString()
	c.registerIO()
	c.registerControl()
	c.registerCollections()
	c.registerOperators()
	return c
}

func (c *Catalog) opcodeFn(name string, params []types.Handle, ret types.Handle) *sym.Function {
	ps := make([]sym.Param, len(params))
	for i, p := range params {
		ps[i] = sym.Param{Name: argName(i), Type: p}
	}
	return &sym.Function{
		Name: name, Owner: c.Root, Params: ps, Return: ret,
		IsOpcode: true, OpcodeName: name,
	}
}

func argName(i int) string {
	names := []string{"a", "b", "c", "d"}
	if i < len(names) {
		return names[i]
	}
	return "x"
}

// bind registers fn as a (possibly additional) candidate under name in
// Root, accumulating into a FunctionSet the way source-level `fn`
// re-definitions do.
func (c *Catalog) bind(name string, fn *sym.Function) {
	c.Root.Put(name, &sym.FunctionSet{Functions: []*sym.Function{fn}})
}

var numericWidths = []string{"int8", "int16", "int32", "int64", "float32", "float64"}

func (c *Catalog) widthHandle(name string) types.Handle {
	h, _ := c.Builtins.Lookup(name)
	return h
}

// registerNumeric builds one opcode per numeric width for arithmetic,
// saturating arithmetic, comparisons and bitwise ops, plus the numeric
// conversion and string-conversion opcodes. Opcode names follow the
// AMM→AGA table: `<op><suffix>`, e.g. addi8, lti64, i64str.
func (c *Catalog) registerNumeric() {
	suffix := map[string]string{
		"int8": "i8", "int16": "i16", "int32": "i32", "int64": "i64",
		"float32": "f32", "float64": "f64",
	}
	arith := []string{"add", "sub", "mul", "div"}
	satArith := []string{"sadd", "ssub"}
	cmp := []string{"eq", "neq", "lt", "gt", "lte", "gte"}
	bitwiseWidths := []string{"int8", "int16", "int32", "int64"}
	bitwise := []string{"and", "or", "xor"}

	for _, w := range numericWidths {
		h := c.widthHandle(w)
		sfx := suffix[w]
		for _, op := range arith {
			c.bind(op+sfx, c.opcodeFn(op+sfx, []types.Handle{h, h}, h))
		}
		for _, op := range satArith {
			c.bind(op+sfx, c.opcodeFn(op+sfx, []types.Handle{h, h}, h))
		}
		for _, op := range cmp {
			c.bind(op+sfx, c.opcodeFn(op+sfx, []types.Handle{h, h}, c.Builtins.Bool))
		}
		// Numeric-to-string conversion, used by the method-dispatch sugar
		// `.toString()`: `num.toString()` lowers to a Call whose
		// first argument is the receiver, resolved against the global
		// "toString" overload set.
		conv := c.opcodeFn(sfx+"str", []types.Handle{h}, c.Builtins.String)
		c.bind(sfx+"str", conv)
		c.bind("toString", c.opcodeFn(sfx+"str", []types.Handle{h}, c.Builtins.String))
	}
	for _, w := range bitwiseWidths {
		h := c.widthHandle(w)
		sfx := suffix[w]
		for _, op := range bitwise {
			c.bind(op+sfx, c.opcodeFn(op+sfx, []types.Handle{h, h}, h))
		}
		c.bind("not"+sfx, c.opcodeFn("not"+sfx, []types.Handle{h}, h))
	}
	for _, w := range numericWidths {
		hFrom := c.widthHandle(w)
		for _, w2 := range numericWidths {
			if w == w2 {
				continue
			}
			hTo := c.widthHandle(w2)
			name := suffix[w] + suffix[w2]
			c.bind(name, c.opcodeFn(name, []types.Handle{hFrom}, hTo))
		}
	}
}

func (c *Catalog) registerString() {
	s := c.Builtins.String
	i64 := c.Builtins.Int64
	b := c.Builtins.Bool
	c.bind("catstr", c.opcodeFn("catstr", []types.Handle{s, s}, s))
	c.bind("lenstr", c.opcodeFn("lenstr", []types.Handle{s}, i64))
	c.bind("splitstr", c.opcodeFn("splitstr", []types.Handle{s, s}, s))
	c.bind("eqstr", c.opcodeFn("eqstr", []types.Handle{s, s}, b))
}

func (c *Catalog) registerIO() {
	v := c.Builtins.Void
	s := c.Builtins.String
	c.bind("stdoutp", c.opcodeFn("stdoutp", []types.Handle{s}, v))
	c.bind("stderrp", c.opcodeFn("stderrp", []types.Handle{s}, v))
	// One exitop candidate per integer width, all sharing the single
	// downstream opcode name; selection picks the width matching the
	// status argument rather than inserting a conversion.
	for _, w := range numericWidths[:4] {
		h := c.widthHandle(w)
		c.bind("exitop", c.opcodeFn("exitop", []types.Handle{h}, v))
	}
}

// registerControl seeds the closure-based conditional primitives:
// conditionals are exposed as a condtable of closures, never as SSA phi
// nodes, because the downstream IR does not support them.
func (c *Catalog) registerControl() {
	v := c.Builtins.Void
	b := c.Builtins.Bool
	c.bind("condfn", c.opcodeFn("condfn", []types.Handle{b}, v))
	c.bind("execcond", c.opcodeFn("execcond", []types.Handle{v}, v))
	c.bind("seqnext", c.opcodeFn("seqnext", []types.Handle{v}, v))
	c.bind("recurse", c.opcodeFn("recurse", []types.Handle{v}, v))
}

func (c *Catalog) registerCollections() {
	i64 := c.Builtins.Int64
	v := c.Builtins.Void
	c.bind("arrget", c.opcodeFn("arrget", []types.Handle{v, i64}, v))
	c.bind("arrset", c.opcodeFn("arrset", []types.Handle{v, i64, v}, v))
	c.bind("arrpush", c.opcodeFn("arrpush", []types.Handle{v, v}, v))
	c.bind("arrlen", c.opcodeFn("arrlen", []types.Handle{v}, i64))
	c.bind("mapget", c.opcodeFn("mapget", []types.Handle{v, v}, v))
	c.bind("mapset", c.opcodeFn("mapset", []types.Handle{v, v, v}, v))
}
