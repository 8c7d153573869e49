package opcode

import (
	"testing"

	"github.com/ln-lang/lnc/internal/sym"
)

func fnSet(t *testing.T, c *Catalog, name string) *sym.FunctionSet {
	t.Helper()
	b, ok := c.Root.ShallowGet(name)
	if !ok {
		t.Fatalf("%q not bound in the root scope", name)
	}
	fs, ok := b.(*sym.FunctionSet)
	if !ok {
		t.Fatalf("%q is bound as %s, not a function set", name, b.BindingKind())
	}
	return fs
}

func TestExitopOverloadsSharePerWidthParams(t *testing.T) {
	c := New()
	fs := fnSet(t, c, "exitop")
	if len(fs.Functions) != 4 {
		t.Fatalf("exitop must carry one candidate per integer width, got %d", len(fs.Functions))
	}
	for _, fn := range fs.Functions {
		if fn.OpcodeName != "exitop" {
			t.Fatalf("every exitop candidate shares the downstream name, got %q", fn.OpcodeName)
		}
		if len(fn.Params) != 1 {
			t.Fatalf("exitop takes one status argument, got %d", len(fn.Params))
		}
	}
}

func TestPlusOperatorIncludesStringConcat(t *testing.T) {
	c := New()
	b, _ := c.Root.ShallowGet("+")
	group := b.(*sym.OperatorGroup)
	if group.Infix == nil {
		t.Fatal("+ must have an infix form")
	}
	last := group.Infix.Candidates.Functions[len(group.Infix.Candidates.Functions)-1]
	if last.OpcodeName != "catstr" {
		t.Fatalf("catstr must be the highest-priority + candidate, got %q", last.OpcodeName)
	}
}

func TestToStringCoversEveryNumericWidth(t *testing.T) {
	c := New()
	fs := fnSet(t, c, "toString")
	if len(fs.Functions) != 6 {
		t.Fatalf("toString must have one conversion per numeric width, got %d", len(fs.Functions))
	}
}

func TestEqualityPoolIncludesBoolAndString(t *testing.T) {
	c := New()
	b, _ := c.Root.ShallowGet("==")
	group := b.(*sym.OperatorGroup)
	names := map[string]bool{}
	for _, fn := range group.Infix.Candidates.Functions {
		names[fn.OpcodeName] = true
	}
	for _, want := range []string{"eqi64", "eqstr", "eqbool"} {
		if !names[want] {
			t.Errorf("== pool missing %s", want)
		}
	}
}

func TestStartEventIsRuntimeVoid(t *testing.T) {
	c := New()
	if !c.Start.Runtime {
		t.Fatal("start is runtime-defined")
	}
	if c.Start.Payload != c.Builtins.Void {
		t.Fatal("start carries no payload")
	}
}

func TestStdAppExports(t *testing.T) {
	c := New()
	app := c.BuildApp()
	for _, name := range []string{"start", "exit", "print"} {
		if _, ok := app.Export.ShallowGet(name); !ok {
			t.Errorf("@std/app must export %q", name)
		}
	}
	if app.Exit == nil || len(app.Exit.Handlers) != 1 {
		t.Fatal("the exit event carries its opcode-backed handler")
	}
	h := app.Exit.Handlers[0].Functions[0]
	if !h.IsOpcode || h.OpcodeName != "exitop" {
		t.Fatalf("exit handler must apply exitop, got %+v", h)
	}
}
