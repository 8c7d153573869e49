package opcode

import (
	"github.com/ln-lang/lnc/internal/scope"
	"github.com/ln-lang/lnc/internal/sym"
)

// StdModule is a synthetic, Go-native standard-library module: a module
// scope and an export scope built directly from the opcode catalog
// instead of parsed from Ln source. A stdlib directory configured at
// load time can shadow any of these with real Ln sources.
type StdModule struct {
	Identity string
	Module   *scope.Scope
	Export   *scope.Scope

	// Exit is non-nil for the "app" module: the exit event plus its
	// opcode-backed handler, which the compile driver turns into a
	// pre-lowered handler body.
	Exit        *sym.Event
	ExitHandler *sym.Function
}

// BuildApp constructs the synthetic "@std/app" module: the `start` event
// (re-exported from Root), an `exit` event with an int8 payload handled
// by the exitop opcode, and a `print` function that resolves to stdoutp.
func (c *Catalog) BuildApp() *StdModule {
	modScope := scope.New("app", c.Root)
	exportScope := scope.New("app.export", modScope)

	modScope.Put("start", c.Start)
	exportScope.Put("start", c.Start)

	exitEvent := &sym.Event{Name: "exit", Payload: c.Builtins.Int8}
	exitHandler := &sym.Function{
		Name:  "on_exit",
		Owner: modScope,
		Params: []sym.Param{
			{Name: "x", Type: c.Builtins.Int8},
		},
		Return:     c.Builtins.Void,
		IsOpcode:   true,
		OpcodeName: "exitop",
	}
	exitEvent.AddHandler(&sym.FunctionSet{Functions: []*sym.Function{exitHandler}})
	modScope.Put("exit", exitEvent)
	exportScope.Put("exit", exitEvent)

	if b, ok := c.Root.ShallowGet("stdoutp"); ok {
		modScope.Put("print", b)
		exportScope.Put("print", b)
	}

	return &StdModule{
		Identity: "app", Module: modScope, Export: exportScope,
		Exit: exitEvent, ExitHandler: exitHandler,
	}
}
