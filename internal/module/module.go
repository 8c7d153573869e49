// Package module implements the dependency-resolving module loader:
// parsing a file, building its module scope and export scope, and wiring
// import statements to the modules they name.
// Declaration-level construction (types, interfaces, consts, events,
// operators, function signatures) happens here, at name-resolution time;
// statement and expression bodies are left as unlowered internal/ast
// nodes for internal/lower to process once every module in a compilation
// has been loaded and is visible.
package module

import (
	"fmt"

	"github.com/ln-lang/lnc/internal/ast"
	"github.com/ln-lang/lnc/internal/cerrors"
	"github.com/ln-lang/lnc/internal/opcode"
	"github.com/ln-lang/lnc/internal/scope"
	"github.com/ln-lang/lnc/internal/sym"
	"github.com/ln-lang/lnc/internal/types"
)

// Module is one loaded, name-resolved Ln source file: its parse tree, its
// module scope (every declaration plus whatever imports brought in), and
// its export scope (only the declarations marked `export`).
type Module struct {
	Identity string // resolved path, or "std:<name>" for a bundled module
	File     string
	AST      *ast.Node
	Scope    *scope.Scope
	Export   *scope.Scope

	// Consts and Events, in declaration order, for the compile pipeline to
	// drive const evaluation and handler compilation from.
	Consts []*sym.Const
	Events []*sym.Event
}

// ModuleRef is the scope.Binding a whole-module import is bound under
// (`import X as name`, bare `import X`): it satisfies
// scope.NestedScope so DeepGet and dotted lookups descend into the
// foreign module's export scope, never its private module scope.
type ModuleRef struct {
	Module *Module
}

func (*ModuleRef) BindingKind() string  { return "moduleRef" }
func (r *ModuleRef) Scope() *scope.Scope { return r.Module.Export }

// newModule allocates an empty module rooted at the catalog's singleton
// scope, so every declaration can see the primitive types and opcodes
// without an explicit import.
func newModule(identity, file string, cat *opcode.Catalog) *Module {
	modScope := scope.New(identity, cat.Root)
	exportScope := scope.New(identity+".export", nil)
	return &Module{Identity: identity, File: file, Scope: modScope, Export: exportScope}
}

// resolveTypeRef resolves a "TypeRef" node (Ident plus optional TypeArgs)
// against sc, falling back to generics when the name matches a generic
// parameter of the enclosing declaration.
func resolveTypeRef(arena *types.Arena, sc *scope.Scope, generics map[string]types.Handle, node *ast.Node) (types.Handle, error) {
	name := node.Get("Ident").Text
	if generics != nil {
		if h, ok := generics[name]; ok {
			return h, nil
		}
	}
	b, ok := sc.Get(name)
	if !ok {
		return 0, cerrors.New(cerrors.NAM001, node.Position, fmt.Sprintf("unknown type %q", name), nil)
	}
	tb, ok := b.(*sym.TypeBinding)
	if !ok {
		return 0, cerrors.New(cerrors.NAM001, node.Position, fmt.Sprintf("%q is not a type", name), nil)
	}
	return tb.Handle, nil
}

// buildGenericParams allocates one fresh Generated handle per declared
// generic parameter name; a struct's type variables are placeholders
// narrowed per use.
func buildGenericParams(arena *types.Arena, node *ast.Node) map[string]types.Handle {
	inner := node.Opt()
	if inner == nil {
		return nil
	}
	out := map[string]types.Handle{}
	idents := inner.CommaList("Ident", "MoreGenericParam", "Ident")
	for _, id := range idents {
		out[id.Text] = arena.NewGenerated(id.Text)
	}
	return out
}

func isInterfaceHandle(arena *types.Arena, h types.Handle) bool {
	return arena.Entry(arena.Resolve(h)).Kind == types.KindInterface
}

func buildFields(arena *types.Arena, sc *scope.Scope, generics map[string]types.Handle, fieldNodes []*ast.Node) ([]types.Field, error) {
	out := make([]types.Field, 0, len(fieldNodes))
	for _, f := range fieldNodes {
		typeRef := f.Get("TypeRef")
		h, err := resolveTypeRef(arena, sc, generics, typeRef)
		if err != nil {
			return nil, err
		}
		if isInterfaceHandle(arena, h) {
			return nil, cerrors.New(cerrors.TYP002, typeRef.Position,
				fmt.Sprintf("field %q cannot be typed by an interface", f.Get("Ident").Text), nil)
		}
		out = append(out, types.Field{Name: f.Get("Ident").Text, Type: h})
	}
	return out, nil
}

// buildTypeDecl constructs either a struct or an alias from a "TypeDecl"
// node and binds it under its declared name.
func buildTypeDecl(arena *types.Arena, sc *scope.Scope, node *ast.Node) (string, *sym.TypeBinding, error) {
	name := node.Get("Ident").Text
	generics := buildGenericParams(arena, node.Get("GenericParams"))
	body := node.Get("TypeDeclBody")

	if alias := body.Get("TypeAlias"); alias != nil {
		target, err := resolveTypeRef(arena, sc, generics, alias.Get("TypeRef"))
		if err != nil {
			return "", nil, err
		}
		h := arena.NewAlias(name, target)
		return name, &sym.TypeBinding{Handle: h}, nil
	}

	structBody := body.Get("StructBody")
	fields, err := buildFields(arena, sc, generics, structBody.Items("Field"))
	if err != nil {
		return "", nil, err
	}
	h := arena.NewStruct(name, fields, generics)
	return name, &sym.TypeBinding{Handle: h}, nil
}

// buildInterfaceDecl constructs an interface type from an "InterfaceDecl"
// node, collecting its property/function/operator requirement lines.
func buildInterfaceDecl(arena *types.Arena, sc *scope.Scope, node *ast.Node) (string, *sym.TypeBinding, error) {
	name := node.Get("Ident").Text
	var props []types.Field
	var fns []types.FnSig
	var ops []types.OpSig

	for _, line := range node.Items("InterfaceLine") {
		switch {
		case line.Get("FnReq") != nil:
			req := line.Get("FnReq")
			fnName := req.Get("Ident").Text
			var params []types.Handle
			if inner := req.Get("FnReqParams").Opt(); inner != nil {
				for _, tr := range inner.CommaList("TypeRef", "MoreFnReqParam", "TypeRef") {
					h, err := resolveTypeRef(arena, sc, nil, tr)
					if err != nil {
						return "", nil, err
					}
					params = append(params, h)
				}
			}
			retNodes := req.GetAll("TypeRef")
			ret, err := resolveTypeRef(arena, sc, nil, retNodes[len(retNodes)-1])
			if err != nil {
				return "", nil, err
			}
			if isInterfaceHandle(arena, ret) {
				return "", nil, cerrors.New(cerrors.TYP002, req.Position,
					fmt.Sprintf("function requirement %q cannot return an interface", fnName), nil)
			}
			fns = append(fns, types.FnSig{Name: fnName, Params: params, Return: ret})
		case line.Get("OpReq") != nil:
			req := line.Get("OpReq")
			symbol := req.Get("OperatorSymbol").Text
			trs := req.GetAll("TypeRef")
			left, err := resolveTypeRef(arena, sc, nil, trs[0])
			if err != nil {
				return "", nil, err
			}
			right, err := resolveTypeRef(arena, sc, nil, trs[1])
			if err != nil {
				return "", nil, err
			}
			ret, err := resolveTypeRef(arena, sc, nil, trs[2])
			if err != nil {
				return "", nil, err
			}
			ops = append(ops, types.OpSig{Symbol: symbol, Left: left, Right: right, Return: ret})
		case line.Get("PropertyReq") != nil:
			req := line.Get("PropertyReq")
			h, err := resolveTypeRef(arena, sc, nil, req.Get("TypeRef"))
			if err != nil {
				return "", nil, err
			}
			if isInterfaceHandle(arena, h) {
				return "", nil, cerrors.New(cerrors.TYP002, req.Position,
					fmt.Sprintf("property %q cannot itself be an interface", req.Get("Ident").Text), nil)
			}
			props = append(props, types.Field{Name: req.Get("Ident").Text, Type: h})
		}
	}

	h := arena.NewInterface(props, fns, ops)
	return name, &sym.TypeBinding{Handle: h}, nil
}

// buildEventDecl constructs the sym.Event for an "EventDecl" node.
func buildEventDecl(arena *types.Arena, sc *scope.Scope, node *ast.Node) (string, *sym.Event, error) {
	name := node.Get("Ident").Text
	h, err := resolveTypeRef(arena, sc, nil, node.Get("TypeRef"))
	if err != nil {
		return "", nil, err
	}
	return name, &sym.Event{Name: name, Payload: h}, nil
}

// buildConstDecl builds the sym.Const placeholder; its value expression is
// lowered later (internal/lower), once every module's declarations are
// visible, so a const initializer may reference names declared later in
// the same file or in a module that imports this one back for its own
// (non-circular) purposes.
func buildConstDecl(arena *types.Arena, sc *scope.Scope, node *ast.Node) (string, *sym.Const, error) {
	name := node.Get("Ident").Text
	var h types.Handle
	if ct := node.Get("ConstType").Opt(); ct != nil {
		var err error
		h, err = resolveTypeRef(arena, sc, nil, ct.Get("TypeRef"))
		if err != nil {
			return "", nil, err
		}
	} else {
		h = arena.NewGenerated(name)
	}
	return name, &sym.Const{Name: name, Type: h, ExprNode: node.Get("Assignables")}, nil
}

// buildFnDecl builds the function signature from an "FnDecl" node,
// leaving its block as BodyNode for internal/lower. Interface-typed
// parameters are not duplicated here: duplication happens per call site,
// using types.Dup against this declared handle.
func buildFnDecl(arena *types.Arena, sc *scope.Scope, owner *scope.Scope, defIndex int, node *ast.Node) (string, *sym.Function, error) {
	name := node.Get("Ident").Text
	params, err := buildParamList(arena, sc, node.Get("ParamList"))
	if err != nil {
		return "", nil, err
	}
	ret := arena.NewGenerated("ret")
	if rt := node.Get("FnRet").Opt(); rt != nil {
		ret, err = resolveTypeRef(arena, sc, nil, rt.Get("TypeRef"))
		if err != nil {
			return "", nil, err
		}
	} else {
		// No annotation defaults the return to void rather than leaving
		// it a free placeholder.
		voidB, _ := sc.Get("void")
		if tb, ok := voidB.(*sym.TypeBinding); ok {
			ret = tb.Handle
		}
	}
	fn := &sym.Function{
		Name: name, Owner: owner, Params: params, Return: ret,
		BodyNode: node.Get("Block"), DefIndex: defIndex,
	}
	return name, fn, nil
}

func buildParamList(arena *types.Arena, sc *scope.Scope, node *ast.Node) ([]sym.Param, error) {
	inner := node.Get("ParamListInner").Opt()
	if inner == nil {
		return nil, nil
	}
	var out []sym.Param
	for _, f := range inner.CommaList("Field", "MoreParam", "Field") {
		h, err := resolveTypeRef(arena, sc, nil, f.Get("TypeRef"))
		if err != nil {
			return nil, err
		}
		out = append(out, sym.Param{Name: f.Get("Ident").Text, Type: h})
	}
	return out, nil
}

// buildOperatorDecl binds a user-declared operator symbol to its
// precedence, fixity, and implementing function.
func buildOperatorDecl(sc *scope.Scope, node *ast.Node) (string, *sym.OperatorGroup, error) {
	symbol := node.Get("OperatorSymbol").Text
	prec := atoiSafe(node.Get("IntDigits").Text)
	fnName := node.Get("Ident").Text

	var fn *sym.Function
	if b, ok := sc.ShallowGet(fnName); ok {
		if fs, ok := b.(*sym.FunctionSet); ok && len(fs.Functions) > 0 {
			fn = fs.Functions[len(fs.Functions)-1]
		}
	}
	candidates := &sym.FunctionSet{}
	if fn != nil {
		candidates.Functions = []*sym.Function{fn}
	}

	op := &sym.Operator{Symbol: symbol, Precedence: prec, Candidates: candidates}
	group := &sym.OperatorGroup{Symbol: symbol}
	if node.Get("Fixity").Get("Kw:prefix") != nil {
		op.Fixity = sym.Prefix
		group.Prefix = op
	} else {
		op.Fixity = sym.Infix
		group.Infix = op
	}
	return symbol, group, nil
}

func atoiSafe(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			break
		}
		n = n*10 + int(r-'0')
	}
	return n
}
