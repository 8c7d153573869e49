package module

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ln-lang/lnc/internal/ast"
	"github.com/ln-lang/lnc/internal/cerrors"
	"github.com/ln-lang/lnc/internal/config"
	"github.com/ln-lang/lnc/internal/opcode"
	"github.com/ln-lang/lnc/internal/stdmanifest"
	"github.com/ln-lang/lnc/internal/sym"
	"github.com/ln-lang/lnc/internal/syntax"
	"github.com/ln-lang/lnc/internal/types"
)

// Loader resolves import paths to Modules, parses and name-resolves each
// one exactly once, and detects circular dependencies via a load stack.
// It owns no type-checking or lowering logic; both of those run
// afterward, once every module reachable from the entry point is loaded.
type Loader struct {
	Catalog *opcode.Catalog

	cfg *config.Config

	cache     map[string]*Module
	order     []*Module // user modules in completed-load order
	sources   map[string][]byte
	loadStack []string

	stdApp  *opcode.StdModule
	stdUsed map[string]bool

	readFile func(path string) ([]byte, error)
}

// NewLoader builds a Loader seeded with the bundled standard modules in
// the order internal/stdmanifest declares, root first.
func NewLoader(cat *opcode.Catalog, cfg *config.Config) (*Loader, error) {
	if cfg == nil {
		cfg = &config.Config{}
	}
	l := &Loader{
		Catalog:  cat,
		cfg:      cfg,
		cache:    map[string]*Module{},
		sources:  map[string][]byte{},
		stdUsed:  map[string]bool{},
		readFile: os.ReadFile,
	}

	manifest, err := stdmanifest.Load()
	if err != nil {
		return nil, err
	}
	for _, name := range manifest.Order() {
		l.loadStdModule(name)
	}
	return l, nil
}

// loadStdModule binds one of the synthetic Go-native standard modules
// into the cache under "std:<name>", skipping any name the catalog does
// not know how to synthesize.
func (l *Loader) loadStdModule(name string) {
	switch name {
	case "root":
		// The "root" std module is the catalog's singleton scope itself;
		// every module already sees it as its scope's primary parent, so
		// there is nothing further to cache under a separate identity.
	case "app":
		std := l.Catalog.BuildApp()
		l.stdApp = std
		l.cache["std:app"] = &Module{Identity: "std:app", Scope: std.Module, Export: std.Export}
	}
}

// StdApp exposes the synthetic "@std/app" module's events for the
// compile driver. Nil until NewLoader has run.
func (l *Loader) StdApp() *opcode.StdModule { return l.stdApp }

// StdUsed reports whether any loaded module imported "@std/<name>".
func (l *Loader) StdUsed(name string) bool { return l.stdUsed[name] }

// Source returns the raw bytes of a loaded file, keyed by the identity
// error positions carry, so diagnostics can quote the offending line.
func (l *Loader) Source(file string) ([]byte, bool) {
	src, ok := l.sources[file]
	return src, ok
}

// Modules returns every user (non-std) module in the order loading
// completed, dependencies before dependents.
func (l *Loader) Modules() []*Module {
	out := make([]*Module, len(l.order))
	copy(out, l.order)
	return out
}

// LoadFile loads and fully name-resolves the module rooted at path,
// along with every module it (transitively) imports.
func (l *Loader) LoadFile(path string) (*Module, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, cerrors.New(cerrors.MOD001, ast.Pos{File: path}, err.Error(), nil)
	}
	return l.load(abs)
}

// LoadSource loads a module from an in-memory source buffer under the
// given synthetic identity, for compileString-style entry points. The
// identity doubles as the base path for any relative imports the source
// makes.
func (l *Loader) LoadSource(identity string, src []byte) (*Module, error) {
	return l.loadBytes(identity, src)
}

func (l *Loader) load(identity string) (*Module, error) {
	if m, ok := l.cache[identity]; ok {
		return m, nil
	}
	src, err := l.readFile(identity)
	if err != nil {
		return nil, cerrors.New(cerrors.MOD001, ast.Pos{File: identity}, err.Error(), nil)
	}
	return l.loadBytes(identity, src)
}

func (l *Loader) loadBytes(identity string, src []byte) (*Module, error) {
	if m, ok := l.cache[identity]; ok {
		return m, nil
	}
	for _, onStack := range l.loadStack {
		if onStack == identity {
			return nil, cerrors.New(cerrors.MOD002, ast.Pos{File: identity},
				fmt.Sprintf("circular import involving %q", identity),
				map[string]any{"stack": append([]string(nil), l.loadStack...)})
		}
	}

	l.loadStack = append(l.loadStack, identity)
	defer func() { l.loadStack = l.loadStack[:len(l.loadStack)-1] }()

	l.sources[identity] = src
	tree, err := syntax.Parse(src, identity)
	if err != nil {
		return nil, err
	}

	m := newModule(identity, identity, l.Catalog)
	m.AST = tree
	l.cache[identity] = m

	defIndex := 0
	for _, item := range tree.Items("TopDecl") {
		if err := l.processTopDecl(m, item, &defIndex); err != nil {
			delete(l.cache, identity)
			return nil, err
		}
	}
	l.order = append(l.order, m)
	return m, nil
}

// resolvePath turns an import path (e.g. "./helpers", "../lib/math",
// "@std/app") into a cache identity plus the absolute file path to read:
// relative paths resolve against the importing file's directory, with the
// configured search paths as fallbacks, and "@std/" names resolve to the
// bundled standard modules (or a stdlib-directory override, when
// configured).
func (l *Loader) resolvePath(fromFile, importPath string) (identity string, isStd bool, file string, err error) {
	switch {
	case strings.HasPrefix(importPath, "@std/"):
		name := strings.TrimPrefix(importPath, "@std/")
		return "std:" + name, true, "", nil
	case strings.HasPrefix(importPath, "./"), strings.HasPrefix(importPath, "../"):
		rel := importPath
		if !strings.HasSuffix(rel, ".ln") {
			rel += ".ln"
		}
		file = filepath.Join(filepath.Dir(fromFile), rel)
		if _, statErr := os.Stat(file); statErr != nil {
			for _, dir := range l.cfg.SearchPaths {
				alt := filepath.Join(dir, rel)
				if _, statErr := os.Stat(alt); statErr == nil {
					file = alt
					break
				}
			}
		}
		return file, false, file, nil
	default:
		return "", false, "", fmt.Errorf("malformed import path %q: must start with ./, ../, or @std/", importPath)
	}
}

func (l *Loader) resolveImport(fromFile, importPath string, pos ast.Pos) (*Module, error) {
	identity, isStd, file, err := l.resolvePath(fromFile, importPath)
	if err != nil {
		return nil, cerrors.New(cerrors.MOD005, pos, err.Error(), nil)
	}
	if isStd {
		name := strings.TrimPrefix(importPath, "@std/")
		if l.cfg.StdlibPath != "" {
			override := filepath.Join(l.cfg.StdlibPath, name+".ln")
			if _, statErr := os.Stat(override); statErr == nil {
				m, loadErr := l.load(override)
				if loadErr == nil {
					l.stdUsed[name] = true
				}
				return m, loadErr
			}
		}
		m, ok := l.cache[identity]
		if !ok {
			return nil, cerrors.New(cerrors.MOD001, pos, fmt.Sprintf("unknown standard module %q", importPath), nil)
		}
		l.stdUsed[name] = true
		return m, nil
	}
	return l.load(file)
}

// processTopDecl dispatches one "TopDecl" item into the loaded module's
// scope (and export scope, when exported), per the grammar shapes in
// internal/syntax.
func (l *Loader) processTopDecl(m *Module, item *ast.Node, defIndex *int) error {
	switch {
	case item.Get("Import") != nil:
		return l.processImport(m, item.Get("Import"))
	case item.Get("HandlerDecl") != nil:
		return l.processHandler(m, item.Get("HandlerDecl"))
	case item.Get("MaybeExported") != nil:
		return l.processDecl(m, item.Get("MaybeExported"), defIndex)
	}
	return nil
}

// importPath locates the assembled path text on a FromImport/WholeImport
// node: the importPath parser is itself named "ImportPathChar" (see
// internal/syntax), so that's the key under which its whole match lands.
func importPath(n *ast.Node) *ast.Node {
	return n.Get("ImportPathChar")
}

func lastPathSegment(path string) string {
	parts := strings.Split(path, "/")
	return parts[len(parts)-1]
}

func (l *Loader) processImport(m *Module, node *ast.Node) error {
	switch {
	case node.Get("FromImport") != nil:
		from := node.Get("FromImport")
		pathNode := importPath(from)
		foreign, err := l.resolveImport(m.File, pathNode.Text, pathNode.Position)
		if err != nil {
			return err
		}
		for _, idNode := range from.Get("IdentList").CommaList("Ident", "MoreIdent", "Ident") {
			name := idNode.Text
			b, ok := foreign.Export.ShallowGet(name)
			if !ok {
				if _, existsInModule := foreign.Scope.ShallowGet(name); existsInModule {
					return cerrors.New(cerrors.MOD004, idNode.Position,
						fmt.Sprintf("%q is not exported by %q", name, pathNode.Text), nil)
				}
				return cerrors.New(cerrors.MOD003, idNode.Position,
					fmt.Sprintf("%q is not defined in %q", name, pathNode.Text), nil)
			}
			m.Scope.Put(name, b)
		}
		return nil

	case node.Get("WholeImport") != nil:
		whole := node.Get("WholeImport")
		pathNode := importPath(whole)
		foreign, err := l.resolveImport(m.File, pathNode.Text, pathNode.Position)
		if err != nil {
			return err
		}
		alias := lastPathSegment(pathNode.Text)
		if strings.HasSuffix(alias, ".ln") {
			alias = strings.TrimSuffix(alias, ".ln")
		}
		if as := whole.Get("ImportAs").Opt(); as != nil {
			alias = as.Get("Ident").Text
		}
		m.Scope.Put(alias, &ModuleRef{Module: foreign})
		return nil
	}
	return nil
}

func (l *Loader) processDecl(m *Module, node *ast.Node, defIndex *int) error {
	exported := node.Get("ExportKw").Opt() != nil
	decl := node.Get("ExportableDecl")
	arena := l.Catalog.Arena

	switch {
	case decl.Get("TypeDecl") != nil:
		name, b, err := buildTypeDecl(arena, m.Scope, decl.Get("TypeDecl"))
		if err != nil {
			return err
		}
		m.Scope.Put(name, b)
		if exported {
			m.Export.Put(name, b)
		}
	case decl.Get("InterfaceDecl") != nil:
		name, b, err := buildInterfaceDecl(arena, m.Scope, decl.Get("InterfaceDecl"))
		if err != nil {
			return err
		}
		m.Scope.Put(name, b)
		if exported {
			m.Export.Put(name, b)
		}
	case decl.Get("ConstDecl") != nil:
		name, c, err := buildConstDecl(arena, m.Scope, decl.Get("ConstDecl"))
		if err != nil {
			return err
		}
		m.Scope.Put(name, c)
		m.Consts = append(m.Consts, c)
		if exported {
			m.Export.Put(name, c)
		}
	case decl.Get("EventDecl") != nil:
		name, e, err := buildEventDecl(arena, m.Scope, decl.Get("EventDecl"))
		if err != nil {
			return err
		}
		m.Scope.Put(name, e)
		m.Events = append(m.Events, e)
		if exported {
			m.Export.Put(name, e)
		}
	case decl.Get("OperatorDecl") != nil:
		symbol, g, err := buildOperatorDecl(m.Scope, decl.Get("OperatorDecl"))
		if err != nil {
			return err
		}
		m.Scope.Put(symbol, g)
		if exported {
			m.Export.Put(symbol, g)
		}
	case decl.Get("FnDecl") != nil:
		*defIndex++
		name, fn, err := buildFnDecl(arena, m.Scope, m.Scope, *defIndex, decl.Get("FnDecl"))
		if err != nil {
			return err
		}
		fs := &sym.FunctionSet{Functions: []*sym.Function{fn}}
		m.Scope.Put(name, fs)
		if exported {
			m.Export.Put(name, fs)
		}
	}
	return nil
}

// processHandler attaches an "on EventName ..." declaration's handler
// candidates to the named event: the whole function set for the by-name
// form (selection happens during event type-checking), or a one-element
// set wrapping a fresh anonymous function for the two inline forms.
func (l *Loader) processHandler(m *Module, node *ast.Node) error {
	eventName := node.Get("Ident").Text
	b, ok := m.Scope.Get(eventName)
	if !ok {
		return cerrors.New(cerrors.NAM001, node.Position, fmt.Sprintf("unknown event %q", eventName), nil)
	}
	ev, ok := b.(*sym.Event)
	if !ok {
		return cerrors.New(cerrors.NAM001, node.Position, fmt.Sprintf("%q is not an event", eventName), nil)
	}

	body := node.Get("HandlerBody")
	voidH := l.Catalog.Builtins.Void

	switch {
	case body.Get("HandlerFnRef") != nil:
		ref := body.Get("HandlerFnRef")
		fnName := ref.Get("Ident").Text
		fb, ok := m.Scope.Get(fnName)
		if !ok {
			return cerrors.New(cerrors.NAM001, ref.Position, fmt.Sprintf("unknown function %q", fnName), nil)
		}
		fs, ok := fb.(*sym.FunctionSet)
		if !ok || len(fs.Functions) == 0 {
			return cerrors.New(cerrors.NAM001, ref.Position, fmt.Sprintf("%q is not a function", fnName), nil)
		}
		ev.AddHandler(fs)

	case body.Get("HandlerInlineFn") != nil:
		inline := body.Get("HandlerInlineFn")
		params, err := buildParamList(l.Catalog.Arena, m.Scope, inline.Get("ParamList"))
		if err != nil {
			return err
		}
		ev.AddHandler(&sym.FunctionSet{Functions: []*sym.Function{{
			Name: "on_" + eventName, Owner: m.Scope, Params: params,
			Return: voidH, BodyNode: inline.Get("Block"),
		}}})

	case body.Get("Block") != nil:
		ev.AddHandler(&sym.FunctionSet{Functions: []*sym.Function{{
			Name:     "on_" + eventName,
			Owner:    m.Scope,
			Params:   l.anonParams(ev.Payload),
			Return:   voidH,
			BodyNode: body.Get("Block"),
		}}})
	}
	return nil
}

// anonParams synthesizes the implicit payload parameter a bare
// `on EventName { ... }` handler receives: none for a void payload, a
// single binding named "event" otherwise.
func (l *Loader) anonParams(payload types.Handle) []sym.Param {
	if payload == l.Catalog.Builtins.Void {
		return nil
	}
	return []sym.Param{{Name: "event", Type: payload}}
}
