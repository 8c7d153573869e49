// Package sym holds the named, scope-stored declarations: functions (and
// their accumulating sets), operators, events, and module-level consts.
// Each type here implements scope.Binding so it can be stored directly in
// an internal/scope.Scope.
package sym

import (
	"github.com/ln-lang/lnc/internal/ast"
	"github.com/ln-lang/lnc/internal/scope"
	"github.com/ln-lang/lnc/internal/types"
)

// TypeBinding lets a types.Handle (a plain int) be stored as a
// scope.Binding; it covers both nominal types and interfaces, since both
// live in the same arena.
type TypeBinding struct {
	Handle types.Handle
}

func (*TypeBinding) BindingKind() string { return "type" }

// Param is one function parameter: a name and a declared type, which may
// be an interface handle; each interface-typed parameter is duplicated at
// the call site so every call gets its own solver slot.
type Param struct {
	Name string
	Type types.Handle
}

// Function is one function definition. The parse tree lives in BodyNode
// until lowering replaces it, at which point the lowered statements are
// tracked externally by internal/lower (keeping sym free of an
// import-cycle back onto the IR package).
type Function struct {
	Name     string
	Owner    *scope.Scope
	Params   []Param
	Return   types.Handle // 0 means not yet declared (defaults to Void)
	BodyNode *ast.Node
	DefIndex int // definition order; later definitions select first

	// IsOpcode marks a function whose body is an opaque primitive: the
	// AMM emitter writes OpcodeName and argument names directly, and
	// naming the opcode itself at the source level is an error.
	IsOpcode   bool
	OpcodeName string
}

func (*Function) BindingKind() string { return "function" }

// FunctionSet is the accumulating binding for same-named functions in a
// scope: later definitions are appended, so iterating in
// reverse gives highest-priority-first, the order overload selection
// scans in.
type FunctionSet struct {
	Functions []*Function
}

func (*FunctionSet) BindingKind() string { return "functionSet" }

// Merge implements scope.Mergeable by concatenating in definition order.
func (s *FunctionSet) Merge(other scope.Binding) scope.Binding {
	o, ok := other.(*FunctionSet)
	if !ok {
		return s
	}
	merged := &FunctionSet{Functions: append(append([]*Function(nil), s.Functions...), o.Functions...)}
	return merged
}

// ReverseCandidates returns the function set in reverse definition
// order, the scan order overload selection uses: later, more specific
// definitions override earlier generic ones, and the result does not
// depend on inference order.
func (s *FunctionSet) ReverseCandidates() []*Function {
	out := make([]*Function, len(s.Functions))
	for i, f := range s.Functions {
		out[len(s.Functions)-1-i] = f
	}
	return out
}

// Fixity distinguishes prefix from infix operator use.
type Fixity int

const (
	Prefix Fixity = iota
	Infix
)

// Operator is one precedence/fixity/candidate-set binding.
type Operator struct {
	Symbol     string
	Precedence int
	Fixity     Fixity
	Candidates *FunctionSet
}

func (*Operator) BindingKind() string { return "operator" }

// OperatorGroup is the scope binding stored under an operator symbol:
// the prefix and infix forms of that symbol, each its own Operator
// (distinct candidate sets, distinct precedence). Conflict is set when
// two declarations of the same symbol and fixity disagree on precedence;
// the error surfaces the first time the operator is actually used, which
// keeps scope construction total.
type OperatorGroup struct {
	Symbol   string
	Prefix   *Operator
	Infix    *Operator
	Conflict bool
}

func (*OperatorGroup) BindingKind() string { return "operatorGroup" }

func mergeOperator(a, b *Operator) (*Operator, bool) {
	switch {
	case a == nil:
		return b, false
	case b == nil:
		return a, false
	case a.Precedence != b.Precedence:
		return a, true
	default:
		fnSet, _ := a.Candidates.Merge(b.Candidates).(*FunctionSet)
		return &Operator{Symbol: a.Symbol, Precedence: a.Precedence, Fixity: a.Fixity, Candidates: fnSet}, false
	}
}

// Merge implements scope.Mergeable.
func (g *OperatorGroup) Merge(other scope.Binding) scope.Binding {
	o, ok := other.(*OperatorGroup)
	if !ok {
		return g
	}
	prefix, prefixConflict := mergeOperator(g.Prefix, o.Prefix)
	infix, infixConflict := mergeOperator(g.Infix, o.Infix)
	return &OperatorGroup{
		Symbol:   g.Symbol,
		Prefix:   prefix,
		Infix:    infix,
		Conflict: g.Conflict || o.Conflict || prefixConflict || infixConflict,
	}
}

// Event is one event declaration: a name, a payload type (possibly
// Void), and the handlers attached to it. Each handler binding is a
// candidate set pending selection; attaching a single inline function
// just wraps it in a one-element set. Runtime marks events the runtime
// itself defines (start), which are referenced but never declared in the
// emitted output.
type Event struct {
	Name     string
	Payload  types.Handle
	Runtime  bool
	Handlers []*FunctionSet
}

func (*Event) BindingKind() string { return "event" }

// AddHandler attaches one more handler candidate set to the event.
func (e *Event) AddHandler(fs *FunctionSet) {
	e.Handlers = append(e.Handlers, fs)
}

// Const is a module-level const: a name, a type, and an expression
// lowered at its first use in each handler.
type Const struct {
	Name     string
	Type     types.Handle
	ExprNode *ast.Node
}

func (*Const) BindingKind() string { return "const" }
