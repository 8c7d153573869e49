// Package types implements the Ln type system: an arena of shared,
// mutable type records addressed by integer Handle, so that constraining
// one reference to a type is visible to every other reference to the
// same Handle. Constraint propagation is global by construction; there
// is no substitution map to thread through the passes.
package types

import "fmt"

// Handle is an arena index. The zero Handle is never issued by the arena
// and is used as a sentinel "no type" value.
type Handle int

// Kind tags which of the five type variants an Entry holds.
type Kind int

const (
	KindBuiltin Kind = iota
	KindStruct
	KindInterface
	KindGenerated
	KindOneOf
)

func (k Kind) String() string {
	switch k {
	case KindBuiltin:
		return "builtin"
	case KindStruct:
		return "struct"
	case KindInterface:
		return "interface"
	case KindGenerated:
		return "generated"
	case KindOneOf:
		return "oneOf"
	default:
		return "unknown"
	}
}

// Field is an ordered (name, Type) pair, used both for struct fields and
// interface property requirements.
type Field struct {
	Name string
	Type Handle
}

// FnSig is a function-signature requirement or a function's declared
// shape: `name(Type, ...): Type`.
type FnSig struct {
	Name   string
	Params []Handle
	Return Handle
}

// OpSig is an operator requirement inside an interface.
type OpSig struct {
	Symbol string
	Left   Handle
	Right  Handle
	Return Handle
}

// tempFrame is a saved snapshot used by TempConstrain/ResetTemp.
type tempFrame struct {
	candidates []Handle
	upstream   []Handle
	collapsed  Handle
}

// Entry is the mutable record behind a Handle. Exactly one of the
// kind-specific field groups is meaningful, selected by Kind.
type Entry struct {
	Kind Kind

	// Builtin
	Name    string
	AMMName string

	// Struct
	Fields   []Field
	TypeVars map[string]Handle
	AliasOf  Handle // non-zero if this Struct is `type X = Y`

	// Interface
	Properties []Field
	Functions  []FnSig
	Operators  []OpSig

	// Generated
	Upstream  []Handle // constraint causation, for error messages
	Collapsed Handle   // resolved concrete type, once narrowed to one

	// OneOf
	Candidates []Handle

	temps []tempFrame
}

// Arena owns every Type Entry created during a compilation.
type Arena struct {
	entries []*Entry // entries[0] is unused; Handle 0 means "none"
	genN    int
}

// NewArena creates an empty arena with the invalid Handle 0 reserved.
func NewArena() *Arena {
	return &Arena{entries: []*Entry{nil}}
}

func (a *Arena) alloc(e *Entry) Handle {
	a.entries = append(a.entries, e)
	return Handle(len(a.entries) - 1)
}

// Entry returns the mutable record for h. Panics on an invalid handle,
// which indicates a compiler bug rather than a user error.
func (a *Arena) Entry(h Handle) *Entry {
	if int(h) <= 0 || int(h) >= len(a.entries) {
		panic("types: invalid handle")
	}
	return a.entries[h]
}

// NewBuiltin registers a primitive type with its fixed AMM name.
func (a *Arena) NewBuiltin(name, ammName string) Handle {
	return a.alloc(&Entry{Kind: KindBuiltin, Name: name, AMMName: ammName})
}

// NewStruct registers a nominal struct type with an ordered field list and
// an optional generic type-variable map.
func (a *Arena) NewStruct(name string, fields []Field, typeVars map[string]Handle) Handle {
	return a.alloc(&Entry{Kind: KindStruct, Name: name, Fields: fields, TypeVars: typeVars})
}

// NewAlias registers `type Alias = Existing`: a Struct that shares field
// identity with target by alias reference, so every type operation on the
// alias behaves identically to target.
func (a *Arena) NewAlias(name string, target Handle) Handle {
	return a.alloc(&Entry{Kind: KindStruct, Name: name, AliasOf: target})
}

// NewInterface registers an interface's required property/function/
// operator set.
func (a *Arena) NewInterface(properties []Field, functions []FnSig, operators []OpSig) Handle {
	return a.alloc(&Entry{Kind: KindInterface, Properties: properties, Functions: functions, Operators: operators})
}

// NewGenerated allocates a fresh inference variable with an internally
// unique name. Names come from a per-arena monotonic counter so the same
// input always allocates the same names.
func (a *Arena) NewGenerated(hint string) Handle {
	a.genN++
	name := hint
	if name == "" {
		name = "t"
	}
	return a.alloc(&Entry{Kind: KindGenerated, Name: fmt.Sprintf("%s#%d", name, a.genN), Collapsed: 0})
}

// NewOneOf allocates a disjunction of candidate concrete types. A OneOf
// narrowed to exactly one survivor collapses to that survivor: Resolve
// forwards single-candidate entries transparently, so every holder of
// the handle sees the concrete type from then on.
func (a *Arena) NewOneOf(candidates []Handle) Handle {
	return a.alloc(&Entry{Kind: KindOneOf, Candidates: candidates})
}

// Resolve follows OneOf-collapse and Generated-collapse chains and alias
// chains to the representative Handle a type operation should act on.
// Struct/Interface/Builtin handles resolve to themselves.
func (a *Arena) Resolve(h Handle) Handle {
	for {
		e := a.Entry(h)
		switch {
		case e.Kind == KindStruct && e.AliasOf != 0:
			h = e.AliasOf
		case e.Kind == KindGenerated && e.Collapsed != 0:
			h = e.Collapsed
		case e.Kind == KindOneOf && len(e.Candidates) == 1:
			h = e.Candidates[0]
		default:
			return h
		}
	}
}
