// Package scope implements the ordered name-to-binding mapping the
// compiler resolves against: a primary parent, an optional secondary
// parent, dotted deep lookup, and accumulating bindings for
// function/operator sets.
package scope

import "strings"

// Binding is anything a name can resolve to. The concrete kinds (type,
// interface, const, event, function set, operator set, nested scope) live
// in internal/sym and internal/types; scope only needs to store and
// retrieve them.
type Binding interface {
	// BindingKind names which kind of binding this is. Accumulating
	// kinds (function/operator sets) also implement Mergeable.
	BindingKind() string
}

// Mergeable is implemented by bindings that accumulate under Put (function
// sets and operator sets) instead of being overwritten.
type Mergeable interface {
	Binding
	Merge(other Binding) Binding
}

// Scope is a mapping from identifier to binding with at most two parents.
type Scope struct {
	Name      string
	parent    *Scope
	secondary *Scope
	table     map[string]Binding
	order     []string
}

// New creates an empty scope with the given parent and no secondary
// parent. A nil parent marks a root scope.
func New(name string, parent *Scope) *Scope {
	return &Scope{Name: name, parent: parent, table: map[string]Binding{}}
}

// WithSecondary returns s with its secondary parent set to sec, for the
// import-the-whole-export-scope case.
func (s *Scope) WithSecondary(sec *Scope) *Scope {
	s.secondary = sec
	return s
}

// Put inserts name -> binding. If name is already bound locally and both
// bindings are Mergeable, the new binding is merged into the existing one
// (preserving definition order) rather than overwriting it; this is how
// function sets and operator sets accumulate.
func (s *Scope) Put(name string, b Binding) {
	if existing, ok := s.table[name]; ok {
		if em, ok1 := existing.(Mergeable); ok1 {
			if nm, ok2 := b.(Mergeable); ok2 {
				s.table[name] = em.Merge(nm)
				return
			}
		}
	} else {
		s.order = append(s.order, name)
	}
	s.table[name] = b
}

// ShallowGet consults only this scope's local map.
func (s *Scope) ShallowGet(name string) (Binding, bool) {
	b, ok := s.table[name]
	return b, ok
}

// Get walks this scope, then its primary parent chain, then its secondary
// parent chain.
func (s *Scope) Get(name string) (Binding, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if b, ok := cur.table[name]; ok {
			return b, true
		}
	}
	if s.secondary != nil {
		return s.secondary.Get(name)
	}
	return nil, false
}

// Has reports whether Get would succeed.
func (s *Scope) Has(name string) bool {
	_, ok := s.Get(name)
	return ok
}

// NestedScope is implemented by bindings that themselves hold a nested
// Scope, so DeepGet can descend into them (e.g. a module bound under a
// local import name).
type NestedScope interface {
	Binding
	Scope() *Scope
}

// DeepGet walks a dotted path (a.b.c), resolving the first segment in s
// and then descending into nested scopes for each remaining segment.
func (s *Scope) DeepGet(path string) (Binding, bool) {
	segs := strings.Split(path, ".")
	b, ok := s.Get(segs[0])
	if !ok {
		return nil, false
	}
	for _, seg := range segs[1:] {
		ns, ok := b.(NestedScope)
		if !ok {
			return nil, false
		}
		b, ok = ns.Scope().ShallowGet(seg)
		if !ok {
			return nil, false
		}
	}
	return b, true
}

// Names returns every locally-bound name in definition order.
func (s *Scope) Names() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}
