package types

import "fmt"

// ConstraintError reports a failed Constrain/Instance call.
type ConstraintError struct {
	Left, Right Handle
	Reason      string
}

func (e *ConstraintError) Error() string {
	return "cannot constrain types: " + e.Reason
}

// Constrain asserts that h must accept other, narrowing h (and, for a
// OneOf, intersecting its candidate set) in place. Constrain is
// idempotent: constraining h to a type it already accepts is a no-op.
// Constraining is commutative in effect — constrain(a,b) and constrain(b,a)
// leave the same set of surviving types — but the Upstream causation list
// records which direction was asserted, for error messages.
func (a *Arena) Constrain(h, other Handle) error {
	h = a.Resolve(h)
	other = a.Resolve(other)
	if h == other {
		return nil
	}
	he, oe := a.Entry(h), a.Entry(other)

	switch he.Kind {
	case KindOneOf:
		return a.constrainOneOf(h, other)
	case KindGenerated:
		he.Upstream = append(he.Upstream, other)
		if oe.Kind == KindBuiltin || oe.Kind == KindStruct {
			he.Collapsed = other
		} else if oe.Kind == KindOneOf && len(oe.Candidates) == 1 {
			he.Collapsed = oe.Candidates[0]
		}
		return nil
	case KindBuiltin, KindStruct:
		switch oe.Kind {
		case KindGenerated, KindOneOf:
			return a.Constrain(other, h) // symmetric: let the placeholder narrow
		case KindInterface:
			if !a.satisfiesInterface(h, other) {
				return &ConstraintError{Left: h, Right: other, Reason: fmt.Sprintf("%s does not satisfy interface", a.describe(h))}
			}
			return nil
		default:
			if !a.Eq(h, other) {
				return &ConstraintError{Left: h, Right: other, Reason: fmt.Sprintf("%s is not %s", a.describe(h), a.describe(other))}
			}
			return nil
		}
	case KindInterface:
		// An interface Handle is never an emitted instance type;
		// constraining against one only makes sense as a
		// compatibility probe, handled by CompatibleWithConstraint.
		if !a.satisfiesInterface(other, h) {
			return &ConstraintError{Left: h, Right: other, Reason: fmt.Sprintf("%s does not satisfy interface", a.describe(other))}
		}
		return nil
	}
	return nil
}

// constrainOneOf narrows h's candidate set to those compatible with other,
// collapsing to a single survivor when possible.
func (a *Arena) constrainOneOf(h, other Handle) error {
	he := a.Entry(h)
	oe := a.Entry(other)

	var allowed func(Handle) bool
	switch oe.Kind {
	case KindOneOf:
		set := map[Handle]bool{}
		for _, c := range oe.Candidates {
			set[a.Resolve(c)] = true
		}
		allowed = func(c Handle) bool { return set[a.Resolve(c)] }
	case KindGenerated, KindInterface:
		// Cannot narrow against an undecided or structural requirement
		// yet; record the causation and wait for a later, more concrete
		// constraint.
		he.Upstream = append(he.Upstream, other)
		return nil
	default:
		allowed = func(c Handle) bool { return a.Eq(a.Resolve(c), other) }
	}

	var kept []Handle
	for _, c := range he.Candidates {
		if allowed(c) {
			kept = append(kept, c)
		}
	}
	if len(kept) == 0 {
		return &ConstraintError{Left: h, Right: other, Reason: fmt.Sprintf("%s has no candidate compatible with %s", a.describe(h), a.describe(other))}
	}
	he.Candidates = kept
	return nil
}

// CompatibleWithConstraint probes whether h could be constrained to other
// without mutating either side.
func (a *Arena) CompatibleWithConstraint(h, other Handle) bool {
	h = a.Resolve(h)
	other = a.Resolve(other)
	if h == other {
		return true
	}
	he, oe := a.Entry(h), a.Entry(other)

	switch he.Kind {
	case KindOneOf:
		switch oe.Kind {
		case KindOneOf:
			for _, c := range he.Candidates {
				for _, d := range oe.Candidates {
					if a.Eq(a.Resolve(c), a.Resolve(d)) {
						return true
					}
				}
			}
			return false
		case KindGenerated, KindInterface:
			return true
		default:
			for _, c := range he.Candidates {
				if a.Eq(a.Resolve(c), other) {
					return true
				}
			}
			return false
		}
	case KindGenerated:
		return true
	case KindInterface:
		return a.satisfiesInterface(other, h)
	default:
		switch oe.Kind {
		case KindOneOf, KindGenerated:
			return a.CompatibleWithConstraint(other, h)
		case KindInterface:
			return a.satisfiesInterface(h, other)
		default:
			return a.Eq(h, other)
		}
	}
}

// TempConstrain applies Constrain but first snapshots h's mutable state so
// ResetTemp can restore it. Used while binding function parameters: each
// call site constrains the parameter, then releases it.
func (a *Arena) TempConstrain(h, other Handle) error {
	he := a.Entry(a.Resolve(h))
	he.temps = append(he.temps, tempFrame{
		candidates: append([]Handle(nil), he.Candidates...),
		upstream:   append([]Handle(nil), he.Upstream...),
		collapsed:  he.Collapsed,
	})
	return a.Constrain(h, other)
}

// ResetTemp restores the state saved by the matching TempConstrain call.
// The constrain itself may have narrowed the entry enough that Resolve
// now forwards past it, so the restore walks the chain looking for the
// entry that actually holds the saved frame.
func (a *Arena) ResetTemp(h Handle) {
	for {
		e := a.Entry(h)
		if len(e.temps) > 0 {
			frame := e.temps[len(e.temps)-1]
			e.temps = e.temps[:len(e.temps)-1]
			e.Candidates = frame.candidates
			e.Upstream = frame.upstream
			e.Collapsed = frame.collapsed
			return
		}
		switch {
		case e.Kind == KindStruct && e.AliasOf != 0:
			h = e.AliasOf
		case e.Kind == KindGenerated && e.Collapsed != 0:
			h = e.Collapsed
		case e.Kind == KindOneOf && len(e.Candidates) == 1:
			h = e.Candidates[0]
		default:
			return
		}
	}
}

// Instance produces the current best concrete Builtin or Struct handle,
// failing if h is not yet decidable.
func (a *Arena) Instance(h Handle) (Handle, error) {
	h = a.Resolve(h)
	e := a.Entry(h)
	switch e.Kind {
	case KindBuiltin, KindStruct:
		return h, nil
	case KindGenerated:
		if e.Collapsed != 0 {
			return a.Instance(e.Collapsed)
		}
		return 0, &ConstraintError{Left: h, Reason: fmt.Sprintf("generated type %s has no decided instance", e.Name)}
	case KindOneOf:
		if len(e.Candidates) == 1 {
			return a.Instance(e.Candidates[0])
		}
		return 0, &ConstraintError{Left: h, Reason: fmt.Sprintf("ambiguous type with %d surviving candidates", len(e.Candidates))}
	default:
		return 0, &ConstraintError{Left: h, Reason: "interface type has no instance"}
	}
}

// Dup produces a fresh Generated handle constrained to satisfy the
// interface at h, so each parameter binding gets its own solver slot
// Calling Dup on a non-interface handle just returns
// h unchanged: only interface-typed hints need per-call duplication.
func (a *Arena) Dup(h Handle) Handle {
	e := a.Entry(a.Resolve(h))
	if e.Kind != KindInterface {
		return h
	}
	g := a.NewGenerated("iface")
	a.Entry(g).Upstream = append(a.Entry(g).Upstream, h)
	return g
}

// Eq reports structural equality on the resolved type.
func (a *Arena) Eq(h1, h2 Handle) bool {
	h1, h2 = a.Resolve(h1), a.Resolve(h2)
	if h1 == h2 {
		return true
	}
	e1, e2 := a.Entry(h1), a.Entry(h2)
	if e1.Kind != e2.Kind {
		return false
	}
	switch e1.Kind {
	case KindBuiltin:
		return e1.Name == e2.Name
	case KindStruct:
		if e1.Name != e2.Name || len(e1.Fields) != len(e2.Fields) {
			return false
		}
		for i := range e1.Fields {
			if e1.Fields[i].Name != e2.Fields[i].Name || !a.Eq(e1.Fields[i].Type, e2.Fields[i].Type) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func (a *Arena) describe(h Handle) string {
	e := a.Entry(a.Resolve(h))
	if e.Kind == KindBuiltin || e.Kind == KindStruct {
		return e.Name
	}
	return e.Kind.String()
}

// Describe renders h for diagnostics. An undecided OneOf is shown as its
// display default (int64 for integer-literal candidates, float64 for
// float-literal ones), matching what the type would narrow to if nothing
// else constrained it.
func (a *Arena) Describe(h Handle) string {
	h = a.Resolve(h)
	e := a.Entry(h)
	if e.Kind == KindOneOf {
		if d := a.displayDefault(e); d != 0 {
			return a.describe(d)
		}
	}
	return a.describe(h)
}

// displayDefault picks the candidate an unconstrained OneOf collapses to:
// int64 when present, else float64, else the first candidate.
func (a *Arena) displayDefault(e *Entry) Handle {
	var first, i64, f64 Handle
	for _, c := range e.Candidates {
		r := a.Resolve(c)
		ce := a.Entry(r)
		if first == 0 {
			first = r
		}
		if ce.Kind == KindBuiltin {
			switch ce.Name {
			case "int64":
				i64 = r
			case "float64":
				f64 = r
			}
		}
	}
	if i64 != 0 {
		return i64
	}
	if f64 != 0 {
		return f64
	}
	return first
}

// DefaultNarrow collapses an undecided OneOf to its display default, so a
// literal nothing ever constrained still gets a concrete instance before
// emission. Already-decided handles are left alone.
func (a *Arena) DefaultNarrow(h Handle) error {
	h = a.Resolve(h)
	e := a.Entry(h)
	if e.Kind != KindOneOf || len(e.Candidates) <= 1 {
		return nil
	}
	d := a.displayDefault(e)
	if d == 0 {
		return &ConstraintError{Left: h, Reason: "empty candidate set"}
	}
	return a.Constrain(h, d)
}

// Fingerprint summarizes h's mutable narrowing state: the representative
// handle after Resolve plus the surviving candidate count. Cleanup passes
// compare fingerprints before and after re-constraining to decide whether
// a statement made progress.
func (a *Arena) Fingerprint(h Handle) (Handle, int) {
	r := a.Resolve(h)
	return r, len(a.Entry(r).Candidates)
}

// satisfiesInterface reports whether concrete is a struct with a field of
// equal type for every property the interface at ifaceHandle requires.
// Function and operator requirements are not checked, and a handle that
// does not resolve to a struct (a builtin or a placeholder) yields false.
func (a *Arena) satisfiesInterface(concrete, ifaceHandle Handle) bool {
	concrete = a.Resolve(concrete)
	ce := a.Entry(concrete)
	if ce.Kind != KindStruct {
		return false
	}
	ie := a.Entry(a.Resolve(ifaceHandle))
	fieldByName := map[string]Handle{}
	for _, f := range ce.Fields {
		fieldByName[f.Name] = f.Type
	}
	for _, p := range ie.Properties {
		ft, ok := fieldByName[p.Name]
		if !ok || !a.Eq(ft, p.Type) {
			return false
		}
	}
	return true
}
