package scope

import "testing"

type fakeBinding struct{ kind string }

func (b *fakeBinding) BindingKind() string { return b.kind }

type fakeSet struct{ items []string }

func (s *fakeSet) BindingKind() string { return "set" }
func (s *fakeSet) Merge(other Binding) Binding {
	o := other.(*fakeSet)
	return &fakeSet{items: append(append([]string(nil), s.items...), o.items...)}
}

type fakeNested struct{ inner *Scope }

func (n *fakeNested) BindingKind() string { return "nested" }
func (n *fakeNested) Scope() *Scope       { return n.inner }

func TestShallowGetVsGet(t *testing.T) {
	parent := New("parent", nil)
	parent.Put("a", &fakeBinding{kind: "x"})
	child := New("child", parent)

	if _, ok := child.ShallowGet("a"); ok {
		t.Fatal("ShallowGet must not consult the parent")
	}
	if _, ok := child.Get("a"); !ok {
		t.Fatal("Get must walk the parent chain")
	}
	if !child.Has("a") {
		t.Fatal("Has must agree with Get")
	}
}

func TestSecondaryParentFallback(t *testing.T) {
	primary := New("primary", nil)
	secondary := New("secondary", nil)
	secondary.Put("fromSecondary", &fakeBinding{kind: "x"})

	s := New("s", primary).WithSecondary(secondary)
	if _, ok := s.Get("fromSecondary"); !ok {
		t.Fatal("Get must fall back to the secondary parent")
	}
}

func TestPutMergesAccumulatingBindings(t *testing.T) {
	s := New("s", nil)
	s.Put("f", &fakeSet{items: []string{"first"}})
	s.Put("f", &fakeSet{items: []string{"second"}})

	b, _ := s.Get("f")
	set := b.(*fakeSet)
	if len(set.items) != 2 || set.items[0] != "first" || set.items[1] != "second" {
		t.Fatalf("merge must concatenate in definition order, got %v", set.items)
	}
}

func TestPutOverwritesNonMergeable(t *testing.T) {
	s := New("s", nil)
	s.Put("t", &fakeBinding{kind: "old"})
	s.Put("t", &fakeBinding{kind: "new"})

	b, _ := s.Get("t")
	if b.(*fakeBinding).kind != "new" {
		t.Fatal("non-mergeable bindings must be overwritten")
	}
}

func TestDeepGet(t *testing.T) {
	inner := New("inner", nil)
	inner.Put("leaf", &fakeBinding{kind: "x"})
	mid := New("mid", nil)
	mid.Put("inner", &fakeNested{inner: inner})
	root := New("root", nil)
	root.Put("mid", &fakeNested{inner: mid})

	if _, ok := root.DeepGet("mid.inner.leaf"); !ok {
		t.Fatal("DeepGet must descend through nested scopes")
	}
	if _, ok := root.DeepGet("mid.missing.leaf"); ok {
		t.Fatal("DeepGet must fail on a missing segment")
	}
	if _, ok := root.DeepGet("mid.inner.leaf.tooDeep"); ok {
		t.Fatal("DeepGet must fail when a segment is not a nested scope")
	}
}

func TestNamesPreservesDefinitionOrder(t *testing.T) {
	s := New("s", nil)
	s.Put("b", &fakeBinding{kind: "1"})
	s.Put("a", &fakeBinding{kind: "2"})
	s.Put("b", &fakeBinding{kind: "3"}) // re-Put must not duplicate

	names := s.Names()
	if len(names) != 2 || names[0] != "b" || names[1] != "a" {
		t.Fatalf("unexpected order: %v", names)
	}
}
