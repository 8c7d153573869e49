package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestArena(t *testing.T) (*Arena, *Builtins) {
	t.Helper()
	a := NewArena()
	return a, NewBuiltins(a)
}

func TestOneOfNarrowsAndCollapses(t *testing.T) {
	a, b := newTestArena(t)
	lit := a.NewOneOf(b.IntLiteralCandidates())

	require.NoError(t, a.Constrain(lit, b.Int8))

	inst, err := a.Instance(lit)
	require.NoError(t, err)
	require.True(t, a.Eq(inst, b.Int8))
}

func TestOneOfIntersection(t *testing.T) {
	a, b := newTestArena(t)
	lit := a.NewOneOf(b.IntLiteralCandidates())
	floats := a.NewOneOf(b.FloatLiteralCandidates())

	require.NoError(t, a.Constrain(lit, floats))

	e := a.Entry(a.Resolve(lit))
	require.Len(t, e.Candidates, 2, "int literal ∩ float literal leaves the two float widths")
}

func TestConstrainIsCommutativeInEffect(t *testing.T) {
	a, b := newTestArena(t)

	x := a.NewOneOf(b.IntLiteralCandidates())
	require.NoError(t, a.Constrain(x, b.Int64))
	instX, _ := a.Instance(x)

	y := a.NewOneOf(b.IntLiteralCandidates())
	require.NoError(t, a.Constrain(b.Int64, y))
	instY, _ := a.Instance(y)

	require.True(t, a.Eq(instX, instY))
}

func TestConstrainIncompatibleFails(t *testing.T) {
	a, b := newTestArena(t)
	require.Error(t, a.Constrain(b.Bool, b.Int64))

	lit := a.NewOneOf(b.FloatLiteralCandidates())
	require.Error(t, a.Constrain(lit, b.String), "no float candidate is a string")
}

func TestConstrainIsIdempotent(t *testing.T) {
	a, b := newTestArena(t)
	lit := a.NewOneOf(b.IntLiteralCandidates())
	require.NoError(t, a.Constrain(lit, b.Int32))
	require.NoError(t, a.Constrain(lit, b.Int32))
	inst, err := a.Instance(lit)
	require.NoError(t, err)
	require.True(t, a.Eq(inst, b.Int32))
}

func TestGeneratedCollapses(t *testing.T) {
	a, b := newTestArena(t)
	g := a.NewGenerated("ret")

	_, err := a.Instance(g)
	require.Error(t, err, "an unconstrained inference variable has no instance")

	require.NoError(t, a.Constrain(g, b.String))
	inst, err := a.Instance(g)
	require.NoError(t, err)
	require.True(t, a.Eq(inst, b.String))
}

func TestTempConstrainRestores(t *testing.T) {
	a, b := newTestArena(t)
	lit := a.NewOneOf(b.IntLiteralCandidates())

	require.NoError(t, a.TempConstrain(lit, b.Int8))
	r, _ := a.Fingerprint(lit)
	require.Equal(t, b.Int8, r, "the narrowed literal resolves to int8 while bound")

	a.ResetTemp(lit)
	_, n := a.Fingerprint(lit)
	require.Equal(t, 6, n, "ResetTemp must restore the full candidate set")
}

func TestCompatibleWithConstraintDoesNotMutate(t *testing.T) {
	a, b := newTestArena(t)
	lit := a.NewOneOf(b.IntLiteralCandidates())

	require.True(t, a.CompatibleWithConstraint(lit, b.Int8))
	require.False(t, a.CompatibleWithConstraint(lit, b.String))

	_, n := a.Fingerprint(lit)
	require.Equal(t, 6, n, "probes must leave the candidate set untouched")
}

func TestAliasBehavesIdentically(t *testing.T) {
	a, b := newTestArena(t)
	point := a.NewStruct("Point", []Field{{Name: "x", Type: b.Int64}}, nil)
	alias := a.NewAlias("Coord", point)

	require.True(t, a.Eq(alias, point))
	require.NoError(t, a.Constrain(alias, point))

	lit := a.NewOneOf([]Handle{point, b.Int64})
	require.NoError(t, a.Constrain(lit, alias))
	inst, err := a.Instance(lit)
	require.NoError(t, err)
	require.True(t, a.Eq(inst, point))
}

func TestOneOfSingleCandidateCollapsesAtConstruction(t *testing.T) {
	a, b := newTestArena(t)
	one := a.NewOneOf([]Handle{b.Bool})
	inst, err := a.Instance(one)
	require.NoError(t, err)
	require.True(t, a.Eq(inst, b.Bool))
}

func TestInterfaceSatisfaction(t *testing.T) {
	a, b := newTestArena(t)
	iface := a.NewInterface([]Field{{Name: "x", Type: b.Int64}}, nil, nil)
	good := a.NewStruct("Good", []Field{{Name: "x", Type: b.Int64}}, nil)
	bad := a.NewStruct("Bad", []Field{{Name: "y", Type: b.Int64}}, nil)

	require.NoError(t, a.Constrain(good, iface))
	require.Error(t, a.Constrain(bad, iface))
	require.True(t, a.CompatibleWithConstraint(iface, good))
	require.False(t, a.CompatibleWithConstraint(iface, bad))
}

func TestDupOnlyDuplicatesInterfaces(t *testing.T) {
	a, b := newTestArena(t)
	iface := a.NewInterface(nil, nil, nil)

	require.NotEqual(t, iface, a.Dup(iface), "interfaces get a fresh solver slot")
	require.Equal(t, b.Int64, a.Dup(b.Int64), "concrete types pass through")
}

func TestDefaultNarrowPrefersInt64(t *testing.T) {
	a, b := newTestArena(t)
	lit := a.NewOneOf(b.IntLiteralCandidates())
	require.NoError(t, a.DefaultNarrow(lit))
	inst, err := a.Instance(lit)
	require.NoError(t, err)
	require.True(t, a.Eq(inst, b.Int64))

	flt := a.NewOneOf(b.FloatLiteralCandidates())
	require.NoError(t, a.DefaultNarrow(flt))
	inst, err = a.Instance(flt)
	require.NoError(t, err)
	require.True(t, a.Eq(inst, b.Float64))
}

func TestDescribeShowsDisplayDefault(t *testing.T) {
	a, b := newTestArena(t)
	lit := a.NewOneOf(b.IntLiteralCandidates())
	require.Equal(t, "int64", a.Describe(lit))
	require.Equal(t, "bool", a.Describe(b.Bool))
}
