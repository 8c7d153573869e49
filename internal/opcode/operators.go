package opcode

import (
	"github.com/ln-lang/lnc/internal/sym"
	"github.com/ln-lang/lnc/internal/types"
)

// The conventional precedence ladder: || lowest, && next, then
// equality, then relational, then additive, then multiplicative, then
// unary prefix highest. Ln attaches these numbers to operator
// declarations rather than baking them into the grammar, so the
// built-ins declare the same ladder a user module could.
const (
	precOr     = 1
	precAnd    = 2
	precEq     = 3
	precRel    = 4
	precAdd    = 6
	precMul    = 7
	precPrefix = 8
)

// fnSetAcrossWidths builds a FunctionSet containing one opcode per
// numeric width that already exists in Root under name+suffix, used to
// assemble an overloaded operator's candidate pool.
func (c *Catalog) fnSetAcrossWidths(names ...string) *sym.FunctionSet {
	set := &sym.FunctionSet{}
	for _, n := range names {
		if b, ok := c.Root.ShallowGet(n); ok {
			if fs, ok := b.(*sym.FunctionSet); ok {
				set.Functions = append(set.Functions, fs.Functions...)
			}
		}
	}
	return set
}

func widthSuffixed(base string) []string {
	suffixes := []string{"i8", "i16", "i32", "i64", "f32", "f64"}
	out := make([]string, len(suffixes))
	for i, s := range suffixes {
		out[i] = base + s
	}
	return out
}

func (c *Catalog) putOperator(symbol string, prefix, infix *sym.Operator) {
	c.Root.Put(symbol, &sym.OperatorGroup{Symbol: symbol, Prefix: prefix, Infix: infix})
}

func (c *Catalog) infixOperator(symbol string, precedence int, candidates *sym.FunctionSet) *sym.Operator {
	return &sym.Operator{Symbol: symbol, Precedence: precedence, Fixity: sym.Infix, Candidates: candidates}
}

func (c *Catalog) prefixOperator(symbol string, precedence int, candidates *sym.FunctionSet) *sym.Operator {
	return &sym.Operator{Symbol: symbol, Precedence: precedence, Fixity: sym.Prefix, Candidates: candidates}
}

// registerOperators binds the built-in arithmetic/comparison/boolean
// operator symbols to their numeric-width opcode candidate sets.
func (c *Catalog) registerOperators() {
	c.putOperator("+", nil, c.infixOperator("+", precAdd, c.fnSetAcrossWidths(append(widthSuffixed("add"), "catstr")...)))
	c.putOperator("-",
		c.prefixOperator("-", precPrefix, c.negateSet()),
		c.infixOperator("-", precAdd, c.fnSetAcrossWidths(widthSuffixed("sub")...)))
	c.putOperator("*", nil, c.infixOperator("*", precMul, c.fnSetAcrossWidths(widthSuffixed("mul")...)))
	c.putOperator("/", nil, c.infixOperator("/", precMul, c.fnSetAcrossWidths(widthSuffixed("div")...)))

	c.boolFnSet("eq") // materialize eqbool before assembling the == pool
	c.putOperator("==", nil, c.infixOperator("==", precEq, c.fnSetAcrossWidths(append(widthSuffixed("eq"), "eqstr", "eqbool")...)))
	c.putOperator("!=", nil, c.infixOperator("!=", precEq, c.fnSetAcrossWidths(widthSuffixed("neq")...)))
	c.putOperator("<", nil, c.infixOperator("<", precRel, c.fnSetAcrossWidths(widthSuffixed("lt")...)))
	c.putOperator(">", nil, c.infixOperator(">", precRel, c.fnSetAcrossWidths(widthSuffixed("gt")...)))
	c.putOperator("<=", nil, c.infixOperator("<=", precRel, c.fnSetAcrossWidths(widthSuffixed("lte")...)))
	c.putOperator(">=", nil, c.infixOperator(">=", precRel, c.fnSetAcrossWidths(widthSuffixed("gte")...)))

	c.putOperator("&&", nil, c.infixOperator("&&", precAnd, c.boolFnSet("and")))
	c.putOperator("||", nil, c.infixOperator("||", precOr, c.boolFnSet("or")))
	c.putOperator("!", c.prefixOperator("!", precPrefix, c.boolFnSet("not")), nil)
}

// negateSet synthesizes a unary negation opcode per numeric width; these
// are not otherwise exposed because prefix `-` is the only caller.
func (c *Catalog) negateSet() *sym.FunctionSet {
	set := &sym.FunctionSet{}
	for _, w := range numericWidths {
		h := c.widthHandle(w)
		set.Functions = append(set.Functions, c.opcodeFn("neg"+suffixFor(w), []types.Handle{h}, h))
	}
	return set
}

func suffixFor(w string) string {
	m := map[string]string{"int8": "i8", "int16": "i16", "int32": "i32", "int64": "i64", "float32": "f32", "float64": "f64"}
	return m[w]
}

// boolFnSet builds a one-candidate FunctionSet for a boolean opcode
// (andbool/orbool/notbool), registered lazily the first time it's asked
// for since booleans don't otherwise need per-width opcode families.
func (c *Catalog) boolFnSet(op string) *sym.FunctionSet {
	name := op + "bool"
	if b, ok := c.Root.ShallowGet(name); ok {
		if fs, ok := b.(*sym.FunctionSet); ok {
			return fs
		}
	}
	bl := c.Builtins.Bool
	var fn *sym.Function
	if op == "not" {
		fn = c.opcodeFn(name, []types.Handle{bl}, bl)
	} else {
		fn = c.opcodeFn(name, []types.Handle{bl, bl}, bl)
	}
	c.bind(name, fn)
	fs, _ := c.Root.ShallowGet(name)
	return fs.(*sym.FunctionSet)
}
