package types

// BuiltinNames lists the primitive types in the fixed order the opcode
// catalog and AMM emitter expect. AMM type names are
// identical to the Ln source names for every builtin.
var BuiltinNames = []string{
	"int8", "int16", "int32", "int64",
	"float32", "float64",
	"bool", "string", "void",
}

// Builtins holds the arena handles for every primitive type, seeded once
// by NewBuiltins and shared for the lifetime of a compilation.
type Builtins struct {
	Int8, Int16, Int32, Int64 Handle
	Float32, Float64          Handle
	Bool, String, Void        Handle

	byName map[string]Handle
}

// NewBuiltins registers the fixed primitive set into arena and returns a
// handle table for quick lookup.
func NewBuiltins(arena *Arena) *Builtins {
	b := &Builtins{byName: map[string]Handle{}}
	reg := func(name string) Handle {
		h := arena.NewBuiltin(name, name)
		b.byName[name] = h
		return h
	}
	b.Int8 = reg("int8")
	b.Int16 = reg("int16")
	b.Int32 = reg("int32")
	b.Int64 = reg("int64")
	b.Float32 = reg("float32")
	b.Float64 = reg("float64")
	b.Bool = reg("bool")
	b.String = reg("string")
	b.Void = reg("void")
	return b
}

// Lookup resolves a primitive type by name.
func (b *Builtins) Lookup(name string) (Handle, bool) {
	h, ok := b.byName[name]
	return h, ok
}

// IntLiteralCandidates returns the OneOf candidate order for a numeric
// literal with no decimal point.
func (b *Builtins) IntLiteralCandidates() []Handle {
	return []Handle{b.Float32, b.Float64, b.Int8, b.Int16, b.Int32, b.Int64}
}

// FloatLiteralCandidates returns the OneOf candidate order for a numeric
// literal with a decimal point.
func (b *Builtins) FloatLiteralCandidates() []Handle {
	return []Handle{b.Float32, b.Float64}
}

// LiteralSuffix returns the AMM literal suffix for a builtin handle:
// i8,i16,i32,i64,f32,f64,str,bool.
func (b *Builtins) LiteralSuffix(h Handle) string {
	switch h {
	case b.Int8:
		return "i8"
	case b.Int16:
		return "i16"
	case b.Int32:
		return "i32"
	case b.Int64:
		return "i64"
	case b.Float32:
		return "f32"
	case b.Float64:
		return "f64"
	case b.String:
		return "str"
	case b.Bool:
		return "bool"
	default:
		return ""
	}
}
