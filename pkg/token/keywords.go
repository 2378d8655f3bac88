package token

import "regexp"

// Class groups keywords by how the tokenizer turns them into tokens.
type Class int

// Keyword classes.
const (
	ClassFunction Class = iota // name( ... ), scanned to the balanced closer
	ClassAccessor              // .x .y .z
	ClassConstant              // pi e
	ClassPrefix                // sin cos ...
	ClassVariable              // bound names
)

// Keyword is one entry of the keyword table.
type Keyword struct {
	Text  string // text matched in the input
	Name  string // canonical name (function, constant, accessor target or variable)
	Class Class
}

// Builtin function names.
const (
	FuncMin    = "min"
	FuncMax    = "max"
	FuncClamp  = "clamp"
	FuncLog    = "log"
	FuncLn     = "ln"
	FuncRound  = "round"
	FuncGetX   = "getx"
	FuncGetY   = "gety"
	FuncGetZ   = "getz"
	FuncLength = "length"
	FuncNorm   = "norm"
	FuncAtan2  = "atan2"
	FuncBand   = "band"
	FuncBor    = "bor"
	FuncBxor   = "bxor"
	FuncBshift = "bshift"
	FuncBnot   = "bnot"
	FuncSum    = "sum"
	FuncProd   = "prod"
)

// Constant names.
const (
	ConstPi    = "pi"
	ConstPiSym = "π"
	ConstE     = "e"
)

// Functions lists every builtin function in declaration order.
var Functions = []string{
	FuncMin, FuncMax, FuncClamp, FuncLog, FuncLn, FuncRound,
	FuncGetX, FuncGetY, FuncGetZ, FuncLength, FuncNorm, FuncAtan2,
	FuncBand, FuncBor, FuncBxor, FuncBshift, FuncBnot, FuncSum, FuncProd,
}

// Prefixes lists the unary prefix keywords (legacy shorthands applied without
// a function call).
var Prefixes = []string{"sin", "cos", "tan", "asin", "acos", "atan", "sqrt", "abs", "floor", "ceil"}

var accessors = map[string]string{
	".x": FuncGetX,
	".y": FuncGetY,
	".z": FuncGetZ,
}

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Builtins returns the builtin keyword list in declaration order.
func Builtins() []Keyword {
	kws := make([]Keyword, 0, len(Functions)+len(Prefixes)+len(accessors)+3)
	for _, f := range Functions {
		kws = append(kws, Keyword{Text: f + "(", Name: f, Class: ClassFunction})
	}
	for _, text := range []string{".x", ".y", ".z"} {
		kws = append(kws, Keyword{Text: text, Name: accessors[text], Class: ClassAccessor})
	}
	kws = append(kws,
		Keyword{Text: ConstPi, Name: ConstPi, Class: ClassConstant},
		Keyword{Text: ConstPiSym, Name: ConstPi, Class: ClassConstant},
		Keyword{Text: ConstE, Name: ConstE, Class: ClassConstant},
	)
	for _, p := range Prefixes {
		kws = append(kws, Keyword{Text: p, Name: p, Class: ClassPrefix})
	}
	return kws
}

// IsReserved reports whether name is a builtin function, prefix or constant
// and so cannot be bound as a variable.
func IsReserved(name string) bool {
	for _, kw := range Builtins() {
		if kw.Name == name || kw.Text == name {
			return true
		}
	}
	return false
}

// IsValidName reports whether name is usable as a variable name.
func IsValidName(name string) bool {
	return identPattern.MatchString(name) && !IsReserved(name)
}

// IsFunction reports whether name is a builtin function.
func IsFunction(name string) bool {
	for _, f := range Functions {
		if f == name {
			return true
		}
	}
	return false
}
