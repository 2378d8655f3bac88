package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/leapcalc/pkg/token"
)

// FunctionDoc documents one builtin function.
type FunctionDoc struct {
	Signature   string
	Description string
	Example     string
}

// functionDocs is keyed by function name. Every entry of token.Functions must
// be present.
var functionDocs = map[string]FunctionDoc{
	token.FuncMin:    {"min(a, ...)", "Smallest argument; vectors compare componentwise", "min(3, 1, 2)"},
	token.FuncMax:    {"max(a, ...)", "Largest argument; vectors compare componentwise", "max(<1, 5, 0>, 2)"},
	token.FuncClamp:  {"clamp(x, lo, hi)", "Computed as max(max(x, lo), hi)", "clamp(12, 0, 10)"},
	token.FuncLog:    {"log([base, ]x)", "Base 10 logarithm, or the logarithm in base; computed in float64", "log(2, 8)"},
	token.FuncLn:     {"ln(x)", "Natural logarithm", "ln(e)"},
	token.FuncRound:  {"round(x[, places])", "x rounded to places decimals", "round(2/3, 2)"},
	token.FuncGetX:   {"getx(v)", "First component of a vector, also written v.x", "<1, 2, 3>.x"},
	token.FuncGetY:   {"gety(v)", "Second component of a vector, also written v.y", "gety(<1, 2, 3>)"},
	token.FuncGetZ:   {"getz(v)", "Third component of a vector, also written v.z", "getz(<1, 2, 3>)"},
	token.FuncLength: {"length(v)", "Euclidean length of a vector; absolute value of a scalar", "length(<2, 3, 6>)"},
	token.FuncNorm:   {"norm(v)", "Unit vector in the direction of v", "norm(<0, 3, 4>)"},
	token.FuncAtan2:  {"atan2(y, x)", "Angle of the point (x, y) in radians", "atan2(1, 1)"},
	token.FuncBand:   {"band(a, ...)", "Bitwise and of the integer parts", "band(12, 10)"},
	token.FuncBor:    {"bor(a, ...)", "Bitwise or of the integer parts", "bor(12, 10)"},
	token.FuncBxor:   {"bxor(a, ...)", "Bitwise exclusive or of the integer parts", "bxor(12, 10)"},
	token.FuncBshift: {"bshift(a, n)", "a shifted left by n bits, right when n is negative", "bshift(1, 8)"},
	token.FuncBnot:   {"bnot(a[, bits])", "a with its low bits inverted", "bnot(5, 8)"},
	token.FuncSum:    {"sum(var, from, to, expr)", "Sum of expr with var bound to each integer from from to to", "sum(i, 1, 4, i^2)"},
	token.FuncProd:   {"prod(var, from, to, expr)", "Product of expr with var bound to each integer from from to to", "prod(i, 1, 5, i)"},
}

// checkFunctionDocs reports builtins without documentation.
func checkFunctionDocs() error {
	for _, name := range token.Functions {
		if _, ok := functionDocs[name]; !ok {
			return fmt.Errorf("no documentation for builtin %q", name)
		}
	}
	return nil
}

// generateFunctionDocs generates the builtin function reference page.
func generateFunctionDocs(outDir string) error {
	log.Printf("Generating function docs to %s", outDir)

	if err := checkFunctionDocs(); err != nil {
		return err
	}
	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	w := NewMarkdownWriter()
	w.Frontmatter("Functions", "Builtin functions, prefixes and constants")
	w.GeneratedMarker()

	w.Header(1, "Functions")

	w.Header(2, "Builtin Functions")
	var rows [][]string
	for _, name := range token.Functions {
		doc := functionDocs[name]
		rows = append(rows, []string{InlineCode(doc.Signature), cleanDescription(doc.Description), InlineCode(doc.Example)})
	}
	w.Table([]string{"Function", "Description", "Example"}, rows)

	w.Header(2, "Prefix Operators")
	w.Paragraph("These apply to the value that follows them without parentheses, as in " + InlineCode("sqrt 16") + ".")
	var prefixes []string
	for _, p := range token.Prefixes {
		prefixes = append(prefixes, InlineCode(p))
	}
	w.BulletList(prefixes)

	w.Header(2, "Constants")
	w.Table([]string{"Name", "Value"}, [][]string{
		{InlineCode(token.ConstPi) + ", " + InlineCode(token.ConstPiSym), "3.14159265358979..."},
		{InlineCode(token.ConstE), "2.71828182845904..."},
	})

	filename := filepath.Join(outDir, "functions.md")
	if err := os.WriteFile(filename, w.Bytes(), 0600); err != nil {
		return err
	}
	log.Printf("  Generated functions.md")
	return nil
}
