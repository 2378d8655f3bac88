package formula

import (
	"fmt"

	"github.com/leapstack-labs/leapcalc/pkg/token"
)

// noOperator is the inner precedence of a group without operators.
const noOperator = 1 << 10

// Normalize turns a raw token stream into the canonical infix sequence:
// accessors become getx/gety/getz calls, unary minus is disambiguated and
// folded into literals, implicit multiplication is made explicit and
// redundant parentheses are removed.
func Normalize(tokens []Token) ([]Token, error) {
	out, err := rewriteAccessors(tokens)
	if err != nil {
		return nil, err
	}
	return normalizeRest(out), nil
}

func normalizeRest(tokens []Token) []Token {
	out := foldUnaryMinus(tokens)
	out = insertImplicitMultiplication(out)
	return RemoveRedundantParens(out)
}

// rewriteAccessors replaces ".x" style accessors with a call wrapping the
// preceding operand or parenthesized group.
func rewriteAccessors(tokens []Token) ([]Token, error) {
	out := make([]Token, 0, len(tokens))
	for _, t := range tokens {
		f, ok := t.(Function)
		if !ok || f.Call.accessor == "" || len(f.Call.Args) > 0 {
			out = append(out, t)
			continue
		}

		start := len(out) - 1
		if start < 0 {
			return nil, &Error{Kind: KindLexical, Msg: msgUnexpectedTerm, Term: f.Call.accessor}
		}
		last := out[start]
		switch {
		case isCloseParen(last):
			start = matchOpen(out, start)
			if start < 0 {
				return nil, newError(KindStructural, msgUnopenedParen)
			}
		case !last.IsOperand():
			return nil, &Error{Kind: KindLexical, Msg: msgUnexpectedTerm, Term: f.Call.accessor}
		}

		operand := normalizeRest(append([]Token(nil), out[start:]...))
		call := &FunctionCall{
			Name: f.Call.Name,
			Args: []*Expression{fromTokens(operand)},
		}
		out = append(out[:start], Function{Call: call})
	}
	return out, nil
}

// foldUnaryMinus marks a "-" as negation when it starts the expression or
// follows an operator, "(" or another prefix. A negated literal is folded.
func foldUnaryMinus(tokens []Token) []Token {
	out := make([]Token, 0, len(tokens))
	for i := 0; i < len(tokens); i++ {
		t := tokens[i]
		if !isOperator(t, token.Minus) || !startsTerm(out) {
			out = append(out, t)
			continue
		}
		if i+1 < len(tokens) {
			switch next := tokens[i+1].(type) {
			case Number:
				out = append(out, Number{Value: next.Value.Neg()})
				i++
				continue
			case Vector:
				out = append(out, Vector{Value: next.Value.Neg()})
				i++
				continue
			}
		}
		out = append(out, Unary{Symbol: token.Minus})
	}
	return out
}

// startsTerm reports whether the next token begins a new term.
func startsTerm(out []Token) bool {
	if len(out) == 0 {
		return true
	}
	switch out[len(out)-1].(type) {
	case Operator, OpenParen, Unary:
		return true
	}
	return false
}

// insertImplicitMultiplication inserts "*" between adjacent terms. The new
// product is parenthesized unless its right term is raised to a power.
func insertImplicitMultiplication(tokens []Token) []Token {
	out := make([]Token, 0, len(tokens))
	closeAfter := make(map[int]int)
	for i, t := range tokens {
		if len(out) > 0 && endsTerm(out[len(out)-1]) && beginsTerm(t) {
			end := termEnd(tokens, i)
			if end < len(tokens) && isOperator(tokens[end], token.Caret) {
				out = append(out, Operator{Symbol: token.Star})
			} else {
				start := len(out) - 1
				if isCloseParen(out[start]) {
					start = max(matchOpen(out, start), 0)
				}
				out = append(out[:start], append([]Token{OpenParen{}}, out[start:]...)...)
				out = append(out, Operator{Symbol: token.Star})
				closeAfter[end-1]++
			}
		}
		out = append(out, t)
		for n := closeAfter[i]; n > 0; n-- {
			out = append(out, CloseParen{})
		}
	}
	return out
}

func endsTerm(t Token) bool {
	return t.IsOperand() || isCloseParen(t)
}

func beginsTerm(t Token) bool {
	switch t.(type) {
	case Unary, OpenParen:
		return true
	}
	return t.IsOperand()
}

// termEnd returns the index just past the term starting at i: a run of
// prefixes followed by an operand or a parenthesized group.
func termEnd(tokens []Token, i int) int {
	for i < len(tokens) {
		if _, ok := tokens[i].(Unary); !ok {
			break
		}
		i++
	}
	if i >= len(tokens) {
		return len(tokens)
	}
	if _, ok := tokens[i].(OpenParen); ok {
		if end := matchClose(tokens, i); end >= 0 {
			return end + 1
		}
		return len(tokens)
	}
	return i + 1
}

// RemoveRedundantParens drops every parenthesis pair whose removal cannot
// change the meaning of the sequence. It runs to a fixpoint, so applying it
// again yields the same sequence.
func RemoveRedundantParens(tokens []Token) []Token {
	out := append([]Token(nil), tokens...)
	for {
		open, closeIdx, ok := findRedundantPair(out)
		if !ok {
			return out
		}
		out = append(out[:closeIdx], out[closeIdx+1:]...)
		out = append(out[:open], out[open+1:]...)
	}
}

func findRedundantPair(tokens []Token) (int, int, bool) {
	var stack []int
	for i, t := range tokens {
		switch t.(type) {
		case OpenParen:
			stack = append(stack, i)
		case CloseParen:
			if len(stack) == 0 {
				continue
			}
			open := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if redundant(tokens, open, i) {
				return open, i, true
			}
		}
	}
	return 0, 0, false
}

// redundant decides whether the pair (open, closeIdx) can be dropped.
func redundant(tokens []Token, open, closeIdx int) bool {
	if closeIdx == open+1 {
		return false
	}
	inner, safeProduct := innerPrecedence(tokens[open+1 : closeIdx])

	left := token.PrecedenceNone
	commutative := false
	if open > 0 {
		prev := tokens[open-1]
		if prev.IsOperand() || isCloseParen(prev) {
			return false
		}
		left = prev.Precedence()
		if o, ok := prev.(Operator); ok {
			commutative = o.Symbol == token.Plus || (o.Symbol == token.Star && safeProduct)
		}
	}
	right := token.PrecedenceNone
	if closeIdx+1 < len(tokens) {
		next := tokens[closeIdx+1]
		if next.IsOperand() || isOpenParen(next) {
			return false
		}
		right = next.Precedence()
	}

	leftOK := inner > left || (inner == left && commutative)
	return leftOK && inner >= right
}

// innerPrecedence returns the lowest precedence among operators directly
// inside the group, and whether every multiplicative operator there is "*"
// or "/".
func innerPrecedence(tokens []Token) (int, bool) {
	lowest := noOperator
	safeProduct := true
	depth := 0
	for _, t := range tokens {
		switch v := t.(type) {
		case OpenParen:
			depth++
		case CloseParen:
			depth--
		case Operator, Unary:
			if depth != 0 {
				continue
			}
			lowest = min(lowest, v.Precedence())
			if o, ok := v.(Operator); ok && o.Precedence() == token.PrecedenceMultiply &&
				o.Symbol != token.Star && o.Symbol != token.Slash {
				safeProduct = false
			}
		}
	}
	return lowest, safeProduct
}

func isOpenParen(t Token) bool {
	_, ok := t.(OpenParen)
	return ok
}

func isCloseParen(t Token) bool {
	_, ok := t.(CloseParen)
	return ok
}

// matchOpen scans back from the ")" at i to its "(", or returns -1.
func matchOpen(tokens []Token, i int) int {
	depth := 0
	for ; i >= 0; i-- {
		switch tokens[i].(type) {
		case CloseParen:
			depth++
		case OpenParen:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// matchClose scans forward from the "(" at i to its ")", or returns -1.
func matchClose(tokens []Token, i int) int {
	depth := 0
	for ; i < len(tokens); i++ {
		switch tokens[i].(type) {
		case OpenParen:
			depth++
		case CloseParen:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// joinTokens renders an infix sequence.
func joinTokens(tokens []Token) string {
	var b []byte
	for _, t := range tokens {
		switch v := t.(type) {
		case Operator:
			b = fmt.Appendf(b, " %s ", v.Symbol)
		case Unary:
			b = append(b, v.Symbol...)
			if v.Symbol != token.Minus {
				b = append(b, ' ')
			}
		default:
			b = append(b, t.String()...)
		}
	}
	return string(b)
}
