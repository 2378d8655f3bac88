package formula

// toPostfix converts infix to postfix. Binary operators are left
// associative, "^" included.
func toPostfix(infix []Token) ([]Token, error) {
	var (
		out   = make([]Token, 0, len(infix))
		stack []Token
	)
	for _, t := range infix {
		switch v := t.(type) {
		case Unary, OpenParen:
			stack = append(stack, t)
		case CloseParen:
			for {
				if len(stack) == 0 {
					return nil, newError(KindStructural, msgUnopenedParen)
				}
				top := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				if isOpenParen(top) {
					break
				}
				out = append(out, top)
			}
		case Operator:
			for len(stack) > 0 {
				top := stack[len(stack)-1]
				if isOpenParen(top) || top.Precedence() < v.Precedence() {
					break
				}
				out = append(out, top)
				stack = stack[:len(stack)-1]
			}
			stack = append(stack, t)
		case ErrorToken:
			return nil, newError(KindLexical, "%s", v.Text)
		default:
			out = append(out, t)
		}
	}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if isOpenParen(top) {
			return nil, newError(KindStructural, msgUnclosedParen)
		}
		out = append(out, top)
	}
	return out, nil
}

// toInfix rebuilds a minimally parenthesized infix sequence from a postfix
// stream. It returns false when the stream does not reduce to one term.
func toInfix(postfix []Token) ([]Token, bool) {
	var stack [][]Token
	for _, t := range postfix {
		switch t.(type) {
		case Operator:
			if len(stack) < 2 {
				return nil, false
			}
			a, b := stack[len(stack)-2], stack[len(stack)-1]
			stack = stack[:len(stack)-2]
			group := make([]Token, 0, len(a)+len(b)+3)
			group = append(group, OpenParen{})
			group = append(group, a...)
			group = append(group, t)
			group = append(group, b...)
			group = append(group, CloseParen{})
			stack = append(stack, group)
		case Unary:
			if len(stack) < 1 {
				return nil, false
			}
			a := stack[len(stack)-1]
			group := make([]Token, 0, len(a)+3)
			group = append(group, t, OpenParen{})
			group = append(group, a...)
			group = append(group, CloseParen{})
			stack[len(stack)-1] = group
		default:
			stack = append(stack, []Token{t})
		}
	}
	if len(stack) != 1 {
		return nil, false
	}
	return RemoveRedundantParens(stack[0]), true
}

// render returns the infix text of a postfix stream. Streams that do not
// reduce to one term are rendered token by token.
func render(postfix []Token) string {
	if infix, ok := toInfix(postfix); ok {
		return joinTokens(infix)
	}
	parts := make([]byte, 0, len(postfix)*4)
	for i, t := range postfix {
		if i > 0 {
			parts = append(parts, ' ')
		}
		parts = append(parts, t.String()...)
	}
	return string(parts)
}
