package formula

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapcalc/pkg/rational"
	"github.com/leapstack-labs/leapcalc/pkg/token"
	"github.com/leapstack-labs/leapcalc/pkg/vector"
	"golang.org/x/text/width"
)

// Constant values, 50 significant digits.
var constants = map[string]rational.Rational{
	token.ConstPi: rational.MustParse("3.1415926535897932384626433832795028841971693993751"),
	token.ConstE:  rational.MustParse("2.7182818284590452353602874713526624977572470936999"),
}

// scanner walks one input string with the environment's keyword table.
type scanner struct {
	env   *Environment
	table *token.Table
	text  string
}

// tokenize turns text into the raw token stream. Builtin calls and vector
// literals are scanned to their balanced closer and compiled recursively.
func tokenize(text string, env *Environment) ([]Token, error) {
	s := &scanner{env: env, table: env.Table(), text: text}
	return s.run()
}

// foldWidth maps full-width forms such as "２＋３" onto ASCII.
func foldWidth(text string) string {
	return width.Narrow.String(text)
}

func (s *scanner) run() ([]Token, error) {
	var out []Token
	pos := 0
	for pos < len(s.text) {
		lex, err := s.table.Next(s.text, pos)
		if err != nil {
			return nil, scanError(err)
		}

		switch lex.Class {
		case token.LexSpace:
			pos = lex.End()
			continue
		case token.LexNumber:
			v, err := rational.Parse(lex.Text)
			if err != nil {
				e := arithmeticError(err)
				e.Term, e.Pos = lex.Text, lex.Pos
				return nil, e
			}
			out = append(out, Number{Value: v})
		case token.LexOperator:
			out = append(out, Operator{Symbol: lex.Text})
		case token.LexLParen:
			out = append(out, OpenParen{})
		case token.LexRParen:
			out = append(out, CloseParen{})
		case token.LexVectorOpen:
			end, err := s.closer(lex.Pos)
			if err != nil {
				return nil, err
			}
			tok, err := s.vector(s.text[lex.Pos+1 : end])
			if err != nil {
				return nil, err
			}
			out = append(out, tok)
			pos = end + 1
			continue
		case token.LexKeyword:
			tok, next, err := s.keyword(lex)
			if err != nil {
				return nil, err
			}
			out = append(out, tok)
			pos = next
			continue
		}
		pos = lex.End()
	}
	return out, nil
}

func scanError(err error) error {
	se, ok := err.(*token.ScanError)
	if !ok {
		return err
	}
	msg := msgUnexpectedTerm
	if se.Trailing {
		msg = msgUnmatchedTerm
	}
	return &Error{Kind: KindLexical, Msg: msg, Term: se.Term, Pos: se.Pos, Err: err}
}

func (s *scanner) keyword(lex token.Lexeme) (Token, int, error) {
	kw := lex.Keyword
	switch kw.Class {
	case token.ClassFunction:
		open := lex.End() - 1
		end, err := s.closer(open)
		if err != nil {
			return nil, 0, err
		}
		call, err := s.call(kw.Name, s.text[open+1:end])
		if err != nil {
			return nil, 0, err
		}
		return Function{Call: call}, end + 1, nil
	case token.ClassAccessor:
		return Function{Call: &FunctionCall{Name: kw.Name, accessor: lex.Text}}, lex.End(), nil
	case token.ClassConstant:
		return Constant{Name: kw.Name, Value: constants[kw.Name]}, lex.End(), nil
	case token.ClassPrefix:
		return Unary{Symbol: kw.Name}, lex.End(), nil
	default:
		return Variable{Name: kw.Name}, lex.End(), nil
	}
}

// closer returns the index of the delimiter closing the one at open. Both
// parentheses and angle brackets count toward the balance.
func (s *scanner) closer(open int) (int, error) {
	depth := 0
	for i := open; i < len(s.text); i++ {
		switch s.text[i] {
		case '(', '<':
			depth++
		case ')', '>':
			depth--
			if depth == 0 {
				return i, nil
			}
		}
	}
	return 0, &Error{Kind: KindLexical, Msg: msgUnmatchedTerm, Term: s.text[open:], Pos: open}
}

// splitArgs splits body on commas outside any nested delimiters.
func splitArgs(body string) []string {
	if strings.TrimSpace(body) == "" {
		return nil
	}
	var (
		args  []string
		depth int
		start int
	)
	for i := 0; i < len(body); i++ {
		switch body[i] {
		case '(', '<':
			depth++
		case ')', '>':
			depth--
		case ',':
			if depth == 0 {
				args = append(args, strings.TrimSpace(body[start:i]))
				start = i + 1
			}
		}
	}
	return append(args, strings.TrimSpace(body[start:]))
}

// vector compiles a vector literal body. Components that are plain literals
// fold into a Vector; anything else stays an UnparsedVector.
func (s *scanner) vector(body string) (Token, error) {
	parts := splitArgs(body)
	if len(parts) != 3 {
		return nil, &Error{Kind: KindLexical, Msg: "vector literal needs 3 components", Term: "<" + body + ">"}
	}

	var (
		comps  [3]*Expression
		values [3]rational.Rational
		plain  = true
	)
	for i, p := range parts {
		if p == "" {
			return nil, &Error{Kind: KindLexical, Msg: msgEmptyArgument, Term: "<" + body + ">"}
		}
		expr, err := Compile(p, s.env)
		if err != nil {
			return nil, err
		}
		comps[i] = expr
		if n, ok := expr.literal(); ok {
			values[i] = n
		} else {
			plain = false
		}
	}
	if plain {
		return Vector{Value: vector.New(values[0], values[1], values[2])}, nil
	}
	return UnparsedVector{Components: comps}, nil
}

// call compiles the arguments of a builtin call and checks its arity.
func (s *scanner) call(name, body string) (*FunctionCall, error) {
	fn := builtins[name]
	parts := splitArgs(body)
	if !fn.arity.accepts(len(parts)) {
		return nil, &Error{Kind: KindArity, Msg: fn.arity.message(len(parts)), Function: name}
	}

	call := &FunctionCall{Name: name, Source: strings.TrimSpace(body)}
	if fn.iterates {
		call.Index = parts[0]
		if !token.IsValidName(call.Index) {
			return nil, &Error{Kind: KindLexical, Msg: fmt.Sprintf(msgInvalidName, call.Index), Function: name}
		}
		call.Template = parts[3]
		if call.Template == "" {
			return nil, &Error{Kind: KindLexical, Msg: msgEmptyArgument, Function: name}
		}
		parts = parts[1:3]
	}
	for _, p := range parts {
		if p == "" {
			return nil, &Error{Kind: KindLexical, Msg: msgEmptyArgument, Function: name}
		}
		expr, err := Compile(p, s.env)
		if err != nil {
			return nil, inFunction(name, err)
		}
		call.Args = append(call.Args, expr)
	}
	return call, nil
}
