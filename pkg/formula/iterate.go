package formula

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/leapcalc/pkg/rational"
	"github.com/leapstack-labs/leapcalc/pkg/token"
)

// iterationPrefix names the per-iteration result bindings a1, a2, ...
const iterationPrefix = "a"

// iterate evaluates sum(i, lo, hi, body) and prod(i, lo, hi, body). The body
// is compiled once per iteration with i bound, after its $(...) markers have
// been replaced by their values. Each iteration result is bound as a<k>,
// k counting from 1, so later iterations can refer to earlier ones. Bindings
// touched by the loop are restored afterwards.
func iterate(call *FunctionCall, env *Environment) (Token, string, error) {
	var tr trace

	bounds := make([]rational.Rational, 2)
	for i, arg := range call.Args {
		val, nested, err := arg.evaluate(env)
		if strings.Contains(nested, "\n") {
			tr.nest(nested)
		}
		if err != nil {
			return nil, tr.String(), inFunction(call.Name, err)
		}
		n, ok := scalar(val)
		if !ok {
			return nil, tr.String(), &Error{
				Kind:     KindType,
				Msg:      "bounds must be numbers, got " + describe(val),
				Function: call.Name,
			}
		}
		bounds[i] = n
	}
	lo, hi := bounds[0], bounds[1]

	saved := newBindingSnapshot(env)
	defer saved.restore()

	var acc Token = Number{Value: rational.Zero}
	combine := exact(rational.Rational.Add)
	if call.Name == token.FuncProd {
		acc = Number{Value: rational.One}
		combine = exact(rational.Rational.Mul)
	}

	k := 0
	for i := lo; i.LessEq(hi); i = i.Add(rational.One) {
		k++
		if err := saved.set(call.Index, Number{Value: i}); err != nil {
			return nil, tr.String(), inFunction(call.Name, err)
		}

		body, err := splice(call.Template, env)
		if err != nil {
			return nil, tr.String(), inFunction(call.Name, err)
		}
		expr, err := Compile(body, env)
		if err != nil {
			return nil, tr.String(), inFunction(call.Name, err)
		}
		val, nested, err := expr.evaluate(env)
		tr.add(fmt.Sprintf("%s = %s: %s", call.Index, i.Minimal(), body))
		if strings.Contains(nested, "\n") {
			tr.nest(nested)
		}
		if err != nil {
			return nil, tr.String(), inFunction(call.Name, err)
		}

		if err := saved.set(fmt.Sprintf("%s%d", iterationPrefix, k), val); err != nil {
			return nil, tr.String(), inFunction(call.Name, err)
		}
		if acc, err = elementwise2(acc, val, combine); err != nil {
			return nil, tr.String(), inFunction(call.Name, err)
		}
	}

	env.logger.Debug("iteration finished",
		slog.String("function", call.Name),
		slog.Int("iterations", k),
		slog.String("result", acc.String()))
	return acc, tr.String(), nil
}

// splice replaces every $(expr) in template with the value of expr.
func splice(template string, env *Environment) (string, error) {
	var b strings.Builder
	for {
		i := strings.Index(template, spliceMarker)
		if i < 0 {
			b.WriteString(template)
			return b.String(), nil
		}
		b.WriteString(template[:i])

		open := i + len(spliceMarker) - 1
		end := matchCloseText(template, open)
		if end < 0 {
			return "", &Error{Kind: KindLexical, Msg: msgUnmatchedTerm, Term: template[i:], Pos: i}
		}
		inner, err := splice(template[open+1:end], env)
		if err != nil {
			return "", err
		}
		expr, err := Compile(inner, env)
		if err != nil {
			return "", err
		}
		val, _, err := expr.evaluate(env)
		if err != nil {
			return "", err
		}
		n, ok := scalar(val)
		if !ok {
			return "", newError(KindType, msgNotNumber, describe(val))
		}
		b.WriteString(n.Trunc().String())
		template = template[end+1:]
	}
}

// matchCloseText returns the index of the ")" closing the "(" at open.
func matchCloseText(s string, open int) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// bindingSnapshot remembers the previous state of every name it sets.
type bindingSnapshot struct {
	env   *Environment
	prior map[string]Token
	order []string
}

func newBindingSnapshot(env *Environment) *bindingSnapshot {
	return &bindingSnapshot{env: env, prior: make(map[string]Token)}
}

func (s *bindingSnapshot) set(name string, tok Token) error {
	if _, seen := s.prior[name]; !seen {
		prev, _ := s.env.Variable(name)
		s.prior[name] = prev
		s.order = append(s.order, name)
	}
	return s.env.SetVariable(name, tok)
}

func (s *bindingSnapshot) restore() {
	for _, name := range s.order {
		if prev := s.prior[name]; prev != nil {
			_ = s.env.SetVariable(name, prev)
			continue
		}
		s.env.Unset(name)
	}
}
