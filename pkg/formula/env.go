package formula

import (
	"log/slog"
	"maps"
	"slices"

	"github.com/leapstack-labs/leapcalc/pkg/rational"
	"github.com/leapstack-labs/leapcalc/pkg/token"
)

// Option configures an Environment.
type Option func(*Environment)

// WithLogger sets the logger used for debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(env *Environment) {
		if logger != nil {
			env.logger = logger
		}
	}
}

// WithDigits sets the number of decimal places of final answers.
func WithDigits(digits int) Option {
	return func(env *Environment) {
		if digits >= 0 {
			env.digits = digits
		}
	}
}

// WithExact renders final answers as exact fractions.
func WithExact(exact bool) Option {
	return func(env *Environment) {
		env.exact = exact
	}
}

// Environment holds the variable bindings of one evaluation session together
// with the keyword table derived from them. It is not safe for concurrent use.
type Environment struct {
	vars   map[string]Token
	table  *token.Table
	dirty  bool
	logger *slog.Logger
	digits int
	exact  bool
}

// NewEnvironment returns an empty environment.
func NewEnvironment(opts ...Option) *Environment {
	env := &Environment{
		vars:   make(map[string]Token),
		dirty:  true,
		logger: slog.New(slog.DiscardHandler),
		digits: rational.DefaultDigits,
	}
	for _, opt := range opts {
		opt(env)
	}
	return env
}

// Digits returns the decimal places used for final answers.
func (env *Environment) Digits() int { return env.digits }

// Exact reports whether final answers are rendered as fractions.
func (env *Environment) Exact() bool { return env.exact }

// SetVariable binds name to tok, replacing any previous binding. The keyword
// table is re-derived before the next compilation.
func (env *Environment) SetVariable(name string, tok Token) error {
	if !token.IsValidName(name) {
		return newError(KindLexical, msgInvalidName, name)
	}
	switch tok.(type) {
	case Number, Vector, Constant:
	default:
		return newError(KindType, "cannot bind %s to %q", describe(tok), name)
	}
	if _, ok := env.vars[name]; !ok {
		env.dirty = true
	}
	env.vars[name] = tok
	env.logger.Debug("variable bound", slog.String("name", name), slog.String("value", tok.String()))
	return nil
}

// Variable returns the binding of name.
func (env *Environment) Variable(name string) (Token, bool) {
	tok, ok := env.vars[name]
	return tok, ok
}

// Unset removes the binding of name.
func (env *Environment) Unset(name string) {
	if _, ok := env.vars[name]; ok {
		delete(env.vars, name)
		env.dirty = true
	}
}

// Names returns the bound names in sorted order.
func (env *Environment) Names() []string {
	return slices.Sorted(maps.Keys(env.vars))
}

// Clone returns an independent copy sharing no mutable state.
func (env *Environment) Clone() *Environment {
	return &Environment{
		vars:   maps.Clone(env.vars),
		dirty:  true,
		logger: env.logger,
		digits: env.digits,
		exact:  env.exact,
	}
}

// Table returns the keyword table for the current bindings.
func (env *Environment) Table() *token.Table {
	if env.dirty || env.table == nil {
		env.table = token.NewTable(env.Names()...)
		env.dirty = false
	}
	return env.table
}

// Bind evaluates expr and binds its value to name.
func (env *Environment) Bind(name, expr string) (Result, error) {
	if !token.IsValidName(name) {
		err := newError(KindLexical, msgInvalidName, name)
		return Result{Answer: err.Error()}, err
	}
	res, err := EvaluateLine(expr, env)
	if err != nil {
		return res, err
	}
	if err := env.SetVariable(name, res.Value); err != nil {
		res.Answer = err.Error()
		return res, err
	}
	return res, nil
}
