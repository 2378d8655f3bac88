package token

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// LexClass is the category of a scanned lexeme.
type LexClass int

// Lexeme categories, in the order of the composite pattern alternation.
const (
	LexKeyword LexClass = iota
	LexVectorOpen
	LexNumber
	LexOperator
	LexLParen
	LexRParen
	LexSpace
)

// Fixed tail of the composite pattern, tried after every keyword.
const (
	vectorOpenPattern = `<`
	numberPattern     = `0[xX][0-9a-fA-F]+|0[bB][01]+|(?:\d+(?:\.\d+)?|\.\d+)[eE][-+]?\d+|\d+(?:\.\d+)?|\.\d+`
	operatorPattern   = `[-+*/%x.^]`
	lparenPattern     = `\(`
	rparenPattern     = `\)`
	spacePattern      = `\s+`
)

// Lexeme is one match of the composite pattern.
type Lexeme struct {
	Class   LexClass
	Text    string
	Pos     int
	Keyword Keyword // set for LexKeyword
}

// End returns the offset just past the lexeme.
func (l Lexeme) End() int { return l.Pos + len(l.Text) }

// ScanError reports input that no alternative of the composite pattern matched.
type ScanError struct {
	Term     string
	Pos      int
	Trailing bool
}

func (e *ScanError) Error() string {
	if e.Trailing {
		return fmt.Sprintf("unexpected term %q at position %d", e.Term, e.Pos)
	}
	return fmt.Sprintf("unexpected term %q before position %d", e.Term, e.Pos+len(e.Term))
}

// Table is the keyword table of one evaluation session: the builtin keywords
// plus the currently bound variable names, ordered longest first so that a
// longer keyword always wins over a prefix of it.
type Table struct {
	keywords []Keyword
	byText   map[string]Keyword
	pattern  *regexp.Regexp
}

// NewTable builds a table from the builtins and the given variable names.
func NewTable(variables ...string) *Table {
	kws := Builtins()
	for _, v := range variables {
		kws = append(kws, Keyword{Text: v, Name: v, Class: ClassVariable})
	}

	// Stable so that equal-length keywords keep declaration order.
	sort.SliceStable(kws, func(i, j int) bool {
		return utf8.RuneCountInString(kws[i].Text) > utf8.RuneCountInString(kws[j].Text)
	})

	byText := make(map[string]Keyword, len(kws))
	alts := make([]string, 0, len(kws))
	for _, kw := range kws {
		if _, dup := byText[kw.Text]; dup {
			continue
		}
		byText[kw.Text] = kw
		alts = append(alts, regexp.QuoteMeta(kw.Text))
	}

	groups := []string{
		strings.Join(alts, "|"),
		vectorOpenPattern,
		numberPattern,
		operatorPattern,
		lparenPattern,
		rparenPattern,
		spacePattern,
	}
	var sb strings.Builder
	for i, g := range groups {
		if i > 0 {
			sb.WriteByte('|')
		}
		sb.WriteString("(" + g + ")")
	}

	return &Table{
		keywords: kws,
		byText:   byText,
		pattern:  regexp.MustCompile(sb.String()),
	}
}

// Keywords returns the keywords in match order.
func (t *Table) Keywords() []Keyword {
	out := make([]Keyword, len(t.keywords))
	copy(out, t.keywords)
	return out
}

// Lookup returns the keyword with the given text.
func (t *Table) Lookup(text string) (Keyword, bool) {
	kw, ok := t.byText[text]
	return kw, ok
}

// Pattern returns the composite pattern source.
func (t *Table) Pattern() string {
	return t.pattern.String()
}

// Next returns the lexeme starting at pos. The next match must begin exactly
// at pos; anything skipped over is reported as a ScanError.
func (t *Table) Next(input string, pos int) (Lexeme, error) {
	rest := input[pos:]
	loc := t.pattern.FindStringSubmatchIndex(rest)
	if loc == nil {
		return Lexeme{}, &ScanError{Term: rest, Pos: pos, Trailing: true}
	}
	if loc[0] != 0 {
		return Lexeme{}, &ScanError{Term: rest[:loc[0]], Pos: pos}
	}

	text := rest[:loc[1]]
	for g := 1; 2*g < len(loc); g++ {
		if loc[2*g] < 0 {
			continue
		}
		lex := Lexeme{Class: LexClass(g - 1), Text: text, Pos: pos}
		if lex.Class == LexKeyword {
			lex.Keyword = t.byText[text]
		}
		return lex, nil
	}
	return Lexeme{}, &ScanError{Term: rest, Pos: pos, Trailing: true}
}
