// Package setquery parses and evaluates attribute set queries such as
// "owner=jathan +vendor=juniper -role_regex=^lab".
package setquery

import (
	"errors"
	"fmt"
	"strings"
)

var ErrMalformedQueryToken = errors.New("malformed query token")

const regexSuffix = "_regex"

// Op combines a term's result set with the running result.
type Op int

const (
	Intersect Op = iota
	Union
	Difference
)

func (o Op) String() string {
	switch o {
	case Union:
		return "union"
	case Difference:
		return "difference"
	default:
		return "intersect"
	}
}

func (o Op) marker() string {
	switch o {
	case Union:
		return "+"
	case Difference:
		return "-"
	default:
		return ""
	}
}

// Predicate matches resources whose attribute Name equals Value, or
// matches it as a pattern when Regex is set. Matching happens server side.
type Predicate struct {
	Name  string
	Value string
	Regex bool
}

// String renders the predicate in query syntax.
func (p Predicate) String() string {
	if p.Regex {
		return p.Name + regexSuffix + "=" + p.Value
	}
	return p.Name + "=" + p.Value
}

// Term is one operator/predicate pair.
type Term struct {
	Op        Op
	Predicate Predicate
}

// Expression is an ordered list of terms. The first term is always an
// Intersect and seeds the result.
type Expression struct {
	Terms []Term
}

// String renders the expression back into query syntax.
func (e Expression) String() string {
	parts := make([]string, len(e.Terms))
	for i, t := range e.Terms {
		parts[i] = t.Op.marker() + t.Predicate.String()
	}
	return strings.Join(parts, " ")
}

// Parse splits raw on whitespace and parses each token. Shell quoting is
// expected to have been handled by the caller.
func Parse(raw string) (Expression, error) {
	tokens := strings.Fields(raw)
	if len(tokens) == 0 {
		return Expression{}, fmt.Errorf("%w: empty query", ErrMalformedQueryToken)
	}

	terms := make([]Term, 0, len(tokens))
	for i, tok := range tokens {
		term, err := parseToken(tok)
		if err != nil {
			return Expression{}, err
		}
		if i == 0 {
			term.Op = Intersect
		}
		terms = append(terms, term)
	}

	return Expression{Terms: terms}, nil
}

func parseToken(tok string) (Term, error) {
	op := Intersect
	body := tok
	switch {
	case strings.HasPrefix(tok, "+"):
		op, body = Union, tok[1:]
	case strings.HasPrefix(tok, "-"):
		op, body = Difference, tok[1:]
	}

	name, value, ok := strings.Cut(body, "=")
	if !ok {
		return Term{}, fmt.Errorf("%w: %q has no '='", ErrMalformedQueryToken, tok)
	}

	regex := false
	if strings.HasSuffix(name, regexSuffix) {
		name = strings.TrimSuffix(name, regexSuffix)
		regex = true
	}
	if name == "" {
		return Term{}, fmt.Errorf("%w: %q has an empty attribute name", ErrMalformedQueryToken, tok)
	}

	return Term{Op: op, Predicate: Predicate{Name: name, Value: value, Regex: regex}}, nil
}
