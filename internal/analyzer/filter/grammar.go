package filter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// node is one term or one OP-joined pair in the compiled expression tree.
type node interface {
	eval(data []byte) bool
}

type opKind int

const (
	opOr opKind = iota
	opAnd
)

type boolNode struct {
	op    opKind
	left  node
	right node
}

func (n *boolNode) eval(data []byte) bool {
	switch n.op {
	case opAnd:
		return n.left.eval(data) && n.right.eval(data)
	default:
		return n.left.eval(data) || n.right.eval(data)
	}
}

type cmpKind int

const (
	cmpEq cmpKind = iota
	cmpNeq
	cmpContains
	cmpStartsWith
	cmpEndsWith
	cmpGt
	cmpLt
	cmpGte
	cmpLte
)

type termNode struct {
	field   string
	cmp     cmpKind
	literal string
}

func (n *termNode) eval(data []byte) bool {
	v := gjson.GetBytes(data, n.field)
	if !v.Exists() {
		return false
	}

	switch n.cmp {
	case cmpEq:
		return compareTyped(v, n.literal) == 0
	case cmpNeq:
		return compareTyped(v, n.literal) != 0
	case cmpContains:
		return strings.Contains(v.String(), n.literal)
	case cmpStartsWith:
		return strings.HasPrefix(v.String(), n.literal)
	case cmpEndsWith:
		return strings.HasSuffix(v.String(), n.literal)
	case cmpGt:
		return compareTyped(v, n.literal) > 0
	case cmpLt:
		return compareTyped(v, n.literal) < 0
	case cmpGte:
		return compareTyped(v, n.literal) >= 0
	case cmpLte:
		return compareTyped(v, n.literal) <= 0
	}
	return false
}

// compareTyped compares a resolved field value against a literal,
// coercing to numeric comparison when the field is a JSON number and to
// lexical string comparison otherwise.
func compareTyped(v gjson.Result, literal string) int {
	if v.Type == gjson.Number {
		if lit, err := strconv.ParseFloat(literal, 64); err == nil {
			a, b := v.Float(), lit
			switch {
			case a < b:
				return -1
			case a > b:
				return 1
			default:
				return 0
			}
		}
	}
	return strings.Compare(v.String(), literal)
}

// The grammar recognized:
//
//	expr  := term (OP term)*
//	OP    := "|" | "&"
//	term  := field CMP literal
//	CMP   := "!=" | ">=" | "<=" | "=" | ">" | "<" | "contains" | "startswith" | "endswith"
//
// OP has no precedence distinction between "|" and "&" — the expression
// is evaluated strictly left to right, matching spec §4.C9's flat grammar.
func parse(expr string) (node, error) {
	tokens, err := tokenize(expr)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return nil, fmt.Errorf("empty filter expression")
	}

	left, rest, err := parseTerm(tokens)
	if err != nil {
		return nil, err
	}
	result := left
	for len(rest) > 0 {
		opTok := rest[0]
		var op opKind
		switch opTok {
		case "|":
			op = opOr
		case "&":
			op = opAnd
		default:
			return nil, fmt.Errorf("expected | or & joining terms, got %q", opTok)
		}
		rest = rest[1:]
		right, remainder, err := parseTerm(rest)
		if err != nil {
			return nil, err
		}
		result = &boolNode{op: op, left: result, right: right}
		rest = remainder
	}
	return result, nil
}

var cmpOperators = []struct {
	token string
	kind  cmpKind
}{
	// Longest/most specific tokens first so "!=", ">=", "<=" aren't
	// mis-split by a bare "=" or comparison scan.
	{"!=", cmpNeq},
	{">=", cmpGte},
	{"<=", cmpLte},
	{"contains", cmpContains},
	{"startswith", cmpStartsWith},
	{"endswith", cmpEndsWith},
	{"=", cmpEq},
	{">", cmpGt},
	{"<", cmpLt},
}

// parseTerm consumes one "field CMP literal" token group and returns the
// unconsumed remainder, which begins with the next OP token (if any).
func parseTerm(tokens []string) (node, []string, error) {
	if len(tokens) == 0 {
		return nil, nil, fmt.Errorf("expected term, got end of expression")
	}
	raw := tokens[0]
	rest := tokens[1:]

	var matched bool
	var field, literal string
	var kind cmpKind
	for _, op := range cmpOperators {
		idx := strings.Index(raw, op.token)
		if idx < 0 {
			continue
		}
		field = strings.TrimSpace(raw[:idx])
		literal = strings.TrimSpace(raw[idx+len(op.token):])
		kind = op.kind
		matched = true
		break
	}
	if !matched || field == "" {
		return nil, nil, fmt.Errorf("malformed filter term %q", raw)
	}
	return &termNode{field: field, cmp: kind, literal: literal}, rest, nil
}

// tokenize splits on the top-level "|" and "&" operators, leaving each
// "field CMP literal" term as a single token for parseTerm to dissect.
func tokenize(expr string) ([]string, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, fmt.Errorf("empty filter expression")
	}

	var tokens []string
	var cur strings.Builder
	for _, r := range expr {
		switch r {
		case '|', '&':
			if cur.Len() == 0 {
				return nil, fmt.Errorf("unexpected %q with no preceding term", r)
			}
			tokens = append(tokens, strings.TrimSpace(cur.String()))
			tokens = append(tokens, string(r))
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	if cur.Len() == 0 {
		return nil, fmt.Errorf("expression ends with a dangling operator")
	}
	tokens = append(tokens, strings.TrimSpace(cur.String()))
	return tokens, nil
}
