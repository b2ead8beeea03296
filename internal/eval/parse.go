package eval

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/openDAQ/openDAQ-sub004/internal/status"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokString
	tokIdent
	tokRef   // %name
	tokValue // $name
	tokOp
	tokLParen
	tokRParen
	tokComma
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

func isNameRune(r rune) bool {
	return r == '_' || r == '.' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func tokenize(src string) ([]token, error) {
	var toks []token
	runes := []rune(src)
	for i := 0; i < len(runes); {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '(':
			toks = append(toks, token{tokLParen, "(", i})
			i++
		case r == ')':
			toks = append(toks, token{tokRParen, ")", i})
			i++
		case r == ',':
			toks = append(toks, token{tokComma, ",", i})
			i++
		case r == '%' || r == '$':
			start := i
			i++
			for i < len(runes) && isNameRune(runes[i]) {
				i++
			}
			if i == start+1 {
				return nil, syntaxError(src, start, "missing property name")
			}
			kind := tokRef
			if r == '$' {
				kind = tokValue
			}
			toks = append(toks, token{kind, string(runes[start+1 : i]), start})
		case r == '\'' || r == '"':
			start := i
			i++
			var sb strings.Builder
			for i < len(runes) && runes[i] != r {
				sb.WriteRune(runes[i])
				i++
			}
			if i >= len(runes) {
				return nil, syntaxError(src, start, "unterminated string")
			}
			i++
			toks = append(toks, token{tokString, sb.String(), start})
		case unicode.IsDigit(r):
			start := i
			for i < len(runes) && (unicode.IsDigit(runes[i]) || runes[i] == '.' || runes[i] == 'e' || runes[i] == 'E') {
				i++
			}
			toks = append(toks, token{tokNumber, string(runes[start:i]), start})
		case unicode.IsLetter(r) || r == '_':
			start := i
			for i < len(runes) && (unicode.IsLetter(runes[i]) || unicode.IsDigit(runes[i]) || runes[i] == '_') {
				i++
			}
			toks = append(toks, token{tokIdent, string(runes[start:i]), start})
		default:
			start := i
			two := ""
			if i+1 < len(runes) {
				two = string(runes[i : i+2])
			}
			switch two {
			case "==", "!=", "<=", ">=", "&&", "||":
				toks = append(toks, token{tokOp, two, start})
				i += 2
				continue
			}
			switch r {
			case '<', '>', '+', '-', '*', '/', '!':
				toks = append(toks, token{tokOp, string(r), start})
				i++
			default:
				return nil, syntaxError(src, start, fmt.Sprintf("unexpected %q", r))
			}
		}
	}
	toks = append(toks, token{tokEOF, "", len(runes)})
	return toks, nil
}

func syntaxError(src string, pos int, msg string) error {
	return fmt.Errorf("%w: expression %q at %d: %s", status.ErrInvalidParameter, src, pos, msg)
}

type parser struct {
	src  string
	toks []token
	pos  int
	refs []string
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) expect(kind tokenKind, what string) error {
	t := p.next()
	if t.kind != kind {
		return syntaxError(p.src, t.pos, "expected "+what)
	}
	return nil
}

func (p *parser) parseExpr() (node, error) { return p.parseBinary(0) }

var precedence = map[string]int{
	"||": 1,
	"&&": 2,
	"==": 3, "!=": 3, "<": 3, ">": 3, "<=": 3, ">=": 3,
	"+": 4, "-": 4,
	"*": 5, "/": 5,
}

func (p *parser) parseBinary(minPrec int) (node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		prec, ok := precedence[t.text]
		if t.kind != tokOp || !ok || prec <= minPrec {
			return left, nil
		}
		p.next()
		right, err := p.parseBinary(prec)
		if err != nil {
			return nil, err
		}
		left = binaryNode{op: t.text, left: left, right: right}
	}
}

func (p *parser) parseUnary() (node, error) {
	t := p.peek()
	if t.kind == tokOp && (t.text == "!" || t.text == "-") {
		p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return unaryNode{op: t.text, operand: operand}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (node, error) {
	t := p.next()
	switch t.kind {
	case tokNumber:
		if strings.ContainsAny(t.text, ".eE") {
			f, err := strconv.ParseFloat(t.text, 64)
			if err != nil {
				return nil, syntaxError(p.src, t.pos, "bad number")
			}
			return literalNode{v: f}, nil
		}
		n, err := strconv.ParseInt(t.text, 10, 64)
		if err != nil {
			return nil, syntaxError(p.src, t.pos, "bad number")
		}
		return literalNode{v: n}, nil
	case tokString:
		return literalNode{v: t.text}, nil
	case tokRef:
		p.refs = append(p.refs, t.text)
		return refNode{name: t.text}, nil
	case tokValue:
		return valueNode{name: t.text}, nil
	case tokLParen:
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(tokRParen, ")"); err != nil {
			return nil, err
		}
		return inner, nil
	case tokIdent:
		switch t.text {
		case "true":
			return literalNode{v: true}, nil
		case "false":
			return literalNode{v: false}, nil
		case "if":
			return p.parseIf()
		}
		return nil, syntaxError(p.src, t.pos, fmt.Sprintf("unknown identifier %q", t.text))
	}
	return nil, syntaxError(p.src, t.pos, "unexpected token")
}

func (p *parser) parseIf() (node, error) {
	if err := p.expect(tokLParen, "("); err != nil {
		return nil, err
	}
	var args [3]node
	for i := range args {
		n, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args[i] = n
		if i < 2 {
			if err := p.expect(tokComma, ","); err != nil {
				return nil, err
			}
		}
	}
	if err := p.expect(tokRParen, ")"); err != nil {
		return nil, err
	}
	return ifNode{cond: args[0], then: args[1], otherwise: args[2]}, nil
}
