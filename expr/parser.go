package expr

import (
	"fmt"
	"strconv"
)

type (
	node interface{}

	literal struct {
		value interface{}
	}

	ident struct {
		name string
	}

	member struct {
		obj  node
		name string
	}

	index struct {
		obj node
		key node
	}

	call struct {
		fn   node
		args []node
	}

	unary struct {
		op string
		x  node
	}

	binary struct {
		op   string
		l, r node
	}

	cond struct {
		test, yes, no node
	}
)

var precedence = map[string]int{
	"||":  1,
	"&&":  2,
	"==":  3,
	"!=":  3,
	"===": 3,
	"!==": 3,
	"<":   4,
	"<=":  4,
	">":   4,
	">=":  4,
	"+":   5,
	"-":   5,
	"*":   6,
	"/":   6,
	"%":   6,
}

var keywords = map[string]interface{}{
	"true":      true,
	"false":     false,
	"null":      nil,
	"nil":       nil,
	"undefined": Undefined,
}

type parser struct {
	tokens []token
	pos    int
}

// parse parses a single expression into a tree of nodes.
func parse(src string) (n node, err error) {
	tokens, err := tokenize(src)
	if err != nil {
		return
	}

	if len(tokens) == 1 {
		return nil, fmt.Errorf("Empty expression")
	}

	p := &parser{tokens: tokens}
	if n, err = p.expression(); err != nil {
		return nil, err
	}

	if t := p.peek(); t.kind != eofToken {
		return nil, fmt.Errorf("Unexpected %v", t)
	}

	return
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) next() token {
	t := p.tokens[p.pos]
	if t.kind != eofToken {
		p.pos++
	}

	return t
}

func (p *parser) isPunc(v string) bool {
	t := p.peek()
	return t.kind == puncToken && t.v == v
}

func (p *parser) expect(v string) error {
	if t := p.next(); t.kind != puncToken || t.v != v {
		return fmt.Errorf("Expected %q, got %v", v, t)
	}

	return nil
}

func (p *parser) expression() (node, error) {
	test, err := p.binary(1)
	if err != nil || !p.isPunc("?") {
		return test, err
	}

	p.next()
	yes, err := p.expression()
	if err != nil {
		return nil, err
	}

	if err = p.expect(":"); err != nil {
		return nil, err
	}

	no, err := p.expression()
	if err != nil {
		return nil, err
	}

	return cond{test, yes, no}, nil
}

// binary parses left associative operators of at least minPrec.
func (p *parser) binary(minPrec int) (node, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}

	for {
		t := p.peek()
		prec, ok := precedence[t.v]
		if t.kind != puncToken || !ok || prec < minPrec {
			return left, nil
		}

		p.next()
		right, err := p.binary(prec + 1)
		if err != nil {
			return nil, err
		}

		left = binary{t.v, left, right}
	}
}

func (p *parser) unary() (node, error) {
	if t := p.peek(); t.kind == puncToken && (t.v == "!" || t.v == "-" || t.v == "+") {
		p.next()
		x, err := p.unary()
		if err != nil {
			return nil, err
		}
		return unary{t.v, x}, nil
	}

	return p.postfix()
}

func (p *parser) postfix() (node, error) {
	n, err := p.primary()
	if err != nil {
		return nil, err
	}

	for {
		switch {
		case p.isPunc("."):
			p.next()
			t := p.next()
			if t.kind != identToken {
				return nil, fmt.Errorf("Expected a property name, got %v", t)
			}
			n = member{n, t.v}

		case p.isPunc("["):
			p.next()
			key, err := p.expression()
			if err != nil {
				return nil, err
			}
			if err = p.expect("]"); err != nil {
				return nil, err
			}
			n = index{n, key}

		case p.isPunc("("):
			p.next()
			args := []node{}
			for !p.isPunc(")") {
				arg, err := p.expression()
				if err != nil {
					return nil, err
				}
				args = append(args, arg)
				if !p.isPunc(",") {
					break
				}
				p.next()
			}
			if err = p.expect(")"); err != nil {
				return nil, err
			}
			n = call{n, args}

		default:
			return n, nil
		}
	}
}

func (p *parser) primary() (node, error) {
	t := p.next()
	switch t.kind {
	case numberToken:
		if i, err := strconv.Atoi(t.v); err == nil {
			return literal{i}, nil
		}
		f, err := strconv.ParseFloat(t.v, 64)
		if err != nil {
			return nil, fmt.Errorf("Invalid number %v", t)
		}
		return literal{f}, nil

	case stringToken:
		return literal{t.v}, nil

	case identToken:
		if v, ok := keywords[t.v]; ok {
			return literal{v}, nil
		}
		return ident{t.v}, nil

	case puncToken:
		if t.v == "(" {
			n, err := p.expression()
			if err != nil {
				return nil, err
			}
			if err = p.expect(")"); err != nil {
				return nil, err
			}
			return n, nil
		}
	}

	return nil, fmt.Errorf("Unexpected %v", t)
}
