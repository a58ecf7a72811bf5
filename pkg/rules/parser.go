package rules

import (
	"fmt"
	"strconv"
)

type parser struct {
	tokens []token
	pos    int
	idents []string
}

func parse(tokens []token) (node, []string, error) {
	p := &parser{tokens: tokens}
	n, err := p.or()
	if err != nil {
		return nil, nil, err
	}
	if tok, ok := p.peek(); ok {
		return nil, nil, fmt.Errorf("%w: unexpected %q at %d", ErrSyntax, tok.text, tok.pos)
	}
	return n, p.idents, nil
}

func (p *parser) peek() (token, bool) {
	if p.pos >= len(p.tokens) {
		return token{}, false
	}
	return p.tokens[p.pos], true
}

func (p *parser) accept(kind tokenKind) bool {
	if tok, ok := p.peek(); ok && tok.kind == kind {
		p.pos++
		return true
	}
	return false
}

func (p *parser) or() (node, error) {
	left, err := p.and()
	if err != nil {
		return nil, err
	}
	for p.accept(tokOr) {
		right, err := p.and()
		if err != nil {
			return nil, err
		}
		left = orNode{left, right}
	}
	return left, nil
}

func (p *parser) and() (node, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	for p.accept(tokAnd) {
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		left = andNode{left, right}
	}
	return left, nil
}

func (p *parser) unary() (node, error) {
	if p.accept(tokNot) {
		inner, err := p.unary()
		if err != nil {
			return nil, err
		}
		return notNode{inner}, nil
	}
	return p.primary()
}

func (p *parser) primary() (node, error) {
	if p.accept(tokLParen) {
		inner, err := p.or()
		if err != nil {
			return nil, err
		}
		if !p.accept(tokRParen) {
			return nil, fmt.Errorf("%w: missing ')'", ErrSyntax)
		}
		return inner, nil
	}

	tok, ok := p.peek()
	if !ok {
		return nil, fmt.Errorf("%w: unexpected end of rule", ErrSyntax)
	}
	if tok.kind != tokIdent {
		return nil, fmt.Errorf("%w: expected field name at %d, got %q", ErrSyntax, tok.pos, tok.text)
	}
	p.pos++
	p.idents = append(p.idents, tok.text)

	switch {
	case p.accept(tokEq):
		lit, err := p.literal()
		return compareNode{ident: tok.text, lit: lit}, err
	case p.accept(tokNeq):
		lit, err := p.literal()
		return notNode{compareNode{ident: tok.text, lit: lit}}, err
	}
	return truthyNode{ident: tok.text}, nil
}

func (p *parser) literal() (any, error) {
	tok, ok := p.peek()
	if !ok {
		return nil, fmt.Errorf("%w: missing value after comparison", ErrSyntax)
	}
	p.pos++
	switch tok.kind {
	case tokString, tokIdent:
		// A bare word on the right-hand side is a string.
		return tok.text, nil
	case tokNumber:
		f, err := strconv.ParseFloat(tok.text, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bad number %q", ErrSyntax, tok.text)
		}
		return f, nil
	case tokBool:
		return tok.text == "true", nil
	case tokNull:
		return nil, nil
	}
	return nil, fmt.Errorf("%w: expected value at %d, got %q", ErrSyntax, tok.pos, tok.text)
}
