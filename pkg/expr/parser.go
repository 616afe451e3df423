package expr

import (
	"fmt"
	"strconv"
)

// Precedence levels, lowest first.
const (
	_ int = iota
	LOWEST
	TERNARY     // ?:
	LOGIC_OR    // ||
	LOGIC_AND   // &&
	EQUALS      // == != === !==
	LESSGREATER // < <= > >=
	SUM         // + -
	PRODUCT     // * / %
	PREFIX      // !X -X +X
)

var precedences = map[TokenType]int{
	QUESTION:      TERNARY,
	OR:            LOGIC_OR,
	AND:           LOGIC_AND,
	EQ:            EQUALS,
	NOT_EQ:        EQUALS,
	STRICT_EQ:     EQUALS,
	STRICT_NOT_EQ: EQUALS,
	LT:            LESSGREATER,
	LTE:           LESSGREATER,
	GT:            LESSGREATER,
	GTE:           LESSGREATER,
	PLUS:          SUM,
	MINUS:         SUM,
	ASTERISK:      PRODUCT,
	SLASH:         PRODUCT,
	PERCENT:       PRODUCT,
}

// Node is an expression tree node.
type Node interface {
	String() string
}

type (
	// Literal is a constant value.
	Literal struct{ Value any }
	// Path is a name resolved through the frame.
	Path struct{ Name string }
	// Prefix is a unary operation.
	Prefix struct {
		Op      TokenType
		Operand Node
	}
	// Infix is a binary operation.
	Infix struct {
		Op          TokenType
		Left, Right Node
	}
	// Conditional is cond ? then : otherwise.
	Conditional struct {
		Cond, Then, Else Node
	}
)

func (n *Literal) String() string {
	if s, ok := n.Value.(string); ok {
		return strconv.Quote(s)
	}
	return toString(n.Value)
}
func (n *Path) String() string   { return n.Name }
func (n *Prefix) String() string { return "(" + n.Op.String() + n.Operand.String() + ")" }
func (n *Infix) String() string {
	return "(" + n.Left.String() + " " + n.Op.String() + " " + n.Right.String() + ")"
}
func (n *Conditional) String() string {
	return "(" + n.Cond.String() + " ? " + n.Then.String() + " : " + n.Else.String() + ")"
}

type (
	prefixParseFn func() (Node, error)
	infixParseFn  func(Node) (Node, error)
)

// Parser is a Pratt parser over Lexer tokens.
type Parser struct {
	l *Lexer

	curToken  Token
	peekToken Token

	prefixParseFns map[TokenType]prefixParseFn
	infixParseFns  map[TokenType]infixParseFn
}

// NewParser returns a parser reading from l.
func NewParser(l *Lexer) *Parser {
	p := &Parser{l: l}

	p.prefixParseFns = map[TokenType]prefixParseFn{
		NUMBER:    p.parseNumber,
		STRING:    p.parseString,
		PATH:      p.parsePath,
		TRUE:      p.parseKeyword,
		FALSE:     p.parseKeyword,
		NULL:      p.parseKeyword,
		UNDEFINED: p.parseKeyword,
		BANG:      p.parsePrefix,
		MINUS:     p.parsePrefix,
		PLUS:      p.parsePrefix,
		LPAREN:    p.parseGroup,
	}
	p.infixParseFns = make(map[TokenType]infixParseFn)
	for typ := range precedences {
		p.infixParseFns[typ] = p.parseInfix
	}
	p.infixParseFns[QUESTION] = p.parseConditional

	p.nextToken()
	p.nextToken()
	return p
}

// Parse parses a whole expression.
func Parse(input string) (Node, error) {
	p := NewParser(NewLexer(input))
	n, err := p.parseExpression(LOWEST)
	if err != nil {
		return nil, err
	}
	if p.peekToken.Type != EOF {
		return nil, p.unexpected(p.peekToken)
	}
	return n, nil
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

func (p *Parser) peekPrecedence() int {
	if prec, ok := precedences[p.peekToken.Type]; ok {
		return prec
	}
	return LOWEST
}

func (p *Parser) curPrecedence() int {
	if prec, ok := precedences[p.curToken.Type]; ok {
		return prec
	}
	return LOWEST
}

func (p *Parser) unexpected(t Token) error {
	if t.Type == ILLEGAL {
		return fmt.Errorf("unexpected %q at %d", t.Literal, t.Pos)
	}
	return fmt.Errorf("unexpected %s at %d", t.Type, t.Pos)
}

func (p *Parser) expectPeek(t TokenType) error {
	if p.peekToken.Type != t {
		return fmt.Errorf("expected %s, got %s at %d", t, p.peekToken.Type, p.peekToken.Pos)
	}
	p.nextToken()
	return nil
}

func (p *Parser) parseExpression(precedence int) (Node, error) {
	prefix := p.prefixParseFns[p.curToken.Type]
	if prefix == nil {
		return nil, p.unexpected(p.curToken)
	}
	left, err := prefix()
	if err != nil {
		return nil, err
	}

	for p.peekToken.Type != EOF && precedence < p.peekPrecedence() {
		infix := p.infixParseFns[p.peekToken.Type]
		if infix == nil {
			return left, nil
		}
		p.nextToken()
		if left, err = infix(left); err != nil {
			return nil, err
		}
	}
	return left, nil
}

func (p *Parser) parseNumber() (Node, error) {
	f, err := strconv.ParseFloat(p.curToken.Literal, 64)
	if err != nil {
		return nil, fmt.Errorf("bad number %q", p.curToken.Literal)
	}
	return &Literal{Value: f}, nil
}

func (p *Parser) parseString() (Node, error) {
	return &Literal{Value: p.curToken.Literal}, nil
}

func (p *Parser) parsePath() (Node, error) {
	return &Path{Name: p.curToken.Literal}, nil
}

func (p *Parser) parseKeyword() (Node, error) {
	switch p.curToken.Type {
	case TRUE:
		return &Literal{Value: true}, nil
	case FALSE:
		return &Literal{Value: false}, nil
	case NULL:
		return &Literal{Value: nil}, nil
	}
	return &Literal{Value: Undefined}, nil
}

func (p *Parser) parsePrefix() (Node, error) {
	op := p.curToken.Type
	p.nextToken()
	operand, err := p.parseExpression(PREFIX)
	if err != nil {
		return nil, err
	}
	return &Prefix{Op: op, Operand: operand}, nil
}

func (p *Parser) parseGroup() (Node, error) {
	p.nextToken()
	n, err := p.parseExpression(LOWEST)
	if err != nil {
		return nil, err
	}
	if err := p.expectPeek(RPAREN); err != nil {
		return nil, err
	}
	return n, nil
}

func (p *Parser) parseInfix(left Node) (Node, error) {
	op := p.curToken.Type
	precedence := p.curPrecedence()
	p.nextToken()
	right, err := p.parseExpression(precedence)
	if err != nil {
		return nil, err
	}
	return &Infix{Op: op, Left: left, Right: right}, nil
}

// parseConditional parses the branches of ?: which is right-associative.
func (p *Parser) parseConditional(cond Node) (Node, error) {
	p.nextToken()
	then, err := p.parseExpression(LOWEST)
	if err != nil {
		return nil, err
	}
	if err := p.expectPeek(COLON); err != nil {
		return nil, err
	}
	p.nextToken()
	otherwise, err := p.parseExpression(TERNARY - 1)
	if err != nil {
		return nil, err
	}
	return &Conditional{Cond: cond, Then: then, Else: otherwise}, nil
}
