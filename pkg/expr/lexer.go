package expr

import (
	"fmt"
	"strings"
)

// TokenType identifies expression tokens.
type TokenType int

const (
	ILLEGAL TokenType = iota
	EOF

	NUMBER
	STRING
	PATH // a.b.c, ~a.b, ::a, .

	TRUE
	FALSE
	NULL
	UNDEFINED

	BANG          // !
	PLUS          // +
	MINUS         // -
	ASTERISK      // *
	SLASH         // /
	PERCENT       // %
	LT            // <
	LTE           // <=
	GT            // >
	GTE           // >=
	EQ            // ==
	NOT_EQ        // !=
	STRICT_EQ     // ===
	STRICT_NOT_EQ // !==
	AND           // &&
	OR            // ||
	QUESTION      // ?
	COLON         // :
	LPAREN        // (
	RPAREN        // )
)

var tokenNames = map[TokenType]string{
	ILLEGAL: "illegal", EOF: "end of expression",
	NUMBER: "number", STRING: "string", PATH: "path",
	TRUE: "true", FALSE: "false", NULL: "null", UNDEFINED: "undefined",
	BANG: "!", PLUS: "+", MINUS: "-", ASTERISK: "*", SLASH: "/", PERCENT: "%",
	LT: "<", LTE: "<=", GT: ">", GTE: ">=",
	EQ: "==", NOT_EQ: "!=", STRICT_EQ: "===", STRICT_NOT_EQ: "!==",
	AND: "&&", OR: "||", QUESTION: "?", COLON: ":", LPAREN: "(", RPAREN: ")",
}

func (t TokenType) String() string {
	if s, ok := tokenNames[t]; ok {
		return s
	}
	return fmt.Sprintf("token(%d)", int(t))
}

var keywords = map[string]TokenType{
	"true":      TRUE,
	"false":     FALSE,
	"null":      NULL,
	"undefined": UNDEFINED,
}

// Token is one lexeme with its byte offset.
type Token struct {
	Type    TokenType
	Literal string
	Pos     int
}

// Lexer scans an expression.
type Lexer struct {
	input string
	pos   int
	// operand is true where an operand is expected, which is where a ':'
	// starts a parent-jump path rather than the else branch of '?:'.
	operand bool
}

// NewLexer returns a lexer for input.
func NewLexer(input string) *Lexer {
	return &Lexer{input: input, operand: true}
}

// NextToken returns the next token, or EOF at the end of the input.
func (l *Lexer) NextToken() Token {
	tok := l.scan()
	switch tok.Type {
	case NUMBER, STRING, PATH, TRUE, FALSE, NULL, UNDEFINED, RPAREN:
		l.operand = false
	default:
		l.operand = true
	}
	return tok
}

func (l *Lexer) scan() Token {
	l.skipWhitespace()
	if l.pos >= len(l.input) {
		return Token{Type: EOF, Pos: l.pos}
	}

	start := l.pos
	ch := l.input[l.pos]
	switch {
	case ch == '\'' || ch == '"':
		return l.readString(ch)
	case isDigit(ch) || (ch == '.' && isDigit(l.peekAt(1))):
		return l.readNumber()
	case ch == '~' && l.operand:
		return l.readPath(1)
	case ch == ':' && l.operand && (l.peekAt(1) == ':' || isIdentStart(l.peekAt(1)) || l.peekAt(1) == '.'):
		n := 0
		for l.peekAt(n) == ':' {
			n++
		}
		return l.readPath(n)
	case isIdentStart(ch) || (ch == '.' && l.operand):
		return l.readPath(0)
	}

	for _, op := range operators {
		if strings.HasPrefix(l.input[l.pos:], op.text) {
			l.pos += len(op.text)
			return Token{Type: op.typ, Literal: op.text, Pos: start}
		}
	}

	l.pos++
	return Token{Type: ILLEGAL, Literal: string(ch), Pos: start}
}

// operators are tried in order, longest first.
var operators = []struct {
	text string
	typ  TokenType
}{
	{"===", STRICT_EQ}, {"!==", STRICT_NOT_EQ},
	{"==", EQ}, {"!=", NOT_EQ}, {"<=", LTE}, {">=", GTE}, {"&&", AND}, {"||", OR},
	{"!", BANG}, {"+", PLUS}, {"-", MINUS}, {"*", ASTERISK}, {"/", SLASH}, {"%", PERCENT},
	{"<", LT}, {">", GT}, {"?", QUESTION}, {":", COLON}, {"(", LPAREN}, {")", RPAREN},
}

func (l *Lexer) peekAt(n int) byte {
	if l.pos+n >= len(l.input) {
		return 0
	}
	return l.input[l.pos+n]
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.input) && strings.IndexByte(" \t\r\n", l.input[l.pos]) >= 0 {
		l.pos++
	}
}

// readPath reads a dotted identifier path after skipping prefix bytes of
// scope-jump operators. A lone "." is the current view.
func (l *Lexer) readPath(prefix int) Token {
	start := l.pos
	l.pos += prefix

	if l.peekAt(0) == '.' && !isIdentStart(l.peekAt(1)) {
		l.pos++
		return Token{Type: PATH, Literal: l.input[start:l.pos], Pos: start}
	}
	if !isIdentStart(l.peekAt(0)) {
		return Token{Type: ILLEGAL, Literal: l.input[start:l.pos], Pos: start}
	}

	for {
		l.pos++ // segment start, which may be '@'
		for l.pos < len(l.input) && isIdentPart(l.input[l.pos]) {
			l.pos++
		}
		if l.peekAt(0) == '.' && isIdentStart(l.peekAt(1)) {
			l.pos++
			continue
		}
		break
	}

	lit := l.input[start:l.pos]
	if prefix == 0 {
		if kw, ok := keywords[lit]; ok {
			return Token{Type: kw, Literal: lit, Pos: start}
		}
	}
	return Token{Type: PATH, Literal: lit, Pos: start}
}

func (l *Lexer) readNumber() Token {
	start := l.pos
	for isDigit(l.peekAt(0)) {
		l.pos++
	}
	if l.peekAt(0) == '.' && isDigit(l.peekAt(1)) {
		l.pos++
		for isDigit(l.peekAt(0)) {
			l.pos++
		}
	}
	if c := l.peekAt(0); c == 'e' || c == 'E' {
		n := 1
		if s := l.peekAt(1); s == '+' || s == '-' {
			n++
		}
		if isDigit(l.peekAt(n)) {
			l.pos += n
			for isDigit(l.peekAt(0)) {
				l.pos++
			}
		}
	}
	return Token{Type: NUMBER, Literal: l.input[start:l.pos], Pos: start}
}

func (l *Lexer) readString(quote byte) Token {
	start := l.pos
	l.pos++
	var b strings.Builder
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		switch {
		case ch == quote:
			l.pos++
			return Token{Type: STRING, Literal: b.String(), Pos: start}
		case ch == '\\' && l.pos+1 < len(l.input):
			l.pos++
			switch esc := l.input[l.pos]; esc {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			default:
				b.WriteByte(esc)
			}
		default:
			b.WriteByte(ch)
		}
		l.pos++
	}
	return Token{Type: ILLEGAL, Literal: l.input[start:], Pos: start}
}

func isDigit(ch byte) bool { return '0' <= ch && ch <= '9' }

func isIdentStart(ch byte) bool {
	return ch == '@' || ch == '_' || ch == '$' || ('a' <= ch && ch <= 'z') || ('A' <= ch && ch <= 'Z')
}

func isIdentPart(ch byte) bool {
	return ch == '_' || ch == '$' || isDigit(ch) || ('a' <= ch && ch <= 'z') || ('A' <= ch && ch <= 'Z')
}
