package mustache

import (
	"fmt"
	"strings"

	perrors "github.com/sambeau/mustachepp/pkg/errors"
)

// Tags is a pair of opening and closing tag delimiters.
type Tags [2]string

// DefaultTags are the standard mustache delimiters.
var DefaultTags = Tags{"{{", "}}"}

// Open returns the opening delimiter.
func (t Tags) Open() string { return t[0] }

// Close returns the closing delimiter.
func (t Tags) Close() string { return t[1] }

// Valid reports whether both delimiters are non-empty and free of whitespace.
func (t Tags) Valid() bool {
	for _, d := range t {
		if d == "" || strings.ContainsAny(d, " \t\r\n") {
			return false
		}
	}
	return true
}

// tokenType identifies the type of lex tokens.
type tokenType int

const (
	tokenText       tokenType = iota // plain text
	tokenVariable                    // {{name}}
	tokenRaw                         // {{{name}}} or {{&name}}
	tokenSection                     // {{#name}}
	tokenInverted                    // {{^name}}
	tokenSectionEnd                  // {{/name}}
	tokenPartial                     // {{>name}}
	tokenComment                     // {{! comment }}
	tokenSetDelim                    // {{=<% %>=}}
	tokenEOF
)

var tokenName = map[tokenType]string{
	tokenText:       "t_text",
	tokenVariable:   "t_var",
	tokenRaw:        "t_raw",
	tokenSection:    "t_section",
	tokenInverted:   "t_inverted",
	tokenSectionEnd: "t_section_end",
	tokenPartial:    "t_partial",
	tokenComment:    "t_comment",
	tokenSetDelim:   "t_set_delim",
	tokenEOF:        "t_eof",
}

func (t tokenType) String() string {
	if s, ok := tokenName[t]; ok {
		return s
	}
	return fmt.Sprintf("t_unknown_%d", int(t))
}

// token is a text run or a whole tag. For tags, val holds the trimmed tag
// name and start/end span the tag including its delimiters.
type token struct {
	typ   tokenType
	val   string
	start int
	end   int
	line  int
	col   int
	tags  Tags // delimiters in effect when the token was scanned

	indent string // leading whitespace of a standalone partial tag
}

func (t token) String() string {
	return fmt.Sprintf("%s:%q", t.typ, t.val)
}

// lexer holds the state of the scanner.
type lexer struct {
	input  string
	tags   Tags
	pos    int
	tokens []token
}

// lex scans input into tokens using tags as the initial delimiters.
func lex(input string, tags Tags) ([]token, error) {
	l := &lexer{input: input, tags: tags}
	for {
		done, err := l.next()
		if err != nil {
			return nil, err
		}
		if done {
			break
		}
	}
	l.stripStandalone()
	return l.tokens, nil
}

// stripStandalone removes the lines of block tags that stand alone on their
// line: the whitespace before the tag and everything after it up to and
// including the newline. A standalone partial keeps that whitespace as its
// indent.
func (l *lexer) stripStandalone() {
	for i, t := range l.tokens {
		switch t.typ {
		case tokenSection, tokenInverted, tokenSectionEnd, tokenComment, tokenPartial, tokenSetDelim:
		default:
			continue
		}
		lineStart := strings.LastIndexByte(l.input[:t.start], '\n') + 1
		lineEnd := len(l.input)
		if j := strings.IndexByte(l.input[t.end:], '\n'); j >= 0 {
			lineEnd = t.end + j + 1
		}
		if !blank(l.input[lineStart:t.start]) || !blank(l.input[t.end:lineEnd]) {
			continue
		}

		if t.typ == tokenPartial {
			l.tokens[i].indent = l.input[lineStart:t.start]
		}
		if i > 0 && l.tokens[i-1].typ == tokenText {
			prev := &l.tokens[i-1]
			prev.end = max(prev.start, lineStart)
			prev.val = l.input[prev.start:prev.end]
		}
		if i+1 < len(l.tokens) && l.tokens[i+1].typ == tokenText {
			next := &l.tokens[i+1]
			next.start = min(next.end, lineEnd)
			next.val = l.input[next.start:next.end]
		}
	}
}

func blank(s string) bool {
	return strings.Trim(s, " \t\r\n") == ""
}

// next scans one text run and the tag following it. It reports true once
// the end of the input has been reached.
func (l *lexer) next() (bool, error) {
	left, right := l.tags.Open(), l.tags.Close()

	i := strings.Index(l.input[l.pos:], left)
	if i < 0 {
		if l.pos < len(l.input) {
			l.emit(tokenText, l.input[l.pos:], l.pos, len(l.input))
		}
		l.emit(tokenEOF, "", len(l.input), len(l.input))
		return true, nil
	}
	if i > 0 {
		l.emit(tokenText, l.input[l.pos:l.pos+i], l.pos, l.pos+i)
	}

	start := l.pos + i
	p := start + len(left)
	if p >= len(l.input) {
		return false, l.errorf(start, "PARSE-0001")
	}

	var (
		typ    tokenType
		body   int    // offset where the tag content begins
		closer string // text that terminates the tag
	)
	switch l.input[p] {
	case '{':
		typ, body, closer = tokenRaw, p+1, "}"+right
	case '=':
		typ, body, closer = tokenSetDelim, p+1, "="+right
	case '!':
		typ, body, closer = tokenComment, p+1, right
	case '#':
		typ, body, closer = tokenSection, p+1, right
	case '^':
		typ, body, closer = tokenInverted, p+1, right
	case '/':
		typ, body, closer = tokenSectionEnd, p+1, right
	case '>':
		typ, body, closer = tokenPartial, p+1, right
	case '&':
		typ, body, closer = tokenRaw, p+1, right
	default:
		typ, body, closer = tokenVariable, p, right
	}

	j := strings.Index(l.input[body:], closer)
	if j < 0 {
		return false, l.errorf(start, "PARSE-0001")
	}
	content := l.input[body : body+j]
	end := body + j + len(closer)

	switch typ {
	case tokenComment:
		l.emit(typ, content, start, end)
	case tokenSetDelim:
		fields := strings.Fields(content)
		next := Tags{}
		if len(fields) == 2 {
			next = Tags{fields[0], fields[1]}
		}
		if !next.Valid() {
			return false, l.errorf(start, "PARSE-0005", "Tag", l.input[start:end])
		}
		l.emit(typ, content, start, end)
		l.tags = next
	default:
		name := strings.TrimSpace(content)
		if name == "" {
			return false, l.errorf(start, "PARSE-0006")
		}
		l.emit(typ, name, start, end)
	}

	l.pos = end
	return false, nil
}

func (l *lexer) emit(typ tokenType, val string, start, end int) {
	line, col := position(l.input, start)
	l.tokens = append(l.tokens, token{
		typ:   typ,
		val:   val,
		start: start,
		end:   end,
		line:  line,
		col:   col,
		tags:  l.tags,
	})
}

// errorf builds a positioned catalog error. kv holds extra template data as
// alternating keys and values.
func (l *lexer) errorf(offset int, code string, kv ...string) error {
	data := map[string]any{"Open": l.tags.Open(), "Close": l.tags.Close()}
	for i := 0; i+1 < len(kv); i += 2 {
		data[kv[i]] = kv[i+1]
	}
	line, col := position(l.input, offset)
	return perrors.NewWithPosition(code, line, col, data)
}

// position converts a byte offset into a 1-based line and column.
func position(input string, offset int) (int, int) {
	line := 1 + strings.Count(input[:offset], "\n")
	col := offset + 1
	if lf := strings.LastIndex(input[:offset], "\n"); lf != -1 {
		col = offset - lf
	}
	return line, col
}
