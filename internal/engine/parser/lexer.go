// # internal/engine/parser/lexer.go
package parser

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"ssd/internal/engine/diag"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokInt
	tokString
	tokDocComment
	tokPathSep   // ::
	tokColon     // :
	tokSemicolon // ;
	tokComma     // ,
	tokLBrace    // {
	tokRBrace    // }
	tokLParen    // (
	tokRParen    // )
	tokEquals    // =
	tokArrow     // ->
	tokAttrOpen  // #[
	tokRBracket  // ]
)

var tokenNames = map[tokenKind]string{
	tokEOF:        "end of input",
	tokIdent:      "identifier",
	tokInt:        "integer",
	tokString:     "string",
	tokDocComment: "doc comment",
	tokPathSep:    "'::'",
	tokColon:      "':'",
	tokSemicolon:  "';'",
	tokComma:      "','",
	tokLBrace:     "'{'",
	tokRBrace:     "'}'",
	tokLParen:     "'('",
	tokRParen:     "')'",
	tokEquals:     "'='",
	tokArrow:      "'->'",
	tokAttrOpen:   "'#['",
	tokRBracket:   "']'",
}

func (k tokenKind) String() string {
	return tokenNames[k]
}

// token.Text is the decoded value: identifier or digits as written, string
// contents unquoted, doc comment text trimmed and without the slashes.
type token struct {
	kind   tokenKind
	text   string
	offset int
	line   int
	column int
}

type lexer struct {
	src    string
	pos    int
	line   int
	column int
	tokens []token
}

// tokenize splits the whole source up front; the grammar needs two tokens of
// lookahead for `list of` and `N of`.
func tokenize(src string) ([]token, error) {
	lx := &lexer{src: src, line: 1, column: 1}
	for {
		tok, err := lx.next()
		if err != nil {
			return nil, err
		}
		lx.tokens = append(lx.tokens, tok)
		if tok.kind == tokEOF {
			return lx.tokens, nil
		}
	}
}

func (lx *lexer) peekRune(ahead int) rune {
	p := lx.pos
	for i := 0; i < ahead; i++ {
		if p >= len(lx.src) {
			return 0
		}
		_, w := utf8.DecodeRuneInString(lx.src[p:])
		p += w
	}
	if p >= len(lx.src) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(lx.src[p:])
	return r
}

func (lx *lexer) advance() rune {
	r, w := utf8.DecodeRuneInString(lx.src[lx.pos:])
	lx.pos += w
	if r == '\n' {
		lx.line++
		lx.column = 1
	} else {
		lx.column++
	}
	return r
}

func (lx *lexer) skipSpace() {
	for lx.pos < len(lx.src) {
		r := lx.peekRune(0)
		if !unicode.IsSpace(r) {
			return
		}
		lx.advance()
	}
}

func (lx *lexer) spanHere() diag.Span {
	return spanAt(lx.src, lx.pos, lx.line, lx.column)
}

func (lx *lexer) next() (token, error) {
	lx.skipSpace()
	start := token{offset: lx.pos, line: lx.line, column: lx.column}
	if lx.pos >= len(lx.src) {
		start.kind = tokEOF
		return start, nil
	}

	r := lx.peekRune(0)
	emit := func(kind tokenKind, n int) (token, error) {
		for i := 0; i < n; i++ {
			lx.advance()
		}
		start.kind = kind
		start.text = lx.src[start.offset:lx.pos]
		return start, nil
	}

	switch {
	case r == '/':
		if lx.peekRune(1) == '/' && lx.peekRune(2) == '/' {
			return lx.docComment(start), nil
		}
		return token{}, diag.New(diag.KindOther, lx.spanHere(), "unexpected '/', doc comments start with '///'")
	case r == ':':
		if lx.peekRune(1) == ':' {
			return emit(tokPathSep, 2)
		}
		return emit(tokColon, 1)
	case r == ';':
		return emit(tokSemicolon, 1)
	case r == ',':
		return emit(tokComma, 1)
	case r == '{':
		return emit(tokLBrace, 1)
	case r == '}':
		return emit(tokRBrace, 1)
	case r == '(':
		return emit(tokLParen, 1)
	case r == ')':
		return emit(tokRParen, 1)
	case r == '=':
		return emit(tokEquals, 1)
	case r == ']':
		return emit(tokRBracket, 1)
	case r == '#':
		if lx.peekRune(1) == '[' {
			return emit(tokAttrOpen, 2)
		}
	case r == '-':
		if lx.peekRune(1) == '>' {
			return emit(tokArrow, 2)
		}
		if isDigit(lx.peekRune(1)) {
			lx.advance()
			return lx.integer(start), nil
		}
	case r == '"':
		return lx.str(start)
	case isDigit(r):
		return lx.integer(start), nil
	case isIdentStart(r):
		for lx.pos < len(lx.src) && isIdentPart(lx.peekRune(0)) {
			lx.advance()
		}
		start.kind = tokIdent
		start.text = lx.src[start.offset:lx.pos]
		return start, nil
	}
	return token{}, diag.New(diag.KindOther, lx.spanHere(), fmt.Sprintf("unexpected character %q", r))
}

func (lx *lexer) docComment(start token) token {
	for i := 0; i < 3; i++ {
		lx.advance()
	}
	textStart := lx.pos
	for lx.pos < len(lx.src) && lx.peekRune(0) != '\n' {
		lx.advance()
	}
	start.kind = tokDocComment
	start.text = strings.TrimSpace(lx.src[textStart:lx.pos])
	return start
}

func (lx *lexer) integer(start token) token {
	for lx.pos < len(lx.src) && isDigit(lx.peekRune(0)) {
		lx.advance()
	}
	start.kind = tokInt
	start.text = lx.src[start.offset:lx.pos]
	return start
}

func (lx *lexer) str(start token) (token, error) {
	lx.advance()
	for {
		if lx.pos >= len(lx.src) {
			return token{}, diag.New(diag.KindOther, spanAt(lx.src, start.offset, start.line, start.column), "unterminated string")
		}
		r := lx.advance()
		if r == '\\' && lx.pos < len(lx.src) {
			lx.advance()
			continue
		}
		if r == '\n' {
			return token{}, diag.New(diag.KindOther, spanAt(lx.src, start.offset, start.line, start.column), "newline in string")
		}
		if r == '"' {
			break
		}
	}
	quoted := lx.src[start.offset:lx.pos]
	value, err := strconv.Unquote(quoted)
	if err != nil {
		return token{}, diag.New(diag.KindOther, spanAt(lx.src, start.offset, start.line, start.column), "invalid string literal "+quoted)
	}
	start.kind = tokString
	start.text = value
	return start, nil
}

// spanAt captures the rest of the source line from offset.
func spanAt(src string, offset, line, column int) diag.Span {
	rest := src[offset:]
	if i := strings.IndexByte(rest, '\n'); i >= 0 {
		rest = rest[:i]
	}
	return diag.Span{Line: line, Column: column, Text: strings.TrimRight(rest, " \t\r")}
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
