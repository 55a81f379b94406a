package minissd

import (
	"fmt"
	"strconv"
	"strings"
	"text/scanner"
)

// Context names the construct being parsed when a SyntaxError occurred:
// "import", "data", "property", "enum", "variant", "service", "depends",
// "handler", "event", "argument", "attribute", "parameter", "name", "type" or
// "file".
type SyntaxError struct {
	Line    int
	Column  int
	Context string
	Msg     string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("minissd: %d:%d: %s: %s", e.Line, e.Column, e.Context, e.Msg)
}

type lexeme struct {
	tok  rune
	text string
	pos  scanner.Position
}

type state struct {
	doc  *Document
	toks []lexeme
	pos  int
}

// Parse builds a Document from src. The caller owns the result and must Free
// it; on error nothing needs to be freed.
func Parse(src string) (doc *Document, err error) {
	toks, err := scan(src)
	if err != nil {
		return nil, err
	}
	st := &state{doc: &Document{}, toks: toks}
	outstanding.Add(1)
	defer func() {
		if err != nil {
			st.doc.Free()
			doc = nil
		}
	}()

	var last *Node
	for st.peek().tok != scanner.EOF {
		n, err := st.node()
		if err != nil {
			return nil, err
		}
		if last == nil {
			st.doc.first = n
		} else {
			last.next = n
		}
		last = n
	}
	return st.doc, nil
}

func scan(src string) ([]lexeme, error) {
	var s scanner.Scanner
	s.Init(strings.NewReader(src))
	s.Mode = scanner.ScanIdents | scanner.ScanInts | scanner.ScanStrings | scanner.ScanComments | scanner.SkipComments
	var scanErr *SyntaxError
	s.Error = func(s *scanner.Scanner, msg string) {
		if scanErr == nil {
			scanErr = &SyntaxError{Line: s.Pos().Line, Column: s.Pos().Column, Context: "file", Msg: msg}
		}
	}

	var out []lexeme
	for {
		tok := s.Scan()
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, lexeme{tok: tok, text: s.TokenText(), pos: s.Position})
		if tok == scanner.EOF {
			return out, nil
		}
	}
}

func (st *state) peek() lexeme {
	return st.peekAt(0)
}

func (st *state) peekAt(n int) lexeme {
	if st.pos+n >= len(st.toks) {
		return st.toks[len(st.toks)-1]
	}
	return st.toks[st.pos+n]
}

func (st *state) next() lexeme {
	lx := st.peek()
	if lx.tok != scanner.EOF {
		st.pos++
	}
	return lx
}

func (st *state) errorf(ctx, format string, args ...any) error {
	lx := st.peek()
	return &SyntaxError{Line: lx.pos.Line, Column: lx.pos.Column, Context: ctx, Msg: fmt.Sprintf(format, args...)}
}

func (st *state) is(tok rune) bool {
	return st.peek().tok == tok
}

func (st *state) isWord(word string) bool {
	lx := st.peek()
	return lx.tok == scanner.Ident && lx.text == word
}

func (st *state) punct(ctx string, runes ...rune) error {
	for _, r := range runes {
		if !st.is(r) {
			return st.errorf(ctx, "expected %q, found %q", r, st.peek().text)
		}
		st.next()
	}
	return nil
}

// punctAhead reports whether the next tokens spell runes, without consuming.
func (st *state) punctAhead(runes ...rune) bool {
	for i, r := range runes {
		if st.peekAt(i).tok != r {
			return false
		}
	}
	return true
}

func (st *state) ident(ctx string) (string, error) {
	if !st.is(scanner.Ident) {
		return "", st.errorf(ctx, "expected identifier, found %q", st.peek().text)
	}
	return st.next().text, nil
}

func (st *state) path(ctx string) (string, error) {
	first, err := st.ident(ctx)
	if err != nil {
		return "", err
	}
	parts := []string{first}
	for st.punctAhead(':', ':') {
		st.next()
		st.next()
		part, err := st.ident("name")
		if err != nil {
			return "", err
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, "::"), nil
}

func (st *state) node() (*Node, error) {
	attrs, err := st.attributes()
	if err != nil {
		return nil, err
	}
	n := alloc(st.doc, &Node{doc: st.doc, attributes: attrs})
	switch {
	case st.isWord("import"):
		st.next()
		n.kind = NodeImport
		if n.name, err = st.path("import"); err != nil {
			return nil, err
		}
		return n, st.punct("import", ';')
	case st.isWord("data"):
		st.next()
		n.kind = NodeData
		return n, st.data(n)
	case st.isWord("enum"):
		st.next()
		n.kind = NodeEnum
		return n, st.enum(n)
	case st.isWord("service"):
		st.next()
		n.kind = NodeService
		return n, st.service(n)
	}
	return nil, st.errorf("file", "unexpected %q", st.peek().text)
}

func (st *state) data(n *Node) error {
	var err error
	if n.name, err = st.ident("data"); err != nil {
		return err
	}
	if err := st.punct("data", '{'); err != nil {
		return err
	}
	var last *Property
	for !st.is('}') {
		if st.is(scanner.EOF) {
			return st.errorf("data", "unexpected end of input")
		}
		attrs, err := st.attributes()
		if err != nil {
			return err
		}
		p := alloc(st.doc, &Property{doc: st.doc, attributes: attrs})
		if p.name, err = st.ident("property"); err != nil {
			return err
		}
		if err := st.punct("property", ':'); err != nil {
			return err
		}
		if p.typ, err = st.typ(); err != nil {
			return err
		}
		if err := st.separator("property", '}'); err != nil {
			return err
		}
		if last == nil {
			n.properties = p
		} else {
			last.next = p
		}
		last = p
	}
	return st.punct("data", '}', ';')
}

func (st *state) enum(n *Node) error {
	var err error
	if n.name, err = st.ident("enum"); err != nil {
		return err
	}
	if err := st.punct("enum", '{'); err != nil {
		return err
	}
	var last *EnumVariant
	for !st.is('}') {
		if st.is(scanner.EOF) {
			return st.errorf("enum", "unexpected end of input")
		}
		attrs, err := st.attributes()
		if err != nil {
			return err
		}
		v := alloc(st.doc, &EnumVariant{doc: st.doc, attributes: attrs})
		if v.name, err = st.ident("variant"); err != nil {
			return err
		}
		if st.is('=') {
			st.next()
			if v.value, err = st.integer("variant"); err != nil {
				return err
			}
			v.hasValue = true
		}
		if err := st.separator("variant", '}'); err != nil {
			return err
		}
		if last == nil {
			n.variants = v
		} else {
			last.next = v
		}
		last = v
	}
	return st.punct("enum", '}', ';')
}

func (st *state) integer(ctx string) (int64, error) {
	neg := false
	if st.is('-') {
		st.next()
		neg = true
	}
	if !st.is(scanner.Int) {
		return 0, st.errorf(ctx, "expected integer, found %q", st.peek().text)
	}
	text := st.peek().text
	if neg {
		text = "-" + text
	}
	v, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return 0, st.errorf(ctx, "invalid integer %s", text)
	}
	st.next()
	return v, nil
}

func (st *state) service(n *Node) error {
	var err error
	if n.name, err = st.ident("service"); err != nil {
		return err
	}
	if err := st.punct("service", '{'); err != nil {
		return err
	}
	var (
		lastDep     *Dependency
		lastHandler *Handler
		lastEvent   *Event
		order       int
	)
	for ; !st.is('}'); order++ {
		attrs, err := st.attributes()
		if err != nil {
			return err
		}
		switch {
		case st.isWord("depends"):
			st.next()
			if !st.isWord("on") {
				return st.errorf("depends", "expected 'on'")
			}
			st.next()
			d := alloc(st.doc, &Dependency{doc: st.doc, attributes: attrs, order: order})
			if d.path, err = st.path("depends"); err != nil {
				return err
			}
			if err := st.punct("depends", ';'); err != nil {
				return err
			}
			if lastDep == nil {
				n.dependencies = d
			} else {
				lastDep.next = d
			}
			lastDep = d
		case st.isWord("fn"), st.isWord("handles"):
			st.next()
			h := alloc(st.doc, &Handler{doc: st.doc, attributes: attrs, order: order})
			if h.name, err = st.ident("handler"); err != nil {
				return err
			}
			if h.arguments, err = st.arguments("handler"); err != nil {
				return err
			}
			if st.punctAhead('-', '>') {
				st.next()
				st.next()
				if h.returnType, err = st.typ(); err != nil {
					return err
				}
			}
			if err := st.punct("handler", ';'); err != nil {
				return err
			}
			if lastHandler == nil {
				n.handlers = h
			} else {
				lastHandler.next = h
			}
			lastHandler = h
		case st.isWord("event"):
			st.next()
			e := alloc(st.doc, &Event{doc: st.doc, attributes: attrs, order: order})
			if e.name, err = st.ident("event"); err != nil {
				return err
			}
			if e.arguments, err = st.arguments("event"); err != nil {
				return err
			}
			if err := st.punct("event", ';'); err != nil {
				return err
			}
			if lastEvent == nil {
				n.events = e
			} else {
				lastEvent.next = e
			}
			lastEvent = e
		default:
			return st.errorf("service", "unexpected %q", st.peek().text)
		}
	}
	return st.punct("service", '}', ';')
}

func (st *state) arguments(ctx string) (*Argument, error) {
	if err := st.punct(ctx, '('); err != nil {
		return nil, err
	}
	var first, last *Argument
	for !st.is(')') {
		attrs, err := st.attributes()
		if err != nil {
			return nil, err
		}
		a := alloc(st.doc, &Argument{doc: st.doc, attributes: attrs})
		if a.name, err = st.ident("argument"); err != nil {
			return nil, err
		}
		if err := st.punct("argument", ':'); err != nil {
			return nil, err
		}
		if a.typ, err = st.typ(); err != nil {
			return nil, err
		}
		if err := st.separator(ctx, ')'); err != nil {
			return nil, err
		}
		if last == nil {
			first = a
		} else {
			last.next = a
		}
		last = a
	}
	st.next()
	return first, nil
}

// separator consumes a ',' or stops before the closing rune.
func (st *state) separator(ctx string, closing rune) error {
	if st.is(',') {
		st.next()
		return nil
	}
	if st.is(closing) {
		return nil
	}
	return st.errorf(ctx, "expected ',' or %q, found %q", closing, st.peek().text)
}

func (st *state) typ() (*Type, error) {
	t := alloc(st.doc, &Type{doc: st.doc})
	ofFollows := st.peekAt(1).tok == scanner.Ident && st.peekAt(1).text == "of"
	switch {
	case st.is(scanner.Int) && ofFollows:
		n, err := strconv.Atoi(st.peek().text)
		if err != nil {
			return nil, st.errorf("type", "invalid list size %s", st.peek().text)
		}
		t.isList, t.count, t.hasCount = true, n, true
		st.next()
		st.next()
	case st.isWord("list") && ofFollows:
		t.isList = true
		st.next()
		st.next()
	}
	var err error
	if t.name, err = st.path("type"); err != nil {
		return nil, err
	}
	return t, nil
}

func (st *state) attributes() (*Attribute, error) {
	var first, last *Attribute
	for st.punctAhead('#', '[') {
		st.next()
		st.next()
		for {
			a := alloc(st.doc, &Attribute{doc: st.doc})
			var err error
			if a.name, err = st.path("attribute"); err != nil {
				return nil, err
			}
			if st.is('(') {
				st.next()
				if a.parameters, err = st.parameters(); err != nil {
					return nil, err
				}
			}
			if last == nil {
				first = a
			} else {
				last.next = a
			}
			last = a
			if st.is(']') {
				st.next()
				break
			}
			if err := st.punct("attribute", ','); err != nil {
				return nil, err
			}
		}
	}
	return first, nil
}

func (st *state) parameters() (*Parameter, error) {
	var first, last *Parameter
	for !st.is(')') {
		p := alloc(st.doc, &Parameter{doc: st.doc})
		var err error
		if p.name, err = st.ident("parameter"); err != nil {
			return nil, err
		}
		if st.is('=') {
			st.next()
			if !st.is(scanner.String) {
				return nil, st.errorf("parameter", "expected string, found %q", st.peek().text)
			}
			if p.value, err = strconv.Unquote(st.next().text); err != nil {
				return nil, st.errorf("parameter", "invalid string")
			}
			p.hasValue = true
		}
		if err := st.separator("parameter", ')'); err != nil {
			return nil, err
		}
		if last == nil {
			first = p
		} else {
			last.next = p
		}
		last = p
	}
	st.next()
	return first, nil
}
