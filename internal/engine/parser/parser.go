// Package parser turns SSD source text into the raw element sequence and,
// through ast.Assemble, into a Module. Parsing stops at the first error.
package parser

import (
	"fmt"

	"ssd/internal/engine/ast"
	"ssd/internal/engine/diag"
)

type options struct {
	diagnostics diag.Handler
}

type Option func(*options)

// WithDiagnostics routes non-fatal notices (deprecated syntax) to h instead of
// the default slog warning.
func WithDiagnostics(h diag.Handler) Option {
	return func(o *options) {
		if h != nil {
			o.diagnostics = h
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{diagnostics: diag.LogHandler}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// ParseRaw parses src into its raw, order-preserving element sequence.
// Safe for concurrent use; each call owns its state.
func ParseRaw(src string, opts ...Option) ([]ast.Element, error) {
	toks, err := tokenize(src)
	if err != nil {
		return nil, err
	}
	p := &parser{src: src, toks: toks, opts: buildOptions(opts)}
	return p.file()
}

// Parse parses and assembles src. The namespace is supplied by the caller.
func Parse(src string, ns ast.Namespace, opts ...Option) (ast.Module, error) {
	raw, err := ParseRaw(src, opts...)
	if err != nil {
		return ast.Module{}, err
	}
	return ast.Assemble(ns, raw)
}

type parser struct {
	src  string
	toks []token
	pos  int
	opts options
}

func (p *parser) peek() token {
	return p.peekAt(0)
}

func (p *parser) peekAt(n int) token {
	if p.pos+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+n]
}

func (p *parser) next() token {
	tok := p.peek()
	if tok.kind != tokEOF {
		p.pos++
	}
	return tok
}

func (p *parser) accept(kind tokenKind) bool {
	if p.peek().kind == kind {
		p.next()
		return true
	}
	return false
}

func (p *parser) isKeyword(word string) bool {
	tok := p.peek()
	return tok.kind == tokIdent && tok.text == word
}

func (p *parser) span(tok token) diag.Span {
	return spanAt(p.src, tok.offset, tok.line, tok.column)
}

func (p *parser) fail(kind diag.Kind, tok token, want string) error {
	detail := ""
	if want != "" {
		detail = fmt.Sprintf("expected %s, found %s", want, describe(tok))
	}
	return diag.New(kind, p.span(tok), detail)
}

func (p *parser) expect(kind tokenKind, errKind diag.Kind) (token, error) {
	tok := p.peek()
	if tok.kind != kind {
		return token{}, p.fail(errKind, tok, kind.String())
	}
	return p.next(), nil
}

func (p *parser) ident(errKind diag.Kind) (string, error) {
	tok, err := p.expect(tokIdent, errKind)
	if err != nil {
		return "", err
	}
	return tok.text, nil
}

func (p *parser) keyword(word string, errKind diag.Kind) error {
	if !p.isKeyword(word) {
		return p.fail(errKind, p.peek(), "'"+word+"'")
	}
	p.next()
	return nil
}

func (p *parser) notify(sev diag.Severity, tok token, msg string) {
	p.opts.diagnostics(diag.Diagnostic{Severity: sev, Message: msg, Span: p.span(tok)})
}

func describe(tok token) string {
	switch tok.kind {
	case tokEOF:
		return "end of input"
	case tokIdent, tokInt:
		return fmt.Sprintf("%s %q", tok.kind, tok.text)
	case tokString:
		return "string"
	default:
		return tok.kind.String()
	}
}
