package parser

import (
	"strconv"

	"ssd/internal/engine/ast"
	"ssd/internal/engine/diag"
)

func (p *parser) file() ([]ast.Element, error) {
	elements := []ast.Element{}
	for {
		tok := p.peek()
		switch tok.kind {
		case tokEOF:
			return elements, nil
		case tokDocComment:
			p.next()
			elements = append(elements, ast.Comment{Text: tok.text})
		default:
			el, err := p.declaration()
			if err != nil {
				return nil, err
			}
			elements = append(elements, el)
		}
	}
}

func (p *parser) declaration() (ast.Element, error) {
	attrs, err := p.attributes()
	if err != nil {
		return nil, err
	}
	tok := p.peek()
	if tok.kind == tokIdent {
		switch tok.text {
		case "import":
			return p.importDecl(attrs)
		case "data":
			return p.dataDecl(attrs)
		case "enum":
			return p.enumDecl(attrs)
		case "service":
			return p.serviceDecl(attrs)
		}
	}
	if len(attrs) > 0 {
		return nil, p.fail(diag.KindUnexpectedElement, tok, "declaration after attributes")
	}
	return nil, p.fail(diag.KindUnexpectedElement, tok, "'import', 'data', 'enum', 'service' or '///'")
}

func (p *parser) importDecl(attrs []ast.Attribute) (ast.Element, error) {
	p.next()
	path, err := p.path(diag.KindIncompleteImport)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokSemicolon, diag.KindIncompleteImport); err != nil {
		return nil, err
	}
	return ast.ImportDecl{Import: ast.Import{Path: path, Attributes: attrs}}, nil
}

func (p *parser) dataDecl(attrs []ast.Attribute) (ast.Element, error) {
	p.next()
	name, err := p.ident(diag.KindIncompleteDatatype)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokLBrace, diag.KindIncompleteDatatype); err != nil {
		return nil, err
	}

	dt := ast.DataType{Properties: ast.OrderedMap[ast.TypeName]{}, Attributes: attrs}
	var comments []string
	for !p.accept(tokRBrace) {
		if tok := p.peek(); tok.kind == tokDocComment {
			p.next()
			comments = append(comments, tok.text)
			continue
		}
		if p.peek().kind == tokEOF {
			return nil, p.fail(diag.KindIncompleteDatatype, p.peek(), "'}'")
		}
		propName, typ, err := p.property()
		if err != nil {
			return nil, err
		}
		typ.Comments = takeComments(&comments)
		dt.Properties.Append(propName, typ)
	}
	if _, err := p.expect(tokSemicolon, diag.KindIncompleteDatatype); err != nil {
		return nil, err
	}
	return ast.DataTypeDecl{Name: name, DataType: dt}, nil
}

func (p *parser) property() (string, ast.TypeName, error) {
	attrs, err := p.attributes()
	if err != nil {
		return "", ast.TypeName{}, err
	}
	name, err := p.ident(diag.KindIncompleteProperty)
	if err != nil {
		return "", ast.TypeName{}, err
	}
	if _, err := p.expect(tokColon, diag.KindIncompleteProperty); err != nil {
		return "", ast.TypeName{}, err
	}
	typ, err := p.typeName(attrs, func(tok token) error {
		return diag.MissingTypeAfter(name, p.span(tok))
	})
	if err != nil {
		return "", ast.TypeName{}, err
	}
	if !p.accept(tokComma) && p.peek().kind != tokRBrace {
		return "", ast.TypeName{}, p.fail(diag.KindIncompleteProperty, p.peek(), "','")
	}
	return name, typ, nil
}

func (p *parser) enumDecl(attrs []ast.Attribute) (ast.Element, error) {
	p.next()
	name, err := p.ident(diag.KindIncompleteEnum)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokLBrace, diag.KindIncompleteEnum); err != nil {
		return nil, err
	}

	en := ast.Enum{Values: ast.OrderedMap[ast.EnumValue]{}, Attributes: attrs}
	var comments []string
	for !p.accept(tokRBrace) {
		if tok := p.peek(); tok.kind == tokDocComment {
			p.next()
			comments = append(comments, tok.text)
			continue
		}
		if p.peek().kind == tokEOF {
			return nil, p.fail(diag.KindIncompleteEnum, p.peek(), "'}'")
		}
		variant, value, err := p.enumValue()
		if err != nil {
			return nil, err
		}
		value.Comments = takeComments(&comments)
		en.Values.Append(variant, value)
	}
	if _, err := p.expect(tokSemicolon, diag.KindIncompleteEnum); err != nil {
		return nil, err
	}
	return ast.EnumDecl{Name: name, Enum: en}, nil
}

func (p *parser) enumValue() (string, ast.EnumValue, error) {
	attrs, err := p.attributes()
	if err != nil {
		return "", ast.EnumValue{}, err
	}
	name, err := p.ident(diag.KindIncompleteEnumValue)
	if err != nil {
		return "", ast.EnumValue{}, err
	}
	value := ast.EnumValue{Attributes: attrs}
	if p.accept(tokEquals) {
		tok := p.peek()
		if tok.kind != tokInt {
			return "", ast.EnumValue{}, p.fail(diag.KindInvalidEnumValue, tok, "integer")
		}
		n, err := strconv.ParseInt(tok.text, 10, 64)
		if err != nil {
			return "", ast.EnumValue{}, diag.New(diag.KindInvalidEnumValue, p.span(tok), tok.text+" does not fit in 64 bits")
		}
		p.next()
		value.Value = &n
	}
	if !p.accept(tokComma) && p.peek().kind != tokRBrace {
		return "", ast.EnumValue{}, p.fail(diag.KindIncompleteEnumValue, p.peek(), "','")
	}
	return name, value, nil
}

func (p *parser) serviceDecl(attrs []ast.Attribute) (ast.Element, error) {
	p.next()
	name, err := p.ident(diag.KindIncompleteService)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokLBrace, diag.KindIncompleteService); err != nil {
		return nil, err
	}

	body := []ast.ServiceElement{}
	for !p.accept(tokRBrace) {
		if tok := p.peek(); tok.kind == tokDocComment {
			p.next()
			body = append(body, ast.ServiceComment{Text: tok.text})
			continue
		}
		el, err := p.serviceElement()
		if err != nil {
			return nil, err
		}
		body = append(body, el)
	}
	if _, err := p.expect(tokSemicolon, diag.KindIncompleteService); err != nil {
		return nil, err
	}
	return ast.ServiceDecl{Name: name, Body: body, Attributes: attrs}, nil
}

func (p *parser) serviceElement() (ast.ServiceElement, error) {
	attrs, err := p.attributes()
	if err != nil {
		return nil, err
	}
	tok := p.peek()
	if tok.kind == tokIdent {
		switch tok.text {
		case "depends":
			return p.dependency(attrs)
		case "fn":
			return p.function(attrs)
		case "handles":
			p.notify(diag.SeverityDeprecation, tok, "'handles' is deprecated, use 'fn'")
			return p.function(attrs)
		case "event":
			return p.event(attrs)
		}
	}
	return nil, p.fail(diag.KindIncompleteService, tok, "'depends on', 'fn', 'event' or '}'")
}

func (p *parser) dependency(attrs []ast.Attribute) (ast.ServiceElement, error) {
	p.next()
	if err := p.keyword("on", diag.KindIncompleteDepends); err != nil {
		return nil, err
	}
	path, err := p.path(diag.KindIncompleteDepends)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokSemicolon, diag.KindIncompleteDepends); err != nil {
		return nil, err
	}
	return ast.DependencyDecl{Dependency: ast.Dependency{
		Name:       path,
		Attributes: attrs,
		Comments:   []string{},
	}}, nil
}

func (p *parser) function(attrs []ast.Attribute) (ast.ServiceElement, error) {
	p.next()
	name, err := p.ident(diag.KindIncompleteCall)
	if err != nil {
		return nil, err
	}
	args, err := p.arguments(diag.KindIncompleteCall)
	if err != nil {
		return nil, err
	}
	fn := ast.Function{Arguments: args, Attributes: attrs, Comments: []string{}}
	if p.accept(tokArrow) {
		ret, err := p.typeName(nil, func(tok token) error {
			return p.fail(diag.KindIncompleteCall, tok, "return type")
		})
		if err != nil {
			return nil, err
		}
		fn.ReturnType = &ret
	}
	if _, err := p.expect(tokSemicolon, diag.KindIncompleteCall); err != nil {
		return nil, err
	}
	return ast.FunctionDecl{Name: name, Function: fn}, nil
}

func (p *parser) event(attrs []ast.Attribute) (ast.ServiceElement, error) {
	p.next()
	name, err := p.ident(diag.KindIncompleteEvent)
	if err != nil {
		return nil, err
	}
	args, err := p.arguments(diag.KindIncompleteEvent)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokSemicolon, diag.KindIncompleteEvent); err != nil {
		return nil, err
	}
	return ast.EventDecl{Name: name, Event: ast.Event{Arguments: args, Attributes: attrs, Comments: []string{}}}, nil
}

// arguments parses `( [arg {, arg} [,]] )`.
func (p *parser) arguments(errKind diag.Kind) (ast.OrderedMap[ast.TypeName], error) {
	if _, err := p.expect(tokLParen, errKind); err != nil {
		return nil, err
	}
	args := ast.OrderedMap[ast.TypeName]{}
	for !p.accept(tokRParen) {
		attrs, err := p.attributes()
		if err != nil {
			return nil, err
		}
		name, err := p.ident(diag.KindIncompleteArgumentIdent)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokColon, diag.KindIncompleteArgumentIdent); err != nil {
			return nil, err
		}
		typ, err := p.typeName(attrs, func(tok token) error {
			return diag.MissingTypeAfter(name, p.span(tok))
		})
		if err != nil {
			return nil, err
		}
		args.Append(name, typ)
		if !p.accept(tokComma) && p.peek().kind != tokRParen {
			return nil, p.fail(errKind, p.peek(), "',' or ')'")
		}
	}
	return args, nil
}

// typeName parses `[N of | list of] path`. missing builds the error for a
// type that does not start with an identifier.
func (p *parser) typeName(attrs []ast.Attribute, missing func(token) error) (ast.TypeName, error) {
	isList := false
	var count *int

	first, second := p.peek(), p.peekAt(1)
	ofFollows := second.kind == tokIdent && second.text == "of"
	switch {
	case first.kind == tokInt && ofFollows:
		n, err := strconv.Atoi(first.text)
		if err != nil || n < 0 {
			return ast.TypeName{}, diag.New(diag.KindOther, p.span(first), "invalid list size "+first.text)
		}
		count = &n
		p.next()
		p.next()
	case first.kind == tokIdent && first.text == "list" && ofFollows:
		isList = true
		p.next()
		p.next()
	}

	if p.peek().kind != tokIdent {
		return ast.TypeName{}, missing(p.peek())
	}
	typ, err := p.path(diag.KindIncompleteName)
	if err != nil {
		return ast.TypeName{}, err
	}
	return ast.NewTypeName(typ, isList, count, attrs), nil
}

func (p *parser) path(errKind diag.Kind) (ast.Namespace, error) {
	first, err := p.ident(errKind)
	if err != nil {
		return ast.Namespace{}, err
	}
	segments := []string{first}
	for p.accept(tokPathSep) {
		seg, err := p.ident(diag.KindIncompleteName)
		if err != nil {
			return ast.Namespace{}, err
		}
		segments = append(segments, seg)
	}
	return ast.Namespace{Components: segments}, nil
}

// attributes parses any number of `#[...]` groups into one list. The result
// is never nil.
func (p *parser) attributes() ([]ast.Attribute, error) {
	attrs := []ast.Attribute{}
	for p.accept(tokAttrOpen) {
		for {
			attr, err := p.attribute()
			if err != nil {
				return nil, err
			}
			attrs = append(attrs, attr)
			if p.accept(tokRBracket) {
				break
			}
			if !p.accept(tokComma) {
				return nil, p.fail(diag.KindIncompleteAttribute, p.peek(), "',' or ']'")
			}
		}
	}
	return attrs, nil
}

func (p *parser) attribute() (ast.Attribute, error) {
	name, err := p.path(diag.KindIncompleteAttribute)
	if err != nil {
		return ast.Attribute{}, err
	}
	attr := ast.Attribute{Name: name, Parameters: []ast.Parameter{}}
	if !p.accept(tokLParen) {
		return attr, nil
	}
	for !p.accept(tokRParen) {
		param, err := p.parameter()
		if err != nil {
			return ast.Attribute{}, err
		}
		attr.Parameters = append(attr.Parameters, param)
		if !p.accept(tokComma) && p.peek().kind != tokRParen {
			return ast.Attribute{}, p.fail(diag.KindIncompleteAttributeArg, p.peek(), "',' or ')'")
		}
	}
	return attr, nil
}

func (p *parser) parameter() (ast.Parameter, error) {
	name, err := p.ident(diag.KindIncompleteAttributeArg)
	if err != nil {
		return ast.Parameter{}, err
	}
	if !p.accept(tokEquals) {
		return ast.Parameter{Name: name}, nil
	}
	tok, err := p.expect(tokString, diag.KindIncompleteAttributeArg)
	if err != nil {
		return ast.Parameter{}, err
	}
	value := tok.text
	return ast.Parameter{Name: name, Value: &value}, nil
}

func takeComments(buf *[]string) []string {
	out := *buf
	*buf = nil
	if out == nil {
		return []string{}
	}
	return out
}
