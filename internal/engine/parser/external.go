package parser

import (
	"errors"
	"fmt"
	"sort"

	"ssd/internal/engine/ast"
	"ssd/internal/engine/diag"
	"ssd/internal/engine/minissd"
)

// Backend selects the implementation used to produce the raw element sequence.
type Backend string

const (
	BackendNative  Backend = "native"
	BackendMiniSSD Backend = "minissd"
)

func ParseBackend(name string) (Backend, error) {
	switch Backend(name) {
	case "", BackendNative:
		return BackendNative, nil
	case BackendMiniSSD:
		return BackendMiniSSD, nil
	}
	return "", fmt.Errorf("unknown parser backend %q", name)
}

// ParseRawWith dispatches to the selected backend.
func ParseRawWith(backend Backend, src string, opts ...Option) ([]ast.Element, error) {
	if backend == BackendMiniSSD {
		return ParseRawExternal(src)
	}
	return ParseRaw(src, opts...)
}

// ParseRawExternal parses src with the minissd backend and copies its tree
// into raw elements. The foreign document is walked once and freed before
// returning, on every path. minissd drops doc comments, so the result only
// matches ParseRaw for comment-free input.
func ParseRawExternal(src string) ([]ast.Element, error) {
	doc, err := minissd.Parse(src)
	if err != nil {
		return nil, foreignError(err)
	}
	defer doc.Free()

	elements := []ast.Element{}
	for n := doc.Nodes(); n != nil; n = n.Next() {
		attrs := foreignAttributes(n.Attributes())
		switch n.Kind() {
		case minissd.NodeImport:
			elements = append(elements, ast.ImportDecl{Import: ast.Import{
				Path:       ast.NewNamespace(n.Name()),
				Attributes: attrs,
			}})
		case minissd.NodeData:
			dt := ast.DataType{Properties: ast.OrderedMap[ast.TypeName]{}, Attributes: attrs}
			for p := n.Properties(); p != nil; p = p.Next() {
				dt.Properties.Append(p.Name(), foreignType(p.Type(), foreignAttributes(p.Attributes())))
			}
			elements = append(elements, ast.DataTypeDecl{Name: n.Name(), DataType: dt})
		case minissd.NodeEnum:
			en := ast.Enum{Values: ast.OrderedMap[ast.EnumValue]{}, Attributes: attrs}
			for v := n.Variants(); v != nil; v = v.Next() {
				value := ast.EnumValue{Attributes: foreignAttributes(v.Attributes()), Comments: []string{}}
				if x, ok := v.Value(); ok {
					value.Value = &x
				}
				en.Values.Append(v.Name(), value)
			}
			elements = append(elements, ast.EnumDecl{Name: n.Name(), Enum: en})
		case minissd.NodeService:
			elements = append(elements, ast.ServiceDecl{
				Name:       n.Name(),
				Body:       foreignServiceBody(n),
				Attributes: attrs,
			})
		default:
			return nil, diag.New(diag.KindUnexpectedElement, diag.Span{Text: n.Name()}, "unknown node kind "+n.Kind().String())
		}
	}
	return elements, nil
}

// minissd keeps one list per member kind; Order restores source order.
func foreignServiceBody(n *minissd.Node) []ast.ServiceElement {
	type member struct {
		order int
		el    ast.ServiceElement
	}
	var members []member
	for d := n.Dependencies(); d != nil; d = d.Next() {
		members = append(members, member{d.Order(), ast.DependencyDecl{Dependency: ast.Dependency{
			Name:       ast.NewNamespace(d.Path()),
			Attributes: foreignAttributes(d.Attributes()),
			Comments:   []string{},
		}}})
	}
	for h := n.Handlers(); h != nil; h = h.Next() {
		fn := ast.Function{
			Arguments:  foreignArguments(h.Arguments()),
			Attributes: foreignAttributes(h.Attributes()),
			Comments:   []string{},
		}
		if rt := h.ReturnType(); rt != nil {
			t := foreignType(rt, nil)
			fn.ReturnType = &t
		}
		members = append(members, member{h.Order(), ast.FunctionDecl{Name: h.Name(), Function: fn}})
	}
	for e := n.Events(); e != nil; e = e.Next() {
		members = append(members, member{e.Order(), ast.EventDecl{Name: e.Name(), Event: ast.Event{
			Arguments:  foreignArguments(e.Arguments()),
			Attributes: foreignAttributes(e.Attributes()),
			Comments:   []string{},
		}}})
	}
	sort.SliceStable(members, func(i, j int) bool { return members[i].order < members[j].order })

	body := make([]ast.ServiceElement, len(members))
	for i, m := range members {
		body[i] = m.el
	}
	return body
}

func foreignArguments(a *minissd.Argument) ast.OrderedMap[ast.TypeName] {
	args := ast.OrderedMap[ast.TypeName]{}
	for ; a != nil; a = a.Next() {
		args.Append(a.Name(), foreignType(a.Type(), foreignAttributes(a.Attributes())))
	}
	return args
}

func foreignType(t *minissd.Type, attrs []ast.Attribute) ast.TypeName {
	var count *int
	if n, ok := t.Count(); ok {
		count = &n
	}
	return ast.NewTypeName(ast.NewNamespace(t.Name()), t.IsList(), count, attrs)
}

func foreignAttributes(a *minissd.Attribute) []ast.Attribute {
	attrs := []ast.Attribute{}
	for ; a != nil; a = a.Next() {
		attr := ast.Attribute{Name: ast.NewNamespace(a.Name()), Parameters: []ast.Parameter{}}
		for p := a.Parameters(); p != nil; p = p.Next() {
			param := ast.Parameter{Name: p.Name()}
			if v, ok := p.Value(); ok {
				param.Value = &v
			}
			attr.Parameters = append(attr.Parameters, param)
		}
		attrs = append(attrs, attr)
	}
	return attrs
}

var foreignKinds = map[string]diag.Kind{
	"import":    diag.KindIncompleteImport,
	"data":      diag.KindIncompleteDatatype,
	"property":  diag.KindIncompleteProperty,
	"enum":      diag.KindIncompleteEnum,
	"variant":   diag.KindIncompleteEnumValue,
	"service":   diag.KindIncompleteService,
	"depends":   diag.KindIncompleteDepends,
	"handler":   diag.KindIncompleteCall,
	"event":     diag.KindIncompleteEvent,
	"argument":  diag.KindIncompleteArgumentIdent,
	"attribute": diag.KindIncompleteAttribute,
	"parameter": diag.KindIncompleteAttributeArg,
	"name":      diag.KindIncompleteName,
	"file":      diag.KindUnexpectedElement,
}

func foreignError(err error) error {
	var se *minissd.SyntaxError
	if !errors.As(err, &se) {
		return diag.New(diag.KindOther, diag.Span{}, err.Error())
	}
	kind, ok := foreignKinds[se.Context]
	if !ok {
		kind = diag.KindOther
	}
	return diag.New(kind, diag.Span{Line: se.Line, Column: se.Column}, se.Msg)
}
