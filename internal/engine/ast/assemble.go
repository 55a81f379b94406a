package ast

import (
	"fmt"

	"ssd/internal/engine/diag"
)

// Assemble folds the raw element sequence into a Module. Comments are buffered
// and attached to the next declaration; a comment with no following
// declaration is dropped. Repeated names in any ordered mapping are reported
// as a duplicate-declaration ParseError.
func Assemble(ns Namespace, raw []Element) (Module, error) {
	m := Module{
		Namespace: ns,
		Imports:   []Import{},
		DataTypes: OrderedMap[DataType]{},
		Enums:     OrderedMap[Enum]{},
		Services:  OrderedMap[Service]{},
	}
	var comments []string

	for _, el := range raw {
		switch e := el.(type) {
		case Comment:
			comments = append(comments, e.Text)
		case ImportDecl:
			imp := e.Import
			imp.Comments = drain(&comments)
			m.Imports = append(m.Imports, imp)
		case DataTypeDecl:
			dt := e.DataType
			if err := checkTypeMap(dt.Properties, "property", "data "+e.Name); err != nil {
				return Module{}, err
			}
			dt.Comments = drain(&comments)
			if !m.DataTypes.Insert(e.Name, dt) {
				return Module{}, diag.Duplicate("data type", e.Name)
			}
		case EnumDecl:
			en := e.Enum
			if name, dup := en.Values.FirstDuplicate(); dup {
				return Module{}, withDetail(diag.Duplicate("enum value", name), "enum "+e.Name)
			}
			en.Comments = drain(&comments)
			if !m.Enums.Insert(e.Name, en) {
				return Module{}, diag.Duplicate("enum", e.Name)
			}
		case ServiceDecl:
			svc, err := AssembleService(e.Body, e.Attributes)
			if err != nil {
				return Module{}, withDetail(err, "service "+e.Name)
			}
			svc.Comments = drain(&comments)
			if !m.Services.Insert(e.Name, svc) {
				return Module{}, diag.Duplicate("service", e.Name)
			}
		default:
			return Module{}, diag.New(diag.KindUnexpectedElement, diag.Span{}, fmt.Sprintf("%T", el))
		}
	}
	return m, nil
}

// AssembleService folds a raw service body. Dependencies keep their order and
// are never deduplicated.
func AssembleService(raw []ServiceElement, attributes []Attribute) (Service, error) {
	svc := foldService(raw, attributes)
	if name, dup := svc.Functions.FirstDuplicate(); dup {
		return Service{}, diag.Duplicate("function", name)
	}
	if name, dup := svc.Events.FirstDuplicate(); dup {
		return Service{}, diag.Duplicate("event", name)
	}
	for _, f := range svc.Functions {
		if err := checkTypeMap(f.Value.Arguments, "argument", "function "+f.Name); err != nil {
			return Service{}, err
		}
	}
	for _, ev := range svc.Events {
		if err := checkTypeMap(ev.Value.Arguments, "argument", "event "+ev.Name); err != nil {
			return Service{}, err
		}
	}
	return svc, nil
}

// FoldService is the non-validating form of AssembleService: repeated names are
// kept as separate entries. The printer uses it to compare service bodies.
func FoldService(raw []ServiceElement, attributes []Attribute) Service {
	return foldService(raw, attributes)
}

func foldService(raw []ServiceElement, attributes []Attribute) Service {
	if attributes == nil {
		attributes = []Attribute{}
	}
	svc := Service{
		Dependencies: []Dependency{},
		Functions:    OrderedMap[Function]{},
		Events:       OrderedMap[Event]{},
		Attributes:   attributes,
	}
	var comments []string
	for _, el := range raw {
		switch e := el.(type) {
		case ServiceComment:
			comments = append(comments, e.Text)
		case DependencyDecl:
			dep := e.Dependency
			dep.Comments = drainInto(dep.Comments, &comments)
			svc.Dependencies = append(svc.Dependencies, dep)
		case FunctionDecl:
			fn := e.Function
			fn.Comments = drainInto(fn.Comments, &comments)
			svc.Functions.Append(e.Name, fn)
		case EventDecl:
			ev := e.Event
			ev.Comments = drainInto(ev.Comments, &comments)
			svc.Events.Append(e.Name, ev)
		}
	}
	return svc
}

func checkTypeMap(m OrderedMap[TypeName], kind, owner string) error {
	if name, dup := m.FirstDuplicate(); dup {
		return withDetail(diag.Duplicate(kind, name), owner)
	}
	return nil
}

func withDetail(err error, detail string) error {
	if pe, ok := err.(*diag.ParseError); ok && pe.Detail == "" {
		pe.Detail = "in " + detail
	}
	return err
}

// drain hands over the buffered comments and resets the buffer. The result is
// never nil.
func drain(buf *[]string) []string {
	out := *buf
	*buf = nil
	if out == nil {
		return []string{}
	}
	return out
}

func drainInto(existing []string, buf *[]string) []string {
	if len(existing) == 0 {
		return drain(buf)
	}
	out := append(drain(buf), existing...)
	return out
}
