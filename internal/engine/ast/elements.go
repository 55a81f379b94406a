package ast

import "encoding/json"

// Element is one top-level item of the raw document, in source order:
// Comment, ImportDecl, DataTypeDecl, EnumDecl or ServiceDecl.
type Element interface {
	isElement()
}

// ServiceElement is one item of a raw service body: ServiceComment,
// DependencyDecl, FunctionDecl or EventDecl.
type ServiceElement interface {
	isServiceElement()
}

type Comment struct {
	Text string
}

type ImportDecl struct {
	Import Import
}

type DataTypeDecl struct {
	Name     string
	DataType DataType
}

type EnumDecl struct {
	Name string
	Enum Enum
}

// ServiceDecl keeps the body unfolded so comments and declaration order
// survive until assembly.
type ServiceDecl struct {
	Name       string
	Body       []ServiceElement
	Attributes []Attribute
}

type ServiceComment struct {
	Text string
}

type DependencyDecl struct {
	Dependency Dependency
}

type FunctionDecl struct {
	Name     string
	Function Function
}

type EventDecl struct {
	Name  string
	Event Event
}

func (Comment) isElement()      {}
func (ImportDecl) isElement()   {}
func (DataTypeDecl) isElement() {}
func (EnumDecl) isElement()     {}
func (ServiceDecl) isElement()  {}

func (ServiceComment) isServiceElement() {}
func (DependencyDecl) isServiceElement() {}
func (FunctionDecl) isServiceElement()   {}
func (EventDecl) isServiceElement()      {}

// The JSON form is externally tagged: {"Comment": "..."},
// {"DataType": ["Name", {...}]}, {"Service": ["Name", [...], [...]]}.

func tagged(tag string, v any) ([]byte, error) {
	return json.Marshal(map[string]any{tag: v})
}

func (c Comment) MarshalJSON() ([]byte, error) {
	return tagged("Comment", c.Text)
}

func (d ImportDecl) MarshalJSON() ([]byte, error) {
	return tagged("Import", d.Import)
}

func (d DataTypeDecl) MarshalJSON() ([]byte, error) {
	return tagged("DataType", [2]any{d.Name, d.DataType})
}

func (d EnumDecl) MarshalJSON() ([]byte, error) {
	return tagged("Enum", [2]any{d.Name, d.Enum})
}

func (d ServiceDecl) MarshalJSON() ([]byte, error) {
	body := d.Body
	if body == nil {
		body = []ServiceElement{}
	}
	return tagged("Service", [3]any{d.Name, body, d.Attributes})
}

func (c ServiceComment) MarshalJSON() ([]byte, error) {
	return tagged("Comment", c.Text)
}

func (d DependencyDecl) MarshalJSON() ([]byte, error) {
	return tagged("Dependency", d.Dependency)
}

func (d FunctionDecl) MarshalJSON() ([]byte, error) {
	return tagged("Function", [2]any{d.Name, d.Function})
}

func (d EventDecl) MarshalJSON() ([]byte, error) {
	return tagged("Event", [2]any{d.Name, d.Event})
}
