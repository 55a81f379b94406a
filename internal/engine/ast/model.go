// Package ast defines the SSD document model: the raw, order-preserving
// element sequence produced by the parser and the assembled Module handed to
// generators.
package ast

import "strconv"

// Parameter is one attribute argument, `key` or `key = "value"`.
type Parameter struct {
	Name  string  `json:"name" yaml:"name"`
	Value *string `json:"value" yaml:"value"`
}

type Attribute struct {
	Name       Namespace   `json:"name" yaml:"name"`
	Parameters []Parameter `json:"parameters" yaml:"parameters"`
}

// TypeName is a type reference with its list modifier. IsList false implies
// Count nil; a non-nil Count is a fixed-size list.
type TypeName struct {
	Typ        Namespace   `json:"typ" yaml:"typ"`
	IsList     bool        `json:"is_list" yaml:"is_list"`
	Count      *int        `json:"count" yaml:"count"`
	Attributes []Attribute `json:"attributes" yaml:"attributes"`
	Comments   []string    `json:"comments" yaml:"comments"`
}

type DataType struct {
	Properties OrderedMap[TypeName] `json:"properties" yaml:"properties"`
	Attributes []Attribute          `json:"attributes" yaml:"attributes"`
	Comments   []string             `json:"comments,omitempty" yaml:"comments,omitempty"`
}

type EnumValue struct {
	Value      *int64      `json:"value" yaml:"value"`
	Attributes []Attribute `json:"attributes" yaml:"attributes"`
	Comments   []string    `json:"comments" yaml:"comments"`
}

type Enum struct {
	Values     OrderedMap[EnumValue] `json:"values" yaml:"values"`
	Attributes []Attribute           `json:"attributes" yaml:"attributes"`
	Comments   []string              `json:"comments,omitempty" yaml:"comments,omitempty"`
}

type Dependency struct {
	Name       Namespace   `json:"name" yaml:"name"`
	Attributes []Attribute `json:"attributes" yaml:"attributes"`
	Comments   []string    `json:"comments" yaml:"comments"`
}

type Function struct {
	Arguments  OrderedMap[TypeName] `json:"arguments" yaml:"arguments"`
	ReturnType *TypeName            `json:"return_type" yaml:"return_type"`
	Attributes []Attribute          `json:"attributes" yaml:"attributes"`
	Comments   []string             `json:"comments" yaml:"comments"`
}

type Event struct {
	Arguments  OrderedMap[TypeName] `json:"arguments" yaml:"arguments"`
	Attributes []Attribute          `json:"attributes" yaml:"attributes"`
	Comments   []string             `json:"comments" yaml:"comments"`
}

// Service keeps dependencies as a plain list: order matters to generators and
// repeated entries are preserved.
type Service struct {
	Dependencies []Dependency         `json:"dependencies" yaml:"dependencies"`
	Functions    OrderedMap[Function] `json:"functions" yaml:"functions"`
	Events       OrderedMap[Event]    `json:"events" yaml:"events"`
	Attributes   []Attribute          `json:"attributes" yaml:"attributes"`
	Comments     []string             `json:"comments,omitempty" yaml:"comments,omitempty"`
}

type Import struct {
	Path       Namespace   `json:"path" yaml:"path"`
	Attributes []Attribute `json:"attributes" yaml:"attributes"`
	Comments   []string    `json:"comments,omitempty" yaml:"comments,omitempty"`
}

// Module is one assembled source file. Its Namespace comes from the caller
// (usually the file location), never from the source text.
type Module struct {
	Namespace Namespace            `json:"namespace" yaml:"namespace"`
	Imports   []Import             `json:"imports" yaml:"imports"`
	DataTypes OrderedMap[DataType] `json:"data_types" yaml:"data_types"`
	Enums     OrderedMap[Enum]     `json:"enums" yaml:"enums"`
	Services  OrderedMap[Service]  `json:"services" yaml:"services"`
}

// NewTypeName builds a type reference. A count forces IsList.
func NewTypeName(typ Namespace, isList bool, count *int, attributes []Attribute) TypeName {
	if count != nil {
		isList = true
	}
	if attributes == nil {
		attributes = []Attribute{}
	}
	return TypeName{
		Typ:        typ,
		IsList:     isList,
		Count:      count,
		Attributes: attributes,
		Comments:   []string{},
	}
}

// Handlers is the deprecated name of Functions.
func (s Service) Handlers() OrderedMap[Function] {
	return s.Functions
}

// TypeString renders the type reference the way the source text spells it.
func (t TypeName) TypeString() string {
	if !t.IsList {
		return t.Typ.String()
	}
	if t.Count != nil {
		return strconv.Itoa(*t.Count) + " of " + t.Typ.String()
	}
	return "list of " + t.Typ.String()
}
