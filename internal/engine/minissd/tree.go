// Package minissd is a small standalone SSD parser. Its result is a tree of
// singly linked lists owned by a Document; every list ends with a nil Next.
// The tree must be released with Free, after which every accessor panics.
// Doc comments are skipped.
package minissd

import (
	"sync/atomic"
)

type NodeKind int

const (
	NodeImport NodeKind = iota + 1
	NodeData
	NodeEnum
	NodeService
)

func (k NodeKind) String() string {
	switch k {
	case NodeImport:
		return "import"
	case NodeData:
		return "data"
	case NodeEnum:
		return "enum"
	case NodeService:
		return "service"
	default:
		return "unknown"
	}
}

var outstanding atomic.Int64

// Outstanding reports how many documents have been parsed but not freed.
func Outstanding() int64 {
	return outstanding.Load()
}

// Document owns every node reachable from Nodes.
type Document struct {
	first *Node
	arena []any
	freed bool
}

func (d *Document) alive() {
	if d == nil || d.freed {
		panic("minissd: document used after Free")
	}
}

func (d *Document) Nodes() *Node {
	d.alive()
	return d.first
}

// Free releases the tree. It is safe to call more than once.
func (d *Document) Free() {
	if d == nil || d.freed {
		return
	}
	d.freed = true
	d.first = nil
	d.arena = nil
	outstanding.Add(-1)
}

func alloc[T any](d *Document, v *T) *T {
	d.arena = append(d.arena, v)
	return v
}

type Node struct {
	doc          *Document
	kind         NodeKind
	name         string
	attributes   *Attribute
	properties   *Property
	variants     *EnumVariant
	dependencies *Dependency
	handlers     *Handler
	events       *Event
	next         *Node
}

func (n *Node) Kind() NodeKind { n.doc.alive(); return n.kind }

// Name is the declared name, or the "::"-joined path for imports.
func (n *Node) Name() string              { n.doc.alive(); return n.name }
func (n *Node) Attributes() *Attribute    { n.doc.alive(); return n.attributes }
func (n *Node) Properties() *Property     { n.doc.alive(); return n.properties }
func (n *Node) Variants() *EnumVariant    { n.doc.alive(); return n.variants }
func (n *Node) Dependencies() *Dependency { n.doc.alive(); return n.dependencies }
func (n *Node) Handlers() *Handler        { n.doc.alive(); return n.handlers }
func (n *Node) Events() *Event            { n.doc.alive(); return n.events }
func (n *Node) Next() *Node               { n.doc.alive(); return n.next }

type Attribute struct {
	doc        *Document
	name       string
	parameters *Parameter
	next       *Attribute
}

func (a *Attribute) Name() string           { a.doc.alive(); return a.name }
func (a *Attribute) Parameters() *Parameter { a.doc.alive(); return a.parameters }
func (a *Attribute) Next() *Attribute       { a.doc.alive(); return a.next }

type Parameter struct {
	doc      *Document
	name     string
	value    string
	hasValue bool
	next     *Parameter
}

func (p *Parameter) Name() string { p.doc.alive(); return p.name }

func (p *Parameter) Value() (string, bool) {
	p.doc.alive()
	return p.value, p.hasValue
}

func (p *Parameter) Next() *Parameter { p.doc.alive(); return p.next }

// Type is a type reference; Count is only set for `N of T`.
type Type struct {
	doc      *Document
	name     string
	isList   bool
	count    int
	hasCount bool
}

func (t *Type) Name() string { t.doc.alive(); return t.name }
func (t *Type) IsList() bool { t.doc.alive(); return t.isList }

func (t *Type) Count() (int, bool) {
	t.doc.alive()
	return t.count, t.hasCount
}

type Property struct {
	doc        *Document
	name       string
	typ        *Type
	attributes *Attribute
	next       *Property
}

func (p *Property) Name() string           { p.doc.alive(); return p.name }
func (p *Property) Type() *Type            { p.doc.alive(); return p.typ }
func (p *Property) Attributes() *Attribute { p.doc.alive(); return p.attributes }
func (p *Property) Next() *Property        { p.doc.alive(); return p.next }

type EnumVariant struct {
	doc        *Document
	name       string
	value      int64
	hasValue   bool
	attributes *Attribute
	next       *EnumVariant
}

func (v *EnumVariant) Name() string { v.doc.alive(); return v.name }

func (v *EnumVariant) Value() (int64, bool) {
	v.doc.alive()
	return v.value, v.hasValue
}

func (v *EnumVariant) Attributes() *Attribute { v.doc.alive(); return v.attributes }
func (v *EnumVariant) Next() *EnumVariant     { v.doc.alive(); return v.next }

type Dependency struct {
	doc        *Document
	path       string
	attributes *Attribute
	next       *Dependency
	order      int
}

func (d *Dependency) Path() string           { d.doc.alive(); return d.path }
func (d *Dependency) Attributes() *Attribute { d.doc.alive(); return d.attributes }
func (d *Dependency) Next() *Dependency      { d.doc.alive(); return d.next }

// Order is the member's position in the service body.
func (d *Dependency) Order() int { d.doc.alive(); return d.order }

type Argument struct {
	doc        *Document
	name       string
	typ        *Type
	attributes *Attribute
	next       *Argument
}

func (a *Argument) Name() string           { a.doc.alive(); return a.name }
func (a *Argument) Type() *Type            { a.doc.alive(); return a.typ }
func (a *Argument) Attributes() *Attribute { a.doc.alive(); return a.attributes }
func (a *Argument) Next() *Argument        { a.doc.alive(); return a.next }

// Handler is a service function. ReturnType is nil when none is declared.
type Handler struct {
	doc        *Document
	name       string
	arguments  *Argument
	returnType *Type
	attributes *Attribute
	next       *Handler
	order      int
}

func (h *Handler) Name() string           { h.doc.alive(); return h.name }
func (h *Handler) Arguments() *Argument   { h.doc.alive(); return h.arguments }
func (h *Handler) ReturnType() *Type      { h.doc.alive(); return h.returnType }
func (h *Handler) Attributes() *Attribute { h.doc.alive(); return h.attributes }
func (h *Handler) Next() *Handler         { h.doc.alive(); return h.next }
func (h *Handler) Order() int             { h.doc.alive(); return h.order }

type Event struct {
	doc        *Document
	name       string
	arguments  *Argument
	attributes *Attribute
	next       *Event
	order      int
}

func (e *Event) Name() string           { e.doc.alive(); return e.name }
func (e *Event) Arguments() *Argument   { e.doc.alive(); return e.arguments }
func (e *Event) Attributes() *Attribute { e.doc.alive(); return e.attributes }
func (e *Event) Next() *Event           { e.doc.alive(); return e.next }
func (e *Event) Order() int             { e.doc.alive(); return e.order }
