// Package diag holds the error and diagnostic values shared by the parser,
// the assembler and the pretty-printer.
package diag

import (
	"fmt"
	"strings"
)

// Kind identifies the grammar production (or semantic check) that failed.
type Kind int

const (
	KindOther Kind = iota
	KindIncompleteImport
	KindIncompleteDatatype
	KindIncompleteProperty
	KindMissingTypeAfter
	KindIncompleteEnum
	KindIncompleteEnumValue
	KindInvalidEnumValue
	KindIncompleteService
	KindIncompleteDepends
	KindIncompleteCall
	KindIncompleteEvent
	KindIncompleteArgumentIdent
	KindIncompleteAttributeArg
	KindIncompleteAttribute
	KindIncompleteName
	KindUnexpectedElement
	KindDuplicateDeclaration
)

var kindNames = map[Kind]string{
	KindOther:                   "other",
	KindIncompleteImport:        "incomplete import",
	KindIncompleteDatatype:      "incomplete data type",
	KindIncompleteProperty:      "incomplete property",
	KindMissingTypeAfter:        "missing type",
	KindIncompleteEnum:          "incomplete enum",
	KindIncompleteEnumValue:     "incomplete enum value",
	KindInvalidEnumValue:        "invalid enum value",
	KindIncompleteService:       "incomplete service",
	KindIncompleteDepends:       "incomplete dependency",
	KindIncompleteCall:          "incomplete function",
	KindIncompleteEvent:         "incomplete event",
	KindIncompleteArgumentIdent: "incomplete argument",
	KindIncompleteAttributeArg:  "incomplete attribute parameter",
	KindIncompleteAttribute:     "incomplete attribute",
	KindIncompleteName:          "incomplete name",
	KindUnexpectedElement:       "unexpected element",
	KindDuplicateDeclaration:    "duplicate declaration",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Span locates the offending source text. Line and Column are 1-based; a zero
// Line means the position is unknown (e.g. errors raised during assembly).
type Span struct {
	Line   int    `json:"line"`
	Column int    `json:"column"`
	Text   string `json:"text"`
}

func (s Span) String() string {
	text := s.Text
	if len(text) > 60 {
		text = text[:57] + "..."
	}
	text = strings.ReplaceAll(text, "\n", "\\n")
	switch {
	case s.Line == 0 && text == "":
		return ""
	case s.Line == 0:
		return fmt.Sprintf("%q", text)
	case text == "":
		return fmt.Sprintf("%d:%d", s.Line, s.Column)
	default:
		return fmt.Sprintf("%d:%d %q", s.Line, s.Column, text)
	}
}

// ParseError is returned for syntax errors and for duplicate declarations.
// Name carries the property name for KindMissingTypeAfter and the declaration
// name for KindDuplicateDeclaration; DeclKind names what was duplicated.
type ParseError struct {
	Kind     Kind
	Span     Span
	Detail   string
	Name     string
	DeclKind string
}

func (e *ParseError) Error() string {
	var b strings.Builder
	switch e.Kind {
	case KindMissingTypeAfter:
		fmt.Fprintf(&b, "missing type after %q", e.Name)
	case KindDuplicateDeclaration:
		fmt.Fprintf(&b, "duplicate %s %q", e.DeclKind, e.Name)
	default:
		b.WriteString(e.Kind.String())
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if span := e.Span.String(); span != "" {
		b.WriteString(" at ")
		b.WriteString(span)
	}
	return b.String()
}

// Is makes errors.Is match on Kind, so callers can test with a bare
// &ParseError{Kind: ...} target.
func (e *ParseError) Is(target error) bool {
	t, ok := target.(*ParseError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func New(kind Kind, span Span, detail string) *ParseError {
	return &ParseError{Kind: kind, Span: span, Detail: detail}
}

func MissingTypeAfter(name string, span Span) *ParseError {
	return &ParseError{Kind: KindMissingTypeAfter, Span: span, Name: name}
}

func Duplicate(declKind, name string) *ParseError {
	return &ParseError{
		Kind:     KindDuplicateDeclaration,
		Span:     Span{Text: name},
		Name:     name,
		DeclKind: declKind,
	}
}

// RoundTripError reports that printing and re-parsing a document did not
// reproduce it. This is an internal-consistency failure: the grammar and the
// printer disagree, the input itself was fine.
type RoundTripError struct {
	// Index is the position of the first mismatching top-level element, or -1
	// when the element counts differ or the rendered text failed to parse.
	Index    int
	Original string
	Reparsed string
	Err      error
}

func (e *RoundTripError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("round-trip check failed: rendered output does not parse: %v", e.Err)
	}
	if e.Index < 0 {
		return fmt.Sprintf("round-trip check failed: element count differs\noriginal: %s\nreparsed: %s", e.Original, e.Reparsed)
	}
	return fmt.Sprintf("round-trip check failed at element %d\noriginal: %s\nreparsed: %s", e.Index, e.Original, e.Reparsed)
}

func (e *RoundTripError) Unwrap() error {
	return e.Err
}
