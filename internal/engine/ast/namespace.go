package ast

import "strings"

// Separator joins namespace components in the canonical text form.
const Separator = "::"

// Namespace is an ordered path such as some::other::module. Equality is by
// component sequence.
type Namespace struct {
	Components []string `json:"components" yaml:"components"`
}

// NewNamespace splits a canonical "::"-joined path.
func NewNamespace(path string) Namespace {
	return Namespace{Components: strings.Split(path, Separator)}
}

func NamespaceFromSegments(segments []string) Namespace {
	out := make([]string, len(segments))
	copy(out, segments)
	return Namespace{Components: out}
}

func (n Namespace) String() string {
	return strings.Join(n.Components, Separator)
}

// Join renders the namespace with a custom separator, e.g. "." or "/".
func (n Namespace) Join(sep string) string {
	return strings.Join(n.Components, sep)
}

func (n Namespace) IsZero() bool {
	return len(n.Components) == 0
}

func (n Namespace) Equal(other Namespace) bool {
	if len(n.Components) != len(other.Components) {
		return false
	}
	for i := range n.Components {
		if n.Components[i] != other.Components[i] {
			return false
		}
	}
	return true
}

// Valid reports whether the namespace is non-empty and no component is empty
// or contains the separator.
func (n Namespace) Valid() bool {
	if len(n.Components) == 0 {
		return false
	}
	for _, c := range n.Components {
		if c == "" || strings.Contains(c, Separator) {
			return false
		}
	}
	return true
}
