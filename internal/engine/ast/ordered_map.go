package ast

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

type Entry[T any] struct {
	Name  string
	Value T
}

// OrderedMap keeps insertion order, which decides generated output order.
// It serializes as a list of [name, value] pairs. Raw (unassembled) values may
// hold repeated names; Assemble rejects them.
type OrderedMap[T any] []Entry[T]

func (m OrderedMap[T]) Len() int {
	return len(m)
}

func (m OrderedMap[T]) Get(name string) (T, bool) {
	for _, e := range m {
		if e.Name == name {
			return e.Value, true
		}
	}
	var zero T
	return zero, false
}

func (m OrderedMap[T]) Has(name string) bool {
	_, ok := m.Get(name)
	return ok
}

func (m OrderedMap[T]) Keys() []string {
	keys := make([]string, len(m))
	for i, e := range m {
		keys[i] = e.Name
	}
	return keys
}

func (m OrderedMap[T]) Values() []T {
	values := make([]T, len(m))
	for i, e := range m {
		values[i] = e.Value
	}
	return values
}

// Append adds an entry without checking for an existing name.
func (m *OrderedMap[T]) Append(name string, value T) {
	*m = append(*m, Entry[T]{Name: name, Value: value})
}

// Insert adds an entry and reports false, leaving the map untouched, when the
// name already exists.
func (m *OrderedMap[T]) Insert(name string, value T) bool {
	if m.Has(name) {
		return false
	}
	m.Append(name, value)
	return true
}

// FirstDuplicate returns the first name that occurs more than once.
func (m OrderedMap[T]) FirstDuplicate() (string, bool) {
	seen := make(map[string]struct{}, len(m))
	for _, e := range m {
		if _, ok := seen[e.Name]; ok {
			return e.Name, true
		}
		seen[e.Name] = struct{}{}
	}
	return "", false
}

func (m OrderedMap[T]) MarshalJSON() ([]byte, error) {
	pairs := make([][2]any, len(m))
	for i, e := range m {
		pairs[i] = [2]any{e.Name, e.Value}
	}
	return json.Marshal(pairs)
}

func (m *OrderedMap[T]) UnmarshalJSON(data []byte) error {
	var pairs [][2]json.RawMessage
	if err := json.Unmarshal(data, &pairs); err != nil {
		return err
	}
	out := make(OrderedMap[T], 0, len(pairs))
	for i, p := range pairs {
		var name string
		if err := json.Unmarshal(p[0], &name); err != nil {
			return fmt.Errorf("entry %d: name: %w", i, err)
		}
		var value T
		if err := json.Unmarshal(p[1], &value); err != nil {
			return fmt.Errorf("entry %d (%s): %w", i, name, err)
		}
		out = append(out, Entry[T]{Name: name, Value: value})
	}
	*m = out
	return nil
}

func (m OrderedMap[T]) MarshalYAML() (any, error) {
	pairs := make([][2]any, len(m))
	for i, e := range m {
		pairs[i] = [2]any{e.Name, e.Value}
	}
	return pairs, nil
}

func (m *OrderedMap[T]) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.SequenceNode {
		return fmt.Errorf("line %d: expected a sequence of [name, value] pairs", node.Line)
	}
	out := make(OrderedMap[T], 0, len(node.Content))
	for _, pair := range node.Content {
		if pair.Kind != yaml.SequenceNode || len(pair.Content) != 2 {
			return fmt.Errorf("line %d: expected a [name, value] pair", pair.Line)
		}
		var name string
		if err := pair.Content[0].Decode(&name); err != nil {
			return err
		}
		var value T
		if err := pair.Content[1].Decode(&value); err != nil {
			return err
		}
		out = append(out, Entry[T]{Name: name, Value: value})
	}
	*m = out
	return nil
}
