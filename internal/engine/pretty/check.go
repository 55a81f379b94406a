package pretty

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"

	"ssd/internal/engine/ast"
	"ssd/internal/engine/diag"
	"ssd/internal/engine/parser"
)

// Check renders raw, parses the result again and compares both documents
// element by element. Service bodies are compared in folded form, so comment
// grouping inside a service does not count as a difference. A mismatch is
// returned as *diag.RoundTripError together with the rendered text.
func Check(raw []ast.Element) (string, error) {
	out := Render(raw)
	reparsed, err := parser.ParseRaw(out, parser.WithDiagnostics(func(diag.Diagnostic) {}))
	if err != nil {
		return out, &diag.RoundTripError{Index: -1, Err: err}
	}

	want, err := canonicalForm(raw)
	if err != nil {
		return out, err
	}
	got, err := canonicalForm(reparsed)
	if err != nil {
		return out, err
	}

	if len(want) != len(got) {
		return out, &diag.RoundTripError{
			Index:    -1,
			Original: fmt.Sprintf("%d elements", len(want)),
			Reparsed: fmt.Sprintf("%d elements", len(got)),
		}
	}
	for i := range want {
		if !reflect.DeepEqual(want[i].value, got[i].value) {
			return out, &diag.RoundTripError{Index: i, Original: want[i].text, Reparsed: got[i].text}
		}
	}
	return out, nil
}

// Format parses src and returns its verified canonical rendering.
func Format(src string, opts ...parser.Option) (string, error) {
	raw, err := parser.ParseRaw(src, opts...)
	if err != nil {
		return "", err
	}
	return Check(raw)
}

type compared struct {
	text  string
	value any
}

func canonicalForm(raw []ast.Element) ([]compared, error) {
	out := make([]compared, len(raw))
	for i, el := range raw {
		var v any = el
		if s, ok := el.(ast.ServiceDecl); ok {
			v = map[string]any{"Service": [2]any{s.Name, ast.FoldService(s.Body, s.Attributes)}}
		}
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode element %d: %w", i, err)
		}
		var generic any
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&generic); err != nil {
			return nil, fmt.Errorf("decode element %d: %w", i, err)
		}
		out[i] = compared{text: string(data), value: normalize(generic)}
	}
	return out, nil
}

// normalize treats null and empty lists as the same value, so nil and empty
// slices compare equal.
func normalize(v any) any {
	switch x := v.(type) {
	case nil:
		return []any{}
	case []any:
		for i := range x {
			x[i] = normalize(x[i])
		}
		return x
	case map[string]any:
		for k := range x {
			x[k] = normalize(x[k])
		}
		return x
	}
	return v
}
