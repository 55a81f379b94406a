package generate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"ssd/internal/core/errors"
)

type Format string

const (
	FormatJSON       Format = "json"
	FormatJSONPretty Format = "json-pretty"
	FormatYAML       Format = "yaml"
	FormatTOML       Format = "toml"
	FormatTOMLPretty Format = "toml-pretty"
)

var formats = []Format{FormatJSON, FormatJSONPretty, FormatYAML, FormatTOML, FormatTOMLPretty}

// Formats lists the supported data formats in display order.
func Formats() []string {
	out := make([]string, len(formats))
	for i, f := range formats {
		out[i] = string(f)
	}
	return out
}

func ParseFormat(s string) (Format, error) {
	for _, f := range formats {
		if strings.EqualFold(s, string(f)) {
			return f, nil
		}
	}
	return "", errors.New(errors.CodeNotSupported, fmt.Sprintf("unknown data format %q (supported: %s)", s, strings.Join(Formats(), ", ")))
}

// Encode writes v in the given format. Output always ends with a newline.
func Encode(w io.Writer, v any, f Format) error {
	var buf bytes.Buffer
	switch f {
	case FormatJSON, FormatJSONPretty:
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		if f == FormatJSONPretty {
			enc.SetIndent("", "  ")
		}
		if err := enc.Encode(v); err != nil {
			return errors.Wrap(err, errors.CodeInternal, "encode json")
		}
	case FormatYAML:
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return errors.Wrap(err, errors.CodeInternal, "encode yaml")
		}
		if err := enc.Close(); err != nil {
			return errors.Wrap(err, errors.CodeInternal, "encode yaml")
		}
	case FormatTOML, FormatTOMLPretty:
		table, err := tomlTable(v)
		if err != nil {
			return err
		}
		enc := toml.NewEncoder(&buf)
		if f == FormatTOML {
			enc.Indent = ""
		}
		if err := enc.Encode(table); err != nil {
			return errors.Wrap(err, errors.CodeInternal, "encode toml")
		}
	default:
		return errors.New(errors.CodeNotSupported, fmt.Sprintf("unknown data format %q", f))
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// Generic converts v to plain maps, slices and scalars through its JSON form,
// so every encoder sees the JSON field names and the pair encoding of ordered
// maps. Whole numbers become int64.
func Generic(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "convert value")
	}
	var generic any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&generic); err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "convert value")
	}
	return numbers(generic), nil
}

// tomlTable prepares v for the TOML encoder. TOML has no null, so nulls are
// dropped.
func tomlTable(v any) (map[string]any, error) {
	generic, err := Generic(v)
	if err != nil {
		return nil, err
	}
	table, ok := dropNulls(generic).(map[string]any)
	if !ok {
		return nil, errors.New(errors.CodeNotSupported, "toml output needs a table at the top level")
	}
	return table, nil
}

func numbers(v any) any {
	switch x := v.(type) {
	case map[string]any:
		for k, e := range x {
			x[k] = numbers(e)
		}
	case []any:
		for i, e := range x {
			x[i] = numbers(e)
		}
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		f, _ := x.Float64()
		return f
	}
	return v
}

func dropNulls(v any) any {
	switch x := v.(type) {
	case map[string]any:
		for k, e := range x {
			if e == nil {
				delete(x, k)
				continue
			}
			x[k] = dropNulls(e)
		}
		return x
	case []any:
		out := x[:0]
		for _, e := range x {
			if e != nil {
				out = append(out, dropNulls(e))
			}
		}
		return out
	}
	return v
}

// DecodeRaw reads an arbitrary data document, trying JSON, then TOML, then
// YAML.
func DecodeRaw(data []byte) (any, error) {
	var v any
	jsonErr := json.Unmarshal(data, &v)
	if jsonErr == nil {
		return v, nil
	}
	var table map[string]any
	tomlErr := toml.Unmarshal(data, &table)
	if tomlErr == nil {
		return table, nil
	}
	v = nil
	yamlErr := yaml.Unmarshal(data, &v)
	if yamlErr == nil {
		return v, nil
	}
	return nil, errors.New(errors.CodeConfigError, fmt.Sprintf("raw input is not json (%v), toml (%v) or yaml (%v)", jsonErr, tomlErr, yamlErr))
}
