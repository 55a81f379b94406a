package typemap

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/afero"

	"ssd/internal/core/errors"
	"ssd/internal/engine/ast"
)

// Extension is appended to a generator's base name to find its sibling map.
const Extension = ".tym"

// Parse decodes a mapping file. Keys and values are canonical names or lists
// of segments:
//
//	"u8" = "uint8_t"
//	"std::String" = ["std", "string"]
//
// Nested tables are read as segment lists, so [a] b = "x" maps a::b to x.
func Parse(data []byte) (Mapping, error) {
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, errors.CodeConfigError, "invalid type mapping")
	}
	out := Mapping{}
	if err := flatten(out, nil, raw); err != nil {
		return nil, err
	}
	return out, nil
}

func flatten(out Mapping, prefix []string, table map[string]any) error {
	for key, value := range table {
		segments := append(append([]string{}, prefix...), key)
		from := strings.Join(segments, ast.Separator)
		switch v := value.(type) {
		case map[string]any:
			if err := flatten(out, segments, v); err != nil {
				return err
			}
		case string:
			out[from] = v
		case []any:
			parts := make([]string, len(v))
			for i, p := range v {
				s, ok := p.(string)
				if !ok {
					return errors.New(errors.CodeConfigError, fmt.Sprintf("type mapping %q: segment %d is not a string", from, i))
				}
				parts[i] = s
			}
			if len(parts) == 0 {
				return errors.New(errors.CodeConfigError, fmt.Sprintf("type mapping %q: empty segment list", from))
			}
			out[from] = strings.Join(parts, ast.Separator)
		default:
			return errors.New(errors.CodeConfigError, fmt.Sprintf("type mapping %q: expected a string or a list of strings, got %T", from, value))
		}
	}
	return nil
}

// Load reads and parses the mapping file at path.
func Load(fs afero.Fs, path string) (Mapping, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeNotFound, "cannot read type mapping"), errors.CtxPath, path)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, errors.AddContext(err, errors.CtxPath, path)
	}
	return m, nil
}

// ResolvePath picks the mapping file for a generator run: nothing when
// noMap is set, the explicit path when given, otherwise the generator file
// with its extension replaced by .tym if that file exists.
func ResolvePath(fs afero.Fs, explicit, generatorFile string, noMap bool) (string, bool) {
	if noMap {
		return "", false
	}
	if explicit != "" {
		return explicit, true
	}
	if generatorFile == "" {
		return "", false
	}
	candidate := strings.TrimSuffix(generatorFile, filepath.Ext(generatorFile)) + Extension
	if ok, _ := afero.Exists(fs, candidate); ok {
		return candidate, true
	}
	return "", false
}

// Resolve loads the mapping selected by ResolvePath. A nil Mapping means no
// mapping applies.
func Resolve(fs afero.Fs, explicit, generatorFile string, noMap bool) (Mapping, error) {
	path, ok := ResolvePath(fs, explicit, generatorFile, noMap)
	if !ok {
		return nil, nil
	}
	return Load(fs, path)
}
