package generate

import (
	"fmt"
	"io"
	"strings"
	"text/template"

	"github.com/serenize/snaker"

	"ssd/internal/core/errors"
	"ssd/internal/engine/ast"
)

// templateData is the dot value of a template: {{.Module}}, {{.Defines}}.
type templateData struct {
	Module  any
	Defines map[string]string
	NL      string
}

// Funcs are the helpers available to templates. Scripts get the same set.
func Funcs() template.FuncMap {
	return template.FuncMap{
		"join":  join,
		"snake": snaker.CamelToSnake,
		"camel": snaker.SnakeToCamel,
		"lower": strings.ToLower,
		"upper": strings.ToUpper,
		"ns":    joinNamespace,
	}
}

// RenderTemplate executes the template text against in and writes the result
// to w. Nothing is written when execution fails.
func RenderTemplate(w io.Writer, name, text string, in Input) error {
	tmpl, err := template.New(name).Funcs(Funcs()).Parse(text)
	if err != nil {
		return errors.AddContext(errors.Wrap(err, errors.CodeConfigError, "invalid template"), errors.CtxPath, name)
	}
	var b strings.Builder
	if err := tmpl.Execute(&b, templateData{Module: in.Data(), Defines: in.Defines, NL: "\n"}); err != nil {
		return errors.AddContext(errors.Wrap(err, errors.CodeInternal, "template execution failed"), errors.CtxPath, name)
	}
	_, err = io.WriteString(w, b.String())
	return err
}

func join(items any, sep string) (string, error) {
	switch v := items.(type) {
	case []string:
		return strings.Join(v, sep), nil
	case ast.Namespace:
		return v.Join(sep), nil
	case []any:
		parts := make([]string, len(v))
		for i, item := range v {
			parts[i] = fmt.Sprint(item)
		}
		return strings.Join(parts, sep), nil
	}
	return "", fmt.Errorf("join: unsupported value %T", items)
}

// joinNamespace renders a namespace with sep; the separator defaults to "::".
func joinNamespace(n ast.Namespace, sep ...string) string {
	if len(sep) == 0 {
		return n.String()
	}
	return n.Join(sep[0])
}
