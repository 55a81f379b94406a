// Package pretty renders raw SSD elements back to canonical source text and
// verifies that the rendering parses back to the same document.
package pretty

import (
	"strconv"
	"strings"

	"ssd/internal/engine/ast"
)

const indent = "\t"

// Render produces canonical text for raw. Consecutive imports share a block;
// every other top-level element is preceded by a blank line unless the line
// before it is a standalone comment. The output ends with a newline.
func Render(raw []ast.Element) string {
	var lines []string
	first := true
	lastImport := false
	lastComment := false

	for _, el := range raw {
		switch e := el.(type) {
		case ast.ImportDecl:
			if !first && !lastImport && !lastComment {
				lines = append(lines, "")
			}
			if len(e.Import.Attributes) > 0 {
				lines = append(lines, attributes(e.Import.Attributes))
			}
			lines = append(lines, "import "+e.Import.Path.String()+";")
			lastImport, lastComment = true, false
		case ast.Comment:
			if !first && !lastComment {
				lines = append(lines, "")
			}
			lines = append(lines, commentLines("", e.Text)...)
			lastImport, lastComment = false, true
		default:
			if !first && !lastComment {
				lines = append(lines, "")
			}
			lines = append(lines, declaration(el)...)
			lastImport, lastComment = false, false
		}
		first = false
	}
	lines = append(lines, "")
	return strings.Join(lines, "\n")
}

func declaration(el ast.Element) []string {
	switch e := el.(type) {
	case ast.DataTypeDecl:
		return dataType(e.Name, e.DataType)
	case ast.EnumDecl:
		return enum(e.Name, e.Enum)
	case ast.ServiceDecl:
		return service(e.Name, e.Body, e.Attributes)
	}
	return nil
}

func dataType(name string, dt ast.DataType) []string {
	var out []string
	if len(dt.Attributes) > 0 {
		out = append(out, attributes(dt.Attributes))
	}
	out = append(out, "data "+name+" {")
	for _, p := range dt.Properties {
		out = append(out, comments(p.Value.Comments)...)
		if len(p.Value.Attributes) > 0 {
			out = append(out, indent+attributes(p.Value.Attributes))
		}
		out = append(out, indent+p.Name+": "+p.Value.TypeString()+",")
	}
	return append(out, "};")
}

func enum(name string, en ast.Enum) []string {
	var out []string
	if len(en.Attributes) > 0 {
		out = append(out, attributes(en.Attributes))
	}
	out = append(out, "enum "+name+" {")
	for _, v := range en.Values {
		out = append(out, comments(v.Value.Comments)...)
		line := indent
		if len(v.Value.Attributes) > 0 {
			line += attributes(v.Value.Attributes) + " "
		}
		line += v.Name
		if v.Value.Value != nil {
			line += " = " + strconv.FormatInt(*v.Value.Value, 10)
		}
		out = append(out, line+",")
	}
	return append(out, "};")
}

// service renders the folded view: dependencies, functions, then events, each
// group separated by a blank line.
func service(name string, body []ast.ServiceElement, attrs []ast.Attribute) []string {
	svc := ast.FoldService(body, attrs)
	var out []string
	if len(attrs) > 0 {
		out = append(out, attributes(attrs))
	}
	out = append(out, "service "+name+" {")

	for _, d := range svc.Dependencies {
		out = append(out, comments(d.Comments)...)
		if len(d.Attributes) > 0 {
			out = append(out, indent+attributes(d.Attributes))
		}
		out = append(out, indent+"depends on "+d.Name.String()+";")
	}
	out = append(out, "")

	for _, f := range svc.Functions {
		out = append(out, comments(f.Value.Comments)...)
		if len(f.Value.Attributes) > 0 {
			out = append(out, indent+attributes(f.Value.Attributes))
		}
		line := indent + "fn " + f.Name + "(" + arguments(f.Value.Arguments) + ")"
		if rt := f.Value.ReturnType; rt != nil {
			line += " -> " + rt.TypeString()
		}
		out = append(out, line+";")
	}
	out = append(out, "")

	for _, e := range svc.Events {
		out = append(out, comments(e.Value.Comments)...)
		if len(e.Value.Attributes) > 0 {
			out = append(out, indent+attributes(e.Value.Attributes))
		}
		out = append(out, indent+"event "+e.Name+"("+arguments(e.Value.Arguments)+");")
	}
	return append(out, "};")
}

func arguments(args ast.OrderedMap[ast.TypeName]) string {
	parts := make([]string, len(args))
	for i, a := range args {
		s := a.Name + ": " + a.Value.TypeString()
		if len(a.Value.Attributes) > 0 {
			s = attributes(a.Value.Attributes) + " " + s
		}
		parts[i] = s
	}
	return strings.Join(parts, ", ")
}

func attributes(attrs []ast.Attribute) string {
	parts := make([]string, len(attrs))
	for i, a := range attrs {
		name := a.Name.String()
		if len(a.Parameters) == 0 {
			parts[i] = name
			continue
		}
		params := make([]string, len(a.Parameters))
		for j, p := range a.Parameters {
			if p.Value == nil {
				params[j] = p.Name
			} else {
				params[j] = p.Name + " = " + strconv.Quote(*p.Value)
			}
		}
		parts[i] = name + "(" + strings.Join(params, ", ") + ")"
	}
	return "#[" + strings.Join(parts, ", ") + "]"
}

func comments(cs []string) []string {
	var out []string
	for _, c := range cs {
		out = append(out, commentLines(indent, c)...)
	}
	return out
}

// commentLines splits multi-line text so every line carries its own marker.
func commentLines(prefix, text string) []string {
	var out []string
	for _, l := range strings.Split(text, "\n") {
		l = strings.TrimSpace(l)
		if l == "" {
			out = append(out, prefix+"///")
			continue
		}
		out = append(out, prefix+"/// "+l)
	}
	return out
}
