package parser

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ssd/internal/engine/ast"
	"ssd/internal/engine/diag"
	"ssd/internal/engine/minissd"
)

const greeter = `import some::other::module;
data Point { x: f32, y: f32, };
enum Color { Red = 1, Green, Blue, };
service Greeter {
    depends on Logger;
    fn greet(name: string) -> string;
    event greeted(name: string);
};
`

func parseModule(t *testing.T, src string) ast.Module {
	t.Helper()
	m, err := Parse(src, ast.NewNamespace("test"))
	require.NoError(t, err)
	return m
}

func TestParse_Greeter(t *testing.T) {
	m := parseModule(t, greeter)

	require.Len(t, m.Imports, 1)
	assert.Equal(t, []string{"some", "other", "module"}, m.Imports[0].Path.Components)

	point, ok := m.DataTypes.Get("Point")
	require.True(t, ok)
	assert.Equal(t, []string{"x", "y"}, point.Properties.Keys())
	for _, p := range point.Properties.Values() {
		assert.Equal(t, "f32", p.Typ.String())
		assert.False(t, p.IsList)
	}

	color, ok := m.Enums.Get("Color")
	require.True(t, ok)
	assert.Equal(t, []string{"Red", "Green", "Blue"}, color.Values.Keys())
	require.NotNil(t, color.Values[0].Value.Value)
	assert.Equal(t, int64(1), *color.Values[0].Value.Value)
	assert.Nil(t, color.Values[1].Value.Value)
	assert.Nil(t, color.Values[2].Value.Value)

	svc, ok := m.Services.Get("Greeter")
	require.True(t, ok)
	require.Len(t, svc.Dependencies, 1)
	assert.Equal(t, "Logger", svc.Dependencies[0].Name.String())

	greet, ok := svc.Functions.Get("greet")
	require.True(t, ok)
	assert.Equal(t, []string{"name"}, greet.Arguments.Keys())
	assert.Equal(t, "string", greet.Arguments[0].Value.Typ.String())
	require.NotNil(t, greet.ReturnType)
	assert.Equal(t, "string", greet.ReturnType.Typ.String())

	greeted, ok := svc.Events.Get("greeted")
	require.True(t, ok)
	assert.Equal(t, []string{"name"}, greeted.Arguments.Keys())
}

func TestParse_TypeModifiers(t *testing.T) {
	m := parseModule(t, "data D { a: 5 of u8, b: list of u8, c: u8, d: list, e: 0 of x::y, };")
	dt, _ := m.DataTypes.Get("D")

	tests := []struct {
		name   string
		typ    string
		isList bool
		count  *int
	}{
		{"a", "u8", true, intPtr(5)},
		{"b", "u8", true, nil},
		{"c", "u8", false, nil},
		{"d", "list", false, nil},
		{"e", "x::y", true, intPtr(0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			typ, ok := dt.Properties.Get(tt.name)
			require.True(t, ok)
			assert.Equal(t, tt.typ, typ.Typ.String())
			assert.Equal(t, tt.isList, typ.IsList)
			assert.Equal(t, tt.count, typ.Count)
		})
	}
}

func TestParse_CountWhitespaceIsNormalized(t *testing.T) {
	m := parseModule(t, "data D { a: 3   \n\t of    u8, };")
	dt, _ := m.DataTypes.Get("D")
	assert.Equal(t, "3 of u8", dt.Properties[0].Value.TypeString())
}

func TestParse_AttributesAndComments(t *testing.T) {
	src := `/// A point.
#[derive(Debug, rename = "pt"), serde::skip]
data Point {
	/// horizontal
	#[range(min = "0")]
	x: f32,
	/// trailing, dropped
};
service S {
	/// logs
	#[inject]
	depends on log::Logger;
	#[http(method = "GET")]
	fn get(#[path] id: u64, q: list of string,) -> 4 of u8;
};`
	raw, err := ParseRaw(src)
	require.NoError(t, err)
	require.Len(t, raw, 3)
	assert.Equal(t, ast.Comment{Text: "A point."}, raw[0])

	data := raw[1].(ast.DataTypeDecl)
	require.Len(t, data.DataType.Attributes, 2)
	derive := data.DataType.Attributes[0]
	assert.Equal(t, "derive", derive.Name.String())
	require.Len(t, derive.Parameters, 2)
	assert.Nil(t, derive.Parameters[0].Value)
	assert.Equal(t, "pt", *derive.Parameters[1].Value)
	assert.Equal(t, "serde::skip", data.DataType.Attributes[1].Name.String())
	assert.Empty(t, data.DataType.Attributes[1].Parameters)

	x, _ := data.DataType.Properties.Get("x")
	assert.Equal(t, []string{"horizontal"}, x.Comments)
	assert.Equal(t, "range", x.Attributes[0].Name.String())

	svc := raw[2].(ast.ServiceDecl)
	require.Len(t, svc.Body, 3)
	assert.Equal(t, ast.ServiceComment{Text: "logs"}, svc.Body[0])
	fn := svc.Body[2].(ast.FunctionDecl)
	assert.Equal(t, []string{"id", "q"}, fn.Function.Arguments.Keys())
	assert.Equal(t, "path", fn.Function.Arguments[0].Value.Attributes[0].Name.String())
	assert.True(t, fn.Function.Arguments[1].Value.IsList)
	assert.Equal(t, 4, *fn.Function.ReturnType.Count)

	m, err := Parse(src, ast.NewNamespace("test"))
	require.NoError(t, err)
	point, _ := m.DataTypes.Get("Point")
	assert.Equal(t, []string{"A point."}, point.Comments)
	s, _ := m.Services.Get("S")
	assert.Equal(t, []string{"logs"}, s.Dependencies[0].Comments)
}

func TestParse_StringEscapes(t *testing.T) {
	raw, err := ParseRaw(`#[doc(text = "say \"hi\" \\ bye")] import a;`)
	require.NoError(t, err)
	imp := raw[0].(ast.ImportDecl)
	assert.Equal(t, `say "hi" \ bye`, *imp.Import.Attributes[0].Parameters[0].Value)
}

func TestParse_NegativeEnumValue(t *testing.T) {
	m := parseModule(t, "enum E { A = -3, B = 9223372036854775807 };")
	e, _ := m.Enums.Get("E")
	assert.Equal(t, int64(-3), *e.Values[0].Value.Value)
	assert.Equal(t, int64(9223372036854775807), *e.Values[1].Value.Value)
}

func TestParse_HandlesIsDeprecated(t *testing.T) {
	var c diag.Collector
	m, err := Parse("service S { handles ping(); };", ast.NewNamespace("test"), WithDiagnostics(c.Handle))
	require.NoError(t, err)

	s, _ := m.Services.Get("S")
	assert.True(t, s.Functions.Has("ping"))
	require.Len(t, c.Items, 1)
	assert.Equal(t, diag.SeverityDeprecation, c.Items[0].Severity)
	assert.Equal(t, 1, c.Items[0].Span.Line)
	assert.Equal(t, 13, c.Items[0].Span.Column)
}

func TestParse_DuplicateDataType(t *testing.T) {
	_, err := Parse("data Foo {};\ndata Foo { a: u8, };", ast.NewNamespace("test"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, &diag.ParseError{Kind: diag.KindDuplicateDeclaration}))

	var pe *diag.ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "Foo", pe.Name)
	assert.Equal(t, "data type", pe.DeclKind)
}

func TestParseRaw_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		kind diag.Kind
		line int
	}{
		{"import without semicolon", "import a::b", diag.KindIncompleteImport, 1},
		{"dangling path separator", "import a::;", diag.KindIncompleteName, 1},
		{"data without brace", "data X ;", diag.KindIncompleteDatatype, 1},
		{"data without semicolon", "data X {}", diag.KindIncompleteDatatype, 1},
		{"property without colon", "data X { a u8, };", diag.KindIncompleteProperty, 1},
		{"property without type", "data X {\n a: , };", diag.KindMissingTypeAfter, 2},
		{"list without type", "data X { a: list of , };", diag.KindMissingTypeAfter, 1},
		{"negative count", "data X { a: -1 of u8, };", diag.KindOther, 1},
		{"enum value not a number", "enum E { A = x, };", diag.KindInvalidEnumValue, 1},
		{"enum value overflow", "enum E { A = 99999999999999999999, };", diag.KindInvalidEnumValue, 1},
		{"enum without brace", "enum E A };", diag.KindIncompleteEnum, 1},
		{"variant without comma", "enum E { A B };", diag.KindIncompleteEnumValue, 1},
		{"unknown service member", "service S { call x(); };", diag.KindIncompleteService, 1},
		{"depends without on", "service S { depends Logger; };", diag.KindIncompleteDepends, 1},
		{"function without parens", "service S { fn f; };", diag.KindIncompleteCall, 1},
		{"function without return type", "service S { fn f() -> ; };", diag.KindIncompleteCall, 1},
		{"event without semicolon", "service S { event e() };", diag.KindIncompleteEvent, 1},
		{"argument without colon", "service S { fn f(a u8); };", diag.KindIncompleteArgumentIdent, 1},
		{"argument without type", "service S { fn f(a: ); };", diag.KindMissingTypeAfter, 1},
		{"empty attribute", "#[] data X {};", diag.KindIncompleteAttribute, 1},
		{"unclosed attribute", "#[a data X {};", diag.KindIncompleteAttribute, 1},
		{"attribute value not a string", "#[a(b = c)] data X {};", diag.KindIncompleteAttributeArg, 1},
		{"unknown top level", "struct X {};", diag.KindUnexpectedElement, 1},
		{"attributes at end", "#[a]", diag.KindUnexpectedElement, 1},
		{"plain comment", "// nope\ndata X {};", diag.KindOther, 1},
		{"unterminated string", `#[a(b = "c)] data X {};`, diag.KindOther, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRaw(tt.src)
			require.Error(t, err)

			var pe *diag.ParseError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.kind, pe.Kind, pe.Error())
			assert.Equal(t, tt.line, pe.Span.Line)
		})
	}
}

func TestParseRaw_MissingTypeNamesProperty(t *testing.T) {
	_, err := ParseRaw("data X { count: };")
	var pe *diag.ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "count", pe.Name)
	assert.Contains(t, pe.Error(), `missing type after "count"`)
}

func TestParseRaw_EmptyInput(t *testing.T) {
	raw, err := ParseRaw("  \n\t")
	require.NoError(t, err)
	assert.Empty(t, raw)
}

func TestParseRawExternal_MatchesNative(t *testing.T) {
	sources := map[string]string{
		"greeter": greeter,
		"attributes": `#[a(b = "c", d)] import x::y;
#[derive(Debug)]
data Point { #[k] x: 3 of f32, y: list of a::b, z: u8 };
enum E { #[v] A = -2, B, };
#[svc]
service S {
	fn first(#[p] a: u8, b: list of u8) -> 2 of u8;
	#[dep] depends on one::Two;
	event e();
	fn second();
};`,
		"empty": "",
	}

	for name, src := range sources {
		t.Run(name, func(t *testing.T) {
			before := minissd.Outstanding()

			native, err := ParseRaw(src)
			require.NoError(t, err)
			external, err := ParseRawExternal(src)
			require.NoError(t, err)

			assert.Equal(t, native, external)
			assert.Equal(t, before, minissd.Outstanding())
		})
	}
}

func TestParseRawExternal_ErrorReleasesDocument(t *testing.T) {
	before := minissd.Outstanding()
	_, err := ParseRawExternal("data X { a: };")
	require.Error(t, err)

	var pe *diag.ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, before, minissd.Outstanding())
}

func TestParseRawWith(t *testing.T) {
	b, err := ParseBackend("minissd")
	require.NoError(t, err)
	raw, err := ParseRawWith(b, "import a;")
	require.NoError(t, err)
	assert.Len(t, raw, 1)

	_, err = ParseBackend("pest")
	assert.Error(t, err)
}

func intPtr(n int) *int {
	return &n
}
