package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"ssd/internal/core/config"
	"ssd/internal/core/errors"
	"ssd/internal/core/ports"
	"ssd/internal/engine/diag"
	"ssd/internal/engine/generate"
)

const greeter = `import base::Id;
data Greeting { text: string, };
service Greeter {
	depends on base::Clock;
	fn greet(name: string) -> Greeting;
	event greeted(by: string);
};
`

func newTestApp(t *testing.T, files map[string]string, opts ...Option) *App {
	t.Helper()
	fs := afero.NewMemMapFs()
	for path, content := range files {
		require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o644))
	}
	opts = append([]Option{WithWorkDir("/work"), WithDiagnostics(func(diag.Diagnostic) {})}, opts...)
	a, err := New(config.Default(), fs, opts...)
	require.NoError(t, err)
	return a
}

func TestNamespace(t *testing.T) {
	a := newTestApp(t, nil)
	assert.Equal(t, []string{"api", "greeter"}, a.Namespace("/work/api/greeter.ssd").Components)
	assert.Equal(t, []string{"api", "greeter"}, a.Namespace("api/greeter.ssd").Components)
	assert.Equal(t, []string{"elsewhere", "x"}, a.Namespace("/elsewhere/x.svc").Components)

	a = newTestApp(t, nil, WithBase("/work/api"))
	assert.Equal(t, []string{"v1", "greeter"}, a.Namespace("/work/api/v1/greeter.ssd").Components)

	a = newTestApp(t, nil, WithWorkDir(""), WithBase("defs"))
	assert.Equal(t, []string{"greeter"}, a.Namespace("defs/greeter.ssd").Components)
}

func TestLoadModule(t *testing.T) {
	a := newTestApp(t, map[string]string{"/work/api/greeter.ssd": greeter})

	m, err := a.LoadModule(context.Background(), "/work/api/greeter.ssd")
	require.NoError(t, err)
	assert.Equal(t, "api::greeter", m.Namespace.String())
	assert.Len(t, m.Imports, 1)
	assert.True(t, m.DataTypes.Has("Greeting"))
	svc, ok := m.Services.Get("Greeter")
	require.True(t, ok)
	assert.Equal(t, []string{"greet"}, svc.Functions.Keys())
}

func TestLoadModule_Errors(t *testing.T) {
	a := newTestApp(t, map[string]string{
		"/work/bad.ssd": "data A { x: };",
		"/work/dup.ssd": "data A {}; data A {};",
	})

	_, err := a.LoadModule(context.Background(), "/work/missing.ssd")
	assert.True(t, errors.IsCode(err, errors.CodeNotFound))

	_, err = a.LoadModule(context.Background(), "/work/bad.ssd")
	assert.True(t, errors.IsCode(err, errors.CodeSyntaxError))
	assert.Contains(t, err.Error(), "/work/bad.ssd")

	_, err = a.LoadModule(context.Background(), "/work/dup.ssd")
	assert.True(t, errors.IsCode(err, errors.CodeDuplicateDeclaration))
}

func TestLoadModule_ExternalBackend(t *testing.T) {
	cfg := config.Default()
	cfg.Parser.Backend = "minissd"
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/work/greeter.ssd", []byte(greeter), 0o644))
	a, err := New(cfg, fs, WithWorkDir("/work"))
	require.NoError(t, err)

	assert.Equal(t, "minissd", string(a.Backend))

	m, err := a.LoadModule(context.Background(), "/work/greeter.ssd")
	require.NoError(t, err)
	assert.Equal(t, "greeter", m.Namespace.String())
	assert.Equal(t, []string{"Greeting"}, m.DataTypes.Keys())
	svc, ok := m.Services.Get("Greeter")
	require.True(t, ok)
	assert.Equal(t, []string{"greet"}, svc.Functions.Keys())
	assert.Equal(t, []string{"greeted"}, svc.Events.Keys())
	require.Len(t, svc.Dependencies, 1)
	assert.Equal(t, "base::Clock", svc.Dependencies[0].Name.String())
}

func TestDiagnosticsAreForwarded(t *testing.T) {
	var c diag.Collector
	a := newTestApp(t, map[string]string{"/work/old.ssd": "service S { handles ping(); };"}, WithDiagnostics(c.Handle))

	_, err := a.LoadModule(context.Background(), "/work/old.ssd")
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	assert.Equal(t, diag.SeverityDeprecation, c.Items[0].Severity)
}

func TestPretty(t *testing.T) {
	a := newTestApp(t, map[string]string{"/work/greeter.ssd": "data   Greeting{text:string};"})

	res, err := a.Pretty(context.Background(), ports.PrettyRequest{Path: "/work/greeter.ssd"})
	require.NoError(t, err)
	assert.False(t, res.Written)
	assert.Equal(t, "data Greeting {\n\ttext: string,\n};\n", res.Text)

	before, err := afero.ReadFile(a.FS, "/work/greeter.ssd")
	require.NoError(t, err)
	assert.Equal(t, "data   Greeting{text:string};", string(before))

	res, err = a.Pretty(context.Background(), ports.PrettyRequest{Path: "/work/greeter.ssd", InPlace: true})
	require.NoError(t, err)
	assert.True(t, res.Written)
	after, err := afero.ReadFile(a.FS, "/work/greeter.ssd")
	require.NoError(t, err)
	assert.Equal(t, res.Text, string(after))
}

func TestPretty_InPlaceLeavesBrokenFile(t *testing.T) {
	a := newTestApp(t, map[string]string{"/work/bad.ssd": "data A {"})

	_, err := a.Pretty(context.Background(), ports.PrettyRequest{Path: "/work/bad.ssd", InPlace: true})
	require.Error(t, err)
	content, err := afero.ReadFile(a.FS, "/work/bad.ssd")
	require.NoError(t, err)
	assert.Equal(t, "data A {", string(content))
}

func TestCheck(t *testing.T) {
	a := newTestApp(t, map[string]string{
		"/work/ok.ssd":             greeter,
		"/work/sub/also.svc":       "enum E { A, B, };",
		"/work/sub/dup.ssd":        "enum E { A, A, };",
		"/work/notes.txt":          "not ssd",
		"/work/.git/x.ssd":         "garbage",
		"/work/sub/broken.ssd":     "service {",
		"/work/node_modules/y.ssd": "garbage",
	})

	res, err := a.Check(context.Background(), ports.CheckRequest{Paths: []string{"/work"}, RoundTrip: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"/work/ok.ssd", "/work/sub/also.svc", "/work/sub/broken.ssd", "/work/sub/dup.ssd"}, res.Files)
	require.Len(t, res.Failures, 2)
	assert.Equal(t, "/work/sub/broken.ssd", res.Failures[0].Path)
	assert.True(t, errors.IsCode(res.Failures[0].Err, errors.CodeSyntaxError))
	assert.Equal(t, "/work/sub/dup.ssd", res.Failures[1].Path)
	assert.True(t, errors.IsCode(res.Failures[1].Err, errors.CodeDuplicateDeclaration))
	assert.False(t, res.OK())

	health := NewHealthService(a).Check(context.Background())
	assert.Equal(t, "degraded", health.Status)
}

func TestCheck_ExplicitFileAndMissingPath(t *testing.T) {
	a := newTestApp(t, map[string]string{"/work/defs.txt": "data A {};"})

	res, err := a.Check(context.Background(), ports.CheckRequest{Paths: []string{"/work/defs.txt"}})
	require.NoError(t, err)
	assert.True(t, res.OK())
	assert.Equal(t, []string{"/work/defs.txt"}, res.Files)
	assert.Equal(t, "up", NewHealthService(a).Check(context.Background()).Status)

	_, err = a.Check(context.Background(), ports.CheckRequest{Paths: []string{"/work/nope"}})
	assert.True(t, errors.IsCode(err, errors.CodeNotFound))
}

func TestGenerate_Data(t *testing.T) {
	a := newTestApp(t, map[string]string{"/work/api/greeter.ssd": greeter})

	var buf bytes.Buffer
	err := a.Generate(context.Background(), ports.GenerateRequest{
		Kind:   ports.GeneratorData,
		Input:  "/work/api/greeter.ssd",
		Format: generate.FormatJSON,
	}, &buf)
	require.NoError(t, err)
	out := buf.String()
	assert.Equal(t, "greeter", gjson.Get(out, "namespace.components.1").String())
	assert.Equal(t, "Greeter", gjson.Get(out, "services.0.0").String())
}

func TestGenerate_TemplateUsesSiblingTypemap(t *testing.T) {
	a := newTestApp(t, map[string]string{
		"/work/greeter.ssd": greeter,
		"/gen/rust.tmpl":    `{{range .Module.DataTypes}}{{.Name}}:{{range .Value.Properties}}{{.Value.TypeString}}{{end}}{{end}} {{index .Defines "lang"}}`,
		"/gen/rust.tym":     `string = "String"`,
	}, WithDefines(map[string]string{"lang": "rust"}))

	req := ports.GenerateRequest{Kind: ports.GeneratorTemplate, Input: "/work/greeter.ssd", Generator: "/gen/rust.tmpl"}
	var buf bytes.Buffer
	require.NoError(t, a.Generate(context.Background(), req, &buf))
	assert.Equal(t, "Greeting:String rust", buf.String())

	req.NoMap = true
	buf.Reset()
	require.NoError(t, a.Generate(context.Background(), req, &buf))
	assert.Equal(t, "Greeting:string rust", buf.String())
}

func TestGenerate_ScriptToFile(t *testing.T) {
	a := newTestApp(t, map[string]string{
		"/work/greeter.ssd": greeter,
		"/gen/names.js":     `for (const [name] of module.services) { out.writeln(snake(name)); }`,
	})

	var stdout bytes.Buffer
	err := a.Generate(context.Background(), ports.GenerateRequest{
		Kind:      ports.GeneratorScript,
		Input:     "/work/greeter.ssd",
		Generator: "/gen/names.js",
		Out:       "/out/nested/names.txt",
	}, &stdout)
	require.NoError(t, err)
	assert.Empty(t, stdout.String())

	content, err := afero.ReadFile(a.FS, "/out/nested/names.txt")
	require.NoError(t, err)
	assert.Equal(t, "greeter\n", string(content))
}

func TestGenerate_FailedScriptWritesNothing(t *testing.T) {
	a := newTestApp(t, map[string]string{
		"/work/greeter.ssd": greeter,
		"/gen/fail.js":      `out.write("partial"); throw new Error("nope");`,
	})

	err := a.Generate(context.Background(), ports.GenerateRequest{
		Kind:      ports.GeneratorScript,
		Input:     "/work/greeter.ssd",
		Generator: "/gen/fail.js",
		Out:       "/out/fail.txt",
	}, &bytes.Buffer{})
	require.Error(t, err)
	exists, err := afero.Exists(a.FS, "/out/fail.txt")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestGenerate_RawInput(t *testing.T) {
	a := newTestApp(t, map[string]string{
		"/work/data.yaml": "items:\n  - a\n  - b\n",
		"/gen/list.tmpl":  `{{join .Module.items ","}}`,
	})

	var buf bytes.Buffer
	err := a.Generate(context.Background(), ports.GenerateRequest{
		Kind:      ports.GeneratorTemplate,
		Input:     "/work/data.yaml",
		Raw:       true,
		Generator: "/gen/list.tmpl",
	}, &buf)
	require.NoError(t, err)
	assert.Equal(t, "a,b", buf.String())
}

func TestDebug(t *testing.T) {
	a := newTestApp(t, map[string]string{
		"/work/greeter.ssd": "/// doc\n" + greeter,
		"/work/map.tym":     `string = "str"`,
	})

	var buf bytes.Buffer
	require.NoError(t, a.Debug(context.Background(), ports.DebugRequest{Path: "/work/greeter.ssd", RawAST: true, Format: generate.FormatJSON}, &buf))
	assert.Equal(t, "doc", gjson.Get(buf.String(), "0.Comment").String())
	assert.Equal(t, "base", gjson.Get(buf.String(), "1.Import.path.components.0").String())

	buf.Reset()
	require.NoError(t, a.Debug(context.Background(), ports.DebugRequest{Path: "/work/greeter.ssd", Format: generate.FormatJSON, Typemap: "/work/map.tym"}, &buf))
	assert.Equal(t, "str", gjson.Get(buf.String(), "data_types.0.1.properties.0.1.typ.components.0").String())
}

func TestFrontendService_Validation(t *testing.T) {
	svc := newTestApp(t, nil).FrontendService()

	_, err := svc.Check(context.Background(), ports.CheckRequest{})
	assert.True(t, errors.IsCode(err, errors.CodeValidationError))

	err = svc.Generate(context.Background(), ports.GenerateRequest{Kind: ports.GeneratorScript, Input: "x.ssd"}, &bytes.Buffer{})
	assert.True(t, errors.IsCode(err, errors.CodeValidationError))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = svc.LoadModule(ctx, "x.ssd")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWatch_RechecksChangedFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "greeter.ssd")
	require.NoError(t, os.WriteFile(path, []byte(greeter), 0o644))

	cfg := config.Default()
	cfg.Watch.Debounce = 150 * time.Millisecond
	a, err := New(cfg, afero.NewOsFs(), WithWorkDir(dir), WithDiagnostics(func(diag.Diagnostic) {}))
	require.NoError(t, err)

	updates := make(chan ports.WatchUpdate, 4)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- a.Watch(ctx, []string{dir}, func(u ports.WatchUpdate) { updates <- u })
	}()

	select {
	case u := <-updates:
		assert.True(t, u.Result.OK())
		assert.Equal(t, []string{path}, u.Changed)
	case <-time.After(5 * time.Second):
		t.Fatal("no initial check")
	}

	// Give the watcher time to register the directory.
	time.Sleep(200 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("data {"), 0o644))

	select {
	case u := <-updates:
		assert.Equal(t, []string{path}, u.Changed)
		require.Len(t, u.Result.Failures, 1)
		assert.True(t, errors.IsCode(u.Result.Failures[0].Err, errors.CodeSyntaxError))
	case <-time.After(5 * time.Second):
		t.Fatal("change was not re-checked")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}
