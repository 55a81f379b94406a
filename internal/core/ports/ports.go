package ports

import (
	"context"
	"io"

	"ssd/internal/engine/ast"
	"ssd/internal/engine/generate"
)

// PrettyRequest asks for the canonical rendering of one source file.
type PrettyRequest struct {
	Path    string
	InPlace bool
}

// PrettyResult holds the verified canonical text.
type PrettyResult struct {
	Text    string
	Written bool
}

// CheckRequest lists files or directories to parse and assemble.
type CheckRequest struct {
	Paths     []string
	RoundTrip bool
}

// FileFailure is one file that did not check cleanly.
type FileFailure struct {
	Path string
	Err  error
}

// CheckResult summarizes a completed check.
type CheckResult struct {
	Files    []string
	Failures []FileFailure
}

// OK reports whether every file checked cleanly.
func (r CheckResult) OK() bool {
	return len(r.Failures) == 0
}

// GeneratorKind selects an output backend.
type GeneratorKind string

const (
	GeneratorData     GeneratorKind = "data"
	GeneratorTemplate GeneratorKind = "template"
	GeneratorScript   GeneratorKind = "script"
)

// GenerateRequest drives one generator run. Generator is the template or
// script path; it is unused for data output, which uses Format instead.
type GenerateRequest struct {
	Kind      GeneratorKind
	Input     string
	Raw       bool
	Generator string
	Format    generate.Format
	Typemap   string
	NoMap     bool
	Out       string
	Debug     bool
}

// DebugRequest dumps the parsed model of a file.
type DebugRequest struct {
	Path    string
	RawAST  bool
	Format  generate.Format
	Typemap string
	NoMap   bool
}

// WatchUpdate is emitted after every check run in watch mode.
type WatchUpdate struct {
	Changed []string
	Result  CheckResult
}

// FrontendService is the surface the command line drives.
type FrontendService interface {
	LoadModule(ctx context.Context, path string) (ast.Module, error)
	Pretty(ctx context.Context, req PrettyRequest) (PrettyResult, error)
	Check(ctx context.Context, req CheckRequest) (CheckResult, error)
	Generate(ctx context.Context, req GenerateRequest, w io.Writer) error
	Debug(ctx context.Context, req DebugRequest, w io.Writer) error
	Watch(ctx context.Context, paths []string, handler func(WatchUpdate)) error
}
