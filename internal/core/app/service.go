package app

import (
	"context"
	"fmt"
	"io"

	"go.opentelemetry.io/otel/trace"

	"ssd/internal/core/errors"
	"ssd/internal/core/ports"
	"ssd/internal/engine/ast"
	"ssd/internal/shared/observability"
)

type frontendService struct {
	app *App
}

var _ ports.FrontendService = (*frontendService)(nil)

func NewFrontendService(app *App) ports.FrontendService {
	return &frontendService{app: app}
}

func (a *App) FrontendService() ports.FrontendService {
	return NewFrontendService(a)
}

func (s *frontendService) Unwrap() *App {
	return s.app
}

func (s *frontendService) LoadModule(ctx context.Context, path string) (ast.Module, error) {
	if err := s.ready(ctx); err != nil {
		return ast.Module{}, err
	}
	m, err := s.app.LoadModule(ctx, path)
	if err != nil {
		return ast.Module{}, errors.AddContext(err, errors.CtxOperation, "load")
	}
	return m, nil
}

func (s *frontendService) Pretty(ctx context.Context, req ports.PrettyRequest) (ports.PrettyResult, error) {
	if err := s.ready(ctx); err != nil {
		return ports.PrettyResult{}, err
	}
	res, err := s.app.Pretty(ctx, req)
	if err != nil {
		return res, errors.AddContext(err, errors.CtxOperation, "pretty")
	}
	return res, nil
}

func (s *frontendService) Check(ctx context.Context, req ports.CheckRequest) (ports.CheckResult, error) {
	ctx, span := observability.Tracer.Start(ctx, "frontendService.Check", trace.WithAttributes())
	defer span.End()

	if err := s.ready(ctx); err != nil {
		return ports.CheckResult{}, err
	}
	if len(req.Paths) == 0 {
		return ports.CheckResult{}, errors.New(errors.CodeValidationError, "no paths to check")
	}
	res, err := s.app.Check(ctx, req)
	if err != nil {
		return res, errors.AddContext(err, errors.CtxOperation, "check")
	}
	return res, nil
}

func (s *frontendService) Generate(ctx context.Context, req ports.GenerateRequest, w io.Writer) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if req.Kind != ports.GeneratorData && req.Generator == "" {
		return errors.New(errors.CodeValidationError, fmt.Sprintf("%s generator needs a generator file", req.Kind))
	}
	return s.app.Generate(ctx, req, w)
}

func (s *frontendService) Debug(ctx context.Context, req ports.DebugRequest, w io.Writer) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if err := s.app.Debug(ctx, req, w); err != nil {
		return errors.AddContext(err, errors.CtxOperation, "debug")
	}
	return nil
}

func (s *frontendService) Watch(ctx context.Context, paths []string, handler func(ports.WatchUpdate)) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if len(paths) == 0 {
		paths = []string{"."}
	}
	if err := s.app.Watch(ctx, paths, handler); err != nil {
		return errors.AddContext(err, errors.CtxOperation, "watch")
	}
	return nil
}

func (s *frontendService) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.app == nil {
		return fmt.Errorf("app is required")
	}
	return nil
}
