package app

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"ssd/internal/core/errors"
	"ssd/internal/core/ports"
	"ssd/internal/engine/generate"
	"ssd/internal/engine/typemap"
	"ssd/internal/shared/observability"
	"ssd/internal/shared/util"
)

// Generate runs one generator over an SSD file (or raw data file) and writes
// the result to req.Out, or to w when no output file is named. Output files
// are only touched when the generator succeeded.
func (a *App) Generate(ctx context.Context, req ports.GenerateRequest, w io.Writer) error {
	ctx, span := observability.Tracer.Start(ctx, "app.Generate", trace.WithAttributes(
		attribute.String("kind", string(req.Kind)),
		attribute.String("input", req.Input),
		attribute.Bool("raw", req.Raw),
	))
	defer span.End()

	in, err := a.generatorInput(ctx, req.Input, req.Raw, req.Typemap, req.Generator, req.NoMap)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	start := time.Now()
	switch req.Kind {
	case ports.GeneratorData:
		err = generate.Encode(&buf, in.Data(), req.Format)
		if err != nil {
			err = errors.AddContext(err, errors.CtxFormat, string(req.Format))
		}
	case ports.GeneratorTemplate:
		var text string
		if text, err = a.readFile(ctx, req.Generator); err == nil {
			err = generate.RenderTemplate(&buf, req.Generator, text, in)
		}
	case ports.GeneratorScript:
		var src string
		if src, err = a.readFile(ctx, req.Generator); err == nil {
			err = generate.RunScript(ctx, &buf, req.Generator, src, in, generate.ScriptOptions{
				Debug:       req.Debug,
				Log:         a.Stderr,
				Diagnostics: a.diagnostic,
			})
		}
	default:
		err = errors.New(errors.CodeNotSupported, fmt.Sprintf("unknown generator %q", req.Kind))
	}
	observability.GenerateDuration.WithLabelValues(string(req.Kind)).Observe(time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		return errors.AddContext(err, errors.CtxOperation, "generate_"+string(req.Kind))
	}

	if req.Out == "" {
		_, err = w.Write(buf.Bytes())
		return err
	}
	if err := util.WriteFileWithDirs(a.FS, req.Out, buf.Bytes(), 0o644); err != nil {
		return errors.AddContext(errors.Wrap(err, errors.CodeInternal, "cannot write output"), errors.CtxPath, req.Out)
	}
	slog.Info("generated", "kind", req.Kind, "input", req.Input, "out", req.Out)
	return nil
}

// generatorInput loads the model handed to generators. Raw inputs are passed
// through untouched; SSD modules get the resolved type mapping applied.
func (a *App) generatorInput(ctx context.Context, path string, raw bool, explicitMap, generatorFile string, noMap bool) (generate.Input, error) {
	if raw {
		v, err := a.LoadRaw(ctx, path)
		if err != nil {
			return generate.Input{}, err
		}
		return generate.RawInput(v, a.Defines), nil
	}

	m, err := a.LoadModule(ctx, path)
	if err != nil {
		return generate.Input{}, err
	}
	mapping, err := typemap.Resolve(a.FS, explicitMap, generatorFile, noMap)
	if err != nil {
		return generate.Input{}, err
	}
	if len(mapping) > 0 {
		_, span := observability.Tracer.Start(ctx, "typemap.Rewrite", trace.WithAttributes(attribute.Int("entries", len(mapping))))
		m = typemap.Rewrite(m, mapping)
		span.End()
	}
	return generate.ModuleInput(m, a.Defines), nil
}

// Debug dumps the assembled (and possibly mapped) module of req.Path, or its
// raw element sequence with RawAST.
func (a *App) Debug(ctx context.Context, req ports.DebugRequest, w io.Writer) error {
	ctx, span := observability.Tracer.Start(ctx, "app.Debug", trace.WithAttributes(attribute.String("path", req.Path)))
	defer span.End()

	var v any
	if req.RawAST {
		raw, err := a.ParseRaw(ctx, req.Path)
		if err != nil {
			return err
		}
		if v, err = generate.Generic(raw); err != nil {
			return err
		}
	} else {
		in, err := a.generatorInput(ctx, req.Path, false, req.Typemap, "", req.NoMap)
		if err != nil {
			return err
		}
		v = in.Module
	}
	if err := generate.Encode(w, v, req.Format); err != nil {
		return errors.AddContext(err, errors.CtxFormat, string(req.Format))
	}
	return nil
}
