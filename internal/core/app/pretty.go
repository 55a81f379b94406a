package app

import (
	"context"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"ssd/internal/core/errors"
	"ssd/internal/core/ports"
	"ssd/internal/engine/diag"
	"ssd/internal/engine/pretty"
	"ssd/internal/shared/observability"
	"ssd/internal/shared/util"
)

// Pretty renders path canonically and verifies the rendering parses back to
// the same elements. With InPlace the file is replaced, but only after the
// check passed.
func (a *App) Pretty(ctx context.Context, req ports.PrettyRequest) (ports.PrettyResult, error) {
	ctx, span := observability.Tracer.Start(ctx, "app.Pretty", trace.WithAttributes(
		attribute.String("path", req.Path),
		attribute.Bool("in_place", req.InPlace),
	))
	defer span.End()

	raw, err := a.ParseRaw(ctx, req.Path)
	if err != nil {
		return ports.PrettyResult{}, err
	}

	text, err := pretty.Check(raw)
	if err != nil {
		var rt *diag.RoundTripError
		if errors.As(err, &rt) {
			observability.RoundTripFailuresTotal.Inc()
		}
		span.RecordError(err)
		return ports.PrettyResult{Text: text}, errors.WrapSource(err, req.Path)
	}

	if !req.InPlace {
		return ports.PrettyResult{Text: text}, nil
	}

	perm := os.FileMode(0o644)
	if info, err := a.FS.Stat(req.Path); err == nil {
		perm = info.Mode().Perm()
	}
	if err := util.ReplaceFile(a.FS, req.Path, []byte(text), perm); err != nil {
		return ports.PrettyResult{Text: text}, errors.AddContext(errors.Wrap(err, errors.CodeInternal, "cannot write file"), errors.CtxPath, req.Path)
	}
	slog.Info("formatted file", "path", req.Path)
	return ports.PrettyResult{Text: text, Written: true}, nil
}
