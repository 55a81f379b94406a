package app

import (
	"context"
	"fmt"
	"time"
)

type HealthStatus struct {
	Status     string            `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Components map[string]string `json:"components"`
}

type HealthService struct {
	app *App
}

func NewHealthService(app *App) *HealthService {
	return &HealthService{app: app}
}

// Check reports "degraded" while the last check run had failures.
func (s *HealthService) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:     "up",
		Timestamp:  time.Now().UTC(),
		Components: make(map[string]string),
	}

	status.Components["backend"] = string(s.app.Backend)

	s.app.statusMu.RLock()
	last, result := s.app.lastCheck, s.app.lastResult
	s.app.statusMu.RUnlock()

	if last.IsZero() {
		status.Components["check"] = "not run"
		return status
	}
	status.Components["check"] = fmt.Sprintf("%d files, %d failures at %s", result.files, result.failures, last.UTC().Format(time.RFC3339))
	if result.failures > 0 {
		status.Status = "degraded"
	}
	return status
}

// Components adapts Check to the metrics server's status callback.
func (s *HealthService) Components(ctx context.Context) map[string]string {
	h := s.Check(ctx)
	out := make(map[string]string, len(h.Components)+1)
	for k, v := range h.Components {
		out[k] = v
	}
	out["status"] = h.Status
	return out
}
