// Package exporter wraps the format-specific model encoders the agent
// drives. Encoding itself happens in an external tool; this package only
// knows how to invoke it and report the outcome.
package exporter

import (
	"context"
	"fmt"

	"github.com/meshport/meshport-agent/internal/preset"
	"github.com/meshport/meshport-agent/internal/scene"
)

// Settings are the format-specific encoder options snapshotted on a
// collection (axis conventions, scale, modifier application and so on).
type Settings map[string]any

// Exporter serializes a set of scene objects to a model file at an absolute
// path. Implementations are not reentrant: the orchestrator invokes them
// strictly sequentially.
type Exporter interface {
	Export(ctx context.Context, objects []scene.ObjectRef, scenePath, outputPath string, settings Settings) error
}

// ExportError is a failed encoder invocation.
type ExportError struct {
	Format     preset.Format
	ExitCode   int
	StderrTail string
}

func (e *ExportError) Error() string {
	if e.StderrTail != "" {
		return fmt.Sprintf("%s encoder exited %d: %s", e.Format, e.ExitCode, e.StderrTail)
	}
	return fmt.Sprintf("%s encoder exited %d", e.Format, e.ExitCode)
}

// Set maps formats to their exporters.
type Set map[preset.Format]Exporter

// For returns the exporter registered for the format.
func (s Set) For(f preset.Format) (Exporter, bool) {
	exp, ok := s[f]
	return exp, ok
}
