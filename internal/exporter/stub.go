package exporter

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/meshport/meshport-agent/internal/preset"
	"github.com/meshport/meshport-agent/internal/scene"
)

// StubExporter stands in when no encoder tool is configured. It writes a
// plain-text manifest to the output path so the rest of the export flow
// (path resolution, directory creation, reporting) behaves exactly as it
// would with a real encoder.
type StubExporter struct {
	format preset.Format
	logger *slog.Logger
}

func NewStubExporter(format preset.Format, logger *slog.Logger) *StubExporter {
	return &StubExporter{format: format, logger: logger}
}

// NewStubSet builds a Set of stub exporters for all supported formats.
func NewStubSet(logger *slog.Logger) Set {
	return Set{
		preset.FormatFBX: NewStubExporter(preset.FormatFBX, logger),
		preset.FormatOBJ: NewStubExporter(preset.FormatOBJ, logger),
	}
}

func (e *StubExporter) Export(ctx context.Context, objects []scene.ObjectRef, scenePath, outputPath string, settings Settings) error {
	var b strings.Builder
	fmt.Fprintf(&b, "# meshport stub export (%s)\n", e.format)
	fmt.Fprintf(&b, "# scene: %s\n", scenePath)
	for _, obj := range objects {
		fmt.Fprintf(&b, "%s %s\n", obj.ID, obj.Name)
	}

	if err := os.WriteFile(outputPath, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("stub encoder failed to write %q: %w", outputPath, err)
	}

	e.logger.Info("encoder stub: wrote manifest (no export tool configured)",
		"format", e.format, "output_path", outputPath, "objects", len(objects))
	return nil
}
