package exporter

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"sort"
	"strings"
	"time"

	"github.com/meshport/meshport-agent/internal/preset"
	"github.com/meshport/meshport-agent/internal/scene"
)

const maxStderrBytes = 8 * 1024 // 8 KB tail of stderr kept for diagnostics

// ToolConfig holds the subprocess encoder configuration.
type ToolConfig struct {
	ToolPath string        // path to the encoder binary
	Timeout  time.Duration // per-invocation timeout
	Logger   *slog.Logger
}

// ToolExporter invokes an external encoder CLI for one format. The tool
// contract is:
//
//	<tool> --scene <scene-file> --format <fbx|obj> --output <path>
//	       --objects <id,id,...> [--set key=value]...
//
// with a zero exit code on success and diagnostics on stderr.
type ToolExporter struct {
	cfg    ToolConfig
	format preset.Format
}

// NewToolExporter resolves the encoder binary and returns an exporter for
// the given format.
func NewToolExporter(cfg ToolConfig, format preset.Format) (*ToolExporter, error) {
	resolved, err := exec.LookPath(cfg.ToolPath)
	if err != nil {
		return nil, fmt.Errorf("cannot locate export tool: %w", err)
	}
	cfg.ToolPath = resolved

	return &ToolExporter{cfg: cfg, format: format}, nil
}

// NewToolSet builds a Set with a tool exporter per supported format.
func NewToolSet(cfg ToolConfig) (Set, error) {
	set := make(Set)
	for _, format := range []preset.Format{preset.FormatFBX, preset.FormatOBJ} {
		exp, err := NewToolExporter(cfg, format)
		if err != nil {
			return nil, err
		}
		set[format] = exp
	}
	return set, nil
}

func (t *ToolExporter) Export(ctx context.Context, objects []scene.ObjectRef, scenePath, outputPath string, settings Settings) error {
	if t.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.cfg.Timeout)
		defer cancel()
	}

	args := buildArgs(t.format, objects, scenePath, outputPath, settings)

	start := time.Now()
	cmd := exec.CommandContext(ctx, t.cfg.ToolPath, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	duration := time.Since(start)

	if err != nil {
		exitCode := -1
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		}
		return &ExportError{
			Format:     t.format,
			ExitCode:   exitCode,
			StderrTail: stderrTail(stderr.Bytes()),
		}
	}

	t.cfg.Logger.Info("encoder finished",
		"format", t.format,
		"output_path", outputPath,
		"objects", len(objects),
		"duration_ms", duration.Milliseconds(),
	)
	return nil
}

func buildArgs(format preset.Format, objects []scene.ObjectRef, scenePath, outputPath string, settings Settings) []string {
	ids := make([]string, len(objects))
	for i, obj := range objects {
		ids[i] = obj.ID
	}

	args := []string{
		"--scene", scenePath,
		"--format", format.Extension(),
		"--output", outputPath,
		"--objects", strings.Join(ids, ","),
	}

	// Stable flag order so invocations are reproducible in logs.
	keys := make([]string, 0, len(settings))
	for k := range settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, "--set", fmt.Sprintf("%s=%v", k, settings[k]))
	}
	return args
}

func stderrTail(b []byte) string {
	if len(b) > maxStderrBytes {
		b = b[len(b)-maxStderrBytes:]
	}
	return strings.TrimSpace(string(b))
}
