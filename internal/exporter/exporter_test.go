package exporter

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/meshport/meshport-agent/internal/preset"
	"github.com/meshport/meshport-agent/internal/scene"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBuildArgs(t *testing.T) {
	objects := []scene.ObjectRef{
		{ID: "obj-a", Name: "crate"},
		{ID: "obj-b", Name: "barrel"},
	}
	settings := Settings{"scale": 1.0, "apply_modifiers": true, "axis_up": "Z"}

	args := buildArgs(preset.FormatFBX, objects, "/proj/main.blend", "/proj/out.fbx", settings)

	want := []string{
		"--scene", "/proj/main.blend",
		"--format", "fbx",
		"--output", "/proj/out.fbx",
		"--objects", "obj-a,obj-b",
		"--set", "apply_modifiers=true",
		"--set", "axis_up=Z",
		"--set", "scale=1",
	}
	if len(args) != len(want) {
		t.Fatalf("buildArgs() = %v, want %v", args, want)
	}
	for i := range want {
		if args[i] != want[i] {
			t.Errorf("args[%d] = %q, want %q", i, args[i], want[i])
		}
	}
}

func TestBuildArgs_NoObjectsNoSettings(t *testing.T) {
	args := buildArgs(preset.FormatOBJ, nil, "/s.blend", "/o.obj", nil)

	want := []string{"--scene", "/s.blend", "--format", "obj", "--output", "/o.obj", "--objects", ""}
	if len(args) != len(want) {
		t.Fatalf("buildArgs() = %v, want %v", args, want)
	}
}

func TestStderrTail(t *testing.T) {
	if got := stderrTail([]byte("  error: boom \n")); got != "error: boom" {
		t.Errorf("stderrTail() = %q", got)
	}

	long := strings.Repeat("x", maxStderrBytes+100)
	if got := stderrTail([]byte(long)); len(got) != maxStderrBytes {
		t.Errorf("stderrTail() kept %d bytes, want %d", len(got), maxStderrBytes)
	}
}

func TestExportError_Error(t *testing.T) {
	err := &ExportError{Format: preset.FormatFBX, ExitCode: 2, StderrTail: "bad mesh"}
	if got := err.Error(); got != "FBX encoder exited 2: bad mesh" {
		t.Errorf("Error() = %q", got)
	}

	bare := &ExportError{Format: preset.FormatOBJ, ExitCode: 1}
	if got := bare.Error(); got != "OBJ encoder exited 1" {
		t.Errorf("Error() = %q", got)
	}
}

func TestStubExporter_WritesManifest(t *testing.T) {
	out := filepath.Join(t.TempDir(), "crate.fbx")
	stub := NewStubExporter(preset.FormatFBX, discardLogger())

	objects := []scene.ObjectRef{{ID: "obj-a", Name: "crate"}}
	if err := stub.Export(context.Background(), objects, "/proj/main.blend", out, nil); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("failed to read manifest: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "stub export (FBX)") {
		t.Errorf("manifest missing header: %q", content)
	}
	if !strings.Contains(content, "obj-a crate") {
		t.Errorf("manifest missing object line: %q", content)
	}
}

func TestStubExporter_MissingDirectory(t *testing.T) {
	out := filepath.Join(t.TempDir(), "nope", "crate.fbx")
	stub := NewStubExporter(preset.FormatFBX, discardLogger())

	if err := stub.Export(context.Background(), nil, "", out, nil); err == nil {
		t.Error("Export() should fail when the output directory does not exist")
	}
}

func TestNewToolExporter_MissingTool(t *testing.T) {
	_, err := NewToolExporter(ToolConfig{ToolPath: "/nonexistent/encoder", Logger: discardLogger()}, preset.FormatFBX)
	if err == nil {
		t.Error("NewToolExporter() should fail for a missing binary")
	}
}

func TestSet_For(t *testing.T) {
	set := NewStubSet(discardLogger())

	if _, ok := set.For(preset.FormatFBX); !ok {
		t.Error("Set missing FBX exporter")
	}
	if _, ok := set.For(preset.Format("GLTF")); ok {
		t.Error("Set should not resolve an unknown format")
	}
}
