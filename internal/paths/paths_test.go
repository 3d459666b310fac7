package paths

import (
	"errors"
	"testing"
)

func TestToRelative(t *testing.T) {
	tests := []struct {
		name    string
		absPath string
		root    string
		want    string
	}{
		{"simple child", "/proj/export/crate.fbx", "/proj", "export/crate.fbx"},
		{"root itself", "/proj", "/proj", "."},
		{"trailing slash on root", "/proj/assets/rock.obj", "/proj/", "assets/rock.obj"},
		{"dot segments collapse", "/proj/export/../export/crate.fbx", "/proj", "export/crate.fbx"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToRelative(tt.absPath, tt.root)
			if err != nil {
				t.Fatalf("ToRelative(%q, %q) error = %v", tt.absPath, tt.root, err)
			}
			if got != tt.want {
				t.Errorf("ToRelative(%q, %q) = %q, want %q", tt.absPath, tt.root, got, tt.want)
			}
		})
	}
}

func TestToRelative_OutsideRoot(t *testing.T) {
	tests := []struct {
		name    string
		absPath string
		root    string
	}{
		{"sibling dir", "/other/file.fbx", "/proj"},
		{"parent of root", "/file.fbx", "/proj"},
		{"escapes via dot segments", "/proj/export/../../outside.fbx", "/proj"},
		{"prefix but not child", "/project2/file.fbx", "/proj"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ToRelative(tt.absPath, tt.root)
			var outside *PathOutsideRootError
			if !errors.As(err, &outside) {
				t.Fatalf("ToRelative(%q, %q) error = %v, want PathOutsideRootError", tt.absPath, tt.root, err)
			}
		})
	}
}

func TestToRelative_NoRoot(t *testing.T) {
	if _, err := ToRelative("/proj/file.fbx", ""); !errors.Is(err, ErrProjectRootUnset) {
		t.Fatalf("error = %v, want ErrProjectRootUnset", err)
	}
}

func TestToAbsolute(t *testing.T) {
	got, err := ToAbsolute("export/crate.fbx", "/proj")
	if err != nil {
		t.Fatalf("ToAbsolute() error = %v", err)
	}
	if got != "/proj/export/crate.fbx" {
		t.Errorf("ToAbsolute() = %q, want /proj/export/crate.fbx", got)
	}
}

func TestToAbsolute_DoesNotCheckContainment(t *testing.T) {
	// ToAbsolute is pure concatenation; escaping paths resolve but must be
	// rejected by a ToRelative round trip before use.
	abs, err := ToAbsolute("../../outside.fbx", "/proj/sub")
	if err != nil {
		t.Fatalf("ToAbsolute() error = %v", err)
	}
	if abs != "/outside.fbx" {
		t.Errorf("ToAbsolute() = %q, want /outside.fbx", abs)
	}
	if _, err := ToRelative(abs, "/proj/sub"); err == nil {
		t.Error("round trip through ToRelative should reject an escaped path")
	}
}

func TestToRelative_RoundTrip(t *testing.T) {
	root := "/proj"
	for _, rel := range []string{"crate.fbx", "export/crate.fbx", "a/b/c/d.obj"} {
		abs, err := ToAbsolute(rel, root)
		if err != nil {
			t.Fatalf("ToAbsolute(%q) error = %v", rel, err)
		}
		back, err := ToRelative(abs, root)
		if err != nil {
			t.Fatalf("ToRelative(%q) error = %v", abs, err)
		}
		if back != rel {
			t.Errorf("round trip of %q = %q", rel, back)
		}
	}
}

func TestValidateSceneLocation(t *testing.T) {
	if err := ValidateSceneLocation("/proj/scenes/main.blend", "/proj"); err != nil {
		t.Errorf("ValidateSceneLocation() error = %v, want nil", err)
	}
}

func TestValidateSceneLocation_Unsaved(t *testing.T) {
	err := ValidateSceneLocation("", "/proj")
	var notSaved *SceneNotSavedError
	if !errors.As(err, &notSaved) {
		t.Fatalf("error = %v, want SceneNotSavedError", err)
	}
}

func TestValidateSceneLocation_OutsideRoot(t *testing.T) {
	err := ValidateSceneLocation("/tmp/scratch.blend", "/proj")
	var outside *SceneOutsideRootError
	if !errors.As(err, &outside) {
		t.Fatalf("error = %v, want SceneOutsideRootError", err)
	}
	if outside.ScenePath != "/tmp/scratch.blend" || outside.Root != "/proj" {
		t.Errorf("error fields = %+v", outside)
	}
}

func TestValidateSceneLocation_NoRoot(t *testing.T) {
	if err := ValidateSceneLocation("/proj/main.blend", ""); !errors.Is(err, ErrProjectRootUnset) {
		t.Fatalf("error = %v, want ErrProjectRootUnset", err)
	}
}
