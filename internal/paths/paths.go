// Package paths converts between absolute filesystem paths and
// project-root-relative paths, and validates scene locations against the
// configured project root. All functions are pure path-string manipulation;
// nothing here touches the filesystem.
package paths

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrProjectRootUnset is returned when an operation requires a project root
// and none is configured.
var ErrProjectRootUnset = errors.New("project root is not configured")

// PathOutsideRootError reports a path that does not lie under the project root.
type PathOutsideRootError struct {
	Path string
	Root string
}

func (e *PathOutsideRootError) Error() string {
	return fmt.Sprintf("path %q is outside the project root %q", e.Path, e.Root)
}

// SceneNotSavedError reports an unsaved scene (no file path yet).
type SceneNotSavedError struct{}

func (e *SceneNotSavedError) Error() string {
	return "scene has not been saved"
}

// SceneOutsideRootError reports a scene file saved outside the project root.
type SceneOutsideRootError struct {
	ScenePath string
	Root      string
}

func (e *SceneOutsideRootError) Error() string {
	return fmt.Sprintf("scene %q is outside the project root %q", e.ScenePath, e.Root)
}

// ToRelative converts an absolute path to a slash-separated path relative to
// root. Fails with *PathOutsideRootError if the path does not lie under root
// after normalization.
func ToRelative(absPath, root string) (string, error) {
	if root == "" {
		return "", ErrProjectRootUnset
	}

	root = filepath.Clean(root)
	absPath = filepath.Clean(absPath)

	rel, err := filepath.Rel(root, absPath)
	if err != nil {
		return "", &PathOutsideRootError{Path: absPath, Root: root}
	}
	if escapes(rel) {
		return "", &PathOutsideRootError{Path: absPath, Root: root}
	}

	return filepath.ToSlash(rel), nil
}

// ToAbsolute joins a stored relative path onto root and normalizes the
// result. It is pure concatenation: containment is not re-checked here, so
// callers that act on the result must verify it with ToRelative first.
func ToAbsolute(relPath, root string) (string, error) {
	if root == "" {
		return "", ErrProjectRootUnset
	}
	return filepath.Join(filepath.Clean(root), filepath.FromSlash(relPath)), nil
}

// ValidateSceneLocation checks that the scene file is saved and lives under
// the project root. scenePath of "" means the scene was never saved.
func ValidateSceneLocation(scenePath, root string) error {
	if root == "" {
		return ErrProjectRootUnset
	}
	if scenePath == "" {
		return &SceneNotSavedError{}
	}
	if _, err := ToRelative(scenePath, root); err != nil {
		return &SceneOutsideRootError{ScenePath: scenePath, Root: root}
	}
	return nil
}

func escapes(rel string) bool {
	return rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
