package registry

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a collection id does not exist.
var ErrNotFound = errors.New("export collection not found")

// DuplicateNameError reports a collection name that already exists in the scene.
type DuplicateNameError struct {
	Name string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("an export collection named %q already exists in this scene", e.Name)
}

// EmptySelectionError reports an attempt to create a collection from an
// empty selection.
type EmptySelectionError struct{}

func (e *EmptySelectionError) Error() string {
	return "cannot create an export collection from an empty selection"
}

// UnknownPresetError reports a preset id that is not registered.
type UnknownPresetError struct {
	PresetID string
}

func (e *UnknownPresetError) Error() string {
	return fmt.Sprintf("unknown export preset %q", e.PresetID)
}
