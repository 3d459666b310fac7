package registry

import (
	"time"

	"github.com/meshport/meshport-agent/internal/preset"
)

// Collection is an export collection: a named grouping of scene objects that
// is exported together to a single model file. The output path is stored
// relative to the project root so the whole project tree can relocate.
// Format and settings are a snapshot taken from the preset at creation time;
// PresetID records provenance only and is never re-resolved at export time.
type Collection struct {
	ID         string         `json:"id"`
	SceneID    string         `json:"scene_id"`
	Name       string         `json:"name"`
	Members    []string       `json:"members"` // stable object IDs, insertion order
	OutputPath string         `json:"output_path"`
	Format     preset.Format  `json:"format"`
	PresetID   string         `json:"preset_id,omitempty"`
	Settings   map[string]any `json:"settings"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// HasMember reports whether the collection currently references the object.
func (c *Collection) HasMember(objectID string) bool {
	for _, id := range c.Members {
		if id == objectID {
			return true
		}
	}
	return false
}
