package api

import (
	"time"

	"github.com/meshport/meshport-agent/internal/export"
	"github.com/meshport/meshport-agent/internal/preset"
	"github.com/meshport/meshport-agent/internal/registry"
	"github.com/meshport/meshport-agent/internal/scene"
)

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	UptimeS int64  `json:"uptime_s"`
}

type StatusResponse struct {
	SceneID          string `json:"scene_id,omitempty"`
	ScenePath        string `json:"scene_path,omitempty"`
	ObjectsCount     int    `json:"objects_count"`
	SelectedCount    int    `json:"selected_count"`
	CollectionsCount int    `json:"collections_count"`
	ProjectRoot      string `json:"project_root,omitempty"`
}

type SceneStateRequest struct {
	SceneID   string            `json:"scene_id"`
	ScenePath string            `json:"scene_path,omitempty"`
	Objects   []scene.ObjectRef `json:"objects"`
	Selected  []string          `json:"selected,omitempty"`
}

type CreateCollectionRequest struct {
	Name       string   `json:"name,omitempty"`
	ObjectIDs  []string `json:"object_ids,omitempty"`
	OutputPath string   `json:"output_path,omitempty"`
	PresetID   string   `json:"preset_id,omitempty"`
}

type PerObjectRequest struct {
	ObjectIDs []string `json:"object_ids,omitempty"`
	OutputDir string   `json:"output_dir,omitempty"`
	PresetID  string   `json:"preset_id,omitempty"`
}

type PatchCollectionRequest struct {
	Name       *string `json:"name,omitempty"`
	OutputPath *string `json:"output_path,omitempty"`
	Format     *string `json:"format,omitempty"`
}

type MembersRequest struct {
	ObjectIDs []string `json:"object_ids"`
}

type CollectionResponse struct {
	ID         string         `json:"id"`
	SceneID    string         `json:"scene_id"`
	Name       string         `json:"name"`
	Members    []string       `json:"members"`
	OutputPath string         `json:"output_path"`
	Format     string         `json:"format"`
	PresetID   string         `json:"preset_id,omitempty"`
	Settings   map[string]any `json:"settings,omitempty"`
	CreatedAt  string         `json:"created_at"`
	UpdatedAt  string         `json:"updated_at"`
}

type CollectionsResponse struct {
	Collections []CollectionResponse `json:"collections"`
}

type MembersResponse struct {
	Members []scene.ObjectRef `json:"members"`
}

type ExportRequest struct {
	Scope     string   `json:"scope,omitempty"`
	ObjectIDs []string `json:"object_ids,omitempty"`
}

type OutcomeResponse struct {
	Collection string `json:"collection"`
	Format     string `json:"format"`
	OutputPath string `json:"output_path,omitempty"`
	Error      string `json:"error,omitempty"`
}

type ReportResponse struct {
	Scope      string            `json:"scope"`
	SceneError string            `json:"scene_error,omitempty"`
	Outcomes   []OutcomeResponse `json:"outcomes"`
	Succeeded  int               `json:"succeeded"`
	Total      int               `json:"total"`
	Summary    string            `json:"summary"`
}

type PresetResponse struct {
	ID         string         `json:"id"`
	Label      string         `json:"label"`
	Format     string         `json:"format"`
	FilePrefix string         `json:"file_prefix,omitempty"`
	Settings   map[string]any `json:"settings,omitempty"`
}

type PresetsResponse struct {
	Presets []PresetResponse `json:"presets"`
}

type ProjectRootRequest struct {
	ProjectRoot string `json:"project_root"`
}

type ProjectRootResponse struct {
	ProjectRoot string `json:"project_root"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func CollectionToResponse(c *registry.Collection) CollectionResponse {
	members := c.Members
	if members == nil {
		members = []string{}
	}
	return CollectionResponse{
		ID:         c.ID,
		SceneID:    c.SceneID,
		Name:       c.Name,
		Members:    members,
		OutputPath: c.OutputPath,
		Format:     string(c.Format),
		PresetID:   c.PresetID,
		Settings:   c.Settings,
		CreatedAt:  c.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  c.UpdatedAt.Format(time.RFC3339),
	}
}

func ReportToResponse(r *export.Report) ReportResponse {
	resp := ReportResponse{
		Scope:     string(r.Scope),
		Outcomes:  make([]OutcomeResponse, len(r.Outcomes)),
		Succeeded: r.Succeeded(),
		Total:     r.Total(),
		Summary:   r.Summary(),
	}
	if r.SceneErr != nil {
		resp.SceneError = r.SceneErr.Error()
	}
	for i, o := range r.Outcomes {
		out := OutcomeResponse{
			Collection: o.Collection,
			Format:     o.Format,
			OutputPath: o.OutputPath,
		}
		if o.Err != nil {
			out.Error = o.Err.Error()
		}
		resp.Outcomes[i] = out
	}
	return resp
}

func PresetToResponse(p *preset.Preset) PresetResponse {
	return PresetResponse{
		ID:         p.ID,
		Label:      p.Label,
		Format:     string(p.Format),
		FilePrefix: p.FilePrefix,
		Settings:   p.CloneSettings(),
	}
}
