package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/meshport/meshport-agent/internal/preset"
	"github.com/meshport/meshport-agent/internal/registry"
	"github.com/meshport/meshport-agent/internal/scene"
)

func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))

	r.Get("/health", healthHandler(cfg))
	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Store, cfg.Logger))

		r.Get("/status", statusHandler(cfg))
		r.Put("/scene", updateSceneHandler(cfg))

		r.Get("/collections", listCollectionsHandler(cfg))
		r.Post("/collections", createCollectionHandler(cfg))
		r.Post("/collections/per-object", createPerObjectHandler(cfg))
		r.Get("/collections/{id}", getCollectionHandler(cfg))
		r.Patch("/collections/{id}", patchCollectionHandler(cfg))
		r.Delete("/collections/{id}", deleteCollectionHandler(cfg))
		r.Get("/collections/{id}/members", listMembersHandler(cfg))
		r.Post("/collections/{id}/members", addMembersHandler(cfg))
		r.Delete("/collections/{id}/members", removeMembersHandler(cfg))
		r.Post("/collections/{id}/export", exportCollectionHandler(cfg))
		r.Post("/export", exportHandler(cfg))

		r.Get("/presets", listPresetsHandler(cfg))
		r.Get("/config/project-root", getProjectRootHandler(cfg))
		r.Put("/config/project-root", setProjectRootHandler(cfg))
	})

	return r
}

// writeRegistryError maps registry and preset errors onto HTTP statuses. Any
// unrecognized error is treated as internal.
func writeRegistryError(w http.ResponseWriter, err error) {
	var (
		dup     *registry.DuplicateNameError
		empty   *registry.EmptySelectionError
		unknown *registry.UnknownPresetError
		naming  *preset.NamingError
	)
	switch {
	case errors.Is(err, registry.ErrNotFound):
		WriteError(w, http.StatusNotFound, err.Error(), "NOT_FOUND")
	case errors.As(err, &dup):
		WriteError(w, http.StatusConflict, err.Error(), "DUPLICATE_NAME")
	case errors.As(err, &empty):
		WriteError(w, http.StatusBadRequest, err.Error(), "EMPTY_SELECTION")
	case errors.As(err, &unknown):
		WriteError(w, http.StatusBadRequest, err.Error(), "UNKNOWN_PRESET")
	case errors.As(err, &naming):
		WriteError(w, http.StatusBadRequest, err.Error(), "NAMING_CONVENTION")
	default:
		WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
	}
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uptime := int64(time.Since(cfg.StartTime).Seconds())
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:  "ok",
			Version: cfg.Version,
			UptimeS: uptime,
		})
	}
}

func statusHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		count, err := cfg.Store.CountCollections(r.Context(), cfg.Scene.SceneID())
		if err != nil {
			cfg.Logger.Error("failed to count collections", "error", err)
		}
		root, _ := cfg.Store.GetConfig(r.Context(), "project_root")

		WriteJSON(w, http.StatusOK, StatusResponse{
			SceneID:          cfg.Scene.SceneID(),
			ScenePath:        cfg.Scene.CurrentScenePath(),
			ObjectsCount:     len(cfg.Scene.EnumerateObjects()),
			SelectedCount:    len(cfg.Scene.EnumerateSelected()),
			CollectionsCount: count,
			ProjectRoot:      root,
		})
	}
}

func updateSceneHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SceneStateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if req.SceneID == "" {
			WriteError(w, http.StatusBadRequest, "scene_id is required", "BAD_REQUEST")
			return
		}

		cfg.Scene.Update(scene.State{
			SceneID:   req.SceneID,
			ScenePath: req.ScenePath,
			Objects:   req.Objects,
			Selected:  req.Selected,
		})
		w.WriteHeader(http.StatusNoContent)
	}
}

func listCollectionsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var (
			collections []*registry.Collection
			err         error
		)
		if objectID := r.URL.Query().Get("object_id"); objectID != "" {
			collections, err = cfg.Registry.FindByMember(r.Context(), objectID)
		} else {
			collections, err = cfg.Registry.List(r.Context())
		}
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list collections", "INTERNAL_ERROR")
			return
		}

		resp := CollectionsResponse{Collections: make([]CollectionResponse, len(collections))}
		for i, c := range collections {
			resp.Collections[i] = CollectionToResponse(c)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func createCollectionHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateCollectionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		memberIDs := req.ObjectIDs
		if len(memberIDs) == 0 {
			// Default to the host's current selection.
			for _, obj := range cfg.Scene.EnumerateSelected() {
				memberIDs = append(memberIDs, obj.ID)
			}
		}

		c, err := cfg.Registry.Create(r.Context(), registry.CreateParams{
			Name:       req.Name,
			MemberIDs:  memberIDs,
			OutputPath: req.OutputPath,
			PresetID:   req.PresetID,
		})
		if err != nil {
			writeRegistryError(w, err)
			return
		}

		WriteJSON(w, http.StatusCreated, CollectionToResponse(c))
	}
}

func createPerObjectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req PerObjectRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		var objects []scene.ObjectRef
		if len(req.ObjectIDs) > 0 {
			for _, id := range req.ObjectIDs {
				if obj, ok := cfg.Scene.Resolve(id); ok {
					objects = append(objects, obj)
				}
			}
		} else {
			objects = cfg.Scene.EnumerateSelected()
		}

		created, err := cfg.Registry.CreatePerObject(r.Context(), objects, req.OutputDir, req.PresetID)
		if err != nil && len(created) == 0 {
			writeRegistryError(w, err)
			return
		}

		resp := CollectionsResponse{Collections: make([]CollectionResponse, len(created))}
		for i, c := range created {
			resp.Collections[i] = CollectionToResponse(c)
		}
		WriteJSON(w, http.StatusCreated, resp)
	}
}

func getCollectionHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := cfg.Registry.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeRegistryError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, CollectionToResponse(c))
	}
}

func patchCollectionHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		var req PatchCollectionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		c, err := cfg.Registry.Get(r.Context(), id)
		if err != nil {
			writeRegistryError(w, err)
			return
		}

		if req.Name != nil {
			if c, err = cfg.Registry.Rename(r.Context(), id, *req.Name); err != nil {
				writeRegistryError(w, err)
				return
			}
		}
		if req.OutputPath != nil {
			if c, err = cfg.Registry.SetOutputPath(r.Context(), id, *req.OutputPath); err != nil {
				writeRegistryError(w, err)
				return
			}
		}
		if req.Format != nil {
			format, perr := preset.ParseFormat(*req.Format)
			if perr != nil {
				WriteError(w, http.StatusBadRequest, perr.Error(), "BAD_REQUEST")
				return
			}
			if c, err = cfg.Registry.SetFormat(r.Context(), id, format); err != nil {
				writeRegistryError(w, err)
				return
			}
		}

		WriteJSON(w, http.StatusOK, CollectionToResponse(c))
	}
}

func deleteCollectionHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cfg.Registry.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeRegistryError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func listMembersHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := cfg.Registry.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeRegistryError(w, err)
			return
		}

		members := cfg.Registry.ResolveMembers(c)
		if members == nil {
			members = []scene.ObjectRef{}
		}
		WriteJSON(w, http.StatusOK, MembersResponse{Members: members})
	}
}

func addMembersHandler(cfg ServerConfig) http.HandlerFunc {
	return membersHandler(cfg, func(r *http.Request, id string, ids []string) (*registry.Collection, error) {
		return cfg.Registry.AddMembers(r.Context(), id, ids)
	})
}

func removeMembersHandler(cfg ServerConfig) http.HandlerFunc {
	return membersHandler(cfg, func(r *http.Request, id string, ids []string) (*registry.Collection, error) {
		return cfg.Registry.RemoveMembers(r.Context(), id, ids)
	})
}

func membersHandler(cfg ServerConfig, apply func(*http.Request, string, []string) (*registry.Collection, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req MembersRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		c, err := apply(r, chi.URLParam(r, "id"), req.ObjectIDs)
		if err != nil {
			writeRegistryError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, CollectionToResponse(c))
	}
}

func listPresetsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		presets := cfg.Presets.List()
		resp := PresetsResponse{Presets: make([]PresetResponse, len(presets))}
		for i, p := range presets {
			resp.Presets[i] = PresetToResponse(p)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func getProjectRootHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		root, err := cfg.Store.GetConfig(r.Context(), "project_root")
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to read project root", "INTERNAL_ERROR")
			return
		}
		WriteJSON(w, http.StatusOK, ProjectRootResponse{ProjectRoot: root})
	}
}

func setProjectRootHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ProjectRootRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		root, err := normalizeProjectRoot(req.ProjectRoot)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}

		if err := cfg.Store.SetConfig(r.Context(), "project_root", root); err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to store project root", "INTERNAL_ERROR")
			return
		}
		cfg.Logger.Info("project root updated", "project_root", root)
		WriteJSON(w, http.StatusOK, ProjectRootResponse{ProjectRoot: root})
	}
}
