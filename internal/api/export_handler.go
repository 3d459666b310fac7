package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"

	"github.com/meshport/meshport-agent/internal/export"
	"github.com/meshport/meshport-agent/internal/paths"
)

func exportHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ExportRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		var scope export.Scope
		switch req.Scope {
		case "", string(export.ScopeAll):
			scope = export.All()
		case string(export.ScopeSelection):
			objectIDs := req.ObjectIDs
			if len(objectIDs) == 0 {
				for _, obj := range cfg.Scene.EnumerateSelected() {
					objectIDs = append(objectIDs, obj.ID)
				}
			}
			scope = export.BySelection(objectIDs)
		default:
			WriteError(w, http.StatusBadRequest, fmt.Sprintf("unknown scope %q", req.Scope), "BAD_REQUEST")
			return
		}

		root, err := cfg.Store.GetConfig(r.Context(), "project_root")
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to read project root", "INTERNAL_ERROR")
			return
		}

		report, err := cfg.Orchestrator.Export(r.Context(), scope, root, cfg.Scene.CurrentScenePath())
		if err != nil {
			writeExportError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, ReportToResponse(report))
	}
}

func exportCollectionHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		root, err := cfg.Store.GetConfig(r.Context(), "project_root")
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to read project root", "INTERNAL_ERROR")
			return
		}

		id := chi.URLParam(r, "id")
		report, err := cfg.Orchestrator.ExportCollection(r.Context(), id, root, cfg.Scene.CurrentScenePath())
		if err != nil {
			writeExportError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, ReportToResponse(report))
	}
}

// writeExportError handles errors raised before any export starts. Scene and
// per-collection failures are reported inside the batch report instead.
func writeExportError(w http.ResponseWriter, err error) {
	if errors.Is(err, paths.ErrProjectRootUnset) {
		WriteError(w, http.StatusBadRequest, err.Error(), "PROJECT_ROOT_UNSET")
		return
	}
	writeRegistryError(w, err)
}

// normalizeProjectRoot validates and cleans a project root path. An empty
// value clears the configured root.
func normalizeProjectRoot(root string) (string, error) {
	if root == "" {
		return "", nil
	}
	if !filepath.IsAbs(root) {
		return "", fmt.Errorf("project root must be an absolute path")
	}
	return filepath.Clean(root), nil
}
