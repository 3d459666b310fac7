package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/meshport/meshport-agent/internal/preset"
	"github.com/meshport/meshport-agent/internal/scene"
)

// Service owns the export collections of the active scene. All mutations go
// through here; the store is never written by anything else. mu serializes
// mutations: every write is a check-then-write sequence (duplicate-name
// lookups, member list edits) that must not interleave across requests.
type Service struct {
	store   Store
	presets *preset.Store
	host    scene.Host
	logger  *slog.Logger

	mu sync.Mutex
}

func NewService(store Store, presets *preset.Store, host scene.Host, logger *slog.Logger) *Service {
	return &Service{store: store, presets: presets, host: host, logger: logger}
}

// CreateParams describes a new collection. OutputPath is project-root
// relative and may be empty or a bare directory, in which case the file name
// is derived from the preset and collection name.
type CreateParams struct {
	Name       string
	MemberIDs  []string
	OutputPath string
	PresetID   string
}

// Create makes a new export collection from a non-empty selection. The name
// is normalized, validated against the preset's naming pattern, and must be
// unique within the scene. Format and settings are snapshotted from the
// preset; the preset itself is not referenced again after this point.
func (s *Service) Create(ctx context.Context, p CreateParams) (*Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.create(ctx, p)
}

func (s *Service) create(ctx context.Context, p CreateParams) (*Collection, error) {
	if len(p.MemberIDs) == 0 {
		return nil, &EmptySelectionError{}
	}

	name := preset.NormalizeExportName(p.Name, s.fallbackName(), s.presets.FilePrefixes())

	presetID := p.PresetID
	if presetID == "" {
		presetID = "static-mesh"
	}
	pst, ok := s.presets.Get(presetID)
	if !ok {
		return nil, &UnknownPresetError{PresetID: presetID}
	}
	if err := pst.ValidateName(name); err != nil {
		return nil, err
	}

	sceneID := s.host.SceneID()
	existing, err := s.store.GetCollectionByName(ctx, sceneID, name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, &DuplicateNameError{Name: name}
	}

	outputPath := strings.TrimSpace(p.OutputPath)
	switch {
	case outputPath == "":
		outputPath = pst.FileName(name)
	case path.Ext(outputPath) == "":
		// Bare directory: derive the file name.
		outputPath = path.Join(outputPath, pst.FileName(name))
	}

	now := time.Now()
	c := &Collection{
		ID:         uuid.NewString(),
		SceneID:    sceneID,
		Name:       name,
		Members:    dedupe(p.MemberIDs),
		OutputPath: outputPath,
		Format:     pst.Format,
		PresetID:   pst.ID,
		Settings:   pst.CloneSettings(),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.store.CreateCollection(ctx, c); err != nil {
		return nil, err
	}

	s.logger.Info("export collection created",
		"collection", c.Name, "members", len(c.Members), "output_path", c.OutputPath, "format", c.Format)
	return c, nil
}

// CreatePerObject creates one collection per object, named after the object.
// Objects whose derived name collides with an existing collection are
// skipped; the successfully created collections are returned alongside the
// joined errors.
func (s *Service) CreatePerObject(ctx context.Context, objects []scene.ObjectRef, outputDir, presetID string) ([]*Collection, error) {
	if len(objects) == 0 {
		return nil, &EmptySelectionError{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var created []*Collection
	var errs []error
	for _, obj := range objects {
		c, err := s.create(ctx, CreateParams{
			Name:       obj.Name,
			MemberIDs:  []string{obj.ID},
			OutputPath: outputDir,
			PresetID:   presetID,
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("object %q: %w", obj.Name, err))
			continue
		}
		created = append(created, c)
	}
	return created, errors.Join(errs...)
}

// Get returns a collection with stale members pruned.
func (s *Service) Get(ctx context.Context, id string) (*Collection, error) {
	c, err := s.store.GetCollection(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrNotFound
	}
	s.prune(ctx, c)
	return c, nil
}

// List returns the scene's collections in name order, with stale members pruned.
func (s *Service) List(ctx context.Context) ([]*Collection, error) {
	collections, err := s.store.ListCollections(ctx, s.host.SceneID())
	if err != nil {
		return nil, err
	}
	for _, c := range collections {
		s.prune(ctx, c)
	}
	return collections, nil
}

// FindByMember returns every collection whose members include the object.
func (s *Service) FindByMember(ctx context.Context, objectID string) ([]*Collection, error) {
	collections, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []*Collection
	for _, c := range collections {
		if c.HasMember(objectID) {
			out = append(out, c)
		}
	}
	return out, nil
}

// AddMembers adds objects to a collection. Adding an already-present member
// is a no-op.
func (s *Service) AddMembers(ctx context.Context, id string, objectIDs []string) (*Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	added := 0
	for _, objectID := range objectIDs {
		if c.HasMember(objectID) {
			continue
		}
		c.Members = append(c.Members, objectID)
		added++
	}
	if added == 0 {
		return c, nil
	}

	if err := s.store.ReplaceMembers(ctx, c.ID, c.Members); err != nil {
		return nil, err
	}
	s.logger.Info("members added", "collection", c.Name, "added", added)
	return c, nil
}

// RemoveMembers removes objects from a collection. Removing a non-member is
// a no-op. The objects themselves are untouched.
func (s *Service) RemoveMembers(ctx context.Context, id string, objectIDs []string) (*Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	drop := make(map[string]bool, len(objectIDs))
	for _, objectID := range objectIDs {
		drop[objectID] = true
	}

	kept := c.Members[:0]
	for _, member := range c.Members {
		if !drop[member] {
			kept = append(kept, member)
		}
	}
	removed := len(c.Members) - len(kept)
	c.Members = kept
	if removed == 0 {
		return c, nil
	}

	if err := s.store.ReplaceMembers(ctx, c.ID, c.Members); err != nil {
		return nil, err
	}
	s.logger.Info("members removed", "collection", c.Name, "removed", removed)
	return c, nil
}

// Rename changes a collection's name after normalization and duplicate checks.
func (s *Service) Rename(ctx context.Context, id, newName string) (*Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	name := preset.NormalizeExportName(newName, s.fallbackName(), s.presets.FilePrefixes())
	if name == c.Name {
		return c, nil
	}

	existing, err := s.store.GetCollectionByName(ctx, c.SceneID, name)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.ID != c.ID {
		return nil, &DuplicateNameError{Name: name}
	}

	if err := s.store.UpdateCollectionName(ctx, c.ID, name); err != nil {
		return nil, err
	}
	s.logger.Info("collection renamed", "from", c.Name, "to", name)
	c.Name = name
	return c, nil
}

// SetOutputPath retargets where the collection exports to. The path is
// stored as given (project-root relative, slash-separated); containment is
// enforced at export time against the then-current project root.
func (s *Service) SetOutputPath(ctx context.Context, id, outputPath string) (*Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	outputPath = strings.TrimSpace(filepath.ToSlash(outputPath))
	if outputPath == "" {
		return nil, fmt.Errorf("output path must not be empty")
	}

	if err := s.store.UpdateCollectionOutputPath(ctx, c.ID, outputPath); err != nil {
		return nil, err
	}
	c.OutputPath = outputPath
	return c, nil
}

// SetFormat changes the export format. The settings snapshot keeps any keys
// both formats understand; format-specific keys simply stop being consumed
// by the encoder.
func (s *Service) SetFormat(ctx context.Context, id string, format preset.Format) (*Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.store.UpdateCollectionFormat(ctx, c.ID, format, c.Settings); err != nil {
		return nil, err
	}
	c.Format = format
	return c, nil
}

// Delete removes the collection record. Member objects are never deleted.
func (s *Service) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteCollection(ctx, c.ID); err != nil {
		return err
	}
	s.logger.Info("collection deleted", "collection", c.Name)
	return nil
}

// ResolveMembers returns the live object refs for a collection's members.
func (s *Service) ResolveMembers(c *Collection) []scene.ObjectRef {
	out := make([]scene.ObjectRef, 0, len(c.Members))
	for _, id := range c.Members {
		if obj, ok := s.host.Resolve(id); ok {
			out = append(out, obj)
		}
	}
	return out
}

// prune drops member references to objects that no longer exist in the
// scene. Pruning is lazy and best-effort: a store failure here is logged and
// never surfaces to the caller.
func (s *Service) prune(ctx context.Context, c *Collection) {
	kept := c.Members[:0]
	for _, id := range c.Members {
		if _, ok := s.host.Resolve(id); ok {
			kept = append(kept, id)
		}
	}
	if len(kept) == len(c.Members) {
		return
	}

	pruned := len(c.Members) - len(kept)
	c.Members = kept
	if err := s.store.ReplaceMembers(ctx, c.ID, c.Members); err != nil {
		s.logger.Warn("failed to persist pruned members", "collection", c.Name, "error", err)
		return
	}
	s.logger.Info("pruned stale members", "collection", c.Name, "pruned", pruned)
}

// fallbackName derives a collection name from the scene file, mirroring how
// artists expect unnamed exports to pick up the scene name.
func (s *Service) fallbackName() string {
	scenePath := s.host.CurrentScenePath()
	if scenePath == "" {
		return "Export"
	}
	base := filepath.Base(scenePath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
