// Package scene holds the agent's view of the host application's scene:
// which objects exist, which are selected, and where the scene file lives.
// The host plugin pushes a full snapshot on every change; the agent never
// reaches into the host directly.
package scene

import "sync"

// ObjectRef is a stable, opaque reference to a host scene object. The ID is
// generated and persisted by the host plugin so it survives renames and
// save/reload of the same scene.
type ObjectRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// State is a point-in-time snapshot of the host scene.
type State struct {
	SceneID   string      // stable identifier the host stores inside the scene file
	ScenePath string      // absolute path of the scene file, "" if never saved
	Objects   []ObjectRef // every object currently in the scene
	Selected  []string    // IDs of the currently selected objects
}

// Resolver looks up a live object by its stable ID. Objects deleted in the
// host simply stop resolving; callers prune references lazily.
type Resolver interface {
	Resolve(id string) (ObjectRef, bool)
}

// Host is the narrow interface the agent consumes in place of the host
// application's scene graph.
type Host interface {
	Resolver
	EnumerateObjects() []ObjectRef
	EnumerateSelected() []ObjectRef
	SceneID() string
	CurrentScenePath() string
}

// StateStore is a thread-safe holder for the latest scene snapshot.
// It implements Host; the API sync endpoint is its only writer.
type StateStore struct {
	mu    sync.RWMutex
	state State
	byID  map[string]ObjectRef
}

func NewStateStore() *StateStore {
	return &StateStore{byID: make(map[string]ObjectRef)}
}

// Update replaces the current snapshot atomically.
func (s *StateStore) Update(state State) {
	byID := make(map[string]ObjectRef, len(state.Objects))
	for _, obj := range state.Objects {
		byID[obj.ID] = obj
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	s.byID = byID
}

func (s *StateStore) Resolve(id string) (ObjectRef, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.byID[id]
	return obj, ok
}

func (s *StateStore) EnumerateObjects() []ObjectRef {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ObjectRef, len(s.state.Objects))
	copy(out, s.state.Objects)
	return out
}

func (s *StateStore) EnumerateSelected() []ObjectRef {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ObjectRef, 0, len(s.state.Selected))
	for _, id := range s.state.Selected {
		if obj, ok := s.byID[id]; ok {
			out = append(out, obj)
		}
	}
	return out
}

func (s *StateStore) SceneID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.SceneID
}

func (s *StateStore) CurrentScenePath() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.ScenePath
}
