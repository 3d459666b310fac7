package export

import "fmt"

// Kind selects which collections an export batch targets.
type Kind string

const (
	ScopeAll       Kind = "all"
	ScopeSelection Kind = "selection"
	ScopeSingle    Kind = "single" // one collection addressed by id
)

// Scope is the selection criterion for an export batch.
type Scope struct {
	Kind      Kind
	ObjectIDs []string // only for ScopeSelection
}

// All targets every export collection in the scene.
func All() Scope {
	return Scope{Kind: ScopeAll}
}

// BySelection targets every collection containing at least one of the objects.
func BySelection(objectIDs []string) Scope {
	return Scope{Kind: ScopeSelection, ObjectIDs: objectIDs}
}

// Outcome is the result of exporting a single collection.
type Outcome struct {
	Collection string // collection name
	Format     string
	OutputPath string // absolute path written, set on success
	Err        error
}

// Report aggregates the outcomes of one export batch. If SceneErr is set the
// scene failed validation and no collection was attempted.
type Report struct {
	Scope    Kind
	SceneErr error
	Outcomes []Outcome
}

// Total returns the number of collections attempted.
func (r *Report) Total() int {
	return len(r.Outcomes)
}

// Succeeded returns the number of collections exported successfully.
func (r *Report) Succeeded() int {
	n := 0
	for _, out := range r.Outcomes {
		if out.Err == nil {
			n++
		}
	}
	return n
}

// Summary renders the "exported m/n" line surfaced to the user.
func (r *Report) Summary() string {
	if r.SceneErr != nil {
		return fmt.Sprintf("export aborted: %v", r.SceneErr)
	}
	return fmt.Sprintf("exported %d/%d export collections", r.Succeeded(), r.Total())
}
