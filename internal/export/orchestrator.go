// Package export turns export collections into concrete export jobs:
// resolving output paths against the project root, validating the scene
// location, and driving the format encoders one collection at a time.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/meshport/meshport-agent/internal/exporter"
	"github.com/meshport/meshport-agent/internal/metrics"
	"github.com/meshport/meshport-agent/internal/paths"
	"github.com/meshport/meshport-agent/internal/registry"
)

// Orchestrator runs export batches. Collections are processed independently
// and sequentially: one failure never aborts the rest of the batch, and the
// encoders are assumed non-reentrant so nothing runs in parallel. mu
// serializes whole batches, since the HTTP server and the tray can both
// trigger an export at the same time.
type Orchestrator struct {
	registry  *registry.Service
	exporters exporter.Set
	metrics   *metrics.Metrics
	logger    *slog.Logger

	mu sync.Mutex
}

func NewOrchestrator(reg *registry.Service, exporters exporter.Set, m *metrics.Metrics, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{registry: reg, exporters: exporters, metrics: m, logger: logger}
}

// Export runs one batch. projectRoot and scenePath are passed in fresh on
// every call rather than cached, so a scene saved or moved between user
// actions is picked up. An unset project root is a configuration error and
// returns before any report exists; an unsaved or misplaced scene aborts the
// batch with a single scene-level failure, since every relative path in the
// scene would resolve to a wrong location.
func (o *Orchestrator) Export(ctx context.Context, scope Scope, projectRoot, scenePath string) (*Report, error) {
	if projectRoot == "" {
		return nil, paths.ErrProjectRootUnset
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	report := &Report{Scope: scope.Kind}

	if err := paths.ValidateSceneLocation(scenePath, projectRoot); err != nil {
		report.SceneErr = err
		if o.metrics != nil {
			o.metrics.ObserveBatchAborted(string(scope.Kind))
		}
		o.logger.Warn("export batch aborted", "scope", scope.Kind, "error", err)
		return report, nil
	}

	targets, err := o.targets(ctx, scope)
	if err != nil {
		return nil, err
	}

	for _, c := range targets {
		outcome := o.exportOne(ctx, c, projectRoot, scenePath)
		report.Outcomes = append(report.Outcomes, outcome)
	}

	if o.metrics != nil {
		o.metrics.ObserveBatch(string(scope.Kind), report.Succeeded(), report.Total())
	}
	o.logger.Info("export batch finished",
		"scope", scope.Kind, "succeeded", report.Succeeded(), "total", report.Total())
	return report, nil
}

// ExportCollection exports a single collection by id, with the same scene
// validation as a batch.
func (o *Orchestrator) ExportCollection(ctx context.Context, id, projectRoot, scenePath string) (*Report, error) {
	if projectRoot == "" {
		return nil, paths.ErrProjectRootUnset
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	c, err := o.registry.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	report := &Report{Scope: ScopeSingle}
	if err := paths.ValidateSceneLocation(scenePath, projectRoot); err != nil {
		report.SceneErr = err
		return report, nil
	}

	report.Outcomes = append(report.Outcomes, o.exportOne(ctx, c, projectRoot, scenePath))
	return report, nil
}

// targets resolves the scope to a concrete collection list. The registry
// returns collections in name order, which keeps repeated runs over an
// unchanged scene stable.
func (o *Orchestrator) targets(ctx context.Context, scope Scope) ([]*registry.Collection, error) {
	collections, err := o.registry.List(ctx)
	if err != nil {
		return nil, err
	}
	if scope.Kind != ScopeSelection {
		return collections, nil
	}

	selected := make(map[string]bool, len(scope.ObjectIDs))
	for _, id := range scope.ObjectIDs {
		selected[id] = true
	}

	var out []*registry.Collection
	for _, c := range collections {
		for _, member := range c.Members {
			if selected[member] {
				out = append(out, c)
				break
			}
		}
	}
	return out, nil
}

func (o *Orchestrator) exportOne(ctx context.Context, c *registry.Collection, projectRoot, scenePath string) Outcome {
	outcome := Outcome{Collection: c.Name, Format: string(c.Format)}
	start := time.Now()
	defer func() {
		if o.metrics != nil {
			o.metrics.ObserveExport(string(c.Format), outcome.Err, time.Since(start))
		}
		if outcome.Err != nil {
			o.logger.Warn("collection export failed", "collection", c.Name, "error", outcome.Err)
		} else {
			o.logger.Info("collection exported", "collection", c.Name, "output_path", outcome.OutputPath)
		}
	}()

	absPath, err := paths.ToAbsolute(c.OutputPath, projectRoot)
	if err != nil {
		outcome.Err = err
		return outcome
	}
	// Re-check containment: a stored relative path with ".." segments must
	// not be allowed to write outside the project root.
	if _, err := paths.ToRelative(absPath, projectRoot); err != nil {
		outcome.Err = err
		return outcome
	}

	members := o.registry.ResolveMembers(c)
	if len(members) == 0 {
		outcome.Err = fmt.Errorf("no members present in the scene")
		return outcome
	}

	exp, ok := o.exporters.For(c.Format)
	if !ok {
		outcome.Err = fmt.Errorf("no exporter registered for format %s", c.Format)
		return outcome
	}

	if err := os.MkdirAll(filepath.Dir(absPath), 0755); err != nil {
		outcome.Err = fmt.Errorf("failed to create output directory: %w", err)
		return outcome
	}

	if err := exp.Export(ctx, members, scenePath, absPath, exporter.Settings(c.Settings)); err != nil {
		outcome.Err = err
		return outcome
	}

	outcome.OutputPath = absPath
	return outcome
}
