// Package scope maps loosely-typed unit/component identifiers from ingest
// rows onto the canonical asset hierarchy, using the unit's installed-component
// history at the row's effective time.
package scope

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/sage/internal/repositories/installation"
	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/normalizers"
	"github.com/Ramsey-B/sage/pkg/tracing"
)

// Resolver resolves raw identifiers to asset scopes
type Resolver struct {
	installations installation.InstallationRepository
	logger        ectologger.Logger
}

// NewResolver creates a new scope resolver
func NewResolver(installations installation.InstallationRepository, logger ectologger.Logger) *Resolver {
	return &Resolver{
		installations: installations,
		logger:        logger,
	}
}

// Resolve maps a raw unit identifier and component name to an asset scope at
// the given effective time. Matching is hierarchical: exact component name
// under the unit first, then a normalized match. A miss returns
// UnresolvedScopeError carrying the raw strings so the caller can quarantine
// the row.
func (r *Resolver) Resolve(ctx context.Context, unitID, componentName string, at time.Time) (models.AssetScope, error) {
	ctx, span := tracing.StartSpan(ctx, "ScopeResolver.Resolve")
	defer span.End()

	history, err := r.installations.ListForUnit(ctx, unitID)
	if err != nil {
		return models.AssetScope{}, err
	}

	scope, ok := Match(history, componentName, at)
	if !ok {
		r.logger.WithContext(ctx).WithFields(map[string]any{
			"unit_id":   unitID,
			"component": componentName,
			"at":        at,
		}).Warn("failed to resolve scope")
		return models.AssetScope{}, &models.UnresolvedScopeError{
			UnitID:    unitID,
			Component: componentName,
			At:        at,
		}
	}

	return scope, nil
}

// Match runs the two-pass lookup over an installation history snapshot.
// Pure so resolution rules can be tested without a store.
func Match(history []models.ComponentInstallation, componentName string, at time.Time) (models.AssetScope, bool) {
	// Exact component name, installed at the effective time
	for _, inst := range history {
		if inst.ComponentName == componentName && inst.InstalledAtTime(at) {
			return scopeFor(inst), true
		}
	}

	// Case/whitespace-normalized fallback
	normalized := normalizers.NormalizeAssetName(componentName)
	for _, inst := range history {
		if inst.NormalizedName == normalized && inst.InstalledAtTime(at) {
			return scopeFor(inst), true
		}
	}

	return models.AssetScope{}, false
}

func scopeFor(inst models.ComponentInstallation) models.AssetScope {
	return models.AssetScope{
		SiteID:      inst.SiteID,
		SystemID:    inst.SystemID,
		UnitID:      inst.UnitID,
		ComponentID: inst.ComponentID,
	}
}
