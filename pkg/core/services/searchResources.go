package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/example/crewfinder/pkg/core/model"
	"github.com/example/crewfinder/pkg/core/search"
	"github.com/example/crewfinder/pkg/db"
)

// SearchStore defines the directory access needed to run a search
type SearchStore interface {
	ListResources(ctx context.Context, category, status string) ([]db.Resource, error)
}

// PreferenceReader defines the preference access needed to reload stored
// preferred windows for the candidates of a search
type PreferenceReader interface {
	GetPreferredWindows(ctx context.Context, resourceIDs []string) (map[string]db.PreferredWindow, error)
}

// SearchResult contains the eligible candidates and any previously stored
// preferred windows for them, keyed by resource id
type SearchResult struct {
	Candidates  []search.Candidate
	Preferences map[string]model.PreferredWindow
}

// SearchResources lists available resources in the requested category and
// runs the candidate filter pipeline over them. A directory failure is
// fatal to the search; a preference-store failure only costs the reloaded
// preferences. Stored preferred windows are returned so a reopened search
// shows the actor's earlier choices
func SearchResources(
	ctx context.Context,
	database SearchStore,
	preferences PreferenceReader,
	pipeline *search.Pipeline,
	logger *zap.Logger,
	criteria model.SearchCriteria,
) (*SearchResult, error) {
	logger.Info("Starting resource search",
		zap.String("category", criteria.Category),
		zap.Float64("radius_km", criteria.RadiusKm),
		zap.Time("window_start", criteria.Window.Start),
		zap.Time("window_end", criteria.Window.End))

	// Step 1: Fetch the category- and status-scoped directory listing.
	// No partial candidate set is assumed valid if this fails
	records, err := database.ListResources(ctx, criteria.Category, string(model.ResourceAvailable))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrDirectoryUnavailable, err)
	}
	logger.Debug("Directory listing fetched", zap.Int("count", len(records)))

	resources := make([]model.Resource, len(records))
	for i, rec := range records {
		resources[i] = rec.ToModel()
	}

	// Step 2: Run the filter pipeline
	candidates, err := pipeline.Filter(ctx, resources, criteria)
	if err != nil {
		return nil, fmt.Errorf("failed to filter candidates: %w", err)
	}

	result := &SearchResult{
		Candidates:  candidates,
		Preferences: make(map[string]model.PreferredWindow),
	}

	if len(candidates) == 0 {
		logger.Info("Search produced no candidates")
		return result, nil
	}

	// Step 3: Reload stored preferred windows for the surviving candidates.
	// Failure here is soft: the search result is still complete
	ids := make([]string, len(candidates))
	for i, c := range candidates {
		ids[i] = c.Resource.ID
	}

	stored, err := preferences.GetPreferredWindows(ctx, ids)
	if err != nil {
		logger.Warn("Failed to reload stored preferred windows", zap.Error(err))
		return result, nil
	}

	for id, rec := range stored {
		result.Preferences[id] = rec.ToModel()
	}
	logger.Info("Search complete",
		zap.Int("candidates", len(candidates)),
		zap.Int("stored_preferences", len(result.Preferences)))

	return result, nil
}
