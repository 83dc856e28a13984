package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/example/crewfinder/pkg/core/model"
	"github.com/example/crewfinder/pkg/db"
)

// PreferenceWriter defines the preference persistence needed to save or
// clear a preferred window
type PreferenceWriter interface {
	UpsertPreferredWindow(ctx context.Context, pref db.PreferredWindow) error
	DeletePreferredWindow(ctx context.Context, resourceID string) error
}

// SavePreferredWindow propagates a session override to the preference
// store so a reopened search reloads it. A nil pref clears the stored
// record. The returned error wraps model.ErrPreferencePersist and is a
// soft warning: the caller's in-memory session state stays authoritative
// and must not be rolled back. Writes are last-write-wins
func SavePreferredWindow(
	ctx context.Context,
	store PreferenceWriter,
	logger *zap.Logger,
	resourceID string,
	pref *model.PreferredWindow,
) error {
	if pref == nil {
		logger.Debug("Clearing stored preferred window", zap.String("resource_id", resourceID))
		if err := store.DeletePreferredWindow(ctx, resourceID); err != nil {
			logger.Warn("Failed to clear stored preferred window",
				zap.String("resource_id", resourceID),
				zap.Error(err))
			return fmt.Errorf("%w: %w", model.ErrPreferencePersist, err)
		}
		return nil
	}

	record := db.PreferredWindow{
		ResourceID: resourceID,
		StartDate:  pref.Window.Start,
		EndDate:    pref.Window.End,
		Notes:      pref.Notes,
	}

	logger.Debug("Saving preferred window",
		zap.String("resource_id", resourceID),
		zap.Time("start", pref.Window.Start),
		zap.Time("end", pref.Window.End))

	if err := store.UpsertPreferredWindow(ctx, record); err != nil {
		logger.Warn("Failed to save preferred window, local and stored state may diverge",
			zap.String("resource_id", resourceID),
			zap.Error(err))
		return fmt.Errorf("%w: %w", model.ErrPreferencePersist, err)
	}

	return nil
}
