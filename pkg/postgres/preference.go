package postgres

import (
	"context"
	"fmt"

	"github.com/example/crewfinder/pkg/db"
)

// GetPreferredWindows returns the stored preference records for the given
// resource ids, keyed by resource id. Resources without a stored
// preference are simply absent from the map
func (d *DB) GetPreferredWindows(ctx context.Context, resourceIDs []string) (map[string]db.PreferredWindow, error) {
	prefs := make(map[string]db.PreferredWindow)
	if len(resourceIDs) == 0 {
		return prefs, nil
	}

	rows, err := d.pool.Query(ctx, `
		SELECT resource_id, start_date, end_date, notes, updated_at
		FROM preferred_window
		WHERE resource_id = ANY($1)
	`, resourceIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query preferred windows: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p db.PreferredWindow
		if err := rows.Scan(&p.ResourceID, &p.StartDate, &p.EndDate, &p.Notes, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan preferred window: %w", err)
		}
		prefs[p.ResourceID] = p
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating preferred windows: %w", err)
	}

	return prefs, nil
}

// UpsertPreferredWindow stores a preference record, replacing any previous
// one for the same resource. Concurrent writers are last-write-wins
func (d *DB) UpsertPreferredWindow(ctx context.Context, pref db.PreferredWindow) error {
	_, err := d.pool.Exec(ctx, `
		INSERT INTO preferred_window (resource_id, start_date, end_date, notes, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (resource_id) DO UPDATE
		SET start_date = EXCLUDED.start_date,
		    end_date = EXCLUDED.end_date,
		    notes = EXCLUDED.notes,
		    updated_at = NOW()
	`, pref.ResourceID, pref.StartDate, pref.EndDate, pref.Notes)
	if err != nil {
		return fmt.Errorf("failed to upsert preferred window: %w", err)
	}
	return nil
}

// DeletePreferredWindow removes the stored preference for a resource
func (d *DB) DeletePreferredWindow(ctx context.Context, resourceID string) error {
	_, err := d.pool.Exec(ctx, `
		DELETE FROM preferred_window WHERE resource_id = $1
	`, resourceID)
	if err != nil {
		return fmt.Errorf("failed to delete preferred window: %w", err)
	}
	return nil
}
