package postgres

import (
	"context"
	"fmt"

	"github.com/example/crewfinder/pkg/db"
)

// ListResources retrieves directory records, optionally scoped by category
// and status. Empty arguments leave the corresponding scope open
func (d *DB) ListResources(ctx context.Context, category, status string) ([]db.Resource, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT id, category, status, name, title, company, email, phone,
		       bio, languages, city, street, postal_code, country,
		       lat, lon, availability_start, availability_end,
		       person_count, hourly_rate
		FROM resource
		WHERE ($1 = '' OR category = $1)
		  AND ($2 = '' OR status = $2)
		ORDER BY name
	`, category, status)
	if err != nil {
		return nil, fmt.Errorf("failed to query resources: %w", err)
	}
	defer rows.Close()

	var resources []db.Resource
	for rows.Next() {
		var r db.Resource
		if err := rows.Scan(
			&r.ID, &r.Category, &r.Status, &r.Name, &r.Title, &r.Company,
			&r.Email, &r.Phone, &r.Bio, &r.Languages, &r.City, &r.Street,
			&r.PostalCode, &r.Country, &r.Lat, &r.Lon,
			&r.AvailabilityStart, &r.AvailabilityEnd,
			&r.PersonCount, &r.HourlyRate,
		); err != nil {
			return nil, fmt.Errorf("failed to scan resource: %w", err)
		}
		resources = append(resources, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating resources: %w", err)
	}

	return resources, nil
}
