package postgres

import (
	"context"
	"fmt"

	"github.com/example/crewfinder/pkg/db"
)

// InsertAllocations inserts allocation records in a single transaction.
// Either every record is created or none are
func (d *DB) InsertAllocations(ctx context.Context, allocations []db.ResourceAllocation) error {
	if len(allocations) == 0 {
		return nil
	}

	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, a := range allocations {
		_, err := tx.Exec(ctx, `
			INSERT INTO resource_allocation
				(id, resource_id, trade_id, person_count, start_date, end_date,
				 status, priority, notes, idempotency_key, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`, a.ID, a.ResourceID, a.TradeID, a.PersonCount, a.StartDate, a.EndDate,
			a.Status, a.Priority, a.Notes, a.IdempotencyKey, a.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert allocation for resource %s: %w", a.ResourceID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetAllocationsByIdempotencyKey returns the allocations previously created
// under the given commit key, ordered by priority
func (d *DB) GetAllocationsByIdempotencyKey(ctx context.Context, key string) ([]db.ResourceAllocation, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT id, resource_id, trade_id, person_count, start_date, end_date,
		       status, priority, notes, idempotency_key, created_at
		FROM resource_allocation
		WHERE idempotency_key = $1
		ORDER BY priority
	`, key)
	if err != nil {
		return nil, fmt.Errorf("failed to query allocations: %w", err)
	}
	defer rows.Close()

	var allocations []db.ResourceAllocation
	for rows.Next() {
		var a db.ResourceAllocation
		if err := rows.Scan(
			&a.ID, &a.ResourceID, &a.TradeID, &a.PersonCount,
			&a.StartDate, &a.EndDate, &a.Status, &a.Priority,
			&a.Notes, &a.IdempotencyKey, &a.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan allocation: %w", err)
		}
		allocations = append(allocations, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating allocations: %w", err)
	}

	return allocations, nil
}

// UpdateAllocationStatus records a status transition for one allocation
func (d *DB) UpdateAllocationStatus(ctx context.Context, allocationID, status string) error {
	tag, err := d.pool.Exec(ctx, `
		UPDATE resource_allocation SET status = $2 WHERE id = $1
	`, allocationID, status)
	if err != nil {
		return fmt.Errorf("failed to update allocation status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("allocation %s not found", allocationID)
	}
	return nil
}
