package db

import "context"

// ResourceDirectory defines read access to the resource directory. This
// core never writes to it
type ResourceDirectory interface {
	ListResources(ctx context.Context, category, status string) ([]Resource, error)
}

// AllocationStore defines allocation persistence. InsertAllocations is
// atomic: either every record is created or none are
type AllocationStore interface {
	InsertAllocations(ctx context.Context, allocations []ResourceAllocation) error
	GetAllocationsByIdempotencyKey(ctx context.Context, key string) ([]ResourceAllocation, error)
	UpdateAllocationStatus(ctx context.Context, allocationID, status string) error
}

// PreferenceStore defines per-resource preferred-window persistence
type PreferenceStore interface {
	GetPreferredWindows(ctx context.Context, resourceIDs []string) (map[string]PreferredWindow, error)
	UpsertPreferredWindow(ctx context.Context, pref PreferredWindow) error
	DeletePreferredWindow(ctx context.Context, resourceID string) error
}
