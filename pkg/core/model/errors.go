package model

import "errors"

// Error taxonomy for the search and commit flows. Fatal errors
// (ErrDirectoryUnavailable, ErrAllocationCreate) abort the enclosing
// operation; the rest are absorbed where they occur and surfaced as
// warnings or silent exclusions
var (
	// ErrLocationUnavailable means the actor's device location could not be
	// acquired; a fallback coordinate is substituted and the search proceeds
	ErrLocationUnavailable = errors.New("location unavailable")

	// ErrGeocodeNotFound means an address could not be resolved to a
	// coordinate; the affected resource is excluded from geo-filtered results
	ErrGeocodeNotFound = errors.New("address not found")

	// ErrDirectoryUnavailable means the resource directory listing failed;
	// no partial candidate set is assumed valid
	ErrDirectoryUnavailable = errors.New("resource directory unavailable")

	// ErrPreferencePersist means a preferred-window save failed; local and
	// remote state may diverge
	ErrPreferencePersist = errors.New("preferred window not persisted")

	// ErrAllocationCreate means the bulk allocation insert failed; no
	// allocations are assumed created
	ErrAllocationCreate = errors.New("allocation creation failed")

	// ErrNotificationDispatch means a single invitation could not be sent;
	// the allocation itself is unaffected
	ErrNotificationDispatch = errors.New("invitation dispatch failed")
)
