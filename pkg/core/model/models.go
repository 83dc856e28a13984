package model

import (
	"strings"
	"time"
)

// ResourceStatus is the lifecycle state of a resource in the directory
type ResourceStatus string

const (
	ResourceAvailable ResourceStatus = "available"
	ResourceReserved  ResourceStatus = "reserved"
	ResourceRetired   ResourceStatus = "retired"
)

func (s ResourceStatus) IsValid() bool {
	return s == ResourceAvailable || s == ResourceReserved || s == ResourceRetired
}

// AllocationStatus is the lifecycle state of a committed allocation.
// This core only performs the pre_selected -> invited transition; the
// remaining states are owned by external collaborators but accepted here
// for interoperability.
type AllocationStatus string

const (
	AllocationPreSelected AllocationStatus = "pre_selected"
	AllocationInvited     AllocationStatus = "invited"
	AllocationConfirmed   AllocationStatus = "confirmed"
	AllocationDeclined    AllocationStatus = "declined"
	AllocationCancelled   AllocationStatus = "cancelled"
)

func (s AllocationStatus) IsValid() bool {
	switch s {
	case AllocationPreSelected, AllocationInvited, AllocationConfirmed, AllocationDeclined, AllocationCancelled:
		return true
	}
	return false
}

// Coordinate is a WGS84 point
type Coordinate struct {
	Lat float64
	Lon float64
}

// Window is an inclusive date range; Start and End are UTC midnights
type Window struct {
	Start time.Time
	End   time.Time
}

// IsZero reports whether neither bound has been set
func (w Window) IsZero() bool {
	return w.Start.IsZero() && w.End.IsZero()
}

// Resource represents a capacity offer listed in the resource directory:
// a crew or piece of equipment a provider makes available for one trade
// category during an availability window
type Resource struct {
	ID       string
	Category string
	Status   ResourceStatus

	// Contact and descriptive fields, all searchable by the free-text filter
	Name      string
	Title     string
	Company   string
	Email     string
	Phone     string
	Bio       string
	Languages string
	City      string

	// Address fields, used for geocoding when Coordinate is absent
	Street     string
	PostalCode string
	Country    string

	// Coordinate is optional; resources without one are geocoded from the
	// address at search time
	Coordinate *Coordinate

	Availability Window
	PersonCount  int
	HourlyRate   *float64
}

// AddressText composes the postal address used for geocoding lookups.
// Empty fields are skipped
func (r Resource) AddressText() string {
	parts := make([]string, 0, 4)
	for _, p := range []string{r.Street, r.PostalCode, r.City, r.Country} {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, strings.TrimSpace(p))
		}
	}
	return strings.Join(parts, ", ")
}

// SearchText returns the text fields matched by the free-text filter
func (r Resource) SearchText() []string {
	return []string{r.Name, r.Title, r.Company, r.Bio, r.Languages, r.City, r.Category}
}

// SearchCriteria describes one candidate search
type SearchCriteria struct {
	Category string
	Window   Window
	Center   Coordinate
	RadiusKm float64

	// Secondary filters; zero values mean "not set"
	MinPersons    int
	MaxHourlyRate float64
	Query         string
}

// PreferredWindow is an actor-chosen sub-range of a resource's availability
// window, with free-text notes describing the intended usage
type PreferredWindow struct {
	Window Window
	Notes  string
}

// ResourceAllocation is the committed binding of one resource to a trade.
// Records are immutable after creation except for status transitions
type ResourceAllocation struct {
	ID             string
	ResourceID     string
	TradeID        string
	PersonCount    int
	Window         Window
	Status         AllocationStatus
	Priority       int
	Notes          string
	IdempotencyKey string
	CreatedAt      time.Time
}
