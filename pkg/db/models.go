package db

import (
	"time"

	"github.com/example/crewfinder/pkg/core/model"
)

// Resource represents a resource directory record
type Resource struct {
	ID                string
	Category          string
	Status            string
	Name              string
	Title             string
	Company           string
	Email             string
	Phone             string
	Bio               string
	Languages         string
	City              string
	Street            string
	PostalCode        string
	Country           string
	Lat               *float64
	Lon               *float64
	AvailabilityStart time.Time
	AvailabilityEnd   time.Time
	PersonCount       int
	HourlyRate        *float64
}

// ToModel converts the record to the domain representation
func (r Resource) ToModel() model.Resource {
	res := model.Resource{
		ID:          r.ID,
		Category:    r.Category,
		Status:      model.ResourceStatus(r.Status),
		Name:        r.Name,
		Title:       r.Title,
		Company:     r.Company,
		Email:       r.Email,
		Phone:       r.Phone,
		Bio:         r.Bio,
		Languages:   r.Languages,
		City:        r.City,
		Street:      r.Street,
		PostalCode:  r.PostalCode,
		Country:     r.Country,
		PersonCount: r.PersonCount,
		HourlyRate:  r.HourlyRate,
		Availability: model.Window{
			Start: r.AvailabilityStart,
			End:   r.AvailabilityEnd,
		},
	}
	if r.Lat != nil && r.Lon != nil {
		res.Coordinate = &model.Coordinate{Lat: *r.Lat, Lon: *r.Lon}
	}
	return res
}

// ResourceAllocation represents a committed allocation record
type ResourceAllocation struct {
	ID             string
	ResourceID     string
	TradeID        string
	PersonCount    int
	StartDate      time.Time
	EndDate        time.Time
	Status         string
	Priority       int
	Notes          string
	IdempotencyKey string
	CreatedAt      time.Time
}

// ToModel converts the record to the domain representation
func (a ResourceAllocation) ToModel() model.ResourceAllocation {
	return model.ResourceAllocation{
		ID:          a.ID,
		ResourceID:  a.ResourceID,
		TradeID:     a.TradeID,
		PersonCount: a.PersonCount,
		Window: model.Window{
			Start: a.StartDate,
			End:   a.EndDate,
		},
		Status:         model.AllocationStatus(a.Status),
		Priority:       a.Priority,
		Notes:          a.Notes,
		IdempotencyKey: a.IdempotencyKey,
		CreatedAt:      a.CreatedAt,
	}
}

// AllocationFromModel converts a domain allocation to its record form
func AllocationFromModel(m model.ResourceAllocation) ResourceAllocation {
	return ResourceAllocation{
		ID:             m.ID,
		ResourceID:     m.ResourceID,
		TradeID:        m.TradeID,
		PersonCount:    m.PersonCount,
		StartDate:      m.Window.Start,
		EndDate:        m.Window.End,
		Status:         string(m.Status),
		Priority:       m.Priority,
		Notes:          m.Notes,
		IdempotencyKey: m.IdempotencyKey,
		CreatedAt:      m.CreatedAt,
	}
}

// PreferredWindow represents a persisted per-resource preference record.
// Writes are last-write-wins; there is no versioning
type PreferredWindow struct {
	ResourceID string
	StartDate  time.Time
	EndDate    time.Time
	Notes      string
	UpdatedAt  time.Time
}

// ToModel converts the record to the domain representation
func (p PreferredWindow) ToModel() model.PreferredWindow {
	return model.PreferredWindow{
		Window: model.Window{Start: p.StartDate, End: p.EndDate},
		Notes:  p.Notes,
	}
}
