package search

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/example/crewfinder/pkg/core/geo"
	"github.com/example/crewfinder/pkg/core/model"
	"github.com/example/crewfinder/pkg/core/window"
)

// DefaultConcurrency bounds parallel candidate evaluation. Geocoding is
// the only remote call per candidate and the provider is rate-limited, so
// the bound stays small
const DefaultConcurrency = 4

// Geocoder resolves a postal address to a coordinate. Implementations
// return model.ErrGeocodeNotFound when the provider has no match
type Geocoder interface {
	Resolve(ctx context.Context, address string) (model.Coordinate, error)
}

// Candidate is a resource that passed every filter, together with the
// coordinate it was placed at and its distance from the search center
type Candidate struct {
	Resource   model.Resource
	Coordinate model.Coordinate
	DistanceKm float64

	// Geocoded is true when the coordinate came from an address lookup
	// rather than from the directory record. Geocoded coordinates are
	// transient; they are never written back to the directory
	Geocoded bool
}

// Pipeline turns a directory listing plus search criteria into the geo-
// and time-eligible candidate set
type Pipeline struct {
	geocoder    Geocoder
	logger      *zap.Logger
	concurrency int
}

// NewPipeline creates a pipeline. A concurrency of 0 or less falls back to
// DefaultConcurrency
func NewPipeline(geocoder Geocoder, logger *zap.Logger, concurrency int) *Pipeline {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Pipeline{
		geocoder:    geocoder,
		logger:      logger,
		concurrency: concurrency,
	}
}

// Filter evaluates every resource against the criteria and returns the
// candidates that pass, in input order. Candidates are evaluated
// concurrently; a geocoding or network failure for one resource excludes
// only that resource and never aborts the search
func (p *Pipeline) Filter(ctx context.Context, resources []model.Resource, criteria model.SearchCriteria) ([]Candidate, error) {
	results := make([]*Candidate, len(resources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	for i, res := range resources {
		g.Go(func() error {
			candidate, ok := p.evaluate(gctx, res, criteria)
			if ok {
				results[i] = &candidate
			}
			return nil
		})
	}

	// Workers never return errors; only context cancellation can surface here
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	candidates := make([]Candidate, 0, len(resources))
	for _, c := range results {
		if c != nil {
			candidates = append(candidates, *c)
		}
	}

	p.logger.Info("Candidate filtering complete",
		zap.Int("evaluated", len(resources)),
		zap.Int("candidates", len(candidates)))

	return candidates, nil
}

// evaluate runs the per-resource filter chain: coordinate resolution,
// radius, date overlap, then the secondary attribute filters
func (p *Pipeline) evaluate(ctx context.Context, res model.Resource, criteria model.SearchCriteria) (Candidate, bool) {
	coord, geocoded, ok := p.resolveCoordinate(ctx, res)
	if !ok {
		return Candidate{}, false
	}

	distance := geo.Distance(criteria.Center, coord)
	if distance > criteria.RadiusKm {
		p.logger.Debug("Resource outside radius",
			zap.String("resource_id", res.ID),
			zap.Float64("distance_km", distance),
			zap.Float64("radius_km", criteria.RadiusKm))
		return Candidate{}, false
	}

	if !window.Overlaps(res.Availability, criteria.Window) {
		p.logger.Debug("Resource availability does not overlap search window",
			zap.String("resource_id", res.ID))
		return Candidate{}, false
	}

	if !passesSecondaryFilters(res, criteria) {
		return Candidate{}, false
	}

	return Candidate{
		Resource:   res,
		Coordinate: coord,
		DistanceKm: distance,
		Geocoded:   geocoded,
	}, true
}

// resolveCoordinate places the resource in space: directory coordinates
// win, otherwise the composed address is geocoded. Resources that cannot
// be placed are dropped from this search only
func (p *Pipeline) resolveCoordinate(ctx context.Context, res model.Resource) (model.Coordinate, bool, bool) {
	if res.Coordinate != nil {
		return *res.Coordinate, false, true
	}

	address := res.AddressText()
	if address == "" {
		p.logger.Debug("Resource has neither coordinates nor an address",
			zap.String("resource_id", res.ID))
		return model.Coordinate{}, false, false
	}

	coord, err := p.geocoder.Resolve(ctx, address)
	if err != nil {
		p.logger.Warn("Geocoding failed, excluding resource from this search",
			zap.String("resource_id", res.ID),
			zap.String("address", address),
			zap.Error(err))
		return model.Coordinate{}, false, false
	}

	return coord, true, true
}

func passesSecondaryFilters(res model.Resource, criteria model.SearchCriteria) bool {
	if criteria.MinPersons > 0 && res.PersonCount < criteria.MinPersons {
		return false
	}

	if criteria.MaxHourlyRate > 0 && res.HourlyRate != nil && *res.HourlyRate > criteria.MaxHourlyRate {
		return false
	}

	if criteria.Query != "" && !matchesQuery(res, criteria.Query) {
		return false
	}

	return true
}

// matchesQuery reports whether any searchable text field contains the
// query, case-insensitively
func matchesQuery(res model.Resource, query string) bool {
	q := strings.ToLower(query)
	for _, field := range res.SearchText() {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}
