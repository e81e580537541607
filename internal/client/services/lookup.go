package services

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/dispersed/internal/client/models"
	"github.com/dmitrijs2005/dispersed/internal/logging"
	"github.com/dmitrijs2005/dispersed/internal/validate"
)

// LookupService covers the public read-only features: community search,
// point lookups on the map and the bug report form.
type LookupService struct {
	api LookupAPI
	log logging.Logger
}

func NewLookupService(api LookupAPI, log logging.Logger) *LookupService {
	return &LookupService{api: api, log: logging.OrNop(log).With("component", "lookup")}
}

// Search runs a community search. A location, when given, is validated
// first; a half-given location is ignored.
func (l *LookupService) Search(ctx context.Context, p models.SearchParams) ([]models.Campsite, error) {
	p.Query = strings.TrimSpace(p.Query)
	if p.Latitude != nil && p.Longitude != nil {
		if err := validate.Coordinates(*p.Latitude, *p.Longitude); err != nil {
			return nil, err
		}
	}
	if p.Sort != "" {
		if err := validate.OneOf("sort", string(p.Sort),
			string(models.SearchNewest), string(models.SearchRating), string(models.SearchDistance)); err != nil {
			return nil, err
		}
	}
	return l.api.SearchCampsites(ctx, p)
}

// Lookup fetches weather and elevation for a point concurrently. Either
// failure fails the lookup.
func (l *LookupService) Lookup(ctx context.Context, lat, lng float64) (*models.LocationInfo, error) {
	if err := validate.Coordinates(lat, lng); err != nil {
		return nil, err
	}

	info := &models.LocationInfo{Latitude: lat, Longitude: lng}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		w, err := l.api.Weather(gctx, lat, lng)
		info.Weather = w
		return err
	})
	g.Go(func() error {
		e, err := l.api.Elevation(gctx, lat, lng)
		info.Elevation = e
		return err
	})
	if err := g.Wait(); err != nil {
		l.log.Warn(ctx, "location lookup failed", "lat", lat, "lng", lng, "error", err)
		return nil, err
	}
	return info, nil
}

// ReportBug sends the feedback form after checking the required fields.
func (l *LookupService) ReportBug(ctx context.Context, r models.BugReport) error {
	r.Name = strings.TrimSpace(r.Name)
	r.Bug = strings.TrimSpace(r.Bug)
	if r.Bug == "" {
		return &validate.ValidationError{Field: "bug", Message: "Please describe the bug"}
	}
	if err := validate.Email(r.Email); err != nil {
		return err
	}
	return l.api.ReportBug(ctx, r)
}
