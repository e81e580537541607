package models

import (
	"net/url"
	"strconv"
)

// SearchSort orders community search results.
type SearchSort string

const (
	SearchNewest   SearchSort = "newest"
	SearchRating   SearchSort = "rating"
	SearchDistance SearchSort = "distance"
)

// SearchParams filters the public campsite search. Zero values are left out
// of the query string.
type SearchParams struct {
	Query     string
	Latitude  *float64
	Longitude *float64
	// Radius is in miles and only sent together with a location.
	Radius    float64
	MinRating float64
	HasPhotos bool
	Sort      SearchSort
}

// Values encodes p the way the search endpoint expects.
func (p SearchParams) Values() url.Values {
	v := url.Values{}
	if p.Query != "" {
		v.Set("q", p.Query)
	}
	if p.Latitude != nil && p.Longitude != nil {
		v.Set("latitude", formatFloat(*p.Latitude))
		v.Set("longitude", formatFloat(*p.Longitude))
		if p.Radius > 0 {
			v.Set("radius", formatFloat(p.Radius))
		}
	}
	if p.MinRating > 0 {
		v.Set("minRating", formatFloat(p.MinRating))
	}
	if p.HasPhotos {
		v.Set("hasPhotos", "true")
	}
	if p.Sort != "" {
		v.Set("sort", string(p.Sort))
	}
	return v
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// SearchResult wraps the search endpoint response.
type SearchResult struct {
	Campsites []Campsite `json:"campsites"`
}
