package client

import (
	"context"
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/dispersed/internal/client/models"
)

func coordPath(prefix string, lat, lng float64) string {
	return prefix + strconv.FormatFloat(lat, 'f', -1, 64) + "/" + strconv.FormatFloat(lng, 'f', -1, 64)
}

// Weather relays the forecast for a point. The payload is passed through
// untouched.
func (g *Gateway) Weather(ctx context.Context, lat, lng float64) (models.Weather, error) {
	raw, err := g.Request(ctx, coordPath("/api/weather/", lat, lng), RequestOptions{})
	return models.Weather(raw), err
}

func (g *Gateway) Elevation(ctx context.Context, lat, lng float64) (models.Elevation, error) {
	raw, err := g.Request(ctx, coordPath("/api/elevation/", lat, lng), RequestOptions{})
	return models.Elevation(raw), err
}

// ReportBug submits the feedback form. No session is required.
func (g *Gateway) ReportBug(ctx context.Context, r models.BugReport) error {
	_, err := g.Request(ctx, "/api/bug", RequestOptions{Method: http.MethodPost, JSON: r})
	return err
}
