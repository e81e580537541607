package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/dmitrijs2005/dispersed/internal/client/models"
)

func campsitePath(id string) string {
	return "/api/campsites/" + url.PathEscape(id)
}

// ListCampsites returns every campsite visible to the caller. The token is
// attached when tokens has one, so the caller's private records are included.
func (g *Gateway) ListCampsites(ctx context.Context, tokens TokenSource) ([]models.Campsite, error) {
	sites, err := decode[[]models.Campsite](g.optionalAuth(ctx, "/api/campsites", tokens, RequestOptions{}))
	if err != nil {
		return nil, err
	}
	if sites == nil {
		sites = []models.Campsite{}
	}
	return sites, nil
}

func (g *Gateway) GetCampsite(ctx context.Context, id string, tokens TokenSource) (*models.Campsite, error) {
	return decode[*models.Campsite](g.optionalAuth(ctx, campsitePath(id), tokens, RequestOptions{}))
}

func (g *Gateway) CreateCampsite(ctx context.Context, in models.CampsiteInput, tokens TokenSource) (*models.Campsite, error) {
	return decode[*models.Campsite](g.AuthenticatedRequest(ctx, "/api/campsites", tokens, RequestOptions{
		Method: http.MethodPost,
		JSON:   in,
	}))
}

func (g *Gateway) UpdateCampsite(ctx context.Context, id string, patch models.CampsitePatch, tokens TokenSource) (*models.Campsite, error) {
	return decode[*models.Campsite](g.AuthenticatedRequest(ctx, campsitePath(id), tokens, RequestOptions{
		Method: http.MethodPut,
		JSON:   patch,
	}))
}

func (g *Gateway) DeleteCampsite(ctx context.Context, id string, tokens TokenSource) error {
	_, err := g.AuthenticatedRequest(ctx, campsitePath(id), tokens, RequestOptions{Method: http.MethodDelete})
	return err
}
