package client

import (
	"context"

	"github.com/dmitrijs2005/dispersed/internal/client/models"
)

// SearchCampsites queries public campsites. Empty parameters are not sent.
func (g *Gateway) SearchCampsites(ctx context.Context, p models.SearchParams) ([]models.Campsite, error) {
	res, err := decode[models.SearchResult](g.Request(ctx, "/api/search/campsites", RequestOptions{Query: p.Values()}))
	if err != nil {
		return nil, err
	}
	if res.Campsites == nil {
		return []models.Campsite{}, nil
	}
	return res.Campsites, nil
}
