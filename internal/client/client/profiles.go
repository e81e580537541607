package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/dmitrijs2005/dispersed/internal/client/models"
)

func profilePath(userID string) string {
	return "/api/users/" + url.PathEscape(userID) + "/profile"
}

// GetProfile returns ErrNotFound (via errors.Is) when the user has no
// profile record yet.
func (g *Gateway) GetProfile(ctx context.Context, userID string, tokens TokenSource) (*models.Profile, error) {
	return decode[*models.Profile](g.AuthenticatedRequest(ctx, profilePath(userID), tokens, RequestOptions{}))
}

func (g *Gateway) CreateProfile(ctx context.Context, p models.Profile, tokens TokenSource) (*models.Profile, error) {
	return decode[*models.Profile](g.AuthenticatedRequest(ctx, profilePath(p.UserID), tokens, RequestOptions{
		Method: http.MethodPost,
		JSON:   p,
	}))
}
