package client

import (
	"context"
	"net/http"

	"github.com/dmitrijs2005/dispersed/internal/client/models"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// SignUp creates an account and returns a signed-in session.
func (g *Gateway) SignUp(ctx context.Context, email, password string) (*models.Credentials, error) {
	return decode[*models.Credentials](g.Request(ctx, "/api/auth/signup", RequestOptions{
		Method: http.MethodPost,
		JSON:   credentialsRequest{Email: email, Password: password},
	}))
}

func (g *Gateway) SignIn(ctx context.Context, email, password string) (*models.Credentials, error) {
	return decode[*models.Credentials](g.Request(ctx, "/api/auth/signin", RequestOptions{
		Method: http.MethodPost,
		JSON:   credentialsRequest{Email: email, Password: password},
	}))
}

// Refresh trades a refresh token for a new token pair.
func (g *Gateway) Refresh(ctx context.Context, refreshToken string) (*models.Credentials, error) {
	return decode[*models.Credentials](g.Request(ctx, "/api/auth/refresh", RequestOptions{
		Method: http.MethodPost,
		JSON:   refreshRequest{RefreshToken: refreshToken},
	}))
}

// SignOut revokes refreshToken server-side.
func (g *Gateway) SignOut(ctx context.Context, refreshToken string, tokens TokenSource) error {
	_, err := g.optionalAuth(ctx, "/api/auth/signout", tokens, RequestOptions{
		Method: http.MethodPost,
		JSON:   refreshRequest{RefreshToken: refreshToken},
	})
	return err
}

func (g *Gateway) ResetPassword(ctx context.Context, email string) error {
	_, err := g.Request(ctx, "/api/auth/password-reset", RequestOptions{
		Method: http.MethodPost,
		JSON:   map[string]string{"email": email},
	})
	return err
}

// UpdateAccount changes display fields on the signed-in account and returns
// the updated identity.
func (g *Gateway) UpdateAccount(ctx context.Context, u models.ProfileUpdate, tokens TokenSource) (*models.Identity, error) {
	return decode[*models.Identity](g.AuthenticatedRequest(ctx, "/api/auth/profile", tokens, RequestOptions{
		Method: http.MethodPut,
		JSON:   u,
	}))
}
