package services

import (
	"context"

	"github.com/dmitrijs2005/dispersed/internal/client/client"
	"github.com/dmitrijs2005/dispersed/internal/client/models"
)

//go:generate mockgen -destination=mocks/mocks.go -package=mocks . IdentityProvider,ProfileAPI

// IdentityProvider is the underlying identity source behind a Session. It
// owns credentials and token refresh; the Session only reads from it.
type IdentityProvider interface {
	// Restore resumes a previous session. It returns nil when there is none.
	Restore(ctx context.Context) (*models.Identity, error)
	SignUp(ctx context.Context, email, password string) (*models.Identity, error)
	SignIn(ctx context.Context, email, password string) (*models.Identity, error)
	SignOut(ctx context.Context) error
	// Token returns a currently valid identity token, or "" when signed out.
	Token(ctx context.Context) (string, error)
	UpdateProfile(ctx context.Context, u models.ProfileUpdate) (*models.Identity, error)
	ResetPassword(ctx context.Context, email string) error
}

// ProfileAPI reads and creates the profile record that accompanies an
// account.
type ProfileAPI interface {
	GetProfile(ctx context.Context, userID string, tokens client.TokenSource) (*models.Profile, error)
	CreateProfile(ctx context.Context, p models.Profile, tokens client.TokenSource) (*models.Profile, error)
}

// AuthAPI is the part of the gateway RemoteIdentity talks to.
type AuthAPI interface {
	SignUp(ctx context.Context, email, password string) (*models.Credentials, error)
	SignIn(ctx context.Context, email, password string) (*models.Credentials, error)
	Refresh(ctx context.Context, refreshToken string) (*models.Credentials, error)
	SignOut(ctx context.Context, refreshToken string, tokens client.TokenSource) error
	ResetPassword(ctx context.Context, email string) error
	UpdateAccount(ctx context.Context, u models.ProfileUpdate, tokens client.TokenSource) (*models.Identity, error)
}

// CampsiteAPI is the part of the gateway the collection store talks to.
type CampsiteAPI interface {
	ListCampsites(ctx context.Context, tokens client.TokenSource) ([]models.Campsite, error)
	GetCampsite(ctx context.Context, id string, tokens client.TokenSource) (*models.Campsite, error)
	CreateCampsite(ctx context.Context, in models.CampsiteInput, tokens client.TokenSource) (*models.Campsite, error)
	UpdateCampsite(ctx context.Context, id string, patch models.CampsitePatch, tokens client.TokenSource) (*models.Campsite, error)
	DeleteCampsite(ctx context.Context, id string, tokens client.TokenSource) error
}

type PhotoAPI interface {
	UploadPhoto(ctx context.Context, campsiteID string, p models.PhotoUpload, tokens client.TokenSource) (*models.Photo, error)
	DeletePhoto(ctx context.Context, campsiteID, photoID string, tokens client.TokenSource) error
}

type ReviewAPI interface {
	ListReviews(ctx context.Context, campsiteID string, q models.ReviewQuery) (*models.ReviewPage, error)
	CreateReview(ctx context.Context, campsiteID string, in models.ReviewInput, tokens client.TokenSource) (*models.Review, error)
	UpdateReview(ctx context.Context, campsiteID, reviewID string, in models.ReviewInput, tokens client.TokenSource) (*models.Review, error)
	DeleteReview(ctx context.Context, campsiteID, reviewID string, tokens client.TokenSource) error
	FlagReview(ctx context.Context, campsiteID, reviewID, reason string, tokens client.TokenSource) error
}

// LookupAPI covers the public, unauthenticated endpoints.
type LookupAPI interface {
	SearchCampsites(ctx context.Context, p models.SearchParams) ([]models.Campsite, error)
	Weather(ctx context.Context, lat, lng float64) (models.Weather, error)
	Elevation(ctx context.Context, lat, lng float64) (models.Elevation, error)
	ReportBug(ctx context.Context, r models.BugReport) error
}

var (
	_ AuthAPI     = (*client.Gateway)(nil)
	_ ProfileAPI  = (*client.Gateway)(nil)
	_ CampsiteAPI = (*client.Gateway)(nil)
	_ PhotoAPI    = (*client.Gateway)(nil)
	_ ReviewAPI   = (*client.Gateway)(nil)
	_ LookupAPI   = (*client.Gateway)(nil)
)
