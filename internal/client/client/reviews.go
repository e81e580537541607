package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/dmitrijs2005/dispersed/internal/client/models"
)

func reviewsPath(campsiteID string) string {
	return campsitePath(campsiteID) + "/reviews"
}

func reviewPath(campsiteID, reviewID string) string {
	return reviewsPath(campsiteID) + "/" + url.PathEscape(reviewID)
}

// ListReviews fetches one page. Sort defaults to newest and Limit to
// models.DefaultReviewPageSize.
func (g *Gateway) ListReviews(ctx context.Context, campsiteID string, q models.ReviewQuery) (*models.ReviewPage, error) {
	sort := q.Sort
	if sort == "" {
		sort = models.SortNewest
	}
	limit := q.Limit
	if limit <= 0 {
		limit = models.DefaultReviewPageSize
	}

	v := url.Values{}
	v.Set("sort", string(sort))
	v.Set("limit", strconv.Itoa(limit))
	if q.StartAfter != "" {
		v.Set("startAfter", q.StartAfter)
	}

	page, err := decode[*models.ReviewPage](g.Request(ctx, reviewsPath(campsiteID), RequestOptions{Query: v}))
	if err != nil {
		return nil, err
	}
	if page == nil {
		page = &models.ReviewPage{}
	}
	return page, nil
}

// CreateReview posts an authored review when tokens is non-nil and an
// anonymous rating otherwise.
func (g *Gateway) CreateReview(ctx context.Context, campsiteID string, in models.ReviewInput, tokens TokenSource) (*models.Review, error) {
	opts := RequestOptions{Method: http.MethodPost, JSON: in}
	if tokens != nil {
		return decode[*models.Review](g.AuthenticatedRequest(ctx, reviewsPath(campsiteID), tokens, opts))
	}
	return decode[*models.Review](g.Request(ctx, reviewsPath(campsiteID), opts))
}

func (g *Gateway) UpdateReview(ctx context.Context, campsiteID, reviewID string, in models.ReviewInput, tokens TokenSource) (*models.Review, error) {
	return decode[*models.Review](g.AuthenticatedRequest(ctx, reviewPath(campsiteID, reviewID), tokens, RequestOptions{
		Method: http.MethodPut,
		JSON:   in,
	}))
}

func (g *Gateway) DeleteReview(ctx context.Context, campsiteID, reviewID string, tokens TokenSource) error {
	_, err := g.AuthenticatedRequest(ctx, reviewPath(campsiteID, reviewID), tokens, RequestOptions{Method: http.MethodDelete})
	return err
}

func (g *Gateway) FlagReview(ctx context.Context, campsiteID, reviewID, reason string, tokens TokenSource) error {
	_, err := g.AuthenticatedRequest(ctx, reviewPath(campsiteID, reviewID)+"/flag", tokens, RequestOptions{
		Method: http.MethodPost,
		JSON:   models.FlagInput{Reason: reason},
	})
	return err
}
