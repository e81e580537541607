package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/dmitrijs2005/dispersed/internal/client/models"
)

// PhotoFormField is the multipart field the upload endpoint reads.
const PhotoFormField = "photo"

// UploadPhoto sends one image as multipart/form-data. The response is
// whatever the server reports about the stored photo.
func (g *Gateway) UploadPhoto(ctx context.Context, campsiteID string, p models.PhotoUpload, tokens TokenSource) (*models.Photo, error) {
	return decode[*models.Photo](g.AuthenticatedRequest(ctx, campsitePath(campsiteID)+"/photos", tokens, RequestOptions{
		Method: http.MethodPost,
		Multipart: &MultipartFile{
			Field:       PhotoFormField,
			Filename:    p.Filename,
			ContentType: p.ContentType,
			Content:     p.Content,
		},
	}))
}

func (g *Gateway) DeletePhoto(ctx context.Context, campsiteID, photoID string, tokens TokenSource) error {
	_, err := g.AuthenticatedRequest(ctx, campsitePath(campsiteID)+"/photos/"+url.PathEscape(photoID), tokens,
		RequestOptions{Method: http.MethodDelete})
	return err
}
