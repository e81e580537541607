package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/dispersed/internal/client/client"
	"github.com/dmitrijs2005/dispersed/internal/client/models"
	"github.com/dmitrijs2005/dispersed/internal/logging"
	"github.com/dmitrijs2005/dispersed/internal/validate"
)

// CampsiteRefresher re-reads a single campsite into the cache.
// *CampsiteStore implements it.
type CampsiteRefresher interface {
	Refresh(ctx context.Context, id string) (*models.Campsite, error)
}

// PhotoService manages a campsite's photo gallery.
type PhotoService struct {
	api       PhotoAPI
	tokens    client.TokenSource
	refresher CampsiteRefresher
	log       logging.Logger
}

// NewPhotoService builds the service. refresher may be nil.
func NewPhotoService(api PhotoAPI, tokens client.TokenSource, refresher CampsiteRefresher, log logging.Logger) *PhotoService {
	return &PhotoService{api: api, tokens: tokens, refresher: refresher, log: logging.OrNop(log).With("component", "photos")}
}

// Upload checks the photo count, type and size before sending anything. The
// server may still refuse, for example when the campsite is not public.
func (p *PhotoService) Upload(ctx context.Context, site models.Campsite, up models.PhotoUpload) (*models.Photo, error) {
	if err := validate.Photo(len(site.Photos), up.ContentType, up.Size); err != nil {
		return nil, err
	}

	photo, err := p.api.UploadPhoto(ctx, site.ID, up, p.tokens)
	if err != nil {
		return nil, err
	}
	p.refresh(ctx, site.ID)
	return photo, nil
}

func (p *PhotoService) Delete(ctx context.Context, campsiteID, photoID string) error {
	if err := p.api.DeletePhoto(ctx, campsiteID, photoID, p.tokens); err != nil {
		return err
	}
	p.refresh(ctx, campsiteID)
	return nil
}

func (p *PhotoService) refresh(ctx context.Context, id string) {
	if p.refresher == nil {
		return
	}
	if _, err := p.refresher.Refresh(ctx, id); err != nil {
		p.log.Warn(ctx, "refresh after gallery change failed", "campsite_id", id, "error", err)
	}
}

// PhotoFromFile opens path and sniffs its content type from the first bytes.
// The caller closes the returned closer once the upload is done.
func PhotoFromFile(path string) (models.PhotoUpload, io.Closer, error) {
	f, err := os.Open(path)
	if err != nil {
		return models.PhotoUpload{}, nil, fmt.Errorf("open photo: %w", err)
	}

	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return models.PhotoUpload{}, nil, fmt.Errorf("stat photo: %w", err)
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		_ = f.Close()
		return models.PhotoUpload{}, nil, fmt.Errorf("read photo: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		_ = f.Close()
		return models.PhotoUpload{}, nil, fmt.Errorf("rewind photo: %w", err)
	}

	return models.PhotoUpload{
		Filename:    filepath.Base(path),
		ContentType: http.DetectContentType(head[:n]),
		Size:        st.Size(),
		Content:     f,
	}, f, nil
}
