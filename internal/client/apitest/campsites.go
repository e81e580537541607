package apitest

import (
	"io"
	"net/http"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrijs2005/dispersed/internal/client/models"
)

// AddCampsite stores c, assigning an id and timestamps when missing.
func (s *Server) AddCampsite(c models.Campsite) models.Campsite {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = s.nextID("c")
	}
	if c.Visibility == "" {
		c.Visibility = models.VisibilityPrivate
	}
	if c.Photos == nil {
		c.Photos = []models.Photo{}
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now()
		c.UpdatedAt = c.CreatedAt
	}
	s.campsites = append(s.campsites, c)
	return c
}

// Campsite returns the stored record with id.
func (s *Server) Campsite(id string) (models.Campsite, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		return models.Campsite{}, false
	}
	return s.campsites[i], true
}

func (s *Server) indexLocked(id string) int {
	return slices.IndexFunc(s.campsites, func(c models.Campsite) bool { return c.ID == id })
}

func visibleTo(c models.Campsite, uid string) bool {
	return c.Visibility != models.VisibilityPrivate || (uid != "" && c.OwnerID == uid)
}

func (s *Server) listCampsites(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	s.mu.Lock()
	out := make([]models.Campsite, 0, len(s.campsites))
	for _, c := range s.campsites {
		// unlisted records are reachable by id but not listed to strangers
		if c.Visibility == models.VisibilityPublic || (uid != "" && c.OwnerID == uid) {
			out = append(out, c)
		}
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getCampsite(w http.ResponseWriter, r *http.Request) {
	c, ok := s.Campsite(chi.URLParam(r, "id"))
	if !ok || !visibleTo(c, userID(r)) {
		writeError(w, http.StatusNotFound, "Campsite not found")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) createCampsite(w http.ResponseWriter, r *http.Request) {
	var in models.CampsiteInput
	if !readJSON(w, r, &in) {
		return
	}
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "%s", err.Error())
		return
	}
	c := s.AddCampsite(models.Campsite{
		OwnerID:     userID(r),
		Latitude:    in.Latitude,
		Longitude:   in.Longitude,
		Title:       in.Title,
		Description: in.Description,
		Visibility:  in.Visibility,
	})
	writeJSON(w, http.StatusCreated, c)
}

// ownedLocked resolves the campsite in the URL and checks ownership,
// writing the error response itself when it fails.
func (s *Server) ownedLocked(w http.ResponseWriter, r *http.Request) int {
	i := s.indexLocked(chi.URLParam(r, "id"))
	if i < 0 {
		writeError(w, http.StatusNotFound, "Campsite not found")
		return -1
	}
	if s.campsites[i].OwnerID != userID(r) {
		writeError(w, http.StatusForbidden, "Not authorized to modify this campsite")
		return -1
	}
	return i
}

func (s *Server) updateCampsite(w http.ResponseWriter, r *http.Request) {
	var p models.CampsitePatch
	if !readJSON(w, r, &p) {
		return
	}
	p = p.Normalize()
	if err := p.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "%s", err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.ownedLocked(w, r)
	if i < 0 {
		return
	}
	c := &s.campsites[i]
	if p.Latitude != nil {
		c.Latitude, c.Longitude = *p.Latitude, *p.Longitude
	}
	if p.Title != nil {
		c.Title = *p.Title
	}
	if p.Description != nil {
		c.Description = *p.Description
	}
	if p.Visibility != nil {
		c.Visibility = *p.Visibility
	}
	c.UpdatedAt = s.now()
	writeJSON(w, http.StatusOK, *c)
}

func (s *Server) deleteCampsite(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.ownedLocked(w, r)
	if i < 0 {
		return
	}
	id := s.campsites[i].ID
	s.campsites = slices.Delete(s.campsites, i, i+1)
	delete(s.reviews, id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) uploadPhoto(w http.ResponseWriter, r *http.Request) {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		writeError(w, http.StatusBadRequest, "Expected multipart/form-data")
		return
	}
	file, header, err := r.FormFile("photo")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No photo provided")
		return
	}
	defer file.Close()
	if _, err := io.Copy(io.Discard, file); err != nil {
		writeError(w, http.StatusBadRequest, "Unreadable photo")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.ownedLocked(w, r)
	if i < 0 {
		return
	}
	c := &s.campsites[i]
	if c.Visibility != models.VisibilityPublic {
		writeError(w, http.StatusBadRequest, "Photos can only be added to public campsites")
		return
	}
	if len(c.Photos) >= 3 {
		writeError(w, http.StatusBadRequest, "Maximum 3 photos per campsite")
		return
	}
	id := s.nextID("p")
	p := models.Photo{
		ID:           id,
		CampsiteID:   c.ID,
		URL:          s.URL + "/photos/" + id + "/" + header.Filename,
		ThumbnailURL: s.URL + "/photos/" + id + "/thumb_" + header.Filename,
	}
	c.Photos = append(c.Photos, p)
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) deletePhoto(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.ownedLocked(w, r)
	if i < 0 {
		return
	}
	c := &s.campsites[i]
	pid := chi.URLParam(r, "photoID")
	j := slices.IndexFunc(c.Photos, func(p models.Photo) bool { return p.ID == pid })
	if j < 0 {
		writeError(w, http.StatusNotFound, "Photo not found")
		return
	}
	c.Photos = slices.Delete(c.Photos, j, j+1)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	q := strings.ToLower(r.URL.Query().Get("q"))
	hasPhotos := r.URL.Query().Get("hasPhotos") == "true"

	s.mu.Lock()
	out := make([]models.Campsite, 0)
	for _, c := range s.campsites {
		if c.Visibility != models.VisibilityPublic {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(c.Title+" "+c.Description), q) {
			continue
		}
		if hasPhotos && len(c.Photos) == 0 {
			continue
		}
		out = append(out, c)
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, models.SearchResult{Campsites: out})
}

func (s *Server) weather(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"latitude":  chi.URLParam(r, "lat"),
		"longitude": chi.URLParam(r, "lng"),
		"forecast":  []map[string]any{{"name": "Tonight", "temperature": 41, "shortForecast": "Clear"}},
	})
}

func (s *Server) elevation(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"latitude":  chi.URLParam(r, "lat"),
		"longitude": chi.URLParam(r, "lng"),
		"elevation": 3012.5,
	})
}

func (s *Server) bug(w http.ResponseWriter, r *http.Request) {
	var in models.BugReport
	if !readJSON(w, r, &in) {
		return
	}
	if in.Bug == "" {
		writeError(w, http.StatusBadRequest, "Bug description is required")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]bool{"success": true})
}
