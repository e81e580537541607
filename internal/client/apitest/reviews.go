package apitest

import (
	"cmp"
	"net/http"
	"slices"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrijs2005/dispersed/internal/client/models"
)

// AddReview stores r under campsiteID and updates the aggregate fields.
func (s *Server) AddReview(campsiteID string, r models.Review) models.Review {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addReviewLocked(campsiteID, r)
}

func (s *Server) addReviewLocked(campsiteID string, r models.Review) models.Review {
	if r.ID == "" {
		r.ID = s.nextID("r")
	}
	r.CampsiteID = campsiteID
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now()
	}
	s.reviews[campsiteID] = append(s.reviews[campsiteID], r)
	s.recountLocked(campsiteID)
	return r
}

func (s *Server) recountLocked(campsiteID string) {
	i := s.indexLocked(campsiteID)
	if i < 0 {
		return
	}
	rs := s.reviews[campsiteID]
	sum := 0
	for _, r := range rs {
		sum += r.Rating
	}
	s.campsites[i].ReviewCount = len(rs)
	s.campsites[i].AverageRating = 0
	if len(rs) > 0 {
		s.campsites[i].AverageRating = float64(sum) / float64(len(rs))
	}
}

func sortReviews(rs []models.Review, sort models.ReviewSort) {
	slices.SortStableFunc(rs, func(a, b models.Review) int {
		switch sort {
		case models.SortHighest:
			if c := cmp.Compare(b.Rating, a.Rating); c != 0 {
				return c
			}
		case models.SortLowest:
			if c := cmp.Compare(a.Rating, b.Rating); c != 0 {
				return c
			}
		}
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

func (s *Server) listReviews(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	q := r.URL.Query()

	sort := models.ReviewSort(q.Get("sort"))
	if !sort.Valid() {
		sort = models.SortNewest
	}
	limit, err := strconv.Atoi(q.Get("limit"))
	if err != nil || limit <= 0 {
		limit = models.DefaultReviewPageSize
	}

	s.mu.Lock()
	rs := slices.Clone(s.reviews[id])
	s.mu.Unlock()
	sortReviews(rs, sort)

	start := 0
	if after := q.Get("startAfter"); after != "" {
		start = slices.IndexFunc(rs, func(r models.Review) bool { return r.ID == after }) + 1
	}
	end := min(start+limit, len(rs))

	page := models.ReviewPage{Reviews: rs[start:end], HasMore: end < len(rs)}
	if end > start {
		last := rs[end-1].ID
		page.LastDoc = &last
	}
	if page.Reviews == nil {
		page.Reviews = []models.Review{}
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) createReview(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	var in models.ReviewInput
	if !readJSON(w, r, &in) {
		return
	}
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "%s", err.Error())
		return
	}

	id := chi.URLParam(r, "id")
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexLocked(id) < 0 {
		writeError(w, http.StatusNotFound, "Campsite not found")
		return
	}
	rev := models.Review{Rating: in.Rating, Comment: in.Comment}
	if uid != "" {
		rev.AuthorID = &uid
		for _, a := range s.accounts {
			if a.identity.UserID == uid {
				rev.DisplayName = a.identity.DisplayName
			}
		}
	} else {
		rev.DisplayName = "Anonymous"
	}
	writeJSON(w, http.StatusCreated, s.addReviewLocked(id, rev))
}

// authoredLocked finds the review in the URL and checks the caller wrote it.
func (s *Server) authoredLocked(w http.ResponseWriter, r *http.Request, requireAuthor bool) (string, int) {
	cid := chi.URLParam(r, "id")
	rid := chi.URLParam(r, "reviewID")
	j := slices.IndexFunc(s.reviews[cid], func(x models.Review) bool { return x.ID == rid })
	if j < 0 {
		writeError(w, http.StatusNotFound, "Review not found")
		return "", -1
	}
	if requireAuthor && !s.reviews[cid][j].WrittenBy(userID(r)) {
		writeError(w, http.StatusForbidden, "Not authorized to modify this review")
		return "", -1
	}
	return cid, j
}

func (s *Server) updateReview(w http.ResponseWriter, r *http.Request) {
	var in models.ReviewInput
	if !readJSON(w, r, &in) {
		return
	}
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "%s", err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	cid, j := s.authoredLocked(w, r, true)
	if j < 0 {
		return
	}
	rev := &s.reviews[cid][j]
	rev.Rating, rev.Comment = in.Rating, in.Comment
	s.recountLocked(cid)
	writeJSON(w, http.StatusOK, *rev)
}

func (s *Server) deleteReview(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cid, j := s.authoredLocked(w, r, true)
	if j < 0 {
		return
	}
	s.reviews[cid] = slices.Delete(s.reviews[cid], j, j+1)
	s.recountLocked(cid)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) flagReview(w http.ResponseWriter, r *http.Request) {
	var in models.FlagInput
	if !readJSON(w, r, &in) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cid, j := s.authoredLocked(w, r, false)
	if j < 0 {
		return
	}
	s.reviews[cid][j].FlagCount++
	writeJSON(w, http.StatusOK, map[string]any{"flagCount": s.reviews[cid][j].FlagCount})
}

// Review returns the stored review.
func (s *Server) Review(campsiteID, reviewID string) (models.Review, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.reviews[campsiteID] {
		if r.ID == reviewID {
			return r, true
		}
	}
	return models.Review{}, false
}
