package apitest

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/dispersed/internal/client/models"
)

func TestServer_CountsAndFails(t *testing.T) {
	s := NewServer()
	t.Cleanup(s.Close)

	resp, err := http.Get(s.URL + "/api/campsites")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, s.Hits())

	s.FailNext(http.MethodGet, "/api/campsites", http.StatusServiceUnavailable, map[string]string{"error": "down"})
	resp, err = http.Get(s.URL + "/api/campsites")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp, err = http.Get(s.URL + "/api/campsites")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 3, s.Hits())
	assert.Equal(t, "/api/campsites", s.LastRequest().Path)
}

func TestServer_ProtectedRoutes(t *testing.T) {
	s := NewServer()
	t.Cleanup(s.Close)

	resp, err := http.Post(s.URL+"/api/campsites", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	uid := s.AddUser("a@example.com", "password1", "A")
	req, _ := http.NewRequest(http.MethodPost, s.URL+"/api/campsites", strings.NewReader(`{"latitude":1,"longitude":2}`))
	req.Header.Set("Authorization", "Bearer "+s.IssueToken(uid, time.Hour))
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var c models.Campsite
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&c))
	assert.Equal(t, uid, c.OwnerID)
	assert.Equal(t, models.DefaultCampsiteTitle, c.Title)
	assert.Equal(t, models.VisibilityPrivate, c.Visibility)
}

func TestSortReviews(t *testing.T) {
	rs := []models.Review{{ID: "a", Rating: 2}, {ID: "b", Rating: 5}, {ID: "c", Rating: 3}}
	sortReviews(rs, models.SortHighest)
	assert.Equal(t, []int{5, 3, 2}, []int{rs[0].Rating, rs[1].Rating, rs[2].Rating})
	sortReviews(rs, models.SortLowest)
	assert.Equal(t, []int{2, 3, 5}, []int{rs[0].Rating, rs[1].Rating, rs[2].Rating})
}
