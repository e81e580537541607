package cli

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/dispersed/internal/client/apitest"
	"github.com/dmitrijs2005/dispersed/internal/client/client"
	"github.com/dmitrijs2005/dispersed/internal/client/models"
	"github.com/dmitrijs2005/dispersed/internal/client/repositories/sessionstate"
	"github.com/dmitrijs2005/dispersed/internal/client/state"
)

func stubPassword(t *testing.T, pw string) {
	t.Helper()
	stubPasswords(t, pw, pw)
}

func stubPasswords(t *testing.T, pw, again string) {
	t.Helper()
	orig, origAgain := getPassword, getPasswordAgain
	getPassword = func(io.Writer) ([]byte, error) { return []byte(pw), nil }
	getPasswordAgain = func(io.Writer) ([]byte, error) { return []byte(again), nil }
	t.Cleanup(func() { getPassword, getPasswordAgain = orig, origAgain })
}

// runApp plays lines into a fresh App against srv and returns everything it
// printed.
func runApp(t *testing.T, srv *apitest.Server, lines ...string) string {
	t.Helper()
	repl := captureOutput(t)

	gw := client.New(srv.URL, client.WithHTTPClient(srv.Client()))
	st := state.New(gw, sessionstate.NewMemoryRepository(), nil)

	var out strings.Builder
	app := NewApp(st, strings.NewReader(strings.Join(lines, "\n")+"\n"), &out, nil)
	require.NoError(t, app.Run(context.Background()))
	return out.String() + repl.String()
}

func newServer(t *testing.T) *apitest.Server {
	t.Helper()
	srv := apitest.NewServer()
	t.Cleanup(srv.Close)
	return srv
}

func TestApp_CampsiteWorkflow(t *testing.T) {
	srv := newServer(t)
	uid := srv.AddUser("alice@example.com", "password123", "Alice")
	srv.AddCampsite(models.Campsite{ID: "c-pub", OwnerID: "other", Title: "Aspen flat", Visibility: models.VisibilityPublic})
	srv.AddCampsite(models.Campsite{ID: "c-mine", OwnerID: uid, Title: "Old spot", Visibility: models.VisibilityPrivate})
	stubPassword(t, "password123")

	out := runApp(t, srv,
		"login alice@example.com",
		"list",
		"add", "39.5", "-105.2", "", "", "public",
		"mine",
		"edit c-mine", "Renamed", "", "",
		"show c-pub",
		"review c-pub 5 great spot",
		"reviews c-pub",
		"delete c-mine", "y",
		"whoami",
		"logout",
		"exit",
	)

	assert.Contains(t, out, "Signed in as Alice")
	assert.Contains(t, out, "Aspen flat")
	assert.Contains(t, out, "Created "+models.DefaultCampsiteTitle)
	assert.Contains(t, out, "Updated Renamed")
	assert.Contains(t, out, "Thanks! Review")
	assert.Contains(t, out, "***** Alice (you)")
	assert.Contains(t, out, "great spot")
	assert.Contains(t, out, "Deleted")
	assert.Contains(t, out, "Alice <alice@example.com> ("+uid+")")
	assert.Contains(t, out, "Signed out")
	assert.NotContains(t, out, "Error:")

	_, ok := srv.Campsite("c-mine")
	assert.False(t, ok, "deleted on the server")

	var created int
	for _, r := range srv.Requests() {
		if r.Method == "POST" && r.Path == "/api/campsites" {
			created++
		}
	}
	assert.Equal(t, 1, created)
}

func TestApp_ValidationNeverReachesServer(t *testing.T) {
	srv := newServer(t)
	srv.AddUser("alice@example.com", "password123", "Alice")
	stubPassword(t, "password123")

	out := runApp(t, srv,
		"login alice@example.com",
		"add", "95", "10", "x", "", "",
		"add", "north",
		"review c-1 0",
		"lookup 0 200",
		"exit",
	)

	assert.Contains(t, out, "Error: Latitude must be between -90 and 90")
	assert.Contains(t, out, "Error: Enter latitude as a decimal number")
	assert.Contains(t, out, "Error: Please select a rating")
	assert.Contains(t, out, "Error: Longitude must be between -180 and 180")

	for _, r := range srv.Requests() {
		if r.Method == http.MethodPost {
			assert.False(t, strings.HasPrefix(r.Path, "/api/campsites"), "unexpected write %s", r.Path)
		}
		assert.False(t, strings.HasPrefix(r.Path, "/api/elevation") || strings.HasPrefix(r.Path, "/api/weather"), r.Path)
	}
}

func TestApp_RegisterAndBadLogin(t *testing.T) {
	srv := newServer(t)
	stubPassword(t, "password123")

	out := runApp(t, srv,
		"register", "bob@example.com", "Bob",
		"whoami",
		"logout",
		"login nobody@example.com",
		"exit",
	)

	assert.Contains(t, out, "Welcome, Bob!")
	assert.Contains(t, out, "Bob <bob@example.com>")
	assert.Contains(t, out, "Error: Invalid email or password")
	assert.Contains(t, out, "reset nobody@example.com")
}

func TestApp_AnonymousFeatures(t *testing.T) {
	srv := newServer(t)
	srv.AddCampsite(models.Campsite{ID: "c-pub", Title: "Aspen flat", Visibility: models.VisibilityPublic})

	out := runApp(t, srv,
		"whoami",
		"search aspen",
		"lookup 39.5 -105.2",
		"review c-pub 3 fine",
		"bug", "Sam", "sam@example.com", "map is blank", "",
		"help",
		"quit",
	)

	assert.Contains(t, out, "Not signed in")
	assert.Contains(t, out, "Aspen flat")
	assert.Contains(t, out, "Elevation:")
	assert.Contains(t, out, "Tonight")
	assert.Contains(t, out, "Thanks! Review")
	assert.Contains(t, out, "Thanks, the report was sent")
	assert.NotContains(t, out, "unphoto")
}

func TestApp_PhotoUpload(t *testing.T) {
	srv := newServer(t)
	uid := srv.AddUser("alice@example.com", "password123", "Alice")
	srv.AddCampsite(models.Campsite{ID: "c-pub", OwnerID: uid, Title: "Ridge", Visibility: models.VisibilityPublic})
	stubPassword(t, "password123")

	path := filepath.Join(t.TempDir(), "ridge.png")
	require.NoError(t, os.WriteFile(path, []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), 0o600))

	out := runApp(t, srv,
		"login alice@example.com",
		"photo c-pub "+path,
		"photo c-pub "+filepath.Join(t.TempDir(), "missing.png"),
		"exit",
	)

	assert.Contains(t, out, "Uploaded photo")
	assert.Contains(t, out, "Error: open photo")
	site, _ := srv.Campsite("c-pub")
	assert.Len(t, site.Photos, 1)
}

func TestApp_RegisterPasswordMismatch(t *testing.T) {
	srv := newServer(t)
	stubPasswords(t, "password123", "password124")

	out := runApp(t, srv,
		"register", "bob@example.com",
		"exit",
	)

	assert.Contains(t, out, "Error: Passwords do not match")
	for _, r := range srv.Requests() {
		assert.NotEqual(t, "/api/auth/signup", r.Path)
	}
}

func TestApp_ReviewModeration(t *testing.T) {
	srv := newServer(t)
	uid := srv.AddUser("alice@example.com", "password123", "Alice")
	srv.AddCampsite(models.Campsite{ID: "c-pub", OwnerID: "other", Title: "Aspen flat", Visibility: models.VisibilityPublic})
	srv.AddReview("c-pub", models.Review{ID: "r-mine", AuthorID: &uid, DisplayName: "Alice", Rating: 4, Comment: "nice"})
	srv.AddReview("c-pub", models.Review{ID: "r-other", DisplayName: "Anonymous", Rating: 1})
	stubPassword(t, "password123")

	out := runApp(t, srv,
		"login alice@example.com",
		"reviews c-pub",
		"review-edit c-pub r-mine 2 windy at night",
		"flag c-pub r-other spam",
		"review-delete c-pub r-mine", "n",
		"review-delete c-pub r-mine", "y",
		"review-edit c-pub r-other 5",
		"exit",
	)

	assert.Contains(t, out, "Review r-mine updated")
	assert.Contains(t, out, "Review has been flagged for moderation")
	assert.Contains(t, out, "Review r-mine deleted")
	assert.Contains(t, out, "Error: Not authorized to modify this review")

	_, ok := srv.Review("c-pub", "r-mine")
	assert.False(t, ok)
	other, ok := srv.Review("c-pub", "r-other")
	require.True(t, ok)
	assert.Equal(t, 1, other.FlagCount)
	assert.Equal(t, 1, other.Rating)

	var deletes int
	for _, r := range srv.Requests() {
		if r.Method == http.MethodDelete && r.Path == "/api/campsites/c-pub/reviews/r-mine" {
			deletes++
		}
	}
	assert.Equal(t, 1, deletes, "declined confirmation sends nothing")
}

func TestApp_AnonymousReviewDropsComment(t *testing.T) {
	srv := newServer(t)
	srv.AddCampsite(models.Campsite{ID: "c-pub", Title: "Aspen flat", Visibility: models.VisibilityPublic})

	out := runApp(t, srv,
		"review c-pub 4 lovely",
		"exit",
	)

	assert.Contains(t, out, "Sign in to leave a comment")
	assert.Contains(t, out, "Thanks! Review")
	site, _ := srv.Campsite("c-pub")
	assert.Equal(t, 1, site.ReviewCount)
}

func TestApp_SearchFilters(t *testing.T) {
	srv := newServer(t)
	srv.AddCampsite(models.Campsite{ID: "c-pub", Title: "Aspen flat", Visibility: models.VisibilityPublic})

	out := runApp(t, srv,
		"search -lat 39.5 -lng -105.2 -radius 25 -min-rating 3 -sort distance aspen flat",
		"search -lat 39.5 aspen",
		"search -sort sideways",
		"exit",
	)

	assert.Contains(t, out, "Aspen flat")
	assert.Contains(t, out, "Usage: search")
	assert.Contains(t, out, "Error:")

	var queries []url.Values
	for _, r := range srv.Requests() {
		if r.Path == "/api/search/campsites" {
			q, err := url.ParseQuery(r.Query)
			require.NoError(t, err)
			queries = append(queries, q)
		}
	}
	require.Len(t, queries, 1, "invalid searches never reach the server")
	q := queries[0]
	assert.Equal(t, "aspen flat", q.Get("q"))
	assert.Equal(t, "39.5", q.Get("latitude"))
	assert.Equal(t, "-105.2", q.Get("longitude"))
	assert.Equal(t, "25", q.Get("radius"))
	assert.Equal(t, "3", q.Get("minRating"))
	assert.Equal(t, "distance", q.Get("sort"))
	assert.Empty(t, q.Get("hasPhotos"))
}
