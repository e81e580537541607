// Package apitest is an in-memory stand-in for the Dispersed HTTP API. It
// speaks the same wire format as the real backend closely enough to drive the
// client end to end in tests, and counts every request it receives.
package apitest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dmitrijs2005/dispersed/internal/client/models"
)

// Recorded is a request as the server saw it.
type Recorded struct {
	Method string
	Path   string
	Query  string
	Header http.Header
}

type failure struct {
	status int
	body   any
}

type account struct {
	identity models.Identity
	password string
}

// Server is a fake API backed by maps. All methods are safe for concurrent
// use.
type Server struct {
	*httptest.Server

	// TokenTTL is the lifetime of issued access tokens.
	TokenTTL time.Duration
	// MaxSignInFailures is the number of bad passwords accepted per email
	// before sign-in answers 429.
	MaxSignInFailures int

	secret []byte
	hits   atomic.Int64

	mu        sync.Mutex
	recorded  []Recorded
	failures  map[string]failure
	hooks     []func(*http.Request)
	accounts  map[string]*account // by email
	profiles  map[string]models.Profile
	refresh   map[string]string // refresh token -> user id
	signInBad map[string]int
	campsites []models.Campsite
	reviews   map[string][]models.Review
	now       func() time.Time
}

// NewServer starts a fake API. It is closed when the test ends if the caller
// registers Close with t.Cleanup.
func NewServer() *Server {
	s := &Server{
		TokenTTL:          time.Hour,
		MaxSignInFailures: 5,
		secret:            []byte("apitest-" + uuid.NewString()),
		failures:          make(map[string]failure),
		accounts:          make(map[string]*account),
		profiles:          make(map[string]models.Profile),
		refresh:           make(map[string]string),
		signInBad:         make(map[string]int),
		reviews:           make(map[string][]models.Review),
		now:               func() time.Time { return time.Now().UTC() },
	}
	s.Server = httptest.NewServer(s.routes())
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.record)

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/signup", s.signUp)
		r.Post("/signin", s.signIn)
		r.Post("/refresh", s.refreshToken)
		r.Post("/signout", s.signOut)
		r.Post("/password-reset", s.passwordReset)
		r.With(s.requireAuth).Put("/profile", s.updateAccount)
	})

	r.Route("/api/users/{userID}/profile", func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Get("/", s.getProfile)
		r.Post("/", s.createProfile)
	})

	r.Route("/api/campsites", func(r chi.Router) {
		r.Use(s.optionalAuth)
		r.Get("/", s.listCampsites)
		r.With(s.requireAuth).Post("/", s.createCampsite)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.getCampsite)
			r.With(s.requireAuth).Put("/", s.updateCampsite)
			r.With(s.requireAuth).Delete("/", s.deleteCampsite)

			r.With(s.requireAuth).Post("/photos", s.uploadPhoto)
			r.With(s.requireAuth).Delete("/photos/{photoID}", s.deletePhoto)

			r.Get("/reviews", s.listReviews)
			r.Post("/reviews", s.createReview)
			r.With(s.requireAuth).Put("/reviews/{reviewID}", s.updateReview)
			r.With(s.requireAuth).Delete("/reviews/{reviewID}", s.deleteReview)
			r.With(s.requireAuth).Post("/reviews/{reviewID}/flag", s.flagReview)
		})
	})

	r.Get("/api/search/campsites", s.search)
	r.Get("/api/weather/{lat}/{lng}", s.weather)
	r.Get("/api/elevation/{lat}/{lng}", s.elevation)
	r.Post("/api/bug", s.bug)

	return r
}

// record counts the request, runs hooks and applies one-shot failures.
func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.hits.Add(1)

		s.mu.Lock()
		s.recorded = append(s.recorded, Recorded{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Header: r.Header.Clone(),
		})
		hooks := append([]func(*http.Request){}, s.hooks...)
		key := r.Method + " " + r.URL.Path
		f, failing := s.failures[key]
		if failing {
			delete(s.failures, key)
		}
		s.mu.Unlock()

		for _, h := range hooks {
			h(r)
		}

		if failing {
			writeJSON(w, f.status, f.body)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Hits is the number of requests received so far.
func (s *Server) Hits() int { return int(s.hits.Load()) }

// Requests returns a copy of everything received so far.
func (s *Server) Requests() []Recorded {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Recorded(nil), s.recorded...)
}

// LastRequest returns the most recent request. It panics if there is none.
func (s *Server) LastRequest() Recorded {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recorded[len(s.recorded)-1]
}

// FailNext makes the next request to method+path answer status with body.
// body is JSON-encoded unless it is a string, which is sent raw.
func (s *Server) FailNext(method, path string, status int, body any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method+" "+path] = failure{status: status, body: body}
}

// OnRequest registers fn to run before every request is handled. Blocking
// inside fn holds the response back, which lets tests reorder completions.
func (s *Server) OnRequest(fn func(*http.Request)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, fn)
}

func (s *Server) nextID(prefix string) string {
	return prefix + "-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	if raw, ok := body.(string); ok {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(raw))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

func writeError(w http.ResponseWriter, status int, format string, args ...any) {
	writeJSON(w, status, map[string]string{"error": fmt.Sprintf(format, args...)})
}

func readJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}
