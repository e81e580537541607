package apitest

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/dmitrijs2005/dispersed/internal/client/models"
)

type ctxKey struct{}

type claims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

// AddUser registers an account directly and returns its user id.
func (s *Server) AddUser(email, password, displayName string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addUserLocked(email, password, displayName).UserID
}

func (s *Server) addUserLocked(email, password, displayName string) models.Identity {
	id := models.Identity{UserID: s.nextID("u"), Email: email, DisplayName: displayName}
	s.accounts[strings.ToLower(email)] = &account{identity: id, password: password}
	return id
}

// IssueToken signs an access token for userID valid for ttl.
func (s *Server) IssueToken(userID string, ttl time.Duration) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var id models.Identity
	for _, a := range s.accounts {
		if a.identity.UserID == userID {
			id = a.identity
		}
	}
	if id.UserID == "" {
		id.UserID = userID
	}
	return s.signLocked(id, ttl)
}

func (s *Server) signLocked(id models.Identity, ttl time.Duration) string {
	now := s.now()
	c := claims{
		Email: id.Email,
		Name:  id.DisplayName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		panic(err)
	}
	return signed
}

func (s *Server) credentialsLocked(id models.Identity) models.Credentials {
	rt := uuid.NewString()
	s.refresh[rt] = id.UserID
	return models.Credentials{Identity: id, IDToken: s.signLocked(id, s.TokenTTL), RefreshToken: rt}
}

// RevokeRefreshTokens invalidates every refresh token issued so far.
func (s *Server) RevokeRefreshTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.refresh)
}

func (s *Server) parseToken(raw string) (*claims, error) {
	c := &claims{}
	_, err := jwt.ParseWithClaims(raw, c, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Server) authenticate(r *http.Request) (string, bool, error) {
	h := r.Header.Get("Authorization")
	if h == "" {
		return "", false, nil
	}
	raw, ok := strings.CutPrefix(h, "Bearer ")
	if !ok {
		return "", true, errors.New("malformed authorization header")
	}
	c, err := s.parseToken(raw)
	if err != nil {
		return "", true, err
	}
	return c.Subject, true, nil
}

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid, present, err := s.authenticate(r)
		if !present {
			writeError(w, http.StatusUnauthorized, "No token provided")
			return
		}
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, uid)))
	})
}

func (s *Server) optionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid, present, err := s.authenticate(r)
		if present && err != nil {
			writeError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}
		if uid != "" {
			r = r.WithContext(context.WithValue(r.Context(), ctxKey{}, uid))
		}
		next.ServeHTTP(w, r)
	})
}

func userID(r *http.Request) string {
	uid, _ := r.Context().Value(ctxKey{}).(string)
	return uid
}

type credentialsBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) signUp(w http.ResponseWriter, r *http.Request) {
	var in credentialsBody
	if !readJSON(w, r, &in) {
		return
	}
	if len(in.Password) < 6 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Password should be at least 6 characters", "code": "weak_password"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[strings.ToLower(in.Email)]; exists {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Email already in use", "code": "email_in_use"})
		return
	}
	id := s.addUserLocked(in.Email, in.Password, "")
	writeJSON(w, http.StatusCreated, s.credentialsLocked(id))
}

func (s *Server) signIn(w http.ResponseWriter, r *http.Request) {
	var in credentialsBody
	if !readJSON(w, r, &in) {
		return
	}
	key := strings.ToLower(in.Email)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.signInBad[key] >= s.MaxSignInFailures {
		writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "Too many failed attempts. Try again later.", "code": "rate_limited"})
		return
	}
	a, ok := s.accounts[key]
	if !ok || a.password != in.Password {
		s.signInBad[key]++
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid email or password", "code": "invalid_credentials"})
		return
	}
	delete(s.signInBad, key)
	writeJSON(w, http.StatusOK, s.credentialsLocked(a.identity))
}

type refreshBody struct {
	RefreshToken string `json:"refreshToken"`
}

func (s *Server) refreshToken(w http.ResponseWriter, r *http.Request) {
	var in refreshBody
	if !readJSON(w, r, &in) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	uid, ok := s.refresh[in.RefreshToken]
	if !ok {
		writeError(w, http.StatusUnauthorized, "Invalid refresh token")
		return
	}
	delete(s.refresh, in.RefreshToken)

	for _, a := range s.accounts {
		if a.identity.UserID == uid {
			writeJSON(w, http.StatusOK, s.credentialsLocked(a.identity))
			return
		}
	}
	writeError(w, http.StatusUnauthorized, "Invalid refresh token")
}

func (s *Server) signOut(w http.ResponseWriter, r *http.Request) {
	var in refreshBody
	if !readJSON(w, r, &in) {
		return
	}
	s.mu.Lock()
	delete(s.refresh, in.RefreshToken)
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) passwordReset(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email string `json:"email"`
	}
	if !readJSON(w, r, &in) {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) updateAccount(w http.ResponseWriter, r *http.Request) {
	var in models.ProfileUpdate
	if !readJSON(w, r, &in) {
		return
	}
	uid := userID(r)

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.identity.UserID != uid {
			continue
		}
		if in.DisplayName != nil {
			a.identity.DisplayName = *in.DisplayName
		}
		writeJSON(w, http.StatusOK, a.identity)
		return
	}
	writeError(w, http.StatusNotFound, "User not found")
}

// Profile returns the stored profile for userID.
func (s *Server) Profile(userID string) (models.Profile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	return p, ok
}

// PutProfile stores p as if it had been created earlier.
func (s *Server) PutProfile(p models.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.UserID] = p
}

func (s *Server) getProfile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "userID")
	s.mu.Lock()
	p, ok := s.profiles[id]
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "Profile not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) createProfile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "userID")
	if id != userID(r) {
		writeError(w, http.StatusForbidden, "Cannot create a profile for another user")
		return
	}
	var in models.Profile
	if !readJSON(w, r, &in) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.profiles[id]; exists {
		writeError(w, http.StatusConflict, "Profile already exists")
		return
	}
	in.UserID = id
	in.CreatedAt = s.now()
	in.UpdatedAt = in.CreatedAt
	s.profiles[id] = in
	writeJSON(w, http.StatusCreated, in)
}
