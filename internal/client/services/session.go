package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/dispersed/internal/client/client"
	"github.com/dmitrijs2005/dispersed/internal/client/models"
	"github.com/dmitrijs2005/dispersed/internal/common"
	"github.com/dmitrijs2005/dispersed/internal/logging"
	"github.com/dmitrijs2005/dispersed/internal/validate"
)

// Session tracks who is signed in. It reports nothing definite until the
// identity provider has completed its first resolution; until then the
// blocking accessors wait.
type Session struct {
	idp      IdentityProvider
	profiles ProfileAPI
	log      logging.Logger

	initOnce sync.Once
	ready    chan struct{}

	mu       sync.RWMutex
	identity *models.Identity
	lastErr  error
	version  uint64

	subs    map[int]func(*models.Identity)
	nextSub int

	// notifyMu serializes delivery; delivered is the newest version sent.
	notifyMu  sync.Mutex
	delivered uint64
}

// NewSession builds a Session over idp. profiles may be nil, in which case
// no profile record is created on sign-up.
func NewSession(idp IdentityProvider, profiles ProfileAPI, log logging.Logger) *Session {
	return &Session{
		idp:      idp,
		profiles: profiles,
		log:      logging.OrNop(log).With("component", "session"),
		ready:    make(chan struct{}),
		subs:     make(map[int]func(*models.Identity)),
	}
}

// Init starts the first resolution in the background. It must be called
// before anything else; calling it again has no effect.
func (s *Session) Init(ctx context.Context) {
	s.initOnce.Do(func() {
		go func() {
			id, err := s.idp.Restore(ctx)
			if err != nil {
				s.log.Warn(ctx, "session restore failed", "error", err)
			}
			s.mu.Lock()
			s.identity = cloneIdentity(id)
			s.lastErr = err
			s.version++
			v := s.version
			close(s.ready)
			s.mu.Unlock()

			s.log.Info(ctx, "session resolved", "status", statusOf(id))
			s.deliver(v, id)
		}()
	})
}

// Ready is closed once the first resolution has completed.
func (s *Session) Ready() <-chan struct{} { return s.ready }

// Wait blocks until the session is ready or ctx is done.
func (s *Session) Wait(ctx context.Context) error {
	select {
	case <-s.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) isReady() bool {
	select {
	case <-s.ready:
		return true
	default:
		return false
	}
}

// Status waits for the first resolution and reports the current state.
func (s *Session) Status(ctx context.Context) (models.AuthStatus, error) {
	if err := s.Wait(ctx); err != nil {
		return "", err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return statusOf(s.identity), nil
}

// Identity waits for the first resolution and returns the signed-in user, or
// nil when anonymous.
func (s *Session) Identity(ctx context.Context) (*models.Identity, error) {
	if err := s.Wait(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneIdentity(s.identity), nil
}

// UserID returns the signed-in user id without waiting. It is "" while the
// session is anonymous or still resolving.
func (s *Session) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identity == nil {
		return ""
	}
	return s.identity.UserID
}

// GetToken waits for the first resolution and returns the current identity
// token, or "" with a nil error when nobody is signed in. If the provider
// reports that the session can no longer be refreshed the session becomes
// anonymous.
func (s *Session) GetToken(ctx context.Context) (string, error) {
	if err := s.Wait(ctx); err != nil {
		return "", err
	}
	if s.UserID() == "" {
		return "", nil
	}

	tok, err := s.idp.Token(ctx)
	if errors.Is(err, common.ErrRefreshTokenExpired) {
		s.log.Info(ctx, "session expired")
		s.setIdentity(nil, err)
		return "", nil
	}
	if err != nil {
		s.setErr(err)
		return "", err
	}
	return tok, nil
}

var _ client.TokenSource = (*Session)(nil)

// SignUp validates the credentials locally, creates the account and then
// makes sure a profile record exists. The session is authenticated even if
// the profile step fails; that failure is returned.
func (s *Session) SignUp(ctx context.Context, email, password string) (*models.Identity, error) {
	s.setErr(nil)
	if err := validate.Password(password); err != nil {
		s.setErr(err)
		return nil, err
	}
	if err := validate.Email(email); err != nil {
		s.setErr(err)
		return nil, err
	}
	if err := s.Wait(ctx); err != nil {
		return nil, err
	}

	id, err := s.idp.SignUp(ctx, email, password)
	if err != nil {
		s.setErr(err)
		return nil, err
	}
	s.setIdentity(id, nil)
	s.log.Info(ctx, "signed up", "user_id", id.UserID)

	if _, err := s.EnsureProfile(ctx, models.Profile{UserID: id.UserID, Email: email}); err != nil {
		return cloneIdentity(id), err
	}
	return cloneIdentity(id), nil
}

// EnsureProfile creates the profile record for p.UserID unless one exists
// already, in which case the stored record is returned untouched.
func (s *Session) EnsureProfile(ctx context.Context, p models.Profile) (*models.Profile, error) {
	if s.profiles == nil {
		return nil, nil
	}

	existing, err := s.profiles.GetProfile(ctx, p.UserID, s)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, client.ErrNotFound) {
		s.setErr(err)
		return nil, fmt.Errorf("check profile: %w", err)
	}

	created, err := s.profiles.CreateProfile(ctx, p, s)
	if err != nil {
		s.setErr(err)
		return nil, fmt.Errorf("create profile: %w", err)
	}
	return created, nil
}

// SignIn authenticates with the provider. Failures are returned as
// *SignInError and leave the session anonymous.
func (s *Session) SignIn(ctx context.Context, email, password string) (*models.Identity, error) {
	if err := s.Wait(ctx); err != nil {
		return nil, err
	}
	s.setErr(nil)
	id, err := s.idp.SignIn(ctx, email, password)
	if err != nil {
		sie := classifySignIn(err)
		s.log.Info(ctx, "sign in rejected", "kind", sie.Kind)
		s.setErr(sie)
		return nil, sie
	}
	s.setIdentity(id, nil)
	s.log.Info(ctx, "signed in", "user_id", id.UserID)
	return cloneIdentity(id), nil
}

// Logout signs out with the provider. The session only becomes anonymous
// once the provider has confirmed.
func (s *Session) Logout(ctx context.Context) error {
	if err := s.Wait(ctx); err != nil {
		return err
	}
	s.setErr(nil)
	if err := s.idp.SignOut(ctx); err != nil {
		s.setErr(err)
		return err
	}
	s.setIdentity(nil, nil)
	s.log.Info(ctx, "signed out")
	return nil
}

func (s *Session) ResetPassword(ctx context.Context, email string) error {
	s.setErr(nil)
	if err := validate.Email(email); err != nil {
		s.setErr(err)
		return err
	}
	if err := s.idp.ResetPassword(ctx, email); err != nil {
		s.setErr(err)
		return err
	}
	return nil
}

// UpdateProfile changes account display fields. It fails with ErrNoSession
// when nobody is signed in.
func (s *Session) UpdateProfile(ctx context.Context, u models.ProfileUpdate) (*models.Identity, error) {
	if err := s.Wait(ctx); err != nil {
		return nil, err
	}
	s.setErr(nil)
	if s.UserID() == "" {
		s.setErr(ErrNoSession)
		return nil, ErrNoSession
	}
	id, err := s.idp.UpdateProfile(ctx, u)
	if err != nil {
		s.setErr(err)
		return nil, err
	}
	s.setIdentity(id, nil)
	return cloneIdentity(id), nil
}

// LastError is the error left by the most recent operation, if any.
func (s *Session) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// Subscribe registers fn to be called with the new identity (nil when
// anonymous) after every change, including the first resolution. Calls are
// delivered one at a time in the order the changes happened; a change that
// is already superseded when its turn comes is skipped. fn must not sign in
// or out from inside the callback. The returned function removes the
// subscription.
func (s *Session) Subscribe(fn func(*models.Identity)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

func (s *Session) setErr(err error) {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
}

func (s *Session) setIdentity(id *models.Identity, err error) {
	s.mu.Lock()
	changed := !sameIdentity(s.identity, id)
	s.identity = cloneIdentity(id)
	s.lastErr = err
	if changed {
		s.version++
	}
	v := s.version
	s.mu.Unlock()

	if changed && s.isReady() {
		s.deliver(v, id)
	}
}

// deliver sends identity version v to the subscribers unless a newer
// version has already been delivered.
func (s *Session) deliver(v uint64, id *models.Identity) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	if v <= s.delivered {
		return
	}
	s.delivered = v

	s.mu.RLock()
	fns := s.subscribersLocked()
	s.mu.RUnlock()

	for _, fn := range fns {
		fn(cloneIdentity(id))
	}
}

func (s *Session) subscribersLocked() []func(*models.Identity) {
	fns := make([]func(*models.Identity), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	return fns
}

func statusOf(id *models.Identity) models.AuthStatus {
	if id == nil {
		return models.StatusAnonymous
	}
	return models.StatusAuthenticated
}

func sameIdentity(a, b *models.Identity) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func cloneIdentity(id *models.Identity) *models.Identity {
	if id == nil {
		return nil
	}
	c := *id
	return &c
}
