package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"

	"github.com/dmitrijs2005/dispersed/internal/client/client"
	"github.com/dmitrijs2005/dispersed/internal/client/models"
	"github.com/dmitrijs2005/dispersed/internal/client/repositories/sessionstate"
	"github.com/dmitrijs2005/dispersed/internal/common"
	"github.com/dmitrijs2005/dispersed/internal/logging"
)

// DefaultRefreshSkew is how long before expiry an access token is replaced.
const DefaultRefreshSkew = 30 * time.Second

// RemoteIdentity is the IdentityProvider backed by the API's auth endpoints.
// The refresh token and the identity it belongs to are kept in a
// sessionstate.Repository so a later run can resume without a password.
type RemoteIdentity struct {
	api   AuthAPI
	state sessionstate.Repository
	log   logging.Logger

	// RefreshSkew overrides DefaultRefreshSkew when non-zero.
	RefreshSkew time.Duration
	now         func() time.Time

	mu           sync.Mutex
	identity     *models.Identity
	idToken      string
	expiresAt    time.Time
	refreshToken string

	refresh singleflight.Group
}

func NewRemoteIdentity(api AuthAPI, state sessionstate.Repository, log logging.Logger) *RemoteIdentity {
	return &RemoteIdentity{
		api:   api,
		state: state,
		log:   logging.OrNop(log).With("component", "identity"),
		now:   time.Now,
	}
}

var _ IdentityProvider = (*RemoteIdentity)(nil)

// Restore loads the stored refresh token and trades it for a fresh token
// pair. When the server is unreachable the stored identity is used as is and
// the token is refreshed on first use. A rejected refresh token wipes the
// stored state.
func (r *RemoteIdentity) Restore(ctx context.Context) (*models.Identity, error) {
	rt, ok, err := r.state.Get(ctx, sessionstate.KeyRefreshToken)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if !ok || rt == "" {
		return nil, nil
	}

	creds, err := r.api.Refresh(ctx, rt)
	switch {
	case err == nil:
		if err := r.adopt(ctx, creds); err != nil {
			return nil, err
		}
		return cloneIdentity(&creds.Identity), nil

	case errors.Is(err, client.ErrUnauthorized):
		r.log.Info(ctx, "stored session rejected, clearing")
		if err := r.state.Clear(ctx); err != nil {
			return nil, fmt.Errorf("clear session: %w", err)
		}
		return nil, nil

	case errors.Is(err, client.ErrTransport):
		cached, cerr := r.cachedIdentity(ctx)
		if cerr != nil || cached == nil {
			return nil, err
		}
		r.mu.Lock()
		r.identity = cached
		r.refreshToken = rt
		r.mu.Unlock()
		r.log.Warn(ctx, "server unreachable, resuming cached session", "user_id", cached.UserID)
		return cloneIdentity(cached), nil
	}
	return nil, fmt.Errorf("restore session: %w", err)
}

func (r *RemoteIdentity) cachedIdentity(ctx context.Context) (*models.Identity, error) {
	raw, ok, err := r.state.Get(ctx, sessionstate.KeyIdentity)
	if err != nil || !ok {
		return nil, err
	}
	var id models.Identity
	if err := json.Unmarshal([]byte(raw), &id); err != nil {
		return nil, fmt.Errorf("decode cached identity: %w", err)
	}
	return &id, nil
}

func (r *RemoteIdentity) SignUp(ctx context.Context, email, password string) (*models.Identity, error) {
	creds, err := r.api.SignUp(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if err := r.adopt(ctx, creds); err != nil {
		return nil, err
	}
	return cloneIdentity(&creds.Identity), nil
}

func (r *RemoteIdentity) SignIn(ctx context.Context, email, password string) (*models.Identity, error) {
	creds, err := r.api.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if err := r.adopt(ctx, creds); err != nil {
		return nil, err
	}
	return cloneIdentity(&creds.Identity), nil
}

// SignOut revokes the refresh token and forgets the session locally. A
// refresh token the server no longer knows counts as signed out.
func (r *RemoteIdentity) SignOut(ctx context.Context) error {
	r.mu.Lock()
	rt, tok := r.refreshToken, r.idToken
	r.mu.Unlock()

	if rt != "" {
		err := r.api.SignOut(ctx, rt, client.TokenSourceFunc(func(context.Context) (string, error) { return tok, nil }))
		if err != nil && !errors.Is(err, client.ErrUnauthorized) {
			return fmt.Errorf("sign out: %w", err)
		}
	}

	r.mu.Lock()
	r.identity, r.idToken, r.refreshToken, r.expiresAt = nil, "", "", time.Time{}
	r.mu.Unlock()

	if err := r.state.Clear(ctx); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// Token returns the access token, refreshing it first when it is missing or
// about to expire. Concurrent callers share one refresh. When the refresh
// token is rejected the error matches common.ErrRefreshTokenExpired.
func (r *RemoteIdentity) Token(ctx context.Context) (string, error) {
	r.mu.Lock()
	if r.identity == nil {
		r.mu.Unlock()
		return "", nil
	}
	if r.idToken != "" && r.fresh() {
		tok := r.idToken
		r.mu.Unlock()
		return tok, nil
	}
	rt := r.refreshToken
	r.mu.Unlock()

	v, err, _ := r.refresh.Do(rt, func() (any, error) {
		creds, err := r.api.Refresh(ctx, rt)
		if err != nil {
			if errors.Is(err, client.ErrUnauthorized) {
				r.forget(ctx)
				return "", fmt.Errorf("%w: %w", common.ErrRefreshTokenExpired, err)
			}
			return "", fmt.Errorf("refresh token: %w", err)
		}
		if err := r.adopt(ctx, creds); err != nil {
			return "", err
		}
		r.log.Debug(ctx, "access token refreshed")
		return creds.IDToken, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// fresh must be called with r.mu held.
func (r *RemoteIdentity) fresh() bool {
	if r.expiresAt.IsZero() {
		return true
	}
	skew := r.RefreshSkew
	if skew == 0 {
		skew = DefaultRefreshSkew
	}
	return r.now().Add(skew).Before(r.expiresAt)
}

func (r *RemoteIdentity) UpdateProfile(ctx context.Context, u models.ProfileUpdate) (*models.Identity, error) {
	id, err := r.api.UpdateAccount(ctx, u, client.TokenSourceFunc(r.Token))
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	if r.identity != nil {
		r.identity = cloneIdentity(id)
	}
	r.mu.Unlock()

	if raw, err := json.Marshal(id); err == nil {
		if err := r.state.Put(ctx, sessionstate.KeyIdentity, string(raw)); err != nil {
			r.log.Warn(ctx, "cache identity failed", "error", err)
		}
	}
	return cloneIdentity(id), nil
}

func (r *RemoteIdentity) ResetPassword(ctx context.Context, email string) error {
	return r.api.ResetPassword(ctx, email)
}

// adopt makes creds the current session and persists it.
func (r *RemoteIdentity) adopt(ctx context.Context, creds *models.Credentials) error {
	if creds == nil || creds.IDToken == "" {
		return fmt.Errorf("adopt session: %w", common.ErrInvalidToken)
	}

	exp, sub := tokenClaims(creds.IDToken)
	id := creds.Identity
	if id.UserID == "" {
		id.UserID = sub
	}

	raw, err := json.Marshal(id)
	if err != nil {
		return fmt.Errorf("encode identity: %w", err)
	}
	if err := r.state.PutMany(ctx, map[string]string{
		sessionstate.KeyRefreshToken: creds.RefreshToken,
		sessionstate.KeyIdentity:     string(raw),
	}); err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	r.mu.Lock()
	r.identity = &id
	r.idToken = creds.IDToken
	r.refreshToken = creds.RefreshToken
	r.expiresAt = exp
	r.mu.Unlock()
	return nil
}

func (r *RemoteIdentity) forget(ctx context.Context) {
	r.mu.Lock()
	r.identity, r.idToken, r.refreshToken, r.expiresAt = nil, "", "", time.Time{}
	r.mu.Unlock()
	if err := r.state.Clear(ctx); err != nil {
		r.log.Warn(ctx, "clear session failed", "error", err)
	}
}

// tokenClaims reads exp and sub without verifying the signature; the server
// is the one that checks it. Tokens that are not JWTs never expire locally.
func tokenClaims(token string) (time.Time, string) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, ""
	}
	var exp time.Time
	if claims.ExpiresAt != nil {
		exp = claims.ExpiresAt.Time
	}
	return exp, claims.Subject
}
