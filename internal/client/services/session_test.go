package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/dmitrijs2005/dispersed/internal/client/client"
	"github.com/dmitrijs2005/dispersed/internal/client/models"
	"github.com/dmitrijs2005/dispersed/internal/client/services/mocks"
	"github.com/dmitrijs2005/dispersed/internal/common"
	"github.com/dmitrijs2005/dispersed/internal/validate"
)

var alice = &models.Identity{UserID: "u-alice", Email: "alice@example.com", DisplayName: "Alice"}

func newMockSession(t *testing.T, restored *models.Identity) (*Session, *mocks.MockIdentityProvider, *mocks.MockProfileAPI) {
	t.Helper()
	ctrl := gomock.NewController(t)
	idp := mocks.NewMockIdentityProvider(ctrl)
	profiles := mocks.NewMockProfileAPI(ctrl)

	idp.EXPECT().Restore(gomock.Any()).Return(restored, nil)

	s := NewSession(idp, profiles, nil)
	s.Init(context.Background())
	require.NoError(t, s.Wait(context.Background()))
	return s, idp, profiles
}

func TestSession_WithholdsStateUntilResolved(t *testing.T) {
	ctrl := gomock.NewController(t)
	idp := mocks.NewMockIdentityProvider(ctrl)
	release := make(chan struct{})
	idp.EXPECT().Restore(gomock.Any()).DoAndReturn(func(context.Context) (*models.Identity, error) {
		<-release
		return alice, nil
	})

	s := NewSession(idp, nil, nil)
	s.Init(context.Background())
	s.Init(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := s.Status(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	_, err = s.GetToken(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, "", s.UserID())

	close(release)
	<-s.Ready()

	st, err := s.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.StatusAuthenticated, st)
	id, err := s.Identity(context.Background())
	require.NoError(t, err)
	assert.Equal(t, alice, id)
}

func TestSession_RestoreFailureIsAnonymous(t *testing.T) {
	ctrl := gomock.NewController(t)
	idp := mocks.NewMockIdentityProvider(ctrl)
	boom := errors.New("disk gone")
	idp.EXPECT().Restore(gomock.Any()).Return(nil, boom)

	s := NewSession(idp, nil, nil)
	s.Init(context.Background())

	st, err := s.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.StatusAnonymous, st)
	assert.ErrorIs(t, s.LastError(), boom)
}

func TestSession_SignUpShortPasswordNeverCallsProvider(t *testing.T) {
	s, _, _ := newMockSession(t, nil)

	_, err := s.SignUp(context.Background(), "a@example.com", "short1")
	require.Error(t, err)
	assert.Equal(t, "Password must be at least 8 characters", err.Error())
	assert.ErrorIs(t, err, validate.ErrValidation)
	assert.Equal(t, err, s.LastError())

	st, _ := s.Status(context.Background())
	assert.Equal(t, models.StatusAnonymous, st)
}

func TestSession_SignUpCreatesMissingProfile(t *testing.T) {
	s, idp, profiles := newMockSession(t, nil)
	ctx := context.Background()

	idp.EXPECT().SignUp(gomock.Any(), "alice@example.com", "password123").Return(alice, nil)
	idp.EXPECT().Token(gomock.Any()).Return("tok", nil).AnyTimes()
	gomock.InOrder(
		profiles.EXPECT().GetProfile(gomock.Any(), alice.UserID, gomock.Any()).
			Return(nil, &client.RequestError{Message: "Profile not found", Status: http.StatusNotFound}),
		profiles.EXPECT().CreateProfile(gomock.Any(), models.Profile{UserID: alice.UserID, Email: "alice@example.com"}, gomock.Any()).
			Return(&models.Profile{UserID: alice.UserID}, nil),
	)

	id, err := s.SignUp(ctx, "alice@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, alice.UserID, id.UserID)
	assert.Equal(t, alice.UserID, s.UserID())
}

func TestSession_SignUpKeepsExistingProfile(t *testing.T) {
	s, idp, profiles := newMockSession(t, nil)

	idp.EXPECT().SignUp(gomock.Any(), gomock.Any(), gomock.Any()).Return(alice, nil)
	profiles.EXPECT().GetProfile(gomock.Any(), alice.UserID, gomock.Any()).Return(&models.Profile{UserID: alice.UserID, Bio: "hi"}, nil)
	// no CreateProfile expectation: calling it fails the test

	_, err := s.SignUp(context.Background(), "alice@example.com", "password123")
	require.NoError(t, err)
}

func TestSession_SignUpProfileFailureKeepsSession(t *testing.T) {
	s, idp, profiles := newMockSession(t, nil)

	idp.EXPECT().SignUp(gomock.Any(), gomock.Any(), gomock.Any()).Return(alice, nil)
	profiles.EXPECT().GetProfile(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, &client.RequestError{Message: client.MessageNetworkError})

	id, err := s.SignUp(context.Background(), "alice@example.com", "password123")
	require.Error(t, err)
	assert.NotNil(t, id)
	assert.Equal(t, alice.UserID, s.UserID())
}

func TestSession_SignInClassification(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		kind      SignInErrorKind
		retryable bool
	}{
		{
			name: "bad password",
			err:  &client.RequestError{Status: http.StatusUnauthorized, Body: json.RawMessage(`{"error":"x","code":"invalid_credentials"}`)},
			kind: SignInInvalidCredentials,
		},
		{
			name: "unknown user by status",
			err:  &client.RequestError{Status: http.StatusBadRequest},
			kind: SignInInvalidCredentials,
		},
		{
			name:      "too many attempts",
			err:       &client.RequestError{Status: http.StatusTooManyRequests},
			kind:      SignInRateLimited,
			retryable: true,
		},
		{
			name:      "code beats status",
			err:       &client.RequestError{Status: http.StatusBadRequest, Body: json.RawMessage(`{"code":"rate_limited"}`)},
			kind:      SignInRateLimited,
			retryable: true,
		},
		{
			name:      "server down",
			err:       &client.RequestError{Message: client.MessageNetworkError},
			kind:      SignInUnknown,
			retryable: true,
		},
		{
			name:      "not a request error",
			err:       errors.New("weird"),
			kind:      SignInUnknown,
			retryable: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, idp, _ := newMockSession(t, nil)
			idp.EXPECT().SignIn(gomock.Any(), "alice@example.com", "password123").Return(nil, tt.err)

			_, err := s.SignIn(context.Background(), "alice@example.com", "password123")
			var sie *SignInError
			require.True(t, errors.As(err, &sie))
			assert.Equal(t, tt.kind, sie.Kind)
			assert.Equal(t, tt.retryable, sie.Retryable())
			assert.ErrorIs(t, err, tt.err)

			st, _ := s.Status(context.Background())
			assert.Equal(t, models.StatusAnonymous, st)
		})
	}
}

func TestSession_SignInNotifiesSubscribers(t *testing.T) {
	s, idp, _ := newMockSession(t, nil)
	idp.EXPECT().SignIn(gomock.Any(), gomock.Any(), gomock.Any()).Return(alice, nil)

	var mu sync.Mutex
	var seen []*models.Identity
	unsub := s.Subscribe(func(id *models.Identity) {
		mu.Lock()
		seen = append(seen, id)
		mu.Unlock()
	})

	_, err := s.SignIn(context.Background(), "alice@example.com", "password123")
	require.NoError(t, err)

	unsub()
	unsub()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 1)
	assert.Equal(t, alice.UserID, seen[0].UserID)
}

func TestSession_NotificationsKeepOrder(t *testing.T) {
	ctrl := gomock.NewController(t)
	idp := mocks.NewMockIdentityProvider(ctrl)
	idp.EXPECT().Restore(gomock.Any()).Return(nil, nil)
	signedIn := make(chan struct{})
	idp.EXPECT().SignIn(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(context.Context, string, string) (*models.Identity, error) {
			close(signedIn)
			return alice, nil
		})

	s := NewSession(idp, nil, nil)
	gate := make(chan struct{})
	var mu sync.Mutex
	var seen []string
	s.Subscribe(func(id *models.Identity) {
		uid := ""
		if id != nil {
			uid = id.UserID
		} else {
			<-gate
		}
		mu.Lock()
		seen = append(seen, uid)
		mu.Unlock()
	})

	s.Init(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := s.SignIn(context.Background(), "alice@example.com", "password123")
		done <- err
	}()

	<-signedIn
	time.Sleep(20 * time.Millisecond)
	close(gate)
	require.NoError(t, <-done)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, seen)
	assert.Equal(t, alice.UserID, seen[len(seen)-1], "latest identity must be delivered last")
	if len(seen) == 2 {
		assert.Equal(t, []string{"", alice.UserID}, seen)
	}
}

func TestSession_LogoutWaitsForProvider(t *testing.T) {
	s, idp, _ := newMockSession(t, alice)
	ctx := context.Background()

	idp.EXPECT().SignOut(gomock.Any()).Return(errors.New("offline"))
	require.Error(t, s.Logout(ctx))
	st, _ := s.Status(ctx)
	assert.Equal(t, models.StatusAuthenticated, st)

	idp.EXPECT().SignOut(gomock.Any()).Return(nil)
	require.NoError(t, s.Logout(ctx))
	st, _ = s.Status(ctx)
	assert.Equal(t, models.StatusAnonymous, st)
	assert.NoError(t, s.LastError())
}

func TestSession_GetToken(t *testing.T) {
	t.Run("anonymous returns empty without asking the provider", func(t *testing.T) {
		s, _, _ := newMockSession(t, nil)
		tok, err := s.GetToken(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "", tok)
	})

	t.Run("authenticated asks the provider", func(t *testing.T) {
		s, idp, _ := newMockSession(t, alice)
		idp.EXPECT().Token(gomock.Any()).Return("tok", nil)
		tok, err := s.GetToken(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "tok", tok)
	})

	t.Run("expired refresh ends the session", func(t *testing.T) {
		s, idp, _ := newMockSession(t, alice)
		idp.EXPECT().Token(gomock.Any()).Return("", common.ErrRefreshTokenExpired)

		notified := make(chan *models.Identity, 1)
		s.Subscribe(func(id *models.Identity) { notified <- id })

		tok, err := s.GetToken(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "", tok)
		assert.Nil(t, <-notified)
		assert.ErrorIs(t, s.LastError(), common.ErrRefreshTokenExpired)
	})

	t.Run("provider failure is returned", func(t *testing.T) {
		s, idp, _ := newMockSession(t, alice)
		boom := errors.New("boom")
		idp.EXPECT().Token(gomock.Any()).Return("", boom)
		_, err := s.GetToken(context.Background())
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, alice.UserID, s.UserID())
	})
}

func TestSession_UpdateProfile(t *testing.T) {
	t.Run("anonymous", func(t *testing.T) {
		s, _, _ := newMockSession(t, nil)
		_, err := s.UpdateProfile(context.Background(), models.ProfileUpdate{})
		assert.ErrorIs(t, err, ErrNoSession)
		assert.Equal(t, "No user logged in", err.Error())
	})

	t.Run("authenticated", func(t *testing.T) {
		s, idp, _ := newMockSession(t, alice)
		name := "Al"
		updated := *alice
		updated.DisplayName = name
		idp.EXPECT().UpdateProfile(gomock.Any(), models.ProfileUpdate{DisplayName: &name}).Return(&updated, nil)

		id, err := s.UpdateProfile(context.Background(), models.ProfileUpdate{DisplayName: &name})
		require.NoError(t, err)
		assert.Equal(t, "Al", id.DisplayName)
		got, _ := s.Identity(context.Background())
		assert.Equal(t, "Al", got.DisplayName)
	})
}

func TestSession_ResetPassword(t *testing.T) {
	s, idp, _ := newMockSession(t, nil)

	assert.ErrorIs(t, s.ResetPassword(context.Background(), "not-an-email"), validate.ErrValidation)

	idp.EXPECT().ResetPassword(gomock.Any(), "alice@example.com").Return(nil)
	assert.NoError(t, s.ResetPassword(context.Background(), "alice@example.com"))
}
