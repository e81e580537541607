package state

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/dispersed/internal/client/apitest"
	"github.com/dmitrijs2005/dispersed/internal/client/client"
	"github.com/dmitrijs2005/dispersed/internal/client/config"
	"github.com/dmitrijs2005/dispersed/internal/client/models"
	"github.com/dmitrijs2005/dispersed/internal/client/repositories/sessionstate"
	"github.com/dmitrijs2005/dispersed/internal/client/services"
)

const waitFor = 2 * time.Second

func newState(t *testing.T) (*apitest.Server, *State) {
	t.Helper()
	srv := apitest.NewServer()
	t.Cleanup(srv.Close)
	gw := client.New(srv.URL, client.WithHTTPClient(srv.Client()))
	st := New(gw, sessionstate.NewMemoryRepository(), nil)
	t.Cleanup(func() { _ = st.Dispose() })
	return srv, st
}

func TestState_FollowsIdentity(t *testing.T) {
	srv, st := newState(t)
	uid := srv.AddUser("alice@example.com", "password123", "Alice")
	srv.AddCampsite(models.Campsite{OwnerID: "other", Title: "Public", Visibility: models.VisibilityPublic})
	srv.AddCampsite(models.Campsite{OwnerID: uid, Title: "Secret", Visibility: models.VisibilityPrivate})
	ctx := context.Background()

	st.Init(ctx)
	require.Eventually(t, func() bool { return len(st.Campsites.All()) == 1 }, waitFor, 5*time.Millisecond)
	assert.Empty(t, st.Campsites.Mine())

	_, err := st.Session.SignIn(ctx, "alice@example.com", "password123")
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return len(st.Campsites.All()) == 2 && !st.Campsites.Loading()
	}, waitFor, 5*time.Millisecond)
	require.Len(t, st.Campsites.Mine(), 1)
	assert.Equal(t, "Secret", st.Campsites.Mine()[0].Title)

	require.NoError(t, st.Session.Logout(ctx))
	assert.Empty(t, st.Campsites.Mine(), "mine is re-derived before the refetch")
	require.Eventually(t, func() bool {
		return len(st.Campsites.All()) == 1 && !st.Campsites.Loading()
	}, waitFor, 5*time.Millisecond)
}

func TestState_DisposeDetaches(t *testing.T) {
	_, st := newState(t)
	ctx := context.Background()
	st.Init(ctx)
	require.NoError(t, st.Session.Wait(ctx))

	require.NoError(t, st.Dispose())
	require.NoError(t, st.Dispose())

	_, err := st.Campsites.FetchAll(ctx)
	assert.ErrorIs(t, err, services.ErrStoreClosed)

	st.Init(ctx)
}

func TestState_OpenRestoresAcrossRuns(t *testing.T) {
	srv := apitest.NewServer()
	t.Cleanup(srv.Close)
	uid := srv.AddUser("alice@example.com", "password123", "Alice")

	cfg := config.Defaults()
	cfg.APIBaseURL = srv.URL
	cfg.SessionDB = filepath.Join(t.TempDir(), "session.db")
	ctx := context.Background()

	first, err := Open(ctx, cfg, nil)
	require.NoError(t, err)
	first.Init(ctx)
	_, err = first.Session.SignIn(ctx, "alice@example.com", "password123")
	require.NoError(t, err)
	require.NoError(t, first.Dispose())

	second, err := Open(ctx, cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = second.Dispose() })
	second.Init(ctx)

	id, err := second.Session.Identity(ctx)
	require.NoError(t, err)
	require.NotNil(t, id)
	assert.Equal(t, uid, id.UserID)
}

func TestState_OpenInMemoryForgetsSession(t *testing.T) {
	srv := apitest.NewServer()
	t.Cleanup(srv.Close)
	srv.AddUser("alice@example.com", "password123", "Alice")

	cfg := config.Defaults()
	cfg.APIBaseURL = srv.URL
	cfg.SessionDB = config.InMemorySession
	ctx := context.Background()

	first, err := Open(ctx, cfg, nil)
	require.NoError(t, err)
	assert.Nil(t, first.db)
	first.Init(ctx)
	_, err = first.Session.SignIn(ctx, "alice@example.com", "password123")
	require.NoError(t, err)
	require.NoError(t, first.Dispose())

	second, err := Open(ctx, cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = second.Dispose() })
	second.Init(ctx)

	id, err := second.Session.Identity(ctx)
	require.NoError(t, err)
	assert.Nil(t, id)
}
