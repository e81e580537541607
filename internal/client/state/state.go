// Package state wires the client's services together and owns their
// lifetime.
package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/dispersed/internal/client/client"
	"github.com/dmitrijs2005/dispersed/internal/client/config"
	"github.com/dmitrijs2005/dispersed/internal/client/models"
	"github.com/dmitrijs2005/dispersed/internal/client/repositories/sessionstate"
	"github.com/dmitrijs2005/dispersed/internal/client/services"
	"github.com/dmitrijs2005/dispersed/internal/logging"
)

// State is the explicit dependency container handed to the presentation
// layer. Build it with New or Open, call Init once and Dispose when done.
type State struct {
	Gateway   *client.Gateway
	Identity  *services.RemoteIdentity
	Session   *services.Session
	Campsites *services.CampsiteStore
	Photos    *services.PhotoService
	Reviews   *services.ReviewService
	Lookup    *services.LookupService

	log logging.Logger
	db  *sql.DB

	mu       sync.Mutex
	cancel   context.CancelFunc
	unsub    func()
	wg       sync.WaitGroup
	disposed bool
}

// New builds a State over an existing gateway and session state repository.
func New(gw *client.Gateway, repo sessionstate.Repository, log logging.Logger) *State {
	log = logging.OrNop(log)

	idp := services.NewRemoteIdentity(gw, repo, log)
	sess := services.NewSession(idp, gw, log)
	store := services.NewCampsiteStore(gw, sess, sess, log)

	return &State{
		Gateway:   gw,
		Identity:  idp,
		Session:   sess,
		Campsites: store,
		Photos:    services.NewPhotoService(gw, sess, store, log),
		Reviews:   services.NewReviewService(gw, sess, store, log),
		Lookup:    services.NewLookupService(gw, log),
		log:       log.With("component", "state"),
	}
}

// Open opens the session database named in cfg and builds a State against
// cfg.APIBaseURL. Dispose closes the database. With config.InMemorySession
// no database is opened and the session is forgotten on exit.
func Open(ctx context.Context, cfg config.Config, log logging.Logger) (*State, error) {
	gw := client.New(cfg.APIBaseURL,
		client.WithConnectTimeout(cfg.ConnectTimeout),
		client.WithLogger(log),
	)
	if cfg.SessionDB == config.InMemorySession {
		return New(gw, sessionstate.NewMemoryRepository(), log), nil
	}

	db, err := client.InitDatabase(ctx, cfg.SessionDB)
	if err != nil {
		return nil, err
	}
	st := New(gw, sessionstate.NewSQLiteRepository(db), log)
	st.db = db
	return st, nil
}

// Init starts session resolution and ties the campsite store to it: every
// identity change, the first resolution included, re-derives "mine" at once
// and refetches the list in the background.
func (s *State) Init(ctx context.Context) {
	s.mu.Lock()
	if s.cancel != nil || s.disposed {
		s.mu.Unlock()
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.unsub = s.Session.Subscribe(func(id *models.Identity) {
		s.onIdentity(ctx, id)
	})
	s.mu.Unlock()

	s.Session.Init(ctx)
}

func (s *State) onIdentity(ctx context.Context, id *models.Identity) {
	s.Campsites.Rederive()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return
	}
	uid := ""
	if id != nil {
		uid = id.UserID
	}
	s.log.Debug(ctx, "identity changed, refetching campsites", "user_id", uid)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if _, err := s.Campsites.FetchAll(ctx); err != nil && !errors.Is(err, services.ErrStoreClosed) {
			s.log.Warn(ctx, "campsite refetch failed", "error", err)
		}
	}()
}

// NewReviewFeed starts a review pager for one campsite.
func (s *State) NewReviewFeed(campsiteID string) *services.ReviewFeed {
	return services.NewReviewFeed(s.Gateway, campsiteID, s.log)
}

// Dispose detaches the store from the session, waits for background
// fetches and closes the database if Open created it. It is safe to call
// more than once.
func (s *State) Dispose() error {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return nil
	}
	s.disposed = true
	if s.unsub != nil {
		s.unsub()
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	s.Campsites.Close()
	s.wg.Wait()

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			return fmt.Errorf("close session db: %w", err)
		}
	}
	return nil
}
