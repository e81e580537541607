package services

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/dmitrijs2005/dispersed/internal/client/client"
	"github.com/dmitrijs2005/dispersed/internal/client/models"
	"github.com/dmitrijs2005/dispersed/internal/logging"
)

// ErrStoreClosed is returned by operations started after Close.
var ErrStoreClosed = errors.New("campsite store closed")

var errEmptyResponse = errors.New("empty response from server")

// UserSource reports the signed-in user id without blocking; "" means
// anonymous. *Session implements it.
type UserSource interface {
	UserID() string
}

// StoreSnapshot is a consistent copy of the store state.
type StoreSnapshot struct {
	All     []models.Campsite
	Mine    []models.Campsite
	Loading bool
	Err     error
}

// CampsiteStore caches the campsites visible to the caller and keeps the
// "mine" view derived from it. Every change to all recomputes mine under the
// same lock, so readers never see the two views disagree.
//
// List fetches are fenced: each FetchAll takes a sequence number and its
// result is applied only if it is still the latest fetch issued and it was
// issued after every successful mutation had started. A mutation moves the
// fence floor to the sequence current when it began, so fetches issued while
// it was running still apply. Loading is true while any operation is in
// flight.
type CampsiteStore struct {
	api    CampsiteAPI
	tokens client.TokenSource
	users  UserSource
	log    logging.Logger

	mu       sync.Mutex
	all      []models.Campsite
	mine     []models.Campsite
	inFlight int
	err      error
	seq      uint64
	floor    uint64
	closed   bool

	subs    map[int]func(StoreSnapshot)
	nextSub int
}

func NewCampsiteStore(api CampsiteAPI, tokens client.TokenSource, users UserSource, log logging.Logger) *CampsiteStore {
	return &CampsiteStore{
		api:    api,
		tokens: tokens,
		users:  users,
		log:    logging.OrNop(log).With("component", "campsites"),
		all:    []models.Campsite{},
		mine:   []models.Campsite{},
		subs:   make(map[int]func(StoreSnapshot)),
	}
}

// FetchAll replaces the cached list with what the server returns. The list
// is returned to the caller even when a newer fetch makes it stale; only the
// cache ignores it. On failure the previous data is kept.
func (s *CampsiteStore) FetchAll(ctx context.Context) ([]models.Campsite, error) {
	seq, err := s.begin(true)
	if err != nil {
		return nil, err
	}

	sites, err := s.api.ListCampsites(ctx, s.tokens)

	current := func() bool { return seq == s.seq && seq > s.floor }
	s.commit(ctx, err, func() {
		if !current() {
			s.log.Warn(ctx, "discarding stale campsite list", "seq", seq, "latest", s.seq, "floor", s.floor)
			return
		}
		s.all = slices.Clone(sites)
		if s.all == nil {
			s.all = []models.Campsite{}
		}
		s.derive()
	}, current)

	if err != nil {
		return nil, err
	}
	return sites, nil
}

// Create validates in, posts it and appends the server's record. Nothing is
// inserted locally until the server has answered.
func (s *CampsiteStore) Create(ctx context.Context, in models.CampsiteInput) (*models.Campsite, error) {
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		s.reject(err)
		return nil, err
	}
	start, err := s.begin(false)
	if err != nil {
		return nil, err
	}
	uid := s.userID()

	site, err := s.api.CreateCampsite(ctx, in, s.tokens)
	if err == nil && site == nil {
		err = errEmptyResponse
	}

	s.commit(ctx, err, func() {
		s.fence(start)
		if s.userID() != uid {
			s.log.Debug(ctx, "user changed during create, list left to the next fetch", "id", site.ID)
			return
		}
		s.upsert(*site)
	}, nil)

	if err != nil {
		return nil, err
	}
	return site, nil
}

// Update sends patch and swaps the returned record in by id. A record the
// store does not hold is not inserted; the server's record is still
// returned and a warning is logged.
func (s *CampsiteStore) Update(ctx context.Context, id string, patch models.CampsitePatch) (*models.Campsite, error) {
	patch = patch.Normalize()
	if err := patch.Validate(); err != nil {
		s.reject(err)
		return nil, err
	}
	start, err := s.begin(false)
	if err != nil {
		return nil, err
	}
	uid := s.userID()

	site, err := s.api.UpdateCampsite(ctx, id, patch, s.tokens)
	if err == nil && site == nil {
		err = errEmptyResponse
	}

	s.commit(ctx, err, func() {
		s.fence(start)
		if s.userID() != uid {
			s.log.Debug(ctx, "user changed during update, list left to the next fetch", "id", id)
			return
		}
		i := s.index(id)
		if i < 0 {
			s.log.Warn(ctx, "updated campsite is not in the local list", "id", id)
			return
		}
		s.all[i] = *site
		s.derive()
	}, nil)

	if err != nil {
		return nil, err
	}
	return site, nil
}

// Delete removes the campsite on the server and then from both views.
func (s *CampsiteStore) Delete(ctx context.Context, id string) error {
	start, err := s.begin(false)
	if err != nil {
		return err
	}

	err = s.api.DeleteCampsite(ctx, id, s.tokens)

	s.commit(ctx, err, func() {
		s.fence(start)
		s.remove(id)
	}, nil)
	return err
}

// Refresh re-reads one campsite and upserts it. A campsite the server no
// longer has is dropped from the views.
func (s *CampsiteStore) Refresh(ctx context.Context, id string) (*models.Campsite, error) {
	if _, err := s.begin(false); err != nil {
		return nil, err
	}

	site, err := s.api.GetCampsite(ctx, id, s.tokens)
	if err == nil && site == nil {
		err = errEmptyResponse
	}

	s.commit(ctx, err, func() {
		s.upsert(*site)
	}, nil)

	if errors.Is(err, client.ErrNotFound) {
		s.mu.Lock()
		if !s.closed {
			s.remove(id)
		}
		s.mu.Unlock()
		s.publish()
	}
	if err != nil {
		return nil, err
	}
	return site, nil
}

// Rederive recomputes mine for the current user without a network call.
func (s *CampsiteStore) Rederive() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.derive()
	s.mu.Unlock()
	s.publish()
}

func (s *CampsiteStore) userID() string {
	if s.users == nil {
		return ""
	}
	return s.users.UserID()
}

// begin marks an operation in flight and clears the error. Fetches get a new
// sequence number; other operations get the current one.
func (s *CampsiteStore) begin(fetch bool) (uint64, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return 0, ErrStoreClosed
	}
	s.inFlight++
	s.err = nil
	if fetch {
		s.seq++
	}
	seq := s.seq
	s.mu.Unlock()

	s.publish()
	return seq, nil
}

// commit ends an operation. apply runs on success; on failure the error is
// recorded unless current reports the result as stale. Nothing is applied
// after Close.
func (s *CampsiteStore) commit(ctx context.Context, err error, apply func(), current func() bool) {
	s.mu.Lock()
	s.inFlight--
	if s.closed {
		s.mu.Unlock()
		s.log.Debug(ctx, "store closed, result dropped")
		return
	}
	switch {
	case err == nil:
		apply()
	case current == nil || current():
		s.err = err
	default:
		s.log.Debug(ctx, "stale failure ignored", "error", err)
	}
	s.mu.Unlock()

	s.publish()
}

// reject records a validation failure that never reached the network.
func (s *CampsiteStore) reject(err error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.err = err
	s.mu.Unlock()
	s.publish()
}

// The helpers below must be called with s.mu held.

// fence discards fetches issued at or before start, the sequence a
// successful mutation began under.
func (s *CampsiteStore) fence(start uint64) {
	s.floor = max(s.floor, start)
}

func (s *CampsiteStore) index(id string) int {
	return slices.IndexFunc(s.all, func(c models.Campsite) bool { return c.ID == id })
}

func (s *CampsiteStore) upsert(site models.Campsite) {
	if i := s.index(site.ID); i >= 0 {
		s.all[i] = site
	} else {
		s.all = append(s.all, site)
	}
	s.derive()
}

func (s *CampsiteStore) remove(id string) {
	s.all = slices.DeleteFunc(s.all, func(c models.Campsite) bool { return c.ID == id })
	s.derive()
}

func (s *CampsiteStore) derive() {
	uid := s.userID()
	mine := make([]models.Campsite, 0)
	if uid != "" {
		for _, c := range s.all {
			if c.OwnerID == uid {
				mine = append(mine, c)
			}
		}
	}
	s.mine = mine
}

// All returns a copy of every visible campsite.
func (s *CampsiteStore) All() []models.Campsite {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.all)
}

// Mine returns a copy of the campsites owned by the signed-in user.
func (s *CampsiteStore) Mine() []models.Campsite {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.mine)
}

// Find returns the cached campsite with id.
func (s *CampsiteStore) Find(id string) (models.Campsite, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.index(id); i >= 0 {
		return s.all[i], true
	}
	return models.Campsite{}, false
}

func (s *CampsiteStore) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight > 0
}

// Err is the error left by the most recent failed operation.
func (s *CampsiteStore) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// ClearError dismisses the recorded error.
func (s *CampsiteStore) ClearError() {
	s.mu.Lock()
	s.err = nil
	s.mu.Unlock()
	s.publish()
}

func (s *CampsiteStore) Snapshot() StoreSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

func (s *CampsiteStore) snapshot() StoreSnapshot {
	return StoreSnapshot{
		All:     slices.Clone(s.all),
		Mine:    slices.Clone(s.mine),
		Loading: s.inFlight > 0,
		Err:     s.err,
	}
}

// Subscribe registers fn to receive a snapshot after every state change.
func (s *CampsiteStore) Subscribe(fn func(StoreSnapshot)) (unsubscribe func()) {
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

func (s *CampsiteStore) publish() {
	s.mu.Lock()
	if len(s.subs) == 0 {
		s.mu.Unlock()
		return
	}
	snap := s.snapshot()
	fns := make([]func(StoreSnapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

// Close detaches the store. Operations still in flight finish but their
// results are not applied, and new operations fail with ErrStoreClosed.
func (s *CampsiteStore) Close() {
	s.mu.Lock()
	s.closed = true
	clear(s.subs)
	s.mu.Unlock()
}
