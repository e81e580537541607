package services

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/dispersed/internal/client/client"
	"github.com/dmitrijs2005/dispersed/internal/client/models"
)

// stubCampsites is a CampsiteAPI whose behaviour is set per test. Unset
// functions panic so unexpected calls are loud.
type stubCampsites struct {
	mu    sync.Mutex
	calls map[string]int

	list   func(ctx context.Context) ([]models.Campsite, error)
	get    func(ctx context.Context, id string) (*models.Campsite, error)
	create func(ctx context.Context, in models.CampsiteInput) (*models.Campsite, error)
	update func(ctx context.Context, id string, p models.CampsitePatch) (*models.Campsite, error)
	delete func(ctx context.Context, id string) error
}

func (s *stubCampsites) hit(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.calls == nil {
		s.calls = make(map[string]int)
	}
	s.calls[name]++
}

func (s *stubCampsites) total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		n += c
	}
	return n
}

func (s *stubCampsites) ListCampsites(ctx context.Context, _ client.TokenSource) ([]models.Campsite, error) {
	s.hit("list")
	return s.list(ctx)
}

func (s *stubCampsites) GetCampsite(ctx context.Context, id string, _ client.TokenSource) (*models.Campsite, error) {
	s.hit("get")
	return s.get(ctx, id)
}

func (s *stubCampsites) CreateCampsite(ctx context.Context, in models.CampsiteInput, _ client.TokenSource) (*models.Campsite, error) {
	s.hit("create")
	return s.create(ctx, in)
}

func (s *stubCampsites) UpdateCampsite(ctx context.Context, id string, p models.CampsitePatch, _ client.TokenSource) (*models.Campsite, error) {
	s.hit("update")
	return s.update(ctx, id, p)
}

func (s *stubCampsites) DeleteCampsite(ctx context.Context, id string, _ client.TokenSource) error {
	s.hit("delete")
	return s.delete(ctx, id)
}

// fixedUser is a UserSource that can be switched mid-test.
type fixedUser struct {
	mu  sync.Mutex
	uid string
}

func (u *fixedUser) UserID() string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.uid
}

func (u *fixedUser) set(uid string) {
	u.mu.Lock()
	u.uid = uid
	u.mu.Unlock()
}

func staticList(sites ...models.Campsite) func(context.Context) ([]models.Campsite, error) {
	return func(context.Context) ([]models.Campsite, error) {
		out := make([]models.Campsite, len(sites))
		copy(out, sites)
		return out, nil
	}
}

func site(id, owner string) models.Campsite {
	return models.Campsite{ID: id, OwnerID: owner, Title: id, Visibility: models.VisibilityPublic, Photos: []models.Photo{}}
}

func ptr[T any](v T) *T { return &v }
