package services

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/dmitrijs2005/dispersed/internal/client/client"
	"github.com/dmitrijs2005/dispersed/internal/client/models"
	"github.com/dmitrijs2005/dispersed/internal/logging"
	"github.com/dmitrijs2005/dispersed/internal/validate"
)

// DefaultFlagReason is sent when the user gives no reason.
const DefaultFlagReason = "Inappropriate content"

// ReviewService writes reviews. Reads go through ReviewFeed.
type ReviewService struct {
	api       ReviewAPI
	tokens    client.TokenSource
	refresher CampsiteRefresher
	log       logging.Logger
}

// NewReviewService builds the service. refresher may be nil; when set, the
// campsite is re-read after each change so its rating aggregates follow.
func NewReviewService(api ReviewAPI, tokens client.TokenSource, refresher CampsiteRefresher, log logging.Logger) *ReviewService {
	return &ReviewService{api: api, tokens: tokens, refresher: refresher, log: logging.OrNop(log).With("component", "reviews")}
}

// Create posts a review. With a session the review carries the author;
// without one it is an anonymous rating and any comment is dropped.
func (r *ReviewService) Create(ctx context.Context, campsiteID string, in models.ReviewInput) (*models.Review, error) {
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var tokens client.TokenSource
	if r.tokens != nil {
		tok, err := r.tokens.GetToken(ctx)
		if err != nil {
			return nil, err
		}
		if tok != "" {
			tokens = staticToken(tok)
		}
	}
	if tokens == nil && in.Comment != "" {
		r.log.Debug(ctx, "anonymous review, comment dropped", "campsite_id", campsiteID)
		in.Comment = ""
	}

	rev, err := r.api.CreateReview(ctx, campsiteID, in, tokens)
	if err != nil {
		return nil, err
	}
	r.refresh(ctx, campsiteID)
	return rev, nil
}

func (r *ReviewService) Update(ctx context.Context, campsiteID, reviewID string, in models.ReviewInput) (*models.Review, error) {
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}
	rev, err := r.api.UpdateReview(ctx, campsiteID, reviewID, in, r.tokens)
	if err != nil {
		return nil, err
	}
	r.refresh(ctx, campsiteID)
	return rev, nil
}

func (r *ReviewService) Delete(ctx context.Context, campsiteID, reviewID string) error {
	if err := r.api.DeleteReview(ctx, campsiteID, reviewID, r.tokens); err != nil {
		return err
	}
	r.refresh(ctx, campsiteID)
	return nil
}

// Flag reports a review for moderation.
func (r *ReviewService) Flag(ctx context.Context, campsiteID, reviewID, reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = DefaultFlagReason
	}
	return r.api.FlagReview(ctx, campsiteID, reviewID, reason, r.tokens)
}

func (r *ReviewService) refresh(ctx context.Context, id string) {
	if r.refresher == nil {
		return
	}
	if _, err := r.refresher.Refresh(ctx, id); err != nil {
		r.log.Warn(ctx, "refresh after review change failed", "campsite_id", id, "error", err)
	}
}

type staticToken string

func (t staticToken) GetToken(context.Context) (string, error) { return string(t), nil }

// ReviewFeed pages through one campsite's reviews. Changing the sort starts
// over from the first page; pages that arrive after a reset are dropped.
type ReviewFeed struct {
	api        ReviewAPI
	campsiteID string
	limit      int
	log        logging.Logger

	mu          sync.Mutex
	sort        models.ReviewSort
	reviews     []models.Review
	lastDoc     *string
	hasMore     bool
	err         error
	gen         uint64
	loading     int
	moreRunning bool
}

func NewReviewFeed(api ReviewAPI, campsiteID string, log logging.Logger) *ReviewFeed {
	return &ReviewFeed{
		api:        api,
		campsiteID: campsiteID,
		limit:      models.DefaultReviewPageSize,
		sort:       models.SortNewest,
		reviews:    []models.Review{},
		log:        logging.OrNop(log).With("component", "review_feed", "campsite_id", campsiteID),
	}
}

func (f *ReviewFeed) CampsiteID() string { return f.campsiteID }

// SetLimit changes the page size used by later loads.
func (f *ReviewFeed) SetLimit(n int) {
	if n <= 0 {
		return
	}
	f.mu.Lock()
	f.limit = n
	f.mu.Unlock()
}

// Load fetches the first page for the current sort and replaces the list.
func (f *ReviewFeed) Load(ctx context.Context) error {
	f.mu.Lock()
	f.gen++
	gen := f.gen
	f.lastDoc = nil
	f.loading++
	f.err = nil
	q := models.ReviewQuery{Sort: f.sort, Limit: f.limit}
	f.mu.Unlock()

	page, err := f.api.ListReviews(ctx, f.campsiteID, q)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.loading--
	if gen != f.gen {
		f.log.Debug(ctx, "dropping stale first page", "sort", q.Sort)
		return err
	}
	if err != nil {
		f.err = err
		return err
	}
	f.reviews = slices.Clone(page.Reviews)
	if f.reviews == nil {
		f.reviews = []models.Review{}
	}
	f.lastDoc = page.LastDoc
	f.hasMore = page.HasMore
	return nil
}

// LoadMore appends the next page. It does nothing when there is no next
// page or another LoadMore is already running.
func (f *ReviewFeed) LoadMore(ctx context.Context) error {
	f.mu.Lock()
	if !f.hasMore || f.lastDoc == nil || f.moreRunning {
		f.mu.Unlock()
		return nil
	}
	f.moreRunning = true
	f.loading++
	f.err = nil
	gen := f.gen
	q := models.ReviewQuery{Sort: f.sort, Limit: f.limit, StartAfter: *f.lastDoc}
	f.mu.Unlock()

	page, err := f.api.ListReviews(ctx, f.campsiteID, q)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.loading--
	f.moreRunning = false
	if gen != f.gen {
		f.log.Debug(ctx, "dropping stale page", "start_after", q.StartAfter)
		return err
	}
	if err != nil {
		f.err = err
		return err
	}
	f.reviews = append(f.reviews, page.Reviews...)
	f.lastDoc = page.LastDoc
	f.hasMore = page.HasMore
	return nil
}

// SetSort switches the order, resets the cursor and reloads from the first
// page. The new list replaces the old one.
func (f *ReviewFeed) SetSort(ctx context.Context, sort models.ReviewSort) error {
	if !sort.Valid() {
		return validate.OneOf("sort", string(sort),
			string(models.SortNewest), string(models.SortHighest), string(models.SortLowest))
	}
	f.mu.Lock()
	f.sort = sort
	f.lastDoc = nil
	f.hasMore = false
	f.mu.Unlock()
	return f.Load(ctx)
}

func (f *ReviewFeed) Reviews() []models.Review {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.reviews)
}

func (f *ReviewFeed) HasMore() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hasMore
}

// LastDoc is the cursor for the next page, or nil before the first load and
// after a sort change.
func (f *ReviewFeed) LastDoc() *string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lastDoc == nil {
		return nil
	}
	c := *f.lastDoc
	return &c
}

func (f *ReviewFeed) Sort() models.ReviewSort {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sort
}

func (f *ReviewFeed) Loading() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loading > 0
}

func (f *ReviewFeed) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// Remove drops a review from the loaded list, e.g. after the user deleted it.
func (f *ReviewFeed) Remove(reviewID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reviews = slices.DeleteFunc(f.reviews, func(r models.Review) bool { return r.ID == reviewID })
}
