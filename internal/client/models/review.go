package models

import (
	"strings"
	"time"

	"github.com/dmitrijs2005/dispersed/internal/validate"
)

// ReviewSort orders a review listing.
type ReviewSort string

const (
	SortNewest  ReviewSort = "newest"
	SortHighest ReviewSort = "highest"
	SortLowest  ReviewSort = "lowest"
)

// DefaultReviewPageSize matches what the web client requested.
const DefaultReviewPageSize = 10

func (s ReviewSort) Valid() bool {
	switch s {
	case SortNewest, SortHighest, SortLowest:
		return true
	}
	return false
}

// Review is a rating with an optional comment. AuthorID is nil for
// anonymous ratings.
type Review struct {
	ID          string    `json:"id"`
	CampsiteID  string    `json:"campsiteId"`
	AuthorID    *string   `json:"userId"`
	DisplayName string    `json:"displayName,omitempty"`
	Rating      int       `json:"rating"`
	Comment     string    `json:"comment,omitempty"`
	FlagCount   int       `json:"flagCount"`
	CreatedAt   time.Time `json:"createdAt"`
}

// WrittenBy reports whether userID authored the review.
func (r Review) WrittenBy(userID string) bool {
	return userID != "" && r.AuthorID != nil && *r.AuthorID == userID
}

// ReviewInput is the body of review create and update requests.
type ReviewInput struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

func (in ReviewInput) Normalize() ReviewInput {
	in.Comment = strings.TrimSpace(in.Comment)
	return in
}

func (in ReviewInput) Validate() error {
	if err := validate.Rating(in.Rating); err != nil {
		return err
	}
	return validate.Comment(in.Comment)
}

// ReviewQuery selects one page of reviews. StartAfter is the opaque cursor
// returned by the previous page.
type ReviewQuery struct {
	Sort       ReviewSort
	Limit      int
	StartAfter string
}

// ReviewPage is one page of a review listing.
type ReviewPage struct {
	Reviews []Review `json:"reviews"`
	HasMore bool     `json:"hasMore"`
	LastDoc *string  `json:"lastDoc"`
}

// FlagInput is the body of a moderation flag.
type FlagInput struct {
	Reason string `json:"reason"`
}
