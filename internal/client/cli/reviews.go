package cli

import (
	"context"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/dispersed/internal/client/models"
)

// ListReviews pages through a campsite's reviews, asking before each
// further page.
func (a *App) ListReviews(ctx context.Context, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return errUsage
	}
	feed := a.st.NewReviewFeed(args[0])
	a.feed = feed

	var err error
	if len(args) == 2 {
		err = feed.SetSort(ctx, models.ReviewSort(args[1]))
	} else {
		err = feed.Load(ctx)
	}
	if err != nil {
		return err
	}

	shown := 0
	for {
		rs := feed.Reviews()
		for _, r := range rs[shown:] {
			a.printReview(r)
		}
		shown = len(rs)
		if shown == 0 {
			a.printf("No reviews yet\n")
		}
		if !feed.HasMore() || !confirm(a.reader, "Show more?", a.out) {
			return nil
		}
		if err := feed.LoadMore(ctx); err != nil {
			return err
		}
	}
}

func (a *App) printReview(r models.Review) {
	who := r.DisplayName
	if who == "" {
		who = "Anonymous"
	}
	if r.WrittenBy(a.st.Session.UserID()) {
		who += " (you)"
	}
	stars := min(max(r.Rating, 0), 5)
	a.printf("%s %s  %s  [%s]\n", strings.Repeat("*", stars)+strings.Repeat(".", 5-stars), who, r.CreatedAt.Format("2006-01-02"), r.ID)
	if r.Comment != "" {
		a.printf("    %s\n", r.Comment)
	}
}

// reviewInput parses "<rating> [comment...]".
func reviewInput(args []string) (models.ReviewInput, error) {
	if len(args) < 1 {
		return models.ReviewInput{}, errUsage
	}
	rating, err := strconv.Atoi(args[0])
	if err != nil {
		return models.ReviewInput{}, errUsage
	}
	return models.ReviewInput{Rating: rating, Comment: strings.Join(args[1:], " ")}, nil
}

// AddReview rates a campsite. Without a session the rating is anonymous and
// carries no comment.
func (a *App) AddReview(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return errUsage
	}
	in, err := reviewInput(args[1:])
	if err != nil {
		return err
	}
	if !a.isLoggedIn() && in.Comment != "" {
		a.printf("Sign in to leave a comment; submitting the rating only\n")
	}

	r, err := a.st.Reviews.Create(ctx, args[0], in)
	if err != nil {
		return err
	}
	a.printf("Thanks! Review %s saved\n", r.ID)
	return nil
}

// EditReview changes the rating and comment of one of the user's reviews.
func (a *App) EditReview(ctx context.Context, args []string) error {
	if len(args) < 3 {
		return errUsage
	}
	in, err := reviewInput(args[2:])
	if err != nil {
		return err
	}
	if _, err := a.st.Reviews.Update(ctx, args[0], args[1], in); err != nil {
		return err
	}
	a.printf("Review %s updated\n", args[1])
	return nil
}

func (a *App) DeleteReview(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errUsage
	}
	if !confirm(a.reader, "Are you sure you want to delete this review?", a.out) {
		return nil
	}
	if err := a.st.Reviews.Delete(ctx, args[0], args[1]); err != nil {
		return err
	}
	if a.feed != nil && a.feed.CampsiteID() == args[0] {
		a.feed.Remove(args[1])
	}
	a.printf("Review %s deleted\n", args[1])
	return nil
}

// FlagReview reports a review for moderation.
func (a *App) FlagReview(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return errUsage
	}
	if err := a.st.Reviews.Flag(ctx, args[0], args[1], strings.Join(args[2:], " ")); err != nil {
		return err
	}
	a.printf("Review has been flagged for moderation\n")
	return nil
}
