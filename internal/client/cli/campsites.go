package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/dmitrijs2005/dispersed/internal/client/models"
	"github.com/dmitrijs2005/dispersed/internal/client/services"
	"github.com/dmitrijs2005/dispersed/internal/validate"
)

func (a *App) printCampsites(sites []models.Campsite) {
	if len(sites) == 0 {
		a.printf("No campsites\n")
		return
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tLAT\tLNG\tVISIBILITY\tRATING\tPHOTOS")
	for _, c := range sites {
		fmt.Fprintf(tw, "%s\t%s\t%.5f\t%.5f\t%s\t%.1f (%d)\t%d\n",
			c.ID, c.Title, c.Latitude, c.Longitude, c.Visibility, c.AverageRating, c.ReviewCount, len(c.Photos))
	}
	tw.Flush()
}

// List refetches every campsite visible to the current user.
func (a *App) List(ctx context.Context, _ []string) error {
	sites, err := a.st.Campsites.FetchAll(ctx)
	if err != nil {
		return err
	}
	a.printCampsites(sites)
	return nil
}

// Mine prints the signed-in user's campsites from the local cache.
func (a *App) Mine(_ context.Context, _ []string) error {
	a.printCampsites(a.st.Campsites.Mine())
	return nil
}

func (a *App) Show(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	c, err := a.st.Campsites.Refresh(ctx, args[0])
	if err != nil {
		return err
	}

	a.printf("%s  [%s]\n", c.Title, c.Visibility)
	a.printf("  id:        %s\n", c.ID)
	a.printf("  location:  %.5f, %.5f\n", c.Latitude, c.Longitude)
	if c.Description != "" {
		a.printf("  about:     %s\n", c.Description)
	}
	a.printf("  rating:    %.1f from %d review(s)\n", c.AverageRating, c.ReviewCount)
	if c.OwnerID == a.st.Session.UserID() {
		a.printf("  owner:     you\n")
	}
	for _, p := range c.Photos {
		a.printf("  photo %s: %s\n", p.ID, p.URL)
	}
	return nil
}

func parseCoord(s, field string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, &validate.ValidationError{Field: field, Message: "Enter " + field + " as a decimal number"}
	}
	return f, nil
}

func (a *App) Add(ctx context.Context, _ []string) error {
	var in models.CampsiteInput
	var err error

	lat, err := a.prompt("Latitude")
	if err != nil {
		return err
	}
	if in.Latitude, err = parseCoord(lat, "latitude"); err != nil {
		return err
	}
	lng, err := a.prompt("Longitude")
	if err != nil {
		return err
	}
	if in.Longitude, err = parseCoord(lng, "longitude"); err != nil {
		return err
	}
	if in.Title, err = a.prompt("Title (blank for \"" + models.DefaultCampsiteTitle + "\")"); err != nil {
		return err
	}
	if in.Description, err = GetMultiline(a.reader, "Description", a.out); err != nil {
		return err
	}
	vis, err := a.prompt("Visibility (private, unlisted, public) [private]")
	if err != nil {
		return err
	}
	in.Visibility = models.Visibility(vis)

	c, err := a.st.Campsites.Create(ctx, in)
	if err != nil {
		return err
	}
	a.printf("Created %s (%s)\n", c.Title, c.ID)
	return nil
}

// Edit prompts for each editable field; a blank answer keeps the current
// value.
func (a *App) Edit(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	cur, ok := a.st.Campsites.Find(args[0])
	if !ok {
		c, err := a.st.Campsites.Refresh(ctx, args[0])
		if err != nil {
			return err
		}
		cur = *c
	}

	var patch models.CampsitePatch
	ask := func(label, current string) (*string, error) {
		v, err := a.prompt(fmt.Sprintf("%s [%s]", label, current))
		if err != nil || v == "" {
			return nil, err
		}
		return &v, nil
	}

	var err error
	if patch.Title, err = ask("Title", cur.Title); err != nil {
		return err
	}
	if patch.Description, err = ask("Description", cur.Description); err != nil {
		return err
	}
	vis, err := ask("Visibility", string(cur.Visibility))
	if err != nil {
		return err
	}
	if vis != nil {
		v := models.Visibility(*vis)
		patch.Visibility = &v
	}

	c, err := a.st.Campsites.Update(ctx, cur.ID, patch)
	if err != nil {
		return err
	}
	a.printf("Updated %s\n", c.Title)
	return nil
}

func (a *App) Delete(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	if !confirm(a.reader, "Delete campsite "+args[0]+"?", a.out) {
		a.printf("Cancelled\n")
		return nil
	}
	if err := a.st.Campsites.Delete(ctx, args[0]); err != nil {
		return err
	}
	a.printf("Deleted\n")
	return nil
}

func (a *App) AddPhoto(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errUsage
	}
	site, ok := a.st.Campsites.Find(args[0])
	if !ok {
		c, err := a.st.Campsites.Refresh(ctx, args[0])
		if err != nil {
			return err
		}
		site = *c
	}

	up, closer, err := services.PhotoFromFile(args[1])
	if err != nil {
		return err
	}
	defer closer.Close()

	p, err := a.st.Photos.Upload(ctx, site, up)
	if err != nil {
		return err
	}
	a.printf("Uploaded photo %s\n", p.ID)
	return nil
}

func (a *App) RemovePhoto(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errUsage
	}
	if err := a.st.Photos.Delete(ctx, args[0], args[1]); err != nil {
		return err
	}
	a.printf("Photo removed\n")
	return nil
}
