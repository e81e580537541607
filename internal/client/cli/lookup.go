package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"io"
	"strings"

	"github.com/dmitrijs2005/dispersed/internal/client/models"
)

// parseSearch reads the search filters; whatever follows the flags is the
// free-text query.
func parseSearch(args []string) (models.SearchParams, error) {
	var p models.SearchParams
	var lat, lng, sort string

	fs := flag.NewFlagSet("search", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&lat, "lat", "", "latitude")
	fs.StringVar(&lng, "lng", "", "longitude")
	fs.Float64Var(&p.Radius, "radius", 0, "radius in miles")
	fs.Float64Var(&p.MinRating, "min-rating", 0, "minimum average rating")
	fs.BoolVar(&p.HasPhotos, "photos", false, "only campsites with photos")
	fs.StringVar(&sort, "sort", "", "newest, rating or distance")
	if err := fs.Parse(args); err != nil {
		return p, errUsage
	}
	p.Query = strings.Join(fs.Args(), " ")
	p.Sort = models.SearchSort(sort)

	if (lat == "") != (lng == "") {
		return p, errUsage
	}
	if lat != "" {
		la, err := parseCoord(lat, "latitude")
		if err != nil {
			return p, err
		}
		ln, err := parseCoord(lng, "longitude")
		if err != nil {
			return p, err
		}
		p.Latitude, p.Longitude = &la, &ln
	}
	return p, nil
}

func (a *App) Search(ctx context.Context, args []string) error {
	p, err := parseSearch(args)
	if err != nil {
		return err
	}
	sites, err := a.st.Lookup.Search(ctx, p)
	if err != nil {
		return err
	}
	a.printCampsites(sites)
	return nil
}

// Lookup prints elevation and the raw forecast for a point.
func (a *App) Lookup(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errUsage
	}
	lat, err := parseCoord(args[0], "latitude")
	if err != nil {
		return err
	}
	lng, err := parseCoord(args[1], "longitude")
	if err != nil {
		return err
	}

	info, err := a.st.Lookup.Lookup(ctx, lat, lng)
	if err != nil {
		return err
	}

	var elev struct {
		Elevation *float64 `json:"elevation"`
	}
	if json.Unmarshal(info.Elevation, &elev) == nil && elev.Elevation != nil {
		a.printf("Elevation: %.0f m\n", *elev.Elevation)
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, info.Weather, "", "  "); err != nil {
		buf.Reset()
		buf.Write(info.Weather)
	}
	a.printf("Weather:\n%s\n", buf.String())
	return nil
}

func (a *App) ReportBug(ctx context.Context, _ []string) error {
	var r models.BugReport
	var err error
	if r.Name, err = a.prompt("Your name (optional)"); err != nil {
		return err
	}
	if r.Email, err = a.prompt("Your email"); err != nil {
		return err
	}
	if r.Bug, err = GetMultiline(a.reader, "Describe the bug", a.out); err != nil {
		return err
	}
	if err := a.st.Lookup.ReportBug(ctx, r); err != nil {
		return err
	}
	a.printf("Thanks, the report was sent\n")
	return nil
}
