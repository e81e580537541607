// Package models defines the client-side data models exchanged with the
// Dispersed API.
package models

import (
	"strings"
	"time"

	"github.com/dmitrijs2005/dispersed/internal/validate"
)

// DefaultCampsiteTitle replaces a blank title on create and update.
const DefaultCampsiteTitle = "Untitled Campsite"

// Visibility is the access tier of a campsite.
type Visibility string

const (
	VisibilityPrivate  Visibility = "private"
	VisibilityUnlisted Visibility = "unlisted"
	VisibilityPublic   Visibility = "public"
)

// Valid reports whether v is a known tier.
func (v Visibility) Valid() bool {
	switch v {
	case VisibilityPrivate, VisibilityUnlisted, VisibilityPublic:
		return true
	}
	return false
}

// Campsite is a user-contributed point of interest.
type Campsite struct {
	// ID is assigned by the server and never changes afterwards.
	ID string `json:"id"`

	// OwnerID is the user id of the session that created the record.
	OwnerID string `json:"userId"`

	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`

	Title       string     `json:"title"`
	Description string     `json:"description"`
	Visibility  Visibility `json:"visibility"`

	// Photos is ordered and holds at most three entries.
	Photos []Photo `json:"photos"`

	// AverageRating and ReviewCount are derived server-side.
	AverageRating float64 `json:"averageRating"`
	ReviewCount   int     `json:"reviewCount"`

	// Distance is only filled in by location searches (miles).
	Distance *float64 `json:"distance,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CanAttachPhotos reports whether the record is eligible for photo uploads.
func (c Campsite) CanAttachPhotos() bool {
	return c.Visibility == VisibilityPublic
}

// CampsiteInput is the body of a create request.
type CampsiteInput struct {
	Latitude    float64    `json:"latitude"`
	Longitude   float64    `json:"longitude"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Visibility  Visibility `json:"visibility"`
}

// Normalize trims text fields, substitutes the default title and defaults
// the visibility to private.
func (in CampsiteInput) Normalize() CampsiteInput {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		in.Title = DefaultCampsiteTitle
	}
	in.Description = strings.TrimSpace(in.Description)
	if in.Visibility == "" {
		in.Visibility = VisibilityPrivate
	}
	return in
}

// Validate runs the pre-flight checks on a normalized input.
func (in CampsiteInput) Validate() error {
	if err := validate.Coordinates(in.Latitude, in.Longitude); err != nil {
		return err
	}
	if err := validate.Title(in.Title); err != nil {
		return err
	}
	if err := validate.Description(in.Description); err != nil {
		return err
	}
	return validateVisibility(in.Visibility)
}

// CampsitePatch is the body of an update request. Nil fields are left
// untouched by the server.
type CampsitePatch struct {
	Latitude    *float64    `json:"latitude,omitempty"`
	Longitude   *float64    `json:"longitude,omitempty"`
	Title       *string     `json:"title,omitempty"`
	Description *string     `json:"description,omitempty"`
	Visibility  *Visibility `json:"visibility,omitempty"`
}

// Normalize trims the text fields that are present; a present but blank
// title becomes DefaultCampsiteTitle.
func (p CampsitePatch) Normalize() CampsitePatch {
	if p.Title != nil {
		t := strings.TrimSpace(*p.Title)
		if t == "" {
			t = DefaultCampsiteTitle
		}
		p.Title = &t
	}
	if p.Description != nil {
		d := strings.TrimSpace(*p.Description)
		p.Description = &d
	}
	return p
}

// Validate checks the fields that are present. Coordinates must be sent as
// a pair.
func (p CampsitePatch) Validate() error {
	if (p.Latitude == nil) != (p.Longitude == nil) {
		return &validate.ValidationError{Field: "coordinates", Message: "Latitude and longitude must be updated together"}
	}
	if p.Latitude != nil {
		if err := validate.Coordinates(*p.Latitude, *p.Longitude); err != nil {
			return err
		}
	}
	if p.Title != nil {
		if err := validate.Title(*p.Title); err != nil {
			return err
		}
	}
	if p.Description != nil {
		if err := validate.Description(*p.Description); err != nil {
			return err
		}
	}
	if p.Visibility != nil {
		return validateVisibility(*p.Visibility)
	}
	return nil
}

func validateVisibility(v Visibility) error {
	return validate.OneOf("visibility", string(v),
		string(VisibilityPrivate), string(VisibilityUnlisted), string(VisibilityPublic))
}
