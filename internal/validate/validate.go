// Package validate holds the pre-flight checks run before any request leaves
// the client. Every failure is a *ValidationError, which matches ErrValidation.
package validate

import (
	"errors"
	"fmt"
	"math"
	"net/mail"
	"strings"
	"unicode/utf8"
)

const (
	MinPasswordLen    = 8
	MaxTitleLen       = 100
	MaxDescriptionLen = 1000
	MaxCommentLen     = 1000
	MinRating         = 1
	MaxRating         = 5

	MaxPhotosPerCampsite = 3
	MaxPhotoBytes        = 5 * 1024 * 1024
)

// AllowedPhotoTypes lists the MIME types accepted for photo uploads.
var AllowedPhotoTypes = []string{"image/jpeg", "image/png", "image/webp"}

// ErrValidation is matched by every *ValidationError.
var ErrValidation = errors.New("validation error")

// ValidationError reports a client-side rejection. Message is meant to be
// shown to the user as is.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Coordinates checks lat ∈ [-90,90] and lng ∈ [-180,180]. NaN is rejected.
func Coordinates(lat, lng float64) error {
	if math.IsNaN(lat) || lat < -90 || lat > 90 {
		return invalid("latitude", "Latitude must be between -90 and 90")
	}
	if math.IsNaN(lng) || lng < -180 || lng > 180 {
		return invalid("longitude", "Longitude must be between -180 and 180")
	}
	return nil
}

func Title(title string) error {
	if utf8.RuneCountInString(title) > MaxTitleLen {
		return invalid("title", "Title must be %d characters or less", MaxTitleLen)
	}
	return nil
}

func Description(description string) error {
	if utf8.RuneCountInString(description) > MaxDescriptionLen {
		return invalid("description", "Description must be %d characters or less", MaxDescriptionLen)
	}
	return nil
}

// OneOf checks that value is one of allowed.
func OneOf(field, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return invalid(field, "%s must be one of: %s", field, strings.Join(allowed, ", "))
}

func Password(password string) error {
	switch l := len(password); {
	case l == 0:
		return invalid("password", "Password is required")
	case l < MinPasswordLen:
		return invalid("password", "Password must be at least %d characters", MinPasswordLen)
	}
	return nil
}

// PasswordsMatch checks the confirmation typed at sign-up.
func PasswordsMatch(password, confirm string) error {
	if password != confirm {
		return invalid("password", "Passwords do not match")
	}
	return nil
}

func Email(email string) error {
	if strings.TrimSpace(email) == "" {
		return invalid("email", "Email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return invalid("email", "Please enter a valid email address")
	}
	return nil
}

// Rating rejects an unset (zero) rating and anything outside [1,5].
func Rating(rating int) error {
	if rating == 0 {
		return invalid("rating", "Please select a rating")
	}
	if rating < MinRating || rating > MaxRating {
		return invalid("rating", "Rating must be between %d and %d", MinRating, MaxRating)
	}
	return nil
}

func Comment(comment string) error {
	if utf8.RuneCountInString(strings.TrimSpace(comment)) > MaxCommentLen {
		return invalid("comment", "Comment must be %d characters or less", MaxCommentLen)
	}
	return nil
}

// Photo applies the upload guards in order: photo count, MIME type, size.
func Photo(currentPhotos int, contentType string, size int64) error {
	if currentPhotos >= MaxPhotosPerCampsite {
		return invalid("photo", "Maximum %d photos per campsite", MaxPhotosPerCampsite)
	}
	if err := OneOf("photo", contentType, AllowedPhotoTypes...); err != nil {
		return invalid("photo", "Only JPEG, PNG, and WebP images are allowed")
	}
	if size > MaxPhotoBytes {
		return invalid("photo", "File size must be less than 5MB")
	}
	return nil
}
