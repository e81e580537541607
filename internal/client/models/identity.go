package models

import "time"

// AuthStatus is the definite state reported by the session once the
// identity source has resolved.
type AuthStatus string

const (
	StatusAnonymous     AuthStatus = "anonymous"
	StatusAuthenticated AuthStatus = "authenticated"
)

// Identity is the signed-in user as seen by the client.
type Identity struct {
	UserID      string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
}

// Credentials is what the auth endpoints hand back on sign-in, sign-up and
// refresh.
type Credentials struct {
	Identity     Identity `json:"user"`
	IDToken      string   `json:"idToken"`
	RefreshToken string   `json:"refreshToken"`
}

// Profile is the companion record created next to a new account.
type Profile struct {
	UserID      string    `json:"userId"`
	Email       string    `json:"email"`
	DisplayName string    `json:"displayName"`
	Username    string    `json:"username"`
	Name        string    `json:"name"`
	Bio         string    `json:"bio"`
	ZipCode     string    `json:"zipCode"`
	Phone       string    `json:"phone"`
	Birthday    string    `json:"birthday"`
	CreatedAt   time.Time `json:"createdAt,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt,omitempty"`
}

// ProfileUpdate carries the account fields a user may change. Nil fields
// are left as they are.
type ProfileUpdate struct {
	DisplayName *string `json:"displayName,omitempty"`
	PhotoURL    *string `json:"photoURL,omitempty"`
}
