package cli

import (
	"context"
	"errors"
	"io"

	"github.com/dmitrijs2005/dispersed/internal/client/models"
	"github.com/dmitrijs2005/dispersed/internal/client/services"
	"github.com/dmitrijs2005/dispersed/internal/common"
	"github.com/dmitrijs2005/dispersed/internal/validate"
)

// getSimpleText, getPassword and getPasswordAgain are indirections used to
// facilitate testing.
var getSimpleText = GetSimpleText
var getPassword = GetPassword
var getPasswordAgain = func(w io.Writer) ([]byte, error) { return GetPasswordPrompt(w, "Confirm password") }

// Register creates an account. A display name, when given, is stored right
// after sign-up.
func (a *App) Register(ctx context.Context, _ []string) error {
	email, err := a.prompt("Enter email")
	if err != nil {
		return err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)
	again, err := getPasswordAgain(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(again)

	if err := validate.Password(string(password)); err != nil {
		return err
	}
	if err := validate.PasswordsMatch(string(password), string(again)); err != nil {
		return err
	}

	id, err := a.st.Session.SignUp(ctx, email, string(password))
	if err != nil {
		if id == nil {
			return err
		}
		// The account exists; only the profile record failed.
		a.printf("Account created, but the profile could not be saved: %s\n", userMessage(err))
	}

	name, err := a.prompt("Display name (optional)")
	if err == nil && name != "" {
		if _, err := a.st.Session.UpdateProfile(ctx, models.ProfileUpdate{DisplayName: &name}); err != nil {
			return err
		}
	}

	a.printf("Welcome, %s!\n", a.status())
	return nil
}

func (a *App) Login(ctx context.Context, args []string) error {
	var email string
	if len(args) > 0 {
		email = args[0]
	} else {
		var err error
		if email, err = a.prompt("Enter email"); err != nil {
			return err
		}
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if _, err := a.st.Session.SignIn(ctx, email, string(password)); err != nil {
		var se *services.SignInError
		if errors.As(err, &se) && se.Kind == services.SignInInvalidCredentials {
			a.printf("Forgot your password? Use 'reset %s'.\n", email)
		}
		return err
	}
	a.printf("Signed in as %s\n", a.status())
	return nil
}

func (a *App) Logout(ctx context.Context, _ []string) error {
	if err := a.st.Session.Logout(ctx); err != nil {
		return err
	}
	a.printf("Signed out\n")
	return nil
}

func (a *App) WhoAmI(ctx context.Context, _ []string) error {
	id, err := a.st.Session.Identity(ctx)
	if err != nil {
		return err
	}
	if id == nil {
		a.printf("Not signed in\n")
		return nil
	}
	a.printf("%s <%s> (%s)\n", id.DisplayName, id.Email, id.UserID)
	return nil
}

// Profile changes the display name of the signed-in user.
func (a *App) Profile(ctx context.Context, _ []string) error {
	name, err := a.prompt("New display name")
	if err != nil {
		return err
	}
	if _, err := a.st.Session.UpdateProfile(ctx, models.ProfileUpdate{DisplayName: &name}); err != nil {
		return err
	}
	a.printf("Profile updated\n")
	return nil
}

func (a *App) ResetPassword(ctx context.Context, args []string) error {
	var email string
	if len(args) > 0 {
		email = args[0]
	} else {
		var err error
		if email, err = a.prompt("Enter email"); err != nil {
			return err
		}
	}
	if err := a.st.Session.ResetPassword(ctx, email); err != nil {
		return err
	}
	a.printf("If an account exists for %s, a reset link is on its way\n", email)
	return nil
}
