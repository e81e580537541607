package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dmitrijs2005/dispersed/internal/client/client"
	"github.com/dmitrijs2005/dispersed/internal/client/services"
	"github.com/dmitrijs2005/dispersed/internal/client/state"
	"github.com/dmitrijs2005/dispersed/internal/logging"
	"github.com/dmitrijs2005/dispersed/internal/validate"
)

// App is the interactive client. It owns nothing but I/O; every piece of
// state lives in the *state.State it was built with.
type App struct {
	st     *state.State
	reader *bufio.Reader
	out    io.Writer
	log    logging.Logger

	// feed is the review list shown last; deletes are reflected in it.
	feed *services.ReviewFeed
}

func NewApp(st *state.State, in io.Reader, out io.Writer, log logging.Logger) *App {
	return &App{
		st:     st,
		reader: bufio.NewReader(in),
		out:    out,
		log:    logging.OrNop(log).With("component", "cli"),
	}
}

// Run starts the session and blocks in the REPL until the user leaves. The
// state is disposed on return.
func (a *App) Run(ctx context.Context) error {
	defer func() {
		if err := a.st.Dispose(); err != nil {
			a.log.Error(ctx, "dispose failed", "error", err)
		}
	}()

	a.st.Init(ctx)
	if err := a.st.Session.Wait(ctx); err != nil {
		return err
	}

	a.printf("Welcome to Dispersed (type 'help' for commands)\n")
	runREPL(ctx, a, a.status, a.reader)
	return nil
}

func (a *App) isLoggedIn() bool {
	return a.st.Session.UserID() != ""
}

func (a *App) status() string {
	id, err := a.st.Session.Identity(context.Background())
	if err != nil || id == nil {
		return "guest"
	}
	if id.DisplayName != "" {
		return id.DisplayName
	}
	return id.Email
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

func (a *App) prompt(text string) (string, error) {
	return getSimpleText(a.reader, text, a.out)
}

// userMessage turns err into the text shown to the user.
func userMessage(err error) string {
	var (
		ve *validate.ValidationError
		se *services.SignInError
		re *client.RequestError
	)
	switch {
	case errors.As(err, &ve):
		return ve.Message
	case errors.As(err, &se):
		return se.Error()
	case errors.As(err, &re):
		return re.Message
	}
	return err.Error()
}
