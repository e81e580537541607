package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// printlnFn is a test seam for REPL output.
var printlnFn = fmt.Println

// command is one REPL verb. Commands with auth set are listed in help only
// while someone is signed in; they still run otherwise and report the
// server's answer.
type command struct {
	name  string
	usage string
	auth  bool
	run   func(ctx context.Context, args []string) error
}

// execIface is what the REPL needs from the application. The real App
// satisfies it; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	commands() []command
}

// runREPL reads one command per line from r, dispatches it and prints any
// error the handler returns. It exits on EOF or on "exit" / "quit".
func runREPL(ctx context.Context, a execIface, statusFn func() string, r *bufio.Reader) {
	cmds := make(map[string]command)
	for _, c := range a.commands() {
		cmds[c.name] = c
	}

	for {
		printlnFn(fmt.Sprintf("dispersed (%s) > ", statusFn()))
		line, err := r.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		name, args := parts[0], parts[1:]

		switch name {
		case "help":
			printHelp(a)
			continue
		case "exit", "quit":
			printlnFn("Bye!")
			return
		}

		c, ok := cmds[name]
		if !ok {
			printlnFn("Unknown command:", name)
			continue
		}
		if err := c.run(ctx, args); err != nil {
			if errors.Is(err, errUsage) {
				printlnFn("Usage:", c.usage)
				continue
			}
			printlnFn("Error:", userMessage(err))
		}
		if ctx.Err() != nil {
			return
		}
	}
}

var errUsage = errors.New("usage")

func printHelp(a execIface) {
	loggedIn := a.isLoggedIn()
	lines := []string{"Available commands:"}
	for _, c := range a.commands() {
		if c.auth && !loggedIn {
			continue
		}
		lines = append(lines, "  "+c.usage)
	}
	lines = append(lines, "  help", "  exit")
	printlnFn(strings.Join(lines, "\n"))
}

func (a *App) commands() []command {
	return []command{
		{name: "register", usage: "register", run: a.Register},
		{name: "login", usage: "login [email]", run: a.Login},
		{name: "logout", usage: "logout", auth: true, run: a.Logout},
		{name: "whoami", usage: "whoami", run: a.WhoAmI},
		{name: "profile", usage: "profile", auth: true, run: a.Profile},
		{name: "reset", usage: "reset [email]", run: a.ResetPassword},

		{name: "list", usage: "list", run: a.List},
		{name: "mine", usage: "mine", auth: true, run: a.Mine},
		{name: "show", usage: "show <campsite-id>", run: a.Show},
		{name: "add", usage: "add", auth: true, run: a.Add},
		{name: "edit", usage: "edit <campsite-id>", auth: true, run: a.Edit},
		{name: "delete", usage: "delete <campsite-id>", auth: true, run: a.Delete},

		{name: "photo", usage: "photo <campsite-id> <file>", auth: true, run: a.AddPhoto},
		{name: "unphoto", usage: "unphoto <campsite-id> <photo-id>", auth: true, run: a.RemovePhoto},
		{name: "reviews", usage: "reviews <campsite-id> [newest|highest|lowest]", run: a.ListReviews},
		{name: "review", usage: "review <campsite-id> <rating 1-5> [comment]", run: a.AddReview},
		{name: "review-edit", usage: "review-edit <campsite-id> <review-id> <rating 1-5> [comment]", auth: true, run: a.EditReview},
		{name: "review-delete", usage: "review-delete <campsite-id> <review-id>", auth: true, run: a.DeleteReview},
		{name: "flag", usage: "flag <campsite-id> <review-id> [reason]", auth: true, run: a.FlagReview},

		{name: "search", usage: "search [-lat n -lng n [-radius mi]] [-min-rating n] [-photos] [-sort newest|rating|distance] [text]", run: a.Search},
		{name: "lookup", usage: "lookup <lat> <lng>", run: a.Lookup},
		{name: "bug", usage: "bug", run: a.ReportBug},
	}
}
