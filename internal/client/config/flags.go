package config

import (
	"flag"
	"fmt"
	"io"

	"github.com/dmitrijs2005/dispersed/internal/flagx"
)

// parseFlags overlays cfg with -a, -s and -l. Arguments meant for other
// components are filtered out first.
func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-s", "-l"})

	fs := flag.NewFlagSet("dispersed", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.APIBaseURL, "a", cfg.APIBaseURL, "base URL of the Dispersed API")
	fs.StringVar(&cfg.SessionDB, "s", cfg.SessionDB, "path of the local session database (:memory: to keep nothing)")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}
	return nil
}
