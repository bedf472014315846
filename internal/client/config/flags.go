package config

import (
	"flag"
	"io"

	"github.com/dmitrijs2005/gophguard/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-r string     k-anonymity range endpoint
//	-t duration   per-call timeout, e.g. 3s
//	-d string     PostgreSQL DSN
//	-a string     address and port of the server
//
// Only these flags are read from args, so subcommand flags and positional
// arguments pass through untouched.
func parseFlags(cfg *Config, args []string) error {
	filtered := flagx.FilterArgs(args, []string{"-r", "-t", "-d", "-a"})

	fs := flag.NewFlagSet("guardctl", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.RangeURL, "r", cfg.RangeURL, "k-anonymity range endpoint")
	fs.DurationVar(&cfg.Timeout, "t", cfg.Timeout, "per-call timeout")
	fs.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "database DSN")
	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "address and port to access server")

	return fs.Parse(filtered)
}
