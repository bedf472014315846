package cli

import (
	"bufio"
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/dmitrijs2005/gophguard/internal/breach"
	"github.com/dmitrijs2005/gophguard/internal/client/client"
	"github.com/dmitrijs2005/gophguard/internal/client/config"
	"github.com/dmitrijs2005/gophguard/internal/flagx"
)

const userAgent = "gophguard-guardctl"

// Exit codes returned by Run.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
)

// BreachChecker is the subset of breach.Oracle guardctl uses.
type BreachChecker interface {
	CheckPassword(ctx context.Context, password string) breach.PasswordReport
	CheckEmail(ctx context.Context, email string) breach.EmailReport
}

// Unlocker clears the lockout state of a user given by id or email.
type Unlocker interface {
	Unlock(ctx context.Context, user string) error
}

type App struct {
	config     *config.Config
	oracle     BreachChecker
	unlocker   Unlocker
	in         *bufio.Reader
	out        io.Writer
	random     io.Reader
	httpClient *http.Client
	dial       func(addr string) (client.Client, error)
}

// NewApp builds an App talking to the configured breach providers and
// database.
func NewApp(c *config.Config) *App {
	httpClient := &http.Client{Timeout: c.Timeout}

	oracle := breach.New(breach.Config{
		RangeURL:   c.RangeURL,
		UserAgent:  userAgent,
		Timeout:    c.Timeout,
		MaxRetries: c.MaxRetries,
		HTTPClient: httpClient,
	}, breach.WithEmailProviders(
		breach.NewHIBPProvider(c.EmailURL, c.APIKey, userAgent, httpClient),
		breach.NewXposedOrNotProvider(c.FallbackEmailURL, userAgent, httpClient),
	))

	return &App{
		config:     c,
		oracle:     oracle,
		unlocker:   newDBUnlocker(c.DatabaseDSN),
		in:         bufio.NewReader(os.Stdin),
		out:        os.Stdout,
		random:     rand.Reader,
		httpClient: httpClient,
		dial: func(addr string) (client.Client, error) {
			return client.NewGRPCClient(addr)
		},
	}
}

func (a *App) usage() {
	fmt.Fprintln(a.out, "Usage: guardctl [-c config.json] [-r range-url] [-t timeout] [-d dsn] [-a addr] <command>")
	fmt.Fprintln(a.out, "Commands: keygen, check [-offline], check-email <email>, unlock <user-id|email>, ping, export [-o dir] <email>")
}

// Run executes the command named in args and returns the exit code.
func (a *App) Run(ctx context.Context, args []string) int {

	cmd, rest := flagx.Subcommand(commandArgs(args))

	var err error
	switch cmd {
	case "keygen":
		err = a.keygen()
	case "check":
		err = a.check(ctx, rest)
	case "check-email":
		err = a.checkEmail(ctx, rest)
	case "unlock":
		err = a.unlock(ctx, rest)
	case "ping":
		err = a.ping(ctx)
	case "export":
		err = a.export(ctx, rest)
	case "help", "":
		a.usage()
		if cmd == "" {
			return ExitUsage
		}
		return ExitOK
	default:
		fmt.Fprintln(a.out, "Unknown command:", cmd)
		a.usage()
		return ExitUsage
	}

	if err != nil {
		if _, ok := err.(usageError); ok {
			fmt.Fprintln(a.out, err.Error())
			return ExitUsage
		}
		fmt.Fprintln(a.out, "Error:", err.Error())
		return ExitFailure
	}
	return ExitOK
}

// globalFlags are consumed by config.LoadConfig.
var globalFlags = map[string]bool{"-c": true, "-config": true, "--config": true, "-r": true, "-t": true, "-d": true, "-a": true}

// commandArgs drops the global flags and their values from args.
func commandArgs(args []string) []string {
	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		name, _, inline := strings.Cut(args[i], "=")
		if !globalFlags[name] {
			out = append(out, args[i])
			continue
		}
		if !inline && i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			i++
		}
	}
	return out
}

type usageError string

func (e usageError) Error() string { return "Usage: guardctl " + string(e) }

// positional returns the non-flag arguments of a subcommand.
func positional(args []string) []string {
	out := make([]string, 0, len(args))
	for _, a := range args {
		if len(a) > 0 && a[0] != '-' {
			out = append(out, a)
		}
	}
	return out
}
