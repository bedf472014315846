package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/gophguard/internal/breach"
	"github.com/dmitrijs2005/gophguard/internal/common"
	"github.com/dmitrijs2005/gophguard/internal/strength"
)

func (a *App) check(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	offline := fs.Bool("offline", false, "score only, skip the breach lookup")
	if err := fs.Parse(args); err != nil {
		return usageError("check [-offline]")
	}

	pw, err := a.GetPassword()
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}
	defer common.WipeByteArray(pw)
	if len(pw) == 0 {
		return errors.New("password is empty")
	}

	a.printStrength(strength.Score(string(pw)))

	if *offline {
		return nil
	}
	a.printExposure(a.oracle.CheckPassword(ctx, string(pw)))
	return nil
}

func (a *App) printStrength(r strength.Report) {
	fmt.Fprintf(a.out, "Strength: %d/100 (%s)\n", r.Score, r.Level)
	for _, f := range r.Feedback {
		fmt.Fprintf(a.out, "  - %s\n", f)
	}
}

func (a *App) printExposure(r breach.PasswordReport) {
	switch {
	case r.Offline:
		fmt.Fprintln(a.out, "Exposure: unknown, breach service unreachable")
	case r.Exposed:
		fmt.Fprintf(a.out, "Exposure: seen %d times in known breaches\n", r.Count)
	default:
		fmt.Fprintln(a.out, "Exposure: not found in known breaches")
	}
}

func (a *App) checkEmail(ctx context.Context, args []string) error {
	pos := positional(args)
	if len(pos) != 1 || !strings.Contains(pos[0], "@") {
		return usageError("check-email <email>")
	}

	rep := a.oracle.CheckEmail(ctx, pos[0])
	switch {
	case rep.Offline:
		fmt.Fprintln(a.out, "Breaches: unknown, breach services unreachable")
		return nil
	case len(rep.Records) == 0:
		fmt.Fprintln(a.out, "Breaches: none found")
		return nil
	}

	fmt.Fprintf(a.out, "Breaches (%d, source %s):\n", len(rep.Records), rep.Source)
	for _, r := range rep.Records {
		fmt.Fprintf(a.out, "  %-24s %-10s %-8s %d records\n", r.Name, r.Date, r.Severity, r.RecordCount)
	}
	return nil
}
