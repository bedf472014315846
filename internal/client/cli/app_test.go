package cli

import (
	"bufio"
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"strings"
	"testing"

	"github.com/dmitrijs2005/gophguard/internal/breach"
	"github.com/dmitrijs2005/gophguard/internal/client/config"
	"github.com/dmitrijs2005/gophguard/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOracle struct {
	password breach.PasswordReport
	email    breach.EmailReport
	gotPw    string
	calls    int
}

func (f *fakeOracle) CheckPassword(_ context.Context, pw string) breach.PasswordReport {
	f.calls++
	f.gotPw = pw
	return f.password
}

func (f *fakeOracle) CheckEmail(_ context.Context, _ string) breach.EmailReport {
	f.calls++
	return f.email
}

type fakeUnlocker struct {
	got string
	err error
}

func (f *fakeUnlocker) Unlock(_ context.Context, userID string) error {
	f.got = userID
	return f.err
}

func newTestApp(t *testing.T, stdin string) (*App, *bytes.Buffer, *fakeOracle, *fakeUnlocker) {
	t.Helper()

	oldTerm := isTerminal
	isTerminal = func(int) bool { return false }
	t.Cleanup(func() { isTerminal = oldTerm })

	out := &bytes.Buffer{}
	o := &fakeOracle{}
	u := &fakeUnlocker{}
	cfg := &config.Config{}
	cfg.LoadDefaults()

	app := &App{
		config:   cfg,
		oracle:   o,
		unlocker: u,
		in:       bufio.NewReader(strings.NewReader(stdin)),
		out:      out,
		random:   bytes.NewReader(bytes.Repeat([]byte{0xab}, 64)),
	}
	return app, out, o, u
}

func TestKeygen(t *testing.T) {
	app, out, _, _ := newTestApp(t, "")

	code := app.Run(context.Background(), []string{"keygen"})
	require.Equal(t, ExitOK, code)

	key, err := hex.DecodeString(strings.TrimSpace(out.String()))
	require.NoError(t, err)
	assert.Len(t, key, 32)
	assert.Equal(t, strings.Repeat("ab", 32), strings.TrimSpace(out.String()))
}

func TestKeygen_RandomFailure(t *testing.T) {
	app, _, _, _ := newTestApp(t, "")
	app.random = bytes.NewReader(nil)

	assert.Equal(t, ExitFailure, app.Run(context.Background(), []string{"keygen"}))
}

func TestCheck_Exposed(t *testing.T) {
	app, out, o, _ := newTestApp(t, "password\n")
	o.password = breach.PasswordReport{Exposed: true, Count: 10434004, Source: "pwnedpasswords"}

	code := app.Run(context.Background(), []string{"check"})
	require.Equal(t, ExitOK, code)

	assert.Equal(t, "password", o.gotPw)
	assert.Contains(t, out.String(), "Strength: ")
	assert.Contains(t, out.String(), "(weak)")
	assert.Contains(t, out.String(), "seen 10434004 times")
}

func TestCheck_OfflineFlagSkipsLookup(t *testing.T) {
	app, out, o, _ := newTestApp(t, "Tr0ub4dor&3-horse-Staple\n")

	code := app.Run(context.Background(), []string{"check", "-offline"})
	require.Equal(t, ExitOK, code)
	assert.Zero(t, o.calls)
	assert.NotContains(t, out.String(), "Exposure")
}

func TestCheck_ServiceUnreachable(t *testing.T) {
	app, out, o, _ := newTestApp(t, "whatever1\n")
	o.password = breach.PasswordReport{Offline: true}

	require.Equal(t, ExitOK, app.Run(context.Background(), []string{"check"}))
	assert.Contains(t, out.String(), "unknown")
}

func TestCheck_EmptyPassword(t *testing.T) {
	app, _, o, _ := newTestApp(t, "\n")

	assert.Equal(t, ExitFailure, app.Run(context.Background(), []string{"check"}))
	assert.Zero(t, o.calls)
}

func TestCheck_ReadsFromTerminal(t *testing.T) {
	app, out, o, _ := newTestApp(t, "")
	isTerminal = func(int) bool { return true }
	oldRead := readPassword
	readPassword = func(int) ([]byte, error) { return []byte("from-tty"), nil }
	t.Cleanup(func() { readPassword = oldRead })

	require.Equal(t, ExitOK, app.Run(context.Background(), []string{"check"}))
	assert.Equal(t, "from-tty", o.gotPw)
	assert.Contains(t, out.String(), "Enter password: ")
}

func TestCheck_TerminalError(t *testing.T) {
	app, _, _, _ := newTestApp(t, "")
	isTerminal = func(int) bool { return true }
	oldRead := readPassword
	readPassword = func(int) ([]byte, error) { return nil, errors.New("boom") }
	t.Cleanup(func() { readPassword = oldRead })

	assert.Equal(t, ExitFailure, app.Run(context.Background(), []string{"check"}))
}

func TestCheckEmail(t *testing.T) {
	app, out, o, _ := newTestApp(t, "")
	o.email = breach.EmailReport{
		Source:  "hibp",
		Records: []breach.Record{{Name: "Adobe", Date: "2013-10-04", RecordCount: 152445165, Severity: breach.SeverityHigh}},
	}

	require.Equal(t, ExitOK, app.Run(context.Background(), []string{"check-email", "a@b.c"}))
	assert.Contains(t, out.String(), "Breaches (1, source hibp)")
	assert.Contains(t, out.String(), "Adobe")

	assert.Equal(t, ExitUsage, app.Run(context.Background(), []string{"check-email", "nope"}))
}

func TestUnlock(t *testing.T) {
	const id1 = "0b7d3c1e-6a52-4a6e-9c7e-2f1d8f3b9a01"
	const id2 = "0b7d3c1e-6a52-4a6e-9c7e-2f1d8f3b9a02"
	app, out, _, u := newTestApp(t, "")

	require.Equal(t, ExitOK, app.Run(context.Background(), []string{"-d", "postgres://x", "unlock", id1}))
	assert.Equal(t, id1, u.got)
	assert.Contains(t, out.String(), "User "+id1+" unlocked")

	require.Equal(t, ExitOK, app.Run(context.Background(), []string{"unlock", "alice@example.com"}))
	assert.Equal(t, "alice@example.com", u.got)

	u.err = common.ErrorNotFound
	assert.Equal(t, ExitFailure, app.Run(context.Background(), []string{"unlock", id2}))
	assert.Contains(t, out.String(), "not found")

	assert.Equal(t, ExitUsage, app.Run(context.Background(), []string{"unlock"}))
}

func TestUnlock_RejectsMalformedUserID(t *testing.T) {
	app, out, _, u := newTestApp(t, "")

	assert.Equal(t, ExitUsage, app.Run(context.Background(), []string{"unlock", "u-1"}))
	assert.Empty(t, u.got, "the store is never reached")
	assert.Contains(t, out.String(), "must be a UUID")
}

func TestRun_Dispatch(t *testing.T) {
	app, out, _, _ := newTestApp(t, "")

	assert.Equal(t, ExitUsage, app.Run(context.Background(), nil))
	assert.Equal(t, ExitOK, app.Run(context.Background(), []string{"help"}))
	assert.Equal(t, ExitUsage, app.Run(context.Background(), []string{"frobnicate"}))
	assert.Contains(t, out.String(), "Unknown command: frobnicate")
}

func TestCommandArgs(t *testing.T) {
	got := commandArgs([]string{"-c", "cfg.json", "-r=http://x", "-t", "3s", "check", "-offline"})
	assert.Equal(t, []string{"check", "-offline"}, got)
}
