package cli

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophguard/internal/client/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	pingErr   error
	loginErr  error
	exportErr error
	exportURL string
	email     string
	password  string
	loggedOut bool
	closed    bool
}

func (f *fakeClient) Close() error                 { f.closed = true; return nil }
func (f *fakeClient) Ping(context.Context) error   { return f.pingErr }
func (f *fakeClient) Logout(context.Context) error { f.loggedOut = true; return nil }

func (f *fakeClient) Login(_ context.Context, email, password string) error {
	f.email, f.password = email, password
	return f.loginErr
}

func (f *fakeClient) ExportVault(context.Context) (*client.Export, error) {
	if f.exportErr != nil {
		return nil, f.exportErr
	}
	url := f.exportURL
	if url == "" {
		url = "http://s3/vault/k"
	}
	return &client.Export{ID: "x1", URL: url, EntryCount: 2, ExpiresAt: time.Date(2026, 3, 1, 12, 15, 0, 0, time.UTC)}, nil
}

func withFakeClient(app *App) (*fakeClient, *string) {
	fc := &fakeClient{}
	addr := new(string)
	app.dial = func(a string) (client.Client, error) {
		*addr = a
		return fc, nil
	}
	return fc, addr
}

func TestPing(t *testing.T) {
	app, out, _, _ := newTestApp(t, "")
	fc, addr := withFakeClient(app)

	require.Equal(t, ExitOK, app.Run(context.Background(), []string{"ping"}))
	assert.Equal(t, "127.0.0.1:50051", *addr)
	assert.Contains(t, out.String(), "is up")
	assert.True(t, fc.closed)

	fc.pingErr = client.ErrUnavailable
	assert.Equal(t, ExitFailure, app.Run(context.Background(), []string{"ping"}))
}

func TestExport(t *testing.T) {
	app, out, _, _ := newTestApp(t, "s3cret\n")
	fc, _ := withFakeClient(app)

	require.Equal(t, ExitOK, app.Run(context.Background(), []string{"export", "a@b.c"}))
	assert.Equal(t, "a@b.c", fc.email)
	assert.Equal(t, "s3cret", fc.password)
	assert.True(t, fc.loggedOut)
	assert.Contains(t, out.String(), "Exported 2 entries")
	assert.Contains(t, out.String(), "http://s3/vault/k")
}

func TestExport_Failures(t *testing.T) {
	app, out, _, _ := newTestApp(t, "pw\npw\n")
	fc, _ := withFakeClient(app)

	fc.loginErr = client.ErrLocked
	assert.Equal(t, ExitFailure, app.Run(context.Background(), []string{"export", "a@b.c"}))
	assert.Contains(t, out.String(), "account locked")

	fc.loginErr = nil
	fc.exportErr = errors.New("rpc error")
	assert.Equal(t, ExitFailure, app.Run(context.Background(), []string{"export", "a@b.c"}))
	assert.True(t, fc.loggedOut)

	assert.Equal(t, ExitUsage, app.Run(context.Background(), []string{"export"}))
}

func TestExport_DownloadsIntoDirectory(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"entries":[{"site":"a"}]}`))
	}))
	defer ts.Close()

	app, out, _, _ := newTestApp(t, "pw\n")
	app.httpClient = ts.Client()
	fc, _ := withFakeClient(app)
	fc.exportURL = ts.URL + "/vault/k"

	dir := filepath.Join(t.TempDir(), "exports")
	require.Equal(t, ExitOK, app.Run(context.Background(), []string{"export", "-o", dir, "a@b.c"}))

	data, err := os.ReadFile(filepath.Join(dir, "x1.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"entries":[{"site":"a"}]}`, string(data))
	assert.Contains(t, out.String(), "Saved to ")
}

func TestExport_DownloadFailureLeavesNoFile(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer ts.Close()

	app, _, _, _ := newTestApp(t, "pw\n")
	app.httpClient = ts.Client()
	fc, _ := withFakeClient(app)
	fc.exportURL = ts.URL

	dir := t.TempDir()
	require.Equal(t, ExitFailure, app.Run(context.Background(), []string{"export", "-o", dir, "a@b.c"}))

	_, err := os.Stat(filepath.Join(dir, "x1.json"))
	assert.True(t, os.IsNotExist(err))
}
