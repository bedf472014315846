package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophguard/internal/client/client"
	"github.com/dmitrijs2005/gophguard/internal/common"
	"github.com/dmitrijs2005/gophguard/internal/filex"
	"github.com/dmitrijs2005/gophguard/internal/netx"
)

const remoteTimeout = 15 * time.Second

func (a *App) ping(ctx context.Context) error {
	c, err := a.dial(a.config.ServerEndpointAddr)
	if err != nil {
		return err
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(ctx, remoteTimeout)
	defer cancel()

	if err := c.Ping(ctx); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Server %s is up\n", a.config.ServerEndpointAddr)
	return nil
}

// export logs in as email, exports the vault and logs out again. With -o
// the export is also downloaded into that directory.
func (a *App) export(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	outDir := fs.String("o", "", "download the export into this directory")
	if err := fs.Parse(args); err != nil {
		return usageError("export [-o dir] <email>")
	}
	pos := fs.Args()
	if len(pos) != 1 || !strings.Contains(pos[0], "@") {
		return usageError("export [-o dir] <email>")
	}

	pw, err := a.GetPassword()
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}
	defer common.WipeByteArray(pw)

	c, err := a.dial(a.config.ServerEndpointAddr)
	if err != nil {
		return err
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(ctx, remoteTimeout)
	defer cancel()

	if err := c.Login(ctx, pos[0], string(pw)); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	defer func() { _ = c.Logout(ctx) }()

	exp, err := c.ExportVault(ctx)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}

	fmt.Fprintf(a.out, "Exported %d entries\n", exp.EntryCount)
	if *outDir == "" {
		fmt.Fprintf(a.out, "Download (valid until %s):\n%s\n", exp.ExpiresAt.Format(time.RFC3339), exp.URL)
		return nil
	}

	path, err := a.download(ctx, exp, *outDir)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Saved to %s\n", path)
	return nil
}

func (a *App) download(ctx context.Context, exp *client.Export, dir string) (string, error) {
	dir, err := filex.EnsurePrivateDir(dir)
	if err != nil {
		return "", err
	}

	path := filepath.Join(dir, exp.ID+".json")
	f, err := filex.CreatePrivate(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if _, err := netx.DownloadPresignedURL(ctx, a.httpClient, exp.URL, f); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("download: %w", err)
	}
	return path, f.Close()
}
