package client

import (
	"context"
	"time"
)

// Export describes a finished vault export.
type Export struct {
	ID         string
	URL        string
	EntryCount int
	ExpiresAt  time.Time
}

// Client is the remote GophGuard API used by guardctl.
type Client interface {
	Close() error
	Ping(ctx context.Context) error
	Login(ctx context.Context, email, password string) error
	Logout(ctx context.Context) error
	ExportVault(ctx context.Context) (*Export, error)
}
