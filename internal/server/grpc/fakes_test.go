package grpc

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophguard/internal/breach"
	"github.com/dmitrijs2005/gophguard/internal/common"
	"github.com/dmitrijs2005/gophguard/internal/logging"
	"github.com/dmitrijs2005/gophguard/internal/server/auth"
	"github.com/dmitrijs2005/gophguard/internal/server/models"
	"github.com/dmitrijs2005/gophguard/internal/server/services"
	"github.com/dmitrijs2005/gophguard/internal/strength"
	"github.com/golang-jwt/jwt/v5"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

// ---- fakes ----

const (
	goodToken    = "good-token"
	expiredToken = "expired-token"
)

type fakeUsers struct {
	loginResp *services.TokenPair
	loginErr  error

	refreshResp *services.TokenPair
	refreshErr  error

	regErr error

	loggedOut string
}

func (f *fakeUsers) Register(ctx context.Context, email, password string) (*models.Identity, error) {
	if f.regErr != nil {
		return nil, f.regErr
	}
	return &models.Identity{ID: "u1", Email: email}, nil
}

func (f *fakeUsers) Login(ctx context.Context, email, password string) (*services.TokenPair, error) {
	return f.loginResp, f.loginErr
}

func (f *fakeUsers) Refresh(ctx context.Context, refreshToken string) (*services.TokenPair, error) {
	return f.refreshResp, f.refreshErr
}

func (f *fakeUsers) Logout(ctx context.Context, userID string) error {
	f.loggedOut = userID
	return nil
}

func (f *fakeUsers) VerifyAccess(ctx context.Context, accessToken string) (*auth.Claims, error) {
	switch accessToken {
	case goodToken:
		return &auth.Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "u1"}, Kind: auth.KindAccess}, nil
	case expiredToken:
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidToken, common.ErrTokenExpired)
	default:
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidToken, common.ErrTokenMalformed)
	}
}

type fakeVault struct {
	entry   *models.VaultEntry
	secret  []byte
	report  strength.Report
	err     error
	list    []*models.VaultEntry
	export  *services.ExportResult
	exports []*models.Export
	gotUser string
}

func (f *fakeVault) Create(ctx context.Context, userID, site, username, secret string) (*models.VaultEntry, strength.Report, error) {
	f.gotUser = userID
	return f.entry, f.report, f.err
}

func (f *fakeVault) Get(ctx context.Context, userID, id string) (*models.VaultEntry, []byte, error) {
	f.gotUser = userID
	return f.entry, f.secret, f.err
}

func (f *fakeVault) List(ctx context.Context, userID string) ([]*models.VaultEntry, error) {
	f.gotUser = userID
	return f.list, f.err
}

func (f *fakeVault) Update(ctx context.Context, userID, id, site, username, secret string) (*models.VaultEntry, strength.Report, error) {
	f.gotUser = userID
	return f.entry, f.report, f.err
}

func (f *fakeVault) Delete(ctx context.Context, userID, id string) error {
	f.gotUser = userID
	return f.err
}

func (f *fakeVault) Export(ctx context.Context, userID string) (*services.ExportResult, error) {
	f.gotUser = userID
	return f.export, f.err
}

func (f *fakeVault) Exports(ctx context.Context, userID string) ([]*models.Export, error) {
	f.gotUser = userID
	return f.exports, f.err
}

type fakeSecurity struct {
	password services.PasswordCheck
	email    breach.EmailReport
	err      error
}

func (f *fakeSecurity) CheckPassword(ctx context.Context, password string) (services.PasswordCheck, error) {
	return f.password, f.err
}

func (f *fakeSecurity) CheckEmail(ctx context.Context, email string) (breach.EmailReport, error) {
	return f.email, f.err
}

// ---- bufconn harness ----

type harness struct {
	users    *fakeUsers
	vault    *fakeVault
	security *fakeSecurity
	server   *GRPCServer
	conn     *grpc.ClientConn
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{users: &fakeUsers{}, vault: &fakeVault{}, security: &fakeSecurity{}}
	h.server = NewGRPCServer("bufnet", logging.Nop{}, h.users, h.vault, h.security)

	lis := bufconn.Listen(1 << 20)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.server.Serve(ctx, lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("grpc.NewClient: %v", err)
	}
	h.conn = conn

	t.Cleanup(func() {
		_ = conn.Close()
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Errorf("server did not stop")
		}
	})
	return h
}

func (h *harness) call(t *testing.T, method string, req map[string]any, md ...string) (*structpb.Struct, error) {
	t.Helper()
	in, err := structpb.NewStruct(req)
	if err != nil {
		t.Fatalf("NewStruct: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if len(md) > 0 {
		ctx = metadata.AppendToOutgoingContext(ctx, md...)
	}
	out := &structpb.Struct{}
	err = h.conn.Invoke(ctx, FullMethod(method), in, out)
	return out, err
}
