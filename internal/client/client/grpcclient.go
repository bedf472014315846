package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophguard/internal/common"
	"github.com/dmitrijs2005/gophguard/internal/server/auth"
	gs "github.com/dmitrijs2005/gophguard/internal/server/grpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

type GRPCClient struct {
	conn *grpc.ClientConn

	mu           sync.Mutex
	accessToken  string
	refreshToken string
}

var _ Client = (*GRPCClient)(nil)

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	md.Set(common.AccessTokenHeaderName, token)
	return metadata.NewOutgoingContext(ctx, md)
}

func (s *GRPCClient) tokens() (string, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accessToken, s.refreshToken
}

func (s *GRPCClient) setTokens(access, refresh string) {
	s.mu.Lock()
	s.accessToken, s.refreshToken = access, refresh
	s.mu.Unlock()
}

func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {

	access, refresh := s.tokens()
	if access == "" || method == gs.FullMethod(gs.MethodRefresh) {
		return invoker(ctx, method, req, reply, cc, opts...)
	}

	err := invoker(withAccessToken(ctx, access), method, req, reply, cc, opts...)
	if err == nil || refresh == "" {
		return err
	}
	if status.Code(err) != codes.Unauthenticated || gs.ReasonOf(err) != auth.ReasonExpired {
		return err
	}

	in, _ := structpb.NewStruct(map[string]any{"refresh_token": refresh})
	out := &structpb.Struct{}
	if rerr := cc.Invoke(ctx, gs.FullMethod(gs.MethodRefresh), in, out); rerr != nil {
		return err
	}
	s.setTokens(stringField(out, "access_token"), stringField(out, "refresh_token"))

	// tokens refreshed, retry once with the new access token
	access, _ = s.tokens()
	return invoker(withAccessToken(ctx, access), method, req, reply, cc, opts...)
}

// NewGRPCClient connects to the server at endpointURL. Extra dial options
// are appended after the defaults.
func NewGRPCClient(endpointURL string, opts ...grpc.DialOption) (*GRPCClient, error) {
	c := &GRPCClient{}

	dial := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(c.accessTokenInterceptor),
	}, opts...)

	conn, err := grpc.NewClient(endpointURL, dial...)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	return c, nil
}

func (s *GRPCClient) Close() error {
	return s.conn.Close()
}

func (s *GRPCClient) call(ctx context.Context, method string, req map[string]any) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(req)
	if err != nil {
		return nil, err
	}
	out := &structpb.Struct{}
	if err := s.conn.Invoke(ctx, gs.FullMethod(method), in, out); err != nil {
		return nil, s.mapError(err)
	}
	return out, nil
}

func (s *GRPCClient) Ping(ctx context.Context) error {

	resp, err := s.call(ctx, gs.MethodPing, nil)
	if err != nil {
		return err
	}
	if stringField(resp, "status") != "OK" {
		return ErrUnavailable
	}
	return nil
}

func (s *GRPCClient) Login(ctx context.Context, email, password string) error {

	resp, err := s.call(ctx, gs.MethodLogin, map[string]any{"email": email, "password": password})
	if err != nil {
		return err
	}

	s.setTokens(stringField(resp, "access_token"), stringField(resp, "refresh_token"))
	return nil
}

func (s *GRPCClient) Logout(ctx context.Context) error {
	if _, err := s.call(ctx, gs.MethodLogout, nil); err != nil {
		return err
	}
	s.setTokens("", "")
	return nil
}

func (s *GRPCClient) ExportVault(ctx context.Context) (*Export, error) {

	resp, err := s.call(ctx, gs.MethodExportVault, nil)
	if err != nil {
		return nil, err
	}

	e := &Export{
		ID:         stringField(resp, "export_id"),
		URL:        stringField(resp, "url"),
		EntryCount: int(resp.GetFields()["entry_count"].GetNumberValue()),
	}
	if ts := stringField(resp, "expires_at"); ts != "" {
		if e.ExpiresAt, err = time.Parse(time.RFC3339, ts); err != nil {
			return nil, fmt.Errorf("bad expires_at %q: %w", ts, err)
		}
	}
	return e, nil
}

func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unauthenticated:
		return fmt.Errorf("%w: %s", ErrUnauthorized, st.Message())
	case codes.PermissionDenied:
		return ErrLocked
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}

func stringField(s *structpb.Struct, key string) string {
	return s.GetFields()[key].GetStringValue()
}
