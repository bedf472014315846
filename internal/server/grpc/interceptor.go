package grpc

import (
	"context"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophguard/internal/common"
	"github.com/oklog/ulid/v2"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type ctxKey string

const UserIDKey ctxKey = "userID"

// userIDFrom returns the subject set by accessTokenInterceptor.
func userIDFrom(ctx context.Context) (string, error) {
	id, ok := ctx.Value(UserIDKey).(string)
	if !ok || id == "" {
		return "", status.Error(codes.Unauthenticated, "missing token")
	}
	return id, nil
}

func firstMetadata(ctx context.Context, key string) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if values := md.Get(key); len(values) > 0 {
		return values[0]
	}
	return ""
}

// accessTokenInterceptor verifies the access token of protected methods and
// puts its subject into the context under UserIDKey. The token is read from
// the access_token header or an "authorization: Bearer" header.
func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {

	if !protectedMethods[info.FullMethod] {
		return handler(ctx, req)
	}

	accessToken := firstMetadata(ctx, common.AccessTokenHeaderName)
	if accessToken == "" {
		if h := firstMetadata(ctx, "authorization"); len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
			accessToken = h[7:]
		}
	}
	if accessToken == "" {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	claims, err := s.users.VerifyAccess(ctx, accessToken)
	if err != nil {
		return nil, toStatus(err)
	}

	ctx = context.WithValue(ctx, UserIDKey, claims.Subject)
	return handler(ctx, req)
}

// requestLogInterceptor tags every call with a request id, echoes it back in
// the response header and logs the outcome.
func (s *GRPCServer) requestLogInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	requestID := firstMetadata(ctx, common.RequestIDHeaderName)
	if requestID == "" {
		requestID = ulid.Make().String()
	}
	_ = grpc.SetHeader(ctx, metadata.Pairs(common.RequestIDHeaderName, requestID))

	start := time.Now()
	resp, err := handler(ctx, req)

	l := s.logger.With("request_id", requestID, "method", info.FullMethod,
		"code", status.Code(err).String(), "latency", time.Since(start))
	if status.Code(err) == codes.Internal || status.Code(err) == codes.Unknown {
		l.Error(ctx, "request failed")
	} else {
		l.Info(ctx, "request handled")
	}
	return resp, err
}
